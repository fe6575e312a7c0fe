// Package llm provides a provider-neutral text completion client used for
// structured record extraction. It supports OpenAI and Anthropic, with
// client-side rate limiting and typed transport and rate-limit errors.
package llm
