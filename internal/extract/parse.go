package extract

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/shopspring/decimal"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
)

const recordSchemaURL = "record.json"

const recordSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["surveyNumber", "documentNumber"],
  "properties": {
    "surveyNumber": {"type": "string", "pattern": "\\S"},
    "documentNumber": {"type": "string", "pattern": "\\S"}
  }
}`

var compiledRecordSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(recordSchemaURL, strings.NewReader(recordSchema)); err != nil {
		return nil, fmt.Errorf("failed to load record schema: %w", err)
	}
	schema, err := compiler.Compile(recordSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile record schema: %w", err)
	}
	return schema, nil
})

// legacy keys some prompts and models still produce
var fieldAliases = map[string]string{
	"buyerNameTamil":  "buyerNameNative",
	"sellerNameTamil": "sellerNameNative",
}

// ParseRecords decodes a model reply into records. The reply must be a JSON
// array, optionally wrapped in a Markdown code fence. Elements that are not
// objects or lack a required field are dropped and counted.
func ParseRecords(content string) ([]model.ExtractedRecord, int, error) {
	body := stripFences(content)

	dec := json.NewDecoder(bytes.NewReader([]byte(body)))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, 0, fmt.Errorf("%w: %w", common.ErrExtractionFormat, err)
	}
	if dec.More() {
		return nil, 0, fmt.Errorf("%w: trailing data after JSON value", common.ErrExtractionFormat)
	}

	items, ok := parsed.([]any)
	if !ok {
		return nil, 0, fmt.Errorf("%w: got %T", common.ErrExtractionFormat, parsed)
	}

	schema, err := compiledRecordSchema()
	if err != nil {
		return nil, 0, err
	}

	records := make([]model.ExtractedRecord, 0, len(items))
	dropped := 0
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			dropped++
			continue
		}
		fields := coerceFields(obj)
		if err := schema.Validate(toAny(fields)); err != nil {
			dropped++
			continue
		}
		records = append(records, recordFromFields(fields))
	}

	return records, dropped, nil
}

// stripFences removes a surrounding ``` or ```json fence.
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		if lang := strings.TrimSpace(s[:nl]); lang == "" || !strings.ContainsAny(lang, "[{") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// coerceFields flattens every value to a trimmed string and resolves
// aliased keys. Nulls are dropped.
func coerceFields(obj map[string]any) map[string]string {
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := scalarString(v)
		if !ok {
			continue
		}
		if canonical, aliased := fieldAliases[k]; aliased {
			if _, exists := obj[canonical]; exists {
				continue
			}
			k = canonical
		}
		out[k] = s
	}
	return out
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

func toAny(fields map[string]string) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

func recordFromFields(f map[string]string) model.ExtractedRecord {
	return model.ExtractedRecord{
		SurveyNumber:     f["surveyNumber"],
		DocumentNumber:   f["documentNumber"],
		BuyerName:        f["buyerName"],
		BuyerNameNative:  f["buyerNameNative"],
		SellerName:       f["sellerName"],
		SellerNameNative: f["sellerNameNative"],
		HouseNumber:      f["houseNumber"],
		TransactionDate:  f["transactionDate"],
		TransactionValue: NormalizeValue(f["transactionValue"]),
		District:         f["district"],
		Village:          f["village"],
		AdditionalInfo:   f["additionalInfo"],
	}
}

var valueNoise = strings.NewReplacer(
	",", "",
	" ", "",
	"₹", "",
	"/-", "",
	"Rs.", "",
	"Rs", "",
	"rs.", "",
	"rs", "",
	"INR", "",
)

// NormalizeValue strips currency markers and digit grouping from a
// monetary amount. Values that still do not parse as a number are returned
// trimmed but otherwise unchanged.
func NormalizeValue(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	d, err := decimal.NewFromString(valueNoise.Replace(v))
	if err != nil {
		return v
	}
	return d.String()
}
