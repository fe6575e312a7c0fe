package extract

import "strings"

const systemPrompt = `You extract Tamil Nadu property registration transactions from document text.
Each transaction has a buyer (purchaser, claimant, வாங்குபவர்) and a seller (vendor, executant, விற்பவர்). Do not swap them: the party transferring the property is the seller.
Write every name in English letters, transliterating Tamil script, and also keep the original Tamil spelling in the matching *Native field when present.
Every transaction needs a surveyNumber and a documentNumber. Respond with a JSON array only, no markdown and no commentary.`

const userPromptTemplate = `Extract Tamil Nadu property transactions as JSON array.

Required fields: surveyNumber, documentNumber
Optional: buyerName, buyerNameNative, sellerName, sellerNameNative, houseNumber, transactionDate (DD/MM/YYYY), transactionValue (numbers only), district, village, additionalInfo

Rules:
1. Transliterate Tamil to English
2. Extract ALL transactions
3. Skip if missing surveyNumber/documentNumber
4. Return valid JSON only

Example: [{"surveyNumber":"123/4","documentNumber":"2023-001","buyerName":"Rajesh Kumar","transactionDate":"15/03/2023"}]

Text:
{{TEXT}}

JSON:`

func userPrompt(text string) string {
	return strings.Replace(userPromptTemplate, "{{TEXT}}", text, 1)
}
