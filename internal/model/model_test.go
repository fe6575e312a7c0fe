package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractedRecordValid(t *testing.T) {
	tests := []struct {
		name   string
		record ExtractedRecord
		want   bool
	}{
		{"both required fields", ExtractedRecord{SurveyNumber: "12/3", DocumentNumber: "D1"}, true},
		{"missing document number", ExtractedRecord{SurveyNumber: "12/3"}, false},
		{"missing survey number", ExtractedRecord{DocumentNumber: "D1"}, false},
		{"whitespace only", ExtractedRecord{SurveyNumber: " ", DocumentNumber: "D1"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.record.Valid())
		})
	}
}

func TestExtractedRecordKey(t *testing.T) {
	r := ExtractedRecord{SurveyNumber: "12", DocumentNumber: "D1"}
	assert.Equal(t, "D1-12", r.Key())
}

func TestTransactionFilterMatches(t *testing.T) {
	rec := ExtractedRecord{
		SurveyNumber:   "45/2",
		DocumentNumber: "2023-001",
		BuyerName:      "Rajesh Kumar",
		SellerName:     "Lakshmi Devi",
		HouseNumber:    "7A",
	}

	tests := []struct {
		name   string
		filter TransactionFilter
		want   bool
	}{
		{"empty filter", TransactionFilter{}, true},
		{"buyer substring any case", TransactionFilter{BuyerName: "rajesh"}, true},
		{"seller mismatch", TransactionFilter{SellerName: "kumar"}, false},
		{"exact house", TransactionFilter{HouseNumber: "7A"}, true},
		{"house is not substring", TransactionFilter{HouseNumber: "7"}, false},
		{"survey and document", TransactionFilter{SurveyNumber: "45/2", DocumentNumber: "2023-001"}, true},
		{"document mismatch", TransactionFilter{DocumentNumber: "2023-002"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(rec))
		})
	}
	assert.True(t, TransactionFilter{}.IsEmpty())
	assert.False(t, TransactionFilter{HouseNumber: "1"}.IsEmpty())
}

func TestAssessQuality(t *testing.T) {
	t.Run("empty batch", func(t *testing.T) {
		q := AssessQuality(nil)
		assert.Equal(t, QualityUnknown, q.Quality)
		assert.Zero(t, q.Completeness)
	})

	t.Run("complete records", func(t *testing.T) {
		records := []ExtractedRecord{
			{SellerName: "A", TransactionValue: "100", District: "Salem", Village: "Attur"},
			{SellerName: "B", TransactionValue: "200", District: "Salem", Village: "Omalur"},
		}
		q := AssessQuality(records)
		assert.Equal(t, QualityExcellent, q.Quality)
		assert.Equal(t, 100, q.Completeness)
		assert.Equal(t, 2, q.Complete)
		assert.Empty(t, q.Warnings)
	})

	t.Run("mostly missing sellers", func(t *testing.T) {
		records := []ExtractedRecord{
			{SellerName: UnknownName, TransactionValue: "1", District: "d", Village: "v"},
			{SellerName: "", TransactionValue: "1", District: "d", Village: "v"},
			{SellerName: "C", TransactionValue: "1", District: "d", Village: "v"},
		}
		q := AssessQuality(records)
		assert.Equal(t, QualityPoor, q.Quality)
		assert.Equal(t, 2, q.Details.MissingSeller)
		assert.Equal(t, 1, q.Complete)
		assert.Equal(t, 33, q.Completeness)
		assert.Contains(t, q.Warnings, "67% missing seller names")
	})

	t.Run("missing values downgrade to good", func(t *testing.T) {
		records := []ExtractedRecord{
			{SellerName: "A", District: "d", Village: "v"},
			{SellerName: "B", TransactionValue: "5", District: "d", Village: "v"},
		}
		q := AssessQuality(records)
		assert.Equal(t, QualityGood, q.Quality)
		assert.Len(t, q.Warnings, 1)
	})
}
