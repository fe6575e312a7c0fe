// Package model holds the domain types shared across deedscan.
package model

import (
	"strings"
	"time"
)

// ExtractedRecord is one property transaction as returned by an extractor.
type ExtractedRecord struct {
	SurveyNumber     string `json:"surveyNumber"`
	DocumentNumber   string `json:"documentNumber"`
	BuyerName        string `json:"buyerName,omitempty"`
	BuyerNameNative  string `json:"buyerNameNative,omitempty"`
	SellerName       string `json:"sellerName,omitempty"`
	SellerNameNative string `json:"sellerNameNative,omitempty"`
	HouseNumber      string `json:"houseNumber,omitempty"`
	TransactionDate  string `json:"transactionDate,omitempty"`  // DD/MM/YYYY
	TransactionValue string `json:"transactionValue,omitempty"` // digits only, no separators
	District         string `json:"district,omitempty"`
	Village          string `json:"village,omitempty"`
	AdditionalInfo   string `json:"additionalInfo,omitempty"`
}

// Valid reports whether both required fields are present.
func (r ExtractedRecord) Valid() bool {
	return strings.TrimSpace(r.SurveyNumber) != "" && strings.TrimSpace(r.DocumentNumber) != ""
}

// Key returns the deduplication key for the record.
func (r ExtractedRecord) Key() string {
	return r.DocumentNumber + "-" + r.SurveyNumber
}

// Segment is a contiguous slice of the source text.
type Segment struct {
	Text  string
	Index int
}

// SegmentResult is the outcome of a successful segment extraction.
type SegmentResult struct {
	Records         []ExtractedRecord
	SegmentIndex    int
	EstimatedTokens int
	Duration        time.Duration
}
