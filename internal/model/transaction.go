package model

import (
	"time"
)

// Transaction is a persisted property transaction.
type Transaction struct {
	ExtractedAt time.Time
	CreatedAt   time.Time
	PDFFileName string
	ExtractedRecord
	ID int64
}

// NewTransaction builds an unsaved transaction from an extracted record.
func NewTransaction(rec ExtractedRecord, fileName string) Transaction {
	return Transaction{
		ExtractedRecord: rec,
		PDFFileName:     fileName,
		ExtractedAt:     time.Now(),
	}
}

// TransactionFilter narrows a transaction lookup. Empty fields are ignored.
// Buyer and seller names match as case-insensitive substrings; the number
// fields match exactly.
type TransactionFilter struct {
	BuyerName      string
	SellerName     string
	HouseNumber    string
	SurveyNumber   string
	DocumentNumber string
}

// IsEmpty reports whether no filter field is set.
func (f TransactionFilter) IsEmpty() bool {
	return f.BuyerName == "" && f.SellerName == "" && f.HouseNumber == "" &&
		f.SurveyNumber == "" && f.DocumentNumber == ""
}

// Matches applies the filter to an in-memory record.
func (f TransactionFilter) Matches(r ExtractedRecord) bool {
	if f.BuyerName != "" && !containsFold(r.BuyerName, f.BuyerName) {
		return false
	}
	if f.SellerName != "" && !containsFold(r.SellerName, f.SellerName) {
		return false
	}
	if f.HouseNumber != "" && r.HouseNumber != f.HouseNumber {
		return false
	}
	if f.SurveyNumber != "" && r.SurveyNumber != f.SurveyNumber {
		return false
	}
	if f.DocumentNumber != "" && r.DocumentNumber != f.DocumentNumber {
		return false
	}
	return true
}
