// Package testutil provides shared fixtures for tests that need a migrated
// transaction store.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/deedscan/internal/model"
	"github.com/Veraticus/deedscan/internal/storage"
)

// TestDB is a migrated SQLite store scoped to a single test.
type TestDB struct {
	Storage *storage.SQLStorage
	t       *testing.T
	Path    string
}

// SetupTestDB creates a new in-memory test database. It handles
// migrations and cleanup.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	db.Seed(testutil.SampleTransactions()...)
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return setup(t, ":memory:")
}

// SetupFileDB creates a test database at path, for tests that reopen the
// store through another code path such as a CLI command.
func SetupFileDB(t *testing.T, path string) *TestDB {
	t.Helper()
	return setup(t, path)
}

func setup(t *testing.T, path string) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{
		Storage: store,
		t:       t,
		Path:    path,
	}
}

// Seed inserts txns and returns them with their assigned IDs.
func (db *TestDB) Seed(txns ...model.Transaction) []model.Transaction {
	db.t.Helper()

	created, err := db.Storage.CreateTransactions(context.Background(), txns)
	if err != nil {
		db.t.Fatalf("failed to seed transactions: %v", err)
	}
	return created
}

// Count returns the number of stored transactions.
func (db *TestDB) Count() int {
	db.t.Helper()

	n, err := db.Storage.CountTransactions(context.Background())
	if err != nil {
		db.t.Fatalf("failed to count transactions: %v", err)
	}
	return n
}

// SampleTransactions returns two deeds from the same certificate.
func SampleTransactions() []model.Transaction {
	return []model.Transaction{
		model.NewTransaction(model.ExtractedRecord{
			DocumentNumber: "1234/2023", SurveyNumber: "329/1A", BuyerName: "Rajesh Kumar", SellerName: "Lakshmi",
			District: "Chennai", TransactionValue: "2500000",
		}, "ec.pdf"),
		model.NewTransaction(model.ExtractedRecord{
			DocumentNumber: "5678/2023", SurveyNumber: "45/2", BuyerName: "Mohan", SellerName: "Priya",
			District: "Chennai", TransactionValue: "1500000",
		}, "ec.pdf"),
	}
}
