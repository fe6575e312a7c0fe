package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/deedscan/internal/common"
	"github.com/Veraticus/deedscan/internal/model"
)

func TestCreateTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	fixed := time.Date(2024, 3, 2, 9, 30, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	saved, err := store.CreateTransactions(ctx, createTestTransactions())
	require.NoError(t, err)
	require.Len(t, saved, 3)

	seen := map[int64]bool{}
	for _, txn := range saved {
		assert.Positive(t, txn.ID)
		assert.False(t, seen[txn.ID], "duplicate id %d", txn.ID)
		seen[txn.ID] = true
		assert.True(t, fixed.Equal(txn.CreatedAt))
	}

	got, err := store.GetTransactionByID(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, saved[0].ExtractedRecord, got.ExtractedRecord)
	assert.Equal(t, "deed.pdf", got.PDFFileName)
	assert.WithinDuration(t, saved[0].ExtractedAt, got.ExtractedAt, time.Second)
	assert.WithinDuration(t, fixed, got.CreatedAt, time.Second)

	count, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestCreateTransactions_Validation(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateTransactions(ctx, nil)
	assert.ErrorIs(t, err, ErrEmptySlice)

	txns := createTestTransactions()
	txns[1].DocumentNumber = " "
	_, err = store.CreateTransactions(ctx, txns)
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	// Nothing from the rejected batch was written.
	count, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestGetTransactions_Filter(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateTransactions(ctx, createTestTransactions())
	require.NoError(t, err)

	tests := []struct {
		name   string
		filter model.TransactionFilter
		want   []string
	}{
		{
			name:   "empty filter returns all newest first",
			filter: model.TransactionFilter{},
			want:   []string{"9999/2022", "5678/2023", "1234/2023"},
		},
		{
			name:   "buyer substring is case insensitive",
			filter: model.TransactionFilter{BuyerName: "rajesh"},
			want:   []string{"1234/2023"},
		},
		{
			name:   "seller substring",
			filter: model.TransactionFilter{SellerName: "KUMAR"},
			want:   []string{"5678/2023"},
		},
		{
			name:   "house number is exact",
			filter: model.TransactionFilter{HouseNumber: "7"},
			want:   nil,
		},
		{
			name:   "survey number exact",
			filter: model.TransactionFilter{SurveyNumber: "45/2"},
			want:   []string{"5678/2023"},
		},
		{
			name:   "combined filters",
			filter: model.TransactionFilter{BuyerName: "a", DocumentNumber: "1234/2023"},
			want:   []string{"1234/2023"},
		},
		{
			name:   "percent is literal",
			filter: model.TransactionFilter{BuyerName: "50%"},
			want:   []string{"9999/2022"},
		},
		{
			name:   "underscore is literal",
			filter: model.TransactionFilter{BuyerName: "_"},
			want:   nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.GetTransactions(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, documentNumbers(got))
		})
	}
}

func TestSearchTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateTransactions(ctx, createTestTransactions())
	require.NoError(t, err)

	got, err := store.SearchTransactions(ctx, "rajesh")
	require.NoError(t, err)
	assert.Equal(t, []string{"5678/2023", "1234/2023"}, documentNumbers(got))

	got, err = store.SearchTransactions(ctx, "100_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"9999/2022"}, documentNumbers(got))

	got, err = store.SearchTransactions(ctx, "7b")
	require.NoError(t, err)
	assert.Equal(t, []string{"5678/2023"}, documentNumbers(got))

	got, err = store.SearchTransactions(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = store.SearchTransactions(ctx, " ")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestGetTransactionByID_NotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetTransactionByID(context.Background(), 42)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestDeleteAllTransactions(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	_, err := store.CreateTransactions(ctx, createTestTransactions())
	require.NoError(t, err)

	deleted, err := store.DeleteAllTransactions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), deleted)

	count, err := store.CountTransactions(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func documentNumbers(txns []model.Transaction) []string {
	if len(txns) == 0 {
		return nil
	}
	out := make([]string, len(txns))
	for i, txn := range txns {
		out[i] = txn.DocumentNumber
	}
	return out
}
