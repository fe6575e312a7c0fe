package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupTestDB_Seed(t *testing.T) {
	db := SetupTestDB(t)
	assert.Zero(t, db.Count())

	created := db.Seed(SampleTransactions()...)
	require.Len(t, created, 2)
	assert.NotZero(t, created[0].ID)
	assert.Equal(t, 2, db.Count())
}

func TestSetupFileDB(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deeds.db")
	db := SetupFileDB(t, path)
	db.Seed(SampleTransactions()[0])

	assert.Equal(t, path, db.Path)
	got, err := db.Storage.SearchTransactions(context.Background(), "Rajesh")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "1234/2023", got[0].DocumentNumber)
}
