package syncer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTransactionMappingRoundTrip(t *testing.T) {
	doc := TransactionDoc{
		RemoteID:   "remote-1",
		Name:       "groceries",
		Amount:     42.50,
		Type:       TypeExpense,
		CategoryID: "cat-food",
		Date:       time.Date(2025, time.March, 8, 14, 30, 0, 0, time.UTC),
		Note:       "weekly shop",
	}

	row := TransactionFromDoc(doc, "owner-1")
	require.Equal(t, int64(0), row.LocalID)
	require.Equal(t, "owner-1", row.OwnerID)
	require.True(t, row.Synced)

	require.Equal(t, doc, DocFromTransaction(row))
}

func TestCategoryMappingRoundTrip(t *testing.T) {
	doc := CategoryDoc{
		RemoteID: "remote-2",
		Name:     "food",
		Icon:     "cart",
		Color:    "#00FF00",
	}

	row := CategoryFromDoc(doc, "owner-1")
	require.Equal(t, "owner-1", row.OwnerID)
	require.True(t, row.Synced)

	require.Equal(t, doc, DocFromCategory(row))
}

func TestLimitMappingRoundTrip(t *testing.T) {
	doc := LimitDoc{
		RemoteID:   "remote-3",
		CategoryID: "cat-food",
		Amount:     300,
		Period:     PeriodMonth,
	}

	row := LimitFromDoc(doc, "owner-1")
	require.Equal(t, "owner-1", row.OwnerID)
	require.True(t, row.Synced)

	require.Equal(t, doc, DocFromLimit(row))
}
