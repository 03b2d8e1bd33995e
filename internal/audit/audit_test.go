package audit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := &Cursor{OccurredAt: time.Date(2025, time.March, 1, 9, 0, 0, 123, time.UTC), EventID: "evt|7"}
	decoded, err := DecodeCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.Equal(t, c, decoded)

	none, err := DecodeCursor("")
	require.NoError(t, err)
	require.Nil(t, none)

	_, err = DecodeCursor("%%%")
	require.ErrorIs(t, err, ErrInvalidCursor)
}

func TestInMemoryRepositoryPagesNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	base := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		require.NoError(t, repo.Record(ctx, Entry{
			EventID:    fmt.Sprintf("evt-%d", i),
			UserID:     "5",
			OccurredAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, repo.Record(ctx, Entry{EventID: "other", UserID: "7", OccurredAt: base}))
	require.NoError(t, repo.Record(ctx, Entry{EventID: "evt-4", UserID: "5", OccurredAt: base}), "duplicates are ignored")

	page, next, err := repo.ListByUser(ctx, "5", nil, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"evt-4", "evt-3"}, eventIDs(page))
	require.NotNil(t, next)

	page, next, err = repo.ListByUser(ctx, "5", next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"evt-2", "evt-1"}, eventIDs(page))

	page, next, err = repo.ListByUser(ctx, "5", next, 2)
	require.NoError(t, err)
	require.Equal(t, []string{"evt-0"}, eventIDs(page))
	require.Nil(t, next)
}

func eventIDs(entries []Entry) []string {
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.EventID)
	}
	return ids
}
