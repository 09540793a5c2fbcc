package profile

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Interface compliance (compile-time assertion)
var _ Store = (*InMemoryStore)(nil)

func TestInMemoryStore_GetMissing(t *testing.T) {
	store := NewInMemoryStore()

	_, err := store.Get(context.Background(), "chat-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestInMemoryStore_UpsertInsertThenUpdate(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	inserted, err := store.Upsert(ctx, "chat-1", map[string]string{
		FieldBasicInfo:      "computer science student",
		FieldUserObjectives: "pass the algorithms exam",
	})
	require.NoError(t, err)
	assert.Equal(t, "computer science student", inserted.BasicInfo)

	// Second upsert only touches one field; the rest survives.
	updated, err := store.Upsert(ctx, "chat-1", map[string]string{
		FieldPreviousPlan: "week 1: sorting",
	})
	require.NoError(t, err)
	assert.Equal(t, "computer science student", updated.BasicInfo)
	assert.Equal(t, "pass the algorithms exam", updated.UserObjectives)
	assert.Equal(t, "week 1: sorting", updated.PreviousPlan)

	got, err := store.Get(ctx, "chat-1")
	require.NoError(t, err)
	assert.Equal(t, updated, got)
}

func TestRecord_MapRoundTrip(t *testing.T) {
	r := Record{
		BasicInfo:    "student",
		PreviousPlan: "N/A",
	}

	m := r.ToMap()
	assert.Len(t, m, len(FieldNames))
	assert.Equal(t, r, FromMap(m))
}

func TestRecord_ApplyIgnoresUnknownFields(t *testing.T) {
	var r Record
	r.Apply(map[string]string{"chat_id": "123", FieldBasicInfo: "student"})

	assert.Equal(t, "student", r.BasicInfo)
}
