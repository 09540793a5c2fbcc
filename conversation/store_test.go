package conversation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/A-calculus/personalisedU/internal/timeutil"
)

func newTestStore(t *testing.T) (*Store, *timeutil.FakeClock) {
	t.Helper()
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewStore(func(o *Options) {
		o.Clock = clock
	})
	return store, clock
}

func TestStore_GetCreatesEmptyContext(t *testing.T) {
	store, clock := newTestStore(t)

	c := store.Get("chat-1")

	assert.Empty(t, c.Messages)
	assert.Nil(t, c.UserData)
	assert.Equal(t, 0, c.Metadata.MessageCount)
	assert.Equal(t, clock.Now(), c.Metadata.StartTime)
	assert.Equal(t, 1, store.Len())
}

func TestStore_AppendMessageOrdering(t *testing.T) {
	store, _ := newTestStore(t)

	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "M1"})
	store.AppendMessage("chat-1", Message{Role: RoleAssistant, Content: "M2"})
	c := store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "M3"})

	require.Len(t, c.Messages, 3)
	assert.Equal(t, "M1", c.Messages[0].Content)
	assert.Equal(t, "M2", c.Messages[1].Content)
	assert.Equal(t, "M3", c.Messages[2].Content)
	for _, m := range c.Messages {
		assert.False(t, m.Timestamp.IsZero())
	}
}

func TestStore_RecentTruncatesOldestFirst(t *testing.T) {
	store, _ := newTestStore(t)

	for i := 1; i <= 25; i++ {
		store.AppendMessage("chat-1", Message{Role: RoleUser, Content: fmt.Sprintf("m%d", i)})
	}

	recent := store.Get("chat-1").Recent(20)
	require.Len(t, recent, 20)
	assert.Equal(t, "m6", recent[0].Content)
	assert.Equal(t, "m25", recent[19].Content)
}

func TestStore_RecentShortTranscript(t *testing.T) {
	store, _ := newTestStore(t)
	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "only"})

	recent := store.Get("chat-1").Recent(20)
	require.Len(t, recent, 1)
	assert.Equal(t, "only", recent[0].Content)
	assert.Nil(t, store.Get("chat-2").Recent(20))
}

func TestStore_MessageCountCountsMutations(t *testing.T) {
	store, _ := newTestStore(t)

	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "hi"})
	// A bare field update also counts as a mutation.
	c := store.Update("chat-1", Delta{UserData: map[string]any{"basic_info": "x"}})

	assert.Equal(t, 2, c.Metadata.MessageCount)
	assert.Len(t, c.Messages, 1)
}

func TestStore_UpdateShallowReplacement(t *testing.T) {
	store, _ := newTestStore(t)

	store.Update("chat-1", Delta{UserData: map[string]any{"a": "1"}})
	c := store.Update("chat-1", Delta{UserData: map[string]any{"b": "2"}})

	// Shallow replacement, not a deep merge.
	ud, ok := c.UserData.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]any{"b": "2"}, ud)
}

func TestStore_ClearThenGetRecreatesEmpty(t *testing.T) {
	store, clock := newTestStore(t)

	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "hi"})
	clock.Advance(time.Minute)
	store.Clear("chat-1")

	c := store.Get("chat-1")
	fresh := store.Get("never-seen")

	assert.Empty(t, c.Messages)
	assert.Equal(t, 0, c.Metadata.MessageCount)
	assert.Equal(t, fresh.Metadata.MessageCount, c.Metadata.MessageCount)
	assert.Equal(t, c.Metadata.StartTime, fresh.Metadata.StartTime)
}

func TestStore_SweepEvictsOnlyExpired(t *testing.T) {
	store, clock := newTestStore(t)

	store.AppendMessage("old", Message{Role: RoleUser, Content: "hi"})
	clock.Advance(30 * time.Minute)
	store.AppendMessage("fresh", Message{Role: RoleUser, Content: "hi"})
	clock.Advance(45 * time.Minute)

	evicted := store.SweepExpired(clock.Now(), time.Hour)

	assert.Equal(t, 1, evicted)
	assert.Equal(t, 1, store.Len())
	// The expired key comes back empty on next access.
	assert.Equal(t, 0, store.Get("old").Metadata.MessageCount)
}

func TestStore_TouchRefreshesExpiry(t *testing.T) {
	store, clock := newTestStore(t)

	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "hi"})
	clock.Advance(50 * time.Minute)
	store.Update("chat-1", Delta{UserData: "plan"})
	clock.Advance(50 * time.Minute)

	evicted := store.SweepExpired(clock.Now(), time.Hour)

	assert.Equal(t, 0, evicted)
	assert.Equal(t, 1, store.Len())
}

func TestStore_SnapshotsAreIsolated(t *testing.T) {
	store, _ := newTestStore(t)

	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "hi"})
	snapshot := store.Get("chat-1")
	snapshot.Messages[0].Content = "tampered"
	snapshot.Messages = append(snapshot.Messages, Message{Role: RoleUser, Content: "extra"})

	c := store.Get("chat-1")
	require.Len(t, c.Messages, 1)
	assert.Equal(t, "hi", c.Messages[0].Content)
}

func TestStore_StartStopLifecycle(t *testing.T) {
	clock := timeutil.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := NewStore(func(o *Options) {
		o.TTL = time.Hour
		o.SweepInterval = time.Hour
		o.Clock = clock
	})

	store.Start()
	store.Start() // second Start is a no-op
	store.AppendMessage("chat-1", Message{Role: RoleUser, Content: "hi"})

	// Advancing past the interval fires the sweeper without wall-clock waits.
	clock.Advance(2 * time.Hour)
	assert.Eventually(t, func() bool { return store.Len() == 0 }, time.Second, time.Millisecond)

	store.Stop()
	store.Stop() // second Stop is a no-op

	store.AppendMessage("chat-2", Message{Role: RoleUser, Content: "hi"})
	clock.Advance(2 * time.Hour)
	assert.Equal(t, 1, store.Len(), "a stopped sweeper must not evict")
}
