package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gwi.com/aiclone/internal/common"
)

func newTestSQLite(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

func TestSQLiteStore_Users(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	u := &User{Username: "alice", Email: "alice@gmail.com", PasswordHash: "h", Role: RoleUser, IsActive: true}
	require.NoError(t, s.CreateUser(ctx, u))
	require.NotEmpty(t, u.ID)

	got, err := s.GetUserByUsername(ctx, "alice")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, u.ID, got.ID)
	assert.True(t, got.IsActive)
	assert.Nil(t, got.ResetTokenCreatedAt)

	byEmail, err := s.GetUserByEmail(ctx, "alice@gmail.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)

	missing, err := s.GetUserByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	dup := &User{Username: "alice", Email: "other@gmail.com", PasswordHash: "h", Role: RoleUser}
	err = s.CreateUser(ctx, dup)
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	now := time.Now().UTC()
	got.ResetToken = "tok"
	got.ResetTokenCreatedAt = &now
	require.NoError(t, s.UpdateUser(ctx, got))

	reloaded, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", reloaded.ResetToken)
	require.NotNil(t, reloaded.ResetTokenCreatedAt)

	users, err := s.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)

	require.NoError(t, s.DeleteUser(ctx, u.ID))
	require.ErrorIs(t, s.DeleteUser(ctx, u.ID), common.ErrNotFound)
	require.ErrorIs(t, s.UpdateUser(ctx, &User{ID: "ghost", Role: RoleUser}), common.ErrNotFound)
}

func TestSQLiteStore_Clones(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	c := &Clone{
		Name:          "Bob",
		Personality:   map[string]any{"humor": "dry"},
		SpeakingStyle: "casual",
		CreatedBy:     "superadmin",
	}
	require.NoError(t, s.CreateClone(ctx, c))

	err := s.CreateClone(ctx, &Clone{Name: "Bob", CreatedBy: "superadmin"})
	require.ErrorIs(t, err, common.ErrAlreadyExists)

	count, err := s.AddCloneMemory(ctx, c.ID, Memory{Timestamp: time.Now().UTC(), UserMessage: "hi", CloneResponse: "yo"})
	require.NoError(t, err)
	assert.Equal(t, 1, count)
	count, err = s.AddCloneMemory(ctx, c.ID, Memory{Timestamp: time.Now().UTC(), UserMessage: "again", CloneResponse: "sup"})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	_, err = s.AddCloneMemory(ctx, "ghost", Memory{})
	require.ErrorIs(t, err, common.ErrNotFound)

	got, err := s.GetCloneByName(ctx, "Bob")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "dry", got.Personality["humor"])
	require.Len(t, got.Memories, 2)
	assert.Equal(t, "hi", got.Memories[0].UserMessage)

	got.SpeakingStyle = "formal"
	require.NoError(t, s.UpdateClone(ctx, got))

	list, err := s.ListClones(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "formal", list[0].SpeakingStyle)
	assert.Len(t, list[0].Memories, 2)

	require.NoError(t, s.DeleteClone(ctx, c.ID))
	require.ErrorIs(t, s.DeleteClone(ctx, c.ID), common.ErrNotFound)

	gone, err := s.GetClone(ctx, c.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestSQLiteStore_History(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, name := range []string{"ann", "ben", "ann"} {
		e := &HistoryEntry{
			UserMessage: "q" + string(rune('1'+i)),
			AIResponse:  "a",
			UserName:    name,
			Timestamp:   base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.AppendHistory(ctx, e))
	}

	recent, err := s.RecentHistory(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "q3", recent[0].UserMessage)
	assert.Equal(t, "q2", recent[1].UserMessage)

	anns, err := s.HistoryByUser(ctx, "ann", 10)
	require.NoError(t, err)
	require.Len(t, anns, 2)
	assert.Equal(t, "q3", anns[0].UserMessage)

	n, err := s.ClearHistory(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)

	recent, err = s.RecentHistory(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestSQLiteStore_Learned(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	old := time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.UpsertLearned(ctx, LearnedQA{Question: "q1", Answer: "a1", Confidence: 0.9, CreatedAt: old}))
	require.NoError(t, s.UpsertLearned(ctx, LearnedQA{Question: "q2", Answer: "a2", Confidence: 0.9}))
	require.NoError(t, s.UpsertLearned(ctx, LearnedQA{Question: "q1", Answer: "a1b", Confidence: 0.5, CreatedAt: old}))

	all, err := s.ListLearned(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "q2", all[0].Question)
	assert.Equal(t, "a1b", all[1].Answer)

	limited, err := s.ListLearned(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	deleted, err := s.DeleteLearned(ctx, "q1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.DeleteLearned(ctx, "q1")
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestSQLiteStore_Profile(t *testing.T) {
	ctx := context.Background()
	s := newTestSQLite(t)

	p, err := s.GetProfile(ctx)
	require.NoError(t, err)
	assert.Nil(t, p)

	def := DefaultProfile()
	require.NoError(t, s.SaveProfile(ctx, &def))

	def.Name = "Clone Two"
	require.NoError(t, s.SaveProfile(ctx, &def))

	p, err = s.GetProfile(ctx)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Clone Two", p.Name)
	assert.Equal(t, "🤖", p.Avatar)
}
