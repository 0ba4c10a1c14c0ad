package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-speechcoach-be/internal/entity"
)

func newSession(userId string, startedAt time.Time) *entity.Session {
	return &entity.Session{
		Id:        uuid.New(),
		UserId:    userId,
		Mode:      "pitch_perfect",
		VoiceName: "Puck",
		StartedAt: startedAt,
		Transcript: []entity.TranscriptEntry{
			{Role: entity.RoleAI, Text: "Go ahead.", Timestamp: 1},
			{Role: entity.RoleUser, Text: "We sell rockets.", Timestamp: 4},
		},
		Report: &entity.SessionReport{OverallScore: 7},
	}
}

func TestSaveAndGet(t *testing.T) {
	repo := NewSessionRepository()
	s := newSession("u-1", time.Now())

	require.NoError(t, repo.Save(context.Background(), s))

	got, err := repo.Get(context.Background(), s.Id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, s.Id, got.Id)
	assert.Equal(t, "u-1", got.UserId)
}

func TestGetUnknownIdReturnsNilNil(t *testing.T) {
	repo := NewSessionRepository()

	got, err := repo.Get(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveIsIdempotentUpsert(t *testing.T) {
	repo := NewSessionRepository()
	s := newSession("u-1", time.Now())
	require.NoError(t, repo.Save(context.Background(), s))

	s.DurationSeconds = 120
	require.NoError(t, repo.Save(context.Background(), s))

	list, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 120, list[0].DurationSeconds)
}

func TestListByUserMostRecentFirst(t *testing.T) {
	repo := NewSessionRepository()
	base := time.Now()

	oldest := newSession("u-1", base.Add(-2*time.Hour))
	middle := newSession("u-1", base.Add(-time.Hour))
	newest := newSession("u-1", base)
	other := newSession("u-2", base)

	for _, s := range []*entity.Session{oldest, newest, middle, other} {
		require.NoError(t, repo.Save(context.Background(), s))
	}

	list, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, newest.Id, list[0].Id)
	assert.Equal(t, middle.Id, list[1].Id)
	assert.Equal(t, oldest.Id, list[2].Id)

	assert.Equal(t, 7, list[0].OverallScore)
	assert.Equal(t, "We sell rockets.", list[0].PreviewText)
}

func TestConcurrentSaves(t *testing.T) {
	repo := NewSessionRepository()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = repo.Save(context.Background(), newSession("u-1", time.Now()))
		}()
	}
	wg.Wait()

	list, err := repo.ListByUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Len(t, list, 50)
}
