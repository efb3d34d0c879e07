package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPerCalendarSource_Streams(t *testing.T) {
	repo := newFakeRepository(map[string]string{})
	repo.add("personal", timedEvent("A", "Office A", at(15, 10, 0), time.Hour))
	repo.add("work", timedEvent("B", "Cafe B", at(15, 9, 0), time.Hour))

	streams, err := NewPerCalendarSource(repo).Streams(context.Background(), []string{"personal", "work"}, at(15, 0, 0), at(16, 0, 0))
	require.NoError(t, err)

	require.Len(t, streams, 2)
	assert.Equal(t, "personal", streams[0].CalendarID)
	assert.Equal(t, "A", streams[0].Events[0].ID)
	assert.Equal(t, "work", streams[1].CalendarID)
	assert.Equal(t, "B", streams[1].Events[0].ID)
}

func TestPerCalendarSource_Error(t *testing.T) {
	repo := newFakeRepository(map[string]string{})
	repo.listErr = errors.New("boom")

	_, err := NewPerCalendarSource(repo).Streams(context.Background(), []string{"personal"}, at(15, 0, 0), at(16, 0, 0))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "カレンダー personal のイベント取得に失敗しました")
}

func TestMergedSource_Streams(t *testing.T) {
	repo := newFakeRepository(map[string]string{})
	shared := timedEvent("shared", "Board Room", at(15, 11, 0), time.Hour)
	repo.add("personal", timedEvent("A", "Office A", at(15, 10, 0), time.Hour), shared)
	repo.add("work", timedEvent("B", "Cafe B", at(15, 9, 0), time.Hour), shared)

	streams, err := NewMergedSource(repo).Streams(context.Background(), []string{"personal", "work"}, at(15, 0, 0), at(16, 0, 0))
	require.NoError(t, err)

	require.Len(t, streams, 1)
	assert.Equal(t, MergedStreamID, streams[0].CalendarID)

	var ids []string
	for _, event := range streams[0].Events {
		ids = append(ids, event.ID)
	}
	assert.Equal(t, []string{"B", "A", "shared"}, ids)
}
