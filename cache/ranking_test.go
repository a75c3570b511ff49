package cache

import (
	"context"
	"errors"
	"galmirror/crawler"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeRankingSource struct {
	mutex sync.Mutex
	items []crawler.RankingItem
	err   error
	calls int
}

func (s *fakeRankingSource) Fetch(ctx context.Context, logger crawler.Logger) ([]crawler.RankingItem, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.items, nil
}

func (s *fakeRankingSource) Calls() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.calls
}

var testRankingItems = []crawler.RankingItem{
	{Rank: 1, Name: "첫째 갤러리", BoardId: "first"},
	{Rank: 2, Name: "둘째 갤러리", BoardId: "second"},
}

func TestRankingCacheRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ranking.json")
	clock := newFakeClock()
	clock.current = time.Date(2024, 6, 10, 9, 0, 0, 123456789, time.UTC)
	source := &fakeRankingSource{items: testRankingItems}

	rankings := NewRankingCache(path, time.Hour, source.Fetch)
	rankings.SetClock(clock.Now)
	snapshot, err := rankings.Get(context.Background(), crawler.NewDummyLogger())
	require.NoError(t, err)
	require.Equal(t, testRankingItems, snapshot.Items)
	require.Equal(t, 1, source.Calls())

	// A new process reads the file instead of the upstream
	reloadedSource := &fakeRankingSource{err: errors.New("should not be called")}
	reloaded := NewRankingCache(path, time.Hour, reloadedSource.Fetch)
	reloaded.SetClock(clock.Now)
	reloadedSnapshot, err := reloaded.Get(context.Background(), crawler.NewDummyLogger())
	require.NoError(t, err)
	require.Equal(t, 0, reloadedSource.Calls())
	require.Equal(t, snapshot.Items, reloadedSnapshot.Items)
	require.True(t, snapshot.UpdatedAt.Equal(reloadedSnapshot.UpdatedAt))
	require.Equal(t, int64(123456), int64(reloadedSnapshot.UpdatedAt.Nanosecond()/1000))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are renamed away")
}

func TestRankingCacheTtl(t *testing.T) {
	clock := newFakeClock()
	source := &fakeRankingSource{items: testRankingItems}
	rankings := NewRankingCache("", time.Hour, source.Fetch)
	rankings.SetClock(clock.Now)
	ctx := context.Background()

	_, err := rankings.Get(ctx, crawler.NewDummyLogger())
	require.NoError(t, err)
	clock.Advance(59 * time.Minute)
	_, err = rankings.Get(ctx, crawler.NewDummyLogger())
	require.NoError(t, err)
	require.Equal(t, 1, source.Calls())

	clock.Advance(time.Minute)
	snapshot, err := rankings.Get(ctx, crawler.NewDummyLogger())
	require.NoError(t, err)
	require.Equal(t, 2, source.Calls())
	require.Equal(t, clock.Now(), snapshot.UpdatedAt)
}

func TestRankingCacheServesStale(t *testing.T) {
	clock := newFakeClock()
	source := &fakeRankingSource{items: testRankingItems}
	rankings := NewRankingCache(filepath.Join(t.TempDir(), "ranking.json"), time.Hour, source.Fetch)
	rankings.SetClock(clock.Now)
	ctx := context.Background()

	first, err := rankings.Get(ctx, crawler.NewDummyLogger())
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	source.err = errors.New("upstream down")
	logger := crawler.NewDummyLogger()
	stale, err := rankings.Get(ctx, logger)
	require.NoError(t, err)
	require.Equal(t, first.UpdatedAt, stale.UpdatedAt)
	require.Equal(t, testRankingItems, stale.Items)
	require.Equal(t, 1, logger.WarnCount())
}

func TestRankingCacheFailsWithoutSnapshot(t *testing.T) {
	source := &fakeRankingSource{err: errors.New("upstream down")}
	rankings := NewRankingCache(filepath.Join(t.TempDir(), "ranking.json"), time.Hour, source.Fetch)
	_, err := rankings.Get(context.Background(), crawler.NewDummyLogger())
	require.Error(t, err)

	source.err = nil
	_, err = rankings.Get(context.Background(), crawler.NewDummyLogger())
	require.Error(t, err, "an empty ranking is not a snapshot")
}

func TestRankingCacheIgnoresInvalidFiles(t *testing.T) {
	type Test struct {
		description string
		content     string
	}

	tests := []Test{
		{"not json", `{"updatedAt": `},
		{"zero timestamp", `{"updatedAt": 0, "items": [{"rank": 1, "name": "a", "boardId": "a"}]}`},
		{"items missing", `{"updatedAt": 1718000000.5}`},
		{"items not a list", `{"updatedAt": 1718000000.5, "items": {"rank": 1}}`},
		{"item without board", `{"updatedAt": 1718000000.5, "items": [{"rank": 1, "name": "a"}]}`},
	}

	for _, tc := range tests {
		path := filepath.Join(t.TempDir(), "ranking.json")
		require.NoError(t, os.WriteFile(path, []byte(tc.content), 0o644), tc.description)
		source := &fakeRankingSource{items: testRankingItems}
		rankings := NewRankingCache(path, 24*365*time.Hour, source.Fetch)

		snapshot, err := rankings.Get(context.Background(), crawler.NewDummyLogger())
		require.NoError(t, err, tc.description)
		require.Equal(t, 1, source.Calls(), tc.description)
		require.Equal(t, testRankingItems, snapshot.Items, tc.description)
	}
}

func TestRankingCacheCollapsesConcurrentRefreshes(t *testing.T) {
	release := make(chan struct{})
	var calls int
	var mutex sync.Mutex
	fetch := func(ctx context.Context, logger crawler.Logger) ([]crawler.RankingItem, error) {
		mutex.Lock()
		calls++
		mutex.Unlock()
		<-release
		return testRankingItems, nil
	}
	rankings := NewRankingCache("", time.Hour, fetch)

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := rankings.Get(context.Background(), crawler.NewDummyLogger())
			require.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	mutex.Lock()
	defer mutex.Unlock()
	require.LessOrEqual(t, calls, 5)
	require.GreaterOrEqual(t, calls, 1)
}
