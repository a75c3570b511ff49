package cache

import (
	"context"
	"galmirror/crawler"
	"galmirror/oops"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type RankingSnapshot struct {
	UpdatedAt time.Time
	Items     []crawler.RankingItem
}

func (s *RankingSnapshot) IsZero() bool {
	return s.UpdatedAt.IsZero()
}

type RankingFetcher func(ctx context.Context, logger crawler.Logger) ([]crawler.RankingItem, error)

type rankingFile struct {
	UpdatedAt float64               `json:"updatedAt"`
	Items     []crawler.RankingItem `json:"items"`
}

// RankingCache keeps one ranking snapshot in memory and mirrors it to a JSON file so that a
// restart doesn't need the upstream to be up
type RankingCache struct {
	mutex    sync.Mutex
	snapshot RankingSnapshot
	path     string
	ttl      time.Duration
	fetch    RankingFetcher
	group    singleflight.Group
	now      func() time.Time
}

func NewRankingCache(path string, ttl time.Duration, fetch RankingFetcher) *RankingCache {
	return &RankingCache{
		path:  path,
		ttl:   ttl,
		fetch: fetch,
		now:   time.Now,
	}
}

// SetClock replaces the time source, for tests
func (c *RankingCache) SetClock(now func() time.Time) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.now = now
}

// Get returns a fresh snapshot, refreshing it from the upstream when it is older than the TTL.
// When the refresh fails the stale snapshot is served. The error is only returned when no snapshot
// has ever existed.
func (c *RankingCache) Get(ctx context.Context, logger crawler.Logger) (RankingSnapshot, error) {
	c.mutex.Lock()
	if c.snapshot.IsZero() {
		if fromFile, ok := readRankingFile(c.path, logger); ok {
			c.snapshot = fromFile
		}
	}
	current := c.snapshot
	now := c.now()
	c.mutex.Unlock()

	if !current.IsZero() && len(current.Items) > 0 && now.Sub(current.UpdatedAt) < c.ttl {
		rankingAgeSeconds.Set(now.Sub(current.UpdatedAt).Seconds())
		return current, nil
	}

	refreshed, err := c.Refresh(ctx, logger)
	if err != nil {
		if !current.IsZero() && len(current.Items) > 0 {
			logger.Warn("Serving stale ranking from %s: %v", current.UpdatedAt.Format(time.RFC3339), err)
			rankingRefreshTotal.WithLabelValues("stale").Inc()
			rankingAgeSeconds.Set(now.Sub(current.UpdatedAt).Seconds())
			return current, nil
		}
		return RankingSnapshot{}, err
	}
	rankingAgeSeconds.Set(0)
	return refreshed, nil
}

// Refresh fetches a new snapshot unconditionally. Concurrent refreshes share one fetch.
func (c *RankingCache) Refresh(ctx context.Context, logger crawler.Logger) (RankingSnapshot, error) {
	result, err, _ := c.group.Do("ranking", func() (any, error) {
		items, err := c.fetch(ctx, logger)
		if err != nil {
			rankingRefreshTotal.WithLabelValues("failure").Inc()
			return nil, oops.Wrap(err)
		}
		if len(items) == 0 {
			rankingRefreshTotal.WithLabelValues("failure").Inc()
			return nil, oops.New("ranking came back empty")
		}

		c.mutex.Lock()
		defer c.mutex.Unlock()
		snapshot := RankingSnapshot{
			UpdatedAt: c.now().Truncate(time.Microsecond),
			Items:     items,
		}
		c.snapshot = snapshot
		if err := writeRankingFile(c.path, snapshot); err != nil {
			logger.Warn("Couldn't persist ranking to %s: %v", c.path, err)
		}
		rankingRefreshTotal.WithLabelValues("success").Inc()
		return snapshot, nil
	})
	if err != nil {
		return RankingSnapshot{}, err
	}
	return result.(RankingSnapshot), nil
}

// StartBackgroundRefresh refreshes the snapshot every interval until ctx is done
func (c *RankingCache) StartBackgroundRefresh(ctx context.Context, interval time.Duration, logger crawler.Logger) {
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Refresh(ctx, logger); err != nil {
					logger.Warn("Background ranking refresh failed: %v", err)
				}
			}
		}
	}()
}

func readRankingFile(path string, logger crawler.Logger) (RankingSnapshot, bool) {
	if path == "" {
		return RankingSnapshot{}, false
	}
	content, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return RankingSnapshot{}, false
	} else if err != nil {
		logger.Warn("Couldn't read ranking file %s: %v", path, err)
		return RankingSnapshot{}, false
	}

	var file rankingFile
	if err := json.Unmarshal(content, &file); err != nil {
		logger.Warn("Ignoring malformed ranking file %s: %v", path, err)
		return RankingSnapshot{}, false
	}
	if file.UpdatedAt <= 0 || file.Items == nil {
		logger.Warn("Ignoring incomplete ranking file %s", path)
		return RankingSnapshot{}, false
	}
	for _, item := range file.Items {
		if item.Rank <= 0 || item.BoardId == "" {
			logger.Warn("Ignoring ranking file %s with a malformed item", path)
			return RankingSnapshot{}, false
		}
	}

	return RankingSnapshot{
		UpdatedAt: time.UnixMicro(int64(math.Round(file.UpdatedAt * 1e6))),
		Items:     file.Items,
	}, true
}

func writeRankingFile(path string, snapshot RankingSnapshot) error {
	if path == "" {
		return nil
	}
	content, err := json.Marshal(rankingFile{
		UpdatedAt: float64(snapshot.UpdatedAt.UnixMicro()) / 1e6,
		Items:     snapshot.Items,
	})
	if err != nil {
		return oops.Wrap(err)
	}

	tempPath := filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tempPath, content, 0o644); err != nil {
		return oops.Wrapf(err, "write %s", tempPath)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return oops.Wrapf(err, "rename to %s", path)
	}
	return nil
}
