package mirror

import (
	"context"
	"galmirror/cache"
	"galmirror/config"
	"galmirror/crawler"
	"time"
)

const DefaultRelatedLimit = 12
const MaxRelatedLimit = 30

const (
	MissingDocumentTitle  = "삭제되거나 찾을 수 없는 게시글입니다."
	MissingDocumentAuthor = "-"
	MissingDocumentHtml   = "게시글 데이터를 가져오는 데 실패했습니다."
)

type Settings struct {
	IndexLimit       int
	MaxScanPages     int
	ItemsPerPage     int
	SeekSteps        int
	TailPages        int
	MaxCommentPages  int
	MediaCacheMaxAge time.Duration
}

type authorInfo struct {
	Author     string
	AuthorCode string
}

// Service is the read side of the mirror. It owns the caches and is safe for concurrent use.
type Service struct {
	client      crawler.HttpClient
	settings    Settings
	latestIds   *cache.Store[cache.BoardKey, int64]
	related     *cache.Store[cache.RelatedKey, []crawler.PostSummary]
	authorCodes *cache.Store[cache.DocumentKey, authorInfo]
	rankings    *cache.RankingCache
}

func NewService(client crawler.HttpClient, cfg config.Config) *Service {
	service := &Service{
		client: client,
		settings: Settings{
			IndexLimit:       cfg.IndexLimit,
			MaxScanPages:     cfg.MaxScanPages,
			ItemsPerPage:     cfg.Related.ItemsPerPage,
			SeekSteps:        cfg.Related.SeekSteps,
			TailPages:        cfg.Related.TailPages,
			MaxCommentPages:  cfg.Http.MaxCommentPages,
			MediaCacheMaxAge: cfg.Http.MediaCacheMaxAge,
		},
		latestIds:   cache.NewStore[cache.BoardKey, int64]("latest_id", cfg.Cache.LatestIdTTL),
		related:     cache.NewStore[cache.RelatedKey, []crawler.PostSummary]("related", cfg.Cache.RelatedTTL),
		authorCodes: cache.NewStore[cache.DocumentKey, authorInfo]("author_code", cfg.Cache.AuthorCodeTTL),
		rankings:    nil,
	}
	if service.settings.ItemsPerPage <= 0 {
		service.settings.ItemsPerPage = crawler.ItemsPerListPage
	}
	if service.settings.SeekSteps <= 0 {
		service.settings.SeekSteps = 1
	}
	if service.settings.TailPages < 0 {
		service.settings.TailPages = 0
	}
	if service.settings.MaxScanPages <= 0 {
		service.settings.MaxScanPages = 1
	}

	maxItems := cfg.Ranking.MaxItems
	service.rankings = cache.NewRankingCache(
		cfg.Ranking.File, cfg.Ranking.TTL,
		func(ctx context.Context, logger crawler.Logger) ([]crawler.RankingItem, error) {
			return crawler.FetchTopGalleries(ctx, client, maxItems, logger)
		},
	)
	return service
}

func (s *Service) Settings() Settings {
	return s.settings
}

// SetClock replaces the time source of every cache, for tests
func (s *Service) SetClock(now func() time.Time) {
	s.latestIds.SetClock(now)
	s.related.SetClock(now)
	s.authorCodes.SetClock(now)
	s.rankings.SetClock(now)
}

// StartBackgroundRefresh keeps the gallery ranking warm until ctx is done
func (s *Service) StartBackgroundRefresh(ctx context.Context, interval time.Duration, logger crawler.Logger) {
	s.rankings.StartBackgroundRefresh(ctx, interval, logger)
}

// PruneCaches drops expired entries from every store
func (s *Service) PruneCaches() int {
	return s.latestIds.Prune() + s.related.Prune() + s.authorCodes.Prune()
}

type ListBoardQuery struct {
	BoardId   string
	Kind      crawler.Kind
	Recommend bool
	Page      int
	// Limit <= 0 means the configured index limit, which is also the ceiling
	Limit int
	// MaxScanPages <= 0 means the configured cap, which is also the ceiling
	MaxScanPages int
	UpperLimit   int64
	LowerLimit   int64
}

// ListBoard returns up to Limit posts starting at Page, with missing author codes filled in from
// the documents
func (s *Service) ListBoard(ctx context.Context, query ListBoardQuery, logger crawler.Logger) []crawler.PostSummary {
	limit := query.Limit
	if limit <= 0 || limit > s.settings.IndexLimit {
		limit = s.settings.IndexLimit
	}
	if limit <= 0 {
		return nil
	}
	maxScanPages := query.MaxScanPages
	if maxScanPages <= 0 || maxScanPages > s.settings.MaxScanPages {
		maxScanPages = s.settings.MaxScanPages
	}

	result, err := crawler.FetchBoard(ctx, s.client, crawler.BoardQuery{
		BoardId:      query.BoardId,
		Kind:         query.Kind,
		Recommend:    query.Recommend,
		StartPage:    query.Page,
		Limit:        limit,
		MaxScanPages: maxScanPages,
		UpperLimit:   query.UpperLimit,
		LowerLimit:   query.LowerLimit,
	}, logger)
	if err != nil {
		logger.Info("Listing %s stopped early: %v", query.BoardId, err)
	}
	logger.Info(
		"Listed %d posts of %s from page %d over %d pages (%s)",
		len(result.Posts), query.BoardId, query.Page, result.PagesScanned, result.StopReason,
	)

	posts := result.Posts
	s.backfillAuthorCodes(ctx, query.BoardId, query.Kind, posts, logger)
	return posts
}

// ReadDocument returns the document with all its comments and image sources. A document that
// can't be found comes back as a placeholder with no comments.
func (s *Service) ReadDocument(
	ctx context.Context, postId string, boardId string, kind crawler.Kind, logger crawler.Logger,
) (crawler.Document, []crawler.Comment, []string) {
	document, err := crawler.FetchDocument(ctx, s.client, boardId, postId, kind, logger)
	if err != nil {
		logger.Info("Document %s/%s unavailable: %v", boardId, postId, err)
		return MissingDocument(boardId, postId), nil, nil
	}

	stream := crawler.NewCommentStream(ctx, s.client, boardId, postId, s.settings.MaxCommentPages, logger)
	comments, err := stream.Collect()
	if err != nil {
		logger.Info("Comments of %s/%s cut short: %v", boardId, postId, err)
	}

	images := make([]string, 0, len(document.Images))
	for _, image := range document.Images {
		images = append(images, image.SourceUrl)
	}
	return *document, comments, images
}

func MissingDocument(boardId string, postId string) crawler.Document {
	return crawler.Document{
		Id:          postId,
		BoardId:     boardId,
		Title:       MissingDocumentTitle,
		Author:      MissingDocumentAuthor,
		VoteUpCount: 0,
		Html:        MissingDocumentHtml,
	}
}

func IsMissingDocument(document *crawler.Document) bool {
	return document.Title == MissingDocumentTitle && document.Author == MissingDocumentAuthor &&
		document.Html == MissingDocumentHtml
}

// FetchMedia proxies one image of a post
func (s *Service) FetchMedia(
	ctx context.Context, src string, boardId string, postId string, logger crawler.Logger,
) (*crawler.Media, error) {
	return crawler.FetchMedia(ctx, s.client, src, boardId, postId, logger)
}

func (s *Service) MediaCacheMaxAge() time.Duration {
	return s.settings.MediaCacheMaxAge
}

// CurrentTopGalleries returns the hot gallery ranking and when it was fetched
func (s *Service) CurrentTopGalleries(
	ctx context.Context, logger crawler.Logger,
) ([]crawler.RankingItem, time.Time, error) {
	snapshot, err := s.rankings.Get(ctx, logger)
	if err != nil {
		return nil, time.Time{}, err
	}
	return snapshot.Items, snapshot.UpdatedAt, nil
}

func (s *Service) SearchGalleries(
	ctx context.Context, query string, logger crawler.Logger,
) ([]crawler.GallerySearchResult, error) {
	return crawler.SearchGalleries(ctx, s.client, query, logger)
}

func (s *Service) backfillAuthorCodes(
	ctx context.Context, boardId string, kind crawler.Kind, posts []crawler.PostSummary, logger crawler.Logger,
) {
	for i := range posts {
		post := &posts[i]
		if post.AuthorCode != "" || post.Id == "" {
			continue
		}
		if ctx.Err() != nil {
			return
		}

		key := cache.DocumentKey{BoardId: boardId, Kind: string(kind), DocumentId: post.Id}
		if info, ok := s.authorCodes.Get(key); ok {
			post.Author = info.Author
			post.AuthorCode = info.AuthorCode
			continue
		}

		document, err := crawler.FetchDocument(ctx, s.client, boardId, post.Id, kind, logger)
		if err != nil {
			logger.Info("Couldn't backfill the author of %s/%s: %v", boardId, post.Id, err)
			continue
		}
		post.Author = document.Author
		post.AuthorCode = document.AuthorCode
		s.authorCodes.Set(key, authorInfo{Author: document.Author, AuthorCode: document.AuthorCode})
	}
}
