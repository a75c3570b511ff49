package mirror

import (
	"context"
	"galmirror/cache"
	"galmirror/crawler"
	"strconv"
	"strings"
)

// EstimatePage guesses which list page holds targetId, assuming ids are dense and perPage posts
// fit on a page. It never goes below 1.
func EstimatePage(latestId int64, targetId int64, perPage int) int {
	if perPage <= 0 {
		perPage = crawler.ItemsPerListPage
	}
	distance := latestId - targetId
	if distance < 0 {
		return 1
	}
	page := distance/int64(perPage) + 1
	if page < 1 {
		return 1
	}
	return int(page)
}

// ClampRelatedLimit keeps a requested related count within 1..MaxRelatedLimit. Garbage falls back
// to DefaultRelatedLimit.
func ClampRelatedLimit(raw string) int {
	limit, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return DefaultRelatedLimit
	}
	if limit < 1 {
		return 1
	}
	if limit > MaxRelatedLimit {
		return MaxRelatedLimit
	}
	return limit
}

// RelatedPostsByPosition returns up to limit posts that follow postId in the board listing, that
// is the next older posts. It locates the page holding postId by estimating from the newest id and
// probing around it, then reads the rest of that page and a few pages after. The result is empty
// when the post can't be located. It never fails.
func (s *Service) RelatedPostsByPosition(
	ctx context.Context, postId string, boardId string, kind crawler.Kind, limit int, logger crawler.Logger,
) []crawler.PostSummary {
	targetId, err := strconv.ParseInt(strings.TrimSpace(postId), 10, 64)
	if err != nil || targetId <= 0 || limit <= 0 {
		return nil
	}

	relatedKey := cache.RelatedKey{BoardId: boardId, Kind: string(kind), TargetId: targetId, Limit: limit}
	if cached, ok := s.related.Get(relatedKey); ok {
		return cached
	}

	boardKey := cache.BoardKey{BoardId: boardId, Kind: string(kind)}
	latestId, ok := s.latestIds.Get(boardKey)
	if !ok {
		firstPage := s.fetchPage(ctx, boardId, kind, 1, 1, logger)
		if len(firstPage) == 0 {
			return nil
		}
		latestId = firstPage[0].IdInt()
		if latestId <= 0 {
			latestId = targetId
		}
		s.latestIds.Set(boardKey, latestId)
	}

	page := EstimatePage(latestId, targetId, s.settings.ItemsPerPage)
	foundPage := 0
	foundIndex := -1
	var foundPosts []crawler.PostSummary
	checked := make(map[int]bool)
	for steps := 0; steps < s.settings.SeekSteps && page >= 1; steps++ {
		if checked[page] {
			break
		}
		checked[page] = true

		posts := s.fetchPage(ctx, boardId, kind, page, s.settings.ItemsPerPage, logger)
		if len(posts) == 0 {
			break
		}

		var pageMax int64
		for i := range posts {
			id := posts[i].IdInt()
			if id == targetId {
				foundIndex = i
				break
			}
			if id > pageMax {
				pageMax = id
			}
		}
		if foundIndex >= 0 {
			foundPage = page
			foundPosts = posts
			break
		}
		if pageMax == 0 {
			break
		}

		// Below the page or straddling a gap both mean older posts are further on
		if targetId > pageMax {
			page = max(1, page-1)
		} else {
			page++
		}
	}

	if foundPage == 0 {
		logger.Info("Post %s/%d not located after %d page reads", boardId, targetId, len(checked))
		return nil
	}

	var related []crawler.PostSummary
	for _, post := range foundPosts[foundIndex+1:] {
		if post.IdInt() >= targetId {
			continue
		}
		related = append(related, post)
		if len(related) >= limit {
			return s.finishRelated(ctx, boardId, kind, relatedKey, related, logger)
		}
	}

	nextPage := foundPage + 1
	for loadedTail := 0; len(related) < limit && loadedTail < s.settings.TailPages; loadedTail++ {
		posts := s.fetchPage(ctx, boardId, kind, nextPage, s.settings.ItemsPerPage, logger)
		if len(posts) == 0 {
			break
		}
		for _, post := range posts {
			id := post.IdInt()
			if id <= 0 || id >= targetId {
				continue
			}
			related = append(related, post)
			if len(related) >= limit {
				break
			}
		}
		nextPage++
	}

	return s.finishRelated(ctx, boardId, kind, relatedKey, related, logger)
}

func (s *Service) finishRelated(
	ctx context.Context, boardId string, kind crawler.Kind, key cache.RelatedKey, related []crawler.PostSummary,
	logger crawler.Logger,
) []crawler.PostSummary {
	if len(related) > key.Limit {
		related = related[:key.Limit]
	}
	s.backfillAuthorCodes(ctx, boardId, kind, related, logger)
	if ctx.Err() == nil {
		s.related.Set(key, related)
	}
	return related
}

// fetchPage reads exactly one list page, recommend off
func (s *Service) fetchPage(
	ctx context.Context, boardId string, kind crawler.Kind, page int, limit int, logger crawler.Logger,
) []crawler.PostSummary {
	result, err := crawler.FetchBoard(ctx, s.client, crawler.BoardQuery{
		BoardId:      boardId,
		Kind:         kind,
		Recommend:    false,
		StartPage:    page,
		Limit:        limit,
		MaxScanPages: 1,
	}, logger)
	if err != nil {
		return nil
	}
	return result.Posts
}
