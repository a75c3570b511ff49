package crawler

import (
	"context"
	"errors"
)

type BoardQuery struct {
	BoardId   string
	Kind      Kind
	Recommend bool
	StartPage int
	// Limit <= 0 means no item quota
	Limit int
	// MaxScanPages <= 0 means no page cap
	MaxScanPages int
	// Exclusive ceiling, ignored when <= 0
	UpperLimit int64
	// Exclusive floor, ignored when <= 0. Seeing it ends the whole scan.
	LowerLimit int64
}

type BoardStopReason int

const (
	BoardStopQuota BoardStopReason = iota
	BoardStopNoItems
	BoardStopEmptyPage
	BoardStopNotFound
	BoardStopParseFailure
	BoardStopScanCap
	BoardStopLowerLimit
)

func (r BoardStopReason) String() string {
	switch r {
	case BoardStopQuota:
		return "quota"
	case BoardStopNoItems:
		return "no_items"
	case BoardStopEmptyPage:
		return "empty_page"
	case BoardStopNotFound:
		return "not_found"
	case BoardStopParseFailure:
		return "parse_failure"
	case BoardStopScanCap:
		return "scan_cap"
	case BoardStopLowerLimit:
		return "lower_limit"
	default:
		return "unknown"
	}
}

type BoardResult struct {
	Posts        []PostSummary
	PagesScanned int
	StopReason   BoardStopReason
}

// FetchBoard walks list pages in increasing order starting at StartPage. It stops on the quota,
// on a page that yields nothing, on the page cap, or on the first id at or below LowerLimit.
// The only error is the context being done.
func FetchBoard(ctx context.Context, client HttpClient, query BoardQuery, logger Logger) (BoardResult, error) {
	page := query.StartPage
	if page < 1 {
		page = 1
	}

	var result BoardResult
	for {
		if query.MaxScanPages > 0 && result.PagesScanned >= query.MaxScanPages {
			result.StopReason = BoardStopScanCap
			return result, nil
		}

		fetched, err := FetchFirst(ctx, client, BuildListUrls(query.BoardId, page, query.Recommend, query.Kind), logger)
		result.PagesScanned++
		if errors.Is(err, ErrNotFound) {
			logger.Info("Board %s page %d not found on any mirror", query.BoardId, page)
			result.StopReason = BoardStopNotFound
			return result, nil
		} else if err != nil {
			return result, err
		}

		summaries, outcome := ParseListing(fetched, query.BoardId, UpstreamNow(), logger)
		switch outcome {
		case ListingEmpty:
			result.StopReason = BoardStopEmptyPage
			return result, nil
		case ListingParseFailure:
			result.StopReason = BoardStopParseFailure
			return result, nil
		}

		yieldedInPage := 0
		for _, summary := range summaries {
			id := summary.IdInt()
			if query.UpperLimit > 0 && id >= query.UpperLimit {
				continue
			}
			if query.LowerLimit > 0 && id <= query.LowerLimit {
				result.StopReason = BoardStopLowerLimit
				return result, nil
			}

			result.Posts = append(result.Posts, summary)
			yieldedInPage++
			if query.Limit > 0 && len(result.Posts) >= query.Limit {
				result.StopReason = BoardStopQuota
				return result, nil
			}
		}

		if yieldedInPage == 0 {
			result.StopReason = BoardStopNoItems
			return result, nil
		}
		page++
	}
}
