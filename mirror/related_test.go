package mirror

import (
	"context"
	"galmirror/crawler"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestEstimatePage(t *testing.T) {
	type Test struct {
		description string
		latestId    int64
		targetId    int64
		perPage     int
		expected    int
	}

	tests := []Test{
		{"target is the newest post", 1000, 1000, 200, 1},
		{"still on the first page", 1000, 801, 200, 1},
		{"first post of the second page", 1000, 800, 200, 2},
		{"far back", 100000, 1, 200, 500},
		{"target newer than the cached latest", 1000, 1005, 200, 1},
		{"small pages", 100, 95, 5, 2},
		{"bad page size falls back to the list page size", 1000, 700, 0, 2},
	}

	for _, tc := range tests {
		require.Equal(t, tc.expected, EstimatePage(tc.latestId, tc.targetId, tc.perPage), tc.description)
	}
}

func TestEstimatePageIsMonotonic(t *testing.T) {
	const latestId = 50000
	previous := 1
	for targetId := int64(latestId + 10); targetId > 0; targetId -= 37 {
		page := EstimatePage(latestId, targetId, 200)
		require.GreaterOrEqual(t, page, 1)
		require.GreaterOrEqual(t, page, previous, "older targets never estimate to an earlier page")
		previous = page
	}
}

func TestClampRelatedLimit(t *testing.T) {
	type Test struct {
		raw      string
		expected int
	}

	tests := []Test{
		{"", DefaultRelatedLimit},
		{"abc", DefaultRelatedLimit},
		{"0", 1},
		{"-3", 1},
		{"5", 5},
		{" 30 ", 30},
		{"31", 30},
		{"1000", 30},
	}

	for _, tc := range tests {
		require.Equal(t, tc.expected, ClampRelatedLimit(tc.raw), tc.raw)
	}
}

func TestRelatedPostsByPositionScenario(t *testing.T) {
	client := newFakeBoard("test")
	service, clock := newTestService(t, client)
	ctx := context.Background()
	logger := crawler.NewDummyLogger()

	// Cold: one request for the latest id, one for the estimated page 2 which holds 95
	related := service.RelatedPostsByPosition(ctx, "95", "test", crawler.KindUnknown, 3, logger)
	require.Equal(t, []int64{94, 93, 92}, ids(related))
	require.Equal(t, 2, client.RequestCount())

	// Latest id is cached, the related result for this limit is not
	related = service.RelatedPostsByPosition(ctx, "95", "test", crawler.KindUnknown, 4, logger)
	require.Equal(t, []int64{94, 93, 92, 91}, ids(related))
	require.Equal(t, 3, client.RequestCount())

	// Same key again is served from the cache
	related = service.RelatedPostsByPosition(ctx, "95", "test", crawler.KindUnknown, 3, logger)
	require.Equal(t, []int64{94, 93, 92}, ids(related))
	require.Equal(t, 3, client.RequestCount())

	// Running past the page reads tail pages until the empty one
	related = service.RelatedPostsByPosition(ctx, "95", "test", crawler.KindUnknown, 12, logger)
	require.Equal(t, []int64{94, 93, 92, 91, 90, 89, 88, 87, 86}, ids(related))
	require.Equal(t, 6, client.RequestCount())
	for _, post := range related {
		require.Less(t, post.IdInt(), int64(95))
		require.NotEmpty(t, post.AuthorCode)
	}

	// The oldest post has nothing after it
	related = service.RelatedPostsByPosition(ctx, "86", "test", crawler.KindUnknown, 3, logger)
	require.Empty(t, related)
	require.Equal(t, 8, client.RequestCount())

	// Both caches expire
	clock.Advance(91 * time.Second)
	related = service.RelatedPostsByPosition(ctx, "95", "test", crawler.KindUnknown, 3, logger)
	require.Equal(t, []int64{94, 93, 92}, ids(related))
	require.Equal(t, 10, client.RequestCount())
}

func TestRelatedPostsByPositionSeeks(t *testing.T) {
	type Test struct {
		description      string
		postId           string
		limit            int
		expectedIds      []int64
		expectedRequests int
	}

	tests := []Test{
		{
			description:      "estimate lands past the post and the seek steps back",
			postId:           "88",
			limit:            3,
			expectedIds:      []int64{87, 86, 80},
			expectedRequests: 4,
		},
		{
			description:      "target on the first page",
			postId:           "99",
			limit:            2,
			expectedIds:      []int64{98, 97},
			expectedRequests: 2,
		},
		{
			description:      "estimate past the end of the board gives up",
			postId:           "76",
			limit:            5,
			expectedIds:      nil,
			expectedRequests: 2,
		},
		{
			description: "target newer than anything listed",
			postId:      "500",
			limit:       3,
			expectedIds: nil,
			// page 1 is read, then the search would step back onto page 1 again
			expectedRequests: 2,
		},
		{
			description: "target falls into a gap between pages",
			postId:      "93",
			limit:       3,
			expectedIds: nil,
			// page 2, back to page 1, then page 2 again is already checked
			expectedRequests: 3,
		},
	}

	for _, tc := range tests {
		// Deleted posts leave gaps, so the dense estimate is off
		client := crawler.NewMockHttpClient()
		client.AddHtml(listUrl("gap", 1), listHtml("gap", coded(100, 99, 98, 97, 96)...))
		client.AddHtml(listUrl("gap", 2), listHtml("gap", coded(90, 89, 88, 87, 86)...))
		client.AddHtml(listUrl("gap", 3), listHtml("gap", coded(80, 79, 78, 77, 76)...))
		client.AddHtml(listUrl("gap", 4), emptyListHtml)
		client.AddHtml(listUrl("gap", 5), emptyListHtml)
		service, _ := newTestService(t, client)

		related := service.RelatedPostsByPosition(
			context.Background(), tc.postId, "gap", crawler.KindUnknown, tc.limit, crawler.NewDummyLogger(),
		)
		if tc.expectedIds == nil {
			require.Empty(t, related, tc.description)
		} else {
			require.Equal(t, tc.expectedIds, ids(related), tc.description)
		}
		require.Equal(t, tc.expectedRequests, client.RequestCount(), tc.description)
	}
}

func TestRelatedPostsByPositionInvalidInput(t *testing.T) {
	type Test struct {
		description string
		postId      string
		limit       int
	}

	tests := []Test{
		{"not a number", "abc", 12},
		{"zero id", "0", 12},
		{"negative id", "-5", 12},
		{"zero limit", "95", 0},
		{"negative limit", "95", -1},
	}

	for _, tc := range tests {
		client := newFakeBoard("test")
		service, _ := newTestService(t, client)
		related := service.RelatedPostsByPosition(
			context.Background(), tc.postId, "test", crawler.KindUnknown, tc.limit, crawler.NewDummyLogger(),
		)
		require.Empty(t, related, tc.description)
		require.Equal(t, 0, client.RequestCount(), tc.description)
	}
}

func TestRelatedPostsByPositionEmptyBoard(t *testing.T) {
	client := crawler.NewMockHttpClient()
	client.AddHtml(listUrl("empty", 1), emptyListHtml)
	service, _ := newTestService(t, client)

	related := service.RelatedPostsByPosition(
		context.Background(), "10", "empty", crawler.KindUnknown, 12, crawler.NewDummyLogger(),
	)
	require.Empty(t, related)
	require.Equal(t, 1, client.RequestCount())
}

func TestRelatedPostsByPositionCancelled(t *testing.T) {
	client := newFakeBoard("test")
	service, _ := newTestService(t, client)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	related := service.RelatedPostsByPosition(ctx, "95", "test", crawler.KindUnknown, 3, crawler.NewDummyLogger())
	require.Empty(t, related)
	require.Equal(t, 0, client.RequestCount())
}
