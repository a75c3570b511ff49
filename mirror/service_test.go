package mirror

import (
	"context"
	"fmt"
	"galmirror/crawler"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestListBoard(t *testing.T) {
	type Test struct {
		description      string
		query            ListBoardQuery
		expectedIds      []int64
		expectedRequests int
	}

	tests := []Test{
		{
			description:      "default limit reads on until the board runs out",
			query:            ListBoardQuery{Page: 1},
			expectedIds:      []int64{100, 99, 98, 97, 96, 95, 94, 93, 92, 91, 90, 89, 88, 87, 86},
			expectedRequests: 4,
		},
		{
			description:      "explicit limit",
			query:            ListBoardQuery{Page: 2, Limit: 2},
			expectedIds:      []int64{95, 94},
			expectedRequests: 1,
		},
		{
			description:      "lower limit is exclusive",
			query:            ListBoardQuery{Page: 1, LowerLimit: 93},
			expectedIds:      []int64{100, 99, 98, 97, 96, 95, 94},
			expectedRequests: 2,
		},
		{
			description:      "upper limit is exclusive",
			query:            ListBoardQuery{Page: 1, UpperLimit: 98, Limit: 3},
			expectedIds:      []int64{97, 96, 95},
			expectedRequests: 2,
		},
		{
			description:      "scan cap",
			query:            ListBoardQuery{Page: 1, MaxScanPages: 1},
			expectedIds:      []int64{100, 99, 98, 97, 96},
			expectedRequests: 1,
		},
		{
			description:      "no posts registered",
			query:            ListBoardQuery{Page: 4},
			expectedIds:      []int64{},
			expectedRequests: 1,
		},
	}

	for _, tc := range tests {
		client := newFakeBoard("test")
		service, _ := newTestService(t, client)
		query := tc.query
		query.BoardId = "test"
		posts := service.ListBoard(context.Background(), query, crawler.NewDummyLogger())
		require.Equal(t, tc.expectedIds, ids(posts), tc.description)
		require.Equal(t, tc.expectedRequests, client.RequestCount(), tc.description)
	}
}

func TestListBoardClampsToConfig(t *testing.T) {
	type Test struct {
		description      string
		query            ListBoardQuery
		expectedCount    int
		expectedRequests int
	}

	tests := []Test{
		{
			description:      "limit above the index limit",
			query:            ListBoardQuery{Page: 1, Limit: 1000000},
			expectedCount:    10,
			expectedRequests: 2,
		},
		{
			description:      "scan pages above the cap",
			query:            ListBoardQuery{Page: 1, MaxScanPages: 400},
			expectedCount:    10,
			expectedRequests: 2,
		},
		{
			description:      "scan pages below the cap are kept",
			query:            ListBoardQuery{Page: 1, MaxScanPages: 1},
			expectedCount:    5,
			expectedRequests: 1,
		},
		{
			description:      "limit below the index limit is kept",
			query:            ListBoardQuery{Page: 1, Limit: 3},
			expectedCount:    3,
			expectedRequests: 1,
		},
	}

	for _, tc := range tests {
		client := newFakeBoard("test")
		cfg := testConfig(t)
		cfg.IndexLimit = 12
		cfg.MaxScanPages = 2
		service := NewService(client, cfg)
		query := tc.query
		query.BoardId = "test"
		posts := service.ListBoard(context.Background(), query, crawler.NewDummyLogger())
		require.Len(t, posts, tc.expectedCount, tc.description)
		require.Equal(t, tc.expectedRequests, client.RequestCount(), tc.description)
	}
}

func TestListBoardBackfillsAuthorCodes(t *testing.T) {
	client := crawler.NewMockHttpClient()
	client.AddHtml(listUrl("test", 1), listHtml("test",
		testPost{Id: 12, AuthorCode: "listed"},
		testPost{Id: 11},
		testPost{Id: 10},
	))
	client.AddHtml(viewUrl("test", 11), documentHtml(11, "고닉", "gonick"))
	// 10 is gone on every mirror
	service, clock := newTestService(t, client)
	ctx := context.Background()
	query := ListBoardQuery{BoardId: "test", Page: 1, Limit: 3}

	posts := service.ListBoard(ctx, query, crawler.NewDummyLogger())
	require.Len(t, posts, 3)
	require.Equal(t, "listed", posts[0].AuthorCode)
	require.Equal(t, "익명", posts[0].Author)
	require.Equal(t, "gonick", posts[1].AuthorCode)
	require.Equal(t, "고닉", posts[1].Author)
	require.Equal(t, "", posts[2].AuthorCode)
	require.Equal(t, "익명", posts[2].Author)
	// list page, the document of 11, five mirrors for 10
	require.Equal(t, 1+1+5, client.RequestCount())

	// 11 comes from the cache, 10 is tried again
	posts = service.ListBoard(ctx, query, crawler.NewDummyLogger())
	require.Equal(t, "gonick", posts[1].AuthorCode)
	require.Equal(t, 7+1+5, client.RequestCount())

	clock.Advance(10 * time.Minute)
	service.ListBoard(ctx, query, crawler.NewDummyLogger())
	require.Equal(t, 13+1+1+5, client.RequestCount())
}

const commentsHtml = `<span class="pgnum">1<span>/1</span></span><ul class="all-comment-lst">` +
	`<li no="1" m_no="0"><a class="nick">ㅇㅇ<span class="blockCommentIp">(1.2)</span></a>` +
	`<p class="txt">첫 댓글</p><span class="date">21:05</span></li>` +
	`<li no="2" m_no="1"><a class="nick">고닉<span class="blockCommentId" data-info="gonick"></span></a>` +
	`<p class="txt">둘째 댓글</p><span class="date">21:06</span></li>` +
	`<li class="comment-add" no="3" m_no="1"><a class="nick">ㅇㅇ<span>(3.4)</span></a>` +
	`<p class="txt">답글</p><span class="date">21:07</span></li>` +
	`<li no="4" m_no="2"><a class="nick">ㅇㅇ<span>(5.6)</span></a>` +
	`<p class="txt">부모 2의 답글</p><span class="date">21:08</span></li>` +
	`</ul>`

func TestReadDocument(t *testing.T) {
	client := crawler.NewMockHttpClient()
	client.AddHtml(viewUrl("test", 42), documentHtml(42, "ㅇㅇ", "anoncode"))
	client.SetHandler(func(req *crawler.HttpRequest) (*crawler.HttpResponse, bool) {
		if req.Method != "POST" || req.Form.Get("no") != "42" {
			return nil, false
		}
		return &crawler.HttpResponse{Code: "200", FinalUrl: req.Url, Body: []byte(commentsHtml)}, true
	})
	service, _ := newTestService(t, client)

	document, comments, images := service.ReadDocument(
		context.Background(), "42", "test", crawler.KindUnknown, crawler.NewDummyLogger(),
	)
	require.False(t, IsMissingDocument(&document))
	require.Equal(t, "문서 42", document.Title)
	require.Equal(t, "익명", document.Author)
	require.Equal(t, "anoncode", document.AuthorCode)
	require.Equal(t, []string{"https://dcimg.test/42-1.jpg", "https://dcimg.test/42-2.jpg"}, images)

	require.Len(t, comments, 4)
	expectedReplies := []bool{false, false, true, true}
	for i, comment := range comments {
		require.Equal(t, expectedReplies[i], comment.IsReply, fmt.Sprintf("comment %s", comment.Id))
	}
	require.Equal(t, "익명", comments[0].Author)
	require.Equal(t, "1.2", comments[0].AuthorCode)
	require.Equal(t, "gonick", comments[1].AuthorCode)
	require.Equal(t, "3.4", comments[2].AuthorCode)
}

func TestReadDocumentMissing(t *testing.T) {
	client := crawler.NewMockHttpClient()
	service, _ := newTestService(t, client)

	document, comments, images := service.ReadDocument(
		context.Background(), "42", "test", crawler.KindNormal, crawler.NewDummyLogger(),
	)
	require.True(t, IsMissingDocument(&document))
	require.Equal(t, "삭제되거나 찾을 수 없는 게시글입니다.", document.Title)
	require.Equal(t, "-", document.Author)
	require.Equal(t, "게시글 데이터를 가져오는 데 실패했습니다.", document.Html)
	require.Equal(t, 0, document.VoteUpCount)
	require.Empty(t, comments)
	require.Empty(t, images)
	require.Equal(t, 5, client.RequestCount(), "no comment requests for a missing document")
}

func TestReadDocumentWithMalformedId(t *testing.T) {
	client := newFakeBoard("test")
	service, _ := newTestService(t, client)

	document, comments, _ := service.ReadDocument(
		context.Background(), "1'", "test", crawler.KindUnknown, crawler.NewDummyLogger(),
	)
	require.True(t, IsMissingDocument(&document))
	require.Empty(t, comments)
	require.Equal(t, 0, client.RequestCount())
}

func TestFetchMediaRejectsBadUrls(t *testing.T) {
	client := crawler.NewMockHttpClient()
	service, _ := newTestService(t, client)

	_, err := service.FetchMedia(context.Background(), "javascript:alert(1)", "test", "1", crawler.NewDummyLogger())
	require.ErrorIs(t, err, crawler.ErrInvalidMediaUrl)
	require.Equal(t, 0, client.RequestCount())
	require.Equal(t, 24*time.Hour, service.MediaCacheMaxAge())
}

const rankingPageHtml = `<html><body><div id="heung_gall_all_lyr"><ul class="pop_hotmgall_listbox">
<li><a href="https://gall.dcinside.com/board/lists/?id=second"><span class="num">2.</span> 둘째</a></li>
<li><a href="https://gall.dcinside.com/board/lists/?id=first"><span class="num">1.</span> 첫째</a></li>
</ul></div></body></html>`

func TestCurrentTopGalleries(t *testing.T) {
	client := crawler.NewMockHttpClient()
	client.AddHtml("https://gall.dcinside.com/", rankingPageHtml)
	service, clock := newTestService(t, client)
	ctx := context.Background()

	items, updatedAt, err := service.CurrentTopGalleries(ctx, crawler.NewDummyLogger())
	require.NoError(t, err)
	require.Equal(t, []crawler.RankingItem{
		{Rank: 1, Name: "첫째", BoardId: "first"},
		{Rank: 2, Name: "둘째", BoardId: "second"},
	}, items)
	require.Equal(t, clock.Now(), updatedAt)

	clock.Advance(30 * time.Minute)
	_, _, err = service.CurrentTopGalleries(ctx, crawler.NewDummyLogger())
	require.NoError(t, err)
	require.Equal(t, 1, client.RequestCount())
}

func TestCurrentTopGalleriesWithoutUpstream(t *testing.T) {
	client := crawler.NewMockHttpClient()
	service, _ := newTestService(t, client)

	_, _, err := service.CurrentTopGalleries(context.Background(), crawler.NewDummyLogger())
	require.Error(t, err)
}
