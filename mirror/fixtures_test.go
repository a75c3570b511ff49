package mirror

import (
	"fmt"
	"galmirror/config"
	"galmirror/crawler"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const emptyListHtml = `<html><body><div class="no-list">등록된 게시물이 없습니다.</div></body></html>`

type testPost struct {
	Id         int64
	AuthorCode string
}

func listHtml(boardId string, posts ...testPost) string {
	var builder strings.Builder
	builder.WriteString(`<html><body><ul class="gall-detail-lst">`)
	for _, post := range posts {
		authorCode := ""
		if post.AuthorCode != "" {
			authorCode = fmt.Sprintf(`<span class="blockInfo" data-info="%s"></span>`, post.AuthorCode)
		}
		fmt.Fprintf(&builder, `<li><div class="gall-detail-lnktb">
<a href="https://m.dcinside.com/board/%s/%d?page=1" class="lt">
<span class="subject-add"><span class="sp-lst sp-lst-txt">아이콘</span><span class="subjectin">제목 %d</span></span>
<ul class="ginfo"><li>일반</li><li>ㅇㅇ%s</li><li>14:30</li><li>조회 1</li><li><span>추천 0</span></li></ul>
</a>
<a class="rt" href="#"><span class="ct">0</span></a>
</div></li>
`, boardId, post.Id, post.Id, authorCode)
	}
	builder.WriteString(`</ul></body></html>`)
	return builder.String()
}

// coded gives every post an author code so that nothing needs backfilling
func coded(ids ...int64) []testPost {
	posts := make([]testPost, 0, len(ids))
	for _, id := range ids {
		posts = append(posts, testPost{Id: id, AuthorCode: fmt.Sprintf("code%d", id)})
	}
	return posts
}

func listUrl(boardId string, page int) string {
	return fmt.Sprintf("https://m.dcinside.com/board/%s?page=%d", boardId, page)
}

func viewUrl(boardId string, documentId int64) string {
	return fmt.Sprintf("https://m.dcinside.com/board/%s/%d", boardId, documentId)
}

func documentHtml(documentId int64, author string, authorCode string) string {
	return fmt.Sprintf(`<html><body>
<div class="gallview-tit-box">
<span class="tit">문서 %d</span>
<ul class="ginfo2"><li><a href="https://m.dcinside.com/gallog/%s">%s</a></li><li>2024.06.09 21:05</li></ul>
</div>
<div class="thum-txtin"><p>본문 %d</p>
<img class="lazy" src="https://m.dcinside.com/loading.gif" data-original="https://dcimg.test/%d-1.jpg">
<img class="lazy" src="https://m.dcinside.com/loading.gif" data-original="https://dcimg.test/%d-2.jpg">
</div>
</body></html>`, documentId, authorCode, author, documentId, documentId, documentId)
}

// 3 pages of 5 posts, ids 100 down to 86, then the empty marker
func newFakeBoard(boardId string) *crawler.MockHttpClient {
	client := crawler.NewMockHttpClient()
	client.AddHtml(listUrl(boardId, 1), listHtml(boardId, coded(100, 99, 98, 97, 96)...))
	client.AddHtml(listUrl(boardId, 2), listHtml(boardId, coded(95, 94, 93, 92, 91)...))
	client.AddHtml(listUrl(boardId, 3), listHtml(boardId, coded(90, 89, 88, 87, 86)...))
	client.AddHtml(listUrl(boardId, 4), emptyListHtml)
	return client
}

func testConfig(t *testing.T) config.Config {
	cfg := config.Defaults()
	cfg.Env = config.EnvTesting
	cfg.Related.ItemsPerPage = 5
	cfg.Ranking.File = filepath.Join(t.TempDir(), "ranking.json")
	return cfg
}

type testClock struct {
	current time.Time
}

func (c *testClock) Now() time.Time {
	return c.current
}

func (c *testClock) Advance(d time.Duration) {
	c.current = c.current.Add(d)
}

func newTestService(t *testing.T, client crawler.HttpClient) (*Service, *testClock) {
	clock := &testClock{current: time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)}
	service := NewService(client, testConfig(t))
	service.SetClock(clock.Now)
	return service, clock
}

func ids(posts []crawler.PostSummary) []int64 {
	result := make([]int64, 0, len(posts))
	for i := range posts {
		result = append(result, posts[i].IdInt())
	}
	return result
}
