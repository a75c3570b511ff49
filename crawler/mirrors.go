package crawler

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	om "github.com/wk8/go-ordered-map/v2"
	"golang.org/x/net/html"
)

const mobileHost = "https://m.dcinside.com"
const desktopHost = "https://gall.dcinside.com"

var desktopPathPrefixes = []struct {
	Kind   Kind
	Prefix string
}{
	{KindNormal, "/board"},
	{KindMinor, "/mgallery/board"},
	{KindMini, "/mini/board"},
	{KindPerson, "/person/board"},
}

var scriptRedirectRegex *regexp.Regexp

func init() {
	scriptRedirectRegex = regexp.MustCompile(`location\.href\s*=\s*'([^']+)'`)
}

// candidateUrls is an insertion-ordered set of URLs
type candidateUrls struct {
	urls *om.OrderedMap[string, struct{}]
}

func newCandidateUrls() *candidateUrls {
	return &candidateUrls{
		urls: om.New[string, struct{}](),
	}
}

// Add returns false if the url was already there
func (c *candidateUrls) Add(rawUrl string) bool {
	if rawUrl == "" {
		return false
	}
	if _, ok := c.urls.Get(rawUrl); ok {
		return false
	}
	c.urls.Set(rawUrl, struct{}{})
	return true
}

func (c *candidateUrls) List() []string {
	result := make([]string, 0, c.urls.Len())
	for pair := c.urls.Oldest(); pair != nil; pair = pair.Next() {
		result = append(result, pair.Key)
	}
	return result
}

// BuildListUrls lists the mirrors for a board page, most specific first
func BuildListUrls(boardId string, page int, recommend bool, kind Kind) []string {
	id := url.QueryEscape(boardId)
	urls := newCandidateUrls()
	switch {
	case kind == KindMini:
		urls.Add(fmt.Sprintf("%s/mini/%s?page=%d", mobileHost, url.PathEscape(boardId), page))
	case recommend:
		urls.Add(fmt.Sprintf("%s/board/%s?recommend=1&page=%d", mobileHost, url.PathEscape(boardId), page))
	default:
		urls.Add(fmt.Sprintf("%s/board/%s?page=%d", mobileHost, url.PathEscape(boardId), page))
	}

	listUrl := func(prefix string) string {
		return fmt.Sprintf("%s%s/lists/?id=%s&page=%d", desktopHost, prefix, id, page)
	}
	for _, desktop := range desktopPathPrefixes {
		if desktop.Kind == kind {
			urls.Add(listUrl(desktop.Prefix))
		}
	}
	for _, desktop := range desktopPathPrefixes {
		urls.Add(listUrl(desktop.Prefix))
	}
	return urls.List()
}

// BuildViewUrls lists the mirrors for a single document, most specific first
func BuildViewUrls(boardId string, documentId string, kind Kind) []string {
	id := url.QueryEscape(boardId)
	no := url.QueryEscape(documentId)
	urls := newCandidateUrls()
	if kind == KindMini {
		urls.Add(fmt.Sprintf("%s/mini/%s/%s", mobileHost, url.PathEscape(boardId), url.PathEscape(documentId)))
	} else {
		urls.Add(fmt.Sprintf("%s/board/%s/%s", mobileHost, url.PathEscape(boardId), url.PathEscape(documentId)))
	}

	viewUrl := func(prefix string) string {
		return fmt.Sprintf("%s%s/view/?id=%s&no=%s", desktopHost, prefix, id, no)
	}
	for _, desktop := range desktopPathPrefixes {
		if desktop.Kind == kind {
			urls.Add(viewUrl(desktop.Prefix))
		}
	}
	for _, desktop := range desktopPathPrefixes {
		urls.Add(viewUrl(desktop.Prefix))
	}
	return urls.List()
}

type FetchedPage struct {
	Url      string
	Content  string
	Document *html.Node
}

// FetchFirst walks the candidates in order and returns the first usable page. Transport failures,
// error statuses and empty bodies move on to the next candidate. A page that only redirects via
// script enqueues its target and is skipped. Returns ErrNotFound once every candidate is spent.
func FetchFirst(ctx context.Context, client HttpClient, urls []string, logger Logger) (*FetchedPage, error) {
	queue := newCandidateUrls()
	for _, candidate := range urls {
		queue.Add(candidate)
	}

	for pair := queue.urls.Oldest(); pair != nil; pair = pair.Next() {
		candidate := pair.Key
		resp, err := client.Request(ctx, GetRequest(candidate), logger)
		if err != nil {
			return nil, err
		}

		statusCode := resp.StatusCode()
		if statusCode == 0 {
			logger.Info("Mirror %s failed: %s", candidate, resp.Code)
			recordFetch(candidate, fetchOutcomeTransport)
			continue
		}
		if statusCode >= 400 {
			logger.Info("Mirror %s returned %d", candidate, statusCode)
			recordFetch(candidate, fetchOutcomeStatus)
			continue
		}
		if len(resp.Body) == 0 {
			recordFetch(candidate, fetchOutcomeEmpty)
			continue
		}

		content := decodeBody(resp.Body, resp.MaybeContentType)
		if strings.TrimSpace(content) == "" {
			recordFetch(candidate, fetchOutcomeEmpty)
			continue
		}
		if match := scriptRedirectRegex.FindStringSubmatch(content); match != nil {
			recordFetch(candidate, fetchOutcomeRedirect)
			target := resolveRedirect(candidate, strings.TrimSpace(match[1]))
			if queue.Add(target) {
				logger.Info("Mirror %s redirects to %s", candidate, target)
			}
			continue
		}

		document, err := parseHtml(content)
		if err != nil {
			logger.Info("Mirror %s returned unparseable html: %v", candidate, err)
			recordFetch(candidate, fetchOutcomeEmpty)
			continue
		}
		recordFetch(candidate, fetchOutcomeOk)
		return &FetchedPage{
			Url:      candidate,
			Content:  content,
			Document: document,
		}, nil
	}

	return nil, ErrNotFound
}

func resolveRedirect(base string, target string) string {
	if target == "" {
		return ""
	}
	baseUri, err := url.Parse(base)
	if err != nil {
		return target
	}
	targetUri, err := url.Parse(target)
	if err != nil {
		return ""
	}
	return baseUri.ResolveReference(targetUri).String()
}
