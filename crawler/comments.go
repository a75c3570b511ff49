package crawler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"
)

const commentEndpoint = mobileHost + "/ajax/response-comment"

const DefaultMaxCommentPages = 50

// CommentStream lazily pages through the comments of one document. Pages are requested in
// ascending order only when the buffered ones run out.
type CommentStream struct {
	ctx        context.Context
	client     HttpClient
	boardId    string
	documentId string
	maxPages   int
	logger     Logger

	page   int
	buffer []Comment
	done   bool
}

func NewCommentStream(
	ctx context.Context, client HttpClient, boardId string, documentId string, maxPages int, logger Logger,
) *CommentStream {
	if maxPages <= 0 {
		maxPages = DefaultMaxCommentPages
	}
	return &CommentStream{
		ctx:        ctx,
		client:     client,
		boardId:    boardId,
		documentId: documentId,
		maxPages:   maxPages,
		logger:     logger,
		page:       0,
		buffer:     nil,
		done:       false,
	}
}

// Next returns nil, nil once the stream is exhausted
func (s *CommentStream) Next() (*Comment, error) {
	for len(s.buffer) == 0 {
		if s.done {
			return nil, nil
		}
		if err := s.fetchNextPage(); err != nil {
			s.done = true
			return nil, err
		}
	}

	comment := s.buffer[0]
	s.buffer = s.buffer[1:]
	return &comment, nil
}

// Collect drains the stream
func (s *CommentStream) Collect() ([]Comment, error) {
	var comments []Comment
	for {
		comment, err := s.Next()
		if err != nil {
			return comments, err
		}
		if comment == nil {
			return comments, nil
		}
		comments = append(comments, *comment)
	}
}

func (s *CommentStream) fetchNextPage() error {
	if s.page >= s.maxPages {
		s.logger.Warn("Comments of %s/%s hit the page cap %d", s.boardId, s.documentId, s.maxPages)
		s.done = true
		return nil
	}
	s.page++
	commentPagesTotal.Inc()

	form := url.Values{}
	form.Set("id", s.boardId)
	form.Set("no", s.documentId)
	form.Set("cpage", strconv.Itoa(s.page))
	form.Set("managerskill", "")
	form.Set("del_scope", "1")
	form.Set("csort", "")
	resp, err := s.client.Request(s.ctx, &HttpRequest{
		Method:  http.MethodPost,
		Url:     commentEndpoint,
		Form:    form,
		Referer: fmt.Sprintf("%s/board/%s/%s", mobileHost, s.boardId, s.documentId),
		IsXHR:   true,
	}, s.logger)
	if err != nil {
		return err
	}
	if statusCode := resp.StatusCode(); statusCode == 0 || statusCode >= 400 {
		s.logger.Info("Comment page %d of %s/%s failed: %s", s.page, s.boardId, s.documentId, resp.Code)
		s.done = true
		return nil
	}

	comments, lastPage := ParseCommentPage(decodeBody(resp.Body, resp.MaybeContentType), s.page, UpstreamNow())
	s.buffer = comments
	if lastPage {
		s.done = true
	}
	return nil
}

// ParseCommentPage parses one comment fragment. lastPage is set when the pager says there is nothing
// after the requested page, when there is no pager at all, or when the list has no items. Items that
// don't parse are skipped without ending the stream.
func ParseCommentPage(body string, requestedPage int, now time.Time) (comments []Comment, lastPage bool) {
	if strings.TrimSpace(body) == "" {
		return nil, true
	}
	document, err := parseHtml(body)
	if err != nil {
		return nil, true
	}
	// Leading script or style tags of a fragment get hoisted into head by the parser
	topLevel := elementChildren(findOne(document, "//head"))
	topLevel = append(topLevel, elementChildren(findOne(document, "//body"))...)
	if len(topLevel) < 2 {
		return nil, true
	}

	itemCount := 0
	for _, item := range elementChildren(topLevel[1]) {
		if item.Data != "li" {
			continue
		}
		itemCount++
		if comment, ok := parseCommentItem(item, now); ok {
			comments = append(comments, comment)
		}
	}
	if itemCount == 0 {
		return nil, true
	}

	lastPage = true
	for _, node := range topLevel {
		if node.Data != "span" || findAttr(node, "class") != "pgnum" {
			continue
		}
		pieces := textPieces(node)
		if len(pieces) >= 2 {
			total := toInt(strings.TrimPrefix(pieces[1], "/"), 0)
			lastPage = requestedPage >= total
		}
		break
	}
	return comments, lastPage
}

func parseCommentItem(item *html.Node, now time.Time) (Comment, bool) {
	nick := nthElement(item, 0)
	if nick == nil || nthElement(nick, 0) == nil {
		return Comment{}, false
	}

	rawAuthor := leadingText(nick) + leadingText(nthElement(nick, 0))
	authorCode := ""
	if node := findOne(nick, ".//*[contains(@class, 'blockCommentId')]"); node != nil {
		authorCode = findAttr(node, "data-info")
	}
	if authorCode == "" {
		if node := findOne(nick, ".//*[contains(@class, 'blockCommentIp')]"); node != nil {
			authorCode = strings.TrimSpace(innerText(node))
		}
	}

	comment := Comment{
		Id:       findAttr(item, "no"),
		ParentId: findAttr(item, "m_no"),
		PostedAt: ParseTime(leadingText(nthElement(item, 2)), now),
	}
	comment.Author, comment.AuthorCode = NormalizeAuthor(rawAuthor, authorCode)
	comment.IsReply = hasClass(item, "comment-add") || IsReplyParent(comment.ParentId)

	if body := nthElement(item, 1); body != nil {
		comment.Contents = strings.Join(textPieces(body), "\n")
		sticker := findOne(body, ".//img[contains(@src, 'dccon') or contains(@data-original, 'dccon') "+
			"or contains(@data-gif, 'dccon') or contains(@src, 'dicad')]")
		if sticker != nil {
			comment.StickerUrl = pickImageSource(sticker)
		}
		if first := nthElement(body, 0); first != nil && first.Data == "iframe" {
			comment.VoiceUrl = findAttr(first, "src")
		}
	}
	return comment, true
}
