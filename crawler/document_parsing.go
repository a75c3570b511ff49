package crawler

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
)

const untitledDocument = "제목 없음"

// Returned in place of a count that no selector could find
const countNotFound = -1

var headerXPaths = []string{
	"//div[contains(@class, 'gallview-tit-box')]",
	"//div[@class='gall-tit-box']",
	"//div[contains(@class, 'gallview_head')]",
}

var contentXPaths = []string{
	"//div[@class='thum-txtin']",
	"//div[contains(@class, 'writing_view_box')]",
	"//div[contains(@class, 'thum-txt-area')]",
}

var excludedImagePrefixes = []string{
	"https://nstatic",
	"https://img.iacstatic.co.kr",
}

var gallogPathRegex *regexp.Regexp
var headerTimeRegex *regexp.Regexp
var viewCountRegex *regexp.Regexp
var voteUpRegex *regexp.Regexp
var voteDownRegex *regexp.Regexp
var documentPolicy *bluemonday.Policy

func init() {
	gallogPathRegex = regexp.MustCompile(`/gallog/([^/?'"#]+)`)
	headerTimeRegex = regexp.MustCompile(`\d{4}\.\d{2}\.\d{2}\s+\d{2}:\d{2}(?::\d{2})?`)
	viewCountRegex = regexp.MustCompile(`조회\s*([0-9,]+)`)
	voteUpRegex = regexp.MustCompile(`추천\s*([0-9,]+)`)
	voteDownRegex = regexp.MustCompile(`(?:비추|비추천)\s*([0-9,]+)`)

	documentPolicy = bluemonday.UGCPolicy()
	documentPolicy.AllowAttrs("class", "data-original", "data-gif", "loading", "decoding").OnElements("img")
	documentPolicy.AllowAttrs("class").OnElements("div", "span", "p")
	documentPolicy.AllowAttrs("src", "poster", "controls", "loop", "muted", "playsinline", "type").
		OnElements("video", "source")
	documentPolicy.RequireNoFollowOnLinks(false)
	documentPolicy.AllowRelativeURLs(true)
}

// FetchDocument loads a document from the first mirror that serves it.
// Returns ErrNotFound when no mirror has it or the id isn't numeric, and ErrParseFailure when the
// body is unrecognizable.
func FetchDocument(
	ctx context.Context, client HttpClient, boardId string, documentId string, kind Kind, logger Logger,
) (*Document, error) {
	if !isDigits(documentId) {
		logger.Info("Document id %q of %s is not a number", documentId, boardId)
		return nil, ErrNotFound
	}
	page, err := FetchFirst(ctx, client, BuildViewUrls(boardId, documentId, kind), logger)
	if err != nil {
		return nil, err
	}
	return ParseDocument(page, boardId, documentId, UpstreamNow(), logger)
}

func ParseDocument(
	page *FetchedPage, boardId string, documentId string, now time.Time, logger Logger,
) (*Document, error) {
	var header *html.Node
	for _, xpath := range headerXPaths {
		if header = findOne(page.Document, xpath); header != nil {
			break
		}
	}
	if header == nil {
		logger.Info("Document %s/%s has no header block on %s", boardId, documentId, page.Url)
		return nil, ErrNotFound
	}

	var content *html.Node
	for _, xpath := range contentXPaths {
		if content = findOne(page.Document, xpath); content != nil {
			break
		}
	}
	if content == nil {
		logger.Warn("Document %s/%s has no content block on %s", boardId, documentId, page.Url)
		return nil, ErrParseFailure
	}

	metaText := collapsedText(header)

	title := ""
	if titleNode := findOne(header, ".//span[contains(@class, 'tit')]"); titleNode != nil {
		title = strings.TrimSpace(innerText(titleNode))
	} else {
		title = metaText
	}
	if title == "" {
		title = untitledDocument
	}

	rawAuthor, authorCode := extractDocumentAuthor(header)

	timeText := ""
	if node := findOne(header, ".//span[@class='date'] | .//span[contains(@class, 'time')]"); node != nil {
		timeText = strings.TrimSpace(innerText(node))
	}
	if timeText == "" {
		if node := findOne(header, ".//span[contains(@class, 'gall_date')]"); node != nil {
			timeText = strings.TrimSpace(innerText(node))
		}
	}
	if timeText == "" {
		timeText = headerTimeRegex.FindString(metaText)
	}
	postedAt := now
	if timeText != "" {
		postedAt = ParseTime(timeText, now)
	}

	firstText := func(xpath string) string {
		node := findOne(page.Document, xpath)
		if node == nil {
			return ""
		}
		return strings.TrimSpace(innerText(node))
	}
	regexCount := func(regex *regexp.Regexp) int {
		if match := regex.FindStringSubmatch(metaText); match != nil {
			return toInt(match[1], 0)
		}
		return 0
	}

	viewCount := toInt(firstText("//ul[@class='ginfo2']/li[contains(., '조회')]"), countNotFound)
	voteUpCount := toInt(firstText("//span[@id='recomm_btn']"), countNotFound)
	voteDownCount := toInt(firstText("//span[@id='nonrecomm_btn']"), countNotFound)
	memberVoteUpCount := toInt(firstText("//span[@id='recomm_btn_member']"), 0)
	if viewCount < 0 {
		viewCount = regexCount(viewCountRegex)
	}
	if voteUpCount < 0 && isDigits(documentId) {
		voteUpCount = toInt(
			firstText(fmt.Sprintf("//*[@id='recommend_view_up_%s']", documentId)), countNotFound,
		)
	}
	if voteUpCount < 0 {
		voteUpCount = regexCount(voteUpRegex)
	}
	if voteDownCount < 0 {
		voteDownCount = regexCount(voteDownRegex)
	}
	if memberVoteUpCount < 0 {
		memberVoteUpCount = 0
	}

	sanitizeContent(content)

	var lines []string
	for _, piece := range textPieces(content) {
		if strings.HasPrefix(piece, "이미지 광고") {
			continue
		}
		lines = append(lines, piece)
	}

	var images []ImageRef
	for _, img := range findAll(content, ".//img") {
		src := pickImageSource(img)
		if src == "" || hasExcludedImagePrefix(src) {
			continue
		}
		images = append(images, ImageRef{
			SourceUrl: src,
			BoardId:   boardId,
			PostId:    documentId,
		})
	}

	document := &Document{
		Id:                documentId,
		BoardId:           boardId,
		Title:             title,
		PostedAt:          postedAt,
		ViewCount:         viewCount,
		VoteUpCount:       voteUpCount,
		VoteDownCount:     voteDownCount,
		MemberVoteUpCount: memberVoteUpCount,
		Contents:          strings.Join(lines, "\n"),
		Html:              documentPolicy.Sanitize(renderHtml(content)),
		Images:            images,
	}
	document.Author, document.AuthorCode = NormalizeAuthor(rawAuthor, authorCode)
	return document, nil
}

func extractDocumentAuthor(header *html.Node) (author string, code string) {
	if item := findOne(header, ".//ul[contains(@class, 'ginfo2')]/li[1]"); item != nil {
		author = strings.TrimSpace(innerText(item))
		if link := findOne(item, "(.//a[contains(@href, '/gallog/')])[1]"); link != nil {
			if match := gallogPathRegex.FindStringSubmatch(findAttr(link, "href")); match != nil {
				code = match[1]
			}
		}
	}
	if author == "" || author == AnonymousName {
		if nickname := findOne(header, ".//span[contains(@class, 'nickname')]"); nickname != nil {
			if text := strings.TrimSpace(innerText(nickname)); text != "" {
				author = text
			}
		}
	}

	if code == "" {
		if ip := findOne(header, ".//span[@class='ip']"); ip != nil {
			code = strings.TrimSpace(innerText(ip))
		}
	}
	if code == "" {
		for _, link := range findAll(header, ".//a[contains(@href, 'gallog.dcinside.com/')]") {
			if match := gallogCodeRegex.FindStringSubmatch(findAttr(link, "href")); match != nil {
				code = match[1]
				break
			}
		}
	}
	if code == "" {
		for _, link := range findAll(header, ".//a[contains(@href, '/gallog/')]") {
			if match := gallogPathRegex.FindStringSubmatch(findAttr(link, "href")); match != nil {
				code = match[1]
				break
			}
		}
	}
	if code == "" {
		for _, node := range findAll(header, ".//*[@onclick]") {
			if match := gallogCodeRegex.FindStringSubmatch(findAttr(node, "onclick")); match != nil {
				code = match[1]
				break
			}
		}
	}
	return author, code
}

// sanitizeContent drops ad containers and tracking images before any extraction happens
func sanitizeContent(content *html.Node) {
	for _, adv := range findAll(content, ".//div[contains(@class, 'adv-groupin')]") {
		removeNode(adv)
	}
	for _, img := range findAll(content, ".//img") {
		if strings.HasPrefix(findAttr(img, "src"), "https://nstatic") && findAttr(img, "data-original") == "" {
			removeNode(img)
		}
	}
}

// Lazily loaded media keeps the real url in data-gif or data-original
func pickImageSource(img *html.Node) string {
	for _, key := range []string{"data-gif", "data-original", "src"} {
		if src := strings.TrimSpace(findAttr(img, key)); src != "" {
			return src
		}
	}
	return ""
}

func hasExcludedImagePrefix(src string) bool {
	for _, prefix := range excludedImagePrefixes {
		if strings.HasPrefix(src, prefix) {
			return true
		}
	}
	return false
}
