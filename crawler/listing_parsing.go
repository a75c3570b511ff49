package crawler

import (
	"regexp"
	"strings"
	"time"

	"github.com/antchfx/htmlquery"
	"github.com/antchfx/xpath"
	"golang.org/x/net/html"
)

const noPostsMarker = "등록된 게시물이 없습니다."

// The best-of board flags every post as best even when the icon is missing
const bestBoardId = "dcbest"

type ListingOutcome int

const (
	ListingOk ListingOutcome = iota
	ListingEmpty
	ListingParseFailure
)

func (o ListingOutcome) String() string {
	switch o {
	case ListingOk:
		return "ok"
	case ListingEmpty:
		return "empty"
	case ListingParseFailure:
		return "parse_failure"
	default:
		return "unknown"
	}
}

type listingLayout int

const (
	layoutMobileCardWithSubject listingLayout = iota
	layoutMobileCardNoSubject
	layoutMobileBestCard
	layoutDesktopTableRow
)

var gallogCodeRegex *regexp.Regexp
var bestCardIdRegex *regexp.Regexp
var desktopNoRegex *regexp.Regexp
var mobileListItemsXPath *xpath.Expr

func init() {
	gallogCodeRegex = regexp.MustCompile(`gallog\.dcinside\.com/([^/?'"#]+)`)
	bestCardIdRegex = regexp.MustCompile(`/(\d+)(?:\?|$)`)
	desktopNoRegex = regexp.MustCompile(`[?&]no=(\d+)`)
	mobileListItemsXPath = xpath.MustCompile(`//ul[contains(@class, 'gall-detail-lst')]/li`)
}

// ParseListing extracts post summaries from one list page, in page order
func ParseListing(
	page *FetchedPage, boardId string, now time.Time, logger Logger,
) ([]PostSummary, ListingOutcome) {
	if strings.Contains(page.Content, noPostsMarker) {
		return nil, ListingEmpty
	}

	var cards []*html.Node
	for _, item := range htmlquery.QuerySelectorAll(page.Document, mobileListItemsXPath) {
		if hasClassPrefix(item, "ad") {
			continue
		}
		if card := nthElement(item, 0); card != nil {
			cards = append(cards, card)
		}
	}

	var summaries []PostSummary
	if len(cards) > 0 {
		for _, card := range cards {
			layout, ok := detectCardLayout(card)
			if !ok {
				continue
			}
			var summary PostSummary
			switch layout {
			case layoutMobileCardWithSubject, layoutMobileCardNoSubject:
				summary, ok = parseMobileCard(card, layout, boardId, now)
			case layoutMobileBestCard:
				summary, ok = parseBestCard(card, boardId, now)
			default:
				ok = false
			}
			if ok {
				summaries = append(summaries, summary)
			}
		}
		return summaries, ListingOk
	}

	rows := findAll(
		page.Document, "//tr[contains(@class, 'ub-content') and contains(@class, 'us-post')]",
	)
	if len(rows) == 0 {
		logger.Warn("No known listing layout on %s", page.Url)
		return nil, ListingParseFailure
	}
	for _, row := range rows {
		if summary, ok := parseDesktopRow(row, boardId, now); ok {
			summaries = append(summaries, summary)
		}
	}
	return summaries, ListingOk
}

func detectCardLayout(card *html.Node) (listingLayout, bool) {
	link := nthElement(card, 0)
	if link != nil && link.Data == "a" {
		heading := nthElement(link, 0)
		info := nthElement(link, 1)
		if heading != nil && info != nil && info.Data == "ul" && len(elementChildren(heading)) >= 2 {
			items := elementChildren(info)
			if len(items) == 5 && nthElement(items[4], 0) != nil {
				return layoutMobileCardWithSubject, true
			}
			if len(items) >= 4 && len(items) != 5 {
				return layoutMobileCardNoSubject, true
			}
		}
	}
	if findOne(card, ".//a[contains(@class, 'lt')]") != nil {
		return layoutMobileBestCard, true
	}
	return 0, false
}

func parseMobileCard(
	card *html.Node, layout listingLayout, boardId string, now time.Time,
) (PostSummary, bool) {
	link := nthElement(card, 0)
	heading := nthElement(link, 0)
	items := elementChildren(nthElement(link, 1))

	href := findAttr(link, "href")
	if href == "" {
		return PostSummary{}, false
	}
	segments := strings.Split(href, "/")
	documentId, _, _ := strings.Cut(segments[len(segments)-1], "?")
	if !isDigits(documentId) {
		return PostSummary{}, false
	}

	var subject, rawAuthor, timeText string
	var viewCount, voteUpCount int
	if layout == layoutMobileCardWithSubject {
		subject = strings.TrimSpace(leadingText(items[0]))
		rawAuthor = collapsedText(items[1])
		timeText = leadingText(items[2])
		viewCount = toInt(lastField(leadingText(items[3])), 0)
		voteUpCount = toInt(lastField(leadingText(nthElement(items[4], 0))), 0)
	} else {
		rawAuthor = collapsedText(items[0])
		timeText = leadingText(items[1])
		viewCount = toInt(lastField(leadingText(items[2])), 0)
		voteUpCount = toInt(lastField(collapsedText(items[3])), 0)
	}

	iconClass := findAttr(nthElement(heading, 0), "class")
	title := strings.TrimSpace(leadingText(nthElement(heading, 1)))
	if title == "" {
		title = collapsedText(nthElement(heading, 1))
	}
	commentCount := toInt(leadingText(nthElement(nthElement(card, 1), 0)), 0)

	summary := PostSummary{
		Id:           documentId,
		BoardId:      boardId,
		Title:        title,
		Subject:      subject,
		PostedAt:     ParseTime(timeText, now),
		ViewCount:    viewCount,
		VoteUpCount:  voteUpCount,
		CommentCount: commentCount,
	}
	summary.Author, summary.AuthorCode = NormalizeAuthor(rawAuthor, findCardAuthorCode(card))

	switch {
	case strings.Contains(iconClass, "sp-lst-img"):
		summary.HasImage = true
	case strings.Contains(iconClass, "sp-lst-recoimg"):
		summary.HasImage = true
		summary.IsRecommended = true
	case strings.Contains(iconClass, "sp-lst-recotxt"):
		summary.IsRecommended = true
	case strings.Contains(iconClass, "sp-lst-best"):
		summary.IsBest = true
	case strings.Contains(iconClass, "sp-lst-hit"):
		summary.IsHot = true
	}
	if strings.HasSuffix(iconClass, "img") {
		summary.HasImage = true
	}
	return summary, true
}

func findCardAuthorCode(card *html.Node) string {
	for _, node := range findAll(card, ".//span[contains(@class, 'blockInfo')]") {
		if code := strings.TrimSpace(findAttr(node, "data-info")); code != "" {
			return code
		}
	}
	for _, node := range findAll(card, ".//a[contains(@href, 'gallog.dcinside.com/')]") {
		if match := gallogCodeRegex.FindStringSubmatch(findAttr(node, "href")); match != nil {
			return match[1]
		}
	}
	for _, node := range findAll(card, ".//*[@onclick]") {
		if match := gallogCodeRegex.FindStringSubmatch(findAttr(node, "onclick")); match != nil {
			return match[1]
		}
	}
	return ""
}

func parseBestCard(card *html.Node, boardId string, now time.Time) (PostSummary, bool) {
	link := findOne(card, ".//a[contains(@class, 'lt')]")
	match := bestCardIdRegex.FindStringSubmatch(findAttr(link, "href"))
	if match == nil {
		return PostSummary{}, false
	}

	summary := PostSummary{
		Id:       match[1],
		BoardId:  boardId,
		PostedAt: now,
	}
	if subjectIn := findOne(link, ".//span[contains(@class, 'subjectin')]"); subjectIn != nil {
		summary.Title = collapsedText(subjectIn)
		if subjectTag := findOne(subjectIn, ".//b"); subjectTag != nil {
			summary.Subject = strings.TrimSpace(innerText(subjectTag))
		}
	}
	if summary.Title == "" {
		summary.Title = collapsedText(link)
	}

	rawAuthor := ""
	info := findAll(link, ".//ul[contains(@class, 'ginfo')]/li")
	if len(info) >= 1 {
		rawAuthor = collapsedText(info[0])
	}
	if len(info) >= 2 {
		summary.PostedAt = ParseTime(collapsedText(info[1]), now)
	}
	if len(info) >= 3 {
		summary.ViewCount = toInt(collapsedText(info[2]), 0)
	}
	if len(info) >= 4 {
		summary.VoteUpCount = toInt(collapsedText(info[3]), 0)
	}
	if commentLink := findOne(card, ".//a[contains(@class, 'rt')]"); commentLink != nil {
		summary.CommentCount = toInt(collapsedText(commentLink), 0)
	}
	summary.Author, summary.AuthorCode = NormalizeAuthor(rawAuthor, findCardAuthorCode(card))

	var iconTexts, iconClasses []string
	for _, icon := range findAll(link, ".//span[contains(@class, 'sp-lst')]") {
		iconTexts = append(iconTexts, leadingText(icon))
		iconClasses = append(iconClasses, findAttr(icon, "class"))
	}
	flags := strings.Join(iconTexts, " ") + " " + strings.Join(iconClasses, " ")
	summary.HasImage = strings.Contains(flags, "이미지") || strings.Contains(flags, "img")
	summary.IsRecommended = strings.Contains(flags, "reco")
	summary.IsBest = strings.Contains(flags, "best") || boardId == bestBoardId
	summary.IsHot = strings.Contains(flags, "hit")
	return summary, true
}

func parseDesktopRow(row *html.Node, boardId string, now time.Time) (PostSummary, bool) {
	link := findOne(row, ".//td[contains(@class, 'gall_tit')]//a[contains(@href, 'view')]")
	if link == nil {
		return PostSummary{}, false
	}
	documentId := findAttr(row, "data-no")
	if match := desktopNoRegex.FindStringSubmatch(findAttr(link, "href")); match != nil {
		documentId = match[1]
	}
	if !isDigits(documentId) {
		return PostSummary{}, false
	}

	summary := PostSummary{
		Id:      documentId,
		BoardId: boardId,
		Title:   collapsedText(link),
	}

	rawAuthor, authorCode := "", ""
	if writer := findOne(row, ".//td[contains(@class, 'gall_writer')]"); writer != nil {
		rawAuthor = strings.TrimSpace(findAttr(writer, "data-nick"))
		if rawAuthor == "" {
			rawAuthor = collapsedText(writer)
		}
		authorCode = strings.TrimSpace(findAttr(writer, "data-uid"))
		if authorCode == "" {
			authorCode = strings.TrimSpace(findAttr(writer, "data-ip"))
		}
	}
	summary.Author, summary.AuthorCode = NormalizeAuthor(rawAuthor, authorCode)

	timeText := ""
	if date := findOne(row, ".//td[contains(@class, 'gall_date')]"); date != nil {
		timeText = strings.TrimSpace(findAttr(date, "title"))
		if timeText == "" {
			timeText = strings.TrimSpace(innerText(date))
		}
	}
	summary.PostedAt = ParseTime(timeText, now)

	summary.ViewCount = toInt(directText(findAll(row, ".//td[contains(@class, 'gall_count')]")), 0)
	summary.VoteUpCount = toInt(directText(findAll(row, ".//td[contains(@class, 'gall_recommend')]")), 0)
	summary.CommentCount = toInt(directText(findAll(
		row, ".//a[contains(@class, 'reply_numbox')]//span[contains(@class, 'reply_num')]",
	)), 0)

	var emClasses []string
	for _, em := range findAll(row, ".//td[contains(@class, 'gall_tit')]//em") {
		emClasses = append(emClasses, findAttr(em, "class"))
	}
	flags := findAttr(row, "data-type") + " " + strings.Join(emClasses, " ")
	summary.HasImage = strings.Contains(flags, "pic") || strings.Contains(flags, "img")
	summary.IsRecommended = strings.Contains(flags, "recom")
	summary.IsBest = strings.Contains(flags, "best")
	summary.IsHot = strings.Contains(flags, "issue") || strings.Contains(flags, "hit")
	return summary, true
}

// directText joins the text nodes that are immediate children of the given elements
func directText(nodes []*html.Node) string {
	var builder strings.Builder
	for _, node := range nodes {
		for child := node.FirstChild; child != nil; child = child.NextSibling {
			if child.Type == html.TextNode {
				builder.WriteString(child.Data)
			}
		}
	}
	return builder.String()
}
