package crawler

import (
	"context"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const galleryMainUrl = "https://gall.dcinside.com/"
const gallerySearchUrl = "https://search.dcinside.com/gallery/q/"

const DefaultMaxRankingItems = 300

// The main page and search are served to plain desktop agents
const desktopUserAgent = "Mozilla/5.0"

var rankNumberRegex *regexp.Regexp
var rankPrefixRegex *regexp.Regexp
var gallerySuffixRegex *regexp.Regexp

func init() {
	rankNumberRegex = regexp.MustCompile(`\d+`)
	rankPrefixRegex = regexp.MustCompile(`^\d+\.\s*`)
	gallerySuffixRegex = regexp.MustCompile(`\s*[ⓜⓝⓟ]$`)
}

type RankingItem struct {
	Rank    int    `json:"rank"`
	Name    string `json:"name"`
	BoardId string `json:"boardId"`
}

type GallerySearchResult struct {
	Name              string `json:"name"`
	BoardId           string `json:"boardId"`
	Kind              Kind   `json:"kind"`
	KindLabel         string `json:"kindLabel"`
	Extra             string `json:"extra"`
	SourceUrl         string `json:"sourceUrl"`
	InternalSupported bool   `json:"internalSupported"`
}

// FetchTopGalleries loads the hot gallery ranking from the upstream main page
func FetchTopGalleries(ctx context.Context, client HttpClient, maxItems int, logger Logger) ([]RankingItem, error) {
	content, err := fetchDesktopPage(ctx, client, galleryMainUrl, logger)
	if err != nil {
		return nil, err
	}
	return ParseTopGalleries(content, maxItems)
}

// ParseTopGalleries returns the ranking sorted by rank. When a rank repeats the last row wins.
func ParseTopGalleries(content string, maxItems int) ([]RankingItem, error) {
	if maxItems <= 0 {
		maxItems = DefaultMaxRankingItems
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	layer := doc.Find("#heung_gall_all_lyr").First()
	if layer.Length() == 0 {
		return nil, ErrParseFailure
	}

	byRank := make(map[int]RankingItem)
	layer.Find("ul.pop_hotmgall_listbox li > a[href]").Each(func(_ int, anchor *goquery.Selection) {
		rankNode := anchor.Find("span.num").First()
		if rankNode.Length() == 0 {
			return
		}
		rankText := rankNumberRegex.FindString(strings.TrimSpace(rankNode.Text()))
		if rankText == "" {
			return
		}
		rank, err := strconv.Atoi(rankText)
		if err != nil {
			return
		}
		href, _ := anchor.Attr("href")
		boardId := boardIdFromQuery(href)
		if boardId == "" {
			return
		}

		name := rankPrefixRegex.ReplaceAllString(selectionText(anchor), "")
		byRank[rank] = RankingItem{
			Rank:    rank,
			Name:    strings.TrimSpace(name),
			BoardId: boardId,
		}
	})

	items := make([]RankingItem, 0, len(byRank))
	for _, item := range byRank {
		items = append(items, item)
	}
	slices.SortFunc(items, func(a, b RankingItem) int {
		return a.Rank - b.Rank
	})
	if len(items) > maxItems {
		items = items[:maxItems]
	}
	return items, nil
}

// SearchGalleries queries the upstream gallery search
func SearchGalleries(ctx context.Context, client HttpClient, query string, logger Logger) ([]GallerySearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	content, err := fetchDesktopPage(ctx, client, gallerySearchUrl+url.PathEscape(query), logger)
	if err != nil {
		return nil, err
	}
	return ParseGallerySearch(content)
}

func ParseGallerySearch(content string) ([]GallerySearchResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil, err
	}
	container := doc.Find("div.integrate_cont.gallsch_result_all").First()
	if container.Length() == 0 {
		return nil, nil
	}

	var results []GallerySearchResult
	seen := make(map[string]bool)
	container.Find("ul.integrate_cont_list > li").Each(func(_ int, item *goquery.Selection) {
		anchor := item.Find("a.gallname_txt[href]").First()
		if anchor.Length() == 0 {
			return
		}
		href, _ := anchor.Attr("href")
		boardId := boardIdFromQuery(href)
		if boardId == "" || seen[boardId] {
			return
		}
		seen[boardId] = true

		name := gallerySuffixRegex.ReplaceAllString(selectionText(anchor), "")
		var details []string
		if ranking := item.Find("span.info.ranking").First(); ranking.Length() > 0 {
			details = append(details, selectionText(ranking))
		}
		if count := item.Find("span.info.txtnum").First(); count.Length() > 0 {
			details = append(details, selectionText(count))
		}

		kind := kindFromPath(href)
		results = append(results, GallerySearchResult{
			Name:              strings.TrimSpace(name),
			BoardId:           boardId,
			Kind:              kind,
			KindLabel:         kind.Label(),
			Extra:             strings.Join(details, " | "),
			SourceUrl:         href,
			InternalSupported: kind == KindNormal || kind == KindMinor || kind == KindMini,
		})
	})
	return results, nil
}

func fetchDesktopPage(ctx context.Context, client HttpClient, pageUrl string, logger Logger) (string, error) {
	resp, err := client.Request(ctx, &HttpRequest{
		Method:    "GET",
		Url:       pageUrl,
		UserAgent: desktopUserAgent,
	}, logger)
	if err != nil {
		return "", err
	}
	statusCode := resp.StatusCode()
	if statusCode == 0 || statusCode >= 400 {
		logger.Info("Fetching %s failed: %s", pageUrl, resp.Code)
		recordFetch(pageUrl, fetchOutcomeStatus)
		return "", ErrNotFound
	}
	recordFetch(pageUrl, fetchOutcomeOk)
	return decodeBody(resp.Body, resp.MaybeContentType), nil
}

func boardIdFromQuery(href string) string {
	uri, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return uri.Query().Get("id")
}

func kindFromPath(href string) Kind {
	switch {
	case strings.Contains(href, "/mgallery/"):
		return KindMinor
	case strings.Contains(href, "/mini/"):
		return KindMini
	case strings.Contains(href, "/person/"):
		return KindPerson
	default:
		return KindNormal
	}
}

// selectionText joins the text nodes with single spaces
func selectionText(selection *goquery.Selection) string {
	var pieces []string
	for _, node := range selection.Nodes {
		pieces = append(pieces, textPieces(node)...)
	}
	return strings.Join(pieces, " ")
}
