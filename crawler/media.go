package crawler

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const MediaUserAgent = "Mozilla/5.0 (Linux; Android 10; SM-G960N) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Chrome/100.0.4896.127 Mobile Safari/537.36"

var ErrMediaUnavailable = errors.New("media upstream unreachable")

type Media struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// NormalizeMediaUrl turns scheme-relative urls into https and rejects anything that isn't http(s)
func NormalizeMediaUrl(src string) (string, error) {
	src = strings.TrimSpace(src)
	if strings.HasPrefix(src, "//") {
		src = "https:" + src
	}
	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		return "", ErrInvalidMediaUrl
	}
	return src, nil
}

// MediaReferer is the post page the media belongs to. The upstream refuses hotlinks without it.
func MediaReferer(boardId string, postId string) string {
	if boardId == "" || postId == "" || postId == "0" {
		return mobileHost + "/"
	}
	return fmt.Sprintf("%s/board/%s/%s", mobileHost, boardId, postId)
}

// FetchMedia downloads media on behalf of a post. Upstream statuses are passed through as is,
// transport failures become ErrMediaUnavailable.
func FetchMedia(
	ctx context.Context, client HttpClient, src string, boardId string, postId string, logger Logger,
) (*Media, error) {
	mediaUrl, err := NormalizeMediaUrl(src)
	if err != nil {
		return nil, err
	}

	resp, err := client.Request(ctx, &HttpRequest{
		Method:    "GET",
		Url:       mediaUrl,
		Referer:   MediaReferer(boardId, postId),
		UserAgent: MediaUserAgent,
	}, logger)
	if err != nil {
		return nil, err
	}
	if resp.IsTransportFailure() {
		logger.Info("Media fetch %s failed: %s", mediaUrl, resp.Code)
		recordMediaFetch(fetchOutcomeTransport)
		return nil, ErrMediaUnavailable
	}
	recordMediaFetch(fetchOutcomeOk)

	contentType := "application/octet-stream"
	if resp.MaybeContentType != nil && *resp.MaybeContentType != "" {
		contentType = *resp.MaybeContentType
	}
	return &Media{
		StatusCode:  resp.StatusCode(),
		ContentType: contentType,
		Body:        resp.Body,
	}, nil
}

// RewriteLazyImages points lazily loaded images at the proxy, pairing them with the extracted
// image list in order. Images past the end of the list are left alone.
func RewriteLazyImages(documentHtml string, images []ImageRef, proxyUrl func(image ImageRef) string) string {
	if len(images) == 0 {
		return documentHtml
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(documentHtml))
	if err != nil {
		return documentHtml
	}

	doc.Find("img.lazy").EachWithBreak(func(i int, img *goquery.Selection) bool {
		if i >= len(images) {
			return false
		}
		img.SetAttr("src", proxyUrl(images[i]))
		img.SetAttr("loading", "lazy")
		img.SetAttr("decoding", "async")
		return true
	})

	rewritten, err := doc.Find("body").Html()
	if err != nil {
		return documentHtml
	}
	return rewritten
}
