package crawler

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const MobileUserAgent = "Mozilla/5.0 (Linux; Android 7.0; SM-G892A Build/NRD90M; wv) AppleWebKit/537.36 " +
	"(KHTML, like Gecko) Version/4.0 Chrome/67.0.3396.87 Mobile Safari/537.36"

// Cookies that make the upstream serve full-size lists instead of the trimmed mobile ones
var sessionCookies = []*http.Cookie{
	{Name: "__gat_mobile_search", Value: "1"},
	{Name: "list_count", Value: strconv.Itoa(ItemsPerListPage)},
	{Name: "_ga", Value: "GA1.2.693521455.1588839880"},
}

type HttpRequest struct {
	Method    string
	Url       string
	Form      url.Values
	Referer   string
	UserAgent string
	IsXHR     bool
}

func GetRequest(rawUrl string) *HttpRequest {
	return &HttpRequest{
		Method: http.MethodGet,
		Url:    rawUrl,
	}
}

type HttpResponse struct {
	Code             string
	MaybeContentType *string
	FinalUrl         string
	Body             []byte
}

func newHttpResponse(code string) *HttpResponse {
	return &HttpResponse{
		Code:             code,
		MaybeContentType: nil,
		FinalUrl:         "",
		Body:             nil,
	}
}

// StatusCode is 0 when the request never got an HTTP status
func (r *HttpResponse) StatusCode() int {
	code, err := strconv.Atoi(r.Code)
	if err != nil {
		return 0
	}
	return code
}

func (r *HttpResponse) IsTransportFailure() bool {
	return r.StatusCode() == 0
}

// HttpClient never returns transport failures as errors, they are folded into the response code.
// The only error is the context being done.
type HttpClient interface {
	Request(ctx context.Context, req *HttpRequest, logger Logger) (*HttpResponse, error)
}

type HttpClientImpl struct {
	Client           *http.Client
	MaxContentLength int
}

func NewHttpClientImpl(timeout time.Duration, maxContentLength int) *HttpClientImpl {
	var client http.Client
	client.Timeout = timeout
	if maxContentLength <= 0 {
		maxContentLength = defaultMaxContentLength
	}
	return &HttpClientImpl{
		Client:           &client,
		MaxContentLength: maxContentLength,
	}
}

const defaultMaxContentLength = 20 * 1024 * 1024

const codeSSLError = "SSLError"
const codeResponseBodyTooBig = "ResponseBodyTooBig"
const codeTimeout = "Timeout"
const codeError = "Error"

func (c *HttpClientImpl) Request(ctx context.Context, request *HttpRequest, logger Logger) (*HttpResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	method := request.Method
	if method == "" {
		method = http.MethodGet
	}
	var body io.Reader
	if request.Form != nil {
		body = strings.NewReader(request.Form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, request.Url, body)
	if err != nil {
		logger.Info("HTTP new request error: %v", err)
		return newHttpResponse(codeError), nil
	}

	userAgent := request.UserAgent
	if userAgent == "" {
		userAgent = MobileUserAgent
	}
	req.Header.Set("User-Agent", userAgent)
	if request.Referer != "" {
		req.Header.Set("Referer", request.Referer)
	}
	if request.IsXHR {
		req.Header.Set("Accept", "*/*")
		req.Header.Set("X-Requested-With", "XMLHttpRequest")
		req.Header.Set("Accept-Language", "en-US,en;q=0.5")
		req.Header.Set("Origin", "https://m.dcinside.com")
	}
	if request.Form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	}
	for _, cookie := range sessionCookies {
		req.AddCookie(cookie)
	}

	resp, err := c.Client.Do(req)
	var hostnameError x509.HostnameError
	var unknownAuthorityError x509.UnknownAuthorityError
	if ctxErr := ctx.Err(); err != nil && ctxErr != nil {
		return nil, ctxErr
	} else if errors.As(err, &hostnameError) || errors.As(err, &unknownAuthorityError) {
		return newHttpResponse(codeSSLError), nil
	} else if os.IsTimeout(err) {
		return newHttpResponse(codeTimeout), nil
	} else if err != nil {
		logger.Info("HTTP request error: %v", err)
		return newHttpResponse(codeError), nil
	}
	defer resp.Body.Close()

	if resp.ContentLength > int64(c.MaxContentLength) {
		return newHttpResponse(codeResponseBodyTooBig), nil
	}

	var respBody []byte
	var buf [64 * 1024]byte
	for {
		n, err := resp.Body.Read(buf[:])
		if n > 0 {
			respBody = append(respBody, buf[:n]...)
			if len(respBody) > c.MaxContentLength {
				return newHttpResponse(codeResponseBodyTooBig), nil
			}
		}
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			logger.Info("HTTP read body error: %v", err)
			return newHttpResponse(codeError), nil
		}
	}

	var maybeContentType *string
	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		contentType = strings.Clone(contentType)
		maybeContentType = &contentType
	}

	return &HttpResponse{
		Code:             fmt.Sprint(resp.StatusCode),
		MaybeContentType: maybeContentType,
		FinalUrl:         resp.Request.URL.String(),
		Body:             respBody,
	}, nil
}
