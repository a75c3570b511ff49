package crawler

import (
	"context"
	"fmt"
	"sync"
)

// MockHttpClient serves canned responses by url and counts every request it receives.
// Unknown urls get a 404.
type MockHttpClient struct {
	mutex               sync.Mutex
	responses           map[string]*HttpResponse
	handler             func(req *HttpRequest) (*HttpResponse, bool)
	NetworkRequestsMade int
	RequestedUrls       []string
}

func NewMockHttpClient() *MockHttpClient {
	return &MockHttpClient{
		responses:           make(map[string]*HttpResponse),
		handler:             nil,
		NetworkRequestsMade: 0,
		RequestedUrls:       nil,
	}
}

func (c *MockHttpClient) AddHtml(rawUrl string, body string) {
	c.AddResponse(rawUrl, "200", "text/html; charset=utf-8", []byte(body))
}

func (c *MockHttpClient) AddResponse(rawUrl string, code string, contentType string, body []byte) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	var maybeContentType *string
	if contentType != "" {
		maybeContentType = &contentType
	}
	c.responses[rawUrl] = &HttpResponse{
		Code:             code,
		MaybeContentType: maybeContentType,
		FinalUrl:         rawUrl,
		Body:             body,
	}
}

// SetHandler is consulted before the canned responses, for requests that depend on the form
func (c *MockHttpClient) SetHandler(handler func(req *HttpRequest) (*HttpResponse, bool)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.handler = handler
}

func (c *MockHttpClient) Request(ctx context.Context, req *HttpRequest, logger Logger) (*HttpResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.NetworkRequestsMade++
	c.RequestedUrls = append(c.RequestedUrls, req.Url)

	if c.handler != nil {
		if resp, ok := c.handler(req); ok {
			return resp, nil
		}
	}
	if resp, ok := c.responses[req.Url]; ok {
		return resp, nil
	}
	logger.Info("Mock has no response for %s", req.Url)
	return newHttpResponse(fmt.Sprint(404)), nil
}

func (c *MockHttpClient) RequestCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.NetworkRequestsMade
}
