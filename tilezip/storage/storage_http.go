package storage

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/flaneur2020/tilezip/tilezip/logger"
	"go.uber.org/ratelimit"
)

// DefaultTimeout bounds a single outbound request.
const DefaultTimeout = 5 * time.Second

// HTTPOptions configures an HTTPStorage.
type HTTPOptions struct {
	// Timeout bounds each request, including reading the body. Zero means DefaultTimeout.
	Timeout time.Duration
	// Insecure disables TLS certificate verification.
	Insecure bool
	// RateLimit caps outbound requests per second. Zero means unlimited.
	RateLimit int
	// UserAgent is sent with every request when set.
	UserAgent string
}

// HTTPStorage reads objects from a static file server that supports HTTP
// byte-range requests. Each call is a single attempt; nothing is retried.
type HTTPStorage struct {
	httpClient *http.Client
	limiter    ratelimit.Limiter
	userAgent  string
}

var _ Storage = (*HTTPStorage)(nil)

// NewHTTPStorage creates an HTTP-backed storage.
func NewHTTPStorage(opts HTTPOptions) *HTTPStorage {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	client := &http.Client{Timeout: timeout}
	if opts.Insecure {
		client.Transport = &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	limiter := ratelimit.NewUnlimited()
	if opts.RateLimit > 0 {
		limiter = ratelimit.New(opts.RateLimit, ratelimit.WithoutSlack)
	}

	return &HTTPStorage{
		httpClient: client,
		limiter:    limiter,
		userAgent:  opts.UserAgent,
	}
}

// Get reads a whole object and requires a 200 response.
func (s *HTTPStorage) Get(ctx context.Context, url string) (io.ReadCloser, error) {
	req, err := s.newRequest(ctx, url)
	if err != nil {
		return nil, err
	}

	logger.Debug("GET %s", url)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, fmt.Errorf("request returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp.Body, nil
}

// ReadRange issues a GET with a Range header and accepts only a 206 response
// whose Content-Range, when present, names exactly the requested span.
func (s *HTTPStorage) ReadRange(ctx context.Context, url string, offset int64, length int64) (io.ReadCloser, error) {
	if offset < 0 {
		return nil, fmt.Errorf("offset must be non-negative")
	}
	if length <= 0 {
		return nil, fmt.Errorf("length must be positive")
	}

	req, err := s.newRequest(ctx, url)
	if err != nil {
		return nil, err
	}
	end := offset + length - 1
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", offset, end))
	// Payloads are served as stored; any transfer encoding would change the bytes.
	req.Header.Set("Accept-Encoding", "identity")

	logger.Debug("GET %s Range: bytes=%d-%d", url, offset, end)
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusPartialContent {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil, fmt.Errorf("range requests not supported: server returned the whole object")
		}
		return nil, fmt.Errorf("range request failed: %d %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if crange := resp.Header.Get("Content-Range"); crange != "" {
		gotStart, gotEnd, err := parseContentRange(crange)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if gotStart != offset || gotEnd != end {
			resp.Body.Close()
			return nil, fmt.Errorf("server returned bytes %d-%d, requested %d-%d", gotStart, gotEnd, offset, end)
		}
	}

	return resp.Body, nil
}

func (s *HTTPStorage) newRequest(ctx context.Context, url string) (*http.Request, error) {
	s.limiter.Take()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}
	return req, nil
}

// parseContentRange parses "bytes <start>-<end>/<size>".
func parseContentRange(value string) (int64, int64, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "bytes ") {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	span, _, ok := strings.Cut(strings.TrimPrefix(value, "bytes "), "/")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	start, err := strconv.ParseInt(startStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	end, err := strconv.ParseInt(endStr, 10, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return start, end, nil
}
