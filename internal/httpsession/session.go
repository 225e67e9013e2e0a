// Package httpsession is a thin wrapper over an authenticated HTTP client
// that classifies every response into the crawl engine's error taxonomy so
// callers never branch on raw status codes.
package httpsession

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/familysearch/crawlengine/internal/crawlerr"
)

// Response is a successful (2xx) fetch result.
type Response struct {
	Status  int
	Headers http.Header
	Body    []byte
}

// Session issues authenticated GET requests against FamilySearch's API and
// classifies failures per the crawl engine's Kind taxonomy.
type Session struct {
	client       *http.Client
	sessionToken string
	requestCount int64
}

// New builds a Session using sessionToken as a bearer credential and timeout
// as the per-request deadline.
func New(sessionToken string, timeout time.Duration) *Session {
	return &Session{
		client:       &http.Client{Timeout: timeout},
		sessionToken: sessionToken,
	}
}

// RequestCount returns the number of Get calls issued so far. Monotonic,
// safe to read concurrently with Get.
func (s *Session) RequestCount() int64 {
	return atomic.LoadInt64(&s.requestCount)
}

// Get issues an authenticated GET to url and classifies the outcome.
//
// 2xx returns a Response. Every other outcome returns a nil Response and a
// *crawlerr.Error tagged with the Kind the caller should act on:
// AuthExpired (401, fatal), Throttled (429/5xx, retry via the rate
// controller), PermanentFailure (other 4xx, log and skip), or Transient
// (network/transport error, retry up to max_retries).
func (s *Session) Get(ctx context.Context, url string) (*Response, error) {
	atomic.AddInt64(&s.requestCount, 1)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindTransient, "httpsession.get", err)
	}
	if s.sessionToken != "" {
		req.Header.Set("Authorization", "Bearer "+s.sessionToken)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindTransient, "httpsession.get", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, crawlerr.New(crawlerr.KindTransient, "httpsession.get", err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return &Response{Status: resp.StatusCode, Headers: resp.Header, Body: body}, nil
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, crawlerr.New(crawlerr.KindAuthExpired, "httpsession.get",
			fmt.Errorf("session expired fetching %s", url))
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, crawlerr.New(crawlerr.KindThrottled, "httpsession.get",
			fmt.Errorf("status %d fetching %s", resp.StatusCode, url))
	default:
		return nil, crawlerr.New(crawlerr.KindPermanentFailure, "httpsession.get",
			fmt.Errorf("status %d fetching %s", resp.StatusCode, url))
	}
}
