package batch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/familysearch/crawlengine/internal/config"
	"github.com/familysearch/crawlengine/internal/crawlerr"
	"github.com/familysearch/crawlengine/internal/httpsession"
	"github.com/familysearch/crawlengine/internal/ratecontrol"
)

func testController() *ratecontrol.Controller {
	return ratecontrol.New(config.ThrottleConfig{
		RequestsPerSecond:                 1000,
		Burst:                             1000,
		MaxConcurrentPersonRequests:       4,
		MaxConcurrentRelationshipRequests: 4,
		MaxRetries:                        3,
		BackoffBase:                       0.01,
		BackoffMultiplier:                 2,
		BackoffMaxSeconds:                 0.1,
		RequestTimeoutSeconds:             5,
	}, nil)
}

func TestChunkSplitsPreservingOrder(t *testing.T) {
	p := New(nil, nil, "http://x/%s", 2, nil)
	chunks := p.Chunk([]string{"A", "B", "C", "D", "E"})
	require.Len(t, chunks, 3)
	assert.Equal(t, []string{"A", "B"}, chunks[0])
	assert.Equal(t, []string{"C", "D"}, chunks[1])
	assert.Equal(t, []string{"E"}, chunks[2])
}

func TestChunkEmptyInput(t *testing.T) {
	p := New(nil, nil, "http://x/%s", 2, nil)
	assert.Nil(t, p.Chunk(nil))
}

func TestDispatchFetchesAllChunksConcurrently(t *testing.T) {
	var hits int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&hits, 1)
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(r.URL.Query().Get("pids")))
	}))
	defer srv.Close()

	session := httpsession.New("", 2*time.Second)
	p := New(session, testController(), srv.URL+"/?pids=%s", 2, nil)

	results := p.Dispatch(context.Background(), []string{"P1", "P2", "P3", "P4", "P5"})
	require.Len(t, results, 3)
	assert.EqualValues(t, 3, atomic.LoadInt64(&hits))
	for _, r := range results {
		assert.NoError(t, r.Err)
	}
}

func TestDispatchReturnsPermanentFailurePIDs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	session := httpsession.New("", 2*time.Second)
	p := New(session, testController(), srv.URL+"/?pids=%s", 10, nil)

	results := p.Dispatch(context.Background(), []string{"P1", "P2"})
	require.Len(t, results, 1)
	require.Error(t, results[0].Err)
	assert.True(t, crawlerr.Is(results[0].Err, crawlerr.KindPermanentFailure))
	assert.Equal(t, []string{"P1", "P2"}, results[0].PIDs)
}

func TestDispatchReportsThrottledFailureToController(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	session := httpsession.New("", 2*time.Second)
	controller := testController()
	p := New(session, controller, srv.URL+"/?pids=%s", 10, nil)

	results := p.Dispatch(context.Background(), []string{"P1"})
	require.Len(t, results, 1)
	assert.True(t, crawlerr.Is(results[0].Err, crawlerr.KindThrottled))
	assert.Less(t, controller.EffectiveRPS(), 1000.0)
}
