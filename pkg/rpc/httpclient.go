package rpc

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/akashx/akashx/pkg/utils"
	"github.com/puzpuzpuz/xsync/v4"
)

// maxBodyBytes bounds a single upstream response. Blocks full of large txs stay well below it.
const maxBodyBytes = 64 << 20

// ErrNoEndpoints is returned when the client was built without any upstream.
var ErrNoEndpoints = errors.New("no endpoints configured")

// StatusError is returned for any non-200 upstream response.
type StatusError struct {
	Endpoint   string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s%s: http %d", e.Endpoint, e.Path, e.StatusCode)
}

// IsStatusError reports whether err carries a non-200 upstream response.
func IsStatusError(err error) bool {
	var se *StatusError
	return errors.As(err, &se)
}

// EndpointStats is a point-in-time view of one upstream's counters.
type EndpointStats struct {
	Endpoint  string    `json:"endpoint"`
	InFlight  int32     `json:"inFlight"`
	Requests  uint64    `json:"requests"`
	Errors    uint64    `json:"errors"`
	LastError string    `json:"lastError,omitempty"`
	LastSeen  time.Time `json:"lastSeen"`
}

type endpoint struct {
	url      string
	inFlight atomic.Int32
}

// Hooks are invoked around every upstream request. Both may be nil.
type Hooks struct {
	OnStart func(endpoint string)
	OnDone  func(endpoint string, err error)
}

// HTTPClient issues GET requests against a pool of upstream nodes. Each endpoint
// accepts at most MaxConcurrent in-flight requests and the first endpoint with
// spare capacity wins, so a fast node may take most of the traffic.
type HTTPClient struct {
	endpoints []*endpoint
	client    *http.Client

	maxConcurrent int32
	pollInterval  time.Duration
	jitterMin     time.Duration
	jitterMax     time.Duration

	rngMu sync.Mutex
	rng   *rand.Rand

	stats   *xsync.Map[string, EndpointStats]
	metrics *Metrics
	hooks   Hooks
}

// Opts is the set of options for a new HTTPClient.
type Opts struct {
	Endpoints     []string
	MaxConcurrent int
	Timeout       time.Duration
	PollInterval  time.Duration
	// JitterMin/JitterMax bound the pause taken after every successful response.
	// Both zero disables the pause.
	JitterMin  time.Duration
	JitterMax  time.Duration
	HTTPClient *http.Client
	Metrics    *Metrics
	Hooks      Hooks
}

// DefaultOpts mirrors the production self-throttling profile.
func DefaultOpts(endpoints []string) Opts {
	return Opts{
		Endpoints:     endpoints,
		MaxConcurrent: 5,
		Timeout:       30 * time.Second,
		PollInterval:  5 * time.Millisecond,
		JitterMin:     100 * time.Millisecond,
		JitterMax:     500 * time.Millisecond,
	}
}

// NewHTTPWithOpts creates a new HTTPClient with the given options.
func NewHTTPWithOpts(o Opts) *HTTPClient {
	if o.MaxConcurrent <= 0 {
		o.MaxConcurrent = 5
	}
	if o.Timeout <= 0 {
		o.Timeout = 30 * time.Second
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 5 * time.Millisecond
	}
	if o.JitterMax < o.JitterMin {
		o.JitterMax = o.JitterMin
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &HTTPClient{
		client:        client,
		maxConcurrent: int32(o.MaxConcurrent),
		pollInterval:  o.PollInterval,
		jitterMin:     o.JitterMin,
		jitterMax:     o.JitterMax,
		rng:           rand.New(rand.NewSource(time.Now().UnixNano())),
		stats:         xsync.NewMap[string, EndpointStats](),
		metrics:       o.Metrics,
		hooks:         o.Hooks,
	}
	for _, ep := range utils.Dedup(o.Endpoints) {
		c.endpoints = append(c.endpoints, &endpoint{url: ep})
		c.stats.Store(ep, EndpointStats{Endpoint: ep})
	}
	return c
}

// Capacity is the total number of requests the pool may have in flight.
func (c *HTTPClient) Capacity() int {
	return int(c.maxConcurrent) * len(c.endpoints)
}

// tryReserve claims a slot on the first endpoint below its cap.
func (c *HTTPClient) tryReserve() *endpoint {
	for _, ep := range c.endpoints {
		for {
			cur := ep.inFlight.Load()
			if cur >= c.maxConcurrent {
				break
			}
			if ep.inFlight.CompareAndSwap(cur, cur+1) {
				return ep
			}
		}
	}
	return nil
}

// WaitForAvailable blocks until an endpoint has spare capacity and reserves it.
// The returned Slot must be used (or released) exactly once.
func (c *HTTPClient) WaitForAvailable(ctx context.Context) (Slot, error) {
	if len(c.endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	for {
		if ep := c.tryReserve(); ep != nil {
			c.metrics.inFlight(ep.url, 1)
			return &slot{c: c, ep: ep}, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
}

// WaitForAllFinished blocks until no endpoint has a request in flight.
func (c *HTTPClient) WaitForAllFinished(ctx context.Context) error {
	for c.InFlight() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}
	}
	return nil
}

// InFlight sums the in-flight counters of every endpoint.
func (c *HTTPClient) InFlight() int {
	total := 0
	for _, ep := range c.endpoints {
		total += int(ep.inFlight.Load())
	}
	return total
}

// Stats returns the per-endpoint counters in configuration order.
func (c *HTTPClient) Stats() []EndpointStats {
	out := make([]EndpointStats, 0, len(c.endpoints))
	for _, ep := range c.endpoints {
		st, _ := c.stats.Load(ep.url)
		st.InFlight = ep.inFlight.Load()
		out = append(out, st)
	}
	return out
}

// Get reserves a slot and fetches path from it.
func (c *HTTPClient) Get(ctx context.Context, path string) ([]byte, error) {
	s, err := c.WaitForAvailable(ctx)
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, path)
}

func (c *HTTPClient) release(ep *endpoint) {
	ep.inFlight.Add(-1)
	c.metrics.inFlight(ep.url, -1)
}

func (c *HTTPClient) jitter() time.Duration {
	if c.jitterMax <= 0 {
		return 0
	}
	span := int64(c.jitterMax - c.jitterMin)
	if span <= 0 {
		return c.jitterMin
	}
	c.rngMu.Lock()
	n := c.rng.Int63n(span + 1)
	c.rngMu.Unlock()
	return c.jitterMin + time.Duration(n)
}

func (c *HTTPClient) record(ep string, err error) {
	c.stats.Compute(ep, func(old EndpointStats, loaded bool) (EndpointStats, xsync.ComputeOp) {
		if !loaded {
			old = EndpointStats{Endpoint: ep}
		}
		old.Requests++
		old.LastSeen = time.Now()
		if err != nil {
			old.Errors++
			old.LastError = err.Error()
		}
		return old, xsync.UpdateOp
	})
}

// do performs one GET against ep. The caller owns the reservation.
func (c *HTTPClient) do(ctx context.Context, ep *endpoint, path string) ([]byte, error) {
	if c.hooks.OnStart != nil {
		c.hooks.OnStart(ep.url)
	}
	start := time.Now()
	bz, status, err := c.roundTrip(ctx, ep.url, path)
	c.metrics.observe(ep.url, status, time.Since(start), err)
	c.record(ep.url, err)
	if c.hooks.OnDone != nil {
		c.hooks.OnDone(ep.url, err)
	}
	if err != nil {
		return nil, err
	}

	// Self throttle so a single indexer never saturates the upstream node.
	if d := c.jitter(); d > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(d):
		}
	}
	return bz, nil
}

func (c *HTTPClient) roundTrip(ctx context.Context, base, path string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, base+"/"+path, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("GET %s/%s: %w", base, path, err)
	}
	if resp.StatusCode != http.StatusOK {
		_ = utils.DrainAndClose(resp.Body)
		return nil, resp.StatusCode, &StatusError{Endpoint: base, Path: "/" + path, StatusCode: resp.StatusCode}
	}
	bz, err := utils.ReadAndClose(resp.Body, maxBodyBytes)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read %s/%s: %w", base, path, err)
	}
	return bz, resp.StatusCode, nil
}

// Slot is a reserved request on one endpoint.
type Slot interface {
	Endpoint() string
	// Get performs the request and frees the reservation.
	Get(ctx context.Context, path string) ([]byte, error)
	// Release frees an unused reservation.
	Release()
}

type slot struct {
	c    *HTTPClient
	ep   *endpoint
	once sync.Once
}

func (s *slot) Endpoint() string { return s.ep.url }

func (s *slot) Get(ctx context.Context, path string) ([]byte, error) {
	defer s.Release()
	return s.c.do(ctx, s.ep, path)
}

func (s *slot) Release() {
	s.once.Do(func() { s.c.release(s.ep) })
}
