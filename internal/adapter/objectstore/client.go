package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/couchcryptid/climate-atlas/internal/observability"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"
)

// maxObjectSize bounds a single CSV download.
const maxObjectSize = 32 << 20

// Fetcher retrieves an object by file name.
type Fetcher interface {
	Fetch(ctx context.Context, name string) ([]byte, error)
}

// StatusError is returned when the object store answers with a non-200
// status. Status is the reason phrase, e.g. "Not Found".
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("object store returned %d %s", e.Code, e.Status)
}

// ErrUnavailable is returned while the circuit breaker is open.
var ErrUnavailable = errors.New("object store unavailable")

// ErrObjectTooLarge is returned for objects over maxObjectSize.
var ErrObjectTooLarge = errors.New("object too large")

// Client fetches CSV objects from a public HTTP bucket.
type Client struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker[[]byte]
	limiter    *rate.Limiter
	maxSize    int64
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an object store client for the bucket at baseURL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger, metrics *observability.Metrics) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		limiter: rate.NewLimiter(rate.Inf, 1),
		maxSize: maxObjectSize,
		logger:  logger,
		metrics: metrics,
	}
	c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
		Name:        "object-store",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

// SetRateLimit caps outgoing requests at perSecond, with a burst of the same
// size rounded up. Non-positive values remove the limit.
func (c *Client) SetRateLimit(perSecond float64) {
	if perSecond <= 0 {
		c.limiter.SetLimit(rate.Inf)
		return
	}
	c.limiter.SetLimit(rate.Limit(perSecond))
	c.limiter.SetBurst(int(math.Ceil(perSecond)))
}

// isSuccessful keeps client-side problems (4xx, caller cancellation) from
// tripping the breaker.
func isSuccessful(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var se *StatusError
	return errors.As(err, &se) && se.Code < http.StatusInternalServerError
}

// Fetch downloads name from the bucket.
func (c *Client) Fetch(ctx context.Context, name string) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doRequest(ctx, name)
	})
	c.metrics.ObjectStoreDuration.Observe(time.Since(start).Seconds())

	var se *StatusError
	switch {
	case err == nil:
		c.metrics.ObjectStoreRequests.WithLabelValues("success").Inc()
		return body, nil
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		c.metrics.ObjectStoreRequests.WithLabelValues("breaker_open").Inc()
		return nil, fmt.Errorf("fetch %s: %w: %v", name, ErrUnavailable, err)
	case errors.As(err, &se) && se.Code < http.StatusInternalServerError:
		c.metrics.ObjectStoreRequests.WithLabelValues("not_found").Inc()
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	default:
		c.metrics.ObjectStoreRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("fetch %s: %w", name, err)
	}
}

func (c *Client) doRequest(ctx context.Context, name string) ([]byte, error) {
	u := c.baseURL + "/" + url.PathEscape(name)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("object store request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096)) //nolint:errcheck // drain for connection reuse
		return nil, &StatusError{Code: resp.StatusCode, Status: reasonPhrase(resp)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read object body: %w", err)
	}
	if int64(len(body)) > c.maxSize {
		return nil, fmt.Errorf("%w: over %d bytes", ErrObjectTooLarge, c.maxSize)
	}
	return body, nil
}

// reasonPhrase strips the numeric code from resp.Status ("404 Not Found").
func reasonPhrase(resp *http.Response) string {
	if s := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); s != "" && s != resp.Status {
		return s
	}
	return http.StatusText(resp.StatusCode)
}
