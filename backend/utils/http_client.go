// Package utils holds the breaker-guarded HTTP transport used by the
// gateway's upstream proxies. Every request passes through a gobreaker
// circuit breaker.
package utils

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"taskboard/backend/utils/logging"

	"github.com/sony/gobreaker"
)

// ErrUpstreamUnavailable is returned while a breaker is open or half-open
// and saturated.
var ErrUpstreamUnavailable = errors.New("upstream unavailable")

var errUpstreamStatus = errors.New("upstream returned server error")

// NewBreaker returns a breaker that trips after more than three consecutive
// failures and probes again after timeout.
func NewBreaker(name string, timeout time.Duration) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})
}

// BreakerTransport counts transport errors and 5xx responses as failures.
type BreakerTransport struct {
	Breaker *gobreaker.CircuitBreaker
	Base    http.RoundTripper
}

func (t *BreakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	result, err := t.Breaker.Execute(func() (interface{}, error) {
		resp, err := base.RoundTrip(req)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return resp, errUpstreamStatus
		}
		return resp, nil
	})

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return nil, fmt.Errorf("%w: %s: %v", ErrUpstreamUnavailable, t.Breaker.Name(), err)
	case errors.Is(err, errUpstreamStatus):
		return result.(*http.Response), nil
	case err != nil:
		return nil, err
	}
	return result.(*http.Response), nil
}

// NewBreakerTransport guards a pooled transport with breaker.
func NewBreakerTransport(breaker *gobreaker.CircuitBreaker) *BreakerTransport {
	return &BreakerTransport{
		Breaker: breaker,
		Base: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
