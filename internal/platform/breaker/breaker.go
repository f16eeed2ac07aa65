package breaker

import (
	"time"

	"github.com/sony/gobreaker/v2"
)

// Settings for a remote dependency. Zero values fall back to the defaults below.
type Settings struct {
	Name             string
	MaxFailures      uint32
	OpenTimeout      time.Duration
	HalfOpenRequests uint32
	// IsSuccessful classifies errors that should not count as failures.
	IsSuccessful func(err error) bool
}

const (
	defaultMaxFailures = 5
	defaultOpenTimeout = 30 * time.Second
)

// New returns a breaker that opens after MaxFailures consecutive failures.
func New[T any](s Settings) *gobreaker.CircuitBreaker[T] {
	maxFailures := s.MaxFailures
	if maxFailures == 0 {
		maxFailures = defaultMaxFailures
	}
	openTimeout := s.OpenTimeout
	if openTimeout == 0 {
		openTimeout = defaultOpenTimeout
	}
	halfOpen := s.HalfOpenRequests
	if halfOpen == 0 {
		halfOpen = 1
	}
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        s.Name,
		MaxRequests: halfOpen,
		Timeout:     openTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		IsSuccessful: s.IsSuccessful,
	})
}
