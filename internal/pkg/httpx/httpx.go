// Package httpx holds small retry helpers shared by outbound HTTP clients.
package httpx

import (
	"errors"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// StatusCoder is implemented by errors that carry an upstream HTTP status.
type StatusCoder interface {
	HTTPStatusCode() int
}

func RetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

// Retryable reports whether a failed request is worth another attempt.
// Context cancellation is NOT retryable: the caller gave up.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var sc StatusCoder
	if errors.As(err, &sc) {
		return RetryableStatus(sc.HTTPStatusCode())
	}
	return false
}

// Backoff produces exponentially growing, jittered sleep intervals,
// honoring a Retry-After header when the server sent one.
type Backoff struct {
	Base time.Duration
	Max  time.Duration

	current time.Duration
}

// Next returns how long to sleep before the following attempt.
func (b *Backoff) Next(resp *http.Response) time.Duration {
	if b.current <= 0 {
		b.current = b.Base
		if b.current <= 0 {
			b.current = time.Second
		}
	}
	sleep := b.current
	b.current *= 2

	if resp != nil {
		if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
			if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
				sleep = time.Duration(secs) * time.Second
			}
		}
	}
	if b.Max > 0 && sleep > b.Max {
		sleep = b.Max
	}
	return jitter(sleep)
}

func jitter(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low := base.Seconds() - delta
	v := low + rand.Float64()*2*delta
	return time.Duration(v * float64(time.Second))
}
