package models

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// EndpointClass groups API routes that share one token-bucket policy.
type EndpointClass string

const (
	// ClassSearch: catalogue and search queries (1000 req/h).
	ClassSearch EndpointClass = "search"
	// ClassPurchase: checkout and payment initiation (100 req/h).
	ClassPurchase EndpointClass = "purchase"
	// ClassStream: media segment and playback requests (10000 req/h).
	ClassStream EndpointClass = "stream"
	// ClassAnalytics: client event ingestion (500 req/h).
	ClassAnalytics EndpointClass = "analytics"
)

var allClasses = []EndpointClass{ClassSearch, ClassPurchase, ClassStream, ClassAnalytics}

func (c EndpointClass) IsValid() bool {
	switch c {
	case ClassSearch, ClassPurchase, ClassStream, ClassAnalytics:
		return true
	}
	return false
}

func (c EndpointClass) String() string { return string(c) }

// ParseEndpointClass accepts any case and surrounding space. Unknown names
// wrap ErrUnknownEndpointClass.
func ParseEndpointClass(s string) (EndpointClass, error) {
	c := EndpointClass(strings.ToLower(strings.TrimSpace(s)))
	if !c.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownEndpointClass, s)
	}
	return c, nil
}

// EndpointClasses lists every known class in a stable order.
func EndpointClasses() []EndpointClass {
	return append([]EndpointClass(nil), allClasses...)
}

// tokenEpsilon absorbs float rounding so a bucket refilled to 0.9999999999
// after exactly one refill interval still admits a request.
const tokenEpsilon = 1e-9

// Bucket is a continuous token bucket. Tokens is fractional and always within
// [0, capacity]; LastRefillAt only moves forward.
type Bucket struct {
	Tokens       float64
	LastRefillAt time.Time
}

// NewBucket returns a full bucket.
func NewBucket(capacity float64, now time.Time) Bucket {
	return Bucket{Tokens: capacity, LastRefillAt: now}
}

// Refill adds tokens for the time elapsed since LastRefillAt at a rate of
// capacity per window, capped at capacity. A clock that moved backwards adds
// nothing and does not rewind LastRefillAt.
func (b *Bucket) Refill(now time.Time, capacity float64, window time.Duration) {
	if now.After(b.LastRefillAt) {
		elapsed := now.Sub(b.LastRefillAt).Seconds()
		b.Tokens += elapsed * capacity / window.Seconds()
		b.LastRefillAt = now
	}
	b.Tokens = math.Max(0, math.Min(b.Tokens, capacity))
}

// TryConsume takes one token if at least one is available.
func (b *Bucket) TryConsume() bool {
	if b.Tokens+tokenEpsilon < 1 {
		return false
	}
	b.Tokens = math.Max(0, b.Tokens-1)
	return true
}

// Remaining is the whole number of tokens a client may still spend.
func (b *Bucket) Remaining() int {
	return int(math.Floor(b.Tokens + tokenEpsilon))
}

// TimeToFull is how long until the bucket is back at capacity.
func (b *Bucket) TimeToFull(capacity float64, window time.Duration) time.Duration {
	missing := capacity - b.Tokens
	if missing <= 0 {
		return 0
	}
	return time.Duration(missing / capacity * float64(window))
}

// TimeToNextToken is how long until one whole token is available.
func (b *Bucket) TimeToNextToken(capacity float64, window time.Duration) time.Duration {
	missing := 1 - b.Tokens
	if missing <= tokenEpsilon {
		return 0
	}
	return time.Duration(missing / capacity * float64(window))
}

// Rate-limit response headers.
const (
	HeaderLimit      = "X-RateLimit-Limit"
	HeaderRemaining  = "X-RateLimit-Remaining"
	HeaderReset      = "X-RateLimit-Reset"
	HeaderRetryAfter = "Retry-After"
)

// RateLimitResult is the outcome of one token-bucket check.
type RateLimitResult struct {
	Allowed    bool              `json:"allowed"`
	Limit      int               `json:"limit"`
	Remaining  int               `json:"remaining"`
	ResetAt    time.Time         `json:"reset_at"`
	RetryAfter int               `json:"retry_after,omitempty"` // seconds, only set when not allowed
	Headers    map[string]string `json:"-"`
}

// BuildHeaders fills Headers from the other fields. Retry-After is present
// only on rejection.
func (r *RateLimitResult) BuildHeaders() {
	r.Headers = map[string]string{
		HeaderLimit:     strconv.Itoa(r.Limit),
		HeaderRemaining: strconv.Itoa(r.Remaining),
		HeaderReset:     strconv.FormatInt(r.ResetAt.Unix(), 10),
	}
	if !r.Allowed {
		r.Headers[HeaderRetryAfter] = strconv.Itoa(r.RetryAfter)
	}
}
