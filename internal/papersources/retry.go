package papersources

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/helixir/paper-enrichment-service/internal/domain"
)

// Default retry policy values shared by all sources.
const (
	DefaultMaxAttempts       = 3
	DefaultBaseDelay         = time.Second
	DefaultMaxDelay          = 10 * time.Second
	DefaultRateLimitMinDelay = time.Second
	DefaultMaxRetryAfter     = 2 * time.Minute
)

// FailureReason classifies why an attempt did not succeed.
type FailureReason string

const (
	ReasonRateLimited FailureReason = "rate_limited"
	ReasonServerError FailureReason = "server_error"
	ReasonTransport   FailureReason = "transport"
	ReasonClientError FailureReason = "client_error"
	ReasonNotFound    FailureReason = "not_found"
	ReasonExhausted   FailureReason = "exhausted"
	ReasonCancelled   FailureReason = "cancelled"
	ReasonDecode      FailureReason = "decode_error"
)

// RetryPolicy parameterizes the retry engine for one source.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first one.
	MaxAttempts int

	// RateLimitMinDelay is the delay used for a 429 without a Retry-After header.
	RateLimitMinDelay time.Duration

	// BaseDelay is the first backoff delay for 5xx and transport failures.
	BaseDelay time.Duration

	// MaxDelay caps the exponential backoff.
	MaxDelay time.Duration

	// MaxRetryAfter caps a server-supplied Retry-After value.
	MaxRetryAfter time.Duration
}

func (p *RetryPolicy) applyDefaults() {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = DefaultMaxAttempts
	}
	if p.RateLimitMinDelay <= 0 {
		p.RateLimitMinDelay = DefaultRateLimitMinDelay
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultBaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultMaxDelay
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = DefaultMaxRetryAfter
	}
}

// WorstCase is the longest one request can spend in the engine when every attempt
// runs into timeout and each retry waits the longer of the 429 and 5xx delays for
// its attempt. A Retry-After above RateLimitMinDelay can exceed it.
func (p RetryPolicy) WorstCase(timeout time.Duration) time.Duration {
	p.applyDefaults()
	e := &RetryEngine{policy: p}
	total := time.Duration(p.MaxAttempts) * timeout
	for attempt := 1; attempt < p.MaxAttempts; attempt++ {
		total += max(e.Delay(ReasonRateLimited, attempt, 0), e.Delay(ReasonServerError, attempt, 0))
	}
	return total
}

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// SleepContext is the production Sleeper.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryState tracks one logical fetch across all of its attempts.
type RetryState struct {
	Attempts   int
	Delays     []time.Duration
	TotalWait  time.Duration
	LastStatus int
	LastReason FailureReason
}

// AttemptFunc performs a single HTTP attempt.
type AttemptFunc func(ctx context.Context) (*http.Response, error)

// RetryEngine decides, per failed attempt, whether to wait and retry or give up.
// It is safe for concurrent use; all per-call state lives in RetryState.
type RetryEngine struct {
	source   string
	policy   RetryPolicy
	sleep    Sleeper
	now      func() time.Time
	observer Observer
}

// NewRetryEngine creates a retry engine for the named source.
func NewRetryEngine(source string, policy RetryPolicy, sleep Sleeper, observer Observer) *RetryEngine {
	policy.applyDefaults()
	if sleep == nil {
		sleep = SleepContext
	}
	if observer == nil {
		observer = NopObserver{}
	}
	return &RetryEngine{
		source:   source,
		policy:   policy,
		sleep:    sleep,
		now:      time.Now,
		observer: observer,
	}
}

// Policy returns the effective policy after defaults.
func (e *RetryEngine) Policy() RetryPolicy {
	return e.policy
}

// Execute runs attempt until it yields a 2xx response, a non-retryable status,
// or the attempt budget is spent. On success the caller owns the response body.
func (e *RetryEngine) Execute(ctx context.Context, attempt AttemptFunc) (*http.Response, *RetryState, error) {
	state := &RetryState{}

	for {
		if err := ctx.Err(); err != nil {
			state.LastReason = ReasonCancelled
			return nil, state, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}

		state.Attempts++
		started := e.now()
		resp, err := attempt(ctx)
		elapsed := e.now().Sub(started)

		var (
			reason     FailureReason
			retryAfter time.Duration
		)
		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				state.LastReason = ReasonCancelled
				return nil, state, fmt.Errorf("%w: %w", domain.ErrCancelled, ctxErr)
			}
			reason = ReasonTransport
			state.LastStatus = 0
		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			state.LastStatus = resp.StatusCode
			e.observer.ObserveSourceRequest(e.source, "success", elapsed)
			return resp, state, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			reason = ReasonRateLimited
			retryAfter = e.parseRetryAfter(resp.Header.Get("Retry-After"))
		case resp.StatusCode >= 500:
			reason = ReasonServerError
		case resp.StatusCode == http.StatusNotFound:
			reason = ReasonNotFound
		default:
			reason = ReasonClientError
		}

		if resp != nil {
			state.LastStatus = resp.StatusCode
			drainAndClose(resp)
		}
		state.LastReason = reason
		e.observer.ObserveSourceRequest(e.source, string(reason), elapsed)

		if reason == ReasonNotFound || reason == ReasonClientError {
			return nil, state, e.terminalError(state, reason)
		}

		if state.Attempts >= e.policy.MaxAttempts {
			cause := err
			switch {
			case reason == ReasonRateLimited:
				cause = domain.NewRateLimitError(e.source, retryAfter)
			case cause == nil:
				cause = fmt.Errorf("status %d", state.LastStatus)
			}
			return nil, state, domain.NewExternalAPIError(
				e.source,
				state.LastStatus,
				fmt.Sprintf("gave up after %d attempts (%s)", state.Attempts, reason),
				errors.Join(domain.ErrSourceUnavailable, cause),
			)
		}

		delay := e.Delay(reason, state.Attempts, retryAfter)
		e.observer.ObserveSourceRetry(e.source, string(reason))
		if err := e.sleep(ctx, delay); err != nil {
			state.LastReason = ReasonCancelled
			return nil, state, fmt.Errorf("%w: %w", domain.ErrCancelled, err)
		}
		state.Delays = append(state.Delays, delay)
		state.TotalWait += delay
	}
}

// Delay returns the wait before the next attempt after attempt number attempt failed.
// Rate-limited attempts wait Retry-After (or the source minimum) times the attempt
// number; 5xx and transport failures back off exponentially up to MaxDelay.
func (e *RetryEngine) Delay(reason FailureReason, attempt int, retryAfter time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if reason == ReasonRateLimited {
		base := retryAfter
		if base <= 0 {
			base = e.policy.RateLimitMinDelay
		}
		return base * time.Duration(attempt)
	}

	delay := e.policy.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= e.policy.MaxDelay {
			return e.policy.MaxDelay
		}
	}
	return min(delay, e.policy.MaxDelay)
}

// parseRetryAfter accepts delta-seconds or an HTTP date. Unusable values yield 0.
func (e *RetryEngine) parseRetryAfter(value string) time.Duration {
	if value == "" {
		return 0
	}

	var delay time.Duration
	if seconds, err := strconv.ParseInt(value, 10, 64); err == nil {
		delay = time.Duration(seconds) * time.Second
	} else if t, err := http.ParseTime(value); err == nil {
		delay = t.Sub(e.now())
	}

	if delay <= 0 {
		return 0
	}
	return min(delay, e.policy.MaxRetryAfter)
}

func (e *RetryEngine) terminalError(state *RetryState, reason FailureReason) error {
	var cause error
	if reason == ReasonNotFound {
		cause = domain.ErrNotFound
	}
	return domain.NewExternalAPIError(e.source, state.LastStatus, string(reason), cause)
}

// drainAndClose discards the remaining body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	if resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, MaxResponseBytes))
	_ = resp.Body.Close()
}
