// Package sourcetest provides deterministic transports and sleepers for testing source clients.
package sourcetest

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Step is one scripted transport outcome: either an HTTP response or a transport error.
type Step struct {
	Status int
	Header http.Header
	Body   string
	Err    error
}

// JSON returns a 200 step with the given body.
func JSON(body string) Step {
	return Step{Status: http.StatusOK, Body: body}
}

// Status returns a step with the given status and an empty body.
func Status(code int) Step {
	return Step{Status: code}
}

// RetryAfter returns a 429 step carrying a Retry-After header.
func RetryAfter(value string) Step {
	return Step{Status: http.StatusTooManyRequests, Header: http.Header{"Retry-After": []string{value}}}
}

// ScriptedTransport is an http.RoundTripper that replays Steps in order. The last
// step repeats once the script runs out.
type ScriptedTransport struct {
	mu       sync.Mutex
	steps    []Step
	calls    int
	requests []*http.Request
}

// NewScriptedTransport creates a transport replaying steps.
func NewScriptedTransport(steps ...Step) *ScriptedTransport {
	return &ScriptedTransport{steps: steps}
}

// RoundTrip implements http.RoundTripper.
func (s *ScriptedTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := min(s.calls, len(s.steps)-1)
	s.calls++
	s.requests = append(s.requests, req)

	st := s.steps[idx]
	if st.Err != nil {
		return nil, st.Err
	}
	header := st.Header
	if header == nil {
		header = http.Header{}
	}
	return &http.Response{
		StatusCode: st.Status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(st.Body)),
		Request:    req,
	}, nil
}

// Client wraps the transport in an *http.Client.
func (s *ScriptedTransport) Client() *http.Client {
	return &http.Client{Transport: s, Timeout: time.Second}
}

// Calls returns the number of round trips performed.
func (s *ScriptedTransport) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Requests returns the requests seen so far.
func (s *ScriptedTransport) Requests() []*http.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Request(nil), s.requests...)
}

// RecordingSleeper records requested delays without waiting.
type RecordingSleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep satisfies papersources.Sleeper.
func (r *RecordingSleeper) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return nil
}

// Delays returns a copy of the recorded delays.
func (r *RecordingSleeper) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]time.Duration(nil), r.delays...)
}

// Total returns the sum of the recorded delays.
func (r *RecordingSleeper) Total() time.Duration {
	var total time.Duration
	for _, d := range r.Delays() {
		total += d
	}
	return total
}

// NoSleep is a sleeper that returns immediately.
func NoSleep(ctx context.Context, _ time.Duration) error {
	return ctx.Err()
}
