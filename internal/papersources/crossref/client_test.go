package crossref

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helixir/paper-enrichment-service/internal/papersources"
	"github.com/helixir/paper-enrichment-service/internal/papersources/sourcetest"
)

// newTestClient creates a client configured for testing with the given server URL.
func newTestClient(serverURL string, sleeper papersources.Sleeper) *Client {
	if sleeper == nil {
		sleeper = sourcetest.NoSleep
	}
	return New(Config{
		BaseURL:      serverURL,
		ContactEmail: "test@example.com",
		Timeout:      5 * time.Second,
		RateLimit:    100,
		BurstSize:    100,
	}, papersources.WithSleeper(sleeper))
}

const sampleMessage = `{
	"status": "ok",
	"message-type": "work",
	"message": {
		"DOI": "10.1103/physrevlett.116.061102",
		"title": ["Observation of Gravitational Waves from a Binary Black Hole Merger"],
		"container-title": ["Physical Review Letters"],
		"short-container-title": ["Phys. Rev. Lett."],
		"author": [{"given": "B. P.", "family": "Abbott", "sequence": "first"}, {"name": "LIGO Scientific Collaboration"}],
		"published": {"date-parts": [[2016, 2, 11]]},
		"created": {"date-parts": [[2016, 2, 11]]},
		"type": "journal-article",
		"publisher": "American Physical Society (APS)",
		"URL": "https://doi.org/10.1103/physrevlett.116.061102",
		"abstract": "<jats:p>On September 14, 2015 <jats:italic>both</jats:italic> detectors observed.</jats:p>",
		"volume": "116",
		"issue": "6",
		"page": "061102",
		"ISSN": ["0031-9007", "1079-7114"],
		"license": [{"URL": "http://creativecommons.org/licenses/by/3.0/"}]
	}
}`

func TestClient_FetchByDOI(t *testing.T) {
	t.Run("unwraps message envelope", func(t *testing.T) {
		var gotPath, gotMailto string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotMailto = r.URL.Query().Get("mailto")
			assert.Contains(t, r.Header.Get("User-Agent"), "mailto:test@example.com")
			_, _ = w.Write([]byte(sampleMessage))
		}))
		defer server.Close()

		work, ok := newTestClient(server.URL, nil).FetchByDOI(context.Background(), "10.1103/physrevlett.116.061102")
		require.True(t, ok)

		assert.Equal(t, "/works/10.1103/physrevlett.116.061102", gotPath)
		assert.Equal(t, "test@example.com", gotMailto)
		assert.Equal(t, "Observation of Gravitational Waves from a Binary Black Hole Merger", First(work.Title))
		assert.Equal(t, "Physical Review Letters", First(work.ContainerTitle))
		assert.Equal(t, "B. P. Abbott", work.Author[0].FullName())
		assert.Equal(t, "LIGO Scientific Collaboration", work.Author[1].FullName())
		assert.Equal(t, "On September 14, 2015 both detectors observed.", work.PlainAbstract())
		assert.Equal(t, "http://creativecommons.org/licenses/by/3.0/", work.LicenseURL())

		published, ok := work.Published.Time()
		require.True(t, ok)
		assert.Equal(t, time.Date(2016, 2, 11, 0, 0, 0, 0, time.UTC), published)
	})

	t.Run("rate limit then success", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				w.Header().Set("Retry-After", "2")
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			_, _ = w.Write([]byte(sampleMessage))
		}))
		defer server.Close()

		sleeper := &sourcetest.RecordingSleeper{}
		_, ok := newTestClient(server.URL, sleeper.Sleep).FetchByDOI(context.Background(), "10.1103/physrevlett.116.061102")

		assert.True(t, ok)
		assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.Delays())
	})

	t.Run("bad request is absent immediately", func(t *testing.T) {
		var calls atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer server.Close()

		_, ok := newTestClient(server.URL, nil).FetchByDOI(context.Background(), "10.1/x")
		assert.False(t, ok)
		assert.Equal(t, int32(1), calls.Load())
	})
}

func TestDateParts_Time(t *testing.T) {
	parse := func(raw string) *DateParts {
		var d DateParts
		require.NoError(t, json.Unmarshal([]byte(raw), &d))
		return &d
	}

	tests := []struct {
		name string
		raw  string
		want time.Time
		ok   bool
	}{
		{name: "full date", raw: `{"date-parts": [[2020, 5, 17]]}`, want: time.Date(2020, 5, 17, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "year and month", raw: `{"date-parts": [[2020, 5]]}`, want: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "year only", raw: `{"date-parts": [[2020]]}`, want: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), ok: true},
		{name: "null year", raw: `{"date-parts": [[null]]}`},
		{name: "empty", raw: `{"date-parts": []}`},
		{name: "month out of range", raw: `{"date-parts": [[2020, 13, 1]]}`},
		{name: "impossible day", raw: `{"date-parts": [[2021, 2, 30]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parse(tt.raw).Time()
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}

	var missing *DateParts
	_, ok := missing.Time()
	assert.False(t, ok)
}
