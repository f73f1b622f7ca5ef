package sources

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"c19pulse/internal/config"
	apperrors "c19pulse/internal/errors"
)

func testHTTPConfig() config.HTTPConfig {
	return config.HTTPConfig{
		Timeout:           5 * time.Second,
		MaxRetries:        3,
		RetryDelay:        time.Millisecond,
		RequestsPerSecond: 1000,
		Burst:             10,
		UserAgent:         "c19pulse-test",
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func TestHTTPOpener_Open(t *testing.T) {
	tests := []struct {
		name         string
		statuses     []int
		wantErr      bool
		wantAttempts int32
	}{
		{name: "success first try", statuses: []int{200}, wantAttempts: 1},
		{name: "retries server errors", statuses: []int{500, 503, 200}, wantAttempts: 3},
		{name: "retries too many requests", statuses: []int{429, 200}, wantAttempts: 2},
		{name: "gives up after max retries", statuses: []int{500, 500, 500}, wantErr: true, wantAttempts: 3},
		{name: "does not retry not found", statuses: []int{404}, wantErr: true, wantAttempts: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var attempts int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := atomic.AddInt32(&attempts, 1)
				assert.Equal(t, "c19pulse-test", r.Header.Get("User-Agent"))
				status := tt.statuses[int(n)-1]
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = io.WriteString(w, "date,value\n2022-01-01,1\n")
				}
			}))
			defer srv.Close()

			opener := NewHTTPOpener(testHTTPConfig(), quietLogger())
			rc, err := opener.Open(context.Background(), srv.URL+"/covidtesting.csv")

			assert.Equal(t, tt.wantAttempts, atomic.LoadInt32(&attempts))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, apperrors.ErrNetwork))
				return
			}
			require.NoError(t, err)
			defer rc.Close()
			body, err := io.ReadAll(rc)
			require.NoError(t, err)
			assert.Contains(t, string(body), "2022-01-01")
		})
	}
}

func TestHTTPOpener_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	cfg := testHTTPConfig()
	cfg.RetryDelay = time.Hour
	opener := NewHTTPOpener(cfg, quietLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := opener.Open(ctx, srv.URL)
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNetwork))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}
