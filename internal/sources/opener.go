// Package sources opens dataset locations for reading. A location is an
// http(s) URL, a file:// URL, or a local path.
package sources

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	apperrors "c19pulse/internal/errors"
	"c19pulse/internal/infrastructure"
)

// Opener opens a dataset location
type Opener interface {
	Open(ctx context.Context, source string) (io.ReadCloser, error)
}

// Router dispatches http(s) locations to the HTTP opener and everything
// else to the local filesystem.
type Router struct {
	http    Opener
	metrics *infrastructure.Metrics
	logger  *slog.Logger
}

// NewRouter creates a Router
func NewRouter(httpOpener Opener, metrics *infrastructure.Metrics, logger *slog.Logger) *Router {
	return &Router{
		http:    httpOpener,
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "sources"),
	}
}

// Open implements Opener
func (r *Router) Open(ctx context.Context, source string) (io.ReadCloser, error) {
	started := time.Now()
	var (
		rc  io.ReadCloser
		err error
	)
	if IsRemote(source) {
		rc, err = r.http.Open(ctx, source)
	} else {
		rc, err = OpenFile(source)
	}
	r.metrics.ObserveFetch(Name(source), time.Since(started), err)
	if err != nil {
		infrastructure.WithError(r.logger, err).ErrorContext(ctx, "open source failed",
			slog.String("source", source))
		return nil, err
	}
	r.logger.DebugContext(ctx, "source opened",
		slog.String("source", source),
		slog.Duration("elapsed", time.Since(started)))
	return rc, nil
}

// IsRemote reports whether source is an http(s) URL
func IsRemote(source string) bool {
	s := strings.ToLower(source)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Name returns the last path element of a source, used as a metric label
func Name(source string) string {
	if u, err := url.Parse(source); err == nil && u.Scheme != "" && u.Path != "" {
		return path.Base(u.Path)
	}
	return filepath.Base(source)
}

// OpenFile opens a local path or file:// URL
func OpenFile(source string) (io.ReadCloser, error) {
	p := strings.TrimPrefix(source, "file://")
	f, err := os.Open(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewStorageError("source file not found", err).WithContext("source", source)
		}
		return nil, apperrors.NewStorageError("failed to open source file", err).WithContext("source", source)
	}
	return f, nil
}
