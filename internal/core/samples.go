package core

import (
	"context"
	"embed"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/sales-ai-analyst/internal/logging"
	"github.com/JonMunkholm/sales-ai-analyst/internal/quality"
)

//go:embed samples/*.csv
var embeddedSamples embed.FS

// SampleSource opens a sample dataset by file name.
type SampleSource interface {
	Open(ctx context.Context, name string) (io.ReadCloser, error)
}

// FSSource serves samples from a filesystem.
type FSSource struct {
	fsys fs.FS
}

// NewFSSource serves samples from fsys.
func NewFSSource(fsys fs.FS) *FSSource {
	return &FSSource{fsys: fsys}
}

// EmbeddedSamples serves the datasets compiled into the binary.
func EmbeddedSamples() *FSSource {
	sub, err := fs.Sub(embeddedSamples, "samples")
	if err != nil {
		panic(err)
	}
	return NewFSSource(sub)
}

// NewDirSource serves samples from a directory on disk.
func NewDirSource(dir string) *FSSource {
	return NewFSSource(os.DirFS(dir))
}

func (s *FSSource) Open(_ context.Context, name string) (io.ReadCloser, error) {
	return s.fsys.Open(name)
}

// HTTPSource fetches samples relative to a base URL.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource fetches samples from baseURL with the given timeout.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *HTTPSource) Open(ctx context.Context, name string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: status %d", name, resp.StatusCode)
	}
	return resp.Body, nil
}

// SampleCatalog loads and caches the example dataset for each mode.
type SampleCatalog struct {
	source  SampleSource
	maxSize int64

	mu    sync.RWMutex
	cache map[quality.Mode]*quality.Table
}

// NewSampleCatalog reads samples from source, rejecting any larger than
// maxSize bytes.
func NewSampleCatalog(source SampleSource, maxSize int64) *SampleCatalog {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	return &SampleCatalog{
		source:  source,
		maxSize: maxSize,
		cache:   make(map[quality.Mode]*quality.Table),
	}
}

// Load returns a private copy of the mode's sample table.
func (c *SampleCatalog) Load(ctx context.Context, mode quality.Mode) (*quality.Table, error) {
	spec := quality.Spec(mode)
	if spec.SampleFile == "" {
		return nil, fmt.Errorf("%w: %s", ErrNoSample, mode)
	}

	c.mu.RLock()
	cached, ok := c.cache[spec.Mode]
	c.mu.RUnlock()
	if ok {
		return cached.Clone(), nil
	}

	rc, err := c.source.Open(ctx, spec.SampleFile)
	if err != nil {
		return nil, fmt.Errorf("fetch sample %s: %w", spec.SampleFile, err)
	}
	defer rc.Close()

	t, err := quality.Parse(WrapForStreaming(NewSizeLimitReader(rc, c.maxSize)))
	if err != nil {
		return nil, fmt.Errorf("parse sample %s: %w", spec.SampleFile, err)
	}

	c.mu.Lock()
	c.cache[spec.Mode] = t
	c.mu.Unlock()
	return t.Clone(), nil
}

// Warm loads every mode's sample concurrently. Every mode is attempted;
// the first failure is returned.
func (c *SampleCatalog) Warm(ctx context.Context) error {
	var g errgroup.Group
	for _, mode := range quality.Modes() {
		if quality.Spec(mode).SampleFile == "" {
			continue
		}
		g.Go(func() error {
			if _, err := c.Load(ctx, mode); err != nil {
				logging.FromContext(ctx).Warn("sample warm-up failed", "mode", mode, "error", err)
				return err
			}
			return nil
		})
	}
	return g.Wait()
}
