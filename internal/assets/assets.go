// Package assets copies generated images from provider URLs into blob
// storage and inspects reference images.
package assets

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/cespare/xxhash/v2"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/palette/pkg/formatting"
	"github.com/JaimeStill/palette/pkg/storage"
)

var (
	ErrTooLarge   = errors.New("asset exceeds size limit")
	ErrFetch      = errors.New("asset fetch failed")
	ErrNotAnImage = errors.New("asset is not an image")
)

// Store persists stage outputs. It satisfies pipeline.Assets.
type Store struct {
	store       storage.System
	http        *http.Client
	maxBytes    int64
	concurrency int
	prefix      string
	private     bool
	logger      *slog.Logger
}

// New creates a Store. A nil httpClient uses one with the configured
// fetch timeout.
func New(cfg *Config, store storage.System, httpClient *http.Client, logger *slog.Logger) *Store {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.FetchTimeoutDuration()}
	}
	return &Store{
		store:       store,
		http:        httpClient,
		maxBytes:    cfg.MaxAssetBytes(),
		concurrency: cfg.Concurrency,
		prefix:      cfg.PublicPrefix,
		private:     cfg.AllowPrivateSources,
		logger:      logger.With("system", "assets"),
	}
}

// Key returns the storage key of a stage output: the run, the one-based
// stage, and a hash of the source URL.
func Key(runID string, stage int, source, ext string) string {
	return fmt.Sprintf("runs/%s/stage-%d/%016x%s", runID, stage, xxhash.Sum64String(source), ext)
}

// Persist copies urls into storage concurrently and returns their public
// paths in input order. Any failure fails the whole call.
func (s *Store) Persist(ctx context.Context, runID string, stage int, urls []string) ([]string, error) {
	out := make([]string, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i, src := range urls {
		g.Go(func() error {
			key, err := s.copy(gctx, runID, stage, src)
			if err != nil {
				return err
			}
			out[i] = s.prefix + key
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) copy(ctx context.Context, runID string, stage int, src string) (string, error) {
	data, contentType, err := s.fetch(ctx, src)
	if err != nil {
		return "", err
	}

	key := Key(runID, stage, src, extension(contentType, src))
	if err := s.store.Upload(ctx, key, bytes.NewReader(data), contentType); err != nil {
		return "", err
	}

	s.logger.DebugContext(ctx, "asset persisted",
		"run_id", runID,
		"stage", stage,
		"key", key,
		"size", formatting.FormatBytes(int64(len(data)), 1),
	)
	return key, nil
}

func (s *Store) fetch(ctx context.Context, src string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("%w: %s returned %d", ErrFetch, src, resp.StatusCode)
	}
	if resp.ContentLength > s.maxBytes {
		return nil, "", fmt.Errorf("%w: %d bytes", ErrTooLarge, resp.ContentLength)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, s.maxBytes+1))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	if int64(len(data)) > s.maxBytes {
		return nil, "", fmt.Errorf("%w: more than %s", ErrTooLarge, formatting.FormatBytes(s.maxBytes, 0))
	}

	contentType := http.DetectContentType(data)
	if !strings.HasPrefix(contentType, "image/") {
		if ct, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); strings.HasPrefix(ct, "image/") {
			contentType = ct
		} else {
			return nil, "", fmt.Errorf("%w: %s", ErrNotAnImage, contentType)
		}
	}
	return data, contentType, nil
}

func extension(contentType, src string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	}
	if u, err := url.Parse(src); err == nil {
		if ext := path.Ext(u.Path); ext != "" {
			return strings.ToLower(ext)
		}
	}
	return ""
}
