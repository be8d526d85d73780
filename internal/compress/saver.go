package compress

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"sync"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog/log"

	fileutil "examcompress/internal/file"
)

// Saver is a download navigator for non-browser front ends: each Navigate
// call fetches the URL in the background and stores the body in dir.
// Navigate itself never reports failure; Saved and Failed are for display.
type Saver struct {
	dir    string
	client *retryablehttp.Client

	wg     sync.WaitGroup
	mu     sync.Mutex
	saved  []string
	failed map[string]error
	names  map[string]int
}

// NewSaver builds a Saver writing into dir. A nil client gets a default
// retryable client logging through zerolog.
func NewSaver(dir string, client *retryablehttp.Client) *Saver {
	if client == nil {
		client = retryablehttp.NewClient()
		client.RetryMax = 3
		client.Logger = zerologLeveled{}
	}
	return &Saver{dir: dir, client: client, failed: make(map[string]error), names: make(map[string]int)}
}

// Navigate starts a background download of rawURL.
func (s *Saver) Navigate(rawURL string) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		dest, err := s.fetch(rawURL)
		s.mu.Lock()
		defer s.mu.Unlock()
		if err != nil {
			log.Warn().Str("url", rawURL).Err(err).Msg("download failed")
			s.failed[rawURL] = err
			return
		}
		log.Info().Str("url", rawURL).Str("path", dest).Msg("download saved")
		s.saved = append(s.saved, dest)
	}()
}

// Wait blocks until in-flight downloads finish or ctx is done. It returns
// false on timeout.
func (s *Saver) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// Saved lists the paths written so far.
func (s *Saver) Saved() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.saved...)
}

// Failed maps URLs to the error that stopped their download.
func (s *Saver) Failed() map[string]error {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]error, len(s.failed))
	for k, v := range s.failed {
		out[k] = v
	}
	return out
}

func (s *Saver) fetch(rawURL string) (string, error) {
	resp, err := s.client.Get(rawURL)
	if err != nil {
		return "", fmt.Errorf("get: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("invalid status code: %d", resp.StatusCode)
	}
	dest := filepath.Join(s.dir, s.reserve(downloadName(resp, rawURL)))
	if _, err := fileutil.CopyAtomic(dest, resp.Body); err != nil {
		return "", err
	}
	return dest, nil
}

// reserve claims name for one download. Later downloads with the same
// name get "name (2).ext", "name (3).ext" and so on.
func (s *Saver) reserve(name string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for {
		s.names[name]++
		n := s.names[name]
		if n == 1 {
			return name
		}
		ext := filepath.Ext(name)
		name = fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	}
}

// downloadName prefers the server's Content-Disposition filename and falls
// back to the last URL path segment.
func downloadName(resp *http.Response, rawURL string) string {
	if cd := resp.Header.Get("Content-Disposition"); cd != "" {
		if _, params, err := mime.ParseMediaType(cd); err == nil {
			if name := safeBase(params["filename"]); name != "" {
				return name
			}
		}
	}
	if u, err := url.Parse(rawURL); err == nil {
		if name := safeBase(path.Base(u.Path)); name != "" {
			return name
		}
	}
	return "download"
}

func safeBase(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if name == "." || name == "/" || name == ".." {
		return ""
	}
	return name
}

// zerologLeveled adapts zerolog to retryablehttp.LeveledLogger.
type zerologLeveled struct{}

func (zerologLeveled) Error(msg string, kv ...any) { log.Error().Fields(kv).Msg(msg) }
func (zerologLeveled) Warn(msg string, kv ...any)  { log.Warn().Fields(kv).Msg(msg) }
func (zerologLeveled) Info(msg string, kv ...any)  { log.Debug().Fields(kv).Msg(msg) }
func (zerologLeveled) Debug(msg string, kv ...any) { log.Debug().Fields(kv).Msg(msg) }
