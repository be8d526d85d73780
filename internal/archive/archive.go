package archive

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"examcompress/internal/compress"
	fileutil "examcompress/internal/file"
)

const defaultHTTPTimeout = 30 * time.Second

var ErrNoEntries = errors.New("nothing to archive")

// Entry is one compressed file to fetch into the bundle.
type Entry struct {
	Name string
	URL  string
}

// Result describes the outcome of fetching a single entry into the zip.
type Result struct {
	Name string `json:"name"`
	Err  string `json:"error,omitempty"`
}

// Entries builds bundle entries from service outcomes. Names repeat-safe:
// a second "a.pdf" becomes "a (2).pdf".
func Entries(results compress.ResultSet, downloadURL func(id string) string) []Entry {
	seen := make(map[string]int, len(results))
	out := make([]Entry, 0, len(results))
	for i, o := range results {
		out = append(out, Entry{
			Name: uniqueName(seen, entryName(o.OriginalName, i)),
			URL:  downloadURL(o.ID),
		})
	}
	return out
}

// Write streams a zip of every entry into w. Entries that cannot be fetched
// are left out and reported in the matching Result. A nil client gets a
// plain client with a timeout.
func Write(ctx context.Context, w io.Writer, client *http.Client, entries []Entry) ([]Result, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}

	zipWriter := zip.NewWriter(w)
	results := make([]Result, len(entries))
	for i, e := range entries {
		results[i] = fetchEntry(ctx, client, zipWriter, e)
	}
	if err := zipWriter.Close(); err != nil {
		log.Error().Err(err).Msg("closing zip writer failed")
		return results, fmt.Errorf("close zip writer: %w", err)
	}
	return results, nil
}

// BuildFile writes the bundle to destZipPath atomically.
func BuildFile(ctx context.Context, destZipPath string, client *http.Client, entries []Entry) ([]Result, error) {
	if len(entries) == 0 {
		return nil, ErrNoEntries
	}
	pr, pw := io.Pipe()
	var results []Result
	done := make(chan struct{})
	go func() {
		defer close(done)
		var err error
		results, err = Write(ctx, pw, client, entries)
		_ = pw.CloseWithError(err)
	}()
	_, err := fileutil.CopyAtomic(destZipPath, pr)
	_ = pr.CloseWithError(err)
	<-done
	if err != nil {
		return results, fmt.Errorf("write bundle: %w", err)
	}
	return results, nil
}

func fetchEntry(ctx context.Context, client *http.Client, zipWriter *zip.Writer, e Entry) Result {
	result := Result{Name: e.Name}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.URL, nil)
	if err != nil {
		result.Err = err.Error()
		return result
	}
	resp, err := client.Do(req)
	if err != nil {
		result.Err = err.Error()
		log.Warn().Str("url", e.URL).Err(err).Msg("http request failed")
		return result
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		result.Err = fmt.Sprintf("http %d", resp.StatusCode)
		log.Warn().Str("url", e.URL).Int("status", resp.StatusCode).Msg("unexpected status code")
		return result
	}

	zipEntryWriter, err := zipWriter.Create(e.Name)
	if err != nil {
		result.Err = err.Error()
		log.Warn().Str("name", e.Name).Err(err).Msg("zip entry create failed")
		return result
	}
	if _, err := io.Copy(zipEntryWriter, resp.Body); err != nil {
		result.Err = err.Error()
		log.Warn().Str("url", e.URL).Err(err).Msg("copy into zip failed")
	}
	return result
}

// entryName keeps only the base name; empty names fall back to index-based naming
func entryName(name string, index int) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	if base == "/" || base == "." || base == "" || base == ".." {
		return fmt.Sprintf("file-%d", index+1)
	}
	return base
}

func uniqueName(seen map[string]int, name string) string {
	seen[name]++
	n := seen[name]
	if n == 1 {
		return name
	}
	ext := path.Ext(name)
	candidate := fmt.Sprintf("%s (%d)%s", strings.TrimSuffix(name, ext), n, ext)
	return uniqueName(seen, candidate)
}
