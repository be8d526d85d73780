package compress

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"testing"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/stretchr/testify/require"
)

func TestSaverStoresDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/download/x1":
			w.Header().Set("Content-Disposition", `attachment; filename="../p.pdf"`)
			_, _ = w.Write([]byte("small pdf"))
		case "/api/download/x2":
			_, _ = w.Write([]byte("small jpg"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	dir := t.TempDir()
	s := NewSaver(dir, client)
	s.Navigate(srv.URL + "/api/download/x1")
	s.Navigate(srv.URL + "/api/download/x2")
	s.Navigate(srv.URL + "/api/download/missing")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, s.Wait(ctx))

	require.ElementsMatch(t, []string{filepath.Join(dir, "p.pdf"), filepath.Join(dir, "x2")}, s.Saved())
	require.Len(t, s.Failed(), 1)

	got, err := os.ReadFile(filepath.Join(dir, "p.pdf"))
	require.NoError(t, err)
	require.Equal(t, "small pdf", string(got))
}

func TestSaverKeepsSameNamedDownloads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Disposition", `attachment; filename="p.pdf"`)
		_, _ = w.Write([]byte("body of " + path.Base(r.URL.Path)))
	}))
	defer srv.Close()

	client := retryablehttp.NewClient()
	client.RetryMax = 0
	client.Logger = nil

	dir := t.TempDir()
	s := NewSaver(dir, client)
	s.Navigate(srv.URL + "/api/download/x1")
	s.Navigate(srv.URL + "/api/download/x2")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.True(t, s.Wait(ctx))

	first, second := filepath.Join(dir, "p.pdf"), filepath.Join(dir, "p (2).pdf")
	require.ElementsMatch(t, []string{first, second}, s.Saved())
	require.Empty(t, s.Failed())

	var bodies []string
	for _, p := range []string{first, second} {
		got, err := os.ReadFile(p)
		require.NoError(t, err)
		bodies = append(bodies, string(got))
	}
	require.ElementsMatch(t, []string{"body of x1", "body of x2"}, bodies)
}

func TestReserveNumbersDuplicates(t *testing.T) {
	s := NewSaver(t.TempDir(), nil)
	require.Equal(t, "a.pdf", s.reserve("a.pdf"))
	require.Equal(t, "a (2).pdf", s.reserve("a.pdf"))
	require.Equal(t, "a (2) (2).pdf", s.reserve("a (2).pdf"))
	require.Equal(t, "photo", s.reserve("photo"))
	require.Equal(t, "photo (2)", s.reserve("photo"))
}

func TestSafeBase(t *testing.T) {
	require.Equal(t, "a.pdf", safeBase(`..\..\a.pdf`))
	require.Equal(t, "", safeBase(".."))
	require.Equal(t, "", safeBase(""))
}
