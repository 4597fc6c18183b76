package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/mindscrole/reelscribe/internal/job"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// loopbackDirect returns a Direct that may reach httptest servers on
// 127.0.0.1; NewDirect refuses them.
func loopbackDirect(maxBytes int64) *Direct {
	d := NewDirect(5*time.Second, maxBytes, zerolog.Nop())
	d.client = &http.Client{Timeout: 5 * time.Second}
	return d
}

func loopbackLink(t *testing.T, raw string) Link {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return Link{URL: u, Direct: true}
}

func TestDirectFetch(t *testing.T) {
	payload := bytes.Repeat([]byte("v"), 1024)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.mp4":
			w.Write(payload)
		case "/private.mp4":
			w.WriteHeader(http.StatusForbidden)
		case "/gone.mp4":
			w.WriteHeader(http.StatusNotFound)
		case "/slow-down.mp4":
			w.Header().Set("Retry-After", "120")
			w.WriteHeader(http.StatusTooManyRequests)
		case "/broken.mp4":
			w.WriteHeader(http.StatusBadGateway)
		case "/empty.mp4":
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	d := loopbackDirect(0)

	t.Run("success", func(t *testing.T) {
		dir := t.TempDir()
		path, err := d.Fetch(context.Background(), loopbackLink(t, srv.URL+"/ok.mp4"), dir)
		require.NoError(t, err)
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, payload, data)
	})

	for _, tt := range []struct {
		path string
		want job.Category
	}{
		{"/private.mp4", job.SourceUnavailable},
		{"/gone.mp4", job.SourceUnavailable},
		{"/slow-down.mp4", job.RateLimited},
		{"/broken.mp4", job.SourceUnavailable},
		{"/empty.mp4", job.ProcessingFailure},
	} {
		t.Run(tt.path, func(t *testing.T) {
			_, err := d.Fetch(context.Background(), loopbackLink(t, srv.URL+tt.path), t.TempDir())
			require.Error(t, err)
			assert.Equal(t, tt.want, job.CategoryOf(err, ""))
		})
	}

	t.Run("over_limit", func(t *testing.T) {
		small := loopbackDirect(100)
		dir := t.TempDir()
		_, err := small.Fetch(context.Background(), loopbackLink(t, srv.URL+"/ok.mp4"), dir)
		assert.Equal(t, job.InputTooLarge, job.CategoryOf(err, ""))
		entries, _ := os.ReadDir(dir)
		assert.Empty(t, entries, "partial download must be removed")
	})

	t.Run("unreachable_host", func(t *testing.T) {
		_, err := d.Fetch(context.Background(), loopbackLink(t, "http://127.0.0.1:1/clip.mp4"), t.TempDir())
		assert.Equal(t, job.SourceUnavailable, job.CategoryOf(err, ""))
	})
}

func TestDirectFetchInterruptedRemovesPartialFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		panic(http.ErrAbortHandler)
	}))
	defer srv.Close()

	dir := t.TempDir()
	_, err := loopbackDirect(0).Fetch(context.Background(), loopbackLink(t, srv.URL+"/clip.mp4"), dir)
	require.Error(t, err)
	assert.Equal(t, job.SourceUnavailable, job.CategoryOf(err, ""))
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)
}

func TestDirectRefusesNonPublicAddresses(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("secret"))
	}))
	defer srv.Close()

	d := NewDirect(5*time.Second, 0, zerolog.Nop())
	_, err := d.Fetch(context.Background(), loopbackLink(t, srv.URL+"/export.mp4"), t.TempDir())
	require.Error(t, err)
	assert.Equal(t, job.SourceUnavailable, job.CategoryOf(err, ""))
	assert.Contains(t, err.Error(), "non-public address")
	assert.Zero(t, hits)
}

func TestIsPublicAddr(t *testing.T) {
	for addr, want := range map[string]bool{
		"93.184.216.34":    true,
		"2606:4700::1111":  true,
		"127.0.0.1":        false,
		"10.1.2.3":         false,
		"172.16.0.9":       false,
		"192.168.1.1":      false,
		"169.254.169.254":  false,
		"100.64.0.1":       false,
		"0.0.0.0":          false,
		"::1":              false,
		"fe80::1":          false,
		"fd00::1":          false,
		"::ffff:127.0.0.1": false,
	} {
		assert.Equal(t, want, isPublicAddr(netip.MustParseAddr(addr)), addr)
	}
}
