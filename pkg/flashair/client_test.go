package flashair

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCard serves a tiny in-memory card tree.
type fakeCard struct {
	mu       sync.Mutex
	dirs     map[string][]string // dir -> rows without the dir column
	files    map[string]string
	deleted  []string
	password string
	failDirs map[string]bool
}

func (f *fakeCard) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.password != "" && r.URL.Query().Get("p") != f.password {
		http.Error(w, "forbidden", http.StatusForbidden)
		return
	}

	if r.URL.Path == "/command.cgi" {
		q := r.URL.Query()
		switch q.Get("op") {
		case "100":
			dir := q.Get("DIR")
			if f.failDirs[dir] {
				http.Error(w, "boom", http.StatusInternalServerError)
				return
			}
			rows, ok := f.dirs[dir]
			if !ok {
				http.NotFound(w, r)
				return
			}
			fmt.Fprint(w, "WLANSD_FILELIST\r\n")
			for _, row := range rows {
				fmt.Fprintf(w, "%s,%s\r\n", dir, row)
			}
		case "111":
			f.deleted = append(f.deleted, q.Get("DEL"))
			fmt.Fprint(w, "SUCCESS")
		default:
			http.Error(w, "bad op", http.StatusBadRequest)
		}
		return
	}

	body, ok := f.files[r.URL.Path]
	if !ok {
		http.NotFound(w, r)
		return
	}
	fmt.Fprint(w, body)
}

func newTestClient(t *testing.T, card *fakeCard) *Client {
	t.Helper()

	srv := httptest.NewServer(card)
	t.Cleanup(srv.Close)

	c, err := New(config.FlashAir{
		Host:            srv.URL,
		Password:        card.password,
		Timeout:         config.Duration{Duration: 2 * time.Second},
		DownloadTimeout: config.Duration{Duration: 2 * time.Second},
	}, WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func sampleCard() *fakeCard {
	return &fakeCard{
		password: "secret",
		dirs: map[string][]string{
			"/DATALOG":          {"20240315,0,16,1,1", "20240314,0,16,1,1"},
			"/DATALOG/20240315": {"a_BRP.edf,4,32,1,1", "a_EVE.edf,4,32,1,1"},
			"/DATALOG/20240314": {"b_BRP.edf,4,32,1,1"},
			"/SETTINGS":         {"CGL.tgt,3,32,1,1"},
		},
		files: map[string]string{
			"/STR.edf":                    "str",
			"/DATALOG/20240315/a_BRP.edf": "brp1",
			"/SETTINGS/My File.tgt":       "spaced",
		},
		failDirs: map[string]bool{},
	}
}

func TestClientList(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, sampleCard())
	entries, err := c.List(context.Background(), "/DATALOG")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "/DATALOG/20240315", entries[0].Path())
	assert.True(t, entries[0].IsDir())
}

func TestClientListStatusError(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, sampleCard())
	_, err := c.List(context.Background(), "/MISSING")

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Status)
	assert.NotContains(t, err.Error(), "secret")
}

func TestClientFetch(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, sampleCard())
	dest := filepath.Join(t.TempDir(), "SETTINGS", "My File.tgt")

	n, err := c.Fetch(context.Background(), "/SETTINGS/My File.tgt", dest)
	require.NoError(t, err)
	assert.EqualValues(t, len("spaced"), n)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "spaced", string(data))
}

func TestClientFetchFailureLeavesDestination(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, sampleCard())
	dest := filepath.Join(t.TempDir(), "absent.edf")
	require.NoError(t, os.WriteFile(dest, []byte("previous"), 0o644))

	_, err := c.Fetch(context.Background(), "/absent.edf", dest)
	require.Error(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
}

func TestClientDelete(t *testing.T) {
	t.Parallel()

	card := sampleCard()
	c := newTestClient(t, card)
	require.NoError(t, c.Delete(context.Background(), "/DATALOG/20240101"))

	card.mu.Lock()
	defer card.mu.Unlock()
	assert.Equal(t, []string{"/DATALOG/20240101"}, card.deleted)
}

func TestClientRejectsWrongPassword(t *testing.T) {
	t.Parallel()

	card := sampleCard()
	srv := httptest.NewServer(card)
	t.Cleanup(srv.Close)

	c, err := New(config.FlashAir{Host: srv.URL, Password: "nope"})
	require.NoError(t, err)

	_, err = c.List(context.Background(), "/DATALOG")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusForbidden, se.Status)
}

func TestNewAddsScheme(t *testing.T) {
	t.Parallel()

	c, err := New(config.FlashAir{Host: "192.168.0.20"})
	require.NoError(t, err)
	assert.Equal(t, "http", c.base.Scheme)
	assert.Equal(t, "192.168.0.20", c.base.Host)

	_, err = New(config.FlashAir{Host: "  "})
	require.Error(t, err)
}

func TestWalk(t *testing.T) {
	t.Parallel()

	card := sampleCard()
	card.failDirs["/DATALOG/20240314"] = true
	c := newTestClient(t, card)

	var failed []string
	files, err := Walk(context.Background(), c, "/DATALOG", func(dir string, err error) {
		failed = append(failed, dir)
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"/DATALOG/20240315/a_BRP.edf", "/DATALOG/20240315/a_EVE.edf"}, files)
	assert.Equal(t, []string{"/DATALOG/20240314"}, failed)
}

func TestWalkRootFailure(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, sampleCard())
	_, err := Walk(context.Background(), c, "/NOPE", nil)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "404"))
}

func TestWalkCancelled(t *testing.T) {
	t.Parallel()

	c := newTestClient(t, sampleCard())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Walk(ctx, c, "/DATALOG", nil)
	require.ErrorIs(t, err, context.Canceled)
}
