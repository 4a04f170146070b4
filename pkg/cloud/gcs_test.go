package cloud

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/olimci/sleepsync/pkg/store/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
)

// fakeGCS serves the JSON API object list and delete calls for one bucket.
type fakeGCS struct {
	mu        sync.Mutex
	bucket    string
	pageSize  int
	objects   map[string]bool
	listCalls []url.Values
	deleted   []string
	vanish    string // removed by another writer right after a listing
}

func (f *fakeGCS) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	objects := "/storage/v1/b/" + f.bucket + "/o"
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && r.URL.Path == objects:
		f.listCalls = append(f.listCalls, r.URL.Query())
		f.list(w, r.URL.Query())
		delete(f.objects, f.vanish)

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, objects+"/"):
		name := strings.TrimPrefix(r.URL.Path, objects+"/")
		f.deleted = append(f.deleted, name)
		if !f.objects[name] {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"code":404,"message":"No such object"}}`))
			return
		}
		delete(f.objects, name)
		w.WriteHeader(http.StatusNoContent)

	default:
		http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotImplemented)
	}
}

func (f *fakeGCS) list(w http.ResponseWriter, query url.Values) {
	prefix := query.Get("prefix")
	delimiter := query.Get("delimiter")

	seen := map[string]bool{}
	var entries []string
	for name := range f.objects {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		entry := name
		if delimiter != "" {
			if i := strings.Index(name[len(prefix):], delimiter); i >= 0 {
				entry = name[:len(prefix)+i+len(delimiter)]
			}
		}
		if !seen[entry] {
			seen[entry] = true
			entries = append(entries, entry)
		}
	}
	sort.Strings(entries)

	// the token is the last name served so deletes between pages skip nothing
	start := 0
	if tok := query.Get("pageToken"); tok != "" {
		start = sort.SearchStrings(entries, tok)
		if start < len(entries) && entries[start] == tok {
			start++
		}
	}
	end := min(start+f.pageSize, len(entries))

	items := []map[string]string{}
	prefixes := []string{}
	for _, e := range entries[start:end] {
		if delimiter != "" && strings.HasSuffix(e, delimiter) {
			prefixes = append(prefixes, e)
			continue
		}
		items = append(items, map[string]string{"kind": "storage#object", "bucket": f.bucket, "name": e})
	}
	page := map[string]any{"kind": "storage#objects", "items": items, "prefixes": prefixes}
	if end < len(entries) {
		page["nextPageToken"] = entries[end-1]
	}
	_ = json.NewEncoder(w).Encode(page)
}

func newTestGCS(t *testing.T, pageSize int, objects ...string) (*GCS, *fakeGCS) {
	t.Helper()

	fake := &fakeGCS{bucket: "cpap-bucket", pageSize: pageSize, objects: map[string]bool{}}
	for _, o := range objects {
		fake.objects[o] = true
	}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	g, err := NewGCS(context.Background(), config.GCS{Bucket: "cpap-bucket", Prefix: "cpap/"}, 10*time.Second,
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Close() })
	return g, fake
}

func TestGCSListFoldersUsesDelimiterAndPages(t *testing.T) {
	t.Parallel()

	g, fake := newTestGCS(t, 2,
		"cpap/20240301/STR.edf",
		"cpap/20240301/DATALOG/20240301/BRP.edf",
		"cpap/20240302/STR.edf",
		"cpap/20240303/STR.edf",
		"cpap/stray.txt",
		"other/20240304/STR.edf",
	)

	folders, err := g.ListFolders(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []Folder{
		{ID: "cpap/20240301/", Name: "20240301"},
		{ID: "cpap/20240302/", Name: "20240302"},
		{ID: "cpap/20240303/", Name: "20240303"},
	}, folders)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	require.Len(t, fake.listCalls, 2)
	for _, q := range fake.listCalls {
		assert.Equal(t, "cpap/", q.Get("prefix"))
		assert.Equal(t, "/", q.Get("delimiter"))
	}
}

func TestGCSDeleteFolderRemovesEveryObject(t *testing.T) {
	t.Parallel()

	g, fake := newTestGCS(t, 2,
		"cpap/20240301/STR.edf",
		"cpap/20240301/Identification.tgt",
		"cpap/20240301/DATALOG/20240301/BRP.edf",
		"cpap/20240302/STR.edf",
	)

	err := g.DeleteFolder(context.Background(), Folder{ID: "cpap/20240301/", Name: "20240301"})
	require.NoError(t, err)

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.Len(t, fake.deleted, 3)
	assert.Equal(t, map[string]bool{"cpap/20240302/STR.edf": true}, fake.objects)
}

func TestGCSDeleteFolderIgnoresVanishedObjects(t *testing.T) {
	t.Parallel()

	g, fake := newTestGCS(t, 10, "cpap/20240301/STR.edf", "cpap/20240301/BRP.edf")
	fake.vanish = "cpap/20240301/BRP.edf"

	require.NoError(t, g.DeleteFolder(context.Background(), Folder{ID: "cpap/20240301/", Name: "20240301"}))

	fake.mu.Lock()
	defer fake.mu.Unlock()
	assert.ElementsMatch(t, []string{"cpap/20240301/STR.edf", "cpap/20240301/BRP.edf"}, fake.deleted)
	assert.Empty(t, fake.objects)
}
