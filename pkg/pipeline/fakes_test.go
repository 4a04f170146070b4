package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/olimci/sleepsync/pkg/cloud"
	"github.com/olimci/sleepsync/pkg/flashair"
	"github.com/olimci/sleepsync/pkg/sleephq"
)

var errFake = errors.New("fake failure")

// events records cross-fake call order.
type events struct {
	mu  sync.Mutex
	log []string
}

func (e *events) add(format string, args ...any) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.log = append(e.log, fmt.Sprintf(format, args...))
}

func (e *events) with(prefix string) []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, ev := range e.log {
		if strings.HasPrefix(ev, prefix) {
			out = append(out, ev)
		}
	}
	return out
}

type fakeCard struct {
	dirs      map[string][]flashair.Entry
	files     map[string]string
	listErr   map[string]error
	fetchErr  map[string]error
	deleteErr map[string]error
	deleted   []string
}

func newFakeCard() *fakeCard {
	return &fakeCard{
		dirs:      map[string][]flashair.Entry{"/": nil},
		files:     map[string]string{},
		listErr:   map[string]error{},
		fetchErr:  map[string]error{},
		deleteErr: map[string]error{},
	}
}

func splitCardPath(p string) (string, string) {
	dir, name := path.Split(p)
	dir = strings.TrimSuffix(dir, "/")
	if dir == "" {
		dir = "/"
	}
	return dir, name
}

func (c *fakeCard) addDir(dir string) {
	if _, ok := c.dirs[dir]; ok {
		return
	}
	c.dirs[dir] = nil
	parent, name := splitCardPath(dir)
	c.addDir(parent)
	c.dirs[parent] = append(c.dirs[parent], flashair.Entry{Dir: parent, Name: name, Attr: flashair.AttrDirectory})
}

func (c *fakeCard) addFile(p, content string) {
	dir, name := splitCardPath(p)
	c.addDir(dir)
	c.files[p] = content
	c.dirs[dir] = append(c.dirs[dir], flashair.Entry{Dir: dir, Name: name, Size: int64(len(content)), Attr: 0x20})
}

func (c *fakeCard) removeFile(p string) {
	delete(c.files, p)
	dir, name := splitCardPath(p)
	entries := c.dirs[dir][:0]
	for _, e := range c.dirs[dir] {
		if e.Name != name {
			entries = append(entries, e)
		}
	}
	c.dirs[dir] = entries
}

func (c *fakeCard) List(_ context.Context, dir string) ([]flashair.Entry, error) {
	if err := c.listErr[dir]; err != nil {
		return nil, err
	}
	entries, ok := c.dirs[dir]
	if !ok {
		return nil, fmt.Errorf("list %s: not found", dir)
	}
	return append([]flashair.Entry(nil), entries...), nil
}

func (c *fakeCard) Fetch(_ context.Context, remote, dest string) (int64, error) {
	if err := c.fetchErr[remote]; err != nil {
		return 0, err
	}
	content, ok := c.files[remote]
	if !ok {
		return 0, fmt.Errorf("download %s: not found", remote)
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, err
	}
	if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
		return 0, err
	}
	return int64(len(content)), nil
}

func (c *fakeCard) Delete(_ context.Context, p string) error {
	if err := c.deleteErr[p]; err != nil {
		return err
	}
	c.deleted = append(c.deleted, p)
	return nil
}

type fakeAnalytics struct {
	ev          *events
	authErr     error
	createErr   error
	processErr  error
	attachErr   map[string]error // by relative path
	panicCreate bool
	imports     int
}

func (a *fakeAnalytics) Authenticate(context.Context) error {
	a.ev.add("auth")
	return a.authErr
}

func (a *fakeAnalytics) CreateImport(context.Context) (string, error) {
	if a.panicCreate {
		panic("import exploded")
	}
	a.ev.add("create")
	if a.createErr != nil {
		return "", a.createErr
	}
	a.imports++
	return fmt.Sprintf("imp-%d", a.imports), nil
}

func (a *fakeAnalytics) UploadFile(_ context.Context, importID string, f sleephq.File) error {
	if err := a.attachErr[f.Path]; err != nil {
		a.ev.add("attach-failed:%s", f.Path)
		return err
	}
	a.ev.add("attach:%s", f.Path)
	return nil
}

func (a *fakeAnalytics) ProcessImport(_ context.Context, importID string) error {
	a.ev.add("process:%s", importID)
	return a.processErr
}

type fakeCloud struct {
	ev        *events
	folders   map[string][]string
	order     []string
	ensureErr error
	listErr   error
	uploadErr map[string]error // by file name
	deleted   []string
}

func newFakeCloud(ev *events, names ...string) *fakeCloud {
	c := &fakeCloud{ev: ev, folders: map[string][]string{}, uploadErr: map[string]error{}}
	for _, n := range names {
		c.folders[n] = nil
		c.order = append(c.order, n)
	}
	return c
}

func (c *fakeCloud) EnsureFolder(_ context.Context, name string) (cloud.Folder, error) {
	if c.ensureErr != nil {
		return cloud.Folder{}, c.ensureErr
	}
	if _, ok := c.folders[name]; !ok {
		c.folders[name] = nil
		c.order = append(c.order, name)
	}
	return cloud.Folder{ID: "id-" + name, Name: name}, nil
}

func (c *fakeCloud) Upload(_ context.Context, folder cloud.Folder, name, localPath string) error {
	if err := c.uploadErr[name]; err != nil {
		return err
	}
	if _, err := os.Stat(localPath); err != nil {
		return err
	}
	c.ev.add("cloud:%s/%s", folder.Name, name)
	c.folders[folder.Name] = append(c.folders[folder.Name], name)
	return nil
}

func (c *fakeCloud) ListFolders(context.Context) ([]cloud.Folder, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	var out []cloud.Folder
	for _, n := range c.order {
		if _, ok := c.folders[n]; ok {
			out = append(out, cloud.Folder{ID: "id-" + n, Name: n})
		}
	}
	return out, nil
}

func (c *fakeCloud) DeleteFolder(_ context.Context, folder cloud.Folder) error {
	delete(c.folders, folder.Name)
	c.deleted = append(c.deleted, folder.Name)
	return nil
}

func (c *fakeCloud) Close() error {
	return nil
}

type sentMail struct {
	subject string
	body    string
}

type fakeNotifier struct {
	sent []sentMail
	err  error
	// ctx state seen by the last Send
	ctxErr      error
	deadline    time.Time
	hasDeadline bool
}

func (n *fakeNotifier) Send(ctx context.Context, subject, body string) error {
	n.sent = append(n.sent, sentMail{subject: subject, body: body})
	n.ctxErr = ctx.Err()
	n.deadline, n.hasDeadline = ctx.Deadline()
	return n.err
}
