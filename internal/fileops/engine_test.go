package fileops_test

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/model"
)

func newEngine(t *testing.T, cfg fileops.EngineConfig) *fileops.Engine {
	t.Helper()
	e, err := fileops.NewEngine(cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(ctx)
	})
	return e
}

func wait(t *testing.T, h *fileops.Handle) model.Progress {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p, err := h.Wait(ctx)
	require.NoError(t, err)
	return p
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// snapshot lists every object under root as "rel kind size content".
func snapshot(t *testing.T, root string) []string {
	t.Helper()
	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, _ := filepath.Rel(root, path)
		info, err := d.Info()
		if err != nil {
			return err
		}
		switch {
		case d.Type()&os.ModeSymlink != 0:
			target, _ := os.Readlink(path)
			out = append(out, rel+" link "+target)
		case d.IsDir():
			out = append(out, rel+" dir "+info.Mode().Perm().String())
		default:
			data, _ := os.ReadFile(path)
			out = append(out, rel+" file "+info.Mode().Perm().String()+" "+string(data))
		}
		return nil
	})
	require.NoError(t, err)
	sort.Strings(out)
	return out
}

func TestCopyDirectoryTree(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dst := filepath.Join(tmp, "dst")
	writeFile(t, filepath.Join(src, "a.txt"), "0123456789")
	writeFile(t, filepath.Join(src, "d", "b.txt"), "abcde")
	require.NoError(t, os.Chmod(filepath.Join(src, "d", "b.txt"), 0o600))
	require.NoError(t, os.Symlink("a.txt", filepath.Join(src, "link")))
	require.NoError(t, os.Mkdir(dst, 0o755))

	e := newEngine(t, fileops.EngineConfig{})
	h, err := e.Submit(context.Background(), model.TaskRequest{
		Kind:        model.TaskKindCopy,
		Sources:     []string{src},
		Destination: dst,
	})
	require.NoError(t, err)

	p := wait(t, h)
	require.NoError(t, p.Err)
	assert.Equal(t, model.TaskStatusSucceeded, p.Status)
	assert.Equal(t, 3, p.TotalFiles)
	assert.Equal(t, 3, p.DoneFiles)
	assert.Equal(t, int64(15), p.TotalBytes)
	assert.Equal(t, int64(15), p.DoneBytes)

	assert.Equal(t, snapshot(t, src), snapshot(t, filepath.Join(dst, "src")))

	srcInfo, err := os.Stat(filepath.Join(src, "a.txt"))
	require.NoError(t, err)
	dstInfo, err := os.Stat(filepath.Join(dst, "src", "a.txt"))
	require.NoError(t, err)
	assert.True(t, srcInfo.ModTime().Equal(dstInfo.ModTime()))
}

func TestCopyValidation(t *testing.T) {
	tests := map[string]struct {
		setup  func(tmp string) model.TaskRequest
		expErr error
	}{
		"Copying a directory into itself should fail": {
			setup: func(tmp string) model.TaskRequest {
				writeFile(t, filepath.Join(tmp, "d", "sub", "f"), "x")
				return model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{filepath.Join(tmp, "d")}, Destination: filepath.Join(tmp, "d", "sub")}
			},
			expErr: model.ErrNotValid,
		},
		"Copying onto the same path should fail": {
			setup: func(tmp string) model.TaskRequest {
				writeFile(t, filepath.Join(tmp, "f"), "x")
				return model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{filepath.Join(tmp, "f")}, Destination: tmp}
			},
			expErr: model.ErrNotValid,
		},
		"A missing destination should be not found": {
			setup: func(tmp string) model.TaskRequest {
				writeFile(t, filepath.Join(tmp, "f"), "x")
				return model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{filepath.Join(tmp, "f")}, Destination: filepath.Join(tmp, "nope")}
			},
			expErr: model.ErrNotFound,
		},
		"A file destination should be not a directory": {
			setup: func(tmp string) model.TaskRequest {
				writeFile(t, filepath.Join(tmp, "f"), "x")
				writeFile(t, filepath.Join(tmp, "g"), "y")
				return model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{filepath.Join(tmp, "f")}, Destination: filepath.Join(tmp, "g")}
			},
			expErr: model.ErrNotADirectory,
		},
		"A missing source should be not found": {
			setup: func(tmp string) model.TaskRequest {
				require.NoError(t, os.Mkdir(filepath.Join(tmp, "out"), 0o755))
				return model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{filepath.Join(tmp, "ghost")}, Destination: filepath.Join(tmp, "out")}
			},
			expErr: model.ErrNotFound,
		},
		"A link to a sensitive system path should be refused": {
			setup: func(tmp string) model.TaskRequest {
				require.NoError(t, os.Mkdir(filepath.Join(tmp, "in"), 0o755))
				require.NoError(t, os.Mkdir(filepath.Join(tmp, "out"), 0o755))
				require.NoError(t, os.Symlink("/etc/passwd", filepath.Join(tmp, "in", "pw")))
				return model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{filepath.Join(tmp, "in")}, Destination: filepath.Join(tmp, "out")}
			},
			expErr: model.ErrProtected,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tmp := t.TempDir()
			req := test.setup(tmp)

			e := newEngine(t, fileops.EngineConfig{})
			h, err := e.Submit(context.Background(), req)
			require.NoError(t, err)

			p := wait(t, h)
			assert.Equal(t, model.TaskStatusFailed, p.Status)
			assert.ErrorIs(t, p.Err, test.expErr)
			assert.Equal(t, 0, p.DoneFiles)
		})
	}
}

func TestCopyCancelAndResume(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dst := filepath.Join(tmp, "dst")
	for _, n := range []string{"f0", "f1", "f2", "f3", "f4"} {
		writeFile(t, filepath.Join(src, n), n)
	}
	require.NoError(t, os.Mkdir(dst, 0o755))

	var e *fileops.Engine
	var once sync.Once
	e = newEngine(t, fileops.EngineConfig{
		ItemHook: func(id, path string) {
			if filepath.Base(path) != "f2" {
				return
			}
			once.Do(func() {
				for _, h := range e.Tasks() {
					if h.ID() == id {
						assert.True(t, h.Cancel())
					}
				}
			})
		},
	})

	req := model.TaskRequest{Kind: model.TaskKindCopy, Sources: []string{src}, Destination: dst}
	h, err := e.Submit(context.Background(), req)
	require.NoError(t, err)

	p := wait(t, h)
	assert.Equal(t, model.TaskStatusCancelled, p.Status)
	assert.Equal(t, 2, p.DoneFiles)
	assert.Equal(t, 5, p.TotalFiles)
	assert.Equal(t, filepath.Join(src, "f1"), p.LastItem)

	entries, err := os.ReadDir(filepath.Join(dst, "src"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Nothing is rolled back, a second run with overwrite completes the copy.
	req.Policy = model.ConflictOverwrite
	h, err = e.Submit(context.Background(), req)
	require.NoError(t, err)

	p = wait(t, h)
	require.NoError(t, p.Err)
	assert.Equal(t, model.TaskStatusSucceeded, p.Status)
	assert.Equal(t, snapshot(t, src), snapshot(t, filepath.Join(dst, "src")))
}

func TestCopyIntoExistingDirectoryAppliesMode(t *testing.T) {
	tmp := t.TempDir()
	src := filepath.Join(tmp, "src")
	dst := filepath.Join(tmp, "dst")
	writeFile(t, filepath.Join(src, "ro", "a.txt"), "a")
	writeFile(t, filepath.Join(dst, "src", "ro", "old.txt"), "old")

	mtime := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, os.Chtimes(filepath.Join(src, "ro"), mtime, mtime))
	require.NoError(t, os.Chmod(filepath.Join(src, "ro"), 0o555))
	t.Cleanup(func() {
		_ = os.Chmod(filepath.Join(src, "ro"), 0o755)
		_ = os.Chmod(filepath.Join(dst, "src", "ro"), 0o755)
	})

	e := newEngine(t, fileops.EngineConfig{})
	h, err := e.Submit(context.Background(), model.TaskRequest{
		Kind:        model.TaskKindCopy,
		Sources:     []string{src},
		Destination: dst,
		Policy:      model.ConflictOverwrite,
	})
	require.NoError(t, err)

	p := wait(t, h)
	require.NoError(t, p.Err)
	assert.Equal(t, model.TaskStatusSucceeded, p.Status)

	info, err := os.Stat(filepath.Join(dst, "src", "ro"))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o555), info.Mode().Perm())
	assert.True(t, mtime.Equal(info.ModTime()))
	assert.FileExists(t, filepath.Join(dst, "src", "ro", "a.txt"))
	assert.FileExists(t, filepath.Join(dst, "src", "ro", "old.txt"))
}

func TestCopyConflictPolicy(t *testing.T) {
	tests := map[string]struct {
		policy     model.ConflictPolicy
		expStatus  model.TaskStatus
		expErr     error
		expContent string
		expSkipped int
	}{
		"Fail-fast should abort on the first existing file": {
			policy:     model.ConflictFailFast,
			expStatus:  model.TaskStatusFailed,
			expErr:     model.ErrAlreadyExists,
			expContent: "old",
		},
		"Skip should keep the existing file": {
			policy:     model.ConflictSkip,
			expStatus:  model.TaskStatusSucceeded,
			expContent: "old",
			expSkipped: 1,
		},
		"Overwrite should replace the existing file": {
			policy:     model.ConflictOverwrite,
			expStatus:  model.TaskStatusSucceeded,
			expContent: "new",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tmp := t.TempDir()
			writeFile(t, filepath.Join(tmp, "src", "a.txt"), "new")
			writeFile(t, filepath.Join(tmp, "src", "b.txt"), "bbb")
			writeFile(t, filepath.Join(tmp, "dst", "a.txt"), "old")

			e := newEngine(t, fileops.EngineConfig{})
			h, err := e.Submit(context.Background(), model.TaskRequest{
				Kind:        model.TaskKindCopy,
				Sources:     []string{filepath.Join(tmp, "src", "a.txt"), filepath.Join(tmp, "src", "b.txt")},
				Destination: filepath.Join(tmp, "dst"),
				Policy:      test.policy,
			})
			require.NoError(t, err)

			p := wait(t, h)
			assert.Equal(t, test.expStatus, p.Status)
			if test.expErr != nil {
				assert.ErrorIs(t, p.Err, test.expErr)
				assert.Equal(t, filepath.Join(tmp, "src", "a.txt"), p.LastItem)
			} else {
				assert.NoError(t, p.Err)
				assert.Equal(t, p.TotalFiles, p.DoneFiles)
			}
			assert.Equal(t, test.expSkipped, p.Skipped)

			data, err := os.ReadFile(filepath.Join(tmp, "dst", "a.txt"))
			require.NoError(t, err)
			assert.Equal(t, test.expContent, string(data))
		})
	}
}

func TestMove(t *testing.T) {
	tests := map[string]struct {
		rename func(oldpath, newpath string) error
	}{
		"Same filesystem move should rename": {},
		"Cross-device move should fall back to copy and delete": {
			rename: func(oldpath, newpath string) error {
				return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: unix.EXDEV}
			},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tmp := t.TempDir()
			src := filepath.Join(tmp, "src")
			writeFile(t, filepath.Join(src, "a.txt"), "0123456789")
			writeFile(t, filepath.Join(src, "d", "b.txt"), "abcde")
			require.NoError(t, os.Mkdir(filepath.Join(tmp, "dst"), 0o755))
			exp := snapshot(t, src)

			e := newEngine(t, fileops.EngineConfig{Rename: test.rename})
			h, err := e.Submit(context.Background(), model.TaskRequest{
				Kind:        model.TaskKindMove,
				Sources:     []string{src},
				Destination: filepath.Join(tmp, "dst"),
			})
			require.NoError(t, err)

			p := wait(t, h)
			require.NoError(t, p.Err)
			assert.Equal(t, model.TaskStatusSucceeded, p.Status)
			assert.Equal(t, 2, p.DoneFiles)
			assert.Equal(t, int64(15), p.DoneBytes)

			assert.NoDirExists(t, src)
			assert.Equal(t, exp, snapshot(t, filepath.Join(tmp, "dst", "src")))
		})
	}
}

func TestMoveSkipKeepsSkippedSources(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "src", "keep.txt"), "new")
	writeFile(t, filepath.Join(tmp, "src", "go.txt"), "go")
	writeFile(t, filepath.Join(tmp, "dst", "src", "keep.txt"), "old")

	e := newEngine(t, fileops.EngineConfig{})
	h, err := e.Submit(context.Background(), model.TaskRequest{
		Kind:        model.TaskKindMove,
		Sources:     []string{filepath.Join(tmp, "src")},
		Destination: filepath.Join(tmp, "dst"),
		Policy:      model.ConflictSkip,
	})
	require.NoError(t, err)

	p := wait(t, h)
	require.NoError(t, p.Err)
	assert.Equal(t, 1, p.Skipped)

	assert.FileExists(t, filepath.Join(tmp, "src", "keep.txt"))
	assert.NoFileExists(t, filepath.Join(tmp, "src", "go.txt"))
	assert.FileExists(t, filepath.Join(tmp, "dst", "src", "go.txt"))
	data, err := os.ReadFile(filepath.Join(tmp, "dst", "src", "keep.txt"))
	require.NoError(t, err)
	assert.Equal(t, "old", string(data))
}

func TestDelete(t *testing.T) {
	tmp := t.TempDir()
	root := filepath.Join(tmp, "victim")
	writeFile(t, filepath.Join(root, "a.txt"), "0123456789")
	writeFile(t, filepath.Join(root, "d", "b.txt"), "abcde")
	require.NoError(t, os.Symlink("/etc", filepath.Join(root, "etc-link")))
	writeFile(t, filepath.Join(tmp, "other"), "stay")

	e := newEngine(t, fileops.EngineConfig{})
	h, err := e.Submit(context.Background(), model.TaskRequest{Kind: model.TaskKindDelete, Sources: []string{root}})
	require.NoError(t, err)

	p := wait(t, h)
	require.NoError(t, p.Err)
	assert.Equal(t, model.TaskStatusSucceeded, p.Status)
	assert.Equal(t, 3, p.DoneFiles)

	entries, err := os.ReadDir(tmp)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "other", entries[0].Name())
	assert.DirExists(t, "/etc")
}

func TestDeleteRefusesProtectedPaths(t *testing.T) {
	e := newEngine(t, fileops.EngineConfig{})
	h, err := e.Submit(context.Background(), model.TaskRequest{Kind: model.TaskKindDelete, Sources: []string{"/proc"}})
	require.NoError(t, err)

	p := wait(t, h)
	assert.Equal(t, model.TaskStatusFailed, p.Status)
	assert.ErrorIs(t, p.Err, model.ErrProtected)
	assert.Equal(t, 0, p.TotalFiles)
}

func TestRenameAndMkdir(t *testing.T) {
	tests := map[string]struct {
		req       func(tmp string) model.TaskRequest
		expStatus model.TaskStatus
		expErr    error
		expExists string
		expDir    string
	}{
		"Rename with a bare name should rename in place": {
			req: func(tmp string) model.TaskRequest {
				return model.TaskRequest{Kind: model.TaskKindRename, Sources: []string{filepath.Join(tmp, "a.txt")}, Destination: "c.txt"}
			},
			expStatus: model.TaskStatusSucceeded,
			expExists: "c.txt",
		},
		"Rename onto an existing name should fail": {
			req: func(tmp string) model.TaskRequest {
				return model.TaskRequest{Kind: model.TaskKindRename, Sources: []string{filepath.Join(tmp, "a.txt")}, Destination: "b.txt"}
			},
			expStatus: model.TaskStatusFailed,
			expErr:    model.ErrAlreadyExists,
			expExists: "a.txt",
		},
		"Mkdir should create the directory": {
			req: func(tmp string) model.TaskRequest {
				return model.TaskRequest{Kind: model.TaskKindMkdir, Destination: filepath.Join(tmp, "new")}
			},
			expStatus: model.TaskStatusSucceeded,
			expDir:    "new",
		},
		"Mkdir on an existing name should fail": {
			req: func(tmp string) model.TaskRequest {
				return model.TaskRequest{Kind: model.TaskKindMkdir, Destination: filepath.Join(tmp, "b.txt")}
			},
			expStatus: model.TaskStatusFailed,
			expErr:    model.ErrAlreadyExists,
		},
		"Mkdir with an invalid name should fail": {
			req: func(tmp string) model.TaskRequest {
				return model.TaskRequest{Kind: model.TaskKindMkdir, Destination: filepath.Join(tmp, " padded ")}
			},
			expStatus: model.TaskStatusFailed,
			expErr:    model.ErrNotValid,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tmp := t.TempDir()
			writeFile(t, filepath.Join(tmp, "a.txt"), "a")
			writeFile(t, filepath.Join(tmp, "b.txt"), "b")

			e := newEngine(t, fileops.EngineConfig{})
			h, err := e.Submit(context.Background(), test.req(tmp))
			require.NoError(t, err)

			p := wait(t, h)
			assert.Equal(t, test.expStatus, p.Status)
			if test.expErr != nil {
				assert.ErrorIs(t, p.Err, test.expErr)
			}
			if test.expExists != "" {
				assert.FileExists(t, filepath.Join(tmp, test.expExists))
			}
			if test.expDir != "" {
				assert.DirExists(t, filepath.Join(tmp, test.expDir))
			}
		})
	}
}

func TestSubmitRejectsInvalidRequests(t *testing.T) {
	tests := map[string]model.TaskRequest{
		"Copy without sources":       {Kind: model.TaskKindCopy, Destination: "/tmp"},
		"Move without destination":   {Kind: model.TaskKindMove, Sources: []string{"/tmp/x"}},
		"Delete without sources":     {Kind: model.TaskKindDelete},
		"Rename with a path name":    {Kind: model.TaskKindRename, Sources: []string{"/tmp/x"}, Destination: "a/b"},
		"Rename with two sources":    {Kind: model.TaskKindRename, Sources: []string{"/tmp/x", "/tmp/y"}, Destination: "z"},
		"Mkdir without a path":       {Kind: model.TaskKindMkdir},
		"Unknown kind is not valid":  {Kind: model.TaskKind(42), Sources: []string{"/tmp/x"}},
	}

	e := newEngine(t, fileops.EngineConfig{})
	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := e.Submit(context.Background(), req)
			assert.ErrorIs(t, err, model.ErrNotValid)
		})
	}
	assert.Empty(t, e.Tasks())
}

func TestSubmitOverlappingTaskIsBusy(t *testing.T) {
	tmp := t.TempDir()
	writeFile(t, filepath.Join(tmp, "src", "a.txt"), "a")
	require.NoError(t, os.Mkdir(filepath.Join(tmp, "dst"), 0o755))

	block := make(chan struct{})
	var once sync.Once
	e := newEngine(t, fileops.EngineConfig{
		ItemHook: func(string, string) { once.Do(func() { <-block }) },
	})

	h, err := e.Submit(context.Background(), model.TaskRequest{
		Kind:        model.TaskKindCopy,
		Sources:     []string{filepath.Join(tmp, "src")},
		Destination: filepath.Join(tmp, "dst"),
	})
	require.NoError(t, err)

	_, err = e.Submit(context.Background(), model.TaskRequest{Kind: model.TaskKindDelete, Sources: []string{filepath.Join(tmp, "src", "a.txt")}})
	assert.ErrorIs(t, err, model.ErrBusy)

	// Acknowledging a running task is refused.
	assert.ErrorIs(t, e.Acknowledge(h.ID()), model.ErrBusy)

	close(block)
	p := wait(t, h)
	require.NoError(t, p.Err)

	h2, err := e.Submit(context.Background(), model.TaskRequest{Kind: model.TaskKindDelete, Sources: []string{filepath.Join(tmp, "src", "a.txt")}})
	require.NoError(t, err)
	wait(t, h2)
}

func TestAcknowledge(t *testing.T) {
	tmp := t.TempDir()
	e := newEngine(t, fileops.EngineConfig{})

	h, err := e.Submit(context.Background(), model.TaskRequest{Kind: model.TaskKindMkdir, Destination: filepath.Join(tmp, "x")})
	require.NoError(t, err)
	wait(t, h)

	require.Len(t, e.Tasks(), 1)
	require.NoError(t, e.Acknowledge(h.ID()))
	assert.Empty(t, e.Tasks())
	assert.False(t, h.Cancel())
	assert.ErrorIs(t, e.Acknowledge(h.ID()), model.ErrNotFound)
}

func TestValidateFilename(t *testing.T) {
	tests := map[string]struct {
		name   string
		expErr bool
	}{
		"A plain name is valid":             {name: "report.txt"},
		"Unicode names are valid":           {name: "파일.txt"},
		"Empty names are invalid":           {name: "", expErr: true},
		"Dot is invalid":                    {name: ".", expErr: true},
		"Dot-dot is invalid":                {name: "..", expErr: true},
		"Separators are invalid":            {name: "a/b", expErr: true},
		"Control characters are invalid":    {name: "a\nb", expErr: true},
		"NUL is invalid":                    {name: "a\x00b", expErr: true},
		"Leading whitespace is invalid":     {name: " a", expErr: true},
		"Trailing whitespace is invalid":    {name: "a ", expErr: true},
		"Leading dash is invalid":           {name: "-rf", expErr: true},
		"Names over 255 bytes are invalid":  {name: strings.Repeat("a", 256), expErr: true},
		"Names of exactly 255 bytes are ok": {name: strings.Repeat("a", 255)},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			err := fileops.ValidateFilename(test.name)
			if test.expErr {
				assert.ErrorIs(t, err, model.ErrNotValid)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestWriteFileAtomic(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "notes.txt")
	writeFile(t, path, "old")
	require.NoError(t, os.Chmod(path, 0o600))

	require.NoError(t, fileops.WriteFileAtomic(path, []byte("new content")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new content", string(data))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	err = fileops.WriteFileAtomic(tmp, []byte("x"))
	assert.ErrorIs(t, err, model.ErrNotValid)
}
