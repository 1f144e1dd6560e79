package fileops

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/task"
)

func TestWalkStopsOnDoneContext(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 10; i++ {
		require.NoError(t, os.WriteFile(filepath.Join(dir, fmt.Sprintf("f%d", i)), []byte("x"), 0o644))
	}
	fi, err := os.Lstat(dir)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var tr tree
	err = walk(ctx, &tr, dir, "", fi, walkOptions{})
	assert.ErrorIs(t, err, model.ErrCancelled)
	assert.Empty(t, tr.items)
}

func TestPreflight(t *testing.T) {
	tests := map[string]struct {
		sources  func(tmp string) []string
		expErr   error
		expFiles int
	}{
		"Every source should be listed": {
			sources: func(tmp string) []string {
				return []string{filepath.Join(tmp, "tree"), filepath.Join(tmp, "one.txt")}
			},
			expFiles: 21,
		},
		"A failing source should fail the whole pre-flight": {
			sources: func(tmp string) []string {
				return []string{filepath.Join(tmp, "ghost"), filepath.Join(tmp, "tree"), filepath.Join(tmp, "one.txt")}
			},
			expErr: model.ErrNotFound,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			tmp := t.TempDir()
			for i := 0; i < 20; i++ {
				p := filepath.Join(tmp, "tree", fmt.Sprintf("d%d", i%4), fmt.Sprintf("f%d", i))
				require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
				require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
			}
			require.NoError(t, os.WriteFile(filepath.Join(tmp, "one.txt"), []byte("x"), 0o644))

			tok := task.NewToken(context.Background())
			defer tok.Release()

			trees, err := preflight(tok, test.sources(tmp), "", walkOptions{})
			if test.expErr != nil {
				assert.ErrorIs(t, err, test.expErr)
				assert.NotErrorIs(t, err, model.ErrCancelled)
				assert.False(t, tok.Cancelled())
				return
			}
			require.NoError(t, err)
			files, _ := totals(trees)
			assert.Equal(t, test.expFiles, files)
			assert.Equal(t, filepath.Join(tmp, "tree"), trees[0].root)
		})
	}
}
