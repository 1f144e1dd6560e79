package src

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModelInfo(t *testing.T) {
	m, h := newTestModel(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	m = press(m, "i")
	assert.Equal(t, explorerMode, m.mode)
	assert.Contains(t, m.statusMsg, "not valid")

	m = press(m, "down", "i")
	require.Equal(t, infoMode, m.mode)
	require.NotNil(t, m.usage)
	_, err := m.usage.Wait(ctx)
	require.NoError(t, err)
	view := m.View()
	assert.Contains(t, view, filepath.Join(h.src, "d"))
	assert.Contains(t, view, "0 B in 1 files, 0 directories")

	m = press(m, "x")
	assert.Equal(t, explorerMode, m.mode)
	assert.Nil(t, m.usage)

	m = press(m, "down", "i")
	require.Equal(t, infoMode, m.mode)
	assert.Nil(t, m.usage)
	assert.Contains(t, m.View(), "5 B (5 bytes)")
}

func TestModelGoto(t *testing.T) {
	m, h := newTestModel(t)

	m = press(m, "g")
	require.Equal(t, promptMode, m.mode)
	assert.Equal(t, h.src, m.input.Value())

	m = press(m, "ctrl+u", "d/missing/deeper", "enter")
	assert.Equal(t, explorerMode, m.mode)
	assert.Equal(t, filepath.Join(h.src, "d"), m.session.Active().Path())
	assert.Contains(t, m.statusMsg, "Moved to "+filepath.Join(h.src, "d"))
}

func TestModelSearch(t *testing.T) {
	tests := map[string]struct {
		term      string
		expMode   mode
		expStatus string
	}{
		"A match should open the results": {
			term:    "X.TXT",
			expMode: searchMode,
		},
		"No match should say so": {
			term:      "nothing-here",
			expMode:   explorerMode,
			expStatus: "No files found",
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			m, h := newTestModel(t)
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			m = press(m, "f", test.term, "enter")
			require.NotNil(t, m.searching)
			_, err := m.searching.Wait(ctx)
			require.NoError(t, err)
			m = settle(t, m)

			assert.Nil(t, m.searching)
			assert.Equal(t, test.expMode, m.mode)
			if test.expStatus != "" {
				assert.Contains(t, m.statusMsg, test.expStatus)
			}
			if test.expMode != searchMode {
				return
			}

			assert.Contains(t, m.View(), filepath.Join("d", "x.txt"))
			m = press(m, "enter")
			assert.Equal(t, explorerMode, m.mode)
			assert.Equal(t, filepath.Join(h.src, "d"), m.session.Active().Path())
			assert.Equal(t, "x.txt", currentName(m))
		})
	}
}

func TestModelClipboard(t *testing.T) {
	m, h := newTestModel(t)

	// Cursor on "a.txt".
	m = press(m, "down", "down", "c")
	assert.Contains(t, m.statusMsg, "1 item(s) copied to clipboard")
	assert.Contains(t, m.View(), "clipboard: copy 1")

	m = press(m, "tab", "ctrl+v")
	m = settle(t, m)
	assert.FileExists(t, filepath.Join(h.dst, "a.txt"))
	assert.FileExists(t, filepath.Join(h.src, "a.txt"))

	m = press(m, "tab", "end", "ctrl+x")
	assert.Contains(t, m.View(), "clipboard: cut 1")
	m = press(m, "tab", "ctrl+v")
	m = settle(t, m)
	assert.FileExists(t, filepath.Join(h.dst, "b.txt"))
	_, err := os.Stat(filepath.Join(h.src, "b.txt"))
	assert.True(t, os.IsNotExist(err))
	assert.NotContains(t, m.View(), "clipboard:")
}
