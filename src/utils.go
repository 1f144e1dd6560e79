package src

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"

	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/panel"
)

const binarySniffLen = 8000

// readFile reads at most limit bytes and reports whether the file is longer.
func readFile(fsys panel.FS, path string, limit int64) ([]byte, bool, error) {
	f, err := fsys.Open(path)
	if err != nil {
		return nil, false, model.Classify(path, err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, false, model.Classify(path, err)
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}

func isBinary(data []byte) bool {
	return bytes.IndexByte(data[:min(len(data), binarySniffLen)], 0) >= 0
}

// highlight renders data for the terminal, picking the lexer from the file
// name first and the content second.
func highlight(name string, data []byte) string {
	if isBinary(data) {
		return subtitleStyle.Render(fmt.Sprintf("binary file, %s shown", humanize.IBytes(uint64(len(data)))))
	}
	src := string(data)
	lexer := lexers.Match(name)
	if lexer == nil {
		lexer = lexers.Analyse(src)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	it, err := chroma.Coalesce(lexer).Tokenise(nil, src)
	if err != nil {
		return src
	}
	var buf bytes.Buffer
	if err := chromaFormatter.Format(&buf, chromaStyle, it); err != nil {
		return src
	}
	return buf.String()
}

func sizeColumn(e model.DirectoryEntry) string {
	switch {
	case e.Parent:
		return "<UP>"
	case e.IsDir():
		return "<DIR>"
	default:
		return humanize.IBytes(uint64(e.Size))
	}
}

// entryRow lays out one listing line in exactly width columns.
func entryRow(e model.DirectoryEntry, selected bool, width int) string {
	mark := " "
	if selected {
		mark = "*"
	}
	name := e.Name
	if e.Kind == model.EntryKindSymlink {
		name = "@" + name
	} else if e.IsDir() && !e.Parent {
		name += "/"
	}
	date := ""
	if !e.Parent {
		date = e.ModTime.Format("2006-01-02 15:04")
	}

	meta := fmt.Sprintf(" %9s %16s", sizeColumn(e), date)
	nameWidth := width - 1 - runewidth.StringWidth(meta)
	if nameWidth < 4 {
		return fit(mark+name, width)
	}
	return mark + fit(name, nameWidth) + meta
}

// fit truncates or pads s to w terminal columns.
func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return runewidth.FillRight(runewidth.Truncate(s, w, "…"), w)
}

func processRow(p model.ProcessInfo, width int) string {
	meta := fmt.Sprintf("%7d %-10s %5.1f %5.1f %9s %-5s ",
		p.PID, runewidth.Truncate(p.User, 10, "…"), p.CPU, p.Mem, humanize.IBytes(p.RSS), p.State)
	return fit(meta+strings.ReplaceAll(p.Command, "\n", " "), width)
}

func processHeader(width int) string {
	return fit(fmt.Sprintf("%7s %-10s %5s %5s %9s %-5s %s", "PID", "USER", "CPU%", "MEM%", "RSS", "STAT", "COMMAND"), width)
}

// window returns the [start, end) slice of n rows of height rows keeping
// cursor visible.
func window(n, cursor, rows int) (int, int) {
	if rows <= 0 || n == 0 {
		return 0, 0
	}
	start := 0
	if cursor >= rows {
		start = cursor - rows + 1
	}
	return start, min(start+rows, n)
}
