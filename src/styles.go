package src

import (
	"time"

	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/lipgloss"
)

const (
	appName            = "cokacdir"
	maxFileSizeForEdit = 10 * 1024 * 1024 // 10MB limit for editing
	maxFileSizeForView = 1024 * 1024
	tickInterval       = 100 * time.Millisecond
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Background(lipgloss.Color("#1E1E1E")).
			Padding(0, 1).
			Bold(true)
	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Italic(true)
	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#808080")).
			Padding(0, 1)
	activePanelStyle = panelStyle.Copy().
				BorderForeground(lipgloss.Color("#00FFFF"))
	inputStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#FFFFFF")).
			Padding(0, 1).
			Background(lipgloss.Color("#2F2F2F"))
	editorStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#00FFFF")).
			Padding(0, 1).
			Background(lipgloss.Color("#1A1A1A"))
	viewerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#808080")).
			Padding(0, 1).
			Background(lipgloss.Color("#1A1A1A"))

	cursorStyle   = lipgloss.NewStyle().Background(lipgloss.Color("#005F87")).Foreground(lipgloss.Color("#FFFFFF"))
	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFF00")).Bold(true)
	dirStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#5FAFFF")).Bold(true)
	linkStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))
	headerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#808080")).Underline(true)

	chromaStyle     = styles.Get("monokai")
	chromaFormatter = formatters.TTY256

	fBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFF00")).
			Background(lipgloss.Color("#000000")).
			Padding(0, 1).
			Bold(true)
	fBarContent = "1Help  2Rename  3View  4Edit  5Copy  6Move  7Mkdir  8Delete  9Procs  10Quit"
)
