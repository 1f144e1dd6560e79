package src

import (
	"github.com/charmbracelet/bubbles/key"
)

type mode int

const (
	explorerMode mode = iota
	promptMode
	jumpMode
	viewerMode
	editorMode
	processMode
	processConfirmMode
	infoMode
	searchMode
)

type keyMap struct {
	quit      key.Binding
	help      key.Binding
	execute   key.Binding
	cancel    key.Binding
	back      key.Binding
	tab       key.Binding
	up        key.Binding
	down      key.Binding
	pageUp    key.Binding
	pageDown  key.Binding
	home      key.Binding
	end       key.Binding
	selectIt  key.Binding
	selectAll key.Binding
	sortName  key.Binding
	sortSize  key.Binding
	sortDate  key.Binding
	refresh   key.Binding
	jump      key.Binding
	policy    key.Binding
	stop      key.Binding
	rename    key.Binding
	view      key.Binding
	edit      key.Binding
	copy      key.Binding
	move      key.Binding
	mkdir     key.Binding
	delete    key.Binding
	processes key.Binding
	info      key.Binding
	gotoDir   key.Binding
	search    key.Binding
	clipCopy  key.Binding
	clipCut   key.Binding
	paste     key.Binding
	save      key.Binding
	yes       key.Binding
	no        key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		quit:      key.NewBinding(key.WithKeys("ctrl+c", "q", "0", "f10"), key.WithHelp("q/F10", "quit")),
		help:      key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "help")),
		execute:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel/parent")),
		back:      key.NewBinding(key.WithKeys("backspace"), key.WithHelp("backspace", "back")),
		tab:       key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch panel")),
		up:        key.NewBinding(key.WithKeys("up")),
		down:      key.NewBinding(key.WithKeys("down")),
		pageUp:    key.NewBinding(key.WithKeys("pgup")),
		pageDown:  key.NewBinding(key.WithKeys("pgdown")),
		home:      key.NewBinding(key.WithKeys("home")),
		end:       key.NewBinding(key.WithKeys("end")),
		selectIt:  key.NewBinding(key.WithKeys(" ", "insert"), key.WithHelp("space", "select")),
		selectAll: key.NewBinding(key.WithKeys("*"), key.WithHelp("*", "select all")),
		sortName:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n/s/d", "sort")),
		sortSize:  key.NewBinding(key.WithKeys("s")),
		sortDate:  key.NewBinding(key.WithKeys("d")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		jump:      key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "jump")),
		policy:    key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "conflict policy")),
		stop:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "cancel task")),
		rename:    key.NewBinding(key.WithKeys("2", "f2"), key.WithHelp("F2", "rename")),
		view:      key.NewBinding(key.WithKeys("3", "f3"), key.WithHelp("F3", "view")),
		edit:      key.NewBinding(key.WithKeys("4", "f4"), key.WithHelp("F4", "edit")),
		copy:      key.NewBinding(key.WithKeys("5", "f5"), key.WithHelp("F5", "copy")),
		move:      key.NewBinding(key.WithKeys("6", "f6"), key.WithHelp("F6", "move")),
		mkdir:     key.NewBinding(key.WithKeys("7", "f7"), key.WithHelp("F7", "mkdir")),
		delete:    key.NewBinding(key.WithKeys("8", "f8"), key.WithHelp("F8", "delete")),
		processes: key.NewBinding(key.WithKeys("9", "f9"), key.WithHelp("F9", "processes")),
		info:      key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "info")),
		gotoDir:   key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "go to")),
		search:    key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "find")),
		clipCopy:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clip copy")),
		clipCut:   key.NewBinding(key.WithKeys("ctrl+x"), key.WithHelp("ctrl+x", "clip cut")),
		paste:     key.NewBinding(key.WithKeys("ctrl+v"), key.WithHelp("ctrl+v", "paste")),
		save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save file")),
		yes:       key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "confirm")),
		no:        key.NewBinding(key.WithKeys("n", "N", "esc"), key.WithHelp("n", "abort")),
	}
}

// processKeyMap holds the bindings of the process view, where letters mean
// something else than in the panels.
type processKeyMap struct {
	close     key.Binding
	kill      key.Binding
	forceKill key.Binding
	refresh   key.Binding
	sortPID   key.Binding
	sortCPU   key.Binding
	sortMem   key.Binding
	sortName  key.Binding
}

func newProcessKeyMap() processKeyMap {
	return processKeyMap{
		close:     key.NewBinding(key.WithKeys("esc", "q", "f9"), key.WithHelp("esc", "close")),
		kill:      key.NewBinding(key.WithKeys("k"), key.WithHelp("k", "SIGTERM")),
		forceKill: key.NewBinding(key.WithKeys("K"), key.WithHelp("K", "SIGKILL")),
		refresh:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		sortPID:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p/c/m/n", "sort")),
		sortCPU:   key.NewBinding(key.WithKeys("c")),
		sortMem:   key.NewBinding(key.WithKeys("m")),
		sortName:  key.NewBinding(key.WithKeys("n")),
	}
}

func helpString(b key.Binding) string {
	h := b.Help()
	return h.Key + ": " + h.Desc
}
