package model

import "time"

// ProcessInfo is a snapshot of one OS process.
type ProcessInfo struct {
	PID     int
	User    string
	Command string
	// CPU and Mem are percentages as reported by the OS.
	CPU float64
	Mem float64
	// RSS is the resident memory in bytes.
	RSS   uint64
	State string
	// Started is the start time, zero when unknown. Together with PID it
	// identifies a process across PID reuse.
	Started time.Time
}

// SameProcess reports whether o is still the process p was taken from.
// Without start times the command line has to match.
func (p ProcessInfo) SameProcess(o ProcessInfo) bool {
	if p.PID != o.PID {
		return false
	}
	if !p.Started.IsZero() && !o.Started.IsZero() {
		return p.Started.Equal(o.Started)
	}
	return p.Command == o.Command
}

// KernelThread reports whether the process looks like a kernel thread.
func (p ProcessInfo) KernelThread() bool {
	n := len(p.Command)
	return n >= 2 && p.Command[0] == '[' && p.Command[n-1] == ']'
}

// SignalKind is the kind of termination request sent to a process.
type SignalKind int

const (
	SignalGraceful SignalKind = iota
	SignalForced
)

func (s SignalKind) String() string {
	if s == SignalForced {
		return "SIGKILL"
	}
	return "SIGTERM"
}
