package procs

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/kstost/cokacdir/internal/model"
)

// Lister enumerates the OS process table.
type Lister interface {
	List(ctx context.Context) ([]model.ProcessInfo, error)
}

// ListerFunc is a helper to use functions as Lister.
type ListerFunc func(ctx context.Context) ([]model.ProcessInfo, error)

func (f ListerFunc) List(ctx context.Context) ([]model.ProcessInfo, error) { return f(ctx) }

// Signaller sends termination signals to processes.
type Signaller interface {
	Signal(pid int, kind model.SignalKind) error
}

// SignallerFunc is a helper to use functions as Signaller.
type SignallerFunc func(pid int, kind model.SignalKind) error

func (f SignallerFunc) Signal(pid int, kind model.SignalKind) error { return f(pid, kind) }

// Inspector reads the live state of a single process.
type Inspector interface {
	Inspect(ctx context.Context, pid int) (model.ProcessInfo, error)
}

// InspectorFunc is a helper to use functions as Inspector.
type InspectorFunc func(ctx context.Context, pid int) (model.ProcessInfo, error)

func (f InspectorFunc) Inspect(ctx context.Context, pid int) (model.ProcessInfo, error) {
	return f(ctx, pid)
}

const (
	psFormat = "pid=,user=,pcpu=,pmem=,rss=,stat=,lstart=,args="
	// lstart as printed in the C locale, after field splitting.
	lstartLayout = "Mon Jan 2 15:04:05 2006"
	lstartFields = 5
)

// PSLister lists processes with ps(1).
type PSLister struct{}

func (PSLister) List(ctx context.Context) ([]model.ProcessInfo, error) {
	out, err := runPS(ctx, "-axo", psFormat)
	if err != nil {
		return nil, err
	}
	return parsePS(out)
}

// Inspect reads one process. ps exits non zero without output when the
// process is gone.
func (PSLister) Inspect(ctx context.Context, pid int) (model.ProcessInfo, error) {
	out, err := runPS(ctx, "-o", psFormat, "-p", strconv.Itoa(pid))
	var exitErr *exec.ExitError
	if err != nil && (!errors.As(err, &exitErr) || len(bytes.TrimSpace(out)) > 0) {
		return model.ProcessInfo{}, err
	}
	procs, perr := parsePS(out)
	if perr != nil {
		return model.ProcessInfo{}, perr
	}
	for _, p := range procs {
		if p.PID == pid {
			return p, nil
		}
	}
	return model.ProcessInfo{}, model.NewPathError(model.ErrNotFound, pidPath(pid), nil)
}

func runPS(ctx context.Context, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, "ps", args...)
	cmd.Env = append(os.Environ(), "LC_ALL=C")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			err = fmt.Errorf("%w: %s", err, msg)
		}
		return out, model.Classify("ps", err)
	}
	return out, nil
}

// listInspector finds a process in a full listing, for listers that can't
// read a single process.
type listInspector struct {
	lister Lister
}

func (l listInspector) Inspect(ctx context.Context, pid int) (model.ProcessInfo, error) {
	procs, err := l.lister.List(ctx)
	if err != nil {
		return model.ProcessInfo{}, err
	}
	for _, p := range procs {
		if p.PID == pid {
			return p, nil
		}
	}
	return model.ProcessInfo{}, model.NewPathError(model.ErrNotFound, pidPath(pid), nil)
}

// parsePS parses the headerless output of ps with psFormat. RSS comes in
// KiB.
func parsePS(out []byte) ([]model.ProcessInfo, error) {
	var procs []model.ProcessInfo
	sc := bufio.NewScanner(bytes.NewReader(out))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 6+lstartFields {
			continue
		}

		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		cpu, _ := strconv.ParseFloat(fields[2], 64)
		mem, _ := strconv.ParseFloat(fields[3], 64)
		rss, _ := strconv.ParseUint(fields[4], 10, 64)
		started, err := time.ParseInLocation(lstartLayout, strings.Join(fields[6:6+lstartFields], " "), time.Local)
		if err != nil {
			continue
		}

		procs = append(procs, model.ProcessInfo{
			PID:     pid,
			User:    fields[1],
			CPU:     cpu,
			Mem:     mem,
			RSS:     rss * 1024,
			State:   fields[5],
			Started: started,
			Command: strings.Join(fields[6+lstartFields:], " "),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, model.Classify("ps", err)
	}
	return procs, nil
}

// UnixSignaller signals processes with kill(2).
type UnixSignaller struct{}

func (UnixSignaller) Signal(pid int, kind model.SignalKind) error {
	sig := unix.SIGTERM
	if kind == model.SignalForced {
		sig = unix.SIGKILL
	}
	if err := unix.Kill(pid, sig); err != nil {
		return model.Classify(pidPath(pid), err)
	}
	return nil
}

func pidPath(pid int) string { return "pid " + strconv.Itoa(pid) }
