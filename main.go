package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/oklog/run"
	"github.com/sirupsen/logrus"

	"github.com/kstost/cokacdir/internal/config"
	"github.com/kstost/cokacdir/internal/fileops"
	"github.com/kstost/cokacdir/internal/log"
	loglogrus "github.com/kstost/cokacdir/internal/log/logrus"
	"github.com/kstost/cokacdir/internal/model"
	"github.com/kstost/cokacdir/internal/procs"
	"github.com/kstost/cokacdir/internal/session"
	"github.com/kstost/cokacdir/src"
)

const (
	// Version is the application version (set via ldflags).
	Version = "dev"

	shutdownTimeout = 5 * time.Second
)

type flags struct {
	configPath     string
	left           string
	right          string
	policy         string
	processRefresh time.Duration
	pageSize       int
	logFile        string
	logFormat      string
	debug          bool
}

// Run runs the main application.
func Run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) (err error) {
	app := kingpin.New("cokacdir", "Dual-panel terminal file manager.")
	app.DefaultEnvars()
	app.Version(Version)
	app.UsageWriter(stdout)
	app.ErrorWriter(stderr)

	var f flags
	app.Flag("config", "Configuration file.").Default(config.DefaultPath()).StringVar(&f.configPath)
	app.Flag("left", "Left panel start directory.").StringVar(&f.left)
	app.Flag("right", "Right panel start directory.").StringVar(&f.right)
	app.Flag("policy", "Conflict policy of copy and move.").EnumVar(&f.policy, "fail-fast", "overwrite", "skip")
	app.Flag("process-refresh", "Process view refresh interval.").DurationVar(&f.processRefresh)
	app.Flag("page-size", "Rows moved by PgUp/PgDn before the terminal size is known.").IntVar(&f.pageSize)
	app.Flag("log-file", "Write logs to this file, the terminal belongs to the UI.").StringVar(&f.logFile)
	app.Flag("logger", "Log format.").EnumVar(&f.logFormat, config.LogFormatDefault, config.LogFormatJSON)
	app.Flag("debug", "Enable debug mode.").BoolVar(&f.debug)

	if _, err := app.Parse(args[1:]); err != nil {
		return fmt.Errorf("invalid command configuration: %w", err)
	}

	cfg, err := loadConfig(ctx, f)
	if err != nil {
		return err
	}

	logger, closeLog, err := getLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	engine, err := fileops.NewEngine(fileops.EngineConfig{Logger: logger})
	if err != nil {
		return fmt.Errorf("could not create file engine: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := engine.Shutdown(sctx); err != nil {
			logger.Errorf("File tasks did not stop: %s", err)
		}
	}()

	sess, err := session.New(session.Config{
		Logger: logger,
		Engine: engine,
		Left:   cfg.LeftDir,
		Right:  cfg.RightDir,
		Policy: cfg.Policy,
	})
	if err != nil {
		return fmt.Errorf("could not create session: %w", err)
	}

	procManager, err := procs.NewManager(procs.ManagerConfig{
		Logger:          logger,
		RefreshInterval: cfg.ProcessRefresh,
	})
	if err != nil {
		return fmt.Errorf("could not create process manager: %w", err)
	}

	var g run.Group

	// OS signals.
	{
		signalCtx, signalCancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT, syscall.SIGHUP)
		defer signalCancel()

		g.Add(
			func() error {
				<-signalCtx.Done()
				logger.Debugf("Termination signal received")
				return nil
			},
			func(_ error) {
				signalCancel()
			},
		)
	}

	// Terminal UI.
	{
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		m, err := src.NewModel(ctx, src.Config{
			Logger:    logger,
			Session:   sess,
			Processes: procManager,
			PageSize:  cfg.PageSize,
			Version:   Version,
		})
		if err != nil {
			return fmt.Errorf("could not create UI: %w", err)
		}
		p := tea.NewProgram(m,
			tea.WithAltScreen(),
			tea.WithContext(ctx),
			tea.WithInput(stdin),
			tea.WithOutput(stdout),
		)

		g.Add(
			func() error {
				_, err := p.Run()
				if err != nil && ctx.Err() == nil {
					return fmt.Errorf("UI failed: %w", err)
				}
				return nil
			},
			func(_ error) {
				p.Quit()
				cancel()
			},
		)
	}

	err = g.Run()

	wctx, wcancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer wcancel()
	if werr := procManager.Wait(wctx); werr != nil {
		logger.Warningf("Process jobs did not stop: %s", werr)
	}
	return err
}

// loadConfig reads the configuration file and applies the flags on top.
func loadConfig(ctx context.Context, f flags) (config.Config, error) {
	cfg, err := config.LoadFile(ctx, f.configPath)
	if err != nil {
		return cfg, fmt.Errorf("could not load configuration: %w", err)
	}

	if f.left != "" {
		cfg.LeftDir = f.left
	}
	if f.right != "" {
		cfg.RightDir = f.right
	}
	if f.policy != "" {
		if cfg.Policy, err = model.ParseConflictPolicy(f.policy); err != nil {
			return cfg, err
		}
	}
	if f.processRefresh != 0 {
		cfg.ProcessRefresh = f.processRefresh
	}
	if f.pageSize != 0 {
		cfg.PageSize = f.pageSize
	}
	if f.logFile != "" {
		cfg.LogFile = f.logFile
	}
	if f.logFormat != "" {
		cfg.LogFormat = f.logFormat
	}
	cfg.Debug = cfg.Debug || f.debug

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// getLogger returns the application logger. Logging is disabled without a
// log file.
func getLogger(cfg config.Config) (log.Logger, func(), error) {
	if cfg.LogFile == "" {
		return log.Noop, func() {}, nil
	}

	file, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("could not open log file: %w", err)
	}

	logrusLog := logrus.New()
	logrusLog.Out = file
	logrusLogEntry := logrus.NewEntry(logrusLog)

	if cfg.Debug {
		logrusLogEntry.Logger.SetLevel(logrus.DebugLevel)
	}

	switch cfg.LogFormat {
	case config.LogFormatJSON:
		logrusLogEntry.Logger.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrusLogEntry.Logger.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	}

	logger := loglogrus.NewLogrus(logrusLogEntry).WithValues(log.Kv{
		"version": Version,
	})

	logger.Debugf("Debug level is enabled")

	return logger, func() { _ = file.Close() }, nil
}

func main() {
	ctx := context.Background()
	err := Run(ctx, os.Args, os.Stdin, os.Stdout, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}
