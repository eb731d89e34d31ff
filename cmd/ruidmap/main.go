package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/tgienger/ruidmap/internal/config"
	"github.com/tgienger/ruidmap/internal/logging"
	"github.com/tgienger/ruidmap/internal/store"
	"github.com/tgienger/ruidmap/internal/ui"
)

// Version information set via ldflags
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	// A missing .env is fine
	_ = godotenv.Load()

	fs := flag.NewFlagSet("ruidmap", flag.ContinueOnError)
	showVersion := fs.Bool("version", false, "Show version")
	fs.BoolVar(showVersion, "v", false, "Show version")
	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage: ruidmap [flags] [roadmap.json]\n\nFlags:\n")
		fs.PrintDefaults()
	}

	cfg, err := config.Load(fs, args)
	if err != nil {
		return err
	}
	if *showVersion {
		fmt.Printf("ruidmap %s (commit: %s, built: %s)\n", version, commit, date)
		return nil
	}

	switch rest := fs.Args(); len(rest) {
	case 0:
	case 1:
		cfg.DataFile = rest[0]
	default:
		return fmt.Errorf("unexpected arguments: %v", rest[1:])
	}

	// The terminal belongs to the UI, so logs always go to a file
	logPath := cfg.LogFile
	if logPath == "" {
		logPath = config.DefaultLogFile()
	}
	logFile, err := logging.OpenFile(logPath)
	if err != nil {
		return err
	}
	defer logFile.Close()

	logger, err := logging.New(logging.Options{
		Level:           cfg.LogLevel,
		Format:          cfg.LogFormat,
		Prefix:          "ruidmap",
		Writer:          logFile,
		ReportTimestamp: true,
	})
	if err != nil {
		return err
	}

	st, err := store.New(cfg.DataFile, store.WithLogger(logger), store.WithAuthor(cfg.Author))
	if err != nil {
		logger.Error("open roadmap", "path", cfg.DataFile, "err", err)
		return fmt.Errorf("opening %s: %w", cfg.DataFile, err)
	}
	logger.Info("opened roadmap", "path", st.Path(), "state", st.LoadState())

	p := tea.NewProgram(ui.NewApp(st), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running application: %w", err)
	}
	return nil
}
