// Command ruidmapctl runs workspace commands against a task file and prints
// the result as JSON.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"

	"github.com/tgienger/ruidmap/internal/apperr"
	"github.com/tgienger/ruidmap/internal/config"
	"github.com/tgienger/ruidmap/internal/jsonfile"
	"github.com/tgienger/ruidmap/internal/logging"
	"github.com/tgienger/ruidmap/internal/workspace"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Exit codes
const (
	exitOK = iota
	exitFailure
	exitUsage
	exitNotFound
	exitInvalid
	exitCorrupt
)

func main() {
	_ = godotenv.Load()
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// env is what a command handler can reach.
type env struct {
	svc    *workspace.Service
	logger *log.Logger
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("ruidmapctl", flag.ContinueOnError)
	fs.SetOutput(stderr)
	showVersion := fs.Bool("version", false, "Show version")
	fs.Usage = func() { printUsage(fs, stderr) }

	cfg, err := config.Load(fs, args)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}
	if *showVersion {
		fmt.Fprintf(stdout, "ruidmapctl %s\n", Version)
		return exitOK
	}

	logWriter := stderr
	if cfg.LogFile != "" {
		f, err := logging.OpenFile(cfg.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "error: %v\n", err)
			return exitFailure
		}
		defer f.Close()
		logWriter = f
	}
	logger, err := logging.New(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Prefix: "ruidmapctl",
		Writer: logWriter,
	})
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitUsage
	}

	cmd, rest, ok := lookup(fs.Args())
	if !ok {
		if len(fs.Args()) > 0 {
			fmt.Fprintf(stderr, "unknown command: %s\n", strings.Join(fs.Args(), " "))
		}
		printUsage(fs, stderr)
		return exitUsage
	}

	e := &env{
		svc:    workspace.NewService(cfg.DataFile, workspace.WithLogger(logger), workspace.WithAuthor(cfg.Author)),
		logger: logger,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
	}

	logger.Debug("running command", "command", cmd.name, "file", cfg.DataFile)
	result, err := cmd.run(e, rest)
	if err != nil {
		var ue usageError
		if errors.As(err, &ue) {
			fmt.Fprintf(stderr, "error: %v\nusage: ruidmapctl %s %s\n", err, cmd.name, cmd.args)
			return exitUsage
		}
		logger.Debug("command failed", "command", cmd.name, "err", err)
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitCode(err)
	}
	if err := writeResult(stdout, result); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func exitCode(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return exitNotFound
	case errors.Is(err, apperr.ErrValidation), errors.Is(err, apperr.ErrLastContainer):
		return exitInvalid
	case errors.Is(err, apperr.ErrCorruptData):
		return exitCorrupt
	}
	return exitFailure
}

// rawJSON is printed as is.
type rawJSON string

func writeResult(w io.Writer, result any) error {
	if raw, ok := result.(rawJSON); ok {
		_, err := io.WriteString(w, strings.TrimRight(string(raw), "\n")+"\n")
		return err
	}
	data, err := jsonfile.Marshal(result)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// lookup finds the command named by the first one or two words of args.
func lookup(args []string) (*command, []string, bool) {
	if len(args) >= 2 {
		if cmd, ok := commands[args[0]+" "+args[1]]; ok {
			return cmd, args[2:], true
		}
	}
	if len(args) >= 1 {
		if cmd, ok := commands[args[0]]; ok {
			return cmd, args[1:], true
		}
	}
	return nil, nil, false
}

func printUsage(fs *flag.FlagSet, w io.Writer) {
	fmt.Fprintf(w, "Usage: ruidmapctl [flags] <command> [args]\n\nCommands:\n")
	names := make([]string, 0, len(commands))
	for name := range commands {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(w, "  %-22s %s\n", name+" "+cmd.args, cmd.help)
	}
	fmt.Fprintf(w, "\nFlags:\n")
	fs.SetOutput(w)
	fs.PrintDefaults()
}
