// Package main provides QuickServe, a quick and easy HTTP server for sharing
// the files of a directory.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/f4ah6o/quickserve-go/internal/config"
	"github.com/f4ah6o/quickserve-go/internal/fileserver"
	"github.com/f4ah6o/quickserve-go/internal/server"
)

const usage = `quickserve - a quick and easy HTTP server for file sharing

Usage:	quickserve [options]

Serves the files of a directory over HTTP. Directories without an index file
are answered with a listing of their contents.

Options:
`

// exitCode is returned by run when the process must exit with a specific
// status and no further message.
type exitCode int

func (e exitCode) Error() string {
	return fmt.Sprintf("exit: %d", int(e))
}

type stringList []string

func (s stringList) String() string {
	return strings.Join(s, ",")
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout, os.Stderr); err != nil {
		var code exitCode
		if errors.As(err, &code) {
			os.Exit(int(code))
		}
		fmt.Fprintf(os.Stderr, "%s %v\n", color.RedString("quickserve:"), err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseConfig(args, stderr)
	if err != nil {
		return err
	}
	if cfg.NoColor {
		color.NoColor = true
	}

	logger := log.New(stderr, "", log.LstdFlags)
	accessLogger := logger
	if cfg.Quiet {
		accessLogger = log.New(io.Discard, "", 0)
	}

	files, err := fileserver.New(cfg.Directory,
		fileserver.WithIndexFiles(cfg.Index...),
		fileserver.WithFollowSymlinks(cfg.FollowSymlinks),
		fileserver.WithLogger(logger),
	)
	if err != nil {
		return err
	}
	timeout, err := cfg.Timeout()
	if err != nil {
		return err
	}

	srv := &server.Server{
		Addr:            cfg.Addr(),
		Handler:         server.AccessLog(accessLogger, server.Recover(logger, files)),
		ShutdownTimeout: timeout,
		Logger:          logger,
		OnListen: func(addr net.Addr) {
			port := cfg.Port
			if tcp, ok := addr.(*net.TCPAddr); ok {
				port = tcp.Port
			}
			fmt.Fprintf(stdout, "Serving files from the directory: %s\n", color.New(color.Bold).Sprint(files.Root()))
			fmt.Fprintf(stdout, "QuickServe is running at %s\n", color.CyanString("http://localhost:%d", port))
			fmt.Fprintln(stdout, "Press Ctrl+C to stop")
		},
	}
	if err := srv.Run(ctx); err != nil {
		return err
	}
	fmt.Fprintln(stdout, color.YellowString("QuickServe has been stopped."))
	return nil
}

// parseConfig builds the configuration from the defaults, the optional
// config file and the command-line flags, in that order of precedence, and
// validates it.
func parseConfig(args []string, stderr io.Writer) (config.Config, error) {
	var (
		flags      = config.Default()
		configPath string
		index      stringList
		timeout    string
	)

	flagSet := flag.NewFlagSet("quickserve", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprint(stderr, usage)
		flagSet.PrintDefaults()
	}
	flagSet.IntVar(&flags.Port, "port", flags.Port, "Port for the HTTP server to listen on")
	flagSet.IntVar(&flags.Port, "p", flags.Port, "Shorthand for -port")
	flagSet.StringVar(&flags.Directory, "directory", flags.Directory, "Directory to serve")
	flagSet.StringVar(&flags.Directory, "d", flags.Directory, "Shorthand for -directory")
	flagSet.StringVar(&flags.Host, "bind", flags.Host, "Address to bind (default all interfaces)")
	flagSet.StringVar(&flags.Host, "b", flags.Host, "Shorthand for -bind")
	flagSet.StringVar(&configPath, "config", "", "Path to a TOML or YAML config file; a relative directory in it is relative to the file")
	flagSet.StringVar(&configPath, "c", "", "Shorthand for -config")
	flagSet.Var(&index, "index", "Index file name served instead of a listing (repeatable)")
	flagSet.BoolVar(&flags.FollowSymlinks, "follow-symlinks", false, "Follow symbolic links pointing outside of the directory")
	flagSet.BoolVar(&flags.NoColor, "no-color", false, "Disable colored output")
	flagSet.BoolVar(&flags.Quiet, "quiet", false, "Disable the access log")
	flagSet.BoolVar(&flags.Quiet, "q", false, "Shorthand for -quiet")
	flagSet.StringVar(&timeout, "shutdown-timeout", flags.ShutdownTimeout, "Time allowed for in-flight requests on shutdown, e.g. 30s (default: wait for all of them)")

	if err := flagSet.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return config.Config{}, exitCode(0)
		}
		return config.Config{}, exitCode(2)
	}
	if flagSet.NArg() > 0 {
		fmt.Fprintf(stderr, "unexpected argument: %s\n", flagSet.Arg(0))
		flagSet.Usage()
		return config.Config{}, exitCode(2)
	}

	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath, cfg); err != nil {
			return cfg, err
		}
	}

	flagSet.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "port", "p":
			cfg.Port = flags.Port
		case "directory", "d":
			cfg.Directory = flags.Directory
		case "bind", "b":
			cfg.Host = flags.Host
		case "index":
			cfg.Index = index
		case "follow-symlinks":
			cfg.FollowSymlinks = flags.FollowSymlinks
		case "no-color":
			cfg.NoColor = flags.NoColor
		case "quiet", "q":
			cfg.Quiet = flags.Quiet
		case "shutdown-timeout":
			cfg.ShutdownTimeout = timeout
		}
	})

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}
