// Package config holds the settings QuickServe is started with.
//
// Settings come from three layers, later layers overriding earlier ones:
// the defaults returned by Default, an optional TOML or YAML config file read
// by Load, and the command-line flags applied by the caller.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Defaults used when neither the config file nor the flags set a value.
const (
	DefaultPort      = 8000
	DefaultDirectory = "."
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("invalid configuration")

// Config is the complete server configuration. It is a plain value: once
// validated it is handed to the server and never modified.
type Config struct {
	// Host is the address to bind. Empty binds every interface.
	Host string `toml:"host" yaml:"host"`
	// Port is the TCP port to listen on. Zero picks a free port.
	Port int `toml:"port" yaml:"port"`
	// Directory is the root directory to serve. Validate makes it absolute.
	// A relative directory read from a config file is relative to that file.
	Directory string `toml:"directory" yaml:"directory"`
	// Index lists the file names served in place of a directory listing.
	Index []string `toml:"index" yaml:"index"`
	// FollowSymlinks allows symbolic links to point outside of Directory.
	FollowSymlinks bool `toml:"follow_symlinks" yaml:"follow_symlinks"`
	// NoColor disables colored terminal output.
	NoColor bool `toml:"no_color" yaml:"no_color"`
	// Quiet disables the access log.
	Quiet bool `toml:"quiet" yaml:"quiet"`
	// ShutdownTimeout optionally bounds how long in-flight requests may take
	// to complete after an interrupt, as a Go duration string ("30s").
	// Empty, the default, waits for them indefinitely.
	ShutdownTimeout string `toml:"shutdown_timeout" yaml:"shutdown_timeout"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Port:      DefaultPort,
		Directory: DefaultDirectory,
		Index:     []string{"index.html", "index.htm"},
	}
}

// Load reads the config file at path on top of cfg. The format is chosen by
// extension: ".toml", ".yaml" or ".yml". Keys absent from the file keep
// their value in cfg. A relative directory set by the file is resolved
// against the directory containing the file.
func Load(path string, cfg Config) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}

	before := cfg.Directory
	cfg.Directory = ""
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		if _, err := toml.Decode(string(data), &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parsing %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("%w: unsupported config file format %q", ErrInvalid, ext)
	}
	switch {
	case cfg.Directory == "":
		cfg.Directory = before
	case !filepath.IsAbs(cfg.Directory):
		cfg.Directory = filepath.Join(filepath.Dir(path), cfg.Directory)
	}
	return cfg, nil
}

// Validate checks the configuration and normalizes Directory to an absolute
// path. The directory must exist and be a directory.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalid, c.Port)
	}
	if _, err := c.Timeout(); err != nil {
		return err
	}
	if c.Directory == "" {
		c.Directory = DefaultDirectory
	}

	dir, err := filepath.Abs(c.Directory)
	if err != nil {
		return fmt.Errorf("%w: directory %s: %v", ErrInvalid, c.Directory, err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: directory %s: %v", ErrInvalid, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrInvalid, dir)
	}
	c.Directory = dir

	for _, name := range c.Index {
		if name == "" || strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("%w: index file name %q", ErrInvalid, name)
		}
	}
	return nil
}

// Timeout returns ShutdownTimeout as a duration.
func (c *Config) Timeout() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: shutdown timeout %q", ErrInvalid, c.ShutdownTimeout)
	}
	return d, nil
}

// Addr returns the host:port address to listen on.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
