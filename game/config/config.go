package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/richardl62/richards-old-games-server/game/session"
)

var (
	ErrConfigNotFound = errors.New("configuration not found")
	ErrInvalidConfig  = errors.New("invalid configuration")
)

var eventPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,31}$`)

// reservedEvents are emitted or consumed by the server itself and cannot
// be relayed.
var reservedEvents = map[string]bool{
	"ack":            true,
	"join":           true,
	"leave":          true,
	"state":          true,
	"player-joined":  true,
	"player-left":    true,
	"session-closed": true,
}

// Config is the server configuration, usually loaded from config.yaml.
type Config struct {
	Server      ServerConfig  `yaml:"server"`
	Sessions    SessionConfig `yaml:"sessions"`
	Kinds       []Kind        `yaml:"kinds"`
	RelayEvents []string      `yaml:"relay_events"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	StaticDir      string   `yaml:"static_dir"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// SessionConfig controls session ids and lifetimes.
type SessionConfig struct {
	IDMin              int           `yaml:"id_min"`
	IDMax              int           `yaml:"id_max"`
	AllocationAttempts int           `yaml:"allocation_attempts"`
	IdleTTL            time.Duration `yaml:"idle_ttl"`
	SweepInterval      time.Duration `yaml:"sweep_interval"`
	DefaultKind        string        `yaml:"default_kind"`
}

// Kind is an entry of the session kind catalog.
type Kind struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:      "",
			Port:      5000,
			StaticDir: "public",
		},
		Sessions: SessionConfig{
			IDMin:              session.DefaultIDMin,
			IDMax:              session.DefaultIDMax,
			AllocationAttempts: session.DefaultAttempts,
			IdleTTL:            10 * time.Minute,
			SweepInterval:      time.Minute,
			DefaultKind:        "default",
		},
		RelayEvents: []string{"action", "chat", "move", "transient"},
	}
}

// Load reads the YAML file at path over the defaults. An empty path returns
// the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes YAML over the defaults and validates the result. Unknown
// keys are rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every problem found in the configuration.
func (c *Config) Validate() error {
	var errs []error

	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}

	s := c.Sessions
	if s.IDMin < 0 || s.IDMax < s.IDMin {
		errs = append(errs, fmt.Errorf("sessions.id_min/id_max: invalid range [%d, %d]", s.IDMin, s.IDMax))
	}
	if s.AllocationAttempts <= 0 {
		errs = append(errs, errors.New("sessions.allocation_attempts must be positive"))
	}
	if s.IdleTTL < 0 || s.SweepInterval < 0 {
		errs = append(errs, errors.New("sessions.idle_ttl and sessions.sweep_interval must not be negative"))
	}
	if s.IdleTTL > 0 && s.SweepInterval == 0 {
		errs = append(errs, errors.New("sessions.sweep_interval required when idle_ttl is set"))
	}

	if !session.ValidKind(s.DefaultKind) {
		errs = append(errs, fmt.Errorf("sessions.default_kind: invalid kind %q", s.DefaultKind))
	}

	seen := make(map[string]bool, len(c.Kinds))
	for i, k := range c.Kinds {
		if !session.ValidKind(k.Name) {
			errs = append(errs, fmt.Errorf("kinds[%d]: invalid kind %q", i, k.Name))
			continue
		}
		if seen[k.Name] {
			errs = append(errs, fmt.Errorf("kinds[%d]: duplicate kind %q", i, k.Name))
		}
		seen[k.Name] = true
	}
	if len(c.Kinds) > 0 && !seen[s.DefaultKind] {
		errs = append(errs, fmt.Errorf("sessions.default_kind %q is not in the kind catalog", s.DefaultKind))
	}

	if len(c.RelayEvents) == 0 {
		errs = append(errs, errors.New("relay_events must not be empty"))
	}
	for i, ev := range c.RelayEvents {
		switch {
		case !eventPattern.MatchString(ev):
			errs = append(errs, fmt.Errorf("relay_events[%d]: invalid event name %q", i, ev))
		case reservedEvents[ev]:
			errs = append(errs, fmt.Errorf("relay_events[%d]: %q is reserved", i, ev))
		}
	}

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.Port))
}

// KindNames returns the catalog's kind names, or nil when any kind is
// accepted.
func (c *Config) KindNames() []string {
	if len(c.Kinds) == 0 {
		return nil
	}
	names := make([]string, len(c.Kinds))
	for i, k := range c.Kinds {
		names[i] = k.Name
	}
	return names
}

// Allocator builds the session id allocator.
func (c *Config) Allocator() *session.Allocator {
	return session.NewAllocator(c.Sessions.IDMin, c.Sessions.IDMax, c.Sessions.AllocationAttempts)
}

// ListKinds returns a copy of the kind catalog. An empty catalog means any
// well-formed kind is accepted.
func (c *Config) ListKinds() []Kind {
	return append([]Kind(nil), c.Kinds...)
}

// DefaultKind returns the kind used when a session is created without one.
func (c *Config) DefaultKind() string {
	return c.Sessions.DefaultKind
}
