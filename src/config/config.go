// Package config loads a declarative catalog of MCP servers and registers
// them on a connection manager. The file format mirrors the server maps used
// by MCP host applications: one entry per server, each selecting a transport
// and its settings. Environment references like ${TOKEN} are expanded before
// parsing so secrets stay out of the file.
package config

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"gopkg.in/yaml.v3"

	bridge "github.com/Protocol-Lattice/mcp-bridge"
)

// Transport names accepted in a server entry.
const (
	TransportStdio = "stdio"
	TransportSSE   = "sse"
)

// Duration wraps time.Duration with YAML support for strings like "45s".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Client identifies this application during MCP handshakes.
type Client struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// Server describes one MCP server and how to reach it.
type Server struct {
	Transport string            `yaml:"transport"`
	Command   string            `yaml:"command,omitempty"`
	Args      []string          `yaml:"args,omitempty"`
	Env       map[string]string `yaml:"env,omitempty"`
	URL       string            `yaml:"url,omitempty"`
	Headers   map[string]string `yaml:"headers,omitempty"`
}

// Config is the root of the server catalog file.
type Config struct {
	Client  Client            `yaml:"client"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Servers map[string]Server `yaml:"servers"`
}

// Load reads, expands, parses, and validates a catalog file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	return Parse([]byte(os.ExpandEnv(string(raw))))
}

// Parse decodes a catalog from already-expanded YAML bytes.
func Parse(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks that every server entry names a known transport and carries
// the settings that transport needs.
func (c *Config) Validate() error {
	for id, server := range c.Servers {
		switch server.Transport {
		case TransportStdio:
			if server.Command == "" {
				return fmt.Errorf("server %s: stdio transport requires a command", id)
			}
		case TransportSSE:
			if server.URL == "" {
				return fmt.Errorf("server %s: sse transport requires a url", id)
			}
		default:
			return fmt.Errorf("server %s: unknown transport %q", id, server.Transport)
		}
	}
	return nil
}

// ClientInfo returns the handshake identity, defaulted when unset.
func (c *Config) ClientInfo() bridge.ClientInfo {
	info := bridge.ClientInfo{Name: c.Client.Name, Version: c.Client.Version}
	if info.Name == "" {
		info.Name = "mcp-bridge"
	}
	if info.Version == "" {
		info.Version = "0.0.0"
	}
	return info
}

// ManagerOptions translates the catalog settings into connection manager
// options.
func (c *Config) ManagerOptions() []bridge.ManagerOption {
	var opts []bridge.ManagerOption
	if c.Timeout > 0 {
		opts = append(opts, bridge.WithTimeout(time.Duration(c.Timeout)))
	}
	return opts
}

// Apply registers every server on the manager, in id order so failures are
// deterministic. The first registration failure aborts the rest.
func (c *Config) Apply(ctx context.Context, manager *bridge.ConnectionManager) error {
	info := c.ClientInfo()

	ids := make([]string, 0, len(c.Servers))
	for id := range c.Servers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		server := c.Servers[id]
		var err error
		switch server.Transport {
		case TransportStdio:
			err = manager.AddStdioClient(ctx, id, server.Command, server.Args, server.Env, info)
		case TransportSSE:
			err = manager.AddSSEClient(ctx, id, server.URL, server.Headers, info)
		}
		if err != nil {
			return fmt.Errorf("register server %s: %w", id, err)
		}
	}
	return nil
}
