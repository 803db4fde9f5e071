package bridge

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/go-logr/logr"
)

// DefaultTimeout bounds client handshakes, tool listings, and tool
// invocations performed through a ConnectionManager unless overridden with
// WithTimeout.
const DefaultTimeout = 30 * time.Second

// Dialer establishes a connected, initialized client over one transport.
type Dialer interface {
	Dial(ctx context.Context, info ClientInfo) (Client, error)
}

// StdioTransport reaches an MCP server by spawning a subprocess and speaking
// the protocol over its stdin/stdout pipes.
type StdioTransport struct {
	Command string
	Args    []string
	Env     map[string]string
}

func (t StdioTransport) Dial(ctx context.Context, info ClientInfo) (Client, error) {
	return newStdioSession(ctx, t.Command, t.Args, t.Env, info)
}

// SSETransport reaches an MCP server over a streamed HTTP (server-sent
// events) channel.
type SSETransport struct {
	URL     string
	Headers map[string]string
}

func (t SSETransport) Dial(ctx context.Context, info ClientInfo) (Client, error) {
	return newSSESession(ctx, t.URL, t.Headers, info)
}

// ConnectionManager owns a registry of named MCP clients reachable over
// different transports. It is the sole owner of the underlying transport
// resources; everything else refers to clients by id and looks them up here.
type ConnectionManager struct {
	mu      sync.RWMutex
	clients map[string]Client
	timeout time.Duration
	logger  logr.Logger
}

// ManagerOption configures a ConnectionManager during construction.
type ManagerOption func(*ConnectionManager)

// WithTimeout overrides the default per-operation timeout applied to client
// creation, tool listing, and tool invocation.
func WithTimeout(timeout time.Duration) ManagerOption {
	return func(m *ConnectionManager) {
		if timeout > 0 {
			m.timeout = timeout
		}
	}
}

// WithLogger attaches a structured logger used for connection lifecycle and
// adaptation warnings.
func WithLogger(logger logr.Logger) ManagerOption {
	return func(m *ConnectionManager) {
		m.logger = logger
	}
}

// NewConnectionManager constructs an empty registry. Without options it uses
// DefaultTimeout and a discarding logger.
func NewConnectionManager(opts ...ManagerOption) *ConnectionManager {
	m := &ConnectionManager{
		clients: make(map[string]Client),
		timeout: DefaultTimeout,
		logger:  logr.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

// Timeout reports the per-operation timeout in force.
func (m *ConnectionManager) Timeout() time.Duration { return m.timeout }

// AddStdioClient spawns an MCP server subprocess, performs the handshake, and
// registers the client under id.
func (m *ConnectionManager) AddStdioClient(ctx context.Context, id, command string, args []string, env map[string]string, info ClientInfo) error {
	return m.AddClient(ctx, id, StdioTransport{Command: command, Args: args, Env: env}, info)
}

// AddSSEClient connects to an MCP server over SSE, performs the handshake,
// and registers the client under id.
func (m *ConnectionManager) AddSSEClient(ctx context.Context, id, url string, headers map[string]string, info ClientInfo) error {
	return m.AddClient(ctx, id, SSETransport{URL: url, Headers: headers}, info)
}

// AddClient dials any transport and registers the resulting client under id.
// Registering an id twice fails with an initialization error and leaves the
// first client untouched; replacing it silently would orphan in-flight
// invocations still holding the old reference.
func (m *ConnectionManager) AddClient(ctx context.Context, id string, dialer Dialer, info ClientInfo) error {
	if id == "" {
		return Errorf(KindInit, "client id is empty")
	}
	if dialer == nil {
		return Errorf(KindInit, "dialer is nil for client %q", id)
	}

	m.mu.RLock()
	_, exists := m.clients[id]
	m.mu.RUnlock()
	if exists {
		return Errorf(KindInit, "client %q already registered", id)
	}

	dialCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	client, err := dialer.Dial(dialCtx, info)
	if err != nil {
		if dialCtx.Err() != nil {
			return mcpErr("client "+id+" timed out during handshake", err)
		}
		if KindOf(err) == KindMCP {
			return err
		}
		return mcpErr("connect client "+id, err)
	}

	m.mu.Lock()
	if _, exists := m.clients[id]; exists {
		m.mu.Unlock()
		// Lost the race to another registration; release what we dialed.
		client.Close()
		return Errorf(KindInit, "client %q already registered", id)
	}
	m.clients[id] = client
	m.mu.Unlock()

	m.logger.Info("registered mcp client", "id", id)
	return nil
}

// Client returns the client registered under id. Absence is reported through
// the boolean, not an error, so callers decide whether it is fatal.
func (m *ConnectionManager) Client(id string) (Client, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	client, ok := m.clients[id]
	return client, ok
}

// Has reports whether a client is registered under id.
func (m *ConnectionManager) Has(id string) bool {
	_, ok := m.Client(id)
	return ok
}

// IDs returns the registered client ids in sorted order.
func (m *ConnectionManager) IDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.clients))
	for id := range m.clients {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of registered clients.
func (m *ConnectionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// RemoveClient removes the client registered under id and hands ownership of
// it back to the caller, who is responsible for closing it. Removing an
// unknown id is a no-op. Adapted tools bound to the removed id keep working
// as values but fail their next invocation with a not-found error.
func (m *ConnectionManager) RemoveClient(id string) (Client, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	client, ok := m.clients[id]
	if !ok {
		return nil, false
	}
	delete(m.clients, id)
	return client, true
}

// CloseClient removes the client registered under id and closes it.
func (m *ConnectionManager) CloseClient(id string) error {
	client, ok := m.RemoveClient(id)
	if !ok {
		return nil
	}
	m.logger.Info("closed mcp client", "id", id)
	return client.Close()
}

// Close tears down every remaining client. The first close failure is
// returned after all clients have been released.
func (m *ConnectionManager) Close() error {
	m.mu.Lock()
	clients := m.clients
	m.clients = make(map[string]Client)
	m.mu.Unlock()

	var firstErr error
	for id, client := range clients {
		if err := client.Close(); err != nil && firstErr == nil {
			firstErr = mcpErr("close client "+id, err)
		}
	}
	return firstErr
}

// ListTools fetches the tool catalog of the client registered under id,
// bounded by the manager timeout.
func (m *ConnectionManager) ListTools(ctx context.Context, id string) ([]ToolDescriptor, error) {
	client, ok := m.Client(id)
	if !ok {
		return nil, Errorf(KindMCP, "client %q not found", id)
	}

	listCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	descriptors, err := client.ListTools(listCtx)
	if err != nil {
		if listCtx.Err() != nil {
			return nil, mcpErr("list tools on client "+id+" timed out", err)
		}
		if KindOf(err) == KindMCP {
			return nil, err
		}
		return nil, mcpErr("list tools on client "+id, err)
	}
	return descriptors, nil
}

// CallTool invokes a named tool on the client registered under id, bounded by
// the manager timeout. An absent client surfaces as a tool execution error so
// a stale adapted tool fails its call instead of crashing.
func (m *ConnectionManager) CallTool(ctx context.Context, id, name string, args map[string]any) (ToolResult, error) {
	client, ok := m.Client(id)
	if !ok {
		return ToolResult{}, Errorf(KindToolExecution, "client %q not found", id)
	}

	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	result, err := client.CallTool(callCtx, name, args)
	if err != nil {
		if callCtx.Err() != nil {
			return ToolResult{}, mcpErr("tool "+name+" on client "+id+" timed out", err)
		}
		if kind := KindOf(err); kind == KindMCP || kind == KindToolExecution {
			return ToolResult{}, err
		}
		return ToolResult{}, NewError(KindToolExecution, "tool "+name+" on client "+id, err)
	}
	return result, nil
}
