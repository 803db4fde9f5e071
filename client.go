package bridge

import (
	"context"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	"github.com/mark3labs/mcp-go/mcp"
)

// ClientInfo identifies this application to a remote MCP endpoint during the
// initialize handshake. It is fixed at client creation time.
type ClientInfo struct {
	Name    string
	Version string
}

// ToolDescriptor is an immutable snapshot of one remote tool as reported by a
// client's tool listing. The catalog is fetched once per listing; this layer
// performs no live invalidation if the remote catalog changes afterwards.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// Content is a single item of tool output.
type Content struct {
	Type     string
	Text     string
	MimeType string
	URI      string
}

// ToolResult is the raw payload returned by a remote tool call. The content is
// opaque to the bridge and handed to the agent framework as-is.
type ToolResult struct {
	Content []Content
	IsError bool
}

// Client is the transport boundary consumed by the bridge. A client lists its
// remote tool catalog and invokes tools by name; how the bytes move (stdio
// subprocess, streamed HTTP) is the concern of the implementation behind it.
type Client interface {
	ListTools(ctx context.Context) ([]ToolDescriptor, error)
	CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error)
	Close() error
}

// mcpSessionClient adapts a mark3labs/mcp-go client to the Client interface.
type mcpSessionClient struct {
	inner *mcpclient.Client
}

func newStdioSession(ctx context.Context, command string, args []string, env map[string]string, info ClientInfo) (Client, error) {
	inner, err := mcpclient.NewStdioMCPClient(command, flattenEnv(env), args...)
	if err != nil {
		return nil, mcpErr("start stdio client", err)
	}
	return initializeSession(ctx, inner, info)
}

func newSSESession(ctx context.Context, url string, headers map[string]string, info ClientInfo) (Client, error) {
	var opts []transport.ClientOption
	if len(headers) > 0 {
		opts = append(opts, transport.WithHeaders(headers))
	}
	inner, err := mcpclient.NewSSEMCPClient(url, opts...)
	if err != nil {
		return nil, mcpErr("create sse client", err)
	}
	if err := inner.Start(ctx); err != nil {
		inner.Close()
		return nil, mcpErr("start sse client", err)
	}
	return initializeSession(ctx, inner, info)
}

// initializeSession performs the MCP handshake. On failure the underlying
// transport is closed so a half-created client never leaks its subprocess or
// connection.
func initializeSession(ctx context.Context, inner *mcpclient.Client, info ClientInfo) (Client, error) {
	req := mcp.InitializeRequest{}
	req.Params.ProtocolVersion = mcp.LATEST_PROTOCOL_VERSION
	req.Params.ClientInfo = mcp.Implementation{Name: info.Name, Version: info.Version}
	req.Params.Capabilities = mcp.ClientCapabilities{}

	if _, err := inner.Initialize(ctx, req); err != nil {
		inner.Close()
		return nil, mcpErr("initialize handshake", err)
	}
	return &mcpSessionClient{inner: inner}, nil
}

func (c *mcpSessionClient) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	result, err := c.inner.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, mcpErr("list tools", err)
	}
	descriptors := make([]ToolDescriptor, 0, len(result.Tools))
	for _, tool := range result.Tools {
		descriptors = append(descriptors, ToolDescriptor{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schemaToMap(tool.InputSchema),
		})
	}
	return descriptors, nil
}

func (c *mcpSessionClient) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	req := mcp.CallToolRequest{}
	req.Params.Name = name
	req.Params.Arguments = args

	result, err := c.inner.CallTool(ctx, req)
	if err != nil {
		return ToolResult{}, mcpErr("call tool "+name, err)
	}
	out := ToolResult{IsError: result.IsError}
	for _, item := range result.Content {
		out.Content = append(out.Content, convertContent(item))
	}
	return out, nil
}

func (c *mcpSessionClient) Close() error {
	return c.inner.Close()
}

func convertContent(item mcp.Content) Content {
	switch v := item.(type) {
	case mcp.TextContent:
		return Content{Type: "text", Text: v.Text}
	case mcp.ImageContent:
		return Content{Type: "image", MimeType: v.MIMEType}
	case mcp.EmbeddedResource:
		if text, ok := v.Resource.(mcp.TextResourceContents); ok {
			return Content{Type: "resource", Text: text.Text, MimeType: text.MIMEType, URI: text.URI}
		}
		return Content{Type: "resource"}
	default:
		return Content{Type: "unknown"}
	}
}

// schemaToMap converts the typed MCP input schema into the JSON-object form
// the schema translator consumes.
func schemaToMap(schema mcp.ToolInputSchema) map[string]any {
	out := map[string]any{}
	if schema.Type != "" {
		out["type"] = schema.Type
	}
	if schema.Properties != nil {
		out["properties"] = schema.Properties
	}
	if len(schema.Required) > 0 {
		required := make([]any, 0, len(schema.Required))
		for _, name := range schema.Required {
			required = append(required, name)
		}
		out["required"] = required
	}
	return out
}

func flattenEnv(env map[string]string) []string {
	if len(env) == 0 {
		return nil
	}
	flat := make([]string, 0, len(env))
	for key, value := range env {
		flat = append(flat, key+"="+value)
	}
	return flat
}
