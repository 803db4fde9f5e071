package bridge

import (
	"context"
	"strings"
	"sync"

	agent "github.com/Protocol-Lattice/go-agent"
)

// Embeddable is the capability an adapted tool exposes to a semantic
// retrieval component. The bridge only derives the text to embed and stores
// an externally computed vector; the embedding model itself stays outside.
type Embeddable interface {
	EmbeddingText() string
	AttachVector(vector []float32) error
	Vector() []float32
}

// AdaptedTool makes one remote MCP tool usable as an agent framework tool.
// It holds the owning client only as an id and re-resolves it through the
// connection manager on every invocation, so removing the client turns later
// calls into clean not-found failures instead of uses of a dead transport.
//
// An AdaptedTool is immutable after creation apart from the one-shot
// embedding vector attachment, and invocations share no mutable state, so any
// number of them may run concurrently.
type AdaptedTool struct {
	manager    *ConnectionManager
	clientID   string
	descriptor ToolDescriptor
	schema     map[string]any

	vecMu  sync.RWMutex
	vector []float32
}

var _ agent.Tool = (*AdaptedTool)(nil)
var _ Embeddable = (*AdaptedTool)(nil)

// NewAdaptedTool derives the parameter schema for one remote tool descriptor
// and binds it to the client registered under clientID. Adapting the same
// (client, descriptor) pair twice yields equivalent, independent tools.
func NewAdaptedTool(manager *ConnectionManager, clientID string, descriptor ToolDescriptor) (*AdaptedTool, error) {
	if manager == nil {
		return nil, Errorf(KindInit, "connection manager is nil")
	}
	if strings.TrimSpace(descriptor.Name) == "" {
		return nil, Errorf(KindInit, "tool descriptor has no name")
	}
	schema, err := TranslateSchema(descriptor.InputSchema)
	if err != nil {
		return nil, err
	}
	return &AdaptedTool{
		manager:    manager,
		clientID:   clientID,
		descriptor: descriptor,
		schema:     schema,
	}, nil
}

// ClientID returns the id of the client this tool invokes through.
func (t *AdaptedTool) ClientID() string { return t.clientID }

// Descriptor returns the remote tool descriptor this adapter was built from.
func (t *AdaptedTool) Descriptor() ToolDescriptor { return t.descriptor }

// Spec presents the tool to the agent framework with its derived schema.
func (t *AdaptedTool) Spec() agent.ToolSpec {
	return agent.ToolSpec{
		Name:        t.descriptor.Name,
		Description: t.descriptor.Description,
		InputSchema: t.schema,
	}
}

// Invoke calls the remote tool through the connection manager, bounded by the
// manager's timeout. A removed client surfaces as a tool execution error, a
// result flagged as an error by the server likewise; transport failures keep
// their MCP classification.
func (t *AdaptedTool) Invoke(ctx context.Context, req agent.ToolRequest) (agent.ToolResponse, error) {
	result, err := t.manager.CallTool(ctx, t.clientID, t.descriptor.Name, req.Arguments)
	if err != nil {
		return agent.ToolResponse{}, err
	}
	content := flattenContent(result.Content)
	if result.IsError {
		return agent.ToolResponse{}, Errorf(KindToolExecution, "tool %s reported an error: %s", t.descriptor.Name, content)
	}
	return agent.ToolResponse{
		Content: content,
		Metadata: map[string]string{
			"client": t.clientID,
			"tool":   t.descriptor.Name,
		},
	}, nil
}

// EmbeddingText derives the text a retrieval component should embed for this
// tool. The schema is deliberately left out; the name and human description
// carry the semantic signal.
func (t *AdaptedTool) EmbeddingText() string {
	if strings.TrimSpace(t.descriptor.Description) == "" {
		return t.descriptor.Name
	}
	return t.descriptor.Name + ": " + t.descriptor.Description
}

// AttachVector stores an externally computed embedding vector. The vector can
// be attached once; later attachments fail rather than silently replacing a
// vector a retrieval index may already hold.
func (t *AdaptedTool) AttachVector(vector []float32) error {
	if len(vector) == 0 {
		return Errorf(KindInit, "embedding vector for tool %s is empty", t.descriptor.Name)
	}
	t.vecMu.Lock()
	defer t.vecMu.Unlock()
	if t.vector != nil {
		return Errorf(KindInit, "tool %s already has an embedding vector", t.descriptor.Name)
	}
	t.vector = append([]float32(nil), vector...)
	return nil
}

// Vector returns a copy of the attached embedding vector, or nil when none
// has been attached.
func (t *AdaptedTool) Vector() []float32 {
	t.vecMu.RLock()
	defer t.vecMu.RUnlock()
	if t.vector == nil {
		return nil
	}
	return append([]float32(nil), t.vector...)
}

// flattenContent joins the textual parts of a tool result, annotating
// non-text parts with their type so the model still sees they exist.
func flattenContent(items []Content) string {
	var parts []string
	for _, item := range items {
		switch {
		case item.Text != "":
			parts = append(parts, item.Text)
		case item.URI != "":
			parts = append(parts, "["+item.Type+" "+item.URI+"]")
		case item.Type != "":
			parts = append(parts, "["+item.Type+"]")
		}
	}
	return strings.Join(parts, "\n")
}
