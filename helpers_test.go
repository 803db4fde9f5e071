package bridge

import (
	"context"
	"sync"
	"time"

	"github.com/Protocol-Lattice/go-agent/src/models"
)

type fakeClient struct {
	mu      sync.Mutex
	tools   []ToolDescriptor
	listErr error
	callFn  func(ctx context.Context, name string, args map[string]any) (ToolResult, error)
	closed  bool
}

func (c *fakeClient) ListTools(ctx context.Context) ([]ToolDescriptor, error) {
	if c.listErr != nil {
		return nil, c.listErr
	}
	return append([]ToolDescriptor(nil), c.tools...), nil
}

func (c *fakeClient) CallTool(ctx context.Context, name string, args map[string]any) (ToolResult, error) {
	if c.callFn != nil {
		return c.callFn(ctx, name, args)
	}
	return ToolResult{Content: []Content{{Type: "text", Text: "ok"}}}, nil
}

func (c *fakeClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeClient) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

type fakeDialer struct {
	client Client
	err    error
	delay  time.Duration
}

func (d fakeDialer) Dial(ctx context.Context, info ClientInfo) (Client, error) {
	if d.delay > 0 {
		select {
		case <-time.After(d.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if d.err != nil {
		return nil, d.err
	}
	if d.client != nil {
		return d.client, nil
	}
	return &fakeClient{}, nil
}

type stubModel struct {
	response string
	err      error
}

func (m *stubModel) Generate(ctx context.Context, prompt string) (any, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *stubModel) GenerateWithFiles(ctx context.Context, prompt string, files []models.File) (any, error) {
	return m.Generate(ctx, prompt)
}

func (m *stubModel) GenerateStream(ctx context.Context, prompt string) (<-chan models.StreamChunk, error) {
	out, err := m.Generate(ctx, prompt)
	if err != nil {
		return nil, err
	}
	text, _ := out.(string)
	ch := make(chan models.StreamChunk, 1)
	ch <- models.StreamChunk{Done: true, FullText: text}
	close(ch)
	return ch, nil
}

// stubEmbedder maps text onto a small deterministic vector.
type stubEmbedder struct {
	err error
}

func (e stubEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if e.err != nil {
		return nil, e.err
	}
	vec := make([]float32, 8)
	for i, ch := range []byte(text) {
		vec[i%8] += float32(ch) / 255.0
	}
	return vec, nil
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		list := make([]any, 0, len(required))
		for _, name := range required {
			list = append(list, name)
		}
		schema["required"] = list
	}
	return schema
}
