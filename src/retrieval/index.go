// Package retrieval selects tools by semantic similarity. It holds the
// embedding vectors the bridge attaches to adapted tools and answers
// nearest-neighbor queries over them; computing embeddings stays with the
// caller-supplied embedder.
package retrieval

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	agent "github.com/Protocol-Lattice/go-agent"
	"github.com/Protocol-Lattice/go-agent/src/memory/embed"
)

// vectorCarrier lets tools that already carry an embedding (the bridge's
// adapted tools) register without a second embedding round-trip.
type vectorCarrier interface {
	EmbeddingText() string
	Vector() []float32
}

type entry struct {
	tool   agent.Tool
	spec   agent.ToolSpec
	vector []float32
}

// ToolIndex is a tool catalog with a semantic lookup on top: it satisfies the
// framework's ToolCatalog contract and additionally ranks its tools against a
// natural-language query by cosine similarity.
type ToolIndex struct {
	mu       sync.RWMutex
	embedder embed.Embedder
	entries  []entry
	byName   map[string]int
}

// NewToolIndex constructs an empty index that embeds queries (and tools
// registered without a vector) through the given embedder.
func NewToolIndex(embedder embed.Embedder) *ToolIndex {
	return &ToolIndex{
		embedder: embedder,
		byName:   make(map[string]int),
	}
}

// Add registers a tool with a precomputed embedding vector. Duplicate names
// return an error.
func (ix *ToolIndex) Add(tool agent.Tool, vector []float32) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	if len(vector) == 0 {
		return fmt.Errorf("vector is empty")
	}
	return ix.add(tool, append([]float32(nil), vector...))
}

// Register adds a tool to the catalog, embedding its name and description
// unless the tool already carries a vector. Implements agent.ToolCatalog.
func (ix *ToolIndex) Register(tool agent.Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is nil")
	}
	var vector []float32
	text := ""
	if carrier, ok := tool.(vectorCarrier); ok {
		vector = carrier.Vector()
		text = carrier.EmbeddingText()
	}
	if vector == nil {
		if text == "" {
			spec := tool.Spec()
			text = strings.TrimSpace(spec.Name + ": " + spec.Description)
		}
		if ix.embedder == nil {
			return fmt.Errorf("index has no embedder and tool %s carries no vector", tool.Spec().Name)
		}
		embedded, err := ix.embedder.Embed(context.Background(), text)
		if err != nil {
			return fmt.Errorf("embed tool %s: %w", tool.Spec().Name, err)
		}
		vector = embedded
	}
	return ix.add(tool, vector)
}

func (ix *ToolIndex) add(tool agent.Tool, vector []float32) error {
	spec := tool.Spec()
	key := strings.ToLower(strings.TrimSpace(spec.Name))
	if key == "" {
		return fmt.Errorf("tool name is empty")
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if _, exists := ix.byName[key]; exists {
		return fmt.Errorf("tool %s already indexed", spec.Name)
	}
	ix.byName[key] = len(ix.entries)
	ix.entries = append(ix.entries, entry{tool: tool, spec: spec, vector: vector})
	return nil
}

// Lookup returns the tool and its specification if present.
func (ix *ToolIndex) Lookup(name string) (agent.Tool, agent.ToolSpec, bool) {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	key := strings.ToLower(strings.TrimSpace(name))
	i, ok := ix.byName[key]
	if !ok {
		return nil, agent.ToolSpec{}, false
	}
	return ix.entries[i].tool, ix.entries[i].spec, true
}

// Specs returns the tool specifications in registration order.
func (ix *ToolIndex) Specs() []agent.ToolSpec {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	specs := make([]agent.ToolSpec, 0, len(ix.entries))
	for _, e := range ix.entries {
		specs = append(specs, e.spec)
	}
	return specs
}

// Tools returns the registered tools in registration order.
func (ix *ToolIndex) Tools() []agent.Tool {
	ix.mu.RLock()
	defer ix.mu.RUnlock()

	tools := make([]agent.Tool, 0, len(ix.entries))
	for _, e := range ix.entries {
		tools = append(tools, e.tool)
	}
	return tools
}

// Len returns the number of indexed tools.
func (ix *ToolIndex) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// TopK returns the k tools whose embeddings are closest to the query by
// cosine similarity, best first. k <= 0 or k beyond the index size returns
// every tool ranked.
func (ix *ToolIndex) TopK(ctx context.Context, query string, k int) ([]agent.Tool, error) {
	if ix.embedder == nil {
		return nil, fmt.Errorf("index has no embedder")
	}
	queryVec, err := ix.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	ix.mu.RLock()
	ranked := make([]scored, 0, len(ix.entries))
	for _, e := range ix.entries {
		ranked = append(ranked, scored{tool: e.tool, score: CosineSimilarity(queryVec, e.vector)})
	}
	ix.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	tools := make([]agent.Tool, 0, k)
	for _, r := range ranked[:k] {
		tools = append(tools, r.tool)
	}
	return tools, nil
}

type scored struct {
	tool  agent.Tool
	score float64
}
