// Package bridge adapts remote MCP (Model Context Protocol) tools into the
// go-agent framework's tool-calling abstraction.
//
// A ConnectionManager owns any number of MCP clients, each reachable over its
// own transport (stdio subprocess or SSE), keyed by caller-chosen ids. Each
// remote tool is wrapped in an AdaptedTool that satisfies the framework's
// Tool contract and, for retrieval-based tool selection, the Embeddable
// contract. SetupAgentWithTools composes the two into a ready agent.
package bridge

import (
	"context"

	agent "github.com/Protocol-Lattice/go-agent"
	"github.com/Protocol-Lattice/go-agent/src/memory"
	"github.com/Protocol-Lattice/go-agent/src/memory/embed"
	"github.com/Protocol-Lattice/go-agent/src/models"

	"github.com/Protocol-Lattice/mcp-bridge/src/retrieval"
)

// AgentConfig carries the non-tool inputs of agent construction. Zero values
// fall back to the framework defaults (and a fresh in-memory session store).
type AgentConfig struct {
	SystemPrompt string
	ContextLimit int
	Memory       *memory.SessionMemory
}

// AdaptTools lists the tool catalog of the client registered under clientID
// and adapts every descriptor. A tool whose schema fails translation is
// logged and skipped so one bad tool does not take the rest down; when every
// listed tool fails, that is a misconfiguration worth surfacing and an
// initialization error is returned. An empty remote catalog is valid.
func AdaptTools(ctx context.Context, manager *ConnectionManager, clientID string) ([]*AdaptedTool, error) {
	if manager == nil {
		return nil, Errorf(KindInit, "connection manager is nil")
	}
	descriptors, err := manager.ListTools(ctx, clientID)
	if err != nil {
		return nil, err
	}

	adapted := make([]*AdaptedTool, 0, len(descriptors))
	for _, descriptor := range descriptors {
		tool, err := NewAdaptedTool(manager, clientID, descriptor)
		if err != nil {
			manager.logger.Info("skipping tool with unusable schema",
				"client", clientID, "tool", descriptor.Name, "reason", err.Error())
			continue
		}
		adapted = append(adapted, tool)
	}
	if len(descriptors) > 0 && len(adapted) == 0 {
		return nil, Errorf(KindInit, "client %q listed %d tools but none were adaptable", clientID, len(descriptors))
	}
	return adapted, nil
}

// RegisterTools adapts the tools of the client registered under clientID and
// registers them on an existing catalog.
func RegisterTools(ctx context.Context, manager *ConnectionManager, clientID string, catalog agent.ToolCatalog) error {
	if catalog == nil {
		return Errorf(KindInit, "tool catalog is nil")
	}
	tools, err := AdaptTools(ctx, manager, clientID)
	if err != nil {
		return err
	}
	for _, tool := range tools {
		if err := catalog.Register(tool); err != nil {
			return agentErr("register tool "+tool.Descriptor().Name, err)
		}
	}
	return nil
}

// SetupAgentWithTools wires one client's tools into a new agent: it lists the
// remote catalog, adapts each descriptor, and builds an agent exposing the
// adapted set alongside the given completion model. Pure composition; all
// state lives in the manager and the adapted tools.
func SetupAgentWithTools(ctx context.Context, manager *ConnectionManager, clientID string, model models.Agent, cfg AgentConfig) (*agent.Agent, error) {
	adapted, err := AdaptTools(ctx, manager, clientID)
	if err != nil {
		return nil, err
	}
	tools := make([]agent.Tool, 0, len(adapted))
	for _, tool := range adapted {
		tools = append(tools, tool)
	}
	return buildAgent(model, cfg, tools, nil)
}

// SetupAgentWithRetrieval is the RAG variant of SetupAgentWithTools: every
// adapted tool is embedded through the supplied embedder, the vector is
// attached to the tool, and the agent is built over a semantic ToolIndex so
// the application can select a relevant subset per request. The index is
// returned alongside the agent.
func SetupAgentWithRetrieval(ctx context.Context, manager *ConnectionManager, clientID string, model models.Agent, embedder embed.Embedder, cfg AgentConfig) (*agent.Agent, *retrieval.ToolIndex, error) {
	if embedder == nil {
		return nil, nil, Errorf(KindInit, "embedder is nil")
	}
	adapted, err := AdaptTools(ctx, manager, clientID)
	if err != nil {
		return nil, nil, err
	}

	index := retrieval.NewToolIndex(embedder)
	for _, tool := range adapted {
		vector, err := embedder.Embed(ctx, tool.EmbeddingText())
		if err != nil {
			return nil, nil, NewError(KindOther, "embed tool "+tool.Descriptor().Name, err)
		}
		if err := tool.AttachVector(vector); err != nil {
			return nil, nil, err
		}
		if err := index.Add(tool, vector); err != nil {
			return nil, nil, agentErr("index tool "+tool.Descriptor().Name, err)
		}
	}

	built, err := buildAgent(model, cfg, nil, index)
	if err != nil {
		return nil, nil, err
	}
	return built, index, nil
}

func buildAgent(model models.Agent, cfg AgentConfig, tools []agent.Tool, catalog agent.ToolCatalog) (*agent.Agent, error) {
	mem := cfg.Memory
	if mem == nil {
		mem = memory.NewSessionMemory(&memory.MemoryBank{}, 0)
	}
	built, err := agent.New(agent.Options{
		Model:        model,
		Memory:       mem,
		SystemPrompt: cfg.SystemPrompt,
		ContextLimit: cfg.ContextLimit,
		Tools:        tools,
		ToolCatalog:  catalog,
	})
	if err != nil {
		return nil, agentErr("build agent", err)
	}
	return built, nil
}
