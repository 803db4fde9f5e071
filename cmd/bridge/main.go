// Command bridge connects the MCP servers declared in a catalog file, wires
// one of them into a go-agent, and runs an interactive chat loop against it.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	agent "github.com/Protocol-Lattice/go-agent"
	"github.com/Protocol-Lattice/go-agent/src/memory/embed"
	"github.com/Protocol-Lattice/go-agent/src/models"
	"github.com/google/uuid"
	"github.com/joho/godotenv"

	bridge "github.com/Protocol-Lattice/mcp-bridge"
	"github.com/Protocol-Lattice/mcp-bridge/src/config"
	"github.com/Protocol-Lattice/mcp-bridge/src/retrieval"
)

func main() {
	configPath := flag.String("config", "servers.yaml", "Path to the MCP server catalog")
	clientID := flag.String("client", "", "Id of the server to wire into the agent (defaults to the first registered)")
	provider := flag.String("provider", "ollama", "Completion model provider (openai, gemini, ollama, anthropic)")
	modelName := flag.String("model", "llama3.2", "Completion model id")
	preamble := flag.String("preamble", "You are a helpful assistant with access to remote tools.", "System prompt for the agent")
	useRetrieval := flag.Bool("retrieval", false, "Embed tools and select a relevant subset per request")
	topK := flag.Int("top-k", 5, "Number of tools to surface when retrieval is enabled")
	flag.Parse()

	// Secrets for model providers and server headers live in the environment.
	_ = godotenv.Load()

	ctx := context.Background()
	logger := bridge.DefaultLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	opts := append(cfg.ManagerOptions(), bridge.WithLogger(logger))
	manager := bridge.NewConnectionManager(opts...)
	defer manager.Close()

	if err := cfg.Apply(ctx, manager); err != nil {
		log.Fatalf("failed to connect servers: %v", err)
	}

	id := *clientID
	if id == "" {
		ids := manager.IDs()
		if len(ids) == 0 {
			log.Fatalf("no servers registered; check %s", *configPath)
		}
		id = ids[0]
	}

	model, err := models.NewLLMProvider(ctx, *provider, *modelName, "")
	if err != nil {
		log.Fatalf("failed to create model: %v", err)
	}

	agentCfg := bridge.AgentConfig{SystemPrompt: *preamble}
	ag, index, err := buildAgent(ctx, manager, id, model, agentCfg, *useRetrieval)
	if err != nil {
		log.Fatalf("failed to wire agent: %v", err)
	}

	if index != nil {
		fmt.Printf("Indexed %d tools from %s for semantic selection (top %d).\n", index.Len(), id, *topK)
	}

	sessionID := "bridge:" + uuid.NewString()
	fmt.Printf("Connected to %s. Type a message and press enter (empty line exits).\n", id)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			break
		}

		if index != nil {
			tools, err := index.TopK(ctx, input, *topK)
			if err == nil && len(tools) > 0 {
				names := make([]string, 0, len(tools))
				for _, tool := range tools {
					names = append(names, tool.Spec().Name)
				}
				fmt.Printf("[tools: %s]\n", strings.Join(names, ", "))
			}
		}

		response, err := ag.Generate(ctx, sessionID, input)
		if err != nil {
			fmt.Printf("error: %v\n", err)
			continue
		}
		fmt.Println(response)
	}
}

func buildAgent(ctx context.Context, manager *bridge.ConnectionManager, id string, model models.Agent, cfg bridge.AgentConfig, useRetrieval bool) (*agent.Agent, *retrieval.ToolIndex, error) {
	if useRetrieval {
		return bridge.SetupAgentWithRetrieval(ctx, manager, id, model, embed.AutoEmbedder(), cfg)
	}
	built, err := bridge.SetupAgentWithTools(ctx, manager, id, model, cfg)
	return built, nil, err
}
