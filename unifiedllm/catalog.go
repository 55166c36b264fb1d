package unifiedllm

// ModelInfo describes a known model in the catalog.
type ModelInfo struct {
	ID            string `json:"id"`
	Provider      string `json:"provider"`
	DisplayName   string `json:"display_name"`
	ContextWindow int    `json:"context_window"`
	MaxOutput     int    `json:"max_output"`
	// SupportsServerTools is set for models that can call remote MCP servers
	// and the hosted web search tool within one request.
	SupportsServerTools bool     `json:"supports_server_tools"`
	Aliases             []string `json:"aliases,omitempty"`
}

// DefaultModel is used when neither flags nor environment pick a model.
const DefaultModel = "claude-haiku-4-5"

// Models is the built-in model catalog. Within a provider, entries are ordered
// from the preferred default to the least preferred.
var Models = []ModelInfo{
	// Anthropic
	{
		ID: "claude-haiku-4-5", Provider: "anthropic", DisplayName: "Claude Haiku 4.5",
		ContextWindow: 200000, MaxOutput: 64000,
		SupportsServerTools: true,
		Aliases:             []string{"haiku", "claude-haiku"},
	},
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow: 200000, MaxOutput: 64000,
		SupportsServerTools: true,
		Aliases:             []string{"sonnet", "claude-sonnet"},
	},
	{
		ID: "claude-opus-4-1", Provider: "anthropic", DisplayName: "Claude Opus 4.1",
		ContextWindow: 200000, MaxOutput: 32000,
		SupportsServerTools: true,
		Aliases:             []string{"opus", "claude-opus"},
	},

	// OpenAI (plain generation through gollm, no server tools)
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, MaxOutput: 16384,
		Aliases: []string{"4o-mini"},
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: 16384,
		Aliases: []string{"4o"},
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// ResolveModelID maps an alias to its canonical model ID. Unknown names are
// returned unchanged so that new provider models work without a catalog entry.
func ResolveModelID(name string) string {
	if info := GetModelInfo(name); info != nil {
		return info.ID
	}
	return name
}

// ListModels returns all known models, optionally filtered by provider.
func ListModels(provider string) []ModelInfo {
	if provider == "" {
		result := make([]ModelInfo, len(Models))
		copy(result, Models)
		return result
	}
	var result []ModelInfo
	for _, m := range Models {
		if m.Provider == provider {
			result = append(result, m)
		}
	}
	return result
}

// GetLatestModel returns the preferred model for a provider, optionally
// filtered by capability ("" or "server_tools").
func GetLatestModel(provider string, capability string) *ModelInfo {
	for i := range Models {
		if Models[i].Provider != provider {
			continue
		}
		switch capability {
		case "":
			return &Models[i]
		case "server_tools":
			if Models[i].SupportsServerTools {
				return &Models[i]
			}
		}
	}
	return nil
}
