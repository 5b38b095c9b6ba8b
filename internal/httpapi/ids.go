package httpapi

import "github.com/synthetic-markets/agent-engine/internal/domain"

// frontendToInternal and internalToFrontend are the explicit
// bidirectional id map spec.md §6 requires between the UI's short
// agent slugs and the engine's internal domain.AgentID values.
var frontendToInternal = map[string]domain.AgentID{
	"grok":     domain.AgentGrok4,
	"gpt5":     domain.AgentGPT5,
	"deepseek": domain.AgentDeepSeekV3,
	"gemini":   domain.AgentGemini25,
	"claude":   domain.AgentClaude45,
	"qwen":     domain.AgentQwen25,
}

var internalToFrontend = func() map[domain.AgentID]string {
	m := make(map[domain.AgentID]string, len(frontendToInternal))
	for k, v := range frontendToInternal {
		m[v] = k
	}
	return m
}()

func toInternalID(frontendID string) (domain.AgentID, bool) {
	id, ok := frontendToInternal[frontendID]
	return id, ok
}

func toFrontendID(agentID domain.AgentID) string {
	if id, ok := internalToFrontend[agentID]; ok {
		return id
	}
	return string(agentID)
}
