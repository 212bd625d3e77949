package chat

import (
	"docnexus/internal/domain"
)

// TransformHistory converts server-side history into display messages.
// Tool results are folded into the tool calls of the bot message that made
// them; messages with an unknown role are skipped.
func TransformHistory(raw []domain.RawMessage) []domain.Message {
	if len(raw) == 0 {
		return nil
	}

	toolOutputs := make(map[string]string)
	for _, m := range raw {
		if m.IsTool() && m.ToolCallID != "" {
			if _, seen := toolOutputs[m.ToolCallID]; !seen {
				toolOutputs[m.ToolCallID] = m.Text()
			}
		}
	}

	var out []domain.Message
	for _, m := range raw {
		switch {
		case m.IsTool():
			continue
		case m.IsUser():
			out = append(out, domain.Message{Role: domain.RoleUser, Content: m.Text()})
		case m.IsBot():
			msg := domain.Message{Role: domain.RoleBot, Content: m.Text()}
			if t := m.AdditionalKwargs.Thinking; t != "" {
				msg.Reasoning = []domain.ReasoningEntry{{Kind: domain.ReasoningThought, Text: " " + t}}
			}
			for _, tc := range m.ToolCalls {
				msg.ToolCalls = append(msg.ToolCalls, domain.ToolCallRecord{
					ID:     tc.ID,
					Name:   tc.Name,
					Args:   tc.Args,
					Status: domain.ToolCompleted,
					Output: toolOutputs[tc.ID],
				})
			}
			out = append(out, msg)
		}
	}
	return out
}
