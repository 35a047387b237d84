package llm

// TrimMessages drops the oldest conversation groups until the history fits
// in maxTokens. A group is a user message, a plain assistant reply, or an
// assistant tool call together with all of its results; groups are kept or
// dropped whole. The newest group always survives, even over budget.
//
// Tool results left at the front with no matching call (a history that was
// cut elsewhere) are dropped too, since every provider rejects them.
func TrimMessages(messages []Message, maxTokens int) []Message {
	if len(messages) == 0 {
		return messages
	}

	groups := groupMessages(messages)
	orphans := 0
	for orphans < len(groups)-1 && groups[orphans].orphan {
		orphans++
	}
	groups = groups[orphans:]

	total := 0
	for _, g := range groups {
		total += g.tokens
	}
	if orphans == 0 && total <= maxTokens {
		return messages
	}

	drop := 0
	for drop < len(groups)-1 && total > maxTokens {
		total -= groups[drop].tokens
		drop++
	}

	var trimmed []Message
	for _, g := range groups[drop:] {
		trimmed = append(trimmed, g.messages...)
	}
	return trimmed
}

type messageGroup struct {
	messages []Message
	tokens   int
	orphan   bool // tool results with no preceding call
}

func groupMessages(messages []Message) []messageGroup {
	var groups []messageGroup
	i := 0
	for i < len(messages) {
		msg := messages[i]

		if msg.Role == RoleAssistant && len(msg.ToolCalls) > 0 {
			g := messageGroup{messages: []Message{msg}, tokens: EstimateMessageTokens(msg)}
			i++
			for i < len(messages) && messages[i].IsToolResult() {
				g.messages = append(g.messages, messages[i])
				g.tokens += EstimateMessageTokens(messages[i])
				i++
			}
			groups = append(groups, g)
			continue
		}

		groups = append(groups, messageGroup{
			messages: []Message{msg},
			tokens:   EstimateMessageTokens(msg),
			orphan:   msg.IsToolResult(),
		})
		i++
	}
	return groups
}
