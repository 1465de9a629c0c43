package providers

import (
	"strings"

	"github.com/omarluq/playground-relay/internal/chat"
)

// mapAnthropicStop maps a message_delta stop_reason.
func mapAnthropicStop(reason string) chat.FinishReason {
	switch reason {
	case "":
		return ""
	case "end_turn", "stop_sequence":
		return chat.FinishStop
	case "max_tokens":
		return chat.FinishLength
	case "tool_use":
		return chat.FinishToolUse
	case "refusal":
		return chat.FinishContentFilter
	default:
		return chat.FinishOther
	}
}

// mapGeminiFinish maps a candidate finishReason.
func mapGeminiFinish(reason string) chat.FinishReason {
	switch strings.ToUpper(reason) {
	case "", "FINISH_REASON_UNSPECIFIED":
		return ""
	case "STOP":
		return chat.FinishStop
	case "MAX_TOKENS":
		return chat.FinishLength
	case "SAFETY", "RECITATION", "BLOCKLIST", "PROHIBITED_CONTENT", "SPII":
		return chat.FinishContentFilter
	default:
		return chat.FinishOther
	}
}

// mapOpenAIFinish maps a choice finish_reason.
func mapOpenAIFinish(reason string) chat.FinishReason {
	switch reason {
	case "":
		return ""
	case "stop":
		return chat.FinishStop
	case "length":
		return chat.FinishLength
	case "content_filter":
		return chat.FinishContentFilter
	case "tool_calls", "function_call":
		return chat.FinishToolUse
	default:
		return chat.FinishOther
	}
}
