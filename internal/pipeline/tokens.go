package pipeline

import "encoding/json"

// tokenExtractor pulls a token count out of an event payload. Extractors
// are tried in order and the first match wins.
type tokenExtractor func(payload map[string]any) (int64, bool)

var tokenExtractors = []tokenExtractor{
	topLevelTokens,
	usageTotalTokens,
}

func extractTokens(payload map[string]any) int64 {
	if payload == nil {
		return 0
	}
	for _, extract := range tokenExtractors {
		if tokens, ok := extract(payload); ok {
			return tokens
		}
	}
	return 0
}

func topLevelTokens(payload map[string]any) (int64, bool) {
	return asTokenCount(payload["tokens"])
}

func usageTotalTokens(payload map[string]any) (int64, bool) {
	usage, ok := payload["usage"].(map[string]any)
	if !ok {
		return 0, false
	}
	return asTokenCount(usage["total_tokens"])
}

func asTokenCount(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, false
		}
		return int64(f), true
	default:
		return 0, false
	}
}
