package pipeline

import "encoding/json"

// Payloads nested deeper than this count as this depth. Keeps complexity
// finite on adversarial input.
const maxComplexityDepth = 32

// payloadComplexity scores a payload by serialized size, nesting depth and
// array count, capped at 10.
func payloadComplexity(payload map[string]any) float64 {
	if len(payload) == 0 {
		return 0
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return 0
	}

	depth, arrays := structureStats(payload, 1)
	complexity := float64(len(raw))/1000.0 + 0.5*float64(depth) + 0.3*float64(arrays)
	if complexity > 10 {
		complexity = 10
	}

	return complexity
}

// structureStats walks a decoded JSON value and reports the deepest
// container nesting and the total number of arrays, nested ones included.
func structureStats(v any, depth int) (maxDepth, arrayCount int) {
	if depth >= maxComplexityDepth {
		if _, isArray := v.([]any); isArray {
			return maxComplexityDepth, 1
		}
		return maxComplexityDepth, 0
	}

	switch t := v.(type) {
	case map[string]any:
		maxDepth = depth
		for _, child := range t {
			if !isContainer(child) {
				continue
			}
			d, a := structureStats(child, depth+1)
			if d > maxDepth {
				maxDepth = d
			}
			arrayCount += a
		}
		return maxDepth, arrayCount
	case []any:
		maxDepth = depth
		arrayCount = 1
		for _, child := range t {
			if !isContainer(child) {
				continue
			}
			d, a := structureStats(child, depth+1)
			if d > maxDepth {
				maxDepth = d
			}
			arrayCount += a
		}
		return maxDepth, arrayCount
	default:
		return depth, 0
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}
