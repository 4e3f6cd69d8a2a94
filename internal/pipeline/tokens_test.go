package pipeline

import "testing"

func TestExtractTokens(t *testing.T) {
	tests := []struct {
		name    string
		payload map[string]any
		want    int64
	}{
		{
			name:    "top-level tokens",
			payload: map[string]any{"tokens": float64(150)},
			want:    150,
		},
		{
			name:    "usage total_tokens",
			payload: map[string]any{"usage": map[string]any{"total_tokens": float64(320)}},
			want:    320,
		},
		{
			name: "top-level wins over usage",
			payload: map[string]any{
				"tokens": float64(10),
				"usage":  map[string]any{"total_tokens": float64(999)},
			},
			want: 10,
		},
		{
			name: "non-numeric tokens falls through to usage",
			payload: map[string]any{
				"tokens": "lots",
				"usage":  map[string]any{"total_tokens": float64(42)},
			},
			want: 42,
		},
		{
			name:    "no token fields",
			payload: map[string]any{"tool": "bash"},
			want:    0,
		},
		{
			name:    "nil payload",
			payload: nil,
			want:    0,
		},
		{
			name:    "usage is not an object",
			payload: map[string]any{"usage": "n/a"},
			want:    0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractTokens(tt.payload); got != tt.want {
				t.Errorf("extractTokens = %d, want %d", got, tt.want)
			}
		})
	}
}
