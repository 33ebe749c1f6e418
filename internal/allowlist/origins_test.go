package allowlist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestChecker(t *testing.T) {
	c := NewChecker([]string{" http://localhost:5173 ", "https://App.example.com/", ""}, zap.NewNop())

	tests := []struct {
		origin string
		want   bool
	}{
		{"http://localhost:5173", true},
		{"https://app.example.com", true},
		{"HTTPS://APP.EXAMPLE.COM", true},
		{"http://localhost:3000", false},
		{"https://evil.example.com", false},
		{"", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, c.IsAllowed(tt.origin), tt.origin)
	}
}

func TestChecker_Empty(t *testing.T) {
	assert.False(t, NewChecker(nil, nil).IsAllowed("http://localhost:5173"))
}
