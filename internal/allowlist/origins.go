package allowlist

import (
	"strings"

	"go.uber.org/zap"
)

// Checker decides whether a browser origin may call the API with credentials
type Checker struct {
	origins []string
	logger  *zap.Logger
}

// NewChecker creates a new origin checker
func NewChecker(origins []string, logger *zap.Logger) *Checker {
	normalized := make([]string, 0, len(origins))
	for _, origin := range origins {
		if o := normalize(origin); o != "" {
			normalized = append(normalized, o)
		}
	}

	if len(normalized) > 0 && logger != nil {
		logger.Info("Initialized CORS allowlist", zap.Strings("origins", normalized))
	}

	return &Checker{
		origins: normalized,
		logger:  logger,
	}
}

func normalize(origin string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(origin)), "/")
}

// IsAllowed checks if the origin is in the allowlist
func (c *Checker) IsAllowed(origin string) bool {
	if len(c.origins) == 0 || origin == "" {
		return false
	}

	origin = normalize(origin)
	for _, allowed := range c.origins {
		if allowed == origin {
			return true
		}
	}

	if c.logger != nil {
		c.logger.Debug("Origin not allowed", zap.String("origin", origin))
	}
	return false
}
