package validation

import (
	"regexp"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

var (
	sqlInjectionPattern = regexp.MustCompile(`(?i)(union\s+select|insert\s+into|drop\s+table|delete\s+from|exec\s*\()`)
	xssPattern          = regexp.MustCompile(`(?i)(<script|<iframe|javascript:|onerror=|onload=|onclick=)`)
)

type Config struct {
	MaxTopicLength      int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

// Middleware rejects malformed or hostile evaluation requests before they
// reach the orchestrator and burn model tokens.
func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxTopicLength == 0 {
		cfg.MaxTopicLength = 5000
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() == "POST" || c.Method() == "PUT" {
			contentType := c.Get("Content-Type")
			if contentType != "" && !contentTypeAllowed(contentType, cfg.AllowedContentTypes) {
				return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
					"error": "Unsupported content type",
				})
			}
		}

		if c.Method() == "POST" && strings.Contains(c.Path(), "/api/v1/evaluate") {
			var req map[string]interface{}
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid JSON format",
				})
			}

			topic, ok := req["topic"].(string)
			if !ok || strings.TrimSpace(topic) == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Topic is required and must be a string",
				})
			}

			if len(topic) > cfg.MaxTopicLength {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Topic exceeds maximum length",
				})
			}

			if sqlInjectionPattern.MatchString(topic) || xssPattern.MatchString(topic) {
				cfg.Logger.Warn("Rejected suspicious topic content",
					zap.String("ip", c.IP()),
					zap.String("path", c.Path()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Invalid topic content",
				})
			}
		}

		return c.Next()
	}
}

func contentTypeAllowed(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(contentType, a) {
			return true
		}
	}
	return false
}
