package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/trailsense/hazardwatch-backend/internal/config"
	"github.com/trailsense/hazardwatch-backend/internal/dto"
	"github.com/trailsense/hazardwatch-backend/internal/models"
	"gorm.io/gorm"
)

// ModeratorRequired guards the moderation and settings surfaces. A caller
// passes with:
// 1. the operator token header,
// 2. a user ID on the config moderator list, or
// 3. a moderator/admin role on their user row.
func ModeratorRequired(db *gorm.DB, cfg *config.Config) fiber.Handler {
	moderatorIDs := parseCSV(cfg.ModeratorIDs)

	return func(c *fiber.Ctx) error {
		if cfg.ModeratorToken != "" && c.Get("X-Moderator-Token") == cfg.ModeratorToken {
			return c.Next()
		}

		userID, err := CurrentUserID(c)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Error: true, Message: "Unauthorized",
			})
		}

		if contains(moderatorIDs, userID.String()) {
			return c.Next()
		}

		// The token's role claim avoids a DB hit for the common case; the
		// row check below covers tokens minted before a promotion.
		if role := ClaimRole(c); role == models.RoleModerator || role == models.RoleAdmin {
			return c.Next()
		}

		var user models.User
		if err := db.First(&user, "id = ?", userID).Error; err == nil && user.IsModerator() {
			return c.Next()
		}

		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
			Error: true, Message: "Moderator access required",
		})
	}
}

func parseCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func contains(list []string, val string) bool {
	for _, item := range list {
		if item == val {
			return true
		}
	}
	return false
}
