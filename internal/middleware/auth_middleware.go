package middleware

import (
	"strings"

	"go-pos-inventory/internal/events"
	"go-pos-inventory/internal/service"

	"github.com/gofiber/fiber/v2"
)

const (
	localUserID         = "user_id"
	localUserEmail      = "user_email"
	localUserName       = "user_name"
	localUserPrivileges = "user_privileges"
)

// RequireAuth validates the bearer token against the current session and
// stores the user in the request locals.
func RequireAuth(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization token"})
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization format. Use: Bearer <token>"})
		}

		user, err := auth.Authenticate(c.UserContext(), parts[1])
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": err.Error()})
		}

		c.Locals(localUserID, user.ID.String())
		c.Locals(localUserEmail, user.Email)
		c.Locals(localUserName, user.FullName)
		c.Locals(localUserPrivileges, user.GetPrivilegeCodes())

		return c.Next()
	}
}

// RequirePrivilege checks if the authenticated user has the required privilege
func RequirePrivilege(requiredPrivilege string) fiber.Handler {
	return RequireAnyPrivilege(requiredPrivilege)
}

// RequireAnyPrivilege checks if the user has at least one of the specified privileges
func RequireAnyPrivilege(requiredPrivileges ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		privileges, ok := c.Locals(localUserPrivileges).([]string)
		if !ok {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "No privileges found"})
		}

		for _, userPriv := range privileges {
			for _, reqPriv := range requiredPrivileges {
				if userPriv == reqPriv {
					return c.Next()
				}
			}
		}

		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
			"error": "Forbidden: requires one of " + strings.Join(requiredPrivileges, ", ") + " privileges",
		})
	}
}

// Actor returns the signed-in user as recorded on events and audit fields.
func Actor(c *fiber.Ctx) events.Actor {
	a := events.Actor{ID: "system", Name: "Unknown"}
	if v, ok := c.Locals(localUserID).(string); ok {
		a.ID = v
	}
	if v, ok := c.Locals(localUserName).(string); ok {
		a.Name = v
	}
	if v, ok := c.Locals(localUserEmail).(string); ok {
		a.Email = v
	}
	return a
}
