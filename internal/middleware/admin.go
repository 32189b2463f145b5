package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const AdminWalletKey = "admin_wallet"

// AdminWallet requires a connected wallet on the session; the address is
// the authorization signal forwarded upstream. Whether it actually is an
// admin wallet only the backend knows — its 401 surfaces as "access
// restricted" in the handlers.
func AdminWallet() fiber.Handler {
	return func(c *fiber.Ctx) error {
		session := GetSession(c)
		if session == nil || session.Address() == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "access restricted",
			})
		}

		c.Locals(AdminWalletKey, session.Address())
		return c.Next()
	}
}

// GetAdminWallet returns the wallet address used for admin authorization.
func GetAdminWallet(c *fiber.Ctx) string {
	wallet, ok := c.Locals(AdminWalletKey).(string)
	if !ok {
		return ""
	}
	return wallet
}
