package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/pkg/jwt"
)

// RequireIssuer verifica que el token autorice operar con el RFC del emisor
// configurado. Debe usarse después de AuthMiddleware.
//
// Comportamiento:
//   - admin pasa siempre.
//   - 403 Forbidden → el RFC del token no es el del emisor.
//   - 401 → el token no trae RFC.
func RequireIssuer(issuerRFC string) fiber.Handler {
	issuerRFC = strings.ToUpper(strings.TrimSpace(issuerRFC))
	return func(c *fiber.Ctx) error {
		if GetRole(c) == jwt.RoleAdmin {
			return c.Next()
		}
		rfc := GetRfc(c)
		if rfc == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
				Code:    "UNAUTHORIZED",
				Message: "rfc no encontrado en el token",
			})
		}
		if rfc != issuerRFC {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{
				Code:    "ISSUER_MISMATCH",
				Message: "el token no autoriza operar con el emisor " + issuerRFC,
			})
		}
		return c.Next()
	}
}
