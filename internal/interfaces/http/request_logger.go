package http

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cfdi-timbrado/pkg/logger"
)

// RequestLogger registra método, ruta, status, duración y cliente de cada petición.
func RequestLogger(log *logger.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		status := c.Response().StatusCode()
		if err != nil {
			status = fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				status = fe.Code
			}
		}
		log.LogRequest(c.Method(), c.Path(), status, time.Since(start), GetClientID(c))
		return err
	}
}
