package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggo/swag"

	"github.com/jhoicas/cfdi-timbrado/pkg/jwt"
	"github.com/jhoicas/cfdi-timbrado/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	CreateCFDI  CFDICreator
	Query       CFDIQuerier
	Cancel      CFDICanceller
	PDF         CFDIPDFRenderer
	IssuerRFC   string
	JWTSecret   string
	ServiceName string
	Gatherer    prometheus.Gatherer // nil = sin /metrics
	Logger      *logger.Logger      // nil = sin log de peticiones
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	if deps.Logger != nil {
		app.Use(RequestLogger(deps.Logger))
	}
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": deps.ServiceName})
	})
	if deps.Gatherer != nil {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(deps.Gatherer, promhttp.HandlerOpts{})))
	}
	// Documento OpenAPI registrado por el paquete docs.
	app.Get("/docs/doc.json", func(c *fiber.Ctx) error {
		doc, err := swag.ReadDoc()
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
		}
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.SendString(doc)
	})

	api := app.Group("/api")

	// Rutas protegidas (requieren Bearer Token)
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	readers := RequireRole(jwt.RoleAdmin, jwt.RoleEmisor, jwt.RoleConsulta)
	writers := RequireRole(jwt.RoleAdmin, jwt.RoleEmisor)
	issuer := RequireIssuer(deps.IssuerRFC)

	// CFDI (protegido)
	cfdiGroup := protected.Group("/cfdi")
	h := NewCFDIHandler(deps.CreateCFDI, deps.Query, deps.Cancel, deps.PDF)
	cfdiGroup.Post("/", writers, issuer, h.Create)
	cfdiGroup.Get("/", readers, h.List)
	cfdiGroup.Get("/:uuid", readers, h.GetByUUID)
	cfdiGroup.Get("/:uuid/xml", readers, h.GetXML)
	cfdiGroup.Get("/:uuid/pdf", readers, h.GetPDF)
	cfdiGroup.Post("/:uuid/cancel", writers, issuer, h.Cancel)
}
