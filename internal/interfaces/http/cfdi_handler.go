package http

import (
	"context"
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
	"github.com/jhoicas/cfdi-timbrado/pkg/jwt"
)

// Contratos mínimos que necesita el handler. Los implementan los casos de uso de billing.
type (
	CFDICreator interface {
		CreateCFDI(ctx context.Context, in dto.CreateCFDIRequest) (*dto.CFDIResponse, error)
	}
	CFDIQuerier interface {
		GetCFDI(ctx context.Context, uuid string) (*dto.CFDIResponse, error)
		GetXML(ctx context.Context, uuid string) (string, error)
		ListCFDI(ctx context.Context, f repository.InvoiceFilter, page dto.PageRequest) (*dto.CFDIListResponse, error)
	}
	CFDICanceller interface {
		CancelCFDI(ctx context.Context, uuid string, in dto.CancelCFDIRequest) (*dto.CancelCFDIResponse, error)
	}
	CFDIPDFRenderer interface {
		DownloadPDF(ctx context.Context, uuid string) ([]byte, string, error)
	}
)

// CFDIHandler maneja las peticiones HTTP de timbrado, consulta y cancelación (protegido).
type CFDIHandler struct {
	create CFDICreator
	query  CFDIQuerier
	cancel CFDICanceller
	pdf    CFDIPDFRenderer
}

// NewCFDIHandler construye el handler.
func NewCFDIHandler(create CFDICreator, query CFDIQuerier, cancel CFDICanceller, pdf CFDIPDFRenderer) *CFDIHandler {
	return &CFDIHandler{create: create, query: query, cancel: cancel, pdf: pdf}
}

// Create godoc
// @Summary      Sellar y timbrar un comprobante
// @Tags         cfdi
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCFDIRequest  true  "comprobante"
// @Success      201   {object}  dto.CFDIResponse
// @Success      200   {object}  dto.CFDIResponse  "rechazo del PAC (state FAILED)"
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/cfdi [post]
func (h *CFDIHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCFDIRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.create.CreateCFDI(c.Context(), in)
	if err != nil {
		return writeError(c, err)
	}
	if out.State != string(cfdi.StateStamped) {
		return c.Status(fiber.StatusOK).JSON(out)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// List godoc
// @Summary      Listar comprobantes
// @Tags         cfdi
// @Produce      json
// @Param        rfc_emisor    query  string  false  "RFC del emisor"
// @Param        rfc_receptor  query  string  false  "RFC del receptor"
// @Param        state         query  string  false  "estado"
// @Param        limit         query  int     false  "límite"
// @Param        offset        query  int     false  "desplazamiento"
// @Success      200  {object}  dto.CFDIListResponse
// @Router       /api/cfdi [get]
func (h *CFDIHandler) List(c *fiber.Ctx) error {
	var page dto.PageRequest
	if err := c.QueryParser(&page); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "paginación inválida"})
	}
	f := repository.InvoiceFilter{
		RfcEmisor:   c.Query("rfc_emisor"),
		RfcReceptor: c.Query("rfc_receptor"),
		State:       cfdi.State(strings.ToUpper(c.Query("state"))),
	}
	// Fuera de admin sólo se listan los comprobantes del RFC del token.
	if GetRole(c) != jwt.RoleAdmin && GetRfc(c) != "" {
		f.RfcEmisor = GetRfc(c)
	}
	out, err := h.query.ListCFDI(c.Context(), f, page)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetByUUID godoc
// @Summary      Consultar un comprobante
// @Tags         cfdi
// @Produce      json
// @Param        uuid  path  string  true  "UUID del timbre"
// @Success      200   {object}  dto.CFDIResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/cfdi/{uuid} [get]
func (h *CFDIHandler) GetByUUID(c *fiber.Ctx) error {
	out, err := h.query.GetCFDI(c.Context(), c.Params("uuid"))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// GetXML godoc
// @Summary      Descargar el XML timbrado
// @Tags         cfdi
// @Produce      xml
// @Param        uuid  path  string  true  "UUID del timbre"
// @Success      200
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/cfdi/{uuid}/xml [get]
func (h *CFDIHandler) GetXML(c *fiber.Ctx) error {
	uuid := c.Params("uuid")
	xml, err := h.query.GetXML(c.Context(), uuid)
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/xml; charset=utf-8")
	if c.QueryBool("download") {
		c.Attachment("cfdi_" + strings.ToUpper(uuid) + ".xml")
	}
	return c.SendString(xml)
}

// GetPDF godoc
// @Summary      Descargar la representación impresa
// @Tags         cfdi
// @Produce      application/pdf
// @Param        uuid  path  string  true  "UUID del timbre"
// @Success      200
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/cfdi/{uuid}/pdf [get]
func (h *CFDIHandler) GetPDF(c *fiber.Ctx) error {
	data, filename, err := h.pdf.DownloadPDF(c.Context(), c.Params("uuid"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Attachment(filename)
	return c.Send(data)
}

// Cancel godoc
// @Summary      Solicitar la cancelación
// @Tags         cfdi
// @Accept       json
// @Produce      json
// @Param        uuid  path  string                 true  "UUID del timbre"
// @Param        body  body  dto.CancelCFDIRequest  true  "motivo y folio de sustitución"
// @Success      200   {object}  dto.CancelCFDIResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/cfdi/{uuid}/cancel [post]
func (h *CFDIHandler) Cancel(c *fiber.Ctx) error {
	var in dto.CancelCFDIRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	out, err := h.cancel.CancelCFDI(c.Context(), c.Params("uuid"), in)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// writeError traduce los errores de dominio a la respuesta HTTP.
func writeError(c *fiber.Ctx, err error) error {
	var signErr *sello.SigningError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "comprobante no encontrado"})
	case errors.Is(err, domain.ErrConflict), errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()})
	case errors.Is(err, domain.ErrTestProviderOnProduction):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "TEST_PROVIDER", Message: err.Error()})
	case errors.As(err, &signErr):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(dto.ErrorResponse{Code: "SIGNING_FAILED", Message: signErr.Diagnostic})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
}
