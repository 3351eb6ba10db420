package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apphttp "github.com/jhoicas/cfdi-timbrado/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/cfdi-timbrado/pkg/jwt"
)

func buildIssuerApp() *fiber.App {
	app := fiber.New()
	app.Post("/stamp",
		apphttp.AuthMiddleware(testJWTSecret),
		apphttp.RequireIssuer(testRfc),
		func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusNoContent) },
	)
	return app
}

func postStamp(t *testing.T, app *fiber.App, rfc, role string) int {
	t.Helper()
	tok, err := pkgjwt.Generate(testJWTSecret, testClientID, rfc, role, testIssuer, testExpMin)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/stamp", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

// ── RequireIssuer ─────────────────────────────────────────────────────────────

func TestRequireIssuer_MismoRFC_Pasa(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, postStamp(t, buildIssuerApp(), testRfc, pkgjwt.RoleEmisor))
}

func TestRequireIssuer_RFCMinusculas_Pasa(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, postStamp(t, buildIssuerApp(), "eku9003173c9", pkgjwt.RoleEmisor),
		"el RFC del token se normaliza a mayúsculas")
}

func TestRequireIssuer_OtroRFC_Retorna403(t *testing.T) {
	assert.Equal(t, http.StatusForbidden, postStamp(t, buildIssuerApp(), "XAXX010101000", pkgjwt.RoleEmisor))
}

func TestRequireIssuer_SinRFC_Retorna401(t *testing.T) {
	assert.Equal(t, http.StatusUnauthorized, postStamp(t, buildIssuerApp(), "", pkgjwt.RoleEmisor))
}

func TestRequireIssuer_AdminSinRFC_Pasa(t *testing.T) {
	assert.Equal(t, http.StatusNoContent, postStamp(t, buildIssuerApp(), "", pkgjwt.RoleAdmin))
}
