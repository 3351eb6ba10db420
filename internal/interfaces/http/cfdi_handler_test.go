package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/jhoicas/cfdi-timbrado/docs"
	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
	apphttp "github.com/jhoicas/cfdi-timbrado/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/cfdi-timbrado/pkg/jwt"
)

const testUUID = "6F8A1B2C-3D4E-4F50-8A9B-0C1D2E3F4A5B"

// fakeBilling implementa los cuatro contratos del handler.
type fakeBilling struct {
	createResp *dto.CFDIResponse
	createErr  error
	getErr     error
	cancelErr  error
	pdfErr     error
	lastFilter repository.InvoiceFilter
	lastPage   dto.PageRequest
	lastCancel dto.CancelCFDIRequest
}

func (f *fakeBilling) CreateCFDI(_ context.Context, _ dto.CreateCFDIRequest) (*dto.CFDIResponse, error) {
	return f.createResp, f.createErr
}

func (f *fakeBilling) GetCFDI(_ context.Context, uuid string) (*dto.CFDIResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &dto.CFDIResponse{UUID: uuid, State: "STAMPED", Total: decimal.NewFromInt(116)}, nil
}

func (f *fakeBilling) GetXML(_ context.Context, uuid string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return `<cfdi:Comprobante Version="4.0"/>`, nil
}

func (f *fakeBilling) ListCFDI(_ context.Context, filter repository.InvoiceFilter, page dto.PageRequest) (*dto.CFDIListResponse, error) {
	f.lastFilter, f.lastPage = filter, page
	return &dto.CFDIListResponse{Items: []dto.CFDIResponse{{UUID: testUUID}}, Page: dto.PageResponse{Limit: page.Limit}}, nil
}

func (f *fakeBilling) CancelCFDI(_ context.Context, uuid string, in dto.CancelCFDIRequest) (*dto.CancelCFDIResponse, error) {
	f.lastCancel = in
	if f.cancelErr != nil {
		return nil, f.cancelErr
	}
	return &dto.CancelCFDIResponse{UUID: uuid, OK: true, Message: "cancelado", State: "CANCELLED"}, nil
}

func (f *fakeBilling) DownloadPDF(_ context.Context, uuid string) ([]byte, string, error) {
	if f.pdfErr != nil {
		return nil, "", f.pdfErr
	}
	return []byte("%PDF-1.4"), "cfdi_" + uuid + ".pdf", nil
}

func newRouterApp(f *fakeBilling, reg *prometheus.Registry) *fiber.App {
	app := fiber.New()
	deps := apphttp.RouterDeps{
		CreateCFDI:  f,
		Query:       f,
		Cancel:      f,
		PDF:         f,
		IssuerRFC:   testRfc,
		JWTSecret:   testJWTSecret,
		ServiceName: "cfdi-timbrado",
	}
	if reg != nil {
		deps.Gatherer = reg
	}
	apphttp.Router(app, deps)
	return app
}

func call(t *testing.T, app *fiber.App, method, path, role, body string) *http.Response {
	t.Helper()
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("Authorization", tokenForRole(t, role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) dto.ErrorResponse {
	t.Helper()
	var e dto.ErrorResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&e))
	return e
}

const createBody = `{"receptor":{"rfc":"XAXX010101000","nombre":"PUBLICO EN GENERAL","uso_cfdi":"S01"},
	"conceptos":[{"clave_prod_serv":"01010101","clave_unidad":"H87","cantidad":"1","descripcion":"x","valor_unitario":"100"}]}`

// ── POST /api/cfdi ────────────────────────────────────────────────────────────

func TestCreate_Timbrado_Retorna201(t *testing.T) {
	f := &fakeBilling{createResp: &dto.CFDIResponse{UUID: testUUID, State: "STAMPED", Total: decimal.NewFromInt(116)}}
	resp := call(t, newRouterApp(f, nil), http.MethodPost, "/api/cfdi", pkgjwt.RoleEmisor, createBody)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	var out dto.CFDIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, testUUID, out.UUID)
	assert.True(t, out.Total.Equal(decimal.NewFromInt(116)))
}

func TestCreate_RechazoPAC_Retorna200ConEstado(t *testing.T) {
	f := &fakeBilling{createResp: &dto.CFDIResponse{State: "FAILED", Message: "CFDI33118"}}
	resp := call(t, newRouterApp(f, nil), http.MethodPost, "/api/cfdi", pkgjwt.RoleEmisor, createBody)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode, "un rechazo del PAC no es error HTTP")
	var out dto.CFDIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, "FAILED", out.State)
	assert.Equal(t, "CFDI33118", out.Message)
}

func TestCreate_MapeoDeErrores(t *testing.T) {
	casos := []struct {
		nombre string
		err    error
		status int
		code   string
	}{
		{"validación", fmt.Errorf("%w: receptor", domain.ErrInvalidInput), http.StatusBadRequest, "VALIDATION"},
		{"pac de pruebas", domain.ErrTestProviderOnProduction, http.StatusUnprocessableEntity, "TEST_PROVIDER"},
		{"sello", fmt.Errorf("sellar comprobante: %w", &sello.SigningError{Diagnostic: "sin llave"}), http.StatusUnprocessableEntity, "SIGNING_FAILED"},
		{"duplicado", fmt.Errorf("%w: uuid", domain.ErrDuplicate), http.StatusConflict, "CONFLICT"},
		{"interno", fmt.Errorf("conexión perdida"), http.StatusInternalServerError, "INTERNAL"},
	}
	for _, tc := range casos {
		t.Run(tc.nombre, func(t *testing.T) {
			f := &fakeBilling{createErr: tc.err}
			resp := call(t, newRouterApp(f, nil), http.MethodPost, "/api/cfdi", pkgjwt.RoleEmisor, createBody)
			defer resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Equal(t, tc.code, decodeError(t, resp).Code)
		})
	}
}

func TestCreate_CuerpoInvalido_Retorna400(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodPost, "/api/cfdi", pkgjwt.RoleEmisor, "{no-json")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_BODY", decodeError(t, resp).Code)
}

func TestCreate_RolConsulta_Retorna403(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodPost, "/api/cfdi", pkgjwt.RoleConsulta, createBody)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestCreate_SinToken_Retorna401(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodPost, "/api/cfdi", "", createBody)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// ── Consultas ─────────────────────────────────────────────────────────────────

func TestList_EmisorSeLimitaASuRFC(t *testing.T) {
	f := &fakeBilling{}
	resp := call(t, newRouterApp(f, nil), http.MethodGet, "/api/cfdi?rfc_emisor=OTRO010101AAA&state=stamped&limit=5", pkgjwt.RoleEmisor, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, testRfc, f.lastFilter.RfcEmisor, "el filtro de emisor se fija al RFC del token")
	assert.Equal(t, "STAMPED", string(f.lastFilter.State))
	assert.Equal(t, 5, f.lastPage.Limit)
}

func TestList_AdminFiltraLibremente(t *testing.T) {
	f := &fakeBilling{}
	resp := call(t, newRouterApp(f, nil), http.MethodGet, "/api/cfdi?rfc_emisor=OTRO010101AAA", pkgjwt.RoleAdmin, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "OTRO010101AAA", f.lastFilter.RfcEmisor)
}

func TestGetByUUID(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodGet, "/api/cfdi/"+testUUID, pkgjwt.RoleConsulta, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var out dto.CFDIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.Equal(t, testUUID, out.UUID)
}

func TestGetByUUID_NoExiste_Retorna404(t *testing.T) {
	f := &fakeBilling{getErr: domain.ErrNotFound}
	resp := call(t, newRouterApp(f, nil), http.MethodGet, "/api/cfdi/"+testUUID, pkgjwt.RoleConsulta, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Code)
}

func TestGetXML_ContentTypeYAdjunto(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodGet, "/api/cfdi/"+testUUID+"/xml?download=true", pkgjwt.RoleConsulta, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Type"), "application/xml")
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cfdi_"+testUUID+".xml")
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "cfdi:Comprobante")
}

func TestGetPDF(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodGet, "/api/cfdi/"+testUUID+"/pdf", pkgjwt.RoleConsulta, "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "cfdi_"+testUUID+".pdf")
}

func TestGetPDF_SinTimbre_Retorna400(t *testing.T) {
	f := &fakeBilling{pdfErr: fmt.Errorf("%w: estado SIGNED", domain.ErrInvalidInput)}
	resp := call(t, newRouterApp(f, nil), http.MethodGet, "/api/cfdi/"+testUUID+"/pdf", pkgjwt.RoleConsulta, "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// ── Cancelación ───────────────────────────────────────────────────────────────

func TestCancel_OK(t *testing.T) {
	f := &fakeBilling{}
	resp := call(t, newRouterApp(f, nil), http.MethodPost, "/api/cfdi/"+testUUID+"/cancel", pkgjwt.RoleEmisor,
		`{"motivo":"01","folio_sustitucion":"`+testUUID+`"}`)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "01", f.lastCancel.Motivo)
	assert.Equal(t, testUUID, f.lastCancel.FolioSustitucion)
	var out dto.CancelCFDIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.OK)
}

func TestCancel_YaCancelado_Retorna409(t *testing.T) {
	f := &fakeBilling{cancelErr: fmt.Errorf("%w: ya cancelado", domain.ErrConflict)}
	resp := call(t, newRouterApp(f, nil), http.MethodPost, "/api/cfdi/"+testUUID+"/cancel", pkgjwt.RoleEmisor, `{"motivo":"02"}`)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

// ── Rutas de servicio ─────────────────────────────────────────────────────────

func TestHealth(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodGet, "/health", "", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestMetrics_ExponeRegistro(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPAC(reg)
	m.RecordStamp("test", true)

	resp := call(t, newRouterApp(&fakeBilling{}, reg), http.MethodGet, "/metrics", "", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "cfdi_pac_stamp_requests_total")
}

func TestMetrics_SinRegistro_NoSeMonta(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodGet, "/metrics", "", "")
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestDocs_DocumentoOpenAPI(t *testing.T) {
	resp := call(t, newRouterApp(&fakeBilling{}, nil), http.MethodGet, "/docs/doc.json", "", "")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "/api/cfdi/{uuid}/cancel")
}
