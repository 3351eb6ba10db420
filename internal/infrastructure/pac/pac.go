// Package pac implementa el timbrado y la cancelación de CFDI contra los
// Proveedores Autorizados de Certificación (PAC) soportados.
package pac

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

// Identificadores de proveedor.
const (
	ProviderTest = "test"
	ProviderA    = "a" // REST + XML (por defecto)
	ProviderB    = "b" // SOAP
	ProviderC    = "c" // REST + JSON
	ProviderD    = "d" // REST + formulario
)

// RESTTimeout tiempo máximo de las llamadas REST. Las llamadas SOAP no tienen
// límite propio; sólo las corta el contexto.
const RESTTimeout = 30 * time.Second

// Result resultado de un timbrado o una cancelación. Los rechazos del PAC y las
// fallas de red se expresan aquí, no como error.
type Result struct {
	OK      bool
	Message string
}

// CancelRequest datos adicionales de la solicitud de cancelación (CFDI 4.0).
type CancelRequest struct {
	Motivo           string // 01, 02, 03, 04
	FolioSustitucion string // obligatorio con motivo 01
}

// Provider un PAC concreto.
type Provider interface {
	ID() string
	// Stamp envía el XML sellado y devuelve el XML timbrado.
	Stamp(ctx context.Context, c *cfdi.Comprobante) (string, error)
	// Cancel solicita la cancelación del comprobante timbrado.
	Cancel(ctx context.Context, c *cfdi.Comprobante, req CancelRequest) (Result, error)
}

// Endpoint URLs y credenciales de un PAC en un ambiente.
type Endpoint struct {
	StampURL    string
	CancelURL   string
	RegisterURL string
	User        string
	Password    string
	Contract    string
}

// Credentials configuración de un PAC para producción y pruebas. Rfc es el
// RfcProvCertif con el que el PAC firma sus timbres; se usa para enrutar
// cancelaciones.
type Credentials struct {
	Production Endpoint
	Test       Endpoint
	Rfc        string
}

// For elige el endpoint según el modo del comprobante.
func (c Credentials) For(test bool) Endpoint {
	if test {
		return c.Test
	}
	return c.Production
}

// RejectionError rechazo estructurado del PAC. Body conserva el diagnóstico
// crudo para el operador.
type RejectionError struct {
	Provider string
	Status   int
	Body     string
}

func (e *RejectionError) Error() string {
	return e.Body
}

// TransportError falla de red o de protocolo antes de obtener respuesta útil.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("error de comunicación con el PAC %s: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewRESTClient cliente HTTP con el timeout de las llamadas REST.
func NewRESTClient() *http.Client {
	return &http.Client{Timeout: RESTTimeout}
}

// NewProviders construye los PAC configurados en creds (por ID) más el de pruebas,
// que siempre está disponible. Los REST comparten un cliente con timeout.
func NewProviders(creds map[string]Credentials, m *metrics.PAC) []Provider {
	rest := NewRESTClient()
	out := []Provider{NewSandbox()}
	for id, cr := range creds {
		switch id {
		case ProviderA:
			out = append(out, NewRestXML(cr, rest, m))
		case ProviderB:
			out = append(out, NewSOAP(cr, nil, m))
		case ProviderC:
			out = append(out, NewRestJSON(cr, rest, m))
		case ProviderD:
			out = append(out, NewRestForm(cr, rest, m))
		}
	}
	return out
}

// Routes mapa RfcProvCertif → ID para el CancelDispatcher.
func Routes(creds map[string]Credentials) map[string]string {
	out := make(map[string]string, len(creds))
	for id, cr := range creds {
		if cr.Rfc != "" {
			out[cr.Rfc] = id
		}
	}
	out[TestRfcProvCertif] = ProviderTest
	return out
}
