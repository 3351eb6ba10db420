package pac_test

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
)

// creds apunta los endpoints de pruebas y producción al servidor de prueba.
func creds(base string) pac.Credentials {
	ep := pac.Endpoint{
		StampURL:    base + "/timbrar",
		CancelURL:   base + "/cancelar",
		RegisterURL: base + "/registro",
		User:        "usuario",
		Password:    "secreto",
		Contract:    "CONTRATO-1",
	}
	return pac.Credentials{Production: ep, Test: ep, Rfc: stampRfcPAC}
}

func stampWith(t *testing.T, p pac.Provider, m *metrics.PAC) (*cfdi.Comprobante, pac.Result) {
	t.Helper()
	c := signed(t)
	d := pac.NewDispatcher(zerolog.Nop(), m, pac.Hooks{}, p)
	res, err := d.Stamp(context.Background(), c, p.ID())
	require.NoError(t, err)
	return c, res
}

// ── PAC A: REST + XML ─────────────────────────────────────────────────────────

func TestRestXML_TimbraConAutenticacionBasic(t *testing.T) {
	fixture := signed(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/timbrar", r.URL.Path)
		assert.Equal(t, "CONTRATO-1", r.URL.Query().Get("contrato"))
		assert.Equal(t, "REGRESAR_CON_ERROR_307_XML", r.URL.Query().Get("opciones"))
		assert.Equal(t, "application/xml", r.Header.Get("Content-Type"))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "usuario", user)
		assert.Equal(t, "secreto", pass)

		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, fixture.XML, string(body), "el cuerpo es el XML sellado sin modificar")
		fmt.Fprintf(w, "<respuesta><codigo>200</codigo><xmlBase64>%s</xmlBase64></respuesta>", b64(stamped(fixture)))
	}))
	defer srv.Close()

	reg := prometheus.NewRegistry()
	m := metrics.NewPAC(reg)
	c, res := stampWith(t, pac.NewRestXML(creds(srv.URL), srv.Client(), m), m)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, cfdi.StateStamped, c.State)
	assert.Equal(t, stampUUID, c.Timbre.UUID)
	assert.Equal(t, stamped(fixture), c.XML)
	assert.False(t, c.Timing.StampStart.IsZero())
	assert.False(t, c.Timing.StampEnd.Before(c.Timing.StampStart))
	assert.False(t, c.Timing.ConnectStart.IsZero(), "se registra el inicio de la conexión")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(pac.ProviderA, "ok")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestRestXML_Codigo307SeAceptaConCualquierStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c := &cfdi.Comprobante{XML: string(body), Sello: "c2VsbG8=ABCDEFGH12345678"}
		w.WriteHeader(http.StatusConflict)
		fmt.Fprintf(w, "<error><codigo>307</codigo><xmlBase64>\n%s\n</xmlBase64></error>", b64(stamped(c)))
	}))
	defer srv.Close()

	c, res := stampWith(t, pac.NewRestXML(creds(srv.URL), srv.Client(), nil), nil)
	assert.True(t, res.OK, res.Message)
	assert.Equal(t, stampUUID, c.Timbre.UUID)
}

func TestRestXML_RechazoConservaRespuestaCruda(t *testing.T) {
	const cuerpo = "<error><codigo>301</codigo><mensaje>XML mal formado</mensaje></error>"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, cuerpo)
	}))
	defer srv.Close()

	c, res := stampWith(t, pac.NewRestXML(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Equal(t, cuerpo, res.Message)
	assert.Equal(t, cuerpo, c.StatusMessage)
	assert.Equal(t, cfdi.StateFailed, c.State)
}

func TestRestXML_Status200SinXMLEsFalla(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<respuesta>procesando</respuesta>")
	}))
	defer srv.Close()

	_, res := stampWith(t, pac.NewRestXML(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Equal(t, "<respuesta>procesando</respuesta>", res.Message)
}

func TestRestXML_FallaDeRedNoPropagaError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	c, res := stampWith(t, pac.NewRestXML(creds(url), nil, nil), nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "error de comunicación con el PAC a")
	assert.Equal(t, cfdi.StateFailed, c.State)
}

func TestRestXML_UsaURLSegunModo(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	cr := creds(srv.URL)
	cr.Production.StampURL = srv.URL + "/prod"
	cr.Test.StampURL = srv.URL + "/pruebas"
	p := pac.NewRestXML(cr, srv.Client(), nil)

	c := signed(t)
	_, err := p.Stamp(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, "/pruebas", path)

	c.Test = false
	_, err = p.Stamp(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, "/prod", path)
}

// ── PAC B: SOAP ───────────────────────────────────────────────────────────────

func soapResponse(inner string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap:Envelope xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"><soap:Body>` +
		inner + `</soap:Body></soap:Envelope>`
}

func xmlEscape(s string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")
	return r.Replace(s)
}

func TestSOAP_RegistraSocioYReintentaUnaVez(t *testing.T) {
	var stamps, adds int32
	fixture := signed(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		switch r.Header.Get("SOAPAction") {
		case "add":
			atomic.AddInt32(&adds, 1)
			assert.Equal(t, "/registro", r.URL.Path)
			assert.Contains(t, string(body), "<taxpayer_id>AAA010101AAA</taxpayer_id>")
			io.WriteString(w, soapResponse(`<addResponse><addResult><success>true</success><message>ok</message></addResult></addResponse>`))
		case "stamp":
			n := atomic.AddInt32(&stamps, 1)
			assert.Contains(t, string(body), "<username>usuario</username>")
			if n == 1 {
				io.WriteString(w, soapResponse(`<stampResponse><stampResult><Incidencias><Incidencia>`+
					`<CodigoError>702</CodigoError><MensajeIncidencia>No se encontro el RFC del emisor en la cuenta de Socio de Negocios</MensajeIncidencia>`+
					`</Incidencia></Incidencias></stampResult></stampResponse>`))
				return
			}
			io.WriteString(w, soapResponse(`<stampResponse><stampResult><xml>`+xmlEscape(stamped(fixture))+`</xml></stampResult></stampResponse>`))
		default:
			w.WriteHeader(http.StatusBadRequest)
		}
	}))
	defer srv.Close()

	c, res := stampWith(t, pac.NewSOAP(creds(srv.URL), srv.Client(), nil), nil)

	require.True(t, res.OK, res.Message)
	assert.Equal(t, int32(2), atomic.LoadInt32(&stamps))
	assert.Equal(t, int32(1), atomic.LoadInt32(&adds))
	assert.Equal(t, stampUUID, c.Timbre.UUID)
}

func TestSOAP_RechazoSinRegistro(t *testing.T) {
	var adds int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("SOAPAction") == "add" {
			atomic.AddInt32(&adds, 1)
		}
		io.WriteString(w, soapResponse(`<stampResponse><stampResult><CodEstatus>Comprobante mal formado</CodEstatus></stampResult></stampResponse>`))
	}))
	defer srv.Close()

	_, res := stampWith(t, pac.NewSOAP(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Equal(t, "Comprobante mal formado", res.Message)
	assert.Zero(t, atomic.LoadInt32(&adds))
}

func TestSOAP_FaultSeReportaComoFalla(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, soapResponse(`<soap:Fault><faultcode>soap:Server</faultcode><faultstring>Credenciales inválidas</faultstring></soap:Fault>`))
	}))
	defer srv.Close()

	_, res := stampWith(t, pac.NewSOAP(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Equal(t, "Credenciales inválidas", res.Message)
}

func TestSOAP_RegistroFallidoNoReintenta(t *testing.T) {
	var stamps int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("SOAPAction") == "add" {
			io.WriteString(w, soapResponse(`<addResponse><addResult><success>false</success><message>cuenta sin saldo</message></addResult></addResponse>`))
			return
		}
		atomic.AddInt32(&stamps, 1)
		io.WriteString(w, soapResponse(`<stampResponse><stampResult><CodEstatus>Socio de Negocios no válido</CodEstatus></stampResult></stampResponse>`))
	}))
	defer srv.Close()

	_, res := stampWith(t, pac.NewSOAP(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "cuenta sin saldo")
	assert.Equal(t, int32(1), atomic.LoadInt32(&stamps))
}

// ── PAC C: REST + JSON ────────────────────────────────────────────────────────

func TestRestJSON_EstatusComoTextoONumero(t *testing.T) {
	for _, estatus := range []string{`"10"`, `10`} {
		t.Run(estatus, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				var req struct {
					Usuario  string `json:"usuario"`
					Password string `json:"password"`
					CFDI     []int  `json:"cfdi"`
				}
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				sum := md5.Sum([]byte("secreto"))
				assert.Equal(t, hex.EncodeToString(sum[:]), req.Password)
				assert.Equal(t, "usuario", req.Usuario)

				raw := make([]byte, len(req.CFDI))
				for i, b := range req.CFDI {
					raw[i] = byte(b)
				}
				c := &cfdi.Comprobante{XML: string(raw), Sello: "c2VsbG8=ABCDEFGH12345678"}
				out, _ := json.Marshal(stamped(c))
				fmt.Fprintf(w, `{"estatus": %s, "cfdi": %s}`, estatus, out)
			}))
			defer srv.Close()

			c, res := stampWith(t, pac.NewRestJSON(creds(srv.URL), srv.Client(), nil), nil)
			require.True(t, res.OK, res.Message)
			assert.Equal(t, stampUUID, c.Timbre.UUID)
			assert.Contains(t, c.XML, "<cfdi:Concepto ")
		})
	}
}

func TestRestJSON_EstatusDistintoEsRechazo(t *testing.T) {
	const cuerpo = `{"estatus":"301","mensaje":"Sello inválido"}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, cuerpo)
	}))
	defer srv.Close()

	_, res := stampWith(t, pac.NewRestJSON(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Equal(t, cuerpo, res.Message)
}

// ── PAC D: formulario ─────────────────────────────────────────────────────────

func TestRestForm_TimbraConXMLBase64(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "usuario", r.PostForm.Get("user"))
		assert.Equal(t, "secreto", r.PostForm.Get("password"))
		xml, err := base64.StdEncoding.DecodeString(r.PostForm.Get("xml"))
		assert.NoError(t, err)
		c := &cfdi.Comprobante{XML: string(xml), Sello: "c2VsbG8=ABCDEFGH12345678"}
		json.NewEncoder(w).Encode(map[string]string{"xml": b64(stamped(c))})
	}))
	defer srv.Close()

	c, res := stampWith(t, pac.NewRestForm(creds(srv.URL), srv.Client(), nil), nil)
	require.True(t, res.OK, res.Message)
	assert.Equal(t, stampUUID, c.Timbre.UUID)
}

func TestRestForm_SinCampoXMLEsRechazo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"error","message":"usuario bloqueado"}`)
	}))
	defer srv.Close()

	_, res := stampWith(t, pac.NewRestForm(creds(srv.URL), srv.Client(), nil), nil)
	assert.False(t, res.OK)
	assert.Contains(t, res.Message, "usuario bloqueado")
}
