package pac

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-timbrado/pkg/xmlquery"
)

// codigoYaTimbrado respuesta del PAC A cuando el comprobante ya estaba timbrado;
// el XML viene adjunto de todos modos.
const codigoYaTimbrado = "<codigo>307</codigo>"

// RestXML PAC A: REST con cuerpo XML y autenticación Basic.
type RestXML struct {
	creds Credentials
	http  transport
}

// NewRestXML crea el cliente del PAC A. client nil usa el cliente REST por defecto.
func NewRestXML(creds Credentials, client *http.Client, m *metrics.PAC) *RestXML {
	return &RestXML{creds: creds, http: newTransport(ProviderA, client, m)}
}

func (p *RestXML) ID() string { return ProviderA }

// Stamp POST <url>?contrato=..&opciones=REGRESAR_CON_ERROR_307_XML con el XML crudo.
func (p *RestXML) Stamp(ctx context.Context, c *cfdi.Comprobante) (string, error) {
	ep := p.creds.For(c.Test)
	q := url.Values{
		"contrato": {ep.Contract},
		"opciones": {"REGRESAR_CON_ERROR_307_XML"},
	}
	req, err := newRequest(ctx, http.MethodPost, ep.StampURL+"?"+q.Encode(), "application/xml", strings.NewReader(c.XML))
	if err != nil {
		return "", &TransportError{Provider: ProviderA, Err: err}
	}
	req.SetBasicAuth(ep.User, ep.Password)

	status, body, err := p.http.do(req, c)
	if err != nil {
		return "", err
	}
	text := string(body)
	if status != http.StatusOK && status != http.StatusAccepted && !strings.Contains(text, codigoYaTimbrado) {
		return "", &RejectionError{Provider: ProviderA, Status: status, Body: text}
	}
	encoded, ok := between(text, "<xmlBase64>", "</xmlBase64>")
	if !ok {
		return "", &RejectionError{Provider: ProviderA, Status: status, Body: text}
	}
	stamped, err := decodeBase64(encoded)
	if err != nil {
		return "", &RejectionError{Provider: ProviderA, Status: status, Body: "xmlBase64 inválido: " + err.Error()}
	}
	return stamped, nil
}

// Cancel POST al endpoint de cancelación con los datos del comprobante en la query.
// Éxito con <codigo>201</codigo> o <codigo>202</codigo>.
func (p *RestXML) Cancel(ctx context.Context, c *cfdi.Comprobante, creq CancelRequest) (Result, error) {
	ep := p.creds.For(c.Test)
	q := url.Values{
		"contrato":    {ep.Contract},
		"uuid":        {c.Timbre.UUID},
		"rfcEmisor":   {c.Emisor.Rfc},
		"rfcReceptor": {c.Receptor.Rfc},
		"total":       {c.Total},
	}
	if creq.Motivo != "" {
		q.Set("motivo", creq.Motivo)
	}
	if creq.FolioSustitucion != "" {
		q.Set("folioSustitucion", creq.FolioSustitucion)
	}
	req, err := newRequest(ctx, http.MethodPost, ep.CancelURL+"?"+q.Encode(), "application/xml", http.NoBody)
	if err != nil {
		return Result{}, &TransportError{Provider: ProviderA, Err: err}
	}
	req.SetBasicAuth(ep.User, ep.Password)

	_, body, err := p.http.do(req, nil)
	if err != nil {
		return Result{}, err
	}
	resp := xmlquery.New(string(body))
	msg := resp.Find("mensaje", "").Text()
	if msg == "" {
		msg = string(body)
	}
	switch resp.Find("codigo", "").Text() {
	case "201", "202":
		return Result{OK: true, Message: msg}, nil
	}
	return Result{OK: false, Message: msg}, nil
}

// between devuelve el texto entre dos marcadores literales.
func between(s, open, close string) (string, bool) {
	i := strings.Index(s, open)
	if i < 0 {
		return "", false
	}
	rest := s[i+len(open):]
	j := strings.Index(rest, close)
	if j < 0 {
		return "", false
	}
	return rest[:j], true
}

func decodeBase64(s string) (string, error) {
	s = strings.Join(strings.Fields(s), "")
	if s == "" {
		return "", errors.New("contenido vacío")
	}
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}
