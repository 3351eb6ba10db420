package pac

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

// RestForm PAC D: formulario urlencoded con el XML en base64; responde JSON.
type RestForm struct {
	creds Credentials
	http  transport
}

// NewRestForm crea el cliente del PAC D.
func NewRestForm(creds Credentials, client *http.Client, m *metrics.PAC) *RestForm {
	return &RestForm{creds: creds, http: newTransport(ProviderD, client, m)}
}

func (p *RestForm) ID() string { return ProviderD }

type formResponse struct {
	XML     string `json:"xml"`
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Stamp cualquier JSON con campo xml (base64 del XML timbrado) es éxito.
func (p *RestForm) Stamp(ctx context.Context, c *cfdi.Comprobante) (string, error) {
	ep := p.creds.For(c.Test)
	status, body, err := p.post(ctx, ep.StampURL, url.Values{
		"xml":      {base64.StdEncoding.EncodeToString([]byte(c.XML))},
		"user":     {ep.User},
		"password": {ep.Password},
	}, c)
	if err != nil {
		return "", err
	}
	var resp formResponse
	if err := json.Unmarshal(body, &resp); err != nil || strings.TrimSpace(resp.XML) == "" {
		return "", &RejectionError{Provider: ProviderD, Status: status, Body: string(body)}
	}
	stamped, err := decodeBase64(resp.XML)
	if err != nil {
		return "", &RejectionError{Provider: ProviderD, Status: status, Body: "xml inválido: " + err.Error()}
	}
	return stamped, nil
}

// Cancel éxito con status "success".
func (p *RestForm) Cancel(ctx context.Context, c *cfdi.Comprobante, creq CancelRequest) (Result, error) {
	ep := p.creds.For(c.Test)
	form := url.Values{
		"uuid":     {c.Timbre.UUID},
		"rfc":      {c.Emisor.Rfc},
		"user":     {ep.User},
		"password": {ep.Password},
	}
	if creq.Motivo != "" {
		form.Set("motivo", creq.Motivo)
	}
	if creq.FolioSustitucion != "" {
		form.Set("folio_sustitucion", creq.FolioSustitucion)
	}
	_, body, err := p.post(ctx, ep.CancelURL, form, nil)
	if err != nil {
		return Result{}, err
	}
	var resp formResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{Message: string(body)}, nil
	}
	msg := resp.Message
	if msg == "" {
		msg = string(body)
	}
	return Result{OK: resp.Status == "success", Message: msg}, nil
}

func (p *RestForm) post(ctx context.Context, endpoint string, form url.Values, c *cfdi.Comprobante) (int, []byte, error) {
	req, err := newRequest(ctx, http.MethodPost, endpoint, "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, &TransportError{Provider: ProviderD, Err: err}
	}
	return p.http.do(req, c)
}
