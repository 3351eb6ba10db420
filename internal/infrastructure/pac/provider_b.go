package pac

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

// ── Constantes SOAP ────────────────────────────────────────────────────────────

const (
	soapEnvNS    = "http://schemas.xmlsoap.org/soap/envelope/"
	soapStampNS  = "urn:timbrado"
	soapCancelNS = "urn:cancelacion"
	soapRegNS    = "urn:registro"

	// errSocioNegocios diagnóstico del PAC B cuando el emisor no está dado de alta
	// bajo la cuenta de socio; se registra una vez y se reintenta.
	errSocioNegocios = "Socio de Negocios"
)

// SOAP PAC B: servicio SOAP con XML en base64 y credenciales fijas.
type SOAP struct {
	creds Credentials
	http  transport
}

// NewSOAP crea el cliente del PAC B. client nil usa un cliente sin timeout; la
// llamada sólo se corta por el contexto.
func NewSOAP(creds Credentials, client *http.Client, m *metrics.PAC) *SOAP {
	if client == nil {
		client = &http.Client{}
	}
	return &SOAP{creds: creds, http: newTransport(ProviderB, client, m)}
}

func (p *SOAP) ID() string { return ProviderB }

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName xml.Name   `xml:"soapenv:Envelope"`
	Xmlns   string     `xml:"xmlns:soapenv,attr"`
	Header  soapHeader `xml:"soapenv:Header"`
	Body    soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct{}

type soapBody struct {
	Content interface{}
}

func (b soapBody) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	start.Name.Local = "soapenv:Body"
	if err := e.EncodeToken(start); err != nil {
		return err
	}
	if err := e.Encode(b.Content); err != nil {
		return err
	}
	return e.EncodeToken(start.End())
}

type stampRequest struct {
	XMLName  xml.Name `xml:"stamp"`
	Xmlns    string   `xml:"xmlns,attr"`
	XML      string   `xml:"xml"` // CFDI sellado en base64
	Username string   `xml:"username"`
	Password string   `xml:"password"`
}

type addRequest struct {
	XMLName          xml.Name `xml:"add"`
	Xmlns            string   `xml:"xmlns,attr"`
	ResellerUsername string   `xml:"reseller_username"`
	ResellerPassword string   `xml:"reseller_password"`
	TaxpayerID       string   `xml:"taxpayer_id"`
}

type cancelRequest struct {
	XMLName    xml.Name     `xml:"cancel"`
	Xmlns      string       `xml:"xmlns,attr"`
	UUIDs      []cancelUUID `xml:"UUIDS>UUID"`
	Username   string       `xml:"username"`
	Password   string       `xml:"password"`
	TaxpayerID string       `xml:"taxpayer_id"`
}

type cancelUUID struct {
	UUID             string `xml:"UUID,attr"`
	Motivo           string `xml:"Motivo,attr,omitempty"`
	FolioSustitucion string `xml:"FolioSustitucion,attr,omitempty"`
}

// ── Estructuras de respuesta ──────────────────────────────────────────────────

type soapResponse struct {
	Body struct {
		Stamp  *stampResult  `xml:"stampResponse>stampResult"`
		Add    *addResult    `xml:"addResponse>addResult"`
		Cancel *cancelResult `xml:"cancelResponse>cancelResult"`
		Fault  *soapFault    `xml:"Fault"`
	} `xml:"Body"`
}

type stampResult struct {
	XML         string       `xml:"xml"`
	CodEstatus  string       `xml:"CodEstatus"`
	Incidencias []incidencia `xml:"Incidencias>Incidencia"`
}

type incidencia struct {
	Codigo  string `xml:"CodigoError"`
	Mensaje string `xml:"MensajeIncidencia"`
}

type addResult struct {
	Success bool   `xml:"success"`
	Message string `xml:"message"`
}

type cancelResult struct {
	Folios     []cancelFolio `xml:"Folios>Folio"`
	CodEstatus string        `xml:"CodEstatus"`
}

type cancelFolio struct {
	UUID               string `xml:"UUID"`
	EstatusUUID        string `xml:"EstatusUUID"`
	EstatusCancelacion string `xml:"EstatusCancelacion"`
}

type soapFault struct {
	FaultCode   string `xml:"faultcode"`
	FaultString string `xml:"faultstring"`
}

// ── Timbrado ──────────────────────────────────────────────────────────────────

// Stamp invoca la operación stamp. Si el PAC responde que el emisor no está
// registrado como cliente del socio, lo registra con add y reintenta una vez.
func (p *SOAP) Stamp(ctx context.Context, c *cfdi.Comprobante) (string, error) {
	ep := p.creds.For(c.Test)
	stamped, diag, err := p.stamp(ctx, ep, c)
	if err != nil {
		return "", err
	}
	if stamped != "" {
		return stamped, nil
	}
	if strings.Contains(diag, errSocioNegocios) {
		if err := p.register(ctx, ep, c.Emisor.Rfc); err != nil {
			return "", err
		}
		stamped, diag, err = p.stamp(ctx, ep, c)
		if err != nil {
			return "", err
		}
		if stamped != "" {
			return stamped, nil
		}
	}
	return "", &RejectionError{Provider: ProviderB, Body: diag}
}

func (p *SOAP) stamp(ctx context.Context, ep Endpoint, c *cfdi.Comprobante) (string, string, error) {
	resp, raw, err := p.call(ctx, ep.StampURL, "stamp", &stampRequest{
		Xmlns:    soapStampNS,
		XML:      base64.StdEncoding.EncodeToString([]byte(c.XML)),
		Username: ep.User,
		Password: ep.Password,
	}, c)
	if err != nil {
		return "", "", err
	}
	switch {
	case resp.Body.Fault != nil:
		return "", resp.Body.Fault.FaultString, nil
	case resp.Body.Stamp == nil:
		return "", raw, nil
	case strings.TrimSpace(resp.Body.Stamp.XML) != "":
		return resp.Body.Stamp.XML, "", nil
	}
	return "", resp.Body.Stamp.diagnostic(raw), nil
}

func (r *stampResult) diagnostic(raw string) string {
	var parts []string
	if r.CodEstatus != "" {
		parts = append(parts, r.CodEstatus)
	}
	for _, inc := range r.Incidencias {
		parts = append(parts, strings.TrimSpace(inc.Codigo+" "+inc.Mensaje))
	}
	if len(parts) == 0 {
		return raw
	}
	return strings.Join(parts, "; ")
}

// register da de alta al emisor bajo la cuenta de socio del PAC.
func (p *SOAP) register(ctx context.Context, ep Endpoint, rfc string) error {
	resp, raw, err := p.call(ctx, ep.RegisterURL, "add", &addRequest{
		Xmlns:            soapRegNS,
		ResellerUsername: ep.User,
		ResellerPassword: ep.Password,
		TaxpayerID:       rfc,
	}, nil)
	if err != nil {
		return err
	}
	switch {
	case resp.Body.Fault != nil:
		return &RejectionError{Provider: ProviderB, Body: "registro del emisor: " + resp.Body.Fault.FaultString}
	case resp.Body.Add == nil:
		return &RejectionError{Provider: ProviderB, Body: "registro del emisor: " + raw}
	case !resp.Body.Add.Success:
		return &RejectionError{Provider: ProviderB, Body: "registro del emisor: " + resp.Body.Add.Message}
	}
	return nil
}

// ── Cancelación ───────────────────────────────────────────────────────────────

// Cancel invoca la operación cancel. EstatusUUID 201 (cancelado) o 202 (ya
// cancelado previamente) es éxito.
func (p *SOAP) Cancel(ctx context.Context, c *cfdi.Comprobante, creq CancelRequest) (Result, error) {
	ep := p.creds.For(c.Test)
	resp, raw, err := p.call(ctx, ep.CancelURL, "cancel", &cancelRequest{
		Xmlns: soapCancelNS,
		UUIDs: []cancelUUID{{
			UUID:             c.Timbre.UUID,
			Motivo:           creq.Motivo,
			FolioSustitucion: creq.FolioSustitucion,
		}},
		Username:   ep.User,
		Password:   ep.Password,
		TaxpayerID: c.Emisor.Rfc,
	}, nil)
	if err != nil {
		return Result{}, err
	}
	switch {
	case resp.Body.Fault != nil:
		return Result{Message: resp.Body.Fault.FaultString}, nil
	case resp.Body.Cancel == nil:
		return Result{Message: raw}, nil
	}
	for _, f := range resp.Body.Cancel.Folios {
		if !strings.EqualFold(f.UUID, c.Timbre.UUID) && f.UUID != "" {
			continue
		}
		msg := strings.TrimSpace(f.EstatusUUID + " " + f.EstatusCancelacion)
		if f.EstatusUUID == "201" || f.EstatusUUID == "202" {
			return Result{OK: true, Message: msg}, nil
		}
		return Result{Message: msg}, nil
	}
	if resp.Body.Cancel.CodEstatus != "" {
		return Result{Message: resp.Body.Cancel.CodEstatus}, nil
	}
	return Result{Message: raw}, nil
}

// call serializa el envelope, lo envía y decodifica la respuesta. Los faults SOAP
// llegan con status 500, por eso el cuerpo se interpreta sin importar el status.
func (p *SOAP) call(ctx context.Context, url, action string, body interface{}, c *cfdi.Comprobante) (*soapResponse, string, error) {
	payload, err := xml.Marshal(soapEnvelope{Xmlns: soapEnvNS, Body: soapBody{Content: body}})
	if err != nil {
		return nil, "", fmt.Errorf("soap: serializar envelope: %w", err)
	}
	req, err := newRequest(ctx, http.MethodPost, url, "text/xml; charset=utf-8", bytes.NewReader(payload))
	if err != nil {
		return nil, "", &TransportError{Provider: ProviderB, Err: err}
	}
	req.Header.Set("SOAPAction", action)

	_, raw, err := p.http.do(req, c)
	if err != nil {
		return nil, "", err
	}
	var resp soapResponse
	if err := xml.Unmarshal(raw, &resp); err != nil {
		return nil, "", &TransportError{Provider: ProviderB, Err: fmt.Errorf("respuesta SOAP inválida: %w", err)}
	}
	return &resp, string(raw), nil
}
