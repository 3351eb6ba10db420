package pac

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

const (
	estatusTimbrado  = "10"
	estatusCancelado = "201"
)

// RestJSON PAC C: REST con sobre JSON; el XML viaja como arreglo de bytes y la
// contraseña como hash MD5.
type RestJSON struct {
	creds Credentials
	http  transport
}

// NewRestJSON crea el cliente del PAC C.
func NewRestJSON(creds Credentials, client *http.Client, m *metrics.PAC) *RestJSON {
	return &RestJSON{creds: creds, http: newTransport(ProviderC, client, m)}
}

func (p *RestJSON) ID() string { return ProviderC }

type jsonStampRequest struct {
	Usuario  string `json:"usuario"`
	Password string `json:"password"`
	CFDI     []int  `json:"cfdi"`
}

type jsonCancelRequest struct {
	Usuario          string `json:"usuario"`
	Password         string `json:"password"`
	RfcEmisor        string `json:"rfcEmisor"`
	UUID             string `json:"uuid"`
	Motivo           string `json:"motivo,omitempty"`
	FolioSustitucion string `json:"folioSustitucion,omitempty"`
}

type jsonResponse struct {
	Estatus json.RawMessage `json:"estatus"`
	CFDI    string          `json:"cfdi"`
	Mensaje string          `json:"mensaje"`
}

// estatus acepta el código como número o como cadena.
func (r jsonResponse) estatus() string {
	return strings.Trim(strings.TrimSpace(string(r.Estatus)), `"`)
}

// Stamp éxito con estatus "10"; el campo cfdi trae el XML timbrado tal cual.
func (p *RestJSON) Stamp(ctx context.Context, c *cfdi.Comprobante) (string, error) {
	ep := p.creds.For(c.Test)
	status, body, err := p.post(ctx, ep.StampURL, jsonStampRequest{
		Usuario:  ep.User,
		Password: md5Hex(ep.Password),
		CFDI:     byteArray(c.XML),
	}, c)
	if err != nil {
		return "", err
	}
	var resp jsonResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", &RejectionError{Provider: ProviderC, Status: status, Body: string(body)}
	}
	if resp.estatus() != estatusTimbrado || strings.TrimSpace(resp.CFDI) == "" {
		return "", &RejectionError{Provider: ProviderC, Status: status, Body: string(body)}
	}
	return resp.CFDI, nil
}

// Cancel éxito con estatus "201".
func (p *RestJSON) Cancel(ctx context.Context, c *cfdi.Comprobante, creq CancelRequest) (Result, error) {
	ep := p.creds.For(c.Test)
	_, body, err := p.post(ctx, ep.CancelURL, jsonCancelRequest{
		Usuario:          ep.User,
		Password:         md5Hex(ep.Password),
		RfcEmisor:        c.Emisor.Rfc,
		UUID:             c.Timbre.UUID,
		Motivo:           creq.Motivo,
		FolioSustitucion: creq.FolioSustitucion,
	}, nil)
	if err != nil {
		return Result{}, err
	}
	var resp jsonResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Result{Message: string(body)}, nil
	}
	msg := resp.Mensaje
	if msg == "" {
		msg = string(body)
	}
	return Result{OK: resp.estatus() == estatusCancelado, Message: msg}, nil
}

func (p *RestJSON) post(ctx context.Context, url string, payload interface{}, c *cfdi.Comprobante) (int, []byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("pac c: serializar solicitud: %w", err)
	}
	req, err := newRequest(ctx, http.MethodPost, url, "application/json", bytes.NewReader(data))
	if err != nil {
		return 0, nil, &TransportError{Provider: ProviderC, Err: err}
	}
	return p.http.do(req, c)
}

func md5Hex(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

// byteArray representa el XML UTF-8 como arreglo numérico; []byte se serializaría
// como base64.
func byteArray(s string) []int {
	out := make([]int, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = int(s[i])
	}
	return out
}
