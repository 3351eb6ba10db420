package pac

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

// testCertificatePrefix prefijo de los certificados SAT del ambiente de pruebas.
const testCertificatePrefix = "30001000000"

// CancelDispatcher solicita cancelaciones al PAC que certificó el comprobante.
type CancelDispatcher struct {
	providers map[string]Provider
	routes    map[string]string
	metrics   *metrics.PAC
	log       zerolog.Logger
}

// NewCancelDispatcher routes asocia el RfcProvCertif de cada PAC con su ID. Un RFC
// ausente o desconocido se envía al PAC A.
func NewCancelDispatcher(log zerolog.Logger, m *metrics.PAC, routes map[string]string, providers ...Provider) *CancelDispatcher {
	d := &CancelDispatcher{
		providers: make(map[string]Provider, len(providers)),
		routes:    make(map[string]string, len(routes)),
		metrics:   m,
		log:       log.With().Str("component", "pac_cancel").Logger(),
	}
	for _, p := range providers {
		d.providers[p.ID()] = p
	}
	for rfc, id := range routes {
		d.routes[strings.ToUpper(strings.TrimSpace(rfc))] = id
	}
	return d
}

// IsTestCertificate indica si el certificado SAT del timbre es de pruebas.
func IsTestCertificate(noCertificadoSAT string) bool {
	return noCertificadoSAT == TestNoCertificadoSAT || strings.HasPrefix(noCertificadoSAT, testCertificatePrefix)
}

// Route devuelve el proveedor que atiende timbres certificados por rfc.
func (d *CancelDispatcher) Route(rfc string) (Provider, bool) {
	if id, ok := d.routes[strings.ToUpper(strings.TrimSpace(rfc))]; ok {
		if p, ok := d.providers[id]; ok {
			return p, true
		}
	}
	p, ok := d.providers[ProviderA]
	return p, ok
}

// Cancel solicita la cancelación. Los rechazos y las fallas de red quedan en Result;
// con éxito el comprobante pasa a cancelado.
func (d *CancelDispatcher) Cancel(ctx context.Context, c *cfdi.Comprobante, req CancelRequest) (Result, error) {
	if c.Timbre.UUID == "" && c.XML != "" {
		if t, err := cfdi.ExtractTimbre(c.XML); err == nil {
			c.Timbre = t
		}
	}

	if IsTestCertificate(c.Timbre.NoCertificadoSAT) {
		c.State = cfdi.StateCancelled
		c.StatusMessage = "cancelación de comprobante de prueba"
		return Result{OK: true, Message: c.StatusMessage}, nil
	}
	if c.Test {
		return d.refuse(c, "los comprobantes de prueba no se cancelan ante el SAT"), nil
	}
	if c.Timbre.UUID == "" || c.Timbre.NoCertificadoSAT == "" {
		return d.refuse(c, domain.ErrNotStamped.Error()), nil
	}

	p, ok := d.Route(c.Timbre.RfcProvCertif)
	if !ok {
		return d.refuse(c, "no hay PAC configurado para cancelar"), nil
	}
	log := d.log.With().
		Str("provider", p.ID()).
		Str("uuid", c.Timbre.UUID).
		Str("rfc_prov_certif", c.Timbre.RfcProvCertif).
		Logger()

	res, err := p.Cancel(ctx, c, req)
	if err != nil {
		log.Warn().Err(err).Msg("cancelación fallida")
		res = Result{OK: false, Message: diagnostic(err)}
	}
	d.metrics.RecordCancel(p.ID(), res.OK)
	c.StatusMessage = res.Message
	if res.OK {
		c.State = cfdi.StateCancelled
		log.Info().Str("motivo", req.Motivo).Msg("comprobante cancelado")
	} else {
		log.Warn().Str("diagnostico", res.Message).Msg("cancelación rechazada")
	}
	return res, nil
}

func (d *CancelDispatcher) refuse(c *cfdi.Comprobante, msg string) Result {
	c.StatusMessage = msg
	d.log.Warn().Str("uuid", c.Timbre.UUID).Msg(msg)
	return Result{OK: false, Message: msg}
}
