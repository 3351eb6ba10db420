package pac

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

// Hooks callbacks opcionales del timbrado. Se inyectan en el Dispatcher.
type Hooks struct {
	// OnStamped recibe el comprobante ya timbrado.
	OnStamped func(c *cfdi.Comprobante)
	// OnError recibe los errores del post-proceso del timbre.
	OnError func(c *cfdi.Comprobante, err error)
}

// Dispatcher envía comprobantes sellados al PAC elegido.
type Dispatcher struct {
	providers map[string]Provider
	hooks     Hooks
	metrics   *metrics.PAC
	log       zerolog.Logger
}

// NewDispatcher registra los proveedores por su ID. El PAC A es el de respaldo
// para IDs desconocidos.
func NewDispatcher(log zerolog.Logger, m *metrics.PAC, hooks Hooks, providers ...Provider) *Dispatcher {
	d := &Dispatcher{
		providers: make(map[string]Provider, len(providers)),
		hooks:     hooks,
		metrics:   m,
		log:       log.With().Str("component", "pac").Logger(),
	}
	for _, p := range providers {
		d.providers[p.ID()] = p
	}
	return d
}

// Provider resuelve el proveedor de id; vacío o desconocido cae en el PAC A.
func (d *Dispatcher) Provider(id string) (Provider, bool) {
	if p, ok := d.providers[id]; ok {
		return p, true
	}
	p, ok := d.providers[ProviderA]
	return p, ok
}

// Stamp timbra el comprobante con el proveedor id. Los rechazos y las fallas de
// red quedan en Result y en c.StatusMessage; sólo devuelve error cuando el
// comprobante no está sellado o cuando se usa el PAC de pruebas con un
// comprobante real.
func (d *Dispatcher) Stamp(ctx context.Context, c *cfdi.Comprobante, id string) (Result, error) {
	if c.State != cfdi.StateSigned && c.State != cfdi.StateFailed {
		return Result{}, fmt.Errorf("%w: estado %s", domain.ErrNotSigned, c.State)
	}
	p, ok := d.Provider(id)
	if !ok {
		return d.failed(c, id, fmt.Sprintf("PAC %q no configurado", id)), nil
	}

	c.State = cfdi.StateSubmitted
	c.Provider = p.ID()
	log := d.log.With().Str("provider", p.ID()).Str("rfc", c.Emisor.Rfc).Logger()
	log.Info().Bool("test", c.Test).Msg("enviando comprobante al PAC")

	stamped, err := p.Stamp(ctx, c)
	if errors.Is(err, domain.ErrTestProviderOnProduction) {
		c.State = cfdi.StateFailed
		c.StatusMessage = err.Error()
		d.metrics.RecordStamp(p.ID(), false)
		return Result{}, err
	}
	if err != nil {
		log.Warn().Err(err).Msg("timbrado rechazado")
		return d.failed(c, p.ID(), diagnostic(err)), nil
	}

	d.applyStamp(c, stamped)
	c.State = cfdi.StateStamped
	c.StatusMessage = ""
	d.metrics.RecordStamp(p.ID(), true)
	log.Info().
		Str("uuid", c.Timbre.UUID).
		Dur("connect", c.Timing.ConnectDuration()).
		Dur("stamp", c.Timing.StampDuration()).
		Msg("comprobante timbrado")

	if d.hooks.OnStamped != nil {
		d.hooks.OnStamped(c)
	}
	return Result{OK: true, Message: "timbrado " + c.Timbre.UUID}, nil
}

// applyStamp guarda el XML timbrado y extrae el TimbreFiscalDigital. Un error de
// extracción no revierte el timbrado: se registra y se envía a OnError.
func (d *Dispatcher) applyStamp(c *cfdi.Comprobante, stamped string) {
	err := c.ApplyTimbre(stamped)
	if err == nil {
		return
	}
	d.log.Error().Err(err).Str("provider", c.Provider).Msg("no se pudo extraer el timbre del XML timbrado")
	if d.hooks.OnError != nil {
		d.hooks.OnError(c, err)
	}
}

func (d *Dispatcher) failed(c *cfdi.Comprobante, provider, msg string) Result {
	c.Fail(msg)
	d.metrics.RecordStamp(provider, false)
	return Result{OK: false, Message: msg}
}

// diagnostic texto para cfdi_status: el rechazo crudo del PAC o la falla de red.
func diagnostic(err error) string {
	var rej *RejectionError
	if errors.As(err, &rej) {
		return rej.Body
	}
	return err.Error()
}
