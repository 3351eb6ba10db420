package billing

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/entity"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
	"github.com/jhoicas/cfdi-timbrado/pkg/sat"
)

// StampConfig datos fijos del emisor para el caso de uso.
type StampConfig struct {
	Issuer   cfdi.Issuer
	CSD      *sello.CSD // nil sólo en modo pruebas
	Provider string     // PAC por defecto
}

// CreateCFDIUseCase arma, sella, timbra y persiste comprobantes.
type CreateCFDIUseCase struct {
	invoiceRepo repository.InvoiceRepository
	sealer      Sealer
	stamper     Stamper
	store       XMLStore        // opcional
	validator   SchemaValidator // opcional
	cfg         StampConfig
	log         zerolog.Logger
	now         func() time.Time
}

// NewCreateCFDIUseCase construye el caso de uso. store y validator pueden ser nil.
func NewCreateCFDIUseCase(
	invoiceRepo repository.InvoiceRepository,
	sealer Sealer,
	stamper Stamper,
	store XMLStore,
	validator SchemaValidator,
	cfg StampConfig,
	log zerolog.Logger,
) *CreateCFDIUseCase {
	return &CreateCFDIUseCase{
		invoiceRepo: invoiceRepo,
		sealer:      sealer,
		stamper:     stamper,
		store:       store,
		validator:   validator,
		cfg:         cfg,
		log:         log.With().Str("component", "billing").Logger(),
		now:         time.Now,
	}
}

// CreateCFDI construye el comprobante desde la solicitud, lo sella, lo timbra y guarda
// el resultado. Un rechazo del PAC no es error: la respuesta lleva State FAILED y el
// diagnóstico en Message.
//
// Retorna:
//   - domain.ErrInvalidInput si la solicitud o el XML sellado no son válidos.
//   - domain.ErrTestProviderOnProduction si se eligió el PAC de pruebas para un comprobante real.
func (uc *CreateCFDIUseCase) CreateCFDI(ctx context.Context, in dto.CreateCFDIRequest) (*dto.CFDIResponse, error) {
	// ── 1. Armar ──────────────────────────────────────────────────────────────
	c, err := BuildComprobante(uc.cfg.Issuer, in, uc.now())
	if err != nil {
		return nil, err
	}

	// ── 2. Sellar ─────────────────────────────────────────────────────────────
	if err := uc.sealer.Sign(c, uc.cfg.CSD); err != nil {
		return nil, fmt.Errorf("sellar comprobante: %w", err)
	}
	warnings := c.CheckTotals()

	// ── 3. XSD (opcional) ─────────────────────────────────────────────────────
	if uc.validator != nil {
		if err := uc.validator.Validate([]byte(c.XML)); err != nil {
			return nil, err
		}
	}

	// ── 4. Persistir antes de enviar al PAC ───────────────────────────────────
	inv := entity.NewInvoice(c)
	if err := uc.invoiceRepo.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("guardar comprobante: %w", err)
	}

	// ── 5. Timbrar ────────────────────────────────────────────────────────────
	provider := in.Provider
	if provider == "" {
		provider = uc.cfg.Provider
	}
	res, stampErr := uc.stamper.Stamp(ctx, c, provider)

	inv.Refresh(c)
	if res.OK {
		uc.afterStamp(inv, c)
	}
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("actualizar comprobante: %w", err)
	}
	if stampErr != nil {
		return nil, stampErr
	}

	resp := toResponse(inv)
	resp.Message = res.Message
	resp.Warnings = warnings
	return resp, nil
}

// afterStamp calcula el digest y guarda la copia en disco. Ninguna falla aquí
// revierte el timbrado.
func (uc *CreateCFDIUseCase) afterStamp(inv *entity.Invoice, c *cfdi.Comprobante) {
	log := uc.log.With().Str("id", inv.ID).Str("uuid", inv.UUID).Logger()
	digest, err := cfdi.CanonicalDigest(c.XML)
	if err != nil {
		log.Warn().Err(err).Msg("no se pudo calcular el digest canónico")
	}
	inv.Digest = digest

	if uc.store == nil || inv.UUID == "" {
		return
	}
	path, err := uc.store.Save(inv.UUID, c.XML)
	if err != nil {
		log.Error().Err(err).Msg("no se pudo guardar el XML timbrado en disco")
		return
	}
	log.Debug().Str("path", path).Msg("XML timbrado guardado")
}

// BuildComprobante valida la solicitud y arma el comprobante del emisor con importes
// calculados. now fija la fecha cuando la solicitud no la trae.
func BuildComprobante(issuer cfdi.Issuer, in dto.CreateCFDIRequest, now time.Time) (*cfdi.Comprobante, error) {
	tipo := strings.ToUpper(in.TipoDeComprobante)
	if tipo == "" {
		tipo = sat.TipoIngreso
	}
	if !sat.ValidTiposDeComprobante[tipo] {
		return nil, fmt.Errorf("%w: tipo de comprobante %q", domain.ErrInvalidInput, in.TipoDeComprobante)
	}
	if err := sat.ValidateRFC(in.Receptor.Rfc); err != nil {
		return nil, fmt.Errorf("%w: receptor: %v", domain.ErrInvalidInput, err)
	}
	conceptos := in.Conceptos
	if len(conceptos) == 0 && tipo == sat.TipoPago {
		conceptos = []dto.ConceptoRequest{conceptoPago}
	}
	if len(conceptos) == 0 {
		return nil, fmt.Errorf("%w: el comprobante requiere al menos un concepto", domain.ErrInvalidInput)
	}

	c := cfdi.NewComprobante(issuer)
	c.Serie = in.Serie
	c.Folio = in.Folio
	c.Fecha = in.Fecha
	if c.Fecha == "" {
		c.Fecha = now.Format("2006-01-02T15:04:05")
	}
	c.TipoDeComprobante = tipo
	c.FormaPago = in.FormaPago
	c.MetodoPago = in.MetodoPago
	c.CondicionesDePago = in.CondicionesDePago
	c.Moneda = nonEmpty(in.Moneda, "MXN")
	if tipo == sat.TipoPago && in.Moneda == "" && c.Version == cfdi.Version40 {
		c.Moneda = "XXX"
	}
	c.TipoCambio = in.TipoCambio
	if c.Version == cfdi.Version40 {
		c.Exportacion = nonEmpty(in.Exportacion, sat.ExportacionNoAplica)
	}
	c.Receptor = cfdi.Receptor{
		Rfc:                     sat.NormalizeRFC(in.Receptor.Rfc),
		Nombre:                  in.Receptor.Nombre,
		DomicilioFiscalReceptor: in.Receptor.DomicilioFiscal,
		ResidenciaFiscal:        in.Receptor.ResidenciaFiscal,
		NumRegIdTrib:            in.Receptor.NumRegIdTrib,
		RegimenFiscalReceptor:   in.Receptor.RegimenFiscal,
		UsoCFDI:                 in.Receptor.UsoCFDI,
	}
	if r := in.Relacionados; r != nil && len(r.UUIDs) > 0 {
		c.CfdiRelacionados = &cfdi.CfdiRelacionados{TipoRelacion: r.TipoRelacion, UUIDs: r.UUIDs}
	}

	subTotal, descuento := decimal.Zero, decimal.Zero
	for i, item := range conceptos {
		con, err := buildConcepto(item, c.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: conceptos[%d]: %v", domain.ErrInvalidInput, i, err)
		}
		c.AddConcepto(con)
		subTotal = subTotal.Add(item.Cantidad.Mul(item.ValorUnitario).Round(2))
		descuento = descuento.Add(item.Descuento.Round(2))
	}
	if err := c.ComputeTaxSummary(); err != nil {
		return nil, err
	}

	trasladados, _ := decimal.NewFromString(nonEmpty(c.Impuestos.TotalImpuestosTrasladados, "0"))
	retenidos, _ := decimal.NewFromString(nonEmpty(c.Impuestos.TotalImpuestosRetenidos, "0"))
	c.SubTotal = subTotal.StringFixed(2)
	if descuento.IsPositive() {
		c.Descuento = descuento.StringFixed(2)
	}
	c.Total = subTotal.Sub(descuento).Add(trasladados).Sub(retenidos).StringFixed(2)
	if err := addComplementos(c, in); err != nil {
		return nil, err
	}
	return c, nil
}

func buildConcepto(item dto.ConceptoRequest, version string) (cfdi.Concepto, error) {
	if item.ClaveProdServ == "" || item.ClaveUnidad == "" {
		return cfdi.Concepto{}, fmt.Errorf("clave_prod_serv y clave_unidad son obligatorias")
	}
	if !item.Cantidad.IsPositive() {
		return cfdi.Concepto{}, fmt.Errorf("la cantidad debe ser mayor a cero")
	}
	if item.ValorUnitario.IsNegative() || item.Descuento.IsNegative() {
		return cfdi.Concepto{}, fmt.Errorf("importes negativos")
	}
	importe := item.Cantidad.Mul(item.ValorUnitario).Round(2)
	if item.Descuento.GreaterThan(importe) {
		return cfdi.Concepto{}, fmt.Errorf("el descuento excede el importe")
	}
	base := importe.Sub(item.Descuento.Round(2))

	con := cfdi.Concepto{
		ClaveProdServ:    item.ClaveProdServ,
		NoIdentificacion: item.NoIdentificacion,
		Cantidad:         item.Cantidad.String(),
		ClaveUnidad:      item.ClaveUnidad,
		Unidad:           item.Unidad,
		Descripcion:      item.Descripcion,
		ValorUnitario:    item.ValorUnitario.StringFixed(2),
		Importe:          importe.StringFixed(2),

		InformacionAduanera: item.InformacionAduanera,
		CuentaPredial:       item.CuentaPredial,
	}
	if item.Descuento.IsPositive() {
		con.Descuento = item.Descuento.StringFixed(2)
	}
	for _, t := range item.Traslados {
		imp, err := buildTax(t, base)
		if err != nil {
			return con, err
		}
		con.Traslados = append(con.Traslados, imp)
	}
	for _, t := range item.Retenciones {
		if t.TipoFactor == sat.FactorExento {
			return con, fmt.Errorf("una retención no puede ser exenta")
		}
		imp, err := buildTax(t, base)
		if err != nil {
			return con, err
		}
		con.Retenciones = append(con.Retenciones, imp)
	}
	if version == cfdi.Version40 {
		con.ObjetoImp = item.ObjetoImp
		if con.ObjetoImp == "" {
			con.ObjetoImp = sat.ObjetoImpNo
			if con.HasTaxes() {
				con.ObjetoImp = sat.ObjetoImpSi
			}
		}
	}
	return con, nil
}

func buildTax(t dto.TaxRequest, base decimal.Decimal) (cfdi.Impuesto, error) {
	factor := nonEmpty(t.TipoFactor, sat.FactorTasa)
	if !sat.ValidImpuestos[t.Impuesto] {
		return cfdi.Impuesto{}, fmt.Errorf("impuesto %q inválido", t.Impuesto)
	}
	if !sat.ValidTiposFactor[factor] {
		return cfdi.Impuesto{}, fmt.Errorf("tipo factor %q inválido", t.TipoFactor)
	}
	imp := cfdi.Impuesto{Base: base.StringFixed(2), Impuesto: t.Impuesto, TipoFactor: factor}
	if factor == sat.FactorExento {
		return imp, nil
	}
	if t.TasaOCuota.IsNegative() {
		return cfdi.Impuesto{}, fmt.Errorf("tasa negativa")
	}
	imp.TasaOCuota = t.TasaOCuota.StringFixed(6)
	imp.Importe = base.Mul(t.TasaOCuota).Round(2).StringFixed(2)
	return imp, nil
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
