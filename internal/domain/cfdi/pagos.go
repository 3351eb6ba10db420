package cfdi

import "strings"

// ── Complemento de recepción de pagos ────────────────────────────────────────

const (
	nsPagos10  = "http://www.sat.gob.mx/Pagos"
	xsdPagos10 = "http://www.sat.gob.mx/sitio_internet/cfd/Pagos/Pagos10.xsd"
	nsPagos20  = "http://www.sat.gob.mx/Pagos20"
	xsdPagos20 = "http://www.sat.gob.mx/sitio_internet/cfd/Pagos/Pagos20.xsd"
)

// DoctoRelacionado factura que se liquida (total o parcialmente) con el pago.
type DoctoRelacionado struct {
	IdDocumento      string
	Serie            string
	Folio            string
	MonedaDR         string
	EquivalenciaDR   string // 2.0
	MetodoDePagoDR   string // 1.0
	NumParcialidad   string
	ImpSaldoAnt      string
	ImpPagado        string
	ImpSaldoInsoluto string
	ObjetoImpDR      string // 2.0
}

// Pago un movimiento de cobro.
type Pago struct {
	FechaPago         string
	FormaDePagoP      string
	MonedaP           string
	TipoCambioP       string
	Monto             string
	NumOperacion      string
	RfcEmisorCtaOrd   string
	CtaOrdenante      string
	RfcEmisorCtaBen   string
	CtaBeneficiario   string
	DoctoRelacionados []DoctoRelacionado
}

// PagosTotales nodo Totales (solo Pagos 2.0).
type PagosTotales struct {
	TotalTrasladosBaseIVA16     string
	TotalTrasladosImpuestoIVA16 string
	TotalRetencionesIVA         string
	TotalRetencionesISR         string
	MontoTotalPagos             string
}

// Pagos complemento para CFDI de tipo P. Version "1.0" (CFDI 3.3) o "2.0" (CFDI 4.0).
type Pagos struct {
	Version string
	Totales *PagosTotales
	Pagos   []Pago
}

// Render implementa Complemento.
func (p Pagos) Render() Fragment {
	prefix, ns, xsd := "pago20", nsPagos20, xsdPagos20
	if p.Version == "1.0" {
		prefix, ns, xsd = "pago10", nsPagos10, xsdPagos10
	}
	var inner strings.Builder
	if p.Totales != nil && p.Version != "1.0" {
		t := p.Totales
		inner.WriteString(element(prefix+":Totales", attrs(
			"TotalRetencionesIVA", t.TotalRetencionesIVA,
			"TotalRetencionesISR", t.TotalRetencionesISR,
			"TotalTrasladosBaseIVA16", t.TotalTrasladosBaseIVA16,
			"TotalTrasladosImpuestoIVA16", t.TotalTrasladosImpuestoIVA16,
			"MontoTotalPagos", t.MontoTotalPagos,
		), ""))
	}
	for _, pg := range p.Pagos {
		var docs strings.Builder
		for _, d := range pg.DoctoRelacionados {
			docs.WriteString(element(prefix+":DoctoRelacionado", attrs(
				"IdDocumento", d.IdDocumento,
				"Serie", d.Serie,
				"Folio", d.Folio,
				"MonedaDR", d.MonedaDR,
				"EquivalenciaDR", d.EquivalenciaDR,
				"MetodoDePagoDR", d.MetodoDePagoDR,
				"NumParcialidad", d.NumParcialidad,
				"ImpSaldoAnt", d.ImpSaldoAnt,
				"ImpPagado", d.ImpPagado,
				"ImpSaldoInsoluto", d.ImpSaldoInsoluto,
				"ObjetoImpDR", d.ObjetoImpDR,
			), ""))
		}
		inner.WriteString(element(prefix+":Pago", attrs(
			"FechaPago", pg.FechaPago,
			"FormaDePagoP", pg.FormaDePagoP,
			"MonedaP", pg.MonedaP,
			"TipoCambioP", pg.TipoCambioP,
			"Monto", pg.Monto,
			"NumOperacion", pg.NumOperacion,
			"RfcEmisorCtaOrd", pg.RfcEmisorCtaOrd,
			"CtaOrdenante", pg.CtaOrdenante,
			"RfcEmisorCtaBen", pg.RfcEmisorCtaBen,
			"CtaBeneficiario", pg.CtaBeneficiario,
		), docs.String()))
	}
	version := p.Version
	if version == "" {
		version = "2.0"
	}
	return fragment(prefix, ns, xsd, element(prefix+":Pagos", Attr("Version", version), inner.String()))
}
