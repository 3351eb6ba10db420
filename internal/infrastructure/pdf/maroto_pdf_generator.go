// Package pdf implementa la representación impresa del CFDI.
//
// Layout de la página carta:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Emisor + RFC + Régimen │ Tipo + Serie/Folio + Fecha │
//	│  ─────────────────────────────────────────────────────────  │
//	│  RECEPTOR: Nombre + RFC + Uso CFDI + Régimen                 │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Clave | Descripción | P.Unit | Importe        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Subtotal / Traslados / Retenciones / TOTAL         │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TIMBRE: QR + UUID + sellos + cadena original del TFD        │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/pkg/xmlquery"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 122, Green: 20, Blue: 40}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

var tipoComprobante = map[string]string{
	"I": "INGRESO",
	"E": "EGRESO",
	"T": "TRASLADO",
	"N": "NÓMINA",
	"P": "PAGO",
}

// ── Generator ─────────────────────────────────────────────────────────────────

// MarotoPDFGenerator genera la representación impresa usando Maroto v2.
type MarotoPDFGenerator struct{}

// NewMarotoPDFGenerator construye el generador.
func NewMarotoPDFGenerator() *MarotoPDFGenerator { return &MarotoPDFGenerator{} }

// concepto fila de la tabla de conceptos.
type concepto struct {
	Cantidad      string
	ClaveProdServ string
	Descripcion   string
	ValorUnitario string
	Importe       string
}

// GenerateCFDIPDF genera el PDF y devuelve sus bytes. Si el comprobante no trae
// conceptos en memoria (reconstruido desde la base) se leen del XML.
func (g *MarotoPDFGenerator) GenerateCFDIPDF(_ context.Context, c *cfdi.Comprobante) ([]byte, error) {
	if c == nil {
		return nil, fmt.Errorf("pdf: comprobante nulo")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("CFDI "+c.Timbre.UUID, true).
		WithAuthor(c.Emisor.Nombre, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(c))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(receptorRow(c))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableDetailRows(conceptosOf(c))...)

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(c))

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(timbreRows(c)...)

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(c *cfdi.Comprobante) core.Row {
	titulo := "CFDI " + nonEmpty(tipoComprobante[c.TipoDeComprobante], c.TipoDeComprobante)
	if c.Test {
		titulo += " (PRUEBAS)"
	}
	return row.New(20).Add(
		col.New(7).Add(
			text.New(nonEmpty(c.Emisor.Nombre, c.Emisor.Rfc), props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("RFC: "+c.Emisor.Rfc, props.Text{Size: 9, Top: 9, Color: colorGray}),
			text.New(fmt.Sprintf("Régimen fiscal: %s   |   Lugar de expedición: %s",
				nonEmpty(c.Emisor.RegimenFiscal, "—"),
				nonEmpty(c.LugarExpedicion, "—"),
			), props.Text{Size: 8, Top: 14, Color: colorGray}),
		),
		col.New(5).Add(
			text.New(titulo, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New(strings.TrimSpace(c.Serie+" "+c.Folio), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+c.Fecha, props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func receptorRow(c *cfdi.Comprobante) core.Row {
	r := c.Receptor
	return row.New(14).Add(
		col.New(12).Add(
			text.New("RECEPTOR", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(r.Nombre, r.Rfc), props.Text{Style: fontstyle.Bold, Size: 10, Top: 6}),
			text.New(fmt.Sprintf("RFC: %s   |   Uso CFDI: %s   |   Régimen: %s   |   C.P.: %s",
				r.Rfc,
				nonEmpty(r.UsoCFDI, "—"),
				nonEmpty(r.RegimenFiscalReceptor, "—"),
				nonEmpty(r.DomicilioFiscalReceptor, "—"),
			), props.Text{Size: 8, Top: 12, Color: colorGray}),
		),
	)
}

// tableHeaderRow cabecera de la tabla de conceptos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 1, align.Center),
		h("Clave", 2, align.Left),
		h("Descripción", 5, align.Left),
		h("Valor unit.", 2, align.Right),
		h("Importe", 2, align.Right),
	).WithStyle(&props.Cell{BackgroundColor: colorPrimary})
}

func tableDetailRows(conceptos []concepto) []core.Row {
	result := make([]core.Row, 0, len(conceptos))
	for _, d := range conceptos {
		result = append(result, row.New(7).Add(
			col.New(1).Add(text.New(d.Cantidad, props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(2).Add(text.New(d.ClaveProdServ, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(5).Add(text.New(d.Descripcion, props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(2).Add(text.New("$"+formatMoney(d.ValorUnitario), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
			col.New(2).Add(text.New("$"+formatMoney(d.Importe), props.Text{Size: 8, Align: align.Right, Top: 1, Right: 1})),
		))
	}
	return result
}

func totalsRow(c *cfdi.Comprobante) core.Row {
	labels := []string{"Subtotal:"}
	values := []string{"$" + formatMoney(c.SubTotal)}
	if c.Descuento != "" {
		labels = append(labels, "Descuento:")
		values = append(values, "$"+formatMoney(c.Descuento))
	}
	if c.Impuestos.TotalImpuestosTrasladados != "" {
		labels = append(labels, "Impuestos trasladados:")
		values = append(values, "$"+formatMoney(c.Impuestos.TotalImpuestosTrasladados))
	}
	if c.Impuestos.TotalImpuestosRetenidos != "" {
		labels = append(labels, "Impuestos retenidos:")
		values = append(values, "$"+formatMoney(c.Impuestos.TotalImpuestosRetenidos))
	}

	left := col.New(3)
	right := col.New(3)
	for i := range labels {
		top := float64(i * 5)
		left.Add(text.New(labels[i], props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2, Top: top}))
		right.Add(text.New(values[i], props.Text{Size: 9, Align: align.Right, Right: 1, Top: top}))
	}
	top := float64(len(labels) * 5)
	left.Add(text.New("TOTAL "+c.Moneda+":", props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 2, Top: top,
	}))
	right.Add(text.New("$"+formatMoney(c.Total), props.Text{
		Style: fontstyle.Bold, Size: 10, Align: align.Right, Color: colorPrimary, Right: 1, Top: top,
	}))

	return row.New(top+8).Add(
		col.New(3),
		col.New(3).Add(text.New(fmt.Sprintf("Forma de pago: %s\nMétodo de pago: %s",
			nonEmpty(c.FormaPago, "—"), nonEmpty(c.MetodoPago, "—"),
		), props.Text{Size: 7, Color: colorGray})),
		left,
		right,
	)
}

// timbreRows QR de verificación, datos del timbre y cadena original del TFD.
func timbreRows(c *cfdi.Comprobante) []core.Row {
	if !c.Stamped() {
		return []core.Row{row.New(10).Add(col.New(12).Add(
			text.New("Comprobante sin timbre fiscal: no tiene validez", props.Text{
				Style: fontstyle.Bold, Size: 9, Align: align.Center, Color: colorPrimary, Top: 2,
			}),
		))}
	}
	t := c.Timbre
	verURL := nonEmpty(t.VerificationURL, c.VerificationURL())
	cadena := nonEmpty(t.CadenaOriginal, t.CadenaOriginalTFD())

	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("TIMBRE FISCAL DIGITAL", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
		row.New(40).Add(
			col.New(3).Add(code.NewQr(verURL, props.Rect{Percent: 95, Center: true})),
			col.New(9).Add(
				text.New("Folio fiscal (UUID): "+t.UUID, props.Text{Style: fontstyle.Bold, Size: 9, Left: 3, Top: 2}),
				text.New("Fecha de certificación: "+t.FechaTimbrado, props.Text{Size: 8, Left: 3, Top: 9, Color: colorGray}),
				text.New("RFC del PAC: "+t.RfcProvCertif, props.Text{Size: 8, Left: 3, Top: 14, Color: colorGray}),
				text.New("No. certificado SAT: "+t.NoCertificadoSAT, props.Text{Size: 8, Left: 3, Top: 19, Color: colorGray}),
				text.New("No. certificado emisor: "+nonEmpty(c.NoCertificado, "—"), props.Text{Size: 8, Left: 3, Top: 24, Color: colorGray}),
				text.New("Este documento es una representación impresa de un CFDI.", props.Text{
					Style: fontstyle.Bold, Size: 9, Left: 3, Top: 31, Color: colorPrimary,
				}),
			),
		),
	}
	rows = append(rows, longTextRows("Sello digital del CFDI:", t.SelloCFD)...)
	rows = append(rows, longTextRows("Sello digital del SAT:", t.SelloSAT)...)
	rows = append(rows, longTextRows("Cadena original del complemento de certificación digital del SAT:", cadena)...)
	return rows
}

// longTextRows título y texto partido en renglones de 110 caracteres.
func longTextRows(title, s string) []core.Row {
	if s == "" {
		return nil
	}
	rows := []core.Row{row.New(5).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 7, Top: 1}),
	))}
	for _, chunk := range splitEvery(s, 110) {
		rows = append(rows, row.New(4).Add(col.New(12).Add(
			text.New(chunk, props.Text{Size: 6.5, Color: colorGray, Top: 0.5, Left: 2}),
		)))
	}
	return rows
}

// ── helpers ───────────────────────────────────────────────────────────────────

// conceptosOf toma los conceptos en memoria o, si no hay, los lee del XML.
func conceptosOf(c *cfdi.Comprobante) []concepto {
	if len(c.Conceptos) > 0 {
		out := make([]concepto, 0, len(c.Conceptos))
		for _, con := range c.Conceptos {
			out = append(out, concepto{
				Cantidad:      con.Cantidad,
				ClaveProdServ: con.ClaveProdServ,
				Descripcion:   con.Descripcion,
				ValorUnitario: con.ValorUnitario,
				Importe:       con.Importe,
			})
		}
		return out
	}
	nodes := xmlquery.New(c.XML).Find("Conceptos", "").FindList("Concepto", "")
	out := make([]concepto, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, concepto{
			Cantidad:      n.Get("Cantidad", ""),
			ClaveProdServ: n.Get("ClaveProdServ", ""),
			Descripcion:   n.Get("Descripcion", ""),
			ValorUnitario: n.Get("ValorUnitario", ""),
			Importe:       n.Get("Importe", ""),
		})
	}
	return out
}

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney formatea un importe con separador de miles y dos decimales.
// Ej: "25000" → "25,000.00", "1234567.5" → "1,234,567.50". Lo que no es número
// se devuelve igual.
func formatMoney(s string) string {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return s
	}
	fixed := d.Abs().StringFixed(2)
	intPart, frac := fixed[:len(fixed)-3], fixed[len(fixed)-3:]
	n := len(intPart)
	buf := make([]byte, 0, n+n/3+4)
	if d.IsNegative() {
		buf = append(buf, '-')
	}
	for i, c := range []byte(intPart) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, ',')
		}
		buf = append(buf, c)
	}
	return string(buf) + frac
}

// splitEvery divide s en trozos de max n caracteres.
func splitEvery(s string, n int) []string {
	var parts []string
	for len(s) > n {
		parts = append(parts, s[:n])
		s = s[n:]
	}
	if s != "" {
		parts = append(parts, s)
	}
	return parts
}
