package cfdi

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
)

// Tolerancia de redondeo aceptada por el SAT entre importes declarados y calculados.
var tolerance = decimal.New(1, -2)

// ComputeTaxSummary agrupa los impuestos de los conceptos en el resumen del comprobante
// (traslados por Impuesto+TipoFactor+TasaOCuota, retenciones por Impuesto) y
// recalcula los totales. Los traslados exentos no suman al total trasladado.
func (c *Comprobante) ComputeTaxSummary() error {
	type trasladoKey struct{ impuesto, factor, tasa string }
	var (
		traslados    []trasladoKey
		trasBase     = map[trasladoKey]decimal.Decimal{}
		trasImporte  = map[trasladoKey]decimal.Decimal{}
		retenciones  []string
		retImporte   = map[string]decimal.Decimal{}
		totalTras    = decimal.Zero
		totalRet     = decimal.Zero
		hasTrasTotal bool
	)
	for i, con := range c.Conceptos {
		for _, t := range con.Traslados {
			k := trasladoKey{t.Impuesto, t.TipoFactor, t.TasaOCuota}
			if _, ok := trasBase[k]; !ok {
				traslados = append(traslados, k)
			}
			base, err := parseAmount(t.Base)
			if err != nil {
				return fmt.Errorf("%w: Conceptos[%d] traslado Base: %v", domain.ErrInvalidInput, i, err)
			}
			trasBase[k] = trasBase[k].Add(base)
			if t.TipoFactor == "Exento" {
				continue
			}
			imp, err := parseAmount(t.Importe)
			if err != nil {
				return fmt.Errorf("%w: Conceptos[%d] traslado Importe: %v", domain.ErrInvalidInput, i, err)
			}
			trasImporte[k] = trasImporte[k].Add(imp)
			totalTras = totalTras.Add(imp)
			hasTrasTotal = true
		}
		for _, r := range con.Retenciones {
			if _, ok := retImporte[r.Impuesto]; !ok {
				retenciones = append(retenciones, r.Impuesto)
			}
			imp, err := parseAmount(r.Importe)
			if err != nil {
				return fmt.Errorf("%w: Conceptos[%d] retención Importe: %v", domain.ErrInvalidInput, i, err)
			}
			retImporte[r.Impuesto] = retImporte[r.Impuesto].Add(imp)
			totalRet = totalRet.Add(imp)
		}
	}

	summary := Impuestos{}
	for _, k := range traslados {
		t := Impuesto{Base: trasBase[k].StringFixed(2), Impuesto: k.impuesto, TipoFactor: k.factor}
		if k.factor != "Exento" {
			t.TasaOCuota = k.tasa
			t.Importe = trasImporte[k].StringFixed(2)
		}
		summary.Traslados = append(summary.Traslados, t)
	}
	for _, imp := range retenciones {
		summary.Retenciones = append(summary.Retenciones, Impuesto{Impuesto: imp, Importe: retImporte[imp].StringFixed(2)})
	}
	if hasTrasTotal {
		summary.TotalImpuestosTrasladados = totalTras.StringFixed(2)
	}
	if len(retenciones) > 0 {
		summary.TotalImpuestosRetenidos = totalRet.StringFixed(2)
	}
	c.Impuestos = summary
	return nil
}

// CheckTotals compara los importes declarados contra los calculados y devuelve las
// discrepancias encontradas. No bloquea el ensamblado; el llamador decide si las registra.
func (c *Comprobante) CheckTotals() []string {
	var issues []string
	conceptos, descuentos := decimal.Zero, decimal.Zero
	for i, con := range c.Conceptos {
		imp, err := parseAmount(con.Importe)
		if err != nil {
			issues = append(issues, fmt.Sprintf("Conceptos[%d].Importe no numérico: %q", i, con.Importe))
			continue
		}
		conceptos = conceptos.Add(imp)
		if d, err := parseAmount(con.Descuento); err == nil {
			descuentos = descuentos.Add(d)
		}
	}

	subTotal, err := parseAmount(c.SubTotal)
	if err != nil {
		return append(issues, fmt.Sprintf("SubTotal no numérico: %q", c.SubTotal))
	}
	if !near(subTotal, conceptos) {
		issues = append(issues, fmt.Sprintf("SubTotal %s no coincide con la suma de conceptos %s", subTotal.StringFixed(2), conceptos.StringFixed(2)))
	}
	descuento, _ := parseAmount(c.Descuento)
	if !near(descuento, descuentos) {
		issues = append(issues, fmt.Sprintf("Descuento %s no coincide con la suma de descuentos %s", descuento.StringFixed(2), descuentos.StringFixed(2)))
	}

	trasladados, _ := parseAmount(c.Impuestos.TotalImpuestosTrasladados)
	retenidos, _ := parseAmount(c.Impuestos.TotalImpuestosRetenidos)
	sumTras := decimal.Zero
	for _, t := range c.Impuestos.Traslados {
		v, _ := parseAmount(t.Importe)
		sumTras = sumTras.Add(v)
	}
	if !near(trasladados, sumTras) {
		issues = append(issues, fmt.Sprintf("TotalImpuestosTrasladados %s no coincide con los traslados %s", trasladados.StringFixed(2), sumTras.StringFixed(2)))
	}

	total, err := parseAmount(c.Total)
	if err != nil {
		return append(issues, fmt.Sprintf("Total no numérico: %q", c.Total))
	}
	expected := subTotal.Sub(descuento).Add(trasladados).Sub(retenidos)
	if !near(total, expected) {
		issues = append(issues, fmt.Sprintf("Total %s no coincide con SubTotal - Descuento + Impuestos (%s)", total.StringFixed(2), expected.StringFixed(2)))
	}
	return issues
}

// parseAmount interpreta un importe; vacío equivale a cero.
func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func near(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(tolerance)
}
