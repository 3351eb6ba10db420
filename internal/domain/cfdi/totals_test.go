package cfdi_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi/cfditest"
)

func TestComputeTaxSummary_AgrupaPorTasa(t *testing.T) {
	c := cfditest.Comprobante()
	c.AddConcepto(cfdi.Concepto{
		ClaveProdServ: "01010101", Cantidad: "2", ValorUnitario: "100.00", Importe: "200.00",
		Traslados: []cfdi.Impuesto{cfditest.IVA16("200.00", "32.00")},
	})
	c.AddConcepto(cfdi.Concepto{
		ClaveProdServ: "01010101", Cantidad: "1", ValorUnitario: "50.00", Importe: "50.00",
		Traslados: []cfdi.Impuesto{{Base: "50.00", Impuesto: "002", TipoFactor: "Exento"}},
	})

	require.NoError(t, c.ComputeTaxSummary())

	require.Len(t, c.Impuestos.Traslados, 2)
	iva := c.Impuestos.Traslados[0]
	assert.Equal(t, "300.00", iva.Base)
	assert.Equal(t, "48.00", iva.Importe)
	assert.Equal(t, "0.160000", iva.TasaOCuota)

	exento := c.Impuestos.Traslados[1]
	assert.Equal(t, "Exento", exento.TipoFactor)
	assert.Equal(t, "50.00", exento.Base)
	assert.Empty(t, exento.Importe, "los exentos no llevan importe")

	assert.Equal(t, "48.00", c.Impuestos.TotalImpuestosTrasladados)
	assert.Empty(t, c.Impuestos.TotalImpuestosRetenidos)
	assert.Empty(t, c.Impuestos.Retenciones)
}

func TestComputeTaxSummary_Retenciones(t *testing.T) {
	c := cfditest.Comprobante()
	c.Conceptos[0].Retenciones = []cfdi.Impuesto{
		{Base: "100.00", Impuesto: "001", TipoFactor: "Tasa", TasaOCuota: "0.100000", Importe: "10.00"},
		{Base: "100.00", Impuesto: "002", TipoFactor: "Tasa", TasaOCuota: "0.106667", Importe: "10.67"},
	}
	require.NoError(t, c.ComputeTaxSummary())
	require.Len(t, c.Impuestos.Retenciones, 2)
	assert.Equal(t, "001", c.Impuestos.Retenciones[0].Impuesto)
	assert.Equal(t, "20.67", c.Impuestos.TotalImpuestosRetenidos)
}

func TestComputeTaxSummary_ErrorImporteInvalido(t *testing.T) {
	c := cfditest.Comprobante()
	c.Conceptos[0].Traslados[0].Importe = "dieciséis"
	err := c.ComputeTaxSummary()
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCheckTotals_Consistente(t *testing.T) {
	assert.Empty(t, cfditest.Comprobante().CheckTotals())
}

func TestCheckTotals_ReportaDiscrepancias(t *testing.T) {
	c := cfditest.Comprobante()
	c.Total = "120.00"
	c.SubTotal = "90.00"
	issues := c.CheckTotals()
	require.Len(t, issues, 2)
	assert.Contains(t, issues[0], "SubTotal")
	assert.Contains(t, issues[1], "Total")
}

func TestCheckTotals_ToleranciaDeUnCentavo(t *testing.T) {
	c := cfditest.Comprobante()
	c.Total = "116.01"
	assert.Empty(t, c.CheckTotals())
}
