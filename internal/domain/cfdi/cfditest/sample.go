// Package cfditest provee comprobantes de ejemplo para pruebas de los paquetes que
// ensamblan, sellan o timbran CFDI.
package cfditest

import "github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"

// Datos del escenario de referencia: emisor genérico del SAT y receptor público en general.
const (
	RfcEmisor   = "AAA010101AAA"
	RfcReceptor = "XAXX010101000"
	Fecha       = "2024-01-15T10:00:00"
)

// Issuer emisor de pruebas (CFDI 4.0, modo pruebas).
func Issuer() cfdi.Issuer {
	return cfdi.Issuer{
		Rfc:             RfcEmisor,
		Nombre:          "EMPRESA DEMO",
		RegimenFiscal:   "601",
		LugarExpedicion: "45079",
		Version:         cfdi.Version40,
		Test:            true,
	}
}

// IVA16 traslado de IVA al 16% sobre base.
func IVA16(base, importe string) cfdi.Impuesto {
	return cfdi.Impuesto{Base: base, Impuesto: "002", TipoFactor: "Tasa", TasaOCuota: "0.160000", Importe: importe}
}

// Comprobante factura de ingreso de 100.00 + IVA 16% = 116.00, con el resumen de
// impuestos ya calculado.
func Comprobante() *cfdi.Comprobante {
	c := cfdi.NewComprobante(Issuer())
	c.Serie = "A"
	c.Folio = "1"
	c.Fecha = Fecha
	c.FormaPago = "01"
	c.SubTotal = "100.00"
	c.Moneda = "MXN"
	c.Total = "116.00"
	c.TipoDeComprobante = "I"
	c.Exportacion = "01"
	c.MetodoPago = "PUE"
	c.Receptor = cfdi.Receptor{
		Rfc:                     RfcReceptor,
		Nombre:                  "PUBLICO EN GENERAL",
		DomicilioFiscalReceptor: "45079",
		RegimenFiscalReceptor:   "616",
		UsoCFDI:                 "S01",
	}
	c.AddConcepto(cfdi.Concepto{
		ClaveProdServ: "01010101",
		Cantidad:      "1",
		ClaveUnidad:   "ACT",
		Descripcion:   "Servicio",
		ValorUnitario: "100.00",
		Importe:       "100.00",
		ObjetoImp:     "02",
		Traslados:     []cfdi.Impuesto{IVA16("100.00", "16.00")},
	})
	if err := c.ComputeTaxSummary(); err != nil {
		panic(err)
	}
	return c
}
