// Package sat contiene catálogos y validaciones del anexo 20 del SAT (México)
// usados al armar y cancelar CFDI.
package sat

// =============================================================================
// c_TipoDeComprobante
// =============================================================================

const (
	TipoIngreso  = "I"
	TipoEgreso   = "E"
	TipoTraslado = "T"
	TipoNomina   = "N"
	TipoPago     = "P"
)

// ValidTiposDeComprobante tipos de comprobante válidos.
var ValidTiposDeComprobante = map[string]bool{
	TipoIngreso: true, TipoEgreso: true, TipoTraslado: true, TipoNomina: true, TipoPago: true,
}

// =============================================================================
// c_MetodoPago
// =============================================================================

const (
	MetodoPagoUnaExhibicion = "PUE" // Pago en una sola exhibición
	MetodoPagoParcialidades = "PPD" // Pago en parcialidades o diferido
)

// =============================================================================
// c_FormaPago (uso frecuente)
// =============================================================================

const (
	FormaPagoEfectivo       = "01"
	FormaPagoCheque         = "02"
	FormaPagoTransferencia  = "03"
	FormaPagoTarjetaCredito = "04"
	FormaPagoTarjetaDebito  = "28"
	FormaPagoPorDefinir     = "99"
)

// =============================================================================
// c_Impuesto y c_TipoFactor
// =============================================================================

const (
	ImpuestoISR  = "001"
	ImpuestoIVA  = "002"
	ImpuestoIEPS = "003"

	FactorTasa   = "Tasa"
	FactorCuota  = "Cuota"
	FactorExento = "Exento"
)

// ValidImpuestos claves de impuesto federales.
var ValidImpuestos = map[string]bool{ImpuestoISR: true, ImpuestoIVA: true, ImpuestoIEPS: true}

// ValidTiposFactor tipos de factor de traslados y retenciones.
var ValidTiposFactor = map[string]bool{FactorTasa: true, FactorCuota: true, FactorExento: true}

// =============================================================================
// c_ObjetoImp (4.0)
// =============================================================================

const (
	ObjetoImpNo = "01" // No objeto de impuesto
	ObjetoImpSi = "02" // Sí objeto de impuesto
)

// =============================================================================
// c_Exportacion (4.0)
// =============================================================================

const ExportacionNoAplica = "01"

// =============================================================================
// Motivos de cancelación (reforma 2022)
// =============================================================================

const (
	MotivoErroresConRelacion = "01" // Comprobante emitido con errores con relación
	MotivoErroresSinRelacion = "02" // Comprobante emitido con errores sin relación
	MotivoNoSeLlevoACabo     = "03" // No se llevó a cabo la operación
	MotivoFacturaGlobal      = "04" // Operación nominativa relacionada en una factura global
)

// ValidMotivosCancelacion motivos de cancelación aceptados por el SAT.
var ValidMotivosCancelacion = map[string]bool{
	MotivoErroresConRelacion: true,
	MotivoErroresSinRelacion: true,
	MotivoNoSeLlevoACabo:     true,
	MotivoFacturaGlobal:      true,
}

// =============================================================================
// RFC genéricos
// =============================================================================

const (
	RfcPublicoEnGeneral = "XAXX010101000"
	RfcExtranjero       = "XEXX010101000"
)
