// Package cfdi modela el Comprobante Fiscal Digital por Internet (CFDI 3.3 / 4.0):
// documento, conceptos, impuestos, complementos, ensamblado XML, cadena original
// y extracción del Timbre Fiscal Digital.
package cfdi

import "time"

// Estados del ciclo de vida del comprobante.
//
//	unsigned → signed → submitted → {stamped, failed}
//	stamped  → cancelled
//
// failed es terminal para ese intento; el llamador puede reenviar.
type State string

const (
	StateUnsigned  State = "UNSIGNED"
	StateSigned    State = "SIGNED"
	StateSubmitted State = "SUBMITTED"
	StateStamped   State = "STAMPED"
	StateFailed    State = "FAILED"
	StateCancelled State = "CANCELLED"
)

// Emisor datos del contribuyente que expide.
type Emisor struct {
	Rfc           string
	Nombre        string
	RegimenFiscal string
}

// Receptor datos del cliente.
type Receptor struct {
	Rfc                     string
	Nombre                  string
	DomicilioFiscalReceptor string // 4.0
	ResidenciaFiscal        string
	NumRegIdTrib            string
	RegimenFiscalReceptor   string // 4.0
	UsoCFDI                 string
}

// Impuesto es un traslado o una retención (por concepto o resumen del comprobante).
// En el resumen de retenciones solo se usan Impuesto e Importe.
type Impuesto struct {
	Base       string
	Impuesto   string // 001 ISR, 002 IVA, 003 IEPS
	TipoFactor string // Tasa, Cuota, Exento
	TasaOCuota string
	Importe    string
}

// Concepto es una línea del comprobante; no tiene ciclo de vida propio.
type Concepto struct {
	ClaveProdServ    string
	NoIdentificacion string
	Cantidad         string
	ClaveUnidad      string
	Unidad           string
	Descripcion      string // se trunca a MaxDescripcion al ensamblar
	ValorUnitario    string
	Importe          string
	Descuento        string
	ObjetoImp        string // 4.0

	Traslados           []Impuesto
	Retenciones         []Impuesto
	InformacionAduanera []string // NumeroPedimento
	CuentaPredial       string
}

// HasTaxes indica si el concepto lleva traslados o retenciones.
func (c Concepto) HasTaxes() bool {
	return len(c.Traslados) > 0 || len(c.Retenciones) > 0
}

// CfdiRelacionados referencia a documentos previos (notas de crédito, sustituciones, pagos).
type CfdiRelacionados struct {
	TipoRelacion string
	UUIDs        []string
}

// Impuestos resumen de impuestos a nivel comprobante.
type Impuestos struct {
	TotalImpuestosRetenidos   string
	TotalImpuestosTrasladados string
	Retenciones               []Impuesto
	Traslados                 []Impuesto
}

// Empty indica que no hay colecciones de impuestos.
func (i Impuestos) Empty() bool {
	return len(i.Retenciones) == 0 && len(i.Traslados) == 0
}

// Timing marca los tiempos de conexión y timbrado con el PAC (facturación y SLA).
type Timing struct {
	ConnectStart time.Time
	ConnectEnd   time.Time
	StampStart   time.Time
	StampEnd     time.Time
}

// ConnectDuration duración de la fase de conexión.
func (t Timing) ConnectDuration() time.Duration { return t.ConnectEnd.Sub(t.ConnectStart) }

// StampDuration duración de la fase de timbrado.
func (t Timing) StampDuration() time.Duration { return t.StampEnd.Sub(t.StampStart) }

// Comprobante es el documento fiscal en memoria. Todos los campos arrancan vacíos;
// vacío equivale a ausente en el XML. No es seguro para uso concurrente: el mismo
// comprobante no debe sellarse ni timbrarse desde dos goroutines a la vez.
type Comprobante struct {
	Version           string
	Serie             string
	Folio             string
	Fecha             string // 2006-01-02T15:04:05
	Sello             string
	FormaPago         string
	NoCertificado     string
	Certificado       string
	CondicionesDePago string
	SubTotal          string
	Descuento         string
	Moneda            string
	TipoCambio        string
	Total             string
	TipoDeComprobante string // I, E, T, N, P
	Exportacion       string // 4.0
	MetodoPago        string
	LugarExpedicion   string
	Confirmacion      string

	CfdiRelacionados *CfdiRelacionados
	Emisor           Emisor
	Receptor         Receptor
	Conceptos        []Concepto
	Impuestos        Impuestos
	Complementos     []Complemento

	// Test marca el comprobante como de pruebas (sin efecto fiscal).
	Test bool

	// XML es la última serialización (ensamblado, sellado o timbrado).
	XML string
	// State y StatusMessage reflejan el resultado del último paso (cfdi_status).
	State         State
	StatusMessage string
	// Provider PAC que timbró el documento.
	Provider string

	Timbre TimbreFiscalDigital
	Timing Timing
}

// Issuer configuración del emisor que se copia a cada comprobante nuevo.
type Issuer struct {
	Rfc             string
	Nombre          string
	RegimenFiscal   string
	LugarExpedicion string
	Version         string
	Test            bool
}

// New crea un comprobante vacío en estado unsigned.
func New() *Comprobante {
	return &Comprobante{State: StateUnsigned}
}

// NewComprobante crea un comprobante con los datos del emisor ya cargados.
// Si el emisor no fija versión se usa la 4.0.
func NewComprobante(issuer Issuer) *Comprobante {
	c := New()
	c.Version = issuer.Version
	if c.Version == "" {
		c.Version = Version40
	}
	c.Emisor = Emisor{Rfc: issuer.Rfc, Nombre: issuer.Nombre, RegimenFiscal: issuer.RegimenFiscal}
	c.LugarExpedicion = issuer.LugarExpedicion
	c.Test = issuer.Test
	return c
}

// AddConcepto agrega una línea al final.
func (c *Comprobante) AddConcepto(con Concepto) {
	c.Conceptos = append(c.Conceptos, con)
}

// AddComplemento registra un complemento; el orden de registro es el orden de emisión.
func (c *Comprobante) AddComplemento(comp Complemento) {
	c.Complementos = append(c.Complementos, comp)
}

// Stamped indica si el comprobante ya tiene timbre fiscal.
func (c *Comprobante) Stamped() bool {
	return c.Timbre.UUID != ""
}

// Fail marca el intento actual como fallido con su diagnóstico.
func (c *Comprobante) Fail(msg string) {
	c.State = StateFailed
	c.StatusMessage = msg
}
