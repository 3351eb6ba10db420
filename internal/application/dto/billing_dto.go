package dto

import "github.com/shopspring/decimal"

// CreateCFDIRequest body para POST /api/cfdi. Los importes de conceptos e impuestos
// se calculan en el servidor a partir de Cantidad, ValorUnitario y las tasas.
type CreateCFDIRequest struct {
	Serie             string               `json:"serie,omitempty"`
	Folio             string               `json:"folio,omitempty"`
	Fecha             string               `json:"fecha,omitempty"` // vacío = ahora
	TipoDeComprobante string               `json:"tipo_de_comprobante"`
	FormaPago         string               `json:"forma_pago,omitempty"`
	MetodoPago        string               `json:"metodo_pago,omitempty"`
	CondicionesDePago string               `json:"condiciones_de_pago,omitempty"`
	Moneda            string               `json:"moneda,omitempty"`
	TipoCambio        string               `json:"tipo_cambio,omitempty"`
	Exportacion       string               `json:"exportacion,omitempty"`
	Receptor          ReceptorRequest      `json:"receptor"`
	Conceptos         []ConceptoRequest    `json:"conceptos"`
	Relacionados      *RelacionadosInput   `json:"cfdi_relacionados,omitempty"`
	Complementos      *ComplementosRequest `json:"complementos,omitempty"`
	Provider          string               `json:"provider,omitempty"` // PAC; vacío = configurado
}

// ReceptorRequest datos del cliente.
type ReceptorRequest struct {
	Rfc              string `json:"rfc"`
	Nombre           string `json:"nombre"`
	DomicilioFiscal  string `json:"domicilio_fiscal,omitempty"`
	RegimenFiscal    string `json:"regimen_fiscal,omitempty"`
	UsoCFDI          string `json:"uso_cfdi"`
	ResidenciaFiscal string `json:"residencia_fiscal,omitempty"`
	NumRegIdTrib     string `json:"num_reg_id_trib,omitempty"`
}

// ConceptoRequest línea del comprobante.
type ConceptoRequest struct {
	ClaveProdServ    string          `json:"clave_prod_serv"`
	NoIdentificacion string          `json:"no_identificacion,omitempty"`
	Cantidad         decimal.Decimal `json:"cantidad"`
	ClaveUnidad      string          `json:"clave_unidad"`
	Unidad           string          `json:"unidad,omitempty"`
	Descripcion      string          `json:"descripcion"`
	ValorUnitario    decimal.Decimal `json:"valor_unitario"`
	Descuento        decimal.Decimal `json:"descuento,omitempty"`
	ObjetoImp        string          `json:"objeto_imp,omitempty"`
	Traslados        []TaxRequest    `json:"traslados,omitempty"`
	Retenciones      []TaxRequest    `json:"retenciones,omitempty"`
	// Números de pedimento (mercancía de importación).
	InformacionAduanera []string `json:"informacion_aduanera,omitempty"`
	CuentaPredial       string   `json:"cuenta_predial,omitempty"`
}

// TaxRequest traslado o retención de un concepto. La base es el importe del
// concepto menos su descuento.
type TaxRequest struct {
	Impuesto   string          `json:"impuesto"`    // 001, 002, 003
	TipoFactor string          `json:"tipo_factor"` // Tasa, Cuota, Exento
	TasaOCuota decimal.Decimal `json:"tasa_o_cuota"`
}

// RelacionadosInput CFDI relacionados.
type RelacionadosInput struct {
	TipoRelacion string   `json:"tipo_relacion"`
	UUIDs        []string `json:"uuids"`
}

// CFDIResponse resultado de crear o consultar un comprobante.
type CFDIResponse struct {
	ID              string          `json:"id"`
	UUID            string          `json:"uuid,omitempty"`
	Serie           string          `json:"serie,omitempty"`
	Folio           string          `json:"folio,omitempty"`
	Fecha           string          `json:"fecha"`
	RfcEmisor       string          `json:"rfc_emisor"`
	RfcReceptor     string          `json:"rfc_receptor"`
	Total           decimal.Decimal `json:"total"`
	Moneda          string          `json:"moneda,omitempty"`
	State           string          `json:"state"`
	Message         string          `json:"message,omitempty"`
	Provider        string          `json:"provider,omitempty"`
	Test            bool            `json:"test"`
	FechaTimbrado   string          `json:"fecha_timbrado,omitempty"`
	VerificationURL string          `json:"verification_url,omitempty"`
	Warnings        []string        `json:"warnings,omitempty"`
}

// CancelCFDIRequest body para POST /api/cfdi/:uuid/cancel.
type CancelCFDIRequest struct {
	Motivo           string `json:"motivo"`
	FolioSustitucion string `json:"folio_sustitucion,omitempty"`
}

// CancelCFDIResponse resultado de la solicitud de cancelación.
type CancelCFDIResponse struct {
	UUID    string `json:"uuid"`
	OK      bool   `json:"ok"`
	Message string `json:"message"`
	State   string `json:"state"`
}
