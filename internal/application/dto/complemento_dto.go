package dto

// ComplementosRequest complementos que se agregan a cfdi:Complemento. Pagos es
// obligatorio para el tipo P y Nomina para el tipo N. Los importes viajan como texto
// con los decimales que exige cada complemento.
type ComplementosRequest struct {
	Pagos            *PagosRequest            `json:"pagos,omitempty"`
	Nomina           *NominaRequest           `json:"nomina,omitempty"`
	ComercioExterior *ComercioExteriorRequest `json:"comercio_exterior,omitempty"`
	ImpuestosLocales *ImpuestosLocalesRequest `json:"impuestos_locales,omitempty"`
	LeyendasFiscales []LeyendaRequest         `json:"leyendas_fiscales,omitempty"`
}

// ── Pagos ────────────────────────────────────────────────────────────────────

// PagosRequest complemento de recepción de pagos (2.0 en CFDI 4.0, 1.0 en 3.3).
type PagosRequest struct {
	Totales *PagosTotalesRequest `json:"totales,omitempty"`
	Pagos   []PagoRequest        `json:"pagos"`
}

type PagosTotalesRequest struct {
	TotalRetencionesIVA         string `json:"total_retenciones_iva,omitempty"`
	TotalRetencionesISR         string `json:"total_retenciones_isr,omitempty"`
	TotalTrasladosBaseIVA16     string `json:"total_traslados_base_iva16,omitempty"`
	TotalTrasladosImpuestoIVA16 string `json:"total_traslados_impuesto_iva16,omitempty"`
	MontoTotalPagos             string `json:"monto_total_pagos"`
}

type PagoRequest struct {
	FechaPago         string                    `json:"fecha_pago"`
	FormaDePagoP      string                    `json:"forma_de_pago"`
	MonedaP           string                    `json:"moneda"`
	TipoCambioP       string                    `json:"tipo_cambio,omitempty"`
	Monto             string                    `json:"monto"`
	NumOperacion      string                    `json:"num_operacion,omitempty"`
	RfcEmisorCtaOrd   string                    `json:"rfc_emisor_cta_ord,omitempty"`
	CtaOrdenante      string                    `json:"cta_ordenante,omitempty"`
	RfcEmisorCtaBen   string                    `json:"rfc_emisor_cta_ben,omitempty"`
	CtaBeneficiario   string                    `json:"cta_beneficiario,omitempty"`
	DoctoRelacionados []DoctoRelacionadoRequest `json:"documentos"`
}

type DoctoRelacionadoRequest struct {
	IdDocumento      string `json:"id_documento"`
	Serie            string `json:"serie,omitempty"`
	Folio            string `json:"folio,omitempty"`
	MonedaDR         string `json:"moneda"`
	EquivalenciaDR   string `json:"equivalencia,omitempty"`
	MetodoDePagoDR   string `json:"metodo_de_pago,omitempty"`
	NumParcialidad   string `json:"num_parcialidad"`
	ImpSaldoAnt      string `json:"imp_saldo_ant"`
	ImpPagado        string `json:"imp_pagado"`
	ImpSaldoInsoluto string `json:"imp_saldo_insoluto"`
	ObjetoImpDR      string `json:"objeto_imp,omitempty"`
}

// ── Nómina ───────────────────────────────────────────────────────────────────

// NominaRequest complemento de nómina 1.2.
type NominaRequest struct {
	TipoNomina        string `json:"tipo_nomina"`
	FechaPago         string `json:"fecha_pago"`
	FechaInicialPago  string `json:"fecha_inicial_pago"`
	FechaFinalPago    string `json:"fecha_final_pago"`
	NumDiasPagados    string `json:"num_dias_pagados"`
	TotalPercepciones string `json:"total_percepciones,omitempty"`
	TotalDeducciones  string `json:"total_deducciones,omitempty"`
	TotalOtrosPagos   string `json:"total_otros_pagos,omitempty"`

	Emisor   *NominaEmisorRequest  `json:"emisor,omitempty"`
	Receptor NominaReceptorRequest `json:"receptor"`

	TotalSueldos            string              `json:"total_sueldos,omitempty"`
	TotalGravado            string              `json:"total_gravado,omitempty"`
	TotalExento             string              `json:"total_exento,omitempty"`
	Percepciones            []PercepcionRequest `json:"percepciones,omitempty"`
	TotalOtrasDeducciones   string              `json:"total_otras_deducciones,omitempty"`
	TotalImpuestosRetenidos string              `json:"total_impuestos_retenidos,omitempty"`
	Deducciones             []DeduccionRequest  `json:"deducciones,omitempty"`
	OtrosPagos              []OtroPagoRequest   `json:"otros_pagos,omitempty"`
}

type NominaEmisorRequest struct {
	Curp             string `json:"curp,omitempty"`
	RegistroPatronal string `json:"registro_patronal,omitempty"`
	RfcPatronOrigen  string `json:"rfc_patron_origen,omitempty"`
}

type NominaReceptorRequest struct {
	Curp                   string `json:"curp"`
	NumSeguridadSocial     string `json:"num_seguridad_social,omitempty"`
	FechaInicioRelLaboral  string `json:"fecha_inicio_rel_laboral,omitempty"`
	Antiguedad             string `json:"antiguedad,omitempty"`
	TipoContrato           string `json:"tipo_contrato"`
	TipoJornada            string `json:"tipo_jornada,omitempty"`
	TipoRegimen            string `json:"tipo_regimen"`
	NumEmpleado            string `json:"num_empleado"`
	Departamento           string `json:"departamento,omitempty"`
	Puesto                 string `json:"puesto,omitempty"`
	PeriodicidadPago       string `json:"periodicidad_pago"`
	SalarioBaseCotApor     string `json:"salario_base_cot_apor,omitempty"`
	SalarioDiarioIntegrado string `json:"salario_diario_integrado,omitempty"`
	ClaveEntFed            string `json:"clave_ent_fed"`
}

type PercepcionRequest struct {
	TipoPercepcion string `json:"tipo_percepcion"`
	Clave          string `json:"clave"`
	Concepto       string `json:"concepto"`
	ImporteGravado string `json:"importe_gravado"`
	ImporteExento  string `json:"importe_exento"`
}

type DeduccionRequest struct {
	TipoDeduccion string `json:"tipo_deduccion"`
	Clave         string `json:"clave"`
	Concepto      string `json:"concepto"`
	Importe       string `json:"importe"`
}

type OtroPagoRequest struct {
	TipoOtroPago    string `json:"tipo_otro_pago"`
	Clave           string `json:"clave"`
	Concepto        string `json:"concepto"`
	Importe         string `json:"importe"`
	SubsidioCausado string `json:"subsidio_causado,omitempty"`
}

// ── Comercio exterior, impuestos locales y leyendas ──────────────────────────

type ComercioExteriorRequest struct {
	ClaveDePedimento     string             `json:"clave_de_pedimento,omitempty"`
	CertificadoOrigen    string             `json:"certificado_origen,omitempty"`
	NumCertificadoOrigen string             `json:"num_certificado_origen,omitempty"`
	Incoterm             string             `json:"incoterm,omitempty"`
	Observaciones        string             `json:"observaciones,omitempty"`
	TipoCambioUSD        string             `json:"tipo_cambio_usd"`
	TotalUSD             string             `json:"total_usd"`
	Mercancias           []MercanciaRequest `json:"mercancias,omitempty"`
}

type MercanciaRequest struct {
	NoIdentificacion    string `json:"no_identificacion"`
	FraccionArancelaria string `json:"fraccion_arancelaria,omitempty"`
	CantidadAduana      string `json:"cantidad_aduana,omitempty"`
	UnidadAduana        string `json:"unidad_aduana,omitempty"`
	ValorUnitarioAduana string `json:"valor_unitario_aduana,omitempty"`
	ValorDolares        string `json:"valor_dolares"`
}

type ImpuestosLocalesRequest struct {
	Retenciones []ImpuestoLocalRequest `json:"retenciones,omitempty"`
	Traslados   []ImpuestoLocalRequest `json:"traslados,omitempty"`
}

// ImpuestoLocalRequest impuesto estatal o municipal; Nombre es la clave local (p. ej. ISH).
type ImpuestoLocalRequest struct {
	Nombre  string `json:"nombre"`
	Tasa    string `json:"tasa"`
	Importe string `json:"importe"`
}

type LeyendaRequest struct {
	DisposicionFiscal string `json:"disposicion_fiscal,omitempty"`
	Norma             string `json:"norma,omitempty"`
	TextoLeyenda      string `json:"texto_leyenda"`
}
