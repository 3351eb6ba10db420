package cfdi

import "strings"

// ── Comercio exterior 2.0 ────────────────────────────────────────────────────

// Mercancia partida de comercio exterior.
type Mercancia struct {
	NoIdentificacion    string
	FraccionArancelaria string
	CantidadAduana      string
	UnidadAduana        string
	ValorUnitarioAduana string
	ValorDolares        string
}

// ComercioExterior complemento para exportación definitiva (Exportacion "02").
type ComercioExterior struct {
	ClaveDePedimento     string
	CertificadoOrigen    string
	NumCertificadoOrigen string
	Incoterm             string
	Observaciones        string
	TipoCambioUSD        string
	TotalUSD             string
	Mercancias           []Mercancia
}

// Render implementa Complemento.
func (ce ComercioExterior) Render() Fragment {
	var merc strings.Builder
	for _, m := range ce.Mercancias {
		merc.WriteString(element("cce20:Mercancia", attrs(
			"NoIdentificacion", m.NoIdentificacion,
			"FraccionArancelaria", m.FraccionArancelaria,
			"CantidadAduana", m.CantidadAduana,
			"UnidadAduana", m.UnidadAduana,
			"ValorUnitarioAduana", m.ValorUnitarioAduana,
			"ValorDolares", m.ValorDolares,
		), ""))
	}
	inner := ""
	if merc.Len() > 0 {
		inner = element("cce20:Mercancias", "", merc.String())
	}
	xml := element("cce20:ComercioExterior", attrs(
		"Version", "2.0",
		"ClaveDePedimento", ce.ClaveDePedimento,
		"CertificadoOrigen", ce.CertificadoOrigen,
		"NumCertificadoOrigen", ce.NumCertificadoOrigen,
		"Incoterm", ce.Incoterm,
		"Observaciones", ce.Observaciones,
		"TipoCambioUSD", ce.TipoCambioUSD,
		"TotalUSD", ce.TotalUSD,
	), inner)
	return fragment("cce20",
		"http://www.sat.gob.mx/ComercioExterior20",
		"http://www.sat.gob.mx/sitio_internet/cfd/ComercioExterior20/ComercioExterior20.xsd",
		xml)
}

// ── Impuestos locales ────────────────────────────────────────────────────────

// ImpuestoLocal retención o traslado estatal/municipal.
type ImpuestoLocal struct {
	Nombre  string // ImpLocRetenido / ImpLocTrasladado
	Tasa    string
	Importe string
}

// ImpuestosLocales complemento de impuestos locales 1.0.
type ImpuestosLocales struct {
	TotalDeRetenciones string
	TotalDeTraslados   string
	Retenciones        []ImpuestoLocal
	Traslados          []ImpuestoLocal
}

// Render implementa Complemento.
func (il ImpuestosLocales) Render() Fragment {
	var inner strings.Builder
	for _, r := range il.Retenciones {
		inner.WriteString(element("implocal:RetencionesLocales", attrs(
			"ImpLocRetenido", r.Nombre,
			"TasadeRetencion", r.Tasa,
			"Importe", r.Importe,
		), ""))
	}
	for _, t := range il.Traslados {
		inner.WriteString(element("implocal:TrasladosLocales", attrs(
			"ImpLocTrasladado", t.Nombre,
			"TasadeTraslado", t.Tasa,
			"Importe", t.Importe,
		), ""))
	}
	ret := il.TotalDeRetenciones
	if ret == "" {
		ret = "0.00"
	}
	tras := il.TotalDeTraslados
	if tras == "" {
		tras = "0.00"
	}
	xml := element("implocal:ImpuestosLocales", attrs(
		"version", "1.0",
		"TotaldeRetenciones", ret,
		"TotaldeTraslados", tras,
	), inner.String())
	return fragment("implocal",
		"http://www.sat.gob.mx/implocal",
		"http://www.sat.gob.mx/sitio_internet/cfd/implocal/implocal.xsd",
		xml)
}

// ── INE (procesos electorales) ───────────────────────────────────────────────

// INEEntidad entidad federativa y ámbito del gasto.
type INEEntidad struct {
	ClaveEntidad   string
	Ambito         string
	IdContabilidad []string
}

// INE complemento del Instituto Nacional Electoral 1.1.
type INE struct {
	TipoProceso    string
	TipoComite     string
	IdContabilidad string
	Entidades      []INEEntidad
}

// Render implementa Complemento.
func (i INE) Render() Fragment {
	var inner strings.Builder
	for _, e := range i.Entidades {
		var cont strings.Builder
		for _, id := range e.IdContabilidad {
			cont.WriteString(element("ine:Contabilidad", Attr("IdContabilidad", id), ""))
		}
		inner.WriteString(element("ine:Entidad", attrs(
			"ClaveEntidad", e.ClaveEntidad,
			"Ambito", e.Ambito,
		), cont.String()))
	}
	xml := element("ine:INE", attrs(
		"Version", "1.1",
		"TipoProceso", i.TipoProceso,
		"TipoComite", i.TipoComite,
		"IdContabilidad", i.IdContabilidad,
	), inner.String())
	return fragment("ine",
		"http://www.sat.gob.mx/ine",
		"http://www.sat.gob.mx/sitio_internet/cfd/ine/ine11.xsd",
		xml)
}

// ── IEDU (instituciones educativas privadas) ─────────────────────────────────

// IEDU datos del alumno para la deducción de colegiaturas.
type IEDU struct {
	NombreAlumno   string
	CURP           string
	NivelEducativo string
	AutRVOE        string
	RfcPago        string
}

// Render implementa Complemento.
func (e IEDU) Render() Fragment {
	xml := element("iedu:instEducativas", attrs(
		"version", "1.0",
		"nombreAlumno", e.NombreAlumno,
		"CURP", e.CURP,
		"nivelEducativo", e.NivelEducativo,
		"autRVOE", e.AutRVOE,
		"rfcPago", e.RfcPago,
	), "")
	return fragment("iedu",
		"http://www.sat.gob.mx/iedu",
		"http://www.sat.gob.mx/sitio_internet/cfd/iedu/iedu.xsd",
		xml)
}

// ── Detallista ───────────────────────────────────────────────────────────────

// Detallista complemento para el sector comercial (autoservicio).
type Detallista struct {
	DocumentStatus      string // ORIGINAL, COPY, REEMPLAZA, DELETE
	EntityType          string // INVOICE, DEBIT_NOTE, CREDIT_NOTE...
	ReferenceIdentifier string // número de orden de compra
	ReferenceDate       string
	BuyerGLN            string
	SellerGLN           string
	AlternatePartyID    string
}

// Render implementa Complemento.
func (d Detallista) Render() Fragment {
	status := d.DocumentStatus
	if status == "" {
		status = "ORIGINAL"
	}
	var inner strings.Builder
	inner.WriteString(element("detallista:requestForPaymentIdentification", "",
		element("detallista:entityType", "", Escape(d.EntityType))))
	if d.ReferenceIdentifier != "" {
		inner.WriteString(element("detallista:orderIdentification", "",
			element("detallista:referenceIdentification", `type="ON" `, Escape(d.ReferenceIdentifier))+
				optional(d.ReferenceDate, element("detallista:ReferenceDate", "", Escape(d.ReferenceDate)))))
	}
	if d.BuyerGLN != "" {
		inner.WriteString(element("detallista:buyer", "", element("detallista:gln", "", Escape(d.BuyerGLN))))
	}
	if d.SellerGLN != "" {
		seller := element("detallista:gln", "", Escape(d.SellerGLN))
		if d.AlternatePartyID != "" {
			seller += element("detallista:alternatePartyIdentification", `type="SELLER_ASSIGNED_IDENTIFIER_FOR_A_PARTY" `, Escape(d.AlternatePartyID))
		}
		inner.WriteString(element("detallista:seller", "", seller))
	}
	xml := element("detallista:detallista", attrs(
		"type", "SimpleInvoiceType",
		"contentVersion", "1.3.1",
		"documentStructureVersion", "AMC8.1",
		"documentStatus", status,
	), inner.String())
	return fragment("detallista",
		"http://www.sat.gob.mx/detallista",
		"http://www.sat.gob.mx/sitio_internet/cfd/detallista/detallista.xsd",
		xml)
}

// ── Leyendas fiscales ────────────────────────────────────────────────────────

// Leyenda texto de una disposición fiscal.
type Leyenda struct {
	DisposicionFiscal string
	Norma             string
	TextoLeyenda      string
}

// LeyendasFiscales complemento de leyendas fiscales 1.0.
type LeyendasFiscales struct {
	Leyendas []Leyenda
}

// Render implementa Complemento.
func (l LeyendasFiscales) Render() Fragment {
	var inner strings.Builder
	for _, ly := range l.Leyendas {
		inner.WriteString(element("leyendasFisc:Leyenda", attrs(
			"disposicionFiscal", ly.DisposicionFiscal,
			"norma", ly.Norma,
			"textoLeyenda", ly.TextoLeyenda,
		), ""))
	}
	xml := element("leyendasFisc:LeyendasFiscales", Attr("version", "1.0"), inner.String())
	return fragment("leyendasFisc",
		"http://www.sat.gob.mx/leyendasFiscales",
		"http://www.sat.gob.mx/sitio_internet/cfd/leyendasFiscales/leyendasFisc.xsd",
		xml)
}

// ── Servicios parciales de construcción ──────────────────────────────────────

// Inmueble domicilio de la obra.
type Inmueble struct {
	Calle        string
	NoExterior   string
	NoInterior   string
	Colonia      string
	Localidad    string
	Referencia   string
	Municipio    string
	Estado       string
	CodigoPostal string
}

// ServicioParcialConstruccion complemento con la licencia de construcción del inmueble.
type ServicioParcialConstruccion struct {
	NumPerLicoAut string
	Inmueble      Inmueble
}

// Render implementa Complemento.
func (s ServicioParcialConstruccion) Render() Fragment {
	in := s.Inmueble
	inmueble := element("servicioparcial:Inmueble", attrs(
		"Calle", in.Calle,
		"NoExterior", in.NoExterior,
		"NoInterior", in.NoInterior,
		"Colonia", in.Colonia,
		"Localidad", in.Localidad,
		"Referencia", in.Referencia,
		"Municipio", in.Municipio,
		"Estado", in.Estado,
		"CodigoPostal", in.CodigoPostal,
	), "")
	xml := element("servicioparcial:parcialesconstruccion", attrs(
		"Version", "1.0",
		"NumPerLicoAut", s.NumPerLicoAut,
	), inmueble)
	return fragment("servicioparcial",
		"http://www.sat.gob.mx/servicioparcialconstruccion",
		"http://www.sat.gob.mx/sitio_internet/cfd/servicioparcialconstruccion/servicioparcialconstruccion.xsd",
		xml)
}

func optional(cond, s string) string {
	if cond == "" {
		return ""
	}
	return s
}
