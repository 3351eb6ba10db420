package cfdi

import (
	"fmt"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
)

// Versiones soportadas del anexo 20.
const (
	Version33 = "3.3"
	Version40 = "4.0"
)

// MaxDescripcion longitud máxima (en caracteres) de Concepto.Descripcion.
const MaxDescripcion = 900

const nsXSI = "http://www.w3.org/2001/XMLSchema-instance"

type schema struct {
	ns  string
	xsd string
}

var schemas = map[string]schema{
	Version33: {ns: "http://www.sat.gob.mx/cfd/3", xsd: "http://www.sat.gob.mx/sitio_internet/cfd/3/cfdv33.xsd"},
	Version40: {ns: "http://www.sat.gob.mx/cfd/4", xsd: "http://www.sat.gob.mx/sitio_internet/cfd/4/cfdv40.xsd"},
}

// NamespaceFor devuelve el namespace cfdi de la versión ("" si no está soportada).
func NamespaceFor(version string) string {
	return schemas[version].ns
}

// Validate revisa los campos obligatorios antes de ensamblar. No valida la
// consistencia numérica (ver CheckTotals).
func Validate(c *Comprobante) error {
	if c == nil {
		return fmt.Errorf("%w: comprobante nil", domain.ErrInvalidInput)
	}
	if _, ok := schemas[c.Version]; !ok {
		return fmt.Errorf("%w: versión CFDI no soportada %q", domain.ErrInvalidInput, c.Version)
	}
	var missing []string
	req := func(name, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	req("Fecha", c.Fecha)
	req("SubTotal", c.SubTotal)
	req("Total", c.Total)
	req("TipoDeComprobante", c.TipoDeComprobante)
	req("LugarExpedicion", c.LugarExpedicion)
	req("Emisor.Rfc", c.Emisor.Rfc)
	req("Receptor.Rfc", c.Receptor.Rfc)
	if len(c.Conceptos) == 0 {
		missing = append(missing, "Conceptos")
	}
	for i, con := range c.Conceptos {
		p := fmt.Sprintf("Conceptos[%d].", i)
		req(p+"ClaveProdServ", con.ClaveProdServ)
		req(p+"Cantidad", con.Cantidad)
		req(p+"ValorUnitario", con.ValorUnitario)
		req(p+"Importe", con.Importe)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: campos obligatorios faltantes: %s", domain.ErrInvalidInput, strings.Join(missing, ", "))
	}
	return nil
}

// Assemble serializa el comprobante al XML del anexo 20 y lo guarda en c.XML.
// Es determinista: dos llamadas sin cambios intermedios producen los mismos bytes.
func Assemble(c *Comprobante) (string, error) {
	if err := Validate(c); err != nil {
		return "", err
	}
	sc := schemas[c.Version]

	// ── Complementos: namespaces y schemaLocation por registro ──
	nsDecl := attrs("xmlns:cfdi", sc.ns, "xmlns:xsi", nsXSI)
	location := []string{sc.ns + " " + sc.xsd}
	seenPrefix := map[string]bool{"cfdi": true, "xsi": true}
	seenLocation := map[string]bool{location[0]: true}
	var complementos strings.Builder
	for _, comp := range c.Complementos {
		f := comp.Render()
		for _, ns := range f.Namespaces {
			if seenPrefix[ns.Prefix] {
				continue
			}
			seenPrefix[ns.Prefix] = true
			nsDecl += Attr("xmlns:"+ns.Prefix, ns.URI)
		}
		for _, loc := range f.SchemaLocation {
			if seenLocation[loc] {
				continue
			}
			seenLocation[loc] = true
			location = append(location, loc)
		}
		complementos.WriteString(f.XML)
	}

	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString("<cfdi:Comprobante ")
	b.WriteString(nsDecl)
	b.WriteString(Attr("xsi:schemaLocation", strings.Join(location, " ")))
	b.WriteString(attrs(
		"Version", c.Version,
		"Serie", c.Serie,
		"Folio", c.Folio,
		"Fecha", c.Fecha,
		"Sello", c.Sello,
		"FormaPago", c.FormaPago,
		"NoCertificado", c.NoCertificado,
		"Certificado", c.Certificado,
		"CondicionesDePago", c.CondicionesDePago,
		"SubTotal", c.SubTotal,
		"Descuento", c.Descuento,
		"Moneda", c.Moneda,
		"TipoCambio", c.TipoCambio,
		"Total", c.Total,
		"TipoDeComprobante", c.TipoDeComprobante,
		"Exportacion", c.Exportacion,
		"MetodoPago", c.MetodoPago,
		"LugarExpedicion", c.LugarExpedicion,
		"Confirmacion", c.Confirmacion,
	))
	b.WriteString(">")

	if r := c.CfdiRelacionados; r != nil && len(r.UUIDs) > 0 {
		var rel strings.Builder
		for _, u := range r.UUIDs {
			rel.WriteString(element("cfdi:CfdiRelacionado", Attr("UUID", u), ""))
		}
		b.WriteString(element("cfdi:CfdiRelacionados", Attr("TipoRelacion", r.TipoRelacion), rel.String()))
	}

	b.WriteString(element("cfdi:Emisor", attrs(
		"Rfc", c.Emisor.Rfc,
		"Nombre", c.Emisor.Nombre,
		"RegimenFiscal", c.Emisor.RegimenFiscal,
	), ""))
	b.WriteString(element("cfdi:Receptor", attrs(
		"Rfc", c.Receptor.Rfc,
		"Nombre", c.Receptor.Nombre,
		"DomicilioFiscalReceptor", c.Receptor.DomicilioFiscalReceptor,
		"ResidenciaFiscal", c.Receptor.ResidenciaFiscal,
		"NumRegIdTrib", c.Receptor.NumRegIdTrib,
		"RegimenFiscalReceptor", c.Receptor.RegimenFiscalReceptor,
		"UsoCFDI", c.Receptor.UsoCFDI,
	), ""))

	var conceptos strings.Builder
	for _, con := range c.Conceptos {
		conceptos.WriteString(renderConcepto(con))
	}
	b.WriteString(element("cfdi:Conceptos", "", conceptos.String()))

	b.WriteString(renderImpuestos(c))

	if complementos.Len() > 0 {
		b.WriteString(element("cfdi:Complemento", "", complementos.String()))
	}
	b.WriteString("</cfdi:Comprobante>")

	c.XML = b.String()
	return c.XML, nil
}

func renderConcepto(con Concepto) string {
	var inner strings.Builder
	if con.HasTaxes() {
		var imp strings.Builder
		if len(con.Traslados) > 0 {
			var t strings.Builder
			for _, tr := range con.Traslados {
				t.WriteString(element("cfdi:Traslado", taxAttrs(tr), ""))
			}
			imp.WriteString(element("cfdi:Traslados", "", t.String()))
		}
		if len(con.Retenciones) > 0 {
			var r strings.Builder
			for _, rt := range con.Retenciones {
				r.WriteString(element("cfdi:Retencion", taxAttrs(rt), ""))
			}
			imp.WriteString(element("cfdi:Retenciones", "", r.String()))
		}
		inner.WriteString(element("cfdi:Impuestos", "", imp.String()))
	}
	for _, ped := range con.InformacionAduanera {
		inner.WriteString(element("cfdi:InformacionAduanera", Attr("NumeroPedimento", ped), ""))
	}
	if con.CuentaPredial != "" {
		inner.WriteString(element("cfdi:CuentaPredial", Attr("Numero", con.CuentaPredial), ""))
	}
	return element("cfdi:Concepto", attrs(
		"ClaveProdServ", con.ClaveProdServ,
		"NoIdentificacion", con.NoIdentificacion,
		"Cantidad", con.Cantidad,
		"ClaveUnidad", con.ClaveUnidad,
		"Unidad", con.Unidad,
		"Descripcion", truncateRunes(con.Descripcion, MaxDescripcion),
		"ValorUnitario", con.ValorUnitario,
		"Importe", con.Importe,
		"Descuento", con.Descuento,
		"ObjetoImp", con.ObjetoImp,
	), inner.String())
}

func taxAttrs(t Impuesto) string {
	return attrs(
		"Base", t.Base,
		"Impuesto", t.Impuesto,
		"TipoFactor", t.TipoFactor,
		"TasaOCuota", t.TasaOCuota,
		"Importe", t.Importe,
	)
}

// requiresEmptyTaxSummary tipos de comprobante que llevan cfdi:Impuestos aun sin impuestos.
var requiresEmptyTaxSummary = map[string]bool{"I": true, "E": true, "N": true}

// renderImpuestos emite el resumen del comprobante: con colecciones si existen, vacío
// para los tipos I/E/N, y nada en otro caso.
func renderImpuestos(c *Comprobante) string {
	imp := c.Impuestos
	totals := attrs(
		"TotalImpuestosRetenidos", imp.TotalImpuestosRetenidos,
		"TotalImpuestosTrasladados", imp.TotalImpuestosTrasladados,
	)
	if imp.Empty() {
		if requiresEmptyTaxSummary[c.TipoDeComprobante] {
			return element("cfdi:Impuestos", totals, "")
		}
		return ""
	}
	var inner strings.Builder
	if len(imp.Retenciones) > 0 {
		var r strings.Builder
		for _, rt := range imp.Retenciones {
			r.WriteString(element("cfdi:Retencion", attrs("Impuesto", rt.Impuesto, "Importe", rt.Importe), ""))
		}
		inner.WriteString(element("cfdi:Retenciones", "", r.String()))
	}
	if len(imp.Traslados) > 0 {
		var t strings.Builder
		for _, tr := range imp.Traslados {
			t.WriteString(element("cfdi:Traslado", taxAttrs(tr), ""))
		}
		inner.WriteString(element("cfdi:Traslados", "", t.String()))
	}
	return element("cfdi:Impuestos", totals, inner.String())
}
