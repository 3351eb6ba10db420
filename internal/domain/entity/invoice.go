package entity

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/pkg/xmlquery"
)

// Invoice registro persistido de un CFDI. El UUID del timbre es el identificador
// externo; ID es interno y existe desde antes del timbrado.
type Invoice struct {
	ID                string
	UUID              string
	Serie             string
	Folio             string
	Fecha             string
	RfcEmisor         string
	RfcReceptor       string
	NombreReceptor    string
	TipoDeComprobante string
	Moneda            string
	SubTotal          decimal.Decimal
	Total             decimal.Decimal
	Provider          string
	State             cfdi.State
	StatusMessage     string
	Test              bool
	XML               string
	Digest            string // SHA-256 de la forma C14N del XML timbrado
	RfcProvCertif     string
	NoCertificadoSAT  string
	FechaTimbrado     string
	VerificationURL   string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewInvoice copia del comprobante los campos que se consultan sin abrir el XML.
// Los importes mal formados quedan en cero.
func NewInvoice(c *cfdi.Comprobante) *Invoice {
	now := time.Now().UTC()
	inv := &Invoice{CreatedAt: now}
	inv.Refresh(c)
	return inv
}

// Refresh actualiza el registro con el estado actual del comprobante.
func (i *Invoice) Refresh(c *cfdi.Comprobante) {
	i.UUID = c.Timbre.UUID
	i.Serie = c.Serie
	i.Folio = c.Folio
	i.Fecha = c.Fecha
	i.RfcEmisor = c.Emisor.Rfc
	i.RfcReceptor = c.Receptor.Rfc
	i.NombreReceptor = c.Receptor.Nombre
	i.TipoDeComprobante = c.TipoDeComprobante
	i.Moneda = c.Moneda
	i.SubTotal, _ = decimal.NewFromString(c.SubTotal)
	i.Total, _ = decimal.NewFromString(c.Total)
	i.Provider = c.Provider
	i.State = c.State
	i.StatusMessage = c.StatusMessage
	i.Test = c.Test
	i.XML = c.XML
	i.RfcProvCertif = c.Timbre.RfcProvCertif
	i.NoCertificadoSAT = c.Timbre.NoCertificadoSAT
	i.FechaTimbrado = c.Timbre.FechaTimbrado
	i.VerificationURL = c.Timbre.VerificationURL
	i.UpdatedAt = time.Now().UTC()
}

// Comprobante reconstruye el comprobante desde el registro y el XML almacenado. Sólo
// se recuperan los datos necesarios para cancelar o representar: encabezado, emisor,
// receptor, totales y timbre. Los conceptos quedan en el XML.
func (i *Invoice) Comprobante() (*cfdi.Comprobante, error) {
	c := cfdi.New()
	c.Serie = i.Serie
	c.Folio = i.Folio
	c.Fecha = i.Fecha
	c.Emisor.Rfc = i.RfcEmisor
	c.Receptor.Rfc = i.RfcReceptor
	c.Receptor.Nombre = i.NombreReceptor
	c.TipoDeComprobante = i.TipoDeComprobante
	c.Moneda = i.Moneda
	c.SubTotal = i.SubTotal.StringFixed(2)
	c.Total = i.Total.StringFixed(2)
	c.Provider = i.Provider
	c.State = i.State
	c.StatusMessage = i.StatusMessage
	c.Test = i.Test
	c.XML = i.XML
	fillFromXML(c, i.XML)
	if i.UUID == "" {
		return c, nil
	}
	if err := c.ApplyTimbre(i.XML); err != nil {
		return nil, err
	}
	return c, nil
}

// FromXML arma un registro sin ID a partir de un XML sellado o timbrado, por ejemplo
// uno guardado en disco. El estado queda stamped si trae TimbreFiscalDigital.
func FromXML(xml string) (*Invoice, error) {
	root := xmlquery.New(xml).Find("Comprobante", "")
	if root.Empty() {
		return nil, fmt.Errorf("%w: el documento no es un CFDI", domain.ErrInvalidInput)
	}
	receptor := root.Find("Receptor", "")
	inv := &Invoice{
		Serie:             root.Get("Serie", ""),
		Folio:             root.Get("Folio", ""),
		Fecha:             root.Get("Fecha", ""),
		RfcEmisor:         root.Find("Emisor", "").Get("Rfc", ""),
		RfcReceptor:       receptor.Get("Rfc", ""),
		NombreReceptor:    receptor.Get("Nombre", ""),
		TipoDeComprobante: root.Get("TipoDeComprobante", ""),
		Moneda:            root.Get("Moneda", ""),
		State:             cfdi.StateSigned,
		XML:               xml,
	}
	inv.SubTotal, _ = decimal.NewFromString(root.Get("SubTotal", "0"))
	inv.Total, _ = decimal.NewFromString(root.Get("Total", "0"))
	if t, err := cfdi.ExtractTimbre(xml); err == nil && t.UUID != "" {
		inv.UUID = t.UUID
		inv.State = cfdi.StateStamped
		inv.RfcProvCertif = t.RfcProvCertif
		inv.NoCertificadoSAT = t.NoCertificadoSAT
		inv.FechaTimbrado = t.FechaTimbrado
	}
	return inv, nil
}

// fillFromXML completa los atributos que no se guardan en columnas propias.
func fillFromXML(c *cfdi.Comprobante, xml string) {
	root := xmlquery.New(xml).Find("Comprobante", "")
	if root.Empty() {
		return
	}
	c.Version = root.Get("Version", c.Version)
	c.Sello = root.Get("Sello", "")
	c.NoCertificado = root.Get("NoCertificado", "")
	c.FormaPago = root.Get("FormaPago", "")
	c.MetodoPago = root.Get("MetodoPago", "")
	c.Descuento = root.Get("Descuento", "")
	c.LugarExpedicion = root.Get("LugarExpedicion", "")
	c.Exportacion = root.Get("Exportacion", "")

	emisor := root.Find("Emisor", "")
	c.Emisor.Nombre = emisor.Get("Nombre", "")
	c.Emisor.RegimenFiscal = emisor.Get("RegimenFiscal", "")

	receptor := root.Find("Receptor", "")
	c.Receptor.UsoCFDI = receptor.Get("UsoCFDI", "")
	c.Receptor.RegimenFiscalReceptor = receptor.Get("RegimenFiscalReceptor", "")
	c.Receptor.DomicilioFiscalReceptor = receptor.Get("DomicilioFiscalReceptor", "")

	impuestos := root.Find("Impuestos", "")
	c.Impuestos.TotalImpuestosTrasladados = impuestos.Get("TotalImpuestosTrasladados", "")
	c.Impuestos.TotalImpuestosRetenidos = impuestos.Get("TotalImpuestosRetenidos", "")
}
