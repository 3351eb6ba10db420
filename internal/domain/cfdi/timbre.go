package cfdi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/pkg/xmlquery"
)

// VerificationBaseURL servicio público de verificación de CFDI del SAT.
const VerificationBaseURL = "https://verificacfdi.facturaelectronica.sat.gob.mx/default.aspx"

// TimbreFiscalDigital datos del timbre que el PAC agrega en cfdi:Complemento.
type TimbreFiscalDigital struct {
	Version          string
	UUID             string
	FechaTimbrado    string
	RfcProvCertif    string
	Leyenda          string
	SelloCFD         string
	NoCertificadoSAT string
	SelloSAT         string

	// Derivados.
	VerificationURL string
	CadenaOriginal  string
}

// CadenaOriginalTFD cadena original del complemento de timbre.
//
//	1.1: ||1.1|UUID|FechaTimbrado|RfcProvCertif|[Leyenda|]SelloCFD|NoCertificadoSAT||
//	1.0: ||1.0|UUID|FechaTimbrado|SelloCFD|NoCertificadoSAT||
func (t TimbreFiscalDigital) CadenaOriginalTFD() string {
	if t.Version == "1.0" {
		return "||1.0|" + t.UUID + "|" + t.FechaTimbrado + "|" + t.SelloCFD + "|" + t.NoCertificadoSAT + "||"
	}
	parts := []string{"1.1", t.UUID, t.FechaTimbrado, t.RfcProvCertif}
	if t.Leyenda != "" {
		parts = append(parts, t.Leyenda)
	}
	parts = append(parts, t.SelloCFD, t.NoCertificadoSAT)
	return "||" + strings.Join(parts, "|") + "||"
}

// ExtractTimbre localiza cfdi:Complemento en el XML timbrado y lee los atributos del
// tfd:TimbreFiscalDigital. No hace un parseo XML completo: tolera prefijos distintos.
func ExtractTimbre(stampedXML string) (TimbreFiscalDigital, error) {
	complemento := xmlquery.New(stampedXML).Find("Complemento", "")
	if complemento.Empty() {
		return TimbreFiscalDigital{}, fmt.Errorf("cfdi: el XML timbrado no contiene Complemento")
	}
	tfd := complemento.Find("TimbreFiscalDigital", "")
	if tfd.Empty() {
		return TimbreFiscalDigital{}, fmt.Errorf("cfdi: el Complemento no contiene TimbreFiscalDigital")
	}
	t := TimbreFiscalDigital{
		Version:          tfd.Get("Version", "1.1"),
		UUID:             strings.ToUpper(tfd.Get("UUID", "")),
		FechaTimbrado:    tfd.Get("FechaTimbrado", ""),
		RfcProvCertif:    tfd.Get("RfcProvCertif", ""),
		Leyenda:          tfd.Get("Leyenda", ""),
		SelloCFD:         tfd.Get("SelloCFD", ""),
		NoCertificadoSAT: tfd.Get("NoCertificadoSAT", ""),
		SelloSAT:         tfd.Get("SelloSAT", ""),
	}
	if t.UUID == "" {
		return t, fmt.Errorf("cfdi: TimbreFiscalDigital sin UUID")
	}
	return t, nil
}

// VerificationURL arma la URL del servicio de verificación (también usada en el QR).
// Los RFC van codificados: '&' y 'Ñ' son válidos en un RFC.
func (c *Comprobante) VerificationURL() string {
	sello := c.Timbre.SelloCFD
	if sello == "" {
		sello = c.Sello
	}
	if len(sello) > 8 {
		sello = sello[len(sello)-8:]
	}
	return VerificationBaseURL + "?&id=" + c.Timbre.UUID +
		"&re=" + url.QueryEscape(c.Emisor.Rfc) +
		"&rr=" + url.QueryEscape(c.Receptor.Rfc) +
		"&tt=" + c.Total +
		"&fe=" + sello
}

// ApplyTimbre incorpora el XML timbrado devuelto por el PAC: reemplaza c.XML, extrae el
// timbre y calcula los derivados. Si la extracción falla el XML queda guardado y los
// campos del timbre sin llenar.
func (c *Comprobante) ApplyTimbre(stampedXML string) error {
	c.XML = stampedXML
	t, err := ExtractTimbre(stampedXML)
	if err != nil {
		return err
	}
	c.Timbre = t
	c.Timbre.VerificationURL = c.VerificationURL()
	c.Timbre.CadenaOriginal = t.CadenaOriginalTFD()
	return nil
}
