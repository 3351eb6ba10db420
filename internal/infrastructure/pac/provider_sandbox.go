package pac

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
)

// Valores fijos de los timbres de prueba.
const (
	TestNoCertificadoSAT = "00000000000000000000"
	TestSelloSAT         = "SELLO_SAT_PRUEBA"
	TestRfcProvCertif    = "SAT970701NN3"

	tfdNS  = "http://www.sat.gob.mx/TimbreFiscalDigital"
	tfdXSD = "http://www.sat.gob.mx/sitio_internet/cfd/TimbreFiscalDigital/TimbreFiscalDigitalv11.xsd"
)

// Sandbox PAC de pruebas: no usa la red, genera un timbre sintético. Sólo acepta
// comprobantes marcados como de pruebas.
type Sandbox struct {
	now func() time.Time
}

// NewSandbox crea el PAC de pruebas.
func NewSandbox() *Sandbox {
	return &Sandbox{now: time.Now}
}

func (p *Sandbox) ID() string { return ProviderTest }

// Stamp inserta un TimbreFiscalDigital 1.1 con UUID aleatorio dentro de
// cfdi:Complemento (lo crea si no existe).
func (p *Sandbox) Stamp(_ context.Context, c *cfdi.Comprobante) (string, error) {
	if !c.Test {
		return "", domain.ErrTestProviderOnProduction
	}
	doc := etree.NewDocument()
	if err := doc.ReadFromString(c.XML); err != nil {
		return "", &RejectionError{Provider: ProviderTest, Body: "XML mal formado: " + err.Error()}
	}
	root := doc.Root()
	if root == nil || root.Tag != "Comprobante" {
		return "", &RejectionError{Provider: ProviderTest, Body: "el nodo raíz no es cfdi:Comprobante"}
	}
	prefix := root.Space
	if prefix == "" {
		prefix = "cfdi"
	}
	comp := root.SelectElement("Complemento")
	if comp == nil {
		comp = etree.NewElement(prefix + ":Complemento")
		if addenda := root.SelectElement("Addenda"); addenda != nil {
			root.InsertChildAt(addenda.Index(), comp)
		} else {
			root.AddChild(comp)
		}
	}

	tfd := comp.CreateElement("tfd:TimbreFiscalDigital")
	tfd.CreateAttr("xmlns:tfd", tfdNS)
	tfd.CreateAttr("xsi:schemaLocation", tfdNS+" "+tfdXSD)
	tfd.CreateAttr("Version", "1.1")
	tfd.CreateAttr("UUID", strings.ToUpper(uuid.NewString()))
	tfd.CreateAttr("FechaTimbrado", p.now().Format("2006-01-02T15:04:05"))
	tfd.CreateAttr("RfcProvCertif", TestRfcProvCertif)
	tfd.CreateAttr("SelloCFD", c.Sello)
	tfd.CreateAttr("NoCertificadoSAT", TestNoCertificadoSAT)
	tfd.CreateAttr("SelloSAT", TestSelloSAT)

	out, err := doc.WriteToString()
	if err != nil {
		return "", fmt.Errorf("pac test: serializar XML: %w", err)
	}
	return out, nil
}

// Cancel los timbres de prueba se cancelan sin costo.
func (p *Sandbox) Cancel(_ context.Context, _ *cfdi.Comprobante, _ CancelRequest) (Result, error) {
	return Result{OK: true, Message: "cancelación de prueba"}, nil
}
