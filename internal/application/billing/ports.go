package billing

import (
	"context"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
)

// Sealer sella el comprobante con el CSD del emisor (sello.Service).
type Sealer interface {
	Sign(c *cfdi.Comprobante, csd *sello.CSD) error
}

// Stamper envía el comprobante sellado al PAC indicado (pac.Dispatcher).
type Stamper interface {
	Stamp(ctx context.Context, c *cfdi.Comprobante, provider string) (pac.Result, error)
}

// Canceller solicita la cancelación de un comprobante timbrado (pac.CancelDispatcher).
type Canceller interface {
	Cancel(ctx context.Context, c *cfdi.Comprobante, req pac.CancelRequest) (pac.Result, error)
}

// XMLStore guarda una copia en disco del XML timbrado (filestore.Store).
type XMLStore interface {
	Save(uuid, xml string) (string, error)
	Load(uuid string) (string, error)
}

// SchemaValidator valida el XML contra el XSD del anexo 20 (xsd.Validator).
type SchemaValidator interface {
	Validate(xmlData []byte) error
}

// CFDIPDFGenerator genera la representación impresa.
type CFDIPDFGenerator interface {
	GenerateCFDIPDF(ctx context.Context, c *cfdi.Comprobante) ([]byte, error)
}

// CancelNotifier recibe los comprobantes cancelados (events.Publisher).
type CancelNotifier interface {
	OnCancelled(c *cfdi.Comprobante)
}
