package repository

import (
	"context"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/entity"
)

// InvoiceFilter criterios de búsqueda de comprobantes. Campos vacíos no filtran.
type InvoiceFilter struct {
	RfcEmisor   string
	RfcReceptor string
	State       cfdi.State
	Limit       int
	Offset      int
}

// InvoiceRepository define el puerto de persistencia de los CFDI emitidos.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	// Update reescribe estado, XML y datos del timbre.
	Update(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	GetByUUID(ctx context.Context, uuid string) (*entity.Invoice, error)
	List(ctx context.Context, filter InvoiceFilter) ([]*entity.Invoice, error)
}
