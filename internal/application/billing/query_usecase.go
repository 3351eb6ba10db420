package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/entity"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
)

// QueryUseCase consultas de comprobantes ya persistidos.
type QueryUseCase struct {
	invoiceRepo repository.InvoiceRepository
	store       XMLStore // opcional
}

// NewQueryUseCase construye el caso de uso.
func NewQueryUseCase(invoiceRepo repository.InvoiceRepository, store XMLStore) *QueryUseCase {
	return &QueryUseCase{invoiceRepo: invoiceRepo, store: store}
}

// GetCFDI devuelve el comprobante con UUID uuid o domain.ErrNotFound.
func (uc *QueryUseCase) GetCFDI(ctx context.Context, uuid string) (*dto.CFDIResponse, error) {
	inv, err := loadByUUID(ctx, uc.invoiceRepo, uuid)
	if err != nil {
		return nil, err
	}
	return toResponse(inv), nil
}

// GetXML devuelve el XML timbrado. Prefiere la copia en disco y cae en la base.
func (uc *QueryUseCase) GetXML(ctx context.Context, uuid string) (string, error) {
	if uc.store != nil {
		xml, err := uc.store.Load(uuid)
		if err == nil {
			return xml, nil
		}
		if !errors.Is(err, domain.ErrNotFound) && !errors.Is(err, domain.ErrInvalidInput) {
			return "", fmt.Errorf("leer XML: %w", err)
		}
	}
	inv, err := loadByUUID(ctx, uc.invoiceRepo, uuid)
	if err != nil {
		return "", err
	}
	return inv.XML, nil
}

// ListCFDI lista comprobantes por emisor, receptor y estado.
func (uc *QueryUseCase) ListCFDI(ctx context.Context, f repository.InvoiceFilter, page dto.PageRequest) (*dto.CFDIListResponse, error) {
	page.DefaultPage()
	f.Limit, f.Offset = page.Limit, page.Offset
	list, err := uc.invoiceRepo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	out := &dto.CFDIListResponse{
		Items: make([]dto.CFDIResponse, 0, len(list)),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset},
	}
	for _, inv := range list {
		out.Items = append(out.Items, *toResponse(inv))
	}
	return out, nil
}

func loadByUUID(ctx context.Context, repo repository.InvoiceRepository, uuid string) (*entity.Invoice, error) {
	if uuid == "" {
		return nil, fmt.Errorf("%w: uuid vacío", domain.ErrInvalidInput)
	}
	inv, err := repo.GetByUUID(ctx, uuid)
	if err != nil {
		return nil, fmt.Errorf("obtener comprobante: %w", err)
	}
	if inv == nil {
		return nil, domain.ErrNotFound
	}
	return inv, nil
}

func toResponse(inv *entity.Invoice) *dto.CFDIResponse {
	resp := &dto.CFDIResponse{
		ID:              inv.ID,
		UUID:            inv.UUID,
		Serie:           inv.Serie,
		Folio:           inv.Folio,
		Fecha:           inv.Fecha,
		RfcEmisor:       inv.RfcEmisor,
		RfcReceptor:     inv.RfcReceptor,
		Total:           inv.Total,
		Moneda:          inv.Moneda,
		State:           string(inv.State),
		Message:         inv.StatusMessage,
		Provider:        inv.Provider,
		Test:            inv.Test,
		FechaTimbrado:   inv.FechaTimbrado,
		VerificationURL: inv.VerificationURL,
	}
	if inv.State == cfdi.StateStamped && resp.Message == "" {
		resp.Message = "timbrado " + inv.UUID
	}
	return resp
}
