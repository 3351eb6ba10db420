package billing

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-timbrado/pkg/sat"
)

// CancelCFDIUseCase solicita la cancelación de comprobantes timbrados.
type CancelCFDIUseCase struct {
	invoiceRepo repository.InvoiceRepository
	canceller   Canceller
	notifier    CancelNotifier // opcional
	log         zerolog.Logger
}

// NewCancelCFDIUseCase construye el caso de uso. notifier puede ser nil.
func NewCancelCFDIUseCase(
	invoiceRepo repository.InvoiceRepository,
	canceller Canceller,
	notifier CancelNotifier,
	log zerolog.Logger,
) *CancelCFDIUseCase {
	return &CancelCFDIUseCase{
		invoiceRepo: invoiceRepo,
		canceller:   canceller,
		notifier:    notifier,
		log:         log.With().Str("component", "billing").Logger(),
	}
}

// CancelCFDI valida el motivo, pide la cancelación al PAC que certificó el timbre y
// guarda el resultado. Un rechazo del PAC viaja en la respuesta con OK=false.
//
// Retorna:
//   - domain.ErrNotFound     si el UUID no existe.
//   - domain.ErrInvalidInput si el motivo no es válido.
//   - domain.ErrConflict     si el comprobante ya está cancelado o no fue timbrado.
func (uc *CancelCFDIUseCase) CancelCFDI(ctx context.Context, uuid string, in dto.CancelCFDIRequest) (*dto.CancelCFDIResponse, error) {
	if err := sat.ValidateMotivoCancelacion(in.Motivo, in.FolioSustitucion); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidInput, err)
	}
	inv, err := loadByUUID(ctx, uc.invoiceRepo, uuid)
	if err != nil {
		return nil, err
	}
	switch inv.State {
	case cfdi.StateCancelled:
		return nil, fmt.Errorf("%w: el comprobante %s ya está cancelado", domain.ErrConflict, inv.UUID)
	case cfdi.StateStamped:
	default:
		return nil, fmt.Errorf("%w: %v (estado %s)", domain.ErrConflict, domain.ErrNotStamped, inv.State)
	}

	c, err := inv.Comprobante()
	if err != nil {
		return nil, fmt.Errorf("reconstruir comprobante: %w", err)
	}
	res, err := uc.canceller.Cancel(ctx, c, pac.CancelRequest{Motivo: in.Motivo, FolioSustitucion: in.FolioSustitucion})
	if err != nil {
		return nil, err
	}

	inv.Refresh(c)
	if err := uc.invoiceRepo.Update(ctx, inv); err != nil {
		return nil, fmt.Errorf("actualizar comprobante: %w", err)
	}
	if res.OK && uc.notifier != nil {
		uc.notifier.OnCancelled(c)
	}
	uc.log.Info().Str("uuid", inv.UUID).Bool("ok", res.OK).Str("motivo", in.Motivo).Msg("solicitud de cancelación procesada")

	return &dto.CancelCFDIResponse{
		UUID:    inv.UUID,
		OK:      res.OK,
		Message: res.Message,
		State:   string(inv.State),
	}, nil
}
