package billing

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
)

// PDFUseCase genera la representación impresa (PDF) de un comprobante.
// Sólo se permite para comprobantes con timbre (timbrados o cancelados).
type PDFUseCase struct {
	invoiceRepo repository.InvoiceRepository
	generator   CFDIPDFGenerator
}

// NewPDFUseCase construye el caso de uso inyectando sus dependencias.
func NewPDFUseCase(invoiceRepo repository.InvoiceRepository, generator CFDIPDFGenerator) *PDFUseCase {
	return &PDFUseCase{invoiceRepo: invoiceRepo, generator: generator}
}

// DownloadPDF genera el PDF del comprobante uuid.
//
// Retorna:
//   - (pdfBytes, filename, nil)  si todo sale bien.
//   - domain.ErrNotFound         si el comprobante no existe.
//   - domain.ErrInvalidInput     si el comprobante no tiene timbre.
func (uc *PDFUseCase) DownloadPDF(ctx context.Context, uuid string) (pdfBytes []byte, filename string, err error) {
	// ── 1. Cargar comprobante ─────────────────────────────────────────────────
	inv, err := loadByUUID(ctx, uc.invoiceRepo, uuid)
	if err != nil {
		return nil, "", err
	}

	// ── 2. Validar que tenga timbre ───────────────────────────────────────────
	if inv.State != cfdi.StateStamped && inv.State != cfdi.StateCancelled {
		return nil, "", fmt.Errorf("%w: el comprobante está en estado %s, sólo se imprime con timbre",
			domain.ErrInvalidInput, inv.State)
	}

	// ── 3. Reconstruir desde el XML ───────────────────────────────────────────
	c, err := inv.Comprobante()
	if err != nil {
		return nil, "", fmt.Errorf("pdf: reconstruir comprobante: %w", err)
	}

	// ── 4. Generar PDF ────────────────────────────────────────────────────────
	pdfBytes, err = uc.generator.GenerateCFDIPDF(ctx, c)
	if err != nil {
		return nil, "", fmt.Errorf("pdf: generación fallida: %w", err)
	}

	filename = fmt.Sprintf("cfdi_%s.pdf", inv.UUID)
	if sf := strings.TrimSpace(inv.Serie + inv.Folio); sf != "" {
		filename = fmt.Sprintf("cfdi_%s_%s.pdf", sf, inv.UUID)
	}
	return pdfBytes, filename, nil
}
