package billing_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/application/billing"
	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
)

// stampedInRepo timbra con el PAC de pruebas y devuelve el UUID.
func stampedInRepo(t *testing.T, repo *memRepo) string {
	t.Helper()
	resp, err := newCreateUseCase(repo, sandboxDispatcher(), nil, nil).CreateCFDI(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, string(cfdi.StateStamped), resp.State)
	return resp.UUID
}

func newCancelUseCase(repo *memRepo, n billing.CancelNotifier) *billing.CancelCFDIUseCase {
	d := pac.NewCancelDispatcher(zerolog.Nop(), nil, nil, pac.NewSandbox())
	return billing.NewCancelCFDIUseCase(repo, d, n, zerolog.Nop())
}

func TestCancelCFDI_CertificadoDePruebaSeCancela(t *testing.T) {
	repo := newMemRepo()
	uuid := stampedInRepo(t, repo)
	n := &notifier{}

	resp, err := newCancelUseCase(repo, n).CancelCFDI(context.Background(), uuid, dto.CancelCFDIRequest{Motivo: "02"})
	require.NoError(t, err)
	assert.True(t, resp.OK)
	assert.Equal(t, string(cfdi.StateCancelled), resp.State)
	assert.Equal(t, []string{uuid}, n.cancelled)

	inv, _ := repo.GetByUUID(context.Background(), uuid)
	assert.Equal(t, cfdi.StateCancelled, inv.State)
}

func TestCancelCFDI_YaCanceladoEsConflicto(t *testing.T) {
	repo := newMemRepo()
	uuid := stampedInRepo(t, repo)
	uc := newCancelUseCase(repo, nil)

	_, err := uc.CancelCFDI(context.Background(), uuid, dto.CancelCFDIRequest{Motivo: "02"})
	require.NoError(t, err)
	_, err = uc.CancelCFDI(context.Background(), uuid, dto.CancelCFDIRequest{Motivo: "02"})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestCancelCFDI_MotivoInvalido(t *testing.T) {
	repo := newMemRepo()
	uuid := stampedInRepo(t, repo)

	_, err := newCancelUseCase(repo, nil).CancelCFDI(context.Background(), uuid, dto.CancelCFDIRequest{Motivo: "01"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCancelCFDI_NoExiste(t *testing.T) {
	_, err := newCancelUseCase(newMemRepo(), nil).CancelCFDI(context.Background(),
		"6F8A1B2C-3D4E-4F50-8A9B-0C1D2E3F4A5B", dto.CancelCFDIRequest{Motivo: "02"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
