package billing_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/application/billing"
	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
)

func TestQuery_GetCFDIYXML(t *testing.T) {
	repo := newMemRepo()
	uuid := stampedInRepo(t, repo)
	uc := billing.NewQueryUseCase(repo, nil)

	resp, err := uc.GetCFDI(context.Background(), uuid)
	require.NoError(t, err)
	assert.Equal(t, uuid, resp.UUID)
	assert.Equal(t, "timbrado "+uuid, resp.Message)

	xml, err := uc.GetXML(context.Background(), uuid)
	require.NoError(t, err)
	assert.Contains(t, xml, uuid)
}

func TestQuery_XMLPrefiereElArchivo(t *testing.T) {
	repo := newMemRepo()
	uuid := stampedInRepo(t, repo)
	store := &memStore{files: map[string]string{uuid: "<desde-disco/>"}}

	xml, err := billing.NewQueryUseCase(repo, store).GetXML(context.Background(), uuid)
	require.NoError(t, err)
	assert.Equal(t, "<desde-disco/>", xml)
}

func TestQuery_NoEncontrado(t *testing.T) {
	uc := billing.NewQueryUseCase(newMemRepo(), &memStore{files: map[string]string{}})
	_, err := uc.GetCFDI(context.Background(), "6F8A1B2C-3D4E-4F50-8A9B-0C1D2E3F4A5B")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.GetXML(context.Background(), "6F8A1B2C-3D4E-4F50-8A9B-0C1D2E3F4A5B")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = uc.GetCFDI(context.Background(), "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestQuery_ListCFDIAplicaPaginaPorDefecto(t *testing.T) {
	repo := newMemRepo()
	stampedInRepo(t, repo)
	stampedInRepo(t, repo)

	out, err := billing.NewQueryUseCase(repo, nil).ListCFDI(context.Background(),
		repository.InvoiceFilter{State: cfdi.StateStamped}, dto.PageRequest{})
	require.NoError(t, err)
	assert.Len(t, out.Items, 2)
	assert.Equal(t, 20, out.Page.Limit)
}
