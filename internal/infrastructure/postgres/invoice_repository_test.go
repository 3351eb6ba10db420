package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
)

func TestListQuery_SinFiltros(t *testing.T) {
	q, args := listQuery(repository.InvoiceFilter{})
	assert.NotContains(t, q, "WHERE")
	assert.Contains(t, q, "ORDER BY created_at DESC LIMIT $1 OFFSET $2")
	assert.Equal(t, []any{50, 0}, args, "límite por defecto")
}

func TestListQuery_FiltrosNumeradosEnOrden(t *testing.T) {
	q, args := listQuery(repository.InvoiceFilter{
		RfcEmisor: "aaa010101aaa",
		State:     cfdi.StateStamped,
		Limit:     10,
		Offset:    20,
	})
	assert.Contains(t, q, "WHERE rfc_emisor = $1 AND state = $2")
	assert.Contains(t, q, "LIMIT $3 OFFSET $4")
	assert.Equal(t, []any{"AAA010101AAA", "STAMPED", 10, 20}, args)
}

func TestListQuery_LimiteAcotado(t *testing.T) {
	_, args := listQuery(repository.InvoiceFilter{Limit: 5000, Offset: -3})
	assert.Equal(t, []any{50, 0}, args)
}

func TestNullIfEmpty(t *testing.T) {
	assert.Nil(t, nullIfEmpty(""))
	v := nullIfEmpty("x")
	if assert.NotNil(t, v) {
		assert.Equal(t, "x", *v)
		assert.Equal(t, "x", derefStr(v))
	}
	assert.Equal(t, "", derefStr(nil))
}
