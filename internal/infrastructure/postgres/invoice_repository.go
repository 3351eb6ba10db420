package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/entity"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// Querier operaciones comunes de *pgxpool.Pool y pgx.Tx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

const invoiceColumns = `id, uuid, serie, folio, fecha, rfc_emisor, rfc_receptor, nombre_receptor,
	tipo_comprobante, moneda, subtotal, total, provider, state, status_message, test,
	xml, digest, rfc_prov_certif, no_certificado_sat, fecha_timbrado, verification_url,
	created_at, updated_at`

// Create persiste el comprobante.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	query := `INSERT INTO cfdi_invoices (` + invoiceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
		        $17, $18, $19, $20, $21, $22, $23, $24)`
	_, err := r.q.Exec(ctx, query,
		inv.ID, nullIfEmpty(inv.UUID), inv.Serie, inv.Folio, inv.Fecha,
		inv.RfcEmisor, inv.RfcReceptor, inv.NombreReceptor,
		inv.TipoDeComprobante, inv.Moneda, inv.SubTotal, inv.Total,
		inv.Provider, string(inv.State), inv.StatusMessage, inv.Test,
		inv.XML, nullIfEmpty(inv.Digest), nullIfEmpty(inv.RfcProvCertif), nullIfEmpty(inv.NoCertificadoSAT),
		nullIfEmpty(inv.FechaTimbrado), nullIfEmpty(inv.VerificationURL),
		inv.CreatedAt, inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: uuid %s ya registrado", domain.ErrDuplicate, inv.UUID)
		}
		return fmt.Errorf("insert cfdi: %w", err)
	}
	return nil
}

// Update reescribe estado, XML y timbre. Los campos del timbre vacíos no borran
// los ya guardados.
func (r *InvoiceRepo) Update(ctx context.Context, inv *entity.Invoice) error {
	query := `
		UPDATE cfdi_invoices
		SET uuid               = COALESCE($2, uuid),
		    provider           = $3,
		    state              = $4,
		    status_message     = $5,
		    xml                = $6,
		    digest             = COALESCE($7, digest),
		    rfc_prov_certif    = COALESCE($8, rfc_prov_certif),
		    no_certificado_sat = COALESCE($9, no_certificado_sat),
		    fecha_timbrado     = COALESCE($10, fecha_timbrado),
		    verification_url   = COALESCE($11, verification_url),
		    updated_at         = $12
		WHERE id = $1`
	tag, err := r.q.Exec(ctx, query,
		inv.ID,
		nullIfEmpty(inv.UUID),
		inv.Provider,
		string(inv.State),
		inv.StatusMessage,
		inv.XML,
		nullIfEmpty(inv.Digest),
		nullIfEmpty(inv.RfcProvCertif),
		nullIfEmpty(inv.NoCertificadoSAT),
		nullIfEmpty(inv.FechaTimbrado),
		nullIfEmpty(inv.VerificationURL),
		inv.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: uuid %s ya registrado", domain.ErrDuplicate, inv.UUID)
		}
		return fmt.Errorf("update cfdi: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: cfdi %s", domain.ErrNotFound, inv.ID)
	}
	return nil
}

// GetByID devuelve nil, nil si no existe.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM cfdi_invoices WHERE id = $1`, id)
}

// GetByUUID busca por el UUID del timbre (sin distinguir mayúsculas).
func (r *InvoiceRepo) GetByUUID(ctx context.Context, id string) (*entity.Invoice, error) {
	return r.getOne(ctx, `SELECT `+invoiceColumns+` FROM cfdi_invoices WHERE uuid = $1`, strings.ToUpper(id))
}

func (r *InvoiceRepo) getOne(ctx context.Context, query string, arg string) (*entity.Invoice, error) {
	inv, err := scanInvoice(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get cfdi: %w", err)
	}
	return inv, nil
}

// List devuelve los comprobantes más recientes que cumplen el filtro.
func (r *InvoiceRepo) List(ctx context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	query, args := listQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list cfdi: %w", err)
	}
	defer rows.Close()
	var list []*entity.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan cfdi: %w", err)
		}
		list = append(list, inv)
	}
	return list, rows.Err()
}

// listQuery arma el SELECT con los filtros presentes y paginación acotada.
func listQuery(f repository.InvoiceFilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.RfcEmisor != "" {
		add("rfc_emisor = $%d", strings.ToUpper(f.RfcEmisor))
	}
	if f.RfcReceptor != "" {
		add("rfc_receptor = $%d", strings.ToUpper(f.RfcReceptor))
	}
	if f.State != "" {
		add("state = $%d", string(f.State))
	}
	limit := f.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := f.Offset
	if offset < 0 {
		offset = 0
	}

	var b strings.Builder
	b.WriteString("SELECT " + invoiceColumns + " FROM cfdi_invoices")
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	args = append(args, limit, offset)
	fmt.Fprintf(&b, " ORDER BY created_at DESC LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return b.String(), args
}

func scanInvoice(row pgx.Row) (*entity.Invoice, error) {
	var inv entity.Invoice
	var state string
	var id, digest, rfcPAC, noCertSAT, fechaT, verURL *string
	err := row.Scan(
		&inv.ID, &id, &inv.Serie, &inv.Folio, &inv.Fecha, &inv.RfcEmisor, &inv.RfcReceptor, &inv.NombreReceptor,
		&inv.TipoDeComprobante, &inv.Moneda, &inv.SubTotal, &inv.Total, &inv.Provider, &state, &inv.StatusMessage, &inv.Test,
		&inv.XML, &digest, &rfcPAC, &noCertSAT, &fechaT, &verURL,
		&inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	inv.State = cfdi.State(state)
	inv.UUID = derefStr(id)
	inv.Digest = derefStr(digest)
	inv.RfcProvCertif = derefStr(rfcPAC)
	inv.NoCertificadoSAT = derefStr(noCertSAT)
	inv.FechaTimbrado = derefStr(fechaT)
	inv.VerificationURL = derefStr(verURL)
	return &inv, nil
}
