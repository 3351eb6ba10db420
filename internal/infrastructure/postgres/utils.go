package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// uniqueViolation código SQLSTATE de clave duplicada. En cfdi_invoices sólo
// puede dispararlo la columna uuid (un timbre registrado dos veces).
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// nullIfEmpty guarda NULL en las columnas del timbre mientras el comprobante no
// está timbrado; así el índice único de uuid admite varios pendientes.
func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefStr(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
