package postgres

import (
	"context"
	"fmt"
)

// Schema DDL de la tabla de comprobantes. Idempotente.
const Schema = `
CREATE TABLE IF NOT EXISTS cfdi_invoices (
	id                 UUID PRIMARY KEY,
	uuid               VARCHAR(36) UNIQUE,
	serie              VARCHAR(25) NOT NULL DEFAULT '',
	folio              VARCHAR(40) NOT NULL DEFAULT '',
	fecha              VARCHAR(19) NOT NULL,
	rfc_emisor         VARCHAR(13) NOT NULL,
	rfc_receptor       VARCHAR(13) NOT NULL,
	nombre_receptor    TEXT NOT NULL DEFAULT '',
	tipo_comprobante   VARCHAR(1) NOT NULL,
	moneda             VARCHAR(3) NOT NULL DEFAULT 'MXN',
	subtotal           NUMERIC(18, 6) NOT NULL DEFAULT 0,
	total              NUMERIC(18, 6) NOT NULL DEFAULT 0,
	provider           VARCHAR(10) NOT NULL DEFAULT '',
	state              VARCHAR(12) NOT NULL,
	status_message     TEXT NOT NULL DEFAULT '',
	test               BOOLEAN NOT NULL DEFAULT FALSE,
	xml                TEXT NOT NULL,
	digest             VARCHAR(64),
	rfc_prov_certif    VARCHAR(13),
	no_certificado_sat VARCHAR(20),
	fecha_timbrado     VARCHAR(19),
	verification_url   TEXT,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_cfdi_invoices_emisor ON cfdi_invoices (rfc_emisor, created_at DESC);
CREATE INDEX IF NOT EXISTS idx_cfdi_invoices_state ON cfdi_invoices (state);
`

// Migrate crea la tabla si no existe.
func Migrate(ctx context.Context, q Querier) error {
	if _, err := q.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("migrar esquema: %w", err)
	}
	return nil
}
