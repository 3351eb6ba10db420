package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound     = errors.New("recurso no encontrado")
	ErrInvalidInput = errors.New("entrada inválida")
	ErrDuplicate    = errors.New("recurso duplicado")
	ErrConflict     = errors.New("conflicto con el estado actual")

	// ErrNotSigned se devuelve al intentar timbrar un comprobante que aún no tiene sello.
	ErrNotSigned = errors.New("el comprobante no ha sido sellado")
	// ErrNotStamped se devuelve al intentar cancelar un comprobante sin timbre.
	ErrNotStamped = errors.New("el comprobante no ha sido timbrado")
	// ErrTestProviderOnProduction indica un error de configuración: se eligió el PAC de
	// pruebas para un comprobante real. Es el único caso en que el timbrado falla con error.
	ErrTestProviderOnProduction = errors.New("el PAC de pruebas no puede timbrar comprobantes reales")
)
