// Package xsd valida comprobantes contra el esquema del anexo 20 con libxml2.
package xsd

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	xsdvalidate "github.com/terminalstatic/go-xsd-validate"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
)

var (
	initOnce sync.Once
	refs     sync.WaitGroup
)

// Validator conserva el esquema ya compilado; es seguro para uso concurrente.
type Validator struct {
	path    string
	handler *xsdvalidate.XsdHandler
	once    sync.Once
}

// NewValidator carga el XSD de schemaPath. Los xs:import remotos (catálogos del SAT)
// se resuelven al cargar.
func NewValidator(schemaPath string) (*Validator, error) {
	if _, err := os.Stat(schemaPath); err != nil {
		return nil, fmt.Errorf("archivo XSD no encontrado en '%s': %w", schemaPath, err)
	}
	initOnce.Do(func() {
		if err := xsdvalidate.Init(); err != nil {
			panic(err)
		}
	})

	handler, err := xsdvalidate.NewXsdHandlerUrl(schemaPath, xsdvalidate.ParsErrDefault)
	if err != nil {
		return nil, fmt.Errorf("error al cargar XSD '%s': %w", schemaPath, err)
	}
	refs.Add(1)
	return &Validator{path: schemaPath, handler: handler}, nil
}

// Validate valida xmlData. Las violaciones del esquema se devuelven envueltas en
// domain.ErrInvalidInput con todas las líneas reportadas.
func (v *Validator) Validate(xmlData []byte) error {
	err := v.handler.ValidateMem(xmlData, xsdvalidate.ValidErrDefault)
	if err == nil {
		return nil
	}
	var verr xsdvalidate.ValidationError
	if errors.As(err, &verr) {
		if len(verr.Errors) == 0 {
			return fmt.Errorf("%w: falla en la validación XSD: %v", domain.ErrInvalidInput, verr)
		}
		msgs := make([]string, 0, len(verr.Errors))
		for _, e := range verr.Errors {
			msgs = append(msgs, fmt.Sprintf("línea %d: %s", e.Line, strings.TrimSpace(e.Message)))
		}
		return fmt.Errorf("%w: falla en la validación XSD: %s", domain.ErrInvalidInput, strings.Join(msgs, "; "))
	}
	return fmt.Errorf("error de validación XSD: %w", err)
}

// Path ruta del esquema cargado.
func (v *Validator) Path() string { return v.path }

// Close libera el esquema.
func (v *Validator) Close() {
	v.once.Do(func() {
		v.handler.Free()
		refs.Done()
	})
}

// Cleanup libera libxml2 al apagar el proceso, después de cerrar todos los validadores.
func Cleanup() {
	refs.Wait()
	xsdvalidate.Cleanup()
}
