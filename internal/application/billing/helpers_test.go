package billing_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/cfdi-timbrado/internal/application/billing"
	"github.com/jhoicas/cfdi-timbrado/internal/application/dto"
	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/entity"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/repository"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/sello"
)

// memRepo InvoiceRepository en memoria.
type memRepo struct {
	mu      sync.Mutex
	byID    map[string]entity.Invoice
	seq     int
	creates int
	updates int
}

func newMemRepo() *memRepo { return &memRepo{byID: map[string]entity.Invoice{}} }

func (r *memRepo) Create(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	if inv.ID == "" {
		inv.ID = fmt.Sprintf("inv-%d", r.seq)
	}
	r.byID[inv.ID] = *inv
	r.creates++
	return nil
}

func (r *memRepo) Update(_ context.Context, inv *entity.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	r.byID[inv.ID] = *inv
	r.updates++
	return nil
}

func (r *memRepo) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if inv, ok := r.byID[id]; ok {
		return &inv, nil
	}
	return nil, nil
}

func (r *memRepo) GetByUUID(_ context.Context, uuid string) (*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inv := range r.byID {
		if inv.UUID != "" && strings.EqualFold(inv.UUID, uuid) {
			inv := inv
			return &inv, nil
		}
	}
	return nil, nil
}

func (r *memRepo) List(_ context.Context, f repository.InvoiceFilter) ([]*entity.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entity.Invoice
	for _, inv := range r.byID {
		if f.State != "" && inv.State != f.State {
			continue
		}
		inv := inv
		out = append(out, &inv)
	}
	return out, nil
}

// memStore XMLStore en memoria.
type memStore struct{ files map[string]string }

func (s *memStore) Save(uuid, xml string) (string, error) {
	s.files[strings.ToUpper(uuid)] = xml
	return "/tmp/" + uuid + ".xml", nil
}

func (s *memStore) Load(uuid string) (string, error) {
	if xml, ok := s.files[strings.ToUpper(uuid)]; ok {
		return xml, nil
	}
	return "", domain.ErrNotFound
}

// stubStamper devuelve siempre el mismo resultado sin tocar el comprobante.
type stubStamper struct {
	res pac.Result
	err error
}

func (s stubStamper) Stamp(_ context.Context, c *cfdi.Comprobante, _ string) (pac.Result, error) {
	if s.err == nil && !s.res.OK {
		c.Fail(s.res.Message)
	}
	return s.res, s.err
}

type rejectValidator struct{ err error }

func (v rejectValidator) Validate([]byte) error { return v.err }

type notifier struct{ cancelled []string }

func (n *notifier) OnCancelled(c *cfdi.Comprobante) { n.cancelled = append(n.cancelled, c.Timbre.UUID) }

// sandboxDispatcher dispatcher real con el PAC de pruebas.
func sandboxDispatcher() *pac.Dispatcher {
	return pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{}, pac.NewSandbox())
}

func stampConfig() billing.StampConfig {
	return billing.StampConfig{Issuer: cfditest.Issuer(), Provider: pac.ProviderTest}
}

func newCreateUseCase(repo *memRepo, stamper billing.Stamper, store billing.XMLStore, v billing.SchemaValidator) *billing.CreateCFDIUseCase {
	return billing.NewCreateCFDIUseCase(repo, sello.NewService(zerolog.Nop()), stamper, store, v, stampConfig(), zerolog.Nop())
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// request factura de 2 x 50.00 con IVA 16% = 116.00.
func request() dto.CreateCFDIRequest {
	return dto.CreateCFDIRequest{
		Serie:             "A",
		Folio:             "100",
		Fecha:             cfditest.Fecha,
		TipoDeComprobante: "I",
		FormaPago:         "01",
		MetodoPago:        "PUE",
		Receptor: dto.ReceptorRequest{
			Rfc:             cfditest.RfcReceptor,
			Nombre:          "PUBLICO EN GENERAL",
			DomicilioFiscal: "45079",
			RegimenFiscal:   "616",
			UsoCFDI:         "S01",
		},
		Conceptos: []dto.ConceptoRequest{{
			ClaveProdServ: "01010101",
			Cantidad:      dec("2"),
			ClaveUnidad:   "H87",
			Descripcion:   "Pieza",
			ValorUnitario: dec("50"),
			Traslados:     []dto.TaxRequest{{Impuesto: "002", TipoFactor: "Tasa", TasaOCuota: dec("0.16")}},
		}},
	}
}
