package pac_test

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi/cfditest"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
)

const (
	stampUUID     = "6F8A1B2C-3D4E-4F50-8A9B-0C1D2E3F4A5B"
	stampNoCert   = "00001000000504465028"
	stampRfcPAC   = "SPR190613I52"
	stampSelloSAT = "c2VsbG9TQVQ="
)

// signed devuelve el comprobante de ejemplo ensamblado y marcado como sellado.
func signed(t *testing.T) *cfdi.Comprobante {
	t.Helper()
	c := cfditest.Comprobante()
	c.Sello = "c2VsbG8=ABCDEFGH12345678"
	_, err := cfdi.Assemble(c)
	require.NoError(t, err)
	c.State = cfdi.StateSigned
	return c
}

// stamped agrega un TimbreFiscalDigital al XML del comprobante como lo haría un PAC.
func stamped(c *cfdi.Comprobante) string {
	tfd := `<cfdi:Complemento><tfd:TimbreFiscalDigital xmlns:tfd="http://www.sat.gob.mx/TimbreFiscalDigital"` +
		` Version="1.1" UUID="` + stampUUID + `" FechaTimbrado="2024-01-15T10:05:00"` +
		` RfcProvCertif="` + stampRfcPAC + `" SelloCFD="` + c.Sello + `"` +
		` NoCertificadoSAT="` + stampNoCert + `" SelloSAT="` + stampSelloSAT + `"/></cfdi:Complemento>`
	return strings.Replace(c.XML, "</cfdi:Comprobante>", tfd+"</cfdi:Comprobante>", 1)
}

func b64(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// fakeProvider registra llamadas sin tocar la red.
type fakeProvider struct {
	id      string
	xml     string
	err     error
	cancel  pac.Result
	stamps  int
	cancels int
}

func (f *fakeProvider) ID() string { return f.id }

func (f *fakeProvider) Stamp(_ context.Context, c *cfdi.Comprobante) (string, error) {
	f.stamps++
	if f.err != nil {
		return "", f.err
	}
	if f.xml != "" {
		return f.xml, nil
	}
	return stamped(c), nil
}

func (f *fakeProvider) Cancel(_ context.Context, _ *cfdi.Comprobante, _ pac.CancelRequest) (pac.Result, error) {
	f.cancels++
	if f.err != nil {
		return pac.Result{}, f.err
	}
	return f.cancel, nil
}

func fakes(ids ...string) (map[string]*fakeProvider, []pac.Provider) {
	byID := make(map[string]*fakeProvider, len(ids))
	list := make([]pac.Provider, 0, len(ids))
	for _, id := range ids {
		f := &fakeProvider{id: id, cancel: pac.Result{OK: true, Message: "cancelado " + id}}
		byID[id] = f
		list = append(list, f)
	}
	return byID, list
}
