package pac_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/cfdi-timbrado/internal/domain"
	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/pac"
)

// ── Ruteo ─────────────────────────────────────────────────────────────────────

func TestDispatcher_RuteaAlProveedorIndicado(t *testing.T) {
	casos := []struct {
		id       string
		esperado string
	}{
		{pac.ProviderA, pac.ProviderA},
		{pac.ProviderB, pac.ProviderB},
		{pac.ProviderC, pac.ProviderC},
		{pac.ProviderD, pac.ProviderD},
		{pac.ProviderTest, pac.ProviderTest},
		{"", pac.ProviderA},
		{"desconocido", pac.ProviderA},
	}
	for _, tc := range casos {
		t.Run("id="+tc.id, func(t *testing.T) {
			byID, list := fakes(pac.ProviderA, pac.ProviderB, pac.ProviderC, pac.ProviderD, pac.ProviderTest)
			d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{}, list...)
			c := signed(t)

			res, err := d.Stamp(context.Background(), c, tc.id)
			require.NoError(t, err)
			assert.True(t, res.OK)
			for id, f := range byID {
				if id == tc.esperado {
					assert.Equal(t, 1, f.stamps, "proveedor %s debe recibir la llamada", id)
				} else {
					assert.Zero(t, f.stamps, "proveedor %s no debe recibir la llamada", id)
				}
			}
			assert.Equal(t, tc.esperado, c.Provider)
		})
	}
}

// ── Estados ───────────────────────────────────────────────────────────────────

func TestDispatcher_ExigeComprobanteSellado(t *testing.T) {
	byID, list := fakes(pac.ProviderA)
	d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{}, list...)
	c := signed(t)
	c.State = cfdi.StateUnsigned

	_, err := d.Stamp(context.Background(), c, pac.ProviderA)
	assert.ErrorIs(t, err, domain.ErrNotSigned)
	assert.Zero(t, byID[pac.ProviderA].stamps)
}

func TestDispatcher_TimbradoExitosoAplicaTimbre(t *testing.T) {
	_, list := fakes(pac.ProviderA)
	var hooked *cfdi.Comprobante
	d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{
		OnStamped: func(c *cfdi.Comprobante) { hooked = c },
	}, list...)
	c := signed(t)

	res, err := d.Stamp(context.Background(), c, pac.ProviderA)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, cfdi.StateStamped, c.State)
	assert.Equal(t, stampUUID, c.Timbre.UUID)
	assert.Equal(t, stampNoCert, c.Timbre.NoCertificadoSAT)
	assert.Equal(t, stampRfcPAC, c.Timbre.RfcProvCertif)
	assert.Contains(t, c.Timbre.VerificationURL, "&fe=12345678")
	assert.Contains(t, c.Timbre.CadenaOriginal, "||1.1|"+stampUUID+"|")
	assert.Same(t, c, hooked, "OnStamped recibe el comprobante timbrado")
}

func TestDispatcher_RechazoQuedaEnResultado(t *testing.T) {
	byID, list := fakes(pac.ProviderA)
	byID[pac.ProviderA].err = &pac.RejectionError{Provider: pac.ProviderA, Status: 400, Body: "<error>RFC no válido</error>"}
	reg := prometheus.NewRegistry()
	m := metrics.NewPAC(reg)
	d := pac.NewDispatcher(zerolog.Nop(), m, pac.Hooks{}, list...)
	c := signed(t)

	res, err := d.Stamp(context.Background(), c, pac.ProviderA)
	require.NoError(t, err, "un rechazo del PAC no es un error")

	assert.False(t, res.OK)
	assert.Equal(t, "<error>RFC no válido</error>", res.Message, "el diagnóstico crudo se conserva")
	assert.Equal(t, cfdi.StateFailed, c.State)
	assert.Equal(t, res.Message, c.StatusMessage)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RequestsTotal.WithLabelValues(pac.ProviderA, "error")))
}

func TestDispatcher_ReintentoDesdeFallido(t *testing.T) {
	byID, list := fakes(pac.ProviderA)
	byID[pac.ProviderA].err = errors.New("sin conexión")
	d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{}, list...)
	c := signed(t)

	res, err := d.Stamp(context.Background(), c, pac.ProviderA)
	require.NoError(t, err)
	require.False(t, res.OK)
	require.Equal(t, cfdi.StateFailed, c.State)

	byID[pac.ProviderA].err = nil
	res, err = d.Stamp(context.Background(), c, pac.ProviderA)
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, cfdi.StateStamped, c.State)
	assert.Empty(t, c.StatusMessage)
}

func TestDispatcher_ErrorDeExtraccionVaAOnError(t *testing.T) {
	byID, list := fakes(pac.ProviderA)
	byID[pac.ProviderA].xml = `<cfdi:Comprobante Version="4.0"></cfdi:Comprobante>`
	var hookErr error
	d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{
		OnError: func(_ *cfdi.Comprobante, err error) { hookErr = err },
	}, list...)
	c := signed(t)

	res, err := d.Stamp(context.Background(), c, pac.ProviderA)
	require.NoError(t, err)

	assert.True(t, res.OK, "el timbrado se reporta exitoso aunque no se extraiga el timbre")
	assert.Error(t, hookErr)
	assert.Empty(t, c.Timbre.UUID)
	assert.Equal(t, byID[pac.ProviderA].xml, c.XML)
}

// ── PAC de pruebas ────────────────────────────────────────────────────────────

func TestSandbox_EscenarioCompleto(t *testing.T) {
	d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{}, pac.NewSandbox())
	c := signed(t)

	res, err := d.Stamp(context.Background(), c, pac.ProviderTest)
	require.NoError(t, err)

	assert.True(t, res.OK)
	assert.Equal(t, cfdi.StateStamped, c.State)
	assert.Len(t, c.Timbre.UUID, 36)
	assert.Equal(t, pac.TestSelloSAT, c.Timbre.SelloSAT)
	assert.Equal(t, pac.TestNoCertificadoSAT, c.Timbre.NoCertificadoSAT)
	assert.Equal(t, c.Sello, c.Timbre.SelloCFD)
	assert.Contains(t, c.XML, "<cfdi:Complemento>")
	assert.Contains(t, c.XML, `TotalImpuestosTrasladados="16.00"`)

	// el timbre no altera la cadena original del comprobante
	cadena, err := cfdi.CadenaOriginal(c.XML)
	require.NoError(t, err)
	assert.NotContains(t, cadena, pac.TestSelloSAT)
}

func TestSandbox_ReutilizaComplementoExistente(t *testing.T) {
	c := signed(t)
	c.AddComplemento(&cfdi.LeyendasFiscales{Leyendas: []cfdi.Leyenda{{TextoLeyenda: "LEYENDA"}}})
	_, err := cfdi.Assemble(c)
	require.NoError(t, err)

	out, err := pac.NewSandbox().Stamp(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "<cfdi:Complemento>"))
	assert.Contains(t, out, "tfd:TimbreFiscalDigital")
}

func TestSandbox_RechazaComprobanteReal(t *testing.T) {
	d := pac.NewDispatcher(zerolog.Nop(), nil, pac.Hooks{}, pac.NewSandbox())
	c := signed(t)
	c.Test = false

	_, err := d.Stamp(context.Background(), c, pac.ProviderTest)
	assert.ErrorIs(t, err, domain.ErrTestProviderOnProduction)
	assert.Equal(t, cfdi.StateFailed, c.State)
	assert.Empty(t, c.Timbre.UUID)
}
