package pac

import (
	"context"
	"io"
	"net/http"
	"net/http/httptrace"
	"time"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
	"github.com/jhoicas/cfdi-timbrado/internal/infrastructure/metrics"
)

// maxResponse límite de lectura de respuestas del PAC.
const maxResponse = 8 << 20

// transport ejecuta peticiones contra un PAC registrando los tiempos de conexión
// y de timbrado en el comprobante y en las métricas.
type transport struct {
	provider string
	client   *http.Client
	metrics  *metrics.PAC
}

func newTransport(provider string, client *http.Client, m *metrics.PAC) transport {
	if client == nil {
		client = NewRESTClient()
	}
	return transport{provider: provider, client: client, metrics: m}
}

// do envía req y devuelve el status y el cuerpo. Con c != nil los tiempos quedan
// en c.Timing.
func (t transport) do(req *http.Request, c *cfdi.Comprobante) (int, []byte, error) {
	done := t.metrics.Track()
	defer done()

	var timing cfdi.Timing
	trace := &httptrace.ClientTrace{
		GetConn: func(string) { timing.ConnectStart = time.Now() },
		GotConn: func(httptrace.GotConnInfo) { timing.ConnectEnd = time.Now() },
	}
	req = req.WithContext(httptrace.WithClientTrace(req.Context(), trace))

	timing.StampStart = time.Now()
	resp, err := t.client.Do(req)
	if err != nil {
		timing.StampEnd = time.Now()
		t.record(c, timing)
		return 0, nil, &TransportError{Provider: t.provider, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	timing.StampEnd = time.Now()
	t.record(c, timing)
	if err != nil {
		return resp.StatusCode, nil, &TransportError{Provider: t.provider, Err: err}
	}
	return resp.StatusCode, body, nil
}

func (t transport) record(c *cfdi.Comprobante, timing cfdi.Timing) {
	t.metrics.ObservePhase(t.provider, metrics.PhaseConnect, timing.ConnectDuration())
	t.metrics.ObservePhase(t.provider, metrics.PhaseStamp, timing.StampDuration())
	if c != nil {
		c.Timing = timing
	}
}

func newRequest(ctx context.Context, method, url, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}
