// Package metrics expone las métricas Prometheus del servicio de timbrado.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Fases medidas en cada llamada al PAC.
const (
	PhaseConnect = "connect"
	PhaseStamp   = "stamp"
)

// PAC métricas de las llamadas a los proveedores de certificación.
type PAC struct {
	RequestsTotal *prometheus.CounterVec
	PhaseDuration *prometheus.HistogramVec
	CancelTotal   *prometheus.CounterVec
	InFlight      prometheus.Gauge
}

// NewPAC registra las métricas en reg. Con nil se usa el registro por defecto.
func NewPAC(reg prometheus.Registerer) *PAC {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &PAC{
		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfdi_pac_stamp_requests_total",
				Help: "Solicitudes de timbrado por proveedor y resultado",
			},
			[]string{"provider", "result"},
		),
		PhaseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "cfdi_pac_phase_duration_seconds",
				Help:    "Duración de las fases de conexión y timbrado con el PAC",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"provider", "phase"},
		),
		CancelTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cfdi_pac_cancel_requests_total",
				Help: "Solicitudes de cancelación por proveedor y resultado",
			},
			[]string{"provider", "result"},
		),
		InFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "cfdi_pac_requests_in_flight",
				Help: "Llamadas al PAC en curso",
			},
		),
	}
}

// ObservePhase registra la duración de una fase. Seguro con receptor nil.
func (m *PAC) ObservePhase(provider, phase string, d time.Duration) {
	if m == nil || d <= 0 {
		return
	}
	m.PhaseDuration.WithLabelValues(provider, phase).Observe(d.Seconds())
}

// RecordStamp cuenta una solicitud de timbrado.
func (m *PAC) RecordStamp(provider string, ok bool) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(provider, result(ok)).Inc()
}

// RecordCancel cuenta una solicitud de cancelación.
func (m *PAC) RecordCancel(provider string, ok bool) {
	if m == nil {
		return
	}
	m.CancelTotal.WithLabelValues(provider, result(ok)).Inc()
}

// Track marca una llamada en curso; la función devuelta la cierra.
func (m *PAC) Track() func() {
	if m == nil {
		return func() {}
	}
	m.InFlight.Inc()
	return m.InFlight.Dec
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
