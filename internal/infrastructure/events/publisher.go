// Package events publica en RabbitMQ los cambios de estado de los comprobantes.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"strings"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"github.com/jhoicas/cfdi-timbrado/internal/domain/cfdi"
)

// Routing keys publicadas.
const (
	RoutingStamped   = "cfdi.stamped"
	RoutingCancelled = "cfdi.cancelled"

	publishTimeout = 5 * time.Second
)

// CFDIEvent cuerpo JSON de los eventos de comprobante.
type CFDIEvent struct {
	UUID            string    `json:"uuid"`
	RfcEmisor       string    `json:"rfc_emisor"`
	RfcReceptor     string    `json:"rfc_receptor"`
	Total           string    `json:"total"`
	Moneda          string    `json:"moneda,omitempty"`
	Provider        string    `json:"provider"`
	FechaTimbrado   string    `json:"fecha_timbrado,omitempty"`
	State           string    `json:"state"`
	Test            bool      `json:"test"`
	VerificationURL string    `json:"verification_url,omitempty"`
	OccurredAt      time.Time `json:"occurred_at"`
}

// NewCFDIEvent arma el evento a partir del comprobante.
func NewCFDIEvent(c *cfdi.Comprobante) CFDIEvent {
	return CFDIEvent{
		UUID:            c.Timbre.UUID,
		RfcEmisor:       c.Emisor.Rfc,
		RfcReceptor:     c.Receptor.Rfc,
		Total:           c.Total,
		Moneda:          c.Moneda,
		Provider:        c.Provider,
		FechaTimbrado:   c.Timbre.FechaTimbrado,
		State:           string(c.State),
		Test:            c.Test,
		VerificationURL: c.Timbre.VerificationURL,
		OccurredAt:      time.Now().UTC(),
	}
}

// channel subconjunto de *amqp.Channel usado por el publicador.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher publica eventos en un exchange topic.
type Publisher struct {
	conn     *amqp.Connection
	channel  channel
	exchange string
	log      zerolog.Logger
}

// NewPublisher abre conexión y canal contra amqpURL.
func NewPublisher(amqpURL, exchange string, log zerolog.Logger) (*Publisher, error) {
	cleanURL, err := sanitizeURL(amqpURL)
	if err != nil {
		return nil, err
	}
	conn, err := amqp.DialConfig(cleanURL, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	p := newPublisher(ch, exchange, log)
	p.conn = conn
	return p, nil
}

func newPublisher(ch channel, exchange string, log zerolog.Logger) *Publisher {
	return &Publisher{
		channel:  ch,
		exchange: exchange,
		log:      log.With().Str("component", "events").Logger(),
	}
}

// Publish serializa body como JSON y lo publica con routingKey.
func (p *Publisher) Publish(ctx context.Context, routingKey string, body interface{}) error {
	if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		return err
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if err := p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         payload,
	}); err != nil {
		return err
	}
	p.log.Debug().Str("exchange", p.exchange).Str("routing_key", routingKey).Msg("evento publicado")
	return nil
}

// OnStamped hook del Dispatcher: publica cfdi.stamped. Los errores sólo se registran.
func (p *Publisher) OnStamped(c *cfdi.Comprobante) {
	p.publishState(RoutingStamped, c)
}

// OnCancelled publica cfdi.cancelled.
func (p *Publisher) OnCancelled(c *cfdi.Comprobante) {
	p.publishState(RoutingCancelled, c)
}

func (p *Publisher) publishState(key string, c *cfdi.Comprobante) {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if err := p.Publish(ctx, key, NewCFDIEvent(c)); err != nil {
		p.log.Error().Err(err).Str("routing_key", key).Str("uuid", c.Timbre.UUID).Msg("no se pudo publicar el evento")
	}
}

// Close libera canal y conexión.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

func sanitizeURL(raw string) (string, error) {
	clean := strings.TrimSpace(raw)
	clean = strings.Trim(clean, "\"'")
	idx := strings.Index(strings.ToLower(clean), "amqp")
	if idx > 0 {
		clean = clean[idx:]
	}
	parsed, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if parsed.Scheme != "amqp" && parsed.Scheme != "amqps" {
		return "", errors.New("la URL de RabbitMQ debe iniciar con amqp:// o amqps://")
	}
	return clean, nil
}
