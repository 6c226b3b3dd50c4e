// Package events publishes reservation lifecycle events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/seat-reservation-backend/internal/models"
)

const (
	publishTimeout = 3 * time.Second
	reconnInterval = 10 * time.Second
)

var (
	// ErrConnectionClosed is returned while the broker connection is being re-established
	ErrConnectionClosed = errors.New("rabbitmq connection is closed")
	// ErrNacked is returned when the broker refuses to take responsibility for a message
	ErrNacked = errors.New("rabbitmq nacked the event")
)

// Publisher sends reservation events
type Publisher interface {
	Publish(ctx context.Context, event models.ReservationEvent) error
	Close() error
}

// channel is the part of an AMQP channel in confirm mode the publisher uses
type channel interface {
	PublishWithDeferredConfirm(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error)
	IsClosed() bool
	Close() error
}

// confirmation resolves to the broker's ack or nack of one publishing
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// amqpChannel adapts *amqp.Channel to channel
type amqpChannel struct {
	*amqp.Channel
}

func (c amqpChannel) PublishWithDeferredConfirm(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.Channel.PublishWithDeferredConfirmWithContext(ctx, exchange, key, mandatory, immediate, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		// channel is not in confirm mode
		return nil, nil
	}
	return dc, nil
}

// RabbitMQPublisher publishes JSON events to a topic exchange.
// Routing keys are the event types, e.g. reservation.confirmed.
type RabbitMQPublisher struct {
	ctx      context.Context
	url      string
	exchange string
	logger   *logrus.Logger

	mu           sync.Mutex
	conn         *amqp.Connection
	ch           channel
	reconnecting bool
}

// NewRabbitMQPublisher dials the broker and declares the exchange.
// ctx bounds the background reconnect loop.
func NewRabbitMQPublisher(ctx context.Context, url, exchange string, logger *logrus.Logger) (*RabbitMQPublisher, error) {
	p := &RabbitMQPublisher{
		ctx:      ctx,
		url:      url,
		exchange: exchange,
		logger:   logger,
	}
	if err := p.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return p, nil
}

func (p *RabbitMQPublisher) connect() error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return err
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return err
	}

	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return fmt.Errorf("failed to declare exchange %s: %w", p.exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		conn.Close()
		return err
	}

	p.mu.Lock()
	p.conn = conn
	p.ch = amqpChannel{ch}
	p.mu.Unlock()
	return nil
}

// Publish sends the event and waits, within publishTimeout, for the broker to
// confirm it. A closed connection triggers a reconnect in the background.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event models.ReservationEvent) error {
	p.mu.Lock()
	ch := p.ch
	closed := ch == nil || ch.IsClosed() || (p.conn != nil && p.conn.IsClosed())
	p.mu.Unlock()

	if closed {
		go p.reconnect()
		return ErrConnectionClosed
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	confirm, err := ch.PublishWithDeferredConfirm(pubCtx, p.exchange, string(event.Type), false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return err
	}
	if confirm == nil {
		return nil
	}

	acked, err := confirm.WaitContext(pubCtx)
	if err != nil {
		return fmt.Errorf("waiting for publish confirm: %w", err)
	}
	if !acked {
		return ErrNacked
	}
	return nil
}

func (p *RabbitMQPublisher) reconnect() {
	p.mu.Lock()
	if p.reconnecting {
		p.mu.Unlock()
		return
	}
	p.reconnecting = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.reconnecting = false
		p.mu.Unlock()
	}()

	t := time.NewTicker(reconnInterval)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			if err := p.connect(); err != nil {
				p.logger.WithError(err).Warn("RabbitMQ reconnect failed")
				continue
			}
			p.logger.Info("RabbitMQ reconnected")
			return
		case <-p.ctx.Done():
			return
		}
	}
}

// IsAlive reports whether the connection and channel are open
func (p *RabbitMQPublisher) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil || p.conn.IsClosed() {
		return false
	}
	return p.ch != nil && !p.ch.IsClosed()
}

// Close closes the channel and connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.ch != nil && !p.ch.IsClosed() {
		if err := p.ch.Close(); err != nil {
			return fmt.Errorf("close rabbitmq channel: %w", err)
		}
	}
	if p.conn != nil && !p.conn.IsClosed() {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("close rabbitmq connection: %w", err)
		}
	}
	return nil
}

// Noop drops every event. Used when no broker URL is configured.
type Noop struct{}

func (Noop) Publish(context.Context, models.ReservationEvent) error { return nil }
func (Noop) Close() error                                          { return nil }
