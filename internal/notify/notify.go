// Package notify announces published reports on a RabbitMQ exchange so
// downstream consumers (notice boards, mailers) can pick them up.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ledgerbook/internal/logger"
	"ledgerbook/internal/models"

	"github.com/rabbitmq/amqp091-go"
)

// ReportNotifier is told about every report after it has been committed.
type ReportNotifier interface {
	ReportPublished(ctx context.Context, report *models.PublishedReport) error
	Close() error
}

// ReportPublishedMessage is the JSON body of a report.published event.
// Money values are decimal strings.
type ReportPublishedMessage struct {
	ReportID      string    `json:"report_id"`
	TotalIncome   string    `json:"total_income"`
	TotalExpenses string    `json:"total_expenses"`
	Balance       string    `json:"balance"`
	TaskCount     int       `json:"task_count"`
	PublishedAt   time.Time `json:"published_at"`
	PublishedByID *string   `json:"published_by_id"`
}

// NewReportPublishedMessage builds the event body for report.
func NewReportPublishedMessage(report *models.PublishedReport) ReportPublishedMessage {
	return ReportPublishedMessage{
		ReportID:      report.ID,
		TotalIncome:   report.TotalIncome.StringFixed(2),
		TotalExpenses: report.TotalExpenses.StringFixed(2),
		Balance:       report.Balance.StringFixed(2),
		TaskCount:     len(report.Lines),
		PublishedAt:   report.PublishedAt,
		PublishedByID: report.PublishedByID,
	}
}

// AMQPNotifier publishes report events to a durable topic exchange.
type AMQPNotifier struct {
	mu         sync.Mutex
	conn       *amqp091.Connection
	channel    *amqp091.Channel
	exchange   string
	routingKey string
}

// NewAMQPNotifier dials url and declares the exchange.
func NewAMQPNotifier(url, exchange, routingKey string) (*AMQPNotifier, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPNotifier{
		conn:       conn,
		channel:    channel,
		exchange:   exchange,
		routingKey: routingKey,
	}, nil
}

// ReportPublished sends the report.published event.
func (n *AMQPNotifier) ReportPublished(ctx context.Context, report *models.PublishedReport) error {
	body, err := json.Marshal(NewReportPublishedMessage(report))
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	n.mu.Lock()
	defer n.mu.Unlock()

	err = n.channel.PublishWithContext(
		ctx,
		n.exchange,
		n.routingKey,
		false, // mandatory
		false, // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			MessageId:    report.ID,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	logger.Named("notify").Infow("Published report event",
		"report_id", report.ID,
		"exchange", n.exchange,
		"routing_key", n.routingKey,
	)
	return nil
}

// Close closes the channel and the connection.
func (n *AMQPNotifier) Close() error {
	if n.channel != nil {
		n.channel.Close()
	}
	if n.conn != nil {
		return n.conn.Close()
	}
	return nil
}

// Noop is used when no broker is configured.
type Noop struct{}

func (Noop) ReportPublished(context.Context, *models.PublishedReport) error { return nil }
func (Noop) Close() error                                                    { return nil }

// New returns an AMQP notifier for a non-empty url and Noop otherwise.
func New(url, exchange, routingKey string) (ReportNotifier, error) {
	if url == "" {
		return Noop{}, nil
	}
	return NewAMQPNotifier(url, exchange, routingKey)
}
