package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/odysseus-analytics/ingest-service/internal/domain/entity"
)

// StatusPublisher pushes terminal video status events onto a topic
// exchange for downstream consumers (dashboards, dataset build triggers).
type StatusPublisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

func NewStatusPublisher(url, exchange, statusQueue string) (*StatusPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open publisher channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := ch.QueueDeclare(statusQueue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare status queue: %w", err)
	}
	if err := ch.QueueBind(statusQueue, statusQueue, exchange, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("bind status queue: %w", err)
	}

	return &StatusPublisher{
		conn:       conn,
		channel:    ch,
		exchange:   exchange,
		routingKey: statusQueue,
	}, nil
}

func (p *StatusPublisher) PublishStatus(ctx context.Context, event entity.VideoStatusEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal status event: %w", err)
	}
	return p.channel.PublishWithContext(ctx,
		p.exchange,
		p.routingKey,
		false, false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
		},
	)
}

func (p *StatusPublisher) Close() error {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
