package amqp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/rabbitmq/amqp091-go"
)

type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	client := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.setup(); err != nil {
		client.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}

	return client, nil
}

func (c *Client) setup() error {
	err := c.channel.ExchangeDeclare(
		c.exchangeName, // name
		"direct",       // type
		true,           // durable
		false,          // auto-deleted
		false,          // internal
		false,          // no-wait
		nil,            // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	_, err = c.channel.QueueDeclare(
		c.queueName, // name
		true,        // durable
		false,       // delete when unused
		false,       // exclusive
		false,       // no-wait
		nil,         // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	err = c.channel.QueueBind(
		c.queueName,    // queue name
		c.queueName,    // routing key (same as queue name for direct exchange)
		c.exchangeName, // exchange
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// PublishPostingSync publishes a posting sync message.
func (c *Client) PublishPostingSync(ctx context.Context, postingID string, obligationID int64) error {
	body, err := wrap(kindPostingSync, PostingSyncMessage{
		PostingID:    postingID,
		ObligationID: obligationID,
	})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published posting sync message",
		"posting_id", postingID,
		"obligation_id", obligationID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

// PublishObligationDelete publishes an obligation delete message.
func (c *Client) PublishObligationDelete(ctx context.Context, obligationID int64) error {
	body, err := wrap(kindObligationDrop, ObligationDeleteMessage{ObligationID: obligationID})
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	if err := c.publish(ctx, body); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Published obligation delete message",
		"obligation_id", obligationID,
		"exchange", c.exchangeName,
		"queue", c.queueName)

	return nil
}

func (c *Client) publish(ctx context.Context, body []byte) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := c.channel.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}
	return nil
}

// ConsumeMessages consumes queue messages and dispatches them by kind.
// Malformed messages are rejected without requeue; handler failures are
// requeued.
func (c *Client) ConsumeMessages(ctx context.Context, onPosting func(*PostingSyncMessage) error, onDelete func(*ObligationDeleteMessage) error) error {
	msgs, err := c.channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming messages", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			slog.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}

			var env envelope
			if err := json.Unmarshal(delivery.Body, &env); err != nil {
				slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
				delivery.Nack(false, false) // reject and don't requeue
				continue
			}

			if err := c.dispatch(ctx, &env, onPosting, onDelete); err != nil {
				slog.ErrorContext(ctx, "Failed to handle message",
					"error", err,
					"kind", env.Kind)
				delivery.Nack(false, true) // reject and requeue
				continue
			}

			delivery.Ack(false)
		}
	}
}

func (c *Client) dispatch(ctx context.Context, env *envelope, onPosting func(*PostingSyncMessage) error, onDelete func(*ObligationDeleteMessage) error) error {
	switch env.Kind {
	case kindPostingSync:
		var msg PostingSyncMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("unmarshal posting sync payload: %w", err)
		}
		slog.InfoContext(ctx, "Processing posting sync message",
			"posting_id", msg.PostingID,
			"obligation_id", msg.ObligationID)
		return onPosting(&msg)
	case kindObligationDrop:
		var msg ObligationDeleteMessage
		if err := json.Unmarshal(env.Payload, &msg); err != nil {
			return fmt.Errorf("unmarshal obligation delete payload: %w", err)
		}
		slog.InfoContext(ctx, "Processing obligation delete message",
			"obligation_id", msg.ObligationID)
		return onDelete(&msg)
	default:
		return fmt.Errorf("unknown message kind %q", env.Kind)
	}
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
