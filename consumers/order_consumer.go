package consumers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"

	"pedido-service/config"
	"pedido-service/models"
)

// OrderLookup reads the current state of an order row.
type OrderLookup interface {
	GetOrder(ctx context.Context, orderID int64) (models.Order, error)
}

var errInconsistent = errors.New("order row does not match event")

// StartOrderConsumer audits order events from the order queue and drains the
// dead letter queue until ctx is done or the channel closes.
func StartOrderConsumer(ctx context.Context, ch *amqp.Channel, cfg *config.Config, orders OrderLookup) error {
	// 消费主订单队列
	msgs, err := ch.Consume(
		cfg.OrderQueue,
		"pedido-service", // consumer tag
		false,            // auto-ack
		false,            // exclusive
		false,            // no-local
		false,            // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("register order consumer: %w", err)
	}

	// 消费死信队列
	dlqMsgs, err := ch.Consume(
		cfg.DeadLetterQueue,
		"pedido-service-dlq",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("register dead letter consumer: %w", err)
	}

	go drain(ctx, msgs, func(msg amqp.Delivery) { processOrderMessage(ctx, msg, orders) })
	go drain(ctx, dlqMsgs, processDeadLetterMessage)
	return nil
}

func drain(ctx context.Context, msgs <-chan amqp.Delivery, handle func(amqp.Delivery)) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				return
			}
			handle(msg)
		}
	}
}

// processOrderMessage acks events that were audited, and rejects without
// requeue those that cannot be decoded or do not match the store so they land
// in the dead letter queue.
func processOrderMessage(ctx context.Context, msg amqp.Delivery, orders OrderLookup) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic in message processing: %v", r)
			if err := msg.Nack(false, false); err != nil {
				log.Printf("Failed to nack message %s: %v", msg.MessageId, err)
			}
		}
	}()

	var event models.OrderEvent
	if err := json.Unmarshal(msg.Body, &event); err != nil {
		log.Printf("Invalid order event %s: %v", msg.MessageId, err)
		nack(msg)
		return
	}

	if err := auditOrderEvent(ctx, event, orders); err != nil {
		log.Printf("Order event %s rejected: %v", event.EventID, err)
		nack(msg)
		return
	}

	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack order event %s: %v", event.EventID, err)
	}
}

// auditOrderEvent checks that the store agrees with the event: a created
// order exists with the announced owner and total, a deleted one is gone.
func auditOrderEvent(ctx context.Context, event models.OrderEvent, orders OrderLookup) error {
	log.Printf("Processing order event: ID=%d, Type=%s", event.OrderID, event.Type)

	order, err := orders.GetOrder(ctx, event.OrderID)
	switch event.Type {
	case models.OrderEventCreated:
		if errors.Is(err, models.ErrOrderNotFound) {
			// Deleted before the event was read.
			log.Printf("Order %d created and already deleted", event.OrderID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("look up order %d: %w", event.OrderID, err)
		}
		if order.UserID != event.UserID || order.Total != event.Total {
			return fmt.Errorf("order %d: %w", event.OrderID, errInconsistent)
		}
		log.Printf("Audited order %d for user %d: %d lines, total %d",
			order.ID, order.UserID, len(order.Lines), order.Total)
		return nil

	case models.OrderEventDeleted:
		if errors.Is(err, models.ErrOrderNotFound) {
			log.Printf("Audited deletion of order %d", event.OrderID)
			return nil
		}
		if err != nil {
			return fmt.Errorf("look up order %d: %w", event.OrderID, err)
		}
		return fmt.Errorf("order %d still present after delete: %w", event.OrderID, errInconsistent)

	default:
		return fmt.Errorf("unknown event type %q", event.Type)
	}
}

func processDeadLetterMessage(msg amqp.Delivery) {
	log.Printf("Received dead letter %s: %s", msg.MessageId, msg.Body)
	if err := msg.Ack(false); err != nil {
		log.Printf("Failed to ack dead letter %s: %v", msg.MessageId, err)
	}
}

func nack(msg amqp.Delivery) {
	// 拒绝消息，不重新入队
	if err := msg.Nack(false, false); err != nil {
		log.Printf("Failed to nack message %s: %v", msg.MessageId, err)
	}
}
