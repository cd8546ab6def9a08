package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"ws-registration/internal/models"
)

// Producer streams inventory and discount audit events. Publishing is
// best-effort: the ledgers log failures but never roll back a write because
// Kafka was unreachable.
type Producer struct {
	SalesWriter    *kafka.Writer
	AdminWriter    *kafka.Writer
	DiscountWriter *kafka.Writer
}

func NewProducer(brokers []string, salesTopic, adminTopic, discountTopic string) *Producer {
	newWriter := func(topic string) *kafka.Writer {
		return kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   topic,
		})
	}
	return &Producer{
		SalesWriter:    newWriter(salesTopic),
		AdminWriter:    newWriter(adminTopic),
		DiscountWriter: newWriter(discountTopic),
	}
}

func (p *Producer) publish(writer *kafka.Writer, key string, payload interface{}, label string) error {
	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	fmt.Printf("Publishing to Kafka [%s]: %s\n", label, string(msgBytes))

	return writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(key),
			Value: msgBytes,
		},
	)
}

// PublishSaleRecorded streams a successful inventory decrement.
func (p *Producer) PublishSaleRecorded(txn models.InventoryTransaction) error {
	return p.publish(p.SalesWriter, txn.CityID, txn, "sale_recorded")
}

// PublishInventoryExpanded streams an admin capacity expansion.
func (p *Producer) PublishInventoryExpanded(exp models.InventoryExpansion) error {
	return p.publish(p.AdminWriter, exp.CityID, exp, "inventory_expanded")
}

// PublishInventoryReset streams an admin sold-count reset.
func (p *Producer) PublishInventoryReset(txn models.InventoryTransaction) error {
	return p.publish(p.AdminWriter, txn.CityID, txn, "inventory_reset")
}

// PublishDiscountUsed streams a consumed member discount.
func (p *Producer) PublishDiscountUsed(usage models.MemberDiscountUsage) error {
	return p.publish(p.DiscountWriter, usage.Email, usage, "discount_used")
}

// PublishDiscountReset streams an admin discount reset.
func (p *Producer) PublishDiscountReset(reset models.MemberDiscountReset) error {
	return p.publish(p.DiscountWriter, reset.Email, reset, "discount_reset")
}

// Close flushes and closes all writers.
func (p *Producer) Close() error {
	var firstErr error
	for _, w := range []*kafka.Writer{p.SalesWriter, p.AdminWriter, p.DiscountWriter} {
		if w == nil {
			continue
		}
		if err := w.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
