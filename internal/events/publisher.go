// Package events публикует события жизненного цикла продавцов в NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
)

// Темы событий.
const (
	SubjectSellerRegistered    = "seller.registered"
	SubjectSellerEmailVerified = "seller.email_verified"
	SubjectSellerApproved      = "seller.approved"
	SubjectSellerRejected      = "seller.rejected"
	SubjectSellerStatusChanged = "seller.status_changed"
	SubjectWithdrawalRequested = "seller.withdrawal_requested"
)

// SellerEvent — полезная нагрузка событий о продавце.
type SellerEvent struct {
	SellerID   string    `json:"sellerId"`
	Email      string    `json:"email,omitempty"`
	Status     string    `json:"status,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	Amount     float64   `json:"amount,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

// Publisher отправляет события в шину.
type Publisher interface {
	Publish(ctx context.Context, subject string, message any) error
}

// NATSPublisher публикует JSON-сообщения в NATS.
type NATSPublisher struct {
	conn *nats.Conn
}

// Connect подключается к NATS по адресу url.
func Connect(url string) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("marketplace-sellers"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats %s: %w", url, err)
	}
	return &NATSPublisher{conn: conn}, nil
}

// Publish сериализует сообщение и публикует его в тему subject.
func (p *NATSPublisher) Publish(_ context.Context, subject string, message any) error {
	data, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message for subject %s: %w", subject, err)
	}

	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish to subject %s: %w", subject, err)
	}
	return nil
}

// Close дожидается отправки буфера и закрывает соединение.
func (p *NATSPublisher) Close() error {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
		return fmt.Errorf("drain nats connection: %w", err)
	}
	return nil
}

// Nop — публикатор-заглушка для окружений без шины событий.
type Nop struct{}

// Publish ничего не делает.
func (Nop) Publish(context.Context, string, any) error { return nil }
