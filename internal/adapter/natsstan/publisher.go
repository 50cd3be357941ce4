// Package natsstan — доставка федеративных активностей через NATS Streaming.
package natsstan

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/example/marketplace-service/internal/adapter/federation"
	"github.com/example/marketplace-service/internal/apub"
	stan "github.com/nats-io/stan.go"
)

// Publisher публикует активности outbox в тему доставки, откуда их забирает
// воркер федеративной рассылки.
type Publisher struct {
	sc      stan.Conn
	subject string
}

// Connect устанавливает соединение с кластером. Пустой clientID генерируется.
func Connect(clusterID, clientID, url, subject string) (*Publisher, error) {
	if clientID == "" {
		clientID = fmt.Sprintf("market-pub-%d", time.Now().UnixNano())
	}
	sc, err := stan.Connect(clusterID, clientID, stan.NatsURL(url))
	if err != nil {
		return nil, fmt.Errorf("stan connect: %w", err)
	}
	return &Publisher{sc: sc, subject: subject}, nil
}

var _ federation.Publisher = (*Publisher)(nil)

func (p *Publisher) Publish(_ context.Context, act apub.Activity) error {
	b, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("marshal activity: %w", err)
	}
	return p.sc.Publish(p.subject, b)
}

func (p *Publisher) Close() error {
	return p.sc.Close()
}
