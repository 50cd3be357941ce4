package natsstan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	stan "github.com/nats-io/stan.go"
)

// Subscriber — durable-подписка на входящие федеративные активности
// (inbox-поток с других инстансов).
type Subscriber struct {
	ClusterID string
	ClientID  string
	URL       string
	Subject   string
	Durable   string
	Log       *slog.Logger
}

// Subscribe регистрирует обработчик; ack/повторные доставки реализует адаптер.
func (s *Subscriber) Subscribe(ctx context.Context, handler func(ctx context.Context, raw []byte) error) error {
	clientID := s.ClientID
	if clientID == "" {
		clientID = fmt.Sprintf("market-sub-%d", time.Now().UnixNano())
	}
	logger := s.Log
	if logger == nil {
		logger = slog.Default()
	}

	sc, err := stan.Connect(s.ClusterID, clientID, stan.NatsURL(s.URL))
	if err != nil {
		return err
	}
	go func() {
		<-ctx.Done()
		sc.Close()
	}()

	_, err = sc.QueueSubscribe(s.Subject, "market-workers", func(m *stan.Msg) {
		hCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := handler(hCtx, m.Data); err != nil {
			// не подтверждаем, даём сообщению переотправиться
			logger.Error("inbox handler failed", "err", err)
			return
		}
		if err := m.Ack(); err != nil {
			logger.Error("ack failed", "err", err)
		}
	}, stan.DurableName(s.Durable), stan.SetManualAckMode(), stan.AckWait(10*time.Second), stan.DeliverAllAvailable())
	return err
}
