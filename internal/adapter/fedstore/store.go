// Package fedstore — хранилище федеративных записей: три независимые
// коллекции (акторы, объекты, активности), каждая строка несёт id, тип,
// сериализованное тело и таймстемпы.
package fedstore

import (
	"context"
	"time"

	"github.com/example/marketplace-service/internal/apub"
)

// Record — строка коллекции федеративных записей.
type Record struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Data      []byte    `json:"data"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Query — выборка по коллекции: равенство по верхнеуровневым JSON-полям тела.
// Fields объединяются через AND, AnyOf — через OR. Результат упорядочен по
// полю published по убыванию.
type Query struct {
	Type   string
	Fields map[string]string
	AnyOf  map[string]string
	Limit  int
	Offset int
}

// Store — порт долговременного хранилища федеративных записей.
// Put выполняет upsert: вставку либо замену по id.
type Store interface {
	Get(ctx context.Context, kind apub.Kind, id string) (Record, error)
	Put(ctx context.Context, kind apub.Kind, rec Record) error
	Find(ctx context.Context, kind apub.Kind, q Query) ([]Record, error)
}
