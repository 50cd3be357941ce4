// Package cache — потокобезопасный TTL-кэш в памяти.
//
// Истечение проверяется лениво при чтении, фонового вычищения нет. Кэш не
// хранит канонических данных: любой промах разрешается повторным чтением
// долговременного хранилища.
package cache

import (
	"strings"
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

func (e entry[V]) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// Memory — кэш значений типа V с истечением по TTL.
type Memory[V any] struct {
	mu    sync.RWMutex
	items map[string]entry[V]
}

// NewMemory создаёт пустой кэш.
func NewMemory[V any]() *Memory[V] {
	return &Memory[V]{items: make(map[string]entry[V])}
}

// Set сохраняет значение с временем жизни ttl.
func (c *Memory[V]) Set(key string, v V, ttl time.Duration) {
	c.mu.Lock()
	c.items[key] = entry[V]{value: v, expiresAt: time.Now().Add(ttl)}
	c.mu.Unlock()
}

// Get возвращает значение, если оно есть и не истекло.
// Истёкшая запись удаляется при обращении.
func (c *Memory[V]) Get(key string) (V, bool) {
	now := time.Now()

	c.mu.RLock()
	e, ok := c.items[key]
	c.mu.RUnlock()

	if !ok {
		var zero V
		return zero, false
	}
	if e.expired(now) {
		c.mu.Lock()
		// перепроверяем под write-блокировкой
		if cur, still := c.items[key]; still && cur.expired(time.Now()) {
			delete(c.items, key)
		}
		c.mu.Unlock()
		var zero V
		return zero, false
	}
	return e.value, true
}

// Delete удаляет запись по ключу.
func (c *Memory[V]) Delete(key string) bool {
	c.mu.Lock()
	_, ok := c.items[key]
	delete(c.items, key)
	c.mu.Unlock()
	return ok
}

// DeletePrefix удаляет все записи с данным префиксом ключа и возвращает их
// число. Грубая инвалидация: корректность важнее точности.
func (c *Memory[V]) DeletePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for k := range c.items {
		if strings.HasPrefix(k, prefix) {
			delete(c.items, k)
			n++
		}
	}
	return n
}

// GetOrLoad возвращает закэшированное значение либо загружает его через
// loader и кладёт в кэш на ttl. Ошибка loader в кэш не попадает.
func (c *Memory[V]) GetOrLoad(key string, ttl time.Duration, loader func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}
	v, err := loader()
	if err != nil {
		var zero V
		return zero, err
	}
	c.Set(key, v, ttl)
	return v, nil
}

// Len — текущее число записей, включая ещё не вычищенные истёкшие.
func (c *Memory[V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
