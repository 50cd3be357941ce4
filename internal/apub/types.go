// Package apub описывает федеративную объектную модель маркетплейса и
// трансляцию идентификаторов между короткими id и полными URI.
package apub

import (
	"time"

	"github.com/example/marketplace-service/internal/domain"
)

// Контекст ActivityStreams и словарь маркетплейса.
const (
	ContextActivityStreams = "https://www.w3.org/ns/activitystreams"
	ContextMarketplace     = "https://basedmarket.org/ns#"
	PublicAudience         = "https://www.w3.org/ns/activitystreams#Public"
)

// Типы федеративных записей.
const (
	TypePerson   = "Person"
	TypeArticle  = "Article"
	TypePurchase = "Purchase"
	TypeCreate   = "Create"
	TypeUpdate   = "Update"
)

// Actor — федеративное представление пользователя.
type Actor struct {
	ID                string      `json:"id"`
	Type              string      `json:"type"`
	PreferredUsername string      `json:"preferredUsername"`
	Name              string      `json:"name"`
	Inbox             string      `json:"inbox"`
	Outbox            string      `json:"outbox"`
	Followers         string      `json:"followers"`
	Following         string      `json:"following"`
	Email             string      `json:"email,omitempty"`
	MoneroAddress     string      `json:"moneroAddress,omitempty"`
	Role              domain.Role `json:"role"`
	CreatedAt         time.Time   `json:"createdAt"`
	UpdatedAt         time.Time   `json:"updatedAt"`
}

// Article — федеративное представление листинга.
type Article struct {
	Context       any                `json:"@context,omitempty"`
	ID            string             `json:"id"`
	Type          string             `json:"type"`
	Name          string             `json:"name"`
	Content       string             `json:"content"`
	URL           string             `json:"url"`
	Image         string             `json:"image,omitempty"`
	Price         float64            `json:"price"`
	Category      string             `json:"category"`
	Tag           []string           `json:"tag"`
	ProductType   domain.ProductType `json:"productType"`
	AttributedTo  string             `json:"attributedTo"`
	Published     time.Time          `json:"published"`
	Updated       time.Time          `json:"updated"`
	IsActive      bool               `json:"isActive"`
	DownloadCount int64              `json:"downloadCount"`
}

// Purchase — федеративное представление покупки.
// Actor — покупатель, Object — продукт, Target — продавец.
type Purchase struct {
	Context      any             `json:"@context,omitempty"`
	ID           string          `json:"id"`
	Type         string          `json:"type"`
	Actor        string          `json:"actor"`
	Object       string          `json:"object"`
	Target       string          `json:"target"`
	Amount       float64         `json:"amount"`
	MoneroTxHash string          `json:"moneroTxHash,omitempty"`
	Status       domain.TxStatus `json:"status"`
	Published    time.Time       `json:"published"`
	Updated      time.Time       `json:"updated"`
}

// Activity — конверт действия для outbox.
type Activity struct {
	Context   any       `json:"@context,omitempty"`
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Actor     string    `json:"actor"`
	Object    any       `json:"object"`
	Published time.Time `json:"published"`
	To        []string  `json:"to,omitempty"`
	Cc        []string  `json:"cc,omitempty"`
}

// MarketContext — стандартный @context объектов маркетплейса.
func MarketContext() []any {
	return []any{
		ContextActivityStreams,
		map[string]string{"basedmarket": ContextMarketplace},
	}
}
