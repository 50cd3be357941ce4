package domain

import "time"

// ProductType — тип публикуемого продукта.
type ProductType string

const (
	ProductGame ProductType = "GAME"
	ProductApp  ProductType = "APP"
)

// Valid reports whether t is one of the known product types.
func (t ProductType) Valid() bool {
	return t == ProductGame || t == ProductApp
}

// Product — доменная сущность листинга (игра или приложение).
// Price в XMR, ноль означает бесплатный продукт. DownloadCount только растёт.
type Product struct {
	ID            string      `json:"id"`
	Title         string      `json:"title"`
	Description   string      `json:"description"`
	ProductURL    string      `json:"productUrl"`
	ImageURL      string      `json:"imageUrl,omitempty"`
	Price         float64     `json:"price"`
	Category      string      `json:"category"`
	Tags          []string    `json:"tags"`
	Type          ProductType `json:"type"`
	DeveloperID   string      `json:"developerId"`
	IsActive      bool        `json:"isActive"`
	DownloadCount int64       `json:"downloadCount"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

// NewProduct — входные данные создания листинга.
type NewProduct struct {
	Title       string
	Description string
	ProductURL  string
	ImageURL    string
	Price       float64
	Category    string
	Tags        []string
	Type        ProductType
	DeveloperID string
}

// ProductUpdate — частичное обновление листинга; nil-поля не трогаются.
type ProductUpdate struct {
	Title       *string
	Description *string
	ProductURL  *string
	ImageURL    *string
	Price       *float64
	Category    *string
	Tags        []string
	IsActive    *bool
}

// Ключи сортировки списка продуктов.
type SortKey string

const (
	SortByCreatedAt SortKey = "createdAt"
	SortByPrice     SortKey = "price"
	SortByDownloads SortKey = "downloadCount"
	SortByTitle     SortKey = "title"
)

type SortOrder string

const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
	MaxProductTags   = 16
)

// ProductFilter — параметры выборки листингов. Нулевые значения означают
// отсутствие фильтра.
type ProductFilter struct {
	Search      string
	Category    string
	Type        ProductType
	DeveloperID string
	PriceMin    *float64
	PriceMax    *float64
	Tags        []string
	SortBy      SortKey
	SortOrder   SortOrder
	Limit       int
	Offset      int
}

// Normalize применяет значения по умолчанию и ограничивает размер страницы.
func (f *ProductFilter) Normalize() {
	if f.SortBy == "" {
		f.SortBy = SortByCreatedAt
	}
	if f.SortOrder != SortAsc && f.SortOrder != SortDesc {
		f.SortOrder = SortDesc
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	if len(f.Tags) > MaxProductTags {
		f.Tags = f.Tags[:MaxProductTags]
	}
}
