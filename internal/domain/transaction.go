package domain

import "time"

// TxStatus — статус покупки. Терминальные статусы дальше не меняются.
type TxStatus string

const (
	TxPending   TxStatus = "PENDING"
	TxCompleted TxStatus = "COMPLETED"
	TxFailed    TxStatus = "FAILED"
	TxCancelled TxStatus = "CANCELLED"
)

// Valid reports whether s is one of the known statuses.
func (s TxStatus) Valid() bool {
	switch s {
	case TxPending, TxCompleted, TxFailed, TxCancelled:
		return true
	}
	return false
}

// Terminal reports whether s permits no further transitions.
func (s TxStatus) Terminal() bool {
	return s == TxCompleted || s == TxFailed || s == TxCancelled
}

// Transaction — запись о покупке продукта.
// SellerID равен DeveloperID продукта на момент создания, Amount — цене.
type Transaction struct {
	ID           string    `json:"id"`
	ProductID    string    `json:"productId"`
	BuyerID      string    `json:"buyerId"`
	SellerID     string    `json:"sellerId"`
	Amount       float64   `json:"amount"`
	MoneroTxHash string    `json:"moneroTxHash,omitempty"`
	Status       TxStatus  `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// NewTransaction — входные данные создания покупки.
type NewTransaction struct {
	ProductID    string
	BuyerID      string
	SellerID     string
	Amount       float64
	MoneroTxHash string
}
