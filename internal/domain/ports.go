package domain

import "context"

// Storage — единый контракт персистентности для обоих бэкендов.
// Реализации не бросают ошибок на «не найдено» сверх ErrNotFound и не
// проверяют уникальность заранее — конфликт отдаёт бэкенд (ErrConflict).
type Storage interface {
	Init(ctx context.Context) error
	Close(ctx context.Context) error

	CreateUser(ctx context.Context, nu NewUser) (User, error)
	GetUserByID(ctx context.Context, id string) (User, error)
	GetUserByEmail(ctx context.Context, email string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error)

	CreateProduct(ctx context.Context, np NewProduct) (Product, error)
	GetProductByID(ctx context.Context, id string) (Product, error)
	GetProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	UpdateProduct(ctx context.Context, id string, upd ProductUpdate) (Product, error)
	DeleteProduct(ctx context.Context, id string) error

	CreateTransaction(ctx context.Context, nt NewTransaction) (Transaction, error)
	GetTransactionByID(ctx context.Context, id string) (Transaction, error)
	GetUserTransactions(ctx context.Context, userID string) ([]Transaction, error)
	UpdateTransactionStatus(ctx context.Context, id string, status TxStatus, moneroTxHash string) (Transaction, error)
}

// Общие доменные ошибки. Проверяются через errors.Is.
var (
	ErrNotFound     = storageError("not found")
	ErrConflict     = storageError("already exists")
	ErrNotSupported = storageError("not supported in this storage mode")
	ErrValidation   = storageError("invalid data")
	ErrBackend      = storageError("storage backend failure")
)

type storageError string

func (e storageError) Error() string { return string(e) }
