// Package repo — реляционный адаптер контракта хранения поверх pgx.
package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/marketplace-service/internal/adapter/cache"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// Ключи кэша.
const (
	userKeyPrefix     = "user:"
	productListKey    = "products:list"
	productListPrefix = "products:"
	devListPrefix     = "products:developer:"
)

// DefaultUserTTL — время жизни пользователя в кэше.
const DefaultUserTTL = 5 * time.Minute

// Postgres — реляционная реализация domain.Storage.
type Postgres struct {
	Pool    *pgxpool.Pool
	users   *cache.Memory[domain.User]
	lists   *cache.Memory[[]domain.Product]
	userTTL time.Duration
	log     *slog.Logger
}

// NewPostgres создаёт адаптер. logger nil — slog.Default().
func NewPostgres(pool *pgxpool.Pool, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	return &Postgres{
		Pool:    pool,
		users:   cache.NewMemory[domain.User](),
		lists:   cache.NewMemory[[]domain.Product](),
		userTTL: DefaultUserTTL,
		log:     logger,
	}
}

var _ domain.Storage = (*Postgres)(nil)

// Init — создать необходимые таблицы, если отсутствуют.
func (r *Postgres) Init(ctx context.Context) error {
	_, err := r.Pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS users (
  id text PRIMARY KEY,
  email text NOT NULL UNIQUE,
  username text NOT NULL UNIQUE,
  password_hash text NOT NULL DEFAULT '',
  role text NOT NULL,
  monero_address text NOT NULL DEFAULT '',
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS products (
  id text PRIMARY KEY,
  title text NOT NULL,
  description text NOT NULL,
  product_url text NOT NULL,
  image_url text NOT NULL DEFAULT '',
  price double precision NOT NULL CHECK (price >= 0),
  category text NOT NULL,
  tags jsonb NOT NULL DEFAULT '[]',
  type text NOT NULL,
  developer_id text NOT NULL REFERENCES users(id),
  is_active boolean NOT NULL DEFAULT TRUE,
  download_count bigint NOT NULL DEFAULT 0,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS transactions (
  id text PRIMARY KEY,
  product_id text NOT NULL REFERENCES products(id),
  buyer_id text NOT NULL REFERENCES users(id),
  seller_id text NOT NULL REFERENCES users(id),
  amount double precision NOT NULL,
  monero_tx_hash text NOT NULL DEFAULT '',
  status text NOT NULL,
  created_at timestamptz NOT NULL DEFAULT now(),
  updated_at timestamptz NOT NULL DEFAULT now()
);`)
	if err != nil {
		return fmt.Errorf("init schema: %v: %w", err, domain.ErrBackend)
	}
	return nil
}

func (r *Postgres) Close(_ context.Context) error {
	r.Pool.Close()
	return nil
}

// --- Пользователи ---

func (r *Postgres) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	u := domain.User{
		ID:            uuid.NewString(),
		Email:         nu.Email,
		Username:      nu.Username,
		PasswordHash:  nu.PasswordHash,
		Role:          nu.Role,
		MoneroAddress: nu.MoneroAddress,
	}
	err := r.Pool.QueryRow(ctx, `
INSERT INTO users (id, email, username, password_hash, role, monero_address)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING created_at, updated_at`,
		u.ID, u.Email, u.Username, u.PasswordHash, u.Role, u.MoneroAddress,
	).Scan(&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return domain.User{}, classifyWrite("create user", err)
	}
	return u, nil
}

func (r *Postgres) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	// сначала кэш, на попадании из базы — кладём с коротким TTL
	return r.users.GetOrLoad(userKeyPrefix+id, r.userTTL, func() (domain.User, error) {
		return r.getUserWhere(ctx, "id = $1", id)
	})
}

func (r *Postgres) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	return r.getUserWhere(ctx, "email = $1", email)
}

func (r *Postgres) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return r.getUserWhere(ctx, "username = $1", username)
}

func (r *Postgres) getUserWhere(ctx context.Context, cond string, arg any) (domain.User, error) {
	var u domain.User
	err := r.Pool.QueryRow(ctx, `
SELECT id, email, username, password_hash, role, monero_address, created_at, updated_at
FROM users WHERE `+cond, arg,
	).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.MoneroAddress, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("get user: %v: %w", err, domain.ErrBackend)
	}
	return u, nil
}

func (r *Postgres) UpdateUser(ctx context.Context, id string, upd domain.UserUpdate) (domain.User, error) {
	set := "updated_at = now()"
	args := []any{id}
	if upd.MoneroAddress != nil {
		args = append(args, *upd.MoneroAddress)
		set += fmt.Sprintf(", monero_address = $%d", len(args))
	}
	if upd.Role != nil {
		args = append(args, *upd.Role)
		set += fmt.Sprintf(", role = $%d", len(args))
	}

	var u domain.User
	err := r.Pool.QueryRow(ctx, `
UPDATE users SET `+set+` WHERE id = $1
RETURNING id, email, username, password_hash, role, monero_address, created_at, updated_at`,
		args...,
	).Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.Role, &u.MoneroAddress, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("update user: %v: %w", err, domain.ErrBackend)
	}
	r.users.Delete(userKeyPrefix + id)
	return u, nil
}

// --- Продукты ---

func (r *Postgres) CreateProduct(ctx context.Context, np domain.NewProduct) (domain.Product, error) {
	tags, err := json.Marshal(nonNilTags(np.Tags))
	if err != nil {
		return domain.Product{}, fmt.Errorf("marshal tags: %w", domain.ErrValidation)
	}
	p := domain.Product{
		ID:          uuid.NewString(),
		Title:       np.Title,
		Description: np.Description,
		ProductURL:  np.ProductURL,
		ImageURL:    np.ImageURL,
		Price:       np.Price,
		Category:    np.Category,
		Tags:        nonNilTags(np.Tags),
		Type:        np.Type,
		DeveloperID: np.DeveloperID,
		IsActive:    true,
	}
	err = r.Pool.QueryRow(ctx, `
INSERT INTO products (id, title, description, product_url, image_url, price, category, tags, type, developer_id)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at, updated_at`,
		p.ID, p.Title, p.Description, p.ProductURL, p.ImageURL, p.Price, p.Category, tags, p.Type, p.DeveloperID,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return domain.Product{}, classifyWrite("create product", err)
	}

	// грубая инвалидация списков
	r.lists.Delete(productListKey)
	r.lists.Delete(devListPrefix + np.DeveloperID)
	return p, nil
}

func (r *Postgres) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	rows, err := r.Pool.Query(ctx, productSelect+` WHERE id = $1`, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product: %v: %w", err, domain.ErrBackend)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Product{}, fmt.Errorf("get product: %v: %w", err, domain.ErrBackend)
		}
		return domain.Product{}, domain.ErrNotFound
	}
	return scanProduct(rows)
}

const productSelect = `
SELECT id, title, description, product_url, image_url, price, category, tags, type,
       developer_id, is_active, download_count, created_at, updated_at
FROM products`

// Столбцы сортировки по ключам контракта.
var sortColumns = map[domain.SortKey]string{
	domain.SortByCreatedAt: "created_at",
	domain.SortByPrice:     "price",
	domain.SortByDownloads: "download_count",
	domain.SortByTitle:     "title",
}

func (r *Postgres) GetProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	f.Normalize()

	if key, ok := listCacheKey(f); ok {
		if cached, hit := r.lists.Get(key); hit {
			return cached, nil
		}
	}

	where := "is_active"
	var args []any
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.Category != "" {
		where += " AND category = " + next(f.Category)
	}
	if f.Type != "" {
		where += " AND type = " + next(f.Type)
	}
	if f.DeveloperID != "" {
		where += " AND developer_id = " + next(f.DeveloperID)
	}
	if f.Search != "" {
		pat := next("%" + f.Search + "%")
		where += fmt.Sprintf(" AND (title ILIKE %s OR description ILIKE %s)", pat, pat)
	}
	if f.PriceMin != nil {
		where += " AND price >= " + next(*f.PriceMin)
	}
	if f.PriceMax != nil {
		where += " AND price <= " + next(*f.PriceMax)
	}
	if len(f.Tags) > 0 {
		where += " AND tags ?| " + next(f.Tags)
	}

	order := sortColumns[f.SortBy]
	if f.SortOrder == domain.SortAsc {
		order += " ASC"
	} else {
		order += " DESC"
	}

	sql := fmt.Sprintf("%s WHERE %s ORDER BY %s LIMIT %s OFFSET %s",
		productSelect, where, order, next(f.Limit), next(f.Offset))

	rows, err := r.Pool.Query(ctx, sql, args...)
	if err != nil {
		// путь чтения деградирует до пустого списка
		r.log.Error("get products query failed", "err", err)
		return []domain.Product{}, nil
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			r.log.Error("get products scan failed", "err", err)
			return []domain.Product{}, nil
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		r.log.Error("get products rows failed", "err", err)
		return []domain.Product{}, nil
	}

	if key, ok := listCacheKey(f); ok {
		r.lists.Set(key, products, r.userTTL)
	}
	return products, nil
}

// listCacheKey — кэшируются только две канонические выборки: общий список
// и список по разработчику, оба с параметрами страницы по умолчанию.
func listCacheKey(f domain.ProductFilter) (string, bool) {
	def := f.Search == "" && f.Category == "" && f.Type == "" &&
		f.PriceMin == nil && f.PriceMax == nil && len(f.Tags) == 0 &&
		f.SortBy == domain.SortByCreatedAt && f.SortOrder == domain.SortDesc &&
		f.Limit == domain.DefaultPageLimit && f.Offset == 0
	if !def {
		return "", false
	}
	if f.DeveloperID != "" {
		return devListPrefix + f.DeveloperID, true
	}
	return productListKey, true
}

func (r *Postgres) UpdateProduct(ctx context.Context, id string, upd domain.ProductUpdate) (domain.Product, error) {
	set := "updated_at = now()"
	args := []any{id}
	add := func(col string, v any) {
		args = append(args, v)
		set += fmt.Sprintf(", %s = $%d", col, len(args))
	}
	if upd.Title != nil {
		add("title", *upd.Title)
	}
	if upd.Description != nil {
		add("description", *upd.Description)
	}
	if upd.ProductURL != nil {
		add("product_url", *upd.ProductURL)
	}
	if upd.ImageURL != nil {
		add("image_url", *upd.ImageURL)
	}
	if upd.Price != nil {
		add("price", *upd.Price)
	}
	if upd.Category != nil {
		add("category", *upd.Category)
	}
	if upd.Tags != nil {
		tags, err := json.Marshal(upd.Tags)
		if err != nil {
			return domain.Product{}, fmt.Errorf("marshal tags: %w", domain.ErrValidation)
		}
		add("tags", tags)
	}
	if upd.IsActive != nil {
		add("is_active", *upd.IsActive)
	}

	rows, err := r.Pool.Query(ctx, `
UPDATE products SET `+set+` WHERE id = $1
RETURNING id, title, description, product_url, image_url, price, category, tags, type,
          developer_id, is_active, download_count, created_at, updated_at`, args...)
	if err != nil {
		return domain.Product{}, fmt.Errorf("update product: %v: %w", err, domain.ErrBackend)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return domain.Product{}, fmt.Errorf("update product: %v: %w", err, domain.ErrBackend)
		}
		return domain.Product{}, domain.ErrNotFound
	}
	p, err := scanProduct(rows)
	if err != nil {
		return domain.Product{}, err
	}
	r.lists.DeletePrefix(productListPrefix)
	return p, nil
}

func (r *Postgres) DeleteProduct(ctx context.Context, id string) error {
	tag, err := r.Pool.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete product: %v: %w", err, domain.ErrBackend)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	r.lists.DeletePrefix(productListPrefix)
	return nil
}

// --- Транзакции ---

func (r *Postgres) CreateTransaction(ctx context.Context, nt domain.NewTransaction) (domain.Transaction, error) {
	t := domain.Transaction{
		ID:           uuid.NewString(),
		ProductID:    nt.ProductID,
		BuyerID:      nt.BuyerID,
		SellerID:     nt.SellerID,
		Amount:       nt.Amount,
		MoneroTxHash: nt.MoneroTxHash,
		Status:       domain.TxPending,
	}
	err := r.Pool.QueryRow(ctx, `
INSERT INTO transactions (id, product_id, buyer_id, seller_id, amount, monero_tx_hash, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING created_at, updated_at`,
		t.ID, t.ProductID, t.BuyerID, t.SellerID, t.Amount, t.MoneroTxHash, t.Status,
	).Scan(&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return domain.Transaction{}, classifyWrite("create transaction", err)
	}
	return t, nil
}

func (r *Postgres) GetTransactionByID(ctx context.Context, id string) (domain.Transaction, error) {
	return r.getTransactionWhere(ctx, "id = $1", id)
}

func (r *Postgres) getTransactionWhere(ctx context.Context, cond string, arg any) (domain.Transaction, error) {
	var t domain.Transaction
	err := r.Pool.QueryRow(ctx, `
SELECT id, product_id, buyer_id, seller_id, amount, monero_tx_hash, status, created_at, updated_at
FROM transactions WHERE `+cond, arg,
	).Scan(&t.ID, &t.ProductID, &t.BuyerID, &t.SellerID, &t.Amount, &t.MoneroTxHash, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("get transaction: %v: %w", err, domain.ErrBackend)
	}
	return t, nil
}

func (r *Postgres) GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	rows, err := r.Pool.Query(ctx, `
SELECT id, product_id, buyer_id, seller_id, amount, monero_tx_hash, status, created_at, updated_at
FROM transactions WHERE buyer_id = $1 OR seller_id = $1
ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("get user transactions: %v: %w", err, domain.ErrBackend)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		var t domain.Transaction
		if err := rows.Scan(&t.ID, &t.ProductID, &t.BuyerID, &t.SellerID, &t.Amount,
			&t.MoneroTxHash, &t.Status, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("get user transactions: scan: %v: %w", err, domain.ErrBackend)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("get user transactions: rows: %v: %w", err, domain.ErrBackend)
	}
	return out, nil
}

func (r *Postgres) UpdateTransactionStatus(ctx context.Context, id string, status domain.TxStatus, moneroTxHash string) (domain.Transaction, error) {
	if !status.Valid() {
		return domain.Transaction{}, fmt.Errorf("status %q: %w", status, domain.ErrValidation)
	}
	cur, err := r.GetTransactionByID(ctx, id)
	if err != nil {
		return domain.Transaction{}, err
	}
	if cur.Status.Terminal() {
		return domain.Transaction{}, fmt.Errorf("transaction %s already %s: %w", id, cur.Status, domain.ErrValidation)
	}
	if moneroTxHash == "" {
		moneroTxHash = cur.MoneroTxHash
	}

	var t domain.Transaction
	err = r.Pool.QueryRow(ctx, `
UPDATE transactions SET status = $2, monero_tx_hash = $3, updated_at = now() WHERE id = $1
RETURNING id, product_id, buyer_id, seller_id, amount, monero_tx_hash, status, created_at, updated_at`,
		id, status, moneroTxHash,
	).Scan(&t.ID, &t.ProductID, &t.BuyerID, &t.SellerID, &t.Amount, &t.MoneroTxHash, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("update transaction: %v: %w", err, domain.ErrBackend)
	}
	return t, nil
}

// --- Вспомогательное ---

func scanProduct(rows pgx.Rows) (domain.Product, error) {
	var p domain.Product
	var tags []byte
	if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.ProductURL, &p.ImageURL, &p.Price,
		&p.Category, &tags, &p.Type, &p.DeveloperID, &p.IsActive, &p.DownloadCount,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Product{}, fmt.Errorf("scan product: %v: %w", err, domain.ErrBackend)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		p.Tags = nil
	}
	return p, nil
}

// classifyWrite переводит нарушение уникальности в ErrConflict, остальное —
// в ErrBackend.
func classifyWrite(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, domain.ErrConflict)
	}
	return fmt.Errorf("%s: %v: %w", op, err, domain.ErrBackend)
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}
