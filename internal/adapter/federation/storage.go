// Package federation — адаптер контракта хранения поверх федеративной
// объектной модели. Сущности хранятся как записи fedstore, события создания
// и обновления публикуются в outbox.
package federation

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/marketplace-service/internal/adapter/fedstore"
	"github.com/example/marketplace-service/internal/apub"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Publisher — порт доставки активностей федеративному слою.
type Publisher interface {
	Publish(ctx context.Context, act apub.Activity) error
}

// Storage — федеративная реализация domain.Storage.
//
// Ограничения режима: нет индекса по email, нет произвольного обновления и
// жёсткого удаления (ErrNotSupported); поиск и ценовой фильтр списка
// игнорируются. Уникальность имени пользователя сервером не гарантируется —
// одновременная регистрация одинаковых имён идёт по принципу «последняя
// запись побеждает».
type Storage struct {
	store fedstore.Store
	pub   Publisher // nil — доставка отключена
	base  string
	log   *slog.Logger
}

// New создаёт адаптер. pub может быть nil, logger nil — slog.Default().
func New(store fedstore.Store, pub Publisher, baseURL string, logger *slog.Logger) *Storage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{store: store, pub: pub, base: baseURL, log: logger}
}

var _ domain.Storage = (*Storage)(nil)

func (s *Storage) Init(_ context.Context) error  { return nil }
func (s *Storage) Close(_ context.Context) error { return nil }

// --- Трансляция идентификаторов ---

// uri достраивает полный URI из короткого id; полный URI проходит как есть.
func (s *Storage) uri(k apub.Kind, id string) string {
	if apub.IsURI(id) {
		return id
	}
	return apub.ToURI(s.base, k, id)
}

// --- Пользователи ---

// CreateUser строит актора из данных регистрации и публикует Create в его
// собственный outbox. Пароль федеративный бэкенд не хранит.
func (s *Storage) CreateUser(ctx context.Context, nu domain.NewUser) (domain.User, error) {
	now := time.Now().UTC()
	actorID := apub.ToURI(s.base, apub.KindActor, nu.Username)
	actor := apub.Actor{
		ID:                actorID,
		Type:              apub.TypePerson,
		PreferredUsername: nu.Username,
		Name:              nu.Username,
		Inbox:             actorID + "/inbox",
		Outbox:            actorID + "/outbox",
		Followers:         actorID + "/followers",
		Following:         actorID + "/following",
		Email:             nu.Email,
		MoneroAddress:     nu.MoneroAddress,
		Role:              nu.Role,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if err := s.putActor(ctx, actor); err != nil {
		return domain.User{}, err
	}

	// объявление о регистрации адресуется только самому актору
	s.emit(ctx, apub.Activity{
		Context:   apub.ContextActivityStreams,
		Type:      apub.TypeCreate,
		Actor:     actor.ID,
		Object:    actor,
		Published: now,
		To:        []string{actor.ID},
	})

	return userFromActor(actor), nil
}

// GetUserByID — в федеративном режиме короткий id актора равен имени
// пользователя, поэтому оба метода ведут на один путь.
func (s *Storage) GetUserByID(ctx context.Context, id string) (domain.User, error) {
	actor, err := s.getActor(ctx, id)
	if err != nil {
		return domain.User{}, err
	}
	return userFromActor(actor), nil
}

func (s *Storage) GetUserByUsername(ctx context.Context, username string) (domain.User, error) {
	return s.GetUserByID(ctx, username)
}

// GetUserByEmail не реализуем без отдельного индекса email→актор; явный
// отказ вместо ложного «не найдено».
func (s *Storage) GetUserByEmail(_ context.Context, _ string) (domain.User, error) {
	return domain.User{}, fmt.Errorf("get user by email: %w", domain.ErrNotSupported)
}

func (s *Storage) UpdateUser(_ context.Context, _ string, _ domain.UserUpdate) (domain.User, error) {
	return domain.User{}, fmt.Errorf("update user: %w", domain.ErrNotSupported)
}

// --- Продукты ---

func (s *Storage) CreateProduct(ctx context.Context, np domain.NewProduct) (domain.Product, error) {
	developer, err := s.getActor(ctx, np.DeveloperID)
	if err != nil {
		return domain.Product{}, fmt.Errorf("developer not found: %w", err)
	}

	now := time.Now().UTC()
	article := apub.Article{
		Context:       apub.MarketContext(),
		ID:            apub.ToURI(s.base, apub.KindObject, uuid.NewString()),
		Type:          apub.TypeArticle,
		Name:          np.Title,
		Content:       np.Description,
		URL:           np.ProductURL,
		Image:         np.ImageURL,
		Price:         np.Price,
		Category:      np.Category,
		Tag:           np.Tags,
		ProductType:   np.Type,
		AttributedTo:  developer.ID,
		Published:     now,
		Updated:       now,
		IsActive:      true,
		DownloadCount: 0,
	}
	if err := s.putObject(ctx, article.ID, apub.TypeArticle, article); err != nil {
		return domain.Product{}, err
	}

	// публичное объявление подписчикам разработчика
	s.emit(ctx, apub.Activity{
		Context:   apub.ContextActivityStreams,
		Type:      apub.TypeCreate,
		Actor:     developer.ID,
		Object:    article,
		Published: now,
		To:        []string{apub.PublicAudience},
		Cc:        []string{developer.Followers},
	})

	return productFromArticle(article), nil
}

func (s *Storage) GetProductByID(ctx context.Context, id string) (domain.Product, error) {
	article, err := s.getArticle(ctx, s.uri(apub.KindObject, id))
	if err != nil {
		return domain.Product{}, err
	}
	return productFromArticle(article), nil
}

// GetProducts поддерживает фильтры по категории, типу и разработчику.
// Поиск и ценовой диапазон в федеративном режиме игнорируются: это
// документированное ограничение, не ошибка.
func (s *Storage) GetProducts(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	f.Normalize()

	fields := map[string]string{}
	if f.Category != "" {
		fields["category"] = f.Category
	}
	if f.Type != "" {
		fields["productType"] = string(f.Type)
	}
	if f.DeveloperID != "" {
		fields["attributedTo"] = s.uri(apub.KindActor, f.DeveloperID)
	}

	recs, err := s.store.Find(ctx, apub.KindObject, fedstore.Query{
		Type:   apub.TypeArticle,
		Fields: fields,
		Limit:  f.Limit,
		Offset: f.Offset,
	})
	if err != nil {
		s.log.Error("federation: find products failed", "err", err)
		return []domain.Product{}, nil
	}

	products := []domain.Product{}
	for _, rec := range recs {
		var article apub.Article
		if err := json.Unmarshal(rec.Data, &article); err != nil {
			s.log.Error("federation: bad article payload", "id", rec.ID, "err", err)
			continue
		}
		products = append(products, productFromArticle(article))
	}
	return products, nil
}

func (s *Storage) UpdateProduct(_ context.Context, _ string, _ domain.ProductUpdate) (domain.Product, error) {
	return domain.Product{}, fmt.Errorf("update product: %w", domain.ErrNotSupported)
}

func (s *Storage) DeleteProduct(_ context.Context, _ string) error {
	return fmt.Errorf("delete product: %w", domain.ErrNotSupported)
}

// --- Транзакции ---

// CreateTransaction параллельно разрешает покупателя, продавца и продукт,
// сохраняет Purchase-объект и кладёт Create в outbox покупателя, адресуя его
// продавцу напрямую (не публично).
func (s *Storage) CreateTransaction(ctx context.Context, nt domain.NewTransaction) (domain.Transaction, error) {
	var (
		buyer, seller apub.Actor
		article       apub.Article
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		buyer, err = s.getActor(gctx, nt.BuyerID)
		return err
	})
	g.Go(func() (err error) {
		seller, err = s.getActor(gctx, nt.SellerID)
		return err
	})
	g.Go(func() (err error) {
		article, err = s.getArticle(gctx, s.uri(apub.KindObject, nt.ProductID))
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Transaction{}, fmt.Errorf("required entities not found: %w", err)
	}

	now := time.Now().UTC()
	// идентификаторы покупок живут в семействе активностей, сами объекты —
	// в коллекции объектов
	purchase := apub.Purchase{
		Context:      apub.MarketContext(),
		ID:           apub.ToURI(s.base, apub.KindActivity, uuid.NewString()),
		Type:         apub.TypePurchase,
		Actor:        buyer.ID,
		Object:       article.ID,
		Target:       seller.ID,
		Amount:       nt.Amount,
		MoneroTxHash: nt.MoneroTxHash,
		Status:       domain.TxPending,
		Published:    now,
		Updated:      now,
	}
	if err := s.putObject(ctx, purchase.ID, apub.TypePurchase, purchase); err != nil {
		return domain.Transaction{}, err
	}

	s.emit(ctx, apub.Activity{
		Context:   apub.ContextActivityStreams,
		Type:      apub.TypeCreate,
		Actor:     buyer.ID,
		Object:    purchase,
		Published: now,
		To:        []string{seller.ID},
	})

	return transactionFromPurchase(purchase), nil
}

func (s *Storage) GetTransactionByID(ctx context.Context, id string) (domain.Transaction, error) {
	purchase, err := s.getPurchase(ctx, s.uri(apub.KindActivity, id))
	if err != nil {
		return domain.Transaction{}, err
	}
	return transactionFromPurchase(purchase), nil
}

func (s *Storage) GetUserTransactions(ctx context.Context, userID string) ([]domain.Transaction, error) {
	actorURI := s.uri(apub.KindActor, userID)
	recs, err := s.store.Find(ctx, apub.KindObject, fedstore.Query{
		Type:  apub.TypePurchase,
		AnyOf: map[string]string{"actor": actorURI, "target": actorURI},
	})
	if err != nil {
		return nil, err
	}

	out := []domain.Transaction{}
	for _, rec := range recs {
		var purchase apub.Purchase
		if err := json.Unmarshal(rec.Data, &purchase); err != nil {
			s.log.Error("federation: bad purchase payload", "id", rec.ID, "err", err)
			continue
		}
		out = append(out, transactionFromPurchase(purchase))
	}
	return out, nil
}

// UpdateTransactionStatus — единственный путь мутации федеративных объектов:
// слияние статуса и пруфа перевода с повторной записью под тем же id и
// Update-активностью от продавца к покупателю.
func (s *Storage) UpdateTransactionStatus(ctx context.Context, id string, status domain.TxStatus, moneroTxHash string) (domain.Transaction, error) {
	if !status.Valid() {
		return domain.Transaction{}, fmt.Errorf("status %q: %w", status, domain.ErrValidation)
	}
	purchase, err := s.getPurchase(ctx, s.uri(apub.KindActivity, id))
	if err != nil {
		return domain.Transaction{}, err
	}
	if purchase.Status.Terminal() {
		return domain.Transaction{}, fmt.Errorf("transaction %s already %s: %w", id, purchase.Status, domain.ErrValidation)
	}

	purchase.Status = status
	if moneroTxHash != "" {
		purchase.MoneroTxHash = moneroTxHash
	}
	purchase.Updated = time.Now().UTC()

	if err := s.putObject(ctx, purchase.ID, apub.TypePurchase, purchase); err != nil {
		return domain.Transaction{}, err
	}

	s.emit(ctx, apub.Activity{
		Context:   apub.ContextActivityStreams,
		Type:      apub.TypeUpdate,
		Actor:     purchase.Target, // статус меняет продавец
		Object:    purchase,
		Published: purchase.Updated,
		To:        []string{purchase.Actor}, // уведомляем покупателя
	})

	return transactionFromPurchase(purchase), nil
}

// --- Работа с хранилищем ---

func (s *Storage) getActor(ctx context.Context, id string) (apub.Actor, error) {
	rec, err := s.store.Get(ctx, apub.KindActor, s.uri(apub.KindActor, id))
	if err != nil {
		return apub.Actor{}, err
	}
	var actor apub.Actor
	if err := json.Unmarshal(rec.Data, &actor); err != nil {
		return apub.Actor{}, fmt.Errorf("decode actor %s: %v: %w", rec.ID, err, domain.ErrBackend)
	}
	return actor, nil
}

func (s *Storage) putActor(ctx context.Context, actor apub.Actor) error {
	data, err := json.Marshal(actor)
	if err != nil {
		return fmt.Errorf("encode actor: %v: %w", err, domain.ErrBackend)
	}
	return s.store.Put(ctx, apub.KindActor, fedstore.Record{ID: actor.ID, Type: apub.TypePerson, Data: data})
}

func (s *Storage) getArticle(ctx context.Context, uri string) (apub.Article, error) {
	rec, err := s.store.Get(ctx, apub.KindObject, uri)
	if err != nil {
		return apub.Article{}, err
	}
	if rec.Type != apub.TypeArticle {
		return apub.Article{}, domain.ErrNotFound
	}
	var article apub.Article
	if err := json.Unmarshal(rec.Data, &article); err != nil {
		return apub.Article{}, fmt.Errorf("decode article %s: %v: %w", rec.ID, err, domain.ErrBackend)
	}
	return article, nil
}

func (s *Storage) getPurchase(ctx context.Context, uri string) (apub.Purchase, error) {
	rec, err := s.store.Get(ctx, apub.KindObject, uri)
	if err != nil {
		return apub.Purchase{}, err
	}
	if rec.Type != apub.TypePurchase {
		return apub.Purchase{}, domain.ErrNotFound
	}
	var purchase apub.Purchase
	if err := json.Unmarshal(rec.Data, &purchase); err != nil {
		return apub.Purchase{}, fmt.Errorf("decode purchase %s: %v: %w", rec.ID, err, domain.ErrBackend)
	}
	return purchase, nil
}

func (s *Storage) putObject(ctx context.Context, id, typ string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s: %v: %w", typ, err, domain.ErrBackend)
	}
	return s.store.Put(ctx, apub.KindObject, fedstore.Record{ID: id, Type: typ, Data: data})
}

// emit дописывает активность в коллекцию активностей и публикует её в
// доставку. Объект уже записан долговременно: сбой здесь логируется и не
// откатывает запись.
func (s *Storage) emit(ctx context.Context, act apub.Activity) {
	act.ID = apub.ToURI(s.base, apub.KindActivity, uuid.NewString())

	data, err := json.Marshal(act)
	if err != nil {
		s.log.Error("federation: encode activity failed", "type", act.Type, "err", err)
		return
	}
	if err := s.store.Put(ctx, apub.KindActivity, fedstore.Record{ID: act.ID, Type: act.Type, Data: data}); err != nil {
		s.log.Error("federation: store activity failed", "id", act.ID, "err", err)
	}
	if s.pub != nil {
		if err := s.pub.Publish(ctx, act); err != nil {
			s.log.Error("federation: publish activity failed", "id", act.ID, "err", err)
		}
	}
}

// --- Конвертация в доменные сущности ---

func userFromActor(actor apub.Actor) domain.User {
	return domain.User{
		ID:            apub.ShortID(actor.ID),
		Email:         actor.Email,
		Username:      actor.PreferredUsername,
		Role:          actor.Role,
		MoneroAddress: actor.MoneroAddress,
		CreatedAt:     actor.CreatedAt,
		UpdatedAt:     actor.UpdatedAt,
	}
}

func productFromArticle(article apub.Article) domain.Product {
	return domain.Product{
		ID:            apub.ShortID(article.ID),
		Title:         article.Name,
		Description:   article.Content,
		ProductURL:    article.URL,
		ImageURL:      article.Image,
		Price:         article.Price,
		Category:      article.Category,
		Tags:          article.Tag,
		Type:          article.ProductType,
		DeveloperID:   apub.ShortID(article.AttributedTo),
		IsActive:      article.IsActive,
		DownloadCount: article.DownloadCount,
		CreatedAt:     article.Published,
		UpdatedAt:     article.Updated,
	}
}

func transactionFromPurchase(purchase apub.Purchase) domain.Transaction {
	return domain.Transaction{
		ID:           apub.ShortID(purchase.ID),
		ProductID:    apub.ShortID(purchase.Object),
		BuyerID:      apub.ShortID(purchase.Actor),
		SellerID:     apub.ShortID(purchase.Target),
		Amount:       purchase.Amount,
		MoneroTxHash: purchase.MoneroTxHash,
		Status:       purchase.Status,
		CreatedAt:    purchase.Published,
		UpdatedAt:    purchase.Updated,
	}
}
