package federation

import (
	"context"
	"testing"

	"github.com/example/marketplace-service/internal/adapter/fedstore"
	"github.com/example/marketplace-service/internal/apub"
	"github.com/example/marketplace-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://market.test"

type recordingPublisher struct {
	acts []apub.Activity
}

func (r *recordingPublisher) Publish(_ context.Context, act apub.Activity) error {
	r.acts = append(r.acts, act)
	return nil
}

func newTestStorage(t *testing.T) (*Storage, fedstore.Store, *recordingPublisher) {
	t.Helper()
	store := fedstore.NewMemoryStore()
	pub := &recordingPublisher{}
	return New(store, pub, testBase, nil), store, pub
}

func createDeveloper(t *testing.T, s *Storage, username string) domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), domain.NewUser{
		Email:         username + "@example.org",
		Username:      username,
		Role:          domain.RoleDeveloper,
		MoneroAddress: "44" + username,
	})
	require.NoError(t, err)
	return u
}

func TestCreateUserEmitsSelfAddressedCreate(t *testing.T) {
	s, store, pub := newTestStorage(t)

	u := createDeveloper(t, s, "alice")
	assert.Equal(t, "alice", u.ID, "actor short id is the username")
	assert.Equal(t, "alice", u.Username)
	assert.Equal(t, domain.RoleDeveloper, u.Role)

	require.Len(t, pub.acts, 1)
	act := pub.acts[0]
	actorURI := apub.ToURI(testBase, apub.KindActor, "alice")
	assert.Equal(t, apub.TypeCreate, act.Type)
	assert.Equal(t, actorURI, act.Actor)
	assert.Equal(t, []string{actorURI}, act.To, "registration is addressed to the actor itself")
	assert.Empty(t, act.Cc)

	// the activity is durably stored as well
	recs, err := store.Find(context.Background(), apub.KindActivity, fedstore.Query{Type: apub.TypeCreate})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestCreateProductAndListByDeveloper(t *testing.T) {
	s, _, pub := newTestStorage(t)
	ctx := context.Background()

	dev := createDeveloper(t, s, "studio")
	p, err := s.CreateProduct(ctx, domain.NewProduct{
		Title:       "Voidrunner",
		Description: "Fast-paced roguelike.",
		ProductURL:  "https://dl.test/voidrunner",
		Price:       0.05,
		Category:    "action",
		Tags:        []string{"roguelike"},
		Type:        domain.ProductGame,
		DeveloperID: dev.ID,
	})
	require.NoError(t, err)
	assert.NotContains(t, p.ID, "/", "contract surface exposes short ids only")
	assert.Equal(t, dev.ID, p.DeveloperID)

	list, err := s.GetProducts(ctx, domain.ProductFilter{DeveloperID: dev.ID})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)
	assert.Equal(t, int64(0), list[0].DownloadCount)
	assert.InDelta(t, 0.05, list[0].Price, 1e-12)

	// announcement goes to the public audience and the developer's followers
	act := pub.acts[len(pub.acts)-1]
	assert.Equal(t, apub.TypeCreate, act.Type)
	assert.Equal(t, apub.ToURI(testBase, apub.KindActor, dev.ID), act.Actor)
	assert.Equal(t, []string{apub.PublicAudience}, act.To)
	assert.Equal(t, []string{apub.ToURI(testBase, apub.KindActor, dev.ID) + "/followers"}, act.Cc)
}

func TestCreateProductUnknownDeveloper(t *testing.T) {
	s, _, _ := newTestStorage(t)
	_, err := s.CreateProduct(context.Background(), domain.NewProduct{
		Title:       "Ghost",
		DeveloperID: "nobody",
		Type:        domain.ProductGame,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetProductsIgnoresUnsupportedFilters(t *testing.T) {
	s, _, _ := newTestStorage(t)
	ctx := context.Background()

	dev := createDeveloper(t, s, "indie")
	_, err := s.CreateProduct(ctx, domain.NewProduct{
		Title:       "Puzzled",
		Price:       2,
		Category:    "puzzle",
		Type:        domain.ProductApp,
		DeveloperID: dev.ID,
	})
	require.NoError(t, err)

	min := 100.0
	list, err := s.GetProducts(ctx, domain.ProductFilter{
		Search:   "no such text anywhere",
		PriceMin: &min,
		Category: "puzzle",
	})
	require.NoError(t, err)
	assert.Len(t, list, 1, "search and price filters are ignored, category still applies")

	list, err = s.GetProducts(ctx, domain.ProductFilter{Category: "action"})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestTransactionLifecycle(t *testing.T) {
	s, _, pub := newTestStorage(t)
	ctx := context.Background()

	seller := createDeveloper(t, s, "seller")
	buyer := createDeveloper(t, s, "buyer")
	p, err := s.CreateProduct(ctx, domain.NewProduct{
		Title:       "Big Game",
		Price:       10,
		Category:    "action",
		Type:        domain.ProductGame,
		DeveloperID: seller.ID,
	})
	require.NoError(t, err)

	tx, err := s.CreateTransaction(ctx, domain.NewTransaction{
		ProductID: p.ID,
		BuyerID:   buyer.ID,
		SellerID:  seller.ID,
		Amount:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, domain.TxPending, tx.Status)
	assert.Equal(t, p.ID, tx.ProductID)
	assert.Equal(t, buyer.ID, tx.BuyerID)
	assert.Equal(t, seller.ID, tx.SellerID)

	// purchase announcement goes directly to the seller, not public
	act := pub.acts[len(pub.acts)-1]
	sellerURI := apub.ToURI(testBase, apub.KindActor, seller.ID)
	buyerURI := apub.ToURI(testBase, apub.KindActor, buyer.ID)
	assert.Equal(t, apub.TypeCreate, act.Type)
	assert.Equal(t, buyerURI, act.Actor)
	assert.Equal(t, []string{sellerURI}, act.To)

	updated, err := s.UpdateTransactionStatus(ctx, tx.ID, domain.TxCompleted, "hash123")
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, updated.Status)
	assert.Equal(t, "hash123", updated.MoneroTxHash)

	// update is authored by the seller and addressed to the buyer
	act = pub.acts[len(pub.acts)-1]
	assert.Equal(t, apub.TypeUpdate, act.Type)
	assert.Equal(t, sellerURI, act.Actor)
	assert.Equal(t, []string{buyerURI}, act.To)

	got, err := s.GetTransactionByID(ctx, tx.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TxCompleted, got.Status)
	assert.Equal(t, "hash123", got.MoneroTxHash)

	listed, err := s.GetUserTransactions(ctx, buyer.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, tx.ID, listed[0].ID)

	listed, err = s.GetUserTransactions(ctx, seller.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 1, "seller sees the transaction as participant")
}

func TestUpdateTransactionStatusTerminal(t *testing.T) {
	s, _, _ := newTestStorage(t)
	ctx := context.Background()

	seller := createDeveloper(t, s, "s1")
	buyer := createDeveloper(t, s, "b1")
	p, err := s.CreateProduct(ctx, domain.NewProduct{Title: "G", Price: 1, Type: domain.ProductGame, DeveloperID: seller.ID})
	require.NoError(t, err)
	tx, err := s.CreateTransaction(ctx, domain.NewTransaction{ProductID: p.ID, BuyerID: buyer.ID, SellerID: seller.ID, Amount: 1})
	require.NoError(t, err)

	_, err = s.UpdateTransactionStatus(ctx, tx.ID, domain.TxCancelled, "")
	require.NoError(t, err)

	_, err = s.UpdateTransactionStatus(ctx, tx.ID, domain.TxCompleted, "late")
	assert.ErrorIs(t, err, domain.ErrValidation, "terminal states do not transition")
}

func TestCreateTransactionMissingEntities(t *testing.T) {
	s, _, _ := newTestStorage(t)
	ctx := context.Background()

	buyer := createDeveloper(t, s, "lonely")
	_, err := s.CreateTransaction(ctx, domain.NewTransaction{
		ProductID: "no-such-product",
		BuyerID:   buyer.ID,
		SellerID:  "no-such-seller",
		Amount:    1,
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUnsupportedOperations(t *testing.T) {
	s, _, _ := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetUserByEmail(ctx, "a@example.org")
	assert.ErrorIs(t, err, domain.ErrNotSupported)
	assert.NotErrorIs(t, err, domain.ErrNotFound, "never a false absence")

	_, err = s.UpdateUser(ctx, "alice", domain.UserUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotSupported)

	_, err = s.UpdateProduct(ctx, "p1", domain.ProductUpdate{})
	assert.ErrorIs(t, err, domain.ErrNotSupported)

	assert.ErrorIs(t, s.DeleteProduct(ctx, "p1"), domain.ErrNotSupported)
}

func TestGetUserByUsernameMatchesByID(t *testing.T) {
	s, _, _ := newTestStorage(t)
	ctx := context.Background()

	u := createDeveloper(t, s, "carol")
	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	byName, err := s.GetUserByUsername(ctx, "carol")
	require.NoError(t, err)
	assert.Equal(t, byID, byName)
}
