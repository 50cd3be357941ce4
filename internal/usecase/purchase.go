package usecase

import (
	"context"
	"fmt"

	"github.com/example/marketplace-service/internal/domain"
	"github.com/example/marketplace-service/internal/fees"
)

// PurchaseProduct — покупка продукта: идемпотентное владение, создание
// PENDING-транзакции по цене продукта и расчёт сплит-платежа.
type PurchaseProduct struct {
	Store domain.Storage
	Fees  fees.Calculator
}

// PurchaseResult — созданная (или уже существующая) покупка и реквизиты
// оплаты. Для бесплатных продуктов Destinations пуст.
type PurchaseResult struct {
	Transaction  domain.Transaction
	Breakdown    fees.Breakdown
	Destinations []fees.Destination
	AlreadyOwned bool
}

func (uc PurchaseProduct) Execute(ctx context.Context, productID, buyerID string) (PurchaseResult, error) {
	product, err := uc.Store.GetProductByID(ctx, productID)
	if err != nil {
		return PurchaseResult{}, err
	}
	if !product.IsActive {
		return PurchaseResult{}, fmt.Errorf("product %s is not active: %w", productID, domain.ErrValidation)
	}

	// у покупателя не больше одной завершённой покупки на продукт
	existing, err := uc.Store.GetUserTransactions(ctx, buyerID)
	if err != nil {
		return PurchaseResult{}, err
	}
	for _, t := range existing {
		if t.ProductID == productID && t.BuyerID == buyerID && t.Status == domain.TxCompleted {
			return PurchaseResult{Transaction: t, AlreadyOwned: true}, nil
		}
	}

	seller, err := uc.Store.GetUserByID(ctx, product.DeveloperID)
	if err != nil {
		return PurchaseResult{}, fmt.Errorf("seller: %w", err)
	}

	tx, err := uc.Store.CreateTransaction(ctx, domain.NewTransaction{
		ProductID: productID,
		BuyerID:   buyerID,
		SellerID:  product.DeveloperID,
		Amount:    product.Price,
	})
	if err != nil {
		return PurchaseResult{}, err
	}

	res := PurchaseResult{Transaction: tx}
	if product.Price > 0 {
		b, err := uc.Fees.Calculate(product.Price)
		if err != nil {
			return PurchaseResult{}, err
		}
		res.Breakdown = b
		res.Destinations = uc.Fees.PaymentDestinations(seller.MoneroAddress, b)
	}
	return res, nil
}

// CompletePurchase — подтверждение оплаты: перевод транзакции в COMPLETED с
// сохранением хэша перевода.
type CompletePurchase struct {
	Store domain.Storage
}

func (uc CompletePurchase) Execute(ctx context.Context, txID, moneroTxHash string) (domain.Transaction, error) {
	return uc.Store.UpdateTransactionStatus(ctx, txID, domain.TxCompleted, moneroTxHash)
}
