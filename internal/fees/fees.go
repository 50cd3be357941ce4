// Package fees считает разбиение платежа на выручку продавца и комиссию
// маркетплейса.
package fees

import (
	"fmt"
	"strconv"

	"github.com/example/marketplace-service/internal/domain"
)

// Назначения платежей при сплите.
const (
	PurposeSellerPayment  = "seller_payment"
	PurposeMarketplaceFee = "marketplace_fee"
)

// Точность сумм в атомарных единицах валюты (пикомонеро).
const amountPrecision = 12

// Calculator — чистый калькулятор комиссии с фиксированной ставкой.
type Calculator struct {
	Rate          float64 // доля комиссии, [0, 1]
	PayoutAddress string  // адрес владельца инстанса; пустой — комиссия не выплачивается
}

// Breakdown — результат разбиения суммы.
type Breakdown struct {
	Total         float64 `json:"totalAmount"`
	Fee           float64 `json:"marketplaceFee"`
	SellerAmount  float64 `json:"sellerAmount"`
	Rate          float64 `json:"feeRate"`
	PayoutAddress string  `json:"instanceOwnerAddress,omitempty"`
}

// Destination — один получатель сплит-платежа.
type Destination struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
	Purpose string `json:"purpose"`
}

// Info — сведения о комиссии для отображения.
type Info struct {
	Rate          float64 `json:"feeRate"`
	RatePercent   string  `json:"feePercentage"`
	PayoutAddress string  `json:"instanceOwnerAddress,omitempty"`
	Description   string  `json:"description"`
}

// Calculate разбивает сумму total на комиссию и выручку продавца.
// Неположительная сумма — ошибка валидации.
func (c Calculator) Calculate(total float64) (Breakdown, error) {
	if total <= 0 {
		return Breakdown{}, fmt.Errorf("total amount must be greater than 0: %w", domain.ErrValidation)
	}
	fee := total * c.Rate
	return Breakdown{
		Total:         total,
		Fee:           fee,
		SellerAmount:  total - fee,
		Rate:          c.Rate,
		PayoutAddress: c.PayoutAddress,
	}, nil
}

// PaymentDestinations строит список получателей сплит-платежа.
// Продавец включается только при положительной выручке, комиссия — при
// положительной сумме и настроенном адресе выплат.
func (c Calculator) PaymentDestinations(sellerAddress string, b Breakdown) []Destination {
	var dests []Destination
	if b.SellerAmount > 0 {
		dests = append(dests, Destination{
			Address: sellerAddress,
			Amount:  FormatAmount(b.SellerAmount),
			Purpose: PurposeSellerPayment,
		})
	}
	if b.Fee > 0 && c.PayoutAddress != "" {
		dests = append(dests, Destination{
			Address: c.PayoutAddress,
			Amount:  FormatAmount(b.Fee),
			Purpose: PurposeMarketplaceFee,
		})
	}
	return dests
}

// ValidateConfig проверяет настройки калькулятора. Проверка рекомендательная:
// Calculate её не навязывает.
func (c Calculator) ValidateConfig() []string {
	var errs []string
	if c.Rate < 0 || c.Rate > 1 {
		errs = append(errs, "marketplace fee rate must be between 0 and 1 (0% to 100%)")
	}
	if c.PayoutAddress == "" {
		errs = append(errs, "instance owner payout address must be configured")
	}
	return errs
}

// Info возвращает сведения о комиссии для публичного API.
func (c Calculator) Info() Info {
	percent := strconv.FormatFloat(c.Rate*100, 'f', 1, 64) + "%"
	return Info{
		Rate:          c.Rate,
		RatePercent:   percent,
		PayoutAddress: c.PayoutAddress,
		Description:   fmt.Sprintf("Marketplace fee: %s goes to instance owner for hosting and maintenance", percent),
	}
}

// FormatAmount форматирует сумму с фиксированной точностью валюты.
func FormatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', amountPrecision, 64)
}
