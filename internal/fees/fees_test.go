package fees

import (
	"testing"

	"github.com/example/marketplace-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateSplit(t *testing.T) {
	calc := Calculator{Rate: 0.30, PayoutAddress: "addrO"}

	b, err := calc.Calculate(100)
	require.NoError(t, err)
	assert.InDelta(t, 30.0, b.Fee, 1e-9)
	assert.InDelta(t, 70.0, b.SellerAmount, 1e-9)
	assert.Equal(t, 0.30, b.Rate)
	assert.Equal(t, "addrO", b.PayoutAddress)
}

func TestCalculateSplitProperty(t *testing.T) {
	rates := []float64{0, 0.05, 0.30, 0.5, 1}
	totals := []float64{0.000000000001, 0.05, 1, 99.99, 12345.678}

	for _, rate := range rates {
		for _, total := range totals {
			calc := Calculator{Rate: rate}
			b, err := calc.Calculate(total)
			require.NoError(t, err)
			assert.InDelta(t, total*rate, b.Fee, 1e-9)
			assert.InDelta(t, total, b.Fee+b.SellerAmount, 1e-9)
		}
	}
}

func TestCalculateRejectsNonPositive(t *testing.T) {
	calc := Calculator{Rate: 0.30}
	for _, total := range []float64{0, -0.01, -100} {
		_, err := calc.Calculate(total)
		assert.ErrorIs(t, err, domain.ErrValidation, "total %v", total)
	}
}

func TestPaymentDestinations(t *testing.T) {
	calc := Calculator{Rate: 0.30, PayoutAddress: "addrO"}
	b, err := calc.Calculate(100)
	require.NoError(t, err)

	dests := calc.PaymentDestinations("addrS", b)
	require.Len(t, dests, 2)
	assert.Equal(t, Destination{Address: "addrS", Amount: "70.000000000000", Purpose: PurposeSellerPayment}, dests[0])
	assert.Equal(t, Destination{Address: "addrO", Amount: "30.000000000000", Purpose: PurposeMarketplaceFee}, dests[1])
}

func TestPaymentDestinationsSkipsEmptyParts(t *testing.T) {
	t.Run("no payout address drops fee destination", func(t *testing.T) {
		calc := Calculator{Rate: 0.30}
		b, err := calc.Calculate(10)
		require.NoError(t, err)
		dests := calc.PaymentDestinations("addrS", b)
		require.Len(t, dests, 1)
		assert.Equal(t, PurposeSellerPayment, dests[0].Purpose)
	})

	t.Run("zero rate drops fee destination", func(t *testing.T) {
		calc := Calculator{Rate: 0, PayoutAddress: "addrO"}
		b, err := calc.Calculate(10)
		require.NoError(t, err)
		dests := calc.PaymentDestinations("addrS", b)
		require.Len(t, dests, 1)
		assert.Equal(t, PurposeSellerPayment, dests[0].Purpose)
	})

	t.Run("full rate drops seller destination", func(t *testing.T) {
		calc := Calculator{Rate: 1, PayoutAddress: "addrO"}
		b, err := calc.Calculate(10)
		require.NoError(t, err)
		dests := calc.PaymentDestinations("addrS", b)
		require.Len(t, dests, 1)
		assert.Equal(t, PurposeMarketplaceFee, dests[0].Purpose)
	})
}

func TestValidateConfig(t *testing.T) {
	assert.Empty(t, Calculator{Rate: 0.30, PayoutAddress: "addrO"}.ValidateConfig())
	assert.Len(t, Calculator{Rate: 1.5, PayoutAddress: "addrO"}.ValidateConfig(), 1)
	assert.Len(t, Calculator{Rate: 0.30}.ValidateConfig(), 1)
	assert.Len(t, Calculator{Rate: -1}.ValidateConfig(), 2)
}

func TestInfo(t *testing.T) {
	info := Calculator{Rate: 0.30, PayoutAddress: "addrO"}.Info()
	assert.Equal(t, "30.0%", info.RatePercent)
	assert.Equal(t, "addrO", info.PayoutAddress)
	assert.Contains(t, info.Description, "30.0%")
}
