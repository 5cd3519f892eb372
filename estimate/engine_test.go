package estimate_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/document-engine/estimate"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func d(s string) decimal.Decimal {
	v, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return v
}

func item(name, amount string) estimate.LineItem {
	return estimate.LineItem{Name: name, Amount: d(amount)}
}

func sampleInput() estimate.CostInput {
	return estimate.CostInput{
		Building: estimate.BuildingSpec{UnitPrice: d("650000"), Area: d("40")},
		TierA: []estimate.LineItem{
			item("exterior", "1200000"),
			item("water connection", "450000"),
		},
		TierB: []estimate.LineItem{
			item("ground improvement", "800000"),
		},
		TierC: []estimate.LineItem{
			item("solar panels", "1500000"),
		},
		Misc: []estimate.LineItem{
			item("registration", "300000"),
			item("stamp duty", "50000"),
		},
		Land: []estimate.LineItem{
			item("land price", "15000000"),
		},
		Loans: []estimate.LoanTranche{
			{Principal: d("30000000"), AnnualRate: d("0.012"), TermYears: 35},
		},
		Bridges: estimate.BridgeSet{
			LandPurchase: estimate.BridgeLoan{Amount: d("10000000"), AnnualRate: d("0.025"), Months: 6},
		},
		Solar: estimate.SolarSpec{
			CapacityKW:       d("5"),
			AnnualYieldPerKW: d("1200"),
			SelfUseKWhPerDay: d("10"),
			SellTariff:       d("16"),
			SavedUtilityCost: d("4000"),
		},
	}
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestComputeTotals_Deterministic(t *testing.T) {
	// GIVEN: Any cost input
	// WHEN: Computing totals twice
	// THEN: The results are identical

	in := sampleInput()
	first := estimate.ComputeTotals(in)
	second := estimate.ComputeTotals(in)
	require.Equal(t, first, second)
}

// =============================================================================
// ROLLUP AND TAX
// =============================================================================

func TestComputeTotals_TieredRollup(t *testing.T) {
	in := sampleInput()
	totals := estimate.ComputeTotals(in)

	assert.True(t, totals.BuildingBase.Equal(d("26000000")), "base = unit price × area, got %s", totals.BuildingBase)
	assert.True(t, totals.TierASubtotal.Equal(d("1650000")))
	assert.True(t, totals.TierBSubtotal.Equal(d("800000")))
	assert.True(t, totals.TierCSubtotal.Equal(d("1500000")))
	assert.True(t, totals.ConstructionPreTax.Equal(d("29950000")))

	// tax = floor(29,950,000 × 0.10)
	assert.True(t, totals.Tax.Equal(d("2995000")))
	assert.True(t, totals.ConstructionPostTax.Equal(d("32945000")))

	assert.True(t, totals.MiscTotal.Equal(d("350000")))
	assert.True(t, totals.LandTotal.Equal(d("15000000")))
	assert.True(t, totals.OutsideTotal.Equal(d("15350000")))
	assert.True(t, totals.GrandTotal.Equal(d("48295000")))
}

func TestComputeTotals_TaxIsFloored(t *testing.T) {
	// GIVEN: A pre-tax construction total of 1,000,001 at the 10% rate
	// WHEN: Computing tax
	// THEN: floor(100,000.1) = 100,000 — not rounded up

	in := estimate.CostInput{
		Building: estimate.BuildingSpec{UnitPrice: d("1000001"), Area: d("1")},
	}
	totals := estimate.ComputeTotals(in)

	require.True(t, totals.ConstructionPreTax.Equal(d("1000001")))
	if !totals.Tax.Equal(d("100000")) {
		t.Errorf("expected floored tax 100000, got %s", totals.Tax)
	}
}

func TestComputeTotals_NegativeAmountsTreatedAsZero(t *testing.T) {
	in := estimate.CostInput{
		TierA: []estimate.LineItem{
			item("valid", "1000"),
			item("garbage", "-500"),
		},
	}
	totals := estimate.ComputeTotals(in)
	assert.True(t, totals.TierASubtotal.Equal(d("1000")))
}

// =============================================================================
// LOAN PAYMENTS
// =============================================================================

func TestMonthlyPayment_ZeroPrincipalIsZero(t *testing.T) {
	got := estimate.MonthlyPayment(decimal.Zero, d("0.01"), 35)
	assert.True(t, got.IsZero())
}

func TestMonthlyPayment_ZeroTermIsZero(t *testing.T) {
	got := estimate.MonthlyPayment(d("35000000"), d("0.01"), 0)
	assert.True(t, got.IsZero())
}

func TestMonthlyPayment_ZeroRateIsStraightLine(t *testing.T) {
	// GIVEN: 35,000,000 over 35 years at 0%
	// THEN: Exactly principal / 420, no rounding

	got := estimate.MonthlyPayment(d("35000000"), decimal.Zero, 35)
	want := d("35000000").Div(d("420"))
	assert.True(t, got.Equal(want), "expected %s, got %s", want, got)
}

func TestMonthlyPayment_StandardAmortization(t *testing.T) {
	// 100,000 at 6% over 30 years is the textbook 599.55, rounded to 600.
	got := estimate.MonthlyPayment(d("100000"), d("0.06"), 30)
	assert.True(t, got.Equal(d("600")), "got %s", got)
}

func TestBonusPayment_ZeroRateIsStraightLine(t *testing.T) {
	// Semiannual variant: n = years × 2.
	got := estimate.BonusPayment(d("1200000"), decimal.Zero, 10)
	assert.True(t, got.Equal(d("60000")), "got %s", got)
}

func TestComputeTotals_LoanTranchesCappedAtThree(t *testing.T) {
	in := estimate.CostInput{
		Loans: []estimate.LoanTranche{
			{Principal: d("1000000"), TermYears: 10},
			{Principal: d("1000000"), TermYears: 10},
			{Principal: d("1000000"), TermYears: 10},
			{Principal: d("9999999"), TermYears: 10}, // ignored
		},
	}
	totals := estimate.ComputeTotals(in)
	require.Len(t, totals.Loans, 3)
}

// =============================================================================
// BRIDGE LOANS
// =============================================================================

func TestComputeTotals_BridgeInterest(t *testing.T) {
	// round(10,000,000 × 0.025 × 6 / 12) = 125,000
	in := sampleInput()
	totals := estimate.ComputeTotals(in)

	assert.True(t, totals.Bridges.LandPurchase.Equal(d("125000")), "got %s", totals.Bridges.LandPurchase)
	assert.True(t, totals.Bridges.ConstructionStart.IsZero())
	assert.True(t, totals.Bridges.Total.Equal(d("125000")))
}

func TestComputeTotals_BridgeInterestSumsAcrossTranches(t *testing.T) {
	in := estimate.CostInput{
		Bridges: estimate.BridgeSet{
			LandPurchase:        estimate.BridgeLoan{Amount: d("10000000"), AnnualRate: d("0.025"), Months: 6},
			ConstructionStart:   estimate.BridgeLoan{Amount: d("8000000"), AnnualRate: d("0.025"), Months: 4},
			ConstructionInterim: estimate.BridgeLoan{Amount: d("8000000"), AnnualRate: d("0.025"), Months: 2},
		},
	}
	totals := estimate.ComputeTotals(in)

	// 125,000 + round(66,666.67) + round(33,333.33)
	assert.True(t, totals.Bridges.ConstructionStart.Equal(d("66667")))
	assert.True(t, totals.Bridges.ConstructionInterim.Equal(d("33333")))
	assert.True(t, totals.Bridges.Total.Equal(d("225000")))
}

// =============================================================================
// SOLAR ECONOMICS
// =============================================================================

func TestComputeTotals_SolarSaleIncome(t *testing.T) {
	// 5 kW × 1200 = 6000 kWh/yr; daily ≈ 16.44; sale ≈ 6.44 kWh/day;
	// monthly income = sale × 365/12 × 16 ≈ 3133.33 → rounds to 3133.
	in := sampleInput()
	totals := estimate.ComputeTotals(in)

	assert.True(t, totals.Solar.AnnualProductionKWh.Equal(d("6000")))
	assert.True(t, totals.Solar.MonthlySaleIncome.Equal(d("3133")), "got %s", totals.Solar.MonthlySaleIncome)
	assert.True(t, totals.Solar.MonthlyTotalEffect.Equal(d("7133")))
}

func TestComputeTotals_SolarCannotSellNegativeElectricity(t *testing.T) {
	// GIVEN: Self-consumption exceeds daily production
	// THEN: Sale volume clamps to zero and income is only the saved cost

	in := estimate.CostInput{
		Solar: estimate.SolarSpec{
			CapacityKW:       d("2"),
			AnnualYieldPerKW: d("1000"), // ≈5.48 kWh/day
			SelfUseKWhPerDay: d("20"),
			SellTariff:       d("16"),
			SavedUtilityCost: d("4000"),
		},
	}
	totals := estimate.ComputeTotals(in)

	assert.True(t, totals.Solar.DailySaleKWh.IsZero())
	assert.True(t, totals.Solar.MonthlySaleIncome.IsZero())
	assert.True(t, totals.Solar.MonthlyTotalEffect.Equal(d("4000")))
}

// =============================================================================
// INPUT COERCION
// =============================================================================

func TestParseAmount_CoercesInvalidToZero(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", "0"},
		{"abc", "0"},
		{"12.5", "12.5"},
		{"-3", "-3"}, // negatives survive parsing; aggregation clamps them
		{"1000000", "1000000"},
	}
	for _, tc := range cases {
		got := estimate.ParseAmount(tc.in)
		if !got.Equal(d(tc.want)) {
			t.Errorf("ParseAmount(%q) = %s, want %s", tc.in, got, tc.want)
		}
	}
}
