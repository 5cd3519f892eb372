/*
engine.go - Pure calculation layer

PURPOSE:
  ComputeTotals derives the canonical totals record from raw cost-line
  inputs. Total function: no side effects, no state, no error cases.
  Out-of-range and negative values are treated as zero — absent/invalid
  numeric input is coerced, never rejected. That is the documented input
  policy, not a bug.

ROUNDING POLICY (load-bearing, these are user-facing legal figures):
  - Consumption tax:        FLOOR(pre-tax total × rate)
  - Loan payments:          round half-up to the nearest currency unit
  - Bridge interest:        round(amount × rate × months / 12)
  - Solar monthly figures:  round to the nearest currency unit
  - Zero-rate loans:        straight-line P / n, NOT rounded

DETERMINISM:
  Recomputing twice from the same CostInput is byte-for-byte identical.
  No clocks, no randomness, no map iteration over money.

SEE ALSO:
  - types.go: CostInput and DerivedTotals
  - service.go: Supplies the locked baseline for DiffFromLocked
*/
package estimate

import (
	"math"

	"github.com/shopspring/decimal"
)

var (
	twelve      = decimal.NewFromInt(12)
	daysPerYear = decimal.NewFromInt(365)
)

// =============================================================================
// COMPUTE TOTALS - The one entry point
// =============================================================================

// ComputeTotals derives the full totals record from a cost input.
func ComputeTotals(in CostInput) DerivedTotals {
	var t DerivedTotals

	t.BuildingBase = nonneg(in.Building.UnitPrice).Mul(nonneg(in.Building.Area))
	t.TierASubtotal = sumItems(in.TierA)
	t.TierBSubtotal = sumItems(in.TierB)
	t.TierCSubtotal = sumItems(in.TierC)

	t.ConstructionPreTax = t.BuildingBase.
		Add(t.TierASubtotal).
		Add(t.TierBSubtotal).
		Add(t.TierCSubtotal)
	t.Tax = t.ConstructionPreTax.Mul(taxRate(in)).Floor()
	t.ConstructionPostTax = t.ConstructionPreTax.Add(t.Tax)

	t.MiscTotal = sumItems(in.Misc)
	t.LandTotal = sumItems(in.Land)
	t.OutsideTotal = t.LandTotal.Add(t.MiscTotal)
	t.GrandTotal = t.ConstructionPostTax.Add(t.MiscTotal).Add(t.LandTotal)

	for i, loan := range in.Loans {
		if i >= MaxLoanTranches {
			break
		}
		p := LoanPayment{
			Monthly: MonthlyPayment(loan.Principal, loan.AnnualRate, loan.TermYears),
			Bonus:   BonusPayment(loan.Principal, loan.AnnualRate, loan.TermYears),
		}
		t.Loans = append(t.Loans, p)
		t.MonthlyPaymentTotal = t.MonthlyPaymentTotal.Add(p.Monthly)
		t.BonusPaymentTotal = t.BonusPaymentTotal.Add(p.Bonus)
	}

	t.Bridges.LandPurchase = bridgeInterest(in.Bridges.LandPurchase)
	t.Bridges.ConstructionStart = bridgeInterest(in.Bridges.ConstructionStart)
	t.Bridges.ConstructionInterim = bridgeInterest(in.Bridges.ConstructionInterim)
	t.Bridges.Total = t.Bridges.LandPurchase.
		Add(t.Bridges.ConstructionStart).
		Add(t.Bridges.ConstructionInterim)

	t.Solar = solarEconomics(in.Solar)

	t.DiffFromLocked = t.GrandTotal.Sub(nonneg(in.LockedGrandTotal))

	return t
}

func taxRate(in CostInput) decimal.Decimal {
	if in.TaxRate.IsZero() || in.TaxRate.IsNegative() {
		return DefaultTaxRate
	}
	return in.TaxRate
}

// =============================================================================
// LOAN PAYMENTS
// =============================================================================

// MonthlyPayment computes the amortized monthly payment for a tranche.
// Zero principal or term yields zero; a zero rate yields the straight-line
// P / (years*12); otherwise the standard amortization formula
// P·i·(1+i)^n / ((1+i)^n − 1) with i = rate/12, n = years*12, rounded to
// the nearest currency unit.
func MonthlyPayment(principal, annualRate decimal.Decimal, termYears int) decimal.Decimal {
	return amortize(principal, annualRate, termYears, 12)
}

// BonusPayment computes the semiannual bonus-payment variant: the same
// formula with i = rate/2 and n = years*2.
func BonusPayment(principal, annualRate decimal.Decimal, termYears int) decimal.Decimal {
	return amortize(principal, annualRate, termYears, 2)
}

func amortize(principal, annualRate decimal.Decimal, termYears, periodsPerYear int) decimal.Decimal {
	p := nonneg(principal)
	if p.IsZero() || termYears <= 0 {
		return decimal.Zero
	}

	n := termYears * periodsPerYear
	if !annualRate.IsPositive() {
		// Straight-line, no interest. Deliberately not rounded.
		return p.Div(decimal.NewFromInt(int64(n)))
	}

	// Powers of (1+i) are computed in float64; the rounded result is well
	// inside float64 integer precision for any realistic mortgage.
	pf, _ := p.Float64()
	rf, _ := annualRate.Float64()
	i := rf / float64(periodsPerYear)
	pow := math.Pow(1+i, float64(n))
	payment := pf * i * pow / (pow - 1)
	return decimal.NewFromFloat(math.Round(payment))
}

// =============================================================================
// BRIDGE LOANS
// =============================================================================

// bridgeInterest is simple interest: round(amount × rate × months / 12).
func bridgeInterest(b BridgeLoan) decimal.Decimal {
	if b.Months <= 0 {
		return decimal.Zero
	}
	return nonneg(b.Amount).
		Mul(nonneg(b.AnnualRate)).
		Mul(decimal.NewFromInt(int64(b.Months))).
		Div(twelve).
		Round(0)
}

// =============================================================================
// SOLAR ECONOMICS
// =============================================================================

func solarEconomics(s SolarSpec) SolarEconomics {
	var e SolarEconomics

	e.AnnualProductionKWh = nonneg(s.CapacityKW).Mul(nonneg(s.AnnualYieldPerKW))
	e.DailyProductionKWh = e.AnnualProductionKWh.Div(daysPerYear)

	// Cannot sell negative electricity: a household consuming more than it
	// produces sells nothing. Explicit policy, not a rounding artifact.
	sale := e.DailyProductionKWh.Sub(nonneg(s.SelfUseKWhPerDay))
	if sale.IsNegative() {
		sale = decimal.Zero
	}
	e.DailySaleKWh = sale

	e.MonthlySaleIncome = sale.
		Mul(daysPerYear).
		Div(twelve).
		Mul(nonneg(s.SellTariff)).
		Round(0)
	e.MonthlyTotalEffect = e.MonthlySaleIncome.
		Add(nonneg(s.SavedUtilityCost)).
		Round(0)

	return e
}

// =============================================================================
// COERCION HELPERS
// =============================================================================

// nonneg clamps negative input to zero, per the input policy.
func nonneg(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// sumItems adds a tier's line amounts. Order is irrelevant; negatives are
// treated as zero.
func sumItems(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(nonneg(it.Amount))
	}
	return total
}

// ParseAmount coerces a form value to a decimal. Empty or invalid input
// becomes zero — the boundary, not the engine, owns this fallback.
func ParseAmount(s string) decimal.Decimal {
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}
