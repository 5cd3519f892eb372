/*
Package estimate implements the fund-plan costing domain.

PURPOSE:
  A fund plan is the cost proposal for a home build: building base price,
  three tiers of itemized incidental costs, miscellaneous fees, land
  costs, up to three concurrent loan tranches, bridge loans covering the
  gaps before permanent financing, and solar-economics inputs. The
  package derives every canonical total from these raw inputs.

KEY CONCEPTS IN THIS FILE (types.go):
  - CostInput: The raw editable cost fields, grouped into tiers
  - DerivedTotals: The fully-derived output record (never stored)
  - FundPlan: The document payload managed by the lifecycle engine

DESIGN PRINCIPLES:
  1. Derived figures are a pure function of CostInput and are recomputed
     on read, never stored redundantly in a way that can drift
  2. Precision: shopspring/decimal for every monetary figure
  3. Coercion over rejection: absent/invalid/negative numeric input is
     treated as zero, never an error

SEE ALSO:
  - engine.go: ComputeTotals and the loan/bridge/solar math
  - service.go: Lifecycle wiring (versioning, locking, baseline diff)
*/
package estimate

import (
	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/lifecycle"
)

// MaxLoanTranches bounds the loan plan. Tranches beyond the limit are
// ignored by the engine.
const MaxLoanTranches = 3

// DefaultTaxRate is the consumption tax rate applied when the input does
// not carry one.
var DefaultTaxRate = decimal.NewFromFloat(0.10)

// =============================================================================
// COST INPUT - Raw editable fields
// =============================================================================

// LineItem is one named cost line inside a tier.
type LineItem struct {
	Name   string
	Amount decimal.Decimal
}

// BuildingSpec prices the building base as unit price times floor area.
type BuildingSpec struct {
	UnitPrice decimal.Decimal // per area unit
	Area      decimal.Decimal
}

// LoanTranche is one tranche of the loan plan.
type LoanTranche struct {
	Principal  decimal.Decimal
	AnnualRate decimal.Decimal // e.g. 0.012 for 1.2%
	TermYears  int
}

// BridgeLoan accrues simple interest over a stated number of months.
type BridgeLoan struct {
	Amount     decimal.Decimal
	AnnualRate decimal.Decimal
	Months     int
}

// BridgeSet holds the three bridge tranches a build typically needs.
type BridgeSet struct {
	LandPurchase        BridgeLoan
	ConstructionStart   BridgeLoan
	ConstructionInterim BridgeLoan
}

// SolarSpec holds the solar-economics inputs.
type SolarSpec struct {
	CapacityKW       decimal.Decimal
	AnnualYieldPerKW decimal.Decimal // kWh produced per kW per year
	SelfUseKWhPerDay decimal.Decimal
	SellTariff       decimal.Decimal // currency per kWh sold
	SavedUtilityCost decimal.Decimal // estimated monthly utility saving
}

// CostInput is the tree of raw cost fields the engine derives from.
// All fields are non-negative; negatives are treated as zero on
// aggregation.
type CostInput struct {
	TaxRate  decimal.Decimal // zero means DefaultTaxRate
	Building BuildingSpec
	TierA    []LineItem
	TierB    []LineItem
	TierC    []LineItem
	Misc     []LineItem
	Land     []LineItem
	Loans    []LoanTranche
	Bridges  BridgeSet
	Solar    SolarSpec

	// LockedGrandTotal is the grand total of the most recently locked
	// snapshot, supplied by the service layer so DiffFromLocked stays a
	// pure function of the input.
	LockedGrandTotal decimal.Decimal
}

// =============================================================================
// DERIVED TOTALS - Output-only record
// =============================================================================

// LoanPayment is the derived payment for one tranche.
type LoanPayment struct {
	Monthly decimal.Decimal
	Bonus   decimal.Decimal // semiannual variant
}

// BridgeInterest is the derived simple interest per bridge tranche.
type BridgeInterest struct {
	LandPurchase        decimal.Decimal
	ConstructionStart   decimal.Decimal
	ConstructionInterim decimal.Decimal
	Total               decimal.Decimal
}

// SolarEconomics is the derived solar projection.
type SolarEconomics struct {
	AnnualProductionKWh decimal.Decimal
	DailyProductionKWh  decimal.Decimal
	DailySaleKWh        decimal.Decimal // clamped at zero
	MonthlySaleIncome   decimal.Decimal
	MonthlyTotalEffect  decimal.Decimal
}

// DerivedTotals is computed from CostInput and never edited directly.
type DerivedTotals struct {
	BuildingBase  decimal.Decimal
	TierASubtotal decimal.Decimal
	TierBSubtotal decimal.Decimal
	TierCSubtotal decimal.Decimal

	ConstructionPreTax  decimal.Decimal
	Tax                 decimal.Decimal // floored
	ConstructionPostTax decimal.Decimal

	MiscTotal    decimal.Decimal
	LandTotal    decimal.Decimal
	OutsideTotal decimal.Decimal // land + misc
	GrandTotal   decimal.Decimal

	Loans               []LoanPayment
	MonthlyPaymentTotal decimal.Decimal
	BonusPaymentTotal   decimal.Decimal

	Bridges BridgeInterest
	Solar   SolarEconomics

	// DiffFromLocked is GrandTotal minus the previously locked total.
	DiffFromLocked decimal.Decimal
}

// =============================================================================
// FUND PLAN - Document payload
// =============================================================================

// FundPlan is the payload stored in the versioned document store.
type FundPlan struct {
	Title        string
	CustomerName string
	ContractID   lifecycle.DocumentID // optional back-link to the contract
	Costs        CostInput
}
