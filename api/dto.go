/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes for the HTTP surface, plus the form-input coercion the
  engine relies on: every numeric field arrives as a possibly-empty
  string, and the boundary (here) coerces empty/invalid to zero before
  anything reaches the calculation engine.
*/
package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/document-engine/contract"
	"github.com/warp/document-engine/estimate"
	"github.com/warp/document-engine/lifecycle"
)

// =============================================================================
// COMMON
// =============================================================================

// ActorDTO identifies who performs a mutating request. Authentication is
// out of scope; the caller asserts identity and role.
type ActorDTO struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role"`
}

func (a ActorDTO) toActor() lifecycle.Actor {
	return lifecycle.Actor{ID: a.ID, Name: a.Name, Role: lifecycle.Role(a.Role)}
}

// =============================================================================
// FUND PLAN REQUESTS
// =============================================================================

type LineItemDTO struct {
	Name   string `json:"name"`
	Amount string `json:"amount"`
}

type BuildingDTO struct {
	UnitPrice string `json:"unit_price"`
	Area      string `json:"area"`
}

type LoanDTO struct {
	Principal  string `json:"principal"`
	AnnualRate string `json:"annual_rate"`
	TermYears  int    `json:"term_years"`
}

type BridgeDTO struct {
	Amount     string `json:"amount"`
	AnnualRate string `json:"annual_rate"`
	Months     int    `json:"months"`
}

type BridgeSetDTO struct {
	LandPurchase        BridgeDTO `json:"land_purchase"`
	ConstructionStart   BridgeDTO `json:"construction_start"`
	ConstructionInterim BridgeDTO `json:"construction_interim"`
}

type SolarDTO struct {
	CapacityKW       string `json:"capacity_kw"`
	AnnualYieldPerKW string `json:"annual_yield_per_kw"`
	SelfUseKWhPerDay string `json:"self_use_kwh_per_day"`
	SellTariff       string `json:"sell_tariff"`
	SavedUtilityCost string `json:"saved_utility_cost"`
}

type PlanRequest struct {
	Title        string       `json:"title"`
	CustomerName string       `json:"customer_name"`
	ContractID   string       `json:"contract_id,omitempty"`
	TaxRate      string       `json:"tax_rate,omitempty"`
	Building     BuildingDTO  `json:"building"`
	TierA        []LineItemDTO `json:"tier_a"`
	TierB        []LineItemDTO `json:"tier_b"`
	TierC        []LineItemDTO `json:"tier_c"`
	Misc         []LineItemDTO `json:"misc"`
	Land         []LineItemDTO `json:"land"`
	Loans        []LoanDTO    `json:"loans"`
	Bridges      BridgeSetDTO `json:"bridges"`
	Solar        SolarDTO     `json:"solar"`
	Actor        ActorDTO     `json:"actor"`
}

func (r PlanRequest) toFundPlan() estimate.FundPlan {
	return estimate.FundPlan{
		Title:        r.Title,
		CustomerName: r.CustomerName,
		ContractID:   lifecycle.DocumentID(r.ContractID),
		Costs: estimate.CostInput{
			TaxRate: estimate.ParseAmount(r.TaxRate),
			Building: estimate.BuildingSpec{
				UnitPrice: estimate.ParseAmount(r.Building.UnitPrice),
				Area:      estimate.ParseAmount(r.Building.Area),
			},
			TierA:   toLineItems(r.TierA),
			TierB:   toLineItems(r.TierB),
			TierC:   toLineItems(r.TierC),
			Misc:    toLineItems(r.Misc),
			Land:    toLineItems(r.Land),
			Loans:   toLoans(r.Loans),
			Bridges: r.Bridges.toBridgeSet(),
			Solar:   r.Solar.toSolarSpec(),
		},
	}
}

func toLineItems(in []LineItemDTO) []estimate.LineItem {
	out := make([]estimate.LineItem, 0, len(in))
	for _, it := range in {
		out = append(out, estimate.LineItem{
			Name:   it.Name,
			Amount: estimate.ParseAmount(it.Amount),
		})
	}
	return out
}

func toLoans(in []LoanDTO) []estimate.LoanTranche {
	out := make([]estimate.LoanTranche, 0, len(in))
	for _, l := range in {
		out = append(out, estimate.LoanTranche{
			Principal:  estimate.ParseAmount(l.Principal),
			AnnualRate: estimate.ParseAmount(l.AnnualRate),
			TermYears:  l.TermYears,
		})
	}
	return out
}

func (b BridgeDTO) toBridgeLoan() estimate.BridgeLoan {
	return estimate.BridgeLoan{
		Amount:     estimate.ParseAmount(b.Amount),
		AnnualRate: estimate.ParseAmount(b.AnnualRate),
		Months:     b.Months,
	}
}

func (b BridgeSetDTO) toBridgeSet() estimate.BridgeSet {
	return estimate.BridgeSet{
		LandPurchase:        b.LandPurchase.toBridgeLoan(),
		ConstructionStart:   b.ConstructionStart.toBridgeLoan(),
		ConstructionInterim: b.ConstructionInterim.toBridgeLoan(),
	}
}

func (s SolarDTO) toSolarSpec() estimate.SolarSpec {
	return estimate.SolarSpec{
		CapacityKW:       estimate.ParseAmount(s.CapacityKW),
		AnnualYieldPerKW: estimate.ParseAmount(s.AnnualYieldPerKW),
		SelfUseKWhPerDay: estimate.ParseAmount(s.SelfUseKWhPerDay),
		SellTariff:       estimate.ParseAmount(s.SellTariff),
		SavedUtilityCost: estimate.ParseAmount(s.SavedUtilityCost),
	}
}

type LockRequest struct {
	LockType string   `json:"lock_type"`
	Note     string   `json:"note"`
	Actor    ActorDTO `json:"actor"`
}

type RestoreRequest struct {
	Version int      `json:"version"`
	Actor   ActorDTO `json:"actor"`
}

// =============================================================================
// CONTRACT REQUESTS
// =============================================================================

type ContractRequest struct {
	CustomerID      string   `json:"customer_id"`
	CustomerName    string   `json:"customer_name"`
	PropertyAddress string   `json:"property_address"`
	LotNumber       string   `json:"lot_number"`
	ContractAmount  string   `json:"contract_amount"`
	PlanID          string   `json:"plan_id,omitempty"`
	Notes           string   `json:"notes"`
	Actor           ActorDTO `json:"actor"`
}

func (r ContractRequest) toPayload() contract.Payload {
	return contract.Payload{
		CustomerID:      r.CustomerID,
		CustomerName:    r.CustomerName,
		PropertyAddress: r.PropertyAddress,
		LotNumber:       r.LotNumber,
		ContractAmount:  estimate.ParseAmount(r.ContractAmount),
		PlanID:          lifecycle.DocumentID(r.PlanID),
		Notes:           r.Notes,
	}
}

type TransitionRequest struct {
	Actor   ActorDTO `json:"actor"`
	Comment string   `json:"comment"`
}

// =============================================================================
// RESPONSES
// =============================================================================

type DocumentMetaDTO struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Version   int    `json:"version"`
	IsLocked  bool   `json:"is_locked"`
	LockType  string `json:"lock_type,omitempty"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

func docMeta[T any](d *lifecycle.Document[T]) DocumentMetaDTO {
	return DocumentMetaDTO{
		ID:        string(d.ID),
		Status:    string(d.Status),
		Version:   d.Version,
		IsLocked:  d.IsLocked,
		LockType:  string(d.LockType),
		CreatedAt: d.CreatedAt.Format(time.RFC3339),
		UpdatedAt: d.UpdatedAt.Format(time.RFC3339),
	}
}

type PlanResponse struct {
	DocumentMetaDTO
	Plan estimate.FundPlan `json:"plan"`
}

func planResponse(d *lifecycle.Document[estimate.FundPlan]) PlanResponse {
	return PlanResponse{DocumentMetaDTO: docMeta(d), Plan: d.Payload}
}

type VersionEntryDTO struct {
	Version  int    `json:"version"`
	LockType string `json:"lock_type,omitempty"`
	ActorID  string `json:"actor_id"`
	Note     string `json:"note,omitempty"`
	TakenAt  string `json:"taken_at"`
}

func versionEntries[T any](entries []lifecycle.VersionEntry[T]) []VersionEntryDTO {
	out := make([]VersionEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = VersionEntryDTO{
			Version:  e.Version,
			LockType: string(e.LockType),
			ActorID:  e.Actor.ID,
			Note:     e.Note,
			TakenAt:  e.TakenAt.Format(time.RFC3339),
		}
	}
	return out
}

type ApprovalDTO struct {
	Status      string           `json:"status"`
	ReturnCount int              `json:"return_count"`
	CheckedBy   string           `json:"checked_by,omitempty"`
	ApprovedBy  string           `json:"approved_by,omitempty"`
	ReturnedBy  string           `json:"returned_by,omitempty"`
	Actions     []ActionEntryDTO `json:"actions"`
}

type ActionEntryDTO struct {
	Action    string `json:"action"`
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	From      string `json:"from"`
	To        string `json:"to"`
	Comment   string `json:"comment,omitempty"`
	At        string `json:"at"`
}

type ContractResponse struct {
	DocumentMetaDTO
	Contract contract.Payload `json:"contract"`
	Approval *ApprovalDTO     `json:"approval,omitempty"`
}

func contractResponse(d *contract.Record) ContractResponse {
	resp := ContractResponse{DocumentMetaDTO: docMeta(d), Contract: d.Payload}
	if d.Approval != nil {
		a := ApprovalDTO{
			Status:      string(d.Approval.Status),
			ReturnCount: d.Approval.ReturnCount,
			CheckedBy:   d.Approval.Signoffs.CheckedBy,
			ApprovedBy:  d.Approval.Signoffs.ApprovedBy,
			ReturnedBy:  d.Approval.Signoffs.ReturnedBy,
		}
		for _, e := range d.Approval.Actions {
			a.Actions = append(a.Actions, ActionEntryDTO{
				Action:    string(e.Action),
				ActorID:   e.ActorID,
				ActorName: e.ActorName,
				From:      string(e.From),
				To:        string(e.To),
				Comment:   e.Comment,
				At:        e.At.Format(time.RFC3339),
			})
		}
		resp.Approval = &a
	}
	return resp
}

// TotalsResponse renders every derived figure as a string so clients are
// not exposed to float formatting.
type TotalsResponse struct {
	BuildingBase  string `json:"building_base"`
	TierASubtotal string `json:"tier_a_subtotal"`
	TierBSubtotal string `json:"tier_b_subtotal"`
	TierCSubtotal string `json:"tier_c_subtotal"`

	ConstructionPreTax  string `json:"construction_pre_tax"`
	Tax                 string `json:"tax"`
	ConstructionPostTax string `json:"construction_post_tax"`

	MiscTotal    string `json:"misc_total"`
	LandTotal    string `json:"land_total"`
	OutsideTotal string `json:"outside_total"`
	GrandTotal   string `json:"grand_total"`

	Loans               []LoanPaymentDTO `json:"loans"`
	MonthlyPaymentTotal string           `json:"monthly_payment_total"`
	BonusPaymentTotal   string           `json:"bonus_payment_total"`

	BridgeInterestTotal string `json:"bridge_interest_total"`

	SolarMonthlySaleIncome  string `json:"solar_monthly_sale_income"`
	SolarMonthlyTotalEffect string `json:"solar_monthly_total_effect"`

	DiffFromLocked string `json:"diff_from_locked"`
}

type LoanPaymentDTO struct {
	Monthly string `json:"monthly"`
	Bonus   string `json:"bonus"`
}

func totalsResponse(t estimate.DerivedTotals) TotalsResponse {
	resp := TotalsResponse{
		BuildingBase:  money(t.BuildingBase),
		TierASubtotal: money(t.TierASubtotal),
		TierBSubtotal: money(t.TierBSubtotal),
		TierCSubtotal: money(t.TierCSubtotal),

		ConstructionPreTax:  money(t.ConstructionPreTax),
		Tax:                 money(t.Tax),
		ConstructionPostTax: money(t.ConstructionPostTax),

		MiscTotal:    money(t.MiscTotal),
		LandTotal:    money(t.LandTotal),
		OutsideTotal: money(t.OutsideTotal),
		GrandTotal:   money(t.GrandTotal),

		MonthlyPaymentTotal: money(t.MonthlyPaymentTotal),
		BonusPaymentTotal:   money(t.BonusPaymentTotal),
		BridgeInterestTotal: money(t.Bridges.Total),

		SolarMonthlySaleIncome:  money(t.Solar.MonthlySaleIncome),
		SolarMonthlyTotalEffect: money(t.Solar.MonthlyTotalEffect),

		DiffFromLocked: money(t.DiffFromLocked),
	}
	for _, l := range t.Loans {
		resp.Loans = append(resp.Loans, LoanPaymentDTO{
			Monthly: money(l.Monthly),
			Bonus:   money(l.Bonus),
		})
	}
	return resp
}

func money(d decimal.Decimal) string { return d.String() }
