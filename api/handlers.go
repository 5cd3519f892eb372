/*
handlers.go - HTTP API handlers for the document lifecycle engine

PURPOSE:
  Exposes fund plans and contracts via REST. Handles HTTP request and
  response, JSON serialization, form-input coercion, and delegates to the
  domain services.

ENDPOINTS:
  Fund plans:
    GET    /api/plans                  List plans
    POST   /api/plans                  Create plan (version 1)
    GET    /api/plans/{id}             Get plan
    PUT    /api/plans/{id}             Transient edit (not versioned)
    GET    /api/plans/{id}/totals      Derived totals
    GET    /api/plans/{id}/history     Version history
    POST   /api/plans/{id}/lock        Lock checkpoint
    POST   /api/plans/{id}/unlock      Clear lock
    POST   /api/plans/{id}/versions    Explicit new version
    POST   /api/plans/{id}/restore     Restore a past version
    DELETE /api/plans/{id}             Hard remove (refused while locked)

  Contracts:
    GET    /api/contracts              List contracts
    POST   /api/contracts              Create contract in Draft
    GET    /api/contracts/{id}         Get contract with approval state
    PUT    /api/contracts/{id}         Transient edit
    GET    /api/contracts/{id}/actions Approval history log
    GET    /api/contracts/{id}/history Version history
    POST   /api/contracts/{id}/submit  Draft/Revision → DocumentReview
    POST   /api/contracts/{id}/approve Forward one stage
    POST   /api/contracts/{id}/return  Backward one stage (comment required)
    POST   /api/contracts/{id}/lock    Lock checkpoint
    POST   /api/contracts/{id}/unlock  Clear lock
    DELETE /api/contracts/{id}         Hard remove (refused while locked)

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Invalid body, missing mandatory comment, bad role
  - 404: Document or version not found
  - 409: Locked document, illegal transition, duplicate id
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response shapes and form coercion
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/warp/document-engine/contract"
	"github.com/warp/document-engine/estimate"
	"github.com/warp/document-engine/lifecycle"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Plans     *estimate.Service
	Contracts *contract.Service
	Log       zerolog.Logger
}

func NewHandler(plans *estimate.Service, contracts *contract.Service, log zerolog.Logger) *Handler {
	return &Handler{Plans: plans, Contracts: contracts, Log: log}
}

// =============================================================================
// FUND PLAN HANDLERS
// =============================================================================

func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Plans.List(r.Context())
	if err != nil {
		h.writeError(w, "failed to list plans", err)
		return
	}
	out := make([]PlanResponse, len(docs))
	for i, d := range docs {
		out[i] = planResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Plans.Create(r.Context(), req.toFundPlan(), req.Actor.toActor())
	if err != nil {
		h.writeError(w, "failed to create plan", err)
		return
	}
	writeJSON(w, http.StatusCreated, planResponse(doc))
}

func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Plans.Get(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to get plan", err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(doc))
}

// UpdatePlan applies a transient edit: the payload is replaced with the
// request body, but no version entry is created.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	plan := req.toFundPlan()
	doc, err := h.Plans.Update(r.Context(), docID(r), func(p *estimate.FundPlan) {
		*p = plan
	})
	if err != nil {
		h.writeError(w, "failed to update plan", err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(doc))
}

func (h *Handler) PlanTotals(w http.ResponseWriter, r *http.Request) {
	totals, err := h.Plans.Totals(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to compute totals", err)
		return
	}
	writeJSON(w, http.StatusOK, totalsResponse(totals))
}

func (h *Handler) PlanHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Plans.History(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to load history", err)
		return
	}
	writeJSON(w, http.StatusOK, versionEntries(entries))
}

func (h *Handler) LockPlan(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Plans.Lock(r.Context(), docID(r),
		lifecycle.LockType(req.LockType), req.Actor.toActor(), req.Note)
	if err != nil {
		h.writeError(w, "failed to lock plan", err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(doc))
}

func (h *Handler) UnlockPlan(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Plans.Unlock(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to unlock plan", err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(doc))
}

func (h *Handler) NewPlanVersion(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Plans.CreateNewVersion(r.Context(), docID(r), req.toFundPlan(), req.Actor.toActor())
	if err != nil {
		h.writeError(w, "failed to create version", err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(doc))
}

func (h *Handler) RestorePlanVersion(w http.ResponseWriter, r *http.Request) {
	var req RestoreRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Plans.RestoreVersion(r.Context(), docID(r), req.Version, req.Actor.toActor())
	if err != nil {
		h.writeError(w, "failed to restore version", err)
		return
	}
	writeJSON(w, http.StatusOK, planResponse(doc))
}

func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Plans.Delete(r.Context(), docID(r)); err != nil {
		h.writeError(w, "failed to delete plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	docs, err := h.Contracts.List(r.Context())
	if err != nil {
		h.writeError(w, "failed to list contracts", err)
		return
	}
	out := make([]ContractResponse, len(docs))
	for i, d := range docs {
		out[i] = contractResponse(d)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Contracts.Create(r.Context(), req.toPayload(), req.Actor.toActor())
	if err != nil {
		h.writeError(w, "failed to create contract", err)
		return
	}
	writeJSON(w, http.StatusCreated, contractResponse(doc))
}

func (h *Handler) GetContract(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Contracts.Get(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to get contract", err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(doc))
}

func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	var req ContractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	payload := req.toPayload()
	doc, err := h.Contracts.Update(r.Context(), docID(r), func(p *contract.Payload) {
		*p = payload
	})
	if err != nil {
		h.writeError(w, "failed to update contract", err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(doc))
}

func (h *Handler) ContractActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.Contracts.Actions(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to load actions", err)
		return
	}
	out := make([]ActionEntryDTO, len(actions))
	for i, e := range actions {
		out[i] = ActionEntryDTO{
			Action:    string(e.Action),
			ActorID:   e.ActorID,
			ActorName: e.ActorName,
			From:      string(e.From),
			To:        string(e.To),
			Comment:   e.Comment,
			At:        e.At.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) ContractHistory(w http.ResponseWriter, r *http.Request) {
	entries, err := h.Contracts.History(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to load history", err)
		return
	}
	writeJSON(w, http.StatusOK, versionEntries(entries))
}

func (h *Handler) SubmitContract(w http.ResponseWriter, r *http.Request) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Contracts.Submit(r.Context(), docID(r), req.Actor.toActor())
	if err != nil {
		h.writeError(w, "failed to submit contract", err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(doc))
}

func (h *Handler) ApproveContract(w http.ResponseWriter, r *http.Request) {
	h.transitionWithComment(w, r, h.Contracts.Approve)
}

func (h *Handler) ReturnContract(w http.ResponseWriter, r *http.Request) {
	h.transitionWithComment(w, r, h.Contracts.Return)
}

func (h *Handler) transitionWithComment(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id lifecycle.DocumentID, actor lifecycle.Actor, comment string) (*contract.Record, error)) {
	var req TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := op(r.Context(), docID(r), req.Actor.toActor(), req.Comment)
	if err != nil {
		h.writeError(w, "transition failed", err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(doc))
}

func (h *Handler) LockContract(w http.ResponseWriter, r *http.Request) {
	var req LockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, "invalid request body")
		return
	}
	doc, err := h.Contracts.Lock(r.Context(), docID(r),
		lifecycle.LockType(req.LockType), req.Actor.toActor(), req.Note)
	if err != nil {
		h.writeError(w, "failed to lock contract", err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(doc))
}

func (h *Handler) UnlockContract(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Contracts.Unlock(r.Context(), docID(r))
	if err != nil {
		h.writeError(w, "failed to unlock contract", err)
		return
	}
	writeJSON(w, http.StatusOK, contractResponse(doc))
}

func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	if err := h.Contracts.Delete(r.Context(), docID(r)); err != nil {
		h.writeError(w, "failed to delete contract", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func docID(r *http.Request) lifecycle.DocumentID {
	return lifecycle.DocumentID(chi.URLParam(r, "id"))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

func writeErrorStatus(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps engine errors onto HTTP statuses. Guard failures are
// conflicts the client can recover from; they are never 500s.
func (h *Handler) writeError(w http.ResponseWriter, msg string, err error) {
	switch {
	case lifecycle.IsNotFound(err):
		writeErrorStatus(w, http.StatusNotFound, err.Error())
	case lifecycle.IsConflict(err):
		writeErrorStatus(w, http.StatusConflict, err.Error())
	case lifecycle.IsClientError(err):
		writeErrorStatus(w, http.StatusBadRequest, err.Error())
	default:
		h.Log.Error().Err(err).Msg(msg)
		writeErrorStatus(w, http.StatusInternalServerError, msg)
	}
}
