package contract_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/document-engine/contract"
	"github.com/warp/document-engine/lifecycle"
	memstore "github.com/warp/document-engine/lifecycle/store"
	"github.com/warp/document-engine/notify"
)

// =============================================================================
// FIXTURES
// =============================================================================

var (
	sales    = lifecycle.Actor{ID: "s-1", Name: "Sato", Role: lifecycle.RoleSales}
	reviewer = lifecycle.Actor{ID: "r-1", Name: "Suzuki", Role: lifecycle.RoleReviewer}
	manager  = lifecycle.Actor{ID: "m-1", Name: "Yamada", Role: lifecycle.RoleManager}
	admin    = lifecycle.Actor{ID: "a-1", Name: "Root", Role: lifecycle.RoleAdmin}
)

func newContractService() (*contract.Service, *notify.Recorder) {
	rec := notify.NewRecorder()
	return contract.NewService(memstore.NewMemory[contract.Payload](), rec), rec
}

func samplePayload() contract.Payload {
	return contract.Payload{
		CustomerID:      "c-100",
		CustomerName:    "Watanabe",
		PropertyAddress: "Aoba 3-12-1",
		LotNumber:       "12",
		ContractAmount:  decimal.NewFromInt(48295000),
	}
}

func mustCreateContract(t *testing.T, svc *contract.Service) *contract.Record {
	t.Helper()
	doc, err := svc.Create(context.Background(), samplePayload(), sales)
	require.NoError(t, err)
	return doc
}

// =============================================================================
// CREATION
// =============================================================================

func TestCreate_StartsInDraftWithApproval(t *testing.T) {
	svc, _ := newContractService()
	doc := mustCreateContract(t, svc)

	assert.Equal(t, lifecycle.StatusDraft, doc.Status)
	require.NotNil(t, doc.Approval)
	assert.Equal(t, lifecycle.StatusDraft, doc.Approval.Status)
	assert.Zero(t, doc.Approval.ReturnCount)
}

// =============================================================================
// FULL LIFECYCLE
// =============================================================================

func TestApprovalLifecycle_WithOneReturn(t *testing.T) {
	// GIVEN: A contract that gets bounced once by the manager
	// WHEN: It is corrected, resubmitted, and approved through both stages
	// THEN: Every status hop, signer stamp, and the return count line up

	ctx := context.Background()
	svc, rec := newContractService()
	doc := mustCreateContract(t, svc)

	got, err := svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDocumentReview, got.Status)

	got, err = svc.Approve(ctx, doc.ID, reviewer, "ok")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusManagerApproval, got.Status)
	assert.Equal(t, reviewer.ID, got.Approval.Signoffs.CheckedBy)

	got, err = svc.Return(ctx, doc.ID, manager, "fix amount")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusRevision, got.Status)
	assert.Equal(t, 1, got.Approval.ReturnCount)
	assert.Equal(t, "fix amount", got.Approval.Signoffs.ReturnComment)

	// Correction is a routine payload edit; it does not touch the workflow.
	_, err = svc.Update(ctx, doc.ID, func(p *contract.Payload) {
		p.ContractAmount = decimal.NewFromInt(48500000)
	})
	require.NoError(t, err)

	got, err = svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDocumentReview, got.Status)

	_, err = svc.Approve(ctx, doc.ID, reviewer, "")
	require.NoError(t, err)
	got, err = svc.Approve(ctx, doc.ID, manager, "")
	require.NoError(t, err)

	assert.Equal(t, lifecycle.StatusCompleted, got.Status)
	assert.Equal(t, manager.ID, got.Approval.Signoffs.ApprovedBy)
	assert.Equal(t, 1, got.Approval.ReturnCount)

	// submit + approve + return + submit + approve + approve
	actions, err := svc.Actions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Len(t, actions, 6)
	assert.Len(t, rec.Events(), 6)
}

func TestApprovalLifecycle_CompletedRejectsEverything(t *testing.T) {
	ctx := context.Background()
	svc, rec := newContractService()
	doc := mustCreateContract(t, svc)

	_, err := svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, reviewer, "")
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, manager, "")
	require.NoError(t, err)
	rec.Reset()

	// Admin bypasses role gating, so what remains is pure topology.
	_, err = svc.Submit(ctx, doc.ID, admin)
	assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)
	_, err = svc.Approve(ctx, doc.ID, admin, "")
	assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)
	_, err = svc.Return(ctx, doc.ID, admin, "reopen")
	assert.ErrorIs(t, err, lifecycle.ErrIllegalTransition)

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, got.Status)
	assert.Empty(t, rec.Events())
}

// =============================================================================
// ROLE GATING
// =============================================================================

func TestTransitions_RoleGatedByCurrentState(t *testing.T) {
	ctx := context.Background()
	svc, _ := newContractService()
	doc := mustCreateContract(t, svc)

	// Only sales may act on a draft.
	_, err := svc.Submit(ctx, doc.ID, reviewer)
	assert.ErrorIs(t, err, lifecycle.ErrRoleNotPermitted)

	_, err = svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)

	// In document review the reviewer acts, not sales or the manager.
	_, err = svc.Approve(ctx, doc.ID, sales, "")
	assert.ErrorIs(t, err, lifecycle.ErrRoleNotPermitted)
	_, err = svc.Approve(ctx, doc.ID, manager, "")
	assert.ErrorIs(t, err, lifecycle.ErrRoleNotPermitted)

	// Rejections leave the record untouched.
	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDocumentReview, got.Status)
	assert.Len(t, got.Approval.Actions, 1)
}

func TestTransitions_AdminActsAnywhere(t *testing.T) {
	ctx := context.Background()
	svc, _ := newContractService()
	doc := mustCreateContract(t, svc)

	_, err := svc.Submit(ctx, doc.ID, admin)
	require.NoError(t, err)
	_, err = svc.Approve(ctx, doc.ID, admin, "")
	require.NoError(t, err)
	got, err := svc.Approve(ctx, doc.ID, admin, "")
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusCompleted, got.Status)
}

// =============================================================================
// RETURN COMMENT
// =============================================================================

func TestReturn_CommentIsMandatory(t *testing.T) {
	// GIVEN: A contract in document review
	// WHEN: The reviewer returns it without a comment
	// THEN: ErrCommentRequired, and the record is untouched

	ctx := context.Background()
	svc, rec := newContractService()
	doc := mustCreateContract(t, svc)

	_, err := svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)
	rec.Reset()

	_, err = svc.Return(ctx, doc.ID, reviewer, "")
	assert.ErrorIs(t, err, lifecycle.ErrCommentRequired)

	got, err := svc.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDocumentReview, got.Status)
	assert.Zero(t, got.Approval.ReturnCount)
	assert.Empty(t, rec.Events())
}

// =============================================================================
// LOCKING AND DELETION
// =============================================================================

func TestDelete_RefusedWhileLocked(t *testing.T) {
	ctx := context.Background()
	svc, _ := newContractService()
	doc := mustCreateContract(t, svc)

	_, err := svc.Lock(ctx, doc.ID, lifecycle.LockContractSigned, sales, "signed")
	require.NoError(t, err)

	err = svc.Delete(ctx, doc.ID)
	assert.ErrorIs(t, err, lifecycle.ErrDocumentLocked)

	_, err = svc.Unlock(ctx, doc.ID)
	require.NoError(t, err)
	assert.NoError(t, svc.Delete(ctx, doc.ID))
}

func TestLockedContract_StillTransitions(t *testing.T) {
	// Locking freezes the PAYLOAD; the approval workflow continues. A signed
	// contract still needs its review and manager sign-off.

	ctx := context.Background()
	svc, _ := newContractService()
	doc := mustCreateContract(t, svc)

	_, err := svc.Lock(ctx, doc.ID, lifecycle.LockContractSigned, sales, "signed")
	require.NoError(t, err)

	got, err := svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)
	assert.Equal(t, lifecycle.StatusDocumentReview, got.Status)

	// Payload edits remain frozen.
	_, err = svc.Update(ctx, doc.ID, func(p *contract.Payload) { p.Notes = "tweak" })
	assert.ErrorIs(t, err, lifecycle.ErrDocumentLocked)
}

// =============================================================================
// ACTIONS LOG
// =============================================================================

func TestActions_ReturnsDetachedCopy(t *testing.T) {
	ctx := context.Background()
	svc, _ := newContractService()
	doc := mustCreateContract(t, svc)

	_, err := svc.Submit(ctx, doc.ID, sales)
	require.NoError(t, err)

	actions, err := svc.Actions(ctx, doc.ID)
	require.NoError(t, err)
	require.Len(t, actions, 1)

	actions[0].Comment = "tampered"

	again, err := svc.Actions(ctx, doc.ID)
	require.NoError(t, err)
	assert.Empty(t, again[0].Comment)
}
