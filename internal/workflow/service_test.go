package workflow

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/asset"
	"landregistry/internal/asset/blob"
	"landregistry/internal/audit"
	"landregistry/internal/ledger"
	"landregistry/internal/principal"
	dErrors "landregistry/pkg/domain-errors"
)

type engine struct {
	workflow   *Service
	principals *principal.Service
	ledger     *ledger.Service
	assets     *asset.Service
	auditStore *audit.InMemoryStore
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	assets := asset.NewService(asset.NewInMemoryStore(), blob.NewMemory())
	principals := principal.NewService(principal.NewInMemoryStore(), assets)
	ledgerSvc := ledger.NewService(ledger.NewInMemoryStore())
	auditStore := audit.NewInMemoryStore()
	auditor := audit.NewService(auditStore)

	svc := NewService(NewInMemoryStore(), principals, ledgerSvc, assets,
		WithAuditor(auditor),
	)
	require.NoError(t, principals.SeedAdmins(context.Background(), []string{"root"}))
	return &engine{
		workflow:   svc,
		principals: principals,
		ledger:     ledgerSvc,
		assets:     assets,
		auditStore: auditStore,
	}
}

func (e *engine) storedRef(t *testing.T, content string) string {
	t.Helper()
	ref, err := e.assets.Store(context.Background(), strings.NewReader(content), "application/pdf")
	require.NoError(t, err)
	return ref.ReferenceID
}

func (e *engine) submitRegistration(t *testing.T, submitter string) *RegistrationRequest {
	t.Helper()
	req, err := e.workflow.SubmitRegistration(context.Background(), submitter, SubmitRegistrationInput{
		OwnerName:        "Owner " + submitter,
		Location:         "45 Ridge Street",
		AreaSqFt:         1800,
		Price:            90_000,
		AssetReferenceID: e.storedRef(t, "deed for "+submitter+" "+uuid.NewString()),
	})
	require.NoError(t, err)
	return req
}

// approvedParcel walks a registration through approval and returns the minted
// parcel ID. The submitter ends up a verified owner.
func (e *engine) approvedParcel(t *testing.T, submitter string) uuid.UUID {
	t.Helper()
	req := e.submitRegistration(t, submitter)
	result, err := e.workflow.Decide(context.Background(), "root", req.RequestID, KindRegistration, Decision{Approve: true})
	require.NoError(t, err)
	require.NotNil(t, result.ParcelID)
	return *result.ParcelID
}

func TestSubmitRegistrationCreatesPendingRequest(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	req := e.submitRegistration(t, "alice")
	assert.Equal(t, StatusPending, req.Status)
	assert.NotEqual(t, uuid.Nil, req.RequestID)

	class, err := e.principals.Classify(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, principal.PendingOwner, class)

	pending, err := e.workflow.PendingRegistrations(ctx, "root")
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, req.RequestID, pending[0].RequestID)
}

func TestSubmitRegistrationValidatesInput(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	refID := e.storedRef(t, "deed")

	cases := []struct {
		name  string
		input SubmitRegistrationInput
	}{
		{"zero area", SubmitRegistrationInput{Location: "x", AreaSqFt: 0, Price: 1, AssetReferenceID: refID}},
		{"negative price", SubmitRegistrationInput{Location: "x", AreaSqFt: 100, Price: -1, AssetReferenceID: refID}},
		{"missing location", SubmitRegistrationInput{AreaSqFt: 100, Price: 1, AssetReferenceID: refID}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := e.workflow.SubmitRegistration(ctx, "alice", tc.input)
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestSubmitRegistrationRejectsUnknownAsset(t *testing.T) {
	e := newEngine(t)

	_, err := e.workflow.SubmitRegistration(context.Background(), "alice", SubmitRegistrationInput{
		Location:         "45 Ridge Street",
		AreaSqFt:         100,
		Price:            1,
		AssetReferenceID: strings.Repeat("a", 64),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDecideRequiresAdmin(t *testing.T) {
	e := newEngine(t)
	req := e.submitRegistration(t, "alice")

	_, err := e.workflow.Decide(context.Background(), "alice", req.RequestID, KindRegistration, Decision{Approve: true})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestApproveRegistrationMintsParcelAndPromotesOwner(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	parcelID := e.approvedParcel(t, "alice")

	parcel, err := e.ledger.GetParcel(ctx, parcelID)
	require.NoError(t, err)
	assert.Equal(t, "alice", parcel.OwnerPrincipalID)
	assert.Equal(t, int64(1800), parcel.AreaSqFt)

	class, err := e.principals.Classify(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, principal.VerifiedOwner, class)
}

func TestRejectRegistrationRecordsReason(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	req := e.submitRegistration(t, "alice")

	result, err := e.workflow.Decide(ctx, "root", req.RequestID, KindRegistration, Decision{Reason: "survey plan illegible"})
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, result.Status)

	got, err := e.workflow.GetRegistration(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.Equal(t, "survey plan illegible", got.Reason)
	assert.Equal(t, "root", got.DecidedBy)
	require.NotNil(t, got.DecidedAt)

	class, err := e.principals.Classify(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, principal.PendingOwner, class)
}

func TestDecideUnknownRequest(t *testing.T) {
	e := newEngine(t)

	_, err := e.workflow.Decide(context.Background(), "root", uuid.New(), KindRegistration, Decision{Approve: true})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestDecideTwiceReturnsAlreadyDecided(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	req := e.submitRegistration(t, "alice")

	_, err := e.workflow.Decide(ctx, "root", req.RequestID, KindRegistration, Decision{Approve: true})
	require.NoError(t, err)

	_, err = e.workflow.Decide(ctx, "root", req.RequestID, KindRegistration, Decision{Reason: "changed my mind"})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))

	got, err := e.workflow.GetRegistration(ctx, req.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, got.Status)
}

func TestSubmitTransferRequiresVerifiedOwner(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	refID := e.storedRef(t, "sale agreement")

	_, err := e.workflow.SubmitTransfer(ctx, "stranger", SubmitTransferInput{
		ParcelID:         uuid.New(),
		ToPrincipalID:    "bob",
		Price:            1,
		AssetReferenceID: refID,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestSubmitTransferRequiresCurrentOwnership(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	e.approvedParcel(t, "alice")
	parcelOfCarol := e.approvedParcel(t, "carol")
	refID := e.storedRef(t, "sale agreement")

	_, err := e.workflow.SubmitTransfer(ctx, "alice", SubmitTransferInput{
		ParcelID:         parcelOfCarol,
		ToPrincipalID:    "bob",
		Price:            1,
		AssetReferenceID: refID,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeForbidden))
}

func TestSubmitTransferRejectsSelfTransfer(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	parcelID := e.approvedParcel(t, "alice")
	refID := e.storedRef(t, "sale agreement")

	_, err := e.workflow.SubmitTransfer(ctx, "alice", SubmitTransferInput{
		ParcelID:         parcelID,
		ToPrincipalID:    "alice",
		Price:            1,
		AssetReferenceID: refID,
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestApproveTransferSwapsOwnershipAndAppendsHistory(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	parcelID := e.approvedParcel(t, "alice")
	refID := e.storedRef(t, "sale agreement")

	req, err := e.workflow.SubmitTransfer(ctx, "alice", SubmitTransferInput{
		ParcelID:         parcelID,
		ToPrincipalID:    "bob",
		Price:            120_000,
		AssetReferenceID: refID,
	})
	require.NoError(t, err)

	result, err := e.workflow.Decide(ctx, "root", req.RequestID, KindTransfer, Decision{Approve: true})
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, result.Status)

	parcel, err := e.ledger.GetParcel(ctx, parcelID)
	require.NoError(t, err)
	assert.Equal(t, "bob", parcel.OwnerPrincipalID)
	assert.Equal(t, int64(120_000), parcel.Price)

	history, err := e.ledger.HistoryOf(ctx, parcelID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, req.RequestID, history[0].TransferRequestID)
	assert.Equal(t, "alice", history[0].FromPrincipalID)
	assert.Equal(t, "bob", history[0].ToPrincipalID)
}

func TestApproveTransferAfterOwnerChangedAutoRejects(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	parcelID := e.approvedParcel(t, "alice")

	first, err := e.workflow.SubmitTransfer(ctx, "alice", SubmitTransferInput{
		ParcelID:         parcelID,
		ToPrincipalID:    "bob",
		Price:            100,
		AssetReferenceID: e.storedRef(t, "agreement one"),
	})
	require.NoError(t, err)
	second, err := e.workflow.SubmitTransfer(ctx, "alice", SubmitTransferInput{
		ParcelID:         parcelID,
		ToPrincipalID:    "carol",
		Price:            200,
		AssetReferenceID: e.storedRef(t, "agreement two"),
	})
	require.NoError(t, err)

	_, err = e.workflow.Decide(ctx, "root", first.RequestID, KindTransfer, Decision{Approve: true})
	require.NoError(t, err)

	_, err = e.workflow.Decide(ctx, "root", second.RequestID, KindTransfer, Decision{Approve: true})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := e.workflow.GetTransfer(ctx, second.RequestID)
	require.NoError(t, err)
	assert.Equal(t, StatusRejected, got.Status)
	assert.NotEmpty(t, got.Reason)

	parcel, err := e.ledger.GetParcel(ctx, parcelID)
	require.NoError(t, err)
	assert.Equal(t, "bob", parcel.OwnerPrincipalID)
}

func TestConcurrentDecidesSingleWinner(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	req := e.submitRegistration(t, "alice")

	const deciders = 12
	var wg sync.WaitGroup
	errs := make([]error, deciders)
	for i := 0; i < deciders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.workflow.Decide(ctx, "root", req.RequestID, KindRegistration, Decision{Approve: i%2 == 0})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeAlreadyDecided))
		}
	}
	assert.Equal(t, 1, winners)

	parcels, err := e.ledger.ParcelIDsOwnedBy(ctx, "alice")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(parcels), 1)
}

func TestConcurrentCompetingTransferApprovalsOneWins(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()
	parcelID := e.approvedParcel(t, "alice")

	const competitors = 8
	requests := make([]*TransferRequest, competitors)
	for i := 0; i < competitors; i++ {
		req, err := e.workflow.SubmitTransfer(ctx, "alice", SubmitTransferInput{
			ParcelID:         parcelID,
			ToPrincipalID:    "buyer-" + uuid.NewString(),
			Price:            int64(100 + i),
			AssetReferenceID: e.storedRef(t, "agreement "+uuid.NewString()),
		})
		require.NoError(t, err)
		requests[i] = req
	}

	var wg sync.WaitGroup
	errs := make([]error, competitors)
	for i := range requests {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.workflow.Decide(ctx, "root", requests[i].RequestID, KindTransfer, Decision{Approve: true})
		}(i)
	}
	wg.Wait()

	approved := 0
	for i, err := range errs {
		req, lookupErr := e.workflow.GetTransfer(ctx, requests[i].RequestID)
		require.NoError(t, lookupErr)
		if err == nil {
			approved++
			assert.Equal(t, StatusApproved, req.Status)
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
			assert.Equal(t, StatusRejected, req.Status)
		}
	}
	assert.Equal(t, 1, approved)

	history, err := e.ledger.HistoryOf(ctx, parcelID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestPendingQueuesRequireAdmin(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	_, err := e.workflow.PendingRegistrations(ctx, "alice")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = e.workflow.PendingTransfers(ctx, "alice")
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestSubmissionsAndDecisionsAreAudited(t *testing.T) {
	e := newEngine(t)
	ctx := context.Background()

	req := e.submitRegistration(t, "alice")
	_, err := e.workflow.Decide(ctx, "root", req.RequestID, KindRegistration, Decision{Approve: true})
	require.NoError(t, err)

	submitterTrail, err := e.auditStore.ListByPrincipal(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, submitterTrail, 1)
	assert.Equal(t, audit.ActionRegistrationSubmitted, submitterTrail[0].Action)

	adminTrail, err := e.auditStore.ListByPrincipal(ctx, "root")
	require.NoError(t, err)
	require.Len(t, adminTrail, 1)
	assert.Equal(t, audit.ActionRequestApproved, adminTrail[0].Action)
}
