package query

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"landregistry/internal/asset"
	"landregistry/internal/asset/blob"
	"landregistry/internal/ledger"
	"landregistry/internal/principal"
	"landregistry/internal/workflow"
	dErrors "landregistry/pkg/domain-errors"
)

type fixture struct {
	query      *Service
	workflow   *workflow.Service
	principals *principal.Service
	assets     *asset.Service
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()

	assets := asset.NewService(asset.NewInMemoryStore(), blob.NewMemory())
	principals := principal.NewService(principal.NewInMemoryStore(), assets)
	ledgerSvc := ledger.NewService(ledger.NewInMemoryStore())
	wf := workflow.NewService(workflow.NewInMemoryStore(), principals, ledgerSvc, assets)
	require.NoError(t, principals.SeedAdmins(context.Background(), []string{"root"}))

	return &fixture{
		query:      NewService(wf, ledgerSvc, principals, opts...),
		workflow:   wf,
		principals: principals,
		assets:     assets,
	}
}

func (f *fixture) storedRef(t *testing.T, content string) string {
	t.Helper()
	ref, err := f.assets.Store(context.Background(), strings.NewReader(content), "application/pdf")
	require.NoError(t, err)
	return ref.ReferenceID
}

func (f *fixture) registeredParcel(t *testing.T, owner string) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	req, err := f.workflow.SubmitRegistration(ctx, owner, workflow.SubmitRegistrationInput{
		OwnerName:        "Owner " + owner,
		Location:         "7 Lagoon Close",
		AreaSqFt:         900,
		Price:            40_000,
		AssetReferenceID: f.storedRef(t, "deed "+uuid.NewString()),
	})
	require.NoError(t, err)
	result, err := f.workflow.Decide(ctx, "root", req.RequestID, workflow.KindRegistration, workflow.Decision{Approve: true})
	require.NoError(t, err)
	require.NotNil(t, result.ParcelID)
	return *result.ParcelID
}

func TestStatusOfPendingRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	req, err := f.workflow.SubmitRegistration(ctx, "alice", workflow.SubmitRegistrationInput{
		OwnerName:        "Alice",
		Location:         "7 Lagoon Close",
		AreaSqFt:         900,
		Price:            40_000,
		AssetReferenceID: f.storedRef(t, "deed"),
	})
	require.NoError(t, err)

	status, err := f.query.StatusOf(ctx, req.RequestID, workflow.KindRegistration)
	require.NoError(t, err)
	assert.Equal(t, workflow.StatusPending, status.Status)
	assert.Nil(t, status.DecidedAt)
}

func TestStatusOfUnknownRequestIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.query.StatusOf(context.Background(), uuid.New(), workflow.KindRegistration)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestStatusOfRejectsUnknownKind(t *testing.T) {
	f := newFixture(t)

	_, err := f.query.StatusOf(context.Background(), uuid.New(), workflow.Kind("lease"))
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestDetailComposesParcelAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	parcelID := f.registeredParcel(t, "alice")

	transfer, err := f.workflow.SubmitTransfer(ctx, "alice", workflow.SubmitTransferInput{
		ParcelID:         parcelID,
		ToPrincipalID:    "bob",
		Price:            55_000,
		AssetReferenceID: f.storedRef(t, "sale agreement"),
	})
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, "root", transfer.RequestID, workflow.KindTransfer, workflow.Decision{Approve: true})
	require.NoError(t, err)

	detail, err := f.query.Detail(ctx, parcelID)
	require.NoError(t, err)
	assert.Equal(t, "bob", detail.Parcel.OwnerPrincipalID)
	require.Len(t, detail.History, 1)
	assert.Equal(t, "alice", detail.History[0].FromPrincipalID)
}

func TestDetailUnknownParcel(t *testing.T) {
	f := newFixture(t)

	_, err := f.query.Detail(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

type memCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	gets    int
	hits    int
}

func newMemCache() *memCache {
	return &memCache{entries: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gets++
	if value, ok := c.entries[key]; ok {
		c.hits++
		return value, nil
	}
	return nil, nil
}

func (c *memCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = value
	return nil
}

func TestDetailReadsThroughCache(t *testing.T) {
	cache := newMemCache()
	f := newFixture(t, WithCache(cache, time.Minute))
	ctx := context.Background()
	parcelID := f.registeredParcel(t, "alice")

	first, err := f.query.Detail(ctx, parcelID)
	require.NoError(t, err)
	second, err := f.query.Detail(ctx, parcelID)
	require.NoError(t, err)

	assert.Equal(t, first.Parcel.ParcelID, second.Parcel.ParcelID)
	assert.Equal(t, 2, cache.gets)
	assert.Equal(t, 1, cache.hits)
}

func TestOwnedByListsCurrentParcelsOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	kept := f.registeredParcel(t, "alice")
	sold := f.registeredParcel(t, "alice")

	transfer, err := f.workflow.SubmitTransfer(ctx, "alice", workflow.SubmitTransferInput{
		ParcelID:         sold,
		ToPrincipalID:    "bob",
		Price:            10,
		AssetReferenceID: f.storedRef(t, "sale agreement"),
	})
	require.NoError(t, err)
	_, err = f.workflow.Decide(ctx, "root", transfer.RequestID, workflow.KindTransfer, workflow.Decision{Approve: true})
	require.NoError(t, err)

	owned, err := f.query.OwnedBy(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, kept, owned[0].ParcelID)

	bobOwned, err := f.query.OwnedBy(ctx, "bob")
	require.NoError(t, err)
	require.Len(t, bobOwned, 1)
	assert.Equal(t, sold, bobOwned[0].ParcelID)
}

func TestClassificationOf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	class, err := f.query.ClassificationOf(ctx, "stranger")
	require.NoError(t, err)
	assert.Equal(t, principal.Unregistered, class)

	f.registeredParcel(t, "alice")
	class, err = f.query.ClassificationOf(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, principal.VerifiedOwner, class)
}
