package ledger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "landregistry/pkg/domain-errors"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(NewInMemoryStore())
}

func createParcel(t *testing.T, svc *Service, owner string) *Parcel {
	t.Helper()
	parcel, err := svc.CreateParcel(context.Background(), NewParcelInput{
		OwnerPrincipalID: owner,
		OwnerName:        "Owner of record",
		Location:         "12 Harbour Road",
		AreaSqFt:         2400,
		Price:            150_000,
		AssetReferenceID: "deed-ref",
	})
	require.NoError(t, err)
	return parcel
}

func TestCreateParcelGeneratesID(t *testing.T) {
	svc := newTestService(t)

	parcel := createParcel(t, svc, "alice")
	assert.NotEqual(t, uuid.Nil, parcel.ParcelID)
	assert.False(t, parcel.RegisteredAt.IsZero())

	got, err := svc.GetParcel(context.Background(), parcel.ParcelID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.OwnerPrincipalID)
}

func TestCreateParcelValidatesInput(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.CreateParcel(ctx, NewParcelInput{OwnerPrincipalID: "alice", AreaSqFt: 0, Price: 10})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.CreateParcel(ctx, NewParcelInput{OwnerPrincipalID: "alice", AreaSqFt: 100, Price: -1})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))

	_, err = svc.CreateParcel(ctx, NewParcelInput{AreaSqFt: 100, Price: 10})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestGetParcelNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.GetParcel(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestTransferOwnershipSwapsOwnerAndRecordsHistory(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parcel := createParcel(t, svc, "alice")

	requestID := uuid.New()
	entry, err := svc.TransferOwnership(ctx, TransferInput{
		ParcelID:          parcel.ParcelID,
		ExpectedOwner:     "alice",
		NewOwner:          "bob",
		NewOwnerName:      "Bob Quaye",
		Price:             175_000,
		TransferRequestID: requestID,
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", entry.FromPrincipalID)
	assert.Equal(t, "bob", entry.ToPrincipalID)

	got, err := svc.GetParcel(ctx, parcel.ParcelID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.OwnerPrincipalID)
	assert.Equal(t, "Bob Quaye", got.OwnerName)
	assert.Equal(t, int64(175_000), got.Price)

	history, err := svc.HistoryOf(ctx, parcel.ParcelID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, requestID, history[0].TransferRequestID)
}

func TestTransferOwnershipStaleOwnerConflicts(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parcel := createParcel(t, svc, "alice")

	_, err := svc.TransferOwnership(ctx, TransferInput{
		ParcelID:          parcel.ParcelID,
		ExpectedOwner:     "alice",
		NewOwner:          "bob",
		TransferRequestID: uuid.New(),
	})
	require.NoError(t, err)

	_, err = svc.TransferOwnership(ctx, TransferInput{
		ParcelID:          parcel.ParcelID,
		ExpectedOwner:     "alice",
		NewOwner:          "carol",
		TransferRequestID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))

	got, err := svc.GetParcel(ctx, parcel.ParcelID)
	require.NoError(t, err)
	assert.Equal(t, "bob", got.OwnerPrincipalID)
}

func TestTransferOwnershipUnknownParcel(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.TransferOwnership(context.Background(), TransferInput{
		ParcelID:          uuid.New(),
		ExpectedOwner:     "alice",
		NewOwner:          "bob",
		TransferRequestID: uuid.New(),
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestConcurrentTransfersFromSameOwnerOneWinner(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	parcel := createParcel(t, svc, "alice")

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.TransferOwnership(ctx, TransferInput{
				ParcelID:          parcel.ParcelID,
				ExpectedOwner:     "alice",
				NewOwner:          uuid.NewString(),
				TransferRequestID: uuid.New(),
			})
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.True(t, dErrors.HasCode(err, dErrors.CodeConflict))
		}
	}
	assert.Equal(t, 1, winners)

	history, err := svc.HistoryOf(ctx, parcel.ParcelID)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestHistoryOrderedByApprovalTime(t *testing.T) {
	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	times := []time.Time{base.Add(2 * time.Hour), base, base.Add(time.Hour)}
	idx := -1
	svc := NewService(NewInMemoryStore(), WithClock(func() time.Time {
		if idx < 0 || idx >= len(times) {
			return base
		}
		return times[idx]
	}))
	ctx := context.Background()
	parcel := createParcel(t, svc, "owner-0")

	owners := []string{"owner-0", "owner-1", "owner-2"}
	requestIDs := make([]uuid.UUID, len(times))
	for i := range times {
		idx = i
		requestIDs[i] = uuid.New()
		_, err := svc.TransferOwnership(ctx, TransferInput{
			ParcelID:          parcel.ParcelID,
			ExpectedOwner:     owners[i],
			NewOwner:          "owner-" + string(rune('1'+i)),
			TransferRequestID: requestIDs[i],
		})
		require.NoError(t, err)
	}

	history, err := svc.HistoryOf(ctx, parcel.ParcelID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, requestIDs[1], history[0].TransferRequestID)
	assert.Equal(t, requestIDs[2], history[1].TransferRequestID)
	assert.Equal(t, requestIDs[0], history[2].TransferRequestID)
}

func TestHistoryOfUnknownParcel(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.HistoryOf(context.Background(), uuid.New())
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

func TestHistoryOfParcelWithNoTransfers(t *testing.T) {
	svc := newTestService(t)
	parcel := createParcel(t, svc, "alice")

	history, err := svc.HistoryOf(context.Background(), parcel.ParcelID)
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestParcelIDsOwnedBy(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	first := createParcel(t, svc, "alice")
	second := createParcel(t, svc, "alice")
	createParcel(t, svc, "bob")

	ids, err := svc.ParcelIDsOwnedBy(ctx, "alice")
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{first.ParcelID, second.ParcelID}, ids)

	ids, err = svc.ParcelIDsOwnedBy(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
