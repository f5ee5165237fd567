package transferrepo

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dynamopkg/dynamotest"
	"github.com/go-petr/pet-ledger/pkg/randompkg"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type repo interface {
	Create(ctx context.Context, t domain.Transfer) (domain.Transfer, error)
	ListBySource(ctx context.Context, accountID string) ([]domain.Transfer, error)
	ListByDestination(ctx context.Context, accountID string) ([]domain.Transfer, error)
}

const testTable = "transfers"

func randomAccountID() string {
	return domain.AccountIDFromUsername(randompkg.Owner())
}

func randomTransfer(src, dst string, at time.Time) domain.Transfer {
	return domain.Transfer{
		ID:           uuid.NewString(),
		SrcAccountID: src,
		DstAccountID: dst,
		Amount:       randompkg.MoneyAmountBetween(1, 100),
		OccurredAt:   at.UTC().Truncate(time.Microsecond),
	}
}

func requireSameTransfer(t *testing.T, want, got domain.Transfer) {
	t.Helper()

	require.Equal(t, want.ID, got.ID)
	require.Equal(t, want.SrcAccountID, got.SrcAccountID)
	require.Equal(t, want.DstAccountID, got.DstAccountID)
	require.True(t, want.Amount.Equal(got.Amount), "amount want %s got %s", want.Amount, got.Amount)
	require.WithinDuration(t, want.OccurredAt, got.OccurredAt, time.Millisecond)
}

func testRepoContract(t *testing.T, newRepo func(t *testing.T) repo) {
	t.Run("Create", func(t *testing.T) {
		r := newRepo(t)
		want := randomTransfer(randomAccountID(), randomAccountID(), time.Now())

		got, err := r.Create(context.Background(), want)
		require.NoError(t, err)
		requireSameTransfer(t, want, got)
	})

	t.Run("CreateKeepsScale", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		for _, amount := range []string{"0.00005", "0.00001", "123.456789012345"} {
			want := randomTransfer(randomAccountID(), randomAccountID(), time.Now())
			want.Amount = decimal.RequireFromString(amount)

			_, err := r.Create(ctx, want)
			require.NoError(t, err)

			got, err := r.ListBySource(ctx, want.SrcAccountID)
			require.NoError(t, err)
			require.Len(t, got, 1)
			requireSameTransfer(t, want, got[0])
		}
	})

	t.Run("CreateIDCollision", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()
		first := randomTransfer(randomAccountID(), randomAccountID(), time.Now())

		_, err := r.Create(ctx, first)
		require.NoError(t, err)

		second := randomTransfer(randomAccountID(), randomAccountID(), time.Now())
		second.ID = first.ID

		_, err = r.Create(ctx, second)
		require.ErrorIs(t, err, domain.ErrTransferIDCollision)

		got, err := r.ListBySource(ctx, first.SrcAccountID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		requireSameTransfer(t, first, got[0])

		got, err = r.ListBySource(ctx, second.SrcAccountID)
		require.NoError(t, err)
		require.Empty(t, got)
	})

	t.Run("ListBySourceAndDestination", func(t *testing.T) {
		r := newRepo(t)
		ctx := context.Background()

		a, b, c := randomAccountID(), randomAccountID(), randomAccountID()
		start := time.Now().Add(-time.Hour)

		ab := randomTransfer(a, b, start)
		ca := randomTransfer(c, a, start.Add(time.Minute))
		ac := randomTransfer(a, c, start.Add(2*time.Minute))
		bc := randomTransfer(b, c, start.Add(3*time.Minute))

		for _, tr := range []domain.Transfer{ab, ca, ac, bc} {
			_, err := r.Create(ctx, tr)
			require.NoError(t, err)
		}

		src, err := r.ListBySource(ctx, a)
		require.NoError(t, err)
		require.Len(t, src, 2)
		requireSameTransfer(t, ab, src[0])
		requireSameTransfer(t, ac, src[1])

		dst, err := r.ListByDestination(ctx, a)
		require.NoError(t, err)
		require.Len(t, dst, 1)
		requireSameTransfer(t, ca, dst[0])

		dst, err = r.ListByDestination(ctx, c)
		require.NoError(t, err)
		require.Len(t, dst, 2)
		requireSameTransfer(t, ac, dst[0])
		requireSameTransfer(t, bc, dst[1])
	})

	t.Run("ListUnknownAccount", func(t *testing.T) {
		r := newRepo(t)

		got, err := r.ListBySource(context.Background(), randomAccountID())
		require.NoError(t, err)
		require.NotNil(t, got)
		require.Empty(t, got)
	})
}

func TestRepoMem(t *testing.T) {
	testRepoContract(t, func(t *testing.T) repo {
		return NewRepoMem()
	})
}

func TestRepoDynamo(t *testing.T) {
	testRepoContract(t, func(t *testing.T) repo {
		fake := dynamotest.New()
		fake.ScanPageSize = 1

		return NewRepoDynamo(fake, testTable)
	})
}

func TestRepoDynamoStoreFailure(t *testing.T) {
	fake := dynamotest.New()
	fake.Fail = func(op, table string) error {
		return errors.New("throttled")
	}

	r := NewRepoDynamo(fake, testTable)
	ctx := context.Background()

	_, err := r.Create(ctx, randomTransfer(randomAccountID(), randomAccountID(), time.Now()))
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = r.ListByDestination(ctx, randomAccountID())
	require.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
