package transferrepo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dynamopkg"
	"github.com/rs/zerolog"
)

// Item attribute names.
const (
	attrID           = "id"
	attrSrcAccountID = "srcAccountId"
	attrDstAccountID = "dstAccountId"
	attrAmount       = "amount"
	attrOccurredAt   = "occurredAtUTC"
)

// RepoDynamo facilitates transfer repository layer logic on DynamoDB.
type RepoDynamo struct {
	api   dynamopkg.API
	table string
}

// NewRepoDynamo returns transfer RepoDynamo working with the given table.
func NewRepoDynamo(api dynamopkg.API, table string) *RepoDynamo {
	return &RepoDynamo{
		api:   api,
		table: table,
	}
}

// Create appends the transfer unless a transfer with the same id exists.
func (r *RepoDynamo) Create(ctx context.Context, t domain.Transfer) (domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(r.table),
		Item: map[string]types.AttributeValue{
			attrID:           dynamopkg.S(t.ID),
			attrSrcAccountID: dynamopkg.S(t.SrcAccountID),
			attrDstAccountID: dynamopkg.S(t.DstAccountID),
			attrAmount:       dynamopkg.N(t.Amount),
			attrOccurredAt:   dynamopkg.Time(t.OccurredAt),
		},
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if dynamopkg.IsConditionalCheckFailed(err) {
			return domain.Transfer{}, domain.ErrTransferIDCollision
		}

		l.Error().Err(err).Msgf("Create(ctx context.Context, %+v)", t)

		return domain.Transfer{}, domain.ErrStoreUnavailable
	}

	t.OccurredAt = t.OccurredAt.UTC()

	return t, nil
}

// ListBySource returns transfers debiting the account.
func (r *RepoDynamo) ListBySource(ctx context.Context, accountID string) ([]domain.Transfer, error) {
	return r.scan(ctx, attrSrcAccountID, accountID)
}

// ListByDestination returns transfers crediting the account.
func (r *RepoDynamo) ListByDestination(ctx context.Context, accountID string) ([]domain.Transfer, error) {
	return r.scan(ctx, attrDstAccountID, accountID)
}

// scan walks the whole table. A missing table yields no transfers.
func (r *RepoDynamo) scan(ctx context.Context, attr, accountID string) ([]domain.Transfer, error) {
	l := zerolog.Ctx(ctx)

	p := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName:                 aws.String(r.table),
		FilterExpression:          aws.String("#account = :account"),
		ExpressionAttributeNames:  map[string]string{"#account": attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{":account": dynamopkg.S(accountID)},
	})

	items := []domain.Transfer{}

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return items, nil
			}

			l.Error().Err(err).Str("account_id", accountID).Send()

			return nil, domain.ErrStoreUnavailable
		}

		for _, attrs := range page.Items {
			t, err := decodeTransfer(attrs)
			if err != nil {
				l.Error().Err(err).Str("account_id", accountID).Send()
				return nil, domain.ErrStoreUnavailable
			}

			items = append(items, t)
		}
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].OccurredAt.Before(items[j].OccurredAt)
	})

	return items, nil
}

func decodeTransfer(attrs map[string]types.AttributeValue) (domain.Transfer, error) {
	it := dynamopkg.NewItem(attrs)

	t := domain.Transfer{
		ID:           it.S(attrID),
		SrcAccountID: it.S(attrSrcAccountID),
		DstAccountID: it.S(attrDstAccountID),
		Amount:       it.N(attrAmount),
		OccurredAt:   it.Time(attrOccurredAt),
	}

	if err := it.Err(); err != nil {
		return domain.Transfer{}, fmt.Errorf("decode transfer: %w", err)
	}

	return t, nil
}
