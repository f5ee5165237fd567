package accountrepo

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/go-petr/pet-ledger/internal/domain"
	"github.com/go-petr/pet-ledger/pkg/dynamopkg"
	"github.com/rs/zerolog"
)

// Item attribute names.
const (
	attrID              = "id"
	attrUsername        = "username"
	attrPasswordHash    = "passwordHash"
	attrSalt            = "salt"
	attrName            = "name"
	attrSurname         = "surname"
	attrVerifiedAccount = "verifiedAccount"
	attrBalance         = "balance"
	attrVersion         = "version"
	attrCreatedAt       = "createdAtUTC"
)

// RepoDynamo facilitates account repository layer logic on DynamoDB.
type RepoDynamo struct {
	api   dynamopkg.API
	table string
}

// NewRepoDynamo returns account RepoDynamo working with the given table.
func NewRepoDynamo(api dynamopkg.API, table string) *RepoDynamo {
	return &RepoDynamo{
		api:   api,
		table: table,
	}
}

// Create inserts the account unless an account with the same id exists.
func (r *RepoDynamo) Create(ctx context.Context, a domain.Account) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	_, err := r.api.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(r.table),
		Item:                encodeAccount(a),
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if dynamopkg.IsConditionalCheckFailed(err) {
			return domain.Account{}, domain.ErrAccountAlreadyExists
		}

		l.Error().Err(err).Str("account_id", a.ID).Send()

		return domain.Account{}, domain.ErrStoreUnavailable
	}

	return a, nil
}

// Get returns the account with the given id using a strongly consistent read.
func (r *RepoDynamo) Get(ctx context.Context, id string) (domain.Account, error) {
	l := zerolog.Ctx(ctx)

	out, err := r.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(r.table),
		Key:            map[string]types.AttributeValue{attrID: dynamopkg.S(id)},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		l.Error().Err(err).Str("account_id", id).Send()
		return domain.Account{}, domain.ErrStoreUnavailable
	}

	if len(out.Item) == 0 {
		return domain.Account{}, domain.ErrAccountNotFound
	}

	a, err := decodeAccount(out.Item)
	if err != nil {
		l.Error().Err(err).Str("account_id", id).Send()
		return domain.Account{}, domain.ErrStoreUnavailable
	}

	return a, nil
}

// CompareAndSwap stores the account balance and version if the stored version equals expectedVersion.
func (r *RepoDynamo) CompareAndSwap(ctx context.Context, a domain.Account, expectedVersion int64) error {
	l := zerolog.Ctx(ctx)

	_, err := r.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:           aws.String(r.table),
		Key:                 map[string]types.AttributeValue{attrID: dynamopkg.S(a.ID)},
		UpdateExpression:    aws.String("SET #balance = :balance, #version = :version"),
		ConditionExpression: aws.String("attribute_exists(id) AND #version = :expected"),
		ExpressionAttributeNames: map[string]string{
			"#balance": attrBalance,
			"#version": attrVersion,
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":balance":  dynamopkg.N(a.Balance),
			":version":  dynamopkg.Int(a.Version),
			":expected": dynamopkg.Int(expectedVersion),
		},
	})
	if err != nil {
		if dynamopkg.IsConditionalCheckFailed(err) {
			return domain.ErrVersionConflict
		}

		l.Error().Err(err).Str("account_id", a.ID).Send()

		return domain.ErrStoreUnavailable
	}

	return nil
}

// ListIDs returns ids of all accounts. A missing or empty table yields no ids.
func (r *RepoDynamo) ListIDs(ctx context.Context) ([]string, error) {
	l := zerolog.Ctx(ctx)

	p := dynamodb.NewScanPaginator(r.api, &dynamodb.ScanInput{
		TableName:            aws.String(r.table),
		ProjectionExpression: aws.String(attrID),
	})

	ids := []string{}

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			var notFound *types.ResourceNotFoundException
			if errors.As(err, &notFound) {
				return ids, nil
			}

			l.Error().Err(err).Send()

			return nil, domain.ErrStoreUnavailable
		}

		for _, it := range page.Items {
			id := dynamopkg.NewItem(it).S(attrID)
			if id != "" {
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

func encodeAccount(a domain.Account) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		attrID:              dynamopkg.S(a.ID),
		attrUsername:        dynamopkg.S(a.Username),
		attrPasswordHash:    dynamopkg.S(a.PasswordHash),
		attrSalt:            dynamopkg.S(a.Salt),
		attrName:            dynamopkg.S(a.Name),
		attrSurname:         dynamopkg.S(a.Surname),
		attrVerifiedAccount: dynamopkg.Bool(a.VerifiedAccount),
		attrBalance:         dynamopkg.N(a.Balance),
		attrVersion:         dynamopkg.Int(a.Version),
		attrCreatedAt:       dynamopkg.Time(a.CreatedAt),
	}
}

func decodeAccount(attrs map[string]types.AttributeValue) (domain.Account, error) {
	it := dynamopkg.NewItem(attrs)

	a := domain.Account{
		ID:              it.S(attrID),
		Username:        it.S(attrUsername),
		PasswordHash:    it.S(attrPasswordHash),
		Salt:            it.S(attrSalt),
		Name:            it.S(attrName),
		Surname:         it.S(attrSurname),
		VerifiedAccount: it.Bool(attrVerifiedAccount),
		Balance:         it.N(attrBalance),
		Version:         it.Int(attrVersion),
		CreatedAt:       it.Time(attrCreatedAt),
	}

	if err := it.Err(); err != nil {
		return domain.Account{}, fmt.Errorf("decode account: %w", err)
	}

	return a, nil
}
