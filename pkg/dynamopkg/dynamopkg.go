// Package dynamopkg provides DynamoDB client setup and item helpers.
package dynamopkg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
)

// OfflineEndpoint is the local DynamoDB endpoint used in offline mode.
const OfflineEndpoint = "http://localhost:8032"

// API provides the DynamoDB operations used by the repositories.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Options configures the DynamoDB client.
type Options struct {
	Region   string
	Endpoint string
	Offline  bool
}

// Setup creates a DynamoDB client.
//
// In offline mode static credentials are used and the endpoint defaults to OfflineEndpoint.
func Setup(ctx context.Context, o Options) (*dynamodb.Client, error) {
	loadOpts := []func(*config.LoadOptions) error{
		config.WithRegion(o.Region),
	}

	endpoint := o.Endpoint
	if o.Offline {
		loadOpts = append(loadOpts,
			config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("offline", "offline", "")))

		if endpoint == "" {
			endpoint = OfflineEndpoint
		}
	}

	cfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config: %w", err)
	}

	client := dynamodb.NewFromConfig(cfg, func(opts *dynamodb.Options) {
		if endpoint != "" {
			opts.BaseEndpoint = aws.String(endpoint)
		}
	})

	return client, nil
}

// TablesAPI provides the DynamoDB operations needed to create tables.
type TablesAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// EnsureTables creates tables keyed by the "id" string attribute.
//
// Tables that already exist are left untouched.
func EnsureTables(ctx context.Context, api TablesAPI, tables ...string) error {
	for _, table := range tables {
		_, err := api.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName: aws.String(table),
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String("id"), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String("id"), KeyType: types.KeyTypeHash},
			},
			BillingMode: types.BillingModePayPerRequest,
		})
		if err != nil {
			var inUse *types.ResourceInUseException
			if errors.As(err, &inUse) {
				continue
			}

			return fmt.Errorf("failed to create table %s: %w", table, err)
		}
	}

	return nil
}

// IsConditionalCheckFailed reports whether err is a failed condition expression.
func IsConditionalCheckFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// S returns a string attribute.
func S(v string) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: v}
}

// N returns a number attribute holding d without loss of precision.
func N(d decimal.Decimal) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: d.String()}
}

// Int returns a number attribute holding i.
func Int(i int64) types.AttributeValue {
	return &types.AttributeValueMemberN{Value: decimal.NewFromInt(i).String()}
}

// Bool returns a boolean attribute.
func Bool(b bool) types.AttributeValue {
	return &types.AttributeValueMemberBOOL{Value: b}
}

// Time returns a string attribute holding t in RFC3339 UTC.
func Time(t time.Time) types.AttributeValue {
	return &types.AttributeValueMemberS{Value: t.UTC().Format(time.RFC3339Nano)}
}

// Item reads typed attributes from a DynamoDB item, remembering the first failure.
type Item struct {
	attrs map[string]types.AttributeValue
	err   error
}

// NewItem wraps attrs for reading.
func NewItem(attrs map[string]types.AttributeValue) *Item {
	return &Item{attrs: attrs}
}

// Err returns the first decoding error.
func (it *Item) Err() error {
	return it.err
}

func (it *Item) fail(name, want string) {
	if it.err == nil {
		it.err = fmt.Errorf("attribute %q: expected %s", name, want)
	}
}

// S reads a string attribute.
func (it *Item) S(name string) string {
	v, ok := it.attrs[name].(*types.AttributeValueMemberS)
	if !ok {
		it.fail(name, "S")
		return ""
	}

	return v.Value
}

// N reads a number attribute as a decimal.
func (it *Item) N(name string) decimal.Decimal {
	v, ok := it.attrs[name].(*types.AttributeValueMemberN)
	if !ok {
		it.fail(name, "N")
		return decimal.Zero
	}

	d, err := decimal.NewFromString(v.Value)
	if err != nil {
		it.fail(name, "decimal N")
		return decimal.Zero
	}

	return d
}

// Int reads a number attribute as int64.
func (it *Item) Int(name string) int64 {
	return it.N(name).IntPart()
}

// Bool reads a boolean attribute. Absent attributes read as false.
func (it *Item) Bool(name string) bool {
	v, ok := it.attrs[name].(*types.AttributeValueMemberBOOL)
	if !ok {
		return false
	}

	return v.Value
}

// Time reads an RFC3339 string attribute.
func (it *Item) Time(name string) time.Time {
	s := it.S(name)
	if s == "" {
		return time.Time{}
	}

	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		it.fail(name, "RFC3339 time")
		return time.Time{}
	}

	return t.UTC()
}
