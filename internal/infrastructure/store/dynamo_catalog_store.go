package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/dearher/bagstore/internal/domain/product"
)

// DynamoAPI is the subset of the DynamoDB client the catalog uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// DynamoCatalogStore keeps one item per product keyed by id, with a
// global secondary index on slug.
type DynamoCatalogStore struct {
	client    DynamoAPI
	tableName string
	slugIndex string
	now       func() time.Time
}

// dynamoProduct represents the DynamoDB item structure
type dynamoProduct struct {
	ID          string   `dynamodbav:"id"`
	Name        string   `dynamodbav:"name"`
	Slug        string   `dynamodbav:"slug"`
	Price       int      `dynamodbav:"price"`
	Description string   `dynamodbav:"description"`
	Images      []string `dynamodbav:"images"`
	PatternType string   `dynamodbav:"pattern_type"`
	Size        string   `dynamodbav:"size"`
	Material    string   `dynamodbav:"material"`
	Colors      []string `dynamodbav:"colors"`
	Featured    bool     `dynamodbav:"featured"`
	Stock       int      `dynamodbav:"stock"`
	CreatedAt   string   `dynamodbav:"created_at"`
	UpdatedAt   string   `dynamodbav:"updated_at"`
}

func NewDynamoCatalogStore(client DynamoAPI, tableName, slugIndex string) *DynamoCatalogStore {
	return &DynamoCatalogStore{
		client:    client,
		tableName: tableName,
		slugIndex: slugIndex,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func itemFromProduct(p product.Product) dynamoProduct {
	return dynamoProduct{
		ID:          p.ID,
		Name:        p.Name,
		Slug:        p.Slug,
		Price:       p.Price,
		Description: p.Description,
		Images:      p.Images,
		PatternType: p.PatternType,
		Size:        p.Size,
		Material:    p.Material,
		Colors:      p.Colors,
		Featured:    p.Featured,
		Stock:       p.Stock,
		CreatedAt:   p.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:   p.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (d dynamoProduct) product() (product.Product, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, d.CreatedAt)
	if err != nil {
		return product.Product{}, fmt.Errorf("product %s: bad created_at: %w", d.ID, err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, d.UpdatedAt)
	if err != nil {
		return product.Product{}, fmt.Errorf("product %s: bad updated_at: %w", d.ID, err)
	}
	images, colors := d.Images, d.Colors
	if images == nil {
		images = []string{}
	}
	if colors == nil {
		colors = []string{}
	}
	return product.Product{
		ID:          d.ID,
		Name:        d.Name,
		Slug:        d.Slug,
		Price:       d.Price,
		Description: d.Description,
		Images:      images,
		PatternType: d.PatternType,
		Size:        d.Size,
		Material:    d.Material,
		Colors:      colors,
		Featured:    d.Featured,
		Stock:       d.Stock,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
	}, nil
}

// List scans the table and orders newest first.
func (s *DynamoCatalogStore) List(ctx context.Context) ([]product.Product, error) {
	var out []product.Product
	var startKey map[string]types.AttributeValue
	for {
		result, err := s.client.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(s.tableName),
			ExclusiveStartKey: startKey,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan products: %w", err)
		}
		var items []dynamoProduct
		if err := attributevalue.UnmarshalListOfMaps(result.Items, &items); err != nil {
			return nil, fmt.Errorf("failed to unmarshal products: %w", err)
		}
		for _, item := range items {
			p, err := item.product()
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		if len(result.LastEvaluatedKey) == 0 {
			break
		}
		startKey = result.LastEvaluatedKey
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if out == nil {
		out = []product.Product{}
	}
	return out, nil
}

func (s *DynamoCatalogStore) ListFeatured(ctx context.Context, limit int) ([]product.Product, error) {
	all, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]product.Product, 0, limit)
	for _, p := range all {
		if len(out) == limit {
			break
		}
		if p.Featured {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *DynamoCatalogStore) GetByID(ctx context.Context, id string) (*product.Product, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if len(result.Item) == 0 {
		return nil, product.ErrProductNotFound
	}
	var item dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	p, err := item.product()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *DynamoCatalogStore) GetBySlug(ctx context.Context, slug string) (*product.Product, error) {
	result, err := s.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(s.tableName),
		IndexName:              aws.String(s.slugIndex),
		KeyConditionExpression: aws.String("slug = :slug"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":slug": &types.AttributeValueMemberS{Value: slug},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query slug: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, product.ErrProductNotFound
	}
	var item dynamoProduct
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product: %w", err)
	}
	p, err := item.product()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create writes a new item. The slug check goes through the index, which
// is eventually consistent, so two racing creates can still collide.
func (s *DynamoCatalogStore) Create(ctx context.Context, in product.Input) (string, error) {
	if err := s.ensureSlugFree(ctx, in.Slug, ""); err != nil {
		return "", err
	}
	p := in.Product(uuid.New().String(), s.now())
	if err := s.put(ctx, p, aws.String("attribute_not_exists(id)"), nil); err != nil {
		return "", err
	}
	return p.ID, nil
}

// Update is read-modify-write guarded on the previous updated_at.
func (s *DynamoCatalogStore) Update(ctx context.Context, id string, patch product.Patch) error {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if patch.Slug != nil && *patch.Slug != current.Slug {
		if err := s.ensureSlugFree(ctx, *patch.Slug, id); err != nil {
			return err
		}
	}
	prev := current.UpdatedAt.Format(time.RFC3339Nano)
	patch.Apply(current, s.now())

	return s.put(ctx, *current, aws.String("updated_at = :prev"), map[string]types.AttributeValue{
		":prev": &types.AttributeValueMemberS{Value: prev},
	})
}

func (s *DynamoCatalogStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			return product.ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *DynamoCatalogStore) put(ctx context.Context, p product.Product, condition *string, values map[string]types.AttributeValue) error {
	av, err := attributevalue.MarshalMap(itemFromProduct(p))
	if err != nil {
		return fmt.Errorf("failed to marshal product: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:                 aws.String(s.tableName),
		Item:                      av,
		ConditionExpression:       condition,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return fmt.Errorf("failed to put product: %w", err)
	}
	return nil
}

func (s *DynamoCatalogStore) ensureSlugFree(ctx context.Context, slug, ownID string) error {
	existing, err := s.GetBySlug(ctx, slug)
	if errors.Is(err, product.ErrProductNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if existing.ID != ownID {
		return product.ErrSlugTaken
	}
	return nil
}
