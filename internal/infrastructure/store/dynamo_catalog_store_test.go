package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dearher/bagstore/internal/domain/product"
)

// fakeDynamo keeps items by id and honours the conditions the store uses.
type fakeDynamo struct {
	mu    sync.Mutex
	items map[string]map[string]types.AttributeValue
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func idOf(item map[string]types.AttributeValue) string {
	return item["id"].(*types.AttributeValueMemberS).Value
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return &dynamodb.GetItemOutput{Item: f.items[idOf(in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := idOf(in.Item)
	existing, exists := f.items[id]
	switch aws.ToString(in.ConditionExpression) {
	case "attribute_not_exists(id)":
		if exists {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("exists")}
		}
	case "updated_at = :prev":
		prev := in.ExpressionAttributeValues[":prev"].(*types.AttributeValueMemberS).Value
		if !exists || existing["updated_at"].(*types.AttributeValueMemberS).Value != prev {
			return nil, &types.ConditionalCheckFailedException{Message: aws.String("stale")}
		}
	}
	f.items[id] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := idOf(in.Key)
	if _, ok := f.items[id]; !ok {
		return nil, &types.ConditionalCheckFailedException{Message: aws.String("missing")}
	}
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) Query(_ context.Context, in *dynamodb.QueryInput, _ ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	slug := in.ExpressionAttributeValues[":slug"].(*types.AttributeValueMemberS).Value
	out := &dynamodb.QueryOutput{}
	for _, item := range f.items {
		if item["slug"].(*types.AttributeValueMemberS).Value == slug {
			out.Items = append(out.Items, item)
		}
	}
	return out, nil
}

func (f *fakeDynamo) Scan(_ context.Context, _ *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := &dynamodb.ScanOutput{}
	for _, item := range f.items {
		out.Items = append(out.Items, item)
	}
	return out, nil
}

func newTestDynamoStore() *DynamoCatalogStore {
	s := NewDynamoCatalogStore(newFakeDynamo(), "products", "slug-index")
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func TestDynamoCatalogStore_CreateAndRead(t *testing.T) {
	s := newTestDynamoStore()
	ctx := context.Background()

	id, err := s.Create(ctx, product.Input{Name: "Tote", Slug: "tote", Price: 2500, Colors: []string{"Black"}, Images: []string{"a.jpg"}})
	require.NoError(t, err)

	byID, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Tote", byID.Name)
	assert.Equal(t, []string{"Black"}, byID.Colors)
	assert.False(t, byID.CreatedAt.IsZero())

	bySlug, err := s.GetBySlug(ctx, "tote")
	require.NoError(t, err)
	assert.Equal(t, id, bySlug.ID)

	_, err = s.GetBySlug(ctx, "missing")
	assert.ErrorIs(t, err, product.ErrProductNotFound)
}

func TestDynamoCatalogStore_MalformedTimestamp(t *testing.T) {
	client := newFakeDynamo()
	s := NewDynamoCatalogStore(client, "products", "slug-index")
	ctx := context.Background()
	client.items["bad"] = map[string]types.AttributeValue{
		"id":         &types.AttributeValueMemberS{Value: "bad"},
		"name":       &types.AttributeValueMemberS{Value: "Broken"},
		"slug":       &types.AttributeValueMemberS{Value: "broken"},
		"created_at": &types.AttributeValueMemberS{Value: "yesterday"},
		"updated_at": &types.AttributeValueMemberS{Value: "2026-01-01T00:00:00Z"},
	}

	_, err := s.GetByID(ctx, "bad")
	assert.ErrorContains(t, err, "bad created_at")

	_, err = s.List(ctx)
	assert.ErrorContains(t, err, "bad created_at")
}

func TestDynamoCatalogStore_DuplicateSlug(t *testing.T) {
	s := newTestDynamoStore()
	ctx := context.Background()

	_, err := s.Create(ctx, product.Input{Name: "Tote", Slug: "tote", Price: 1})
	require.NoError(t, err)
	_, err = s.Create(ctx, product.Input{Name: "Tote", Slug: "tote", Price: 1})
	assert.ErrorIs(t, err, product.ErrSlugTaken)
}

func TestDynamoCatalogStore_ListNewestFirstAndFeatured(t *testing.T) {
	s := newTestDynamoStore()
	ctx := context.Background()

	first, _ := s.Create(ctx, product.Input{Name: "A", Slug: "a", Price: 1, Featured: true})
	second, _ := s.Create(ctx, product.Input{Name: "B", Slug: "b", Price: 1})
	third, _ := s.Create(ctx, product.Input{Name: "C", Slug: "c", Price: 1, Featured: true})

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{third, second, first}, []string{all[0].ID, all[1].ID, all[2].ID})

	featured, err := s.ListFeatured(ctx, 1)
	require.NoError(t, err)
	require.Len(t, featured, 1)
	assert.Equal(t, third, featured[0].ID)
}

func TestDynamoCatalogStore_UpdateAndDelete(t *testing.T) {
	s := newTestDynamoStore()
	ctx := context.Background()

	id, err := s.Create(ctx, product.Input{Name: "Tote", Slug: "tote", Price: 2500})
	require.NoError(t, err)

	featured := true
	require.NoError(t, s.Update(ctx, id, product.Patch{Featured: &featured}))

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, got.Featured)
	assert.Equal(t, 2500, got.Price)
	assert.True(t, got.UpdatedAt.After(got.CreatedAt))

	assert.ErrorIs(t, s.Update(ctx, "nope", product.Patch{Featured: &featured}), product.ErrProductNotFound)

	require.NoError(t, s.Delete(ctx, id))
	assert.ErrorIs(t, s.Delete(ctx, id), product.ErrProductNotFound)
}
