package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/spacesedan/myriadflow/internal/models"
)

const (
	POSTS_TABLE_NAME       = "Posts"
	POST_KEYS_TABLE_NAME   = "PostKeys"
	PEOPLE_TABLE_NAME      = "People"
	CREDENTIALS_TABLE_NAME = "UserCredentials"
	TAGS_TABLE_NAME        = "Tags"
	USERS_TABLE_NAME       = "Users"
	CURRENCIES_TABLE_NAME  = "Currencies"
)

// tableKeys maps every table to its partition key attribute.
var tableKeys = map[string]string{
	POSTS_TABLE_NAME:       "id",
	POST_KEYS_TABLE_NAME:   "natural_key",
	PEOPLE_TABLE_NAME:      "id",
	CREDENTIALS_TABLE_NAME: "people_id",
	TAGS_TABLE_NAME:        "id",
	USERS_TABLE_NAME:       "id",
	CURRENCIES_TABLE_NAME:  "id",
}

// DynamoAPI is the subset of *dynamodb.Client the store uses.
type DynamoAPI interface {
	GetItem(ctx context.Context, in *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, in *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, in *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	TransactWriteItems(ctx context.Context, in *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	Scan(ctx context.Context, in *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
	DescribeTable(ctx context.Context, in *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	CreateTable(ctx context.Context, in *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
}

// DynamoStore persists posts in DynamoDB. Natural key uniqueness is enforced
// by writing a guard item to PostKeys in the same transaction as the post.
type DynamoStore struct {
	client DynamoAPI
}

type postKey struct {
	NaturalKey string `dynamodbav:"natural_key"`
	PostID     string `dynamodbav:"post_id"`
}

func NewDynamoStore(client DynamoAPI) *DynamoStore {
	return &DynamoStore{client: client}
}

// EnsureTables creates missing tables. Used against DynamoDB Local.
func (s *DynamoStore) EnsureTables(ctx context.Context) error {
	names := make([]string, 0, len(tableKeys))
	for name := range tableKeys {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err == nil {
			continue
		}
		var notFound *types.ResourceNotFoundException
		if !errors.As(err, &notFound) {
			return fmt.Errorf("[DynamoDB] describe %s: %w", name, err)
		}

		key := tableKeys[name]
		_, err = s.client.CreateTable(ctx, &dynamodb.CreateTableInput{
			TableName:   aws.String(name),
			BillingMode: types.BillingModePayPerRequest,
			AttributeDefinitions: []types.AttributeDefinition{
				{AttributeName: aws.String(key), AttributeType: types.ScalarAttributeTypeS},
			},
			KeySchema: []types.KeySchemaElement{
				{AttributeName: aws.String(key), KeyType: types.KeyTypeHash},
			},
		})
		if err != nil {
			return fmt.Errorf("[DynamoDB] create %s: %w", name, err)
		}
		slog.Info("[DynamoDB] Created table", slog.String("table", name))
	}
	return nil
}

func (s *DynamoStore) getItem(ctx context.Context, table, id string, out any) error {
	res, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(table),
		Key: map[string]types.AttributeValue{
			tableKeys[table]: &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return fmt.Errorf("[DynamoDB] get %s from %s: %w", id, table, err)
	}
	if len(res.Item) == 0 {
		return ErrNotFound
	}
	if out == nil {
		return nil
	}
	if err := attributevalue.UnmarshalMap(res.Item, out); err != nil {
		return fmt.Errorf("[DynamoDB] unmarshal %s item: %w", table, err)
	}
	return nil
}

func (s *DynamoStore) exists(ctx context.Context, table, id string) (bool, error) {
	err := s.getItem(ctx, table, id, nil)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func scanAll[T any](ctx context.Context, client DynamoAPI, table string) ([]T, error) {
	var items []T
	paginator := dynamodb.NewScanPaginator(client, &dynamodb.ScanInput{
		TableName: aws.String(table),
	})
	for paginator.HasMorePages() {
		out, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("[DynamoDB] Scan for %s failed: %w", table, err)
		}
		var page []T
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			slog.Error("[DynamoDB] Unable to unmarshal current page",
				slog.String("table", table),
				slog.String("error", err.Error()))
			return nil, err
		}
		items = append(items, page...)
	}
	return items, nil
}

func (s *DynamoStore) FindPost(ctx context.Context, platform models.Platform, textID string) (*models.Post, error) {
	var key postKey
	if err := s.getItem(ctx, POST_KEYS_TABLE_NAME, models.NaturalKey(platform, textID), &key); err != nil {
		return nil, err
	}
	return s.GetPost(ctx, key.PostID)
}

func (s *DynamoStore) GetPost(ctx context.Context, id string) (*models.Post, error) {
	var post models.Post
	if err := s.getItem(ctx, POSTS_TABLE_NAME, id, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (s *DynamoStore) CreatePost(ctx context.Context, post *models.Post) error {
	id := uuid.NewString()
	stored := *post
	stored.ID = id

	postItem, err := attributevalue.MarshalMap(stored)
	if err != nil {
		return fmt.Errorf("[DynamoDB] marshal post: %w", err)
	}
	keyItem, err := attributevalue.MarshalMap(postKey{NaturalKey: post.NaturalKey(), PostID: id})
	if err != nil {
		return fmt.Errorf("[DynamoDB] marshal post key: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{Put: &types.Put{
				TableName:           aws.String(POST_KEYS_TABLE_NAME),
				Item:                keyItem,
				ConditionExpression: aws.String("attribute_not_exists(natural_key)"),
			}},
			{Put: &types.Put{
				TableName:           aws.String(POSTS_TABLE_NAME),
				Item:                postItem,
				ConditionExpression: aws.String("attribute_not_exists(id)"),
			}},
		},
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrConflict
		}
		return fmt.Errorf("[DynamoDB] Failed to create post: %w", err)
	}

	post.ID = id
	return nil
}

func (s *DynamoStore) UpdatePost(ctx context.Context, id string, patch PostPatch) error {
	names := map[string]string{}
	values := map[string]types.AttributeValue{}
	var sets []string

	add := func(placeholder, attr string, v types.AttributeValue) {
		names["#"+placeholder] = attr
		values[":"+placeholder] = v
		sets = append(sets, fmt.Sprintf("#%s = :%s", placeholder, placeholder))
	}
	if patch.WalletAddress != nil {
		add("wa", "wallet_address", &types.AttributeValueMemberS{Value: *patch.WalletAddress})
	}
	if patch.CredentialUserID != nil {
		add("cu", "credential_user_id", &types.AttributeValueMemberS{Value: *patch.CredentialUserID})
	}
	if !patch.UpdatedAt.IsZero() {
		v, err := attributevalue.Marshal(patch.UpdatedAt)
		if err != nil {
			return fmt.Errorf("[DynamoDB] marshal updated_at: %w", err)
		}
		add("ua", "updated_at", v)
	}
	if len(sets) == 0 {
		return nil
	}

	expr := "SET " + strings.Join(sets, ", ")

	_, err := s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(POSTS_TABLE_NAME),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String("attribute_exists(id)"),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrNotFound
		}
		return fmt.Errorf("[DynamoDB] Failed to update post %s: %w", id, err)
	}
	return nil
}

func (s *DynamoStore) ListUnboundPosts(ctx context.Context, limit int) ([]models.Post, error) {
	posts, err := scanAll[models.Post](ctx, s.client, POSTS_TABLE_NAME)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].CreatedAt.Before(posts[j].CreatedAt) })

	var out []models.Post
	for _, p := range posts {
		if p.WalletAddress != "" {
			continue
		}
		out = append(out, p)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *DynamoStore) ListPeople(ctx context.Context, platform models.Platform) ([]models.People, error) {
	people, err := scanAll[models.People](ctx, s.client, PEOPLE_TABLE_NAME)
	if err != nil {
		return nil, err
	}
	var out []models.People
	for _, p := range people {
		if p.Platform == platform {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *DynamoStore) FindCredentialByPeople(ctx context.Context, peopleID string) (*models.UserCredential, error) {
	var cred models.UserCredential
	if err := s.getItem(ctx, CREDENTIALS_TABLE_NAME, peopleID, &cred); err != nil {
		return nil, err
	}
	return &cred, nil
}

func (s *DynamoStore) FindTag(ctx context.Context, id string) (*models.Tag, error) {
	var tag models.Tag
	if err := s.getItem(ctx, TAGS_TABLE_NAME, id, &tag); err != nil {
		return nil, err
	}
	return &tag, nil
}

func (s *DynamoStore) CreateTag(ctx context.Context, tag *models.Tag) error {
	item, err := attributevalue.MarshalMap(tag)
	if err != nil {
		return fmt.Errorf("[DynamoDB] marshal tag: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(TAGS_TABLE_NAME),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if conditionFailed(err) {
			return ErrConflict
		}
		return fmt.Errorf("[DynamoDB] Failed to create tag %s: %w", tag.ID, err)
	}
	return nil
}

func (s *DynamoStore) ListTags(ctx context.Context) ([]models.Tag, error) {
	tags, err := scanAll[models.Tag](ctx, s.client, TAGS_TABLE_NAME)
	if err != nil {
		return nil, err
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].ID < tags[j].ID })
	return visibleTags(tags), nil
}

func (s *DynamoStore) CurrencyExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, CURRENCIES_TABLE_NAME, id)
}

func (s *DynamoStore) UserExists(ctx context.Context, id string) (bool, error) {
	return s.exists(ctx, USERS_TABLE_NAME, id)
}

func (s *DynamoStore) Ping(ctx context.Context) error {
	_, err := s.client.DescribeTable(ctx, &dynamodb.DescribeTableInput{
		TableName: aws.String(POSTS_TABLE_NAME),
	})
	return err
}

func (s *DynamoStore) Close() {}

func conditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return true
	}
	var tce *types.TransactionCanceledException
	if errors.As(err, &tce) {
		for _, r := range tce.CancellationReasons {
			if aws.ToString(r.Code) == "ConditionalCheckFailed" {
				return true
			}
		}
	}
	return false
}

var _ Store = (*DynamoStore)(nil)
