package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/marketloom/user-api/internal/models"
)

// emailGuardPrefix keys the single-table guard items that back the
// unique-email constraint. A guard item exists for every registered
// email (lowercased) and is written in the same transaction as the
// user item. Email lookups resolve through the guard too, so lookup
// and uniqueness share one definition of email identity.
const emailGuardPrefix = "email#"

// DynamoStore implements UserStore on a single DynamoDB table keyed by
// user_id.
type DynamoStore struct {
	client    *dynamodb.Client
	tableName string
	logger    *logrus.Logger
}

// NewDynamoStore creates a DynamoDB-backed user store.
func NewDynamoStore(client *dynamodb.Client, tableName string, logger *logrus.Logger) *DynamoStore {
	return &DynamoStore{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

func emailGuardKey(email string) string {
	return emailGuardPrefix + strings.ToLower(email)
}

// Insert writes the user item and its email guard item in one
// transaction. Either both conditions hold or nothing is written, so a
// uniqueness violation can never leave a partial record behind.
func (s *DynamoStore) Insert(ctx context.Context, user *models.User) error {
	item, err := attributevalue.MarshalMap(user)
	if err != nil {
		return fmt.Errorf("marshal failed: %w", err)
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(s.tableName),
					Item:                item,
					ConditionExpression: aws.String("attribute_not_exists(user_id)"),
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(s.tableName),
					Item: map[string]types.AttributeValue{
						"user_id":  &types.AttributeValueMemberS{Value: emailGuardKey(user.Email)},
						"owner_id": &types.AttributeValueMemberS{Value: user.UserID},
					},
					ConditionExpression: aws.String("attribute_not_exists(user_id)"),
				},
			},
		},
	})

	if err != nil {
		if isConditionalCancellation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("transact write failed: %w", err)
	}

	return nil
}

// FindByID fetches a user item by primary key.
func (s *DynamoStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	var user models.User
	if err := attributevalue.UnmarshalMap(result.Item, &user); err != nil {
		return nil, fmt.Errorf("unmarshal failed: %w", err)
	}
	return &user, nil
}

// FindByEmail resolves the address through its guard item, which is
// keyed on the lowercased email. Lookup is therefore case-insensitive
// regardless of the case the record was registered with.
func (s *DynamoStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: emailGuardKey(email)},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("get item failed: %w", err)
	}
	if result.Item == nil {
		return nil, ErrNotFound
	}

	owner, ok := result.Item["owner_id"].(*types.AttributeValueMemberS)
	if !ok || owner.Value == "" {
		return nil, fmt.Errorf("email guard without owner for %q", email)
	}
	return s.FindByID(ctx, owner.Value)
}

// List scans the table for user items. Guard items carry no email
// attribute and are filtered out server-side.
func (s *DynamoStore) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}

	paginator := dynamodb.NewScanPaginator(s.client, &dynamodb.ScanInput{
		TableName:        aws.String(s.tableName),
		FilterExpression: aws.String("attribute_exists(email)"),
	})

	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		var batch []models.User
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &batch); err != nil {
			return nil, fmt.Errorf("unmarshal failed: %w", err)
		}
		users = append(users, batch...)
	}

	return users, nil
}

// UpdateByID applies a partial update. Email changes swap the guard item
// in the same transaction, so the unique-email invariant holds across
// the rename as well.
func (s *DynamoStore) UpdateByID(ctx context.Context, id string, patch UserPatch) (UpdateResult, error) {
	if patch.Empty() {
		return UpdateResult{}, nil
	}

	current, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return UpdateResult{}, nil
		}
		return UpdateResult{}, err
	}

	// A patch that changes nothing skips the write entirely, so
	// updated_at only moves when a stored value does.
	if !patchModifies(patch, current) {
		return UpdateResult{Matched: true}, nil
	}

	expr, err := buildUpdateExpression(patch)
	if err != nil {
		return UpdateResult{}, err
	}

	emailChanged := patch.Email != nil &&
		!strings.EqualFold(*patch.Email, current.Email)

	if emailChanged {
		if err := s.updateWithEmailSwap(ctx, id, current.Email, *patch.Email, expr); err != nil {
			return UpdateResult{}, err
		}
		return UpdateResult{Matched: true, Modified: true}, nil
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			"user_id": &types.AttributeValueMemberS{Value: id},
		},
		UpdateExpression:          aws.String(expr.update),
		ExpressionAttributeNames:  expr.names,
		ExpressionAttributeValues: expr.values,
		ConditionExpression:       aws.String("attribute_exists(user_id)"),
	})
	if err != nil {
		var ccf *types.ConditionalCheckFailedException
		if errors.As(err, &ccf) {
			// Deleted between the read and the write
			return UpdateResult{}, nil
		}
		return UpdateResult{}, fmt.Errorf("update item failed: %w", err)
	}

	return UpdateResult{Matched: true, Modified: true}, nil
}

// updateWithEmailSwap releases the old guard, claims the new one and
// updates the user item atomically.
func (s *DynamoStore) updateWithEmailSwap(ctx context.Context, id, oldEmail, newEmail string, expr *updateExpr) error {
	_, err := s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key: map[string]types.AttributeValue{
						"user_id": &types.AttributeValueMemberS{Value: emailGuardKey(oldEmail)},
					},
				},
			},
			{
				Put: &types.Put{
					TableName: aws.String(s.tableName),
					Item: map[string]types.AttributeValue{
						"user_id":  &types.AttributeValueMemberS{Value: emailGuardKey(newEmail)},
						"owner_id": &types.AttributeValueMemberS{Value: id},
					},
					ConditionExpression: aws.String("attribute_not_exists(user_id)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(s.tableName),
					Key: map[string]types.AttributeValue{
						"user_id": &types.AttributeValueMemberS{Value: id},
					},
					UpdateExpression:          aws.String(expr.update),
					ExpressionAttributeNames:  expr.names,
					ExpressionAttributeValues: expr.values,
					ConditionExpression:       aws.String("attribute_exists(user_id)"),
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancellation(err) {
			return ErrEmailExists
		}
		return fmt.Errorf("transact write failed: %w", err)
	}
	return nil
}

// DeleteByID removes the user item together with its email guard.
func (s *DynamoStore) DeleteByID(ctx context.Context, id string) (bool, error) {
	current, err := s.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return false, nil
		}
		return false, err
	}

	_, err = s.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key: map[string]types.AttributeValue{
						"user_id": &types.AttributeValueMemberS{Value: id},
					},
					ConditionExpression: aws.String("attribute_exists(user_id)"),
				},
			},
			{
				Delete: &types.Delete{
					TableName: aws.String(s.tableName),
					Key: map[string]types.AttributeValue{
						"user_id": &types.AttributeValueMemberS{Value: emailGuardKey(current.Email)},
					},
				},
			},
		},
	})
	if err != nil {
		if isConditionalCancellation(err) {
			// Deleted between the read and the write
			return false, nil
		}
		return false, fmt.Errorf("transact write failed: %w", err)
	}

	return true, nil
}

// updateExpr is a built SET expression with its attribute maps.
type updateExpr struct {
	update string
	names  map[string]string
	values map[string]types.AttributeValue
}

func buildUpdateExpression(patch UserPatch) (*updateExpr, error) {
	expr := &updateExpr{
		names:  map[string]string{},
		values: map[string]types.AttributeValue{},
	}

	var parts []string
	set := func(attr string, value interface{}) error {
		av, err := attributevalue.Marshal(value)
		if err != nil {
			return fmt.Errorf("marshal %s failed: %w", attr, err)
		}
		name := "#" + attr
		placeholder := ":" + attr
		expr.names[name] = attr
		expr.values[placeholder] = av
		parts = append(parts, name+" = "+placeholder)
		return nil
	}

	if patch.Username != nil {
		if err := set("username", *patch.Username); err != nil {
			return nil, err
		}
	}
	if patch.Email != nil {
		if err := set("email", *patch.Email); err != nil {
			return nil, err
		}
	}
	if patch.PasswordHash != nil {
		if err := set("password_hash", *patch.PasswordHash); err != nil {
			return nil, err
		}
	}
	if patch.ProfilePicURL != nil {
		if err := set("profile_pic_url", *patch.ProfilePicURL); err != nil {
			return nil, err
		}
	}
	if patch.Reviews != nil {
		if err := set("reviews", patch.Reviews); err != nil {
			return nil, err
		}
	}
	if patch.LikedProducts != nil {
		if err := set("liked_products", patch.LikedProducts); err != nil {
			return nil, err
		}
	}
	if patch.Roles != nil {
		if err := set("roles", patch.Roles); err != nil {
			return nil, err
		}
	}
	if err := set("updated_at", time.Now().UTC()); err != nil {
		return nil, err
	}

	expr.update = "SET " + strings.Join(parts, ", ")
	return expr, nil
}

// patchModifies reports whether applying patch would change the stored
// record. Email identity is case-insensitive, so a case-only email
// change is a no-op.
func patchModifies(patch UserPatch, current *models.User) bool {
	switch {
	case patch.Username != nil && *patch.Username != current.Username:
		return true
	case patch.Email != nil && !strings.EqualFold(*patch.Email, current.Email):
		return true
	case patch.PasswordHash != nil && *patch.PasswordHash != current.PasswordHash:
		return true
	case patch.ProfilePicURL != nil && *patch.ProfilePicURL != current.ProfilePicURL:
		return true
	case patch.Reviews != nil, patch.LikedProducts != nil, patch.Roles != nil:
		return true
	}
	return false
}

// isConditionalCancellation reports whether a transaction was cancelled
// because one of its condition checks failed.
func isConditionalCancellation(err error) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) {
		var ccf *types.ConditionalCheckFailedException
		return errors.As(err, &ccf)
	}
	for _, reason := range tce.CancellationReasons {
		if reason.Code != nil && *reason.Code == "ConditionalCheckFailed" {
			return true
		}
	}
	return false
}
