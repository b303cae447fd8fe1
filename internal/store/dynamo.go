package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/example/letterpress-shop/internal/checkout"
	"github.com/example/letterpress-shop/internal/domain/cart"
	"github.com/example/letterpress-shop/internal/domain/order"
	"github.com/example/letterpress-shop/internal/domain/product"
	"github.com/example/letterpress-shop/internal/domain/user"
)

const (
	userOrdersIndex = "user-orders-index" // orders table GSI: user_id / created_at
	emailIndex      = "email-index"       // users table GSI: email

	// Payment-reference guard items live in the orders table under a
	// prefixed key so one transaction covers both writes.
	payRefPrefix = "payref#"
)

// DynamoTables names the tables one Dynamo store instance uses.
type DynamoTables struct {
	Carts     string
	Checkouts string
	Orders    string
	Products  string
	Users     string
}

// Dynamo persists documents in DynamoDB, one table per collection. Each item
// carries its key attributes, any indexed attributes, and the full document
// as a JSON string under "doc".
type Dynamo struct {
	client *dynamodb.Client
	tables DynamoTables
}

func NewDynamo(client *dynamodb.Client, tables DynamoTables) *Dynamo {
	return &Dynamo{client: client, tables: tables}
}

type cartItem struct {
	OwnerID string `dynamodbav:"owner_id"`
	Doc     string `dynamodbav:"doc"`
}

type checkoutItem struct {
	ID        string `dynamodbav:"id"`
	Status    string `dynamodbav:"status"`
	CreatedAt string `dynamodbav:"created_at"`
	Doc       string `dynamodbav:"doc"`
}

type orderItem struct {
	ID        string `dynamodbav:"id"`
	UserID    string `dynamodbav:"user_id"`
	SessionID string `dynamodbav:"session_id"`
	CreatedAt string `dynamodbav:"created_at"`
	Doc       string `dynamodbav:"doc"`
}

type productItem struct {
	ID  string `dynamodbav:"id"`
	Doc string `dynamodbav:"doc"`
}

type userItem struct {
	ID    string `dynamodbav:"id"`
	Email string `dynamodbav:"email"`
	Doc   string `dynamodbav:"doc"`
}

func isConditionalFailure(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}

// Carts

func (d *Dynamo) GetCart(ctx context.Context, ownerID string) (*cart.Cart, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Carts),
		Key: map[string]types.AttributeValue{
			"owner_id": &types.AttributeValueMemberS{Value: ownerID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	if result.Item == nil {
		return nil, cart.ErrCartNotFound
	}

	var item cartItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cart item: %w", err)
	}
	var c cart.Cart
	if err := json.Unmarshal([]byte(item.Doc), &c); err != nil {
		return nil, fmt.Errorf("failed to decode cart doc: %w", err)
	}
	return &c, nil
}

func (d *Dynamo) putCart(ctx context.Context, c *cart.Cart, condition *string) error {
	doc, err := json.Marshal(c)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(cartItem{OwnerID: c.OwnerID, Doc: string(doc)})
	if err != nil {
		return fmt.Errorf("failed to marshal cart item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Carts),
		Item:                av,
		ConditionExpression: condition,
	})
	return err
}

func (d *Dynamo) PutCart(ctx context.Context, c *cart.Cart) error {
	if err := d.putCart(ctx, c, nil); err != nil {
		return fmt.Errorf("failed to put cart: %w", err)
	}
	return nil
}

// UpdateCart writes the whole document in one conditional put: the item list
// and the denormalized aggregates land together or not at all.
func (d *Dynamo) UpdateCart(ctx context.Context, c *cart.Cart) error {
	err := d.putCart(ctx, c, aws.String("attribute_exists(owner_id)"))
	if err != nil {
		if isConditionalFailure(err) {
			return cart.ErrCartNotFound
		}
		return fmt.Errorf("failed to update cart: %w", err)
	}
	return nil
}

func (d *Dynamo) DeleteCart(ctx context.Context, ownerID string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tables.Carts),
		Key: map[string]types.AttributeValue{
			"owner_id": &types.AttributeValueMemberS{Value: ownerID},
		},
		ConditionExpression: aws.String("attribute_exists(owner_id)"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return cart.ErrCartNotFound
		}
		return fmt.Errorf("failed to delete cart: %w", err)
	}
	return nil
}

// Pending checkouts

func (d *Dynamo) CreateCheckout(ctx context.Context, pc *checkout.PendingCheckout) error {
	doc, err := json.Marshal(pc)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(checkoutItem{
		ID:        pc.ID,
		Status:    string(pc.Status),
		CreatedAt: pc.CreatedAt.Format(time.RFC3339Nano),
		Doc:       string(doc),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal checkout item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Checkouts),
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(id)"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return checkout.ErrCheckoutExists
		}
		return fmt.Errorf("failed to create checkout: %w", err)
	}
	return nil
}

func (d *Dynamo) GetCheckout(ctx context.Context, checkoutID string) (*checkout.PendingCheckout, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Checkouts),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: checkoutID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get checkout: %w", err)
	}
	if result.Item == nil {
		return nil, checkout.ErrCheckoutNotFound
	}

	var item checkoutItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkout item: %w", err)
	}
	var pc checkout.PendingCheckout
	if err := json.Unmarshal([]byte(item.Doc), &pc); err != nil {
		return nil, fmt.Errorf("failed to decode checkout doc: %w", err)
	}
	return &pc, nil
}

func (d *Dynamo) SetCheckoutSession(ctx context.Context, checkoutID, sessionID string) error {
	pc, err := d.GetCheckout(ctx, checkoutID)
	if err != nil {
		return err
	}
	pc.SessionID = sessionID
	doc, err := json.Marshal(pc)
	if err != nil {
		return err
	}
	_, err = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: aws.String(d.tables.Checkouts),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: checkoutID},
		},
		UpdateExpression:    aws.String("SET doc = :doc"),
		ConditionExpression: aws.String("attribute_exists(id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":doc": &types.AttributeValueMemberS{Value: string(doc)},
		},
	})
	if err != nil {
		if isConditionalFailure(err) {
			return checkout.ErrCheckoutNotFound
		}
		return fmt.Errorf("failed to set checkout session: %w", err)
	}
	return nil
}

// PurgeStaleCheckouts deletes pending checkouts created before the cutoff.
// Admin-triggered and low-volume, so a filtered scan is acceptable.
func (d *Dynamo) PurgeStaleCheckouts(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        aws.String(d.tables.Checkouts),
		FilterExpression: aws.String("#status = :pending AND created_at < :cutoff"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": &types.AttributeValueMemberS{Value: string(checkout.StatusPending)},
			":cutoff":  &types.AttributeValueMemberS{Value: olderThan.Format(time.RFC3339Nano)},
		},
		ProjectionExpression: aws.String("id"),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to scan stale checkouts: %w", err)
	}

	purged := 0
	for _, raw := range result.Items {
		var item struct {
			ID string `dynamodbav:"id"`
		}
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(d.tables.Checkouts),
			Key: map[string]types.AttributeValue{
				"id": &types.AttributeValueMemberS{Value: item.ID},
			},
		})
		if err != nil {
			return purged, fmt.Errorf("failed to delete stale checkout %s: %w", item.ID, err)
		}
		purged++
	}
	return purged, nil
}

// Orders

// Materialize commits the order insert, the payment-reference claim and the
// pending-checkout completion as one TransactWriteItems call. Any guard
// tripping cancels the whole transaction, which surfaces as
// checkout.ErrAlreadyMaterialized.
func (d *Dynamo) Materialize(ctx context.Context, o *order.Order, checkoutID string) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return err
	}
	orderAV, err := attributevalue.MarshalMap(orderItem{
		ID:        o.ID,
		UserID:    o.UserID,
		SessionID: o.SessionID,
		CreatedAt: o.CreatedAt.Format(time.RFC3339Nano),
		Doc:       string(doc),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order item: %w", err)
	}

	now := time.Now().Format(time.RFC3339Nano)

	_, err = d.client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Put: &types.Put{
					TableName:           aws.String(d.tables.Orders),
					Item:                orderAV,
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				// Uniqueness guard on the external payment reference: a
				// second order citing the same session can never be written.
				Put: &types.Put{
					TableName: aws.String(d.tables.Orders),
					Item: map[string]types.AttributeValue{
						"id":       &types.AttributeValueMemberS{Value: payRefPrefix + o.SessionID},
						"order_id": &types.AttributeValueMemberS{Value: o.ID},
					},
					ConditionExpression: aws.String("attribute_not_exists(id)"),
				},
			},
			{
				Update: &types.Update{
					TableName: aws.String(d.tables.Checkouts),
					Key: map[string]types.AttributeValue{
						"id": &types.AttributeValueMemberS{Value: checkoutID},
					},
					UpdateExpression: aws.String(
						"SET #status = :completed, order_id = :oid, completed_at = :now"),
					ConditionExpression: aws.String("#status = :pending"),
					ExpressionAttributeNames: map[string]string{
						"#status": "status",
					},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":completed": &types.AttributeValueMemberS{Value: string(checkout.StatusCompleted)},
						":pending":   &types.AttributeValueMemberS{Value: string(checkout.StatusPending)},
						":oid":       &types.AttributeValueMemberS{Value: o.ID},
						":now":       &types.AttributeValueMemberS{Value: now},
					},
				},
			},
		},
	})
	if err != nil {
		var cancelled *types.TransactionCanceledException
		if errors.As(err, &cancelled) {
			return checkout.ErrAlreadyMaterialized
		}
		return fmt.Errorf("failed to materialize order: %w", err)
	}

	// Keep the checkout doc blob in step with the indexed attributes the
	// transaction just set. Best-effort: the attributes are authoritative.
	if pc, err := d.GetCheckout(ctx, checkoutID); err == nil {
		completedAt := time.Now()
		pc.Status = checkout.StatusCompleted
		pc.OrderID = o.ID
		pc.CompletedAt = &completedAt
		if blob, err := json.Marshal(pc); err == nil {
			_, _ = d.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
				TableName: aws.String(d.tables.Checkouts),
				Key: map[string]types.AttributeValue{
					"id": &types.AttributeValueMemberS{Value: checkoutID},
				},
				UpdateExpression: aws.String("SET doc = :doc"),
				ExpressionAttributeValues: map[string]types.AttributeValue{
					":doc": &types.AttributeValueMemberS{Value: string(blob)},
				},
			})
		}
	}

	return nil
}

func (d *Dynamo) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Orders),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if result.Item == nil {
		return nil, order.ErrOrderNotFound
	}
	return decodeOrderItem(result.Item)
}

func (d *Dynamo) UpdateOrder(ctx context.Context, o *order.Order) error {
	doc, err := json.Marshal(o)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(orderItem{
		ID:        o.ID,
		UserID:    o.UserID,
		SessionID: o.SessionID,
		CreatedAt: o.CreatedAt.Format(time.RFC3339Nano),
		Doc:       string(doc),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal order item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Orders),
		Item:                av,
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return order.ErrOrderNotFound
		}
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

// GetOrderBySession queries the user's orders and matches the exact session
// reference; ownership and session id are both required.
func (d *Dynamo) GetOrderBySession(ctx context.Context, userID, sessionID string) (*order.Order, error) {
	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Orders),
		IndexName:              aws.String(userOrdersIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		FilterExpression:       aws.String("session_id = :sid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
			":sid": &types.AttributeValueMemberS{Value: sessionID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query order by session: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, order.ErrOrderNotFound
	}
	return decodeOrderItem(result.Items[0])
}

func (d *Dynamo) ListOrdersByUser(ctx context.Context, userID string) ([]*order.Order, error) {
	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Orders),
		IndexName:              aws.String(userOrdersIndex),
		KeyConditionExpression: aws.String("user_id = :uid"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":uid": &types.AttributeValueMemberS{Value: userID},
		},
		ScanIndexForward: aws.Bool(false), // newest first
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	orders := make([]*order.Order, 0, len(result.Items))
	for _, item := range result.Items {
		o, err := decodeOrderItem(item)
		if err != nil {
			continue
		}
		orders = append(orders, o)
	}
	return orders, nil
}

func decodeOrderItem(raw map[string]types.AttributeValue) (*order.Order, error) {
	var item orderItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal order item: %w", err)
	}
	var o order.Order
	if err := json.Unmarshal([]byte(item.Doc), &o); err != nil {
		return nil, fmt.Errorf("failed to decode order doc: %w", err)
	}
	return &o, nil
}

// Products

func (d *Dynamo) CreateProduct(ctx context.Context, p *product.Product) error {
	return d.putProduct(ctx, p, nil)
}

func (d *Dynamo) UpdateProduct(ctx context.Context, p *product.Product) error {
	err := d.putProduct(ctx, p, aws.String("attribute_exists(id)"))
	if err != nil && isConditionalFailure(err) {
		return product.ErrProductNotFound
	}
	return err
}

func (d *Dynamo) putProduct(ctx context.Context, p *product.Product, condition *string) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(productItem{ID: p.ID, Doc: string(doc)})
	if err != nil {
		return fmt.Errorf("failed to marshal product item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Products),
		Item:                av,
		ConditionExpression: condition,
	})
	return err
}

func (d *Dynamo) GetProduct(ctx context.Context, id string) (*product.Product, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Products),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if result.Item == nil {
		return nil, product.ErrProductNotFound
	}

	var item productItem
	if err := attributevalue.UnmarshalMap(result.Item, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal product item: %w", err)
	}
	var p product.Product
	if err := json.Unmarshal([]byte(item.Doc), &p); err != nil {
		return nil, fmt.Errorf("failed to decode product doc: %w", err)
	}
	return &p, nil
}

func (d *Dynamo) DeleteProduct(ctx context.Context, id string) error {
	_, err := d.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(d.tables.Products),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
		ConditionExpression: aws.String("attribute_exists(id)"),
	})
	if err != nil {
		if isConditionalFailure(err) {
			return product.ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (d *Dynamo) ListProducts(ctx context.Context) ([]*product.Product, error) {
	result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.tables.Products),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan products: %w", err)
	}

	products := make([]*product.Product, 0, len(result.Items))
	for _, raw := range result.Items {
		var item productItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			continue
		}
		var p product.Product
		if err := json.Unmarshal([]byte(item.Doc), &p); err != nil {
			continue
		}
		products = append(products, &p)
	}
	return products, nil
}

// Users

func (d *Dynamo) CreateUser(ctx context.Context, u *user.User) error {
	err := d.putUser(ctx, u, aws.String("attribute_not_exists(id)"))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (d *Dynamo) UpdateUser(ctx context.Context, u *user.User) error {
	err := d.putUser(ctx, u, aws.String("attribute_exists(id)"))
	if err != nil {
		if isConditionalFailure(err) {
			return user.ErrUserNotFound
		}
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (d *Dynamo) putUser(ctx context.Context, u *user.User, condition *string) error {
	doc, err := marshalUser(u)
	if err != nil {
		return err
	}
	av, err := attributevalue.MarshalMap(userItem{ID: u.ID, Email: u.Email, Doc: string(doc)})
	if err != nil {
		return fmt.Errorf("failed to marshal user item: %w", err)
	}
	_, err = d.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           aws.String(d.tables.Users),
		Item:                av,
		ConditionExpression: condition,
	})
	return err
}

func (d *Dynamo) GetUser(ctx context.Context, id string) (*user.User, error) {
	result, err := d.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(d.tables.Users),
		Key: map[string]types.AttributeValue{
			"id": &types.AttributeValueMemberS{Value: id},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if result.Item == nil {
		return nil, user.ErrUserNotFound
	}
	return decodeUserItem(result.Item)
}

func (d *Dynamo) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	result, err := d.client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(d.tables.Users),
		IndexName:              aws.String(emailIndex),
		KeyConditionExpression: aws.String("email = :email"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":email": &types.AttributeValueMemberS{Value: email},
		},
		Limit: aws.Int32(1),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query user by email: %w", err)
	}
	if len(result.Items) == 0 {
		return nil, user.ErrUserNotFound
	}
	return decodeUserItem(result.Items[0])
}

func (d *Dynamo) ListUsers(ctx context.Context) ([]*user.User, error) {
	result, err := d.client.Scan(ctx, &dynamodb.ScanInput{
		TableName: aws.String(d.tables.Users),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan users: %w", err)
	}

	users := make([]*user.User, 0, len(result.Items))
	for _, raw := range result.Items {
		u, err := decodeUserItem(raw)
		if err != nil {
			continue
		}
		users = append(users, u)
	}
	return users, nil
}

func decodeUserItem(raw map[string]types.AttributeValue) (*user.User, error) {
	var item userItem
	if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal user item: %w", err)
	}
	return unmarshalUser([]byte(item.Doc))
}
