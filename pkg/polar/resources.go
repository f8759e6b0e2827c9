package polar

import (
	"context"
	"iter"
	"time"

	"github.com/shopspring/decimal"
)

// ProductType distinguishes one-time purchases from subscriptions.
type ProductType string

const (
	ProductTypeOneTime      ProductType = "one_time"
	ProductTypeSubscription ProductType = "subscription"
)

// PriceType is the billing type of a price.
type PriceType string

const (
	PriceTypeOneTime   PriceType = "one_time"
	PriceTypeRecurring PriceType = "recurring"
)

// PriceAmountType is how a price amount is determined.
type PriceAmountType string

const (
	PriceAmountFixed       PriceAmountType = "fixed"
	PriceAmountCustom      PriceAmountType = "custom"
	PriceAmountFree        PriceAmountType = "free"
	PriceAmountMeteredUnit PriceAmountType = "metered_unit"
)

// RecurringInterval is the billing period of a recurring price.
type RecurringInterval string

const (
	RecurringIntervalDay   RecurringInterval = "day"
	RecurringIntervalWeek  RecurringInterval = "week"
	RecurringIntervalMonth RecurringInterval = "month"
	RecurringIntervalYear  RecurringInterval = "year"
)

// SubscriptionStatus is the lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusIncomplete        SubscriptionStatus = "incomplete"
	SubscriptionStatusIncompleteExpired SubscriptionStatus = "incomplete_expired"
	SubscriptionStatusTrialing          SubscriptionStatus = "trialing"
	SubscriptionStatusActive            SubscriptionStatus = "active"
	SubscriptionStatusPastDue           SubscriptionStatus = "past_due"
	SubscriptionStatusCanceled          SubscriptionStatus = "canceled"
	SubscriptionStatusUnpaid            SubscriptionStatus = "unpaid"
)

// OrderStatus is the payment state of an order.
type OrderStatus string

const (
	OrderStatusPending           OrderStatus = "pending"
	OrderStatusPaid              OrderStatus = "paid"
	OrderStatusRefunded          OrderStatus = "refunded"
	OrderStatusPartiallyRefunded OrderStatus = "partially_refunded"
)

// Filter and sort field names understood by the list endpoints.
const (
	FieldID                = "id"
	FieldOrganizationID    = "organization_id"
	FieldProductID         = "product_id"
	FieldCustomerID        = "customer_id"
	FieldEmail             = "email"
	FieldIsArchived        = "is_archived"
	FieldIsRecurring       = "is_recurring"
	FieldType              = "type"
	FieldStatus            = "status"
	FieldActive            = "active"
	FieldCreatedAt         = "created_at"
	FieldAmount            = "amount"
	FieldCurrency          = "currency"
	FieldQuery             = "query"
	FieldRecurringInterval = "recurring_interval"
)

// Metadata is free-form key/value data attached to a resource.
type Metadata map[string]string

// Product represents a sellable product.
type Product struct {
	ID                string             `json:"id"                           yaml:"id"`
	CreatedAt         time.Time          `json:"created_at"                   yaml:"created_at"`
	ModifiedAt        *time.Time         `json:"modified_at,omitempty"        yaml:"modified_at,omitempty"`
	Name              string             `json:"name"                         yaml:"name"`
	Description       *string            `json:"description,omitempty"        yaml:"description,omitempty"`
	Type              ProductType        `json:"type,omitempty"               yaml:"type,omitempty"`
	IsRecurring       bool               `json:"is_recurring"                 yaml:"is_recurring"`
	IsArchived        bool               `json:"is_archived"                  yaml:"is_archived"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty" yaml:"recurring_interval,omitempty"`
	OrganizationID    string             `json:"organization_id"              yaml:"organization_id"`
	Prices            []ProductPrice     `json:"prices"                       yaml:"prices"`
	Metadata          Metadata           `json:"metadata,omitempty"           yaml:"metadata,omitempty"`
}

// ProductCreateRequest represents a request to create a product.
type ProductCreateRequest struct {
	// Name is required.
	Name              string                      `json:"name"                         yaml:"name"`
	Description       *string                     `json:"description,omitempty"        yaml:"description,omitempty"`
	// RecurringInterval makes the product a subscription; nil creates a one-time product.
	RecurringInterval *RecurringInterval          `json:"recurring_interval,omitempty" yaml:"recurring_interval,omitempty"`
	Prices            []ProductPriceCreateRequest `json:"prices,omitempty"             yaml:"prices,omitempty"`
	OrganizationID    *string                     `json:"organization_id,omitempty"    yaml:"organization_id,omitempty"`
	Metadata          Metadata                    `json:"metadata,omitempty"           yaml:"metadata,omitempty"`
}

// ProductUpdateRequest represents a request to update a product. Nil fields
// are left unchanged.
type ProductUpdateRequest struct {
	Name        *string  `json:"name,omitempty"        yaml:"name,omitempty"`
	Description *string  `json:"description,omitempty" yaml:"description,omitempty"`
	IsArchived  *bool    `json:"is_archived,omitempty" yaml:"is_archived,omitempty"`
	Metadata    Metadata `json:"metadata,omitempty"    yaml:"metadata,omitempty"`
}

// ProductPrice is a price attached to a product. Amount is in minor units
// (cents); metered prices carry a fractional UnitAmount instead.
type ProductPrice struct {
	ID                string             `json:"id"                           yaml:"id"`
	CreatedAt         time.Time          `json:"created_at"                   yaml:"created_at"`
	ProductID         string             `json:"product_id"                   yaml:"product_id"`
	Type              PriceType          `json:"type"                         yaml:"type"`
	AmountType        PriceAmountType    `json:"amount_type"                  yaml:"amount_type"`
	Amount            int64              `json:"price_amount,omitempty"       yaml:"price_amount,omitempty"`
	Currency          string             `json:"price_currency,omitempty"     yaml:"price_currency,omitempty"`
	UnitAmount        *decimal.Decimal   `json:"unit_amount,omitempty"        yaml:"unit_amount,omitempty"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty" yaml:"recurring_interval,omitempty"`
	IsArchived        bool               `json:"is_archived"                  yaml:"is_archived"`
}

// ProductPriceCreateRequest represents a request to add a price to a product.
type ProductPriceCreateRequest struct {
	Type              PriceType          `json:"type"                         yaml:"type"`
	AmountType        PriceAmountType    `json:"amount_type"                  yaml:"amount_type"`
	Amount            int64              `json:"price_amount,omitempty"       yaml:"price_amount,omitempty"`
	Currency          string             `json:"price_currency,omitempty"     yaml:"price_currency,omitempty"`
	UnitAmount        *decimal.Decimal   `json:"unit_amount,omitempty"        yaml:"unit_amount,omitempty"`
	RecurringInterval *RecurringInterval `json:"recurring_interval,omitempty" yaml:"recurring_interval,omitempty"`
}

// Subscription represents a customer's subscription to a product.
type Subscription struct {
	ID                 string             `json:"id"                             yaml:"id"`
	CreatedAt          time.Time          `json:"created_at"                     yaml:"created_at"`
	Status             SubscriptionStatus `json:"status"                         yaml:"status"`
	Amount             int64              `json:"amount"                         yaml:"amount"`
	Currency           string             `json:"currency"                       yaml:"currency"`
	RecurringInterval  RecurringInterval  `json:"recurring_interval"             yaml:"recurring_interval"`
	CurrentPeriodStart time.Time          `json:"current_period_start"           yaml:"current_period_start"`
	CurrentPeriodEnd   *time.Time         `json:"current_period_end,omitempty"   yaml:"current_period_end,omitempty"`
	CancelAtPeriodEnd  bool               `json:"cancel_at_period_end"           yaml:"cancel_at_period_end"`
	CanceledAt         *time.Time         `json:"canceled_at,omitempty"          yaml:"canceled_at,omitempty"`
	EndedAt            *time.Time         `json:"ended_at,omitempty"             yaml:"ended_at,omitempty"`
	CustomerID         string             `json:"customer_id"                    yaml:"customer_id"`
	ProductID          string             `json:"product_id"                     yaml:"product_id"`
	Metadata           Metadata           `json:"metadata,omitempty"             yaml:"metadata,omitempty"`
}

// SubscriptionUpdateRequest represents a request to update a subscription.
type SubscriptionUpdateRequest struct {
	// CancelAtPeriodEnd schedules (true) or withdraws (false) a cancellation.
	CancelAtPeriodEnd *bool   `json:"cancel_at_period_end,omitempty" yaml:"cancel_at_period_end,omitempty"`
	// ProductID switches the subscription to another product.
	ProductID         *string `json:"product_id,omitempty"           yaml:"product_id,omitempty"`
}

// Customer represents a paying customer.
type Customer struct {
	ID             string    `json:"id"                    yaml:"id"`
	CreatedAt      time.Time `json:"created_at"            yaml:"created_at"`
	Email          string    `json:"email"                 yaml:"email"`
	Name           *string   `json:"name,omitempty"        yaml:"name,omitempty"`
	ExternalID     *string   `json:"external_id,omitempty" yaml:"external_id,omitempty"`
	OrganizationID string    `json:"organization_id"       yaml:"organization_id"`
	Metadata       Metadata  `json:"metadata,omitempty"    yaml:"metadata,omitempty"`
}

// CustomerCreateRequest represents a request to create a customer.
type CustomerCreateRequest struct {
	Email          string   `json:"email"                     yaml:"email"`
	Name           *string  `json:"name,omitempty"            yaml:"name,omitempty"`
	ExternalID     *string  `json:"external_id,omitempty"     yaml:"external_id,omitempty"`
	OrganizationID *string  `json:"organization_id,omitempty" yaml:"organization_id,omitempty"`
	Metadata       Metadata `json:"metadata,omitempty"        yaml:"metadata,omitempty"`
}

// Order represents a completed or pending checkout.
type Order struct {
	ID             string      `json:"id"                        yaml:"id"`
	CreatedAt      time.Time   `json:"created_at"                yaml:"created_at"`
	Status         OrderStatus `json:"status"                    yaml:"status"`
	SubtotalAmount int64       `json:"subtotal_amount"           yaml:"subtotal_amount"`
	TaxAmount      int64       `json:"tax_amount"                yaml:"tax_amount"`
	TotalAmount    int64       `json:"total_amount"              yaml:"total_amount"`
	Currency       string      `json:"currency"                  yaml:"currency"`
	BillingReason  string      `json:"billing_reason"            yaml:"billing_reason"`
	CustomerID     string      `json:"customer_id"               yaml:"customer_id"`
	ProductID      string      `json:"product_id"                yaml:"product_id"`
	SubscriptionID *string     `json:"subscription_id,omitempty" yaml:"subscription_id,omitempty"`
	Metadata       Metadata    `json:"metadata,omitempty"        yaml:"metadata,omitempty"`
}

// ListResult is the outcome of a List call: the metadata of the first page
// and the collected items.
type ListResult[T any] struct {
	Items      []T      `json:"items"      yaml:"items"`
	Pagination PageInfo `json:"pagination" yaml:"pagination"`
}

// Lister is the listing surface shared by every resource client.
//
// List returns the first page's metadata. With limit > 0, items are collected
// across pages until limit items were produced or the listing is exhausted;
// with limit == 0 only the first page's items are returned. Stream is lazy
// and bounded by limit when positive. A nil query selects everything.
type Lister[T any] interface {
	List(ctx context.Context, query Querier, limit int) (*ListResult[T], error)
	Stream(ctx context.Context, query Querier, limit int) iter.Seq2[T, error]
	Export(ctx context.Context, opts *ExportOptions) (*ExportJob, error)
}

// ProductsClient manages products and their prices.
type ProductsClient interface {
	Lister[Product]
	Query() ProductsQuery
	Get(ctx context.Context, id string) (*Product, error)
	Create(ctx context.Context, req *ProductCreateRequest) (*Product, error)
	Update(ctx context.Context, id string, req *ProductUpdateRequest) (*Product, error)
	Archive(ctx context.Context, id string) (*Product, error)
	CreatePrice(ctx context.Context, productID string, req *ProductPriceCreateRequest) (*ProductPrice, error)
	ListPrices(ctx context.Context, productID string, query Querier, limit int) (*ListResult[ProductPrice], error)
	ExportPrices(ctx context.Context, productID string, opts *ExportOptions) (*ExportJob, error)
}

// SubscriptionsClient manages subscriptions.
type SubscriptionsClient interface {
	Lister[Subscription]
	Query() SubscriptionsQuery
	Get(ctx context.Context, id string) (*Subscription, error)
	Update(ctx context.Context, id string, req *SubscriptionUpdateRequest) (*Subscription, error)
	Revoke(ctx context.Context, id string) (*Subscription, error)
}

// CustomersClient manages customers.
type CustomersClient interface {
	Lister[Customer]
	Query() CustomersQuery
	Get(ctx context.Context, id string) (*Customer, error)
	Create(ctx context.Context, req *CustomerCreateRequest) (*Customer, error)
	Delete(ctx context.Context, id string) error
}

// OrdersClient reads orders.
type OrdersClient interface {
	Lister[Order]
	Query() QueryBuilder
	Get(ctx context.Context, id string) (*Order, error)
}

// ExportsClient reads and awaits export jobs by id.
type ExportsClient interface {
	Get(ctx context.Context, id string) (*ExportJob, error)
	Await(ctx context.Context, id string, opts PollOptions) (*ExportJob, error)
}
