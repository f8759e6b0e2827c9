package polar

import "time"

// ProductsQuery is a QueryBuilder with helpers for the products listing.
type ProductsQuery struct {
	b QueryBuilder
}

// NewProductsQuery returns an empty products query.
func NewProductsQuery() ProductsQuery {
	return ProductsQuery{}
}

// WithActive keeps products that are (not) archived.
func (q ProductsQuery) WithActive(active bool) ProductsQuery {
	return ProductsQuery{q.b.WithField(FieldIsArchived, !active)}
}

// WithIsArchived filters on the archived flag.
func (q ProductsQuery) WithIsArchived(archived bool) ProductsQuery {
	return ProductsQuery{q.b.WithField(FieldIsArchived, archived)}
}

// WithIsRecurring keeps subscription products (true) or one-time products (false).
func (q ProductsQuery) WithIsRecurring(recurring bool) ProductsQuery {
	return ProductsQuery{q.b.WithField(FieldIsRecurring, recurring)}
}

// WithType filters on the product type.
func (q ProductsQuery) WithType(productType ProductType) ProductsQuery {
	return ProductsQuery{q.b.WithField(FieldType, productType)}
}

// WithOrganizationID limits the listing to one organization.
func (q ProductsQuery) WithOrganizationID(id string) ProductsQuery {
	return ProductsQuery{q.b.WithField(FieldOrganizationID, id)}
}

// WithSearch matches products by name.
func (q ProductsQuery) WithSearch(text string) ProductsQuery {
	return ProductsQuery{q.b.WithField(FieldQuery, text)}
}

// WithIDs keeps the given products.
func (q ProductsQuery) WithIDs(ids ...string) ProductsQuery {
	return ProductsQuery{q.b.WithIn(FieldID, ids)}
}

func (q ProductsQuery) WithField(field string, value any) ProductsQuery {
	return ProductsQuery{q.b.WithField(field, value)}
}

func (q ProductsQuery) WithIn(field string, values any) ProductsQuery {
	return ProductsQuery{q.b.WithIn(field, values)}
}

func (q ProductsQuery) WithRange(field string, gte, lte any) ProductsQuery {
	return ProductsQuery{q.b.WithRange(field, gte, lte)}
}

func (q ProductsQuery) WithSort(field string, ascending bool) ProductsQuery {
	return ProductsQuery{q.b.WithSort(field, ascending)}
}

func (q ProductsQuery) WithPageSize(n int) ProductsQuery {
	return ProductsQuery{q.b.WithPageSize(n)}
}

// Builder returns the underlying generic builder.
func (q ProductsQuery) Builder() QueryBuilder { return q.b }

func (q ProductsQuery) Err() error { return q.b.Err() }

func (q ProductsQuery) Build() (CompiledQuery, error) { return q.b.Build() }

// SubscriptionsQuery is a QueryBuilder with helpers for the subscriptions listing.
type SubscriptionsQuery struct {
	b QueryBuilder
}

// NewSubscriptionsQuery returns an empty subscriptions query.
func NewSubscriptionsQuery() SubscriptionsQuery {
	return SubscriptionsQuery{}
}

// WithActive keeps active (true) or ended (false) subscriptions.
func (q SubscriptionsQuery) WithActive(active bool) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithField(FieldActive, active)}
}

// WithStatus keeps subscriptions in any of statuses. At least one is required.
func (q SubscriptionsQuery) WithStatus(statuses ...SubscriptionStatus) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithIn(FieldStatus, statuses)}
}

func (q SubscriptionsQuery) WithCustomerID(id string) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithField(FieldCustomerID, id)}
}

func (q SubscriptionsQuery) WithProductID(id string) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithField(FieldProductID, id)}
}

func (q SubscriptionsQuery) WithOrganizationID(id string) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithField(FieldOrganizationID, id)}
}

func (q SubscriptionsQuery) WithField(field string, value any) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithField(field, value)}
}

func (q SubscriptionsQuery) WithIn(field string, values any) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithIn(field, values)}
}

func (q SubscriptionsQuery) WithRange(field string, gte, lte any) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithRange(field, gte, lte)}
}

func (q SubscriptionsQuery) WithSort(field string, ascending bool) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithSort(field, ascending)}
}

func (q SubscriptionsQuery) WithPageSize(n int) SubscriptionsQuery {
	return SubscriptionsQuery{q.b.WithPageSize(n)}
}

// Builder returns the underlying generic builder.
func (q SubscriptionsQuery) Builder() QueryBuilder { return q.b }

func (q SubscriptionsQuery) Err() error { return q.b.Err() }

func (q SubscriptionsQuery) Build() (CompiledQuery, error) { return q.b.Build() }

// CustomersQuery is a QueryBuilder with helpers for the customers listing.
type CustomersQuery struct {
	b QueryBuilder
}

// NewCustomersQuery returns an empty customers query.
func NewCustomersQuery() CustomersQuery {
	return CustomersQuery{}
}

// WithEmail matches a customer's email exactly.
func (q CustomersQuery) WithEmail(email string) CustomersQuery {
	return CustomersQuery{q.b.WithField(FieldEmail, email)}
}

// WithSearch matches customers by name or email.
func (q CustomersQuery) WithSearch(text string) CustomersQuery {
	return CustomersQuery{q.b.WithField(FieldQuery, text)}
}

func (q CustomersQuery) WithOrganizationID(id string) CustomersQuery {
	return CustomersQuery{q.b.WithField(FieldOrganizationID, id)}
}

// WithCreatedBetween bounds the creation time. Either bound may be zero, but
// not both.
func (q CustomersQuery) WithCreatedBetween(from, to time.Time) CustomersQuery {
	var gte, lte any
	if !from.IsZero() {
		gte = from
	}

	if !to.IsZero() {
		lte = to
	}

	return CustomersQuery{q.b.WithRange(FieldCreatedAt, gte, lte)}
}

func (q CustomersQuery) WithField(field string, value any) CustomersQuery {
	return CustomersQuery{q.b.WithField(field, value)}
}

func (q CustomersQuery) WithIn(field string, values any) CustomersQuery {
	return CustomersQuery{q.b.WithIn(field, values)}
}

func (q CustomersQuery) WithRange(field string, gte, lte any) CustomersQuery {
	return CustomersQuery{q.b.WithRange(field, gte, lte)}
}

func (q CustomersQuery) WithSort(field string, ascending bool) CustomersQuery {
	return CustomersQuery{q.b.WithSort(field, ascending)}
}

func (q CustomersQuery) WithPageSize(n int) CustomersQuery {
	return CustomersQuery{q.b.WithPageSize(n)}
}

// Builder returns the underlying generic builder.
func (q CustomersQuery) Builder() QueryBuilder { return q.b }

func (q CustomersQuery) Err() error { return q.b.Err() }

func (q CustomersQuery) Build() (CompiledQuery, error) { return q.b.Build() }
