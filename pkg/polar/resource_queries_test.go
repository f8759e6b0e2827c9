package polar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

func TestProductsQuery_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query polar.ProductsQuery
		want  string
	}{
		{name: "empty", query: polar.NewProductsQuery(), want: ""},
		{name: "active", query: polar.NewProductsQuery().WithActive(true), want: "is_archived=false"},
		{name: "inactive", query: polar.NewProductsQuery().WithActive(false), want: "is_archived=true"},
		{name: "archived flag", query: polar.NewProductsQuery().WithIsArchived(true), want: "is_archived=true"},
		{name: "recurring", query: polar.NewProductsQuery().WithIsRecurring(false), want: "is_recurring=false"},
		{name: "type", query: polar.NewProductsQuery().WithType(polar.ProductTypeOneTime), want: "type=one_time"},
		{name: "search", query: polar.NewProductsQuery().WithSearch("pro plan"), want: "query=pro+plan"},
		{name: "ids", query: polar.NewProductsQuery().WithIDs("p1", "p2"), want: "id=p1&id=p2"},
		{
			name: "helpers and generic methods combine",
			query: polar.NewProductsQuery().
				WithActive(true).
				WithType(polar.ProductTypeSubscription).
				WithOrganizationID("org-1").
				WithRange(polar.FieldAmount, 100, nil).
				WithSort(polar.FieldCreatedAt, false).
				WithPageSize(10),
			want: "is_archived=false&type=subscription&organization_id=org-1&amount%5Bgte%5D=100&sorting=-created_at&limit=10",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Encode())
		})
	}
}

func TestProductsQuery_Immutable(t *testing.T) {
	t.Parallel()

	base := polar.NewProductsQuery().WithActive(true)
	oneTime := base.WithType(polar.ProductTypeOneTime)

	baseQuery, err := base.Build()
	require.NoError(t, err)
	assert.Equal(t, "is_archived=false", baseQuery.Encode())

	builderQuery, err := oneTime.Builder().Build()
	require.NoError(t, err)
	assert.Equal(t, "is_archived=false&type=one_time", builderQuery.Encode())
}

func TestSubscriptionsQuery_Encode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		query polar.SubscriptionsQuery
		want  string
	}{
		{name: "active", query: polar.NewSubscriptionsQuery().WithActive(true), want: "active=true"},
		{
			name:  "statuses",
			query: polar.NewSubscriptionsQuery().WithStatus(polar.SubscriptionStatusActive, polar.SubscriptionStatusTrialing),
			want:  "status=active&status=trialing",
		},
		{
			name: "customer and product",
			query: polar.NewSubscriptionsQuery().
				WithCustomerID("cus-1").
				WithProductID("prod-1").
				WithOrganizationID("org-1"),
			want: "customer_id=cus-1&product_id=prod-1&organization_id=org-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Encode())
		})
	}
}

func TestSubscriptionsQuery_WithStatusRequiresValue(t *testing.T) {
	t.Parallel()

	q := polar.NewSubscriptionsQuery().WithStatus()
	require.ErrorIs(t, q.Err(), polar.ErrInvalidArgument)

	// The first error sticks through later calls.
	_, err := q.WithActive(true).Build()
	require.ErrorIs(t, err, polar.ErrInvalidArgument)
}

func TestCustomersQuery_Encode(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		query polar.CustomersQuery
		want  string
	}{
		{name: "email", query: polar.NewCustomersQuery().WithEmail("jane@example.com"), want: "email=jane%40example.com"},
		{name: "search", query: polar.NewCustomersQuery().WithSearch("jane"), want: "query=jane"},
		{
			name:  "created between",
			query: polar.NewCustomersQuery().WithCreatedBetween(from, to),
			want:  "created_at%5Bgte%5D=2025-01-01T00%3A00%3A00Z&created_at%5Blte%5D=2025-02-01T00%3A00%3A00Z",
		},
		{
			name:  "created after",
			query: polar.NewCustomersQuery().WithCreatedBetween(from, time.Time{}),
			want:  "created_at%5Bgte%5D=2025-01-01T00%3A00%3A00Z",
		},
		{
			name:  "created before",
			query: polar.NewCustomersQuery().WithCreatedBetween(time.Time{}, to),
			want:  "created_at%5Blte%5D=2025-02-01T00%3A00%3A00Z",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q, err := tt.query.Build()
			require.NoError(t, err)
			assert.Equal(t, tt.want, q.Encode())
		})
	}
}

func TestCustomersQuery_WithCreatedBetweenRejects(t *testing.T) {
	t.Parallel()

	from := time.Date(2025, time.February, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		from, to time.Time
	}{
		{name: "no bounds"},
		{name: "inverted", from: from, to: from.Add(-time.Hour)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := polar.NewCustomersQuery().WithCreatedBetween(tt.from, tt.to).Build()
			require.ErrorIs(t, err, polar.ErrInvalidArgument)
		})
	}
}

func TestCompileQuery(t *testing.T) {
	t.Parallel()

	q, err := polar.CompileQuery(nil)
	require.NoError(t, err)
	assert.Empty(t, q.Encode())

	q, err = polar.CompileQuery(polar.NewProductsQuery().WithActive(true))
	require.NoError(t, err)
	assert.Equal(t, "is_archived=false", q.Encode())

	_, err = polar.CompileQuery(polar.NewQuery().WithPageSize(0))
	require.ErrorIs(t, err, polar.ErrInvalidArgument)
}
