package client

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

func TestProductsClient_Get(t *testing.T) {
	t.Parallel()

	runGetTests(t, []getOperationTest{
		{
			Name:         "existing product",
			ID:           "prod-1",
			ExpectedPath: "/v1/products/prod-1",
			StatusCode:   http.StatusOK,
			Response:     productJSON(1),
		},
		{
			Name:         "not found",
			ID:           "missing",
			ExpectedPath: "/v1/products/missing",
			StatusCode:   http.StatusNotFound,
			Response:     map[string]string{"error": "ResourceNotFound", "detail": "Not found"},
			WantErr:      polar.ErrTransport,
		},
		{
			Name:    "empty id",
			ID:      "",
			WantErr: polar.ErrInvalidArgument,
		},
		{
			Name:         "malformed body",
			ID:           "prod-2",
			ExpectedPath: "/v1/products/prod-2",
			StatusCode:   http.StatusOK,
			Response:     []string{"not", "a", "product"},
			WantErr:      polar.ErrDeserialization,
		},
	}, func(c *Client) func(context.Context, string) (*polar.Product, error) {
		return c.Products().Get
	})
}

func TestProductsClient_Create(t *testing.T) {
	t.Parallel()

	t.Run("sends the product", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		api.respond(http.MethodPost, productsPath, http.StatusCreated, productJSON(7))

		client := newTestClient(t, api)

		monthly := polar.RecurringIntervalMonth
		product, err := client.Products().Create(context.Background(), &polar.ProductCreateRequest{
			Name:              "Pro",
			RecurringInterval: &monthly,
			Prices: []polar.ProductPriceCreateRequest{
				{Type: polar.PriceTypeRecurring, AmountType: polar.PriceAmountFixed, Amount: 1500, Currency: "usd"},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, "prod-7", product.ID)

		requests := api.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "Pro", requests[0].Body["name"])
		assert.Equal(t, "month", requests[0].Body["recurring_interval"])

		prices, ok := requests[0].Body["prices"].([]interface{})
		require.True(t, ok)
		require.Len(t, prices, 1)
		assert.InDelta(t, 1500, prices[0].(map[string]interface{})["price_amount"], 0)
	})

	t.Run("name is required", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		client := newTestClient(t, api)

		_, err := client.Products().Create(context.Background(), &polar.ProductCreateRequest{})
		require.ErrorIs(t, err, polar.ErrInvalidArgument)

		_, err = client.Products().Create(context.Background(), nil)
		require.ErrorIs(t, err, polar.ErrInvalidArgument)
		assert.Zero(t, api.RequestCount())
	})

	t.Run("validation error", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		api.respond(http.MethodPost, productsPath, http.StatusUnprocessableEntity, map[string]interface{}{
			"error": "RequestValidationError",
			"detail": []map[string]interface{}{
				{"loc": []interface{}{"body", "prices"}, "msg": "at least one price is required", "type": "value_error"},
			},
		})

		client := newTestClient(t, api)

		_, err := client.Products().Create(context.Background(), &polar.ProductCreateRequest{Name: "Pro"})
		require.Error(t, err)
		assert.True(t, polar.IsValidationError(err))
		assert.Contains(t, err.Error(), "creating product")

		var apiErr *polar.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Len(t, apiErr.Validation, 1)
		assert.Equal(t, "at least one price is required", apiErr.Validation[0].Msg)
	})
}

func TestProductsClient_UpdateAndArchive(t *testing.T) {
	t.Parallel()

	api := newFakeAPI(t)
	api.respond(http.MethodPatch, "/v1/products/prod-1", http.StatusOK, productJSON(1))

	client := newTestClient(t, api)

	name := "Renamed"
	_, err := client.Products().Update(context.Background(), "prod-1", &polar.ProductUpdateRequest{Name: &name})
	require.NoError(t, err)

	_, err = client.Products().Archive(context.Background(), "prod-1")
	require.NoError(t, err)

	requests := api.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, map[string]interface{}{"name": "Renamed"}, requests[0].Body)
	assert.Equal(t, map[string]interface{}{"is_archived": true}, requests[1].Body)
	assert.NotEqual(t,
		requests[0].Header.Get(polar.IdempotencyKeyHeader),
		requests[1].Header.Get(polar.IdempotencyKeyHeader))

	_, err = client.Products().Archive(context.Background(), "")
	require.ErrorIs(t, err, polar.ErrInvalidArgument)
	assert.Equal(t, 2, api.RequestCount())
}

func TestProductsClient_Prices(t *testing.T) {
	t.Parallel()

	price := func(i int) interface{} {
		return map[string]interface{}{
			"id":          "price-" + string(rune('a'+i)),
			"created_at":  "2024-01-01T00:00:00Z",
			"product_id":  "prod-1",
			"type":        "recurring",
			"amount_type": "metered_unit",
			"unit_amount": "0.125",
			"is_archived": false,
		}
	}

	t.Run("create", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		api.respond(http.MethodPost, "/v1/products/prod-1/prices", http.StatusCreated, price(0))

		client := newTestClient(t, api)

		unit := decimal.RequireFromString("0.125")
		created, err := client.Products().CreatePrice(context.Background(), "prod-1", &polar.ProductPriceCreateRequest{
			Type:       polar.PriceTypeRecurring,
			AmountType: polar.PriceAmountMeteredUnit,
			UnitAmount: &unit,
		})
		require.NoError(t, err)
		require.NotNil(t, created.UnitAmount)
		assert.True(t, unit.Equal(*created.UnitAmount))

		_, err = client.Products().CreatePrice(context.Background(), "prod-1", nil)
		require.ErrorIs(t, err, polar.ErrInvalidArgument)
		assert.Equal(t, 1, api.RequestCount())
	})

	t.Run("list", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		api.handle(http.MethodGet, "/v1/products/prod-1/prices", paged(3, price))

		client := newTestClient(t, api)

		result, err := client.Products().ListPrices(context.Background(), "prod-1", polar.NewQuery().WithPageSize(2), 10)
		require.NoError(t, err)
		require.Len(t, result.Items, 3)
		assert.Equal(t, "price-c", result.Items[2].ID)
		assert.Equal(t, 2, api.RequestCount())

		_, err = client.Products().ListPrices(context.Background(), "", polar.NewQuery(), 0)
		require.ErrorIs(t, err, polar.ErrInvalidArgument)
	})

	t.Run("export", func(t *testing.T) {
		t.Parallel()

		api := newFakeAPI(t)
		api.respond(http.MethodPost, "/v1/products/prod-1/prices/export", http.StatusAccepted, readyExport("exp-p"))

		client := newTestClient(t, api)

		job, err := client.Products().ExportPrices(context.Background(), "prod-1", &polar.ExportOptions{Format: polar.ExportFormatJSON})
		require.NoError(t, err)
		assert.Equal(t, "exp-p", job.ID)

		requests := api.Requests()
		require.Len(t, requests, 1)
		assert.Equal(t, "json", requests[0].Body["format"])
	})
}
