//go:build integration

package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

func TestProducts_CreateListArchive(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := config.NewClient(t)
	ctx := context.Background()

	monthly := polar.RecurringIntervalMonth
	name := GenerateTestName("integration-product")

	product, err := client.Products().Create(ctx, &polar.ProductCreateRequest{
		Name:              name,
		RecurringInterval: &monthly,
		Prices: []polar.ProductPriceCreateRequest{
			{Type: polar.PriceTypeRecurring, AmountType: polar.PriceAmountFixed, Amount: 1500, Currency: "usd"},
		},
	})
	require.NoError(t, err)

	defer func() {
		_, _ = client.Products().Archive(ctx, product.ID)
	}()

	found := false
	query := client.Products().Query().WithField(polar.FieldIsArchived, false).WithPageSize(20)

	for p, err := range client.Products().Stream(ctx, query, 500) {
		require.NoError(t, err)

		if p.ID == product.ID {
			found = true
			break
		}
	}

	assert.True(t, found, "created product should be listed")

	archived, err := client.Products().Archive(ctx, product.ID)
	require.NoError(t, err)
	assert.True(t, archived.IsArchived)
}

func TestOrders_ListFiltered(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := config.NewClient(t)

	since := time.Now().AddDate(0, -1, 0)
	result, err := client.Orders().List(context.Background(),
		client.Orders().Query().WithRange(polar.FieldCreatedAt, since, nil).WithSort(polar.FieldCreatedAt, false).WithPageSize(5),
		12)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(result.Items), 12)

	for i := 1; i < len(result.Items); i++ {
		assert.False(t, result.Items[i].CreatedAt.After(result.Items[i-1].CreatedAt), "orders should be newest first")
	}
}

func TestCustomers_Export(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)

	client := config.NewClient(t)

	job, err := client.Customers().Export(context.Background(), &polar.ExportOptions{Format: polar.ExportFormatJSON})
	require.NoError(t, err)
	require.True(t, job.IsTerminal())

	if job.Status == polar.ExportStatusReady {
		assert.NotNil(t, job.ExportURL)
		assert.NotNil(t, job.RecordCount)
	}
}

func TestCLI_ProductsList(t *testing.T) {
	config := LoadTestConfig()
	config.SkipIfMissingConfig(t)
	config.SkipIfMissingBinary(t)

	runner := NewCommandRunner(config, t)

	stdout, stderr, err := runner.Run("products", "list", "--limit", "5", "-o", "json")
	require.NoError(t, err, stderr)

	var result polar.ListResult[polar.Product]
	require.NoError(t, json.Unmarshal([]byte(stdout), &result))
	assert.LessOrEqual(t, len(result.Items), 5)
}
