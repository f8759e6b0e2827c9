package client

import (
	"context"
	"net/http"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

const productsPath = "/v1/products"

// ProductsClient implements polar.ProductsClient.
type ProductsClient struct {
	*ResourceClient[polar.Product]
}

func newProductsClient(deps *resourceDeps) *ProductsClient {
	return &ProductsClient{ResourceClient: newResourceClient[polar.Product](deps, productsPath)}
}

// Query returns an empty products query.
func (c *ProductsClient) Query() polar.ProductsQuery {
	return polar.NewProductsQuery()
}

// Get implements polar.ProductsClient.Get.
func (c *ProductsClient) Get(ctx context.Context, id string) (*polar.Product, error) {
	path, err := resourcePath(productsPath, id)
	if err != nil {
		return nil, err
	}

	return getResource[polar.Product](ctx, c.deps, path, "product")
}

// Create implements polar.ProductsClient.Create.
func (c *ProductsClient) Create(ctx context.Context, req *polar.ProductCreateRequest) (*polar.Product, error) {
	if req == nil || req.Name == "" {
		return nil, &polar.InvalidArgumentError{Field: "name", Value: req, Reason: "product name is required"}
	}

	return sendResource[polar.Product](ctx, c.deps, http.MethodPost, productsPath, req, "product")
}

// Update implements polar.ProductsClient.Update.
func (c *ProductsClient) Update(ctx context.Context, id string, req *polar.ProductUpdateRequest) (*polar.Product, error) {
	path, err := resourcePath(productsPath, id)
	if err != nil {
		return nil, err
	}

	if req == nil {
		req = &polar.ProductUpdateRequest{}
	}

	return sendResource[polar.Product](ctx, c.deps, http.MethodPatch, path, req, "product")
}

// Archive implements polar.ProductsClient.Archive. Archived products stay
// readable but can no longer be purchased.
func (c *ProductsClient) Archive(ctx context.Context, id string) (*polar.Product, error) {
	archived := true

	return c.Update(ctx, id, &polar.ProductUpdateRequest{IsArchived: &archived})
}

// CreatePrice implements polar.ProductsClient.CreatePrice.
func (c *ProductsClient) CreatePrice(ctx context.Context, productID string, req *polar.ProductPriceCreateRequest) (*polar.ProductPrice, error) {
	path, err := resourcePath(productsPath, productID)
	if err != nil {
		return nil, err
	}

	if req == nil {
		return nil, &polar.InvalidArgumentError{Field: "price", Reason: "price request is required"}
	}

	return sendResource[polar.ProductPrice](ctx, c.deps, http.MethodPost, path+"/prices", req, "product price")
}

// ListPrices implements polar.ProductsClient.ListPrices.
func (c *ProductsClient) ListPrices(ctx context.Context, productID string, query polar.Querier, limit int) (*polar.ListResult[polar.ProductPrice], error) {
	prices, err := c.prices(productID)
	if err != nil {
		return nil, err
	}

	return prices.List(ctx, query, limit)
}

// ExportPrices implements polar.ProductsClient.ExportPrices.
func (c *ProductsClient) ExportPrices(ctx context.Context, productID string, opts *polar.ExportOptions) (*polar.ExportJob, error) {
	prices, err := c.prices(productID)
	if err != nil {
		return nil, err
	}

	return prices.Export(ctx, opts)
}

func (c *ProductsClient) prices(productID string) (*ResourceClient[polar.ProductPrice], error) {
	path, err := resourcePath(productsPath, productID)
	if err != nil {
		return nil, err
	}

	return newResourceClient[polar.ProductPrice](c.deps, path+"/prices"), nil
}
