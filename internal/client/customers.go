package client

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

const customersPath = "/v1/customers"

// CustomersClient implements polar.CustomersClient.
type CustomersClient struct {
	*ResourceClient[polar.Customer]
}

func newCustomersClient(deps *resourceDeps) *CustomersClient {
	return &CustomersClient{ResourceClient: newResourceClient[polar.Customer](deps, customersPath)}
}

// Query returns an empty customers query.
func (c *CustomersClient) Query() polar.CustomersQuery {
	return polar.NewCustomersQuery()
}

// Get implements polar.CustomersClient.Get.
func (c *CustomersClient) Get(ctx context.Context, id string) (*polar.Customer, error) {
	path, err := resourcePath(customersPath, id)
	if err != nil {
		return nil, err
	}

	return getResource[polar.Customer](ctx, c.deps, path, "customer")
}

// Create implements polar.CustomersClient.Create.
func (c *CustomersClient) Create(ctx context.Context, req *polar.CustomerCreateRequest) (*polar.Customer, error) {
	if req == nil || !strings.Contains(req.Email, "@") {
		return nil, &polar.InvalidArgumentError{Field: "email", Value: req, Reason: "a valid email is required"}
	}

	return sendResource[polar.Customer](ctx, c.deps, http.MethodPost, customersPath, req, "customer")
}

// Delete implements polar.CustomersClient.Delete.
func (c *CustomersClient) Delete(ctx context.Context, id string) error {
	path, err := resourcePath(customersPath, id)
	if err != nil {
		return err
	}

	_, err = c.deps.transport.Request(ctx, http.MethodDelete, path, nil, nil)
	if err != nil {
		return fmt.Errorf("deleting customer: %w", err)
	}

	return nil
}
