package client

import (
	"context"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

const ordersPath = "/v1/orders"

// OrdersClient implements polar.OrdersClient.
type OrdersClient struct {
	*ResourceClient[polar.Order]
}

func newOrdersClient(deps *resourceDeps) *OrdersClient {
	return &OrdersClient{ResourceClient: newResourceClient[polar.Order](deps, ordersPath)}
}

// Get implements polar.OrdersClient.Get.
func (c *OrdersClient) Get(ctx context.Context, id string) (*polar.Order, error) {
	path, err := resourcePath(ordersPath, id)
	if err != nil {
		return nil, err
	}

	return getResource[polar.Order](ctx, c.deps, path, "order")
}
