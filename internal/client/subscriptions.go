package client

import (
	"context"
	"net/http"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

const subscriptionsPath = "/v1/subscriptions"

// SubscriptionsClient implements polar.SubscriptionsClient.
type SubscriptionsClient struct {
	*ResourceClient[polar.Subscription]
}

func newSubscriptionsClient(deps *resourceDeps) *SubscriptionsClient {
	return &SubscriptionsClient{ResourceClient: newResourceClient[polar.Subscription](deps, subscriptionsPath)}
}

// Query returns an empty subscriptions query.
func (c *SubscriptionsClient) Query() polar.SubscriptionsQuery {
	return polar.NewSubscriptionsQuery()
}

// Get implements polar.SubscriptionsClient.Get.
func (c *SubscriptionsClient) Get(ctx context.Context, id string) (*polar.Subscription, error) {
	path, err := resourcePath(subscriptionsPath, id)
	if err != nil {
		return nil, err
	}

	return getResource[polar.Subscription](ctx, c.deps, path, "subscription")
}

// Update implements polar.SubscriptionsClient.Update.
func (c *SubscriptionsClient) Update(ctx context.Context, id string, req *polar.SubscriptionUpdateRequest) (*polar.Subscription, error) {
	path, err := resourcePath(subscriptionsPath, id)
	if err != nil {
		return nil, err
	}

	if req == nil || (req.CancelAtPeriodEnd == nil && req.ProductID == nil) {
		return nil, &polar.InvalidArgumentError{Field: "subscription", Value: req, Reason: "nothing to update"}
	}

	return sendResource[polar.Subscription](ctx, c.deps, http.MethodPatch, path, req, "subscription")
}

// Revoke implements polar.SubscriptionsClient.Revoke. The subscription ends
// immediately instead of at the end of the period.
func (c *SubscriptionsClient) Revoke(ctx context.Context, id string) (*polar.Subscription, error) {
	path, err := resourcePath(subscriptionsPath, id)
	if err != nil {
		return nil, err
	}

	return sendResource[polar.Subscription](ctx, c.deps, http.MethodDelete, path, nil, "subscription")
}
