package client

import (
	"context"
	"fmt"

	"github.com/fivetwenty-io/polar-client/pkg/polar"
)

// ExportsClient implements polar.ExportsClient.
type ExportsClient struct {
	deps *resourceDeps
}

func newExportsClient(deps *resourceDeps) *ExportsClient {
	return &ExportsClient{deps: deps}
}

// Get implements polar.ExportsClient.Get.
func (c *ExportsClient) Get(ctx context.Context, id string) (*polar.ExportJob, error) {
	job, err := c.deps.exports.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("getting export job: %w", err)
	}

	return job, nil
}

// Await implements polar.ExportsClient.Await. It resumes waiting on a job
// submitted earlier, for example by another process. Zero fields of opts fall
// back to the client's export defaults.
func (c *ExportsClient) Await(ctx context.Context, id string, opts polar.PollOptions) (*polar.ExportJob, error) {
	job, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	job, err = c.deps.exports.AwaitCompletion(ctx, job, mergePollOptions(c.deps.pollDefaults, opts))
	if err != nil {
		return nil, fmt.Errorf("awaiting export job %s: %w", id, err)
	}

	return job, nil
}
