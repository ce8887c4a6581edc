// Package azure maps Azure Resource Manager resources into the canonical
// model via the generic resource listing API.
package azure

import (
	"context"
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armresources"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

func init() {
	providers.Register(types.ProviderAzure, NewAdapterFactory)
}

// NewAdapterFactory creates Azure adapters for the provider registry.
// Config.Account carries the subscription ID.
func NewAdapterFactory(ctx context.Context, cfg providers.Config) (providers.Adapter, error) {
	return NewAdapter(cfg.Account)
}

// Adapter lists every resource in one subscription through the ARM
// generic resources endpoint and normalizes them by resource type.
type Adapter struct {
	subscriptionID string
	client         *armresources.Client
	logger         *telemetry.Logger
	metrics        *telemetry.Metrics
}

// NewAdapter builds the ARM client using the default credential chain
// (environment, workload identity, managed identity, CLI).
func NewAdapter(subscriptionID string) (*Adapter, error) {
	if subscriptionID == "" {
		subscriptionID = os.Getenv("AZURE_SUBSCRIPTION_ID")
	}
	if subscriptionID == "" {
		return nil, fmt.Errorf("azure subscription ID is required")
	}

	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build azure credential: %w", err)
	}

	client, err := armresources.NewClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create azure resources client: %w", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Adapter{
		subscriptionID: subscriptionID,
		client:         client,
		logger:         telemetry.NewLogger("azure"),
		metrics:        metrics,
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return types.ProviderAzure
}

// Regions returns no static region list. ARM listing is subscription
// wide and every resource carries its own location.
func (a *Adapter) Regions() []string {
	return nil
}

// Authenticate issues a minimal listing call so credential problems
// surface before discovery fans out.
func (a *Adapter) Authenticate(ctx context.Context) error {
	pager := a.client.NewListPager(&armresources.ClientListOptions{
		Top: toPtr(int32(1)),
	})
	if _, err := pager.NextPage(ctx); err != nil {
		classified := classify(err)
		if providers.IsRateLimit(classified) || providers.IsTransient(classified) {
			return classified
		}
		if providers.IsAuth(classified) {
			return classified
		}
		return &providers.AuthError{Provider: types.ProviderAzure, Err: err}
	}
	return nil
}

// ListResources pages through the subscription, or a single resource
// group when the scope names one. Pages are fetched strictly in order.
func (a *Adapter) ListResources(ctx context.Context, scope providers.ListScope) ([]types.Resource, error) {
	var resources []types.Resource

	next := a.pageFunc(scope)
	for {
		page, done, err := next(ctx)
		if err != nil {
			return nil, classify(err)
		}
		for _, generic := range page {
			resource, mapErr := a.mapResource(generic, scope.Region)
			if mapErr != nil {
				a.logger.LogSkippedRecord(ctx, types.ProviderAzure, mapErr.RawID, mapErr)
				a.metrics.RecordSkipped(ctx, types.ProviderAzure)
				continue
			}
			if scope.Region != "" && resource.Region != scope.Region {
				continue
			}
			resources = append(resources, resource)
		}
		if done {
			return resources, nil
		}
	}
}

// pageFunc hides the two pager shapes behind one page iterator.
func (a *Adapter) pageFunc(scope providers.ListScope) func(context.Context) ([]*armresources.GenericResourceExpanded, bool, error) {
	if scope.Group != "" {
		pager := a.client.NewListByResourceGroupPager(scope.Group, nil)
		return func(ctx context.Context) ([]*armresources.GenericResourceExpanded, bool, error) {
			if !pager.More() {
				return nil, true, nil
			}
			page, err := pager.NextPage(ctx)
			if err != nil {
				return nil, false, err
			}
			return page.Value, !pager.More(), nil
		}
	}

	pager := a.client.NewListPager(nil)
	return func(ctx context.Context) ([]*armresources.GenericResourceExpanded, bool, error) {
		if !pager.More() {
			return nil, true, nil
		}
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, false, err
		}
		return page.Value, !pager.More(), nil
	}
}

func toPtr[T any](v T) *T {
	return &v
}
