// Package gcp maps Google Cloud resources into the canonical model using
// the REST discovery clients.
package gcp

import (
	"context"
	"fmt"
	"os"
	"strings"

	compute "google.golang.org/api/compute/v1"
	storage "google.golang.org/api/storage/v1"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

func init() {
	providers.Register(types.ProviderGCP, NewAdapterFactory)
}

// NewAdapterFactory creates GCP adapters for the provider registry.
// Config.Account carries the project ID.
func NewAdapterFactory(ctx context.Context, cfg providers.Config) (providers.Adapter, error) {
	return NewAdapter(ctx, cfg.Account)
}

var defaultRegions = []string{"us-central1", "europe-west1"}

// Adapter discovers compute and storage resources in one project.
// Resource IDs are the API self links so cross resource references
// resolve without translation.
type Adapter struct {
	projectID string
	compute   *compute.Service
	storage   *storage.Service
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics
}

// NewAdapter builds the discovery clients using application default
// credentials.
func NewAdapter(ctx context.Context, projectID string) (*Adapter, error) {
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, fmt.Errorf("gcp project ID is required")
	}

	computeService, err := compute.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create compute service: %w", err)
	}
	storageService, err := storage.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Adapter{
		projectID: projectID,
		compute:   computeService,
		storage:   storageService,
		logger:    telemetry.NewLogger("gcp"),
		metrics:   metrics,
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return types.ProviderGCP
}

// Regions returns the default regions scanned when the scope names none.
func (a *Adapter) Regions() []string {
	return defaultRegions
}

// Authenticate verifies credentials by fetching project metadata.
func (a *Adapter) Authenticate(ctx context.Context) error {
	_, err := a.compute.Projects.Get(a.projectID).Context(ctx).Do()
	if err != nil {
		classified := classify(err)
		if providers.IsRateLimit(classified) || providers.IsTransient(classified) {
			return classified
		}
		if providers.IsAuth(classified) {
			return classified
		}
		return &providers.AuthError{Provider: types.ProviderGCP, Err: err}
	}
	return nil
}

// ListResources pages through instances, disks, networks, subnetworks,
// and buckets. Global resources (networks, buckets) are reported once
// under the region being scanned.
func (a *Adapter) ListResources(ctx context.Context, scope providers.ListScope) ([]types.Resource, error) {
	region := scope.Region
	if region == "" {
		region = defaultRegions[0]
	}

	var resources []types.Resource

	instances, err := a.listInstances(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	resources = append(resources, instances...)

	disks, err := a.listDisks(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	resources = append(resources, disks...)

	subnets, err := a.listSubnetworks(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	resources = append(resources, subnets...)

	networks, err := a.listNetworks(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	resources = append(resources, networks...)

	buckets, err := a.listBuckets(ctx, region)
	if err != nil {
		return nil, classify(err)
	}
	resources = append(resources, buckets...)

	return resources, nil
}

func (a *Adapter) listInstances(ctx context.Context, region string) ([]types.Resource, error) {
	var resources []types.Resource
	call := a.compute.Instances.AggregatedList(a.projectID)
	err := call.Pages(ctx, func(page *compute.InstanceAggregatedList) error {
		for zone, scoped := range page.Items {
			if !zoneInRegion(zone, region) {
				continue
			}
			for _, instance := range scoped.Instances {
				resource, mapErr := a.mapInstance(instance, region)
				if mapErr != nil {
					a.skip(ctx, mapErr)
					continue
				}
				resources = append(resources, resource)
			}
		}
		return nil
	})
	return resources, err
}

func (a *Adapter) listDisks(ctx context.Context, region string) ([]types.Resource, error) {
	var resources []types.Resource
	call := a.compute.Disks.AggregatedList(a.projectID)
	err := call.Pages(ctx, func(page *compute.DiskAggregatedList) error {
		for zone, scoped := range page.Items {
			if !zoneInRegion(zone, region) {
				continue
			}
			for _, disk := range scoped.Disks {
				resource, mapErr := a.mapDisk(disk, region)
				if mapErr != nil {
					a.skip(ctx, mapErr)
					continue
				}
				resources = append(resources, resource)
			}
		}
		return nil
	})
	return resources, err
}

func (a *Adapter) listSubnetworks(ctx context.Context, region string) ([]types.Resource, error) {
	var resources []types.Resource
	call := a.compute.Subnetworks.List(a.projectID, region)
	err := call.Pages(ctx, func(page *compute.SubnetworkList) error {
		for _, subnet := range page.Items {
			resource, mapErr := a.mapSubnetwork(subnet, region)
			if mapErr != nil {
				a.skip(ctx, mapErr)
				continue
			}
			resources = append(resources, resource)
		}
		return nil
	})
	return resources, err
}

func (a *Adapter) listNetworks(ctx context.Context, region string) ([]types.Resource, error) {
	var resources []types.Resource
	call := a.compute.Networks.List(a.projectID)
	err := call.Pages(ctx, func(page *compute.NetworkList) error {
		for _, network := range page.Items {
			resource, mapErr := a.mapNetwork(network, region)
			if mapErr != nil {
				a.skip(ctx, mapErr)
				continue
			}
			resources = append(resources, resource)
		}
		return nil
	})
	return resources, err
}

func (a *Adapter) listBuckets(ctx context.Context, region string) ([]types.Resource, error) {
	var resources []types.Resource
	call := a.storage.Buckets.List(a.projectID)
	err := call.Pages(ctx, func(page *storage.Buckets) error {
		for _, bucket := range page.Items {
			resource, mapErr := a.mapBucket(bucket, region)
			if mapErr != nil {
				a.skip(ctx, mapErr)
				continue
			}
			resources = append(resources, resource)
		}
		return nil
	})
	return resources, err
}

func (a *Adapter) skip(ctx context.Context, err *providers.MappingError) {
	a.logger.LogSkippedRecord(ctx, types.ProviderGCP, err.RawID, err)
	a.metrics.RecordSkipped(ctx, types.ProviderGCP)
}

// zoneInRegion reports whether an aggregated list scope key such as
// "zones/us-central1-a" belongs to the region being scanned.
func zoneInRegion(scopeKey, region string) bool {
	zone := strings.TrimPrefix(scopeKey, "zones/")
	return strings.HasPrefix(zone, region+"-")
}
