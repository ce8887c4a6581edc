package gcp

import (
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	compute "google.golang.org/api/compute/v1"
	"google.golang.org/api/googleapi"
	storage "google.golang.org/api/storage/v1"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func testAdapter() *Adapter {
	return &Adapter{projectID: "acme-prod"}
}

func TestMapInstance(t *testing.T) {
	adapter := testAdapter()
	instance := &compute.Instance{
		SelfLink:    "https://compute.googleapis.com/compute/v1/projects/acme-prod/zones/us-central1-a/instances/web-1",
		Name:        "web-1",
		MachineType: "e2-medium",
		Status:      "RUNNING",
		Zone:        "us-central1-a",
		Labels:      map[string]string{"env": "prod"},
		NetworkInterfaces: []*compute.NetworkInterface{
			{
				Network:    "https://compute.googleapis.com/compute/v1/projects/acme-prod/global/networks/default",
				Subnetwork: "https://compute.googleapis.com/compute/v1/projects/acme-prod/regions/us-central1/subnetworks/default",
			},
		},
		Disks: []*compute.AttachedDisk{
			{Source: "https://compute.googleapis.com/compute/v1/projects/acme-prod/zones/us-central1-a/disks/web-1"},
		},
	}

	resource, mapErr := adapter.mapInstance(instance, "us-central1")
	require.Nil(t, mapErr)

	assert.Equal(t, instance.SelfLink, resource.ID)
	assert.Equal(t, types.TypeVirtualMachine, resource.Type)
	assert.Equal(t, types.ProviderGCP, resource.Provider)
	assert.Equal(t, "acme-prod", resource.Scope)
	assert.Equal(t, "prod", resource.Tags["env"])
	assert.Len(t, resource.DependencyRefs, 3)
}

func TestMapInstanceMissingSelfLink(t *testing.T) {
	adapter := testAdapter()
	_, mapErr := adapter.mapInstance(&compute.Instance{Name: "ghost"}, "us-central1")
	require.NotNil(t, mapErr)
	_, mapErr = adapter.mapInstance(nil, "us-central1")
	require.NotNil(t, mapErr)
}

func TestMapSubnetworkReferencesNetwork(t *testing.T) {
	adapter := testAdapter()
	subnet := &compute.Subnetwork{
		SelfLink:    "https://compute.googleapis.com/compute/v1/projects/acme-prod/regions/us-central1/subnetworks/default",
		Name:        "default",
		Network:     "https://compute.googleapis.com/compute/v1/projects/acme-prod/global/networks/default",
		IpCidrRange: "10.128.0.0/20",
	}

	resource, mapErr := adapter.mapSubnetwork(subnet, "us-central1")
	require.Nil(t, mapErr)

	assert.Equal(t, types.TypeSubnet, resource.Type)
	assert.Equal(t, []string{subnet.Network}, resource.DependencyRefs)
	assert.Equal(t, "10.128.0.0/20", resource.Properties["cidr_block"])
}

func TestMapBucketUsesOwnLocation(t *testing.T) {
	adapter := testAdapter()
	bucket := &storage.Bucket{
		Name:         "acme-artifacts",
		SelfLink:     "https://www.googleapis.com/storage/v1/b/acme-artifacts",
		Location:     "EU",
		StorageClass: "STANDARD",
	}

	resource, mapErr := adapter.mapBucket(bucket, "us-central1")
	require.Nil(t, mapErr)

	assert.Equal(t, types.TypeObjectStorage, resource.Type)
	assert.Equal(t, "EU", resource.Region)
}

func TestZoneInRegion(t *testing.T) {
	assert.True(t, zoneInRegion("zones/us-central1-a", "us-central1"))
	assert.False(t, zoneInRegion("zones/us-central2-a", "us-central1"))
	assert.False(t, zoneInRegion("zones/europe-west1-b", "us-central1"))
}

func TestClassify(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "3")

	throttled := classify(&googleapi.Error{Code: http.StatusTooManyRequests, Header: header})
	assert.True(t, providers.IsRateLimit(throttled))
	assert.Equal(t, 3*time.Second, providers.RetryAfterHint(throttled))

	quotaDenied := classify(&googleapi.Error{
		Code:   http.StatusForbidden,
		Errors: []googleapi.ErrorItem{{Reason: "rateLimitExceeded"}},
	})
	assert.True(t, providers.IsRateLimit(quotaDenied), "403 with throttle reason is a rate limit")

	denied := classify(&googleapi.Error{Code: http.StatusForbidden})
	assert.True(t, providers.IsAuth(denied))

	flaky := classify(&googleapi.Error{Code: http.StatusInternalServerError})
	assert.True(t, providers.IsTransient(flaky))

	original := errors.New("nope")
	assert.Equal(t, original, classify(original))
}
