package gcp

import (
	"strconv"

	compute "google.golang.org/api/compute/v1"
	storage "google.golang.org/api/storage/v1"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func (a *Adapter) mapInstance(instance *compute.Instance, region string) (types.Resource, *providers.MappingError) {
	if instance == nil || instance.SelfLink == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderGCP,
			Reason:   "instance without self link",
		}
	}

	var refs []string
	for _, nic := range instance.NetworkInterfaces {
		if nic.Network != "" {
			refs = append(refs, nic.Network)
		}
		if nic.Subnetwork != "" {
			refs = append(refs, nic.Subnetwork)
		}
	}
	for _, disk := range instance.Disks {
		if disk.Source != "" {
			refs = append(refs, disk.Source)
		}
	}

	return types.Resource{
		ID:       instance.SelfLink,
		Name:     instance.Name,
		Type:     types.TypeVirtualMachine,
		Provider: types.ProviderGCP,
		Region:   region,
		Scope:    a.projectID,
		Properties: map[string]string{
			"machine_type": instance.MachineType,
			"status":       instance.Status,
			"zone":         instance.Zone,
		},
		Tags:           instance.Labels,
		DependencyRefs: refs,
	}, nil
}

func (a *Adapter) mapDisk(disk *compute.Disk, region string) (types.Resource, *providers.MappingError) {
	if disk == nil || disk.SelfLink == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderGCP,
			Reason:   "disk without self link",
		}
	}

	return types.Resource{
		ID:       disk.SelfLink,
		Name:     disk.Name,
		Type:     types.TypeDisk,
		Provider: types.ProviderGCP,
		Region:   region,
		Scope:    a.projectID,
		Properties: map[string]string{
			"size_gb": strconv.FormatInt(disk.SizeGb, 10),
			"status":  disk.Status,
		},
		Tags: disk.Labels,
	}, nil
}

func (a *Adapter) mapSubnetwork(subnet *compute.Subnetwork, region string) (types.Resource, *providers.MappingError) {
	if subnet == nil || subnet.SelfLink == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderGCP,
			Reason:   "subnetwork without self link",
		}
	}

	var refs []string
	if subnet.Network != "" {
		refs = append(refs, subnet.Network)
	}

	return types.Resource{
		ID:       subnet.SelfLink,
		Name:     subnet.Name,
		Type:     types.TypeSubnet,
		Provider: types.ProviderGCP,
		Region:   region,
		Scope:    a.projectID,
		Properties: map[string]string{
			"cidr_block": subnet.IpCidrRange,
		},
		DependencyRefs: refs,
	}, nil
}

func (a *Adapter) mapNetwork(network *compute.Network, region string) (types.Resource, *providers.MappingError) {
	if network == nil || network.SelfLink == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderGCP,
			Reason:   "network without self link",
		}
	}

	return types.Resource{
		ID:       network.SelfLink,
		Name:     network.Name,
		Type:     types.TypeVirtualNetwork,
		Provider: types.ProviderGCP,
		Region:   region,
		Scope:    a.projectID,
		Properties: map[string]string{
			"auto_create_subnetworks": strconv.FormatBool(network.AutoCreateSubnetworks),
		},
	}, nil
}

func (a *Adapter) mapBucket(bucket *storage.Bucket, region string) (types.Resource, *providers.MappingError) {
	if bucket == nil || bucket.Name == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderGCP,
			Reason:   "bucket without name",
		}
	}

	bucketRegion := region
	if bucket.Location != "" {
		bucketRegion = bucket.Location
	}

	id := bucket.SelfLink
	if id == "" {
		id = bucket.Name
	}

	return types.Resource{
		ID:       id,
		Name:     bucket.Name,
		Type:     types.TypeObjectStorage,
		Provider: types.ProviderGCP,
		Region:   bucketRegion,
		Scope:    a.projectID,
		Properties: map[string]string{
			"storage_class": bucket.StorageClass,
		},
		Tags: bucket.Labels,
	}, nil
}
