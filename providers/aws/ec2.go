package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func (a *Adapter) listInstances(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.ec2Client(region)
	paginator := ec2.NewDescribeInstancesPaginator(client, &ec2.DescribeInstancesInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, reservation := range page.Reservations {
			for _, instance := range reservation.Instances {
				resource, err := a.mapInstance(instance, region)
				if err != nil {
					a.skip(ctx, err)
					continue
				}
				resources = append(resources, resource)
			}
		}
	}
	return resources, nil
}

func (a *Adapter) mapInstance(instance ec2types.Instance, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(instance.InstanceId)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "instance without InstanceId",
		}
	}

	tags := ec2TagMap(instance.Tags)

	var refs []string
	refs = appendRef(refs, aws.ToString(instance.SubnetId))
	refs = appendRef(refs, aws.ToString(instance.VpcId))
	for _, sg := range instance.SecurityGroups {
		refs = appendRef(refs, aws.ToString(sg.GroupId))
	}
	for _, mapping := range instance.BlockDeviceMappings {
		if mapping.Ebs != nil {
			refs = appendRef(refs, aws.ToString(mapping.Ebs.VolumeId))
		}
	}
	for _, eni := range instance.NetworkInterfaces {
		refs = appendRef(refs, aws.ToString(eni.NetworkInterfaceId))
	}

	properties := map[string]string{
		"instance_type": string(instance.InstanceType),
	}
	if instance.State != nil {
		properties["state"] = string(instance.State.Name)
	}
	if instance.Placement != nil {
		properties["availability_zone"] = aws.ToString(instance.Placement.AvailabilityZone)
	}
	if instance.PrivateIpAddress != nil {
		properties["private_ip"] = aws.ToString(instance.PrivateIpAddress)
	}

	return types.Resource{
		ID:             id,
		Name:           nameFromTags(tags, id),
		Type:           types.TypeVirtualMachine,
		Provider:       types.ProviderAWS,
		Region:         region,
		Scope:          a.accountID,
		Properties:     properties,
		Tags:           tags,
		DependencyRefs: refs,
	}, nil
}

func (a *Adapter) listVolumes(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.ec2Client(region)
	paginator := ec2.NewDescribeVolumesPaginator(client, &ec2.DescribeVolumesInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, volume := range page.Volumes {
			resource, err := a.mapVolume(volume, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapVolume(volume ec2types.Volume, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(volume.VolumeId)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "volume without VolumeId",
		}
	}

	tags := ec2TagMap(volume.Tags)
	properties := map[string]string{
		"state":       string(volume.State),
		"volume_type": string(volume.VolumeType),
	}
	if volume.Size != nil {
		properties["size_gb"] = fmt.Sprintf("%d", aws.ToInt32(volume.Size))
	}

	return types.Resource{
		ID:         id,
		Name:       nameFromTags(tags, id),
		Type:       types.TypeDisk,
		Provider:   types.ProviderAWS,
		Region:     region,
		Scope:      a.accountID,
		Properties: properties,
		Tags:       tags,
	}, nil
}

func (a *Adapter) listVPCs(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.ec2Client(region)
	paginator := ec2.NewDescribeVpcsPaginator(client, &ec2.DescribeVpcsInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, vpc := range page.Vpcs {
			resource, err := a.mapVPC(vpc, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapVPC(vpc ec2types.Vpc, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(vpc.VpcId)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "VPC without VpcId",
		}
	}

	tags := ec2TagMap(vpc.Tags)
	return types.Resource{
		ID:       id,
		Name:     nameFromTags(tags, id),
		Type:     types.TypeVirtualNetwork,
		Provider: types.ProviderAWS,
		Region:   region,
		Scope:    a.accountID,
		Properties: map[string]string{
			"cidr_block": aws.ToString(vpc.CidrBlock),
			"state":      string(vpc.State),
		},
		Tags: tags,
	}, nil
}

func (a *Adapter) listSubnets(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.ec2Client(region)
	paginator := ec2.NewDescribeSubnetsPaginator(client, &ec2.DescribeSubnetsInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, subnet := range page.Subnets {
			resource, err := a.mapSubnet(subnet, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapSubnet(subnet ec2types.Subnet, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(subnet.SubnetId)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "subnet without SubnetId",
		}
	}

	tags := ec2TagMap(subnet.Tags)
	return types.Resource{
		ID:       id,
		Name:     nameFromTags(tags, id),
		Type:     types.TypeSubnet,
		Provider: types.ProviderAWS,
		Region:   region,
		Scope:    a.accountID,
		Properties: map[string]string{
			"cidr_block":        aws.ToString(subnet.CidrBlock),
			"availability_zone": aws.ToString(subnet.AvailabilityZone),
		},
		Tags:           tags,
		DependencyRefs: appendRef(nil, aws.ToString(subnet.VpcId)),
	}, nil
}

func (a *Adapter) listSecurityGroups(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.ec2Client(region)
	paginator := ec2.NewDescribeSecurityGroupsPaginator(client, &ec2.DescribeSecurityGroupsInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, group := range page.SecurityGroups {
			resource, err := a.mapSecurityGroup(group, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapSecurityGroup(group ec2types.SecurityGroup, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(group.GroupId)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "security group without GroupId",
		}
	}

	tags := ec2TagMap(group.Tags)
	name := aws.ToString(group.GroupName)
	if name == "" {
		name = nameFromTags(tags, id)
	}

	return types.Resource{
		ID:             id,
		Name:           name,
		Type:           types.TypeSecurityGroup,
		Provider:       types.ProviderAWS,
		Region:         region,
		Scope:          a.accountID,
		Tags:           tags,
		DependencyRefs: appendRef(nil, aws.ToString(group.VpcId)),
	}, nil
}

func ec2TagMap(tags []ec2types.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return out
}

func nameFromTags(tags map[string]string, fallback string) string {
	if name, ok := tags["Name"]; ok && name != "" {
		return name
	}
	return fallback
}

// appendRef adds a dependency reference, dropping empty IDs so mappers
// never emit blank references.
func appendRef(refs []string, id string) []string {
	if id == "" {
		return refs
	}
	return append(refs, id)
}
