package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	elbtypes "github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2/types"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func (a *Adapter) listLoadBalancers(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.elbClient(region)
	paginator := elasticloadbalancingv2.NewDescribeLoadBalancersPaginator(client,
		&elasticloadbalancingv2.DescribeLoadBalancersInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, lb := range page.LoadBalancers {
			resource, err := a.mapLoadBalancer(lb, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapLoadBalancer(lb elbtypes.LoadBalancer, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(lb.LoadBalancerArn)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "load balancer without ARN",
		}
	}

	var refs []string
	refs = appendRef(refs, aws.ToString(lb.VpcId))
	for _, az := range lb.AvailabilityZones {
		refs = appendRef(refs, aws.ToString(az.SubnetId))
	}
	for _, sg := range lb.SecurityGroups {
		refs = appendRef(refs, sg)
	}

	properties := map[string]string{
		"type":   string(lb.Type),
		"scheme": string(lb.Scheme),
	}
	if lb.State != nil {
		properties["state"] = string(lb.State.Code)
	}

	return types.Resource{
		ID:             id,
		Name:           aws.ToString(lb.LoadBalancerName),
		Type:           types.TypeLoadBalancer,
		Provider:       types.ProviderAWS,
		Region:         region,
		Scope:          a.accountID,
		Properties:     properties,
		DependencyRefs: refs,
	}, nil
}

func (a *Adapter) listTargetGroups(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.elbClient(region)
	paginator := elasticloadbalancingv2.NewDescribeTargetGroupsPaginator(client,
		&elasticloadbalancingv2.DescribeTargetGroupsInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, tg := range page.TargetGroups {
			resource, err := a.mapTargetGroup(tg, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapTargetGroup(tg elbtypes.TargetGroup, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(tg.TargetGroupArn)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "target group without ARN",
		}
	}

	var refs []string
	refs = appendRef(refs, aws.ToString(tg.VpcId))
	for _, arn := range tg.LoadBalancerArns {
		refs = appendRef(refs, arn)
	}

	return types.Resource{
		ID:       id,
		Name:     aws.ToString(tg.TargetGroupName),
		Type:     types.TypeTargetGroup,
		Provider: types.ProviderAWS,
		Region:   region,
		Scope:    a.accountID,
		Properties: map[string]string{
			"protocol": string(tg.Protocol),
		},
		DependencyRefs: refs,
	}, nil
}
