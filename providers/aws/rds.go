package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	rdstypes "github.com/aws/aws-sdk-go-v2/service/rds/types"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func (a *Adapter) listDatabases(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.rdsClient(region)
	paginator := rds.NewDescribeDBInstancesPaginator(client, &rds.DescribeDBInstancesInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, db := range page.DBInstances {
			resource, err := a.mapDatabase(db, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapDatabase(db rdstypes.DBInstance, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(db.DBInstanceIdentifier)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "DB instance without identifier",
		}
	}

	var refs []string
	if db.DBSubnetGroup != nil {
		refs = appendRef(refs, aws.ToString(db.DBSubnetGroup.VpcId))
		for _, subnet := range db.DBSubnetGroup.Subnets {
			refs = appendRef(refs, aws.ToString(subnet.SubnetIdentifier))
		}
	}
	for _, sg := range db.VpcSecurityGroups {
		refs = appendRef(refs, aws.ToString(sg.VpcSecurityGroupId))
	}

	tags := rdsTagMap(db.TagList)
	return types.Resource{
		ID:       id,
		Name:     id,
		Type:     types.TypeDatabase,
		Provider: types.ProviderAWS,
		Region:   region,
		Scope:    a.accountID,
		Properties: map[string]string{
			"engine": aws.ToString(db.Engine),
			"status": aws.ToString(db.DBInstanceStatus),
			"class":  aws.ToString(db.DBInstanceClass),
		},
		Tags:           tags,
		DependencyRefs: refs,
	}, nil
}

func rdsTagMap(tags []rdstypes.Tag) map[string]string {
	if len(tags) == 0 {
		return nil
	}
	out := make(map[string]string, len(tags))
	for _, tag := range tags {
		out[aws.ToString(tag.Key)] = aws.ToString(tag.Value)
	}
	return out
}
