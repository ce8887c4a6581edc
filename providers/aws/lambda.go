package aws

import (
	"context"
	"strconv"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func (a *Adapter) listFunctions(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.lambdaClient(region)
	paginator := lambda.NewListFunctionsPaginator(client, &lambda.ListFunctionsInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, fn := range page.Functions {
			resource, err := a.mapFunction(fn, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapFunction(fn lambdatypes.FunctionConfiguration, region string) (types.Resource, *providers.MappingError) {
	id := aws.ToString(fn.FunctionArn)
	if id == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "function without ARN",
		}
	}

	var refs []string
	if fn.VpcConfig != nil {
		refs = appendRef(refs, aws.ToString(fn.VpcConfig.VpcId))
		for _, subnet := range fn.VpcConfig.SubnetIds {
			refs = appendRef(refs, subnet)
		}
		for _, sg := range fn.VpcConfig.SecurityGroupIds {
			refs = appendRef(refs, sg)
		}
	}
	// Execution roles live in IAM which is not scanned, so the resolver
	// reports them as unresolved external references.
	refs = appendRef(refs, aws.ToString(fn.Role))

	return types.Resource{
		ID:       id,
		Name:     aws.ToString(fn.FunctionName),
		Type:     types.TypeServerlessFunction,
		Provider: types.ProviderAWS,
		Region:   region,
		Scope:    a.accountID,
		Properties: map[string]string{
			"runtime": string(fn.Runtime),
			"memory":  formatInt32(fn.MemorySize),
		},
		DependencyRefs: refs,
	}, nil
}

func formatInt32(v *int32) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(int(*v))
}
