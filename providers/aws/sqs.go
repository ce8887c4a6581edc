package aws

import (
	"context"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

func (a *Adapter) listQueues(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.sqsClient(region)
	paginator := sqs.NewListQueuesPaginator(client, &sqs.ListQueuesInput{})

	var resources []types.Resource
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, url := range page.QueueUrls {
			resource, err := a.mapQueue(url, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
	}
	return resources, nil
}

func (a *Adapter) mapQueue(url, region string) (types.Resource, *providers.MappingError) {
	if url == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "queue without URL",
		}
	}

	name := url
	if idx := strings.LastIndex(url, "/"); idx >= 0 && idx < len(url)-1 {
		name = url[idx+1:]
	}

	return types.Resource{
		ID:       url,
		Name:     name,
		Type:     types.TypeQueue,
		Provider: types.ProviderAWS,
		Region:   region,
		Scope:    a.accountID,
	}, nil
}
