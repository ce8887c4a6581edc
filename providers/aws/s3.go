package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/types"
)

// listBuckets scans the S3 bucket list. ListBuckets is account wide, so
// buckets are reported under the bucket's own region when known and the
// requested region otherwise.
func (a *Adapter) listBuckets(ctx context.Context, region string) ([]types.Resource, error) {
	client := a.s3Client(region)

	var resources []types.Resource
	input := &s3.ListBucketsInput{BucketRegion: aws.String(region)}
	for {
		page, err := client.ListBuckets(ctx, input)
		if err != nil {
			return nil, err
		}
		for _, bucket := range page.Buckets {
			resource, err := a.mapBucket(bucket, region)
			if err != nil {
				a.skip(ctx, err)
				continue
			}
			resources = append(resources, resource)
		}
		if page.ContinuationToken == nil {
			break
		}
		input.ContinuationToken = page.ContinuationToken
	}
	return resources, nil
}

func (a *Adapter) mapBucket(bucket s3types.Bucket, region string) (types.Resource, *providers.MappingError) {
	name := aws.ToString(bucket.Name)
	if name == "" {
		return types.Resource{}, &providers.MappingError{
			Provider: types.ProviderAWS,
			Reason:   "bucket without name",
		}
	}

	bucketRegion := aws.ToString(bucket.BucketRegion)
	if bucketRegion == "" {
		bucketRegion = region
	}

	properties := map[string]string{}
	if bucket.CreationDate != nil {
		properties["created"] = bucket.CreationDate.UTC().Format("2006-01-02T15:04:05Z")
	}

	return types.Resource{
		ID:         name,
		Name:       name,
		Type:       types.TypeObjectStorage,
		Provider:   types.ProviderAWS,
		Region:     bucketRegion,
		Scope:      a.accountID,
		Properties: properties,
	}, nil
}
