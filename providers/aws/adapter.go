// Package aws maps AWS resources into the canonical model using SDK v2
// service paginators.
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yairfalse/kartta/providers"
	"github.com/yairfalse/kartta/telemetry"
	"github.com/yairfalse/kartta/types"
)

func init() {
	providers.Register(types.ProviderAWS, NewAdapterFactory)
}

// NewAdapterFactory creates AWS adapters for the provider registry.
func NewAdapterFactory(ctx context.Context, cfg providers.Config) (providers.Adapter, error) {
	return NewAdapter(ctx, cfg.Region, cfg.Account)
}

var defaultRegions = []string{"us-east-1", "us-west-2", "eu-west-1"}

// Adapter discovers AWS resources. Clients are built per listing call so
// one adapter serves every region in a scope.
type Adapter struct {
	cfg       aws.Config
	accountID string
	logger    *telemetry.Logger
	metrics   *telemetry.Metrics

	// Test seams. Nil selects the real SDK client for the region.
	newEC2    func(region string) EC2Client
	newRDS    func(region string) RDSClient
	newELB    func(region string) ELBClient
	newS3     func(region string) S3Client
	newLambda func(region string) LambdaClient
	newSQS    func(region string) SQSClient
	sts       STSClient
}

// NewAdapter loads the default credential chain. Authentication is not
// verified until Authenticate.
func NewAdapter(ctx context.Context, region, account string) (*Adapter, error) {
	opts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	metrics, err := telemetry.NewMetrics()
	if err != nil {
		return nil, err
	}

	return &Adapter{
		cfg:       cfg,
		accountID: account,
		logger:    telemetry.NewLogger("aws"),
		metrics:   metrics,
	}, nil
}

// Name returns the provider name.
func (a *Adapter) Name() string {
	return types.ProviderAWS
}

// Regions returns the default regions scanned when the scope names none.
func (a *Adapter) Regions() []string {
	if a.cfg.Region != "" {
		return []string{a.cfg.Region}
	}
	return defaultRegions
}

// Authenticate verifies credentials against STS, which also resolves the
// account ID used as the container scope.
func (a *Adapter) Authenticate(ctx context.Context) error {
	out, err := a.stsClient().GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		if classified := classify(err); providers.IsRateLimit(classified) || providers.IsTransient(classified) {
			return classified
		}
		return &providers.AuthError{Provider: types.ProviderAWS, Err: err}
	}

	if a.accountID == "" {
		a.accountID = aws.ToString(out.Account)
	}
	return nil
}

// ListResources pages through every supported service in the region.
// Pages are requested strictly in order; a failure aborts this listing and
// the caller restarts from page one after backoff.
func (a *Adapter) ListResources(ctx context.Context, scope providers.ListScope) ([]types.Resource, error) {
	region := scope.Region
	if region == "" {
		region = a.cfg.Region
	}

	listers := []func(context.Context, string) ([]types.Resource, error){
		a.listInstances,
		a.listVolumes,
		a.listVPCs,
		a.listSubnets,
		a.listSecurityGroups,
		a.listDatabases,
		a.listLoadBalancers,
		a.listTargetGroups,
		a.listBuckets,
		a.listFunctions,
		a.listQueues,
	}

	var resources []types.Resource
	for _, list := range listers {
		batch, err := list(ctx, region)
		if err != nil {
			return nil, classify(err)
		}
		resources = append(resources, batch...)
	}
	return resources, nil
}

// skip records one unmappable provider record and keeps scanning.
func (a *Adapter) skip(ctx context.Context, err *providers.MappingError) {
	a.logger.LogSkippedRecord(ctx, types.ProviderAWS, err.RawID, err)
	a.metrics.RecordSkipped(ctx, types.ProviderAWS)
}
