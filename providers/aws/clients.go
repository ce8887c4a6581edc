package aws

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticloadbalancingv2"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/rds"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// Per-service client interfaces cover exactly the operations the listers
// call, so tests can swap in mocks. The real SDK clients satisfy them, and
// the SDK paginator constructors accept them.

// EC2Client is the EC2 API surface used by the listers.
type EC2Client interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
	DescribeVolumes(ctx context.Context, params *ec2.DescribeVolumesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVolumesOutput, error)
	DescribeVpcs(ctx context.Context, params *ec2.DescribeVpcsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeVpcsOutput, error)
	DescribeSubnets(ctx context.Context, params *ec2.DescribeSubnetsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSubnetsOutput, error)
	DescribeSecurityGroups(ctx context.Context, params *ec2.DescribeSecurityGroupsInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSecurityGroupsOutput, error)
}

// RDSClient is the RDS API surface used by the listers.
type RDSClient interface {
	DescribeDBInstances(ctx context.Context, params *rds.DescribeDBInstancesInput, optFns ...func(*rds.Options)) (*rds.DescribeDBInstancesOutput, error)
}

// ELBClient is the ELBv2 API surface used by the listers.
type ELBClient interface {
	DescribeLoadBalancers(ctx context.Context, params *elasticloadbalancingv2.DescribeLoadBalancersInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeLoadBalancersOutput, error)
	DescribeTargetGroups(ctx context.Context, params *elasticloadbalancingv2.DescribeTargetGroupsInput, optFns ...func(*elasticloadbalancingv2.Options)) (*elasticloadbalancingv2.DescribeTargetGroupsOutput, error)
}

// S3Client is the S3 API surface used by the listers.
type S3Client interface {
	ListBuckets(ctx context.Context, params *s3.ListBucketsInput, optFns ...func(*s3.Options)) (*s3.ListBucketsOutput, error)
}

// LambdaClient is the Lambda API surface used by the listers.
type LambdaClient interface {
	ListFunctions(ctx context.Context, params *lambda.ListFunctionsInput, optFns ...func(*lambda.Options)) (*lambda.ListFunctionsOutput, error)
}

// SQSClient is the SQS API surface used by the listers.
type SQSClient interface {
	ListQueues(ctx context.Context, params *sqs.ListQueuesInput, optFns ...func(*sqs.Options)) (*sqs.ListQueuesOutput, error)
}

// STSClient is the STS API surface used by Authenticate.
type STSClient interface {
	GetCallerIdentity(ctx context.Context, params *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

func (a *Adapter) ec2Client(region string) EC2Client {
	if a.newEC2 != nil {
		return a.newEC2(region)
	}
	return ec2.NewFromConfig(a.cfg, func(o *ec2.Options) { o.Region = region })
}

func (a *Adapter) rdsClient(region string) RDSClient {
	if a.newRDS != nil {
		return a.newRDS(region)
	}
	return rds.NewFromConfig(a.cfg, func(o *rds.Options) { o.Region = region })
}

func (a *Adapter) elbClient(region string) ELBClient {
	if a.newELB != nil {
		return a.newELB(region)
	}
	return elasticloadbalancingv2.NewFromConfig(a.cfg, func(o *elasticloadbalancingv2.Options) { o.Region = region })
}

func (a *Adapter) s3Client(region string) S3Client {
	if a.newS3 != nil {
		return a.newS3(region)
	}
	return s3.NewFromConfig(a.cfg, func(o *s3.Options) { o.Region = region })
}

func (a *Adapter) lambdaClient(region string) LambdaClient {
	if a.newLambda != nil {
		return a.newLambda(region)
	}
	return lambda.NewFromConfig(a.cfg, func(o *lambda.Options) { o.Region = region })
}

func (a *Adapter) sqsClient(region string) SQSClient {
	if a.newSQS != nil {
		return a.newSQS(region)
	}
	return sqs.NewFromConfig(a.cfg, func(o *sqs.Options) { o.Region = region })
}

func (a *Adapter) stsClient() STSClient {
	if a.sts != nil {
		return a.sts
	}
	return sts.NewFromConfig(a.cfg)
}
