// Package mainconfig turns the service configuration into AWS SDK clients
// for the session table, the booking events queue and the transcript
// bucket.
package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/triage-concierge/internal/config"
)

// AWSClients holds one client per AWS-backed feature. Features that are
// not configured leave their client nil.
type AWSClients struct {
	DynamoDB *dynamodb.Client
	SQS      *sqs.Client
	S3       *s3.Client
}

// LoadAWSConfig resolves region and credentials. Static keys win over the
// default chain when both are set.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	key, secret := strings.TrimSpace(cfg.AWSAccessKeyID), strings.TrimSpace(cfg.AWSSecretAccessKey)
	if key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(key, secret, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("mainconfig: load aws config: %w", err)
	}
	return awsCfg, nil
}

// NewAWSClients builds the clients cfg asks for. AWS_ENDPOINT_OVERRIDE
// points every client at the same endpoint, as LocalStack expects.
func NewAWSClients(awsCfg aws.Config, cfg *appconfig.Config) AWSClients {
	endpoint := strings.TrimSpace(cfg.AWSEndpointOverride)
	var clients AWSClients
	if cfg.SessionBackend == "dynamodb" {
		clients.DynamoDB = dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
			overrideEndpoint(&o.BaseEndpoint, endpoint)
		})
	}
	if strings.TrimSpace(cfg.BookingEventsQueueURL) != "" {
		clients.SQS = sqs.NewFromConfig(awsCfg, func(o *sqs.Options) {
			overrideEndpoint(&o.BaseEndpoint, endpoint)
		})
	}
	if strings.TrimSpace(cfg.TranscriptBucket) != "" {
		clients.S3 = s3.NewFromConfig(awsCfg, S3Options(cfg))
	}
	return clients
}

// S3Options applies the endpoint override and, with it, path-style
// addressing.
func S3Options(cfg *appconfig.Config) func(*s3.Options) {
	endpoint := strings.TrimSpace(cfg.AWSEndpointOverride)
	return func(o *s3.Options) {
		overrideEndpoint(&o.BaseEndpoint, endpoint)
		o.UsePathStyle = endpoint != ""
	}
}

func overrideEndpoint(dst **string, endpoint string) {
	if endpoint != "" {
		*dst = aws.String(endpoint)
	}
}
