package mainconfig

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	appconfig "github.com/wolfman30/triage-concierge/internal/config"
)

func TestLoadAWSConfigUsesStaticCredentials(t *testing.T) {
	cfg := &appconfig.Config{
		AWSRegion:          "ap-south-1",
		AWSAccessKeyID:     "test",
		AWSSecretAccessKey: "secret",
	}
	awsCfg, err := LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if awsCfg.Region != "ap-south-1" {
		t.Fatalf("expected region, got %s", awsCfg.Region)
	}
	creds, err := awsCfg.Credentials.Retrieve(context.Background())
	if err != nil {
		t.Fatalf("retrieve credentials: %v", err)
	}
	if creds.AccessKeyID != "test" {
		t.Fatalf("expected static key, got %s", creds.AccessKeyID)
	}
}

func TestNewAWSClientsBuildsOnlyConfiguredClients(t *testing.T) {
	awsCfg := aws.Config{Region: "ap-south-1"}

	clients := NewAWSClients(awsCfg, &appconfig.Config{SessionBackend: "redis"})
	if clients.DynamoDB != nil || clients.SQS != nil || clients.S3 != nil {
		t.Fatalf("expected no clients, got %+v", clients)
	}

	clients = NewAWSClients(awsCfg, &appconfig.Config{
		SessionBackend:        "dynamodb",
		BookingEventsQueueURL: "http://localstack:4566/000000000000/booking-events",
		TranscriptBucket:      "transcripts",
	})
	if clients.DynamoDB == nil || clients.SQS == nil || clients.S3 == nil {
		t.Fatalf("expected every client, got %+v", clients)
	}
}

func TestS3OptionsFollowEndpointOverride(t *testing.T) {
	var local s3.Options
	S3Options(&appconfig.Config{AWSEndpointOverride: "http://localstack:4566"})(&local)
	if !local.UsePathStyle {
		t.Fatalf("expected path style with endpoint override")
	}
	if local.BaseEndpoint == nil || *local.BaseEndpoint != "http://localstack:4566" {
		t.Fatalf("expected base endpoint override, got %v", local.BaseEndpoint)
	}

	var hosted s3.Options
	S3Options(&appconfig.Config{})(&hosted)
	if hosted.UsePathStyle || hosted.BaseEndpoint != nil {
		t.Fatalf("expected virtual-hosted defaults, got %+v", hosted)
	}
}
