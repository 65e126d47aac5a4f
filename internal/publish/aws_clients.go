// Where: internal/publish/aws_clients.go
// What: AWS SDK adapters for S3 and DynamoDB.
// Why: Map publisher interfaces to SDK calls, with endpoint overrides for
// S3/DynamoDB-compatible local stacks.
package publish

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	dynamotypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Options configures AWS client construction.
type Options struct {
	Region    string
	Endpoint  string // non-empty selects an S3/DynamoDB-compatible endpoint
	AccessKey string
	SecretKey string
}

// NewAWSClients builds SDK-backed S3 and state adapters.
func NewAWSClients(ctx context.Context, opts Options) (S3API, StateAPI, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if strings.TrimSpace(opts.Region) != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	if opts.AccessKey != "" && opts.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKey, opts.SecretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	s3Client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})
	dynamoClient := dynamodb.NewFromConfig(cfg, func(o *dynamodb.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})

	return awsS3Client{client: s3Client}, awsDynamoClient{client: dynamoClient}, nil
}

type awsS3Client struct {
	client *s3.Client
}

func (c awsS3Client) ListBuckets(ctx context.Context) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("s3 client is nil")
	}
	resp, err := c.client.ListBuckets(ctx, &s3.ListBucketsInput{})
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Buckets))
	for _, bucket := range resp.Buckets {
		if bucket.Name == nil {
			continue
		}
		names = append(names, *bucket.Name)
	}
	return names, nil
}

func (c awsS3Client) CreateBucket(ctx context.Context, name string) error {
	if c.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	_, err := c.client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(name)})
	return err
}

func (c awsS3Client) PutObject(ctx context.Context, bucket, key string, body []byte) error {
	if c.client == nil {
		return fmt.Errorf("s3 client is nil")
	}
	_, err := c.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	})
	return err
}

type awsDynamoClient struct {
	client *dynamodb.Client
}

func (c awsDynamoClient) ListTables(ctx context.Context) ([]string, error) {
	if c.client == nil {
		return nil, fmt.Errorf("dynamodb client is nil")
	}
	resp, err := c.client.ListTables(ctx, &dynamodb.ListTablesInput{})
	if err != nil {
		return nil, err
	}
	return resp.TableNames, nil
}

// CreateTable provisions the build-state table: one row per variant per run.
func (c awsDynamoClient) CreateTable(ctx context.Context, name string) error {
	if c.client == nil {
		return fmt.Errorf("dynamodb client is nil")
	}
	_, err := c.client.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName: aws.String(name),
		KeySchema: []dynamotypes.KeySchemaElement{
			{AttributeName: aws.String("variant"), KeyType: dynamotypes.KeyTypeHash},
			{AttributeName: aws.String("published_at"), KeyType: dynamotypes.KeyTypeRange},
		},
		AttributeDefinitions: []dynamotypes.AttributeDefinition{
			{AttributeName: aws.String("variant"), AttributeType: dynamotypes.ScalarAttributeTypeS},
			{AttributeName: aws.String("published_at"), AttributeType: dynamotypes.ScalarAttributeTypeS},
		},
		BillingMode: dynamotypes.BillingModePayPerRequest,
	})
	return err
}

func (c awsDynamoClient) PutRecord(ctx context.Context, table string, record BuildRecord) error {
	if c.client == nil {
		return fmt.Errorf("dynamodb client is nil")
	}
	item := map[string]dynamotypes.AttributeValue{
		"variant":      &dynamotypes.AttributeValueMemberS{Value: record.Variant},
		"published_at": &dynamotypes.AttributeValueMemberS{Value: record.PublishedAt},
		"run_id":       &dynamotypes.AttributeValueMemberS{Value: record.RunID},
	}
	if record.ImageRef != "" {
		item["image_ref"] = &dynamotypes.AttributeValueMemberS{Value: record.ImageRef}
	}
	if record.ComputeTarget != "" {
		item["compute_target"] = &dynamotypes.AttributeValueMemberS{Value: record.ComputeTarget}
	}
	if record.PrimarySource != "" {
		item["primary_package_source"] = &dynamotypes.AttributeValueMemberS{Value: record.PrimarySource}
	}
	if record.DependenciesSource != "" {
		item["other_dependencies_source"] = &dynamotypes.AttributeValueMemberS{Value: record.DependenciesSource}
	}
	_, err := c.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(table),
		Item:      item,
	})
	return err
}
