package events

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/dmitrijs2005/authentify/internal/server/models"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

// S3Config points the archive at an S3-compatible bucket (MinIO in
// development).
type S3Config struct {
	Bucket       string
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Prefix       string
}

type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Sink archives each batch as one JSON object.
type S3Sink struct {
	client objectPutter
	bucket string
	prefix string
}

// archive is the object body.
type archive struct {
	OccurredAt models.Timestamp `json:"occurred_at"`
	Events     []Envelope       `json:"events"`
}

// NewS3Sink builds an S3 client from static credentials.
func NewS3Sink(ctx context.Context, c S3Config) (*S3Sink, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("error loading aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return newS3Sink(client, c.Bucket, c.Prefix), nil
}

func newS3Sink(client objectPutter, bucket, prefix string) *S3Sink {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = "events"
	}
	return &S3Sink{client: client, bucket: bucket, prefix: prefix}
}

// objectKey orders objects by the batch time; the uuid keeps keys unique
// within the same time unit.
func (s *S3Sink) objectKey(at models.Timestamp) string {
	return fmt.Sprintf("%s/%020d-%s.json", s.prefix, uint64(at), uuid.NewString())
}

func (s *S3Sink) Publish(ctx context.Context, batch Batch) error {
	if len(batch.Events) == 0 {
		return nil
	}

	doc := archive{OccurredAt: batch.OccurredAt, Events: make([]Envelope, 0, len(batch.Events))}
	for _, ev := range batch.Events {
		env, err := Encode(ev)
		if err != nil {
			return err
		}
		doc.Events = append(doc.Events, env)
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.objectKey(batch.OccurredAt)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("error archiving events: %w", err)
	}
	return nil
}
