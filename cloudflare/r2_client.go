// Package cloudflare provides a client for interacting with the Cloudflare API.
package cloudflare

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

const avatarCacheControl = "public, max-age=31536000, immutable"

type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
	// Public base URL objects are served from, e.g. a custom bucket domain
	PublicURL string
	// Overrides the account endpoint. Only set in tests.
	Endpoint string
}

// R2Client stores user avatars in an R2 bucket through its S3 API.
type R2Client struct {
	C         *s3.Client
	Bucket    *string
	publicURL string
}

func NewR2(ctx context.Context, cfg R2Config) (*R2Client, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("no bucket configured")
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion("auto"),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID,
			cfg.SecretAccessKey,
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)
	}

	bucket := aws.String(cfg.Bucket)

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.Region = "auto"
		o.UsePathStyle = true
		o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
	})

	_, err = client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", cfg.Bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &R2Client{
		C:         client,
		Bucket:    bucket,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// Upload puts body at key and returns the public URL of the object.
func (r *R2Client) Upload(ctx context.Context, key, contentType string, body io.ReadSeeker) (string, error) {
	_, err := r.C.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       r.Bucket,
		Key:          aws.String(key),
		Body:         body,
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(avatarCacheControl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s, %w", key, err)
	}

	return r.publicURL + "/" + key, nil
}
