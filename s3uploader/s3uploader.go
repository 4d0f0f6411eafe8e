// Package s3uploader ships batch result files to S3.
package s3uploader

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

const contentTypeJSONL = "application/x-ndjson"

var ErrMissingCredentials = errors.New("s3 access key, secret key and region are required")

type Uploader struct {
	client *s3.Client
}

func New(ctx context.Context, accessKey, secretKey, region string) (*Uploader, error) {
	if accessKey == "" || secretKey == "" || region == "" {
		return nil, ErrMissingCredentials
	}

	creds := credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(creds),
		config.WithRegion(region),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Uploader{client: s3.NewFromConfig(cfg)}, nil
}

// UploadFile puts the local results file under key.
func (u *Uploader) UploadFile(ctx context.Context, bucket, key, file string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}

	defer f.Close()

	_, err = u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentTypeJSONL),
	})
	if err != nil {
		return fmt.Errorf("put s3://%s/%s: %w", bucket, key, err)
	}

	return nil
}

// ResultsKey names the object for a results file written at t.
func ResultsKey(file string, t time.Time) string {
	return path.Join("product-images", t.UTC().Format("2006/01/02"), t.UTC().Format("150405")+"-"+filepath.Base(file))
}
