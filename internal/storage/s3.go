package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
	"github.com/spf13/viper"
)

// S3 keeps blobs under the rooms/<roomID>/<storedName> key prefix. Works
// against AWS S3 or any compatible endpoint (R2, MinIO) via
// cloudflare.account_id.
type S3 struct {
	c      *s3.Client
	bucket *string
}

func NewS3() (*S3, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.TODO(),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			viper.GetString("cloudflare.access_key_id"),
			viper.GetString("cloudflare.secret_access_key"),
			"",
		)),
	)
	if err != nil {
		return nil, err
	}

	bucket := aws.String(viper.GetString("cloudflare.bucket"))

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if id := viper.GetString("cloudflare.account_id"); id != "" {
			o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", id))
			o.Region = "auto"
		} else {
			o.Region = viper.GetString("cloudflare.region")
		}
	})

	_, err = client.HeadBucket(context.TODO(), &s3.HeadBucketInput{
		Bucket: bucket,
	})
	if err != nil {
		var apiErr smithy.APIError

		if errors.As(err, &apiErr) {
			if apiErr.ErrorCode() == "NotFound" {
				return nil, fmt.Errorf("bucket '%s' does not exist", *bucket)
			}
		}

		return nil, fmt.Errorf("failed to check if bucket exists, %w", err)
	}

	return &S3{c: client, bucket: bucket}, nil
}

func key(roomID, name string) string {
	return "rooms/" + roomID + "/" + name
}

func (s *S3) Save(ctx context.Context, roomID, name string, src io.Reader) (int64, error) {
	// Size isn't known up front so always go through the multipart uploader.
	// It buffers parts and aborts the whole upload on failure, so no partial
	// object is left behind.
	cr := &countingReader{r: src}

	u := manager.NewUploader(s.c, func(u *manager.Uploader) {
		u.Concurrency = 5
		u.PartSize = 5 << 20
	})

	_, err := u.Upload(ctx, &s3.PutObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key(roomID, name)),
		Body:   cr,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to upload blob to S3, %w", err)
	}

	return cr.n, nil
}

func (s *S3) Open(ctx context.Context, roomID, name string) (io.ReadCloser, error) {
	out, err := s.c.GetObject(ctx, &s3.GetObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key(roomID, name)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch blob from S3, %w", err)
	}
	return out.Body, nil
}

func (s *S3) Remove(ctx context.Context, roomID, name string) error {
	// S3 deletes are already no-ops for missing keys
	_, err := s.c.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: s.bucket,
		Key:    aws.String(key(roomID, name)),
	})
	if err != nil {
		return fmt.Errorf("failed to delete blob from S3, %w", err)
	}
	return nil
}

func (s *S3) List(ctx context.Context, roomID string) ([]string, error) {
	prefix := "rooms/" + roomID + "/"

	var names []string
	p := s3.NewListObjectsV2Paginator(s.c, &s3.ListObjectsV2Input{
		Bucket: s.bucket,
		Prefix: aws.String(prefix),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list room objects, %w", err)
		}
		for _, obj := range page.Contents {
			names = append(names, strings.TrimPrefix(*obj.Key, prefix))
		}
	}

	return names, nil
}

func (s *S3) EnsureRoom(context.Context, string) error {
	// Buckets have no directories, keys appear on first write
	return nil
}

func (s *S3) RoomEmpty(ctx context.Context, roomID string) (bool, error) {
	names, err := s.List(ctx, roomID)
	if err != nil {
		return false, err
	}
	return len(names) == 0, nil
}

func (s *S3) RemoveRoomDir(context.Context, string) error {
	// Nothing to remove once the keys are gone
	return nil
}

func (s *S3) ListRooms(ctx context.Context) ([]string, error) {
	var ids []string
	p := s3.NewListObjectsV2Paginator(s.c, &s3.ListObjectsV2Input{
		Bucket:    s.bucket,
		Prefix:    aws.String("rooms/"),
		Delimiter: aws.String("/"),
	})

	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list rooms, %w", err)
		}
		for _, cp := range page.CommonPrefixes {
			id := strings.TrimSuffix(strings.TrimPrefix(*cp.Prefix, "rooms/"), "/")
			if id != "" {
				ids = append(ids, id)
			}
		}
	}

	return ids, nil
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
