package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// MinioOptions configures a MinioBackend.
type MinioOptions struct {
	Endpoint    string
	AccessKey   string
	SecretKey   string
	Bucket      string // images and video, keyed {user}/{filename}
	AudioBucket string // audio, keyed {filename}
	UseSSL      bool
}

// MinioBackend stores files in S3-compatible buckets.
type MinioBackend struct {
	client      *minio.Client
	bucket      string
	audioBucket string
}

// NewMinioBackend creates a MinIO client, ensures both buckets exist with a
// public-read policy, and returns the backend.
func NewMinioBackend(ctx context.Context, opts MinioOptions, log zerolog.Logger) (*MinioBackend, error) {
	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	for _, bucket := range []string{opts.Bucket, opts.AudioBucket} {
		exists, err := client.BucketExists(ctx, bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket existence: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
				return nil, fmt.Errorf("create bucket %q: %w", bucket, err)
			}
			log.Info().Str("bucket", bucket).Msg("storage: created bucket")
		}
		if err := client.SetBucketPolicy(ctx, bucket, publicReadPolicy(bucket)); err != nil {
			return nil, fmt.Errorf("set bucket policy: %w", err)
		}
	}

	return &MinioBackend{client: client, bucket: opts.Bucket, audioBucket: opts.AudioBucket}, nil
}

// ForUser implements Backend.
func (b *MinioBackend) ForUser(userName string) Namespace {
	return &minioNamespace{client: b.client, bucket: b.bucket, prefix: path.Base(userName) + "/", preserve: true}
}

// Audio implements Backend.
func (b *MinioBackend) Audio() Namespace {
	return &minioNamespace{client: b.client, bucket: b.audioBucket}
}

type minioNamespace struct {
	client   *minio.Client
	bucket   string
	prefix   string
	preserve bool
}

func (n *minioNamespace) key(name string) string {
	return n.prefix + name
}

func (n *minioNamespace) Location(name string) string {
	return "s3://" + n.bucket + "/" + n.key(name)
}

func (n *minioNamespace) Exists(ctx context.Context, name string) (bool, error) {
	if err := validName(name); err != nil {
		return false, err
	}
	_, err := n.client.StatObject(ctx, n.bucket, n.key(name), minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" || resp.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("stat object %q: %w", n.key(name), err)
}

// Save uploads the object. Exclusivity is best effort: the existence check
// and the put are separate requests.
func (n *minioNamespace) Save(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	exists, err := n.Exists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return ErrExists
	}
	return n.put(ctx, n.key(name), r, size, contentType)
}

// Preserve uploads to {user}/preserve/{name} and copies it server-side to the
// public key.
func (n *minioNamespace) Preserve(ctx context.Context, name string, r io.Reader, size int64, contentType string) error {
	if !n.preserve {
		return ErrPreserveUnsupported
	}
	if err := validName(name); err != nil {
		return err
	}

	preserved := n.prefix + PreserveDir + "/" + name
	if err := n.put(ctx, preserved, r, size, contentType); err != nil {
		return err
	}
	_, err := n.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: n.bucket, Object: n.key(name)},
		minio.CopySrcOptions{Bucket: n.bucket, Object: preserved},
	)
	if err != nil {
		_ = n.client.RemoveObject(ctx, n.bucket, preserved, minio.RemoveObjectOptions{})
		return fmt.Errorf("copy preserved object %q: %w", preserved, err)
	}
	return nil
}

// Remove deletes the object. S3 treats removing a missing key as success.
func (n *minioNamespace) Remove(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if err := n.client.RemoveObject(ctx, n.bucket, n.key(name), minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %q: %w", n.key(name), err)
	}
	return nil
}

func (n *minioNamespace) put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := n.client.PutObject(ctx, n.bucket, key, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return fmt.Errorf("put object %q: %w", key, err)
	}
	return nil
}

// publicReadPolicy returns an S3 bucket policy JSON that allows anonymous GET on all objects.
func publicReadPolicy(bucket string) string {
	policy := map[string]interface{}{
		"Version": "2012-10-17",
		"Statement": []map[string]interface{}{
			{
				"Effect":    "Allow",
				"Principal": "*",
				"Action":    "s3:GetObject",
				"Resource":  fmt.Sprintf("arn:aws:s3:::%s/*", bucket),
			},
		},
	}
	b, _ := json.Marshal(policy)
	return string(b)
}
