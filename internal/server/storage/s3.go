// Package storage issues presigned object-storage URLs so clients move file
// bytes directly to and from S3-compatible storage (MinIO in development).
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// PresignExpiry bounds how long an issued URL stays usable.
const PresignExpiry = 15 * time.Minute

// Presigner issues time-limited URLs for a single object key.
type Presigner interface {
	PresignPut(ctx context.Context, key string) (string, error)
	PresignGet(ctx context.Context, key string) (string, error)
}

type Options struct {
	AccessKey    string
	SecretKey    string
	Bucket       string
	Region       string
	BaseEndpoint string
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
)

// S3Presigner presigns against a single bucket. Signing is local; no
// request reaches the storage service until the client uses the URL.
type S3Presigner struct {
	bucket string
	client *s3.PresignClient
}

// NewS3Presigner loads AWS config with static credentials from opts.
func NewS3Presigner(ctx context.Context, opts Options) (*S3Presigner, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Presigner{bucket: opts.Bucket, client: newS3PresignClient(client)}, nil
}

func (p *S3Presigner) PresignPut(ctx context.Context, key string) (string, error) {
	req, err := presignPutObject(p.client, ctx, &s3.PutObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return req.URL, nil
}

func (p *S3Presigner) PresignGet(ctx context.Context, key string) (string, error) {
	req, err := presignGetObject(p.client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(PresignExpiry))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}

// NewStorageKey returns users/<userID>/<yyyy>/<mm>/<dd>/<uuid><ext>. Only
// the extension of filename survives; the rest is client-controlled and
// never used in the key.
func NewStorageKey(userID, filename string, now time.Time) string {
	ext := strings.ToLower(path.Ext(path.Base(strings.ReplaceAll(filename, "\\", "/"))))
	if len(ext) > 16 || strings.ContainsAny(ext, " /?#%") {
		ext = ""
	}
	now = now.UTC()
	return fmt.Sprintf("users/%s/%04d/%02d/%02d/%s%s", userID, now.Year(), int(now.Month()), now.Day(), uuid.New(), ext)
}

// IsOwnedKey reports whether key sits under the user's prefix.
func IsOwnedKey(userID, key string) bool {
	return userID != "" && strings.HasPrefix(key, "users/"+userID+"/")
}

// IsRemoteURL reports whether ref is an absolute http(s) URL rather than a
// storage key.
func IsRemoteURL(ref string) bool {
	u, err := url.Parse(ref)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
