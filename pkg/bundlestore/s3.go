package bundlestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/i18nhub/translation-migrator/pkg/bundle"
	"github.com/i18nhub/translation-migrator/pkg/interfaces"
)

// S3API is the subset of the S3 client used by S3Store.
type S3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Config configures the S3 bundle store.
type S3Config struct {
	Bucket string
	Prefix string // Optional key prefix in front of the interface directories.
	Region string
}

// S3Store reads bundles and manifests from an S3 bucket.
type S3Store struct {
	client S3API
	cfg    S3Config
}

// NewS3Store creates an S3Store using the default AWS credential chain.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bundle store requires a bucket")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &S3Store{client: s3.NewFromConfig(awsCfg), cfg: cfg}, nil
}

// NewS3StoreWithClient creates an S3Store around an existing client.
func NewS3StoreWithClient(client S3API, cfg S3Config) *S3Store {
	return &S3Store{client: client, cfg: cfg}
}

func (s *S3Store) key(parts string) string {
	if s.cfg.Prefix == "" {
		return parts
	}
	return strings.TrimSuffix(s.cfg.Prefix, "/") + "/" + parts
}

// ListManifests implements Store. It pages through every manifest sidecar
// under the interface prefix and parses each one.
func (s *S3Store) ListManifests(ctx context.Context, tag interfaces.Tag) ([]*bundle.Manifest, error) {
	prefix := s.key(string(tag) + "/")

	var manifests []*bundle.Manifest
	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            aws.String(s.cfg.Bucket),
			Prefix:            aws.String(prefix),
			ContinuationToken: continuation,
		})
		if err != nil {
			return nil, fmt.Errorf("list bundles for %s: %w", tag, err)
		}

		for _, obj := range out.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ManifestSuffix) {
				continue
			}
			data, err := s.get(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("read manifest %s: %w", key, err)
			}
			m, err := bundle.ParseManifest(data)
			if err != nil {
				return nil, fmt.Errorf("manifest %s: %w", key, err)
			}
			manifests = append(manifests, m)
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return manifests, nil
}

// Fetch implements Store.
func (s *S3Store) Fetch(ctx context.Context, tag interfaces.Tag, filename string) ([]byte, error) {
	data, err := s.get(ctx, s.key(objectKey(tag, filename)))
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("fetch bundle %s/%s: %w", tag, filename, err)
	}
	return data, nil
}

func (s *S3Store) get(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.cfg.Bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
