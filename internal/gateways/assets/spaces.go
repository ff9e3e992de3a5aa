package assets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type SpacesConfig struct {
	Key      string `toml:"key"`
	Secret   string `toml:"secret"`
	Region   string `toml:"region"`
	Bucket   string `toml:"bucket"`
	Endpoint string `toml:"endpoint"`
	Root     string `toml:"root"`
}

type objectAPI interface {
	s3.ListObjectsV2APIClient
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	HeadObject(ctx context.Context, params *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error)
}

// SpacesStore serves assets from a DigitalOcean Spaces (S3 compatible) bucket.
type SpacesStore struct {
	client objectAPI
	bucket string
	root   string
}

func NewSpacesStore(ctx context.Context, cfg SpacesConfig) (*SpacesStore, error) {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = fmt.Sprintf("https://%s.digitaloceanspaces.com", cfg.Region)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.Key, cfg.Secret, "")),
		config.WithRegion(cfg.Region),
	)
	if err != nil {
		return nil, fmt.Errorf("unable to load Spaces config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	return newSpacesStore(client, cfg.Bucket, cfg.Root), nil
}

func newSpacesStore(client objectAPI, bucket, root string) *SpacesStore {
	return &SpacesStore{
		client: client,
		bucket: bucket,
		root:   strings.Trim(root, "/"),
	}
}

func (s *SpacesStore) key(rel string) string {
	if s.root == "" {
		return rel
	}
	return s.root + "/" + rel
}

// List returns objects directly under folder, skipping nested prefixes.
func (s *SpacesStore) List(ctx context.Context, folder string) ([]string, error) {
	rel, err := cleanRel(folder)
	if err != nil {
		return nil, err
	}
	prefix := s.key(rel) + "/"

	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket:    aws.String(s.bucket),
		Prefix:    aws.String(prefix),
		Delimiter: aws.String("/"),
	})

	var out []string
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", folder, err)
		}
		for _, obj := range page.Contents {
			name := strings.TrimPrefix(aws.ToString(obj.Key), prefix)
			if name == "" || strings.Contains(name, "/") {
				continue
			}
			out = append(out, path.Join(rel, name))
		}
	}
	return out, nil
}

func (s *SpacesStore) Read(ctx context.Context, assetPath string) ([]byte, error) {
	rel, err := cleanRel(assetPath)
	if err != nil {
		return nil, err
	}

	obj, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(rel)),
	})
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", assetPath, err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", assetPath, err)
	}
	return data, nil
}

func (s *SpacesStore) Stat(ctx context.Context, assetPath string) error {
	rel, err := cleanRel(assetPath)
	if err != nil {
		return err
	}

	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(rel)),
	})
	var notFound *types.NotFound
	var noKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noKey) {
		return fmt.Errorf("stat %s: %w", assetPath, ErrNotExist)
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", assetPath, err)
	}
	return nil
}
