package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/marmos91/screening-e2e/internal/logger"
	"github.com/marmos91/screening-e2e/internal/telemetry"
)

// ArchiveConfig holds configuration for the S3 snapshot archive.
type ArchiveConfig struct {
	Bucket string

	// Prefix is prepended to all keys (e.g., "snapshots/").
	Prefix string

	// Region is the AWS region (optional, uses SDK default if empty).
	Region string

	// Endpoint is the S3 endpoint URL (optional, for S3-compatible services).
	Endpoint string

	// ForcePathStyle forces path-style addressing (required for Localstack/MinIO).
	ForcePathStyle bool

	// AccessKey and SecretKey override the default credential chain.
	AccessKey string
	SecretKey string
}

// Archive stores snapshots in S3 as <prefix><name>.sql and
// <prefix><name>.json.
type Archive struct {
	client *s3.Client
	bucket string
	prefix string
}

// NewArchive creates an archive with an existing client.
func NewArchive(client *s3.Client, cfg ArchiveConfig) *Archive {
	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		prefix: cfg.Prefix,
	}
}

// NewArchiveFromConfig creates the S3 client from cfg and the default AWS
// configuration chain.
func NewArchiveFromConfig(ctx context.Context, cfg ArchiveConfig) (*Archive, error) {
	if cfg.Bucket == "" {
		return nil, errors.New("archive bucket is required")
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		})
	}
	if cfg.ForcePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}

	return NewArchive(s3.NewFromConfig(awsCfg, s3Opts...), cfg), nil
}

// Bucket returns the archive bucket.
func (a *Archive) Bucket() string {
	return a.bucket
}

func (a *Archive) key(name, ext string) string {
	return a.prefix + name + ext
}

// Upload copies the dump and sidecar of info from dir and returns the key of
// the dump object.
func (a *Archive) Upload(ctx context.Context, dir string, info *Info) (string, error) {
	ctx, span := telemetry.StartSnapshotSpan(ctx, "archive", info.Name)
	defer span.End()
	telemetry.SetAttributes(ctx, telemetry.Bucket(a.bucket))

	dumpKey := a.key(info.Name, ".sql")
	if err := a.putFile(ctx, dumpKey, dumpPath(dir, info.Name), "application/sql"); err != nil {
		telemetry.RecordError(ctx, err)
		return "", err
	}

	archived := *info
	archived.ArchiveKey = dumpKey
	data, err := json.MarshalIndent(&archived, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal sidecar: %w", err)
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(a.key(info.Name, ".json")),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		telemetry.RecordError(ctx, err)
		return "", fmt.Errorf("s3 put sidecar: %w", err)
	}

	logger.InfoCtx(ctx, "Snapshot archived",
		logger.KeySnapshot, info.Name, logger.KeyBucket, a.bucket, logger.KeyKey, dumpKey)
	return dumpKey, nil
}

func (a *Archive) putFile(ctx context.Context, key, filename, contentType string) error {
	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return err
	}

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(a.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(st.Size()),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return fmt.Errorf("s3 put object: %w", err)
	}
	return nil
}

// Download fetches name into dir and returns its sidecar.
func (a *Archive) Download(ctx context.Context, dir, name string) (*Info, error) {
	ctx, span := telemetry.StartSnapshotSpan(ctx, "download", name)
	defer span.End()

	resp, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name, ".json")),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, fmt.Errorf("%w: %s not in archive", ErrSnapshotNotFound, name)
		}
		return nil, fmt.Errorf("s3 get sidecar: %w", err)
	}
	var info Info
	err = json.NewDecoder(resp.Body).Decode(&info)
	resp.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("failed to parse archived sidecar: %w", err)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	obj, err := a.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(a.key(name, ".sql")),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get dump: %w", err)
	}
	defer obj.Body.Close()

	tmp := dumpPath(dir, name) + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(f, obj.Body); err != nil {
		f.Close()
		os.Remove(tmp)
		return nil, fmt.Errorf("failed to download dump: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return nil, err
	}
	if err := os.Rename(tmp, dumpPath(dir, name)); err != nil {
		return nil, err
	}
	if err := WriteSidecar(dir, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// List returns the names of archived snapshots, sorted.
func (a *Archive) List(ctx context.Context) ([]string, error) {
	var names []string

	p := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(a.prefix),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3 list objects: %w", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if !strings.HasSuffix(key, ".json") {
				continue
			}
			names = append(names, strings.TrimSuffix(path.Base(key), ".json"))
		}
	}

	sort.Strings(names)
	return names, nil
}

// isNotFoundError checks whether err is an S3 missing key or bucket.
func isNotFoundError(err error) bool {
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}
	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}
	errStr := err.Error()
	return strings.Contains(errStr, "NoSuchKey") ||
		strings.Contains(errStr, "NotFound") ||
		strings.Contains(errStr, "404")
}
