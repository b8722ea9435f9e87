package deploy

import (
	"bytes"
	"context"
	"crypto/md5" // #nosec G501 -- S3 ETags of single-part uploads are MD5 digests
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3aws "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/uuid"
)

// ManifestName is the object written after every successful sync.
const ManifestName = "manifest.json"

// maxDeleteBatch is the S3 limit of keys per DeleteObjects request.
const maxDeleteBatch = 1000

var bucketPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

// S3Client is the subset of the S3 API used by Deployer.
type S3Client interface {
	PutObject(ctx context.Context, params *s3aws.PutObjectInput, optFns ...func(*s3aws.Options)) (*s3aws.PutObjectOutput, error)
	ListObjectsV2(ctx context.Context, params *s3aws.ListObjectsV2Input, optFns ...func(*s3aws.Options)) (*s3aws.ListObjectsV2Output, error)
	DeleteObjects(ctx context.Context, params *s3aws.DeleteObjectsInput, optFns ...func(*s3aws.Options)) (*s3aws.DeleteObjectsOutput, error)
}

// Config describes the target bucket.
type Config struct {
	Bucket       string
	Region       string
	Prefix       string // Key prefix, without leading slash
	Endpoint     string // For S3-compatible services like MinIO or R2
	PathStyle    bool
	CacheControl string
	Prune        bool
	DryRun       bool

	// Static credentials; the SDK default chain is used when empty.
	AccessKeyID string
	SecretKey   string
}

// Option configures a Deployer.
type Option func(*Deployer)

// WithS3Client sets a pre-configured client, mainly for tests.
func WithS3Client(client S3Client) Option {
	return func(d *Deployer) {
		d.client = client
	}
}

// WithLogger sets the logger used for per-object progress.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Deployer) {
		if logger != nil {
			d.logger = logger
		}
	}
}

// WithClock overrides the time source used in the manifest.
func WithClock(now func() time.Time) Option {
	return func(d *Deployer) {
		if now != nil {
			d.now = now
		}
	}
}

// Deployer syncs a local directory to a bucket.
type Deployer struct {
	client S3Client
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

// SyncReport summarizes a sync. Keys are full object keys.
type SyncReport struct {
	BuildID  string
	Uploaded []string
	Skipped  []string
	Deleted  []string
	DryRun   bool
}

// Manifest is the JSON document written next to the deployed files.
type Manifest struct {
	BuildID   string    `json:"buildId"`
	CreatedAt time.Time `json:"createdAt"`
	Keys      []string  `json:"keys"`
}

// New creates a Deployer. Without WithS3Client, an SDK client is built from
// the default AWS configuration chain.
func New(ctx context.Context, cfg Config, opts ...Option) (*Deployer, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	d := &Deployer{
		cfg:    cfg,
		logger: slog.New(slog.DiscardHandler),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.client == nil {
		awsOptions := []func(*config.LoadOptions) error{}
		if cfg.Region != "" {
			awsOptions = append(awsOptions, config.WithRegion(cfg.Region))
		}
		if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
			awsOptions = append(awsOptions, config.WithCredentialsProvider(
				credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
			))
		}

		awsConfig, err := config.LoadDefaultConfig(ctx, awsOptions...)
		if err != nil {
			return nil, fmt.Errorf("%w: loading AWS config: %v", ErrDeployConfig, err)
		}

		d.client = s3aws.NewFromConfig(awsConfig, func(o *s3aws.Options) {
			if cfg.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Endpoint)
			}
			o.UsePathStyle = cfg.PathStyle
		})
	}

	return d, nil
}

func (c Config) validate() error {
	if !bucketPattern.MatchString(c.Bucket) {
		return fmt.Errorf("%w: invalid bucket name %q", ErrDeployConfig, c.Bucket)
	}
	if strings.HasPrefix(c.Prefix, "/") {
		return fmt.Errorf("%w: prefix must not start with '/'", ErrDeployConfig)
	}
	return nil
}

// key returns the object key for a slash-separated relative path.
func (d *Deployer) key(rel string) string {
	if d.cfg.Prefix == "" {
		return rel
	}
	return path.Join(d.cfg.Prefix, rel)
}

// localFile is a file to deploy.
type localFile struct {
	rel  string
	data []byte
	etag string
}

// Sync uploads dir to the bucket. In dry run, the report lists what would
// change and nothing is written.
func (d *Deployer) Sync(ctx context.Context, dir string) (*SyncReport, error) {
	files, err := readLocal(dir)
	if err != nil {
		return nil, err
	}

	remote, err := d.listRemote(ctx)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{BuildID: uuid.NewString(), DryRun: d.cfg.DryRun}
	local := make(map[string]bool, len(files)+1)
	local[d.key(ManifestName)] = true

	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		key := d.key(f.rel)
		local[key] = true

		if remote[key] == f.etag {
			report.Skipped = append(report.Skipped, key)
			d.logger.Debug("unchanged", "key", key)
			continue
		}
		if !d.cfg.DryRun {
			if err := d.put(ctx, key, f.data, contentType(f.rel)); err != nil {
				return report, err
			}
		}
		report.Uploaded = append(report.Uploaded, key)
		d.logger.Info("uploaded", "key", key, "bytes", len(f.data), "dry_run", d.cfg.DryRun)
	}

	if d.cfg.Prune {
		var stale []string
		for key := range remote {
			if !local[key] {
				stale = append(stale, key)
			}
		}
		slices.Sort(stale)
		if !d.cfg.DryRun {
			if err := d.deleteKeys(ctx, stale); err != nil {
				return report, err
			}
		}
		report.Deleted = stale
	}

	if d.cfg.DryRun {
		return report, nil
	}
	if err := d.writeManifest(ctx, report, files); err != nil {
		return report, err
	}
	return report, nil
}

func (d *Deployer) put(ctx context.Context, key string, data []byte, ctype string) error {
	input := &s3aws.PutObjectInput{
		Bucket:      aws.String(d.cfg.Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(ctype),
	}
	if d.cfg.CacheControl != "" {
		input.CacheControl = aws.String(d.cfg.CacheControl)
	}
	if _, err := d.client.PutObject(ctx, input); err != nil {
		return classifyS3Error(err, ErrUpload, "put "+key)
	}
	return nil
}

// listRemote returns the ETag of every object under the prefix, quotes trimmed.
func (d *Deployer) listRemote(ctx context.Context) (map[string]string, error) {
	remote := make(map[string]string)
	input := &s3aws.ListObjectsV2Input{Bucket: aws.String(d.cfg.Bucket)}
	if d.cfg.Prefix != "" {
		input.Prefix = aws.String(strings.TrimSuffix(d.cfg.Prefix, "/") + "/")
	}

	for {
		out, err := d.client.ListObjectsV2(ctx, input)
		if err != nil {
			return nil, classifyS3Error(err, ErrList, "list")
		}
		for _, obj := range out.Contents {
			remote[aws.ToString(obj.Key)] = strings.Trim(aws.ToString(obj.ETag), `"`)
		}
		if !aws.ToBool(out.IsTruncated) || out.NextContinuationToken == nil {
			return remote, nil
		}
		input.ContinuationToken = out.NextContinuationToken
	}
}

func (d *Deployer) deleteKeys(ctx context.Context, keys []string) error {
	for batch := range slices.Chunk(keys, maxDeleteBatch) {
		objects := make([]types.ObjectIdentifier, len(batch))
		for i, key := range batch {
			objects[i] = types.ObjectIdentifier{Key: aws.String(key)}
		}

		out, err := d.client.DeleteObjects(ctx, &s3aws.DeleteObjectsInput{
			Bucket: aws.String(d.cfg.Bucket),
			Delete: &types.Delete{Objects: objects, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return classifyS3Error(err, ErrDelete, "delete")
		}
		if out != nil && len(out.Errors) > 0 {
			first := out.Errors[0]
			return fmt.Errorf("%w: %d keys not deleted, first %s: %s",
				ErrDelete, len(out.Errors), aws.ToString(first.Key), aws.ToString(first.Message))
		}
		for _, key := range batch {
			d.logger.Info("deleted", "key", key)
		}
	}
	return nil
}

func (d *Deployer) writeManifest(ctx context.Context, report *SyncReport, files []localFile) error {
	m := Manifest{BuildID: report.BuildID, CreatedAt: d.now().UTC(), Keys: make([]string, len(files))}
	for i, f := range files {
		m.Keys[i] = d.key(f.rel)
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding manifest: %v", ErrUpload, err)
	}
	return d.put(ctx, d.key(ManifestName), data, "application/json")
}

// readLocal loads every regular file under dir, sorted by path. A local
// manifest.json is ignored since Sync writes its own.
func readLocal(dir string) ([]localFile, error) {
	matches, err := doublestar.Glob(os.DirFS(dir), "**", doublestar.WithFilesOnly())
	if err != nil {
		return nil, fmt.Errorf("%w: scanning %s: %v", ErrUpload, dir, err)
	}
	slices.Sort(matches)

	files := make([]localFile, 0, len(matches))
	for _, rel := range matches {
		if rel == ManifestName {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel))) // #nosec G304 -- rel comes from a glob rooted at dir
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", ErrUpload, rel, err)
		}
		sum := md5.Sum(data) // #nosec G401 -- compared against S3 ETag, not used for security
		files = append(files, localFile{rel: rel, data: data, etag: hex.EncodeToString(sum[:])})
	}
	return files, nil
}

// contentType guesses the MIME type from the file extension.
func contentType(name string) string {
	if t := mime.TypeByExtension(path.Ext(name)); t != "" {
		return t
	}
	return "application/octet-stream"
}
