// Where: internal/publish/publisher.go
// What: Publish rendered artifacts and build state to shared CI storage.
// Why: Let pipelines and maintainers see what was rendered and built last.
package publish

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

// S3API is the object storage surface the publisher needs.
type S3API interface {
	ListBuckets(ctx context.Context) ([]string, error)
	CreateBucket(ctx context.Context, name string) error
	PutObject(ctx context.Context, bucket, key string, body []byte) error
}

// StateAPI is the build-state table surface the publisher needs.
type StateAPI interface {
	ListTables(ctx context.Context) ([]string, error)
	CreateTable(ctx context.Context, name string) error
	PutRecord(ctx context.Context, table string, record BuildRecord) error
}

// BuildRecord is one row of variant build state.
type BuildRecord struct {
	RunID              string
	Variant            string
	ImageRef           string
	ComputeTarget      string
	PrimarySource      string
	DependenciesSource string
	PublishedAt        string
}

// Request carries everything one publish run needs.
type Request struct {
	Bucket    string
	Table     string
	Prefix    string
	Artifacts map[string][]byte
	Records   []BuildRecord
}

// Publisher uploads artifacts and records build state.
type Publisher struct {
	s3    S3API
	state StateAPI
	now   func() time.Time
	newID func() string
}

// New creates a Publisher over the given storage APIs.
func New(s3 S3API, state StateAPI) *Publisher {
	return &Publisher{
		s3:    s3,
		state: state,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Publish runs one publish: ensure storage exists, upload artifacts under a
// fresh run id, and record per-variant state. Returns the run id.
func (p *Publisher) Publish(ctx context.Context, req Request, out io.Writer) (string, error) {
	if out == nil {
		out = io.Discard
	}
	if strings.TrimSpace(req.Bucket) == "" {
		return "", fmt.Errorf("artifact bucket is required")
	}

	runID := p.newID()
	publishedAt := p.now().UTC().Format(time.RFC3339)

	if err := p.ensureBucket(ctx, req.Bucket, out); err != nil {
		return "", err
	}
	for name, body := range req.Artifacts {
		key := path.Join(req.Prefix, runID, name)
		if err := p.s3.PutObject(ctx, req.Bucket, key, body); err != nil {
			return "", fmt.Errorf("upload %s: %w", key, err)
		}
		fmt.Fprintf(out, "Uploaded s3://%s/%s\n", req.Bucket, key)
	}

	if strings.TrimSpace(req.Table) == "" || len(req.Records) == 0 {
		return runID, nil
	}
	if err := p.ensureTable(ctx, req.Table, out); err != nil {
		return "", err
	}
	for _, record := range req.Records {
		record.RunID = runID
		record.PublishedAt = publishedAt
		if err := p.state.PutRecord(ctx, req.Table, record); err != nil {
			return "", fmt.Errorf("record state for %s: %w", record.Variant, err)
		}
	}
	fmt.Fprintf(out, "Recorded %d variant(s) in table %s\n", len(req.Records), req.Table)
	return runID, nil
}

func (p *Publisher) ensureBucket(ctx context.Context, bucket string, out io.Writer) error {
	names, err := p.s3.ListBuckets(ctx)
	if err != nil {
		return fmt.Errorf("list buckets: %w", err)
	}
	for _, name := range names {
		if name == bucket {
			return nil
		}
	}
	if err := p.s3.CreateBucket(ctx, bucket); err != nil {
		return fmt.Errorf("create bucket %s: %w", bucket, err)
	}
	fmt.Fprintf(out, "Created bucket %s\n", bucket)
	return nil
}

func (p *Publisher) ensureTable(ctx context.Context, table string, out io.Writer) error {
	names, err := p.state.ListTables(ctx)
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}
	for _, name := range names {
		if name == table {
			return nil
		}
	}
	if err := p.state.CreateTable(ctx, table); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}
	fmt.Fprintf(out, "Created table %s\n", table)
	return nil
}
