// Package archive renders an enriched case to a benefits-summary document
// and stores it for downstream form-filling and outreach. It only ever
// reads a record; the ledger is never written from here.
package archive

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"second-chance-agents/internal/models"
)

// Uploader stores one rendered document under a key and returns its location.
type Uploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

// Archiver writes one summary document per enriched record.
type Archiver struct {
	uploader Uploader
}

func NewArchiver(uploader Uploader) *Archiver {
	return &Archiver{uploader: uploader}
}

// Archive renders and stores the summary for rec. Only enriched records
// carry an outcome worth archiving.
func (a *Archiver) Archive(ctx context.Context, rec models.Record) (string, error) {
	if rec.Status != models.StatusEnriched || rec.Outcome == nil {
		return "", fmt.Errorf("archive: record %s is not enriched", rec.IdentityKey)
	}
	body := RenderSummary(rec)
	return a.uploader.Upload(ctx, keyFor(rec), []byte(body), "text/plain; charset=utf-8")
}

// keyFor derives a stable, filesystem-safe document key from the identity
// key, so re-archiving a record overwrites rather than accumulates.
func keyFor(rec models.Record) string {
	sum := sha256.Sum256([]byte(rec.IdentityKey))
	return fmt.Sprintf("case-%s.txt", hex.EncodeToString(sum[:8]))
}

// RenderSummary produces the plain-text case document.
func RenderSummary(rec models.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Benefit eligibility summary\n")
	fmt.Fprintf(&b, "Source: %s\n", rec.IdentityKey)
	if rec.Title != "" {
		fmt.Fprintf(&b, "Post: %s\n", rec.Title)
	}
	fmt.Fprintf(&b, "Region: %s\n", rec.Outcome.Region)
	fmt.Fprintf(&b, "Estimated total: $%.2f\n\n", rec.Outcome.Amount)

	programs := append([]string(nil), rec.Outcome.Programs...)
	sort.Strings(programs)
	for _, program := range programs {
		fmt.Fprintf(&b, "  %-12s $%.2f\n", program, rec.Outcome.Breakdown[program])
	}
	return b.String()
}

// LocalUploader writes documents under a base directory.
type LocalUploader struct {
	baseDir string
}

func NewLocalUploader(baseDir string) *LocalUploader {
	return &LocalUploader{baseDir: baseDir}
}

func (l *LocalUploader) Upload(_ context.Context, key string, body []byte, _ string) (string, error) {
	path := filepath.Join(l.baseDir, key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create dirs: %w", err)
	}
	if err := os.WriteFile(path, body, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	return path, nil
}

// NewS3Client loads AWS configuration from the ambient environment.
func NewS3Client(ctx context.Context) (*s3.Client, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(awsCfg), nil
}

// S3Uploader stores documents in an S3 bucket.
type S3Uploader struct {
	client *s3.Client
	bucket string
}

func NewS3Uploader(client *s3.Client, bucket string) *S3Uploader {
	return &S3Uploader{client: client, bucket: bucket}
}

func (u *S3Uploader) Upload(ctx context.Context, key string, body []byte, contentType string) (string, error) {
	_, err := u.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(u.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put s3 object: %w", err)
	}
	return fmt.Sprintf("s3://%s/%s", u.bucket, key), nil
}
