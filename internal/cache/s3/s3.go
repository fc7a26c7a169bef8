// Package s3 implements the remote object-store cache backend using the
// AWS SDK for Go.
package s3

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/wireit-go/wireit/internal/cache/archive"
	"github.com/wireit-go/wireit/internal/core/domain"
	"github.com/wireit-go/wireit/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Cache = (*Cache)(nil)

// Cache implements ports.Cache as tar blobs under a bucket/prefix, keyed by
// the sha256 hex of the fingerprint string — mirroring
// internal/cache/local's filename strategy so the two backends are
// interchangeable.
type Cache struct {
	bucket   string
	prefix   string
	client   *s3.S3
	uploader *s3manager.Uploader
	download *s3manager.Downloader
}

// New constructs a Cache using an AWS session built from the ambient
// credential chain (environment, shared config, EC2/ECS role).
func New(bucket, prefix string) (*Cache, error) {
	sess, err := session.NewSession()
	if err != nil {
		return nil, zerr.Wrap(err, "failed to create aws session")
	}
	client := s3.New(sess)
	return &Cache{
		bucket:   bucket,
		prefix:   prefix,
		client:   client,
		uploader: s3manager.NewUploaderWithClient(client),
		download: s3manager.NewDownloaderWithClient(client),
	}, nil
}

func (c *Cache) key(fingerprint string) string {
	sum := sha256.Sum256([]byte(fingerprint))
	return fmt.Sprintf("%s/%s.tar", c.prefix, hex.EncodeToString(sum[:]))
}

// Has implements ports.Cache.
func (c *Cache) Has(ctx context.Context, fingerprint string) (bool, error) {
	_, err := c.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(fingerprint)),
	})
	if err == nil {
		return true, nil
	}
	if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
		return false, nil
	}
	return false, zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
}

// Put implements ports.Cache. outputs is tarred in-memory and streamed up;
// output trees here are small enough (declared build outputs, not arbitrary
// data) that buffering the whole blob is acceptable.
func (c *Cache) Put(ctx context.Context, fingerprint, packageDir string, outputs []string) error {
	var buf bytes.Buffer
	if err := archive.Write(&buf, packageDir, outputs); err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}

	_, err := c.uploader.UploadWithContext(ctx, &s3manager.UploadInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(fingerprint)),
		Body:   bytes.NewReader(buf.Bytes()),
	})
	if err != nil {
		return zerr.Wrap(err, domain.ErrCacheWriteFailed.Error())
	}
	return nil
}

// Restore implements ports.Cache.
func (c *Cache) Restore(ctx context.Context, fingerprint, packageDir string, _ []string) error {
	var buf bytes.Buffer
	_, err := c.download.DownloadWithContext(ctx, writerAtBuffer{&buf}, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(fingerprint)),
	})
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && (aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound") {
			return zerr.Wrap(err, domain.ErrCacheMiss.Error())
		}
		return zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
	}
	if err := archive.Extract(bytes.NewReader(buf.Bytes()), packageDir); err != nil {
		return zerr.Wrap(err, domain.ErrCacheReadFailed.Error())
	}
	return nil
}

// writerAtBuffer adapts a *bytes.Buffer to io.WriterAt for s3manager.Downloader,
// which requires random-access writes but always writes our blobs
// sequentially from offset 0 in practice for objects this small.
type writerAtBuffer struct {
	buf *bytes.Buffer
}

func (w writerAtBuffer) WriteAt(p []byte, off int64) (int, error) {
	if int64(w.buf.Len()) < off {
		w.buf.Write(make([]byte, off-int64(w.buf.Len())))
	}
	return w.buf.Write(p)
}

var _ io.WriterAt = writerAtBuffer{}
