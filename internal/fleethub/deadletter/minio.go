// Package deadletter archives rejected telemetry in an S3 bucket.
package deadletter

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"k8s.io/utils/clock"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/pkg/log"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

const maxReasonLen = 256

var _ core.DeadLetterSink = (*Archive)(nil)

// Archive stores one object per rejected delivery under
// deadletter/YYYY/MM/DD/<uuid>.json.
type Archive struct {
	client     *minio.Client
	bucketName string
	clock      clock.PassiveClock

	mu          sync.Mutex
	bucketReady bool
}

func NewArchive(opts *options.S3Options) (*Archive, error) {
	minioOpts := &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: opts.UseSSL,
		Region: opts.Region,
	}
	if opts.InsecureSkipVerify {
		minioOpts.Transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	client, err := minio.New(opts.Endpoint, minioOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	return &Archive{
		client:     client,
		bucketName: opts.BucketName,
		clock:      clock.RealClock{},
	}, nil
}

type record struct {
	Topic      string    `json:"topic"`
	Reason     string    `json:"reason"`
	ReceivedAt time.Time `json:"receivedAt"`
	Payload    string    `json:"payload"`
}

func (a *Archive) Archive(ctx context.Context, dl core.DeadLetter) error {
	if err := a.ensureBucket(ctx); err != nil {
		return err
	}

	now := a.clock.Now().UTC()
	body, err := json.Marshal(record{
		Topic:      dl.Topic,
		Reason:     dl.Reason,
		ReceivedAt: now,
		Payload:    string(dl.Payload),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	key := objectKey(now, uuid.New())
	_, err = a.client.PutObject(ctx, a.bucketName, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType: "application/json",
		UserMetadata: map[string]string{
			"topic":  dl.Topic,
			"reason": truncate(dl.Reason, maxReasonLen),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}

	log.Debug("Archived rejected message", "bucket", a.bucketName, "key", key)
	return nil
}

// ensureBucket creates the bucket the first time it is needed. A failure is
// retried on the next call.
func (a *Archive) ensureBucket(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.bucketReady {
		return nil
	}

	exists, err := a.client.BucketExists(ctx, a.bucketName)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if !exists {
		log.Info("Bucket does not exist, creating...", "bucket", a.bucketName)
		if err := a.client.MakeBucket(ctx, a.bucketName, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
	}

	a.bucketReady = true
	return nil
}

func objectKey(t time.Time, id uuid.UUID) string {
	return fmt.Sprintf("deadletter/%s/%s.json", t.Format("2006/01/02"), id)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
