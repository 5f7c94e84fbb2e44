package deadletter

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core"
	"github.com/autopeer-io/fleetpulse/pkg/options"
)

func TestObjectKey(t *testing.T) {
	id := uuid.MustParse("6f1c2d3e-0000-4000-8000-000000000001")
	ts := time.Date(2025, 2, 3, 23, 59, 0, 0, time.UTC)

	assert.Equal(t, "deadletter/2025/02/03/6f1c2d3e-0000-4000-8000-000000000001.json", objectKey(ts, id))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Len(t, truncate(strings.Repeat("x", 300), maxReasonLen), maxReasonLen)
}

type upload struct {
	key    string
	body   string
	topic  string
	reason string
}

// fakeS3 answers the bucket and object calls an Archive makes.
type fakeS3 struct {
	mu       sync.Mutex
	bucket   bool
	denyHead bool
	heads    int
	makes    int
	uploads  []upload
}

func (s *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, key, _ := strings.Cut(strings.TrimPrefix(r.URL.Path, "/"), "/")
	switch {
	case r.Method == http.MethodHead && key == "":
		s.heads++
		switch {
		case s.denyHead:
			w.WriteHeader(http.StatusForbidden)
		case s.bucket:
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	case r.Method == http.MethodPut && key == "":
		s.makes++
		s.bucket = true
		w.WriteHeader(http.StatusOK)
	case r.Method == http.MethodPut && bucket == "rejected":
		body, _ := io.ReadAll(r.Body)
		s.uploads = append(s.uploads, upload{
			key:    key,
			body:   string(body),
			topic:  r.Header.Get("X-Amz-Meta-Topic"),
			reason: r.Header.Get("X-Amz-Meta-Reason"),
		})
		w.Header().Set("ETag", `"d41d8cd98f00b204e9800998ecf8427e"`)
		w.WriteHeader(http.StatusOK)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func newArchive(t *testing.T, s3 *fakeS3) *Archive {
	t.Helper()
	srv := httptest.NewServer(s3)
	t.Cleanup(srv.Close)

	a, err := NewArchive(&options.S3Options{
		Endpoint:        strings.TrimPrefix(srv.URL, "http://"),
		AccessKeyID:     "test",
		SecretAccessKey: "testsecret",
		BucketName:      "rejected",
		Region:          "us-east-1",
	})
	require.NoError(t, err)
	a.clock = clocktesting.NewFakePassiveClock(time.Date(2025, 3, 9, 8, 0, 0, 0, time.UTC))
	return a
}

func TestArchiveCreatesBucketOnce(t *testing.T) {
	s3 := &fakeS3{}
	a := newArchive(t, s3)

	dl := core.DeadLetter{
		Topic:   "vehicle/V1/heartbeat",
		Payload: []byte(`{"data":"nope"}`),
		Reason:  "data must be an array",
	}
	require.NoError(t, a.Archive(context.Background(), dl))
	require.NoError(t, a.Archive(context.Background(), dl))

	s3.mu.Lock()
	defer s3.mu.Unlock()
	assert.Equal(t, 1, s3.heads)
	assert.Equal(t, 1, s3.makes)
	require.Len(t, s3.uploads, 2)

	up := s3.uploads[0]
	assert.True(t, strings.HasPrefix(up.key, "deadletter/2025/03/09/"), up.key)
	assert.True(t, strings.HasSuffix(up.key, ".json"), up.key)
	assert.Equal(t, "vehicle/V1/heartbeat", up.topic)
	assert.Equal(t, "data must be an array", up.reason)
	assert.Contains(t, up.body, `"topic":"vehicle/V1/heartbeat"`)
	assert.Contains(t, up.body, `"receivedAt":"2025-03-09T08:00:00Z"`)
	assert.NotEqual(t, s3.uploads[0].key, s3.uploads[1].key)
}

func TestArchiveRetriesBucketCheck(t *testing.T) {
	s3 := &fakeS3{bucket: true, denyHead: true}
	a := newArchive(t, s3)
	dl := core.DeadLetter{Topic: "vehicle/V1/status", Payload: []byte("{"), Reason: "bad json"}

	assert.Error(t, a.Archive(context.Background(), dl))

	s3.mu.Lock()
	s3.denyHead = false
	s3.mu.Unlock()

	require.NoError(t, a.Archive(context.Background(), dl))

	s3.mu.Lock()
	defer s3.mu.Unlock()
	assert.Equal(t, 2, s3.heads)
	assert.Zero(t, s3.makes)
	assert.Len(t, s3.uploads, 1)
}
