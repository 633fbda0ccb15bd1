package store

import (
	"bytes"
	"context"
	"io"
	"math/rand/v2"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiw9761/GAIN/core/model"
	"github.com/kiw9761/GAIN/neural"
	"github.com/kiw9761/GAIN/pkg/errors"
)

func testCheckpoint(dim, iterations int) *model.Checkpoint {
	rng := rand.New(rand.NewPCG(uint64(dim), uint64(iterations)))
	g := neural.NewImputationNetwork(rng, dim)
	d := neural.NewImputationNetwork(rng, dim)
	return &model.Checkpoint{
		ModelType:     model.CheckpointModelType,
		Version:       model.CheckpointVersion,
		RunID:         "test-run",
		Dim:           dim,
		Iterations:    iterations,
		CreatedAt:     time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC),
		Generator:     g.Snapshot(),
		Discriminator: d.Snapshot(),
	}
}

// runStoreContract checks the behaviour every backend shares.
func runStoreContract(t *testing.T, s model.CheckpointStore) {
	t.Helper()
	ctx := context.Background()

	_, err := s.Load(ctx, "absent")
	assert.True(t, errors.Is(err, errors.ErrCheckpointNotFound), "got %v", err)

	cp := testCheckpoint(3, 10)
	require.NoError(t, s.Save(ctx, "letter", cp))

	got, err := s.Load(ctx, "letter")
	require.NoError(t, err)
	assert.Equal(t, cp.Generator, got.Generator)
	assert.Equal(t, cp.Discriminator, got.Discriminator)
	assert.Equal(t, 10, got.Iterations)
	assert.True(t, cp.CreatedAt.Equal(got.CreatedAt))

	// Overwrite
	require.NoError(t, s.Save(ctx, "letter", testCheckpoint(3, 20)))
	got, err = s.Load(ctx, "letter")
	require.NoError(t, err)
	assert.Equal(t, 20, got.Iterations)

	// Invalid keys and checkpoints are rejected.
	assert.Error(t, s.Save(ctx, "../escape", cp))
	bad := testCheckpoint(3, 1)
	bad.Dim = 4
	assert.Error(t, s.Save(ctx, "bad", bad))
}

func TestFileStore(t *testing.T) {
	s := NewFileStore(t.TempDir())
	runStoreContract(t, s)

	_, err := os.Stat(s.Path("letter"))
	assert.NoError(t, err)
}

func TestFileStoreCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewFileStore(t.TempDir())
	assert.ErrorIs(t, s.Save(ctx, "k", testCheckpoint(2, 1)), context.Canceled)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	runStoreContract(t, s)
	assert.ElementsMatch(t, []string{"letter"}, s.Keys())
}

func TestMemoryStoreCopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	cp := testCheckpoint(2, 5)
	require.NoError(t, s.Save(ctx, "k", cp))

	cp.Generator.Layers[0].Weights.Data[0] = 1234
	got, err := s.Load(ctx, "k")
	require.NoError(t, err)
	assert.NotEqual(t, 1234.0, got.Generator.Layers[0].Weights.Data[0])
}

type fakeS3 struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newFakeS3() *fakeS3 {
	return &fakeS3{objects: make(map[string][]byte)}
}

func (f *fakeS3) Upload(in *s3manager.UploadInput, opts ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	return f.UploadWithContext(context.Background(), in, opts...)
}

func (f *fakeS3) UploadWithContext(_ aws.Context, in *s3manager.UploadInput, _ ...func(*s3manager.Uploader)) (*s3manager.UploadOutput, error) {
	data, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)] = data
	return &s3manager.UploadOutput{}, nil
}

func (f *fakeS3) Download(w io.WriterAt, in *s3.GetObjectInput, opts ...func(*s3manager.Downloader)) (int64, error) {
	return f.DownloadWithContext(context.Background(), w, in, opts...)
}

func (f *fakeS3) DownloadWithContext(_ aws.Context, w io.WriterAt, in *s3.GetObjectInput, _ ...func(*s3manager.Downloader)) (int64, error) {
	f.mu.Lock()
	data, ok := f.objects[aws.StringValue(in.Bucket)+"/"+aws.StringValue(in.Key)]
	f.mu.Unlock()
	if !ok {
		return 0, awserr.New(s3.ErrCodeNoSuchKey, "The specified key does not exist.", nil)
	}
	n, err := w.WriteAt(data, 0)
	return int64(n), err
}

func TestS3Store(t *testing.T) {
	fake := newFakeS3()
	s := NewS3StoreWith(fake, fake, "models", "gain/")
	runStoreContract(t, s)

	raw, ok := fake.objects["models/gain/letter.json"]
	require.True(t, ok)
	assert.True(t, bytes.Contains(raw, []byte(`"model_type":"GAIN"`)))
}

func TestS3StoreLive(t *testing.T) {
	bucket := os.Getenv("GAIN_TEST_S3_BUCKET")
	if bucket == "" {
		t.Skip("GAIN_TEST_S3_BUCKET not set")
	}
	s, err := NewS3Store(Config{
		Bucket:         bucket,
		Region:         os.Getenv("AWS_REGION"),
		Endpoint:       os.Getenv("GAIN_TEST_S3_ENDPOINT"),
		ForcePathStyle: true,
		Prefix:         "gain-test-" + time.Now().Format("20060102150405") + "/",
	})
	require.NoError(t, err)
	runStoreContract(t, s)
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("GAIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GAIN_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	prefix := "gain-test-" + time.Now().Format("20060102150405") + ":"
	s, err := NewRedisStore(ctx, Config{RedisAddr: addr, Prefix: prefix, TTL: time.Minute})
	require.NoError(t, err)
	defer s.Close()

	runStoreContract(t, s)

	ttl, err := s.client.TTL(ctx, prefix+"letter").Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

func TestRedisStoreUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := NewRedisStore(ctx, Config{RedisAddr: "127.0.0.1:1"})
	assert.Error(t, err)
}

func TestRedisStoreFromClientMissingKey(t *testing.T) {
	addr := os.Getenv("GAIN_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("GAIN_TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	s := NewRedisStoreFromClient(client, "gain-test-missing:", 0)
	defer s.Close()
	_, err := s.Load(context.Background(), "nothing-here")
	assert.True(t, errors.Is(err, errors.ErrCheckpointNotFound))
}

func TestNew(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     Config
		want    interface{}
		wantErr bool
	}{
		{"default file", Config{Dir: t.TempDir()}, &FileStore{}, false},
		{"memory", Config{Type: TypeMemory}, &MemoryStore{}, false},
		{"s3 without bucket", Config{Type: TypeS3}, nil, true},
		{"redis without addr", Config{Type: TypeRedis}, nil, true},
		{"unknown", Config{Type: "ftp"}, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(ctx, tt.cfg)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, s)
		})
	}
}

func TestValidateKey(t *testing.T) {
	for _, key := range []string{"", "a/b", `a\b`, "..", "x..y"} {
		assert.Error(t, validateKey("op", key), key)
	}
	for _, key := range []string{"letter", "new_data_051", "spam.v2"} {
		assert.NoError(t, validateKey("op", key), key)
	}
}
