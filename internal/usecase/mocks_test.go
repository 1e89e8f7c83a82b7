package usecase_test

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/ev-tile-publisher/internal/domain"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/mock"
)

type MockConverter struct {
	mock.Mock
}

func (m *MockConverter) Convert(ctx context.Context, item domain.ConversionItem) domain.ConversionResult {
	args := m.Called(ctx, item)
	return args.Get(0).(domain.ConversionResult)
}

type MockRunRepository struct {
	mock.Mock
}

func (m *MockRunRepository) Save(ctx context.Context, report *domain.RunReport) error {
	args := m.Called(ctx, report)
	return args.Error(0)
}

func (m *MockRunRepository) Recent(ctx context.Context, limit int) ([]domain.RunReport, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RunReport), args.Error(1)
}

func (m *MockRunRepository) Get(ctx context.Context, id string) (*domain.RunReport, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RunReport), args.Error(1)
}

type MockCacheRepository struct {
	mock.Mock
}

func (m *MockCacheRepository) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockCacheRepository) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockCacheRepository) GetArchives(ctx context.Context) (*domain.ArchiveInventory, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ArchiveInventory), args.Error(1)
}

func (m *MockCacheRepository) SetArchives(ctx context.Context, inv *domain.ArchiveInventory, ttl time.Duration) error {
	args := m.Called(ctx, inv, ttl)
	return args.Error(0)
}

func (m *MockCacheRepository) InvalidateArchives(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// copyReprojector stands in for ogr2ogr: it copies the input unchanged.
type copyReprojector struct {
	requests []domain.ReprojectRequest
	err      error
}

func (r *copyReprojector) Reproject(_ context.Context, req domain.ReprojectRequest) error {
	r.requests = append(r.requests, req)
	if r.err != nil {
		return r.err
	}
	in, err := os.Open(req.Input)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(req.Output)
	if err != nil {
		return err
	}
	defer out.Close()
	_, err = io.Copy(out, in)
	return err
}

// recordingCompiler stands in for tippecanoe: it decodes the interchange
// file and writes a small placeholder archive.
type recordingCompiler struct {
	requests []domain.TileBuildRequest
	features []*geojson.Feature
	skip     bool
	err      error
}

var archiveBytes = []byte("PMTiles\x03")

func (c *recordingCompiler) Build(_ context.Context, req domain.TileBuildRequest) error {
	c.requests = append(c.requests, req)
	if c.err != nil {
		return c.err
	}

	file, err := os.Open(req.Input)
	if err != nil {
		return err
	}
	defer file.Close()

	sc := bufio.NewScanner(file)
	sc.Buffer(make([]byte, 0, 1<<16), 1<<24)
	for sc.Scan() {
		var f geojson.Feature
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			return err
		}
		c.features = append(c.features, &f)
	}
	if err := sc.Err(); err != nil {
		return err
	}

	if c.skip {
		return nil
	}
	return os.WriteFile(req.Output, archiveBytes, 0o644)
}

type MockStreamRepository struct {
	mock.Mock
}

func (m *MockStreamRepository) ConsumeStream(ctx context.Context, stream, group, consumer string) (<-chan domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(<-chan domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) ConsumeBatch(ctx context.Context, stream, group, consumer string, count int64) ([]domain.StreamMessage, error) {
	args := m.Called(ctx, stream, group, consumer, count)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StreamMessage), args.Error(1)
}

func (m *MockStreamRepository) AckMessage(ctx context.Context, stream, group, messageID string) error {
	args := m.Called(ctx, stream, group, messageID)
	return args.Error(0)
}

func (m *MockStreamRepository) CreateConsumerGroup(ctx context.Context, stream, group string) error {
	args := m.Called(ctx, stream, group)
	return args.Error(0)
}

func (m *MockStreamRepository) PublishToStream(ctx context.Context, stream string, data interface{}) error {
	args := m.Called(ctx, stream, data)
	return args.Error(0)
}

type stubKeyLister struct {
	keys []string
	err  error
}

func (s stubKeyLister) AvailableKeys(context.Context) ([]string, error) {
	return s.keys, s.err
}
