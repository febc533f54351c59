package manifest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethpandaops/assetoor/pkg/config"
	"github.com/ethpandaops/assetoor/pkg/upload"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	t.Helper()

	s := NewStore(logrus.New(), &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{
			Path: filepath.Join(t.TempDir(), "manifest.db"),
		},
	})

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() { _ = s.Stop() })

	return s
}

func TestStore_RecordAndList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	results := []upload.Result{
		{Key: "a.css", ObjectURL: "https://backend/a.css", Batch: 1, Bytes: 10, Duration: 20 * time.Millisecond},
		{Key: "b.css", Err: errors.New("AccessDenied")},
	}

	err := s.Record(ctx, "run-1", "assets", results, func(key string) string {
		return "https://assets.cdn.example.com/" + key
	})
	require.NoError(t, err)

	require.NoError(t, s.Record(ctx, "run-2", "assets", results[:1], nil))

	rows, err := s.ListRun(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, StatusUploaded, rows[0].Status)
	assert.Equal(t, "https://assets.cdn.example.com/a.css", rows[0].PublicURL)
	assert.Equal(t, int64(20), rows[0].DurationMS)
	assert.Equal(t, "assets", rows[0].Bucket)

	assert.Equal(t, StatusFailed, rows[1].Status)
	assert.Equal(t, "AccessDenied", rows[1].Error)
	assert.Empty(t, rows[1].PublicURL)

	rows, err = s.ListRun(ctx, "run-2")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].PublicURL)
}

func TestStore_RecordEmpty(t *testing.T) {
	s := newTestStore(t)

	require.NoError(t, s.Record(context.Background(), "run", "b", nil, nil))

	rows, err := s.ListRun(context.Background(), "run")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestStore_UnsupportedDriver(t *testing.T) {
	s := NewStore(logrus.New(), &config.DatabaseConfig{Driver: "mysql"})

	err := s.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported database driver")
	assert.NoError(t, s.Stop())
}

func TestStore_NotStarted(t *testing.T) {
	s := NewStore(logrus.New(), &config.DatabaseConfig{
		Driver: "sqlite",
		SQLite: config.SQLiteDatabaseConfig{Path: filepath.Join(t.TempDir(), "manifest.db")},
	})

	err := s.Record(context.Background(), "run", "b", []upload.Result{{Key: "a"}}, nil)
	assert.ErrorIs(t, err, ErrNotStarted)

	_, err = s.ListRun(context.Background(), "run")
	assert.ErrorIs(t, err, ErrNotStarted)

	assert.NoError(t, s.Stop())
}
