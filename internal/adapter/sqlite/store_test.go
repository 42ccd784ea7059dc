package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oceanobs/imma-etl/internal/imma"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "prov.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testProv() imma.Provenance {
	return imma.Provenance{
		SourcePath:      "data/incoming/IMMA1_R3.0.0T_1985-01",
		Checksum:        "0db7240d2b8d9b7827de4311b92ee8d8",
		TotalRecords:    1204,
		RejectedRecords: 3,
		SealedAt:        time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_SeenAfterRecord(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	prov := testProv()

	seen, err := s.Seen(ctx, prov.Checksum)
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, s.Record(ctx, prov))

	seen, err = s.Seen(ctx, prov.Checksum)
	require.NoError(t, err)
	assert.True(t, seen)
}

func TestStore_LookupRoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	prov := testProv()
	require.NoError(t, s.Record(ctx, prov))

	got, err := s.Lookup(ctx, prov.Checksum)
	require.NoError(t, err)
	assert.Equal(t, prov, got)
}

func TestStore_RecordUpsertsOnSameChecksum(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	prov := testProv()
	require.NoError(t, s.Record(ctx, prov))

	// Same bytes rediscovered under a new name.
	prov.SourcePath = "data/incoming/IMMA1_R3.0.0T_1985-01.copy"
	require.NoError(t, s.Record(ctx, prov))

	got, err := s.Lookup(ctx, prov.Checksum)
	require.NoError(t, err)
	assert.Equal(t, prov.SourcePath, got.SourcePath)
}

func TestStore_LookupUnknownChecksum(t *testing.T) {
	s := testStore(t)
	_, err := s.Lookup(context.Background(), "missing")
	assert.Error(t, err)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prov.db")
	ctx := context.Background()
	prov := testProv()

	s, err := NewStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Record(ctx, prov))
	require.NoError(t, s.Close())

	s, err = NewStore(path)
	require.NoError(t, err)
	defer s.Close()

	seen, err := s.Seen(ctx, prov.Checksum)
	require.NoError(t, err)
	assert.True(t, seen)
}
