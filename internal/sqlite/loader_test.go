package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/doireg/pkg/types"
)

const (
	recordLine   = `{"identifier":"10.5061/DRYAD.8515","state":"registered","url":"https://example.org","flagged":false,"revision":2,"created_at":"2026-01-01T00:00:00Z","updated_at":"2026-01-02T00:00:00Z","future_field":{"x":1}}`
	snapshotLine = `{"version_id":"v1","identifier":"10.5061/DRYAD.8515","sequence":1,"created_at":"2026-01-01T00:00:00Z","metadata":{"doi":"10.5061/DRYAD.8515","titles":[{"title":"Loaded"}]},"source_format":"bibtex","content_digest":"c1","problems":[{"field":"language","code":"format","message":"bad"}]}`
)

func TestLoad_ToleratesUnknownAndMalformed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, identifiersJSONL),
		[]byte(recordLine+"\n{broken\n"+`{"identifier":"10.5061/NOSTATE"}`+"\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotsJSONL), []byte(snapshotLine+"\n"), 0o644))

	b := attach(t, dir, "")
	ctx := context.Background()

	rec, err := b.Record(ctx, "10.5061/DRYAD.8515")
	require.NoError(t, err)
	assert.Equal(t, types.StateRegistered, rec.State)
	assert.Equal(t, int64(2), rec.Revision)

	_, err = b.Record(ctx, "10.5061/NOSTATE")
	assert.ErrorIs(t, err, types.ErrNotFound, "rows violating constraints are skipped")

	s, err := b.Snapshot(ctx, "10.5061/DRYAD.8515", "v1")
	require.NoError(t, err)
	assert.Equal(t, types.FormatBibTeX, s.SourceFormat)
	assert.Len(t, s.Problems, 1)
}
