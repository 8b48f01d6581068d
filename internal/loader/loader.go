package loader

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"time"

	"github.com/quantfold/pipeline/internal/calendar"
	"github.com/quantfold/pipeline/internal/dataset"
)

// Loader provides raw values for underlying columns.
//
// Load returns one row per requested session in order, each row holding
// one value per asset in the order reported by Sids. Sessions the loader
// has no data for are filled with the column's missing value. Columns are
// always the unspecialized form; resolving specializations is the
// caller's job.
type Loader interface {
	// Sids returns the asset universe, sorted ascending.
	Sids(ctx context.Context) ([]int64, error)

	// Load fetches values for one column over the given sessions.
	Load(ctx context.Context, col *dataset.Column, sessions []time.Time) ([][]float64, error)
}

// SeededLoader produces deterministic pseudo-random values as a pure
// function of (seed, column, session, asset). There is no stored state:
// any two requests that overlap agree exactly on the overlapping cells.
type SeededLoader struct {
	seed uint64
	sids []int64
}

// NewSeededLoader creates a loader over a fixed asset universe.
func NewSeededLoader(seed uint64, sids ...int64) *SeededLoader {
	copied := make([]int64, len(sids))
	copy(copied, sids)
	return &SeededLoader{seed: seed, sids: copied}
}

// Sids implements Loader.
func (l *SeededLoader) Sids(ctx context.Context) ([]int64, error) {
	out := make([]int64, len(l.sids))
	copy(out, l.sids)
	return out, nil
}

// Load implements Loader.
func (l *SeededLoader) Load(ctx context.Context, col *dataset.Column, sessions []time.Time) ([][]float64, error) {
	name := col.QualifiedName()
	out := make([][]float64, len(sessions))
	for i, session := range sessions {
		row := make([]float64, len(l.sids))
		for a, sid := range l.sids {
			row[a] = l.value(name, session, sid)
		}
		out[i] = row
	}
	return out, nil
}

// value hashes the cell coordinates into [0, 10).
func (l *SeededLoader) value(name string, session time.Time, sid int64) float64 {
	h := fnv.New64a()
	var buf [8]byte

	binary.BigEndian.PutUint64(buf[:], l.seed)
	h.Write(buf[:])
	h.Write([]byte(name))
	binary.BigEndian.PutUint64(buf[:], uint64(calendar.Date(session).Unix()))
	h.Write(buf[:])
	binary.BigEndian.PutUint64(buf[:], uint64(sid))
	h.Write(buf[:])

	return float64(h.Sum64()%100000) / 10000.0
}
