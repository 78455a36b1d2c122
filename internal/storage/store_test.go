package storage

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/sigbits/internal/threshold"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTest(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "catalog", "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestCreateRunAndLoad(t *testing.T) {
	st := openTest(t)

	id, err := st.CreateRun(RunMetadata{
		Input:      "output",
		Format:     "float",
		Method:     "cnh",
		Resolution: 0.1,
		Output:     "animation.gif",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	meta, err := st.Load(id)
	require.NoError(t, err)
	assert.Equal(t, "output", meta.Input)
	assert.Equal(t, "float", meta.Format)
	assert.Equal(t, 0.1, meta.Resolution)
	assert.WithinDuration(t, time.Now(), meta.Timestamp, time.Minute)
}

func TestLoadMissing(t *testing.T) {
	st := openTest(t)
	_, err := st.Load("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestAddRecords(t *testing.T) {
	st := openTest(t)
	id, err := st.CreateRun(RunMetadata{Input: "in", Format: "double", Method: "cnh", Resolution: 1})
	require.NoError(t, err)

	recs := []IndexedRecord{
		{Index: 1, Threshold: 0.2, Record: threshold.Record{Z: 0.2, Mean: 0.5, Std: 1e-7, SignificantBits: 21.5, SignificantDigits: 6.47}},
		{Index: 0, Threshold: 0.1, Record: threshold.Record{Z: 0.1, Mean: -0.25, Std: 0, SignificantBits: 52, SignificantDigits: 15.65}},
	}
	require.NoError(t, st.AddRecords(id, recs))

	got, err := st.Records(id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recs[1], got[0])
	assert.Equal(t, recs[0], got[1])

	recs[0].Record.SignificantBits = 20
	require.NoError(t, st.AddRecords(id, recs[:1]))
	got, err = st.Records(id)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 20.0, got[1].Record.SignificantBits)
}

func TestAddRecordsUnknownRun(t *testing.T) {
	st := openTest(t)
	err := st.AddRecords("missing", []IndexedRecord{{Index: 0}})
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListNewestFirst(t *testing.T) {
	st := openTest(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := st.CreateRun(RunMetadata{ID: "old", Input: "a", Format: "float", Method: "cnh", Timestamp: base})
	require.NoError(t, err)
	_, err = st.CreateRun(RunMetadata{ID: "new", Input: "b", Format: "float", Method: "cnh", Timestamp: base.Add(time.Hour)})
	require.NoError(t, err)

	runs, err := st.List()
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, "old", runs[1].ID)
	assert.True(t, runs[1].Timestamp.Equal(base))
}

func TestDeleteCascades(t *testing.T) {
	st := openTest(t)
	id, err := st.CreateRun(RunMetadata{Input: "in", Format: "float", Method: "cnh"})
	require.NoError(t, err)
	require.NoError(t, st.AddRecords(id, []IndexedRecord{{Index: 0, Threshold: 0.5}}))

	require.NoError(t, st.Delete(id))
	recs, err := st.Records(id)
	require.NoError(t, err)
	assert.Empty(t, recs)

	assert.ErrorIs(t, st.Delete(id), ErrRunNotFound)
}

func TestOpenMemory(t *testing.T) {
	st, err := Open(":memory:")
	require.NoError(t, err)
	defer st.Close()

	runs, err := st.List()
	require.NoError(t, err)
	assert.Empty(t, runs)
}
