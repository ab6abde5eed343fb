package diagnostics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRecordCallAccumulates(t *testing.T) {
	r := NewRecorder()
	r.RecordCall("hello", 10*time.Millisecond)
	r.RecordCall("hello", 20*time.Millisecond)
	r.RecordCall("bye", 5*time.Millisecond)

	rep := r.Snapshot()
	assert.Equal(t, uint64(3), rep.Iterations)
	assert.Equal(t, uint64(2), rep.PatternHistogram["hello"])
	assert.Equal(t, uint64(1), rep.PatternHistogram["bye"])
}

func TestSnapshotPercentilesMonotonic(t *testing.T) {
	r := NewRecorder()
	for i := 1; i <= 100; i++ {
		r.RecordCall("m", time.Duration(i)*time.Millisecond)
	}
	rep := r.Snapshot()
	assert.LessOrEqual(t, rep.WallTimePercentiles["p50"], rep.WallTimePercentiles["p90"])
	assert.LessOrEqual(t, rep.WallTimePercentiles["p90"], rep.WallTimePercentiles["p99"])
}

func TestSnapshotEmptyRecorder(t *testing.T) {
	r := NewRecorder()
	rep := r.Snapshot()
	assert.Equal(t, uint64(0), rep.Iterations)
	assert.Equal(t, int64(0), rep.WallTimePercentiles["p50"])
}

func TestReportJSONRoundTrips(t *testing.T) {
	r := NewRecorder()
	r.RecordCall("hello", time.Millisecond)
	r.SampleRSS()
	rep := r.Snapshot()
	b, err := rep.JSON()
	assert.NoError(t, err)
	assert.Contains(t, string(b), "\"iterations\"")
	assert.Contains(t, string(b), "\"rss_samples\"")
}
