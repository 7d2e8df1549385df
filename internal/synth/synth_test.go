package synth

import (
	"slices"
	"testing"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/annel0/sensor-playback/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallOptions() Options {
	opts := DefaultOptions()
	opts.Duration = 0.5
	opts.Width, opts.Height = 16, 12
	opts.EventRate = 400
	opts.FrameRate = 10
	opts.PoseRate = 20
	opts.PointRate = 40
	return opts
}

func TestRecordingStreamsAreValid(t *testing.T) {
	rec := New(smallOptions()).Recording()
	require.NotNil(t, rec.Data)

	var types []string
	for leaf := range registry.Walk(rec.Data) {
		require.NoError(t, leaf.Stream.Validate(), leaf.Path())
		types = append(types, leaf.Path()+":"+leaf.DataType)
	}
	assert.Equal(t, []string{
		"body:imu", "body:point3", "body:pose6q",
		"cam:dvs", "cam:frame",
		"stereo:dvs",
	}, slices.Sorted(slices.Values(types)))
}

func TestDVSStream(t *testing.T) {
	opts := smallOptions()
	s := New(opts).DVS(2)
	assert.Equal(t, 200, s.Len())

	x, _ := s.Ints(recording.FieldX)
	y, _ := s.Ints(recording.FieldY)
	for i := range x {
		assert.True(t, x[i] >= 0 && x[i] < int64(opts.Width))
		assert.True(t, y[i] >= 0 && y[i] < int64(opts.Height))
	}

	ch, ok := s.Ints(recording.FieldCh)
	require.True(t, ok)
	for _, v := range ch {
		assert.Contains(t, []int64{0, 1}, v)
	}
	lbl, ok := s.Ints(recording.FieldLbl)
	require.True(t, ok)
	assert.Contains(t, lbl, int64(-1))
	assert.Contains(t, lbl, int64(1))

	w, _ := s.AttrInt(recording.AttrDimX)
	assert.Equal(t, opts.Width, w)
}

func TestDeterministic(t *testing.T) {
	a := New(smallOptions()).DVS(1)
	b := New(smallOptions()).DVS(1)
	assert.Equal(t, a.Ts, b.Ts)
	assert.Equal(t, a.Columns, b.Columns)

	other := smallOptions()
	other.Seed = 7
	c := New(other).DVS(1)
	assert.NotEqual(t, a.Ts, c.Ts)
}

func TestPoseQuaternionsAreUnit(t *testing.T) {
	s := New(smallOptions()).Pose()
	rot, ok := s.Vectors(recording.FieldRotation)
	require.True(t, ok)
	require.Equal(t, 10, rot.Len())
	for i := 0; i < rot.Len(); i++ {
		q := rot.At(i)
		assert.InDelta(t, 1.0, q[0]*q[0]+q[1]*q[1]+q[2]*q[2]+q[3]*q[3], 1e-9)
	}
}

func TestOptionalStreams(t *testing.T) {
	opts := smallOptions()
	opts.Stereo, opts.WithIMU, opts.Labels = false, false, false
	rec := New(opts).Recording()

	_, ok := rec.Data.Get("stereo")
	assert.False(t, ok)
	body, _ := rec.Data.Get("body")
	_, ok = body.Get("imu")
	assert.False(t, ok)

	cam, _ := rec.Data.Get("cam")
	dvs, _ := cam.Get("dvs")
	_, ok = dvs.Stream().Columns[recording.FieldLbl]
	assert.False(t, ok)
}
