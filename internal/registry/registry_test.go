package registry

import (
	"fmt"
	"math/rand"
	"slices"
	"testing"

	"github.com/annel0/sensor-playback/internal/recording"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stream(ts ...float64) *recording.Stream { return recording.NewStream(ts) }

func TestDiscover_Scenario(t *testing.T) {
	c := recording.NewKeyed().
		Set("chA", recording.NewKeyed().Set("dvs", recording.NewLeaf(stream(0, 10)))).
		Set("chB", recording.NewKeyed().Set("frame", recording.NewLeaf(stream(5, 15))))

	var entries []Entry
	for e := range Discover(c) {
		entries = append(entries, e)
	}

	require.Len(t, entries, 2)
	assert.Equal(t, "chA", entries[0].Path)
	assert.Equal(t, DataTypeDVS, entries[0].DataType)
	assert.Equal(t, "chB", entries[1].Path)
	assert.Equal(t, DataTypeFrame, entries[1].DataType)
}

func TestDiscover_NestedListsAndUnsupported(t *testing.T) {
	seg := func() *recording.Container {
		return recording.NewKeyed().
			Set("left", recording.NewKeyed().
				Set("dvs", recording.NewLeaf(stream(0))).
				Set("imu", recording.NewLeaf(stream(0))).
				Set("pose6q", recording.NewLeaf(stream(1))))
	}
	c := recording.NewKeyed().Set("session", recording.NewIndexed(seg(), seg()))

	var skipped []Unsupported
	var paths []string
	for e := range Discover(c, OnUnsupported(func(u Unsupported) { skipped = append(skipped, u) })) {
		paths = append(paths, e.Path+":"+e.DataType)
	}

	assert.Equal(t, []string{
		"session/0/left:dvs", "session/0/left:pose6q",
		"session/1/left:dvs", "session/1/left:pose6q",
	}, paths)
	assert.Equal(t, []Unsupported{
		{Path: "session/0/left", DataType: "imu"},
		{Path: "session/1/left", DataType: "imu"},
	}, skipped, "неподдерживаемые типы сообщаются, но не прерывают обход")
}

func TestDiscover_Restartable(t *testing.T) {
	c := recording.NewKeyed().Set("ch", recording.NewKeyed().Set("point3", recording.NewLeaf(stream(0))))
	seq := Discover(c)

	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 1, count())
	assert.Equal(t, 1, count(), "каждый проход обходит контейнер заново")
}

func TestDiscover_EarlyBreak(t *testing.T) {
	c := recording.NewKeyed()
	for i := 0; i < 5; i++ {
		c.Set(fmt.Sprintf("ch%d", i), recording.NewKeyed().Set("dvs", recording.NewLeaf(stream(0))))
	}

	n := 0
	for range Discover(c) {
		n++
		if n == 2 {
			break
		}
	}
	assert.Equal(t, 2, n)
}

// randomContainer строит случайную вложенность и возвращает число листьев и распознанных листьев
func randomContainer(rng *rand.Rand, depth int, names []string) (*recording.Container, int, int) {
	if depth == 0 || rng.Intn(4) == 0 {
		return recording.NewLeaf(stream(float64(rng.Intn(10)))), 1, 0
	}
	if rng.Intn(3) == 0 {
		list := recording.NewIndexed()
		total, rec := 0, 0
		for i := 0; i < 1+rng.Intn(3); i++ {
			child, n, r := randomContainer(rng, depth-1, names)
			// Лист внутри списка не имеет имени типа данных и не распознаётся
			if child.Kind() == recording.KindLeaf {
				r = 0
			}
			list.Append(child)
			total += n
			rec += r
		}
		return list, total, rec
	}
	node := recording.NewKeyed()
	total, rec := 0, 0
	for i := 0; i < 1+rng.Intn(4); i++ {
		key := names[rng.Intn(len(names))]
		if _, exists := node.Get(key); exists {
			continue
		}
		child, n, r := randomContainer(rng, depth-1, names)
		if child.Kind() == recording.KindLeaf && IsRecognized(key) {
			r = 1
		}
		node.Set(key, child)
		total += n
		rec += r
	}
	return node, total, rec
}

func TestWalk_Totality(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	names := []string{"dvs", "frame", "pose6q", "point3", "imu", "audio", "chA", "chB"}

	for iter := 0; iter < 100; iter++ {
		c, total, rec := randomContainer(rng, 5, names)

		var seen []*recording.Stream
		for leaf := range Walk(c) {
			require.False(t, slices.Contains(seen, leaf.Stream), "лист посещён дважды")
			seen = append(seen, leaf.Stream)
		}
		assert.Len(t, seen, total, "каждый лист посещается ровно один раз")

		found := 0
		for e := range Discover(c) {
			assert.True(t, IsRecognized(e.DataType))
			found++
		}
		assert.Equal(t, rec, found)
	}
}

func TestRecognizedTypes(t *testing.T) {
	assert.ElementsMatch(t, []string{"dvs", "frame", "pose6q", "point3"}, RecognizedTypes())
	assert.False(t, IsRecognized("imu"))
	assert.False(t, IsRecognized(""))
}
