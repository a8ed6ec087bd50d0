package lazy

import (
	"cmp"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

type waypoint struct {
	class int
	name  string
}

func TestArray_Basics(t *testing.T) {
	arr := FromSlice([]int{10, 20, 30}, []int32{2, -1, 0}, -7)

	require.Equal(t, 3, arr.Len())
	v, ok := arr.Get(0)
	require.True(t, ok)
	require.Equal(t, 30, v)

	v, ok = arr.Get(1)
	require.False(t, ok)
	require.Equal(t, -7, v)
	require.Equal(t, -7, arr.At(1))

	_, ok = arr.Get(10)
	require.False(t, ok)

	require.Equal(t, []int{30, -7, 10}, arr.Collect())

	item, ok := arr.Item(1)
	require.False(t, ok)
	require.Nil(t, item)
}

func TestArray_GetterIsShared(t *testing.T) {
	calls := 0
	arr := New(func(p int) int {
		calls++
		return p * p
	}, 5)

	rev := arr.Reverse().Slice(1, 3)
	require.Equal(t, 0, calls)
	require.Equal(t, []int{9, 4}, rev.Collect())
	require.Equal(t, 2, calls)
}

func TestView_Composes(t *testing.T) {
	base := FromSlice([]string{"a", "b", "c", "d"}, []int32{3, 2, 1, 0}, "")
	view := View(base, []int32{0, 2, -1, 9})

	require.Equal(t, []int32{3, 1, -1, -1}, view.IndexMap())
	require.Equal(t, []string{"d", "b", "", ""}, view.Collect())
}

func TestMap_IsLazy(t *testing.T) {
	calls := 0
	arr := FromSlice([]int{1, 2, 3}, []int32{0, -1, 2}, 0)
	doubled := Map(arr, func(v int) int {
		calls++
		return v * 2
	})

	require.Equal(t, 0, calls)
	require.Equal(t, 6, doubled.At(2))
	require.Equal(t, 6, doubled.At(2))
	require.Equal(t, 2, calls)

	_, ok := doubled.Get(1)
	require.False(t, ok)
}

func TestFilter(t *testing.T) {
	arr := FromSlice([]int{5, 6, 7, 8}, nil, 0)
	even := arr.Filter(func(v int) bool { return v%2 == 0 })

	require.Equal(t, []int{6, 8}, even.Collect())
	require.Equal(t, []int32{1, 3}, even.IndexMap())
}

func TestSort_Stable(t *testing.T) {
	data := []waypoint{
		{2, "d"}, {1, "b"}, {2, "a"}, {1, "c"}, {3, "e"}, {1, "a"},
	}
	arr := FromSlice(data, nil, waypoint{})

	byName := func(x, y waypoint) int { return strings.Compare(x.name, y.name) }
	byClass := func(x, y waypoint) int { return cmp.Compare(x.class, y.class) }

	twoStage := arr.Sort(byName).Sort(byClass)
	composite := arr.Sort(func(x, y waypoint) int {
		if c := byClass(x, y); c != 0 {
			return c
		}
		return byName(x, y)
	})

	require.Equal(t, composite.Collect(), twoStage.Collect())
	require.Equal(t, []waypoint{{1, "a"}, {1, "b"}, {1, "c"}, {2, "a"}, {2, "d"}, {3, "e"}}, twoStage.Collect())
}

func TestSort_TiesKeepOrder(t *testing.T) {
	arr := FromSlice([]int{3, 1, 2, 1, 3}, nil, 0)
	allEqual := arr.Sort(func(int, int) int { return 0 })
	require.Equal(t, []int32{0, 1, 2, 3, 4}, allEqual.IndexMap())
}

func TestSort_SharesGetter(t *testing.T) {
	calls := 0
	arr := New(func(i int) int { calls++; return 10 - i }, 5)

	sorted := arr.Sort(cmp.Compare[int])
	require.Equal(t, 5, calls)
	require.Equal(t, []int32{4, 3, 2, 1, 0}, sorted.IndexMap())

	// reads go through the original getter
	require.Equal(t, 6, sorted.At(0))
	require.Equal(t, 6, calls)
}

func TestReverseSliceDuplicate(t *testing.T) {
	arr := FromSlice([]int{1, 2, 3, 4}, nil, 0)

	require.Equal(t, []int{4, 3, 2, 1}, arr.Reverse().Collect())
	require.Equal(t, []int{1, 2, 3, 4}, arr.Collect(), "reverse must not touch the source")

	require.Equal(t, []int{2, 3}, arr.Slice(1, 3).Collect())
	require.Equal(t, []int{3, 4}, arr.Slice(2, 100).Collect())
	require.Empty(t, arr.Slice(3, 1).Collect())

	require.Equal(t, []int{1, 1, 3, 3, 3}, arr.Duplicate([]int{2, 0, 3}).Collect())
}

func TestDropNull(t *testing.T) {
	arr := FromSlice([]int{1, 2, 3}, []int32{-1, 0, -1, 2}, 0)
	require.Equal(t, []int{1, 3}, arr.DropNull().Collect())
}

func TestDropNulls_MultiArray(t *testing.T) {
	a := FromSlice([]string{"a0", "a1", "a2", "a3"}, []int32{0, 1, -1, 3}, "")
	b := FromSlice([]int{10, 11, 12, 13}, []int32{0, -1, 2, 3}, 0)
	c := FromSlice([]string{"c0", "c1", "c2", "c3"}, []int32{0, 1, 2, 3}, "")

	out := DropNulls(a, c)
	require.Len(t, out, 2)
	require.Equal(t, []string{"a0", "a1", "a3"}, out[0].Collect())
	require.Equal(t, []string{"c0", "c1", "c3"}, out[1].Collect())

	ints := DropNulls(b, FromSlice([]int{1, 2, 3, 4}, nil, 0))
	require.Equal(t, []int{10, 12, 13}, ints[0].Collect())
	require.Equal(t, []int{1, 3, 4}, ints[1].Collect())

	shorter := DropNulls(c, FromSlice([]string{"x"}, nil, ""))
	require.Equal(t, []string{"c0"}, shorter[0].Collect())

	require.Nil(t, DropNulls[int]())
}

func TestFindAll(t *testing.T) {
	ids := FromSlice([]int{7, 3, 9, 3}, nil, -1)
	wanted := FromSlice([]int{3, 4, 9}, nil, 0)

	found := FindAll(ids, wanted, func(id, want int) bool { return id == want })
	require.Equal(t, []int32{1, -1, 2}, found.IndexMap())
	require.Equal(t, []int{3, -1, 9}, found.Collect())
}

func TestWith_FiltersCoIndexedColumn(t *testing.T) {
	classes := FromSlice([]int{3, 1, 3, 2}, nil, 0)
	names := FromSlice([]string{"w0", "w1", "w2", "w3"}, []int32{3, 2, 1, 0}, "")

	kept := With(classes, names, func(c *Array[int]) *Array[int] {
		return c.Filter(func(v int) bool { return v == 3 })
	})
	require.Equal(t, []string{"w3", "w1"}, kept.Collect())

	sorted := With(classes, names, func(c *Array[int]) *Array[int] {
		return c.Sort(cmp.Compare[int])
	})
	require.Equal(t, []string{"w2", "w0", "w3", "w1"}, sorted.Collect())
}

func TestFromTupleAndRecord(t *testing.T) {
	xs := FromSlice([]any{1, 2}, nil, nil)
	ys := FromSlice([]any{"a", "b"}, []int32{0, -1}, nil)

	rows := FromTuple(xs, ys)
	require.Equal(t, [][]any{{1, "a"}, {2, nil}}, rows.Collect())

	recs := FromRecord([]string{"x", "y"}, []*Array[any]{xs, ys})
	require.Equal(t, map[string]any{"x": 1, "y": "a"}, recs.At(0))
	require.Equal(t, map[string]any{"x": 2}, recs.At(1))
}

func BenchmarkSort(b *testing.B) {
	values := make([]int, 4096)
	for i := range values {
		values[i] = (i * 7919) % 97
	}
	arr := FromSlice(values, nil, 0)

	b.ReportAllocs()
	b.ResetTimer()
	for range b.N {
		_ = arr.Sort(cmp.Compare[int])
	}
}
