// Package timeindex: поиск по отсортированным массивам меток времени.
package timeindex

import "sort"

// SearchRange возвращает полуоткрытый диапазон индексов [lo, hi), для которого
// ts[lo] >= start и ts[hi-1] <= stop. Обе границы включают совпадающие метки.
// При start > stop или пустом ts диапазон пустой (lo == hi).
func SearchRange(ts []float64, start, stop float64) (lo, hi int) {
	if len(ts) == 0 || start > stop {
		return 0, 0
	}
	// Первый индекс с ts >= start
	lo = sort.Search(len(ts), func(i int) bool { return ts[i] >= start })
	// Первый индекс с ts > stop
	hi = sort.Search(len(ts), func(i int) bool { return ts[i] > stop })
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// Mask возвращает булеву маску записей, попавших в [start, stop].
func Mask(ts []float64, start, stop float64) []bool {
	mask := make([]bool, len(ts))
	lo, hi := SearchRange(ts, start, stop)
	for i := lo; i < hi; i++ {
		mask[i] = true
	}
	return mask
}

// Floor возвращает индекс последней метки <= t или -1, если таких нет.
func Floor(ts []float64, t float64) int {
	return sort.Search(len(ts), func(i int) bool { return ts[i] > t }) - 1
}
