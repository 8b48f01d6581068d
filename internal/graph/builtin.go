package graph

import (
	"github.com/quantfold/pipeline/internal/dataset"
)

// Latest returns a factor exposing the most recent value of a column.
func Latest(col *dataset.Column) *Factor {
	return mustFactor(func(out []float64, windows [][][]float64) {
		copy(out, windows[0][0])
	}, 1, col)
}

// RollingSum returns a factor summing a column over a trailing window.
func RollingSum(col *dataset.Column, window int) *Factor {
	return mustFactor(func(out []float64, windows [][][]float64) {
		for a := range out {
			sum := 0.0
			for _, row := range windows[0] {
				sum += row[a]
			}
			out[a] = sum
		}
	}, window, col)
}

// RollingMean returns a factor averaging a column over a trailing window.
func RollingMean(col *dataset.Column, window int) *Factor {
	return mustFactor(func(out []float64, windows [][][]float64) {
		n := float64(len(windows[0]))
		for a := range out {
			sum := 0.0
			for _, row := range windows[0] {
				sum += row[a]
			}
			out[a] = sum / n
		}
	}, window, col)
}

// LatestGreaterThan returns a filter that is true where the most recent
// value of a column exceeds the threshold.
func LatestGreaterThan(col *dataset.Column, threshold float64) *Filter {
	f, err := NewFilter(func(out []float64, windows [][][]float64) {
		for a, v := range windows[0][0] {
			if v > threshold {
				out[a] = 1
			} else {
				out[a] = 0
			}
		}
	}, 1, col)
	if err != nil {
		panic(err)
	}
	return f
}

// mustFactor backs the built-in constructors, which take a single column
// and therefore cannot produce ambiguous-domain or missing-input errors.
// A bad window length is a declaration mistake and panics.
func mustFactor(kernel Kernel, window int, col *dataset.Column) *Factor {
	f, err := NewFactor(kernel, window, col)
	if err != nil {
		panic(err)
	}
	return f
}
