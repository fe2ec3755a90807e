package model

import (
	"math"
	"math/rand"
	"sort"
)

// Split holds row indexes of the train and test partitions.
type Split struct {
	Train []int
	Test  []int
}

// StratifiedSplit partitions row indexes so both partitions keep the class
// proportions of labels. Each class with two or more rows contributes at least
// one test row and keeps at least one training row.
func StratifiedSplit(labels []int, testFraction float64, seed int64) Split {
	byClass := make(map[int][]int)
	for i, y := range labels {
		byClass[y] = append(byClass[y], i)
	}
	classes := make([]int, 0, len(byClass))
	for c := range byClass {
		classes = append(classes, c)
	}
	sort.Ints(classes)

	rng := rand.New(rand.NewSource(seed))
	var split Split
	for _, c := range classes {
		rows := byClass[c]
		rng.Shuffle(len(rows), func(i, j int) { rows[i], rows[j] = rows[j], rows[i] })

		nTest := int(math.Round(testFraction * float64(len(rows))))
		if len(rows) >= 2 {
			nTest = max(1, min(nTest, len(rows)-1))
		} else {
			nTest = 0
		}
		split.Test = append(split.Test, rows[:nTest]...)
		split.Train = append(split.Train, rows[nTest:]...)
	}
	sort.Ints(split.Train)
	sort.Ints(split.Test)
	return split
}

// Take returns the rows of x selected by idx.
func Take[T any](x []T, idx []int) []T {
	out := make([]T, len(idx))
	for i, j := range idx {
		out[i] = x[j]
	}
	return out
}
