package model

import (
	"fmt"
	"sort"
	"strings"
)

// ClassMetrics are the per-class scores of a classification report.
type ClassMetrics struct {
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report summarises predictions against ground truth for binary labels.
type Report struct {
	Accuracy float64
	Classes  [numClasses]ClassMetrics
	// Confusion[i][j] counts rows with true label i predicted as j.
	Confusion [numClasses][numClasses]int
}

// Evaluate builds a Report from true and predicted labels.
func Evaluate(yTrue, yPred []int) (Report, error) {
	if len(yTrue) != len(yPred) {
		return Report{}, fmt.Errorf("evaluate: %d labels but %d predictions", len(yTrue), len(yPred))
	}
	var r Report
	if len(yTrue) == 0 {
		return r, nil
	}
	correct := 0
	for i := range yTrue {
		t, p := yTrue[i], yPred[i]
		if t < 0 || t >= numClasses || p < 0 || p >= numClasses {
			return Report{}, fmt.Errorf("evaluate: non-binary label at row %d", i)
		}
		r.Confusion[t][p]++
		if t == p {
			correct++
		}
	}
	r.Accuracy = float64(correct) / float64(len(yTrue))

	for c := 0; c < numClasses; c++ {
		tp := r.Confusion[c][c]
		predicted, actual := 0, 0
		for k := 0; k < numClasses; k++ {
			predicted += r.Confusion[k][c]
			actual += r.Confusion[c][k]
		}
		m := ClassMetrics{Support: actual}
		if predicted > 0 {
			m.Precision = float64(tp) / float64(predicted)
		}
		if actual > 0 {
			m.Recall = float64(tp) / float64(actual)
		}
		if m.Precision+m.Recall > 0 {
			m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
		}
		r.Classes[c] = m
	}
	return r, nil
}

// String renders the report as a small text table.
func (r Report) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "accuracy: %.2f%%\n", r.Accuracy*100)
	fmt.Fprintf(&b, "%-8s %9s %9s %9s %9s\n", "class", "precision", "recall", "f1", "support")
	for c, m := range r.Classes {
		fmt.Fprintf(&b, "%-8d %9.2f %9.2f %9.2f %9d\n", c, m.Precision, m.Recall, m.F1, m.Support)
	}
	fmt.Fprintf(&b, "confusion matrix:\n[[%d %d]\n [%d %d]]\n",
		r.Confusion[0][0], r.Confusion[0][1], r.Confusion[1][0], r.Confusion[1][1])
	return b.String()
}

// FeatureImportance pairs a feature name with its importance.
type FeatureImportance struct {
	Feature    string
	Importance float64
}

// RankImportances pairs names with importances, most important first.
func RankImportances(names []string, importances []float64) []FeatureImportance {
	out := make([]FeatureImportance, 0, len(names))
	for i, name := range names {
		imp := 0.0
		if i < len(importances) {
			imp = importances[i]
		}
		out = append(out, FeatureImportance{Feature: name, Importance: imp})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}
