package domain

import (
	"math"
	"sort"

	"github.com/montanaflynn/stats"
)

// minOutlierSamples is the smallest window with an interquartile range.
const minOutlierSamples = 2

// DetectOutliers applies the interquartile-range rule to values and returns
// the fences plus the indexes of values strictly outside them. Quartiles are
// linearly interpolated at position (n-1)*p of the sorted window. ok is false
// when the window is too small to judge.
func DetectOutliers(values []float64) (fences Fences, outliers []int, ok bool) {
	if len(values) < minOutlierSamples {
		return Fences{}, nil, false
	}

	sorted := append(stats.Float64Data(nil), values...)
	sort.Sort(sorted)

	q1, q3 := quantile(sorted, 0.25), quantile(sorted, 0.75)
	if math.IsNaN(q1) || math.IsNaN(q3) {
		return Fences{}, nil, false
	}

	iqr := q3 - q1
	fences = Fences{
		Lower: q1 - 1.5*iqr,
		Upper: q3 + 1.5*iqr,
	}
	for i, v := range values {
		if v < fences.Lower || v > fences.Upper {
			outliers = append(outliers, i)
		}
	}
	return fences, outliers, true
}

// quantile interpolates between the two order statistics around (n-1)*p.
func quantile(sorted stats.Float64Data, p float64) float64 {
	pos := float64(sorted.Len()-1) * p
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	return sorted.Get(lo) + (sorted.Get(hi)-sorted.Get(lo))*(pos-float64(lo))
}
