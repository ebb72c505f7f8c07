package feedback

import (
	"testing"

	"pgregory.net/rapid"
)

// 任意输入评分，保存的评分都在 [1,5] 内，平均分也在该区间内
func TestProperty_RatingClamp(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		c := NewCollector(nil, nil)
		ratings := rapid.SliceOfN(rapid.IntRange(-1000, 1000), 1, 50).Draw(rt, "ratings")
		for _, r := range ratings {
			e := c.Collect(r, CollectOptions{})
			if e.Rating < MinRating || e.Rating > MaxRating {
				rt.Fatalf("rating %d stored as %d", r, e.Rating)
			}
			if r >= MinRating && r <= MaxRating && e.Rating != r {
				rt.Fatalf("in-range rating %d changed to %d", r, e.Rating)
			}
		}
		avg := c.AverageRating()
		if avg < MinRating || avg > MaxRating {
			rt.Fatalf("average %f out of range", avg)
		}
	})
}
