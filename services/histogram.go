package services

import (
	"fmt"
	"math"
	"strconv"
)

// Bucket counts values v with Lo <= v < Hi.
type Bucket struct {
	Lo    float64
	Hi    float64
	Count int
}

func (b Bucket) Label() string {
	return strconv.FormatFloat(b.Lo, 'f', -1, 64) + " - " + strconv.FormatFloat(b.Hi, 'f', -1, 64)
}

type Histogram struct {
	Width   float64
	Buckets []Bucket
}

func (h Histogram) Total() int {
	n := 0
	for _, b := range h.Buckets {
		n += b.Count
	}
	return n
}

// BuildHistogram spreads values over contiguous buckets of the given width, from
// floor(min/width)*width to ceil(max/width)*width. When max sits exactly on that
// upper edge one more bucket is added so it still falls inside a half-open bucket.
func BuildHistogram(values []float64, width float64) (Histogram, error) {
	if width <= 0 || math.IsNaN(width) || math.IsInf(width, 0) {
		return Histogram{}, fmt.Errorf("bucket width %v must be positive", width)
	}
	if len(values) == 0 {
		return Histogram{}, ErrEmptyPartition
	}

	min, max := values[0], values[0]
	for _, v := range values[1:] {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	first := math.Floor(min/width) * width
	last := math.Ceil(max/width) * width
	n := int(math.Round((last - first) / width))
	if last <= max {
		n++
	}

	h := Histogram{Width: width, Buckets: make([]Bucket, n)}
	for i := range h.Buckets {
		h.Buckets[i].Lo = first + float64(i)*width
		h.Buckets[i].Hi = first + float64(i+1)*width
	}

	for _, v := range values {
		idx := int(math.Floor((v - first) / width))
		if idx < 0 {
			idx = 0
		}
		if idx >= n {
			idx = n - 1
		}
		h.Buckets[idx].Count++
	}
	return h, nil
}
