package utils

type RatingConfig struct {
	PriorWeight float64 // 先验样本数 (C)
	PriorMean   float64 // 先验均分 (m)，默认取评分区间中点
}

// DefaultRatingConfig for a 1..5 scale.
var DefaultRatingConfig = RatingConfig{
	PriorWeight: 5,
	PriorMean:   3,
}

// WeightedRating 贝叶斯平均：(C*m + sum) / (C + n)
// A course with few reviews is pulled toward the prior mean so that one
// five-star review does not outrank fifty four-star ones.
func WeightedRating(cfg RatingConfig, sum float64, n int) float64 {
	if n <= 0 {
		return cfg.PriorMean
	}
	return (cfg.PriorWeight*cfg.PriorMean + sum) / (cfg.PriorWeight + float64(n))
}
