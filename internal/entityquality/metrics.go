package entityquality

import (
	"math"
	"math/rand"

	"github.com/hyperjump/bunrui/internal/models"
)

// StratifiedSplit shuffles each class with seed and holds out testSize of it.
// A class with at least two samples keeps at least one on each side.
func StratifiedSplit(samples []Sample, testSize float64, seed int64) (train, test []Sample) {
	rng := rand.New(rand.NewSource(seed))
	var pos, neg []Sample
	for _, s := range samples {
		if s.Valid {
			pos = append(pos, s)
		} else {
			neg = append(neg, s)
		}
	}
	for _, class := range [][]Sample{pos, neg} {
		rng.Shuffle(len(class), func(i, j int) { class[i], class[j] = class[j], class[i] })
		n := int(math.Round(float64(len(class)) * testSize))
		if len(class) >= 2 {
			n = max(1, min(n, len(class)-1))
		} else {
			n = 0
		}
		test = append(test, class[:n]...)
		train = append(train, class[n:]...)
	}
	return train, test
}

// Evaluate computes held-out metrics, treating "valid" as the positive class at a 0.5 cutoff.
func Evaluate(c Classifier, test []Sample, trainSize int) models.ModelMetrics {
	m := models.ModelMetrics{TrainSamples: trainSize, TestSamples: len(test)}
	if len(test) == 0 {
		return m
	}
	var tp, fp, tn, fn int
	for _, s := range test {
		predicted := c.PredictProba(s.X) >= 0.5
		switch {
		case predicted && s.Valid:
			tp++
		case predicted && !s.Valid:
			fp++
		case !predicted && s.Valid:
			fn++
		default:
			tn++
		}
	}
	m.Accuracy = float64(tp+tn) / float64(len(test))
	if tp+fp > 0 {
		m.Precision = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		m.Recall = float64(tp) / float64(tp+fn)
	}
	if m.Precision+m.Recall > 0 {
		m.F1 = 2 * m.Precision * m.Recall / (m.Precision + m.Recall)
	}
	return m
}
