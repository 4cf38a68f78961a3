package entityquality

import "math"

// Logistic is a binary logistic regression over standardized features.
type Logistic struct {
	Mean    Vector  `json:"mean"`
	Scale   Vector  `json:"scale"`
	Weights Vector  `json:"weights"`
	Bias    float64 `json:"bias"`
}

// FitLogistic trains with batch gradient descent and L2 regularization.
func FitLogistic(samples []Sample, iterations int, rate, l2 float64) *Logistic {
	m := &Logistic{}
	n := float64(len(samples))
	if n == 0 {
		return m
	}
	for _, s := range samples {
		for i, x := range s.X {
			m.Mean[i] += x
		}
	}
	for i := range m.Mean {
		m.Mean[i] /= n
	}
	for _, s := range samples {
		for i, x := range s.X {
			d := x - m.Mean[i]
			m.Scale[i] += d * d
		}
	}
	for i := range m.Scale {
		m.Scale[i] = math.Sqrt(m.Scale[i] / n)
		if m.Scale[i] == 0 {
			m.Scale[i] = 1
		}
	}

	xs := make([]Vector, len(samples))
	for k, s := range samples {
		xs[k] = m.standardize(s.X)
	}
	for it := 0; it < iterations; it++ {
		var grad Vector
		gradBias := 0.0
		for k, s := range samples {
			diff := sigmoid(m.linear(xs[k])) - label(s.Valid)
			for i, x := range xs[k] {
				grad[i] += diff * x
			}
			gradBias += diff
		}
		for i := range m.Weights {
			m.Weights[i] -= rate * (grad[i]/n + l2*m.Weights[i])
		}
		m.Bias -= rate * gradBias / n
	}
	return m
}

func (m *Logistic) standardize(v Vector) Vector {
	var out Vector
	for i, x := range v {
		scale := m.Scale[i]
		if scale == 0 {
			scale = 1
		}
		out[i] = (x - m.Mean[i]) / scale
	}
	return out
}

func (m *Logistic) linear(z Vector) float64 {
	sum := m.Bias
	for i, x := range z {
		sum += m.Weights[i] * x
	}
	return sum
}

func (m *Logistic) PredictProba(v Vector) float64 {
	return sigmoid(m.linear(m.standardize(v)))
}

// Importances are the absolute standardized coefficients.
func (m *Logistic) Importances() Vector {
	var out Vector
	for i, w := range m.Weights {
		out[i] = math.Abs(w)
	}
	return normalize(out)
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func label(valid bool) float64 {
	if valid {
		return 1
	}
	return 0
}
