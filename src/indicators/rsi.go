package indicators

import (
	"math"

	"github.com/jiaming2012/tradecraft/src/eventmodels"
)

// Rsi is a streaming Wilder relative strength index. Update returns 0 until
// Period+1 closes have been seen.
type Rsi struct {
	Period      int
	closes      []float64
	prevAvgGain *float64
	prevAvgLoss *float64
}

func NewRsi(period int) *Rsi {
	return &Rsi{
		Period: period,
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func (r *Rsi) relativeStrength() float64 {
	if r.prevAvgGain != nil {
		curClose := r.closes[len(r.closes)-1]
		prevClose := r.closes[len(r.closes)-2]
		delta := curClose - prevClose

		var deltaGain, deltaLoss float64
		if delta > 0 {
			deltaGain = delta
		} else {
			deltaLoss = math.Abs(delta)
		}

		avgGain := ((*r.prevAvgGain)*(float64(r.Period)-1.0) + deltaGain) / float64(r.Period)
		avgLoss := ((*r.prevAvgLoss)*(float64(r.Period)-1.0) + deltaLoss) / float64(r.Period)

		if avgLoss == 0 {
			return 100
		}

		r.prevAvgGain = &avgGain
		r.prevAvgLoss = &avgLoss

		return avgGain / avgLoss
	}

	gains := make([]float64, r.Period+1)
	losses := make([]float64, r.Period+1)

	prevClose := r.closes[0]
	for i, close := range r.closes {
		delta := close - prevClose
		if delta > 0 {
			gains[i] = delta
		} else {
			losses[i] = math.Abs(delta)
		}

		prevClose = close
	}

	avgGain := mean(gains[1:])
	avgLoss := mean(losses[1:])
	r.prevAvgGain = &avgGain
	r.prevAvgLoss = &avgLoss

	if avgLoss == 0 {
		return 100
	}

	return avgGain / avgLoss
}

func (r *Rsi) Update(c eventmodels.Candle) float64 {
	if len(r.closes) < r.Period {
		r.closes = append(r.closes, c.Close)
		return 0
	}

	r.closes = append(r.closes, c.Close)

	rs := r.relativeStrength()

	r.closes = r.closes[1:]

	if rs == 0 {
		return 0
	}

	return 100 - (100 / (1 + rs))
}
