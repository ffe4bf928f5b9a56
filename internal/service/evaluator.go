package service

import (
	"example.com/ecoguard/internal/models"

	"github.com/shopspring/decimal"
)

// Outcome is the result of comparing one metric value with its threshold
type Outcome int

const (
	// Skipped means there was no value or no threshold to compare with
	Skipped Outcome = iota
	NoBreach
	Breach
)

func (o Outcome) String() string {
	switch o {
	case NoBreach:
		return "no_breach"
	case Breach:
		return "breach"
	}
	return "skipped"
}

// Evaluate compares value against th. Bounds are inclusive and the comparison
// is exact decimal arithmetic.
func Evaluate(th *models.Threshold, value decimal.Decimal, present bool) Outcome {
	if th == nil || !present {
		return Skipped
	}
	if value.LessThan(th.MinValue) || value.GreaterThan(th.MaxValue) {
		return Breach
	}
	return NoBreach
}

// thresholdIndex maps each metric to its configured threshold
type thresholdIndex map[models.MetricType]*models.Threshold

func indexThresholds(list []*models.Threshold) thresholdIndex {
	idx := make(thresholdIndex, len(list))
	for _, th := range list {
		idx[th.MetricType] = th
	}
	return idx
}
