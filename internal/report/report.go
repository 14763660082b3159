// Package report builds the display-ready summary of an analysis.
package report

import (
	"fmt"
	"math"
	"math/big"

	"github.com/joeblew999/geo-analyzer/internal/analysis"
)

// Display defaults for fields the service did not provide.
const (
	NoScore      = "N/A"
	UnknownModel = "Unknown"
)

// AnalysisReport is recreated wholesale for every response.
type AnalysisReport struct {
	Anomalies int      `json:"anomalies" yaml:"anomalies" doc:"Number of anomalies detected" minimum:"0"`
	MeanScore string   `json:"meanScore" yaml:"meanScore" doc:"Mean anomaly score to 2 decimals, or N/A" example:"0.42"`
	ModelType string   `json:"modelType" yaml:"modelType" doc:"Model used by the service" example:"IsolationForest"`
	Errors    []string `json:"errors" yaml:"errors" doc:"Issues found, in source order"`
}

// Empty returns the report shown before any analysis has completed.
func Empty() AnalysisReport {
	return AnalysisReport{MeanScore: NoScore, ModelType: UnknownModel, Errors: []string{}}
}

// FromResponse builds a report from a successful (possibly imperfect) body.
// It never fails: missing fields degrade to their defaults.
func FromResponse(resp analysis.AnalysisResponse) AnalysisReport {
	r := Empty()
	r.Anomalies = len(resp.Anomalies)
	if resp.MeanAnomalyScore != nil {
		r.MeanScore = formatScore(*resp.MeanAnomalyScore)
	}
	if resp.ModelType != "" {
		r.ModelType = resp.ModelType
	}
	for _, ve := range resp.ValidationErrors {
		r.Errors = append(r.Errors, fmt.Sprintf("Feature %s: %s", ve.FeatureID, ve.Error))
	}
	if resp.Error != "" {
		r.Errors = append(r.Errors, resp.Error)
	}
	return r
}

// Synthesize builds a report for any outcome. Partial successes reuse the
// classifier's formatted strings as-is; failures carry their message.
func Synthesize(o analysis.Outcome) AnalysisReport {
	switch v := o.(type) {
	case analysis.Success:
		return FromResponse(v.Response)
	case analysis.PartialSuccess:
		r := Empty()
		r.Errors = append(r.Errors, v.Errors...)
		return r
	case analysis.Failure:
		r := Empty()
		if v.Message != "" {
			r.Errors = append(r.Errors, v.Message)
		}
		return r
	}
	return Empty()
}

// formatScore renders v with two decimals, rounding the exact binary value
// half away from zero. 0.125 is exact in binary and becomes "0.13"; 1.005
// is stored just below and becomes "1.00".
func formatScore(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NoScore
	}
	sign := ""
	if v < 0 {
		sign, v = "-", -v
	}

	x := new(big.Float).SetPrec(256).SetFloat64(v)
	x.Mul(x, big.NewFloat(100))
	n, _ := x.Int(nil)
	frac := new(big.Float).SetPrec(256).Sub(x, new(big.Float).SetInt(n))
	if frac.Cmp(big.NewFloat(0.5)) >= 0 {
		n.Add(n, big.NewInt(1))
	}

	whole, cents := new(big.Int).QuoRem(n, big.NewInt(100), new(big.Int))
	return fmt.Sprintf("%s%s.%02d", sign, whole.String(), cents.Int64())
}
