// Package severity maps anomaly scores onto named bands.
package severity

// Band labels, lowest to highest.
const (
	Unknown      = "unknown"
	Serene       = "serene"
	Low          = "low"
	Moderate     = "moderate"
	High         = "high"
	Critical     = "critical"
	Catastrophic = "catastrophic"
)

// ForScore returns the band for a score in [0, 1]. A nil score is Unknown.
// Out-of-range scores are clamped first.
func ForScore(score *float64) string {
	if score == nil {
		return Unknown
	}
	percent := min(max(*score*100, 0), 100)
	switch {
	case percent == 0:
		return Serene
	case percent <= 25:
		return Low
	case percent <= 50:
		return Moderate
	case percent <= 75:
		return High
	case percent < 100:
		return Critical
	default:
		return Catastrophic
	}
}
