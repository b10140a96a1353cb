package decision

import "larvadet/internal/models"

// Verdict is the binary risk classification derived from larvae counts.
type Verdict string

const (
	// VerdictAman means no larvae were detected.
	VerdictAman Verdict = "AMAN"
	// VerdictBahaya means at least one larva was detected.
	VerdictBahaya Verdict = "BAHAYA"
)

// Decide maps a larvae count to a verdict. Any detection at all is BAHAYA.
func Decide(larvaeCount int) Verdict {
	if larvaeCount > 0 {
		return VerdictBahaya
	}
	return VerdictAman
}

// Command returns the desired AUTO-mode servo command for a verdict.
func Command(v Verdict) string {
	if v == VerdictBahaya {
		return models.CommandActivate
	}
	return models.CommandStop
}

// SeverityTable maps larvae counts to alert severity levels. Thresholds come
// from configuration; counts below Warning are info, counts at or above
// Critical are critical.
type SeverityTable struct {
	Warning  int
	Critical int
}

// DefaultSeverityTable is used when no thresholds are configured.
func DefaultSeverityTable() SeverityTable {
	return SeverityTable{Warning: 3, Critical: 10}
}

// Severity returns the alert severity for a larvae count.
func (t SeverityTable) Severity(larvaeCount int) string {
	switch {
	case larvaeCount >= t.Critical:
		return models.SeverityCritical
	case larvaeCount >= t.Warning:
		return models.SeverityWarning
	default:
		return models.SeverityInfo
	}
}
