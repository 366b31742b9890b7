/*
Copyright 2026 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package review

import "strings"

// Risk levels emitted by the reviewer. RiskUnknown is only ever assigned on
// our side, when the reviewer omitted a risk.
const (
	RiskCritical   = "CRITICAL"
	RiskHigh       = "HIGH"
	RiskMedium     = "MEDIUM"
	RiskLow        = "LOW"
	RiskNegligible = "NEGLIGIBLE"
	RiskUnknown    = "UNKNOWN"
)

// riskPriority orders risks for display, lower sorts first.
var riskPriority = map[string]int{
	RiskHigh:    0,
	RiskMedium:  1,
	RiskLow:     2,
	RiskUnknown: 3,
}

// NormalizeRisk upper-cases a risk value, defaulting to RiskUnknown.
func NormalizeRisk(value string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return RiskUnknown
	}
	return strings.ToUpper(value)
}

// RiskSortKey returns the display priority of a risk value. Known values sort
// HIGH, MEDIUM, LOW, UNKNOWN; everything else sorts after all of them.
func RiskSortKey(value string) int {
	if p, ok := riskPriority[NormalizeRisk(value)]; ok {
		return p
	}
	return len(riskPriority)
}

// Collapsed reports whether a finding with the given risk is rendered folded.
func Collapsed(risk string) bool {
	switch risk {
	case RiskHigh, RiskMedium:
		return false
	default:
		return true
	}
}
