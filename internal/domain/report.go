package domain

import "time"

// ReportReason is the closed set of reasons a listing or seller can be
// reported for.
type ReportReason string

const (
	ReportProhibited  ReportReason = "prohibited"
	ReportCounterfeit ReportReason = "counterfeit"
	ReportMisleading  ReportReason = "misleading"
	ReportFraud       ReportReason = "fraud"
	ReportOther       ReportReason = "other"
)

// ValidReportReason reports whether r is one of the known reasons.
func ValidReportReason(r ReportReason) bool {
	switch r {
	case ReportProhibited, ReportCounterfeit, ReportMisleading, ReportFraud, ReportOther:
		return true
	}
	return false
}

// Report is a user-submitted complaint about a seller or a listing.
type Report struct {
	ID              int64        `json:"id"`
	ReporterID      int64        `json:"reporterId"`
	TargetUserID    int64        `json:"targetUserId,omitempty"`
	TargetProductID int64        `json:"targetProductId,omitempty"`
	Reason          ReportReason `json:"reason"`
	Detail          string       `json:"detail"`
	CreatedAt       time.Time    `json:"createdAt"`
	Processed       bool         `json:"processed"`
}
