package model

// Status literals stored in case and session records. The application UI is
// Arabic, so these are the values its screens write.
const (
	CaseStatusOngoing = "جارية"
	CaseStatusPending = "معلقة"
	CaseStatusClosed  = "منتهية"
	SessionScheduled  = "مجدولة"
	SessionHeld       = "منعقدة"
	SessionPostponed  = "مؤجلة"
)

// IsClosedCase reports whether a case status counts as completed.
func IsClosedCase(status string) bool {
	return status == CaseStatusClosed
}
