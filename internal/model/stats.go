package model

// Stats is the dashboard aggregate over cases, clients and sessions.
type Stats struct {
	TotalCases       int     `json:"totalCases"`
	ActiveCases      int     `json:"activeCases"`
	CompletedCases   int     `json:"completedCases"`
	TotalClients     int     `json:"totalClients"`
	TodaySessions    int     `json:"todaySessions"`
	UpcomingSessions int     `json:"upcomingSessions"`
	TotalRevenue     float64 `json:"totalRevenue"`
	CollectedRevenue float64 `json:"collectedRevenue"`
}

// MonthCount is one bucket of a monthly timeline.
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// CaseStats groups cases by type, status and court.
type CaseStats struct {
	ByType   map[string]int `json:"byType"`
	ByStatus map[string]int `json:"byStatus"`
	ByCourt  map[string]int `json:"byCourt"`
	Timeline []MonthCount   `json:"timeline"`
}

// FinancialStats sums case fees.
type FinancialStats struct {
	TotalFees       float64            `json:"totalFees"`
	PaidFees        float64            `json:"paidFees"`
	PendingFees     float64            `json:"pendingFees"`
	ByMonth         map[string]float64 `json:"byMonth"`
	ByPaymentMethod map[string]float64 `json:"byPaymentMethod"`
}
