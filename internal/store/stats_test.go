package store

import (
	"context"
	"testing"
	"time"

	"github.com/seastarlegal/seastar/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addAll(t *testing.T, s *Store, collection string, records ...model.Record) {
	t.Helper()
	for _, r := range records {
		_, err := s.Add(context.Background(), collection, r)
		require.NoError(t, err)
	}
}

func dates(records []model.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.String("date")
	}
	return out
}

// --- GetStats tests ---

func TestGetStats(t *testing.T) {
	s := newTestStore(t)
	addAll(t, s, Cases,
		model.Record{"status": model.CaseStatusClosed, "feesAmount": 1000, "feesPaid": 1000},
		model.Record{"status": model.CaseStatusOngoing, "feesAmount": 500, "feesPaid": 200},
	)
	addAll(t, s, Clients, model.Record{"name": "a"}, model.Record{"name": "b"}, model.Record{"name": "c"})
	addAll(t, s, Sessions,
		model.Record{"date": "2026-03-15", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-15T16:00", "status": model.SessionHeld},
		model.Record{"date": "2026-03-16", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-14", "status": model.SessionScheduled},
		model.Record{"status": model.SessionScheduled},
	)

	st, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.Stats{
		TotalCases:       2,
		ActiveCases:      1,
		CompletedCases:   1,
		TotalClients:     3,
		TodaySessions:    2,
		UpcomingSessions: 1,
		TotalRevenue:     1500,
		CollectedRevenue: 1200,
	}, st)
}

func TestGetStats_MissingFeesCountAsZero(t *testing.T) {
	s := newTestStore(t)
	addAll(t, s, Cases,
		model.Record{"feesAmount": 300},
		model.Record{"feesAmount": "200", "feesPaid": "50"},
		model.Record{},
	)

	st, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, st.ActiveCases)
	assert.Equal(t, 500.0, st.TotalRevenue)
	assert.Equal(t, 50.0, st.CollectedRevenue)
}

func TestGetStats_Empty(t *testing.T) {
	s := newTestStore(t)
	st, err := s.GetStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, &model.Stats{}, st)
}

// --- GetUpcomingSessions tests ---

func TestGetUpcomingSessions_Window(t *testing.T) {
	s := newTestStore(t)
	addAll(t, s, Sessions,
		model.Record{"date": "2026-03-18", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-25", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-15", "status": model.SessionScheduled},
	)

	got, err := s.GetUpcomingSessions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-15", "2026-03-18"}, dates(got))
}

func TestGetUpcomingSessions_Filters(t *testing.T) {
	s := newTestStore(t)
	addAll(t, s, Sessions,
		model.Record{"date": "2026-03-14", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-16", "status": model.SessionPostponed},
		model.Record{"date": "2026-03-17", "status": model.SessionScheduled},
		model.Record{"date": "not a date", "status": model.SessionScheduled},
	)

	got, err := s.GetUpcomingSessions(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-17"}, dates(got))
}

func TestGetUpcomingSessions_DefaultWindowIsInclusive(t *testing.T) {
	s := newTestStore(t)
	addAll(t, s, Sessions,
		model.Record{"date": "2026-03-23", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-22T23:59", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-24", "status": model.SessionScheduled},
	)

	got, err := s.GetUpcomingSessions(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-22T23:59"}, dates(got))

	got, err = s.GetUpcomingSessions(context.Background(), 8)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-22T23:59", "2026-03-23"}, dates(got))
}

func TestGetUpcomingSessions_SameDayOrderedByTime(t *testing.T) {
	s := newTestStore(t)
	addAll(t, s, Sessions,
		model.Record{"date": "2026-03-16T15:00", "status": model.SessionScheduled, "room": "b"},
		model.Record{"date": "2026-03-16T09:00", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-16T15:00", "status": model.SessionScheduled, "room": "c"},
	)

	got, err := s.GetUpcomingSessions(context.Background(), 7)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "2026-03-16T09:00", got[0]["date"])
	assert.Equal(t, "b", got[1]["room"])
	assert.Equal(t, "c", got[2]["room"])
}

func TestGetUpcomingSessions_UsesLocation(t *testing.T) {
	riyadh := time.FixedZone("AST", 3*60*60)
	clock := newFakeClock()
	// 22:30 UTC on the 15th is already the 16th in Riyadh.
	clock.Set(time.Date(2026, 3, 15, 22, 30, 0, 0, time.UTC))
	s := newTestStore(t, WithClock(clock.Now), WithLocation(riyadh))
	addAll(t, s, Sessions,
		model.Record{"date": "2026-03-15", "status": model.SessionScheduled},
		model.Record{"date": "2026-03-16", "status": model.SessionScheduled},
	)

	got, err := s.GetUpcomingSessions(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"2026-03-16"}, dates(got))
}

// --- GetCaseStats / GetFinancialStats tests ---

func TestGetCaseStats(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, WithClock(clock.Now))

	clock.Set(time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC))
	addAll(t, s, Cases,
		model.Record{"type": "مدني", "status": model.CaseStatusOngoing, "courtName": "المحكمة العامة"},
		model.Record{"type": "جنائي", "status": model.CaseStatusClosed, "courtName": "المحكمة الجزائية"},
	)
	clock.Set(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	addAll(t, s, Cases,
		model.Record{"type": "مدني", "status": model.CaseStatusOngoing},
	)

	st, err := s.GetCaseStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"مدني": 2, "جنائي": 1}, st.ByType)
	assert.Equal(t, map[string]int{model.CaseStatusOngoing: 2, model.CaseStatusClosed: 1}, st.ByStatus)
	assert.Equal(t, map[string]int{"المحكمة العامة": 1, "المحكمة الجزائية": 1, "": 1}, st.ByCourt)
	assert.Equal(t, []model.MonthCount{{Month: "2026-01", Count: 2}, {Month: "2026-03", Count: 1}}, st.Timeline)
}

func TestGetFinancialStats(t *testing.T) {
	clock := newFakeClock()
	s := newTestStore(t, WithClock(clock.Now))

	clock.Set(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	addAll(t, s, Cases,
		model.Record{"feesAmount": 1000, "feesPaid": 1000, "paymentMethod": "نقدي"},
		model.Record{"feesAmount": 500, "feesPaid": 200, "paymentMethod": "تحويل"},
	)
	clock.Set(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
	addAll(t, s, Cases,
		model.Record{"feesAmount": 250, "feesPaid": 50, "paymentMethod": "نقدي"},
		model.Record{"feesAmount": 100, "feesPaid": 40},
	)

	st, err := s.GetFinancialStats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1850.0, st.TotalFees)
	assert.Equal(t, 1290.0, st.PaidFees)
	assert.Equal(t, 560.0, st.PendingFees)
	assert.Equal(t, map[string]float64{"نقدي": 1050, "تحويل": 200}, st.ByPaymentMethod, "cases without a payment method are left out")
	assert.Equal(t, map[string]float64{"2026-02": 1500, "2026-03": 350}, st.ByMonth)
}
