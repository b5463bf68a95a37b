package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/seastarlegal/seastar/internal/model"
)

// DefaultUpcomingDays is the window GetUpcomingSessions uses when given a
// non-positive one.
const DefaultUpcomingDays = 7

// readAll loads several collections from one read transaction so aggregates
// see a single point in time.
func (s *Store) readAll(ctx context.Context, names ...string) (map[string][]model.Record, error) {
	specs := make([]CollectionSpec, len(names))
	for i, n := range names {
		c, err := s.collection(n)
		if err != nil {
			return nil, err
		}
		specs[i] = c
	}
	out := make(map[string][]model.Record, len(names))
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		for _, c := range specs {
			records, err := s.getAll(ctx, tx, c)
			if err != nil {
				return fmt.Errorf("reading %s: %w", c.Name, err)
			}
			out[c.Name] = records
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetStats computes the dashboard counters from cases, clients and sessions.
// Nothing is cached.
func (s *Store) GetStats(ctx context.Context) (*model.Stats, error) {
	data, err := s.readAll(ctx, Cases, Clients, Sessions)
	if err != nil {
		return nil, fmt.Errorf("computing stats: %w", err)
	}

	st := &model.Stats{
		TotalCases:   len(data[Cases]),
		TotalClients: len(data[Clients]),
	}
	for _, c := range data[Cases] {
		if model.IsClosedCase(c.String("status")) {
			st.CompletedCases++
		} else {
			st.ActiveCases++
		}
		st.TotalRevenue += c.Number("feesAmount")
		st.CollectedRevenue += c.Number("feesPaid")
	}

	today := model.Day(s.now(), s.loc)
	for _, sess := range data[Sessions] {
		t, ok := sess.Time("date", s.loc)
		if !ok {
			continue
		}
		day := model.Day(t, s.loc)
		switch {
		case day.Equal(today):
			st.TodaySessions++
		case day.After(today):
			st.UpcomingSessions++
		}
	}
	return st, nil
}

// GetUpcomingSessions returns scheduled sessions dated within
// [today, today+days], ordered by date. Sessions on the same date keep
// their key order.
func (s *Store) GetUpcomingSessions(ctx context.Context, days int) ([]model.Record, error) {
	if days <= 0 {
		days = DefaultUpcomingDays
	}
	sessions, err := s.GetAll(ctx, Sessions)
	if err != nil {
		return nil, err
	}

	today := model.Day(s.now(), s.loc)
	until := today.AddDate(0, 0, days)

	type dated struct {
		at  int64
		rec model.Record
	}
	var hits []dated
	for _, sess := range sessions {
		if sess.String("status") != model.SessionScheduled {
			continue
		}
		t, ok := sess.Time("date", s.loc)
		if !ok {
			continue
		}
		day := model.Day(t, s.loc)
		if day.Before(today) || day.After(until) {
			continue
		}
		hits = append(hits, dated{at: t.UnixNano(), rec: sess})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].at < hits[j].at })

	out := make([]model.Record, len(hits))
	for i, h := range hits {
		out[i] = h.rec
	}
	return out, nil
}

// GetCaseStats groups cases by type, status and court, and counts cases
// opened per month. Cases missing a field are grouped under "".
func (s *Store) GetCaseStats(ctx context.Context) (*model.CaseStats, error) {
	cases, err := s.GetAll(ctx, Cases)
	if err != nil {
		return nil, err
	}
	st := &model.CaseStats{
		ByType:   map[string]int{},
		ByStatus: map[string]int{},
		ByCourt:  map[string]int{},
		Timeline: []model.MonthCount{},
	}
	months := map[string]int{}
	for _, c := range cases {
		st.ByType[c.String("type")]++
		st.ByStatus[c.String("status")]++
		st.ByCourt[c.String("courtName")]++
		if m := c.Month(model.FieldCreatedAt, s.loc); m != "" {
			months[m]++
		}
	}
	for m, n := range months {
		st.Timeline = append(st.Timeline, model.MonthCount{Month: m, Count: n})
	}
	sort.Slice(st.Timeline, func(i, j int) bool { return st.Timeline[i].Month < st.Timeline[j].Month })
	return st, nil
}

// GetFinancialStats sums case fees overall, by payment method (fees paid)
// and by month of case creation (fees charged).
func (s *Store) GetFinancialStats(ctx context.Context) (*model.FinancialStats, error) {
	cases, err := s.GetAll(ctx, Cases)
	if err != nil {
		return nil, err
	}
	st := &model.FinancialStats{
		ByMonth:         map[string]float64{},
		ByPaymentMethod: map[string]float64{},
	}
	for _, c := range cases {
		amount := c.Number("feesAmount")
		paid := c.Number("feesPaid")
		st.TotalFees += amount
		st.PaidFees += paid
		if m := c.String("paymentMethod"); m != "" {
			st.ByPaymentMethod[m] += paid
		}
		if m := c.Month(model.FieldCreatedAt, s.loc); m != "" {
			st.ByMonth[m] += amount
		}
	}
	st.PendingFees = st.TotalFees - st.PaidFees
	return st, nil
}
