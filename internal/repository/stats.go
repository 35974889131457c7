package repository

import (
	"context"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// StatsRepository computes admin dashboard counts
type StatsRepository struct {
	db database.Database
}

// NewStatsRepository creates a new stats repository
func NewStatsRepository(db database.Database) *StatsRepository {
	return &StatsRepository{db: db}
}

// Counts returns platform-wide totals in a single round trip
func (r *StatsRepository) Counts(ctx context.Context) (*model.AdminStats, error) {
	query := `
		SELECT count() AS count FROM user GROUP ALL;
		SELECT count() AS count FROM memorials GROUP ALL;
		SELECT count() AS count FROM meetups GROUP ALL;
		SELECT count() AS count FROM reports WHERE status = 'open' GROUP ALL;
		SELECT count() AS count FROM organizer_applications WHERE status = 'payment_complete' GROUP ALL;
		SELECT count() AS count FROM background_check_applications WHERE status = 'pending' GROUP ALL;
		SELECT count() AS count FROM sponsors WHERE status = 'active' GROUP ALL;
		SELECT count() AS count FROM store_orders WHERE status IN ['payment_complete', 'fulfilled'] GROUP ALL;
	`
	results, err := r.db.Query(ctx, query, nil)
	if err != nil {
		return nil, err
	}

	count := func(i int) int {
		rows := statementRows(results, i)
		if len(rows) == 0 {
			return 0
		}
		return extractCountValue(rows[0]["count"])
	}
	return &model.AdminStats{
		Users:               count(0),
		Memorials:           count(1),
		Meetups:             count(2),
		OpenReports:         count(3),
		PendingApplications: count(4) + count(5),
		ActiveSponsors:      count(6),
		PaidOrders:          count(7),
	}, nil
}
