package store

import (
	"context"
	"fmt"

	"github.com/erazemk/najdeno/internal/model"
)

// topN is how many categories and locations the statistics report.
const topN = 5

// GetStatistics returns the most frequent categories and locations and the
// number of items per status.
func GetStatistics(ctx context.Context, db DBTX) (*model.Statistics, error) {
	stats := &model.Statistics{
		FrequentCategories: []model.CategoryCount{},
		CommonLocations:    []model.LocationCount{},
	}

	rows, err := db.QueryContext(ctx,
		`SELECT category, COUNT(*) AS n FROM items
		 GROUP BY category ORDER BY n DESC, category LIMIT ?`, topN,
	)
	if err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		stats.FrequentCategories = append(stats.FrequentCategories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting categories: %w", err)
	}

	rows, err = db.QueryContext(ctx,
		`SELECT location, COUNT(*) AS n FROM items
		 GROUP BY location ORDER BY n DESC, location LIMIT ?`, topN,
	)
	if err != nil {
		return nil, fmt.Errorf("counting locations: %w", err)
	}
	for rows.Next() {
		var l model.LocationCount
		if err := rows.Scan(&l.Location, &l.Count); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning location count: %w", err)
		}
		stats.CommonLocations = append(stats.CommonLocations, l)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("counting locations: %w", err)
	}

	err = db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(status = 'lost'), 0),
		        COALESCE(SUM(status = 'found'), 0),
		        COALESCE(SUM(status = 'recovered'), 0)
		 FROM items`,
	).Scan(&stats.Overview.Lost, &stats.Overview.Found, &stats.Overview.Recovered)
	if err != nil {
		return nil, fmt.Errorf("counting statuses: %w", err)
	}

	return stats, nil
}
