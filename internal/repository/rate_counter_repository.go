// internal/repository/rate_counter_repository.go
package repository

import (
	"context"
	"database/sql"
)

// RateCounterRepository backs the CPS limiter with a shared Postgres
// counter keyed by unix second, so every worker process admits against the
// same ceiling.
type RateCounterRepository struct {
	DB *sql.DB
}

// Incr increments the counter for the given second and returns the
// post-increment value. Old rows are swept when a new second opens; unlike
// a TTL store Postgres will not expire them on its own, but stale seconds
// are never read either way.
func (r *RateCounterRepository) Incr(ctx context.Context, epochSecond int64) (int64, error) {
	var count int64
	err := r.DB.QueryRowContext(ctx, `
        INSERT INTO rate_counters (epoch_second, count) VALUES ($1, 1)
        ON CONFLICT (epoch_second) DO UPDATE SET count = rate_counters.count + 1
        RETURNING count
    `, epochSecond).Scan(&count)
	if err != nil {
		return 0, err
	}

	if count == 1 {
		// First hit of a fresh second: sweep anything older than two
		// minutes. Best effort.
		_, _ = r.DB.ExecContext(ctx,
			`DELETE FROM rate_counters WHERE epoch_second < $1`, epochSecond-120)
	}
	return count, nil
}
