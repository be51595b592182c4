package reservation

import (
	"context"
	"time"
)

func (r *repository) GetStatsByDay(ctx context.Context, from, to time.Time) ([]StatsByDay, error) {
	query := `
SELECT
  TO_CHAR(DATE(created_at), 'YYYY-MM-DD') AS bucket,
  COUNT(*) AS reservations_created,
  COUNT(*) FILTER (WHERE status = 'CANCELLED') AS reservations_cancelled
FROM reservations
WHERE created_at BETWEEN $1 AND $2
GROUP BY DATE(created_at)
ORDER BY bucket;
`
	var stats []StatsByDay
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *repository) GetStatsByRoom(ctx context.Context, from, to time.Time) ([]StatsByRoom, error) {
	query := `
SELECT
  rm.id   AS room_id,
  rm.name AS room_name,
  COUNT(rs.id) AS reservations_created,
  COUNT(rs.id) FILTER (WHERE rs.status = 'CANCELLED') AS reservations_cancelled
FROM rooms rm
LEFT JOIN reservations rs ON rs.room_id = rm.id AND rs.created_at BETWEEN $1 AND $2
GROUP BY rm.id, rm.name
ORDER BY rm.id;
`
	var stats []StatsByRoom
	if err := r.db.SelectContext(ctx, &stats, query, from, to); err != nil {
		return nil, err
	}
	return stats, nil
}
