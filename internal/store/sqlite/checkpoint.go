package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// ShopCheckpoint returns the most recent updated_at across a shop's
// bundles. If the shop has none, it returns a zero time.Time.
func (s *Store) ShopCheckpoint(ctx context.Context, shopDomain string) (time.Time, error) {
	var maxUpdated sql.NullString

	err := s.db.QueryRowContext(ctx,
		`SELECT MAX(updated_at) FROM bundles WHERE shop_domain = ?`,
		shopDomain).Scan(&maxUpdated)
	if err != nil {
		return time.Time{}, fmt.Errorf("query shop checkpoint: %w", err)
	}

	if !maxUpdated.Valid || maxUpdated.String == "" {
		return time.Time{}, nil
	}

	t, err := parseTime(maxUpdated.String)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse checkpoint time: %w", err)
	}

	return t, nil
}
