package routing

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLOverrides resolves active admin overrides for a dialed number.
//
// Expired rows never apply; the most recently expiring active row wins when
// an operator stacks overrides on the same line.
type SQLOverrides struct {
	db *sql.DB
}

func NewSQLOverrides(db *sql.DB) *SQLOverrides {
	return &SQLOverrides{db: db}
}

const overrideQuery = `
SELECT id, clinic_id, assistant_id, expires_at, COALESCE(metadata, '')
FROM assistant_overrides
WHERE dialed_number = $1 AND expires_at > $2
ORDER BY expires_at DESC
LIMIT 1`

func (s *SQLOverrides) GetActiveOverride(ctx context.Context, call InboundCall, now time.Time) (Override, bool, error) {
	var o Override
	err := s.db.QueryRowContext(ctx, overrideQuery, call.DialedNumber, now).
		Scan(&o.OverrideID, &o.ClinicID, &o.AssistantID, &o.ExpiresAt, &o.Metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return Override{}, false, nil
	}
	if err != nil {
		return Override{}, false, fmt.Errorf("load override for %s: %w", call.DialedNumber, err)
	}
	return o, true, nil
}
