package routing

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SQLMappings resolves dialed numbers against the clinic number-mapping
// tables. Weighted rows for one number let a clinic run more than one
// assistant behind the same line.
type SQLMappings struct {
	db *sql.DB
}

func NewSQLMappings(db *sql.DB) *SQLMappings {
	return &SQLMappings{db: db}
}

const mappingQuery = `
SELECT c.id, c.active, n.assistant_id, n.weight
FROM assistant_numbers n
JOIN clinics c ON c.id = n.clinic_id
WHERE n.dialed_number = $1 AND n.active = TRUE
ORDER BY n.assistant_id`

func (m *SQLMappings) EvaluateInbound(ctx context.Context, call InboundCall, at time.Time) (MappingEvaluation, error) {
	rows, err := m.db.QueryContext(ctx, mappingQuery, call.DialedNumber)
	if err != nil {
		return MappingEvaluation{}, fmt.Errorf("evaluate number mapping: %w", err)
	}
	defer rows.Close()

	var ev MappingEvaluation
	clinicActive := false
	for rows.Next() {
		var (
			clinicID    string
			active      bool
			assistantID string
			weight      int
		)
		if err := rows.Scan(&clinicID, &active, &assistantID, &weight); err != nil {
			return MappingEvaluation{}, fmt.Errorf("scan number mapping: %w", err)
		}
		ev.ClinicID = clinicID
		clinicActive = active
		ev.Assistants = append(ev.Assistants, WeightedAssistant{AssistantID: assistantID, Weight: weight})
	}
	if err := rows.Err(); err != nil {
		return MappingEvaluation{}, err
	}

	if len(ev.Assistants) == 0 {
		ev.Reason = "unknown_number"
		return ev, nil
	}
	if !clinicActive {
		ev.Assistants = nil
		ev.Reason = "clinic_inactive"
		return ev, nil
	}
	ev.Allowed = true
	return ev, nil
}
