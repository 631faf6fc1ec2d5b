package assistant

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// Filter narrows which assistant configs a run loads. Zero value loads
// everything active.
type Filter struct {
	ClinicSlug    string
	AssistantType string
}

const loadConfigsQuery = `
SELECT c.slug, m.assistant_id, m.assistant_type, m.system_prompt, m.tool_ids
FROM assistant_mappings m
JOIN clinics c ON c.id = m.clinic_id
WHERE c.active = TRUE
  AND m.environment = 'production'
  AND ($1 = '' OR m.assistant_type = $1)
ORDER BY c.slug, m.assistant_type`

// LoadConfigs reads desired assistant state from the database. The clinic
// slug filter is applied after the query: the mapping query cannot filter
// on the joined clinics table directly, so we narrow the rows here.
func LoadConfigs(ctx context.Context, db *sql.DB, f Filter) ([]Config, error) {
	rows, err := db.QueryContext(ctx, loadConfigsQuery, f.AssistantType)
	if err != nil {
		return nil, fmt.Errorf("load assistant configs: %w", err)
	}
	defer rows.Close()

	var out []Config
	for rows.Next() {
		var (
			cfg     Config
			prompt  sql.NullString
			toolIDs sql.NullString
		)
		if err := rows.Scan(&cfg.ClinicSlug, &cfg.AssistantID, &cfg.AssistantType, &prompt, &toolIDs); err != nil {
			return nil, fmt.Errorf("scan assistant config: %w", err)
		}
		if prompt.Valid {
			cfg.SystemPrompt = &prompt.String
		}
		if toolIDs.Valid && toolIDs.String != "" {
			if err := json.Unmarshal([]byte(toolIDs.String), &cfg.ToolIDs); err != nil {
				return nil, fmt.Errorf("decode tool ids for %s: %w", cfg.AssistantID, err)
			}
		}
		if f.ClinicSlug != "" && cfg.ClinicSlug != f.ClinicSlug {
			continue
		}
		out = append(out, cfg)
	}
	return out, rows.Err()
}
