package audit

import (
	"context"
	"database/sql"
	"fmt"
)

// PostgresRepo appends events to the audit_events table.
//
// The table is INSERT-only; no update or delete statements exist here and
// none may be added.
type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Append(ctx context.Context, e Event) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_events
		 (id, clinic_id, type, actor_user_id, actor_role, ip_address,
		  call_id, email_id, job_id, assistant_id, message, metadata, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		e.ID, e.ClinicID, string(e.Type), e.ActorUserID, e.ActorRole, e.IPAddress,
		e.CallID, e.EmailID, e.JobID, e.AssistantID, e.Message, e.Metadata, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("append audit event: %w", err)
	}
	return nil
}
