package calls

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"vetvoice-platform/pkg/utils"
)

// Repo is the Postgres-backed Store/CaseStore implementation.
//
// Tenancy invariant: every row carries clinic_id; callers that list or
// aggregate must scope by it. Single-row lookups here go through unique ids.
type Repo struct {
	db *sql.DB
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{db: db}
}

const callColumns = `call_id, clinic_id, case_id, provider_call_id, customer_number,
	assistant_id, status, ended_reason, attention_types, attention_severity,
	attention_summary, scheduled_for, created_at, updated_at`

func (r *Repo) GetByID(ctx context.Context, callID string) (CallRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE call_id = $1`, callID)
	return scanCall(row)
}

func (r *Repo) GetByProviderID(ctx context.Context, providerCallID string) (CallRecord, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+callColumns+` FROM calls WHERE provider_call_id = $1`, providerCallID)
	return scanCall(row)
}

// Update applies only the given fields. Keys are whitelisted; an unknown key
// is a programming error and fails loudly.
func (r *Repo) Update(ctx context.Context, callID string, fields map[string]any) error {
	return dynamicUpdate(ctx, r.db, "calls", "call_id", callID, fields, callUpdatableColumns)
}

var callUpdatableColumns = map[string]bool{
	"provider_call_id":   true,
	"status":             true,
	"ended_reason":       true,
	"attention_types":    true,
	"attention_severity": true,
	"attention_summary":  true,
	"scheduled_for":      true,
	"updated_at":         true,
}

// MarkUrgent flags the parent case for staff review.
func (r *Repo) MarkUrgent(ctx context.Context, caseID, summary string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cases SET urgent = TRUE, urgent_summary = $2, updated_at = NOW() WHERE case_id = $1`,
		caseID, summary)
	if err != nil {
		return fmt.Errorf("mark case %s urgent: %w", caseID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListCalls returns the clinic's calls created inside [from, to), oldest
// first. Reporting reads go through here; the clinic_id filter is the
// tenancy boundary.
func (r *Repo) ListCalls(ctx context.Context, clinicID string, from, to time.Time) ([]CallRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+callColumns+` FROM calls
		 WHERE clinic_id = $1 AND created_at >= $2 AND created_at < $3
		 ORDER BY created_at`, clinicID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calls for clinic %s: %w", clinicID, err)
	}
	defer rows.Close()

	var out []CallRecord
	for rows.Next() {
		rec, err := scanCall(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetCaseRecords returns the newest call and email attached to a case.
// Either may be nil; both nil means the case is unknown to this clinic.
// Both lookups run in one read-only transaction so the pair always comes
// from a single snapshot.
func (r *Repo) GetCaseRecords(ctx context.Context, clinicID, caseID string) (*CallRecord, *EmailRecord, error) {
	var call *CallRecord
	var email *EmailRecord

	txErr := utils.WithTx(ctx, r.db, &sql.TxOptions{ReadOnly: true}, func(ctx context.Context, tx *sql.Tx) error {
		rec, err := scanCall(tx.QueryRowContext(ctx,
			`SELECT `+callColumns+` FROM calls
			 WHERE clinic_id = $1 AND case_id = $2
			 ORDER BY created_at DESC LIMIT 1`, clinicID, caseID))
		switch {
		case err == nil:
			call = &rec
		case !errors.Is(err, ErrNotFound):
			return err
		}

		var e EmailRecord
		var scheduledFor sql.NullTime
		err = tx.QueryRowContext(ctx,
			`SELECT email_id, clinic_id, status, scheduled_for, created_at, updated_at
			 FROM emails WHERE clinic_id = $1 AND case_id = $2
			 ORDER BY created_at DESC LIMIT 1`, clinicID, caseID).
			Scan(&e.ID, &e.ClinicID, &e.Status, &scheduledFor, &e.CreatedAt, &e.UpdatedAt)
		switch {
		case err == nil:
			e.CaseID = caseID
			if scheduledFor.Valid {
				t := scheduledFor.Time
				e.ScheduledFor = &t
			}
			email = &e
		case !errors.Is(err, sql.ErrNoRows):
			return err
		}
		return nil
	})
	if txErr != nil {
		return nil, nil, txErr
	}

	if call == nil && email == nil {
		return nil, nil, ErrNotFound
	}
	return call, email, nil
}

func (r *Repo) GetEmail(ctx context.Context, emailID string) (EmailRecord, error) {
	var e EmailRecord
	var caseID sql.NullString
	var scheduledFor sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT email_id, clinic_id, case_id, status, scheduled_for, created_at, updated_at
		 FROM emails WHERE email_id = $1`, emailID).
		Scan(&e.ID, &e.ClinicID, &caseID, &e.Status, &scheduledFor, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return EmailRecord{}, ErrNotFound
	}
	if err != nil {
		return EmailRecord{}, err
	}
	e.CaseID = caseID.String
	if scheduledFor.Valid {
		t := scheduledFor.Time
		e.ScheduledFor = &t
	}
	return e, nil
}

func (r *Repo) UpdateEmailStatus(ctx context.Context, emailID string, status EmailStatus) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE emails SET status = $2, updated_at = NOW() WHERE email_id = $1`,
		emailID, string(status))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCall(row rowScanner) (CallRecord, error) {
	var rec CallRecord
	var caseID, providerCallID, endedReason, attentionTypes, severity, summary sql.NullString
	var scheduledFor sql.NullTime

	err := row.Scan(
		&rec.ID, &rec.ClinicID, &caseID, &providerCallID, &rec.CustomerNumber,
		&rec.AssistantID, &rec.Status, &endedReason, &attentionTypes, &severity,
		&summary, &scheduledFor, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return CallRecord{}, ErrNotFound
	}
	if err != nil {
		return CallRecord{}, err
	}

	rec.CaseID = caseID.String
	rec.ProviderCallID = providerCallID.String
	rec.EndedReason = endedReason.String
	rec.AttentionSeverity = Severity(severity.String)
	rec.AttentionSummary = summary.String
	if scheduledFor.Valid {
		t := scheduledFor.Time
		rec.ScheduledFor = &t
	}
	if attentionTypes.Valid && attentionTypes.String != "" {
		// attention_types is stored as a JSON array in a text column.
		_ = json.Unmarshal([]byte(attentionTypes.String), &rec.AttentionTypes)
	}
	return rec, nil
}

// dynamicUpdate builds an UPDATE from a field map with deterministic column
// order. []string values are stored as JSON text.
func dynamicUpdate(ctx context.Context, db *sql.DB, table, idColumn, id string, fields map[string]any, allowed map[string]bool) error {
	if len(fields) == 0 {
		return nil
	}

	keys := make([]string, 0, len(fields))
	for k := range fields {
		if !allowed[k] {
			return fmt.Errorf("column %q is not updatable on %s", k, table)
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	set := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	args = append(args, id)
	for i, k := range keys {
		set = append(set, fmt.Sprintf("%s = $%d", k, i+2))
		v := fields[k]
		if ss, ok := v.([]string); ok {
			b, err := json.Marshal(ss)
			if err != nil {
				return err
			}
			v = string(b)
		}
		args = append(args, v)
	}

	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $1", table, strings.Join(set, ", "), idColumn)
	res, err := db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}
