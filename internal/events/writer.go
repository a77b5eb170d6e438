package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Event types appended by the engine.
const (
	PropertyCreated   = "property.created"
	JobRecommended    = "job.recommended"
	JobSent           = "job.sent"
	JobQuoted         = "job.quoted"
	JobQuoteRejected  = "job.quote_rejected"
	JobAccepted       = "job.accepted"
	JobStarted        = "job.started"
	JobCompleted      = "job.completed"
	ChecklistToggled  = "checklist.toggled"
	AccessTokenIssued = "access_token.issued"
	ReportExported    = "report.exported"
)

// Writer appends rows to the events table inside the caller's transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, entityKind, entityID, actorID string, payload EventPayload) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event payload: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO events(ts,type,entity_kind,entity_id,actor_id,payload_json) VALUES (?,?,?,?,?,?)`,
		ts, evtType, entityKind, nullable(entityID), actorID, string(data)); err != nil {
		return fmt.Errorf("append event %s: %w", evtType, err)
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
