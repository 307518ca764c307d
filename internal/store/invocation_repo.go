package store

import (
	"context"
	"database/sql"
	"log"
	"net/url"
	"time"

	"github.com/google/uuid"

	"vision-lab/internal/invoker"
)

// Schema creates the journal table. Apply it once per database.
const Schema = `
create table if not exists invocations (
  id           uuid primary key,
  created_at   timestamptz not null default now(),
  request_id   text not null,
  source       text not null default '',
  op           text not null,
  method       text not null,
  endpoint     text not null,
  status_code  integer not null default 0,
  fault_kind   text not null default '',
  duration_ms  bigint not null default 0,
  error        text not null default ''
);
create index if not exists invocations_created_at_idx on invocations (created_at desc);`

// Entry is one journaled inference call.
type Entry struct {
	ID         uuid.UUID
	CreatedAt  time.Time
	RequestID  string
	Source     string
	Op         string
	Method     string
	Endpoint   string
	StatusCode int
	FaultKind  string
	Duration   time.Duration
	Error      string
}

type InvocationRepo struct{ DB *sql.DB }

func NewInvocationRepo(db *sql.DB) *InvocationRepo { return &InvocationRepo{DB: db} }

func (r *InvocationRepo) Migrate(ctx context.Context) error {
	_, err := r.DB.ExecContext(ctx, Schema)
	return err
}

// Insert stores e. A zero ID or CreatedAt is filled in.
func (r *InvocationRepo) Insert(ctx context.Context, e Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	const q = `
insert into invocations (
  id, created_at, request_id, source, op, method, endpoint,
  status_code, fault_kind, duration_ms, error
) values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`
	_, err := r.DB.ExecContext(ctx, q,
		e.ID.String(), e.CreatedAt, e.RequestID, e.Source, e.Op, e.Method, e.Endpoint,
		e.StatusCode, e.FaultKind, e.Duration.Milliseconds(), e.Error)
	return err
}

// Recent returns the n newest entries, newest first.
func (r *InvocationRepo) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	const q = `
select id, created_at, request_id, source, op, method, endpoint,
       status_code, fault_kind, duration_ms, error
from invocations
order by created_at desc
limit $1`
	rows, err := r.DB.QueryContext(ctx, q, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e  Entry
			id string
			ms int64
		)
		if err := rows.Scan(&id, &e.CreatedAt, &e.RequestID, &e.Source, &e.Op, &e.Method, &e.Endpoint,
			&e.StatusCode, &e.FaultKind, &ms, &e.Error); err != nil {
			return nil, err
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, err
		}
		e.Duration = time.Duration(ms) * time.Millisecond
		out = append(out, e)
	}
	return out, rows.Err()
}

// PurgeOlderThan deletes entries older than age and reports how many went.
func (r *InvocationRepo) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	const q = `delete from invocations where created_at < $1`
	res, err := r.DB.ExecContext(ctx, q, time.Now().UTC().Add(-age))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// EntryFromOutcome converts an invoker outcome. The endpoint keeps scheme, host and path only.
func EntryFromOutcome(o invoker.Outcome, source string) Entry {
	e := Entry{
		RequestID:  o.RequestID,
		Source:     source,
		Op:         o.Op,
		Method:     o.Method,
		Endpoint:   stripQuery(o.Endpoint),
		StatusCode: o.StatusCode,
		Duration:   o.Duration,
	}
	if o.Kind != invoker.KindNone {
		e.FaultKind = o.Kind.String()
	}
	if o.Err != nil {
		e.Error = o.Err.Error()
	}
	return e
}

func stripQuery(endpoint string) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	u.RawQuery = ""
	u.Fragment = ""
	u.User = nil
	return u.String()
}

type inserter interface {
	Insert(ctx context.Context, e Entry) error
}

// Observer journals every outcome through ins. Insert failures are logged, never returned:
// the journal must not change the result of the call it records.
func Observer(ctx context.Context, ins inserter, source string) func(invoker.Outcome) {
	return func(o invoker.Outcome) {
		ictx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := ins.Insert(ictx, EntryFromOutcome(o, source)); err != nil {
			log.Printf("journal insert %s (%s): %v", o.Op, o.RequestID, err)
		}
	}
}
