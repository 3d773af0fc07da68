package store

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
)

// fakeRow scans fixed values into the destinations.
type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = r.values[i].(int64)
		case **time.Time:
			if r.values[i] == nil {
				*p = nil
			} else {
				t := r.values[i].(time.Time)
				*p = &t
			}
		}
	}
	return nil
}

type fakeDB struct {
	row  fakeRow
	sql  string
	args []any
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.sql = sql
	f.args = args
	return f.row
}

type recordingObserver struct {
	queries []string
}

func (o *recordingObserver) QueryObserved(query string, d time.Duration) {
	o.queries = append(o.queries, query)
}

var now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestStore(db *fakeDB, obs Observer) *Store {
	s := New(db, Config{ActiveWindow: 15 * time.Minute, UsersTTL: 60 * time.Second, QueryTimeout: time.Second}, obs)
	s.now = func() time.Time { return now }
	return s
}

func TestStore_ActiveUsers(t *testing.T) {
	db := &fakeDB{row: fakeRow{values: []any{int64(37)}}}
	obs := &recordingObserver{}
	s := newTestStore(db, obs)

	got, err := s.ActiveUsers(context.Background())
	if err != nil {
		t.Fatalf("ActiveUsers failed: %v", err)
	}
	if got.Value != 37 {
		t.Errorf("Value = %d, want 37", got.Value)
	}
	if got.ExpiresInSeconds != 60 {
		t.Errorf("ExpiresInSeconds = %d, want 60", got.ExpiresInSeconds)
	}

	if !strings.Contains(db.sql, "member_sessions") {
		t.Errorf("unexpected query: %s", db.sql)
	}
	if len(db.args) != 1 || db.args[0] != now.Add(-15*time.Minute) {
		t.Errorf("args = %v, want cutoff 15m before now", db.args)
	}
	if len(obs.queries) != 1 || obs.queries[0] != QueryActiveUsers {
		t.Errorf("observed = %v", obs.queries)
	}
}

func TestStore_ActiveSubscriptions(t *testing.T) {
	updated := time.Date(2024, 1, 15, 11, 58, 0, 0, time.FixedZone("EST", -5*3600))

	tests := []struct {
		name      string
		values    []any
		wantValue int64
		wantLast  time.Time
	}{
		{"with updates", []any{int64(1250), updated}, 1250, updated.UTC()},
		{"empty table", []any{int64(0), nil}, 0, now},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestStore(&fakeDB{row: fakeRow{values: tt.values}}, nil)

			got, err := s.ActiveSubscriptions(context.Background())
			if err != nil {
				t.Fatalf("ActiveSubscriptions failed: %v", err)
			}
			if got.Value != tt.wantValue {
				t.Errorf("Value = %d, want %d", got.Value, tt.wantValue)
			}
			if !got.LastUpdated.Equal(tt.wantLast) || got.LastUpdated.Location() != time.UTC {
				t.Errorf("LastUpdated = %v, want %v in UTC", got.LastUpdated, tt.wantLast)
			}
		})
	}
}

func TestStore_QueryErrors(t *testing.T) {
	errConn := errors.New("connection refused")

	s := newTestStore(&fakeDB{row: fakeRow{err: errConn}}, nil)
	_, err := s.ActiveUsers(context.Background())
	if !errors.Is(err, errConn) {
		t.Errorf("error = %v, want wrapped connection error", err)
	}
	if err != nil && !strings.HasPrefix(err.Error(), "query active_users:") {
		t.Errorf("error = %q, want query name prefix", err.Error())
	}

	s = newTestStore(&fakeDB{row: fakeRow{err: pgx.ErrNoRows}}, nil)
	got, err := s.ActiveSubscriptions(context.Background())
	if err != nil {
		t.Fatalf("ErrNoRows should read as zero, got %v", err)
	}
	if got.Value != 0 {
		t.Errorf("Value = %d, want 0", got.Value)
	}
}
