package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const (
	driverName    = "sqlite"
	maxAttempts   = 5
	defaultTarget = "default"
)

type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

func Open(ctx context.Context, path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("history path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("history path %q is a directory, expected file", cleanPath)
	}

	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory %q: %w", dir, err)
		}
	}

	// busy_timeout + WAL let a CLI run and a server share one file.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite history %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite history %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}

	return &Store{path: cleanPath, db: db}, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SaveSnapshot inserts snapshot, replacing any row with the same target and
// timestamp.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot.Target = normalizeTarget(snapshot.Target)
	if snapshot.ID == "" {
		snapshot.ID = uuid.NewString()
	}
	if snapshot.Timestamp.IsZero() {
		snapshot.Timestamp = time.Now().UTC()
	}
	if snapshot.SchemaVersion == 0 {
		snapshot.SchemaVersion = SchemaVersion
	}
	if snapshot.SchemaVersion != SchemaVersion {
		return fmt.Errorf("unsupported snapshot schema version %d", snapshot.SchemaVersion)
	}

	top := snapshot.TopFunctions
	if top == nil {
		top = []string{}
	}
	topJSON, err := json.Marshal(top)
	if err != nil {
		return fmt.Errorf("encode top functions: %w", err)
	}

	query := `
INSERT INTO snapshots (
  id, target, schema_version, ts_utc, status, unit_count, failed_unit_count, function_count,
  edge_count, entry_point_count, external_call_count, recursive_group_count,
  avg_fan_in, avg_fan_out, max_fan_in, max_fan_out, top_functions
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(target, ts_utc) DO UPDATE SET
  id=excluded.id,
  schema_version=excluded.schema_version,
  status=excluded.status,
  unit_count=excluded.unit_count,
  failed_unit_count=excluded.failed_unit_count,
  function_count=excluded.function_count,
  edge_count=excluded.edge_count,
  entry_point_count=excluded.entry_point_count,
  external_call_count=excluded.external_call_count,
  recursive_group_count=excluded.recursive_group_count,
  avg_fan_in=excluded.avg_fan_in,
  avg_fan_out=excluded.avg_fan_out,
  max_fan_in=excluded.max_fan_in,
  max_fan_out=excluded.max_fan_out,
  top_functions=excluded.top_functions
`
	return s.withRetry(ctx, "save snapshot", func() error {
		_, err := s.db.ExecContext(ctx,
			query,
			snapshot.ID,
			snapshot.Target,
			snapshot.SchemaVersion,
			snapshot.Timestamp.UTC().Format(time.RFC3339Nano),
			snapshot.Status,
			snapshot.UnitCount,
			snapshot.FailedUnitCount,
			snapshot.FunctionCount,
			snapshot.EdgeCount,
			snapshot.EntryPointCount,
			snapshot.ExternalCallCount,
			snapshot.RecursiveGroupCount,
			snapshot.AvgFanIn,
			snapshot.AvgFanOut,
			snapshot.MaxFanIn,
			snapshot.MaxFanOut,
			string(topJSON),
		)
		return err
	})
}

// LoadSnapshots returns target's snapshots taken at or after since, oldest
// first. A zero since loads everything.
func (s *Store) LoadSnapshots(ctx context.Context, target string, since time.Time) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	base := `
SELECT
  id, target, schema_version, ts_utc, status, unit_count, failed_unit_count, function_count,
  edge_count, entry_point_count, external_call_count, recursive_group_count,
  avg_fan_in, avg_fan_out, max_fan_in, max_fan_out, top_functions
FROM snapshots
WHERE target = ?`
	args := []any{normalizeTarget(target)}
	if !since.IsZero() {
		base += " AND ts_utc >= ?"
		args = append(args, since.UTC().Format(time.RFC3339Nano))
	}
	base += " ORDER BY ts_utc ASC"

	var rows *sql.Rows
	err := s.withRetry(ctx, "load snapshots", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, base, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	snapshots := make([]Snapshot, 0)
	for rows.Next() {
		var (
			tsRaw    string
			topRaw   string
			snapshot Snapshot
		)
		if err := rows.Scan(
			&snapshot.ID,
			&snapshot.Target,
			&snapshot.SchemaVersion,
			&tsRaw,
			&snapshot.Status,
			&snapshot.UnitCount,
			&snapshot.FailedUnitCount,
			&snapshot.FunctionCount,
			&snapshot.EdgeCount,
			&snapshot.EntryPointCount,
			&snapshot.ExternalCallCount,
			&snapshot.RecursiveGroupCount,
			&snapshot.AvgFanIn,
			&snapshot.AvgFanOut,
			&snapshot.MaxFanIn,
			&snapshot.MaxFanOut,
			&topRaw,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot row: %w", err)
		}

		ts, err := time.Parse(time.RFC3339Nano, tsRaw)
		if err != nil {
			return nil, fmt.Errorf("parse snapshot timestamp %q: %w", tsRaw, err)
		}
		snapshot.Timestamp = ts.UTC()
		if err := json.Unmarshal([]byte(topRaw), &snapshot.TopFunctions); err != nil {
			return nil, fmt.Errorf("decode top functions of %s: %w", snapshot.ID, err)
		}

		snapshots = append(snapshots, snapshot)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot rows: %w", err)
	}

	return snapshots, nil
}

func (s *Store) withRetry(ctx context.Context, op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("%s: %w", op, ctx.Err())
		case <-time.After(time.Duration(attempt*25) * time.Millisecond):
		}
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}

func normalizeTarget(target string) string {
	target = strings.TrimSpace(target)
	if target == "" {
		return defaultTarget
	}
	return target
}

func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// IsCorruptError reports whether err came from a damaged database file.
func IsCorruptError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "malformed") || strings.Contains(msg, "not a database") || errors.Is(err, os.ErrInvalid)
}
