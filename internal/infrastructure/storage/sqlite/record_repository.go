package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetcontrol/internal/domain/record"

	"github.com/mattn/go-sqlite3"
	"golang.org/x/exp/slog"
)

const recordColumns = `local_id, tenant_id, collection, remote_id, client_id, logical_key, data,
	status, reason, version, sync_attempts, dirty, created_at, updated_at`

// RecordRepository реализует record.Repository на базе устройства.
type RecordRepository struct {
	db       *sql.DB
	log      *slog.Logger
	watchers *watchers
}

func NewRecordRepository(storage *Storage, log *slog.Logger) *RecordRepository {
	return &RecordRepository{
		db:       storage.db,
		log:      log.With("component", "local_record_repository"),
		watchers: newWatchers(),
	}
}

func (r *RecordRepository) Insert(ctx context.Context, rec *record.Record) (int64, error) {
	const query = `
		INSERT INTO records (tenant_id, collection, remote_id, client_id, logical_key, data,
		                     status, reason, version, sync_attempts, dirty, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query,
		rec.TenantID, rec.Collection, nullString(rec.RemoteID), rec.ClientID, rec.LogicalKey, string(rec.Data),
		rec.Status, rec.Reason, rec.Version, rec.SyncAttempts, rec.Dirty, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("insert record: %w: duplicate identity", record.ErrInvalidData)
		}
		r.log.Error("failed to insert record", "tenant_id", rec.TenantID, "collection", rec.Collection, "error", err)
		return 0, fmt.Errorf("insert record: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert record: %w", err)
	}

	if err := writeRefs(ctx, tx, id, rec); err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit insert: %w", err)
	}

	rec.LocalID = id
	r.watchers.notify(rec.TenantID, rec.Collection)
	return id, nil
}

func (r *RecordRepository) Update(ctx context.Context, rec *record.Record) error {
	const query = `
		UPDATE records
		SET remote_id = ?, logical_key = ?, data = ?, status = ?, reason = ?, version = ?,
		    sync_attempts = ?, dirty = ?, updated_at = ?
		WHERE local_id = ? AND tenant_id = ?`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, query,
		nullString(rec.RemoteID), rec.LogicalKey, string(rec.Data), rec.Status, rec.Reason, rec.Version,
		rec.SyncAttempts, rec.Dirty, rec.UpdatedAt, rec.LocalID, rec.TenantID,
	)
	if err != nil {
		r.log.Error("failed to update record", "tenant_id", rec.TenantID, "local_id", rec.LocalID, "error", err)
		return fmt.Errorf("update record: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return record.ErrNotFound
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM record_refs WHERE local_id = ?`, rec.LocalID); err != nil {
		return fmt.Errorf("clear refs: %w", err)
	}
	if err := writeRefs(ctx, tx, rec.LocalID, rec); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}

	r.watchers.notify(rec.TenantID, rec.Collection)
	return nil
}

func (r *RecordRepository) Get(ctx context.Context, tenantID string, localID int64) (*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE tenant_id = ? AND local_id = ?`
	return r.getOne(ctx, query, tenantID, localID)
}

func (r *RecordRepository) GetByRemoteID(ctx context.Context, tenantID string, c record.Collection, remoteID string) (*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE tenant_id = ? AND collection = ? AND remote_id = ?`
	return r.getOne(ctx, query, tenantID, c, remoteID)
}

func (r *RecordRepository) GetUnlinkedByClientID(ctx context.Context, tenantID string, c record.Collection, clientID string) (*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records
		WHERE tenant_id = ? AND collection = ? AND client_id = ? AND remote_id IS NULL`
	return r.getOne(ctx, query, tenantID, c, clientID)
}

func (r *RecordRepository) GetUnlinkedByLogicalKey(ctx context.Context, tenantID string, c record.Collection, key string) (*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records
		WHERE tenant_id = ? AND collection = ? AND logical_key = ? AND remote_id IS NULL
		ORDER BY local_id LIMIT 1`
	return r.getOne(ctx, query, tenantID, c, key)
}

func (r *RecordRepository) List(ctx context.Context, tenantID string, c record.Collection) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE tenant_id = ? AND collection = ? ORDER BY local_id`
	return r.getMany(ctx, query, tenantID, c)
}

func (r *RecordRepository) ListPending(ctx context.Context, tenantID string, c record.Collection) ([]*record.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records
		WHERE tenant_id = ? AND collection = ? AND (remote_id IS NULL OR dirty = 1)
		ORDER BY local_id`
	return r.getMany(ctx, query, tenantID, c)
}

func (r *RecordRepository) ListDependents(ctx context.Context, tenantID string, parent record.Collection, parentID int64) ([]*record.Record, error) {
	query := `SELECT ` + prefixed("r", recordColumns) + ` FROM records r
		WHERE r.tenant_id = ? AND r.local_id IN (
			SELECT local_id FROM record_refs WHERE parent_collection = ? AND parent_id = ?
		)
		ORDER BY r.local_id`
	return r.getMany(ctx, query, tenantID, parent, parentID)
}

func (r *RecordRepository) LinkRemoteID(ctx context.Context, tenantID string, localID int64, remoteID string) (bool, error) {
	const query = `
		UPDATE records SET remote_id = ?, updated_at = ?
		WHERE tenant_id = ? AND local_id = ? AND remote_id IS NULL
		RETURNING collection`

	var c record.Collection
	err := r.db.QueryRowContext(ctx, query, remoteID, time.Now().UTC(), tenantID, localID).Scan(&c)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		if isUniqueViolation(err) {
			// другая локальная запись уже связана с этим документом
			return false, nil
		}
		r.log.Error("failed to link remote id", "tenant_id", tenantID, "local_id", localID, "error", err)
		return false, fmt.Errorf("link remote id: %w", err)
	}

	r.watchers.notify(tenantID, c)
	return true, nil
}

func (r *RecordRepository) MarkPushed(ctx context.Context, tenantID string, localID int64, version int) error {
	const query = `
		UPDATE records SET dirty = 0, sync_attempts = 0
		WHERE tenant_id = ? AND local_id = ? AND version = ?`

	if _, err := r.db.ExecContext(ctx, query, tenantID, localID, version); err != nil {
		return fmt.Errorf("mark pushed: %w", err)
	}
	return nil
}

func (r *RecordRepository) IncrementSyncAttempts(ctx context.Context, tenantID string, localID int64) (int, error) {
	const query = `
		UPDATE records SET sync_attempts = sync_attempts + 1
		WHERE tenant_id = ? AND local_id = ?
		RETURNING sync_attempts`

	var attempts int
	err := r.db.QueryRowContext(ctx, query, tenantID, localID).Scan(&attempts)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, record.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("increment sync attempts: %w", err)
	}
	return attempts, nil
}

func (r *RecordRepository) ResetSyncAttempts(ctx context.Context, tenantID string, localID int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE records SET sync_attempts = 0 WHERE tenant_id = ? AND local_id = ?`, tenantID, localID)
	if err != nil {
		return fmt.Errorf("reset sync attempts: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return record.ErrNotFound
	}
	return nil
}

func (r *RecordRepository) CompareAndSetStatus(ctx context.Context, tenantID string, localID int64, expectedVersion int, status record.Status, reason string) (int, error) {
	const query = `
		UPDATE records
		SET status = ?, reason = ?, version = version + 1, dirty = 1, updated_at = ?
		WHERE tenant_id = ? AND local_id = ? AND version = ?
		RETURNING version, collection`

	var (
		version int
		c       record.Collection
	)
	err := r.db.QueryRowContext(ctx, query, status, reason, time.Now().UTC(), tenantID, localID, expectedVersion).
		Scan(&version, &c)
	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.Get(ctx, tenantID, localID); getErr != nil {
			return 0, getErr
		}
		return 0, record.ErrVersionConflict
	}
	if err != nil {
		r.log.Error("failed to set status", "tenant_id", tenantID, "local_id", localID, "error", err)
		return 0, fmt.Errorf("set status: %w", err)
	}

	r.watchers.notify(tenantID, c)
	return version, nil
}

func (r *RecordRepository) Status(ctx context.Context, tenantID string) ([]record.CollectionStatus, error) {
	const query = `
		SELECT collection,
		       COUNT(*),
		       SUM(CASE WHEN remote_id IS NULL THEN 1 ELSE 0 END),
		       SUM(CASE WHEN dirty = 1 AND remote_id IS NOT NULL THEN 1 ELSE 0 END),
		       SUM(CASE WHEN sync_attempts > 0 THEN 1 ELSE 0 END)
		FROM records
		WHERE tenant_id = ?
		GROUP BY collection`

	rows, err := r.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("sync status: %w", err)
	}
	defer rows.Close()

	byCollection := map[record.Collection]record.CollectionStatus{}
	for rows.Next() {
		var st record.CollectionStatus
		if err := rows.Scan(&st.Collection, &st.Total, &st.Unsynced, &st.Dirty, &st.Failing); err != nil {
			return nil, fmt.Errorf("scan sync status: %w", err)
		}
		byCollection[st.Collection] = st
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]record.CollectionStatus, 0, len(record.Collections()))
	for _, c := range record.Collections() {
		st, ok := byCollection[c]
		if !ok {
			st = record.CollectionStatus{Collection: c}
		}
		out = append(out, st)
	}
	return out, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (r *RecordRepository) getOne(ctx context.Context, query string, args ...any) (*record.Record, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, record.ErrNotFound
		}
		r.log.Error("failed to get record", "error", err)
		return nil, fmt.Errorf("get record: %w", err)
	}
	if err := r.loadRefs(ctx, []*record.Record{rec}); err != nil {
		return nil, err
	}
	return rec, nil
}

func (r *RecordRepository) getMany(ctx context.Context, query string, args ...any) ([]*record.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.log.Error("failed to list records", "error", err)
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	records := make([]*record.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	if err := r.loadRefs(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func scanRecord(row scanner) (*record.Record, error) {
	var (
		rec      record.Record
		remoteID sql.NullString
		data     string
	)
	err := row.Scan(&rec.LocalID, &rec.TenantID, &rec.Collection, &remoteID, &rec.ClientID, &rec.LogicalKey, &data,
		&rec.Status, &rec.Reason, &rec.Version, &rec.SyncAttempts, &rec.Dirty, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, err
	}
	rec.RemoteID = remoteID.String
	rec.Data = []byte(data)
	return &rec, nil
}

func (r *RecordRepository) loadRefs(ctx context.Context, records []*record.Record) error {
	if len(records) == 0 {
		return nil
	}
	byID := make(map[int64]*record.Record, len(records))
	placeholders := make([]string, 0, len(records))
	args := make([]any, 0, len(records))
	for _, rec := range records {
		byID[rec.LocalID] = rec
		placeholders = append(placeholders, "?")
		args = append(args, rec.LocalID)
	}

	query := `SELECT local_id, name, parent_id FROM record_refs WHERE local_id IN (` + strings.Join(placeholders, ",") + `)`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("load refs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			localID, parentID int64
			name              string
		)
		if err := rows.Scan(&localID, &name, &parentID); err != nil {
			return fmt.Errorf("scan ref: %w", err)
		}
		rec := byID[localID]
		if rec.Refs == nil {
			rec.Refs = map[string]int64{}
		}
		rec.Refs[name] = parentID
	}
	return rows.Err()
}

func writeRefs(ctx context.Context, tx *sql.Tx, localID int64, rec *record.Record) error {
	if len(rec.Refs) == 0 {
		return nil
	}
	schema, err := record.SchemaFor(rec.Collection)
	if err != nil {
		return err
	}
	for name, parentID := range rec.Refs {
		if parentID == 0 {
			continue
		}
		parent, ok := schema.Refs[name]
		if !ok {
			return fmt.Errorf("%w: unknown reference %s.%s", record.ErrInvalidData, rec.Collection, name)
		}
		_, err := tx.ExecContext(ctx,
			`INSERT INTO record_refs (local_id, name, parent_collection, parent_id) VALUES (?, ?, ?, ?)`,
			localID, name, parent, parentID)
		if err != nil {
			return fmt.Errorf("write ref %s: %w", name, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = alias + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
