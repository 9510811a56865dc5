package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"fleetcontrol/internal/domain/record"
	docsync "fleetcontrol/internal/domain/sync"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/exp/slog"
)

const (
	documentColumns = `id, tenant_id, collection, data, status, reason, version, updated_at`

	pgCheckViolation = "23514"
)

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

var sqlOps = map[docsync.Op]string{
	docsync.OpEq:  "=",
	docsync.OpNe:  "<>",
	docsync.OpLt:  "<",
	docsync.OpLte: "<=",
	docsync.OpGt:  ">",
	docsync.OpGte: ">=",
}

// DocumentStore - RemoteStore поверх таблицы documents.
type DocumentStore struct {
	pool *pgxpool.Pool
	hub  *notifyHub
	log  *slog.Logger
}

func NewDocumentStore(storage *Storage, log *slog.Logger) *DocumentStore {
	log = log.With("component", "document_store")
	s := &DocumentStore{pool: storage.pool, log: log}
	s.hub = newNotifyHub(storage.pool, log)
	return s
}

// Close останавливает слушателя уведомлений. Пул закрывает Storage.
func (s *DocumentStore) Close() {
	s.hub.close()
}

// Put сохраняет документ идемпотентно. Статус и причина берутся только при вставке,
// дальше они меняются через CompareAndSetStatus. Данные решенного документа
// (APPROVED, REJECTED) не перезаписываются: Put возвращает record.ErrFinalized.
func (s *DocumentStore) Put(ctx context.Context, doc docsync.Document) (docsync.Document, error) {
	const query = `
		INSERT INTO documents (tenant_id, collection, id, owner_id, data, status, reason, version)
		VALUES ($1, $2, $3, $1, $4, $5, $6, GREATEST($7, 1))
		ON CONFLICT (tenant_id, collection, id) DO UPDATE
		SET data = EXCLUDED.data,
		    version = documents.version + 1,
		    updated_at = now()
		WHERE documents.data IS DISTINCT FROM EXCLUDED.data
		  AND documents.status IN ('', 'PENDING')
		RETURNING ` + documentColumns

	if doc.TenantID == "" {
		return docsync.Document{}, fmt.Errorf("%w: tenant id is required", record.ErrInvalidData)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	data := doc.Data
	if len(data) == 0 {
		data = []byte(`{}`)
	}

	row := s.pool.QueryRow(ctx, query,
		doc.TenantID, string(doc.Collection), doc.ID, string(data), string(doc.Status), doc.Reason, doc.Version)
	saved, err := scanDocument(row)
	if errors.Is(err, pgx.ErrNoRows) {
		// либо данные уже те же, либо документ решен
		return s.existing(ctx, doc.TenantID, doc.Collection, doc.ID, data)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgCheckViolation {
			return docsync.Document{}, fmt.Errorf("%w: %s", record.ErrInvalidData, pgErr.ConstraintName)
		}
		s.log.Error("failed to put document", "path", doc.Path(), "error", err)
		return docsync.Document{}, fmt.Errorf("put document: %w", err)
	}
	return saved, nil
}

// existing возвращает документ, который Put не изменил, или ErrFinalized,
// если изменение данных отклонено из-за решенного статуса.
func (s *DocumentStore) existing(ctx context.Context, tenantID string, c record.Collection, id string, data []byte) (docsync.Document, error) {
	const query = `
		SELECT ` + documentColumns + `, data IS DISTINCT FROM $4::jsonb
		FROM documents
		WHERE tenant_id = $1 AND collection = $2 AND id = $3`

	var changed bool
	doc, err := scanDocumentWith(s.pool.QueryRow(ctx, query, tenantID, string(c), id, string(data)), &changed)
	if errors.Is(err, pgx.ErrNoRows) {
		return docsync.Document{}, docsync.ErrDocumentNotFound
	}
	if err != nil {
		s.log.Error("failed to read document after put", "tenant_id", tenantID, "collection", c, "id", id, "error", err)
		return docsync.Document{}, fmt.Errorf("get document: %w", err)
	}
	if changed && doc.Status.Terminal() {
		return doc, fmt.Errorf("%w: %s is %s", record.ErrFinalized, doc.Path(), doc.Status)
	}
	return doc, nil
}

func (s *DocumentStore) Get(ctx context.Context, tenantID string, c record.Collection, id string) (*docsync.Document, error) {
	const query = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE tenant_id = $1 AND collection = $2 AND id = $3`

	doc, err := scanDocument(s.pool.QueryRow(ctx, query, tenantID, string(c), id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, docsync.ErrDocumentNotFound
	}
	if err != nil {
		s.log.Error("failed to get document", "tenant_id", tenantID, "collection", c, "id", id, "error", err)
		return nil, fmt.Errorf("get document: %w", err)
	}
	return &doc, nil
}

func (s *DocumentStore) Query(ctx context.Context, tenantID string, c record.Collection, q docsync.Query) ([]docsync.Document, error) {
	query, args, err := buildQuery(tenantID, c, q)
	if err != nil {
		return nil, err
	}
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		s.log.Error("failed to query documents", "tenant_id", tenantID, "collection", c, "error", err)
		return nil, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []docsync.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate documents: %w", err)
	}
	return docs, nil
}

func (s *DocumentStore) CompareAndSetStatus(ctx context.Context, tenantID string, c record.Collection, id string, expectedVersion int, status record.Status, reason string) (int, error) {
	const update = `
		UPDATE documents
		SET status = $4, reason = $5, version = version + 1, updated_at = now()
		WHERE tenant_id = $1 AND collection = $2 AND id = $3 AND version = $6
		RETURNING version`

	var version int
	err := s.pool.QueryRow(ctx, update, tenantID, string(c), id, string(status), reason, expectedVersion).Scan(&version)
	if err == nil {
		return version, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		s.log.Error("failed to set document status", "tenant_id", tenantID, "id", id, "error", err)
		return 0, fmt.Errorf("set status: %w", err)
	}

	current, err := s.Get(ctx, tenantID, c, id)
	if err != nil {
		return 0, err
	}
	return current.Version, record.ErrVersionConflict
}

func (s *DocumentStore) Subscribe(ctx context.Context, tenantID string, c record.Collection, sink func([]docsync.Document)) (docsync.Subscription, error) {
	if err := s.hub.start(); err != nil {
		return nil, err
	}
	load := func(ctx context.Context) ([]docsync.Document, error) {
		return s.Query(ctx, tenantID, c, docsync.Query{})
	}
	return s.hub.subscribe(ctx, tenantID+"/"+string(c), load, sink), nil
}

func (s *DocumentStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// buildQuery превращает Query в SQL. Имена полей проверяются и передаются
// параметрами; операторы берутся из фиксированной таблицы.
func buildQuery(tenantID string, c record.Collection, q docsync.Query) (string, []any, error) {
	var sb strings.Builder
	sb.WriteString(`SELECT ` + documentColumns + ` FROM documents WHERE tenant_id = $1 AND collection = $2`)
	args := []any{tenantID, string(c)}

	param := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	for _, f := range q.Filters {
		op, ok := sqlOps[f.Op]
		if !ok {
			return "", nil, fmt.Errorf("%w: unsupported operator %q", record.ErrInvalidData, f.Op)
		}
		if !fieldName.MatchString(f.Field) {
			return "", nil, fmt.Errorf("%w: bad field name %q", record.ErrInvalidData, f.Field)
		}

		if f.Field == "status" {
			sb.WriteString(" AND status " + op + " " + param(fmt.Sprint(f.Value)))
			continue
		}
		switch v := f.Value.(type) {
		case int, int32, int64, float32, float64:
			key := param(f.Field)
			sb.WriteString(" AND (CASE WHEN jsonb_typeof(data->" + key + ") = 'number' THEN (data->>" + key + ")::numeric END) " + op + " " + param(v))
		case bool:
			sb.WriteString(" AND data->" + param(f.Field) + " " + op + " " + param(strconv.FormatBool(v)) + "::jsonb")
		default:
			sb.WriteString(" AND data->>" + param(f.Field) + " " + op + " " + param(fmt.Sprint(v)))
		}
	}

	sb.WriteString(" ORDER BY id")
	if q.Limit > 0 {
		sb.WriteString(" LIMIT " + param(q.Limit))
	}
	return sb.String(), args, nil
}

func scanDocument(row pgx.Row) (docsync.Document, error) {
	return scanDocumentWith(row)
}

// scanDocumentWith сканирует documentColumns и дополнительные колонки в extra.
func scanDocumentWith(row pgx.Row, extra ...any) (docsync.Document, error) {
	var (
		doc        docsync.Document
		collection string
		status     string
		data       []byte
	)
	dest := append([]any{&doc.ID, &doc.TenantID, &collection, &data, &status, &doc.Reason, &doc.Version, &doc.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return docsync.Document{}, err
	}
	doc.Collection = record.Collection(collection)
	doc.Status = record.Status(status)
	doc.Data = data
	return doc, nil
}
