package threads

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"github.com/yswa-var/DOCX-agent/internal/errors"
)

// SQLStore keeps threads in the SQLite threads table.
type SQLStore struct {
	db *sql.DB
}

// NewSQLStore wraps a database initialized by db.Init.
func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const threadColumns = `id, platform, user_id, pending_json, created_at, last_activity_at`

func (s *SQLStore) GetOrCreate(ctx context.Context, id Identity) (*Thread, bool, error) {
	if err := validateIdentity(id); err != nil {
		return nil, false, err
	}

	th, err := s.scanOne(ctx, `SELECT `+threadColumns+` FROM threads WHERE platform = ? AND user_id = ?`, id.Platform, id.UserID)
	if err == nil {
		return th, false, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, false, err
	}

	now := time.Now().Unix()
	th = &Thread{ThreadID: NewID(), Identity: id, CreatedAt: now, LastActivityAt: now}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threads (id, platform, user_id, created_at, last_activity_at) VALUES (?, ?, ?, ?, ?)`,
		th.ThreadID, id.Platform, id.UserID, now, now)
	if err != nil {
		if isUniqueConstraintError(err) {
			// Lost a race with another creator for the same identity.
			th, err := s.scanOne(ctx, `SELECT `+threadColumns+` FROM threads WHERE platform = ? AND user_id = ?`, id.Platform, id.UserID)
			return th, false, err
		}
		return nil, false, errors.NewInternal(fmt.Errorf("insert thread: %w", err))
	}
	return th, true, nil
}

func (s *SQLStore) Get(ctx context.Context, threadID string) (*Thread, error) {
	th, err := s.scanOne(ctx, `SELECT `+threadColumns+` FROM threads WHERE id = ?`, threadID)
	if err != nil && errors.Is(err, errors.ErrNotFound) {
		return nil, errors.NewNotFound("thread", threadID)
	}
	return th, err
}

func (s *SQLStore) SetPending(ctx context.Context, threadID string, req *ApprovalRequest) error {
	data, err := json.Marshal(req)
	if err != nil {
		return errors.NewInternal(err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE threads SET pending_id = ?, pending_json = ?, last_activity_at = ? WHERE id = ? AND pending_id IS NULL`,
		req.RequestID, string(data), time.Now().Unix(), threadID)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("set pending: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if n == 1 {
		return nil
	}

	th, err := s.Get(ctx, threadID)
	if err != nil {
		return err
	}
	current := ""
	if th.Pending != nil {
		current = th.Pending.RequestID
	}
	return errors.NewPendingApprovalConflict(threadID, current)
}

func (s *SQLStore) ClearPending(ctx context.Context, threadID, requestID string) (*ApprovalRequest, error) {
	var pendingJSON sql.NullString
	err := s.db.QueryRowContext(ctx, `SELECT pending_json FROM threads WHERE id = ? AND pending_id = ?`, threadID, requestID).Scan(&pendingJSON)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNoPendingApproval(threadID)
	}
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("read pending: %w", err))
	}

	// Request ids are unique, so whoever clears the row owns the JSON read above.
	res, err := s.db.ExecContext(ctx,
		`UPDATE threads SET pending_id = NULL, pending_json = NULL, last_activity_at = ? WHERE id = ? AND pending_id = ?`,
		time.Now().Unix(), threadID, requestID)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("clear pending: %w", err))
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return nil, errors.NewNoPendingApproval(threadID)
	}
	return decodeRequest(pendingJSON.String)
}

func (s *SQLStore) Touch(ctx context.Context, threadID string, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `UPDATE threads SET last_activity_at = ? WHERE id = ?`, at.Unix(), threadID)
	if err != nil {
		return errors.NewInternal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("thread", threadID)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, threadID string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID)
	if err != nil {
		return errors.NewInternal(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errors.NewNotFound("thread", threadID)
	}
	return nil
}

func (s *SQLStore) List(ctx context.Context) ([]*Thread, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+threadColumns+` FROM threads ORDER BY last_activity_at DESC, id`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	out := make([]*Thread, 0)
	for rows.Next() {
		th, err := scanThread(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, th)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return out, nil
}

// Close is a no-op; the database handle belongs to the caller.
func (s *SQLStore) Close() error { return nil }

func (s *SQLStore) scanOne(ctx context.Context, query string, args ...any) (*Thread, error) {
	row := s.db.QueryRowContext(ctx, query, args...)
	th, err := scanThread(row)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewNotFound("thread", fmt.Sprint(args...))
		}
		return nil, err
	}
	return th, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanThread(sc scanner) (*Thread, error) {
	var (
		th          Thread
		pendingJSON sql.NullString
	)
	err := sc.Scan(&th.ThreadID, &th.Identity.Platform, &th.Identity.UserID, &pendingJSON, &th.CreatedAt, &th.LastActivityAt)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.NewInternal(err)
	}
	if pendingJSON.Valid && pendingJSON.String != "" {
		req, err := decodeRequest(pendingJSON.String)
		if err != nil {
			return nil, err
		}
		th.Pending = req
	}
	return &th, nil
}

func decodeRequest(data string) (*ApprovalRequest, error) {
	var req ApprovalRequest
	if err := json.Unmarshal([]byte(data), &req); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("decode pending approval: %w", err))
	}
	return &req, nil
}

func validateIdentity(id Identity) error {
	if strings.TrimSpace(id.Platform) == "" || strings.TrimSpace(id.UserID) == "" {
		return errors.NewInvalidRequest("platform and user_id are required")
	}
	return nil
}

// isUniqueConstraintError checks if the error is a SQLite UNIQUE constraint violation.
func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
