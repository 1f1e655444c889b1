package repo

import (
	"context"
	"database/sql"

	"teamline/internal/domain"
)

const documentColumns = `id,title,content_json,project_id,task_id,created_by,is_live_shared,created_at,updated_at`

func scanDocument(scan func(dest ...any) error) (domain.Document, error) {
	var d domain.Document
	var projectID, taskID sql.NullString
	err := scan(&d.ID, &d.Title, &d.ContentJSON, &projectID, &taskID, &d.CreatedBy, &d.IsLiveShared, &d.CreatedAt, &d.UpdatedAt)
	if err == sql.ErrNoRows {
		return d, ErrNotFound
	}
	if err != nil {
		return d, err
	}
	d.ProjectID = optString(projectID)
	d.TaskID = optString(taskID)
	return d, nil
}

func (r Repo) InsertDocument(ctx context.Context, tx *sql.Tx, d domain.Document) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO documents(`+documentColumns+`) VALUES (?,?,?,?,?,?,?,?,?)`,
		d.ID, d.Title, d.ContentJSON, nullableStringPtr(d.ProjectID), nullableStringPtr(d.TaskID),
		d.CreatedBy, d.IsLiveShared, d.CreatedAt, d.UpdatedAt)
	return err
}

func (r Repo) UpdateDocument(ctx context.Context, tx *sql.Tx, d domain.Document) error {
	res, err := tx.ExecContext(ctx, `UPDATE documents SET title=?, content_json=?, is_live_shared=?, updated_at=? WHERE id=?`,
		d.Title, d.ContentJSON, d.IsLiveShared, d.UpdatedAt, d.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetDocument(ctx context.Context, id string) (domain.Document, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=?`, id)
	return scanDocument(row.Scan)
}

func (r Repo) GetDocumentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Document, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM documents WHERE id=?`, id)
	return scanDocument(row.Scan)
}

type DocumentFilters struct {
	ProjectID string
	TaskID    string
	CreatedBy string
	Limit     int
}

func (r Repo) ListDocuments(ctx context.Context, f DocumentFilters) ([]domain.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE 1=1`
	var args []any
	if f.ProjectID != "" {
		query += ` AND project_id=?`
		args = append(args, f.ProjectID)
	}
	if f.TaskID != "" {
		query += ` AND task_id=?`
		args = append(args, f.TaskID)
	}
	if f.CreatedBy != "" {
		query += ` AND created_by=?`
		args = append(args, f.CreatedBy)
	}
	query += ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Document
	for rows.Next() {
		d, err := scanDocument(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

func (r Repo) InsertDocumentVersion(ctx context.Context, tx *sql.Tx, v domain.DocumentVersion) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO document_versions(id,document_id,version_number,content_json,created_by,created_at) VALUES (?,?,?,?,?,?)`,
		v.ID, v.DocumentID, v.VersionNumber, v.ContentJSON, v.CreatedBy, v.CreatedAt)
	return err
}

// NextVersionNumber returns MAX(version_number)+1 for the document, read
// inside the caller's transaction so concurrent appends cannot collide.
func (r Repo) NextVersionNumber(ctx context.Context, tx *sql.Tx, documentID string) (int, error) {
	var max int
	err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(version_number),0) FROM document_versions WHERE document_id=?`, documentID).Scan(&max)
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (r Repo) ListDocumentVersions(ctx context.Context, documentID string) ([]domain.DocumentVersion, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,document_id,version_number,content_json,created_by,created_at FROM document_versions WHERE document_id=? ORDER BY version_number ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DocumentVersion
	for rows.Next() {
		var v domain.DocumentVersion
		if err := rows.Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.ContentJSON, &v.CreatedBy, &v.CreatedAt); err != nil {
			return nil, err
		}
		res = append(res, v)
	}
	return res, rows.Err()
}

func (r Repo) LatestVersionTx(ctx context.Context, tx *sql.Tx, documentID string) (domain.DocumentVersion, error) {
	var v domain.DocumentVersion
	err := tx.QueryRowContext(ctx, `SELECT id,document_id,version_number,content_json,created_by,created_at FROM document_versions WHERE document_id=? ORDER BY version_number DESC LIMIT 1`, documentID).
		Scan(&v.ID, &v.DocumentID, &v.VersionNumber, &v.ContentJSON, &v.CreatedBy, &v.CreatedAt)
	if err == sql.ErrNoRows {
		return v, ErrNotFound
	}
	return v, err
}

func (r Repo) UpsertShare(ctx context.Context, tx *sql.Tx, s domain.DocumentShare) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO document_shares(document_id,user_id,mode,pinned_version_id,shared_at) VALUES (?,?,?,?,?)
ON CONFLICT(document_id,user_id) DO UPDATE SET mode=excluded.mode, pinned_version_id=excluded.pinned_version_id, shared_at=excluded.shared_at`,
		s.DocumentID, s.UserID, s.Mode, nullableStringPtr(s.PinnedVersionID), s.SharedAt)
	return err
}

// RepinStaticShares points every static share at the given version and
// refreshes shared_at. Applied whenever a new version is appended.
func (r Repo) RepinStaticShares(ctx context.Context, tx *sql.Tx, documentID, versionID, sharedAt string) error {
	_, err := tx.ExecContext(ctx, `UPDATE document_shares SET pinned_version_id=?, shared_at=? WHERE document_id=? AND mode='static'`,
		versionID, sharedAt, documentID)
	return err
}

func (r Repo) GetShareTx(ctx context.Context, tx *sql.Tx, documentID, userID string) (domain.DocumentShare, error) {
	var s domain.DocumentShare
	var pinned sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT document_id,user_id,mode,pinned_version_id,shared_at FROM document_shares WHERE document_id=? AND user_id=?`,
		documentID, userID).Scan(&s.DocumentID, &s.UserID, &s.Mode, &pinned, &s.SharedAt)
	if err == sql.ErrNoRows {
		return s, ErrNotFound
	}
	if err != nil {
		return s, err
	}
	s.PinnedVersionID = optString(pinned)
	return s, nil
}

func (r Repo) ListShares(ctx context.Context, documentID string) ([]domain.DocumentShare, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT document_id,user_id,mode,pinned_version_id,shared_at FROM document_shares WHERE document_id=? ORDER BY shared_at ASC, user_id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.DocumentShare
	for rows.Next() {
		var s domain.DocumentShare
		var pinned sql.NullString
		if err := rows.Scan(&s.DocumentID, &s.UserID, &s.Mode, &pinned, &s.SharedAt); err != nil {
			return nil, err
		}
		s.PinnedVersionID = optString(pinned)
		res = append(res, s)
	}
	return res, rows.Err()
}

// CountLiveShares reports how many live-mode shares remain on the document.
func (r Repo) CountLiveShares(ctx context.Context, tx *sql.Tx, documentID string) (int, error) {
	var n int
	err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM document_shares WHERE document_id=? AND mode='live'`, documentID).Scan(&n)
	return n, err
}

func (r Repo) AddLiveEditor(ctx context.Context, tx *sql.Tx, documentID, userID, joinedAt string) error {
	_, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO document_live_editors(document_id,user_id,joined_at) VALUES (?,?,?)`,
		documentID, userID, joinedAt)
	return err
}

func (r Repo) RemoveLiveEditor(ctx context.Context, tx *sql.Tx, documentID, userID string) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM document_live_editors WHERE document_id=? AND user_id=?`, documentID, userID)
	return err
}

func (r Repo) ListLiveEditors(ctx context.Context, documentID string) ([]domain.LiveEditor, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT document_id,user_id,joined_at FROM document_live_editors WHERE document_id=? ORDER BY joined_at ASC, user_id ASC`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.LiveEditor
	for rows.Next() {
		var e domain.LiveEditor
		if err := rows.Scan(&e.DocumentID, &e.UserID, &e.JoinedAt); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}
