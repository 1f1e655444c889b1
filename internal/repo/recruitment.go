package repo

import (
	"context"
	"database/sql"

	"teamline/internal/domain"
)

const recruitmentColumns = `id,requested_by,department,position,request_reason,urgency,request_status,posting_title,posting_description,posting_status,selected_candidate_id,approved_by,hired,hired_at,created_at,updated_at`

func scanRecruitment(scan func(dest ...any) error) (domain.Recruitment, error) {
	var rec domain.Recruitment
	var reason, postingTitle, postingDesc, selected, approvedBy, hiredAt sql.NullString
	err := scan(&rec.ID, &rec.RequestedBy, &rec.Department, &rec.Position, &reason, &rec.Urgency,
		&rec.RequestStatus, &postingTitle, &postingDesc, &rec.PostingStatus, &selected, &approvedBy,
		&rec.Hired, &hiredAt, &rec.CreatedAt, &rec.UpdatedAt)
	if err == sql.ErrNoRows {
		return rec, ErrNotFound
	}
	if err != nil {
		return rec, err
	}
	rec.RequestReason = reason.String
	rec.PostingTitle = postingTitle.String
	rec.PostingDescription = postingDesc.String
	rec.SelectedCandidateID = optString(selected)
	rec.ApprovedBy = optString(approvedBy)
	rec.HiredAt = optString(hiredAt)
	return rec, nil
}

func (r Repo) InsertRecruitment(ctx context.Context, tx *sql.Tx, rec domain.Recruitment) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO recruitments(`+recruitmentColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		rec.ID, rec.RequestedBy, rec.Department, rec.Position, nullable(rec.RequestReason), rec.Urgency,
		rec.RequestStatus, nullable(rec.PostingTitle), nullable(rec.PostingDescription), rec.PostingStatus,
		nullableStringPtr(rec.SelectedCandidateID), nullableStringPtr(rec.ApprovedBy),
		rec.Hired, nullableStringPtr(rec.HiredAt), rec.CreatedAt, rec.UpdatedAt)
	return err
}

func (r Repo) UpdateRecruitment(ctx context.Context, tx *sql.Tx, rec domain.Recruitment) error {
	res, err := tx.ExecContext(ctx, `UPDATE recruitments SET request_status=?, posting_title=?, posting_description=?, posting_status=?, selected_candidate_id=?, approved_by=?, hired=?, hired_at=?, updated_at=? WHERE id=?`,
		rec.RequestStatus, nullable(rec.PostingTitle), nullable(rec.PostingDescription), rec.PostingStatus,
		nullableStringPtr(rec.SelectedCandidateID), nullableStringPtr(rec.ApprovedBy),
		rec.Hired, nullableStringPtr(rec.HiredAt), rec.UpdatedAt, rec.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRecruitment(ctx context.Context, id string) (domain.Recruitment, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+recruitmentColumns+` FROM recruitments WHERE id=?`, id)
	return scanRecruitment(row.Scan)
}

func (r Repo) GetRecruitmentTx(ctx context.Context, tx *sql.Tx, id string) (domain.Recruitment, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+recruitmentColumns+` FROM recruitments WHERE id=?`, id)
	return scanRecruitment(row.Scan)
}

type RecruitmentFilters struct {
	RequestStatus string
	PostingStatus string
	RequestedBy   string
	Limit         int
}

func (r Repo) ListRecruitments(ctx context.Context, f RecruitmentFilters) ([]domain.Recruitment, error) {
	query := `SELECT ` + recruitmentColumns + ` FROM recruitments WHERE 1=1`
	var args []any
	if f.RequestStatus != "" {
		query += ` AND request_status=?`
		args = append(args, f.RequestStatus)
	}
	if f.PostingStatus != "" {
		query += ` AND posting_status=?`
		args = append(args, f.PostingStatus)
	}
	if f.RequestedBy != "" {
		query += ` AND requested_by=?`
		args = append(args, f.RequestedBy)
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
	var res []domain.Recruitment
	for rows.Next() {
		rec, err := scanRecruitment(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, rec)
	}
	return res, rows.Err()
}

const candidateColumns = `id,recruitment_id,name,email,phone,status,applied_at,notes`

func scanCandidate(scan func(dest ...any) error) (domain.Candidate, error) {
	var c domain.Candidate
	var phone, notes sql.NullString
	err := scan(&c.ID, &c.RecruitmentID, &c.Name, &c.Email, &phone, &c.Status, &c.AppliedAt, &notes)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Phone = phone.String
	c.Notes = notes.String
	return c, nil
}

func (r Repo) InsertCandidate(ctx context.Context, tx *sql.Tx, c domain.Candidate) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO recruitment_candidates(`+candidateColumns+`) VALUES (?,?,?,?,?,?,?,?)`,
		c.ID, c.RecruitmentID, c.Name, c.Email, nullable(c.Phone), c.Status, c.AppliedAt, nullable(c.Notes))
	return err
}

func (r Repo) UpdateCandidate(ctx context.Context, tx *sql.Tx, c domain.Candidate) error {
	res, err := tx.ExecContext(ctx, `UPDATE recruitment_candidates SET status=?, notes=? WHERE id=?`,
		c.Status, nullable(c.Notes), c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetCandidate(ctx context.Context, id string) (domain.Candidate, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM recruitment_candidates WHERE id=?`, id)
	return scanCandidate(row.Scan)
}

func (r Repo) GetCandidateTx(ctx context.Context, tx *sql.Tx, id string) (domain.Candidate, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+candidateColumns+` FROM recruitment_candidates WHERE id=?`, id)
	return scanCandidate(row.Scan)
}

func (r Repo) ListCandidates(ctx context.Context, recruitmentID string) ([]domain.Candidate, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+candidateColumns+` FROM recruitment_candidates WHERE recruitment_id=? ORDER BY applied_at ASC, id ASC`, recruitmentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}
