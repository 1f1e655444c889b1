package repo

import (
	"context"
	"database/sql"

	"teamline/internal/domain"
)

const projectColumns = `id,name,description,status,pm_id,client_id,approved_by,approved_at,created_at,updated_at`

func scanProject(scan func(dest ...any) error) (domain.Project, error) {
	var p domain.Project
	var description, clientID, approvedBy, approvedAt sql.NullString
	err := scan(&p.ID, &p.Name, &description, &p.Status, &p.PMID, &clientID, &approvedBy, &approvedAt, &p.CreatedAt, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Description = description.String
	p.ClientID = optString(clientID)
	p.ApprovedBy = optString(approvedBy)
	p.ApprovedAt = optString(approvedAt)
	return p, nil
}

func (r Repo) InsertProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO projects(`+projectColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, nullable(p.Description), p.Status, p.PMID, nullableStringPtr(p.ClientID),
		nullableStringPtr(p.ApprovedBy), nullableStringPtr(p.ApprovedAt), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return err
	}
	for _, empID := range p.Team {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO project_team(project_id,employee_id) VALUES (?,?)`, p.ID, empID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) UpdateProject(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET name=?, description=?, status=?, client_id=?, approved_by=?, approved_at=?, updated_at=? WHERE id=?`,
		p.Name, nullable(p.Description), p.Status, nullableStringPtr(p.ClientID),
		nullableStringPtr(p.ApprovedBy), nullableStringPtr(p.ApprovedAt), p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetProject(ctx context.Context, id string) (domain.Project, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProject(row.Scan)
	if err != nil {
		return p, err
	}
	p.Team, err = r.projectTeam(ctx, r.DB, id)
	return p, err
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id string) (domain.Project, error) {
	row := tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id)
	p, err := scanProject(row.Scan)
	if err != nil {
		return p, err
	}
	p.Team, err = r.projectTeam(ctx, tx, id)
	return p, err
}

func (r Repo) projectTeam(ctx context.Context, q querier, projectID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `SELECT employee_id FROM project_team WHERE project_id=? ORDER BY employee_id`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

type ProjectFilters struct {
	Status string
	PMID   string
	Member string
	Limit  int
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE 1=1`
	var args []any
	if f.Status != "" {
		query += ` AND status=?`
		args = append(args, f.Status)
	}
	if f.PMID != "" {
		query += ` AND pm_id=?`
		args = append(args, f.PMID)
	}
	if f.Member != "" {
		query += ` AND (pm_id=? OR id IN (SELECT project_id FROM project_team WHERE employee_id=?))`
		args = append(args, f.Member, f.Member)
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
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows.Scan)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range res {
		res[i].Team, err = r.projectTeam(ctx, r.DB, res[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (r Repo) SetProjectTeam(ctx context.Context, tx *sql.Tx, projectID string, employeeIDs []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM project_team WHERE project_id=?`, projectID); err != nil {
		return err
	}
	for _, empID := range employeeIDs {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO project_team(project_id,employee_id) VALUES (?,?)`, projectID, empID); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) InsertClient(ctx context.Context, tx *sql.Tx, c domain.Client) error {
	exec := r.DB.ExecContext
	if tx != nil {
		exec = tx.ExecContext
	}
	_, err := exec(ctx, `INSERT INTO clients(id,name,company,email,created_at) VALUES (?,?,?,?,?)`,
		c.ID, c.Name, nullable(c.Company), c.Email, c.CreatedAt)
	return err
}

func (r Repo) GetClient(ctx context.Context, id string) (domain.Client, error) {
	var c domain.Client
	var company sql.NullString
	err := r.DB.QueryRowContext(ctx, `SELECT id,name,company,email,created_at FROM clients WHERE id=?`, id).
		Scan(&c.ID, &c.Name, &company, &c.Email, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return c, ErrNotFound
	}
	if err != nil {
		return c, err
	}
	c.Company = company.String
	return c, nil
}

func (r Repo) ListClients(ctx context.Context, limit int) ([]domain.Client, error) {
	query := `SELECT id,name,company,email,created_at FROM clients ORDER BY created_at DESC, id DESC`
	var args []any
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Client
	for rows.Next() {
		var c domain.Client
		var company sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &company, &c.Email, &c.CreatedAt); err != nil {
			return nil, err
		}
		c.Company = company.String
		res = append(res, c)
	}
	return res, rows.Err()
}
