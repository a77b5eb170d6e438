package repo

import (
	"context"
	"database/sql"
	"errors"

	"jobline/internal/domain"
)

func (r Repo) InsertChecklistItems(ctx context.Context, tx *sql.Tx, items []domain.ChecklistItem) error {
	for _, it := range items {
		if _, err := r.conn(tx).ExecContext(ctx, `INSERT INTO checklist_items(job_id,id,phase,label,required,checked,position) VALUES (?,?,?,?,?,?,?)`,
			it.JobID, it.ID, string(it.Phase), it.Label, it.Required, it.Checked, it.Position); err != nil {
			return err
		}
	}
	return nil
}

func (r Repo) ListChecklist(ctx context.Context, jobID string) ([]domain.ChecklistItem, error) {
	return r.ListChecklistTx(ctx, nil, jobID)
}

// ListChecklistTx returns a job's checklist in template order.
func (r Repo) ListChecklistTx(ctx context.Context, tx *sql.Tx, jobID string) ([]domain.ChecklistItem, error) {
	rows, err := r.conn(tx).QueryContext(ctx, `SELECT job_id,id,phase,label,required,checked,position FROM checklist_items WHERE job_id=? ORDER BY position ASC`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.ChecklistItem
	for rows.Next() {
		var it domain.ChecklistItem
		if err := rows.Scan(&it.JobID, &it.ID, &it.Phase, &it.Label, &it.Required, &it.Checked, &it.Position); err != nil {
			return nil, err
		}
		res = append(res, it)
	}
	return res, rows.Err()
}

func (r Repo) GetChecklistItemTx(ctx context.Context, tx *sql.Tx, jobID, itemID string) (domain.ChecklistItem, error) {
	var it domain.ChecklistItem
	err := r.conn(tx).QueryRowContext(ctx, `SELECT job_id,id,phase,label,required,checked,position FROM checklist_items WHERE job_id=? AND id=?`, jobID, itemID).
		Scan(&it.JobID, &it.ID, &it.Phase, &it.Label, &it.Required, &it.Checked, &it.Position)
	if errors.Is(err, sql.ErrNoRows) {
		return it, ErrNotFound
	}
	return it, err
}

// SetChecklistChecked updates the only mutable column of a checklist item.
func (r Repo) SetChecklistChecked(ctx context.Context, tx *sql.Tx, jobID, itemID string, checked bool) error {
	res, err := r.conn(tx).ExecContext(ctx, `UPDATE checklist_items SET checked=? WHERE job_id=? AND id=?`, checked, jobID, itemID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
