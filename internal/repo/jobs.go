package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"jobline/internal/domain"
)

const jobColumns = `id,property_id,user_id,professional_id,title,description,address,before_images_json,after_images_json,risk_level,technical_grade,value_effect,driver,cost_estimate,cost_min,cost_max,roi_factor,subsidy_amount,quoted_price,priority_score,predicted_failure,horizon,status,accept_path,initiator,created_at,updated_at,completed_at`

// JobFilter narrows ListJobs. Zero values match everything.
type JobFilter struct {
	PropertyID     string
	OwnerID        string
	ProfessionalID string
	Statuses       []domain.Status
	Limit          int
}

// JobPatch lists the mutable Job columns. Nil fields are left untouched.
type JobPatch struct {
	Status            *domain.Status
	ProfessionalID    *string
	ClearProfessional bool
	QuotedPrice       *float64
	ClearQuotedPrice  bool
	AcceptPath        *domain.AcceptPath
	CompletedAt       *string
	AfterImages       []string
	UpdatedAt         string
}

func marshalImages(images []string) (any, error) {
	if len(images) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(images)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

func unmarshalImages(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var out []string
	if err := json.Unmarshal([]byte(ns.String), &out); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	return out, nil
}

func scanJob(row scanner) (domain.Job, error) {
	var j domain.Job
	var userID, professionalID, description, address, before, after, predicted, horizon, acceptPath, completedAt sql.NullString
	var costMin, costMax, roi, subsidy, quoted sql.NullFloat64
	var priority sql.NullInt64
	err := row.Scan(&j.ID, &j.PropertyID, &userID, &professionalID, &j.Title, &description, &address, &before, &after,
		&j.RiskLevel, &j.TechnicalGrade, &j.ValueEffect, &j.Driver, &j.CostEstimate, &costMin, &costMax, &roi, &subsidy,
		&quoted, &priority, &predicted, &horizon, &j.Status, &acceptPath, &j.Initiator, &j.CreatedAt, &j.UpdatedAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return j, ErrNotFound
	}
	if err != nil {
		return j, err
	}
	j.UserID = stringPtr(userID)
	j.ProfessionalID = stringPtr(professionalID)
	j.Description = description.String
	j.Address = address.String
	if j.BeforeImages, err = unmarshalImages(before); err != nil {
		return j, err
	}
	if j.AfterImages, err = unmarshalImages(after); err != nil {
		return j, err
	}
	j.CostMin = floatPtr(costMin)
	j.CostMax = floatPtr(costMax)
	j.ROIFactor = floatPtr(roi)
	j.SubsidyAmount = floatPtr(subsidy)
	j.QuotedPrice = floatPtr(quoted)
	j.PriorityScore = intPtr(priority)
	j.PredictedFailure = stringPtr(predicted)
	j.Horizon = horizon.String
	if acceptPath.Valid {
		p := domain.AcceptPath(acceptPath.String)
		j.AcceptPath = &p
	}
	j.CompletedAt = stringPtr(completedAt)
	return j, nil
}

func (r Repo) InsertJob(ctx context.Context, tx *sql.Tx, j domain.Job) error {
	before, err := marshalImages(j.BeforeImages)
	if err != nil {
		return err
	}
	after, err := marshalImages(j.AfterImages)
	if err != nil {
		return err
	}
	var acceptPath any
	if j.AcceptPath != nil {
		acceptPath = string(*j.AcceptPath)
	}
	_, err = r.conn(tx).ExecContext(ctx, `INSERT INTO jobs(`+jobColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		j.ID, j.PropertyID, nullableStringPtr(j.UserID), nullableStringPtr(j.ProfessionalID), j.Title, nullable(j.Description),
		nullable(j.Address), before, after, string(j.RiskLevel), j.TechnicalGrade, string(j.ValueEffect), string(j.Driver), j.CostEstimate,
		nullableFloatPtr(j.CostMin), nullableFloatPtr(j.CostMax), nullableFloatPtr(j.ROIFactor), nullableFloatPtr(j.SubsidyAmount),
		nullableFloatPtr(j.QuotedPrice), nullableIntPtr(j.PriorityScore), nullableStringPtr(j.PredictedFailure), nullable(j.Horizon),
		string(j.Status), acceptPath, string(j.Initiator), j.CreatedAt, j.UpdatedAt, nullableStringPtr(j.CompletedAt))
	return err
}

func (r Repo) GetJob(ctx context.Context, id string) (domain.Job, error) {
	return r.GetJobTx(ctx, nil, id)
}

func (r Repo) GetJobTx(ctx context.Context, tx *sql.Tx, id string) (domain.Job, error) {
	return scanJob(r.conn(tx).QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=?`, id))
}

// ListJobs returns jobs matching f, newest first.
func (r Repo) ListJobs(ctx context.Context, f JobFilter) ([]domain.Job, error) {
	var clauses []string
	var args []any
	if f.PropertyID != "" {
		clauses = append(clauses, "property_id=?")
		args = append(args, f.PropertyID)
	}
	if f.OwnerID != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, f.OwnerID)
	}
	if f.ProfessionalID != "" {
		clauses = append(clauses, "professional_id=?")
		args = append(args, f.ProfessionalID)
	}
	if len(f.Statuses) > 0 {
		marks := make([]string, len(f.Statuses))
		for i, s := range f.Statuses {
			marks[i] = "?"
			args = append(args, string(s))
		}
		clauses = append(clauses, "status IN ("+strings.Join(marks, ",")+")")
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + jobColumns + ` FROM jobs ` + where + ` ORDER BY created_at DESC, id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, j)
	}
	return res, rows.Err()
}

// UpdateJob applies patch to the job and returns the stored result. When
// expect is non-empty the write only happens if the current status equals
// expect; otherwise ErrStatusConflict is returned.
func (r Repo) UpdateJob(ctx context.Context, tx *sql.Tx, id string, expect domain.Status, patch JobPatch) (domain.Job, error) {
	var (
		fields []string
		args   []any
	)
	if patch.Status != nil {
		fields = append(fields, "status=?")
		args = append(args, string(*patch.Status))
	}
	switch {
	case patch.ClearProfessional:
		fields = append(fields, "professional_id=NULL")
	case patch.ProfessionalID != nil:
		fields = append(fields, "professional_id=?")
		args = append(args, *patch.ProfessionalID)
	}
	switch {
	case patch.ClearQuotedPrice:
		fields = append(fields, "quoted_price=NULL")
	case patch.QuotedPrice != nil:
		fields = append(fields, "quoted_price=?")
		args = append(args, *patch.QuotedPrice)
	}
	if patch.AcceptPath != nil {
		fields = append(fields, "accept_path=?")
		args = append(args, string(*patch.AcceptPath))
	}
	if patch.CompletedAt != nil {
		fields = append(fields, "completed_at=?")
		args = append(args, *patch.CompletedAt)
	}
	if patch.AfterImages != nil {
		after, err := marshalImages(patch.AfterImages)
		if err != nil {
			return domain.Job{}, err
		}
		fields = append(fields, "after_images_json=?")
		args = append(args, after)
	}
	if patch.UpdatedAt != "" {
		fields = append(fields, "updated_at=?")
		args = append(args, patch.UpdatedAt)
	}
	if len(fields) == 0 {
		return r.GetJobTx(ctx, tx, id)
	}
	query := fmt.Sprintf(`UPDATE jobs SET %s WHERE id=?`, strings.Join(fields, ","))
	args = append(args, id)
	if expect != "" {
		query += " AND status=?"
		args = append(args, string(expect))
	}
	res, err := r.conn(tx).ExecContext(ctx, query, args...)
	if err != nil {
		return domain.Job{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if _, err := r.GetJobTx(ctx, tx, id); err != nil {
			return domain.Job{}, err
		}
		return domain.Job{}, ErrStatusConflict
	}
	return r.GetJobTx(ctx, tx, id)
}
