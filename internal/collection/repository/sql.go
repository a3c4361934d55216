package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/paperloop/paperloop-backend/internal/collection/domain"
	"github.com/paperloop/paperloop-backend/pkg/database"
)

// sessionRow is the flattened collection_sessions row
type sessionRow struct {
	ID                 string     `db:"id"`
	SessionNumber      string     `db:"session_number"`
	SupplierID         string     `db:"supplier_id"`
	SupplierName       string     `db:"supplier_name"`
	SiteLocation       string     `db:"site_location"`
	CoordinatorID      string     `db:"coordinator_id"`
	CoordinatorName    string     `db:"coordinator_name"`
	MarketerID         string     `db:"marketer_id"`
	MarketerName       string     `db:"marketer_name"`
	Status             string     `db:"status"`
	EstimatedStartDate time.Time  `db:"estimated_start_date"`
	EstimatedEndDate   time.Time  `db:"estimated_end_date"`
	ActualStartDate    *time.Time `db:"actual_start_date"`
	ActualEndDate      *time.Time `db:"actual_end_date"`
	TotalTimeSpent     *int64     `db:"total_time_spent"`
	EstimatedAmount    float64    `db:"estimated_amount"`
	ActualAmount       *float64   `db:"actual_amount"`
	PaperCarton        float64    `db:"paper_carton"`
	PaperMixed         float64    `db:"paper_mixed"`
	PaperSortedWhite   float64    `db:"paper_sorted_white"`
	PaperSortedColor   float64    `db:"paper_sorted_color"`
	PaperNewspaper     float64    `db:"paper_newspaper"`
	Efficiency         *int64     `db:"efficiency"`
	Quality            *int64     `db:"quality"`
	Punctuality        *int64     `db:"punctuality"`
	CreatedBy          string     `db:"created_by"`
	CreatedAt          time.Time  `db:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at"`
	Version            int64      `db:"version"`

	// Bound only by UPDATE
	ExpectedVersion int64 `db:"expected_version"`
}

type problemRow struct {
	SessionID      string     `db:"session_id"`
	ID             string     `db:"id"`
	Seq            int        `db:"seq"`
	ReportedBy     string     `db:"reported_by"`
	ReportedByName string     `db:"reported_by_name"`
	ReportedDate   time.Time  `db:"reported_date"`
	Description    string     `db:"description"`
	Priority       string     `db:"priority"`
	Status         string     `db:"status"`
	ResolvedBy     *string    `db:"resolved_by"`
	ResolvedDate   *time.Time `db:"resolved_date"`
	Resolution     *string    `db:"resolution"`
}

type commentRow struct {
	SessionID   string    `db:"session_id"`
	ID          string    `db:"id"`
	Seq         int       `db:"seq"`
	AuthorID    string    `db:"author_id"`
	AuthorName  string    `db:"author_name"`
	Comment     string    `db:"comment"`
	PostedAt    time.Time `db:"posted_at"`
	CommentType string    `db:"comment_type"`
}

const sessionColumns = `id, session_number, supplier_id, supplier_name, site_location,
	coordinator_id, coordinator_name, marketer_id, marketer_name, status,
	estimated_start_date, estimated_end_date, actual_start_date, actual_end_date,
	total_time_spent, estimated_amount, actual_amount,
	paper_carton, paper_mixed, paper_sorted_white, paper_sorted_color, paper_newspaper,
	efficiency, quality, punctuality, created_by, created_at, updated_at, version`

const problemColumns = `session_id, id, seq, reported_by, reported_by_name, reported_date,
	description, priority, status, resolved_by, resolved_date, resolution`

const commentColumns = `session_id, id, seq, author_id, author_name, comment, posted_at, comment_type`

const insertSessionQuery = `
	INSERT INTO collection_sessions (` + sessionColumns + `)
	VALUES (:id, :session_number, :supplier_id, :supplier_name, :site_location,
		:coordinator_id, :coordinator_name, :marketer_id, :marketer_name, :status,
		:estimated_start_date, :estimated_end_date, :actual_start_date, :actual_end_date,
		:total_time_spent, :estimated_amount, :actual_amount,
		:paper_carton, :paper_mixed, :paper_sorted_white, :paper_sorted_color, :paper_newspaper,
		:efficiency, :quality, :punctuality, :created_by, :created_at, :updated_at, :version)
`

// Identity and planning columns are immutable and therefore not updated
const updateSessionQuery = `
	UPDATE collection_sessions SET
		supplier_name = :supplier_name,
		coordinator_name = :coordinator_name,
		marketer_name = :marketer_name,
		status = :status,
		actual_start_date = :actual_start_date,
		actual_end_date = :actual_end_date,
		total_time_spent = :total_time_spent,
		actual_amount = :actual_amount,
		paper_carton = :paper_carton,
		paper_mixed = :paper_mixed,
		paper_sorted_white = :paper_sorted_white,
		paper_sorted_color = :paper_sorted_color,
		paper_newspaper = :paper_newspaper,
		efficiency = :efficiency,
		quality = :quality,
		punctuality = :punctuality,
		updated_at = :updated_at,
		version = :version
	WHERE id = :id AND version = :expected_version
`

const insertProblemQuery = `
	INSERT INTO session_problems (` + problemColumns + `)
	VALUES (:session_id, :id, :seq, :reported_by, :reported_by_name, :reported_date,
		:description, :priority, :status, :resolved_by, :resolved_date, :resolution)
`

const insertCommentQuery = `
	INSERT INTO session_comments (` + commentColumns + `)
	VALUES (:session_id, :id, :seq, :author_id, :author_name, :comment, :posted_at, :comment_type)
`

// SQLSessionRepository stores sessions in postgres or sqlite. Both drivers
// share the same statements; placeholders are rebound per driver.
type SQLSessionRepository struct {
	db    *database.DB
	clock Clock
}

// NewSQLSessionRepository creates a new SQL session repository
func NewSQLSessionRepository(db *database.DB, clock Clock) *SQLSessionRepository {
	if clock == nil {
		clock = SystemClock
	}
	return &SQLSessionRepository{db: db, clock: clock}
}

// ============================================================================
// READS
// ============================================================================

// Load returns the session with its problems and comments
func (r *SQLSessionRepository) Load(ctx context.Context, id string) (*domain.CollectionSession, error) {
	var session *domain.CollectionSession

	err := r.db.ReadTransaction(ctx, func(tx *sqlx.Tx) error {
		var row sessionRow
		query := tx.Rebind(`SELECT ` + sessionColumns + ` FROM collection_sessions WHERE id = ?`)
		if err := tx.GetContext(ctx, &row, query, id); err != nil {
			if err == sql.ErrNoRows {
				return sessionNotFound()
			}
			return fmt.Errorf("failed to load collection session: %w", err)
		}

		var problems []problemRow
		query = tx.Rebind(`SELECT ` + problemColumns + ` FROM session_problems WHERE session_id = ? ORDER BY seq`)
		if err := tx.SelectContext(ctx, &problems, query, id); err != nil {
			return fmt.Errorf("failed to load session problems: %w", err)
		}

		var comments []commentRow
		query = tx.Rebind(`SELECT ` + commentColumns + ` FROM session_comments WHERE session_id = ? ORDER BY seq`)
		if err := tx.SelectContext(ctx, &comments, query, id); err != nil {
			return fmt.Errorf("failed to load session comments: %w", err)
		}

		session = toSession(row, problems, comments)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return session, nil
}

// ListAll returns every session, newest first
func (r *SQLSessionRepository) ListAll(ctx context.Context) ([]*domain.CollectionSession, error) {
	var sessions []*domain.CollectionSession

	err := r.db.ReadTransaction(ctx, func(tx *sqlx.Tx) error {
		var rows []sessionRow
		query := `SELECT ` + sessionColumns + ` FROM collection_sessions ORDER BY created_at DESC, id DESC`
		if err := tx.SelectContext(ctx, &rows, query); err != nil {
			return fmt.Errorf("failed to list collection sessions: %w", err)
		}

		var problems []problemRow
		query = `SELECT ` + problemColumns + ` FROM session_problems ORDER BY session_id, seq`
		if err := tx.SelectContext(ctx, &problems, query); err != nil {
			return fmt.Errorf("failed to list session problems: %w", err)
		}

		var comments []commentRow
		query = `SELECT ` + commentColumns + ` FROM session_comments ORDER BY session_id, seq`
		if err := tx.SelectContext(ctx, &comments, query); err != nil {
			return fmt.Errorf("failed to list session comments: %w", err)
		}

		problemsBySession := make(map[string][]problemRow)
		for _, p := range problems {
			problemsBySession[p.SessionID] = append(problemsBySession[p.SessionID], p)
		}
		commentsBySession := make(map[string][]commentRow)
		for _, c := range comments {
			commentsBySession[c.SessionID] = append(commentsBySession[c.SessionID], c)
		}

		sessions = make([]*domain.CollectionSession, 0, len(rows))
		for _, row := range rows {
			sessions = append(sessions, toSession(row, problemsBySession[row.ID], commentsBySession[row.ID]))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	SortNewestFirst(sessions)
	return sessions, nil
}

// ============================================================================
// WRITES
// ============================================================================

// Save writes the session row and rewrites its problems and comments in
// one transaction, guarded by the version column
func (r *SQLSessionRepository) Save(ctx context.Context, session *domain.CollectionSession, expectedVersion int64) error {
	if err := validateSave(session, expectedVersion); err != nil {
		return err
	}

	now := r.clock()
	row := toSessionRow(session)
	row.Version = expectedVersion + 1
	row.UpdatedAt = now
	row.ExpectedVersion = expectedVersion

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if expectedVersion == 0 {
			if _, err := tx.NamedExecContext(ctx, insertSessionQuery, row); err != nil {
				if appErr := database.MapError(err); appErr != nil {
					return appErr
				}
				return fmt.Errorf("failed to insert collection session: %w", err)
			}
		} else {
			result, err := tx.NamedExecContext(ctx, updateSessionQuery, row)
			if err != nil {
				if appErr := database.MapError(err); appErr != nil {
					return appErr
				}
				return fmt.Errorf("failed to update collection session: %w", err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to read affected rows: %w", err)
			}
			if affected == 0 {
				return r.missOrConflict(ctx, tx, session.ID)
			}

			if err := r.deleteChildren(ctx, tx, session.ID); err != nil {
				return err
			}
		}

		return r.insertChildren(ctx, tx, session)
	})
	if err != nil {
		return err
	}

	session.Version = row.Version
	session.UpdatedAt = now
	return nil
}

// Delete removes the session together with its problems and comments
func (r *SQLSessionRepository) Delete(ctx context.Context, id string) error {
	return r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		if err := r.deleteChildren(ctx, tx, id); err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM collection_sessions WHERE id = ?`), id)
		if err != nil {
			return fmt.Errorf("failed to delete collection session: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return sessionNotFound()
		}
		return nil
	})
}

// missOrConflict tells a missing session apart from a stale version
func (r *SQLSessionRepository) missOrConflict(ctx context.Context, tx *sqlx.Tx, id string) error {
	var count int
	query := tx.Rebind(`SELECT COUNT(*) FROM collection_sessions WHERE id = ?`)
	if err := tx.GetContext(ctx, &count, query, id); err != nil {
		return fmt.Errorf("failed to check collection session: %w", err)
	}
	if count == 0 {
		return sessionNotFound()
	}
	return versionConflict(id)
}

func (r *SQLSessionRepository) deleteChildren(ctx context.Context, tx *sqlx.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM session_problems WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete session problems: %w", err)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM session_comments WHERE session_id = ?`), id); err != nil {
		return fmt.Errorf("failed to delete session comments: %w", err)
	}
	return nil
}

func (r *SQLSessionRepository) insertChildren(ctx context.Context, tx *sqlx.Tx, session *domain.CollectionSession) error {
	for i, p := range session.Problems {
		if _, err := tx.NamedExecContext(ctx, insertProblemQuery, toProblemRow(session.ID, i, p)); err != nil {
			if appErr := database.MapError(err); appErr != nil {
				return appErr
			}
			return fmt.Errorf("failed to insert session problem: %w", err)
		}
	}
	for i, c := range session.Comments {
		if _, err := tx.NamedExecContext(ctx, insertCommentQuery, toCommentRow(session.ID, i, c)); err != nil {
			if appErr := database.MapError(err); appErr != nil {
				return appErr
			}
			return fmt.Errorf("failed to insert session comment: %w", err)
		}
	}
	return nil
}

// ============================================================================
// MAPPING
// ============================================================================

func toSessionRow(s *domain.CollectionSession) sessionRow {
	row := sessionRow{
		ID:                 s.ID,
		SessionNumber:      s.SessionNumber,
		SupplierID:         s.SupplierID,
		SupplierName:       s.SupplierName,
		SiteLocation:       s.SiteLocation,
		CoordinatorID:      s.CoordinatorID,
		CoordinatorName:    s.CoordinatorName,
		MarketerID:         s.MarketerID,
		MarketerName:       s.MarketerName,
		Status:             string(s.Status),
		EstimatedStartDate: s.EstimatedStartDate,
		EstimatedEndDate:   s.EstimatedEndDate,
		ActualStartDate:    s.ActualStartDate,
		ActualEndDate:      s.ActualEndDate,
		EstimatedAmount:    s.CollectionData.EstimatedAmount,
		ActualAmount:       s.CollectionData.ActualAmount,
		PaperCarton:        s.CollectionData.PaperTypes.Carton,
		PaperMixed:         s.CollectionData.PaperTypes.Mixed,
		PaperSortedWhite:   s.CollectionData.PaperTypes.SortedWhite,
		PaperSortedColor:   s.CollectionData.PaperTypes.SortedColor,
		PaperNewspaper:     s.CollectionData.PaperTypes.Newspaper,
		CreatedBy:          s.CreatedBy,
		CreatedAt:          s.CreatedAt,
		UpdatedAt:          s.UpdatedAt,
		Version:            s.Version,
	}

	if s.TotalTimeSpent != nil {
		v := int64(*s.TotalTimeSpent)
		row.TotalTimeSpent = &v
	}
	if s.Performance != nil {
		eff, q, p := int64(s.Performance.Efficiency), int64(s.Performance.Quality), int64(s.Performance.Punctuality)
		row.Efficiency, row.Quality, row.Punctuality = &eff, &q, &p
	}
	return row
}

func toProblemRow(sessionID string, seq int, p domain.ProblemReport) problemRow {
	return problemRow{
		SessionID:      sessionID,
		ID:             p.ID,
		Seq:            seq,
		ReportedBy:     p.ReportedBy,
		ReportedByName: p.ReportedByName,
		ReportedDate:   p.ReportedDate,
		Description:    p.Description,
		Priority:       string(p.Priority),
		Status:         string(p.Status),
		ResolvedBy:     p.ResolvedBy,
		ResolvedDate:   p.ResolvedDate,
		Resolution:     p.Resolution,
	}
}

func toCommentRow(sessionID string, seq int, c domain.Comment) commentRow {
	return commentRow{
		SessionID:   sessionID,
		ID:          c.ID,
		Seq:         seq,
		AuthorID:    c.AuthorID,
		AuthorName:  c.AuthorName,
		Comment:     c.Comment,
		PostedAt:    c.Timestamp,
		CommentType: c.Type,
	}
}

func toSession(row sessionRow, problems []problemRow, comments []commentRow) *domain.CollectionSession {
	s := &domain.CollectionSession{
		ID:                 row.ID,
		SessionNumber:      row.SessionNumber,
		SupplierID:         row.SupplierID,
		SupplierName:       row.SupplierName,
		SiteLocation:       row.SiteLocation,
		CoordinatorID:      row.CoordinatorID,
		CoordinatorName:    row.CoordinatorName,
		MarketerID:         row.MarketerID,
		MarketerName:       row.MarketerName,
		Status:             domain.SessionStatus(row.Status),
		EstimatedStartDate: row.EstimatedStartDate.UTC(),
		EstimatedEndDate:   row.EstimatedEndDate.UTC(),
		ActualStartDate:    utcPtr(row.ActualStartDate),
		ActualEndDate:      utcPtr(row.ActualEndDate),
		CollectionData: domain.CollectionData{
			EstimatedAmount: row.EstimatedAmount,
			ActualAmount:    row.ActualAmount,
			PaperTypes: domain.PaperTypes{
				Carton:      row.PaperCarton,
				Mixed:       row.PaperMixed,
				SortedWhite: row.PaperSortedWhite,
				SortedColor: row.PaperSortedColor,
				Newspaper:   row.PaperNewspaper,
			},
		},
		Problems:  make([]domain.ProblemReport, 0, len(problems)),
		Comments:  make([]domain.Comment, 0, len(comments)),
		CreatedBy: row.CreatedBy,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
		Version:   row.Version,
	}

	if row.TotalTimeSpent != nil {
		v := int(*row.TotalTimeSpent)
		s.TotalTimeSpent = &v
	}
	if row.Efficiency != nil && row.Quality != nil && row.Punctuality != nil {
		s.Performance = &domain.Performance{
			Efficiency:  int(*row.Efficiency),
			Quality:     int(*row.Quality),
			Punctuality: int(*row.Punctuality),
		}
	}

	for _, p := range problems {
		s.Problems = append(s.Problems, domain.ProblemReport{
			ID:             p.ID,
			SessionID:      p.SessionID,
			ReportedBy:     p.ReportedBy,
			ReportedByName: p.ReportedByName,
			ReportedDate:   p.ReportedDate.UTC(),
			Description:    p.Description,
			Priority:       domain.ProblemPriority(p.Priority),
			Status:         domain.ProblemStatus(p.Status),
			ResolvedBy:     p.ResolvedBy,
			ResolvedDate:   utcPtr(p.ResolvedDate),
			Resolution:     p.Resolution,
		})
	}
	for _, c := range comments {
		s.Comments = append(s.Comments, domain.Comment{
			ID:         c.ID,
			SessionID:  c.SessionID,
			AuthorID:   c.AuthorID,
			AuthorName: c.AuthorName,
			Comment:    c.Comment,
			Timestamp:  c.PostedAt.UTC(),
			Type:       c.CommentType,
		})
	}

	return s
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
