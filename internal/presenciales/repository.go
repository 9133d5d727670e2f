package presenciales

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/estetica-academy/presenciales/internal/models"
	"github.com/estetica-academy/presenciales/internal/timerules"
)

// Repository is the PostgreSQL Store.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a presenciales repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const pollColumns = `id, title, description, deadline_at, status, eligibility, created_by, created_at, closed_at`

// CreatePoll inserts the poll and its options in one transaction.
func (r *Repository) CreatePoll(ctx context.Context, p *models.Poll) error {
	elig, err := json.Marshal(p.Eligibility)
	if err != nil {
		return fmt.Errorf("marshal eligibility: %w", err)
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const insertPoll = `INSERT INTO presencial_polls (title, description, deadline_at, status, eligibility, created_by)
			VALUES ($1, $2, $3, $4, $5::jsonb, $6)
			RETURNING id, created_at`
		if err := tx.QueryRow(ctx, insertPoll, p.Title, p.Description, p.DeadlineAt, string(p.Status), string(elig), p.CreatedBy).
			Scan(&p.ID, &p.CreatedAt); err != nil {
			return fmt.Errorf("insert poll: %w", err)
		}
		p.CreatedAt = timerules.InBusinessZone(p.CreatedAt)
		const insertOption = `INSERT INTO presencial_poll_options (poll_id, date, start_time, duration_minutes)
			VALUES ($1, $2::date, $3::time, $4)
			RETURNING id`
		for i := range p.Options {
			o := &p.Options[i]
			if err := tx.QueryRow(ctx, insertOption, p.ID, o.Date, o.StartTime, o.DurationMinutes).Scan(&o.ID); err != nil {
				return fmt.Errorf("insert option %s %s: %w", o.Date, o.StartTime, err)
			}
			o.PollID = p.ID
		}
		return nil
	})
}

func scanPoll(row pgx.Row) (*models.Poll, error) {
	var (
		p      models.Poll
		status string
		elig   []byte
	)
	if err := row.Scan(&p.ID, &p.Title, &p.Description, &p.DeadlineAt, &status, &elig, &p.CreatedBy, &p.CreatedAt, &p.ClosedAt); err != nil {
		return nil, err
	}
	p.Status = models.PollStatus(status)
	if len(elig) > 0 {
		var e models.Eligibility
		if err := json.Unmarshal(elig, &e); err != nil {
			return nil, fmt.Errorf("decode eligibility of poll %s: %w", p.ID, err)
		}
		p.Eligibility = &e
	}
	p.CreatedAt = timerules.InBusinessZone(p.CreatedAt)
	if p.DeadlineAt != nil {
		d := timerules.InBusinessZone(*p.DeadlineAt)
		p.DeadlineAt = &d
	}
	if p.ClosedAt != nil {
		c := timerules.InBusinessZone(*p.ClosedAt)
		p.ClosedAt = &c
	}
	p.Options = []models.PollOption{}
	return &p, nil
}

// ListPolls returns every poll, newest first, with options ordered by date and time.
func (r *Repository) ListPolls(ctx context.Context) ([]models.Poll, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+pollColumns+` FROM presencial_polls ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	var polls []models.Poll
	index := make(map[uuid.UUID]int)
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		index[p.ID] = len(polls)
		polls = append(polls, *p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(polls) == 0 {
		return []models.Poll{}, nil
	}

	ids := make([]string, 0, len(polls))
	for _, p := range polls {
		ids = append(ids, p.ID.String())
	}
	opts, err := r.options(ctx, `WHERE poll_id = ANY($1::uuid[])`, ids)
	if err != nil {
		return nil, err
	}
	for _, o := range opts {
		i := index[o.PollID]
		polls[i].Options = append(polls[i].Options, o)
	}
	return polls, nil
}

// GetPoll returns one poll or ErrNotFound.
func (r *Repository) GetPoll(ctx context.Context, id uuid.UUID) (*models.Poll, error) {
	p, err := scanPoll(r.pool.QueryRow(ctx, `SELECT `+pollColumns+` FROM presencial_polls WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	opts, err := r.options(ctx, `WHERE poll_id = $1`, id)
	if err != nil {
		return nil, err
	}
	p.Options = append(p.Options, opts...)
	return p, nil
}

func (r *Repository) options(ctx context.Context, where string, arg interface{}) ([]models.PollOption, error) {
	q := `SELECT id, poll_id, to_char(date, 'YYYY-MM-DD'), to_char(start_time, 'HH24:MI'), duration_minutes
		FROM presencial_poll_options ` + where + ` ORDER BY date, start_time`
	rows, err := r.pool.Query(ctx, q, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.PollOption
	for rows.Next() {
		var o models.PollOption
		if err := rows.Scan(&o.ID, &o.PollID, &o.Date, &o.StartTime, &o.DurationMinutes); err != nil {
			return nil, err
		}
		list = append(list, o)
	}
	return list, rows.Err()
}

// ClosePoll sets status to closed only when the poll is still open.
func (r *Repository) ClosePoll(ctx context.Context, id uuid.UUID, at time.Time) (bool, error) {
	tag, err := r.pool.Exec(ctx, `UPDATE presencial_polls SET status = 'closed', closed_at = $2 WHERE id = $1 AND status = 'open'`, id, at)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpsertVote records one vote per (poll, user); a new choice replaces the previous one.
// The write only happens while the poll is open.
func (r *Repository) UpsertVote(ctx context.Context, v *models.Vote) error {
	const q = `INSERT INTO presencial_votes (poll_id, user_id, option_id, user_name)
		SELECT $1::uuid, $2::uuid, $3::uuid, $4::text
		WHERE EXISTS (SELECT 1 FROM presencial_polls WHERE id = $1::uuid AND status = 'open')
		ON CONFLICT (poll_id, user_id) DO UPDATE
			SET option_id = EXCLUDED.option_id, user_name = EXCLUDED.user_name, created_at = NOW()
		RETURNING created_at`
	err := r.pool.QueryRow(ctx, q, v.PollID, v.UserID, v.OptionID, v.UserName).Scan(&v.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrPollClosed
	}
	if err != nil {
		return err
	}
	v.CreatedAt = timerules.InBusinessZone(v.CreatedAt)
	return nil
}

// ListVotes returns the votes of a poll, oldest first.
func (r *Repository) ListVotes(ctx context.Context, pollID uuid.UUID) ([]models.Vote, error) {
	rows, err := r.pool.Query(ctx, `SELECT poll_id, option_id, user_id, user_name, created_at
		FROM presencial_votes WHERE poll_id = $1 ORDER BY created_at, user_name`, pollID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []models.Vote{}
	for rows.Next() {
		var v models.Vote
		if err := rows.Scan(&v.PollID, &v.OptionID, &v.UserID, &v.UserName, &v.CreatedAt); err != nil {
			return nil, err
		}
		v.CreatedAt = timerules.InBusinessZone(v.CreatedAt)
		list = append(list, v)
	}
	return list, rows.Err()
}

// GetExport returns the poll's export record, or nil when there is none.
func (r *Repository) GetExport(ctx context.Context, pollID uuid.UUID) (*models.PollExport, error) {
	var e models.PollExport
	err := r.pool.QueryRow(ctx, `SELECT poll_id, s3_key, exported_at FROM presencial_exports WHERE poll_id = $1`, pollID).
		Scan(&e.PollID, &e.S3Key, &e.ExportedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// SaveExport stores or refreshes the poll's export record.
func (r *Repository) SaveExport(ctx context.Context, e models.PollExport) error {
	_, err := r.pool.Exec(ctx, `INSERT INTO presencial_exports (poll_id, s3_key, exported_at) VALUES ($1, $2, $3)
		ON CONFLICT (poll_id) DO UPDATE SET s3_key = EXCLUDED.s3_key, exported_at = EXCLUDED.exported_at`,
		e.PollID, e.S3Key, e.ExportedAt)
	return err
}
