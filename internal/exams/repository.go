package exams

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/examforge/examforge/internal/shared"
)

// Repository provides PostgreSQL backed persistence. Answers, per-question
// timings and the optional evaluation block are stored as JSONB.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const resultColumns = `id, account_id, exam_type, exam_date, total_questions, correct_answers,
	wrong_answers, unanswered_questions, total_time, average_time, score,
	evaluation, answers, question_times`

// Save inserts a result row.
func (r *Repository) Save(ctx context.Context, result Result) error {
	var evaluation []byte
	if result.Evaluation != nil {
		data, err := json.Marshal(result.Evaluation)
		if err != nil {
			return fmt.Errorf("exams: marshal evaluation: %w", err)
		}
		evaluation = data
	}
	answers, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("exams: marshal answers: %w", err)
	}
	times, err := json.Marshal(result.QuestionTimes)
	if err != nil {
		return fmt.Errorf("exams: marshal question times: %w", err)
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO exam_results (`+resultColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		result.ID, result.AccountID, result.ExamType, result.ExamDate,
		result.TotalQuestions, result.CorrectAnswers, result.WrongAnswers,
		result.UnansweredQuestions, result.TotalTime, result.AverageTime,
		result.Score, evaluation, answers, times)
	return err
}

// Get fetches a single result by ID.
func (r *Repository) Get(ctx context.Context, id string) (*Result, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+resultColumns+` FROM exam_results WHERE id = $1`, id)
	return scanResult(row)
}

// ListByAccount returns an account's results, newest exam first.
func (r *Repository) ListByAccount(ctx context.Context, accountID string) ([]Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM exam_results WHERE account_id = $1 ORDER BY exam_date DESC`,
		accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// ListAll returns every result, newest exam first.
func (r *Repository) ListAll(ctx context.Context) ([]Result, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+resultColumns+` FROM exam_results ORDER BY exam_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectResults(rows)
}

// Delete removes a result row.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM exam_results WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func collectResults(rows pgx.Rows) ([]Result, error) {
	var results []Result
	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func scanResult(row pgx.Row) (*Result, error) {
	var result Result
	var evaluation, answers, times []byte
	err := row.Scan(&result.ID, &result.AccountID, &result.ExamType, &result.ExamDate,
		&result.TotalQuestions, &result.CorrectAnswers, &result.WrongAnswers,
		&result.UnansweredQuestions, &result.TotalTime, &result.AverageTime,
		&result.Score, &evaluation, &answers, &times)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	if len(evaluation) > 0 {
		result.Evaluation = &Evaluation{}
		if err := json.Unmarshal(evaluation, result.Evaluation); err != nil {
			return nil, fmt.Errorf("exams: unmarshal evaluation: %w", err)
		}
	}
	if err := json.Unmarshal(answers, &result.Answers); err != nil {
		return nil, fmt.Errorf("exams: unmarshal answers: %w", err)
	}
	if err := json.Unmarshal(times, &result.QuestionTimes); err != nil {
		return nil, fmt.Errorf("exams: unmarshal question times: %w", err)
	}
	return &result, nil
}
