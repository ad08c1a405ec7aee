package store

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
)

type Config struct {
	DB *pgxpool.Pool
}

// Service is the durable storage gateway. It does not retry; callers decide
// how to handle a surfaced failure.
type Service struct {
	db *pgxpool.Pool
}

func NewService(c Config) *Service {
	return &Service{db: c.DB}
}

// SaveClosedSession archives a finalized session with its participants and
// answer records in a single transaction.
func (s *Service) SaveClosedSession(ctx context.Context, ss domain.Session, ps []domain.Participant, ans []domain.AnswerRecord) (err error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return persistence(fmt.Errorf("begin transaction: %w", err))
	}
	defer func() {
		if err != nil {
			err = stderrors.Join(err, tx.Rollback(ctx))
		}
	}()

	const (
		insSessionStmt = `
INSERT INTO sessions (session_id, code, host_id, category_id, question_count, start_time, duration_ms, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
		insParticipantStmt = `
INSERT INTO participants (session_id, player_id, display_name, join_time, total_score, answer_time_ms, answered)
VALUES ($1, $2, $3, $4, $5, $6, $7);`
		insAnswerStmt = `
INSERT INTO answers (answer_id, session_id, player_id, question_id, chosen_option_id, submit_time, time_to_answer_ms, points)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8);`
	)

	_, err = tx.Exec(ctx, insSessionStmt,
		ss.SessionID, ss.Code, ss.HostID, ss.CategoryID, ss.QuestionCount, ss.StartTime, ss.Duration.Milliseconds(), string(ss.Status))
	if err != nil {
		return persistence(fmt.Errorf("insert session: %w", err))
	}

	for _, p := range ps { // TODO: use pgx.Batch once the schema settles
		_, err = tx.Exec(ctx, insParticipantStmt,
			p.SessionID, p.PlayerID, p.DisplayName, p.JoinTime, p.TotalScore, p.AnswerTime.Milliseconds(), p.Answered)
		if err != nil {
			return persistence(fmt.Errorf("insert participant: %w", err))
		}
	}

	for _, a := range ans {
		var chosen any
		if a.ChosenOptionID != "" {
			chosen = a.ChosenOptionID
		}
		_, err = tx.Exec(ctx, insAnswerStmt,
			a.AnswerID, a.SessionID, a.PlayerID, a.QuestionID, chosen, a.SubmitTime, a.TimeToAnswer.Milliseconds(), a.Points)
		if err != nil {
			return persistence(fmt.Errorf("insert answer: %w", err))
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return persistence(fmt.Errorf("commit: %w", err))
	}

	return nil
}

// LoadQuestionsForCategory returns every question in a category with its
// options in their stored order.
func (s *Service) LoadQuestionsForCategory(ctx context.Context, categoryID string) ([]domain.Question, error) {
	const stmt = `
SELECT q.question_id, q.category_id, q.question_text,
       o.option_id, o.option_text, o.is_correct
FROM questions q
JOIN options o ON o.question_id = q.question_id
WHERE q.category_id = $1
ORDER BY q.question_id, o.option_id;`

	rows, err := s.db.Query(ctx, stmt, categoryID)
	if err != nil {
		return nil, persistence(fmt.Errorf("query questions: %w", err))
	}
	defer rows.Close()

	var (
		questions []domain.Question
		cur       *domain.Question
	)
	for rows.Next() {
		var (
			q       domain.Question
			o       domain.Option
			correct bool
		)
		if err := rows.Scan(&q.QuestionID, &q.CategoryID, &q.QuestionText, &o.OptionID, &o.OptionText, &correct); err != nil {
			return nil, persistence(fmt.Errorf("scan question: %w", err))
		}
		o.QuestionID = q.QuestionID
		o.Correct = correct

		if cur == nil || cur.QuestionID != q.QuestionID {
			questions = append(questions, q)
			cur = &questions[len(questions)-1]
		}
		cur.Options = append(cur.Options, o)
	}
	if err := rows.Err(); err != nil {
		return nil, persistence(fmt.Errorf("read questions: %w", err))
	}

	return questions, nil
}

// LoadClosedParticipants returns every participant row archived from a
// closed session, for cross-session aggregation.
func (s *Service) LoadClosedParticipants(ctx context.Context) ([]domain.Participant, error) {
	const stmt = `
SELECT p.session_id, p.player_id, p.display_name, p.join_time, p.total_score, p.answer_time_ms, p.answered
FROM participants p
JOIN sessions s ON s.session_id = p.session_id
WHERE s.status = 'CLOSED';`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, persistence(fmt.Errorf("query participants: %w", err))
	}

	ps, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Participant, error) {
		var (
			p  domain.Participant
			ms int64
		)
		if err := r.Scan(&p.SessionID, &p.PlayerID, &p.DisplayName, &p.JoinTime, &p.TotalScore, &ms, &p.Answered); err != nil {
			return domain.Participant{}, err
		}
		p.AnswerTime = time.Duration(ms) * time.Millisecond
		return p, nil
	})
	if err != nil {
		return nil, persistence(fmt.Errorf("collect participants: %w", err))
	}

	return ps, nil
}

// ListCategories returns all quiz categories.
func (s *Service) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const stmt = `SELECT category_id, name FROM categories ORDER BY name;`

	rows, err := s.db.Query(ctx, stmt)
	if err != nil {
		return nil, persistence(fmt.Errorf("query categories: %w", err))
	}

	cs, err := pgx.CollectRows(rows, func(r pgx.CollectableRow) (domain.Category, error) {
		var c domain.Category
		if err := r.Scan(&c.CategoryID, &c.Name); err != nil {
			return domain.Category{}, err
		}
		return c, nil
	})
	if err != nil {
		return nil, persistence(fmt.Errorf("collect categories: %w", err))
	}

	return cs, nil
}

func persistence(err error) error {
	return errors.New(errors.CodeUnavailable,
		errors.WithReason(errors.ReasonPersistenceFailure),
		errors.WithCause(err),
	)
}
