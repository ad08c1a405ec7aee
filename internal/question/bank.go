package question

import (
	"context"
	"math/rand"
	"sync"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
)

// Store loads the immutable question pool from durable storage.
type Store interface {
	LoadQuestionsForCategory(ctx context.Context, categoryID string) ([]domain.Question, error)
}

type Config struct {
	Store Store

	// ShuffleFunc randomizes question order within a reservation.
	// Defaults to math/rand; tests inject a no-op for determinism.
	ShuffleFunc func(n int, swap func(i, j int))
}

// Bank hands out questions to sessions. Its only mutable state is the
// per-session reservation marker that prevents repeats within a session;
// questions themselves are read-only.
type Bank struct {
	store   Store
	shuffle func(n int, swap func(i, j int))

	mu           sync.Mutex
	byID         map[string]domain.Question
	reservations map[string]*reservation
}

type reservation struct {
	questions []domain.Question
	served    int
}

func NewBank(c Config) *Bank {
	shuffle := c.ShuffleFunc
	if shuffle == nil {
		shuffle = rand.Shuffle
	}

	return &Bank{
		store:        c.Store,
		shuffle:      shuffle,
		byID:         make(map[string]domain.Question),
		reservations: make(map[string]*reservation),
	}
}

// Reserve draws n distinct questions from the category for a session. It
// fails with CATEGORY_EXHAUSTED when the category holds fewer than n
// questions, so shortfalls surface at session creation rather than
// mid-session.
func (b *Bank) Reserve(ctx context.Context, sessionID, categoryID string, n int) error {
	if n <= 0 {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question count must be positive, got %d", n))
	}

	pool, err := b.store.LoadQuestionsForCategory(ctx, categoryID)
	if err != nil {
		return err
	}

	if len(pool) < n {
		return errors.New(errors.CodeResourceExhausted,
			errors.WithReason(errors.ReasonCategoryExhausted),
			errors.WithMessagef("category %s has %d questions, %d requested", categoryID, len(pool), n))
	}

	drawn := make([]domain.Question, len(pool))
	copy(drawn, pool)

	b.mu.Lock()
	defer b.mu.Unlock()

	b.shuffle(len(drawn), func(i, j int) {
		drawn[i], drawn[j] = drawn[j], drawn[i]
	})
	drawn = drawn[:n]

	for _, q := range drawn {
		b.byID[q.QuestionID] = q
	}
	b.reservations[sessionID] = &reservation{questions: drawn}

	return nil
}

// Next returns the next unserved question reserved for the session.
func (b *Bank) Next(sessionID string) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.reservations[sessionID]
	if !ok {
		return domain.Question{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no questions reserved: session=%s", sessionID))
	}

	if r.served >= len(r.questions) {
		return domain.Question{}, errors.New(errors.CodeResourceExhausted,
			errors.WithReason(errors.ReasonCategoryExhausted),
			errors.WithMessagef("all %d reserved questions served: session=%s", len(r.questions), sessionID))
	}

	q := r.questions[r.served]
	r.served++
	return q, nil
}

// QuestionAt returns the i-th reserved question without advancing the
// served marker. Per-participant progression reads through this.
func (b *Bank) QuestionAt(sessionID string, i int) (domain.Question, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	r, ok := b.reservations[sessionID]
	if !ok {
		return domain.Question{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("no questions reserved: session=%s", sessionID))
	}

	if i < 0 || i >= len(r.questions) {
		return domain.Question{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question index %d out of range: session=%s", i, sessionID))
	}

	return r.questions[i], nil
}

// OptionsFor returns a question's options in order with the correctness
// flag stripped, safe to show to players.
func (b *Bank) OptionsFor(questionID string) ([]domain.Option, error) {
	b.mu.Lock()
	q, ok := b.byID[questionID]
	b.mu.Unlock()

	if !ok {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question not found: %s", questionID))
	}

	opts := make([]domain.Option, len(q.Options))
	for i, o := range q.Options {
		o.Correct = false
		opts[i] = o
	}
	return opts, nil
}

// CorrectOption returns the single correct option of a question. Never
// exposed through the player-facing API.
func (b *Bank) CorrectOption(questionID string) (domain.Option, error) {
	b.mu.Lock()
	q, ok := b.byID[questionID]
	b.mu.Unlock()

	if !ok {
		return domain.Option{}, errors.New(errors.CodeNotFound,
			errors.WithMessagef("question not found: %s", questionID))
	}

	o, ok := q.CorrectOption()
	if !ok {
		return domain.Option{}, errors.New(errors.CodeInternal,
			errors.WithMessagef("question %s has no correct option", questionID))
	}
	return o, nil
}

// Release drops a session's reservation marker once the session closes.
func (b *Bank) Release(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.reservations, sessionID)
}
