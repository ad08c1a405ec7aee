package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
	"github.com/orbitq/orbitq/internal/event"
	"github.com/orbitq/orbitq/internal/score"
)

const (
	defaultTickInterval = 500 * time.Millisecond
	defaultTimeLimit    = 10 * time.Second
	defaultCodeLength   = 6
	persistTimeout      = 10 * time.Second
	maxCreateAttempts   = 3
)

// Bank reserves and serves questions for sessions.
type Bank interface {
	Reserve(ctx context.Context, sessionID, categoryID string, n int) error
	QuestionAt(sessionID string, i int) (domain.Question, error)
	CorrectOption(questionID string) (domain.Option, error)
	Release(sessionID string)
}

// Store archives closed sessions. The service does not retry a failed save;
// the session stays closed in memory and the failure is logged.
type Store interface {
	SaveClosedSession(ctx context.Context, s domain.Session, ps []domain.Participant, ans []domain.AnswerRecord) error
}

type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type Config struct {
	Bank     Bank
	Store    Store
	EventBus *event.Bus

	// Scoring defaults to score.DefaultPolicy.
	Scoring score.Policy
	// QuestionTimeLimit is the per-question answer window.
	QuestionTimeLimit time.Duration
	CodeLength        int
	TickInterval      time.Duration

	// Clock and NewTickerFunc are injectable for tests.
	Clock         func() time.Time
	NewTickerFunc func(d time.Duration) Ticker
}

// Service owns every live session's state machine: admissions, question
// advancement, answer recording, closing and archival. All mutations of a
// single session are serialized on that session's mutex; independent
// sessions proceed in parallel.
type Service struct {
	bank       Bank
	store      Store
	eb         *event.Bus
	policy     score.Policy
	timeLimit  time.Duration
	codeLength int
	tickEvery  time.Duration
	now        func() time.Time
	newTicker  func(d time.Duration) Ticker

	reg *registry

	stopOnce sync.Once
	done     chan struct{}
}

func NewService(c Config) *Service {
	s := &Service{
		bank:       c.Bank,
		store:      c.Store,
		eb:         c.EventBus,
		policy:     c.Scoring,
		timeLimit:  c.QuestionTimeLimit,
		codeLength: c.CodeLength,
		tickEvery:  c.TickInterval,
		now:        c.Clock,
		newTicker:  c.NewTickerFunc,
		reg:        newRegistry(),
		done:       make(chan struct{}),
	}

	if s.policy == (score.Policy{}) {
		s.policy = score.DefaultPolicy
	}
	if s.timeLimit <= 0 {
		s.timeLimit = defaultTimeLimit
	}
	if s.codeLength <= 0 {
		s.codeLength = defaultCodeLength
	}
	if s.tickEvery <= 0 {
		s.tickEvery = defaultTickInterval
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.newTicker == nil {
		s.newTicker = func(d time.Duration) Ticker {
			return timeTicker{time.NewTicker(d)}
		}
	}

	return s
}

type timeTicker struct {
	*time.Ticker
}

func (t timeTicker) C() <-chan time.Time { return t.Ticker.C }

// Start launches the scheduler tick that drives the automatic
// Pending -> Active and Active -> Closed transitions.
func (s *Service) Start() {
	t := s.newTicker(s.tickEvery)

	go func() {
		defer t.Stop()
		for {
			select {
			case <-s.done:
				return
			case <-t.C():
				s.sweep(context.Background())
			}
		}
	}()
}

// Stop halts the scheduler tick. Live sessions stay in the registry.
func (s *Service) Stop() {
	s.stopOnce.Do(func() { close(s.done) })
}

// liveSession is one session's in-flight state. Everything behind mu,
// including the status checks that gate joins and submissions.
type liveSession struct {
	mu sync.Mutex

	s            domain.Session
	participants map[string]*participant
	joinOrder    []string
	answers      []domain.AnswerRecord

	// deadline is fixed when the session activates: activation time plus
	// the configured duration.
	deadline time.Time
}

type participant struct {
	p               domain.Participant
	currentQuestion domain.Question
	openedAt        time.Time
	answered        map[string]bool
}

type CreateSessionRequest struct {
	HostID        string
	CategoryID    string
	QuestionCount int
	StartTime     time.Time
	Duration      time.Duration
}

// CreateSession validates the config against question availability, reserves
// the question sequence and registers a new Pending session under a fresh
// collision-checked code.
func (s *Service) CreateSession(ctx context.Context, req CreateSessionRequest) (*domain.Session, error) {
	if req.HostID == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("host id is required"))
	}
	if req.CategoryID == "" {
		return nil, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("category id is required"))
	}
	if req.QuestionCount <= 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("question count must be positive, got %d", req.QuestionCount))
	}
	if req.Duration <= 0 {
		return nil, errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("duration must be positive, got %s", req.Duration))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate session ID: %w", err)
	}

	start := req.StartTime
	if start.IsZero() {
		start = s.now()
	}

	// Shortfalls in the category must surface here, never mid-session.
	if err := s.bank.Reserve(ctx, id.String(), req.CategoryID, req.QuestionCount); err != nil {
		return nil, err
	}

	ls := &liveSession{
		s: domain.Session{
			SessionID:     id.String(),
			HostID:        req.HostID,
			CategoryID:    req.CategoryID,
			QuestionCount: req.QuestionCount,
			StartTime:     start,
			Duration:      req.Duration,
			Status:        domain.StatusPending,
		},
		participants: make(map[string]*participant),
	}

	for attempt := 0; ; attempt++ {
		code, err := s.newCode()
		if err != nil {
			s.bank.Release(id.String())
			return nil, err
		}

		ls.s.Code = code
		if err := s.reg.add(code, ls); err == nil {
			break
		}
		if attempt+1 >= maxCreateAttempts {
			s.bank.Release(id.String())
			return nil, fmt.Errorf("register session: code collisions exhausted")
		}
	}

	slog.InfoContext(ctx, "session: created",
		"session", ls.s.SessionID, "code", ls.s.Code, "category", req.CategoryID)

	ss := ls.s
	return &ss, nil
}

// Join admits a player into a Pending session. A player id appears at most
// once per session.
func (s *Service) Join(ctx context.Context, code string, player domain.Player) (*domain.Session, error) {
	ls, err := s.reg.lookupCode(code)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()

	if ls.s.Status != domain.StatusPending {
		st := ls.s.Status
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonSessionNotPending),
			errors.WithMessagef("session %s is %s, joins are only accepted while pending", code, st))
	}

	if _, joined := ls.participants[player.PlayerID]; joined {
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithReason(errors.ReasonAlreadyJoined),
			errors.WithMessagef("player %s already joined session %s", player.PlayerID, code))
	}

	now := s.now()
	ls.participants[player.PlayerID] = &participant{
		p: domain.Participant{
			SessionID:   ls.s.SessionID,
			PlayerID:    player.PlayerID,
			DisplayName: player.DisplayName,
			JoinTime:    now,
		},
		answered: make(map[string]bool),
	}
	ls.joinOrder = append(ls.joinOrder, player.PlayerID)

	seed := s.scoreEvent(ls.participants[player.PlayerID], ls.s.SessionID, now)
	ss := ls.s
	ls.mu.Unlock()

	// Seed the leaderboard so players appear with zero before answering.
	s.eb.Publish(ctx, seed)

	return &ss, nil
}

// StartSession is the explicit host trigger for Pending -> Active. It is
// idempotent: starting an already Active session is a no-op. The scheduler
// tick fires the same transition when the scheduled start passes.
func (s *Service) StartSession(ctx context.Context, code, callerID string) error {
	ls, err := s.reg.lookupCode(code)
	if err != nil {
		return err
	}

	ls.mu.Lock()

	switch ls.s.Status {
	case domain.StatusActive:
		ls.mu.Unlock()
		return nil
	case domain.StatusClosed:
		ls.mu.Unlock()
		return errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("session %s is closed", code))
	}

	if callerID != "" && callerID != ls.s.HostID {
		ls.mu.Unlock()
		return errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("only the host may start session %s", code))
	}

	started, err := s.activateLocked(ls, s.now())
	ls.mu.Unlock()
	if err != nil {
		return err
	}

	s.eb.Publish(ctx, started)
	return nil
}

// activateLocked moves a Pending session to Active: stamps the deadline and
// serves question 1 to every participant. Caller holds ls.mu.
func (s *Service) activateLocked(ls *liveSession, now time.Time) (domain.EventSessionStarted, error) {
	first, err := s.bank.QuestionAt(ls.s.SessionID, 0)
	if err != nil {
		return domain.EventSessionStarted{}, fmt.Errorf("serve first question: %w", err)
	}

	ls.s.Status = domain.StatusActive
	ls.deadline = now.Add(ls.s.Duration)

	for _, p := range ls.participants {
		p.currentQuestion = first
		p.openedAt = now
	}

	return domain.EventSessionStarted{Session: ls.s}, nil
}

type SubmitAnswerRequest struct {
	SessionID      string
	PlayerID       string
	QuestionID     string
	ChosenOptionID string
}

type SubmitAnswerResponse struct {
	Points     int64
	TotalScore int64
	Finished   bool

	// NextQuestion is nil once the participant has finished.
	NextQuestion *PlayerQuestion
}

// PlayerQuestion is a question as shown to a player: options carry no
// correctness flag.
type PlayerQuestion struct {
	QuestionID string
	Text       string
	Options    []domain.Option
	OpenedAt   time.Time
	TimeLimit  time.Duration
}

// SubmitAnswer records one player's answer to their current question, scores
// it and advances that player independently of the others. A submission
// after the question's time limit is rejected with TIME_EXPIRED but still
// consumes the question: the participant advances with zero points, so slow
// players cannot stall a session beyond its overall duration.
func (s *Service) SubmitAnswer(ctx context.Context, req SubmitAnswerRequest) (*SubmitAnswerResponse, error) {
	ls, err := s.reg.lookupID(req.SessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()

	// One clock read gates both the session deadline and the per-question
	// limit, so a submission racing the deadline resolves consistently.
	now := s.now()

	switch ls.s.Status {
	case domain.StatusPending:
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session %s has not started", ls.s.Code))
	case domain.StatusClosed:
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("session %s is closed", ls.s.Code))
	}

	if !now.Before(ls.deadline) {
		cl := s.closeLocked(ls, now)
		ls.mu.Unlock()
		s.finishClose(ctx, cl)
		return nil, errors.New(errors.CodeDeadlineExceeded,
			errors.WithReason(errors.ReasonTimeExpired),
			errors.WithMessagef("session %s duration elapsed", ls.s.Code))
	}

	p, ok := ls.participants[req.PlayerID]
	if !ok {
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotParticipant),
			errors.WithMessagef("player %s never joined session %s", req.PlayerID, ls.s.Code))
	}

	if p.answered[req.QuestionID] {
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeAlreadyExists,
			errors.WithReason(errors.ReasonAlreadyAnswered),
			errors.WithMessagef("player %s already answered question %s", req.PlayerID, req.QuestionID))
	}

	if p.p.Finished || req.QuestionID != p.currentQuestion.QuestionID {
		ls.mu.Unlock()
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonStaleQuestion),
			errors.WithMessagef("question %s is not player %s's current question", req.QuestionID, req.PlayerID))
	}

	elapsed := now.Sub(p.openedAt)

	if elapsed > s.timeLimit {
		// Too late: zero points, question consumed, state advanced.
		if err := s.recordLocked(ls, p, req.QuestionID, "", now, elapsed, 0); err != nil {
			ls.mu.Unlock()
			return nil, err
		}

		events := []event.Event{s.scoreEvent(p, ls.s.SessionID, now)}
		var cl *closure
		if allFinished(ls) {
			c := s.closeLocked(ls, now)
			cl = &c
		}
		ls.mu.Unlock()

		for _, e := range events {
			s.eb.Publish(ctx, e)
		}
		if cl != nil {
			s.finishClose(ctx, *cl)
		}

		return nil, errors.New(errors.CodeDeadlineExceeded,
			errors.WithReason(errors.ReasonTimeExpired),
			errors.WithMessagef("question %s time limit elapsed", req.QuestionID))
	}

	correct, err := s.bank.CorrectOption(req.QuestionID)
	if err != nil {
		ls.mu.Unlock()
		return nil, err
	}

	points := s.policy.Score(now, p.openedAt, s.timeLimit, req.ChosenOptionID, correct.OptionID)

	if err := s.recordLocked(ls, p, req.QuestionID, req.ChosenOptionID, now, elapsed, points); err != nil {
		ls.mu.Unlock()
		return nil, err
	}

	resp := &SubmitAnswerResponse{
		Points:     points,
		TotalScore: p.p.TotalScore,
		Finished:   p.p.Finished,
	}
	if !p.p.Finished {
		resp.NextQuestion = playerQuestion(p.currentQuestion, p.openedAt, s.timeLimit)
	}

	events := []event.Event{s.scoreEvent(p, ls.s.SessionID, now)}
	var cl *closure
	if allFinished(ls) {
		c := s.closeLocked(ls, now)
		cl = &c
	}
	ls.mu.Unlock()

	for _, e := range events {
		s.eb.Publish(ctx, e)
	}
	if cl != nil {
		s.finishClose(ctx, *cl)
	}

	return resp, nil
}

// recordLocked writes the immutable answer record and advances the
// participant to their next question, or marks them finished at the end of
// the sequence. Caller holds ls.mu.
func (s *Service) recordLocked(ls *liveSession, p *participant, questionID, chosenOptionID string, now time.Time, elapsed time.Duration, points int64) error {
	answerID, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("generate answer ID: %w", err)
	}

	ls.answers = append(ls.answers, domain.AnswerRecord{
		AnswerID:       answerID.String(),
		SessionID:      ls.s.SessionID,
		PlayerID:       p.p.PlayerID,
		QuestionID:     questionID,
		ChosenOptionID: chosenOptionID,
		SubmitTime:     now,
		TimeToAnswer:   elapsed,
		Points:         points,
	})

	p.answered[questionID] = true
	p.p.TotalScore += points
	p.p.AnswerTime += elapsed
	p.p.Answered++
	p.p.QuestionIndex++

	if p.p.QuestionIndex >= ls.s.QuestionCount {
		p.p.Finished = true
		p.currentQuestion = domain.Question{}
		return nil
	}

	next, err := s.bank.QuestionAt(ls.s.SessionID, p.p.QuestionIndex)
	if err != nil {
		return err
	}
	p.currentQuestion = next
	p.openedAt = now

	return nil
}

func allFinished(ls *liveSession) bool {
	if len(ls.participants) == 0 {
		return false
	}
	for _, p := range ls.participants {
		if !p.p.Finished {
			return false
		}
	}
	return true
}

// CurrentQuestion returns the question a participant should be answering
// right now.
func (s *Service) CurrentQuestion(ctx context.Context, sessionID, playerID string) (*PlayerQuestion, error) {
	ls, err := s.reg.lookupID(sessionID)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if ls.s.Status != domain.StatusActive {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("session %s is not active", ls.s.Code))
	}

	p, ok := ls.participants[playerID]
	if !ok {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithReason(errors.ReasonNotParticipant),
			errors.WithMessagef("player %s never joined session %s", playerID, ls.s.Code))
	}

	if p.p.Finished {
		return nil, errors.New(errors.CodeFailedPrecondition,
			errors.WithMessagef("player %s already finished session %s", playerID, ls.s.Code))
	}

	return playerQuestion(p.currentQuestion, p.openedAt, s.timeLimit), nil
}

// GetSession returns a summary view of a live session by code.
func (s *Service) GetSession(ctx context.Context, code string) (*domain.SessionView, error) {
	ls, err := s.reg.lookupCode(code)
	if err != nil {
		return nil, err
	}

	ls.mu.Lock()
	v := s.viewLocked(ls, s.now())
	ls.mu.Unlock()

	return &v, nil
}

// Views lists all non-Closed sessions, ordered by scheduled start.
func (s *Service) Views(ctx context.Context) []domain.SessionView {
	now := s.now()

	var out []domain.SessionView
	for _, ls := range s.reg.all() {
		ls.mu.Lock()
		if ls.s.Status != domain.StatusClosed {
			out = append(out, s.viewLocked(ls, now))
		}
		ls.mu.Unlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].EndsIn != out[j].EndsIn {
			return out[i].EndsIn < out[j].EndsIn
		}
		return out[i].Code < out[j].Code
	})

	return out
}

// viewLocked builds the lobby summary. Caller holds ls.mu.
func (s *Service) viewLocked(ls *liveSession, now time.Time) domain.SessionView {
	v := domain.SessionView{
		SessionID:     ls.s.SessionID,
		Code:          ls.s.Code,
		CategoryID:    ls.s.CategoryID,
		Status:        ls.s.Status,
		PlayerCount:   len(ls.participants),
		QuestionCount: ls.s.QuestionCount,
	}

	for _, id := range ls.joinOrder {
		p := ls.participants[id]
		v.PlayerNames = append(v.PlayerNames, p.p.DisplayName)
		if p.p.TotalScore > v.HighestScore {
			v.HighestScore = p.p.TotalScore
		}
	}

	end := ls.s.EndTime()
	if ls.s.Status == domain.StatusActive {
		end = ls.deadline
	}
	if remaining := end.Sub(now); remaining > 0 {
		v.EndsIn = remaining
	}

	return v
}

// DeleteSession removes a session from the live registry in any state,
// conventionally used for abandoned Pending sessions. An archive already
// written for a closed session is untouched.
func (s *Service) DeleteSession(ctx context.Context, code string) error {
	ls, ok := s.reg.remove(code)
	if !ok {
		return errors.New(errors.CodeNotFound,
			errors.WithReason(errors.ReasonSessionNotFound),
			errors.WithMessagef("session not found: code=%s", code))
	}

	s.bank.Release(ls.s.SessionID)

	slog.InfoContext(ctx, "session: deleted", "session", ls.s.SessionID, "code", code)
	return nil
}

// sweep is the recurring time check behind the automatic transitions. It
// uses the same clock as SubmitAnswer, and takes each session's mutex, so a
// submission racing a deadline resolves one way or the other, never both.
func (s *Service) sweep(ctx context.Context) {
	for _, ls := range s.reg.all() {
		var (
			started *domain.EventSessionStarted
			cl      *closure
		)

		ls.mu.Lock()
		now := s.now()

		switch ls.s.Status {
		case domain.StatusPending:
			if !now.Before(ls.s.StartTime) {
				ev, err := s.activateLocked(ls, now)
				if err != nil {
					slog.ErrorContext(ctx, "session: activate failed",
						"session", ls.s.SessionID, "error", err)
				} else {
					started = &ev
				}
			}
		case domain.StatusActive:
			if !now.Before(ls.deadline) {
				c := s.closeLocked(ls, now)
				cl = &c
			}
		}
		ls.mu.Unlock()

		if started != nil {
			s.eb.Publish(ctx, *started)
		}
		if cl != nil {
			s.finishClose(ctx, *cl)
		}
	}
}

// closure carries a closed session's finalized state out of the lock so
// persistence I/O never runs under a session mutex.
type closure struct {
	session      domain.Session
	participants []domain.Participant
	answers      []domain.AnswerRecord
	scores       []event.Event
}

// closeLocked finalizes the session: unanswered remaining questions score
// zero, every participant is marked finished and a snapshot is taken for
// archival. The session is authoritatively closed from here on regardless of
// how persistence goes. Caller holds ls.mu.
func (s *Service) closeLocked(ls *liveSession, now time.Time) closure {
	ls.s.Status = domain.StatusClosed

	for _, id := range ls.joinOrder {
		p := ls.participants[id]
		for !p.p.Finished {
			q, err := s.bank.QuestionAt(ls.s.SessionID, p.p.QuestionIndex)
			if err != nil {
				slog.ErrorContext(context.Background(), "session: finalize question lookup failed",
					"session", ls.s.SessionID, "error", err)
				p.p.Finished = true
				break
			}

			answerID, err := uuid.NewV7()
			if err != nil {
				p.p.Finished = true
				break
			}

			ls.answers = append(ls.answers, domain.AnswerRecord{
				AnswerID:   answerID.String(),
				SessionID:  ls.s.SessionID,
				PlayerID:   p.p.PlayerID,
				QuestionID: q.QuestionID,
				SubmitTime: now,
				Points:     0,
			})
			p.answered[q.QuestionID] = true
			p.p.QuestionIndex++
			if p.p.QuestionIndex >= ls.s.QuestionCount {
				p.p.Finished = true
			}
		}
		p.currentQuestion = domain.Question{}
	}

	cl := closure{
		session:      ls.s,
		participants: make([]domain.Participant, 0, len(ls.joinOrder)),
		answers:      append([]domain.AnswerRecord(nil), ls.answers...),
		scores:       make([]event.Event, 0, len(ls.joinOrder)),
	}
	for _, id := range ls.joinOrder {
		p := ls.participants[id]
		cl.participants = append(cl.participants, p.p)
		cl.scores = append(cl.scores, s.scoreEvent(p, ls.s.SessionID, now))
	}

	return cl
}

// finishClose archives the snapshot and publishes the final score and close
// events. A persistence failure keeps the session closed in the registry so
// an operator can retry or inspect it; gameplay is never reopened.
func (s *Service) finishClose(ctx context.Context, cl closure) {
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	err := s.store.SaveClosedSession(pctx, cl.session, cl.participants, cl.answers)
	cancel()

	if err != nil {
		slog.ErrorContext(ctx, "session: archive failed, session kept in registry",
			"session", cl.session.SessionID, "code", cl.session.Code, "error", err)
	} else {
		s.reg.remove(cl.session.Code)
		s.bank.Release(cl.session.SessionID)
		slog.InfoContext(ctx, "session: closed and archived",
			"session", cl.session.SessionID, "code", cl.session.Code)
	}

	for _, e := range cl.scores {
		s.eb.Publish(ctx, e)
	}
	s.eb.Publish(ctx, domain.EventSessionClosed{
		Session:      cl.session,
		Participants: cl.participants,
	})
}

func (s *Service) scoreEvent(p *participant, sessionID string, now time.Time) domain.EventScoreUpdated {
	return domain.EventScoreUpdated{
		Score: domain.Score{
			SessionID:  sessionID,
			PlayerID:   p.p.PlayerID,
			TotalScore: decimal.NewFromInt(p.p.TotalScore),
			AnswerTime: p.p.AnswerTime,
			Answered:   p.p.Answered,
			UpdateTime: now,
		},
		DisplayName: p.p.DisplayName,
	}
}

func playerQuestion(q domain.Question, openedAt time.Time, limit time.Duration) *PlayerQuestion {
	opts := make([]domain.Option, len(q.Options))
	for i, o := range q.Options {
		o.Correct = false
		opts[i] = o
	}

	return &PlayerQuestion{
		QuestionID: q.QuestionID,
		Text:       q.QuestionText,
		Options:    opts,
		OpenedAt:   openedAt,
		TimeLimit:  limit,
	}
}
