package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
	"github.com/orbitq/orbitq/internal/event"
	"github.com/orbitq/orbitq/internal/question"
	"github.com/orbitq/orbitq/internal/score"
	"github.com/orbitq/orbitq/internal/session"
)

func TestService_CreateSession(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))

	codes := make(map[string]bool)
	for i := 0; i < 20; i++ {
		ss, err := f.svc.CreateSession(context.Background(), createReq(5, 2*time.Minute))
		require.NoError(t, err)
		require.NotEmpty(t, ss.Code)
		assert.False(t, codes[ss.Code], "code %s issued twice among live sessions", ss.Code)
		codes[ss.Code] = true
		assert.Equal(t, domain.StatusPending, ss.Status)
	}
}

func TestService_CreateSessionFailsWhenCategoryExhausted(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 3))

	_, err := f.svc.CreateSession(context.Background(), createReq(5, 2*time.Minute))
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ReasonCategoryExhausted))
}

func TestService_CreateSessionValidation(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))

	tests := map[string]session.CreateSessionRequest{
		"missing host":     {CategoryID: "planets", QuestionCount: 1, Duration: time.Minute},
		"missing category": {HostID: "host", QuestionCount: 1, Duration: time.Minute},
		"zero questions":   {HostID: "host", CategoryID: "planets", Duration: time.Minute},
		"zero duration":    {HostID: "host", CategoryID: "planets", QuestionCount: 1},
	}

	for name, req := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.CreateSession(context.Background(), req)
			require.Error(t, err)
		})
	}
}

func TestService_Join(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, createReq(5, 2*time.Minute))

	_, err := f.svc.Join(context.Background(), ss.Code, player("p1"))
	require.NoError(t, err)

	t.Run("unknown code", func(t *testing.T) {
		_, err := f.svc.Join(context.Background(), "NOSUCH", player("p2"))
		assert.True(t, errors.Is(err, errors.ReasonSessionNotFound))
	})

	t.Run("duplicate player", func(t *testing.T) {
		_, err := f.svc.Join(context.Background(), ss.Code, player("p1"))
		assert.True(t, errors.Is(err, errors.ReasonAlreadyJoined))
	})

	t.Run("after start", func(t *testing.T) {
		require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))

		_, err := f.svc.Join(context.Background(), ss.Code, player("p2"))
		assert.True(t, errors.Is(err, errors.ReasonSessionNotPending))
	})
}

func TestService_StartSessionIsIdempotent(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, createReq(5, 2*time.Minute))
	f.join(t, ss.Code, "p1")

	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"),
		"second start must be a no-op")

	q, err := f.svc.CurrentQuestion(context.Background(), ss.SessionID, "p1")
	require.NoError(t, err)
	assert.Equal(t, "planets-q1", q.QuestionID)
}

func TestService_StartSessionRejectsNonHost(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, createReq(5, 2*time.Minute))
	f.join(t, ss.Code, "p1")

	err := f.svc.StartSession(context.Background(), ss.Code, "p1")
	require.Error(t, err)
}

func TestService_SubmitAnswer(t *testing.T) {
	type fixtureState struct {
		f  *fixture
		ss *domain.Session
	}

	start := func(t *testing.T) fixtureState {
		f := makeFixture(t, poolOf("planets", 5))
		ss := f.create(t, createReq(5, 2*time.Minute))
		f.join(t, ss.Code, "p1")
		f.join(t, ss.Code, "p2")
		require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))
		return fixtureState{f: f, ss: ss}
	}

	t.Run("correct answer scores and advances", func(t *testing.T) {
		st := start(t)
		st.f.clock.Advance(2 * time.Second)

		resp, err := st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "p1",
			QuestionID:     "planets-q1",
			ChosenOptionID: "planets-q1-o1",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(82), resp.Points, "2s into a 10s window on a 100..10 scale")
		assert.Equal(t, int64(82), resp.TotalScore)
		assert.False(t, resp.Finished)
		require.NotNil(t, resp.NextQuestion)
		assert.Equal(t, "planets-q2", resp.NextQuestion.QuestionID)
	})

	t.Run("incorrect answer scores zero but still advances", func(t *testing.T) {
		st := start(t)

		resp, err := st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "p1",
			QuestionID:     "planets-q1",
			ChosenOptionID: "planets-q1-o3",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Points)
		require.NotNil(t, resp.NextQuestion)
		assert.Equal(t, "planets-q2", resp.NextQuestion.QuestionID)
	})

	t.Run("non-participant is rejected", func(t *testing.T) {
		st := start(t)

		_, err := st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "intruder",
			QuestionID:     "planets-q1",
			ChosenOptionID: "planets-q1-o1",
		})
		assert.True(t, errors.Is(err, errors.ReasonNotParticipant))
	})

	t.Run("stale question is rejected without mutation", func(t *testing.T) {
		st := start(t)

		_, err := st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "p1",
			QuestionID:     "planets-q3",
			ChosenOptionID: "planets-q3-o1",
		})
		assert.True(t, errors.Is(err, errors.ReasonStaleQuestion))

		q, err := st.f.svc.CurrentQuestion(context.Background(), st.ss.SessionID, "p1")
		require.NoError(t, err)
		assert.Equal(t, "planets-q1", q.QuestionID, "rejected submission must not advance the player")
	})

	t.Run("second submission for the same question is rejected", func(t *testing.T) {
		st := start(t)

		_, err := st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "p1",
			QuestionID:     "planets-q1",
			ChosenOptionID: "planets-q1-o1",
		})
		require.NoError(t, err)

		_, err = st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "p1",
			QuestionID:     "planets-q1",
			ChosenOptionID: "planets-q1-o2",
		})
		assert.True(t, errors.Is(err, errors.ReasonAlreadyAnswered))
	})

	t.Run("late submission is rejected but consumes the question", func(t *testing.T) {
		st := start(t)
		st.f.clock.Advance(11 * time.Second)

		_, err := st.f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      st.ss.SessionID,
			PlayerID:       "p1",
			QuestionID:     "planets-q1",
			ChosenOptionID: "planets-q1-o1",
		})
		assert.True(t, errors.Is(err, errors.ReasonTimeExpired))

		q, err := st.f.svc.CurrentQuestion(context.Background(), st.ss.SessionID, "p1")
		require.NoError(t, err)
		assert.Equal(t, "planets-q2", q.QuestionID, "expired question is consumed, player advances")
	})
}

func TestService_ClosesWhenLastParticipantFinishes(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 2))
	ss := f.create(t, createReq(2, 2*time.Minute))
	f.join(t, ss.Code, "p1")
	f.join(t, ss.Code, "p2")
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))

	f.answerAll(t, ss.SessionID, "p1", 2)
	assert.Equal(t, 0, f.store.savedSessions(), "session must stay open while p2 is unfinished")

	f.answerAll(t, ss.SessionID, "p2", 2)
	assert.Equal(t, 1, f.store.savedSessions(), "session closes the moment the last participant finishes")

	_, err := f.svc.GetSession(context.Background(), ss.Code)
	assert.True(t, errors.Is(err, errors.ReasonSessionNotFound), "closed session leaves the live registry")
}

func TestService_ClosesAtDurationWithIdleParticipant(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, createReq(5, 2*time.Minute))
	f.join(t, ss.Code, "fast")
	f.join(t, ss.Code, "idle")
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))

	f.answerAll(t, ss.SessionID, "fast", 5)
	require.Equal(t, 0, f.store.savedSessions())

	f.clock.Advance(2 * time.Minute)
	f.svc.Start()
	defer f.svc.Stop()
	f.tick()

	require.Eventually(t, func() bool { return f.store.savedSessions() == 1 },
		time.Second, 10*time.Millisecond, "session must close once its duration elapses")

	_, ps, ans := f.store.lastSaved()
	byPlayer := participantsByID(ps)
	assert.True(t, byPlayer["idle"].Finished)
	assert.Equal(t, int64(0), byPlayer["idle"].TotalScore, "unanswered questions score zero")
	assert.Len(t, ans, 10, "idle participant gets explicit zero records for all questions")
}

func TestService_SubmitRacingDeadlineIsRejectedAndCloses(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, createReq(5, 30*time.Second))
	f.join(t, ss.Code, "p1")
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))

	f.clock.Advance(31 * time.Second)

	_, err := f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
		SessionID:      ss.SessionID,
		PlayerID:       "p1",
		QuestionID:     "planets-q1",
		ChosenOptionID: "planets-q1-o1",
	})
	assert.True(t, errors.Is(err, errors.ReasonTimeExpired))
	assert.Equal(t, 1, f.store.savedSessions(), "deadline crossing during submit closes the session")
}

func TestService_ScheduledStartActivatesOnTick(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, session.CreateSessionRequest{
		HostID:        "host",
		CategoryID:    "planets",
		QuestionCount: 5,
		StartTime:     f.clock.Now().Add(time.Minute),
		Duration:      2 * time.Minute,
	})
	f.join(t, ss.Code, "p1")

	f.svc.Start()
	defer f.svc.Stop()

	f.tick()
	_, err := f.svc.CurrentQuestion(context.Background(), ss.SessionID, "p1")
	require.Error(t, err, "session must stay pending before its scheduled start")

	f.clock.Advance(time.Minute)
	f.tick()

	require.Eventually(t, func() bool {
		q, err := f.svc.CurrentQuestion(context.Background(), ss.SessionID, "p1")
		return err == nil && q.QuestionID == "planets-q1"
	}, time.Second, 10*time.Millisecond)
}

func TestService_PersistenceFailureKeepsSessionClosed(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 1))
	f.store.failSaves = true

	ss := f.create(t, createReq(1, time.Minute))
	f.join(t, ss.Code, "p1")
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))

	f.answerAll(t, ss.SessionID, "p1", 1)

	// The session is authoritatively closed despite the failed archive: it
	// stays in the registry for inspection but gameplay never reopens.
	v, err := f.svc.GetSession(context.Background(), ss.Code)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusClosed, v.Status)

	_, err = f.svc.Join(context.Background(), ss.Code, player("p2"))
	assert.True(t, errors.Is(err, errors.ReasonSessionNotPending))

	_, err = f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
		SessionID: ss.SessionID, PlayerID: "p1", QuestionID: "planets-q1", ChosenOptionID: "planets-q1-o1",
	})
	assert.True(t, errors.Is(err, errors.ReasonSessionNotFound))
}

func TestService_Views(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 2))

	pending := f.create(t, createReq(2, 2*time.Minute))
	f.join(t, pending.Code, "p1")

	active := f.create(t, createReq(2, 2*time.Minute))
	f.join(t, active.Code, "p2")
	require.NoError(t, f.svc.StartSession(context.Background(), active.Code, "host"))

	closed := f.create(t, createReq(2, 2*time.Minute))
	f.join(t, closed.Code, "p3")
	require.NoError(t, f.svc.StartSession(context.Background(), closed.Code, "host"))
	f.answerAll(t, closed.SessionID, "p3", 2)

	views := f.svc.Views(context.Background())
	require.Len(t, views, 2, "closed sessions never appear in the active listing")

	byCode := make(map[string]domain.SessionView)
	for _, v := range views {
		byCode[v.Code] = v
	}
	require.Contains(t, byCode, pending.Code)
	require.Contains(t, byCode, active.Code)

	v := byCode[active.Code]
	assert.Equal(t, domain.StatusActive, v.Status)
	assert.Equal(t, 1, v.PlayerCount)
	assert.Equal(t, []string{"player p2"}, v.PlayerNames)
	assert.Equal(t, 2, v.QuestionCount)
	assert.Equal(t, 2*time.Minute, v.EndsIn)
}

func TestService_DeleteSession(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 2))
	ss := f.create(t, createReq(2, 2*time.Minute))

	require.NoError(t, f.svc.DeleteSession(context.Background(), ss.Code))

	_, err := f.svc.GetSession(context.Background(), ss.Code)
	assert.True(t, errors.Is(err, errors.ReasonSessionNotFound))

	err = f.svc.DeleteSession(context.Background(), ss.Code)
	assert.True(t, errors.Is(err, errors.ReasonSessionNotFound))
}

// The worked example: 5 questions, 10s limit, 100..10 scale, 120s duration.
// Player A answers everything correctly in 2s each, player B never submits.
func TestService_WorkedExample(t *testing.T) {
	f := makeFixture(t, poolOf("planets", 5))
	ss := f.create(t, createReq(5, 120*time.Second))
	f.join(t, ss.Code, "A")
	f.join(t, ss.Code, "B")
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))

	for i := 1; i <= 5; i++ {
		f.clock.Advance(2 * time.Second)
		qid := questionID("planets", i)
		resp, err := f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      ss.SessionID,
			PlayerID:       "A",
			QuestionID:     qid,
			ChosenOptionID: qid + "-o1",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(82), resp.Points)
	}

	f.clock.Advance(120 * time.Second)
	f.svc.Start()
	defer f.svc.Stop()
	f.tick()

	require.Eventually(t, func() bool { return f.store.savedSessions() == 1 },
		time.Second, 10*time.Millisecond)

	_, ps, _ := f.store.lastSaved()
	byPlayer := participantsByID(ps)
	assert.Equal(t, int64(410), byPlayer["A"].TotalScore, "5 correct answers at 2s each")
	assert.Equal(t, int64(0), byPlayer["B"].TotalScore)
}

func TestService_PublishesScoreUpdates(t *testing.T) {
	eb := event.NewBus()

	var mu sync.Mutex
	var got []domain.EventScoreUpdated
	eb.Subscribe(domain.EventNameScoreUpdated, func(ctx context.Context, e event.Event) error {
		mu.Lock()
		got = append(got, e.(domain.EventScoreUpdated))
		mu.Unlock()
		return nil
	})

	f := makeFixture(t, poolOf("planets", 1), withEventBus(eb))
	ss := f.create(t, createReq(1, time.Minute))
	f.join(t, ss.Code, "p1")
	require.NoError(t, f.svc.StartSession(context.Background(), ss.Code, "host"))
	f.answerAll(t, ss.SessionID, "p1", 1)

	eb.Stop()

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(got), 2)

	var sawSeed, sawFinal bool
	for _, e := range got {
		require.Equal(t, "p1", e.Score.PlayerID)
		if e.Score.TotalScore.IsZero() && e.Score.Answered == 0 {
			sawSeed = true
		}
		if e.Score.Answered == 1 {
			sawFinal = true
		}
	}
	assert.True(t, sawSeed, "join seeds the scoreboard with zero")
	assert.True(t, sawFinal, "submitted answer publishes the updated total")
}

// --- fixture ---

type fixture struct {
	svc    *session.Service
	store  *fakeStore
	clock  *fakeClock
	ticker *fakeTicker
}

type fixtureOption func(*session.Config)

func withEventBus(eb *event.Bus) fixtureOption {
	return func(c *session.Config) { c.EventBus = eb }
}

func makeFixture(t *testing.T, pools map[string][]domain.Question, opts ...fixtureOption) *fixture {
	t.Helper()

	f := &fixture{
		store:  &fakeStore{pools: pools},
		clock:  &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		ticker: &fakeTicker{ch: make(chan time.Time)},
	}

	bank := question.NewBank(question.Config{
		Store:       f.store,
		ShuffleFunc: func(n int, swap func(i, j int)) {},
	})

	c := session.Config{
		Bank:              bank,
		Store:             f.store,
		EventBus:          event.NewBus(),
		Scoring:           score.Policy{MaxPoints: 100, FloorPoints: 10},
		QuestionTimeLimit: 10 * time.Second,
		Clock:             f.clock.Now,
		NewTickerFunc:     func(d time.Duration) session.Ticker { return f.ticker },
	}
	for _, opt := range opts {
		opt(&c)
	}

	f.svc = session.NewService(c)
	return f
}

func (f *fixture) create(t *testing.T, req session.CreateSessionRequest) *domain.Session {
	t.Helper()

	ss, err := f.svc.CreateSession(context.Background(), req)
	require.NoError(t, err)
	return ss
}

func (f *fixture) join(t *testing.T, code, playerID string) {
	t.Helper()

	_, err := f.svc.Join(context.Background(), code, player(playerID))
	require.NoError(t, err)
}

// answerAll submits a correct answer instantly for questions 1..n.
func (f *fixture) answerAll(t *testing.T, sessionID, playerID string, n int) {
	t.Helper()

	for i := 1; i <= n; i++ {
		qid := questionID("planets", i)
		_, err := f.svc.SubmitAnswer(context.Background(), session.SubmitAnswerRequest{
			SessionID:      sessionID,
			PlayerID:       playerID,
			QuestionID:     qid,
			ChosenOptionID: qid + "-o1",
		})
		require.NoError(t, err)
	}
}

func (f *fixture) tick() {
	f.ticker.ch <- f.clock.Now()
}

func createReq(questions int, d time.Duration) session.CreateSessionRequest {
	return session.CreateSessionRequest{
		HostID:        "host",
		CategoryID:    "planets",
		QuestionCount: questions,
		Duration:      d,
	}
}

func player(id string) domain.Player {
	return domain.Player{PlayerID: id, DisplayName: "player " + id}
}

func participantsByID(ps []domain.Participant) map[string]domain.Participant {
	out := make(map[string]domain.Participant, len(ps))
	for _, p := range ps {
		out[p.PlayerID] = p
	}
	return out
}

func questionID(category string, i int) string {
	return category + "-q" + string(rune('0'+i))
}

func poolOf(categoryID string, n int) map[string][]domain.Question {
	qs := make([]domain.Question, 0, n)
	for i := 1; i <= n; i++ {
		id := questionID(categoryID, i)
		q := domain.Question{
			QuestionID:   id,
			CategoryID:   categoryID,
			QuestionText: "question " + id,
		}
		for j := 1; j <= 4; j++ {
			q.Options = append(q.Options, domain.Option{
				OptionID:   id + "-o" + string(rune('0'+j)),
				QuestionID: id,
				OptionText: "option",
				Correct:    j == 1,
			})
		}
		qs = append(qs, q)
	}
	return map[string][]domain.Question{categoryID: qs}
}

type fakeStore struct {
	pools map[string][]domain.Question

	mu        sync.Mutex
	failSaves bool
	saves     []savedSession
}

type savedSession struct {
	session      domain.Session
	participants []domain.Participant
	answers      []domain.AnswerRecord
}

func (f *fakeStore) LoadQuestionsForCategory(_ context.Context, categoryID string) ([]domain.Question, error) {
	return f.pools[categoryID], nil
}

func (f *fakeStore) SaveClosedSession(_ context.Context, s domain.Session, ps []domain.Participant, ans []domain.AnswerRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.failSaves {
		return errors.New(errors.CodeUnavailable, errors.WithReason(errors.ReasonPersistenceFailure))
	}

	f.saves = append(f.saves, savedSession{session: s, participants: ps, answers: ans})
	return nil
}

func (f *fakeStore) savedSessions() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakeStore) lastSaved() (domain.Session, []domain.Participant, []domain.AnswerRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()

	last := f.saves[len(f.saves)-1]
	return last.session, last.participants, last.answers
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeTicker struct {
	ch chan time.Time
}

func (f *fakeTicker) C() <-chan time.Time { return f.ch }
func (f *fakeTicker) Stop()               {}
