package leaderboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/errors"
	"github.com/orbitq/orbitq/internal/event"
)

const (
	publishInterval  = 200 * time.Millisecond
	defaultRetention = 24 * time.Hour

	// timeScale folds the average-answer-time tiebreak into the sorted set
	// score: composite = points*timeScale + (timeScale-1 - avgAnswerMillis).
	// Points order dominates; within equal points, faster answers rank
	// higher. Covers averages up to ~2.7h per answer.
	timeScale = int64(10_000_000)
)

type Config struct {
	EventBus *event.Bus
	Redis    redis.UniversalClient
	Prefix   string
	Sessions Sessions
	Store    Store

	// Retention bounds how long a closed session's board stays readable.
	Retention time.Duration
}

// Sessions lists live session summaries from the registry.
type Sessions interface {
	Views(ctx context.Context) []domain.SessionView
}

// Store reads archived participants for cross-session aggregation.
type Store interface {
	LoadClosedParticipants(ctx context.Context) ([]domain.Participant, error)
}

// Service derives ordered rankings from score records: per-session boards
// are kept in a Redis sorted set and recomputed continuously while the
// session runs; the global board aggregates archived sessions on demand.
type Service struct {
	eb        *event.Bus
	redis     redis.UniversalClient
	prefix    string
	sessions  Sessions
	store     Store
	retention time.Duration
}

func NewService(c Config) *Service {
	s := &Service{
		eb:        c.EventBus,
		redis:     c.Redis,
		prefix:    c.Prefix,
		sessions:  c.Sessions,
		store:     c.Store,
		retention: c.Retention,
	}
	if s.retention <= 0 {
		s.retention = defaultRetention
	}

	s.eb.Subscribe(domain.EventNameScoreUpdated, func(ctx context.Context, e event.Event) error {
		return s.UpdateBoard(ctx, e.(domain.EventScoreUpdated))
	})
	s.eb.Subscribe(domain.EventNameSessionClosed, func(ctx context.Context, e event.Event) error {
		return s.expireBoard(ctx, e.(domain.EventSessionClosed).Session.SessionID)
	})

	return s
}

type SessionLeaderboardRequest struct {
	SessionID string
}

// SessionLeaderboard returns the board for one session, Active or Closed:
// aggregate score descending, ties broken by earlier average answer time.
func (s *Service) SessionLeaderboard(ctx context.Context, req SessionLeaderboardRequest) (*domain.Leaderboard, error) {
	res, err := s.redis.ZRevRangeWithScores(ctx, s.boardKey(req.SessionID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("get leaderboard: %w", err)
	}

	if len(res) == 0 {
		return nil, errors.New(errors.CodeNotFound,
			errors.WithMessagef("leaderboard not found: session=%s", req.SessionID))
	}

	names, err := s.redis.HGetAll(ctx, s.namesKey(req.SessionID)).Result()
	if err != nil {
		return nil, fmt.Errorf("get display names: %w", err)
	}

	entries := make([]domain.LeaderboardEntry, 0, len(res))
	for i, z := range res {
		playerID := z.Member.(string)
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    playerID,
			DisplayName: names[playerID],
			Score:       pointsOf(z.Score),
		})
	}

	return &domain.Leaderboard{
		SessionID: req.SessionID,
		Entries:   entries,
	}, nil
}

// GlobalLeaderboard aggregates cumulative scores per player across all
// Closed sessions in durable storage. Pending and Active sessions never
// contribute.
func (s *Service) GlobalLeaderboard(ctx context.Context) (*domain.Leaderboard, error) {
	ps, err := s.store.LoadClosedParticipants(ctx)
	if err != nil {
		return nil, err
	}

	type agg struct {
		playerID string
		name     string
		score    int64
	}

	totals := make(map[string]*agg)
	for _, p := range ps {
		a, ok := totals[p.PlayerID]
		if !ok {
			a = &agg{playerID: p.PlayerID, name: p.DisplayName}
			totals[p.PlayerID] = a
		}
		a.score += p.TotalScore
	}

	ranked := make([]*agg, 0, len(totals))
	for _, a := range totals {
		ranked = append(ranked, a)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].playerID < ranked[j].playerID
	})

	entries := make([]domain.LeaderboardEntry, 0, len(ranked))
	for i, a := range ranked {
		entries = append(entries, domain.LeaderboardEntry{
			Rank:        i + 1,
			PlayerID:    a.playerID,
			DisplayName: a.name,
			Score:       a.score,
		})
	}

	return &domain.Leaderboard{Entries: entries}, nil
}

// ActiveSessions lists all non-Closed sessions with their countdowns.
func (s *Service) ActiveSessions(ctx context.Context) []domain.SessionView {
	return s.sessions.Views(ctx)
}

// UpdateBoard folds a score update into the session's sorted set.
func (s *Service) UpdateBoard(ctx context.Context, e domain.EventScoreUpdated) error {
	sc := e.Score

	if err := s.redis.ZAdd(ctx, s.boardKey(sc.SessionID), redis.Z{
		Score:  compositeScore(sc.TotalScore.IntPart(), avgAnswerTime(sc)),
		Member: sc.PlayerID,
	}).Err(); err != nil {
		return fmt.Errorf("update leaderboard: %w", err)
	}

	if err := s.redis.HSet(ctx, s.namesKey(sc.SessionID), sc.PlayerID, e.DisplayName).Err(); err != nil {
		return fmt.Errorf("record display name: %w", err)
	}

	return s.schedulePublish(ctx, sc)
}

// schedulePublish emits leaderboard.updated at most once per interval per
// session, since many scores land in quick bursts.
func (s *Service) schedulePublish(ctx context.Context, sc domain.Score) error {
	ok, err := s.redis.SetNX(ctx, s.throttleKey(sc.SessionID), sc.UpdateTime.UnixMilli(), publishInterval).Result()
	if err != nil {
		return fmt.Errorf("setnx: %w", err)
	}

	if !ok {
		return nil
	}

	l, err := s.SessionLeaderboard(ctx, SessionLeaderboardRequest{SessionID: sc.SessionID})
	if err != nil {
		return fmt.Errorf("publish leaderboard: session=%s: %w", sc.SessionID, err)
	}

	s.eb.Publish(ctx, domain.EventLeaderboardUpdated{Leaderboard: *l})
	return nil
}

// expireBoard bounds a closed session's board lifetime. The durable archive
// remains the source of truth afterwards.
func (s *Service) expireBoard(ctx context.Context, sessionID string) error {
	if err := s.redis.Expire(ctx, s.boardKey(sessionID), s.retention).Err(); err != nil {
		return fmt.Errorf("expire leaderboard: %w", err)
	}
	return s.redis.Expire(ctx, s.namesKey(sessionID), s.retention).Err()
}

func compositeScore(points int64, avg time.Duration) float64 {
	ms := avg.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	if ms > timeScale-1 {
		ms = timeScale - 1
	}

	c := decimal.NewFromInt(points).
		Mul(decimal.NewFromInt(timeScale)).
		Add(decimal.NewFromInt(timeScale - 1 - ms))
	return c.InexactFloat64()
}

func pointsOf(composite float64) int64 {
	return decimal.NewFromFloat(composite).
		Div(decimal.NewFromInt(timeScale)).
		Floor().
		IntPart()
}

func avgAnswerTime(sc domain.Score) time.Duration {
	if sc.Answered == 0 {
		return 0
	}
	return sc.AnswerTime / time.Duration(sc.Answered)
}

func (s *Service) boardKey(session string) string {
	return fmt.Sprintf("%s:%s:leaderboard", s.prefix, session)
}

func (s *Service) namesKey(session string) string {
	return fmt.Sprintf("%s:%s:names", s.prefix, session)
}

func (s *Service) throttleKey(session string) string {
	return fmt.Sprintf("%s:%s:throttle", s.prefix, session)
}
