package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a session. Transitions only move
// forward: Pending -> Active -> Closed.
type SessionStatus string

const (
	StatusPending SessionStatus = "PENDING"
	StatusActive  SessionStatus = "ACTIVE"
	StatusClosed  SessionStatus = "CLOSED"
)

// Category groups the questions a session draws from.
type Category struct {
	CategoryID string
	Name       string
}

// Question is immutable once created and never mutated by a session.
type Question struct {
	QuestionID   string
	CategoryID   string
	QuestionText string
	Options      []Option
}

// CorrectOption returns the single option flagged correct.
func (q Question) CorrectOption() (Option, bool) {
	for _, o := range q.Options {
		if o.Correct {
			return o, true
		}
	}
	return Option{}, false
}

type Option struct {
	OptionID   string
	QuestionID string
	OptionText string
	Correct    bool
}

// Session is the configuration and status of one quiz session. Live state
// (participants, answers) is owned by the session service for its lifetime;
// the struct is archived to storage when the session closes.
type Session struct {
	SessionID     string
	Code          string
	HostID        string
	CategoryID    string
	QuestionCount int
	StartTime     time.Time
	Duration      time.Duration
	Status        SessionStatus
}

// EndTime is the moment the session's scheduled window runs out.
func (s Session) EndTime() time.Time {
	return s.StartTime.Add(s.Duration)
}

// Participant is one player's membership and progress within a session.
// A player appears at most once per session; QuestionIndex never decreases
// and never exceeds the session's configured question count.
type Participant struct {
	SessionID     string
	PlayerID      string
	DisplayName   string
	JoinTime      time.Time
	QuestionIndex int
	Finished      bool
	TotalScore    int64
	// AnswerTime accumulates time-to-answer across answered questions,
	// used for leaderboard tie-breaking.
	AnswerTime time.Duration
	Answered   int
}

// AvgAnswerTime is the mean time-to-answer over answered questions.
func (p Participant) AvgAnswerTime() time.Duration {
	if p.Answered == 0 {
		return 0
	}
	return p.AnswerTime / time.Duration(p.Answered)
}

// AnswerRecord is written exactly once per (session, player, question) and
// never overwritten. ChosenOptionID is empty when the time limit passed with
// no submission.
type AnswerRecord struct {
	AnswerID       string
	SessionID      string
	PlayerID       string
	QuestionID     string
	ChosenOptionID string
	SubmitTime     time.Time
	TimeToAnswer   time.Duration
	Points         int64
}

// Score is a participant's running total within a session, carried on
// score.updated events.
type Score struct {
	SessionID  string
	PlayerID   string
	TotalScore decimal.Decimal
	AnswerTime time.Duration
	Answered   int
	UpdateTime time.Time
}

// Leaderboard is a ranked view over one session, sorted by score descending
// with earlier average answer time breaking ties.
type Leaderboard struct {
	SessionID string
	Entries   []LeaderboardEntry
}

// LeaderboardEntry is derived on demand, never stored as a mutable entity.
type LeaderboardEntry struct {
	Rank        int
	PlayerID    string
	DisplayName string
	Score       int64
}

// SessionView is the summary a lobby shows for a joinable or running session.
type SessionView struct {
	SessionID     string
	Code          string
	CategoryID    string
	Status        SessionStatus
	PlayerCount   int
	PlayerNames   []string
	QuestionCount int
	HighestScore  int64
	EndsIn        time.Duration
}

// Player is a resolved identity handed to the core by the identity
// collaborator. The core never inspects tokens itself.
type Player struct {
	PlayerID    string
	DisplayName string
}
