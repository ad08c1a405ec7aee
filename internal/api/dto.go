package api

import (
	"time"

	"github.com/orbitq/orbitq/internal/domain"
	"github.com/orbitq/orbitq/internal/session"
)

type CategoryResponse struct {
	CategoryID string `json:"category_id"`
	Name       string `json:"name"`
}

type CreateSessionRequest struct {
	CategoryID      string    `json:"category_id" binding:"required"`
	QuestionCount   int       `json:"question_count" binding:"required"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds" binding:"required"`
}

type SessionResponse struct {
	SessionID       string    `json:"session_id"`
	Code            string    `json:"code"`
	CategoryID      string    `json:"category_id"`
	QuestionCount   int       `json:"question_count"`
	StartTime       time.Time `json:"start_time"`
	DurationSeconds int64     `json:"duration_seconds"`
	Status          string    `json:"status"`
}

func sessionResponse(s domain.Session) SessionResponse {
	return SessionResponse{
		SessionID:       s.SessionID,
		Code:            s.Code,
		CategoryID:      s.CategoryID,
		QuestionCount:   s.QuestionCount,
		StartTime:       s.StartTime,
		DurationSeconds: int64(s.Duration / time.Second),
		Status:          string(s.Status),
	}
}

type SessionViewResponse struct {
	SessionID     string   `json:"session_id"`
	Code          string   `json:"code"`
	CategoryID    string   `json:"category_id"`
	Status        string   `json:"status"`
	PlayerCount   int      `json:"player_count"`
	PlayerNames   []string `json:"player_names"`
	QuestionCount int      `json:"question_count"`
	HighestScore  int64    `json:"highest_score"`
	EndsInSeconds int64    `json:"ends_in_seconds"`
}

func sessionViewResponse(v domain.SessionView) SessionViewResponse {
	return SessionViewResponse{
		SessionID:     v.SessionID,
		Code:          v.Code,
		CategoryID:    v.CategoryID,
		Status:        string(v.Status),
		PlayerCount:   v.PlayerCount,
		PlayerNames:   v.PlayerNames,
		QuestionCount: v.QuestionCount,
		HighestScore:  v.HighestScore,
		EndsInSeconds: int64(v.EndsIn / time.Second),
	}
}

type OptionResponse struct {
	OptionID string `json:"option_id"`
	Text     string `json:"text"`
}

type QuestionResponse struct {
	QuestionID       string           `json:"question_id"`
	Text             string           `json:"text"`
	Options          []OptionResponse `json:"options"`
	OpenedAt         time.Time        `json:"opened_at"`
	TimeLimitSeconds int64            `json:"time_limit_seconds"`
}

func questionResponse(q *session.PlayerQuestion) QuestionResponse {
	out := QuestionResponse{
		QuestionID:       q.QuestionID,
		Text:             q.Text,
		OpenedAt:         q.OpenedAt,
		TimeLimitSeconds: int64(q.TimeLimit / time.Second),
	}
	for _, o := range q.Options {
		out.Options = append(out.Options, OptionResponse{OptionID: o.OptionID, Text: o.OptionText})
	}
	return out
}

type SubmitAnswerRequest struct {
	QuestionID string `json:"question_id" binding:"required"`
	// OptionID may be empty: a blank submission consumes the question for
	// zero points.
	OptionID string `json:"option_id"`
}

type SubmitAnswerResponse struct {
	Points       int64             `json:"points"`
	TotalScore   int64             `json:"total_score"`
	Finished     bool              `json:"finished"`
	NextQuestion *QuestionResponse `json:"next_question,omitempty"`
}

type LeaderboardEntryResponse struct {
	Rank        int    `json:"rank"`
	PlayerID    string `json:"player_id"`
	DisplayName string `json:"display_name"`
	Score       int64  `json:"score"`
}

type LeaderboardResponse struct {
	SessionID string                     `json:"session_id,omitempty"`
	Entries   []LeaderboardEntryResponse `json:"entries"`
}

func leaderboardResponse(l domain.Leaderboard) LeaderboardResponse {
	out := LeaderboardResponse{SessionID: l.SessionID}
	for _, e := range l.Entries {
		out.Entries = append(out.Entries, LeaderboardEntryResponse{
			Rank:        e.Rank,
			PlayerID:    e.PlayerID,
			DisplayName: e.DisplayName,
			Score:       e.Score,
		})
	}
	return out
}
