package domain

const (
	EventNameSessionStarted     = "session.started"
	EventNameSessionClosed      = "session.closed"
	EventNameScoreUpdated       = "score.updated"
	EventNameLeaderboardUpdated = "leaderboard.updated"
)

// EventSessionStarted fires on the Pending -> Active transition.
type EventSessionStarted struct {
	Session Session
}

func (EventSessionStarted) Name() string { return EventNameSessionStarted }

// EventSessionClosed fires once on the Active -> Closed transition, carrying
// the finalized state. Persistence has already been attempted when the event
// is published.
type EventSessionClosed struct {
	Session      Session
	Participants []Participant
}

func (EventSessionClosed) Name() string { return EventNameSessionClosed }

type EventScoreUpdated struct {
	Score       Score
	DisplayName string
}

func (EventScoreUpdated) Name() string { return EventNameScoreUpdated }

type EventLeaderboardUpdated struct {
	Leaderboard Leaderboard
}

func (EventLeaderboardUpdated) Name() string { return EventNameLeaderboardUpdated }
