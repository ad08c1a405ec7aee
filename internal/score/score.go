package score

import (
	"fmt"
	"time"
)

// Policy holds the scoring parameters for a deployment. Points for a correct
// answer scale linearly from MaxPoints down to FloorPoints as the elapsed
// time approaches the question's limit.
type Policy struct {
	MaxPoints   int64
	FloorPoints int64
}

// DefaultPolicy matches the classic 100-down-to-10 scale.
var DefaultPolicy = Policy{
	MaxPoints:   100,
	FloorPoints: 10,
}

func (p Policy) Validate() error {
	if p.MaxPoints <= 0 {
		return fmt.Errorf("score: max points must be positive, got %d", p.MaxPoints)
	}
	if p.FloorPoints < 0 || p.FloorPoints > p.MaxPoints {
		return fmt.Errorf("score: floor points must be within [0, %d], got %d", p.MaxPoints, p.FloorPoints)
	}
	return nil
}

// Score awards points for one submitted answer. It is pure: identical inputs
// always yield identical output, so a re-score of the same record is
// idempotent.
//
// An incorrect or missing choice scores zero regardless of timing. A correct
// choice submitted at or after the time limit scores FloorPoints; the
// session layer rejects indefinitely late submissions before they reach
// here, so the floor only covers borderline clock skew.
func (p Policy) Score(submittedAt, openedAt time.Time, timeLimit time.Duration, chosenOptionID, correctOptionID string) int64 {
	if chosenOptionID == "" || chosenOptionID != correctOptionID {
		return 0
	}

	elapsed := submittedAt.Sub(openedAt)
	if elapsed <= 0 {
		return p.MaxPoints
	}
	if timeLimit <= 0 || elapsed >= timeLimit {
		return p.FloorPoints
	}

	span := p.MaxPoints - p.FloorPoints
	return p.MaxPoints - span*int64(elapsed)/int64(timeLimit)
}
