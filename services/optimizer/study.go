package optimizer

import (
	"time"

	"chandelier-backtest/services/engine"
)

type TrialState int

const (
	TrialComplete TrialState = iota
	TrialFailed
)

func (s TrialState) String() string {
	if s == TrialFailed {
		return "failed"
	}
	return "complete"
}

// Trial is the immutable record of one evaluated candidate. Metrics and the
// last signal are metadata; only Objective drives the search.
type Trial struct {
	Number     int            `json:"number"`
	Params     ParameterSet   `json:"params"`
	Objective  float64        `json:"objective"`
	State      TrialState     `json:"state"`
	Error      string         `json:"error,omitempty"`
	Metrics    engine.Metrics `json:"metrics"`
	LastSignal engine.Signal  `json:"last_signal"`
	Duration   time.Duration  `json:"duration"`
}

// Study is the ordered trial history of one symbol.
type Study struct {
	ID        string        `json:"id"`
	Symbol    string        `json:"symbol"`
	Seed      int64         `json:"seed"`
	Trials    []Trial       `json:"trials"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Best returns the trial with the lowest objective. Failed trials carry a
// neutral objective of 0 and stay eligible. Ties go to the earliest trial.
func (s *Study) Best() (Trial, bool) {
	best := -1
	for i, t := range s.Trials {
		if best < 0 || t.Objective < s.Trials[best].Objective {
			best = i
		}
	}
	if best < 0 {
		return Trial{}, false
	}
	return s.Trials[best], true
}

func (s *Study) Failed() int {
	n := 0
	for _, t := range s.Trials {
		if t.State == TrialFailed {
			n++
		}
	}
	return n
}
