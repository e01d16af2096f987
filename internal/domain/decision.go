package domain

import "time"

// IndicatorSample is one consulted indicator value inside a decision snapshot.
type IndicatorSample struct {
	Value     float64   `json:"value"`
	Freshness Freshness `json:"freshness"`
}

// IndicatorSnapshot maps every indicator variant consulted for a decision to
// the value it produced, including indicators whose conditions did not trip.
type IndicatorSnapshot map[string]IndicatorSample

// Clone returns an independent copy of the snapshot.
func (s IndicatorSnapshot) Clone() IndicatorSnapshot {
	out := make(IndicatorSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// DecisionRecord is one append-only audit entry capturing the indicator
// context behind a single state transition. Records are write-once.
type DecisionRecord struct {
	Timestamp  time.Time
	StrategyID string
	Symbol     string
	Transition Section
	Snapshot   IndicatorSnapshot
	Outcome    string
}
