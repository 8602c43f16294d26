package engine

import "time"

type EventType int

const (
	EventSignal EventType = iota
	EventOrderSubmit
	EventOrderFill
	EventOrderRejected
)

func (t EventType) String() string {
	switch t {
	case EventOrderSubmit:
		return "order_submit"
	case EventOrderFill:
		return "order_fill"
	case EventOrderRejected:
		return "order_rejected"
	}
	return "signal"
}

type Event struct {
	Date    time.Time         `json:"date"`
	Type    EventType         `json:"type"`
	Symbol  string            `json:"symbol"`
	Details map[string]string `json:"details,omitempty"`
}

// DecisionRecord is one bar of the decision trace: what the engine saw,
// what it concluded and what the sizer did about it.
type DecisionRecord struct {
	Date      time.Time         `json:"date"`
	Close     float64           `json:"close"`
	Snapshot  IndicatorSnapshot `json:"snapshot"`
	Stops     StopState         `json:"stops"`
	Direction Direction         `json:"direction"`
	Signal    Signal            `json:"signal"`
	Decision  SizingDecision    `json:"decision"`
	Position  Position          `json:"position"`
	Value     float64           `json:"value"`
}

type EventLog struct {
	Events    []Event
	Decisions []DecisionRecord
}

func (l *EventLog) Append(e Event) { l.Events = append(l.Events, e) }

func (l *EventLog) Record(d DecisionRecord) { l.Decisions = append(l.Decisions, d) }
