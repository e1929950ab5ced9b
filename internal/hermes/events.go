package hermes

import "time"

type LocationScoredEvent struct {
	EventID   string    `json:"event_id"`
	RequestID string    `json:"request_id,omitempty"`
	Type      string    `json:"type"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Radius    float64   `json:"radius"`
	Score     float64   `json:"score"`
	NoData    bool      `json:"no_data"`
	Timestamp time.Time `json:"timestamp"`
}

type LocationFailedEvent struct {
	EventID   string    `json:"event_id"`
	RequestID string    `json:"request_id,omitempty"`
	Type      string    `json:"type"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Radius    float64   `json:"radius"`
	Stage     string    `json:"stage,omitempty"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type BatchRankedEvent struct {
	EventID    string    `json:"event_id"`
	RequestID  string    `json:"request_id,omitempty"`
	Type       string    `json:"type"`
	Radius     float64   `json:"radius"`
	Candidates int       `json:"candidates"`
	BestIndex  int       `json:"best_index"`
	BestScore  float64   `json:"best_score"`
	Timestamp  time.Time `json:"timestamp"`
}
