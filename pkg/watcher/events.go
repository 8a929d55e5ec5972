package watcher

import (
	"faucetui/pkg/models"
	"faucetui/pkg/query"
)

// EventType defines the type of event being broadcast.
type EventType string

const (
	EventRecentRequestsUpdated EventType = "recent_requests_updated"
	EventAnalyticsUpdated      EventType = "analytics_updated"
	EventQueryFailed           EventType = "query_failed"
)

// Event represents a monitoring event.
type Event struct {
	Type EventType   `json:"type"`
	Data interface{} `json:"data"`
}

// RecentRequestsUpdate is the payload of EventRecentRequestsUpdated.
type RecentRequestsUpdate struct {
	Target
	Requests []models.AirdropRequest `json:"requests"`
}

// AnalyticsUpdate is the payload of EventAnalyticsUpdated.
type AnalyticsUpdate struct {
	Target
	Analytics models.Analytics `json:"analytics"`
}

// QueryFailure is the payload of EventQueryFailed.
type QueryFailure struct {
	Target
	Kind  query.Kind `json:"kind"`
	Error string     `json:"error"`
}

// Subscriber is a channel that receives events.
type Subscriber chan Event
