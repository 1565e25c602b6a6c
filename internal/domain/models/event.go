package models

import "time"

// EventType names a state change observable by hosts.
type EventType string

const (
	EventSignalReceived   EventType = "signal.received"
	EventSignalFollowed   EventType = "signal.followed"
	EventFollowFailed     EventType = "signal.follow_failed"
	EventFollowingChanged EventType = "following.changed"
	EventSettingsUpdated  EventType = "settings.updated"
	EventFeedStatus       EventType = "feed.status"
	EventFeedPrices       EventType = "feed.prices"
	EventAlertFired       EventType = "alert.fired"
	EventNotification     EventType = "notification.delivered"
)

// Event is published on the event bus after each state mutation.
type Event struct {
	Type         EventType        `json:"type"`
	Timestamp    time.Time        `json:"timestamp"`
	Signal       *TradeSignal     `json:"signal,omitempty"`
	Order        *TradeOrder      `json:"order,omitempty"`
	Settings     *FollowSettings  `json:"settings,omitempty"`
	Following    *bool            `json:"following,omitempty"`
	Status       ConnectionStatus `json:"status,omitempty"`
	Prices       []PriceSnapshot  `json:"prices,omitempty"`
	Alert        *PriceAlert      `json:"alert,omitempty"`
	Notification *Notification    `json:"notification,omitempty"`
}

// Symbol returns the instrument the event is about, if any.
func (e Event) Symbol() string {
	switch {
	case e.Signal != nil:
		return e.Signal.Symbol
	case e.Order != nil:
		return e.Order.Symbol
	case e.Alert != nil:
		return e.Alert.Symbol
	case e.Notification != nil:
		return e.Notification.Symbol
	}
	return ""
}
