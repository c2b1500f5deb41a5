package models

import (
	"time"
)

// TellMessage is one deferred message. Its state only moves forward:
// queued -> delivered -> notified; it leaves the queue by explicit delete or
// by the expiry sweep.
type TellMessage struct {
	ID          int64
	From        string
	To          string
	Body        string
	QueuedAt    time.Time
	DeliveredAt *time.Time
	Delivered   bool
	Notified    bool
}

func (m *TellMessage) Status() string {
	switch {
	case m.Notified:
		return "notified"
	case m.Delivered:
		return "delivered"
	default:
		return "queued"
	}
}

// Delivery is one outgoing chat line produced by a presence event.
type Delivery struct {
	To   string
	Text string
}
