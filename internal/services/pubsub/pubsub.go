// Package pubsub provides a simple publish-subscribe mechanism that fans
// broadcast console state out to WebSocket clients.
package pubsub

import (
	"strconv"
	"sync"
)

// Topic represents a subscription topic.
type Topic string

const (
	TopicSessionUpdated     Topic = "SESSION_UPDATED"
	TopicHardwareStatus     Topic = "HARDWARE_STATUS"
	TopicEmergencyBroadcast Topic = "EMERGENCY_BROADCAST"
	TopicSystemInfo         Topic = "SYSTEM_INFO"
)

// Subscriber represents a subscription channel.
type Subscriber struct {
	ID      string
	Topic   Topic
	Filter  string // Optional filter value (broadcaster id)
	Channel chan interface{}
}

// PubSub manages subscriptions and message distribution.
type PubSub struct {
	mu          sync.RWMutex
	subscribers map[Topic][]*Subscriber
	nextID      int
}

// New creates a new PubSub instance.
func New() *PubSub {
	return &PubSub{
		subscribers: make(map[Topic][]*Subscriber),
	}
}

// Subscribe creates a new subscription for a topic. An empty filter
// receives every message on the topic.
func (ps *PubSub) Subscribe(topic Topic, filter string, bufferSize int) *Subscriber {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	ps.nextID++
	sub := &Subscriber{
		ID:      strconv.Itoa(ps.nextID),
		Topic:   topic,
		Filter:  filter,
		Channel: make(chan interface{}, bufferSize),
	}

	ps.subscribers[topic] = append(ps.subscribers[topic], sub)
	return sub
}

// Unsubscribe removes a subscription and closes its channel.
func (ps *PubSub) Unsubscribe(sub *Subscriber) {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	subs := ps.subscribers[sub.Topic]
	for i, s := range subs {
		if s.ID == sub.ID {
			close(s.Channel)
			ps.subscribers[sub.Topic] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Publish sends a message to subscribers of a topic whose filter matches.
// A full subscriber channel drops the message rather than blocking the
// publisher; a stalled browser tab must not stall the broadcast path.
// The read lock is held across the sends so Unsubscribe cannot close a
// channel mid-publish; the sends never block, so this stays cheap.
func (ps *PubSub) Publish(topic Topic, filter string, message interface{}) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subscribers[topic] {
		if sub.Filter == "" || filter == "" || sub.Filter == filter {
			select {
			case sub.Channel <- message:
			default:
			}
		}
	}
}

// PublishAll sends a message to all subscribers of a topic regardless of filter.
func (ps *PubSub) PublishAll(topic Topic, message interface{}) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	for _, sub := range ps.subscribers[topic] {
		select {
		case sub.Channel <- message:
		default:
		}
	}
}

// SubscriberCount returns the number of subscribers for a topic.
func (ps *PubSub) SubscriberCount(topic Topic) int {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return len(ps.subscribers[topic])
}
