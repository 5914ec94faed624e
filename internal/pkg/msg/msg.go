package msg

import (
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
)

// Topic groups messages on a publisher.
type Topic int

const (
	// Project carries a *project.Project to be computed.
	Project Topic = iota
	// Result carries a computed snapshot.
	Result
)

func (t Topic) String() string {
	switch t {
	case Project:
		return "project"
	case Result:
		return "result"
	}
	return "unknown"
}

// ErrClosed is returned when subscribing to a closed publisher.
var ErrClosed = errors.New("publisher closed")

// Publisher is an interface for objects that allow subscription to their events
type Publisher interface {
	Subscribe(uuid.UUID, Topic) (<-chan Msg, error)
	Unsubscribe(uuid.UUID)
}

// Msg is a payload tagged with its sender and topic.
type Msg struct {
	sender  uuid.UUID
	topic   Topic
	payload interface{}
}

// New is the Msg factory function
func New(sender uuid.UUID, topic Topic, payload interface{}) Msg {
	return Msg{sender, topic, payload}
}

// PID returns the sender's PID
func (v Msg) PID() uuid.UUID {
	return v.sender
}

// Topic returns the message topic
func (v Msg) Topic() Topic {
	return v.topic
}

// Payload returns the message data
func (v Msg) Payload() interface{} {
	return v.payload
}

// InboxSize is the buffer of every subscriber channel.
const InboxSize = 50

// PubSub fans published messages out to the subscribers of a topic.
// A subscriber whose inbox is full misses the message.
type PubSub struct {
	pid    uuid.UUID
	mux    *sync.RWMutex
	subs   map[Topic]map[uuid.UUID]chan Msg
	closed bool
}

// NewPublisher returns a PubSub that stamps messages with pid.
func NewPublisher(pid uuid.UUID) *PubSub {
	return &PubSub{
		pid:  pid,
		mux:  &sync.RWMutex{},
		subs: make(map[Topic]map[uuid.UUID]chan Msg),
	}
}

// PID is an accessor for the publisher's process id
func (p *PubSub) PID() uuid.UUID {
	return p.pid
}

// Subscribe returns a channel on which the subscriber receives every message
// published on topic. Subscribing twice to a topic returns the same channel.
func (p *PubSub) Subscribe(pid uuid.UUID, topic Topic) (<-chan Msg, error) {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return nil, ErrClosed
	}
	if _, ok := p.subs[topic]; !ok {
		p.subs[topic] = make(map[uuid.UUID]chan Msg)
	}
	if ch, ok := p.subs[topic][pid]; ok {
		return ch, nil
	}
	ch := make(chan Msg, InboxSize)
	p.subs[topic][pid] = ch
	return ch, nil
}

// Unsubscribe removes pid from every topic and closes its channels.
func (p *PubSub) Unsubscribe(pid uuid.UUID) {
	p.mux.Lock()
	defer p.mux.Unlock()
	for _, subs := range p.subs {
		if ch, ok := subs[pid]; ok {
			close(ch)
			delete(subs, pid)
		}
	}
}

// Publish sends payload to the subscribers of topic.
func (p *PubSub) Publish(topic Topic, payload interface{}) {
	p.mux.RLock()
	defer p.mux.RUnlock()
	if p.closed {
		return
	}
	m := New(p.pid, topic, payload)
	for pid, ch := range p.subs[topic] {
		select {
		case ch <- m:
		default:
			log.Printf("[PubSub] %v inbox full; %v message dropped", pid, topic)
		}
	}
}

// Close unsubscribes everyone. Later publishes are ignored.
func (p *PubSub) Close() {
	p.mux.Lock()
	defer p.mux.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for _, subs := range p.subs {
		for pid, ch := range subs {
			close(ch)
			delete(subs, pid)
		}
	}
}
