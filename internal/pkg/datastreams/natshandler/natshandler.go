package natshandler

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/service"

	nats "github.com/nats-io/nats.go"
)

// Handler forwards published snapshots to a NATS server.
type Handler struct {
	inbox     <-chan msg.Msg
	pid       uuid.UUID
	config    Config
	publisher msg.Publisher
}

// Config is the NATS stream configuration.
type Config struct {
	Server string `json:"Server"`
	Prefix string `json:"Prefix"`
}

func (c Config) server() string {
	if c.Server == "" {
		return nats.DefaultURL
	}
	return c.Server
}

func (c Config) prefix() string {
	if c.Prefix == "" {
		return "pdn"
	}
	return c.Prefix
}

// PID is an accessor for the handler's process id
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

// New subscribes a handler to the result topic of system.
func New(cfg Config, system msg.Publisher) (*Handler, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	inbox, err := system.Subscribe(pid, msg.Result)
	if err != nil {
		return nil, err
	}
	return &Handler{
		inbox:     inbox,
		pid:       pid,
		config:    cfg,
		publisher: system,
	}, nil
}

// Subject returns the subject a snapshot is published on: <prefix>.<project>.<scenario>.result
func Subject(prefix string, s service.Snapshot) string {
	name := s.ProjectID
	if name == "" {
		name = s.ProjectName
	}
	return strings.Join([]string{prefix, token(name), token(string(s.Scenario)), "result"}, ".")
}

// token makes s usable as a single subject token.
func token(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
	if s == "" {
		return "project"
	}
	return s
}

// Process publishes snapshots until ctx is done or the publisher closes the inbox.
func (h *Handler) Process(ctx context.Context) error {
	nc, err := nats.Connect(h.config.server(), nats.Name("pdn-"+h.pid.String()))
	if err != nil {
		return fmt.Errorf("nats connect %s: %w", h.config.server(), err)
	}
	defer nc.Close()
	defer h.publisher.Unsubscribe(h.pid)

	log.Println("[NATS client] Process Started:", h.config.server())
	defer log.Println("[NATS client] Process Shutdown")

	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				return nil
			}
			snap, ok := m.Payload().(service.Snapshot)
			if !ok {
				continue
			}
			data, err := json.Marshal(snap)
			if err != nil {
				log.Printf("[NATS client] encode %v: %v", snap.PID, err)
				continue
			}
			if err = nc.Publish(Subject(h.config.prefix(), snap), data); err != nil {
				log.Printf("[NATS client] unable to publish to nats server: %v", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
