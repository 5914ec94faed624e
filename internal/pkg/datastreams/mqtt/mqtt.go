package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/service"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// Handler forwards published snapshots to an MQTT broker as retained messages,
// so a dashboard connecting later sees the last result of every project.
type Handler struct {
	inbox     <-chan msg.Msg
	pid       uuid.UUID
	config    Config
	publisher msg.Publisher
}

// Config is the MQTT stream configuration.
type Config struct {
	Broker  string `json:"Broker"`
	Prefix  string `json:"Prefix"`
	QoS     byte   `json:"QoS"`
	Timeout int    `json:"Timeout"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 5 * time.Second
	}
	return time.Millisecond * time.Duration(c.Timeout)
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
	if cfg.Prefix == "" {
		cfg.Prefix = "pdn"
	}
	return &Handler{
		inbox:     inbox,
		pid:       pid,
		config:    cfg,
		publisher: system,
	}, nil
}

// Topic returns the topic a snapshot is published on: <prefix>/<project>/<scenario>/result
func Topic(prefix string, s service.Snapshot) string {
	name := s.ProjectID
	if name == "" {
		name = s.ProjectName
	}
	return strings.Join([]string{prefix, level(name), level(string(s.Scenario)), "result"}, "/")
}

func level(s string) string {
	s = strings.NewReplacer("/", "_", "+", "_", "#", "_").Replace(s)
	if s == "" {
		return "project"
	}
	return s
}

func wait(t mqtt.Token, d time.Duration) error {
	if !t.WaitTimeout(d) {
		return fmt.Errorf("timed out after %v", d)
	}
	return t.Error()
}

// Process publishes snapshots until ctx is done or the publisher closes the inbox.
func (h *Handler) Process(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(h.config.Broker).
		SetClientID("pdn-" + h.pid.String()).
		SetAutoReconnect(true)
	client := mqtt.NewClient(opts)
	if err := wait(client.Connect(), h.config.timeout()); err != nil {
		return fmt.Errorf("mqtt connect %s: %w", h.config.Broker, err)
	}
	defer client.Disconnect(250)
	defer h.publisher.Unsubscribe(h.pid)

	log.Println("[MQTT client] Process Started:", h.config.Broker)
	defer log.Println("[MQTT client] Process Shutdown")

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
				log.Printf("[MQTT client] encode %v: %v", snap.PID, err)
				continue
			}
			topic := Topic(h.config.Prefix, snap)
			if err := wait(client.Publish(topic, h.config.QoS, true, data), h.config.timeout()); err != nil {
				log.Printf("[MQTT client] publish %s: %v", topic, err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
