package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/service"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"
)

// DefaultTopic receives every snapshot when Config.Topic is empty.
const DefaultTopic = "pdn.results"

// Handler produces published snapshots to a Kafka topic.
type Handler struct {
	inbox     <-chan msg.Msg
	pid       uuid.UUID
	config    Config
	publisher msg.Publisher
}

// Config is the Kafka stream configuration. The topic is created on start
// when it does not exist.
type Config struct {
	Brokers           []string `json:"Brokers"`
	Topic             string   `json:"Topic"`
	Partitions        int32    `json:"Partitions"`
	ReplicationFactor int16    `json:"ReplicationFactor"`
}

func (c Config) topic() string {
	if c.Topic == "" {
		return DefaultTopic
	}
	return c.Topic
}

func (c Config) brokers() []string {
	if len(c.Brokers) == 0 {
		return []string{"localhost:9092"}
	}
	return c.Brokers
}

func (c Config) partitions() int32 {
	if c.Partitions <= 0 {
		return 1
	}
	return c.Partitions
}

func (c Config) replicationFactor() int16 {
	if c.ReplicationFactor <= 0 {
		return 1
	}
	return c.ReplicationFactor
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

// Key partitions records by project and scenario so that the results of one
// project scenario stay ordered.
func Key(s service.Snapshot) string {
	name := s.ProjectID
	if name == "" {
		name = s.ProjectName
	}
	if name == "" {
		name = "project"
	}
	return strings.Join([]string{name, string(s.Scenario)}, "/")
}

// Record encodes a snapshot as a Kafka record on topic.
func Record(topic string, s service.Snapshot) (*kgo.Record, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &kgo.Record{
		Topic: topic,
		Key:   []byte(Key(s)),
		Value: data,
		Headers: []kgo.RecordHeader{
			{Key: "pid", Value: []byte(s.PID.String())},
			{Key: "scenario", Value: []byte(s.Scenario)},
		},
	}, nil
}

// Process produces snapshots until ctx is done or the publisher closes the inbox.
func (h *Handler) Process(ctx context.Context) error {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(h.config.brokers()...),
		kgo.ClientID("pdn-"+h.pid.String()),
	)
	if err != nil {
		return fmt.Errorf("kafka client %v: %w", h.config.brokers(), err)
	}
	defer client.Close()
	defer h.publisher.Unsubscribe(h.pid)

	// An existing topic is reported per topic in the response, not as err.
	admin := kadm.NewClient(client)
	if _, err := admin.CreateTopics(ctx, h.config.partitions(), h.config.replicationFactor(), nil, h.config.topic()); err != nil {
		log.Printf("[Kafka client] create topic %s: %v", h.config.topic(), err)
	}

	log.Println("[Kafka client] Process Started:", strings.Join(h.config.brokers(), ","))
	defer log.Println("[Kafka client] Process Shutdown")

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
			rec, err := Record(h.config.topic(), snap)
			if err != nil {
				log.Printf("[Kafka client] encode %v: %v", snap.PID, err)
				continue
			}
			if err := client.ProduceSync(ctx, rec).FirstErr(); err != nil {
				log.Printf("[Kafka client] unable to produce to %s: %v", h.config.topic(), err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}
