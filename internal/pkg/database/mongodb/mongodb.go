package mongodb

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/service"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Handler upserts every published snapshot into a collection, one document per project and scenario.
type Handler struct {
	inbox     <-chan msg.Msg
	pid       uuid.UUID
	config    Config
	publisher msg.Publisher
}

// Config is the MongoDB sink configuration.
type Config struct {
	URI        string `json:"URI"`
	Database   string `json:"Database"`
	Collection string `json:"Collection"`
	Timeout    int    `json:"Timeout"`
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return 10 * time.Second
	}
	return time.Millisecond * time.Duration(c.Timeout)
}

func (c Config) collection() string {
	if c.Collection == "" {
		return "snapshots"
	}
	return c.Collection
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

// PID is an accessor for the handler's process id
func (h *Handler) PID() uuid.UUID {
	return h.pid
}

func filter(s service.Snapshot) bson.M {
	return bson.M{"projectId": s.ProjectID, "scenario": string(s.Scenario)}
}

// snapshotToBSON builds the upsert document. The snapshot's JSON encoding is
// reused so stored documents match the webservice responses.
func snapshotToBSON(s service.Snapshot) (bson.D, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	doc := bson.M{}
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("convert snapshot %v: %w", s.PID, err)
	}
	doc["updated"] = time.Now().UTC()
	return bson.D{
		{Key: "$set", Value: doc},
	}, nil
}

// Process writes snapshots until ctx is done or the publisher closes the inbox.
func (h *Handler) Process(ctx context.Context) error {
	client, err := mongo.NewClient(options.Client().ApplyURI(h.config.URI))
	if err != nil {
		return fmt.Errorf("mongo client: %w", err)
	}

	connectCtx, cancel := context.WithTimeout(ctx, h.config.timeout())
	defer cancel()
	if err := client.Connect(connectCtx); err != nil {
		return fmt.Errorf("mongo connect %s: %w", h.config.URI, err)
	}
	defer client.Disconnect(context.Background())
	defer h.publisher.Unsubscribe(h.pid)

	coll := client.Database(h.config.Database).Collection(h.config.collection())
	log.Println("[Mongo] Process Started:", h.config.Database+"."+h.config.collection())
	defer log.Println("[Mongo] Process Shutdown")

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
			if err := h.upsert(ctx, coll, snap); err != nil {
				log.Println("[Mongo]", err)
			}
		case <-ctx.Done():
			return nil
		}
	}
}

func (h *Handler) upsert(ctx context.Context, coll *mongo.Collection, s service.Snapshot) error {
	update, err := snapshotToBSON(s)
	if err != nil {
		return err
	}
	writeCtx, cancel := context.WithTimeout(ctx, h.config.timeout())
	defer cancel()

	opts := options.Update().SetUpsert(true)
	_, err = coll.UpdateOne(writeCtx, filter(s), update, opts)
	if err != nil {
		return fmt.Errorf("upsert %s (%s): %w", s.ProjectID, s.Scenario, err)
	}
	return nil
}
