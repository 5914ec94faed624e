/*
service.go The process that owns the power-flow engine. Every computation is
wrapped in a Snapshot, retained in memory and published on the msg.Result topic
for the storage and streaming sinks.
*/

package service

import (
	"context"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"github.com/ohowland/pdn_core/internal/pkg/summary"
)

// MaxSnapshots bounds the number of snapshots retained for lookup by PID.
const MaxSnapshots = 256

// Snapshot is one computed scenario of a project together with its summary.
type Snapshot struct {
	PID         uuid.UUID         `json:"pid"`
	ProjectID   string            `json:"projectId"`
	ProjectName string            `json:"projectName"`
	Scenario    project.Scenario  `json:"scenario"`
	Result      *powerflow.Result `json:"result"`
	Summary     []summary.Entry   `json:"summary"`
}

// Engine computes projects and distributes the snapshots.
type Engine struct {
	pid       uuid.UUID
	engine    *powerflow.Engine
	publisher *msg.PubSub
	inbox     <-chan msg.Msg

	mux    *sync.RWMutex
	byPID  map[uuid.UUID]Snapshot
	order  []uuid.UUID
	latest map[string]Snapshot
}

// New returns a service around a powerflow engine configured with cfg.
func New(cfg powerflow.Config) (*Engine, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	publisher := msg.NewPublisher(pid)

	inbox, err := publisher.Subscribe(pid, msg.Project)
	if err != nil {
		return nil, err
	}

	return &Engine{
		pid:       pid,
		engine:    powerflow.New(cfg),
		publisher: publisher,
		inbox:     inbox,
		mux:       &sync.RWMutex{},
		byPID:     make(map[uuid.UUID]Snapshot),
		latest:    make(map[string]Snapshot),
	}, nil
}

// PID is an accessor for the service's process id
func (e *Engine) PID() uuid.UUID {
	return e.pid
}

// Powerflow is an accessor for the underlying engine.
func (e *Engine) Powerflow() *powerflow.Engine {
	return e.engine
}

// Subscribe implements msg.Publisher.
func (e *Engine) Subscribe(pid uuid.UUID, topic msg.Topic) (<-chan msg.Msg, error) {
	return e.publisher.Subscribe(pid, topic)
}

// Unsubscribe implements msg.Publisher.
func (e *Engine) Unsubscribe(pid uuid.UUID) {
	e.publisher.Unsubscribe(pid)
}

// Compute evaluates p for its current scenario, retains the snapshot and publishes it.
func (e *Engine) Compute(p *project.Project) Snapshot {
	res := e.engine.Compute(p)
	snap := Snapshot{
		ProjectID:   res.ProjectID,
		ProjectName: res.ProjectName,
		Scenario:    res.Scenario,
		Result:      res,
		Summary:     summary.BuildWith(e.engine, p, res),
	}
	pid, err := uuid.NewUUID()
	if err != nil {
		pid = uuid.New()
	}
	snap.PID = pid

	e.store(snap)
	e.publisher.Publish(msg.Result, snap)
	log.Printf("[Service] %s (%s) computed: %.3f W source, %d warnings",
		key(snap), snap.Scenario, res.TotalSourcePower, res.WarningCount())
	return snap
}

// ComputeScenario evaluates p under scenario s. p itself is not modified.
func (e *Engine) ComputeScenario(p *project.Project, s project.Scenario) Snapshot {
	if p == nil || s == "" {
		return e.Compute(p)
	}
	c := p.Clone()
	c.CurrentScenario = s
	return e.Compute(c)
}

// Sweep computes every scenario configured on p.
func (e *Engine) Sweep(p *project.Project) map[project.Scenario]Snapshot {
	snaps := make(map[project.Scenario]Snapshot)
	if p == nil {
		return snaps
	}
	for _, s := range p.ScenarioList() {
		snaps[s] = e.ComputeScenario(p, s)
	}
	return snaps
}

// Submit queues p for computation by Process.
func (e *Engine) Submit(p *project.Project) {
	e.publisher.Publish(msg.Project, p)
}

// Snapshot returns a retained snapshot by PID.
func (e *Engine) Snapshot(pid uuid.UUID) (Snapshot, bool) {
	e.mux.RLock()
	defer e.mux.RUnlock()
	s, ok := e.byPID[pid]
	return s, ok
}

// Latest returns the most recent snapshot of a project. Projects are keyed by
// id; a project without an id is keyed by name.
func (e *Engine) Latest(projectID string) (Snapshot, bool) {
	e.mux.RLock()
	defer e.mux.RUnlock()
	s, ok := e.latest[projectID]
	return s, ok
}

func (e *Engine) store(s Snapshot) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.byPID[s.PID] = s
	e.order = append(e.order, s.PID)
	for len(e.order) > MaxSnapshots {
		delete(e.byPID, e.order[0])
		e.order = e.order[1:]
	}
	e.latest[key(s)] = s
}

func key(s Snapshot) string {
	switch {
	case s.ProjectID != "":
		return s.ProjectID
	case s.ProjectName != "":
		return s.ProjectName
	}
	return "project"
}

// Process computes submitted projects until ctx is done or the service is closed.
func (e *Engine) Process(ctx context.Context) error {
	log.Println("[Service] Process Started")
	defer log.Println("[Service] Process Shutdown")
	for {
		select {
		case m, ok := <-e.inbox:
			if !ok {
				return nil
			}
			p, ok := m.Payload().(*project.Project)
			if !ok {
				log.Printf("[Service] unexpected %v payload %T", m.Topic(), m.Payload())
				continue
			}
			e.Compute(p)
		case <-ctx.Done():
			return nil
		}
	}
}

// Close stops Process and releases every subscriber.
func (e *Engine) Close() {
	e.publisher.Close()
}
