package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"gotest.tools/v3/assert"
)

func newEngine(t *testing.T) *Engine {
	e, err := New(powerflow.Config{})
	assert.NilError(t, err)
	t.Cleanup(e.Close)
	return e
}

func board() *project.Project {
	return &project.Project{
		ID:        "board",
		Scenarios: []project.Scenario{project.Typical, project.Max},
		Nodes: []project.Node{
			&project.Source{Base: project.Base{ID: "src"}, Vnom: 12},
			&project.Converter{Base: project.Base{ID: "buck"}, VinMin: 10, VinMax: 14, Vout: 5,
				Efficiency: project.FixedEfficiency(0.9)},
			&project.Load{Base: project.Base{ID: "soc"}, Vreq: 5, Ityp: 2, Imax: 4},
		},
		Edges: []project.Edge{
			{ID: "e1", From: "src", To: "buck"},
			{ID: "e2", From: "buck", To: "soc"},
		},
	}
}

func receive(t *testing.T, ch <-chan msg.Msg) msg.Msg {
	t.Helper()
	select {
	case m := <-ch:
		return m
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
	return msg.Msg{}
}

func TestComputePublishesSnapshot(t *testing.T) {
	e := newEngine(t)
	sub := uuid.New()
	ch, err := e.Subscribe(sub, msg.Result)
	assert.NilError(t, err)

	snap := e.Compute(board())
	assert.Equal(t, snap.ProjectID, "board")
	assert.Equal(t, snap.Scenario, project.Typical)
	assert.Equal(t, snap.Result.TotalLoadPower, 10.0)
	assert.Equal(t, len(snap.Summary), 1)

	m := receive(t, ch)
	assert.Equal(t, m.PID(), e.PID())
	assert.Equal(t, m.Payload().(Snapshot).PID, snap.PID)

	got, ok := e.Snapshot(snap.PID)
	assert.Assert(t, ok)
	assert.Equal(t, got.Result, snap.Result)

	latest, ok := e.Latest("board")
	assert.Assert(t, ok)
	assert.Equal(t, latest.PID, snap.PID)

	_, ok = e.Snapshot(uuid.New())
	assert.Assert(t, !ok)
}

func TestLatestKeying(t *testing.T) {
	e := newEngine(t)
	named := board()
	named.Name = "Main board"
	snap := e.Compute(named)

	_, ok := e.Latest("Main board")
	assert.Assert(t, !ok)
	latest, ok := e.Latest("board")
	assert.Assert(t, ok)
	assert.Equal(t, latest.PID, snap.PID)

	anonymous := board()
	anonymous.ID = ""
	anonymous.Name = "Spare board"
	snap = e.Compute(anonymous)
	latest, ok = e.Latest("Spare board")
	assert.Assert(t, ok)
	assert.Equal(t, latest.PID, snap.PID)
}

func TestSweep(t *testing.T) {
	e := newEngine(t)
	p := board()

	snaps := e.Sweep(p)
	assert.Equal(t, len(snaps), 2)
	assert.Equal(t, snaps[project.Typical].Result.TotalLoadPower, 10.0)
	assert.Equal(t, snaps[project.Max].Result.TotalLoadPower, 20.0)
	assert.Equal(t, snaps[project.Max].Scenario, project.Max)
	assert.Equal(t, p.CurrentScenario, project.Scenario(""))

	assert.Equal(t, len(e.Sweep(nil)), 0)
}

func TestSnapshotRetentionIsBounded(t *testing.T) {
	e := newEngine(t)
	first := e.Compute(board())
	for i := 0; i < MaxSnapshots; i++ {
		e.Compute(board())
	}
	_, ok := e.Snapshot(first.PID)
	assert.Assert(t, !ok)
	assert.Equal(t, len(e.byPID), MaxSnapshots)
}

func TestProcessComputesSubmittedProjects(t *testing.T) {
	e := newEngine(t)
	ch, err := e.Subscribe(uuid.New(), msg.Result)
	assert.NilError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Process(ctx) }()

	e.Submit(board())
	snap := receive(t, ch).Payload().(Snapshot)
	assert.Equal(t, snap.ProjectID, "board")

	cancel()
	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("process did not stop")
	}
}

func TestProcessStopsOnClose(t *testing.T) {
	e, err := New(powerflow.Config{})
	assert.NilError(t, err)

	done := make(chan error, 1)
	go func() { done <- e.Process(context.Background()) }()
	e.Close()

	select {
	case err := <-done:
		assert.NilError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("process did not stop")
	}
}
