package mqtt

import (
	"testing"

	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/project"
	"github.com/ohowland/pdn_core/internal/pkg/service"
	"gotest.tools/v3/assert"
)

func TestTopic(t *testing.T) {
	assert.Equal(t, Topic("pdn", service.Snapshot{ProjectID: "rack-01", Scenario: project.Idle}), "pdn/rack-01/Idle/result")
	assert.Equal(t, Topic("site/a", service.Snapshot{ProjectName: "row#3/+"}), "site/a/row_3__/project/result")
}

func TestNewSubscribesToResults(t *testing.T) {
	e, err := service.New(powerflow.Config{})
	assert.NilError(t, err)
	defer e.Close()

	h, err := New(Config{Broker: "tcp://localhost:1883"}, e)
	assert.NilError(t, err)
	assert.Equal(t, h.config.Prefix, "pdn")

	e.Compute(&project.Project{ID: "x", Nodes: []project.Node{}, Edges: []project.Edge{}})
	m := <-h.inbox
	assert.Equal(t, m.Topic(), msg.Result)
}
