package modbuscomm

import (
	"context"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/ohowland/pdn_core/internal/pkg/project"
	"golang.org/x/exp/slices"
)

// ApplyMeasurements returns a copy of p whose Loads carry the measured
// currents as their typical current. Readings are keyed by load id; loads of
// embedded projects are addressed through their subsystem ids, "fan/motor".
// p is not modified. Readings that cannot be applied are reported as issues.
func ApplyMeasurements(p *project.Project, readings map[string]float64) (*project.Project, []string) {
	if p == nil {
		return nil, []string{"project missing; measurements not applied"}
	}
	c := p.Clone()
	issues := []string{}
	cloned := map[*project.Subsystem]bool{}

	for _, name := range sortedNames(readings) {
		value := readings[name]
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			issues = append(issues, fmt.Sprintf("register %q: invalid reading %v", name, value))
			continue
		}
		load, err := findLoad(c, strings.Split(name, "/"), cloned)
		if err != nil {
			issues = append(issues, fmt.Sprintf("register %q: %v", name, err))
			continue
		}
		load.Ityp = value
	}
	return c, issues
}

// findLoad resolves path within p. Embedded projects along the way are
// cloned once, so the caller's tree is never written.
func findLoad(p *project.Project, path []string, cloned map[*project.Subsystem]bool) (*project.Load, error) {
	n, ok := p.Node(path[0])
	if !ok {
		return nil, fmt.Errorf("no node %q", path[0])
	}
	if len(path) == 1 {
		load, ok := n.(*project.Load)
		if !ok {
			return nil, fmt.Errorf("node %q is a %s, not a Load", path[0], n.Kind())
		}
		return load, nil
	}
	sub, ok := n.(*project.Subsystem)
	if !ok || sub.Project == nil {
		return nil, fmt.Errorf("node %q has no embedded project", path[0])
	}
	if !cloned[sub] {
		sub.Project = sub.Project.Clone()
		cloned[sub] = true
	}
	return findLoad(sub.Project, path[1:], cloned)
}

func sortedNames(readings map[string]float64) []string {
	names := make([]string, 0, len(readings))
	for name := range readings {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Monitor reads registers from comm every interval and hands each result to
// fn until ctx is done. A partial read is delivered together with its error.
func Monitor(ctx context.Context, comm ModbusComm, registers []Register, interval time.Duration, fn func(map[string]float64, error)) {
	if interval <= 0 {
		interval = time.Second
	}
	readable := FilterRegisters(registers, ro)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		readings, err := comm.Read(readable)
		if err != nil {
			log.Println("[Modbus]", err)
		}
		fn(readings, err)

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}
