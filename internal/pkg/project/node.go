package project

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrUnknownNodeType is returned when a node document carries an unrecognised type tag.
var ErrUnknownNodeType = errors.New("unknown node type")

// Kind tags the node variants.
type Kind string

const (
	KindSource              Kind = "Source"
	KindConverter           Kind = "Converter"
	KindDualOutputConverter Kind = "DualOutputConverter"
	KindLoad                Kind = "Load"
	KindBus                 Kind = "Bus"
	KindSubsystem           Kind = "Subsystem"
	KindSubsystemInput      Kind = "SubsystemInput"
	KindNote                Kind = "Note"
)

// Base holds the fields every node variant shares. Coordinates are canvas-only.
type Base struct {
	ID   string  `json:"id"`
	Name string  `json:"name,omitempty"`
	X    float64 `json:"x,omitempty"`
	Y    float64 `json:"y,omitempty"`
}

// Header returns the shared node fields.
func (b Base) Header() Base { return b }

// Label returns the display name, falling back to the id.
func (b Base) Label() string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}

// Node is one electrical element. The set of implementations is closed.
type Node interface {
	Header() Base
	Label() string
	Kind() Kind
	Clone() Node
	node()
}

// IsNil reports whether n is nil or a nil pointer to one of the node types.
func IsNil(n Node) bool {
	switch v := n.(type) {
	case nil:
		return true
	case *Source:
		return v == nil
	case *Converter:
		return v == nil
	case *DualOutputConverter:
		return v == nil
	case *Load:
		return v == nil
	case *Bus:
		return v == nil
	case *Subsystem:
		return v == nil
	case *SubsystemInput:
		return v == nil
	case *Note:
		return v == nil
	}
	return false
}

// Source is a fixed-voltage supply, optionally made of several redundant units.
type Source struct {
	Base
	Vnom       float64    `json:"V_nom"`
	Imax       float64    `json:"I_max,omitempty"`
	Pmax       float64    `json:"P_max,omitempty"`
	Redundancy Redundancy `json:"redundancy,omitempty"`
	Count      int        `json:"count,omitempty"`
}

// Redundancy is the unit redundancy scheme of a Source.
type Redundancy string

const (
	RedundancyN      Redundancy = "N"
	RedundancyNPlus1 Redundancy = "N+1"
)

// Units returns the number of installed supply units, at least one.
func (s *Source) Units() int {
	if s.Count < 1 {
		return 1
	}
	return s.Count
}

// Converter is a single-output DC/DC converter.
type Converter struct {
	Base
	VinMin     float64          `json:"Vin_min"`
	VinMax     float64          `json:"Vin_max"`
	Vout       float64          `json:"Vout"`
	IoutMax    float64          `json:"Iout_max,omitempty"`
	PoutMax    float64          `json:"Pout_max,omitempty"`
	PhaseCount int              `json:"phaseCount,omitempty"`
	Efficiency *EfficiencyModel `json:"efficiency,omitempty"`
}

// VinMid is the nominal input voltage used to derive input current.
func (c *Converter) VinMid() float64 { return vinMid(c.VinMin, c.VinMax) }

// ConverterOutput is one branch of a DualOutputConverter.
type ConverterOutput struct {
	ID         string           `json:"id"`
	Label      string           `json:"label,omitempty"`
	Vout       float64          `json:"Vout"`
	IoutMax    float64          `json:"Iout_max,omitempty"`
	PoutMax    float64          `json:"Pout_max,omitempty"`
	PhaseCount int              `json:"phaseCount,omitempty"`
	Efficiency *EfficiencyModel `json:"efficiency,omitempty"`
}

// Name returns the branch label, falling back to the id.
func (o ConverterOutput) Name() string {
	if o.Label != "" {
		return o.Label
	}
	return o.ID
}

// DualOutputConverter carries independent output branches that share one input.
type DualOutputConverter struct {
	Base
	VinMin  float64           `json:"Vin_min"`
	VinMax  float64           `json:"Vin_max"`
	Outputs []ConverterOutput `json:"outputs"`
}

// VinMid is the nominal input voltage used to derive input current.
func (c *DualOutputConverter) VinMid() float64 { return vinMid(c.VinMin, c.VinMax) }

// Output returns the branch whose id matches handle.
func (c *DualOutputConverter) Output(handle string) (ConverterOutput, bool) {
	for _, o := range c.Outputs {
		if o.ID == handle {
			return o, true
		}
	}
	return ConverterOutput{}, false
}

// Load is a constant-current sink.
type Load struct {
	Base
	Vreq     float64 `json:"Vreq"`
	Ityp     float64 `json:"I_typ"`
	Imax     float64 `json:"I_max"`
	Critical *bool   `json:"critical,omitempty"`
}

// IsCritical reports whether the load counts towards critical load power. Loads are critical unless marked otherwise.
func (l *Load) IsCritical() bool {
	return l.Critical == nil || *l.Critical
}

// Current returns the current drawn under a scenario.
func (l *Load) Current(s Scenario) float64 {
	switch s {
	case Max:
		return l.Imax
	case Idle:
		return l.Ityp * IdleFactor
	default:
		return l.Ityp
	}
}

// Bus is a resistive pass-through element (efuse, shunt, series resistor).
type Bus struct {
	Base
	RMilliohm float64 `json:"R_milliohm"`
	Imax      float64 `json:"I_max,omitempty"`
}

// Resistance returns the series resistance in ohms. Negative values count as zero.
func (b *Bus) Resistance() float64 {
	if b.RMilliohm < 0 {
		return 0
	}
	return b.RMilliohm / 1000
}

// Subsystem is a node whose behaviour is an entire embedded Project,
// optionally replicated in parallel.
type Subsystem struct {
	Base
	InputVnom            float64  `json:"inputV_nom"`
	NumParalleledSystems int      `json:"numParalleledSystems,omitempty"`
	Project              *Project `json:"project,omitempty"`
}

// Multiplier returns the number of parallel instances, at least one.
func (s *Subsystem) Multiplier() int {
	if s.NumParalleledSystems < 1 {
		return 1
	}
	return s.NumParalleledSystems
}

// SubsystemInput marks the input port of an embedded project.
type SubsystemInput struct {
	Base
	Vout float64 `json:"Vout"`
}

// Note is canvas annotation; it carries no electrical behaviour.
type Note struct {
	Base
	Text string `json:"text,omitempty"`
}

func (*Source) Kind() Kind              { return KindSource }
func (*Converter) Kind() Kind           { return KindConverter }
func (*DualOutputConverter) Kind() Kind { return KindDualOutputConverter }
func (*Load) Kind() Kind                { return KindLoad }
func (*Bus) Kind() Kind                 { return KindBus }
func (*Subsystem) Kind() Kind           { return KindSubsystem }
func (*SubsystemInput) Kind() Kind      { return KindSubsystemInput }
func (*Note) Kind() Kind                { return KindNote }

func (*Source) node()              {}
func (*Converter) node()           {}
func (*DualOutputConverter) node() {}
func (*Load) node()                {}
func (*Bus) node()                 {}
func (*Subsystem) node()           {}
func (*SubsystemInput) node()      {}
func (*Note) node()                {}

func (n *Source) Clone() Node { c := *n; return &c }

func (n *Converter) Clone() Node {
	c := *n
	c.Efficiency = n.Efficiency.Clone()
	return &c
}

func (n *DualOutputConverter) Clone() Node {
	c := *n
	if n.Outputs != nil {
		c.Outputs = make([]ConverterOutput, len(n.Outputs))
		for i, o := range n.Outputs {
			o.Efficiency = o.Efficiency.Clone()
			c.Outputs[i] = o
		}
	}
	return &c
}

func (n *Load) Clone() Node {
	c := *n
	if n.Critical != nil {
		v := *n.Critical
		c.Critical = &v
	}
	return &c
}

func (n *Bus) Clone() Node { c := *n; return &c }

// Clone shares the embedded project. Levels are copied one at a time as
// they are expanded, so a self-referencing subsystem still clones in finite time.
func (n *Subsystem) Clone() Node { c := *n; return &c }

func (n *SubsystemInput) Clone() Node { c := *n; return &c }
func (n *Note) Clone() Node           { c := *n; return &c }

// DecodeNode decodes one tagged node document.
func DecodeNode(data []byte) (Node, error) {
	head := struct {
		Type Kind `json:"type"`
	}{}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}

	var n Node
	switch head.Type {
	case KindSource:
		n = &Source{}
	case KindConverter:
		n = &Converter{}
	case KindDualOutputConverter:
		n = &DualOutputConverter{}
	case KindLoad:
		n = &Load{}
	case KindBus:
		n = &Bus{}
	case KindSubsystem:
		n = &Subsystem{}
	case KindSubsystemInput:
		n = &SubsystemInput{}
	case KindNote:
		n = &Note{}
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeType, head.Type)
	}

	if err := json.Unmarshal(data, n); err != nil {
		return nil, err
	}
	return n, nil
}

// The marshalers below add the "type" tag DecodeNode dispatches on.

func (n *Source) MarshalJSON() ([]byte, error) {
	type alias Source
	return tagged(KindSource, (*alias)(n))
}

func (n *Converter) MarshalJSON() ([]byte, error) {
	type alias Converter
	return tagged(KindConverter, (*alias)(n))
}

func (n *DualOutputConverter) MarshalJSON() ([]byte, error) {
	type alias DualOutputConverter
	return tagged(KindDualOutputConverter, (*alias)(n))
}

func (n *Load) MarshalJSON() ([]byte, error) {
	type alias Load
	return tagged(KindLoad, (*alias)(n))
}

func (n *Bus) MarshalJSON() ([]byte, error) {
	type alias Bus
	return tagged(KindBus, (*alias)(n))
}

func (n *Subsystem) MarshalJSON() ([]byte, error) {
	type alias Subsystem
	return tagged(KindSubsystem, (*alias)(n))
}

func (n *SubsystemInput) MarshalJSON() ([]byte, error) {
	type alias SubsystemInput
	return tagged(KindSubsystemInput, (*alias)(n))
}

func (n *Note) MarshalJSON() ([]byte, error) {
	type alias Note
	return tagged(KindNote, (*alias)(n))
}

func tagged(kind Kind, v interface{}) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	head, err := json.Marshal(struct {
		Type Kind `json:"type"`
	}{kind})
	if err != nil {
		return nil, err
	}
	if len(body) <= 2 {
		return head, nil
	}
	// splice {"type":..} and {...} into a single object
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func vinMid(lo, hi float64) float64 {
	switch {
	case lo > 0 && hi > 0:
		return (lo + hi) / 2
	case hi > 0:
		return hi
	default:
		return lo
	}
}
