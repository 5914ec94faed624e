package project

// Interconnect describes the physical connection behind an edge.
type Interconnect struct {
	RMilliohm float64 `json:"R_milliohm"`
}

// Edge is a directed interconnect between two node ports. Handles select a
// port when a node exposes more than one.
type Edge struct {
	ID           string        `json:"id"`
	From         string        `json:"from"`
	To           string        `json:"to"`
	FromHandle   string        `json:"fromHandle,omitempty"`
	ToHandle     string        `json:"toHandle,omitempty"`
	Interconnect *Interconnect `json:"interconnect,omitempty"`
}

// Resistance returns the interconnect resistance in ohms, zero when unset.
func (e Edge) Resistance() float64 {
	if e.Interconnect == nil || e.Interconnect.RMilliohm < 0 {
		return 0
	}
	return e.Interconnect.RMilliohm / 1000
}

// Clone returns a deep copy of the edge.
func (e Edge) Clone() Edge {
	if e.Interconnect != nil {
		ic := *e.Interconnect
		e.Interconnect = &ic
	}
	return e
}
