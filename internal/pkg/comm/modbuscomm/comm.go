package modbuscomm

// ModbusComm reads and writes named registers of one Modbus target.
type ModbusComm interface {
	Read([]Register) (map[string]float64, error)
	Write([]Register, map[string]float64) error
}

// DataType is the wire encoding of a register value.
type DataType string

const (
	u16 DataType = "u16"
	u32 DataType = "u32"
	u64 DataType = "u64"
	i16 DataType = "i16"
	i32 DataType = "i32"
	i64 DataType = "i64"
	f32 DataType = "f32"
	f64 DataType = "f64"
)

// Access limits what a register may be used for. Monitor only reads
// read-only and read-write registers.
type Access string

const (
	ro Access = "read-only"
	wo Access = "write-only"
	rw Access = "read-write"
)

// Endian is the word order of multi-register values.
type Endian string

const (
	littleEndian Endian = "little"
	bigEndian    Endian = "big"
)

// Function codes used for reads. Anything else reads holding registers.
const (
	ReadHolding = 3
	ReadInput   = 4
)

// Register maps one metered quantity. Name is the id of the Load the reading
// belongs to; loads inside subsystems are addressed as "subsystem/load".
// Scale converts the raw register value to amperes, 1 when unset.
type Register struct {
	Name         string   `json:"Name"`
	Address      uint16   `json:"Address"`
	DataType     DataType `json:"DataType"`
	FunctionCode int      `json:"FunctionCode"`
	AccessType   Access   `json:"Access"`
	Endianness   Endian   `json:"Endianness"`
	Scale        float64  `json:"Scale,omitempty"`
}

func (r Register) scale() float64 {
	if r.Scale == 0 {
		return 1
	}
	return r.Scale
}

// FilterRegisters keeps the registers usable with access a. Read-write
// registers match every access.
func FilterRegisters(registers []Register, a Access) []Register {
	var usable []Register
	for _, r := range registers {
		switch r.AccessType {
		case a, rw:
			usable = append(usable, r)
		}
	}
	return usable
}
