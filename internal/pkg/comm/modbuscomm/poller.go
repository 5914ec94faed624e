package modbuscomm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"time"

	"github.com/goburrow/modbus"
	"go.uber.org/multierr"
)

var errRegisterNotFound = errors.New("register name not found in register array")

// Poller reads registers from a Modbus TCP target
type Poller struct {
	handler  *modbus.TCPClientHandler
	pollRate int
}

// PollerConfig is the configuration format for Poller
type PollerConfig struct {
	IPAddr       string `json:"IPAddr"`
	Port         string `json:"Port"`
	SlaveID      byte   `json:"SlaveID"`
	Timeout      int    `json:"Timeout"`
	PollRate     int    `json:"PollRate"`
	EnableLogger bool   `json:"EnableLogger"`
}

// NewPoller is a factory for the Poller struct
func NewPoller(cfg PollerConfig) Poller {
	handler := modbus.NewTCPClientHandler(cfg.IPAddr + ":" + cfg.Port)
	handler.Timeout = time.Millisecond * time.Duration(cfg.Timeout)
	handler.SlaveId = cfg.SlaveID

	if cfg.EnableLogger {
		handler.Logger = log.New(os.Stderr, "modbus: ", log.LstdFlags)
	}

	return Poller{
		handler:  handler,
		pollRate: cfg.PollRate,
	}
}

// Interval is the configured poll period, one second when unset.
func (m Poller) Interval() time.Duration {
	if m.pollRate <= 0 {
		return time.Second
	}
	return time.Millisecond * time.Duration(m.pollRate)
}

// Read returns the scaled value of every register that could be read. Failed
// registers are left out of the map and reported together in the error.
func (m Poller) Read(registers []Register) (map[string]float64, error) {
	if err := m.handler.Connect(); err != nil {
		return nil, err
	}
	defer m.handler.Close()

	client := modbus.NewClient(m.handler)
	readValues := make(map[string]float64)
	var err error
	for _, register := range registers {
		var resp []byte
		var readErr error
		switch register.FunctionCode {
		case ReadInput:
			resp, readErr = client.ReadInputRegisters(register.Address, sizeOf(register.DataType))
		default:
			resp, readErr = client.ReadHoldingRegisters(register.Address, sizeOf(register.DataType))
		}
		if readErr != nil {
			err = multierr.Append(err, fmt.Errorf("read %s at %d: %w", register.Name, register.Address, readErr))
			continue
		}
		readValues[register.Name] = decode(resp, register) * register.scale()
	}
	return readValues, err
}

// Write encodes and writes every named value.
func (m Poller) Write(registers []Register, writeValues map[string]float64) error {
	if err := m.handler.Connect(); err != nil {
		return err
	}
	defer m.handler.Close()

	client := modbus.NewClient(m.handler)
	var err error
	for name, val := range writeValues {
		i, findErr := findIndexByName(registers, name)
		if findErr != nil {
			err = multierr.Append(err, fmt.Errorf("%s: %w", name, findErr))
			continue
		}
		valBytes := encode(val/registers[i].scale(), registers[i])
		if _, writeErr := client.WriteMultipleRegisters(registers[i].Address, sizeOf(registers[i].DataType), valBytes); writeErr != nil {
			err = multierr.Append(err, fmt.Errorf("write %s: %w", name, writeErr))
		}
	}
	return err
}

func findIndexByName(registers []Register, name string) (int, error) {
	for i := range registers {
		if registers[i].Name == name {
			return i, nil
		}
	}
	return -1, errRegisterNotFound
}

// encode packs val into the register's words.
func encode(val float64, register Register) []byte {
	var bits uint64
	switch register.DataType {
	case u16, u32, u64:
		bits = uint64(val)
	case i16:
		bits = uint64(uint16(int16(val)))
	case i32:
		bits = uint64(uint32(int32(val)))
	case i64:
		bits = uint64(int64(val))
	case f32:
		bits = uint64(math.Float32bits(float32(val)))
	case f64:
		bits = math.Float64bits(val)
	}
	words := sizeOf(register.DataType)
	buf := make([]byte, 2*words)
	putWords(buf, words, getByteOrder(register.Endianness), bits)
	return buf
}

// decode unpacks the register's words, NaN when the type is unknown or the
// response is short.
func decode(buf []byte, register Register) float64 {
	words := sizeOf(register.DataType)
	if words == 0 || len(buf) < 2*int(words) {
		return math.NaN()
	}
	bits := getWords(buf, words, getByteOrder(register.Endianness))
	switch register.DataType {
	case i16:
		return float64(int16(bits))
	case i32:
		return float64(int32(bits))
	case i64:
		return float64(int64(bits))
	case f32:
		return float64(math.Float32frombits(uint32(bits)))
	case f64:
		return math.Float64frombits(bits)
	}
	return float64(bits)
}

func getWords(buf []byte, words uint16, order binary.ByteOrder) uint64 {
	switch words {
	case 1:
		return uint64(order.Uint16(buf))
	case 2:
		return uint64(order.Uint32(buf))
	}
	return order.Uint64(buf)
}

func putWords(buf []byte, words uint16, order binary.ByteOrder, bits uint64) {
	switch words {
	case 1:
		order.PutUint16(buf, uint16(bits))
	case 2:
		order.PutUint32(buf, uint32(bits))
	case 4:
		order.PutUint64(buf, bits)
	}
}

// getByteOrder defaults to big endian, the Modbus wire order.
func getByteOrder(e Endian) binary.ByteOrder {
	if e == littleEndian {
		return binary.LittleEndian
	}
	return binary.BigEndian
}

// sizeOf returns the number of 16-bit registers a value of type t spans.
func sizeOf(t DataType) uint16 {
	switch t {
	case u16, i16:
		return 1
	case u32, i32, f32:
		return 2
	case u64, i64, f64:
		return 4
	}
	return 0
}
