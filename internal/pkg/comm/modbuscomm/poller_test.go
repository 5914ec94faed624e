package modbuscomm

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"gotest.tools/v3/assert"
)

func TestEncode(t *testing.T) {
	cases := []struct {
		dataType DataType
		endian   Endian
		value    float64
		want     []byte
	}{
		{u64, bigEndian, 1234, []byte{0, 0, 0, 0, 0, 0, 4, 210}},
		{u64, littleEndian, 1234, []byte{210, 4, 0, 0, 0, 0, 0, 0}},
		{u32, bigEndian, 1234, []byte{0, 0, 4, 210}},
		{u32, littleEndian, 1234, []byte{210, 4, 0, 0}},
		{u16, bigEndian, 1234, []byte{4, 210}},
		{u16, littleEndian, 1234, []byte{210, 4}},
		{i16, bigEndian, -1234, []byte{251, 46}},
		{i32, bigEndian, -1234, []byte{255, 255, 251, 46}},
		{f32, bigEndian, 1.5, []byte{63, 192, 0, 0}},
		{f64, bigEndian, 1.5, []byte{63, 248, 0, 0, 0, 0, 0, 0}},
	}
	for _, c := range cases {
		reg := Register{"test", 0, c.dataType, ReadHolding, ro, c.endian, 0}
		got := encode(c.value, reg)
		t.Logf("float64: [%v] to %v %v-endian []bytes: %v", c.value, c.dataType, c.endian, got)
		assert.DeepEqual(t, got, c.want)
	}
}

func TestEncodeDecode(t *testing.T) {
	cases := []struct {
		dataType DataType
		max      float64
		signed   bool
	}{
		{u16, 65535, false},
		{u32, 4294967295, false},
		{u64, 9223372036854775807, false},
		{i16, 32767, true},
		{i32, 2147483647, true},
		{i64, 4611686018427387904, true},
	}
	for _, c := range cases {
		for _, endian := range []Endian{bigEndian, littleEndian} {
			reg := Register{"test", 0, c.dataType, ReadHolding, ro, endian, 0}
			want := math.Floor(rand.Float64() * c.max)
			if c.signed {
				want = -want
			}
			got := decode(encode(want, reg), reg)
			assert.Equal(t, got, want, "%v %v-endian", c.dataType, endian)
		}
	}
}

func TestEncodeDecodeFloat(t *testing.T) {
	for _, dataType := range []DataType{f32, f64} {
		reg := Register{"test", 0, dataType, ReadInput, ro, littleEndian, 0}
		assert.Equal(t, decode(encode(-12.25, reg), reg), -12.25)
	}
}

func TestDecodeShortOrUnknown(t *testing.T) {
	assert.Assert(t, math.IsNaN(decode([]byte{1}, Register{DataType: u16})))
	assert.Assert(t, math.IsNaN(decode([]byte{1, 2}, Register{DataType: "u8"})))
	assert.Equal(t, sizeOf("u8"), uint16(0))
}

func TestFindRegisterByName(t *testing.T) {
	registers := []Register{{Name: "asic"}, {Name: "io"}, {Name: "fan/motor"}}

	i, err := findIndexByName(registers, "fan/motor")
	assert.NilError(t, err)
	assert.Equal(t, i, 2)

	i, err = findIndexByName(registers, "missing")
	assert.Assert(t, errors.Is(err, errRegisterNotFound))
	assert.Equal(t, i, -1)
}

func TestFilterRegisters(t *testing.T) {
	registers := []Register{
		{Name: "a", AccessType: ro},
		{Name: "b", AccessType: wo},
		{Name: "c", AccessType: rw},
	}
	got := FilterRegisters(registers, ro)
	assert.Equal(t, len(got), 2)
	assert.Equal(t, got[0].Name, "a")
	assert.Equal(t, got[1].Name, "c")
}

func TestScaleAndInterval(t *testing.T) {
	assert.Equal(t, Register{}.scale(), 1.0)
	assert.Equal(t, Register{Scale: 0.001}.scale(), 0.001)

	p := NewPoller(PollerConfig{IPAddr: "127.0.0.1", Port: "502", Timeout: 100})
	assert.Equal(t, p.Interval(), time.Second)
	p = NewPoller(PollerConfig{IPAddr: "127.0.0.1", Port: "502", PollRate: 250})
	assert.Equal(t, p.Interval(), 250*time.Millisecond)
}
