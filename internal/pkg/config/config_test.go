package config

import (
	"errors"
	"testing"

	"github.com/ohowland/pdn_core/internal/pkg/comm/modbuscomm"
	"github.com/ohowland/pdn_core/internal/pkg/database/sqldb"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"gotest.tools/v3/assert"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, cfg.Engine.MaxDepth, powerflow.DefaultMaxDepth)
	assert.Equal(t, cfg.Webservice.Addr(), ":8080")
	assert.Assert(t, cfg.MongoDB == nil)
	assert.Assert(t, cfg.SQL == nil)
}

func TestLoad(t *testing.T) {
	cfg, err := Load("testdata/pdn.json")
	assert.NilError(t, err)

	assert.Equal(t, cfg.Engine.MaxDepth, 8)
	assert.Equal(t, cfg.Webservice.Addr(), "localhost:9090")
	assert.Equal(t, cfg.SQL.Driver, sqldb.SQLite)
	assert.Equal(t, cfg.NATS.Prefix, "lab")
	assert.Assert(t, cfg.MongoDB == nil)
	assert.Assert(t, cfg.MQTT == nil)
	assert.Equal(t, len(cfg.Kafka.Brokers), 2)
	assert.Equal(t, cfg.Kafka.Topic, "lab.results")

	assert.Equal(t, cfg.Modbus.Poller.SlaveID, byte(1))
	assert.Equal(t, cfg.Modbus.Poller.PollRate, 2000)
	assert.Equal(t, len(cfg.Modbus.Registers), 2)
	reg := cfg.Modbus.Registers[0]
	assert.Equal(t, reg.Name, "asic")
	assert.Equal(t, reg.DataType, modbuscomm.DataType("u16"))
	assert.Equal(t, reg.FunctionCode, modbuscomm.ReadInput)
	assert.Equal(t, reg.Scale, 0.01)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load("testdata/missing.json")
	assert.Assert(t, err != nil)

	_, err = Load("testdata/bad_driver.json")
	assert.Assert(t, errors.Is(err, sqldb.ErrUnknownDriver))

	_, err = Load("testdata/no_registers.json")
	assert.ErrorContains(t, err, "no registers")
}
