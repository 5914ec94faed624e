package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ohowland/pdn_core/internal/pkg/comm/modbuscomm"
	"github.com/ohowland/pdn_core/internal/pkg/database/mongodb"
	"github.com/ohowland/pdn_core/internal/pkg/database/sqldb"
	"github.com/ohowland/pdn_core/internal/pkg/datastreams/kafka"
	"github.com/ohowland/pdn_core/internal/pkg/datastreams/mqtt"
	"github.com/ohowland/pdn_core/internal/pkg/datastreams/natshandler"
	"github.com/ohowland/pdn_core/internal/pkg/powerflow"
	"github.com/ohowland/pdn_core/internal/pkg/webservice"
)

// Modbus configures the metering poller used for telemetry overlays.
type Modbus struct {
	Poller    modbuscomm.PollerConfig `json:"Poller"`
	Registers []modbuscomm.Register   `json:"Registers"`
}

// Config is the configuration of every pdn process. A sink section that is
// nil is not started.
type Config struct {
	Engine     powerflow.Config    `json:"Engine"`
	Webservice webservice.Config   `json:"Webservice"`
	MongoDB    *mongodb.Config     `json:"MongoDB,omitempty"`
	SQL        *sqldb.Config       `json:"SQL,omitempty"`
	NATS       *natshandler.Config `json:"NATS,omitempty"`
	MQTT       *mqtt.Config        `json:"MQTT,omitempty"`
	Kafka      *kafka.Config       `json:"Kafka,omitempty"`
	Modbus     *Modbus             `json:"Modbus,omitempty"`
}

// Default serves HTTP on :8080 with no sinks.
func Default() Config {
	return Config{
		Engine:     powerflow.Config{MaxDepth: powerflow.DefaultMaxDepth},
		Webservice: webservice.Config{Port: "8080"},
	}
}

// Load reads a JSON configuration file. Sections absent from the file keep their defaults.
func Load(path string) (Config, error) {
	jsonConfig, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	if err := json.Unmarshal(jsonConfig, &cfg); err != nil {
		return Config{}, fmt.Errorf("config %s: %w", path, err)
	}
	if cfg.SQL != nil {
		if err := cfg.SQL.Check(); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	}
	if cfg.Modbus != nil && len(cfg.Modbus.Registers) == 0 {
		return Config{}, fmt.Errorf("config %s: modbus section has no registers", path)
	}
	return cfg, nil
}
