package sqldb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/ohowland/pdn_core/internal/pkg/msg"
	"github.com/ohowland/pdn_core/internal/pkg/service"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

// Supported drivers.
const (
	MySQL    = "mysql"
	Postgres = "postgres"
	SQLite   = "sqlite3"
)

var (
	ErrUnknownDriver = errors.New("unknown sql driver")
	ErrNotFound      = errors.New("snapshot not found")
)

// Config is the SQL store configuration. DSN, when set, is passed to the
// driver as is; otherwise it is assembled from the remaining fields.
type Config struct {
	Driver   string `json:"Driver"`
	DSN      string `json:"DSN"`
	Server   string `json:"Server"`
	Port     int    `json:"Port"`
	Username string `json:"Username"`
	Password string `json:"Password"`
	Database string `json:"Database"`
}

// Check reports whether the configured driver is supported.
func (c Config) Check() error {
	switch c.driver() {
	case MySQL, Postgres, SQLite:
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
}

func (c Config) driver() string {
	if c.Driver == "" {
		return SQLite
	}
	return c.Driver
}

func (c Config) dataSource() string {
	if c.DSN != "" {
		return c.DSN
	}
	switch c.driver() {
	case MySQL:
		return fmt.Sprintf("%v:%v@tcp(%v:%v)/%v", c.Username, c.Password, c.Server, c.Port, c.Database)
	case Postgres:
		return fmt.Sprintf("host=%v port=%v user=%v password=%v dbname=%v sslmode=disable",
			c.Server, c.Port, c.Username, c.Password, c.Database)
	}
	if c.Database == "" {
		return "pdn.db"
	}
	return c.Database
}

// Store persists snapshots in a single table keyed by PID.
type Store struct {
	db     *sql.DB
	driver string
}

// Open connects to the configured database and creates the snapshot table.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	db, err := sql.Open(cfg.driver(), cfg.dataSource())
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.driver(), err)
	}
	s := &Store{db: db, driver: cfg.driver()}
	if err := s.initDB(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initDB(ctx context.Context) error {
	data := "TEXT"
	if s.driver == MySQL {
		data = "LONGTEXT"
	}
	stmt := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS snapshots (
		pid VARCHAR(36) PRIMARY KEY,
		project_id VARCHAR(255) NOT NULL,
		scenario VARCHAR(32) NOT NULL,
		created BIGINT NOT NULL,
		data %s NOT NULL
	)`, data)
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create snapshots table: %w", err)
	}
	return nil
}

// placeholder returns the n-th (1-based) bind parameter for the driver.
func (s *Store) placeholder(n int) string {
	if s.driver == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Insert stores one snapshot.
func (s *Store) Insert(ctx context.Context, snap service.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	stmt := fmt.Sprintf(`INSERT INTO snapshots (pid, project_id, scenario, created, data) VALUES (%s, %s, %s, %s, %s)`,
		s.placeholder(1), s.placeholder(2), s.placeholder(3), s.placeholder(4), s.placeholder(5))
	_, err = s.db.ExecContext(ctx, stmt,
		snap.PID.String(), snap.ProjectID, string(snap.Scenario), time.Now().Unix(), string(data))
	if err != nil {
		return fmt.Errorf("insert snapshot %v: %w", snap.PID, err)
	}
	return nil
}

// Get returns the stored JSON of a snapshot.
func (s *Store) Get(ctx context.Context, pid uuid.UUID) (json.RawMessage, error) {
	stmt := fmt.Sprintf(`SELECT data FROM snapshots WHERE pid = %s`, s.placeholder(1))
	var data string
	err := s.db.QueryRowContext(ctx, stmt, pid.String()).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %v: %w", pid, err)
	}
	return json.RawMessage(data), nil
}

// Handler inserts every published snapshot into a Store.
type Handler struct {
	inbox     <-chan msg.Msg
	pid       uuid.UUID
	store     *Store
	publisher msg.Publisher
}

// New subscribes a handler writing to store to the result topic of system.
func New(store *Store, system msg.Publisher) (*Handler, error) {
	pid, err := uuid.NewUUID()
	if err != nil {
		return nil, err
	}
	inbox, err := system.Subscribe(pid, msg.Result)
	if err != nil {
		return nil, err
	}
	return &Handler{
		inbox:     inbox,
		pid:       pid,
		store:     store,
		publisher: system,
	}, nil
}

// Process writes snapshots until ctx is done or the publisher closes the inbox.
func (h *Handler) Process(ctx context.Context) error {
	log.Println("[SQL] Process Started:", h.store.driver)
	defer log.Println("[SQL] Process Shutdown")
	defer h.publisher.Unsubscribe(h.pid)

	for {
		select {
		case m, ok := <-h.inbox:
			if !ok {
				return nil
			}
			snap, ok := m.Payload().(service.Snapshot)
			if !ok {
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := h.store.Insert(writeCtx, snap); err != nil {
				log.Println("[SQL]", err)
			}
			cancel()
		case <-ctx.Done():
			return nil
		}
	}
}
