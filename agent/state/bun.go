package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

type PostgresConfig struct {
	DSN     string        `envconfig:"DSN" required:"true"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"5s"`
}

type snapshotRow struct {
	bun.BaseModel `bun:"table:agent_snapshots,alias:s"`

	Name        string         `bun:"name,pk"`
	Initialized bool           `bun:"initialized,notnull"`
	State       map[string]any `bun:"state,type:jsonb,notnull"`
	SavedAt     time.Time      `bun:"saved_at,notnull"`
}

// BunStore keeps snapshots in a Postgres table, one row per agent.
type BunStore struct {
	db *bun.DB
}

// OpenPostgres opens a lazily connected bun handle for dsn.
func OpenPostgres(cfg PostgresConfig) (*bun.DB, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}
	opts := []pgdriver.Option{pgdriver.WithDSN(dsn)}
	if cfg.Timeout > 0 {
		opts = append(opts, pgdriver.WithTimeout(cfg.Timeout))
	}
	sqldb := sql.OpenDB(pgdriver.NewConnector(opts...))
	return bun.NewDB(sqldb, pgdialect.New()), nil
}

func NewBunStore(db *bun.DB) *BunStore {
	return &BunStore{db: db}
}

// Migrate creates the snapshot table when it is missing.
func (b *BunStore) Migrate(ctx context.Context) error {
	if _, err := b.db.NewCreateTable().Model((*snapshotRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("%w: create snapshot table: %v", contractx.ErrIO, err)
	}
	return nil
}

func (b *BunStore) Load(ctx context.Context, name string) (*contractx.Snapshot, error) {
	if err := validName(name); err != nil {
		return nil, err
	}

	var row snapshotRow
	err := b.db.NewSelect().Model(&row).Where("name = ?", strings.TrimSpace(name)).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: load snapshot: %v", contractx.ErrIO, err)
	}
	return row.snapshot(), nil
}

func (b *BunStore) Save(ctx context.Context, snap *contractx.Snapshot) error {
	if err := prepare(snap); err != nil {
		return err
	}
	if _, err := b.upsert(snap).Exec(ctx); err != nil {
		return fmt.Errorf("%w: save snapshot: %v", contractx.ErrIO, err)
	}
	return nil
}

func (b *BunStore) Delete(ctx context.Context, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	_, err := b.db.NewDelete().Model((*snapshotRow)(nil)).Where("name = ?", strings.TrimSpace(name)).Exec(ctx)
	if err != nil {
		return fmt.Errorf("%w: delete snapshot: %v", contractx.ErrIO, err)
	}
	return nil
}

func (b *BunStore) Close() error {
	return b.db.Close()
}

func (b *BunStore) upsert(snap *contractx.Snapshot) *bun.InsertQuery {
	row := rowOf(snap)
	return b.db.NewInsert().
		Model(row).
		On("CONFLICT (name) DO UPDATE").
		Set("initialized = EXCLUDED.initialized").
		Set("state = EXCLUDED.state").
		Set("saved_at = EXCLUDED.saved_at")
}

func rowOf(snap *contractx.Snapshot) *snapshotRow {
	return &snapshotRow{
		Name:        strings.TrimSpace(snap.Name),
		Initialized: snap.Initialized,
		State:       snap.State,
		SavedAt:     snap.Timestamp,
	}
}

func (r *snapshotRow) snapshot() *contractx.Snapshot {
	state := r.State
	if state == nil {
		state = map[string]any{}
	}
	return &contractx.Snapshot{
		Name:        r.Name,
		Initialized: r.Initialized,
		State:       state,
		Timestamp:   r.SavedAt.UTC(),
	}
}
