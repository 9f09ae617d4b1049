package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/tanpawarit/agent-teams/agent/agents/chat"
	contractx "github.com/tanpawarit/agent-teams/agent/contract"
	"github.com/tanpawarit/agent-teams/agent/factory"
	llmx "github.com/tanpawarit/agent-teams/agent/llm"
	sessionx "github.com/tanpawarit/agent-teams/agent/session"
	"github.com/tanpawarit/agent-teams/agent/state"
	"github.com/tanpawarit/agent-teams/agent/team"
	"github.com/tanpawarit/agent-teams/api"
	mcpx "github.com/tanpawarit/agent-teams/api/mcp"
	"github.com/tanpawarit/agent-teams/api/ws"
	configx "github.com/tanpawarit/agent-teams/pkg/config"
	_ "github.com/tanpawarit/agent-teams/pkg/logger/autoload"
	qstashx "github.com/tanpawarit/agent-teams/pkg/qstash"
)

const version = "0.1.0"

type AppConfig struct {
	Port int `envconfig:"PORT" default:"8080"`
	// TeamConfigs lists team files; without any, Teams picks built-in layouts.
	TeamConfigs    []string      `envconfig:"TEAM_CONFIGS"`
	Teams          []string      `envconfig:"TEAMS" default:"bakery,shopify_store,repository"`
	StateBackend   string        `envconfig:"STATE_BACKEND" default:"file"`
	StateDir       string        `envconfig:"STATE_DIR" default:"./data/state"`
	SessionBackend string        `envconfig:"SESSION_BACKEND" default:"memory"`
	SessionTTL     time.Duration `envconfig:"SESSION_TTL" default:"24h"`
	ConflictPolicy string        `envconfig:"CONFLICT_POLICY" default:"last_wins"`
	PublishResults bool          `envconfig:"PUBLISH_RESULTS" default:"false"`
	ResultsTopic   string        `envconfig:"RESULTS_TOPIC" default:"goal-results"`
	// PublicURL enables signed QStash callbacks when set.
	PublicURL string `envconfig:"PUBLIC_URL"`
}

func main() {
	appCfg := configx.MustNew[AppConfig]("")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *appCfg); err != nil {
		log.Fatal().Err(err).Msg("agent-teams stopped")
	}
}

func run(ctx context.Context, appCfg AppConfig) error {
	policy, err := team.ParseConflictPolicy(appCfg.ConflictPolicy)
	if err != nil {
		return err
	}

	llmCfg := configx.MustNew[llmx.Config]("OPENROUTER")
	var models llmx.Source
	if llmCfg.Enabled() {
		models = llmx.NewProvider(*llmCfg)
	} else {
		log.Warn().Msg("openrouter is not configured, model-backed features are disabled")
	}

	sessions, closeSessions, err := openSessions(ctx, appCfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	store, closeStore, err := openState(ctx, appCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	hub := ws.NewHub(log.Logger)
	observers := []team.Observer{hub}

	var qstash *qstashx.Client
	if appCfg.PublishResults || appCfg.PublicURL != "" {
		qstash = qstashx.MustNew(*configx.MustNew[qstashx.Config]("QSTASH"))
	}
	var publisher *team.ResultPublisher
	if appCfg.PublishResults {
		publisher = team.NewResultPublisher(qstash, appCfg.ResultsTopic, log.Logger)
		observers = append(observers, publisher)
	}

	teams, err := buildTeams(appCfg, factory.Deps{
		Models:         models,
		Sessions:       sessions,
		Observers:      observers,
		ConflictPolicy: policy,
	})
	if err != nil {
		return err
	}

	dir := team.NewDirectory()
	for _, t := range teams {
		if store != nil {
			if err := t.Recall(ctx, store); err != nil {
				log.Warn().Err(err).Str("team", t.Leader.Name()).Msg("recall agent state")
			}
		}
		if err := t.Leader.Initialize(ctx); err != nil {
			log.Warn().Err(err).Str("team", t.Leader.Name()).Msg("some members failed to initialize")
		}
		dir.Add(t.Leader)
	}

	opts := []api.Option{
		api.WithHub(hub),
		api.WithMCP(mcpx.New(dir, version).Handler()),
		api.WithChat(chatAgent(teams, models, sessions)),
	}
	if appCfg.PublicURL != "" {
		opts = append(opts, api.WithCallbacks(qstash, appCfg.PublicURL))
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", appCfg.Port),
		Handler:           api.New(dir, opts...).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", appCfg.Port).Int("teams", len(teams)).Msg("agent-teams listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}

	for _, t := range teams {
		if store != nil {
			if err := t.Persist(shutdownCtx, store); err != nil {
				log.Error().Err(err).Str("team", t.Leader.Name()).Msg("persist agent state")
			}
		}
		if err := t.Leader.Cleanup(shutdownCtx); err != nil {
			log.Warn().Err(err).Str("team", t.Leader.Name()).Msg("cleanup")
		}
	}
	if publisher != nil {
		publisher.Wait()
	}
	log.Info().Msg("agent-teams stopped")
	return nil
}

func buildTeams(appCfg AppConfig, deps factory.Deps) ([]*factory.Team, error) {
	var cfgs []factory.TeamConfig
	for _, path := range appCfg.TeamConfigs {
		if path = strings.TrimSpace(path); path == "" {
			continue
		}
		cfg, err := factory.Load(path)
		if err != nil {
			return nil, err
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) == 0 {
		for _, typ := range appCfg.Teams {
			cfg, err := factory.Default(strings.TrimSpace(typ))
			if err != nil {
				return nil, err
			}
			cfgs = append(cfgs, cfg)
		}
	}

	teams := make([]*factory.Team, 0, len(cfgs))
	for _, cfg := range cfgs {
		t, err := factory.Build(cfg, deps)
		if err != nil {
			return nil, fmt.Errorf("build team %s: %w", cfg.TeamType, err)
		}
		teams = append(teams, t)
	}
	return teams, nil
}

func openSessions(ctx context.Context, appCfg AppConfig) (sessionx.Store, func(), error) {
	switch strings.ToLower(appCfg.SessionBackend) {
	case "", "memory":
		mem := sessionx.NewMemoryStore(appCfg.SessionTTL)
		go mem.Janitor(ctx, time.Minute)
		return mem, func() {}, nil
	case "redis":
		cfg := configx.MustNew[sessionx.RedisConfig]("REDIS")
		if cfg.TTL == 0 {
			cfg.TTL = appCfg.SessionTTL
		}
		rdb, err := sessionx.NewRedisClient(cfg.URL)
		if err != nil {
			return nil, nil, err
		}
		store, err := sessionx.NewRedisStore(rdb, *cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown SESSION_BACKEND %q", appCfg.SessionBackend)
	}
}

func openState(ctx context.Context, appCfg AppConfig) (contractx.SnapshotStore, func(), error) {
	switch strings.ToLower(appCfg.StateBackend) {
	case "none":
		return nil, func() {}, nil
	case "", "file":
		store, err := state.NewFileStore(appCfg.StateDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "upstash":
		cfg := configx.MustNew[state.UpstashConfig]("UPSTASH_REDIS")
		store, err := state.NewUpstashStore(*cfg)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	case "postgres":
		cfg := configx.MustNew[state.PostgresConfig]("POSTGRES")
		db, err := state.OpenPostgres(*cfg)
		if err != nil {
			return nil, nil, err
		}
		store := state.NewBunStore(db)
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown STATE_BACKEND %q", appCfg.StateBackend)
	}
}

// chatAgent reuses the first chat member of any team, or builds one.
func chatAgent(teams []*factory.Team, models llmx.Source, sessions sessionx.Store) api.Chatter {
	for _, t := range teams {
		for _, m := range t.Members {
			if c, ok := m.Agent.(*chat.Agent); ok {
				return c
			}
		}
	}
	provider := ""
	if models == nil {
		provider = chat.ProviderMock
	}
	return chat.New(chat.Config{Name: "api_chat", Provider: provider, Models: models, Sessions: sessions})
}
