package app

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/yungbote/snackfleet-backend/internal/clients/redis"
	"github.com/yungbote/snackfleet-backend/internal/data/aggregates"
	"github.com/yungbote/snackfleet-backend/internal/data/repos"
	"github.com/yungbote/snackfleet-backend/internal/db"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
	"github.com/yungbote/snackfleet-backend/internal/projection"
	"github.com/yungbote/snackfleet-backend/internal/stream"
)

type Repos struct {
	Machines     repos.MachineRepo
	Snacks       repos.SnackRepo
	Events       repos.EventRepo
	Purchases    repos.PurchaseRepo
	MachineViews repos.MachineViewRepo
	SnackViews   repos.SnackViewRepo
	SnackStats   repos.SnackStatRepo
}

type App struct {
	Log    *logger.Logger
	DB     *gorm.DB
	Router *gin.Engine
	Cfg    Config
	Repos  Repos

	Bus          stream.Bus
	MachineArena *aggregates.Arena
	SnackArena   *aggregates.Arena
	Synchronizer *projection.Synchronizer
	Stats        *projection.StatsAggregator

	cancel context.CancelFunc
	group  *errgroup.Group
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	dbService, err := db.NewService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init db: %w", err)
	}
	if err := dbService.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("db automigrate: %w", err)
	}
	theDB := dbService.DB()

	bus, err := wireBus(cfg, log)
	if err != nil {
		log.Sync()
		return nil, err
	}

	reposet := wireRepos(theDB, log)
	publisher := stream.NewPublisher(bus, log)

	base := aggregates.BaseDeps{
		DB:    theDB,
		Log:   log,
		Hooks: aggregates.NewLogHooks(log),
	}
	machineArena := aggregates.NewArena(aggregates.NewMachineExecutor(aggregates.MachineDeps{
		Base:      base,
		Machines:  reposet.Machines,
		Events:    reposet.Events,
		Purchases: reposet.Purchases,
		Publisher: publisher,
	}), cfg.ArenaIdleTTL, log)
	snackArena := aggregates.NewArena(aggregates.NewSnackExecutor(aggregates.SnackDeps{
		Base:      base,
		Snacks:    reposet.Snacks,
		Events:    reposet.Events,
		Publisher: publisher,
	}), cfg.ArenaIdleTTL, log)

	snackReader := projection.NewSnackReader(reposet.Snacks)
	snackInfo := projection.NewSnackInfoCache(cfg.SnackCacheSize, projection.NewSnackLookup(snackReader))
	synchronizer := projection.NewSynchronizer(projection.SynchronizerDeps{
		Log:          log,
		Machines:     projection.NewMachineReader(reposet.Machines),
		Snacks:       snackReader,
		MachineViews: reposet.MachineViews,
		SnackViews:   reposet.SnackViews,
		SnackInfo:    snackInfo,
	})
	stats := projection.NewStatsAggregator(projection.StatsAggregatorDeps{
		Log:       log,
		Purchases: reposet.Purchases,
		Machines:  reposet.Machines,
		Stats:     reposet.SnackStats,
	})

	router := wireRouter(machineArena, snackArena, reposet)

	return &App{
		Log:          log,
		DB:           theDB,
		Router:       router,
		Cfg:          cfg,
		Repos:        reposet,
		Bus:          bus,
		MachineArena: machineArena,
		SnackArena:   snackArena,
		Synchronizer: synchronizer,
		Stats:        stats,
	}, nil
}

func wireBus(cfg Config, log *logger.Logger) (stream.Bus, error) {
	switch strings.ToLower(cfg.StreamBackend) {
	case "redis":
		bus, err := redis.NewStreamBus(log)
		if err != nil {
			return nil, fmt.Errorf("init redis stream bus: %w", err)
		}
		return bus, nil
	default:
		return stream.NewMemoryBus(), nil
	}
}

func wireRepos(theDB *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Machines:     repos.NewMachineRepo(theDB, log),
		Snacks:       repos.NewSnackRepo(theDB, log),
		Events:       repos.NewEventRepo(theDB, log),
		Purchases:    repos.NewPurchaseRepo(theDB, log),
		MachineViews: repos.NewMachineViewRepo(theDB, log),
		SnackViews:   repos.NewSnackViewRepo(theDB, log),
		SnackStats:   repos.NewSnackStatRepo(theDB, log),
	}
}

// Start launches the stream consumers. They run until Stop.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	g, ctx := errgroup.WithContext(ctx)
	a.group = g
	g.Go(func() error {
		return a.Synchronizer.Run(ctx, a.Bus, nil)
	})
	g.Go(func() error {
		return a.Stats.Run(ctx, a.Bus, nil)
	})
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Stop() {
	if a == nil || a.cancel == nil {
		return
	}
	a.cancel()
	if a.group != nil {
		_ = a.group.Wait()
	}
	a.Log.Sync()
}
