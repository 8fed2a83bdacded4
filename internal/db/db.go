package db

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/yungbote/snackfleet-backend/internal/domain"
	"github.com/yungbote/snackfleet-backend/internal/pkg/logger"
	"github.com/yungbote/snackfleet-backend/internal/utils"
)

// Service owns the gorm handle. DB_DRIVER selects postgres (default) or
// sqlite for local runs.
type Service struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewService(logg *logger.Logger) (*Service, error) {
	serviceLog := logg.With("service", "DBService")

	gormLog := gormLogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormLogger.Config{
			SlowThreshold:             1 * time.Second,
			LogLevel:                  gormLogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	cfg := &gorm.Config{Logger: gormLog}

	driver := strings.ToLower(utils.GetEnv("DB_DRIVER", "postgres", logg))
	var (
		database *gorm.DB
		err      error
	)
	switch driver {
	case "sqlite":
		path := utils.GetEnv("SQLITE_PATH", "snackfleet.db", logg)
		database, err = gorm.Open(sqlite.Open(path), cfg)
	default:
		host := utils.GetEnv("POSTGRES_HOST", "localhost", logg)
		port := utils.GetEnv("POSTGRES_PORT", "5432", logg)
		user := utils.GetEnv("POSTGRES_USER", "postgres", logg)
		password := utils.GetEnv("POSTGRES_PASSWORD", "", logg)
		name := utils.GetEnv("POSTGRES_NAME", "snackfleet", logg)
		dsn := fmt.Sprintf(
			"postgres://%s:%s@%s:%s/%s?sslmode=disable",
			user, password, host, port, name,
		)
		database, err = gorm.Open(postgres.Open(dsn), cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", driver, err)
	}

	serviceLog.Info("database connected", "driver", driver)
	return &Service{db: database, log: serviceLog}, nil
}

func (s *Service) DB() *gorm.DB {
	return s.db
}

// AutoMigrateAll creates/updates every table the fleet uses: write-side
// snapshots and event log plus the denormalized read models.
func (s *Service) AutoMigrateAll() error {
	return s.db.AutoMigrate(
		&domain.MachineRow{},
		&domain.SlotRow{},
		&domain.SnackRow{},
		&domain.EventRecord{},
		&domain.Purchase{},
		&domain.MachineView{},
		&domain.SnackView{},
		&domain.SnackStat{},
	)
}
