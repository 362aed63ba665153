package migrations

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pressly/goose/v3"
	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

func init() {
	goose.AddMigrationContext(upDiscoveries, downDiscoveries)
}

// Discovery mirrors services/discovery.discoveryModel. The sweeper scans by
// status and age, hence the composite (status, created_timestamp) index.
type Discovery struct {
	ID                   uuid.UUID      `gorm:"type:uuid;primaryKey"`
	Status               string         `gorm:"type:text;not null;index:idx_discoveries_status_created,priority:1"`
	ConfigurationPath    string         `gorm:"type:text;not null"`
	EventLogPath         string         `gorm:"type:text"`
	OutputDir            string         `gorm:"type:text"`
	ArchiveURL           *string        `gorm:"type:text"`
	NotificationSettings datatypes.JSON `gorm:"type:jsonb"`
	Notified             bool           `gorm:"not null;default:false"`
	CreatedTimestamp     time.Time      `gorm:"type:timestamptz;not null;default:now();index:idx_discoveries_status_created,priority:2"`
	StartedTimestamp     *time.Time     `gorm:"type:timestamptz"`
	FinishedTimestamp    *time.Time     `gorm:"type:timestamptz"`
}

func (Discovery) TableName() string { return "discoveries" }

func upDiscoveries(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).AutoMigrate(&Discovery{})
}

func downDiscoveries(ctx context.Context, tx *sql.Tx) error {
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: tx, PreferSimpleProtocol: true}), &gorm.Config{
		NamingStrategy: schema.NamingStrategy{SingularTable: false},
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return err
	}

	return gormDB.WithContext(ctx).Migrator().DropTable(&Discovery{})
}
