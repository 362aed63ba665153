package discovery

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type discoveryModel struct {
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

func (discoveryModel) TableName() string { return "discoveries" }

func (m discoveryModel) toAPI() Discovery {
	d := Discovery{
		ID:                m.ID,
		Status:            Status(m.Status),
		ConfigurationPath: m.ConfigurationPath,
		EventLogPath:      m.EventLogPath,
		OutputDir:         m.OutputDir,
		ArchiveURL:        m.ArchiveURL,
		Notified:          m.Notified,
		CreatedTimestamp:  m.CreatedTimestamp,
		StartedTimestamp:  m.StartedTimestamp,
		FinishedTimestamp: m.FinishedTimestamp,
	}

	if len(m.NotificationSettings) > 0 {
		var settings NotificationSettings
		if err := json.Unmarshal(m.NotificationSettings, &settings); err == nil && settings.Method != "" {
			d.NotificationSettings = &settings
		}
	}

	return d
}

func modelFromDiscovery(d Discovery) (discoveryModel, error) {
	m := discoveryModel{
		ID:                d.ID,
		Status:            string(d.Status),
		ConfigurationPath: d.ConfigurationPath,
		EventLogPath:      d.EventLogPath,
		OutputDir:         d.OutputDir,
		ArchiveURL:        d.ArchiveURL,
		Notified:          d.Notified,
		CreatedTimestamp:  d.CreatedTimestamp,
		StartedTimestamp:  d.StartedTimestamp,
		FinishedTimestamp: d.FinishedTimestamp,
	}

	if d.NotificationSettings != nil {
		raw, err := json.Marshal(d.NotificationSettings)
		if err != nil {
			return discoveryModel{}, err
		}
		m.NotificationSettings = datatypes.JSON(raw)
	}

	return m, nil
}
