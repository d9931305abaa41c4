package db

import (
	"github.com/monocle-dev/taskforge/internal/models"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func ConnectDatabase(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
}

// MigrateDatabase creates or updates every table the service owns.
func MigrateDatabase(gdb *gorm.DB) error {
	models := []interface{}{
		&models.User{},
		&models.Project{},
		&models.ProjectMembership{},
		&models.Task{},
		&models.Notification{},
	}

	for _, model := range models {
		if err := gdb.AutoMigrate(model); err != nil {
			return err
		}
	}

	return nil
}
