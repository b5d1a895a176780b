package task

import (
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("task.service",
	fx.Provide(
		NewService,
		NewRepository,
	),
	fx.Invoke(autoMigrate),
)

func autoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&Task{}); err != nil {
		zap.L().Error("failed to migrate task schema", zap.Error(err))
		return err
	}
	return nil
}
