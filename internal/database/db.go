package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"gastro-system/internal/database/models"
)

func NewConnection(dsn string) (*gorm.DB, error) {
	if dsn == "" {
		log.Fatal("DSN is required")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		log.Fatalf("failed to get sql.DB: %v", err)
	}

	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}

	return db, nil
}

// SeedRoles makes sure the three built-in roles exist. Access levels:
// OWNER 3, MANAGER 2, STAFF 1.
func SeedRoles(db *gorm.DB) error {
	roles := []models.Role{
		{RoleName: models.RoleOwner, AccessLevel: 3},
		{RoleName: models.RoleManager, AccessLevel: 2},
		{RoleName: models.RoleStaff, AccessLevel: 1},
	}
	for _, role := range roles {
		var existing models.Role
		err := db.Where("role_name = ?", role.RoleName).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := db.Create(&role).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Role{},
		&models.User{},
		&models.Ingredient{},
		&models.Location{},
		&models.Supplier{},
		&models.StockHolding{},
		&models.StockMovement{},
		&models.PrepRecipe{},
		&models.PrepRecipeInput{},
		&models.PrepTask{},
		&models.PurchaseOrder{},
		&models.PurchaseOrderItem{},
	)
}
