package repository

import (
	"go-pos-inventory/internal/model"

	"gorm.io/gorm"
)

// Models lists every table owned by the primary store.
var Models = []interface{}{
	&model.Privilege{},
	&model.Role{},
	&model.User{},
	&model.InventoryItem{},
	&model.Sale{},
	&model.SaleLine{},
}

// Migrate creates or updates the schema.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(Models...)
}
