package models

import (
	"bitbucket.org/clearexpress/brokerage_backend/config"
)

func MigrateTable() {
	db := config.GetDB()
	err := db.AutoMigrate(
		&User{},
		&Consignee{},
		&Exporter{},
		&Document{},
		&Shipment{},
	)
	if err != nil {
		config.GetLogger().WithError(err).Fatal("auto migration failed")
	}
}
