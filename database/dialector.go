package database

import (
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// DriverFunc builds a dialector from a DSN.
type DriverFunc func(dsn string) gorm.Dialector

var drivers = map[string]DriverFunc{
	DriverPostgres: postgres.Open,
	DriverMySQL:    mysql.Open,
	DriverSQLite:   sqlite.Open,
}

// Dialector returns the gorm dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	open, ok := drivers[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	return open(dsn), nil
}
