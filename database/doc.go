// Package database is the data-access side of the health gate and the
// optional run history store. It wraps gorm with the postgres, mysql and
// sqlite dialectors, routes gorm logging through the service logger and
// reports query problems as QUERY_FAILED AppErrors.
//
//	db, err := database.Open(ctx, database.Config{Enabled: true, Driver: "postgres", DSN: dsn}, log)
//	n, err := db.QueryScalarCount(ctx, "SELECT COUNT(*) FROM silver.slvr_products")
package database
