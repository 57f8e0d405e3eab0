// Package database wraps GORM with connect retries, pool settings, a
// zerolog-backed query logger and AppError translation.
//
//	db, err := database.OpenSQLite(ctx, cfg, log)
//	if err != nil { ... }
//	defer db.Close()
//	if err := db.AutoMigrate(&caption.Record{}); err != nil { ... }
package database
