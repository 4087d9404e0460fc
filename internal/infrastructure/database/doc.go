// Package database provides SQLite database connectivity for AirSafe Core.
//
// This package manages:
//   - Database connection with WAL mode for concurrent access
//   - Connection pooling and lifecycle management
//   - Health checks
//
// The schema itself is owned by the consuming package (internal/storage
// creates its key-value table on startup); this package only hands out a
// configured connection.
//
// Security Considerations:
//   - All queries use parameterised statements (no SQL injection)
//   - Database file permissions are set to 0600 (owner read/write only)
//
// Usage:
//
//	db, err := database.Open(ctx, database.Config{Path: "./data/airsafe.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
package database
