// Package dbtest opens throwaway in-memory databases for tests.
package dbtest

import (
	"sync"
	"testing"
	"time"

	"task_webapp/internal/db"
	"task_webapp/internal/domain"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Open returns a migrated in-memory SQLite database using the production ORM
// settings. It is closed when the test ends.
func Open(t *testing.T) *gorm.DB {
	t.Helper()

	gdb, err := db.Open(sqlite.Open(":memory:"), false)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("failed to get sql.DB: %v", err)
	}
	// every connection to :memory: is a separate database
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := gdb.AutoMigrate(&domain.Task{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	return gdb
}

// OpenWithClock is Open with the ORM clock replaced by now.
func OpenWithClock(t *testing.T, now func() time.Time) *gorm.DB {
	t.Helper()
	gdb := Open(t)
	gdb.Config.NowFunc = now
	return gdb
}

// Clock returns a clock starting at start that advances by step on every call.
func Clock(start time.Time, step time.Duration) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := next
		next = next.Add(step)
		return t
	}
}
