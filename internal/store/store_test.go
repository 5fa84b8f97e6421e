package store

import (
	"strings"
	"testing"
	"time"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	users := `
CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL DEFAULT '',
  handle TEXT,
  registered_at DATETIME
);`
	statuses := `
CREATE TABLE IF NOT EXISTS statuses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL
);`
	materials := `
CREATE TABLE IF NOT EXISTS materials (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  order_type TEXT NOT NULL,
  available INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  UNIQUE (name, order_type)
);`
	rejectionTemplates := `
CREATE TABLE IF NOT EXISTS rejection_templates (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  order_type TEXT NOT NULL,
  text TEXT NOT NULL,
  created_at DATETIME
);`
	orders := `
CREATE TABLE IF NOT EXISTS orders (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id INTEGER NOT NULL,
  status_id INTEGER NOT NULL,
  material_id INTEGER,
  order_type TEXT NOT NULL,
  part_name TEXT NOT NULL,
  comment TEXT,
  photo_path TEXT,
  model_path TEXT,
  original_filename TEXT NOT NULL DEFAULT '',
  rejection_reason TEXT,
  last_reminder_at DATETIME,
  created_at DATETIME
);`
	settings := `
CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`
	require.NoError(t, db.Exec(users).Error)
	require.NoError(t, db.Exec(statuses).Error)
	require.NoError(t, db.Exec(materials).Error)
	require.NoError(t, db.Exec(rejectionTemplates).Error)
	require.NoError(t, db.Exec(orders).Error)
	require.NoError(t, db.Exec(settings).Error)

	seedStatuses(t, db)
	return db
}

func seedStatuses(t *testing.T, db *gorm.DB) {
	t.Helper()

	rows := []models.Status{
		{Code: enums.StatusPending, Name: "New"},
		{Code: enums.StatusInProgress, Name: "In progress"},
		{Code: enums.StatusReady, Name: "Ready for pickup"},
		{Code: enums.StatusRejected, Name: "Rejected"},
		{Code: enums.StatusArchived, Name: "Archived"},
	}
	for _, row := range rows {
		require.NoError(t, db.Create(&row).Error)
	}
}

func newUser(t *testing.T, db *gorm.DB, id int64, firstName, lastName string) *models.User {
	t.Helper()

	user := &models.User{
		ID:           id,
		FirstName:    firstName,
		LastName:     lastName,
		RegisteredAt: time.Now().UTC(),
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func statusID(t *testing.T, db *gorm.DB, code enums.StatusCode) int64 {
	t.Helper()

	var status models.Status
	require.NoError(t, db.Where("code = ?", code).First(&status).Error)
	return status.ID
}

func newOrder(t *testing.T, db *gorm.DB, user *models.User, code enums.StatusCode, orderType enums.OrderType, materialID *int64, created time.Time) *models.Order {
	t.Helper()

	order := &models.Order{
		UserID:     user.ID,
		StatusID:   statusID(t, db, code),
		MaterialID: materialID,
		OrderType:  orderType,
		PartName:   "bracket",
		CreatedAt:  created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func ptr[T any](v T) *T {
	return &v
}
