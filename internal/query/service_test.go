package query

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupQueryDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)

	schema := []string{
		`CREATE TABLE IF NOT EXISTS users (
  id INTEGER PRIMARY KEY,
  first_name TEXT NOT NULL,
  last_name TEXT NOT NULL DEFAULT '',
  handle TEXT,
  registered_at DATETIME
);`,
		`CREATE TABLE IF NOT EXISTS statuses (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  code TEXT NOT NULL UNIQUE,
  name TEXT NOT NULL
);`,
		`CREATE TABLE IF NOT EXISTS materials (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  name TEXT NOT NULL,
  order_type TEXT NOT NULL,
  available INTEGER NOT NULL DEFAULT 1,
  created_at DATETIME,
  UNIQUE (name, order_type)
);`,
		`CREATE TABLE IF NOT EXISTS orders (
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
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	for code, name := range map[enums.StatusCode]string{
		enums.StatusPending:    "New",
		enums.StatusInProgress: "In progress",
		enums.StatusReady:      "Ready for pickup",
		enums.StatusRejected:   "Rejected",
		enums.StatusArchived:   "Archived",
	} {
		require.NoError(t, db.Create(&models.Status{Code: code, Name: name}).Error)
	}
	return db
}

func seedOrder(t *testing.T, db *gorm.DB, userID int64, code enums.StatusCode, orderType enums.OrderType, partName string, materialID *int64, created time.Time) *models.Order {
	t.Helper()

	var status models.Status
	require.NoError(t, db.Where("code = ?", code).First(&status).Error)
	order := &models.Order{
		UserID:     userID,
		StatusID:   status.ID,
		MaterialID: materialID,
		OrderType:  orderType,
		PartName:   partName,
		CreatedAt:  created,
	}
	require.NoError(t, db.Create(order).Error)
	return order
}

func seedUser(t *testing.T, db *gorm.DB, id int64) {
	t.Helper()
	require.NoError(t, db.Create(&models.User{ID: id, FirstName: "Q", RegisteredAt: time.Now().UTC()}).Error)
}

func newService(t *testing.T, db *gorm.DB) *Service {
	t.Helper()
	svc, err := NewService(store.NewOrders(db))
	require.NoError(t, err)
	return svc
}

func TestListNewOrderAppearsInPending(t *testing.T) {
	db := setupQueryDB(t)
	svc := newService(t, db)
	seedUser(t, db, 1)

	materials := store.NewMaterials(db)
	pla, err := materials.Add(context.Background(), "PLA", enums.OrderTypePrint)
	require.NoError(t, err)

	seedOrder(t, db, 1, enums.StatusPending, enums.OrderTypePrint, "Bracket", &pla.ID, time.Now().UTC())

	result, err := svc.List(context.Background(), ListParams{
		Status: ptr(enums.StatusPending),
		Page:   pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, result.Orders, 1)
	assert.Equal(t, "Bracket", result.Orders[0].PartName)
	assert.Equal(t, int64(1), result.Total)

	stats, err := svc.Statistics(context.Background(), enums.OrderTypePrint)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.ByStatus[enums.StatusPending])
}

func TestListSortMonotonicity(t *testing.T) {
	db := setupQueryDB(t)
	svc := newService(t, db)
	seedUser(t, db, 2)

	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		seedOrder(t, db, 2, enums.StatusPending, enums.OrderTypePrint, "part", nil, now.Add(time.Duration(-i)*time.Hour))
		seedOrder(t, db, 2, enums.StatusArchived, enums.OrderTypePrint, "part", nil, now.Add(time.Duration(-i)*time.Hour))
	}

	active, err := svc.List(context.Background(), ListParams{
		Status: ptr(enums.StatusPending),
		Page:   pagination.Params{Limit: 100},
	})
	require.NoError(t, err)
	require.Len(t, active.Orders, 5)
	for i := 1; i < len(active.Orders); i++ {
		assert.False(t, active.Orders[i].CreatedAt.Before(active.Orders[i-1].CreatedAt),
			"active listing must be non-decreasing by creation time")
	}

	everything, err := svc.List(context.Background(), ListParams{Page: pagination.Params{Limit: 100}})
	require.NoError(t, err)
	require.Len(t, everything.Orders, 10)
	for i := 1; i < len(everything.Orders); i++ {
		assert.False(t, everything.Orders[i].CreatedAt.After(everything.Orders[i-1].CreatedAt),
			"unfiltered listing must be non-increasing by creation time")
	}
}

func TestStatisticsTotals(t *testing.T) {
	db := setupQueryDB(t)
	svc := newService(t, db)
	seedUser(t, db, 3)

	now := time.Now().UTC()
	seedOrder(t, db, 3, enums.StatusPending, enums.OrderTypePrint, "a", nil, now)
	seedOrder(t, db, 3, enums.StatusPending, enums.OrderTypePrint, "b", nil, now)
	seedOrder(t, db, 3, enums.StatusInProgress, enums.OrderTypePrint, "c", nil, now)
	seedOrder(t, db, 3, enums.StatusReady, enums.OrderTypePrint, "d", nil, now)
	seedOrder(t, db, 3, enums.StatusArchived, enums.OrderTypePrint, "e", nil, now)
	seedOrder(t, db, 3, enums.StatusPending, enums.OrderTypeLaserCut, "f", nil, now)

	stats, err := svc.Statistics(context.Background(), enums.OrderTypePrint)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.ByStatus[enums.StatusPending])
	assert.Equal(t, int64(1), stats.ByStatus[enums.StatusInProgress])
	assert.Equal(t, int64(1), stats.ByStatus[enums.StatusReady])

	var sum int64
	for _, count := range stats.ByStatus {
		sum += count
	}
	assert.Equal(t, sum, stats.All, "the all total equals the sum of the working statuses")
	assert.Equal(t, int64(1), stats.Archived)
	assert.NotContains(t, stats.ByStatus, enums.StatusArchived)
	assert.NotContains(t, stats.ByStatus, enums.StatusRejected)
}

func TestFindByNumber(t *testing.T) {
	db := setupQueryDB(t)
	svc := newService(t, db)
	seedUser(t, db, 4)

	order := seedOrder(t, db, 4, enums.StatusPending, enums.OrderTypePrint, "Bracket", nil, time.Now().UTC())

	found, err := svc.FindByNumber(context.Background(), order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, found.ID)
	require.NotNil(t, found.User)
	assert.Equal(t, "Q", found.User.FirstName)

	_, err = svc.FindByNumber(context.Background(), 9999)
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeNotFound, appErr.Code())
}

func TestListValidation(t *testing.T) {
	db := setupQueryDB(t)
	svc := newService(t, db)

	_, err := svc.List(context.Background(), ListParams{Status: ptr(enums.StatusCode("vaporized"))})
	require.Error(t, err)

	_, err = svc.Statistics(context.Background(), enums.OrderType("casting"))
	require.Error(t, err)
}

func TestListMaterialFilterConfinedToActive(t *testing.T) {
	db := setupQueryDB(t)
	svc := newService(t, db)
	seedUser(t, db, 5)

	materials := store.NewMaterials(db)
	plywood, err := materials.Add(context.Background(), "Plywood", enums.OrderTypeLaserCut)
	require.NoError(t, err)

	now := time.Now().UTC()
	seedOrder(t, db, 5, enums.StatusReady, enums.OrderTypeLaserCut, "Panel", &plywood.ID, now)
	seedOrder(t, db, 5, enums.StatusPending, enums.OrderTypeLaserCut, "Bracket", &plywood.ID, now)

	_, err = svc.List(context.Background(), ListParams{
		Status:     ptr(enums.StatusReady),
		MaterialID: &plywood.ID,
		Page:       pagination.Params{Limit: 10},
	})
	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, pkgerrors.CodeValidation, appErr.Code())

	active, err := svc.List(context.Background(), ListParams{
		Status:     ptr(enums.StatusPending),
		MaterialID: &plywood.ID,
		Page:       pagination.Params{Limit: 10},
	})
	require.NoError(t, err)
	require.Len(t, active.Orders, 1)
	assert.Equal(t, "Bracket", active.Orders[0].PartName)
}

func ptr[T any](v T) *T { return &v }
