package lifecycle

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/config"
	pkgdb "github.com/fabworks/fabshop-backend/pkg/db"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type sentNotice struct {
	OrderID int64
	Status  enums.StatusCode
	Reason  *string
}

type fakeNotifier struct {
	notices []sentNotice
	err     error
}

func (f *fakeNotifier) OrderStatusChanged(_ context.Context, order *models.Order, status enums.StatusCode) error {
	if f.err != nil {
		return f.err
	}
	f.notices = append(f.notices, sentNotice{OrderID: order.ID, Status: status, Reason: order.RejectionReason})
	return nil
}

type fixture struct {
	client   *pkgdb.Client
	db       *gorm.DB
	svc      *Service
	orders   *store.Orders
	notifier *fakeNotifier
	removed  []string
}

func setupLifecycleDB(t *testing.T) *pkgdb.Client {
	t.Helper()

	dsn := "file:" + strings.ReplaceAll(t.Name(), "/", "_") + "?mode=memory&cache=shared"
	client, err := pkgdb.New(context.Background(), config.DBConfig{Driver: "sqlite", DSN: dsn}, nil)
	require.NoError(t, err)
	db := client.DB()

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
		`CREATE TABLE IF NOT EXISTS settings (
  key TEXT PRIMARY KEY,
  value TEXT NOT NULL
);`,
	}
	for _, stmt := range schema {
		require.NoError(t, db.Exec(stmt).Error)
	}

	codes := map[enums.StatusCode]string{
		enums.StatusPending:    "New",
		enums.StatusInProgress: "In progress",
		enums.StatusReady:      "Ready for pickup",
		enums.StatusRejected:   "Rejected",
		enums.StatusArchived:   "Archived",
	}
	for code, name := range codes {
		require.NoError(t, db.Create(&models.Status{Code: code, Name: name}).Error)
	}
	return client
}

func setup(t *testing.T) *fixture {
	t.Helper()

	client := setupLifecycleDB(t)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	notifier := &fakeNotifier{}

	db := client.DB()
	f := &fixture{
		client:   client,
		db:       db,
		orders:   store.NewOrders(db),
		notifier: notifier,
	}

	svc, err := NewService(ServiceParams{
		Logger:         logg,
		DB:             client,
		Orders:         f.orders,
		Materials:      store.NewMaterials(db),
		Settings:       store.NewSettings(db),
		Notifier:       notifier,
		Extensions:     config.FilesConfig{PrintExtensions: []string{".stl"}, LaserCutExtensions: []string{".dxf"}},
		ArchiveMaxSize: 3,
	})
	require.NoError(t, err)

	svc.removeFile = func(path string) error {
		f.removed = append(f.removed, path)
		return nil
	}
	f.svc = svc
	return f
}

func (f *fixture) user(t *testing.T, id int64) *models.User {
	t.Helper()

	user := &models.User{ID: id, FirstName: "Test", LastName: "Customer", RegisteredAt: time.Now().UTC()}
	require.NoError(t, f.db.Create(user).Error)
	return user
}

func (f *fixture) order(t *testing.T, userID int64, code enums.StatusCode, created time.Time) *models.Order {
	t.Helper()

	var status models.Status
	require.NoError(t, f.db.Where("code = ?", code).First(&status).Error)
	order := &models.Order{
		UserID:    userID,
		StatusID:  status.ID,
		OrderType: enums.OrderTypePrint,
		PartName:  "bracket",
		CreatedAt: created,
	}
	require.NoError(t, f.db.Create(order).Error)
	return order
}

func TestCreateOrder(t *testing.T) {
	f := setup(t)
	f.user(t, 10)

	order, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:           10,
		OrderType:        enums.OrderTypePrint,
		PartName:         "  Bracket  ",
		ModelPath:        strPtr("files/models/bracket.stl"),
		OriginalFilename: "bracket.stl",
	})
	require.NoError(t, err)
	assert.Equal(t, enums.StatusPending, order.StatusCode())
	assert.Equal(t, "Bracket", order.PartName)
	assert.Empty(t, f.notifier.notices, "intake does not notify the submitter")
}

func TestCreateOrder_intakeClosed(t *testing.T) {
	f := setup(t)
	f.user(t, 11)
	require.NoError(t, store.NewSettings(f.db).SetBool(context.Background(), models.SettingAcceptingOrders, false))

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:           11,
		OrderType:        enums.OrderTypePrint,
		PartName:         "Bracket",
		OriginalFilename: "bracket.stl",
	})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestCreateOrder_extensionGuard(t *testing.T) {
	f := setup(t)
	f.user(t, 12)

	_, err := f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:           12,
		OrderType:        enums.OrderTypePrint,
		PartName:         "Bracket",
		OriginalFilename: "bracket.dxf",
	})
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:           12,
		OrderType:        enums.OrderTypeLaserCut,
		PartName:         "Panel",
		OriginalFilename: "panel.DXF",
	})
	require.NoError(t, err, "extension matching is case insensitive")
}

func TestCreateOrder_disabledMaterial(t *testing.T) {
	f := setup(t)
	f.user(t, 13)
	materials := store.NewMaterials(f.db)

	pla, err := materials.Add(context.Background(), "PLA", enums.OrderTypePrint)
	require.NoError(t, err)
	_, err = materials.Disable(context.Background(), pla.ID)
	require.NoError(t, err)

	_, err = f.svc.CreateOrder(context.Background(), CreateOrderInput{
		UserID:           13,
		OrderType:        enums.OrderTypePrint,
		MaterialID:       &pla.ID,
		PartName:         "Bracket",
		OriginalFilename: "bracket.stl",
	})
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestChangeStatus_workingTransitions(t *testing.T) {
	f := setup(t)
	user := f.user(t, 20)
	order := f.order(t, user.ID, enums.StatusPending, time.Now().UTC())

	inProgress, err := f.svc.ChangeStatus(context.Background(), order.ID, enums.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusInProgress, inProgress.StatusCode())

	ready, err := f.svc.ChangeStatus(context.Background(), order.ID, enums.StatusReady)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusReady, ready.StatusCode())
	assert.Nil(t, ready.RejectionReason)

	require.Len(t, f.notifier.notices, 2)
	assert.Equal(t, enums.StatusInProgress, f.notifier.notices[0].Status)
	assert.Equal(t, enums.StatusReady, f.notifier.notices[1].Status)
}

func TestChangeStatus_disallowed(t *testing.T) {
	f := setup(t)
	user := f.user(t, 21)
	order := f.order(t, user.ID, enums.StatusPending, time.Now().UTC())

	_, err := f.svc.ChangeStatus(context.Background(), order.ID, enums.StatusReady)
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.ChangeStatus(context.Background(), order.ID, enums.StatusArchived)
	requireCode(t, err, pkgerrors.CodeValidation)

	_, err = f.svc.ChangeStatus(context.Background(), 9999, enums.StatusInProgress)
	requireCode(t, err, pkgerrors.CodeNotFound)
}

func TestReject(t *testing.T) {
	f := setup(t)
	user := f.user(t, 22)
	order := f.order(t, user.ID, enums.StatusPending, time.Now().UTC())

	rejected, err := f.svc.Reject(context.Background(), order.ID, "Unsupported geometry")
	require.NoError(t, err)
	assert.Equal(t, enums.StatusArchived, rejected.StatusCode())
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "Unsupported geometry", *rejected.RejectionReason)

	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, enums.StatusRejected, f.notifier.notices[0].Status)
	require.NotNil(t, f.notifier.notices[0].Reason)
	assert.Equal(t, "Unsupported geometry", *f.notifier.notices[0].Reason)

	_, err = f.svc.Reject(context.Background(), order.ID, "again")
	requireCode(t, err, pkgerrors.CodeStateConflict)

	_, err = f.svc.Reject(context.Background(), order.ID, "   ")
	requireCode(t, err, pkgerrors.CodeValidation)
}

func TestPickup(t *testing.T) {
	f := setup(t)
	owner := f.user(t, 23)
	stranger := f.user(t, 24)
	order := f.order(t, owner.ID, enums.StatusReady, time.Now().UTC())

	_, err := f.svc.Pickup(context.Background(), order.ID, Actor{UserID: stranger.ID})
	requireCode(t, err, pkgerrors.CodeForbidden)

	picked, err := f.svc.Pickup(context.Background(), order.ID, Actor{UserID: owner.ID})
	require.NoError(t, err)
	assert.Equal(t, enums.StatusArchived, picked.StatusCode())
	assert.Nil(t, picked.RejectionReason)
	assert.Empty(t, f.notifier.notices, "customer pickup is confirmed by the transport, not re-notified")

	_, err = f.svc.Pickup(context.Background(), order.ID, Actor{Staff: true})
	requireCode(t, err, pkgerrors.CodeStateConflict)
}

func TestPickup_staffNotifies(t *testing.T) {
	f := setup(t)
	owner := f.user(t, 25)
	order := f.order(t, owner.ID, enums.StatusReady, time.Now().UTC())

	_, err := f.svc.Pickup(context.Background(), order.ID, Actor{UserID: 99, Staff: true})
	require.NoError(t, err)
	require.Len(t, f.notifier.notices, 1)
	assert.Equal(t, enums.StatusArchived, f.notifier.notices[0].Status)
}

func TestRetentionCeiling(t *testing.T) {
	f := setup(t)
	user := f.user(t, 26)

	now := time.Now().UTC()
	var oldest *models.Order
	for i := 0; i < 3; i++ {
		order := f.order(t, user.ID, enums.StatusArchived, now.Add(time.Duration(i-10)*time.Hour))
		photo := fmt.Sprintf("files/photos/%d.jpg", order.ID)
		model := fmt.Sprintf("files/models/%d.stl", order.ID)
		require.NoError(t, f.db.Model(order).Updates(map[string]any{"photo_path": photo, "model_path": model}).Error)
		if oldest == nil {
			oldest = order
		}
	}

	ready := f.order(t, user.ID, enums.StatusReady, now)
	_, err := f.svc.Pickup(context.Background(), ready.ID, Actor{UserID: user.ID})
	require.NoError(t, err)

	archived, err := f.orders.Archived(context.Background())
	require.NoError(t, err)
	require.Len(t, archived, 3, "ceiling holds after the fourth archival")
	for _, order := range archived {
		assert.NotEqual(t, oldest.ID, order.ID, "oldest archived order is purged")
	}
	assert.Contains(t, f.removed, fmt.Sprintf("files/photos/%d.jpg", oldest.ID))
	assert.Contains(t, f.removed, fmt.Sprintf("files/models/%d.stl", oldest.ID))
}

func TestRetention_fileFailureDoesNotBlockDelete(t *testing.T) {
	f := setup(t)
	user := f.user(t, 27)
	f.svc.removeFile = func(string) error { return fmt.Errorf("disk detached") }

	now := time.Now().UTC()
	for i := 0; i < 3; i++ {
		order := f.order(t, user.ID, enums.StatusArchived, now.Add(time.Duration(i-10)*time.Hour))
		require.NoError(t, f.db.Model(order).Update("model_path", "files/models/x.stl").Error)
	}
	ready := f.order(t, user.ID, enums.StatusReady, now)
	_, err := f.svc.Pickup(context.Background(), ready.ID, Actor{UserID: user.ID})
	require.NoError(t, err)

	archived, err := f.orders.Archived(context.Background())
	require.NoError(t, err)
	assert.Len(t, archived, 3)
}

func TestArchiveAndRetentionShareOneTransaction(t *testing.T) {
	f := setup(t)
	user := f.user(t, 29)

	now := time.Now().UTC()
	var oldest *models.Order
	for i := 0; i < 3; i++ {
		order := f.order(t, user.ID, enums.StatusArchived, now.Add(time.Duration(i-10)*time.Hour))
		if oldest == nil {
			oldest = order
		}
	}

	// Block the retention delete of the oldest row so the whole mutation
	// has to roll back.
	trigger := fmt.Sprintf(`CREATE TRIGGER block_purge BEFORE DELETE ON orders
WHEN OLD.id = %d
BEGIN SELECT RAISE(ABORT, 'purge blocked'); END;`, oldest.ID)
	require.NoError(t, f.db.Exec(trigger).Error)

	ready := f.order(t, user.ID, enums.StatusReady, now)
	_, err := f.svc.Pickup(context.Background(), ready.ID, Actor{UserID: user.ID})
	requireCode(t, err, pkgerrors.CodeDependency)

	reloaded, err := f.orders.FindByID(context.Background(), ready.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusReady, reloaded.StatusCode(), "failed retention rolls the archival back too")

	archived, err := f.orders.Archived(context.Background())
	require.NoError(t, err)
	assert.Len(t, archived, 3)
	assert.Empty(t, f.removed, "no files touched when the transaction aborts")
}

func TestNotifierFailureDoesNotBlockTransition(t *testing.T) {
	f := setup(t)
	user := f.user(t, 28)
	order := f.order(t, user.ID, enums.StatusPending, time.Now().UTC())
	f.notifier.err = fmt.Errorf("recipient unreachable")

	updated, err := f.svc.ChangeStatus(context.Background(), order.ID, enums.StatusInProgress)
	require.NoError(t, err)
	assert.Equal(t, enums.StatusInProgress, updated.StatusCode())
}

func TestDownloadFilename(t *testing.T) {
	order := &models.Order{
		ID:               42,
		PartName:         "Gear Housing",
		OriginalFilename: "gear.stl",
		ModelPath:        strPtr("files/models/42_gear.stl"),
		User:             &models.User{FirstName: "Ada", LastName: "Lovelace"},
	}
	assert.Equal(t, "42_Lovelace_Ada_Gear_Housing.stl", DownloadFilename(order))

	order.PartName = ""
	assert.Equal(t, "42_Lovelace_Ada_gear.stl", DownloadFilename(order))
}

func requireCode(t *testing.T, err error, code pkgerrors.Code) {
	t.Helper()

	require.Error(t, err)
	appErr := pkgerrors.As(err)
	require.NotNil(t, appErr)
	assert.Equal(t, code, appErr.Code(), "unexpected error code: %v", err)
}

func strPtr(s string) *string { return &s }
