package lifecycle

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fabworks/fabshop-backend/internal/store"
	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
	pkgerrors "github.com/fabworks/fabshop-backend/pkg/errors"
	"github.com/fabworks/fabshop-backend/pkg/logger"
	"go.uber.org/multierr"
	"gorm.io/gorm"
)

const defaultArchiveMaxSize = 25

type ordersRepo interface {
	Create(ctx context.Context, params store.CreateOrderParams) (*models.Order, error)
	FindByID(ctx context.Context, id int64) (*models.Order, error)
	UpdateStatus(ctx context.Context, id int64, code enums.StatusCode, reason *string) (bool, error)
	Archived(ctx context.Context) ([]models.Order, error)
	Delete(ctx context.Context, id int64) error
	WithTx(tx *gorm.DB) *store.Orders
}

// txRunner scopes multi-statement mutations to one transaction.
type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type materialsRepo interface {
	FindByID(ctx context.Context, id int64) (*models.Material, error)
}

type settingsRepo interface {
	GetBool(ctx context.Context, key string, fallback bool) (bool, error)
}

// StatusNotifier hands a persisted transition to the notification dispatcher.
type StatusNotifier interface {
	OrderStatusChanged(ctx context.Context, order *models.Order, status enums.StatusCode) error
}

// ExtensionPolicy resolves the permitted model-file extensions per order type.
type ExtensionPolicy interface {
	AllowedExtensions(orderType string) []string
}

// ServiceParams wires the lifecycle engine dependencies.
type ServiceParams struct {
	Logger         *logger.Logger
	DB             txRunner
	Orders         ordersRepo
	Materials      materialsRepo
	Settings       settingsRepo
	Notifier       StatusNotifier
	Extensions     ExtensionPolicy
	ArchiveMaxSize int
}

// Service drives order status transitions, the intake guard and archive
// retention. It owns every write to an order after creation.
type Service struct {
	logg           *logger.Logger
	db             txRunner
	orders         ordersRepo
	materials      materialsRepo
	settings       settingsRepo
	notifier       StatusNotifier
	extensions     ExtensionPolicy
	archiveMaxSize int
	removeFile     func(string) error
}

// NewService builds the lifecycle engine with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.DB == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Materials == nil {
		return nil, fmt.Errorf("materials repository required")
	}
	if params.Settings == nil {
		return nil, fmt.Errorf("settings repository required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("status notifier required")
	}
	if params.Extensions == nil {
		return nil, fmt.Errorf("extension policy required")
	}
	maxSize := params.ArchiveMaxSize
	if maxSize <= 0 {
		maxSize = defaultArchiveMaxSize
	}
	return &Service{
		logg:           params.Logger,
		db:             params.DB,
		orders:         params.Orders,
		materials:      params.Materials,
		settings:       params.Settings,
		notifier:       params.Notifier,
		extensions:     params.Extensions,
		archiveMaxSize: maxSize,
		removeFile:     os.Remove,
	}, nil
}

// Actor identifies who triggered an operation on the transport side.
type Actor struct {
	UserID int64
	Staff  bool
}

// staffTransitions enumerates the status moves the generic change-status
// operation accepts. Rejection and pickup have dedicated entry points because
// they carry extra rules.
var staffTransitions = map[enums.StatusCode][]enums.StatusCode{
	enums.StatusPending:    {enums.StatusInProgress},
	enums.StatusInProgress: {enums.StatusReady, enums.StatusPending},
	enums.StatusReady:      {enums.StatusInProgress},
}

func transitionAllowed(from, to enums.StatusCode) bool {
	for _, code := range staffTransitions[from] {
		if code == to {
			return true
		}
	}
	return false
}

// CreateOrderInput is the customer submission after the transport collected
// all the pieces.
type CreateOrderInput struct {
	UserID           int64
	OrderType        enums.OrderType
	MaterialID       *int64
	PartName         string
	Comment          *string
	PhotoPath        *string
	ModelPath        *string
	OriginalFilename string
}

// CreateOrder runs the intake guard and inserts a new pending order.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*models.Order, error) {
	accepting, err := s.settings.GetBool(ctx, models.SettingAcceptingOrders, true)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read intake flag")
	}
	if !accepting {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order intake is currently closed")
	}

	if !input.OrderType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown order type").
			WithDetails(map[string]any{"order_type": input.OrderType})
	}
	partName := strings.TrimSpace(input.PartName)
	if partName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "part name is required")
	}
	if err := s.checkExtension(input.OrderType, input.OriginalFilename); err != nil {
		return nil, err
	}

	if input.MaterialID != nil {
		material, err := s.materials.FindByID(ctx, *input.MaterialID)
		if store.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown material").
				WithDetails(map[string]any{"material_id": *input.MaterialID})
		}
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load material")
		}
		if !material.Available {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "material is no longer offered").
				WithDetails(map[string]any{"material_id": *input.MaterialID})
		}
	}

	created, err := s.orders.Create(ctx, store.CreateOrderParams{
		UserID:           input.UserID,
		MaterialID:       input.MaterialID,
		OrderType:        input.OrderType,
		PartName:         partName,
		Comment:          input.Comment,
		PhotoPath:        input.PhotoPath,
		ModelPath:        input.ModelPath,
		OriginalFilename: input.OriginalFilename,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert order")
	}

	order, err := s.orders.FindByID(ctx, created.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	logCtx := s.logg.WithOrderID(s.logg.WithUserID(ctx, input.UserID), order.ID)
	s.logg.Info(logCtx, "order created")
	return order, nil
}

func (s *Service) checkExtension(orderType enums.OrderType, filename string) error {
	allowed := s.extensions.AllowedExtensions(string(orderType))
	ext := strings.ToLower(filepath.Ext(filename))
	for _, candidate := range allowed {
		if ext == strings.ToLower(candidate) {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "file extension not allowed for this order type").
		WithDetails(map[string]any{"extension": ext, "allowed": allowed})
}

// ChangeStatus applies one of the staff working transitions. Rejection and
// pickup do not pass through here.
func (s *Service) ChangeStatus(ctx context.Context, id int64, target enums.StatusCode) (*models.Order, error) {
	if !target.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown status").
			WithDetails(map[string]any{"status": target})
	}
	if target == enums.StatusRejected || target == enums.StatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "use the reject or pickup operations for terminal statuses")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !transitionAllowed(order.StatusCode(), target) {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "status transition not allowed").
			WithDetails(map[string]any{"from": order.StatusCode(), "to": target})
	}
	return s.apply(ctx, order, target, nil)
}

// Reject refuses an order with a mandatory reason. Rejection archives the
// order in the same operation; the customer notification still reads as a
// rejection with the stored reason.
func (s *Service) Reject(ctx context.Context, id int64, reason string) (*models.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "rejection reason is required")
	}

	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if order.StatusCode() == enums.StatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already archived")
	}

	updated, err := s.persistArchive(ctx, order, &reason)
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, enums.StatusRejected)
	return updated, nil
}

// Pickup closes out a ready order. Staff can close any order; a customer can
// only close their own.
func (s *Service) Pickup(ctx context.Context, id int64, actor Actor) (*models.Order, error) {
	order, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Staff && order.UserID != actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another customer")
	}
	if order.StatusCode() == enums.StatusArchived {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order is already archived")
	}
	if order.StatusCode() != enums.StatusReady {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "only ready orders can be picked up").
			WithDetails(map[string]any{"status": order.StatusCode()})
	}

	updated, err := s.persistArchive(ctx, order, nil)
	if err != nil {
		return nil, err
	}
	if actor.Staff {
		s.notify(ctx, updated, enums.StatusArchived)
	}
	return updated, nil
}

func (s *Service) load(ctx context.Context, id int64) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, id)
	if store.IsNotFound(err) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found").
			WithDetails(map[string]any{"order_id": id})
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *Service) apply(ctx context.Context, order *models.Order, target enums.StatusCode, reason *string) (*models.Order, error) {
	ok, err := s.orders.UpdateStatus(ctx, order.ID, target, reason)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status row missing").
			WithDetails(map[string]any{"status": target})
	}

	updated, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_id": order.ID,
		"from":     order.StatusCode(),
		"to":       target,
	})
	s.logg.Info(logCtx, "order status changed")

	s.notify(ctx, updated, target)
	return updated, nil
}

// persistArchive moves the order to archived and trims the archive beyond the
// ceiling (newest kept) in one transaction: either the status change and the
// retention deletes all land, or none do. File removal happens after commit
// since it cannot be rolled back.
func (s *Service) persistArchive(ctx context.Context, order *models.Order, reason *string) (*models.Order, error) {
	var purged []models.Order
	err := s.db.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.orders.WithTx(tx)

		ok, err := repo.UpdateStatus(ctx, order.ID, enums.StatusArchived, reason)
		if err != nil {
			return err
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeValidation, "archived status row missing")
		}

		archived, err := repo.Archived(ctx)
		if err != nil {
			return err
		}
		if len(archived) <= s.archiveMaxSize {
			return nil
		}
		for _, old := range archived[s.archiveMaxSize:] {
			if err := repo.Delete(ctx, old.ID); err != nil {
				return err
			}
			purged = append(purged, old)
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "archive order")
	}

	updated, err := s.orders.FindByID(ctx, order.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload order")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID)
	s.logg.Info(logCtx, "order archived")

	s.cleanupPurged(ctx, purged)
	return updated, nil
}

func (s *Service) notify(ctx context.Context, order *models.Order, status enums.StatusCode) {
	if err := s.notifier.OrderStatusChanged(ctx, order, status); err != nil {
		logCtx := s.logg.WithOrderID(ctx, order.ID)
		s.logg.Warn(s.logg.WithField(logCtx, "notify_error", err.Error()), "status notification failed")
	}
}

// cleanupPurged removes the files of retention-deleted orders. Failures are
// collected and logged; the rows are already gone.
func (s *Service) cleanupPurged(ctx context.Context, purged []models.Order) {
	for _, order := range purged {
		logCtx := s.logg.WithOrderID(ctx, order.ID)
		if fileErr := s.removeOrderFiles(order); fileErr != nil {
			s.logg.Warn(s.logg.WithField(logCtx, "file_error", fileErr.Error()), "order file cleanup incomplete")
		}
		s.logg.Info(logCtx, "archived order purged by retention")
	}
}

func (s *Service) removeOrderFiles(order models.Order) error {
	var errs error
	for _, path := range []*string{order.PhotoPath, order.ModelPath} {
		if path == nil || *path == "" {
			continue
		}
		if err := s.removeFile(*path); err != nil && !os.IsNotExist(err) {
			errs = multierr.Append(errs, err)
		}
	}
	return errs
}

// DownloadFilename composes the staff-facing model filename from order
// fields. The part name falls back to the original upload name without its
// extension.
func DownloadFilename(order *models.Order) string {
	source := order.OriginalFilename
	if order.ModelPath != nil && *order.ModelPath != "" {
		source = *order.ModelPath
	}
	ext := filepath.Ext(source)

	part := strings.TrimSpace(order.PartName)
	if part == "" {
		part = strings.TrimSuffix(order.OriginalFilename, filepath.Ext(order.OriginalFilename))
	}
	part = sanitizeFilenamePart(part)

	lastName, firstName := "", ""
	if order.User != nil {
		lastName = sanitizeFilenamePart(order.User.LastName)
		firstName = sanitizeFilenamePart(order.User.FirstName)
	}
	return fmt.Sprintf("%d_%s_%s_%s%s", order.ID, lastName, firstName, part, ext)
}

func sanitizeFilenamePart(value string) string {
	value = strings.TrimSpace(value)
	replacer := strings.NewReplacer(" ", "_", "/", "_", "\\", "_")
	return replacer.Replace(value)
}
