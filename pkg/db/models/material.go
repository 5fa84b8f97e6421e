package models

import (
	"time"

	"github.com/fabworks/fabshop-backend/pkg/enums"
)

// Material is a named, typed consumable offered for an order type. Rows are
// soft-deleted via the available flag so historical orders keep a valid
// reference.
type Material struct {
	ID        int64           `gorm:"column:id;primaryKey"`
	Name      string          `gorm:"column:name;not null;uniqueIndex:idx_materials_name_type"`
	OrderType enums.OrderType `gorm:"column:order_type;type:text;not null;uniqueIndex:idx_materials_name_type"`
	Available bool            `gorm:"column:available;not null;default:true"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
