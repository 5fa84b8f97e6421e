package models

import "github.com/fabworks/fabshop-backend/pkg/enums"

// Status is seeded reference data for the order lifecycle. Rows are never
// deleted once seeded.
type Status struct {
	ID   int64            `gorm:"column:id;primaryKey"`
	Code enums.StatusCode `gorm:"column:code;type:text;not null;uniqueIndex"`
	Name string           `gorm:"column:name;not null"`
}

func (Status) TableName() string { return "statuses" }
