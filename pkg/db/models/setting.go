package models

// Setting is a persisted process-wide key/value flag. The order-intake
// toggle lives here so it survives restarts.
type Setting struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

// SettingAcceptingOrders is the key for the "accepting new orders" flag.
const SettingAcceptingOrders = "accepting_orders"
