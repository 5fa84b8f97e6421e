package enums

import "fmt"

// OrderType is the fabrication process category. It scopes material lists
// and rejection templates.
type OrderType string

const (
	OrderTypePrint    OrderType = "print"
	OrderTypeLaserCut OrderType = "laser_cut"
)

var validOrderTypes = []OrderType{
	OrderTypePrint,
	OrderTypeLaserCut,
}

var orderTypeNames = map[OrderType]string{
	OrderTypePrint:    "3D printing",
	OrderTypeLaserCut: "Laser cutting",
}

// String implements fmt.Stringer.
func (o OrderType) String() string {
	return string(o)
}

// DisplayName returns the human-readable process name.
func (o OrderType) DisplayName() string {
	if name, ok := orderTypeNames[o]; ok {
		return name
	}
	return string(o)
}

// IsValid reports whether the value is a known OrderType.
func (o OrderType) IsValid() bool {
	for _, candidate := range validOrderTypes {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderType converts raw input into an OrderType.
func ParseOrderType(value string) (OrderType, error) {
	for _, candidate := range validOrderTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order type %q", value)
}
