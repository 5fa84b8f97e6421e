package controllers

import (
	"time"

	"github.com/fabworks/fabshop-backend/pkg/db/models"
	"github.com/fabworks/fabshop-backend/pkg/enums"
)

const displayTimeFormat = "2006-01-02 15:04"

type orderView struct {
	ID               int64            `json:"id"`
	UserID           int64            `json:"user_id"`
	CustomerName     string           `json:"customer_name,omitempty"`
	Status           enums.StatusCode `json:"status"`
	StatusName       string           `json:"status_name,omitempty"`
	OrderType        enums.OrderType  `json:"order_type"`
	OrderTypeName    string           `json:"order_type_name"`
	MaterialID       *int64           `json:"material_id,omitempty"`
	MaterialName     *string          `json:"material_name,omitempty"`
	PartName         string           `json:"part_name"`
	Comment          *string          `json:"comment,omitempty"`
	PhotoPath        *string          `json:"photo_path,omitempty"`
	ModelPath        *string          `json:"model_path,omitempty"`
	OriginalFilename string           `json:"original_filename"`
	RejectionReason  *string          `json:"rejection_reason,omitempty"`
	CreatedAt        string           `json:"created_at"`
}

// newOrderView flattens an order for the transport. Timestamps are stored in
// UTC and shifted to the shop's display zone here only.
func newOrderView(order models.Order, loc *time.Location) orderView {
	view := orderView{
		ID:               order.ID,
		UserID:           order.UserID,
		Status:           order.StatusCode(),
		OrderType:        order.OrderType,
		OrderTypeName:    order.OrderType.DisplayName(),
		MaterialID:       order.MaterialID,
		PartName:         order.PartName,
		Comment:          order.Comment,
		PhotoPath:        order.PhotoPath,
		ModelPath:        order.ModelPath,
		OriginalFilename: order.OriginalFilename,
		RejectionReason:  order.RejectionReason,
		CreatedAt:        order.CreatedAt.In(loc).Format(displayTimeFormat),
	}
	if order.Status != nil {
		view.StatusName = order.Status.Name
	}
	if order.User != nil {
		view.CustomerName = order.User.FullName()
	}
	if order.Material != nil {
		name := order.Material.Name
		view.MaterialName = &name
	}
	return view
}

func newOrderViews(orders []models.Order, loc *time.Location) []orderView {
	views := make([]orderView, 0, len(orders))
	for _, order := range orders {
		views = append(views, newOrderView(order, loc))
	}
	return views
}

type materialView struct {
	ID        int64           `json:"id"`
	Name      string          `json:"name"`
	OrderType enums.OrderType `json:"order_type"`
	Available bool            `json:"available"`
}

func newMaterialView(material models.Material) materialView {
	return materialView{
		ID:        material.ID,
		Name:      material.Name,
		OrderType: material.OrderType,
		Available: material.Available,
	}
}

type templateView struct {
	ID        int64           `json:"id"`
	OrderType enums.OrderType `json:"order_type"`
	Text      string          `json:"text"`
}

func newTemplateView(template models.RejectionTemplate) templateView {
	return templateView{
		ID:        template.ID,
		OrderType: template.OrderType,
		Text:      template.Text,
	}
}

type statusView struct {
	Code enums.StatusCode `json:"code"`
	Name string           `json:"name"`
}

func newStatusView(status models.Status) statusView {
	return statusView{Code: status.Code, Name: status.Name}
}

type userView struct {
	ID           int64   `json:"id"`
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name,omitempty"`
	Handle       *string `json:"handle,omitempty"`
	RegisteredAt string  `json:"registered_at"`
}

func newUserView(user models.User, loc *time.Location) userView {
	return userView{
		ID:           user.ID,
		FirstName:    user.FirstName,
		LastName:     user.LastName,
		Handle:       user.Handle,
		RegisteredAt: user.RegisteredAt.In(loc).Format(displayTimeFormat),
	}
}
