package service

import (
	"encoding/json"
	"fmt"

	"github.com/bestdog-pos/api/internal/database"
	"github.com/bestdog-pos/api/internal/domain"
	"github.com/google/uuid"
)

func productFromRow(row database.Product) (domain.Product, error) {
	addons := make([]uuid.UUID, 0, len(row.AllowedAddons))
	for _, s := range row.AllowedAddons {
		id, err := uuid.Parse(s)
		if err != nil {
			return domain.Product{}, fmt.Errorf("product %s: allowed addon %q: %w", row.ID, s, err)
		}
		addons = append(addons, id)
	}
	if len(addons) == 0 {
		addons = nil
	}
	return domain.Product{
		ID:            row.ID,
		Name:          row.Name,
		Price:         database.NumericToDecimal(row.Price),
		Stock:         int(row.Stock),
		Kind:          domain.ProductKind(row.Kind),
		Category:      row.Category,
		Options:       row.Options,
		AllowedAddons: addons,
		Position:      int(row.Position),
	}, nil
}

func upsertProductParams(p domain.Product) database.UpsertProductParams {
	addons := make([]string, len(p.AllowedAddons))
	for i, id := range p.AllowedAddons {
		addons[i] = id.String()
	}
	return database.UpsertProductParams{
		ID:            p.ID,
		Name:          p.Name,
		Price:         database.DecimalToNumeric(p.Price),
		Stock:         int32(p.Stock),
		Kind:          string(p.Kind),
		Category:      p.Category,
		Options:       p.Options,
		AllowedAddons: addons,
		Position:      int32(p.Position),
	}
}

func orderFromRow(row database.Order) (domain.Order, error) {
	var items []domain.LineItem
	if len(row.Items) > 0 {
		if err := json.Unmarshal(row.Items, &items); err != nil {
			return domain.Order{}, fmt.Errorf("order %s: decode items: %w", row.ID, err)
		}
	}
	return domain.Order{
		ID:     row.ID,
		Number: int(row.OrderNumber),
		Customer: domain.Customer{
			Name:    row.CustomerName,
			Address: row.CustomerAddress,
			Phone:   row.CustomerPhone,
		},
		Items:           items,
		DeliveryFee:     database.NumericToDecimal(row.DeliveryFee),
		DiscountPercent: database.NumericToDecimal(row.DiscountPercent),
		PaymentMethod:   row.PaymentMethod,
		Notes:           row.Notes,
		Status:          domain.Status(row.Status),
		Total:           database.NumericToDecimal(row.Total),
		PrepMinutes:     int(row.PrepMinutes),
		TravelMinutes:   int(row.TravelMinutes),
		CreatedAt:       row.CreatedAt,
		Date:            row.OrderDate,
		Time:            row.OrderTime,
		UpdatedAt:       row.UpdatedAt,
	}, nil
}

func insertOrderParams(o domain.Order) (database.InsertOrderParams, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return database.InsertOrderParams{}, fmt.Errorf("encode items: %w", err)
	}
	return database.InsertOrderParams{
		ID:              o.ID,
		OrderNumber:     int32(o.Number),
		CustomerName:    o.Customer.Name,
		CustomerAddress: o.Customer.Address,
		CustomerPhone:   o.Customer.Phone,
		Items:           items,
		DeliveryFee:     database.DecimalToNumeric(o.DeliveryFee),
		DiscountPercent: database.DecimalToNumeric(o.DiscountPercent),
		Total:           database.DecimalToNumeric(o.Total),
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		Status:          string(o.Status),
		PrepMinutes:     int32(o.PrepMinutes),
		TravelMinutes:   int32(o.TravelMinutes),
		CreatedAt:       o.CreatedAt,
		OrderDate:       o.Date,
		OrderTime:       o.Time,
		UpdatedAt:       o.UpdatedAt,
	}, nil
}

func updateOrderParams(o domain.Order) (database.UpdateOrderParams, error) {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return database.UpdateOrderParams{}, fmt.Errorf("encode items: %w", err)
	}
	return database.UpdateOrderParams{
		ID:              o.ID,
		CustomerName:    o.Customer.Name,
		CustomerAddress: o.Customer.Address,
		CustomerPhone:   o.Customer.Phone,
		Items:           items,
		DeliveryFee:     database.DecimalToNumeric(o.DeliveryFee),
		DiscountPercent: database.DecimalToNumeric(o.DiscountPercent),
		Total:           database.DecimalToNumeric(o.Total),
		PaymentMethod:   o.PaymentMethod,
		Notes:           o.Notes,
		PrepMinutes:     int32(o.PrepMinutes),
		TravelMinutes:   int32(o.TravelMinutes),
		UpdatedAt:       o.UpdatedAt,
	}, nil
}
