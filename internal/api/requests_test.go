package api

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestRegisterRequestValidate(t *testing.T) {
	valid := registerRequest{
		Email:     "user@example.com",
		Password:  "secret1",
		FirstName: "Ada",
		LastName:  "Lovelace",
	}
	assert.Empty(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*registerRequest)
	}{
		{"missing email", func(r *registerRequest) { r.Email = "" }},
		{"malformed email", func(r *registerRequest) { r.Email = "not-an-email" }},
		{"short password", func(r *registerRequest) { r.Password = "abc" }},
		{"missing first name", func(r *registerRequest) { r.FirstName = "" }},
		{"missing last name", func(r *registerRequest) { r.LastName = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := valid
			tt.mutate(&req)
			assert.NotEmpty(t, req.validate())
		})
	}
}

func TestCreateOrderRequestValidate(t *testing.T) {
	valid := createOrderRequest{
		UserID:          1,
		ShippingAddress: "12 Main St",
		Items: []orderItemInput{
			{ProductID: 3, Quantity: 2},
		},
	}
	assert.Empty(t, valid.validate())

	noAddress := valid
	noAddress.ShippingAddress = ""
	assert.NotEmpty(t, noAddress.validate())

	noItems := valid
	noItems.Items = nil
	assert.NotEmpty(t, noItems.validate())

	badProduct := valid
	badProduct.Items = []orderItemInput{{ProductID: 0, Quantity: 1}}
	assert.NotEmpty(t, badProduct.validate())

	badQuantity := valid
	badQuantity.Items = []orderItemInput{{ProductID: 3, Quantity: 0}}
	assert.NotEmpty(t, badQuantity.validate())

	duplicated := valid
	duplicated.Items = []orderItemInput{
		{ProductID: 3, Quantity: 1},
		{ProductID: 3, Quantity: 2},
	}
	assert.NotEmpty(t, duplicated.validate())

	distinct := valid
	distinct.Items = []orderItemInput{
		{ProductID: 3, Quantity: 1},
		{ProductID: 4, Quantity: 2},
	}
	assert.Empty(t, distinct.validate())
}

func TestCreateProductRequestValidate(t *testing.T) {
	valid := createProductRequest{
		Name:     "Exam Pack",
		Price:    decimal.RequireFromString("9.99"),
		Stock:    10,
		Category: "exams",
	}
	assert.Empty(t, valid.validate())

	noName := valid
	noName.Name = ""
	assert.NotEmpty(t, noName.validate())

	noCategory := valid
	noCategory.Category = ""
	assert.NotEmpty(t, noCategory.validate())

	negativePrice := valid
	negativePrice.Price = decimal.RequireFromString("-1")
	assert.NotEmpty(t, negativePrice.validate())

	negativeStock := valid
	negativeStock.Stock = -1
	assert.NotEmpty(t, negativeStock.validate())
}
