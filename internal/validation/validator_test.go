package validation

import (
	"context"
	"errors"
	"testing"
	"time"

	"coupon-intake/internal/model"
	"coupon-intake/internal/oracle"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockOracleClient is a mock implementation of oracle.Client.
type MockOracleClient struct {
	mock.Mock
}

func (m *MockOracleClient) PriceBand(ctx context.Context, ean string) (*oracle.PriceBand, error) {
	args := m.Called(ctx, ean)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*oracle.PriceBand), args.Error(1)
}

func band(name string, min, max string) *oracle.PriceBand {
	return &oracle.PriceBand{
		ProductName: name,
		MinPrice:    decimal.RequireFromString(min),
		MaxPrice:    decimal.RequireFromString(max),
	}
}

func submission() *model.SubmitCouponRequest {
	return &model.SubmitCouponRequest{
		Code44:          "11111111111111111111111111111111111111111111",
		PurchaseDate:    time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC),
		TotalValue:      decimal.NewFromInt(10),
		CompanyDocument: "11222333000181",
		State:           "SP",
		Products: []model.CouponItemRequest{
			{Name: "Milk 1L", EAN: "123", UnitaryPrice: decimal.NewFromInt(5), Quantity: 2},
		},
	}
}

func TestValidator_Validate_Success(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOracle := new(MockOracleClient)
	mockOracle.On("PriceBand", ctx, "123").Return(band("Milk 1L", "4", "6"), nil)

	validator := New(mockOracle, logger)

	err := validator.Validate(ctx, submission())

	assert.NoError(t, err)
	mockOracle.AssertExpectations(t)
}

func TestValidator_Validate_LocalRules(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	tests := []struct {
		name         string
		mutate       func(req *model.SubmitCouponRequest)
		expectedCode string
	}{
		{
			name:         "Code44 too short",
			mutate:       func(req *model.SubmitCouponRequest) { req.Code44 = "123" },
			expectedCode: model.ErrCodeInvalidCode44,
		},
		{
			name: "Code44 with letters",
			mutate: func(req *model.SubmitCouponRequest) {
				req.Code44 = "1111111111111111111111111111111111111111111A"
			},
			expectedCode: model.ErrCodeInvalidCode44,
		},
		{
			name:         "Missing company document",
			mutate:       func(req *model.SubmitCouponRequest) { req.CompanyDocument = "" },
			expectedCode: model.ErrCodeMissingDocument,
		},
		{
			name:         "Invalid CNPJ checksum",
			mutate:       func(req *model.SubmitCouponRequest) { req.CompanyDocument = "11222333000182" },
			expectedCode: model.ErrCodeInvalidDocument,
		},
		{
			name:         "Empty product list",
			mutate:       func(req *model.SubmitCouponRequest) { req.Products = nil },
			expectedCode: model.ErrCodeEmptyItems,
		},
		{
			name:         "Total does not match item subtotals",
			mutate:       func(req *model.SubmitCouponRequest) { req.TotalValue = decimal.NewFromInt(11) },
			expectedCode: model.ErrCodeTotalMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOracle := new(MockOracleClient)
			validator := New(mockOracle, logger)

			req := submission()
			tt.mutate(req)

			err := validator.Validate(ctx, req)

			var validationErr *model.ValidationError
			require.ErrorAs(t, err, &validationErr)
			assert.Equal(t, tt.expectedCode, validationErr.Code)

			// Local rules never reach the oracle
			mockOracle.AssertNotCalled(t, "PriceBand")
		})
	}
}

func TestValidator_Validate_TotalTolerance(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	tests := []struct {
		name        string
		total       string
		expectError bool
	}{
		{
			name:  "Exact total",
			total: "10",
		},
		{
			name:  "Deviation within tolerance",
			total: "10.001",
		},
		{
			name:        "Deviation beyond tolerance",
			total:       "10.002",
			expectError: true,
		},
		{
			name:        "Undeclared cents beyond tolerance",
			total:       "9.99",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOracle := new(MockOracleClient)
			if !tt.expectError {
				mockOracle.On("PriceBand", ctx, "123").Return(band("Milk 1L", "4", "6"), nil)
			}
			validator := New(mockOracle, logger)

			req := submission()
			req.TotalValue = decimal.RequireFromString(tt.total)

			err := validator.Validate(ctx, req)

			if tt.expectError {
				var validationErr *model.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, model.ErrCodeTotalMismatch, validationErr.Code)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidator_Validate_PriceBand(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	tests := []struct {
		name        string
		price       string
		expectError bool
	}{
		{
			name:  "Price inside band",
			price: "5.00",
		},
		{
			name:  "Price at lower bound",
			price: "4.50",
		},
		{
			name:  "Price at upper bound",
			price: "6.00",
		},
		{
			name:        "Price below lower bound",
			price:       "4.49",
			expectError: true,
		},
		{
			name:        "Price above upper bound",
			price:       "6.01",
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockOracle := new(MockOracleClient)
			mockOracle.On("PriceBand", ctx, "123").Return(band("Milk 1L", "4.50", "6.00"), nil)
			validator := New(mockOracle, logger)

			price := decimal.RequireFromString(tt.price)
			req := submission()
			req.Products[0].UnitaryPrice = price
			req.TotalValue = price.Mul(decimal.NewFromInt(2))

			err := validator.Validate(ctx, req)

			if tt.expectError {
				var validationErr *model.ValidationError
				require.ErrorAs(t, err, &validationErr)
				assert.Equal(t, model.ErrCodePriceOutOfRange, validationErr.Code)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidator_Validate_UnknownProduct(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOracle := new(MockOracleClient)
	mockOracle.On("PriceBand", ctx, "123").Return(nil, oracle.ErrProductNotFound)
	validator := New(mockOracle, logger)

	err := validator.Validate(ctx, submission())

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, model.ErrCodeUnknownProduct, validationErr.Code)
	assert.Contains(t, validationErr.Message, "123")
	assert.Contains(t, validationErr.Message, "Milk 1L")
}

func TestValidator_Validate_OracleFailure(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOracle := new(MockOracleClient)
	mockOracle.On("PriceBand", ctx, "123").Return(nil, errors.New("connection refused"))
	validator := New(mockOracle, logger)

	err := validator.Validate(ctx, submission())

	// A transport failure is an infrastructure outcome, not a rejection
	var infraErr *model.InfrastructureError
	require.ErrorAs(t, err, &infraErr)
	assert.Equal(t, "price oracle", infraErr.Dependency)
}

func TestValidator_Validate_FirstFailingItemShortCircuits(t *testing.T) {
	logger := zerolog.Nop()
	ctx := context.Background()

	mockOracle := new(MockOracleClient)
	mockOracle.On("PriceBand", ctx, "111").Return(band("Bread", "2", "4"), nil).Once()
	mockOracle.On("PriceBand", ctx, "222").Return(nil, oracle.ErrProductNotFound).Once()
	validator := New(mockOracle, logger)

	req := submission()
	req.Products = []model.CouponItemRequest{
		{Name: "Bread", EAN: "111", UnitaryPrice: decimal.NewFromInt(3), Quantity: 1},
		{Name: "Mystery", EAN: "222", UnitaryPrice: decimal.NewFromInt(2), Quantity: 1},
		{Name: "Cheese", EAN: "333", UnitaryPrice: decimal.NewFromInt(5), Quantity: 1},
	}
	req.TotalValue = decimal.NewFromInt(10)

	err := validator.Validate(ctx, req)

	var validationErr *model.ValidationError
	require.ErrorAs(t, err, &validationErr)
	assert.Equal(t, model.ErrCodeUnknownProduct, validationErr.Code)

	// Items are checked in submission order and the third lookup never happens
	mockOracle.AssertExpectations(t)
	mockOracle.AssertNotCalled(t, "PriceBand", ctx, "333")
}
