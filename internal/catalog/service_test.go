package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	pkgerrors "github.com/mercavia/tienda-backend/pkg/errors"
)

func TestValidateProductPricing(t *testing.T) {
	t.Run("validValues", func(t *testing.T) {
		err := validateProductPricing(decimal.RequireFromString("19.99"), decimal.RequireFromString("15"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})

	t.Run("zeroPrice", func(t *testing.T) {
		err := validateProductPricing(decimal.Zero, decimal.Zero)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("negativeDiscount", func(t *testing.T) {
		err := validateProductPricing(decimal.NewFromInt(10), decimal.RequireFromString("-5"))
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})

	t.Run("discountOver100", func(t *testing.T) {
		err := validateProductPricing(decimal.NewFromInt(10), decimal.NewFromInt(101))
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error, got %v", err)
		}
	})
}

func TestNotFoundOrDependencyMapping(t *testing.T) {
	err := notFoundOrDependency(gorm.ErrRecordNotFound, "product")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected not-found mapping, got %v", err)
	}

	err = notFoundOrDependency(gorm.ErrInvalidDB, "product")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeDependency {
		t.Fatalf("expected dependency mapping, got %v", err)
	}
}
