package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"bakerycrm/internal/model"
)

// Authorization is what the tax authority returns for an accepted invoice.
type Authorization struct {
	CAE        string
	Expiration time.Time
}

// Issuer obtains an authorization code for a numbered invoice.
type Issuer interface {
	Authorize(ctx context.Context, invoice *model.Invoice) (Authorization, error)
}

// MockIssuer fabricates a 14-digit code without contacting AFIP.
type MockIssuer struct {
	ValidDays int
	Now       func() time.Time
}

func NewMockIssuer(validDays int) *MockIssuer {
	if validDays <= 0 {
		validDays = 10
	}
	return &MockIssuer{ValidDays: validDays, Now: time.Now}
}

func (m *MockIssuer) Authorize(ctx context.Context, invoice *model.Invoice) (Authorization, error) {
	if err := ctx.Err(); err != nil {
		return Authorization{}, err
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	// first digit never zero so the code keeps 14 digits when parsed as a number
	code := fmt.Sprintf("%d%013d", rand.IntN(9)+1, rand.Int64N(1e13))
	return Authorization{
		CAE:        code,
		Expiration: now().AddDate(0, 0, m.ValidDays),
	}, nil
}
