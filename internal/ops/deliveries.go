package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/iapod/internal/db"
	"github.com/hpungsan/iapod/internal/errors"
)

// DeliveriesInput contains parameters for the Deliveries operation.
type DeliveriesInput struct {
	Identifier string
	Channel    string
	RunID      string
	Limit      int // default: 50, max: 500
}

// DeliveriesOutput contains the result of the Deliveries operation.
type DeliveriesOutput struct {
	Items []db.Delivery `json:"items"`
	Limit int           `json:"limit"`
}

// Deliveries lists recorded channel attempts, most recent first.
func Deliveries(ctx context.Context, database *sql.DB, input DeliveriesInput) (*DeliveriesOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidRequest("ledger is disabled")
	}
	limit := clampLimit(input.Limit, DefaultDeliveryLimit, MaxDeliveryLimit)
	items, err := db.ListDeliveries(ctx, database, db.DeliveryFilter{
		Identifier: input.Identifier,
		Channel:    input.Channel,
		RunID:      input.RunID,
		Limit:      limit,
	})
	if err != nil {
		return nil, err
	}
	return &DeliveriesOutput{Items: items, Limit: limit}, nil
}

// RunsOutput contains the result of the Runs operation.
type RunsOutput struct {
	Items []db.Run `json:"items"`
}

// Runs lists recorded reconciliation passes, most recent first.
func Runs(ctx context.Context, database *sql.DB, limit int) (*RunsOutput, error) {
	if database == nil {
		return nil, errors.NewInvalidRequest("ledger is disabled")
	}
	items, err := db.ListRuns(ctx, database, clampLimit(limit, DefaultDeliveryLimit, MaxDeliveryLimit))
	if err != nil {
		return nil, err
	}
	return &RunsOutput{Items: items}, nil
}
