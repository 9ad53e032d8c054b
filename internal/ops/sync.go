package ops

import (
	"context"
	"strings"

	"github.com/hpungsan/iapod/internal/config"
	"github.com/hpungsan/iapod/internal/db"
	"github.com/hpungsan/iapod/internal/errors"
	"github.com/hpungsan/iapod/internal/logging"
	"github.com/hpungsan/iapod/internal/reconcile"
)

// SyncOutput contains the result of the Sync operation.
type SyncOutput struct {
	// RunID is the ledger row of this pass; empty when the ledger is off.
	RunID string `json:"run_id,omitempty"`

	Unchanged int `json:"unchanged"`
	Updated   int `json:"updated"`
	Published int `json:"published"`
	Skipped   int `json:"skipped"`

	Report *reconcile.Report `json:"report"`
}

// Sync runs one reconciliation pass against the configured archive.
// The catalog query needs both uploader and podcast.
func Sync(ctx context.Context, svc *Services) (*SyncOutput, error) {
	if err := validateQuery(svc.Config); err != nil {
		return nil, err
	}
	return SyncWith(ctx, svc, svc.Engine())
}

func validateQuery(cfg *config.Config) error {
	var missing []string
	if strings.TrimSpace(cfg.Uploader) == "" {
		missing = append(missing, "uploader")
	}
	if strings.TrimSpace(cfg.Podcast) == "" {
		missing = append(missing, "podcast")
	}
	if len(missing) > 0 {
		return errors.NewInvalidRequest("config: " + strings.Join(missing, " and ") + " must be set")
	}
	return nil
}

// SyncWith runs engine under the store lock and records the pass in the
// ledger. Ledger failures are logged and do not affect the pass.
func SyncWith(ctx context.Context, svc *Services, engine *reconcile.Engine) (*SyncOutput, error) {
	unlock, err := svc.Store.Lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := unlock(); err != nil {
			svc.Logger.Warn("cannot release store lock", logging.Err(err))
		}
	}()

	var run *db.Run
	if svc.DB != nil {
		run, err = db.StartRun(ctx, svc.DB)
		if err != nil {
			svc.Logger.Warn("ledger: cannot start run", logging.Err(err))
			run = nil
		}
	}

	if run != nil {
		engine.Observe(func(res reconcile.Result) {
			for _, d := range res.Deliveries {
				row := &db.Delivery{
					RunID:      run.ID,
					Identifier: res.Identifier,
					Channel:    d.Channel,
					OK:         d.OK,
					Error:      d.Error,
				}
				if err := db.InsertDelivery(context.WithoutCancel(ctx), svc.DB, row); err != nil {
					svc.Logger.Warn("ledger: cannot record delivery",
						"identifier", res.Identifier, "channel", d.Channel, logging.Err(err))
				}
			}
		})
	}

	report, runErr := engine.Run(ctx)

	output := &SyncOutput{
		Unchanged: report.Count(reconcile.Unchanged),
		Updated:   report.Count(reconcile.Updated),
		Published: report.Count(reconcile.Published),
		Skipped:   report.Count(reconcile.Skipped),
		Report:    report,
	}

	if run != nil {
		output.RunID = run.ID
		run.Entries = report.Entries
		run.Unchanged = output.Unchanged
		run.Updated = output.Updated
		run.Published = output.Published
		run.Skipped = output.Skipped
		run.Truncated = report.Truncated
		// Ledger writes outlive a canceled pass.
		if err := db.FinishRun(context.WithoutCancel(ctx), svc.DB, run); err != nil {
			svc.Logger.Warn("ledger: cannot finish run", "run_id", run.ID, logging.Err(err))
		}
	}

	return output, runErr
}
