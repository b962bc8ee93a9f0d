/*
Copyright 2025 Help Netizen Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package callsync

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
	"github.com/help-netizen/twilio-front-integration-sub004/database"
	redlock "github.com/help-netizen/twilio-front-integration-sub004/internal/lock"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

const (
	JobReconcileHot  = "hot"
	JobReconcileWarm = "warm"
	JobReconcileCold = "cold"

	reconcileLeaseTTL = 10 * time.Minute
)

var reconcileSources = map[string]model.EventSource{
	JobReconcileHot:  model.SourceReconcileHot,
	JobReconcileWarm: model.SourceReconcileWarm,
	JobReconcileCold: model.SourceReconcileCold,
}

// reconcileState is what the cursor column actually stores: the window
// being walked and the continuation token inside it. An empty cursor means
// the previous window completed and the next run opens a fresh one.
type reconcileState struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	PageToken   string    `json:"page_token"`
}

// RunReconciliation executes one scheduled run of the named pull job. Each
// run holds a lease over the job so the cursor is never advanced
// concurrently, pages through the provider's call list, and pushes every
// record through the same ingest path live webhooks use. The cursor
// advances only after a page is fully journaled; a failed page is retried
// on the next scheduled run from the same cursor.
func (s *CallSync) RunReconciliation(ctx context.Context, jobName string) error {
	ctx, span := tracer.Start(ctx, "Running Reconciliation Job")
	defer span.End()

	source, ok := reconcileSources[jobName]
	if !ok {
		return errors.Errorf("unknown reconciliation job %q", jobName)
	}
	conf, err := config.Fetch()
	if err != nil {
		return err
	}
	tier := tierFor(conf, jobName)

	locker := redlock.NewLocker(s.redis, "reconcile:"+jobName, database.GenerateUUIDWithSuffix("lease"))
	if err := locker.Lock(ctx, reconcileLeaseTTL); err != nil {
		logrus.WithField("job", jobName).Info("reconciliation run skipped, lease held elsewhere")
		return nil
	}
	defer func() {
		if err := locker.Unlock(context.Background()); err != nil {
			logrus.Warnf("failed to release reconciliation lease for %s: %v", jobName, err)
		}
	}()

	cursor, err := s.datasource.GetSyncCursor(ctx, jobName)
	if err != nil {
		return err
	}
	state, err := decodeReconcileState(cursor.Cursor, tier)
	if err != nil {
		// A cursor we cannot read is unrecoverable by retrying it.
		logrus.WithField("job", jobName).Warnf("discarding unreadable cursor: %v", err)
		state = newWindow(tier)
	}

	for {
		select {
		case <-ctx.Done():
			// Resumes from the last persisted cursor on the next run.
			return ctx.Err()
		default:
		}

		page, err := s.fetchPageWithBackoff(ctx, state, tier)
		if err != nil {
			if recordErr := s.datasource.RecordSyncError(ctx, jobName, err.Error()); recordErr != nil {
				logrus.Errorf("failed to record sync error for %s: %v", jobName, recordErr)
			}
			return errors.Wrapf(err, "reconciliation %s stopped without advancing", jobName)
		}

		for _, record := range page.Calls {
			result, err := s.Ingest(ctx, source, record.ReconcilePayload(), nil)
			if err != nil {
				if recordErr := s.datasource.RecordSyncError(ctx, jobName, err.Error()); recordErr != nil {
					logrus.Errorf("failed to record sync error for %s: %v", jobName, recordErr)
				}
				return errors.Wrapf(err, "reconciliation %s stopped without advancing", jobName)
			}
			if result.Status == IngestRejected {
				logrus.WithFields(logrus.Fields{
					"job":      jobName,
					"call_sid": record.Sid,
				}).Warnf("pull record rejected: %s", result.Reason)
			}
		}

		if page.NextPageToken == "" {
			// Window done. Clear the cursor so the next run opens a new one.
			if err := s.datasource.SaveSyncCursor(ctx, jobName, ""); err != nil {
				return err
			}
			logrus.WithFields(logrus.Fields{
				"job":    jobName,
				"window": state.WindowEnd.Sub(state.WindowStart).String(),
			}).Info("reconciliation window completed")
			return nil
		}

		state.PageToken = page.NextPageToken
		encoded, err := json.Marshal(state)
		if err != nil {
			return err
		}
		if err := s.datasource.SaveSyncCursor(ctx, jobName, string(encoded)); err != nil {
			return err
		}
	}
}

func (s *CallSync) fetchPageWithBackoff(ctx context.Context, state reconcileState, tier config.ReconciliationTier) (*CallPage, error) {
	var page *CallPage
	operation := func() error {
		var err error
		page, err = s.twilio.ListCalls(ctx, state.WindowStart, state.WindowEnd, tier.PageSize, state.PageToken)
		return err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return page, nil
}

func decodeReconcileState(cursor string, tier config.ReconciliationTier) (reconcileState, error) {
	if cursor == "" {
		return newWindow(tier), nil
	}
	var state reconcileState
	if err := json.Unmarshal([]byte(cursor), &state); err != nil {
		return reconcileState{}, err
	}
	if state.WindowStart.IsZero() || state.WindowEnd.IsZero() {
		return reconcileState{}, errors.New("cursor window is incomplete")
	}
	return state, nil
}

func newWindow(tier config.ReconciliationTier) reconcileState {
	now := time.Now().UTC()
	return reconcileState{
		WindowStart: now.Add(-time.Duration(tier.LookbackSec) * time.Second),
		WindowEnd:   now,
	}
}

func tierFor(conf *config.Configuration, jobName string) config.ReconciliationTier {
	switch jobName {
	case JobReconcileWarm:
		return conf.Reconciliation.Warm
	case JobReconcileCold:
		return conf.Reconciliation.Cold
	default:
		return conf.Reconciliation.Hot
	}
}
