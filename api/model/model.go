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
package model

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/help-netizen/twilio-front-integration-sub004/database"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// ListInteractionsQuery carries the query string of GET /interactions.
type ListInteractionsQuery struct {
	Outcome string `form:"outcome"`
	From    string `form:"from"`
	To      string `form:"to"`
	Limit   int    `form:"limit"`
	Offset  int    `form:"offset"`
}

func (q *ListInteractionsQuery) ValidateListInteractionsQuery() error {
	return validation.ValidateStruct(q,
		validation.Field(&q.Outcome, validation.In(
			string(model.OutcomeAnswered),
			string(model.OutcomeMissed),
			string(model.OutcomeAbandoned),
			string(model.OutcomeInProgress),
		)),
		validation.Field(&q.From, validation.By(optionalRFC3339(q.From))),
		validation.Field(&q.To, validation.By(optionalRFC3339(q.To))),
		validation.Field(&q.Limit, validation.Min(0), validation.Max(500)),
		validation.Field(&q.Offset, validation.Min(0)),
	)
}

func optionalRFC3339(value string) validation.RuleFunc {
	return func(interface{}) error {
		if value == "" {
			return nil
		}
		if _, err := time.Parse(time.RFC3339, value); err != nil {
			return errors.New("please format timestamps as RFC3339 (e.g., 2024-04-22T15:28:03Z)")
		}
		return nil
	}
}

// ToFilter converts the validated query into a storage filter.
func (q *ListInteractionsQuery) ToFilter() database.InteractionFilter {
	filter := database.InteractionFilter{
		Outcome: model.Outcome(q.Outcome),
		Limit:   q.Limit,
		Offset:  q.Offset,
	}
	if q.From != "" {
		filter.From, _ = time.Parse(time.RFC3339, q.From)
	}
	if q.To != "" {
		filter.To, _ = time.Parse(time.RFC3339, q.To)
	}
	return filter
}
