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
	"embed"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
	"github.com/help-netizen/twilio-front-integration-sub004/database"
	redis_db "github.com/help-netizen/twilio-front-integration-sub004/internal/redis-db"
)

var tracer = otel.Tracer("callsync")

//go:embed sql/*.sql
var SQLFiles embed.FS

// CallSync is the reconciliation core: it ingests provider call events,
// maintains per-leg snapshots, aggregates legs into interactions and keeps
// the provider's pull API and the live webhook stream converged on one
// state.
type CallSync struct {
	queue      *Queue
	redis      redis.UniversalClient
	datasource database.IDataSource
	twilio     *TwilioClient

	// Owned identifiers, injected from configuration. Used by direction
	// derivation when the payload carries no endpoint metadata.
	ownedNumbers map[string]struct{}
	sipDomain    string
}

// NewCallSync initializes the service with the provided datasource,
// wiring the Redis queue and the provider pull client from configuration.
func NewCallSync(db database.IDataSource) (*CallSync, error) {
	configuration, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	redisClient, err := redis_db.NewRedisClient(configuration.Redis.Dns)
	if err != nil {
		return nil, err
	}
	newQueue := NewQueue(configuration)

	owned := make(map[string]struct{}, len(configuration.Twilio.OwnedNumbers))
	for _, n := range configuration.Twilio.OwnedNumbers {
		n = strings.TrimSpace(n)
		if n != "" {
			owned[n] = struct{}{}
		}
	}

	return &CallSync{
		queue:        newQueue,
		redis:        redisClient.Client(),
		datasource:   db,
		twilio:       NewTwilioClient(&configuration.Twilio),
		ownedNumbers: owned,
		sipDomain:    configuration.Twilio.SipDomain,
	}, nil
}

// Datasource exposes the storage layer to the API package.
func (s *CallSync) Datasource() database.IDataSource {
	return s.datasource
}
