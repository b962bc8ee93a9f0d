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

package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
)

func TestPlanWorkerServersIsolatesPartitions(t *testing.T) {
	cfg := &config.Configuration{
		Queue: config.QueueConfig{
			EventQueue:     "new:event",
			WebhookQueue:   "new:webhook",
			NumberOfQueues: 4,
		},
	}

	plans := planWorkerServers(cfg)
	assert.Len(t, plans, 5)

	seen := make(map[string]bool)
	for _, plan := range plans[:4] {
		assert.Len(t, plan.queues, 1)
		assert.Equal(t, 1, plan.concurrency)
		for name := range plan.queues {
			seen[name] = true
		}
	}
	// All four event partitions get a server of their own; a slow task in
	// one cannot stall the others.
	assert.Equal(t, map[string]bool{
		"new:event_1": true,
		"new:event_2": true,
		"new:event_3": true,
		"new:event_4": true,
	}, seen)

	webhook := plans[4]
	assert.Equal(t, map[string]int{"new:webhook": 1}, webhook.queues)
	assert.Equal(t, 3, webhook.concurrency)
}
