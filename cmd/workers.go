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
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	callsync "github.com/help-netizen/twilio-front-integration-sub004"
	"github.com/help-netizen/twilio-front-integration-sub004/config"
	redis_db "github.com/help-netizen/twilio-front-integration-sub004/internal/redis-db"
	"github.com/help-netizen/twilio-front-integration-sub004/model"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

// processEvent applies one queued provider event. Event queues run with
// concurrency 1, so events of one interaction never race; a failing event
// is retried by asynq until the retry budget is spent, then parked in the
// dead letter state for manual replay.
func (b *callsyncInstance) processEvent(ctx context.Context, t *asynq.Task) error {
	var evt model.RawEvent
	if err := json.Unmarshal(t.Payload(), &evt); err != nil {
		logrus.Error(err)
		return err
	}

	err := b.callsync.ProcessEvent(ctx, &evt)
	if err != nil {
		retryCount, _ := asynq.GetRetryCount(ctx)
		if retryCount >= b.cnf.Queue.MaxRetryAttempts {
			if dlErr := b.callsync.MarkEventDeadLetter(ctx, evt.EventKey, err); dlErr != nil {
				logrus.Errorf("failed to park event %s: %v", evt.EventKey, dlErr)
			}
			return nil
		}
		if _, attErr := b.callsync.Datasource().IncrementEventAttempts(ctx, evt.EventKey); attErr != nil {
			logrus.Errorf("failed to record attempt for %s: %v", evt.EventKey, attErr)
		}
		logrus.Infof("Event %s pushed back for retry due to error: %v", evt.EventKey, err)
		return err
	}

	log.Println(" [*] Event Processed", evt.EventKey)
	return nil
}

// workerServerPlan describes one asynq server: the queues it consumes and
// how many workers it runs.
type workerServerPlan struct {
	queues      map[string]int
	concurrency int
}

// planWorkerServers gives every event partition its own single-worker
// server so ordering holds inside a partition while partitions drain
// independently. The webhook queue gets a wider server of its own; a slow
// event never delays notification delivery.
func planWorkerServers(cfg *config.Configuration) []workerServerPlan {
	var plans []workerServerPlan
	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.EventQueue, i)
		plans = append(plans, workerServerPlan{
			queues:      map[string]int{queueName: 1},
			concurrency: 1,
		})
	}
	plans = append(plans, workerServerPlan{
		queues:      map[string]int{cfg.Queue.WebhookQueue: 1},
		concurrency: 3,
	})
	return plans
}

func initializeWorkerServers(conf *config.Configuration) ([]*asynq.Server, error) {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		return nil, fmt.Errorf("error parsing Redis URL: %v", err)
	}
	clientOpt := asynq.RedisClientOpt{
		Addr:      redisOption.Addr,
		Password:  redisOption.Password,
		DB:        redisOption.DB,
		TLSConfig: redisOption.TLSConfig,
	}

	var servers []*asynq.Server
	for _, plan := range planWorkerServers(conf) {
		servers = append(servers, asynq.NewServer(clientOpt, asynq.Config{
			Concurrency: plan.concurrency,
			Queues:      plan.queues,
		}))
	}
	return servers, nil
}

func initializeTaskHandlers(b *callsyncInstance, mux *asynq.ServeMux) {
	cfg, err := config.Fetch()
	if err != nil {
		log.Printf("Error fetching config, using defaults: %v", err)
		return
	}

	// Register handlers for event queues
	for i := 1; i <= cfg.Queue.NumberOfQueues; i++ {
		queueName := fmt.Sprintf("%s_%d", cfg.Queue.EventQueue, i)
		mux.HandleFunc(queueName, b.processEvent)
	}

	mux.HandleFunc(cfg.Queue.WebhookQueue, callsync.ProcessWebhook)
}

// startReconciliationJobs schedules the three pull jobs. Each run takes a
// lease before touching its cursor, so overlapping ticks and multiple
// worker processes are safe.
func startReconciliationJobs(ctx context.Context, b *callsyncInstance) (*cron.Cron, error) {
	c := cron.New()

	jobs := map[string]string{
		callsync.JobReconcileHot:  b.cnf.Reconciliation.Hot.Schedule,
		callsync.JobReconcileWarm: b.cnf.Reconciliation.Warm.Schedule,
		callsync.JobReconcileCold: b.cnf.Reconciliation.Cold.Schedule,
	}
	for jobName, schedule := range jobs {
		jobName := jobName
		_, err := c.AddFunc(schedule, func() {
			if err := b.callsync.RunReconciliation(ctx, jobName); err != nil {
				logrus.Errorf("reconciliation %s run failed: %v", jobName, err)
			}
		})
		if err != nil {
			return nil, fmt.Errorf("error scheduling %s reconciliation: %v", jobName, err)
		}
	}

	c.Start()
	return c, nil
}

// workerCommands defines the "workers" command: the event consumers, the
// webhook dispatcher and the reconciliation schedules all live in this
// process.
func workerCommands(b *callsyncInstance) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workers",
		Short: "start callsync workers",
		Run: func(cmd *cobra.Command, args []string) {
			ctx := context.Background()

			conf, err := config.Fetch()
			if err != nil {
				log.Fatal("Error fetching config:", err)
			}

			servers, err := initializeWorkerServers(conf)
			if err != nil {
				log.Fatal(err)
			}

			mux := asynq.NewServeMux()
			initializeTaskHandlers(b, mux)

			scheduler, err := startReconciliationJobs(ctx, b)
			if err != nil {
				log.Fatal(err)
			}
			defer scheduler.Stop()

			// Start asynqmon server for health checks and monitoring
			redisOption, _ := redis_db.ParseRedisURL(conf.Redis.Dns)
			h := asynqmon.New(asynqmon.Options{
				RootPath: "/monitoring",
				RedisConnOpt: asynq.RedisClientOpt{
					Addr:      redisOption.Addr,
					Password:  redisOption.Password,
					DB:        redisOption.DB,
					TLSConfig: redisOption.TLSConfig,
				},
			})

			go func() {
				monitoringAddr := fmt.Sprintf(":%s", conf.Queue.MonitoringPort)
				log.Printf("Asynqmon server listening on %s/monitoring", monitoringAddr)
				if err := http.ListenAndServe(monitoringAddr, h); err != nil {
					log.Fatalf("could not start asynqmon server: %v", err)
				}
			}()

			for _, srv := range servers[:len(servers)-1] {
				if err := srv.Start(mux); err != nil {
					log.Fatalf("could not start worker server: %v", err)
				}
			}
			if err := servers[len(servers)-1].Run(mux); err != nil {
				log.Fatalf("could not run server: %v", err)
			}
		},
	}

	return cmd
}
