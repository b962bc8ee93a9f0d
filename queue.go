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
	"fmt"
	"hash/fnv"
	"log"
	"time"

	"github.com/hibiken/asynq"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
	redis_db "github.com/help-netizen/twilio-front-integration-sub004/internal/redis-db"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// Queue hands accepted events to the worker process over Redis.
type Queue struct {
	Client    *asynq.Client
	Inspector *asynq.Inspector
}

// NewQueue initializes a new Queue instance with the provided configuration.
func NewQueue(conf *config.Configuration) *Queue {
	redisOption, err := redis_db.ParseRedisURL(conf.Redis.Dns)
	if err != nil {
		log.Fatalf("Error parsing Redis URL: %v", err)
	}

	queueOptions := asynq.RedisClientOpt{Addr: redisOption.Addr, Password: redisOption.Password, DB: redisOption.DB, TLSConfig: redisOption.TLSConfig}
	client := asynq.NewClient(queueOptions)
	inspector := asynq.NewInspector(queueOptions)
	return &Queue{
		Client:    client,
		Inspector: inspector,
	}
}

// Enqueue pushes an accepted raw event onto the queue partition owned by
// its interaction. All events sharing an interaction sid land on the same
// named queue and that queue is consumed serially, so Apply and Recompute
// for one interaction never race while unrelated interactions process in
// parallel.
func (q *Queue) Enqueue(ctx context.Context, evt *model.RawEvent, interactionSid string) error {
	ctx, span := tracer.Start(ctx, "Adding Event To Redis Queue")
	defer span.End()

	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	task, err := q.eventTask(evt, interactionSid, payload)
	if err != nil {
		return err
	}
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued event: %+v", evt.EventKey)
	return nil
}

// Replay re-enqueues a journaled event outside the dedupe gate. The task id
// is salted so asynq does not reject it as already processed; downstream
// application is idempotent, so re-running a completed event is harmless.
func (q *Queue) Replay(ctx context.Context, evt *model.RawEvent, interactionSid string) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	cfg, err := config.Fetch()
	if err != nil {
		return err
	}
	queueName := q.partitionName(cfg, interactionSid)
	taskID := fmt.Sprintf("%s:replay:%d", evt.EventKey, time.Now().UnixNano())
	task := asynq.NewTask(queueName, payload, asynq.TaskID(taskID), asynq.Queue(queueName), asynq.MaxRetry(cfg.Queue.MaxRetryAttempts))
	info, err := q.Client.EnqueueContext(ctx, task)
	if err != nil {
		log.Println(err, info)
		return err
	}
	log.Printf(" [*] Successfully enqueued replay: %+v", evt.EventKey)
	return nil
}

// eventTask routes the event to one of N queues by hashing the interaction
// sid, and reuses the event key as task id so the queue itself refuses a
// double enqueue of the same event.
func (q *Queue) eventTask(evt *model.RawEvent, interactionSid string, payload []byte) (*asynq.Task, error) {
	cfg, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	queueName := q.partitionName(cfg, interactionSid)

	taskOptions := []asynq.Option{
		asynq.TaskID(evt.EventKey),
		asynq.Queue(queueName),
		asynq.MaxRetry(cfg.Queue.MaxRetryAttempts),
	}
	return asynq.NewTask(queueName, payload, taskOptions...), nil
}

func (q *Queue) partitionName(cfg *config.Configuration, interactionSid string) string {
	queueIndex := hashInteractionSid(interactionSid) % cfg.Queue.NumberOfQueues
	return fmt.Sprintf("%s_%d", cfg.Queue.EventQueue, queueIndex+1)
}

// hashInteractionSid returns a consistent hash for an interaction sid.
func hashInteractionSid(interactionSid string) int {
	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(interactionSid))
	return int(hasher.Sum32())
}
