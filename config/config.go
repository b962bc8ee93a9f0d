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
package config

import (
	"encoding/json"
	"errors"
	"log"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/sirupsen/logrus"
)

const (
	DEFAULT_PORT = "5002"
)

var ConfigStore atomic.Value

type ServerConfig struct {
	Secure    bool   `json:"secure" envconfig:"CALLSYNC_SERVER_SECURE"`
	SecretKey string `json:"secret_key" envconfig:"CALLSYNC_SERVER_SECRET_KEY"`
	Port      string `json:"port" envconfig:"CALLSYNC_SERVER_PORT"`
}

type DataSourceConfig struct {
	Dns string `json:"dns" envconfig:"CALLSYNC_DATA_SOURCE_DNS"`
}

type RedisConfig struct {
	Dns string `json:"dns" envconfig:"CALLSYNC_REDIS_DNS"`
}

// TwilioConfig carries the credentials and endpoint for the provider's pull
// API plus the statically configured set of owned identifiers used for
// direction derivation when the payload has no endpoint metadata.
type TwilioConfig struct {
	AccountSid     string   `json:"account_sid" envconfig:"CALLSYNC_TWILIO_ACCOUNT_SID"`
	AuthToken      string   `json:"auth_token" envconfig:"CALLSYNC_TWILIO_AUTH_TOKEN"`
	ApiBase        string   `json:"api_base" envconfig:"CALLSYNC_TWILIO_API_BASE"`
	RequestTimeout int      `json:"request_timeout_sec" envconfig:"CALLSYNC_TWILIO_REQUEST_TIMEOUT_SEC"`
	OwnedNumbers   []string `json:"owned_numbers" envconfig:"CALLSYNC_TWILIO_OWNED_NUMBERS"`
	SipDomain      string   `json:"sip_domain" envconfig:"CALLSYNC_TWILIO_SIP_DOMAIN"`
}

type QueueConfig struct {
	EventQueue       string `json:"event_queue" envconfig:"CALLSYNC_QUEUE_EVENT_QUEUE"`
	NumberOfQueues   int    `json:"number_of_queues" envconfig:"CALLSYNC_QUEUE_NUMBER_OF_QUEUES"`
	WebhookQueue     string `json:"webhook_queue" envconfig:"CALLSYNC_QUEUE_WEBHOOK_QUEUE"`
	MaxRetryAttempts int    `json:"max_retry_attempts" envconfig:"CALLSYNC_QUEUE_MAX_RETRY_ATTEMPTS"`
	MonitoringPort   string `json:"monitoring_port" envconfig:"CALLSYNC_QUEUE_MONITORING_PORT"`
}

// ReconciliationTier is one of the three pull jobs. They differ only in
// how far back they look and how often they run.
type ReconciliationTier struct {
	Schedule    string `json:"schedule"`
	LookbackSec int    `json:"lookback_sec"`
	PageSize    int    `json:"page_size"`
}

type ReconciliationConfig struct {
	Hot  ReconciliationTier `json:"hot"`
	Warm ReconciliationTier `json:"warm"`
	Cold ReconciliationTier `json:"cold"`
}

type RateLimitConfig struct {
	RequestsPerSecond  *float64 `json:"requests_per_second" envconfig:"CALLSYNC_RATE_LIMIT_RPS"`
	Burst              *int     `json:"burst" envconfig:"CALLSYNC_RATE_LIMIT_BURST"`
	CleanupIntervalSec *int     `json:"cleanup_interval_sec" envconfig:"CALLSYNC_RATE_LIMIT_CLEANUP_INTERVAL_SEC"`
}

type SlackWebhook struct {
	WebhookUrl string `json:"webhook_url"`
}

type WebhookNotification struct {
	Url     string            `json:"url"`
	Headers map[string]string `json:"headers"`
}

type Notification struct {
	Slack   SlackWebhook        `json:"slack"`
	Webhook WebhookNotification `json:"webhook"`
}

type Configuration struct {
	ProjectName    string               `json:"project_name" envconfig:"CALLSYNC_PROJECT_NAME"`
	Server         ServerConfig         `json:"server"`
	DataSource     DataSourceConfig     `json:"data_source"`
	Redis          RedisConfig          `json:"redis"`
	Twilio         TwilioConfig         `json:"twilio"`
	Queue          QueueConfig          `json:"queue"`
	Reconciliation ReconciliationConfig `json:"reconciliation"`
	Notification   Notification         `json:"notification"`
	RateLimit      RateLimitConfig      `json:"rate_limit"`
}

func loadConfigFromFile(file string) error {
	var cnf Configuration
	_, err := os.Stat(file)
	if err == nil {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		err = json.NewDecoder(f).Decode(&cnf)
		if err != nil {
			return err
		}
	} else if errors.Is(err, os.ErrNotExist) {
		log.Println("config json not passed, will use env variables")
	}

	// override config from environment variables
	err = envconfig.Process("callsync", &cnf)
	if err != nil {
		return err
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		return err
	}

	ConfigStore.Store(&cnf)
	return err
}

func InitConfig(configFile string) error {
	logger()
	return loadConfigFromFile(configFile)
}

func Fetch() (*Configuration, error) {
	config := ConfigStore.Load()
	c, ok := config.(*Configuration)
	if !ok {
		return nil, errors.New("config not loaded from file. Create a json file called callsync.json with your config")
	}
	return c, nil
}

func (cnf *Configuration) validateAndAddDefaults() error {
	if cnf.ProjectName == "" {
		log.Println("Warning: Project name is empty. Setting a default name.")
		cnf.ProjectName = "Callsync Server"
	}

	if cnf.DataSource.Dns == "" {
		log.Println("Error: Data source DNS is empty. It's a required field.")
		return errors.New("data source DNS is required")
	}

	if cnf.Redis.Dns == "" {
		log.Println("Error: Redis DNS is empty. It's a required field.")
		return errors.New("redis DNS is required")
	}

	// Trim white spaces from fields
	cnf.ProjectName = strings.TrimSpace(cnf.ProjectName)
	cnf.Server.Port = strings.TrimSpace(cnf.Server.Port)
	cnf.DataSource.Dns = strings.TrimSpace(cnf.DataSource.Dns)
	cnf.Redis.Dns = strings.TrimSpace(cnf.Redis.Dns)
	cnf.Twilio.ApiBase = strings.TrimSpace(cnf.Twilio.ApiBase)

	if cnf.Server.Port == "" {
		cnf.Server.Port = DEFAULT_PORT
		log.Printf("Warning: Port not specified in config. Setting default port: %s", DEFAULT_PORT)
	}

	if cnf.Twilio.ApiBase == "" {
		cnf.Twilio.ApiBase = "https://api.twilio.com"
	}
	if cnf.Twilio.RequestTimeout <= 0 {
		cnf.Twilio.RequestTimeout = 15
	}

	if cnf.Queue.EventQueue == "" {
		cnf.Queue.EventQueue = "new:event"
	}
	if cnf.Queue.WebhookQueue == "" {
		cnf.Queue.WebhookQueue = "new:webhook"
	}
	if cnf.Queue.NumberOfQueues <= 0 {
		cnf.Queue.NumberOfQueues = 4
	}
	if cnf.Queue.MaxRetryAttempts <= 0 {
		cnf.Queue.MaxRetryAttempts = 5
	}
	if cnf.Queue.MonitoringPort == "" {
		cnf.Queue.MonitoringPort = "5004"
	}

	applyTierDefaults(&cnf.Reconciliation.Hot, "@every 30s", 5*time.Minute, 50)
	applyTierDefaults(&cnf.Reconciliation.Warm, "@every 5m", 3*time.Hour, 200)
	applyTierDefaults(&cnf.Reconciliation.Cold, "@every 1h", 72*time.Hour, 500)

	// Rate limiting is disabled by default (when both RPS and Burst are nil)
	if cnf.RateLimit.RequestsPerSecond != nil && cnf.RateLimit.Burst == nil {
		defaultBurst := 2 * int(*cnf.RateLimit.RequestsPerSecond)
		cnf.RateLimit.Burst = &defaultBurst
		log.Printf("Warning: Rate limit burst not specified. Setting default value: %d", defaultBurst)
	}
	if cnf.RateLimit.RequestsPerSecond == nil && cnf.RateLimit.Burst != nil {
		defaultRPS := float64(*cnf.RateLimit.Burst) / 2
		cnf.RateLimit.RequestsPerSecond = &defaultRPS
		log.Printf("Warning: Rate limit RPS not specified. Setting default value: %.2f", defaultRPS)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil {
		defaultCleanup := 10800 // 3 hours in seconds
		cnf.RateLimit.CleanupIntervalSec = &defaultCleanup
	}

	return nil
}

func applyTierDefaults(tier *ReconciliationTier, schedule string, lookback time.Duration, pageSize int) {
	if tier.Schedule == "" {
		tier.Schedule = schedule
	}
	if tier.LookbackSec <= 0 {
		tier.LookbackSec = int(lookback.Seconds())
	}
	if tier.PageSize <= 0 {
		tier.PageSize = pageSize
	}
}

// MockConfig sets a mock configuration for testing purposes.
func MockConfig(mockConfig *Configuration) {
	ConfigStore.Store(mockConfig)
}

func logger() {
	logger := logrus.New()
	log.SetOutput(logger.Writer())
}
