package config

import (
	"encoding/json"
	"os"
	"testing"
)

func TestValidateAndAddDefaults(t *testing.T) {
	// Test case with empty DataSource DNS
	cnf := Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err := cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "data source DNS is required" {
		t.Errorf("Expected data source DNS required error, got %v", err)
	}

	cnf = Configuration{
		ProjectName: "",
		DataSource: DataSourceConfig{
			Dns: "postgres://localhost:5432",
		},
		Redis: RedisConfig{
			Dns: "",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err == nil || err.Error() != "redis DNS is required" {
		t.Errorf("Expected redis DNS required error, got %v", err)
	}

	// Test case with all required fields filled, expect no error
	cnf = Configuration{
		ProjectName: "Test Project",
		DataSource: DataSourceConfig{
			Dns: "some-dns",
		},
		Redis: RedisConfig{
			Dns: "localhost:6379",
		},
	}

	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}

	// Test default port setting
	cnf.Server.Port = ""
	err = cnf.validateAndAddDefaults()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if cnf.Server.Port != DEFAULT_PORT {
		t.Errorf("Expected default port %s, got %s", DEFAULT_PORT, cnf.Server.Port)
	}
}

func TestQueueAndPullDefaults(t *testing.T) {
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cnf.Queue.EventQueue != "new:event" {
		t.Errorf("Expected default event queue 'new:event', got '%s'", cnf.Queue.EventQueue)
	}
	if cnf.Queue.NumberOfQueues != 4 {
		t.Errorf("Expected 4 queue partitions, got %d", cnf.Queue.NumberOfQueues)
	}
	if cnf.Queue.MaxRetryAttempts != 5 {
		t.Errorf("Expected 5 retry attempts, got %d", cnf.Queue.MaxRetryAttempts)
	}
	if cnf.Twilio.ApiBase != "https://api.twilio.com" {
		t.Errorf("Expected default api base, got '%s'", cnf.Twilio.ApiBase)
	}

	// The three pull tiers each get their own cadence, lookback and page size.
	if cnf.Reconciliation.Hot.Schedule != "@every 30s" || cnf.Reconciliation.Hot.LookbackSec != 300 || cnf.Reconciliation.Hot.PageSize != 50 {
		t.Errorf("Unexpected hot tier defaults: %+v", cnf.Reconciliation.Hot)
	}
	if cnf.Reconciliation.Warm.Schedule != "@every 5m" || cnf.Reconciliation.Warm.LookbackSec != 10800 || cnf.Reconciliation.Warm.PageSize != 200 {
		t.Errorf("Unexpected warm tier defaults: %+v", cnf.Reconciliation.Warm)
	}
	if cnf.Reconciliation.Cold.Schedule != "@every 1h" || cnf.Reconciliation.Cold.LookbackSec != 259200 || cnf.Reconciliation.Cold.PageSize != 500 {
		t.Errorf("Unexpected cold tier defaults: %+v", cnf.Reconciliation.Cold)
	}

	// Explicit tier settings survive the defaults pass untouched.
	cnf.Reconciliation.Hot = ReconciliationTier{Schedule: "@every 10s", LookbackSec: 60, PageSize: 25}
	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cnf.Reconciliation.Hot.LookbackSec != 60 {
		t.Errorf("Expected explicit lookback 60, got %d", cnf.Reconciliation.Hot.LookbackSec)
	}
}

func TestRateLimitDefaults(t *testing.T) {
	rps := 10.0
	cnf := Configuration{
		DataSource: DataSourceConfig{Dns: "some-dns"},
		Redis:      RedisConfig{Dns: "localhost:6379"},
		RateLimit:  RateLimitConfig{RequestsPerSecond: &rps},
	}

	if err := cnf.validateAndAddDefaults(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if cnf.RateLimit.Burst == nil || *cnf.RateLimit.Burst != 20 {
		t.Errorf("Expected derived burst of 20, got %v", cnf.RateLimit.Burst)
	}
	if cnf.RateLimit.CleanupIntervalSec == nil || *cnf.RateLimit.CleanupIntervalSec != 10800 {
		t.Errorf("Expected default cleanup interval, got %v", cnf.RateLimit.CleanupIntervalSec)
	}
}

func TestLoadConfigFromFile(t *testing.T) {
	// Create a temporary file
	tmpFile, err := os.CreateTemp("", "callsync.json")
	if err != nil {
		t.Fatalf("Unable to create temporary file: %v", err)
	}
	defer os.Remove(tmpFile.Name()) // Clean up after the test

	// Sample configuration to write to the temp file
	sampleConfig := Configuration{
		ProjectName: "Temp Project",
		DataSource: DataSourceConfig{
			Dns: "temp-dns",
		},
		Redis: RedisConfig{
			Dns: "temp-redis",
		},
	}
	if err := json.NewEncoder(tmpFile).Encode(sampleConfig); err != nil {
		t.Fatalf("Unable to write to temporary file: %v", err)
	}
	tmpFile.Close() // Close the file so loadConfigFromFile can open it

	// Set an environment variable to override the project name
	os.Setenv("CALLSYNC_PROJECT_NAME", "Env Project")
	defer os.Unsetenv("CALLSYNC_PROJECT_NAME") // Clean up after the test

	// Load the configuration from the file
	if err := loadConfigFromFile(tmpFile.Name()); err != nil {
		t.Fatalf("loadConfigFromFile failed: %v", err)
	}

	// Fetch the loaded configuration
	loadedConfig, err := Fetch()
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}

	// Check if the environment variable override worked
	if loadedConfig.ProjectName != "Env Project" {
		t.Errorf("Expected ProjectName to be 'Env Project', got '%s'", loadedConfig.ProjectName)
	}

	// Check if the DNS was loaded correctly from the file
	if loadedConfig.DataSource.Dns != "temp-dns" {
		t.Errorf("Expected DataSource.Dns to be 'temp-dns', got '%s'", loadedConfig.DataSource.Dns)
	}
}
