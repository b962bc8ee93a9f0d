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
	"database/sql"
	"net/http"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

func newTestCallSync(t *testing.T) (*CallSync, sqlmock.Sqlmock) {
	t.Helper()
	datasource, mock, _ := newTestDataSource(t)

	conf, err := config.Fetch()
	if err != nil {
		t.Fatalf("config not loaded: %s", err)
	}

	return &CallSync{
		queue:      NewQueue(conf),
		datasource: datasource,
	}, mock
}

func TestIngestRejectsMalformedPayload(t *testing.T) {
	s, mock := newTestCallSync(t)

	result, err := s.Ingest(context.Background(), model.SourceVoice, map[string]string{
		"CallStatus": "ringing",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, IngestRejected, result.Status)
	assert.NotEmpty(t, result.Reason)

	// Nothing may touch storage for a rejected payload.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestIngestAcceptsAndJournalsEvent(t *testing.T) {
	s, mock := newTestCallSync(t)

	mock.ExpectQuery("INSERT INTO raw_events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	payload := map[string]string{
		"CallSid":    "CA123",
		"CallStatus": "ringing",
		"From":       "+15551230001",
		"To":         "+15559876543",
		"Timestamp":  "Mon, 15 Nov 2023 10:00:00 +0000",
	}

	result, err := s.Ingest(context.Background(), model.SourceVoice, payload, nil)
	assert.NoError(t, err)
	assert.Equal(t, IngestAccepted, result.Status)
	// No idempotency token supplied, so the composite key is used.
	assert.Contains(t, result.EventKey, "voice:CA123:ringing:")

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}

func TestIngestPrefersIdempotencyToken(t *testing.T) {
	s, mock := newTestCallSync(t)

	mock.ExpectQuery("INSERT INTO raw_events").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))

	headers := http.Header{}
	headers.Set(IdempotencyHeader, "tok-8843")

	result, err := s.Ingest(context.Background(), model.SourceVoice, map[string]string{
		"CallSid":    "CA123",
		"CallStatus": "ringing",
	}, headers)

	assert.NoError(t, err)
	assert.Equal(t, IngestAccepted, result.Status)
	assert.Equal(t, "tok-8843", result.EventKey)
}

// A replayed delivery of the same event key is a silent no-op for the
// caller, never an error.
func TestIngestDuplicateIsNoOp(t *testing.T) {
	s, mock := newTestCallSync(t)

	mock.ExpectQuery("INSERT INTO raw_events").
		WillReturnError(sql.ErrNoRows)

	result, err := s.Ingest(context.Background(), model.SourceVoice, map[string]string{
		"CallSid":    "CA123",
		"CallStatus": "completed",
		"Timestamp":  "Mon, 15 Nov 2023 10:00:00 +0000",
	}, nil)

	assert.NoError(t, err)
	assert.Equal(t, IngestDuplicate, result.Status)

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("there were unfulfilled expectations: %s", err)
	}
}
