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
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
)

func testTwilioClient() *TwilioClient {
	return NewTwilioClient(&config.TwilioConfig{
		AccountSid:     "AC_test",
		AuthToken:      "secret",
		ApiBase:        "https://api.twilio.test",
		RequestTimeout: 5,
	})
}

func TestListCallsSendsWindowAndAuth(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	var gotAuth string
	var gotQuery map[string]string
	httpmock.RegisterResponder("GET", "https://api.twilio.test/2010-04-01/Accounts/AC_test/Calls.json",
		func(req *http.Request) (*http.Response, error) {
			gotAuth = req.Header.Get("Authorization")
			gotQuery = map[string]string{}
			for key := range req.URL.Query() {
				gotQuery[key] = req.URL.Query().Get(key)
			}
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"calls": []map[string]string{
					{"sid": "CA_1", "status": "completed", "from": "+1500", "to": "+1600", "duration": "30"},
				},
				"next_page_uri": "/2010-04-01/Accounts/AC_test/Calls.json?PageSize=50&Page=1&PageToken=PACA_1",
			})
		})

	from := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(5 * time.Minute)
	page, err := testTwilioClient().ListCalls(context.Background(), from, to, 50, "")
	assert.NoError(t, err)
	assert.Len(t, page.Calls, 1)
	assert.Equal(t, "CA_1", page.Calls[0].Sid)
	assert.Equal(t, "PACA_1", page.NextPageToken)

	assert.NotEmpty(t, gotAuth)
	assert.Contains(t, gotAuth, "Basic ")
	assert.Equal(t, "2025-06-01T00:00:00Z", gotQuery["StartTime>"])
	assert.Equal(t, "2025-06-01T00:05:00Z", gotQuery["StartTime<"])
	assert.Equal(t, "50", gotQuery["PageSize"])
	assert.NotContains(t, gotQuery, "PageToken")
}

func TestListCallsLastPageHasNoToken(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.twilio.test/2010-04-01/Accounts/AC_test/Calls.json",
		func(req *http.Request) (*http.Response, error) {
			assert.Equal(t, "PACA_1", req.URL.Query().Get("PageToken"))
			return httpmock.NewJsonResponse(200, map[string]interface{}{
				"calls":         []map[string]string{},
				"next_page_uri": "",
			})
		})

	page, err := testTwilioClient().ListCalls(context.Background(), time.Now().Add(-time.Hour), time.Now(), 50, "PACA_1")
	assert.NoError(t, err)
	assert.Empty(t, page.Calls)
	assert.Empty(t, page.NextPageToken)
}

func TestListCallsSurfacesAPIErrors(t *testing.T) {
	httpmock.Activate()
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", "https://api.twilio.test/2010-04-01/Accounts/AC_test/Calls.json",
		httpmock.NewStringResponder(429, `{"message":"Too Many Requests"}`))

	_, err := testTwilioClient().ListCalls(context.Background(), time.Now().Add(-time.Hour), time.Now(), 50, "")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestReconcilePayloadMirrorsWebhookShape(t *testing.T) {
	record := CallRecord{
		Sid:           "CA_child",
		ParentCallSid: "CA_root",
		Status:        "completed",
		From:          "+15551230001",
		To:            "+15559870002",
		StartTime:     "Mon, 02 Jun 2025 10:00:00 +0000",
		EndTime:       "Mon, 02 Jun 2025 10:01:30 +0000",
		Duration:      "90",
	}

	payload := record.ReconcilePayload()
	assert.Equal(t, "CA_child", payload["CallSid"])
	assert.Equal(t, "CA_root", payload["ParentCallSid"])
	assert.Equal(t, "completed", payload["CallStatus"])
	assert.Equal(t, "90", payload["CallDuration"])
	assert.Equal(t, record.EndTime, payload["Timestamp"])

	// A call with no end time falls back to its start time.
	record.EndTime = ""
	assert.Equal(t, record.StartTime, record.ReconcilePayload()["Timestamp"])

	// Root records carry no parent key at all.
	record.ParentCallSid = ""
	assert.NotContains(t, record.ReconcilePayload(), "ParentCallSid")
}
