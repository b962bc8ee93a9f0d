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
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/help-netizen/twilio-front-integration-sub004/config"
	"github.com/help-netizen/twilio-front-integration-sub004/internal/request"
)

// TwilioClient talks to the provider's REST pull API. Only the call list
// endpoint is used; everything else reaches us over webhooks.
type TwilioClient struct {
	accountSid string
	authToken  string
	apiBase    string
	timeout    time.Duration
}

// CallRecord is one row of the provider's call list. The pull API only
// exposes the final shape of a call, never the intermediate ringing and
// in-progress states the live webhook stream carries.
type CallRecord struct {
	Sid           string `json:"sid"`
	ParentCallSid string `json:"parent_call_sid"`
	Status        string `json:"status"`
	From          string `json:"from"`
	To            string `json:"to"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Duration      string `json:"duration"`
	Direction     string `json:"direction"`
}

// CallPage is one page of the call list plus the continuation token for
// the next page, empty when this is the last page of the window.
type CallPage struct {
	Calls         []CallRecord `json:"calls"`
	NextPageToken string
}

type callListResponse struct {
	Calls       []CallRecord `json:"calls"`
	NextPageURI string       `json:"next_page_uri"`
}

func NewTwilioClient(conf *config.TwilioConfig) *TwilioClient {
	return &TwilioClient{
		accountSid: conf.AccountSid,
		authToken:  conf.AuthToken,
		apiBase:    conf.ApiBase,
		timeout:    time.Duration(conf.RequestTimeout) * time.Second,
	}
}

// ListCalls fetches one page of calls started inside [from, to). pageToken
// is the continuation token of a previous page, empty for the first page
// of a window.
func (t *TwilioClient) ListCalls(ctx context.Context, from, to time.Time, pageSize int, pageToken string) (*CallPage, error) {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Calls.json", t.apiBase, t.accountSid)

	q := url.Values{}
	q.Set("StartTime>", from.UTC().Format("2006-01-02T15:04:05Z"))
	q.Set("StartTime<", to.UTC().Format("2006-01-02T15:04:05Z"))
	q.Set("PageSize", strconv.Itoa(pageSize))
	if pageToken != "" {
		q.Set("PageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Basic "+request.BasicAuth(t.accountSid, t.authToken))

	var body callListResponse
	resp, err := request.CallWithTimeout(req, t.timeout, &body)
	if err != nil {
		return nil, errors.Wrap(err, "call list request failed")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, errors.Errorf("call list request returned %d", resp.StatusCode)
	}

	page := &CallPage{Calls: body.Calls}
	if body.NextPageURI != "" {
		page.NextPageToken = pageTokenFromURI(body.NextPageURI)
	}
	return page, nil
}

// pageTokenFromURI extracts the PageToken query value from the provider's
// next_page_uri. Falls back to the raw URI when it does not parse, the
// next request would then fail loudly instead of silently restarting the
// window.
func pageTokenFromURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil {
		return uri
	}
	if token := u.Query().Get("PageToken"); token != "" {
		return token
	}
	return uri
}

// ReconcilePayload flattens a pull API record into the same key/value
// shape a voice status webhook carries, so the record can flow through the
// normal ingest path.
func (r CallRecord) ReconcilePayload() map[string]string {
	payload := map[string]string{
		"CallSid":    r.Sid,
		"CallStatus": r.Status,
		"From":       r.From,
		"To":         r.To,
	}
	if r.ParentCallSid != "" {
		payload["ParentCallSid"] = r.ParentCallSid
	}
	if r.Duration != "" {
		payload["CallDuration"] = r.Duration
	}
	if r.EndTime != "" {
		payload["Timestamp"] = r.EndTime
	} else if r.StartTime != "" {
		payload["Timestamp"] = r.StartTime
	}
	return payload
}
