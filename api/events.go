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
package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
)

// GetJournal returns the ordered event history for one call sid, the audit
// trail behind the leg snapshot.
func (a Api) GetJournal(c *gin.Context) {
	callSid, passed := c.Params.Get("call_sid")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "call_sid is required. pass id in the route /:call_sid"})
		return
	}
	limit, offset := pagination(c)

	resp, err := a.callsync.GetJournal(c.Request.Context(), callSid, limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (a Api) GetDeadLetterEvents(c *gin.Context) {
	limit, offset := pagination(c)

	resp, err := a.callsync.GetDeadLetterEvents(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ReplayEvent re-queues a journaled event, the manual recovery path for
// dead-lettered events.
func (a Api) ReplayEvent(c *gin.Context) {
	eventKey, passed := c.Params.Get("event_key")
	if !passed {
		c.JSON(http.StatusBadRequest, gin.H{"error": "event_key is required. pass id in the route /:event_key"})
		return
	}

	if err := a.callsync.ReplayEvent(c.Request.Context(), eventKey); err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"event_key": eventKey, "status": "replay queued"})
}

func pagination(c *gin.Context) (int, int) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit <= 0 {
		limit = 50
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}
	return limit, offset
}
