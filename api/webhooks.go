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

	"github.com/gin-gonic/gin"

	callsync "github.com/help-netizen/twilio-front-integration-sub004"
	"github.com/help-netizen/twilio-front-integration-sub004/model"
)

// Provider callbacks arrive form-encoded. Handlers stay stateless: parse,
// hand to the inbox, answer. The inbox's atomic insert is the only
// ordering mechanism at this layer.

func (a Api) IngestVoiceEvent(c *gin.Context) {
	a.ingest(c, model.SourceVoice)
}

func (a Api) IngestDialEvent(c *gin.Context) {
	a.ingest(c, model.SourceDial)
}

func (a Api) IngestRecordingEvent(c *gin.Context) {
	a.ingest(c, model.SourceRecording)
}

func (a Api) IngestTranscriptionEvent(c *gin.Context) {
	a.ingest(c, model.SourceTranscription)
}

func (a Api) ingest(c *gin.Context, source model.EventSource) {
	if err := c.Request.ParseForm(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	payload := make(map[string]string, len(c.Request.PostForm))
	for key, values := range c.Request.PostForm {
		if len(values) > 0 {
			payload[key] = values[0]
		}
	}

	result, err := a.callsync.Ingest(c.Request.Context(), source, payload, c.Request.Header)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	switch result.Status {
	case callsync.IngestRejected:
		// The provider's own retry policy governs; 400 tells it not to.
		c.JSON(http.StatusBadRequest, gin.H{"error": result.Reason})
	default:
		c.JSON(http.StatusOK, result)
	}
}
