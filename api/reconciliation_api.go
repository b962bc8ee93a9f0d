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

	"github.com/help-netizen/twilio-front-integration-sub004/internal/apierror"
)

// ReconciliationStatus reports the cursor, last success and last error of
// every pull job, the operator's view of how far behind each tier is.
func (a Api) ReconciliationStatus(c *gin.Context) {
	resp, err := a.callsync.ReconciliationStatus(c.Request.Context())
	if err != nil {
		c.JSON(apierror.MapErrorToHTTPStatus(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"jobs": resp})
}
