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
package model

import "time"

// SyncCursor tracks how far a reconciliation job has durably applied the
// provider's call listing. The cursor only advances past a page once every
// record in that page is persisted; a crash before commit re-processes the
// same page, which is safe because application is idempotent by event key.
type SyncCursor struct {
	JobName       string     `json:"job_name"`
	Cursor        string     `json:"cursor"`
	LastSuccessAt *time.Time `json:"last_success_at,omitempty"`
	LastError     string     `json:"last_error,omitempty"`
	LastErrorAt   *time.Time `json:"last_error_at,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}
