// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package observability

const (
	AttrSessionID  = "a2ui.session_id"
	AttrSource     = "a2ui.source"
	AttrReason     = "a2ui.reason"
	AttrGeneration = "a2ui.generation"
	AttrAppended   = "a2ui.appended"
	AttrErrorType  = "error.type"
	AttrHTTPMethod = "http.method"
	AttrHTTPRoute  = "http.route"
	AttrStatusCode = "http.status_code"

	SpanOpen        = "conversation.open"
	SpanSend        = "conversation.send"
	SpanStream      = "conversation.stream"
	SpanHTTPRequest = "http.request"

	// Envelope sources.
	SourceLive    = "live"
	SourceHistory = "history"
	SourceUser    = "user"

	ExporterStdout = "stdout"
	ExporterNone   = "none"

	DefaultServiceName  = "a2ui"
	DefaultMetricsPath  = "/metrics"
	DefaultSamplingRate = 1.0
)
