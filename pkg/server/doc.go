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

// Package server exposes a conversation view over HTTP for local preview.
//
// Routes:
//
//	GET  /                 preview page (polls /api/scene/text)
//	GET  /health           liveness
//	GET  /api/scene        render tree as JSON (?raw=1 for the component map)
//	GET  /api/scene/text   render tree as terminal text
//	GET  /api/session      open session and generation
//	POST /api/session      switch session, body {"session_id": "..."}
//	POST /api/reset        clear the scene of the open session
//	POST /api/messages     send, body {"message": "..."}; blocks until the reply ends
//	GET  /metrics          Prometheus metrics, when enabled
//
// The server binds to localhost by default and has no authentication.
package server
