// Copyright 2025 Conveyor Team
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package httpx

var (
	Failed                        = failed(500, "Request failed")
	RequestParameterParsingFailed = failed(5001, "Request parameter parsing failed")

	// BadRequest 400
	BadRequest = failed(4000, "Bad request")
	NotFound   = failed(4004, "Not found")

	InternalError = failed(5000, "Internal error, please contact the administrator")

	RunNotExist        = failed(4041, "Run does not exist")
	ArtifactNotExist   = failed(4042, "Artifact does not exist")
	ArtifactExpired    = failed(4100, "Artifact retention window has elapsed")
	RunAlreadyFinished = failed(4101, "Run already reached a terminal status")
	TriggerNotMatched  = failed(2001, "Event did not match any trigger filter")
	EngineShuttingDown = failed(5030, "Engine is shutting down")
)

var (
	Success = success(200, "Request Success")
)

// failed constructs an error response value.
func failed(code int, msg string) *Response {
	return &Response{
		Code:   code,
		Msg:    msg,
		Detail: nil,
	}
}

// success constructs a success response value.
func success(code int, msg string) *Response {
	return &Response{
		Code:   code,
		Msg:    msg,
		Detail: nil,
	}
}
