// Copyright 2021 The Rode Authors
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

package esutil

import (
	"fmt"

	"github.com/elastic/go-elasticsearch/v7/esapi"
	"github.com/spf13/cast"
)

// Elasticsearch error response

type ESErrorResponse struct {
	Error  ESError `json:"error"`
	Status int     `json:"status"`
}

type ESError struct {
	Type      string    `json:"type"`
	Reason    string    `json:"reason"`
	RootCause []ESError `json:"root_cause,omitempty"`
}

// ResponseError is returned when Elasticsearch answers with an error status.
type ResponseError struct {
	Gate       string
	StatusCode int
	Type       string
	Reason     string
}

func (e *ResponseError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("unexpected response from elasticsearch for %s: status %d", e.Gate, e.StatusCode)
	}

	return fmt.Sprintf("unexpected response from elasticsearch for %s: status %d, %s: %s", e.Gate, e.StatusCode, e.Type, e.Reason)
}

func newResponseError(gate string, res *esapi.Response) error {
	responseErr := &ResponseError{
		Gate:       gate,
		StatusCode: res.StatusCode,
	}

	errResponse := ESErrorResponse{}
	if res.Body != nil && DecodeResponse(res.Body, &errResponse) == nil {
		responseErr.Type = errResponse.Error.Type
		responseErr.Reason = errResponse.Error.Reason
	}

	return responseErr
}

// responseErrorFromBody reads the error of a single multi search response.
func responseErrorFromBody(gate string, status int, body interface{}) error {
	responseErr := &ResponseError{
		Gate:       gate,
		StatusCode: status,
	}

	switch e := body.(type) {
	case map[string]interface{}:
		responseErr.Type, _ = e["type"].(string)
		responseErr.Reason, _ = e["reason"].(string)
	case string:
		responseErr.Reason = e
	}

	return responseErr
}

func responseStatus(response map[string]interface{}) int {
	return cast.ToInt(response["status"])
}
