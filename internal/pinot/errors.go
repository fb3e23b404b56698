// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package pinot

import (
	"fmt"
	"strings"
)

// Broker error codes the dashboard cares about.
const (
	CodeSQLParsing          = 150
	CodeServerNotResponded  = 427
	CodeSegmentsUnavailable = 305
	CodeBrokerTimeout       = 400
	CodeTableDoesNotExist   = 190
)

// HTTPError is returned when the broker answers with a non-200 status. Its
// message carries the response body unchanged.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if body == "" {
		return fmt.Sprintf("broker returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("broker returned status %d: %s", e.StatusCode, body)
}

// QueryError carries the exceptions list of a broker response. Its message
// embeds every exception message verbatim.
type QueryError struct {
	SQL        string
	Exceptions []Exception
}

func (e *QueryError) Error() string {
	parts := make([]string, len(e.Exceptions))
	for i, ex := range e.Exceptions {
		parts[i] = fmt.Sprintf("errorCode %d: %s", ex.ErrorCode, ex.Message)
	}
	return "query failed: " + strings.Join(parts, "; ")
}

// HasCode reports whether any exception carries the given error code.
func (e *QueryError) HasCode(code int) bool {
	for _, ex := range e.Exceptions {
		if ex.ErrorCode == code {
			return true
		}
	}
	return false
}

// PartialResponseError is returned when fewer servers responded than were queried.
type PartialResponseError struct {
	SQL       string
	Queried   int
	Responded int
}

func (e *PartialResponseError) Error() string {
	return fmt.Sprintf("query timed out: out of %d servers, only %d responded", e.Queried, e.Responded)
}
