// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package runner

import (
	"errors"

	"pinotboard/cli/internal/logging"
	"pinotboard/cli/internal/pinot"
)

// classify picks the failure category recorded for err. Broker exception codes
// win over the message text; anything else is matched on its text.
func classify(err error) logging.BrokerErrorType {
	var qe *pinot.QueryError
	if errors.As(err, &qe) {
		switch {
		case qe.HasCode(pinot.CodeSegmentsUnavailable):
			return logging.BrokerErrorSegments
		case qe.HasCode(pinot.CodeTableDoesNotExist):
			return logging.BrokerErrorTableMissing
		case qe.HasCode(pinot.CodeBrokerTimeout), qe.HasCode(pinot.CodeServerNotResponded):
			return logging.BrokerErrorTimeout
		case qe.HasCode(pinot.CodeSQLParsing):
			return logging.BrokerErrorSyntax
		}
	}
	var pe *pinot.PartialResponseError
	if errors.As(err, &pe) {
		return logging.BrokerErrorTimeout
	}
	return logging.ParseBrokerError(err.Error())
}
