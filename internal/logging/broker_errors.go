// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package logging

import (
	"fmt"
	"strings"

	"github.com/pterm/pterm"
)

// BrokerErrorType represents the category of a broker query error.
type BrokerErrorType int

const (
	BrokerErrorUnknown BrokerErrorType = iota
	BrokerErrorNetwork
	BrokerErrorAuth
	BrokerErrorTimeout
	BrokerErrorSegments
	BrokerErrorTableMissing
	BrokerErrorSyntax
)

var brokerErrorNames = [...]string{
	BrokerErrorUnknown:      "unknown",
	BrokerErrorNetwork:      "network",
	BrokerErrorAuth:         "auth",
	BrokerErrorTimeout:      "timeout",
	BrokerErrorSegments:     "segments",
	BrokerErrorTableMissing: "table_missing",
	BrokerErrorSyntax:       "syntax",
}

func (t BrokerErrorType) String() string {
	if int(t) < 0 || int(t) >= len(brokerErrorNames) {
		return "unknown"
	}
	return brokerErrorNames[t]
}

// ParseBrokerError categorizes a broker error message.
func ParseBrokerError(errMsg string) BrokerErrorType {
	lower := strings.ToLower(errMsg)

	switch {
	case strings.Contains(lower, "segments unavailable"):
		return BrokerErrorSegments
	case strings.Contains(lower, "connection refused") || strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "no such host"):
		return BrokerErrorNetwork
	case strings.Contains(lower, "status 401") || strings.Contains(lower, "status 403") ||
		strings.Contains(lower, "unauthorized") || strings.Contains(lower, "forbidden"):
		return BrokerErrorAuth
	case strings.Contains(lower, "timed out") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded"):
		return BrokerErrorTimeout
	case strings.Contains(lower, "tabledoesnotexist") || strings.Contains(lower, "table does not exist") ||
		strings.Contains(lower, "unknown table"):
		return BrokerErrorTableMissing
	case strings.Contains(lower, "sqlparsingerror") || strings.Contains(lower, "sql parsing"):
		return BrokerErrorSyntax
	}
	return BrokerErrorUnknown
}

// FormatQueryError formats a failed dashboard query for the terminal.
func FormatQueryError(errMsg string) string {
	errType := ParseBrokerError(errMsg)

	var b strings.Builder
	b.WriteString(pterm.NewStyle(pterm.FgRed, pterm.Bold).Sprint("Query Failed"))
	b.WriteString("\n\n")

	switch errType {
	case BrokerErrorNetwork:
		b.WriteString("The Pinot broker could not be reached.\n")
		b.WriteString("Check that the broker is running and that the URL and port are correct.\n")
	case BrokerErrorAuth:
		b.WriteString("The broker rejected the credentials.\n")
		b.WriteString("Run 'pinotboard connect' to store a valid token.\n")
	case BrokerErrorTimeout:
		b.WriteString("The query did not finish in time.\n")
		b.WriteString("Some servers may be overloaded or unreachable from the broker.\n")
	case BrokerErrorSegments:
		b.WriteString("Some segments of the table are unavailable.\n")
		b.WriteString("Servers hosting them may be restarting or rebalancing.\n")
	case BrokerErrorTableMissing:
		b.WriteString("The queried table does not exist on this cluster.\n")
	case BrokerErrorSyntax:
		b.WriteString("The broker could not parse the query.\n")
	default:
		b.WriteString("The broker returned an error for this query.\n")
	}

	if strings.TrimSpace(errMsg) != "" {
		b.WriteString("\n")
		b.WriteString(pterm.NewStyle(pterm.FgGray).Sprint("Technical details: " + Mask(errMsg)))
	}
	return b.String()
}

// SummarizeStoreError returns a masked one-line summary of a failed store
// operation, naming the failure category when the message is recognized.
func SummarizeStoreError(action string, err error) string {
	if err == nil {
		return ""
	}
	msg := Mask(err.Error())
	if t := ParseBrokerError(err.Error()); t != BrokerErrorUnknown {
		return fmt.Sprintf("%s (%s): %s", action, t, msg)
	}
	return fmt.Sprintf("%s: %s", action, msg)
}
