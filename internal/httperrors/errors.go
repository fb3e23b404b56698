// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package httperrors explains failures talking to the Pinot broker over HTTP in
// terms a dashboard user can act on.
package httperrors

import (
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"os"
	"strings"
	"syscall"

	"github.com/pterm/pterm"

	"pinotboard/cli/internal/logging"
)

// Category is a coarse network failure class.
type Category int

const (
	Generic Category = iota
	Timeout
	DNS
	ConnectionRefused
	TLS
	Server
)

// Classify picks the category of err. Typed net errors are checked before the
// message text.
func Classify(err error) Category {
	if err == nil {
		return Generic
	}
	lower := strings.ToLower(err.Error())

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() ||
		strings.Contains(lower, "timeout") || strings.Contains(lower, "deadline exceeded") {
		return Timeout
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || strings.Contains(lower, "no such host") {
		return DNS
	}
	if errors.Is(err, syscall.ECONNREFUSED) || strings.Contains(lower, "connection refused") {
		return ConnectionRefused
	}
	if strings.Contains(lower, "tls") || strings.Contains(lower, "x509") ||
		strings.Contains(lower, "certificate") || strings.Contains(lower, "handshake") {
		return TLS
	}
	for _, s := range []string{"status 500", "status 502", "status 503", "status 504",
		"internal server error", "bad gateway", "service unavailable", "gateway timeout"} {
		if strings.Contains(lower, s) {
			return Server
		}
	}
	return Generic
}

// Explain renders a troubleshooting note for err raised while performing action
// against host.
func Explain(err error, host, action string) string {
	var b strings.Builder
	switch Classify(err) {
	case Timeout:
		fmt.Fprintf(&b, "Connection timeout while %s\n\n", action)
		b.WriteString("The broker took too long to respond. This could mean:\n")
		b.WriteString("  • Servers behind the broker are overloaded\n")
		b.WriteString("  • broker.timeout is too short for these queries\n")
		b.WriteString("  • A firewall is dropping the connection\n")
	case DNS:
		fmt.Fprintf(&b, "Cannot resolve %s while %s\n\n", host, action)
		b.WriteString("Check that the broker host name is spelled correctly and that DNS works\n")
		b.WriteString("from this machine.\n")
	case ConnectionRefused:
		fmt.Fprintf(&b, "Connection refused by %s while %s\n\n", host, action)
		b.WriteString("The broker is not accepting connections. This could mean:\n")
		b.WriteString("  • The broker process is down or restarting\n")
		b.WriteString("  • The port is wrong (brokers listen on 8099 by default)\n")
		b.WriteString("  • A firewall is blocking the port\n")
	case TLS:
		fmt.Fprintf(&b, "Secure connection to %s failed while %s\n\n", host, action)
		b.WriteString("Check the broker certificate, any HTTPS proxy in between, and the system clock.\n")
		b.WriteString("Use an http:// URL if the broker does not serve TLS.\n")
	case Server:
		fmt.Fprintf(&b, "The broker at %s returned a server error while %s\n\n", host, action)
		b.WriteString("The cluster may be rebalancing. Please try again in a few moments.\n")
	default:
		fmt.Fprintf(&b, "Cannot reach the Pinot broker at %s while %s\n\n", host, action)
		b.WriteString("Check the broker URL with 'pinotboard brokerinfo' and your network connection.\n")
	}

	if err != nil {
		details := logging.Mask(err.Error())
		if len(details) > 200 {
			details = details[:200] + "..."
		}
		fmt.Fprintf(&b, "\nTechnical details: %s\n", details)
	}
	return b.String()
}

// Present writes the explanation to w, styled as an error block.
func Present(w io.Writer, err error, host, action string) {
	if w == nil {
		w = os.Stderr
	}
	pterm.Error.WithWriter(w).Println(Explain(err, host, action))
}

// HostOf extracts the host[:port] of a broker URL for messages.
func HostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "the broker"
	}
	return u.Host
}
