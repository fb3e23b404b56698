// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package runner

import (
	"errors"
	"fmt"
	"strings"
)

// AdvisoryKind classifies a message shown next to a query result.
type AdvisoryKind string

const (
	// NoData is raised when a query succeeds with zero rows.
	NoData AdvisoryKind = "no_data"
	// QueryFailed carries the store's error message verbatim.
	QueryFailed AdvisoryKind = "query_failed"
	// SegmentsUnavailable lists segments the broker could not reach.
	SegmentsUnavailable AdvisoryKind = "segments_unavailable"
	// SegmentsUnparsed replaces SegmentsUnavailable when the list cannot be extracted.
	SegmentsUnparsed AdvisoryKind = "segments_unparsed"
	// SegmentsHint follows every segment advisory.
	SegmentsHint AdvisoryKind = "segments_hint"
)

// Level maps a kind to its display severity: "warning", "error" or "info".
func (k AdvisoryKind) Level() string {
	switch k {
	case NoData:
		return "warning"
	case QueryFailed:
		return "error"
	default:
		return "info"
	}
}

// Advisory is caller-visible text produced while running a query.
// Advisories are informational; they never change what Run returns.
type Advisory struct {
	Kind     AdvisoryKind `json:"kind"`
	Message  string       `json:"message"`
	Segments []string     `json:"segments,omitempty"`
}

const segmentsPhrase = "segments unavailable"

const (
	msgUnparsed = "Unable to extract unavailable segments from the error message."
	msgHint     = "These segments may be temporarily down. Please try again later or check the Pinot cluster."
)

// ErrNoSegmentList is returned by ExtractUnavailableSegments when the message
// mentions unavailable segments but carries no bracketed list after the phrase.
var ErrNoSegmentList = errors.New("no bracketed segment list after phrase")

// ExtractUnavailableSegments returns the whitespace-trimmed names inside the first
// bracketed list that follows "segments unavailable" in msg.
func ExtractUnavailableSegments(msg string) ([]string, error) {
	at := strings.Index(msg, segmentsPhrase)
	if at < 0 {
		return nil, fmt.Errorf("message does not mention %q", segmentsPhrase)
	}
	rest := msg[at+len(segmentsPhrase):]
	open := strings.IndexByte(rest, '[')
	if open < 0 {
		return nil, ErrNoSegmentList
	}
	end := strings.IndexByte(rest[open+1:], ']')
	if end < 0 {
		return nil, ErrNoSegmentList
	}
	inner := rest[open+1 : open+1+end]

	var segments []string
	for _, part := range strings.Split(inner, ",") {
		if seg := strings.TrimSpace(part); seg != "" {
			segments = append(segments, seg)
		}
	}
	if len(segments) == 0 {
		return nil, ErrNoSegmentList
	}
	return segments, nil
}

// Diagnose turns a query failure into advisories: the error text itself, then,
// when the text reports unavailable segments, either the extracted list or a
// generic notice, followed by a retry hint. It never panics.
func Diagnose(err error) (advisories []Advisory) {
	if err == nil {
		return nil
	}
	msg := err.Error()
	advisories = []Advisory{{
		Kind:    QueryFailed,
		Message: "Error executing query: " + msg,
	}}
	if !strings.Contains(msg, segmentsPhrase) {
		return advisories
	}

	advisories = append(advisories, segmentAdvisory(msg))
	return append(advisories, Advisory{Kind: SegmentsHint, Message: msgHint})
}

func segmentAdvisory(msg string) (adv Advisory) {
	defer func() {
		if r := recover(); r != nil {
			adv = Advisory{Kind: SegmentsUnparsed, Message: msgUnparsed}
		}
	}()
	segments, err := ExtractUnavailableSegments(msg)
	if err != nil {
		return Advisory{Kind: SegmentsUnparsed, Message: msgUnparsed}
	}
	return Advisory{
		Kind:     SegmentsUnavailable,
		Message:  "The following segments are unavailable: " + strings.Join(segments, ", "),
		Segments: segments,
	}
}
