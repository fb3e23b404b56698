// Copyright (c) 2025 Pinotboard
// Licensed under the MIT License. See LICENSE file in the project root for details.

package runner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractUnavailableSegments(t *testing.T) {
	tests := []struct {
		name    string
		msg     string
		want    []string
		wantErr bool
	}{
		{
			name: "bare phrase",
			msg:  "segments unavailable [seg1, seg2]",
			want: []string{"seg1", "seg2"},
		},
		{
			name: "broker exception",
			msg:  "query failed: errorCode 305: 2 segments unavailable: [Aggregate5__0__12__20240101T0000Z,  Aggregate5__1__7__20240101T0000Z ]",
			want: []string{"Aggregate5__0__12__20240101T0000Z", "Aggregate5__1__7__20240101T0000Z"},
		},
		{
			name: "brackets before phrase are ignored",
			msg:  "[broker-1] 1 segments unavailable: [seg9]",
			want: []string{"seg9"},
		},
		{
			name:    "no list",
			msg:     "3 segments unavailable",
			wantErr: true,
		},
		{
			name:    "unterminated list",
			msg:     "segments unavailable: [seg1, seg2",
			wantErr: true,
		},
		{
			name:    "empty list",
			msg:     "segments unavailable: [ ]",
			wantErr: true,
		},
		{
			name:    "phrase missing",
			msg:     "table does not exist [Aggregate5]",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractUnavailableSegments(tt.msg)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDiagnose(t *testing.T) {
	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, Diagnose(nil))
	})

	t.Run("plain failure", func(t *testing.T) {
		got := Diagnose(errors.New("connection refused"))
		require.Len(t, got, 1)
		assert.Equal(t, QueryFailed, got[0].Kind)
		assert.Equal(t, "Error executing query: connection refused", got[0].Message)
	})

	t.Run("segments listed", func(t *testing.T) {
		got := Diagnose(errors.New("2 segments unavailable: [a, b]"))
		require.Len(t, got, 3)
		assert.Equal(t, QueryFailed, got[0].Kind)
		assert.Equal(t, SegmentsUnavailable, got[1].Kind)
		assert.Equal(t, []string{"a", "b"}, got[1].Segments)
		assert.Equal(t, "The following segments are unavailable: a, b", got[1].Message)
		assert.Equal(t, SegmentsHint, got[2].Kind)
	})

	t.Run("segments malformed", func(t *testing.T) {
		var got []Advisory
		require.NotPanics(t, func() { got = Diagnose(errors.New("2 segments unavailable, see broker log")) })
		require.Len(t, got, 3)
		assert.Equal(t, SegmentsUnparsed, got[1].Kind)
		assert.Equal(t, "Unable to extract unavailable segments from the error message.", got[1].Message)
		assert.Empty(t, got[1].Segments)
		assert.Equal(t, SegmentsHint, got[2].Kind)
	})
}

func TestAdvisoryLevel(t *testing.T) {
	assert.Equal(t, "warning", NoData.Level())
	assert.Equal(t, "error", QueryFailed.Level())
	assert.Equal(t, "info", SegmentsUnavailable.Level())
	assert.Equal(t, "info", SegmentsHint.Level())
}
