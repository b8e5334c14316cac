package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewConfidence(t *testing.T) {
	tests := []struct {
		score float64
		want  Confidence
	}{
		{0, 0},
		{float64(float32(0.873)), 87.3},
		{float64(float32(0.91)), 91},
		{0.876543, 87.65},
		{1, 100},
	}

	for _, tt := range tests {
		require.Equal(t, tt.want, NewConfidence(tt.score), "score %v", tt.score)
	}
}

func TestConfidenceString(t *testing.T) {
	require.Equal(t, "0.0", Confidence(0).String())
	require.Equal(t, "87.3", Confidence(87.3).String())
	require.Equal(t, "91.0", Confidence(91).String())
	require.Equal(t, "12.35", Confidence(12.35).String())
}

func TestNewResult(t *testing.T) {
	label := "plate"
	r := NewResult(&label, 0.5)
	require.True(t, r.Detected())
	require.Equal(t, "plate", *r.PlateNumber)
	require.Equal(t, Confidence(50), r.Confidence)

	empty := ""
	r = NewResult(&empty, 0.5)
	require.False(t, r.Detected())

	r = NewResult(nil, 0)
	require.Nil(t, r.PlateNumber)
	require.Equal(t, Confidence(0), r.Confidence)
}

func TestResultMarshalJSON(t *testing.T) {
	data, err := json.Marshal(NewResult(nil, 0))
	require.NoError(t, err)
	require.JSONEq(t, `{"plate_number": null, "confidence": 0.0}`, string(data))
	require.Contains(t, string(data), `"confidence":0.0`)
}
