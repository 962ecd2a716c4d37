package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScenesFromBoundaries(t *testing.T) {
	t.Run("no boundaries yields single scene", func(t *testing.T) {
		scenes := ScenesFromBoundaries(nil, 10.0)
		require.Len(t, scenes, 1)
		assert.Equal(t, Scene{StartSec: 0, EndSec: 10.0}, scenes[0])
	})

	t.Run("boundaries partition the timeline", func(t *testing.T) {
		scenes := ScenesFromBoundaries([]float64{4.0}, 10.0)
		require.Len(t, scenes, 2)
		assert.Equal(t, Scene{StartSec: 0, EndSec: 4.0}, scenes[0])
		assert.Equal(t, Scene{StartSec: 4.0, EndSec: 10.0}, scenes[1])
	})

	t.Run("unsorted and duplicate boundaries are normalized", func(t *testing.T) {
		scenes := ScenesFromBoundaries([]float64{7.5, 3.0, 7.5, 3.0}, 10.0)
		require.Len(t, scenes, 3)
		assert.NoError(t, ValidatePartition(scenes, 10.0))
	})

	t.Run("boundaries outside the timeline are dropped", func(t *testing.T) {
		scenes := ScenesFromBoundaries([]float64{-1.0, 0.0, 10.0, 12.0, 5.0}, 10.0)
		require.Len(t, scenes, 2)
		assert.NoError(t, ValidatePartition(scenes, 10.0))
	})
}

func TestValidatePartition(t *testing.T) {
	tests := []struct {
		name    string
		scenes  []Scene
		dur     float64
		wantErr bool
	}{
		{"empty", nil, 10, true},
		{"single full scene", []Scene{{0, 10}}, 10, false},
		{"contiguous pair", []Scene{{0, 4}, {4, 10}}, 10, false},
		{"gap", []Scene{{0, 4}, {5, 10}}, 10, true},
		{"overlap", []Scene{{0, 5}, {4, 10}}, 10, true},
		{"does not start at zero", []Scene{{1, 10}}, 10, true},
		{"does not reach duration", []Scene{{0, 9}}, 10, true},
		{"rounding within epsilon", []Scene{{0, 4.01}, {4.02, 9.98}}, 10, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePartition(tt.scenes, tt.dur)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestVideoStatusTransitions(t *testing.T) {
	v := NewVideo("https://example.org/clip1.mp4", "clip1", "/data/raw/clip1.mp4")
	assert.Equal(t, StatusUnprocessed, v.Status)
	assert.False(t, v.Terminal())

	v.MarkProcessing()
	assert.Equal(t, StatusProcessing, v.Status)
	assert.False(t, v.Terminal())

	v.MarkFailed()
	assert.False(t, v.Terminal(), "failed videos stay eligible for a re-run")

	v.MarkProcessed()
	assert.True(t, v.Terminal())
}
