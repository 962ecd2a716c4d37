package entity

import (
	"fmt"
	"math"
	"sort"
)

// Scene is a half-open interval [Start, End) of the video timeline, in
// seconds. A video's scene list partitions [0, duration).
type Scene struct {
	StartSec float64
	EndSec   float64
}

func (s Scene) Duration() float64 { return s.EndSec - s.StartSec }

// PartitionEpsilon absorbs the rounding the external tools introduce when
// they report boundary timestamps.
const PartitionEpsilon = 0.05

// ScenesFromBoundaries folds raw cut timestamps into a partition of
// [0, duration). Boundaries outside (0, duration) are discarded, duplicates
// collapse, ordering is restored. No boundaries yields the single scene
// [0, duration).
func ScenesFromBoundaries(boundaries []float64, duration float64) []Scene {
	cuts := make([]float64, 0, len(boundaries))
	for _, b := range boundaries {
		if b > PartitionEpsilon && b < duration-PartitionEpsilon {
			cuts = append(cuts, b)
		}
	}
	sort.Float64s(cuts)

	scenes := make([]Scene, 0, len(cuts)+1)
	start := 0.0
	for _, c := range cuts {
		if c-start <= PartitionEpsilon {
			continue
		}
		scenes = append(scenes, Scene{StartSec: start, EndSec: c})
		start = c
	}
	scenes = append(scenes, Scene{StartSec: start, EndSec: duration})
	return scenes
}

// ValidatePartition checks that scenes cover [0, duration) contiguously,
// ordered by start time, with no gaps or overlaps.
func ValidatePartition(scenes []Scene, duration float64) error {
	if len(scenes) == 0 {
		return fmt.Errorf("empty scene list for duration %.3fs", duration)
	}
	if math.Abs(scenes[0].StartSec) > PartitionEpsilon {
		return fmt.Errorf("first scene starts at %.3fs, want 0", scenes[0].StartSec)
	}
	for i, s := range scenes {
		if s.EndSec <= s.StartSec {
			return fmt.Errorf("scene %d has non-positive span [%.3f, %.3f)", i, s.StartSec, s.EndSec)
		}
		if i > 0 && math.Abs(s.StartSec-scenes[i-1].EndSec) > PartitionEpsilon {
			return fmt.Errorf("gap between scene %d end %.3fs and scene %d start %.3fs",
				i-1, scenes[i-1].EndSec, i, s.StartSec)
		}
	}
	last := scenes[len(scenes)-1]
	if math.Abs(last.EndSec-duration) > PartitionEpsilon {
		return fmt.Errorf("last scene ends at %.3fs, want duration %.3fs", last.EndSec, duration)
	}
	return nil
}
