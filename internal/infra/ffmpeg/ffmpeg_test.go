package ffmpeg

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClipFileName(t *testing.T) {
	assert.Equal(t, "A62011oieL8-001.mp4", ClipFileName("A62011oieL8", 1))
	assert.Equal(t, "A62011oieL8-042.mp4", ClipFileName("A62011oieL8", 42))
	assert.Equal(t, "clip1-100.mp4", ClipFileName("clip1", 100))

	// Deterministic: same inputs, same name across runs.
	assert.Equal(t, ClipFileName("clip1", 3), ClipFileName("clip1", 3))
}

func TestVideoBase(t *testing.T) {
	assert.Equal(t, "clip1", VideoBase("/workspace/data/raw_video/clip1.mp4"))
	assert.Equal(t, "clip1", VideoBase("clip1.mp4"))
	assert.Equal(t, "archive.footage", VideoBase("archive.footage.mkv"))
}

func TestSceneTimeParsing(t *testing.T) {
	// Representative scdet stderr from a two-cut video.
	stderr := `
[scdet @ 0x55e1] lavfi.scd.score: 31.402, lavfi.scd.time: 4
[scdet @ 0x55e1] lavfi.scd.score: 29.077, lavfi.scd.time: 7.48
frame= 250 fps=0.0 q=-0.0 Lsize=N/A time=00:00:10.00 bitrate=N/A speed= 212x
`
	matches := sceneTimeRe.FindAllStringSubmatch(stderr, -1)
	require.Len(t, matches, 2)

	var got []float64
	for _, m := range matches {
		v, err := strconv.ParseFloat(m[1], 64)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []float64{4, 7.48}, got)
}

func TestSceneTimeParsingNoCuts(t *testing.T) {
	stderr := `frame= 250 fps=0.0 q=-0.0 Lsize=N/A time=00:00:10.00 bitrate=N/A`
	assert.Empty(t, sceneTimeRe.FindAllStringSubmatch(stderr, -1))
}
