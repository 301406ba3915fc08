package pipeline

import (
	"encoding/json"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-instseg/detection"
)

func TestEmptyResult_EncodesEmptyArrays(t *testing.T) {
	data, err := json.Marshal(EmptyResult())
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"masks":[],"class_ids":[],"rois":[],"scores":[],"areas":[]}`,
		string(data))
}

func TestBuildResult_RankedOrder(t *testing.T) {
	m := detection.NewMask(4, 4)
	m.Set(1, 1, 1)

	dets := detection.Set{
		{Box: image.Rect(10, 20, 30, 40), Label: 2, Score: 0.9, Mask: m},
		{Box: image.Rect(1, 2, 3, 4), Label: 1, Score: 0.6},
	}

	r := buildResult(dets, []int{1, 0})

	assert.Equal(t, []int{2, 1}, r.ClassIDs)
	assert.Equal(t, [][4]int{{10, 20, 30, 40}, {1, 2, 3, 4}}, r.Rois)
	assert.Equal(t, []float32{0.9, 0.6}, r.Scores)
	assert.Equal(t, []int{1, 0}, r.Areas)
	// Only detections that carry a mask contribute one.
	assert.Len(t, r.Masks, 1)
}

func TestBuildResult_NoAreas(t *testing.T) {
	dets := detection.Set{
		{Box: image.Rect(0, 0, 5, 5), Label: 1, Score: 0.8},
	}
	r := buildResult(dets, nil)

	assert.Equal(t, []int{1}, r.ClassIDs)
	assert.Empty(t, r.Areas)
	assert.NotNil(t, r.Areas)
}
