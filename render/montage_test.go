package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nvr-ai/go-instseg/detection"
)

func fullMask(w, h int) *detection.Mask {
	m := detection.NewMask(w, h)
	for i := range m.Data {
		m.Data[i] = 1
	}
	return m
}

func maskDet(m *detection.Mask) detection.Detection {
	return detection.Detection{Label: 1, Score: 0.9, Mask: m}
}

func tileRegion(buf []uint8, gw, row, col, tw, th int) []uint8 {
	out := make([]uint8, 0, tw*th)
	for y := 0; y < th; y++ {
		start := (row*th+y)*gw + col*tw
		out = append(out, buf[start:start+tw]...)
	}
	return out
}

func allZero(b []uint8) bool {
	for _, v := range b {
		if v != 0 {
			return false
		}
	}
	return true
}

func TestTileMasks_PadsMissingCells(t *testing.T) {
	// Three masks in a 2x2 grid: the fourth cell stays all-zero.
	dets := detection.Set{
		maskDet(fullMask(8, 8)),
		maskDet(fullMask(8, 8)),
		maskDet(fullMask(8, 8)),
	}

	canvas, gh, gw, err := TileMasks(dets, 2, 8, 8)
	require.NoError(t, err)
	assert.Equal(t, 8, gh)
	assert.Equal(t, 8, gw)

	buf := canvas.Data().([]uint8)
	require.Len(t, buf, gh*gw)

	// Row-major: cells (0,0), (0,1), (1,0) are filled, (1,1) is zero.
	assert.False(t, allZero(tileRegion(buf, gw, 0, 0, 4, 4)))
	assert.False(t, allZero(tileRegion(buf, gw, 0, 1, 4, 4)))
	assert.False(t, allZero(tileRegion(buf, gw, 1, 0, 4, 4)))
	assert.True(t, allZero(tileRegion(buf, gw, 1, 1, 4, 4)))
}

func TestTileMasks_EmptySetIsAllZero(t *testing.T) {
	canvas, gh, gw, err := TileMasks(detection.Set{}, 2, 16, 12)
	require.NoError(t, err)

	// Canvas is (gridDim*tileH, gridDim*tileW) with tiles downsampled by
	// the grid dimension.
	assert.Equal(t, 12, gh)
	assert.Equal(t, 16, gw)
	assert.True(t, allZero(canvas.Data().([]uint8)))
}

func TestTileMasks_CapsAtGridCapacity(t *testing.T) {
	dets := detection.Set{}
	for i := 0; i < 6; i++ {
		dets = append(dets, maskDet(fullMask(4, 4)))
	}

	canvas, _, gw, err := TileMasks(dets, 2, 4, 4)
	require.NoError(t, err)

	// Only the first 4 masks land; all cells filled, nothing panics.
	buf := canvas.Data().([]uint8)
	assert.False(t, allZero(buf))
	assert.Equal(t, 4, gw)
}

func TestTileMasks_AreaDownsampling(t *testing.T) {
	// Half-covered mask: top half ones, bottom half zeros. Each 2x2 block
	// in the top half averages to full intensity, bottom half to zero.
	m := detection.NewMask(8, 8)
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			m.Set(x, y, 1)
		}
	}

	canvas, _, gw, err := TileMasks(detection.Set{maskDet(m)}, 2, 8, 8)
	require.NoError(t, err)
	buf := canvas.Data().([]uint8)

	tile := tileRegion(buf, gw, 0, 0, 4, 4)
	// Top two tile rows saturated, bottom two zero.
	assert.True(t, allZero(tile[8:]))
	for _, v := range tile[:8] {
		assert.Equal(t, uint8(255), v)
	}
}

func TestTileMasks_InvalidGrid(t *testing.T) {
	_, _, _, err := TileMasks(detection.Set{}, 0, 8, 8)
	assert.Error(t, err)

	// Masks smaller than the grid factor cannot be tiled.
	_, _, _, err = TileMasks(detection.Set{}, 4, 2, 2)
	assert.Error(t, err)
}

func TestTileMasks_SkipsDetectionsWithoutMasks(t *testing.T) {
	dets := detection.Set{
		{Label: 1, Score: 0.9}, // no mask, skipped
		maskDet(fullMask(8, 8)),
	}
	canvas, _, gw, err := TileMasks(dets, 2, 8, 8)
	require.NoError(t, err)
	buf := canvas.Data().([]uint8)

	// The masked detection takes the first cell.
	assert.False(t, allZero(tileRegion(buf, gw, 0, 0, 4, 4)))
	assert.True(t, allZero(tileRegion(buf, gw, 0, 1, 4, 4)))
}
