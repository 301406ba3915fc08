package detection

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask_AreaMatchesPixelCount(t *testing.T) {
	m := NewMask(8, 6)
	assert.Equal(t, 0, m.Area())

	m.Set(0, 0, 1)
	m.Set(7, 5, 1)
	m.Set(3, 2, 1)
	assert.Equal(t, 3, m.Area())

	// Values other than 1 never count.
	m.Set(4, 4, 2)
	assert.Equal(t, 3, m.Area())
}

func TestMask_OutOfBoundsAccess(t *testing.T) {
	m := NewMask(4, 4)
	m.Set(-1, 0, 1)
	m.Set(0, 4, 1)
	assert.Equal(t, 0, m.Area())
	assert.Equal(t, uint8(0), m.At(-1, 0))
	assert.Equal(t, uint8(0), m.At(0, 100))
}

func TestMask_MarshalJSONRows(t *testing.T) {
	m := NewMask(2, 2)
	m.Set(1, 0, 1)

	data, err := json.Marshal(m)
	require.NoError(t, err)
	assert.JSONEq(t, `[[0,1],[0,0]]`, string(data))
}

func TestCategoryTable_Name(t *testing.T) {
	assert.Equal(t, "__background", DefaultCategories.Name(0))
	assert.Equal(t, "scratch", DefaultCategories.Name(3))
	assert.Equal(t, "unknown", DefaultCategories.Name(99))
	assert.Equal(t, "unknown", DefaultCategories.Name(-1))
}

func TestDetection_RankScore(t *testing.T) {
	d := Detection{Score: 0.8}
	assert.InDelta(t, 0.8, d.RankScore(), 1e-6)

	ms := float32(0.3)
	d.MaskScore = &ms
	assert.InDelta(t, 0.3, d.RankScore(), 1e-6)
}
