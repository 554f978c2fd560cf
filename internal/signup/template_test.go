package signup

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timboisvert/cocoscout-sub005/internal/model"
)

func TestBuildTemplate_Numbered(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenNumbered, Count: 3, Capacity: 2})
	require.NoError(t, err)
	require.Len(t, descs, 3)

	for i, d := range descs {
		assert.Equal(t, uint32(i+1), d.Position)
		assert.Equal(t, uint32(2), d.Capacity)
	}
	require.NotNil(t, descs[0].Name)
	assert.Equal(t, "Slot 1", *descs[0].Name)
	assert.Equal(t, "Slot 3", *descs[2].Name)
}

func TestBuildTemplate_Numbered_DefaultCapacityIsOne(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenNumbered, Count: 2})
	require.NoError(t, err)
	for _, d := range descs {
		assert.Equal(t, uint32(1), d.Capacity)
	}
}

func TestBuildTemplate_Numbered_ZeroCountFails(t *testing.T) {
	_, err := BuildTemplate(GenerationConfig{Mode: model.GenNumbered})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestBuildTemplate_TimeBased(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{
		Mode: model.GenTimeBased, Count: 3, StartTime: "18:30", IntervalMin: 20,
	})
	require.NoError(t, err)
	require.Len(t, descs, 3)

	require.NotNil(t, descs[0].Name)
	assert.Equal(t, "6:30 PM", *descs[0].Name)
	assert.Equal(t, "6:50 PM", *descs[1].Name)
	assert.Equal(t, "7:10 PM", *descs[2].Name)
}

func TestBuildTemplate_TimeBased_BadStartFallsBack(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenTimeBased, Count: 2, StartTime: "not a time"})
	require.NoError(t, err)
	require.Len(t, descs, 2)

	// Falls back to 19:00 with the default 15 minute spacing.
	assert.Equal(t, "7:00 PM", *descs[0].Name)
	assert.Equal(t, "7:15 PM", *descs[1].Name)
}

func TestBuildTemplate_Named(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{
		Mode:  model.GenNamed,
		Names: []string{"Opening", "Headliner", "Closer"},
	})
	require.NoError(t, err)
	require.Len(t, descs, 3)

	assert.Equal(t, "Opening", *descs[0].Name)
	assert.Equal(t, "Closer", *descs[2].Name)
	for _, d := range descs {
		assert.Equal(t, uint32(1), d.Capacity)
	}
}

func TestBuildTemplate_Named_EmptyListIsEmptyTemplate(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenNamed})
	require.NoError(t, err)
	assert.Empty(t, descs)
}

func TestBuildTemplate_SimpleCapacity(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenSimpleCapacity, Count: 25})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, uint32(25), descs[0].Capacity)
	assert.Nil(t, descs[0].Name)
}

func TestBuildTemplate_SimpleCapacity_DefaultsToTen(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenSimpleCapacity})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, uint32(10), descs[0].Capacity)
}

func TestBuildTemplate_OpenList(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenOpenList, Count: 4})
	require.NoError(t, err)
	require.Len(t, descs, 4)
	for _, d := range descs {
		assert.Equal(t, uint32(1), d.Capacity)
	}
}

func TestBuildTemplate_OpenList_AboveCeilingCollapses(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenOpenList, Count: 101})
	require.NoError(t, err)
	require.Len(t, descs, 1)
	assert.Equal(t, uint32(101), descs[0].Capacity)
}

func TestBuildTemplate_OpenList_AtCeilingStaysExpanded(t *testing.T) {
	descs, err := BuildTemplate(GenerationConfig{Mode: model.GenOpenList, Count: 100})
	require.NoError(t, err)
	assert.Len(t, descs, 100)
}

func TestBuildTemplate_UnknownModeFails(t *testing.T) {
	_, err := BuildTemplate(GenerationConfig{Mode: "lottery"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBadConfig)
}

func TestBuildTemplate_Deterministic(t *testing.T) {
	cfg := GenerationConfig{Mode: model.GenTimeBased, Count: 5, StartTime: "10:00", IntervalMin: 30, Capacity: 2}
	a, err := BuildTemplate(cfg)
	require.NoError(t, err)
	b, err := BuildTemplate(cfg)
	require.NoError(t, err)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Position, b[i].Position)
		assert.Equal(t, *a[i].Name, *b[i].Name)
		assert.Equal(t, a[i].Capacity, b[i].Capacity)
	}
}
