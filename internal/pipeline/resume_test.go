package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectorClassifications(t *testing.T) {
	t.Parallel()

	t.Run("no pages is fresh", func(t *testing.T) {
		t.Parallel()

		env, err := newTestEnv(0)
		require.NoError(t, err)
		project, err := env.newProject("a transcript")
		require.NoError(t, err)

		state, err := env.pipeline.inspector.Inspect(context.Background(), project.ID)
		require.NoError(t, err)
		assert.Equal(t, ClassificationFresh, state.Classification)
		assert.Zero(t, state.TotalPages)
	})

	t.Run("pages without illustrations are incomplete", func(t *testing.T) {
		t.Parallel()

		env, err := newTestEnv(0)
		require.NoError(t, err)
		project, err := env.newProject("a transcript")
		require.NoError(t, err)

		pages := seedPages(t, env, project.ID, 5)
		seedIllustration(t, env, project.ID, pages[0], true)
		seedIllustration(t, env, project.ID, pages[1], true)

		state, err := env.pipeline.inspector.Inspect(context.Background(), project.ID)
		require.NoError(t, err)
		assert.Equal(t, ClassificationIncomplete, state.Classification)
		assert.Equal(t, 5, state.TotalPages)
		assert.Equal(t, 2, state.IllustratedCount)
		assert.Len(t, state.InitialWork, 3)
		assert.Len(t, state.VariantWork, 2)
	})

	t.Run("fully illustrated is complete", func(t *testing.T) {
		t.Parallel()

		env, err := newTestEnv(0)
		require.NoError(t, err)
		project, err := env.newProject("a transcript")
		require.NoError(t, err)

		pages := seedPages(t, env, project.ID, 2)
		for _, page := range pages {
			seedIllustration(t, env, project.ID, page, true)
		}

		state, err := env.pipeline.inspector.Inspect(context.Background(), project.ID)
		require.NoError(t, err)
		assert.Equal(t, ClassificationComplete, state.Classification)
		assert.Equal(t, 2, state.IllustratedCount)
		// Each page still has fewer than the variant target.
		assert.Len(t, state.VariantWork, 2)
	})

	t.Run("pages at the variant target need nothing", func(t *testing.T) {
		t.Parallel()

		env, err := newTestEnv(0)
		require.NoError(t, err)
		project, err := env.newProject("a transcript")
		require.NoError(t, err)

		pages := seedPages(t, env, project.ID, 1)
		for i := 0; i < variantTarget; i++ {
			seedIllustration(t, env, project.ID, pages[0], i == 0)
		}

		state, err := env.pipeline.inspector.Inspect(context.Background(), project.ID)
		require.NoError(t, err)
		assert.Equal(t, ClassificationComplete, state.Classification)
		assert.Empty(t, state.InitialWork)
		assert.Empty(t, state.VariantWork)
	})
}
