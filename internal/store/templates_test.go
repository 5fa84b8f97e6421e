package store

import (
	"context"
	"testing"

	"github.com/fabworks/fabshop-backend/pkg/enums"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTemplatesAddListDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTemplates(db)

	first, err := repo.Add(context.Background(), enums.OrderTypePrint, "Wall thickness below 1mm")
	require.NoError(t, err)
	second, err := repo.Add(context.Background(), enums.OrderTypePrint, "Model is not manifold")
	require.NoError(t, err)
	_, err = repo.Add(context.Background(), enums.OrderTypeLaserCut, "Paths are not closed")
	require.NoError(t, err)

	templates, err := repo.List(context.Background(), enums.OrderTypePrint)
	require.NoError(t, err)
	require.Len(t, templates, 2)
	assert.Equal(t, first.ID, templates[0].ID)
	assert.Equal(t, second.ID, templates[1].ID)

	found, err := repo.FindByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Wall thickness below 1mm", found.Text)

	ok, err := repo.Delete(context.Background(), first.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = repo.Delete(context.Background(), first.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	templates, err = repo.List(context.Background(), enums.OrderTypePrint)
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, second.ID, templates[0].ID)
}
