package theme

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hitoshi/think/internal/model"
	"github.com/hitoshi/think/internal/permission"
	"github.com/hitoshi/think/internal/repository/memstore"
)

func sampleInput() Input {
	return Input{
		Name:                  "Think - Original",
		BackgroundTopColor:    "#abccff",
		BackgroundBottomColor: "#000000",
		NodeOuterColor:        "#000000",
		NodeInnerColor:        "#555555",
		NodeTextColor:         "#FFFFFF",
		ConnectionOuterColor:  "#111111",
		ConnectionInnerColor:  "#CCCCCC",
		ConnectionTextColor:   "#FFFFFF",
	}
}

func TestService_Upsert_CreateGrantsModify(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store)

	id, err := svc.Upsert(ctx, sampleInput(), "owner")
	require.NoError(t, err)
	require.NotEmpty(t, id)

	theme, err := store.Repositories().Themes.FindByID(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, theme)
	assert.Equal(t, "#abccff", theme.BackgroundTopColor)
	assert.Equal(t, "#FFFFFF", theme.ConnectionTextColor)

	perms, err := store.Repositories().Permissions.ListBySubject(ctx, model.ThemeSubject(id))
	require.NoError(t, err)
	require.Len(t, perms, 1)
	assert.Equal(t, model.PermitModify, perms[0].Type)
	assert.True(t, perms[0].BelongsTo("owner"))
}

func TestService_Upsert_UpdateRequiresModify(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	id, err := svc.Upsert(ctx, sampleInput(), "owner")
	require.NoError(t, err)

	in := sampleInput()
	in.ID = id
	in.Name = "hijacked"
	_, err = svc.Upsert(ctx, in, "stranger")
	assert.True(t, model.HasCode(err, model.ErrCodeForbidden))

	in.Name = "renamed"
	got, err := svc.Upsert(ctx, in, "owner")
	require.NoError(t, err)
	assert.Equal(t, id, got)
}

func TestService_Upsert_ViewableThemeIsLinkedUnchanged(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store)

	id, err := svc.Upsert(ctx, sampleInput(), "owner")
	require.NoError(t, err)
	require.NoError(t, permission.NewIndex(store.Repositories().Permissions).SetPublic(ctx, model.ThemeSubject(id)))

	got, err := svc.Upsert(ctx, Input{ID: id}, "stranger")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	same := sampleInput()
	same.ID = id
	got, err = svc.Upsert(ctx, same, "stranger")
	require.NoError(t, err)
	assert.Equal(t, id, got)

	changed := same
	changed.NodeTextColor = "#000000"
	_, err = svc.Upsert(ctx, changed, "stranger")
	assert.True(t, model.HasCode(err, model.ErrCodeForbidden))

	theme, err := store.Repositories().Themes.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "#FFFFFF", theme.NodeTextColor)
	assert.Equal(t, "Think - Original", theme.Name)
}

func TestService_Upsert_PrivateThemeIsNotLinked(t *testing.T) {
	ctx := context.Background()
	svc := NewService(memstore.New())

	id, err := svc.Upsert(ctx, sampleInput(), "owner")
	require.NoError(t, err)

	_, err = svc.Upsert(ctx, Input{ID: id}, "stranger")
	assert.True(t, model.HasCode(err, model.ErrCodeForbidden))
}

func TestService_Upsert_UnknownID(t *testing.T) {
	svc := NewService(memstore.New())
	in := sampleInput()
	in.ID = "missing"
	_, err := svc.Upsert(context.Background(), in, "owner")
	assert.True(t, model.HasCode(err, model.ErrCodeThemeNotFound))
}

func TestService_Delete_DetachesThoughts(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := NewService(store)

	id, err := svc.Upsert(ctx, sampleInput(), "owner")
	require.NoError(t, err)

	now := time.Now()
	for _, tid := range []string{"t1", "t2"} {
		themeID := id
		require.NoError(t, store.Repositories().Thoughts.Create(ctx, &model.Thought{
			ID: tid, Name: tid, ThemeID: &themeID, CreatedAt: now, UpdatedAt: now,
		}))
	}

	err = svc.Delete(ctx, id, "stranger")
	assert.True(t, model.HasCode(err, model.ErrCodeForbidden))

	require.NoError(t, svc.Delete(ctx, id, "owner"))

	r := store.Repositories()
	theme, err := r.Themes.FindByID(ctx, id)
	require.NoError(t, err)
	assert.Nil(t, theme)
	for _, tid := range []string{"t1", "t2"} {
		thought, err := r.Thoughts.FindByID(ctx, tid)
		require.NoError(t, err)
		assert.False(t, thought.HasTheme())
	}
	perms, err := r.Permissions.ListBySubject(ctx, model.ThemeSubject(id))
	require.NoError(t, err)
	assert.Empty(t, perms)
}
