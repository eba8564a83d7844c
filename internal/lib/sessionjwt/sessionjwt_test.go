package sessionjwt_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/saas-sync/internal/lib/sessionjwt"
	"github.com/magabrotheeeer/saas-sync/internal/models"
)

func TestMaker_GenerateAndParse(t *testing.T) {
	maker := sessionjwt.NewMaker("test-secret", time.Hour)

	name := "Ada Lovelace"
	avatar := "https://img.example.com/ada.png"
	ident := models.Identity{
		ID:        "user_2abc",
		Email:     "ada@example.com",
		Name:      &name,
		AvatarURL: &avatar,
	}

	token, err := maker.GenerateToken(ident)
	require.NoError(t, err)

	parsed, err := maker.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, ident.ID, parsed.ID)
	assert.Equal(t, ident.Email, parsed.Email)
	require.NotNil(t, parsed.Name)
	assert.Equal(t, name, *parsed.Name)
	require.NotNil(t, parsed.AvatarURL)
	assert.Equal(t, avatar, *parsed.AvatarURL)
}

func TestMaker_ParseToken_WrongSecret(t *testing.T) {
	maker := sessionjwt.NewMaker("test-secret", time.Hour)
	token, err := maker.GenerateToken(models.Identity{ID: "user_1", Email: "a@b.c"})
	require.NoError(t, err)

	other := sessionjwt.NewMaker("other-secret", time.Hour)
	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestMaker_ParseToken_Expired(t *testing.T) {
	maker := sessionjwt.NewMaker("test-secret", -time.Minute)
	token, err := maker.GenerateToken(models.Identity{ID: "user_1", Email: "a@b.c"})
	require.NoError(t, err)

	_, err = maker.ParseToken(token)
	assert.Error(t, err)
}

func TestMaker_ParseToken_Garbage(t *testing.T) {
	maker := sessionjwt.NewMaker("test-secret", time.Hour)
	_, err := maker.ParseToken("not-a-jwt")
	assert.Error(t, err)
}
