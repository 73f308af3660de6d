package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/pkg/auth"
)

func validRegister() RegisterInput {
	return RegisterInput{
		FirstName:       "Ada",
		LastName:        "Lovelace",
		Username:        "ada",
		Email:           " Ada@Example.com ",
		Password:        "engine42",
		ConfirmPassword: "engine42",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	u, err := env.users.Register(ctx, validRegister())
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "ada@example.com", u.Email)
	assert.NotEqual(t, "engine42", u.PasswordHash)

	token, got, err := env.users.Login(ctx, "ADA@example.com", "engine42")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	sub, err := auth.NewTokenIssuer("0123456789abcdef", 0).Parse(token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, sub)

	_, _, err = env.users.Login(ctx, "ada@example.com", "wrong-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.users.Login(ctx, "nobody@example.com", "engine42")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, _, err = env.users.Login(ctx, "", "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	cases := map[string]func(in *RegisterInput){
		"missing first name": func(in *RegisterInput) { in.FirstName = " " },
		"bad email":          func(in *RegisterInput) { in.Email = "not-an-email" },
		"short password":     func(in *RegisterInput) { in.Password, in.ConfirmPassword = "abc", "abc" },
		"mismatch":           func(in *RegisterInput) { in.ConfirmPassword = "engine43" },
		"short username":     func(in *RegisterInput) { in.Username = "ab" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			in := validRegister()
			mutate(&in)
			_, err := env.users.Register(ctx, in)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestRegisterConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	_, err := env.users.Register(ctx, validRegister())
	require.NoError(t, err)

	in := validRegister()
	in.Email = "other@example.com"
	_, err = env.users.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)

	in = validRegister()
	in.Username = "ada2"
	_, err = env.users.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestUpdateProfile(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.seedUser(t, "u1")
	env.seedUser(t, "u2")

	bio := "gardener"
	name := " Grace "
	u, err := env.users.UpdateProfile(ctx, "u1", ProfileInput{Bio: &bio, FirstName: &name})
	require.NoError(t, err)
	assert.Equal(t, "gardener", u.Bio)
	assert.Equal(t, "Grace", u.FirstName)
	assert.Equal(t, "Lastu1", u.LastName)

	taken := "u2"
	_, err = env.users.UpdateProfile(ctx, "u1", ProfileInput{Username: &taken})
	assert.ErrorIs(t, err, apperr.ErrConflict)

	own := "u1"
	_, err = env.users.UpdateProfile(ctx, "u1", ProfileInput{Username: &own})
	require.NoError(t, err)

	bad := "not a url"
	_, err = env.users.UpdateProfile(ctx, "u1", ProfileInput{AvatarURL: &bad})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = env.users.GetProfile(ctx, "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestRegisterLosingRaceReportsConflict(t *testing.T) {
	env := newTestEnv(t)

	// 另一个注册请求在检查之后、插入之前抢先写入同名用户
	fired := false
	require.NoError(t, env.store.DB().Callback().Create().Before("gorm:create").Register("test:register_race", func(db *gorm.DB) {
		if fired || db.Statement.Table != "users" {
			return
		}
		fired = true
		rival := &model.User{ID: "rival", Username: "ada", Email: "rival@example.com"}
		_ = db.AddError(db.Session(&gorm.Session{NewDB: true}).Create(rival).Error)
	}))

	_, err := env.users.Register(context.Background(), validRegister())
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConflict)
	assert.True(t, fired)
}
