package service

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/d60-Lab/ideagraph/internal/apperr"
	"github.com/d60-Lab/ideagraph/internal/cache"
	"github.com/d60-Lab/ideagraph/internal/events"
	"github.com/d60-Lab/ideagraph/internal/model"
	"github.com/d60-Lab/ideagraph/internal/repository"
	"github.com/d60-Lab/ideagraph/pkg/auth"
)

// ErrInvalidCredentials 登录失败，不区分邮箱不存在与密码错误
var ErrInvalidCredentials = errors.New("invalid email or password")

type RegisterInput struct {
	FirstName       string `json:"first_name" validate:"required,max=64"`
	LastName        string `json:"last_name" validate:"required,max=64"`
	Username        string `json:"username" validate:"required,min=3,max=64"`
	Email           string `json:"email" validate:"required,email,max=128"`
	Password        string `json:"password" validate:"required,min=6,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"required,eqfield=Password"`
}

// ProfileInput nil 字段保持不变
type ProfileInput struct {
	FirstName *string `json:"first_name" validate:"omitempty,min=1,max=64"`
	LastName  *string `json:"last_name" validate:"omitempty,min=1,max=64"`
	Username  *string `json:"username" validate:"omitempty,min=3,max=64"`
	Bio       *string `json:"bio" validate:"omitempty,max=500"`
	AvatarURL *string `json:"avatar_url" validate:"omitempty,url,max=512"`
}

type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*model.User, error)
	// Login 返回访问令牌
	Login(ctx context.Context, email, password string) (string, *model.User, error)
	GetProfile(ctx context.Context, id string) (*model.User, error)
	UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.User, error)
}

type userService struct {
	store  *repository.Store
	tokens *auth.TokenIssuer
	cards  *cache.UserCardCache
	bus    events.Bus
}

func NewUserService(store *repository.Store, tokens *auth.TokenIssuer, cards *cache.UserCardCache, bus events.Bus) UserService {
	return &userService{store: store, tokens: tokens, cards: cards, bus: bus}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*model.User, error) {
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	taken, err := s.store.Users.UsernameTaken(ctx, in.Username, "")
	if err != nil {
		return nil, apperr.Remote("register", err)
	}
	if taken {
		return nil, apperr.Conflict("username %s is already taken", in.Username)
	}
	taken, err = s.store.Users.EmailTaken(ctx, in.Email)
	if err != nil {
		return nil, apperr.Remote("register", err)
	}
	if taken {
		return nil, apperr.Conflict("email %s is already registered", in.Email)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	u := &model.User{
		Username:     in.Username,
		Email:        in.Email,
		FirstName:    in.FirstName,
		LastName:     in.LastName,
		PasswordHash: string(hashed),
	}
	if err := s.store.Users.Create(ctx, u); err != nil {
		return nil, apperr.Remote("register", err)
	}
	return u, nil
}

func (s *userService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, apperr.Validation("email and password are required")
	}
	u, err := s.store.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return "", nil, ErrInvalidCredentials
		}
		return "", nil, apperr.Remote("login", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return "", nil, err
	}
	return token, u, nil
}

func (s *userService) GetProfile(ctx context.Context, id string) (*model.User, error) {
	u, err := s.store.Users.GetByID(ctx, id)
	return u, apperr.Remote("get profile", err)
}

func (s *userService) UpdateProfile(ctx context.Context, id string, in ProfileInput) (*model.User, error) {
	trim := func(p *string) {
		if p != nil {
			*p = strings.TrimSpace(*p)
		}
	}
	trim(in.FirstName)
	trim(in.LastName)
	trim(in.Username)
	trim(in.AvatarURL)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.FirstName != nil {
		fields["first_name"] = *in.FirstName
	}
	if in.LastName != nil {
		fields["last_name"] = *in.LastName
	}
	if in.Bio != nil {
		fields["bio"] = *in.Bio
	}
	if in.AvatarURL != nil {
		fields["avatar_url"] = *in.AvatarURL
	}
	if in.Username != nil {
		taken, err := s.store.Users.UsernameTaken(ctx, *in.Username, id)
		if err != nil {
			return nil, apperr.Remote("update profile", err)
		}
		if taken {
			return nil, apperr.Conflict("username %s is already taken", *in.Username)
		}
		fields["username"] = *in.Username
	}
	if len(fields) == 0 {
		return s.GetProfile(ctx, id)
	}

	if err := s.store.Users.UpdateProfile(ctx, id, fields); err != nil {
		return nil, apperr.Remote("update profile", err)
	}
	u, err := s.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, apperr.Remote("update profile", err)
	}
	if s.cards != nil {
		_ = s.cards.Invalidate(ctx, id)
	}
	publish(ctx, s.bus, events.Event{Type: events.UserUpdated, EntityID: id, Version: u.Version, ActorID: id})
	return u, nil
}
