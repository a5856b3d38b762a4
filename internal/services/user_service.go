package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"golang.org/x/crypto/bcrypt"
)

type TokenIssuer interface {
	Issue(userID, email, name, role string) (string, time.Time, error)
}

type SignupInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type Session struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

type UserService struct {
	userRepo   models.UserRepo
	tokens     TokenIssuer
	bcryptCost int
	timeout    time.Duration
}

func NewUserService(userRepo models.UserRepo, tokens TokenIssuer, bcryptCost int) *UserService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &UserService{
		userRepo:   userRepo,
		tokens:     tokens,
		bcryptCost: bcryptCost,
		timeout:    defaultTimeout,
	}
}

// Signup registers a regular user.
func (us *UserService) Signup(ctx context.Context, in SignupInput) (*models.User, error) {
	return us.create(ctx, in, models.RoleUser)
}

// RegisterAdmin is reachable only by existing admins and by the admin CLI.
func (us *UserService) RegisterAdmin(ctx context.Context, p *helpers.Principal, in SignupInput) (*models.User, error) {
	if p != nil && !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	return us.create(ctx, in, models.RoleAdmin)
}

func (us *UserService) create(ctx context.Context, in SignupInput, role string) (*models.User, error) {
	user := &models.User{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.ToLower(strings.TrimSpace(in.Email)),
		Phone: strings.TrimSpace(in.Phone),
		Role:  role,
	}
	if err := models.Validate.Struct(user); err != nil {
		return nil, apperror.Validation("invalid user data: %v", err)
	}
	if !helpers.IsPasswordStrong(in.Password) {
		return nil, apperror.Validation("password must be at least 8 characters and contain upper case, lower case and a digit")
	}

	hash, err := helpers.HashPassword(in.Password, us.bcryptCost)
	if err != nil {
		return nil, apperror.Unexpected("failed to hash password", err)
	}
	now := time.Now().UTC()
	user.Password = hash
	user.CreatedAt = now
	user.UpdatedAt = now

	ctx, cancel := withTimeout(ctx, us.timeout)
	defer cancel()

	created, err := us.userRepo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return nil, apperror.Conflict("email already registered")
		}
		return nil, storeError("user", err)
	}
	return created, nil
}

func (us *UserService) Login(ctx context.Context, in LoginInput) (*Session, error) {
	if err := models.Validate.Var(in.Email, "required,email"); err != nil {
		return nil, apperror.Validation("a valid email is required")
	}
	if in.Password == "" {
		return nil, apperror.Validation("password is required")
	}

	ctx, cancel := withTimeout(ctx, us.timeout)
	defer cancel()

	user, err := us.userRepo.GetUserByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, apperror.Unauthorized("invalid email or password")
		}
		return nil, storeError("user", err)
	}
	if !helpers.CheckPassword(user.Password, in.Password) {
		return nil, apperror.Unauthorized("invalid email or password")
	}

	token, exp, err := us.tokens.Issue(user.ID.Hex(), user.Email, user.Name, user.Role)
	if err != nil {
		return nil, apperror.Unexpected("failed to issue token", err)
	}
	return &Session{Token: token, ExpiresAt: exp, User: user}, nil
}

func (us *UserService) GetUser(ctx context.Context, p *helpers.Principal, id string) (*models.User, error) {
	if !CanActForUser(p, id) {
		return nil, apperror.Forbidden("you do not have access to this user")
	}
	userID, err := helpers.ParseObjectID(id)
	if err != nil {
		return nil, apperror.Validation("invalid user id")
	}

	ctx, cancel := withTimeout(ctx, us.timeout)
	defer cancel()

	user, err := us.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, storeError("user", err)
	}
	return user, nil
}

func (us *UserService) ListUsers(ctx context.Context, p *helpers.Principal, offset, limit int) ([]*models.User, error) {
	if !p.IsAdmin() {
		return nil, apperror.Forbidden("admin access required")
	}
	if offset < 0 || limit <= 0 {
		return nil, apperror.Validation("invalid offset or limit")
	}

	ctx, cancel := withTimeout(ctx, us.timeout)
	defer cancel()

	users, err := us.userRepo.ListUsers(ctx, offset, limit)
	if err != nil {
		return nil, storeError("users", err)
	}
	return users, nil
}

func (us *UserService) CountUsers(ctx context.Context, p *helpers.Principal) (int64, error) {
	if !p.IsAdmin() {
		return 0, apperror.Forbidden("admin access required")
	}

	ctx, cancel := withTimeout(ctx, us.timeout)
	defer cancel()

	n, err := us.userRepo.CountUsers(ctx)
	if err != nil {
		return 0, storeError("users", err)
	}
	return n, nil
}
