package services

import (
	"context"
	"testing"
	"time"

	"github.com/joshua-takyi/unibook/internal/apperror"
	"github.com/joshua-takyi/unibook/internal/helpers"
	"github.com/joshua-takyi/unibook/internal/models"
	"golang.org/x/crypto/bcrypt"
)

func newUserFixture(t *testing.T) (*memStore, *UserService, *helpers.HMACTokens) {
	t.Helper()
	store := newMemStore()
	tokens := helpers.NewHMACTokens("test-secret", time.Hour)
	return store, NewUserService(store, tokens, bcrypt.MinCost), tokens
}

func TestSignupAndLogin(t *testing.T) {
	_, svc, tokens := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Signup(ctx, SignupInput{Name: "Kofi Mensah", Email: "Kofi@Example.com", Password: "Str0ngPass"})
	if err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if user.Role != models.RoleUser || user.Email != "kofi@example.com" || user.Password == "Str0ngPass" {
		t.Errorf("unexpected user: %+v", user)
	}

	session, err := svc.Login(ctx, LoginInput{Email: "kofi@example.com", Password: "Str0ngPass"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	claims, err := tokens.Verify(session.Token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != user.ID.Hex() || claims.Role != models.RoleUser {
		t.Errorf("claims = %+v", claims)
	}

	if _, err := svc.Login(ctx, LoginInput{Email: "kofi@example.com", Password: "WrongPass1"}); apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Errorf("wrong password: got %v", err)
	}
	if _, err := svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "Str0ngPass"}); apperror.KindOf(err) != apperror.KindUnauthorized {
		t.Errorf("unknown email: got %v", err)
	}
}

func TestSignupRejects(t *testing.T) {
	_, svc, _ := newUserFixture(t)
	ctx := context.Background()

	if _, err := svc.Signup(ctx, SignupInput{Name: "Ama", Email: "ama@example.com", Password: "weak"}); apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("weak password: got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Name: "Ama", Email: "not-an-email", Password: "Str0ngPass"}); apperror.KindOf(err) != apperror.KindValidation {
		t.Errorf("bad email: got %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Name: "Ama", Email: "ama@example.com", Password: "Str0ngPass"}); err != nil {
		t.Fatalf("Signup: %v", err)
	}
	if _, err := svc.Signup(ctx, SignupInput{Name: "Ama", Email: "ama@example.com", Password: "Str0ngPass"}); apperror.KindOf(err) != apperror.KindConflict {
		t.Errorf("duplicate: got %v", err)
	}
}

func TestRegisterAdminRequiresAdmin(t *testing.T) {
	store, svc, _ := newUserFixture(t)
	ctx := context.Background()
	user := principalFor(store.AddUser(models.RoleUser))
	admin := principalFor(store.AddUser(models.RoleAdmin))
	in := SignupInput{Name: "Ops Admin", Email: "ops@example.com", Password: "Adm1nPass"}

	if _, err := svc.RegisterAdmin(ctx, user, in); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("user: got %v", err)
	}
	created, err := svc.RegisterAdmin(ctx, admin, in)
	if err != nil {
		t.Fatalf("RegisterAdmin: %v", err)
	}
	if created.Role != models.RoleAdmin {
		t.Errorf("role = %q", created.Role)
	}

	n, err := svc.CountUsers(ctx, admin)
	if err != nil || n != 3 {
		t.Errorf("CountUsers = %d, %v", n, err)
	}
	if _, err := svc.ListUsers(ctx, user, 0, 10); apperror.KindOf(err) != apperror.KindForbidden {
		t.Errorf("ListUsers as user: got %v", err)
	}
}
