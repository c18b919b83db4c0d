package service

import (
	"errors"
	"testing"
	"time"

	"doodle_moodle_backend/internal/config"
	"doodle_moodle_backend/internal/model"
	"doodle_moodle_backend/internal/repository"
	"doodle_moodle_backend/internal/testutil"
	"doodle_moodle_backend/internal/util"

	"golang.org/x/crypto/bcrypt"
)

func newAuthService(t *testing.T) (*AuthService, *repository.UserRepository) {
	t.Helper()
	db := testutil.NewTestDB(t)
	userRepo := repository.NewUserRepository(db)
	cfg := &config.Config{}
	cfg.JWT.Secret = "test-secret"
	cfg.JWT.ExpireTime = time.Hour
	return NewAuthService(userRepo, cfg), userRepo
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, userRepo := newAuthService(t)

	user := &model.User{Name: "Ada", Email: "ada@example.com", Password: "plaintext-pw", Role: model.Instructor}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}

	stored, err := userRepo.FindByEmail("ada@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.Password == "plaintext-pw" {
		t.Fatal("password stored in plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("plaintext-pw")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}
	if stored.Role != model.Instructor {
		t.Fatalf("want role=instructor got=%s", stored.Role)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	first := &model.User{Name: "Ada", Email: "dup@example.com", Password: "password1"}
	if err := svc.Register(first); err != nil {
		t.Fatalf("first register: %v", err)
	}

	second := &model.User{Name: "Eve", Email: "dup@example.com", Password: "password2"}
	err := svc.Register(second)
	if !errors.Is(err, util.ErrEmailRegistered) {
		t.Fatalf("want ErrEmailRegistered got=%v", err)
	}
	// 接口错误文案统一用英文
	if err.Error() != "email already registered" {
		t.Fatalf("want english error message got=%q", err.Error())
	}
}

func TestRegisterStampsActivityTimes(t *testing.T) {
	svc, userRepo := newAuthService(t)

	user := &model.User{Name: "Ada", Email: "stamp@example.com", Password: "password1"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}

	stored, err := userRepo.FindByEmail("stamp@example.com")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if stored.LastLogin.IsZero() || stored.LastSeen.IsZero() {
		t.Fatalf("want activity times set at registration, got lastLogin=%v lastSeen=%v", stored.LastLogin, stored.LastSeen)
	}
}

func TestRegisterUnknownRoleFallsBackToStudent(t *testing.T) {
	svc, userRepo := newAuthService(t)

	user := &model.User{Name: "Bob", Email: "bob@example.com", Password: "password1", Role: "admin"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}
	stored, _ := userRepo.FindByEmail("bob@example.com")
	if stored.Role != model.Student {
		t.Fatalf("want role=student got=%s", stored.Role)
	}
}

func TestLogin(t *testing.T) {
	svc, _ := newAuthService(t)

	user := &model.User{Name: "Ada", Email: "login@example.com", Password: "correct-horse"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}

	token, logged, err := svc.Login("login@example.com", "correct-horse")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("want non-empty token")
	}
	if logged.Email != "login@example.com" {
		t.Fatalf("want logged user, got %+v", logged)
	}

	claims, err := util.ParseJWT(token, "test-secret")
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if claims.UserID != user.ID {
		t.Fatalf("want userID=%d got=%d", user.ID, claims.UserID)
	}
}

// 错误密码和不存在的邮箱必须返回同样的错误文案
func TestLoginUniformFailure(t *testing.T) {
	svc, _ := newAuthService(t)

	user := &model.User{Name: "Ada", Email: "exists@example.com", Password: "correct-horse"}
	if err := svc.Register(user); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, _, errWrongPw := svc.Login("exists@example.com", "wrong-pw")
	_, _, errNoUser := svc.Login("ghost@example.com", "whatever")

	if errWrongPw == nil || errNoUser == nil {
		t.Fatal("both logins must fail")
	}
	if errWrongPw.Error() != errNoUser.Error() {
		t.Fatalf("credential errors must be indistinguishable: %q vs %q", errWrongPw, errNoUser)
	}
}
