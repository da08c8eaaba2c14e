package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/cppla/board/models"
	"github.com/cppla/board/utils"
)

const (
	minPasswordLen  = 6
	maxProfileRunes = 20
)

// SignupInput is a registration request.
type SignupInput struct {
	Email    string
	Password string
	Name     string
	Nickname string
}

// ProfileUpdate changes the caller's profile. Nil fields are kept.
type ProfileUpdate struct {
	Name     *string
	Nickname *string
}

// Profile is the public view of a user. Email is only set for the user themself.
type Profile struct {
	ID        uint      `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	Name      string    `json:"name"`
	Nickname  string    `json:"nickname"`
	CreatedAt time.Time `json:"created_at"`
}

// UserService manages accounts and the refresh token slot.
type UserService struct {
	db *gorm.DB
}

// NewUserService creates a UserService.
func NewUserService(db *gorm.DB) *UserService {
	return &UserService{db: db}
}

// Signup registers a user. Email must be unused among active accounts.
func (s *UserService) Signup(ctx context.Context, in SignupInput) (*Profile, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || len(email) > 100 {
		return nil, badRequest(40010, "invalid email")
	}
	if len(in.Password) < minPasswordLen {
		return nil, badRequest(40011, fmt.Sprintf("password must be at least %d characters", minPasswordLen))
	}
	name, err := cleanProfileField(in.Name, "name", 40012)
	if err != nil {
		return nil, err
	}
	nickname, err := cleanProfileField(in.Nickname, "nickname", 40013)
	if err != nil {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := models.User{Email: email, ActiveEmail: &email, PasswordHash: hash, Name: name, Nickname: nickname}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&models.User{}).Where("email = ? AND is_delete = ?", email, false).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return conflict(40901, "email already registered")
		}
		return tx.Create(&user).Error
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return nil, conflict(40901, "email already registered")
	}
	if err != nil {
		var svcErr *Error
		if errors.As(err, &svcErr) {
			return nil, err
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return toProfile(user, true), nil
}

// Login checks credentials. Unknown email and wrong password are indistinguishable.
func (s *UserService) Login(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ? AND is_delete = ?", normalizeEmail(email), false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, unauthorized(40111, "invalid email or password")
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, unauthorized(40111, "invalid email or password")
	}
	return &user, nil
}

// ByID returns the profile of an active user as seen by viewerID.
func (s *UserService) ByID(ctx context.Context, userID, viewerID uint) (*Profile, error) {
	user, err := s.active(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	return toProfile(*user, user.ID == viewerID), nil
}

// UpdateProfile changes name and nickname of userID.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, in ProfileUpdate) (*Profile, error) {
	db := s.db.WithContext(ctx)
	user, err := s.active(db, userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if in.Name != nil {
		if user.Name, err = cleanProfileField(*in.Name, "name", 40012); err != nil {
			return nil, err
		}
		updates["name"] = user.Name
	}
	if in.Nickname != nil {
		if user.Nickname, err = cleanProfileField(*in.Nickname, "nickname", 40013); err != nil {
			return nil, err
		}
		updates["nickname"] = user.Nickname
	}
	if len(updates) == 0 {
		return nil, badRequest(40014, "nothing to update")
	}
	if err := db.Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update user %d: %w", userID, err)
	}
	return toProfile(*user, true), nil
}

// DeleteMe soft deletes userID after re-checking its email and password.
func (s *UserService) DeleteMe(ctx context.Context, userID uint, email, password string) error {
	db := s.db.WithContext(ctx)
	user, err := s.active(db, userID)
	if err != nil {
		return err
	}
	if user.Email != normalizeEmail(email) || !utils.CheckPassword(user.PasswordHash, password) {
		return unauthorized(40111, "invalid email or password")
	}
	err = db.Model(user).Updates(map[string]interface{}{"is_delete": true, "active_email": nil, "refresh_token_hash": ""}).Error
	if err != nil {
		return fmt.Errorf("delete user %d: %w", userID, err)
	}
	return nil
}

// SaveRefreshToken stores the digest of the current refresh token of userID.
func (s *UserService) SaveRefreshToken(ctx context.Context, userID uint, token string) error {
	return s.setRefreshDigest(ctx, userID, utils.DigestToken(token))
}

// ClearRefreshToken empties the refresh token slot of userID.
func (s *UserService) ClearRefreshToken(ctx context.Context, userID uint) error {
	return s.setRefreshDigest(ctx, userID, "")
}

// VerifyRefreshToken checks token against the slot of an active userID.
func (s *UserService) VerifyRefreshToken(ctx context.Context, userID uint, token string) (*models.User, error) {
	user, err := s.active(s.db.WithContext(ctx), userID)
	if errors.Is(err, ErrNotFound) {
		return nil, unauthorized(40113, "invalid refresh token")
	}
	if err != nil {
		return nil, err
	}
	if user.RefreshTokenHash == "" || user.RefreshTokenHash != utils.DigestToken(token) {
		return nil, unauthorized(40113, "invalid refresh token")
	}
	return user, nil
}

func (s *UserService) setRefreshDigest(ctx context.Context, userID uint, digest string) error {
	err := s.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ? AND is_delete = ?", userID, false).
		Update("refresh_token_hash", digest).Error
	if err != nil {
		return fmt.Errorf("update refresh token of user %d: %w", userID, err)
	}
	return nil
}

func (s *UserService) active(db *gorm.DB, userID uint) (*models.User, error) {
	var user models.User
	err := db.Where("id = ? AND is_delete = ?", userID, false).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFound(40402, "user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("load user %d: %w", userID, err)
	}
	return &user, nil
}

func toProfile(u models.User, withEmail bool) *Profile {
	p := &Profile{ID: u.ID, Name: u.Name, Nickname: u.Nickname, CreatedAt: u.CreatedAt}
	if withEmail {
		p.Email = u.Email
	}
	return p
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cleanProfileField(raw, field string, code int) (string, error) {
	v := utils.SanitizeText(raw)
	if v == "" {
		return "", badRequest(code, field+" cannot be empty")
	}
	if len([]rune(v)) > maxProfileRunes {
		return "", badRequest(code, fmt.Sprintf("%s must be at most %d characters", field, maxProfileRunes))
	}
	return v, nil
}
