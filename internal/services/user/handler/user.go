package handler

import (
	"context"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"gastro-system/internal/apperrors"
	"gastro-system/internal/database/models"
	"gastro-system/internal/utils"
)

type UserHandler struct {
	db       *gorm.DB
	tokenTTL time.Duration
}

func NewUserHandler(db *gorm.DB, tokenTTL time.Duration) *UserHandler {
	return &UserHandler{
		db:       db,
		tokenTTL: tokenTTL,
	}
}

type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Role      string `json:"role"`
}

func (s *UserHandler) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	if strings.TrimSpace(req.Username) == "" || strings.TrimSpace(req.Email) == "" {
		return nil, apperrors.Validation("username and email are required")
	}
	if len(req.Password) < 8 {
		return nil, apperrors.Validation("password must be at least 8 characters")
	}

	roleName := strings.ToUpper(strings.TrimSpace(req.Role))
	if roleName == "" {
		roleName = models.RoleStaff
	}
	var role models.Role
	if err := s.db.Where("role_name = ?", roleName).First(&role).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.Validation("unknown role %q", roleName)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}

	var count int64
	if err := s.db.Model(&models.User{}).
		Where("username = ? OR email = ?", req.Username, req.Email).
		Count(&count).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("username or email already taken")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperrors.Internal("error hashing password: %v", err)
	}

	user := models.User{
		Username:  strings.TrimSpace(req.Username),
		Email:     strings.TrimSpace(req.Email),
		Password:  string(hashed),
		Firstname: req.Firstname,
		Lastname:  req.Lastname,
		RoleID:    role.ID,
		IsActive:  true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		return nil, apperrors.Internal("error creating user: %v", err)
	}

	user.Role = role
	return &user, nil
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResult struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expiresAt"`
	User      models.User `json:"user"`
}

func (s *UserHandler) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var user models.User
	err := s.db.Preload("Role").Where("username = ?", req.Username).First(&user).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.Forbidden("invalid username or password")
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	if !user.IsActive {
		return nil, apperrors.Forbidden("account is disabled")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		return nil, apperrors.Forbidden("invalid username or password")
	}

	token, exp, err := utils.GenerateToken(user.ID, user.Username, user.Role.RoleName, s.tokenTTL)
	if err != nil {
		return nil, apperrors.Internal("error signing token: %v", err)
	}

	now := time.Now()
	s.db.Model(&models.User{}).Where("id = ?", user.ID).Update("last_login", now)
	user.LastLogin = &now

	return &LoginResult{Token: token, ExpiresAt: exp, User: user}, nil
}

func (s *UserHandler) GetUser(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Role").First(&user, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.NotFound("user %d not found", id)
		}
		return nil, apperrors.Internal("database error: %v", err)
	}
	return &user, nil
}

func (s *UserHandler) ListUsers(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := s.db.Preload("Role").Order("username").Find(&users).Error; err != nil {
		return nil, apperrors.Internal("database error: %v", err)
	}
	return users, nil
}

// AccessLevelFor resolves the numeric access level for a role claim carried
// in a token. Unknown roles get level 0.
func (s *UserHandler) AccessLevelFor(ctx context.Context, roleName string) int32 {
	var role models.Role
	if err := s.db.Where("role_name = ?", roleName).First(&role).Error; err != nil {
		return 0
	}
	return role.AccessLevel
}
