package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/votipian/council/backend/internal/middleware"
	"github.com/votipian/council/backend/internal/models"
	"github.com/votipian/council/backend/internal/verify"
)

type AuthHandler struct {
	db       *gorm.DB
	verifier verify.Sender
	secret   []byte
	ttl      time.Duration
	log      *zap.Logger
}

func NewAuthHandler(db *gorm.DB, verifier verify.Sender, secret []byte, ttl time.Duration, log *zap.Logger) *AuthHandler {
	return &AuthHandler{db: db, verifier: verifier, secret: secret, ttl: ttl, log: log}
}

// Register handles student registration. With a verification provider configured the
// account stays unverified until VerifyEmail, otherwise a token is returned right away.
func (h *AuthHandler) Register(c *gin.Context) {
	var input models.RegisterRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.ToLower(strings.TrimSpace(input.Email))
	studentID := strings.TrimSpace(input.StudentID)

	var existing int64
	if err := h.db.Model(&models.User{}).Where("email = ? OR student_id = ?", email, studentID).Count(&existing).Error; err != nil {
		h.log.Error("check existing user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
		return
	}
	if existing > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email or student ID already exists"})
		return
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to hash password"})
		return
	}

	user := models.User{
		FirstName:       strings.TrimSpace(input.FirstName),
		LastName:        strings.TrimSpace(input.LastName),
		Email:           email,
		StudentID:       studentID,
		Department:      input.Department,
		Password:        string(hashedPassword),
		Role:            models.RoleVoter,
		IsEmailVerified: !h.verifier.Enabled(),
		IsActive:        true,
	}

	if err := h.db.Create(&user).Error; err != nil {
		if isDuplicate(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "User with this email or student ID already exists"})
			return
		}
		h.log.Error("create user failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create user"})
		return
	}

	h.log.Info("user registered", zap.String("user_id", user.ID), zap.String("department", user.Department))

	if h.verifier.Enabled() {
		if err := h.verifier.Send(c.Request.Context(), user.Email); err != nil {
			c.JSON(http.StatusCreated, gin.H{
				"message": "Registration successful, but the verification code could not be sent. Please request a new one.",
				"user":    user,
			})
			return
		}
		c.JSON(http.StatusCreated, gin.H{
			"message": "Registration successful. Please check your email for the verification code.",
			"user":    user,
		})
		return
	}

	tokenString, err := middleware.IssueToken(h.secret, user, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"token":   tokenString,
		"user":    user,
	})
}

// Login handles user login
func (h *AuthHandler) Login(c *gin.Context) {
	var input models.LoginRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(input.Password)); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
		return
	}

	if !user.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "Account is deactivated. Please contact an administrator."})
		return
	}
	if !user.IsEmailVerified {
		c.JSON(http.StatusForbidden, gin.H{"error": "Please verify your email before logging in", "code": "email_not_verified"})
		return
	}

	now := time.Now().UTC()
	if err := h.db.Model(&user).UpdateColumn("last_login", now).Error; err != nil {
		h.log.Warn("update last login failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	user.LastLogin = &now

	tokenString, err := middleware.IssueToken(h.secret, user, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{Token: tokenString, User: user})
}

// VerifyEmail checks the emailed code and marks the account verified.
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var input models.VerifyEmailRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	if !user.IsEmailVerified {
		if !h.verifier.Enabled() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email verification is not enabled"})
			return
		}

		approved, err := h.verifier.Check(c.Request.Context(), user.Email, input.Code)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "Could not verify code, please try again"})
			return
		}
		if !approved {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired verification code"})
			return
		}

		if err := h.db.Model(&user).UpdateColumn("is_email_verified", true).Error; err != nil {
			h.log.Error("mark email verified failed", zap.String("user_id", user.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Server error"})
			return
		}
		user.IsEmailVerified = true
	}

	tokenString, err := middleware.IssueToken(h.secret, user, h.ttl)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, models.AuthResponse{Token: tokenString, User: user})
}

// ResendVerification sends a fresh code to an unverified account.
func (h *AuthHandler) ResendVerification(c *gin.Context) {
	var input struct {
		Email string `json:"email" binding:"required,email"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var user models.User
	if err := h.db.Where("email = ?", strings.ToLower(strings.TrimSpace(input.Email))).First(&user).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}
	if user.IsEmailVerified {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email is already verified"})
		return
	}
	if !h.verifier.Enabled() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Email verification is not enabled"})
		return
	}

	if err := h.verifier.Send(c.Request.Context(), user.Email); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to send verification code"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Verification code sent"})
}

// GetMe returns the current authenticated user
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, ok := extractUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	var user models.User
	if err := h.db.First(&user, "id = ?", userID).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
