package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleVoter     = "voter"
	RoleCandidate = "candidate"
	RoleAdmin     = "admin"
)

// Departments a student can belong to. DepartmentAll is only valid on elections.
const (
	DepartmentCEA  = "CEA"
	DepartmentCCS  = "CCS"
	DepartmentCBA  = "CBA"
	DepartmentCEDU = "CEDU"
	DepartmentCACS = "CACS"
	DepartmentAll  = "ALL"
)

type User struct {
	ID              string     `gorm:"type:uuid;primaryKey" json:"id"`
	FirstName       string     `gorm:"not null" json:"firstName"`
	LastName        string     `gorm:"not null" json:"lastName"`
	Email           string     `gorm:"uniqueIndex;not null" json:"email"`
	StudentID       string     `gorm:"uniqueIndex;not null" json:"studentId"`
	Department      string     `gorm:"not null" json:"department"`
	Password        string     `gorm:"not null" json:"-"`
	Role            string     `gorm:"not null;default:voter" json:"role"`
	IsEmailVerified bool       `gorm:"not null;default:false" json:"isEmailVerified"`
	IsActive        bool       `gorm:"not null;default:true" json:"isActive"`
	LastLogin       *time.Time `json:"lastLogin,omitempty"`
	Notes           string     `json:"notes,omitempty"` // admin notes

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (u User) FullName() string {
	return u.FirstName + " " + u.LastName
}

type RegisterRequest struct {
	FirstName  string `json:"firstName" binding:"required"`
	LastName   string `json:"lastName" binding:"required"`
	Email      string `json:"email" binding:"required,email"`
	StudentID  string `json:"studentId" binding:"required"`
	Department string `json:"department" binding:"required,oneof=CEA CCS CBA CEDU CACS"`
	Password   string `json:"password" binding:"required,min=6"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required"`
}

type UpdateProfileRequest struct {
	FirstName       string `json:"firstName"`
	LastName        string `json:"lastName"`
	Department      string `json:"department" binding:"omitempty,oneof=CEA CCS CBA CEDU CACS"`
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword" binding:"omitempty,min=6"`
}

type AdminUpdateUserRequest struct {
	Role       string  `json:"role" binding:"omitempty,oneof=voter candidate admin"`
	Department string  `json:"department" binding:"omitempty,oneof=CEA CCS CBA CEDU CACS"`
	IsActive   *bool   `json:"isActive"`
	Notes      *string `json:"notes"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}
