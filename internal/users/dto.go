package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/oms-labs/oms-backend/pkg/db/models"
	"github.com/oms-labs/oms-backend/pkg/enums"
)

// UserDTO is the transport shape that omits sensitive credentials.
type UserDTO struct {
	ID            uuid.UUID      `json:"id"`
	Email         string         `json:"email"`
	FirstName     string         `json:"first_name"`
	LastName      string         `json:"last_name"`
	CountryCode   string         `json:"country_code,omitempty"`
	PrimaryMobile string         `json:"primary_mobile,omitempty"`
	Role          enums.UserRole `json:"role"`
	DOB           *time.Time     `json:"dob,omitempty"`
	IsActive      bool           `json:"is_active"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// CreateUserDTO holds the data required by the repo to persist a new user.
type CreateUserDTO struct {
	Email         string
	PasswordHash  string
	FirstName     string
	LastName      string
	CountryCode   string
	PrimaryMobile string
	Role          enums.UserRole
	DOB           *time.Time
	IsActive      *bool
}

func FromModel(u *models.User) *UserDTO {
	if u == nil {
		return nil
	}

	return &UserDTO{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		CountryCode:   u.CountryCode,
		PrimaryMobile: u.PrimaryMobile,
		Role:          u.Role,
		DOB:           u.DOB,
		IsActive:      u.IsActive,
		CreatedAt:     u.CreatedAt,
		UpdatedAt:     u.UpdatedAt,
	}
}

func (c CreateUserDTO) ToModel() *models.User {
	isActive := true
	if c.IsActive != nil {
		isActive = *c.IsActive
	}

	role := c.Role
	if role == "" {
		role = enums.UserRoleCustomer
	}

	return &models.User{
		Email:         c.Email,
		PasswordHash:  c.PasswordHash,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		CountryCode:   c.CountryCode,
		PrimaryMobile: c.PrimaryMobile,
		Role:          role,
		DOB:           c.DOB,
		IsActive:      isActive,
	}
}
