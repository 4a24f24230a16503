package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/oms-labs/oms-backend/pkg/enums"
)

// User represents the canonical identity entity.
type User struct {
	ID            uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	FirstName     string         `gorm:"column:first_name;not null"`
	LastName      string         `gorm:"column:last_name;not null"`
	Email         string         `gorm:"column:email;type:text;not null;uniqueIndex"`
	CountryCode   string         `gorm:"column:country_code;not null;default:''"`
	PrimaryMobile string         `gorm:"column:primary_mobile;not null"`
	PasswordHash  string         `gorm:"column:password_hash;not null"`
	Role          enums.UserRole `gorm:"column:role;type:text;not null;default:'customer'"`
	DOB           *time.Time     `gorm:"column:dob"`
	IsActive      bool           `gorm:"column:is_active;not null;default:true"`
	CreatedAt     time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
