package domain

import (
	"time"
)

// AccountProfile is the owning identity of an energy node. Created during
// onboarding (outside this service) and immutable here except through
// explicit profile updates.
type AccountProfile struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	Email         string    `json:"email" gorm:"uniqueIndex"`
	Latitude      float64   `json:"latitude"`
	Longitude     float64   `json:"longitude"`
	HouseholdSize int       `json:"household_size"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (AccountProfile) TableName() string {
	return "account_profiles"
}
