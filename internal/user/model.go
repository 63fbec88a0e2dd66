package user

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Role string

const (
	RoleDriver    Role = "driver"
	RolePassenger Role = "passenger"
	RoleBoth      Role = "both"
)

// SavedLocation is a passenger/driver's bookmarked pickup or drop-off
// point, reused to prefill ride/request forms.
type SavedLocation struct {
	Label   string  `bson:"label" json:"label"`
	Address string  `bson:"address" json:"address"`
	Lat     float64 `bson:"lat" json:"lat"`
	Lon     float64 `bson:"lon" json:"lon"`
}

// User is spec.md §3's User entity.
type User struct {
	ID                      primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email                   string              `bson:"email" json:"email"`
	Phone                   string              `bson:"phone,omitempty" json:"phone,omitempty"`
	PhoneVerified           bool                `bson:"phoneVerified" json:"phoneVerified"`
	PasswordHash            string              `bson:"passwordHash" json:"-"`
	DisplayName             string              `bson:"displayName" json:"displayName"`
	Role                    Role                `bson:"role" json:"role"`
	ConnectedPayoutAccountID string             `bson:"connectedPayoutAccountId,omitempty" json:"connectedPayoutAccountId,omitempty"`
	Avatar                  string              `bson:"avatar,omitempty" json:"avatar,omitempty"`
	KYCImageRefs            []string            `bson:"kycImageRefs,omitempty" json:"kycImageRefs,omitempty"`
	RatingMean              float64             `bson:"ratingMean" json:"ratingMean"`
	RatingCount             int64               `bson:"ratingCount" json:"ratingCount"`
	SavedLocations          []SavedLocation     `bson:"savedLocations,omitempty" json:"savedLocations,omitempty"`
	SoftDeletedAt           *time.Time          `bson:"softDeletedAt,omitempty" json:"-"`
	CreatedAt               time.Time           `bson:"createdAt" json:"createdAt"`
	UpdatedAt               time.Time           `bson:"updatedAt" json:"updatedAt"`
}

type RegisterRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"displayName" binding:"required"`
	Role        Role   `json:"role" binding:"required"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	User         User   `json:"user"`
}
