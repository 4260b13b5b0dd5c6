package author

import "time"

// Author is the client-safe projection of an identity-provider user.
type Author struct {
	ID              string    `json:"id"`
	Username        string    `json:"username"`
	ProfileImageURL string    `json:"profileImageUrl"`
	CreatedAt       time.Time `json:"createdAt"`
}
