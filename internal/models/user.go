package models

import "time"

// Stats aggregates a user's meme activity. Counters only ever grow,
// except TotalMemes which drops when a meme is deleted.
type Stats struct {
	TotalMemes   int `json:"totalMemes"`
	TotalUpvotes int `json:"totalUpvotes"`
	TotalViews   int `json:"totalViews"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	DisplayName  string    `json:"displayName"`
	AvatarURL    string    `json:"avatarUrl"`
	Bio          string    `json:"bio"`
	CreatedAt    time.Time `json:"createdAt"`
	Badges       []string  `json:"badges"`
	Stats        Stats     `json:"stats"`
}

// WithoutSecret returns a copy stripped of the password hash. Everything
// handed to callers or written as the session snapshot goes through it.
func (u User) WithoutSecret() User {
	u.PasswordHash = ""
	return u
}
