// Package model defines the data structures used throughout the application.
package model

import "time"

// User is a registered account. Posts and comments reference a user as their
// author but never own it.
//
// A user signs up either locally (Username + password, hash kept in
// PasswordHash) or through GitHub (GitHubID set, PasswordHash empty). The
// credential is the identity provider's business; the content core only ever
// reads ID and Username.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	GitHubID     int64     `json:"githubId,omitempty"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}
