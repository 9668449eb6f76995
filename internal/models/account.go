package models

import (
	"fmt"
	"slices"
	"time"

	"github.com/jihwannnn/likebox-2024-test/internal/shared"
)

// Token is one user's OAuth credential pair for one platform.
//
// ExpiresAt is set when the platform reports a lifetime at exchange or refresh time.
// When it is zero the access token itself is decoded for an expiry claim.
type Token struct {
	UID          string    `json:"uid"`
	Platform     Platform  `json:"platform"`
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// Validate checks that the token can be keyed and used.
func (t Token) Validate() error {
	if t.UID == "" {
		return fmt.Errorf("%w: token uid", shared.ErrMissingArgument)
	}
	if !t.Platform.Valid() {
		return fmt.Errorf("%w: token platform", shared.ErrUnknownPlatform)
	}
	if t.AccessToken == "" {
		return fmt.Errorf("%w: access token", shared.ErrMissingArgument)
	}
	return nil
}

// Info holds per-user account facts shown by the client.
type Info struct {
	UID                string     `json:"uid"`
	ConnectedPlatforms []Platform `json:"connectedPlatforms"`
}

// NewInfo returns an Info with no linked platforms.
func NewInfo(uid string) Info {
	return Info{UID: uid, ConnectedPlatforms: []Platform{}}
}

// Connect adds p to the connected platforms. It returns true when the list changed.
func (i *Info) Connect(p Platform) bool {
	if slices.Contains(i.ConnectedPlatforms, p) {
		return false
	}
	i.ConnectedPlatforms = append(i.ConnectedPlatforms, p)
	slices.Sort(i.ConnectedPlatforms)
	return true
}

// Disconnect removes p from the connected platforms. It returns true when the list changed.
func (i *Info) Disconnect(p Platform) bool {
	n := len(i.ConnectedPlatforms)
	i.ConnectedPlatforms = slices.DeleteFunc(i.ConnectedPlatforms, func(c Platform) bool { return c == p })
	return len(i.ConnectedPlatforms) != n
}

// Setting holds client preferences.
type Setting struct {
	UID                 string `json:"uid"`
	IsDarkMode          bool   `json:"isDarkMode"`
	NotificationEnabled bool   `json:"notificationEnabled"`
	Language            string `json:"language"`
}

// DefaultLanguage is applied to new accounts.
const DefaultLanguage = "ko"

// NewSetting returns the defaults written at account setup.
func NewSetting(uid string) Setting {
	return Setting{UID: uid, IsDarkMode: false, NotificationEnabled: true, Language: DefaultLanguage}
}
