package domain

// Credential is the opaque bearer token proving the session's identity to the API.
type Credential string

// Profile is the remote API's representation of the current user.
type Profile struct {
	Email    string `json:"email"`
	Token    string `json:"token,omitempty"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// ProfileDraft is the editable working copy held by the settings form.
type ProfileDraft struct {
	ImageURL    string
	Username    string
	Bio         string
	Email       string
	NewPassword string
}

// DraftFromProfile copies the editable fields of p. NewPassword is never pre-populated.
func DraftFromProfile(p Profile) ProfileDraft {
	return ProfileDraft{
		ImageURL: p.Image,
		Username: p.Username,
		Bio:      p.Bio,
		Email:    p.Email,
	}
}

// ProfileUpdate is the payload sent to the update endpoint.
type ProfileUpdate struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// Update builds the update payload for the draft.
func (d ProfileDraft) Update() ProfileUpdate {
	return ProfileUpdate{
		Email:    d.Email,
		Password: d.NewPassword,
		Username: d.Username,
		Bio:      d.Bio,
		Image:    d.ImageURL,
	}
}
