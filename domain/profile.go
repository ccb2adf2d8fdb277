package domain

// Profile is the public, viewer-scoped view of a User. Following is
// computed relative to the viewing user and never stored. Credential and
// contact fields are deliberately absent.
type Profile struct {
	Username  string `json:"username"`
	Bio       string `json:"bio"`
	Image     string `json:"image"`
	Following bool   `json:"following"`
}

// AsProfile strips a User down to its public profile view.
func (u *User) AsProfile(following bool) *Profile {
	return &Profile{
		Username:  u.Username,
		Bio:       u.Bio,
		Image:     u.Image,
		Following: following,
	}
}
