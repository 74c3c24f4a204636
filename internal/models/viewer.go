package models

type Viewer struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Email        string `json:"email"`
	IsInstructor bool   `json:"is_instructor"`
}

type User struct {
	ID       string  `json:"id"`
	Email    string  `json:"email"`
	FullName *string `json:"full_name"`
	Name     *string `json:"name"`
	IsAdmin  *bool   `json:"is_admin"`
}

// DisplayName mirrors how profiles are rendered: full name first, then the
// short name, then fallback.
func (u *User) DisplayName(fallback string) string {
	if u == nil {
		return fallback
	}
	if u.FullName != nil && *u.FullName != "" {
		return *u.FullName
	}
	if u.Name != nil && *u.Name != "" {
		return *u.Name
	}
	return fallback
}
