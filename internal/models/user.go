package models

import "time"

// User представляет учетную запись пользователя
type User struct {
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ID           string    `json:"id"`       // UUID пользователя
	Email        string    `json:"email"`    // уникальный email
	Name         string    `json:"name"`     // отображаемое имя
	PasswordHash string    `json:"-"`        // bcrypt хеш, никогда не сериализуется
	Verified     bool      `json:"verified"` // email подтвержден
}

// UserView is the outward projection of a User: everything except the credential.
type UserView struct {
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Verified  bool      `json:"verified"`
}

// View returns the user without its password hash.
func (u *User) View() UserView {
	return UserView{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}
