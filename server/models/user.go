package models

import (
	"errors"
	"fmt"
	"strings"

	"github.com/msumarli/rolodex/server/auth"
	"gorm.io/gorm"
)

// ErrDuplicateUsername is returned when a create runs into the unique
// constraint on users.username.
var ErrDuplicateUsername = errors.New("username already registered")

var updatableUserFields = []string{"name", "password"}

type User struct {
	BaseModel
	Username string    `json:"username" gorm:"not null;uniqueIndex"`
	Password string    `json:"-" gorm:"not null"`
	Name     string    `json:"name"`
	Token    *string   `json:"token,omitempty" gorm:"uniqueIndex"`
	Contacts []Contact `json:"contacts,omitempty" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// CreateUser hashes the given password & persists the user with no
// session token. The unique constraint on username backstops the
// handler-level duplicate check, so two concurrent registrations
// cannot both succeed.
func CreateUser(user *User) error {
	passwordHash, err := auth.HashPassword(user.Password)
	if err != nil {
		return err
	}
	user.Password = passwordHash

	err = db.Create(user).Error
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: users.username") {
		return ErrDuplicateUsername
	}

	return err
}

func FindUserBy(field string, value interface{}) (*User, error) {
	user := User{}
	err := db.First(&user, fmt.Sprintf("%v = ?", field), value).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// FindUserByToken maps a raw session token to its user. The lookup is
// an exact, case-sensitive match against the stored token.
func FindUserByToken(token string) (*User, error) {
	user := User{}
	err := db.First(&user, "token = ?", token).Error
	if err != nil {
		return nil, err
	}

	return &user, nil
}

func UsernameTaken(username string) (bool, error) {
	err := db.First(&User{}, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

// Update applies a partial update to the user. Only name & password are
// updatable; a supplied password is re-hashed, anything else in data is
// ignored by the field whitelist.
func (user *User) Update(data map[string]interface{}) error {
	if raw, present := data["password"]; present {
		password, ok := raw.(string)
		if !ok {
			return errors.New("password must be a string")
		}

		passwordHash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		data["password"] = passwordHash
	}

	return db.Model(&User{}).Where("id = ?", user.ID).Select(updatableUserFields).Updates(data).Error
}

// SetToken overwrites the user's session token. Passing nil clears it,
// which is how logout invalidates the current session.
func (user *User) SetToken(token *string) error {
	err := db.Model(&User{}).Where("id = ?", user.ID).Update("token", token).Error
	if err != nil {
		return err
	}

	user.Token = token
	return nil
}
