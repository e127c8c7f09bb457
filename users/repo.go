package users

// UserRepo persists user records. Lookups return ErrUserNotFound (from
// internal/errors) when no user matches; any other error is a store
// failure and must not be read as "not found".
type UserRepo interface {
	Upsert(user *User) error
	Delete(username string) error
	GetByID(ID string) (*User, error)
	GetByUsername(username string) (*User, error)
	GetByEmail(email string) (*User, error)
	GetByRememberToken(token string) (*User, error)
	Count() (int, error)
}
