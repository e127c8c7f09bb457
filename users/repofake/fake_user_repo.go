package fakeuserrepo

import (
	"sync"

	"github.com/google/uuid"
	apperrors "github.com/labtrack/labtrack-auth/internal/errors"
	"github.com/labtrack/labtrack-auth/users"
)

var _ users.UserRepo = (*FakeUserRepo)(nil)

type FakeUserRepo struct {
	users       map[string]*users.User
	usernameIds map[string]string // username to user id
	emailIds    map[string]string // email to user id
	lock        sync.RWMutex
}

func NewFakeUserRepo() *FakeUserRepo {
	return &FakeUserRepo{
		users:       make(map[string]*users.User),
		usernameIds: make(map[string]string),
		emailIds:    make(map[string]string),
	}
}

func (ur *FakeUserRepo) Upsert(user *users.User) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	ur.users[user.ID] = user
	ur.usernameIds[user.Username] = user.ID
	ur.emailIds[user.Email] = user.ID
	return nil
}

func (ur *FakeUserRepo) Delete(username string) error {
	ur.lock.Lock()
	defer ur.lock.Unlock()

	userID, ok := ur.usernameIds[username]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(ur.usernameIds, username)

	user, ok := ur.users[userID]
	if !ok {
		return nil
	}
	delete(ur.emailIds, user.Email)
	delete(ur.users, userID)
	return nil
}

func (ur *FakeUserRepo) GetByID(id string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.users[id]; !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.users[id], nil
}

func (ur *FakeUserRepo) GetByUsername(username string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.usernameIds[username]; !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.users[ur.usernameIds[username]], nil
}

func (ur *FakeUserRepo) GetByEmail(email string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if _, ok := ur.emailIds[email]; !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return ur.users[ur.emailIds[email]], nil
}

func (ur *FakeUserRepo) GetByRememberToken(token string) (*users.User, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()

	if token == "" {
		return nil, apperrors.ErrUserNotFound
	}
	for _, user := range ur.users {
		if user.RememberToken == token {
			return user, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (ur *FakeUserRepo) Count() (int, error) {
	ur.lock.RLock()
	defer ur.lock.RUnlock()
	return len(ur.users), nil
}
