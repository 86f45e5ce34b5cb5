package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func copyUser(usr user.User) user.User {
	usr.Roles = copyStrings(usr.Roles)
	if usr.Roles == nil {
		usr.Roles = []string{}
	}
	return usr
}

func isExcluded(usr user.User, excludedUsers []user.User) bool {
	for _, excl := range excludedUsers {
		if excl.ID == usr.ID {
			return true
		}
	}
	return false
}

func (repo *userRepository) CheckUsernameUniqueness(_ context.Context, username, email string, excludedUsers []user.User, _ ...core.DBExecutor) error {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return repo.checkUniqueness(username, email, excludedUsers)
}

func (repo *userRepository) checkUniqueness(username, email string, excludedUsers []user.User) error {
	var emailTaken bool
	for _, usr := range repo.db.users {
		if isExcluded(usr, excludedUsers) {
			continue
		}
		if usr.Username == username {
			return user.ErrUsernameExists
		}
		if usr.Email == email {
			emailTaken = true
		}
	}
	if emailTaken {
		return user.ErrEmailExists
	}
	return nil
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if err := repo.checkUniqueness(usr.Username, usr.Email, nil); err != nil {
		return user.User{}, err
	}
	usr.ID = newID()
	usr = copyUser(usr)
	repo.db.users[usr.ID] = usr
	return copyUser(usr), nil
}

func matchesRoles(usr user.User, roles []string) bool {
	for _, prefix := range roles {
		for _, role := range usr.Roles {
			if strings.HasPrefix(strings.ToLower(role), strings.ToLower(prefix)) {
				return true
			}
		}
	}
	return false
}

func (repo *userRepository) QueryUsers(_ context.Context, filter *user.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(repo.db.users))
	for _, usr := range repo.db.users {
		if filter != nil {
			if filter.Search != "" && !(containsFold(usr.Name, filter.Search) ||
				containsFold(usr.Username, filter.Search) || containsFold(usr.Email, filter.Search)) {
				continue
			}
			if len(filter.Roles) > 0 && !matchesRoles(usr, filter.Roles) {
				continue
			}
			if filter.IsActive != nil && usr.IsActive != *filter.IsActive {
				continue
			}
			if !filter.CreatedFrom.IsZero() && usr.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && usr.CreatedAt.After(filter.CreatedTo) {
				continue
			}
		}
		users = append(users, copyUser(usr))
	}

	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	sortByOrderings(users, ordering, func(i int, field string) interface{} {
		switch field {
		case "name":
			return users[i].Name
		case "username":
			return users[i].Username
		case "email":
			return users[i].Email
		case "last_login":
			return users[i].LastLogin
		default:
			return users[i].CreatedAt
		}
	})
	return users, nil
}

func (repo *userRepository) SearchUsers(_ context.Context, query, excludedID string, limit int, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0)
	for _, usr := range repo.db.users {
		if usr.IsActive && usr.ID != excludedID && containsFold(usr.Username, query) {
			users = append(users, copyUser(usr))
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	if limit > 0 && len(users) > limit {
		users = users[:limit]
	}
	return users, nil
}

func (repo *userRepository) GetUser(_ context.Context, filter user.GetFilter, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var match func(u user.User) bool
	switch {
	case filter.ID != "":
		if usr, ok := repo.db.users[filter.ID]; ok {
			return copyUser(usr), nil
		}
		return user.User{}, user.ErrNotFound
	case filter.Username != "":
		match = func(u user.User) bool { return u.Username == filter.Username }
	case filter.Email != "":
		match = func(u user.User) bool { return u.Email == filter.Email }
	case filter.UsernameOrEmail != "":
		match = func(u user.User) bool { return u.Username == filter.UsernameOrEmail || u.Email == filter.UsernameOrEmail }
	default:
		return user.User{}, user.ErrNotFound
	}
	for _, usr := range repo.db.users {
		if match(usr) {
			return copyUser(usr), nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) ([]user.User, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	users := make([]user.User, 0, len(ids))
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if usr, ok := repo.db.users[id]; ok && !seen[id] {
			seen[id] = true
			users = append(users, copyUser(usr))
		}
	}
	return users, nil
}

func (repo *userRepository) UpdateUser(_ context.Context, usr user.User, _ ...core.DBExecutor) (user.User, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.users[usr.ID]; !ok {
		return user.User{}, user.ErrNotFound
	}
	if err := repo.checkUniqueness(usr.Username, usr.Email, []user.User{usr}); err != nil {
		return user.User{}, err
	}
	usr = copyUser(usr)
	repo.db.users[usr.ID] = usr
	return copyUser(usr), nil
}

func (repo *userRepository) UpdateOrCreateUser(ctx context.Context, usr user.User, exec ...core.DBExecutor) (user.User, error) {
	if usr.ID == "" {
		return repo.CreateUser(ctx, usr, exec...)
	}
	return repo.UpdateUser(ctx, usr, exec...)
}

func (repo *userRepository) DeleteUsersByID(_ context.Context, ids []string, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.users[id]; !ok {
			continue
		}
		repo.db.deleteUserData(id)
		cnt++
	}
	return cnt, nil
}

// deleteUserData cascades a user deletion. The caller holds the write lock.
func (db *DB) deleteUserData(userID string) {
	delete(db.users, userID)
	delete(db.stopwatches, userID)
	for id, fs := range db.fixed {
		if fs.UserID == userID {
			delete(db.fixed, id)
		}
	}
	for id, t := range db.tags {
		if t.UserID == userID {
			delete(db.tags, id)
		}
	}
	for id, cat := range db.categories {
		if cat.UserID == userID {
			delete(db.categories, id)
		}
	}
	for id, t := range db.tasks {
		if t.UserID == userID {
			delete(db.tasks, id)
		}
	}
	for id, p := range db.projects {
		if p.UserID == userID {
			delete(db.projects, id)
		}
	}
	for id, r := range db.requests {
		if r.RequestorID == userID || r.RecipientID == userID {
			delete(db.requests, id)
		}
	}
	for id, f := range db.friendships {
		if f.UserA == userID || f.UserB == userID {
			delete(db.friendships, id)
		}
	}
	for id, e := range db.events {
		if e.SourceID == userID {
			delete(db.events, id)
		}
	}
	for id, r := range db.reactions {
		if r.UserID == userID {
			delete(db.reactions, id)
		} else if _, ok := db.events[r.EventID]; !ok {
			delete(db.reactions, id)
		}
	}
	for id, n := range db.notifications {
		if n.UserID == userID {
			delete(db.notifications, id)
		}
	}
}
