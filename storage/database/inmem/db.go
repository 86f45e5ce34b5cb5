// Package inmemdb implements the domain repositories in memory.
// It backs the API tests and the `-inmem` development mode; data does not survive a restart.
package inmemdb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx/types"

	"github.com/Kobu-Labs/nowaster-web-sub002/core"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/category"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/feed"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/friend"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/notification"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/project"
	"github.com/Kobu-Labs/nowaster-web-sub002/core/user"
)

type (
	tagRecord struct {
		ID          string
		UserID      string
		Label       string
		Color       string
		CategoryIDs []string
		CreatedAt   time.Time
	}

	fixedRecord struct {
		ID          string
		UserID      string
		CategoryID  string
		TagIDs      []string
		StartTime   time.Time
		EndTime     time.Time
		Description string
		TaskID      *string
		CreatedAt   time.Time
		UpdatedAt   time.Time
	}

	stopwatchRecord struct {
		ID          string
		UserID      string
		CategoryID  *string
		TagIDs      []string
		StartTime   time.Time
		Description string
		TaskID      *string
		CreatedAt   time.Time
	}

	requestRecord struct {
		ID                  string
		RequestorID         string
		RecipientID         string
		Status              friend.Status
		IntroductionMessage string
		CreatedAt           time.Time
		RespondedAt         *time.Time
	}

	friendshipRecord struct {
		ID        string
		UserA     string
		UserB     string
		CreatedAt time.Time
	}

	eventRecord struct {
		ID        string
		SourceID  string
		EventType feed.EventType
		Data      types.JSONText
		CreatedAt time.Time
	}

	// DB holds every table behind a single lock.
	DB struct {
		mu   sync.RWMutex
		txMu sync.Mutex

		users         map[string]user.User
		categories    map[string]category.Category
		tags          map[string]tagRecord
		projects      map[string]project.Project
		tasks         map[string]project.Task
		fixed         map[string]fixedRecord
		stopwatches   map[string]stopwatchRecord // by user ID
		requests      map[string]requestRecord
		friendships   map[string]friendshipRecord
		events        map[string]eventRecord
		reactions     map[string]feed.Reaction
		notifications map[string]notification.Notification
	}
)

func Open() *DB {
	return &DB{
		users:         make(map[string]user.User),
		categories:    make(map[string]category.Category),
		tags:          make(map[string]tagRecord),
		projects:      make(map[string]project.Project),
		tasks:         make(map[string]project.Task),
		fixed:         make(map[string]fixedRecord),
		stopwatches:   make(map[string]stopwatchRecord),
		requests:      make(map[string]requestRecord),
		friendships:   make(map[string]friendshipRecord),
		events:        make(map[string]eventRecord),
		reactions:     make(map[string]feed.Reaction),
		notifications: make(map[string]notification.Notification),
	}
}

func (db *DB) PingContext(context.Context) error { return nil }

// Flush empties every table.
func (db *DB) Flush() {
	fresh := Open()
	db.mu.Lock()
	defer db.mu.Unlock()
	db.users = fresh.users
	db.categories = fresh.categories
	db.tags = fresh.tags
	db.projects = fresh.projects
	db.tasks = fresh.tasks
	db.fixed = fresh.fixed
	db.stopwatches = fresh.stopwatches
	db.requests = fresh.requests
	db.friendships = fresh.friendships
	db.events = fresh.events
	db.reactions = fresh.reactions
	db.notifications = fresh.notifications
}

type txManager struct {
	db *DB
}

var _ core.TxManager = (*txManager)(nil)

// NewTxManager serializes units of work. Changes are not rolled back when fn fails.
func NewTxManager(db *DB) core.TxManager {
	return &txManager{db: db}
}

func (tm *txManager) WithinTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	tm.db.txMu.Lock()
	defer tm.db.txMu.Unlock()
	return fn(nil)
}

func newID() string {
	return uuid.New().String()
}

// containsFold is the ILIKE '%sub%' of the SQL repositories.
func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func without(list []string, s string) []string {
	res := make([]string, 0, len(list))
	for _, item := range list {
		if item != s {
			res = append(res, item)
		}
	}
	return res
}

func copyStrings(list []string) []string {
	if list == nil {
		return nil
	}
	return append(make([]string, 0, len(list)), list...)
}

func copyStringPtr(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

// compare orders strings, times, floats and bools; other values are equal.
func compare(a, b interface{}) int {
	switch av := a.(type) {
	case string:
		return strings.Compare(strings.ToLower(av), strings.ToLower(b.(string)))
	case time.Time:
		bv := b.(time.Time)
		switch {
		case av.Before(bv):
			return -1
		case av.After(bv):
			return 1
		}
	case float64:
		bv := b.(float64)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	case bool:
		bv := b.(bool)
		switch {
		case !av && bv:
			return -1
		case av && !bv:
			return 1
		}
	}
	return 0
}

// sortByOrderings stable sorts a slice of n items; value returns the field of the i-th item.
func sortByOrderings(slice interface{}, ordering []core.DBOrdering, value func(i int, field string) interface{}) {
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			c := compare(value(i, ord.Field), value(j, ord.Field))
			if c == 0 {
				continue
			}
			if ord.Ascending {
				return c < 0
			}
			return c > 0
		}
		return false
	})
}

// paginate applies an SQL like OFFSET/LIMIT to n items and returns the bounds.
func paginate(n, offset, limit int) (int, int) {
	if offset > n {
		offset = n
	}
	end := n
	if limit > 0 && offset+limit < n {
		end = offset + limit
	}
	return offset, end
}
