package service

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/kurokana/SiTeJo-Web/internal/models"
	"github.com/kurokana/SiTeJo-Web/internal/repository"
)

const lecturersKey = "active"

// LecturerDirectory serves the active lecturer list shown when a
// student picks an assignee. Results are cached for ttl.
type LecturerDirectory struct {
	users repository.UserRepository
	cache *expirable.LRU[string, []models.UserSummary]
}

func NewLecturerDirectory(users repository.UserRepository, size int, ttl time.Duration) *LecturerDirectory {
	return &LecturerDirectory{
		users: users,
		cache: expirable.NewLRU[string, []models.UserSummary](size, nil, ttl),
	}
}

func (d *LecturerDirectory) List(ctx context.Context) ([]models.UserSummary, error) {
	if v, ok := d.cache.Get(lecturersKey); ok {
		lecturerCacheHits.Inc()
		return v, nil
	}
	lecturerCacheMisses.Inc()

	users, err := d.users.ListActiveByRole(ctx, models.RoleLecturer)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, len(users))
	for i, u := range users {
		out[i] = u.Summary()
	}
	d.cache.Add(lecturersKey, out)
	return out, nil
}

// Invalidate drops the cached list after a user change.
func (d *LecturerDirectory) Invalidate() { d.cache.Purge() }
