package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forgo/haven/api/internal/model"
)

// SearchCacheTTL is how long a result set is served from cache
const SearchCacheTTL = 60 * time.Second

// MemorialSearcher finds public memorials by name
type MemorialSearcher interface {
	Search(ctx context.Context, q string, limit int) ([]*model.Memorial, error)
}

// MeetupSearcher finds scheduled meetups by title or city
type MeetupSearcher interface {
	Search(ctx context.Context, q string, now time.Time, limit int) ([]*model.Meetup, error)
}

// TopicSearcher finds forum topics by title
type TopicSearcher interface {
	SearchTopics(ctx context.Context, q string, limit int) ([]*model.ForumTopic, error)
}

// ProfileSearcher finds public profiles by username or display name
type ProfileSearcher interface {
	Search(ctx context.Context, q string, limit int) ([]*model.Profile, error)
}

// ResultCache stores JSON-encoded result sets
type ResultCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// SearchService runs substring search across the public collections
type SearchService struct {
	memorials MemorialSearcher
	meetups   MeetupSearcher
	topics    TopicSearcher
	profiles  ProfileSearcher
	cache     ResultCache
	now       func() time.Time
}

// SearchServiceConfig holds configuration for the search service
type SearchServiceConfig struct {
	Memorials MemorialSearcher
	Meetups   MeetupSearcher
	Topics    TopicSearcher
	Profiles  ProfileSearcher
	Cache     ResultCache
}

// NewSearchService creates a new search service
func NewSearchService(cfg SearchServiceConfig) *SearchService {
	return &SearchService{
		memorials: cfg.Memorials,
		meetups:   cfg.Meetups,
		topics:    cfg.Topics,
		profiles:  cfg.Profiles,
		cache:     cfg.Cache,
		now:       time.Now,
	}
}

// Search validates and normalizes the query, then serves it from cache or
// queries each requested collection
func (s *SearchService) Search(ctx context.Context, q, typ string) (*model.SearchResults, error) {
	query, fields := model.NormalizeSearch(q, typ)
	if err := invalid(fields); err != nil {
		return nil, err
	}

	key := "v1:" + string(query.Type) + ":" + query.Q
	var cached model.SearchResults
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		slog.Warn("search cache read failed", slog.String("error", err.Error()))
	} else if hit {
		cached.Cached = true
		return &cached, nil
	}

	res := &model.SearchResults{
		Query:     query.Q,
		Memorials: []model.SearchHit{},
		Meetups:   []model.SearchHit{},
		Topics:    []model.SearchHit{},
		Profiles:  []model.SearchHit{},
	}

	g, gctx := errgroup.WithContext(ctx)
	if query.Type.Includes(model.SearchMemorials) {
		g.Go(func() error {
			rows, err := s.memorials.Search(gctx, query.Q, model.MaxSearchResults)
			if err != nil {
				return err
			}
			for _, m := range rows {
				res.Memorials = append(res.Memorials, model.SearchHit{
					ID:       m.ID,
					Title:    m.Name,
					Subtitle: m.DeathDate,
					URL:      "/memorials/" + m.Slug,
				})
			}
			return nil
		})
	}
	if query.Type.Includes(model.SearchMeetups) {
		g.Go(func() error {
			rows, err := s.meetups.Search(gctx, query.Q, s.now(), model.MaxSearchResults)
			if err != nil {
				return err
			}
			for _, m := range rows {
				starts := m.StartsAt
				res.Meetups = append(res.Meetups, model.SearchHit{
					ID:       m.ID,
					Title:    m.Title,
					Subtitle: m.City,
					URL:      "/meetups/" + keyPart(m.ID),
					Date:     &starts,
				})
			}
			return nil
		})
	}
	if query.Type.Includes(model.SearchTopics) {
		g.Go(func() error {
			rows, err := s.topics.SearchTopics(gctx, query.Q, model.MaxSearchResults)
			if err != nil {
				return err
			}
			for _, t := range rows {
				last := t.LastPostAt
				res.Topics = append(res.Topics, model.SearchHit{
					ID:    t.ID,
					Title: t.Title,
					URL:   "/forums/topics/" + keyPart(t.ID),
					Date:  &last,
				})
			}
			return nil
		})
	}
	if query.Type.Includes(model.SearchProfiles) {
		g.Go(func() error {
			rows, err := s.profiles.Search(gctx, query.Q, model.MaxSearchResults)
			if err != nil {
				return err
			}
			for _, p := range rows {
				username := "@" + p.Username
				res.Profiles = append(res.Profiles, model.SearchHit{
					ID:       p.UserID,
					Title:    p.DisplayName,
					Subtitle: &username,
					URL:      "/profiles/" + p.Username,
				})
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := s.cache.Set(ctx, key, res, SearchCacheTTL); err != nil {
		slog.Warn("search cache write failed", slog.String("error", err.Error()))
	}
	return res, nil
}
