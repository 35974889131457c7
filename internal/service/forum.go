package service

import (
	"context"
	"errors"
	"strings"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// ForumRepository defines the interface for forum storage
type ForumRepository interface {
	ListCategories(ctx context.Context) ([]*model.ForumCategory, error)
	CreateCategory(ctx context.Context, c *model.ForumCategory) error
	GetCategoryBySlug(ctx context.Context, slug string) (*model.ForumCategory, error)
	GetCategoryByID(ctx context.Context, id string) (*model.ForumCategory, error)

	CreateTopic(ctx context.Context, t *model.ForumTopic) error
	GetTopic(ctx context.Context, id string) (*model.ForumTopic, error)
	ListTopics(ctx context.Context, categoryID string, limit, offset int) ([]*model.ForumTopic, error)
	SetTopicFlag(ctx context.Context, id, flag string, value bool) (*model.ForumTopic, error)

	CreatePost(ctx context.Context, p *model.ForumPost) error
	GetPost(ctx context.Context, id string) (*model.ForumPost, error)
	ListPosts(ctx context.Context, topicID string, limit, offset int) ([]*model.ForumPost, error)
	UpdatePostBody(ctx context.Context, id, body string) (*model.ForumPost, error)
	SoftDeletePost(ctx context.Context, post *model.ForumPost) (bool, error)
}

// ForumService manages forum categories, topics and posts
type ForumService struct {
	forumRepo ForumRepository
	profiles  VerificationStore
}

// ForumServiceConfig holds configuration for the forum service
type ForumServiceConfig struct {
	ForumRepo ForumRepository
	Profiles  VerificationStore
}

// NewForumService creates a new forum service
func NewForumService(cfg ForumServiceConfig) *ForumService {
	return &ForumService{
		forumRepo: cfg.ForumRepo,
		profiles:  cfg.Profiles,
	}
}

// ListCategories returns all categories in display order
func (s *ForumService) ListCategories(ctx context.Context) ([]*model.ForumCategory, error) {
	return s.forumRepo.ListCategories(ctx)
}

// CreateCategory adds a category. Admin only.
func (s *ForumService) CreateCategory(ctx context.Context, actor Actor, req model.CreateCategoryRequest) (*model.ForumCategory, error) {
	if !actor.IsAdmin() {
		return nil, ErrAdminRequired
	}
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}

	c := &model.ForumCategory{
		Slug:        req.Slug,
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		SortOrder:   req.SortOrder,
	}
	if err := s.forumRepo.CreateCategory(ctx, c); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrCategoryExists
		}
		return nil, err
	}
	return c, nil
}

// ListTopics returns a category's topics, pinned first
func (s *ForumService) ListTopics(ctx context.Context, slug string, limit, offset int) ([]*model.ForumTopic, error) {
	c, err := s.forumRepo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return s.forumRepo.ListTopics(ctx, c.ID, limit, offset)
}

// CreateTopic starts a topic. Requires email_verified. The category may be
// given by id or slug.
func (s *ForumService) CreateTopic(ctx context.Context, userID string, req model.CreateTopicRequest) (*model.ForumTopic, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	c, err := s.findCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}

	t := &model.ForumTopic{
		CategoryID: c.ID,
		AuthorID:   userID,
		Title:      strings.TrimSpace(req.Title),
		Body:       req.Body,
	}
	if err := s.forumRepo.CreateTopic(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *ForumService) findCategory(ctx context.Context, ref string) (*model.ForumCategory, error) {
	if strings.HasPrefix(ref, "forum_categories:") {
		c, err := s.forumRepo.GetCategoryByID(ctx, ref)
		if err != nil {
			return nil, err
		}
		if c != nil {
			return c, nil
		}
		return nil, ErrCategoryNotFound
	}

	c, err := s.forumRepo.GetCategoryBySlug(ctx, ref)
	if err != nil {
		return nil, err
	}
	if c == nil {
		c, err = s.forumRepo.GetCategoryByID(ctx, "forum_categories:"+ref)
		if err != nil {
			return nil, err
		}
	}
	if c == nil {
		return nil, ErrCategoryNotFound
	}
	return c, nil
}

// GetTopic returns a topic with a page of its posts
func (s *ForumService) GetTopic(ctx context.Context, id string, limit, offset int) (*model.TopicWithPosts, error) {
	t, err := s.loadTopic(ctx, id)
	if err != nil {
		return nil, err
	}
	posts, err := s.forumRepo.ListPosts(ctx, t.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return &model.TopicWithPosts{Topic: t, Posts: posts}, nil
}

// CreatePost replies to a topic. Requires email_verified; locked topics
// accept no replies.
func (s *ForumService) CreatePost(ctx context.Context, userID, topicID string, req model.PostBodyRequest) (*model.ForumPost, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	if _, err := requireVerification(ctx, s.profiles, userID, model.VerificationEmailVerified); err != nil {
		return nil, err
	}

	t, err := s.loadTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if t.IsLocked {
		return nil, ErrTopicLocked
	}

	p := &model.ForumPost{TopicID: t.ID, AuthorID: userID, Body: req.Body}
	if err := s.forumRepo.CreatePost(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// EditPost replaces a post body. Only the author may edit.
func (s *ForumService) EditPost(ctx context.Context, actor Actor, postID string, req model.PostBodyRequest) (*model.ForumPost, error) {
	if err := invalid(req.Validate()); err != nil {
		return nil, err
	}
	p, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor.UserID {
		return nil, ErrNotPostAuthor
	}
	if p.IsDeleted {
		return nil, ErrPostDeleted
	}

	updated, err := s.forumRepo.UpdatePostBody(ctx, p.ID, req.Body)
	if err != nil {
		return nil, err
	}
	if updated == nil {
		return nil, ErrPostDeleted
	}
	return updated, nil
}

// DeletePost soft-deletes a post. Authors and moderators may delete.
func (s *ForumService) DeletePost(ctx context.Context, actor Actor, postID string) (*model.ForumPost, error) {
	p, err := s.loadPost(ctx, postID)
	if err != nil {
		return nil, err
	}
	if p.AuthorID != actor.UserID && !actor.IsModerator() {
		return nil, ErrNotPostAuthor
	}

	ok, err := s.forumRepo.SoftDeletePost(ctx, p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPostDeleted
	}
	return p, nil
}

// SetPinned pins or unpins a topic. Moderator only.
func (s *ForumService) SetPinned(ctx context.Context, actor Actor, topicID string, value *bool) (*model.ForumTopic, error) {
	return s.setFlag(ctx, actor, topicID, "is_pinned", value, func(t *model.ForumTopic) bool { return t.IsPinned })
}

// SetLocked locks or unlocks a topic. Moderator only.
func (s *ForumService) SetLocked(ctx context.Context, actor Actor, topicID string, value *bool) (*model.ForumTopic, error) {
	return s.setFlag(ctx, actor, topicID, "is_locked", value, func(t *model.ForumTopic) bool { return t.IsLocked })
}

func (s *ForumService) setFlag(ctx context.Context, actor Actor, topicID, flag string, value *bool, current func(*model.ForumTopic) bool) (*model.ForumTopic, error) {
	if !actor.IsModerator() {
		return nil, ErrModeratorRequired
	}
	t, err := s.loadTopic(ctx, topicID)
	if err != nil {
		return nil, err
	}
	next := !current(t)
	if value != nil {
		next = *value
	}
	return s.forumRepo.SetTopicFlag(ctx, t.ID, flag, next)
}

func (s *ForumService) loadTopic(ctx context.Context, id string) (*model.ForumTopic, error) {
	rid, ok := recordID("forum_topics", id)
	if !ok {
		return nil, ErrTopicNotFound
	}
	t, err := s.forumRepo.GetTopic(ctx, rid)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, ErrTopicNotFound
	}
	return t, nil
}

func (s *ForumService) loadPost(ctx context.Context, id string) (*model.ForumPost, error) {
	rid, ok := recordID("forum_posts", id)
	if !ok {
		return nil, ErrPostNotFound
	}
	p, err := s.forumRepo.GetPost(ctx, rid)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrPostNotFound
	}
	return p, nil
}
