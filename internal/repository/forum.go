package repository

import (
	"context"
	"fmt"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// ForumRepository handles categories, topics and posts
type ForumRepository struct {
	db database.Database
}

// NewForumRepository creates a new forum repository
func NewForumRepository(db database.Database) *ForumRepository {
	return &ForumRepository{db: db}
}

var (
	parseCategory = parseInto[model.ForumCategory]()
	parseTopic    = parseInto[model.ForumTopic]()
	parsePost     = parseInto[model.ForumPost]()
)

// ListCategories returns categories in display order
func (r *ForumRepository) ListCategories(ctx context.Context) ([]*model.ForumCategory, error) {
	return selectMany(ctx, r.db, `SELECT * FROM forum_categories ORDER BY sort_order ASC, name ASC`, nil, parseCategory)
}

// CreateCategory stores a category. Slug collisions return database.ErrDuplicate.
func (r *ForumRepository) CreateCategory(ctx context.Context, c *model.ForumCategory) error {
	query := `
		CREATE forum_categories CONTENT {
			slug: $slug,
			name: $name,
			description: $description,
			sort_order: $sort_order,
			topic_count: 0,
			created_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"slug":        c.Slug,
		"name":        c.Name,
		"description": ptrToNone(c.Description),
		"sort_order":  c.SortOrder,
	}
	created, err := createOne(ctx, r.db, query, vars, parseCategory)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: category slug exists", database.ErrDuplicate)
		}
		return err
	}
	*c = *created
	return nil
}

// GetCategoryBySlug retrieves a category by slug
func (r *ForumRepository) GetCategoryBySlug(ctx context.Context, slug string) (*model.ForumCategory, error) {
	return selectOne(ctx, r.db, `SELECT * FROM forum_categories WHERE slug = $slug LIMIT 1`,
		map[string]interface{}{"slug": slug}, parseCategory)
}

// GetCategoryByID retrieves a category by id
func (r *ForumRepository) GetCategoryByID(ctx context.Context, id string) (*model.ForumCategory, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'forum_categories'`,
		map[string]interface{}{"id": id}, parseCategory)
}

// CreateTopic stores a topic and bumps the category topic_count
func (r *ForumRepository) CreateTopic(ctx context.Context, t *model.ForumTopic) error {
	batch := database.NewBatch().
		Add(`
			CREATE forum_topics CONTENT {
				category_id: $category_id,
				author_id: $author_id,
				title: $title,
				body: $body,
				is_pinned: false,
				is_locked: false,
				reply_count: 0,
				last_post_at: time::now(),
				created_on: time::now(),
				updated_on: time::now()
			}
		`, map[string]interface{}{
			"category_id": t.CategoryID,
			"author_id":   t.AuthorID,
			"title":       t.Title,
			"body":        t.Body,
		}).
		Add(`UPDATE type::record($id) SET topic_count += 1`, map[string]interface{}{"id": t.CategoryID})

	results, err := batch.Run(ctx, r.db)
	if err != nil {
		return err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return fmt.Errorf("%w: topic not created", database.ErrQuery)
	}
	created, err := parseTopic(rows[0])
	if err != nil {
		return err
	}
	*t = *created
	return nil
}

// GetTopic retrieves a topic
func (r *ForumRepository) GetTopic(ctx context.Context, id string) (*model.ForumTopic, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'forum_topics'`,
		map[string]interface{}{"id": id}, parseTopic)
}

// ListTopics returns a category's topics, pinned first then most recently active
func (r *ForumRepository) ListTopics(ctx context.Context, categoryID string, limit, offset int) ([]*model.ForumTopic, error) {
	limit, offset = page(limit, offset, 20, 100)
	query := `
		SELECT * FROM forum_topics WHERE category_id = $category_id
		ORDER BY is_pinned DESC, last_post_at DESC
		LIMIT $limit START $offset
	`
	return selectMany(ctx, r.db, query,
		map[string]interface{}{"category_id": categoryID, "limit": limit, "offset": offset}, parseTopic)
}

// SetTopicFlag sets is_pinned or is_locked and returns the updated topic
func (r *ForumRepository) SetTopicFlag(ctx context.Context, id, flag string, value bool) (*model.ForumTopic, error) {
	if flag != "is_pinned" && flag != "is_locked" {
		return nil, fmt.Errorf("%w: unknown topic flag %q", database.ErrQuery, flag)
	}
	query := `UPDATE type::record($id) SET ` + flag + ` = $value, updated_on = time::now() RETURN AFTER`
	return createOne(ctx, r.db, query, map[string]interface{}{"id": id, "value": value}, parseTopic)
}

// SearchTopics matches topics by title
func (r *ForumRepository) SearchTopics(ctx context.Context, q string, limit int) ([]*model.ForumTopic, error) {
	query := `
		SELECT * FROM forum_topics
		WHERE string::contains(string::lowercase(title), $q)
		ORDER BY last_post_at DESC
		LIMIT $limit
	`
	return selectMany(ctx, r.db, query, map[string]interface{}{"q": q, "limit": limit}, parseTopic)
}

// CreatePost stores a reply and bumps the topic reply_count and last_post_at
func (r *ForumRepository) CreatePost(ctx context.Context, p *model.ForumPost) error {
	batch := database.NewBatch().
		Add(`
			CREATE forum_posts CONTENT {
				topic_id: $topic_id,
				author_id: $author_id,
				body: $body,
				is_deleted: false,
				created_on: time::now()
			}
		`, map[string]interface{}{"topic_id": p.TopicID, "author_id": p.AuthorID, "body": p.Body}).
		Add(`UPDATE type::record($id) SET reply_count += 1, last_post_at = time::now()`,
			map[string]interface{}{"id": p.TopicID})

	results, err := batch.Run(ctx, r.db)
	if err != nil {
		return err
	}
	rows := statementRows(results, 0)
	if len(rows) == 0 {
		return fmt.Errorf("%w: post not created", database.ErrQuery)
	}
	created, err := parsePost(rows[0])
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetPost retrieves a post
func (r *ForumRepository) GetPost(ctx context.Context, id string) (*model.ForumPost, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id) WHERE meta::tb(id) = 'forum_posts'`,
		map[string]interface{}{"id": id}, parsePost)
}

// ListPosts returns a topic's posts in order
func (r *ForumRepository) ListPosts(ctx context.Context, topicID string, limit, offset int) ([]*model.ForumPost, error) {
	limit, offset = page(limit, offset, 100, 500)
	query := `
		SELECT * FROM forum_posts WHERE topic_id = $topic_id
		ORDER BY created_on ASC
		LIMIT $limit START $offset
	`
	return selectMany(ctx, r.db, query,
		map[string]interface{}{"topic_id": topicID, "limit": limit, "offset": offset}, parsePost)
}

// UpdatePostBody edits a post that has not been deleted
func (r *ForumRepository) UpdatePostBody(ctx context.Context, id, body string) (*model.ForumPost, error) {
	query := `
		UPDATE type::record($id) SET body = $body, edited_at = time::now()
		WHERE is_deleted = false
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query, map[string]interface{}{"id": id, "body": body}, parsePost)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// SoftDeletePost blanks a post and decrements the topic reply_count. It
// reports false when the post was already deleted.
func (r *ForumRepository) SoftDeletePost(ctx context.Context, post *model.ForumPost) (bool, error) {
	query := `
		UPDATE type::record($id) SET is_deleted = true, body = $body
		WHERE is_deleted = false
		RETURN AFTER
	`
	rows, err := selectMany(ctx, r.db, query,
		map[string]interface{}{"id": post.ID, "body": model.DeletedPostBody}, parsePost)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	query = `UPDATE type::record($id) SET reply_count = math::max([reply_count - 1, 0])`
	if err := r.db.Execute(ctx, query, map[string]interface{}{"id": post.TopicID}); err != nil {
		return true, err
	}
	*post = *rows[0]
	return true, nil
}
