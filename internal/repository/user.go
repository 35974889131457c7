package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/model"
)

// UserRepository handles user data access
type UserRepository struct {
	db database.Database
}

// NewUserRepository creates a new user repository
func NewUserRepository(db database.Database) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	role := user.Role
	if role == "" {
		role = model.UserRoleUser
	}

	query := `
		CREATE user CONTENT {
			email: $email,
			hash: $hash,
			role: $role,
			email_verified: $email_verified,
			created_on: time::now(),
			updated_on: time::now()
		}
	`
	vars := map[string]interface{}{
		"email":          user.Email,
		"hash":           ptrToNone(user.Hash),
		"role":           role,
		"email_verified": user.EmailVerified,
	}

	created, err := createOne(ctx, r.db, query, vars, parseUser)
	if err != nil {
		if isDuplicate(err) {
			return fmt.Errorf("%w: email already exists", database.ErrDuplicate)
		}
		return err
	}

	user.ID = created.ID
	user.Role = created.Role
	user.CreatedOn = created.CreatedOn
	user.UpdatedOn = created.UpdatedOn
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	return selectOne(ctx, r.db, `SELECT * FROM type::record($id)`, map[string]interface{}{"id": id}, parseUser)
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return selectOne(ctx, r.db, `SELECT * FROM user WHERE email = $email LIMIT 1`,
		map[string]interface{}{"email": email}, parseUser)
}

// SetEmailVerified marks a user's email as verified
func (r *UserRepository) SetEmailVerified(ctx context.Context, userID string) error {
	query := `UPDATE type::record($id) SET email_verified = true, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": userID})
}

// SetRole updates a user's role
func (r *UserRepository) SetRole(ctx context.Context, userID string, role model.UserRole) error {
	query := `UPDATE type::record($id) SET role = $role, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": userID, "role": role})
}

// SetPaymentCustomer records the payment processor customer for a user
func (r *UserRepository) SetPaymentCustomer(ctx context.Context, userID, customerID string) error {
	query := `UPDATE type::record($id) SET payment_customer = $customer, updated_on = time::now()`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": userID, "customer": customerID})
}

// TouchLogin records a successful login
func (r *UserRepository) TouchLogin(ctx context.Context, userID string, at time.Time) error {
	query := `UPDATE type::record($id) SET login_on = <datetime>$at`
	return r.db.Execute(ctx, query, map[string]interface{}{"id": userID, "at": timeVar(at)})
}

// List returns users with their profiles, newest first
func (r *UserRepository) List(ctx context.Context, limit, offset int) ([]*model.AdminUser, error) {
	limit, offset = page(limit, offset, 50, 200)
	users, err := selectMany(ctx, r.db, `SELECT * FROM user ORDER BY created_on DESC LIMIT $limit START $offset`,
		map[string]interface{}{"limit": limit, "offset": offset}, parseUser)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	profiles, err := selectMany(ctx, r.db, `SELECT * FROM profiles WHERE user_id IN $ids`,
		map[string]interface{}{"ids": ids}, parseProfile)
	if err != nil {
		return nil, err
	}
	byUser := make(map[string]*model.Profile, len(profiles))
	for _, p := range profiles {
		byUser[p.UserID] = p
	}

	out := make([]*model.AdminUser, len(users))
	for i, u := range users {
		out[i] = &model.AdminUser{User: u, Profile: byUser[u.ID]}
	}
	return out, nil
}

func parseUser(data record) (*model.User, error) {
	var user model.User
	if err := decode(data, &user); err != nil {
		return nil, err
	}
	// json:"-" fields
	user.Hash = getStringPtr(data, "hash")
	user.PaymentCustomer = getStringPtr(data, "payment_customer")
	return &user, nil
}
