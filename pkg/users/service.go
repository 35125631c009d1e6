package users

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/tankobon/tankobon/pkg/auth"
	"github.com/tankobon/tankobon/pkg/errcodes"
	"github.com/tankobon/tankobon/pkg/models"
	"github.com/uptrace/bun"
)

// Service handles user administration.
type Service struct {
	db          *bun.DB
	authService *auth.Service
}

// NewService creates a new users service.
func NewService(db *bun.DB, authService *auth.Service) *Service {
	return &Service{db: db, authService: authService}
}

// Create creates a new user. Usernames are unique regardless of case.
func (s *Service) Create(ctx context.Context, opts auth.CreateUserOptions) (*models.User, error) {
	exists, err := s.db.NewSelect().
		Model((*models.User)(nil)).
		Where("username = ? COLLATE NOCASE", opts.Username).
		Exists(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	if exists {
		return nil, errcodes.Conflict("Username already exists.")
	}

	user, err := s.authService.CreateUser(ctx, opts)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Retrieve gets a user by ID, active or not.
func (s *Service) Retrieve(ctx context.Context, id int) (*models.User, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Relation("LibraryAccess").
		Where("u.id = ?", id).
		Scan(ctx)
	if err != nil {
		return nil, errcodes.NotFound("User")
	}
	return user, nil
}

type ListOptions struct {
	Limit  int
	Offset int
}

// List returns a page of users along with the total count.
func (s *Service) List(ctx context.Context, opts ListOptions) ([]*models.User, int, error) {
	users := []*models.User{}

	query := s.db.NewSelect().
		Model(&users).
		Relation("LibraryAccess").
		Order("u.id ASC")

	if opts.Limit > 0 {
		query = query.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		query = query.Offset(opts.Offset)
	}

	total, err := query.ScanAndCount(ctx)
	if err != nil {
		return nil, 0, errors.WithStack(err)
	}

	return users, total, nil
}

type UpdateOptions struct {
	Columns []string
	// UpdateLibraryAccess replaces the user's grants with LibraryIDs. Nil
	// LibraryIDs grants every library.
	UpdateLibraryAccess bool
	LibraryIDs          []int
}

// Update writes the given columns and, if asked, replaces library access.
func (s *Service) Update(ctx context.Context, user *models.User, opts UpdateOptions) error {
	now := time.Now()

	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if len(opts.Columns) > 0 {
			user.UpdatedAt = now
			columns := append(opts.Columns, "updated_at")
			_, err := tx.NewUpdate().
				Model(user).
				Column(columns...).
				WherePK().
				Exec(ctx)
			if err != nil {
				return errors.WithStack(err)
			}
		}

		if !opts.UpdateLibraryAccess {
			return nil
		}

		_, err := tx.NewDelete().
			Model((*models.UserLibraryAccess)(nil)).
			Where("user_id = ?", user.ID).
			Exec(ctx)
		if err != nil {
			return errors.WithStack(err)
		}

		access := []*models.UserLibraryAccess{}
		if opts.LibraryIDs == nil {
			access = append(access, &models.UserLibraryAccess{CreatedAt: now, UserID: user.ID})
		}
		for _, id := range opts.LibraryIDs {
			libraryID := id
			access = append(access, &models.UserLibraryAccess{CreatedAt: now, UserID: user.ID, LibraryID: &libraryID})
		}
		if len(access) == 0 {
			return nil
		}
		_, err = tx.NewInsert().Model(&access).Exec(ctx)
		return errors.WithStack(err)
	})
}

// ResetPassword changes a user's password.
func (s *Service) ResetPassword(ctx context.Context, userID int, newPassword string) error {
	hashedPassword, err := auth.HashPassword(newPassword)
	if err != nil {
		return err
	}

	_, err = s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("password_hash = ?", hashedPassword).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	return nil
}

// VerifyPassword checks if the password is correct for a user.
func (s *Service) VerifyPassword(ctx context.Context, userID int, password string) (bool, error) {
	user := &models.User{}
	err := s.db.NewSelect().
		Model(user).
		Column("password_hash").
		Where("id = ?", userID).
		Scan(ctx)
	if err != nil {
		return false, errors.WithStack(err)
	}

	return auth.CheckPassword(password, user.PasswordHash), nil
}

// Deactivate deactivates a user (soft delete). Their read progress is kept.
func (s *Service) Deactivate(ctx context.Context, userID int) error {
	res, err := s.db.NewUpdate().
		Model((*models.User)(nil)).
		Set("is_active = ?", false).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", userID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errcodes.NotFound("User")
	}
	return nil
}
