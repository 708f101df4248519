package services

import (
	"errors"
	"fmt"

	"usermanagement/internal/metrics"
	"usermanagement/internal/models"
	"usermanagement/internal/repositories"
	"usermanagement/internal/security"

	"github.com/rs/zerolog"
)

// UserService handles business logic for user accounts: uniqueness on
// create, owner/admin authorization and partial merges on update and delete.
type UserService struct {
	store         repositories.Store
	hasher        security.PasswordHasher
	adminUsername string
	events        EventPublisher // optional
	log           zerolog.Logger
}

// NewUserService creates a new UserService. adminUsername is the configured
// principal allowed to modify every record; events may be nil.
func NewUserService(store repositories.Store, hasher security.PasswordHasher, adminUsername string, events EventPublisher, log zerolog.Logger) *UserService {
	return &UserService{
		store:         store,
		hasher:        hasher,
		adminUsername: adminUsername,
		events:        events,
		log:           log,
	}
}

// CreateUser stores a new user with a hashed password and resolved roles.
func (s *UserService) CreateUser(req models.UserCreate) (*models.User, error) {
	user, err := s.createUser(req)
	s.observe("create", err)
	if err != nil {
		return nil, err
	}
	s.publish(EventUserCreated, user, "")
	return user, nil
}

func (s *UserService) createUser(req models.UserCreate) (*models.User, error) {
	if req.Username == s.adminUsername {
		return nil, fmt.Errorf("username %q is reserved: %w", req.Username, ErrAlreadyExists)
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	var created *models.User
	err = s.store.Transaction(func(tx repositories.Store) error {
		if err := s.ensureUsernameFree(tx, req.Username, 0); err != nil {
			return err
		}

		roles, err := NewRoleRegistry(tx.Roles()).ResolveSet(req.Roles)
		if err != nil {
			return fmt.Errorf("failed to resolve roles: %w", err)
		}

		user := &models.User{
			Username:  req.Username,
			Password:  hashed,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Roles:     roles,
		}
		if err := tx.Users().Create(user); err != nil {
			// Lost a race against a concurrent create of the same username.
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("username %q: %w", req.Username, ErrAlreadyExists)
			}
			return err
		}
		created = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// GetUserByID retrieves a single user by its ID.
func (s *UserService) GetUserByID(id uint64) (*models.User, error) {
	user, err := s.store.Users().GetByID(id)
	if errors.Is(err, repositories.ErrRecordNotFound) {
		err = fmt.Errorf("user with id %d: %w", id, ErrNotFound)
	}
	s.observe("get", err)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// GetAllUsers retrieves all users.
func (s *UserService) GetAllUsers() ([]models.User, error) {
	users, err := s.store.Users().GetAll()
	s.observe("list", err)
	if err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateUser applies req to the user with the given id on behalf of acting.
func (s *UserService) UpdateUser(id uint64, req models.UserUpdate, acting string) (*models.User, error) {
	return s.modify("update", id, req, acting)
}

// PartialUpdateUser is UpdateUser for sparse requests; absent fields are kept.
func (s *UserService) PartialUpdateUser(id uint64, req models.UserUpdate, acting string) (*models.User, error) {
	return s.modify("patch", id, req, acting)
}

func (s *UserService) modify(op string, id uint64, req models.UserUpdate, acting string) (*models.User, error) {
	var (
		result  *models.User
		changed bool
	)
	err := s.store.Transaction(func(tx repositories.Store) error {
		existing, err := s.authorizedUser(tx, id, acting)
		if err != nil {
			return err
		}

		merged, ok, err := NewUserMerger(s.hasher, NewRoleRegistry(tx.Roles())).Merge(*existing, req)
		if err != nil {
			return err
		}
		if !ok {
			result = existing
			return nil
		}

		if merged.Username != existing.Username {
			if err := s.ensureUsernameFree(tx, merged.Username, id); err != nil {
				return err
			}
		}
		if err := tx.Users().Update(&merged); err != nil {
			if errors.Is(err, repositories.ErrDuplicateKey) {
				return fmt.Errorf("username %q: %w", merged.Username, ErrAlreadyExists)
			}
			return err
		}
		result, changed = &merged, true
		return nil
	})
	s.observe(op, err)
	if err != nil {
		return nil, err
	}
	if changed {
		s.publish(EventUserUpdated, result, acting)
	}
	return result, nil
}

// DeleteUser removes the user with the given id on behalf of acting.
func (s *UserService) DeleteUser(id uint64, acting string) error {
	var deleted *models.User
	err := s.store.Transaction(func(tx repositories.Store) error {
		existing, err := s.authorizedUser(tx, id, acting)
		if err != nil {
			return err
		}
		if err := tx.Users().Delete(id); err != nil {
			if errors.Is(err, repositories.ErrRecordNotFound) {
				return fmt.Errorf("user with id %d: %w", id, ErrNotFound)
			}
			return err
		}
		deleted = existing
		return nil
	})
	s.observe("delete", err)
	if err != nil {
		return err
	}
	s.publish(EventUserDeleted, deleted, acting)
	return nil
}

// authorizedUser loads the user with a row lock and checks that acting may
// modify it. It must run inside a transaction so the check holds until the
// write.
func (s *UserService) authorizedUser(tx repositories.Store, id uint64, acting string) (*models.User, error) {
	existing, err := tx.Users().GetByIDForUpdate(id)
	if err != nil {
		if errors.Is(err, repositories.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with id %d: %w", id, ErrNotFound)
		}
		return nil, err
	}

	decision, err := CanModify(existing.Username, acting, s.adminUsername)
	if err != nil {
		return nil, err
	}
	if !decision.Allowed {
		return nil, &AccessDeniedError{Owner: existing.Username, Actor: acting, Reason: decision.Reason}
	}
	return existing, nil
}

// ensureUsernameFree fails with ErrAlreadyExists when username is reserved
// for the administrator or held by a user other than self.
func (s *UserService) ensureUsernameFree(tx repositories.Store, username string, self uint64) error {
	if username == s.adminUsername {
		return fmt.Errorf("username %q is reserved: %w", username, ErrAlreadyExists)
	}
	other, err := tx.Users().GetByUsername(username)
	switch {
	case errors.Is(err, repositories.ErrRecordNotFound):
		return nil
	case err != nil:
		return err
	case other.ID != self:
		return fmt.Errorf("username %q: %w", username, ErrAlreadyExists)
	}
	return nil
}

// publish sends a lifecycle event after commit. Delivery is best effort.
func (s *UserService) publish(eventType string, user *models.User, actor string) {
	if s.events == nil {
		return
	}
	body, err := NewUserEvent(eventType, user, actor).Marshal()
	if err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Msg("failed to marshal user event")
		return
	}
	if err := s.events.Publish(UserEventsExchange, eventType, body); err != nil {
		s.log.Warn().Err(err).Str("event", eventType).Uint64("user_id", user.ID).Msg("failed to publish user event")
	}
}

func (s *UserService) observe(operation string, err error) {
	metrics.UserOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrAccessDenied):
		return "access_denied"
	case errors.Is(err, models.ErrInvalidRoleKind), errors.Is(err, ErrPreconditionFailed):
		return "invalid"
	default:
		return "error"
	}
}
