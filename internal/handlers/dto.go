package handlers

import "usermanagement/internal/models"

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Username  string   `json:"username" validate:"required,username"`
	Password  string   `json:"password" validate:"required,min=8,bcryptlen"`
	FirstName string   `json:"firstName" validate:"max=100"`
	LastName  string   `json:"lastName" validate:"max=100"`
	Roles     []string `json:"roles" validate:"omitempty,dive,rolekind"`
}

// UpdateUserRequest is the body of PUT /users/:id. Username and password
// must be sent; omitted names and roles are kept like in a patch.
type UpdateUserRequest struct {
	Username  string   `json:"username" validate:"required,username"`
	Password  string   `json:"password" validate:"required,min=8,bcryptlen"`
	FirstName *string  `json:"firstName" validate:"omitnil,max=100"`
	LastName  *string  `json:"lastName" validate:"omitnil,max=100"`
	Roles     []string `json:"roles" validate:"omitempty,dive,rolekind"`
}

// PatchUserRequest is the body of PATCH /users/:id. Omitted fields are kept.
type PatchUserRequest struct {
	Username  *string  `json:"username" validate:"omitnil,username"`
	Password  *string  `json:"password" validate:"omitnil,min=8,bcryptlen"`
	FirstName *string  `json:"firstName" validate:"omitnil,max=100"`
	LastName  *string  `json:"lastName" validate:"omitnil,max=100"`
	Roles     []string `json:"roles" validate:"omitempty,dive,rolekind"`
}

// UserResponse is the public view of a user. It has no password field.
type UserResponse struct {
	ID        uint64   `json:"id"`
	Username  string   `json:"username"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Roles     []string `json:"roles"`
}

func (r CreateUserRequest) toModel() (models.UserCreate, error) {
	roles, err := models.ParseRoleKinds(r.Roles)
	if err != nil {
		return models.UserCreate{}, err
	}
	return models.UserCreate{
		Username:  r.Username,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Roles:     roles,
	}, nil
}

func (r UpdateUserRequest) toModel() (models.UserUpdate, error) {
	roles, err := models.ParseRoleKinds(r.Roles)
	if err != nil {
		return models.UserUpdate{}, err
	}
	return models.UserUpdate{
		Username:  &r.Username,
		Password:  &r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Roles:     roles,
	}, nil
}

func (r PatchUserRequest) toModel() (models.UserUpdate, error) {
	roles, err := models.ParseRoleKinds(r.Roles)
	if err != nil {
		return models.UserUpdate{}, err
	}
	return models.UserUpdate{
		Username:  r.Username,
		Password:  r.Password,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Roles:     roles,
	}, nil
}

func newUserResponse(u *models.User) UserResponse {
	roles := make([]string, 0, len(u.Roles))
	for _, name := range u.RoleNames() {
		roles = append(roles, string(name))
	}
	return UserResponse{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Roles:     roles,
	}
}
