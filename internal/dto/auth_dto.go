package dto

type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type LoginResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int          `json:"expires_in"`
	User         UserResponse `json:"user"`
}

type CreateUserRequest struct {
	Email     string  `json:"email"      validate:"required,email"`
	FirstName string  `json:"first_name" validate:"required,min=2"`
	LastName  *string `json:"last_name"`
	Password  string  `json:"password"   validate:"required,min=8"`
	Role      string  `json:"role"       validate:"required,oneof=cashier supervisor admin"`
	SystemID  string  `json:"system_id"  validate:"required"`
}

type UpdateUserRequest struct {
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name"`
	Password  string  `json:"password" validate:"omitempty,min=8"`
	Role      string  `json:"role"     validate:"omitempty,oneof=cashier supervisor admin"`
}

type UserResponse struct {
	ID        string  `json:"id"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  *string `json:"last_name,omitempty"`
	Role      string  `json:"role"`
	SystemID  string  `json:"system_id"`
	Active    bool    `json:"active"`
}
