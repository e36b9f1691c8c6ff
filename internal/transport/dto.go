package transport

import "github.com/Skotchmaster/userauth/internal/models"

type APIResponse struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type APIError struct {
	StatusCode int      `json:"statusCode"`
	Data       any      `json:"data"`
	Message    string   `json:"message"`
	Success    bool     `json:"success"`
	Errors     []string `json:"errors"`
}

func OK(code int, data any, message string) APIResponse {
	return APIResponse{
		StatusCode: code,
		Data:       data,
		Message:    message,
		Success:    code < 400,
	}
}

func Fail(code int, message string) APIError {
	return APIError{
		StatusCode: code,
		Message:    message,
		Errors:     []string{},
	}
}

type LoginRequest struct {
	Email    string `json:"email"    form:"email"`
	Password string `json:"password" form:"password"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" form:"refreshToken"`
}

type LoginData struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type RefreshData struct {
	AccessToken string `json:"accessToken"`
}
