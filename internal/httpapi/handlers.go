// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FlatRent Contributors

package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/flatrent/flatrent/internal/auth"
	"github.com/flatrent/flatrent/internal/observability"
)

// AuthService is the part of auth.Service served over HTTP.
type AuthService interface {
	Authenticator
	Register(ctx context.Context, p auth.RegisterParams) (*auth.AuthResult, error)
	Login(ctx context.Context, email, password string) (*auth.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.AuthResult, error)
	LogoutByAccessToken(ctx context.Context, accessToken string) error
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
}

// RegisterRequest is the body of POST /register.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email,max=255"`
	Password string  `json:"password" validate:"required,min=6,max=72"`
	Name     string  `json:"name" validate:"required,max=255"`
	Phone    *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Role     string  `json:"role" validate:"required"`
}

// LoginRequest is the body of POST /login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RefreshRequest is the body of POST /refresh-token.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" validate:"required"`
}

// LogoutRequest is the body of POST /logout. The token may instead be sent
// as a bearer header.
type LogoutRequest struct {
	Token string `json:"token"`
}

// ForgotPasswordRequest is the body of POST /forgot-password.
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest is the body of POST /reset-password.
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6,max=72"`
}

// AuthResponse is returned by register, login and refresh-token.
type AuthResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	TokenType    string `json:"tokenType"`
	ExpiresIn    int64  `json:"expiresIn"`
	UserID       int64  `json:"userId"`
	Email        string `json:"email"`
	Role         string `json:"role"`
}

// MessageResponse carries a human readable confirmation.
type MessageResponse struct {
	Message string `json:"message"`
}

// ForgotPasswordResponse optionally carries the reset token for development.
type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"resetToken,omitempty"`
}

// PrincipalResponse describes the authenticated caller.
type PrincipalResponse struct {
	Email       string   `json:"email"`
	Role        string   `json:"role"`
	Authorities []string `json:"authorities"`
}

func newAuthResponse(r *auth.AuthResult) AuthResponse {
	return AuthResponse{
		AccessToken:  r.AccessToken,
		RefreshToken: r.RefreshToken,
		TokenType:    r.TokenType,
		ExpiresIn:    int64(r.ExpiresIn / time.Second),
		UserID:       r.UserID,
		Email:        r.Email,
		Role:         string(r.Role),
	}
}

// authHandler serves /api/auth.
type authHandler struct {
	svc              AuthService
	metrics          *observability.Metrics
	exposeResetToken bool
}

// bind decodes and validates a request body.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return &APIError{
			Status:    http.StatusBadRequest,
			Message:   "malformed request body",
			ErrorCode: CodeInvalidBody,
			Err:       err,
		}
	}
	return c.Validate(req)
}

// done records the outcome of an auth operation and maps its error.
func (h *authHandler) done(operation string, err error, tokens tokenStatuses) error {
	if err == nil {
		h.metrics.RecordAuth(operation, observability.OutcomeSuccess)
		return nil
	}
	apiErr := toAPIError(err, tokens)
	outcome := observability.OutcomeFailure
	if apiErr.Status >= http.StatusInternalServerError {
		outcome = observability.OutcomeError
	}
	h.metrics.RecordAuth(operation, outcome)
	return apiErr
}

func (h *authHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	role, err := auth.ParseRole(req.Role)
	if err != nil {
		return h.done("register", err, sessionTokens)
	}

	res, err := h.svc.Register(c.Request().Context(), auth.RegisterParams{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		Phone:    req.Phone,
		Role:     role,
	})
	if err := h.done("register", err, sessionTokens); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAuthResponse(res))
}

func (h *authHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Login(c.Request().Context(), req.Email, req.Password)
	if err := h.done("login", err, sessionTokens); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAuthResponse(res))
}

func (h *authHandler) refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err := h.done("refresh", err, sessionTokens); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newAuthResponse(res))
}

func (h *authHandler) logout(c echo.Context) error {
	var req LogoutRequest
	// An empty body is allowed when the token comes from the header.
	if err := bind(c, &req); err != nil {
		return err
	}
	token := req.Token
	if token == "" {
		token = bearerToken(c.Request())
	}

	var err error
	if token == "" {
		err = oops.Code("TOKEN_MISSING").Wrapf(auth.ErrTokenMalformed, "no access token supplied")
	} else {
		err = h.svc.LogoutByAccessToken(c.Request().Context(), token)
	}
	if err := h.done("logout", err, sessionTokens); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *authHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	token, err := h.svc.ForgotPassword(c.Request().Context(), req.Email)
	if err := h.done("forgot_password", err, resetTokens); err != nil {
		return err
	}

	res := ForgotPasswordResponse{Message: "password reset token issued"}
	if h.exposeResetToken {
		res.ResetToken = token
	}
	return c.JSON(http.StatusOK, res)
}

func (h *authHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.NewPassword)
	if err := h.done("reset_password", err, resetTokens); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, MessageResponse{Message: "password has been reset"})
}

func (h *authHandler) me(c echo.Context) error {
	p, ok := auth.PrincipalFromContext(c.Request().Context())
	if !ok {
		return errors.New("principal missing behind RequireAuth")
	}
	return c.JSON(http.StatusOK, PrincipalResponse{
		Email:       p.Email,
		Role:        string(p.Role),
		Authorities: p.Authorities,
	})
}
