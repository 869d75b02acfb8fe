package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/ai-check/internal/logging"
	"github.com/example/ai-check/internal/usecase"
)

type signupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *handler) signup(c *gin.Context) {
	var req signupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing required fields")
		return
	}

	_, err := h.accounts.Signup(c.Request.Context(), req.Username, req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusCreated, gin.H{"status": "success", "message": "User created successfully"})
	case errors.Is(err, usecase.ErrMissingFields):
		errorJSON(c, http.StatusBadRequest, "Missing required fields")
	case errors.Is(err, usecase.ErrUserExists):
		errorJSON(c, http.StatusBadRequest, "Username or email already exists")
	default:
		h.logger.Error("signup failed", zap.String("operation", logging.OperationOf(err)), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Failed to create user")
	}
}

func (h *handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		errorJSON(c, http.StatusBadRequest, "Missing email or password")
		return
	}

	result, err := h.accounts.Login(c.Request.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Login successful",
			"user": gin.H{
				"id":       result.UserID,
				"username": result.Username,
			},
			"token": result.Token,
		})
	case errors.Is(err, usecase.ErrMissingFields):
		errorJSON(c, http.StatusBadRequest, "Missing email or password")
	case errors.Is(err, usecase.ErrInvalidCredentials):
		errorJSON(c, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, usecase.ErrTooManyAttempts):
		errorJSON(c, http.StatusTooManyRequests, "Too many failed login attempts, try again later")
	default:
		h.logger.Error("login failed", zap.String("operation", logging.OperationOf(err)), zap.Error(err))
		errorJSON(c, http.StatusInternalServerError, "Login failed")
	}
}
