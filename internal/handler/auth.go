package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/nkarpov/todo-api/internal/auth"
	"github.com/nkarpov/todo-api/internal/model"
	"github.com/nkarpov/todo-api/internal/repo"
	"github.com/nkarpov/todo-api/internal/service"
	"github.com/nkarpov/todo-api/pkg/respond"
)

type AuthHandler struct {
	service  *service.AuthService
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAuthHandler(srv *service.AuthService, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service:  srv,
		validate: validator.New(),
		logger:   logger,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "email, password and name are required")
		return
	}

	token, err := h.service.Register(r.Context(), req)
	if err != nil {
		// Контракт маршрута: занятый email это 400, а не 409
		if errors.Is(err, repo.ErrorConflict) {
			respond.Error(w, r, http.StatusBadRequest, "user with this email already exists")
			return
		}
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "invalid json")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respond.Error(w, r, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, model.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r.Context())
	if !ok {
		respond.Error(w, r, http.StatusUnauthorized, "could not validate credentials")
		return
	}

	user, err := h.service.Profile(r.Context(), userID)
	if err != nil {
		h.handleErrors(w, r, err)
		return
	}

	respond.JSON(w, r, http.StatusOK, user)
}

func (h *AuthHandler) handleErrors(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, auth.ErrPasswordTooLong):
		respond.Error(w, r, http.StatusBadRequest, "password cannot be longer than 72 bytes")
	case errors.Is(err, service.ErrBadCredentials):
		w.Header().Set("WWW-Authenticate", "Bearer")
		respond.Error(w, r, http.StatusUnauthorized, "incorrect email or password")
	case errors.Is(err, repo.ErrorNotFound):
		respond.Error(w, r, http.StatusNotFound, "user not found")
	case errors.Is(err, repo.ErrorConflict):
		respond.Error(w, r, http.StatusConflict, "conflict")
	default:
		h.logger.Error("internal error", zap.Error(err))
		respond.Error(w, r, http.StatusInternalServerError, "internal error")
	}
}
