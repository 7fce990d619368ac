package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/taskflow/task-service/internal/entity"
	"github.com/taskflow/task-service/internal/usecase"
	"github.com/taskflow/task-service/pkg/logger"
)

type AuthData struct {
	User  entity.User `json:"user"`
	Token string      `json:"token,omitempty"`
}

type AuthHandler struct {
	userUseCase usecase.UserUseCase
	verifier    TokenVerifier
}

func NewAuthHandler(userUseCase usecase.UserUseCase, verifier TokenVerifier) *AuthHandler {
	return &AuthHandler{
		userUseCase: userUseCase,
		verifier:    verifier,
	}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(h.verifier))
			r.Get("/profile", h.Profile)
			r.Put("/profile", h.UpdateProfile)
		})
	})
}

// Register godoc
// @Summary      Register a user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        user body     entity.RegisterInput true "Name, email and password"
// @Success      201  {object} Response{data=AuthData}
// @Failure      400  {object} Response
// @Failure      409  {object} Response
// @Router       /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var in entity.RegisterInput
	if err := decodeJSON(r, &in); err != nil {
		logger.Log.WithError(err).Warn("Failed to decode request body")
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, token, err := h.userUseCase.Register(r.Context(), in)
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	respondWithData(w, http.StatusCreated, "User registered successfully", AuthData{User: user, Token: token})
}

// Login godoc
// @Summary      Log in
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        credentials body     entity.LoginInput true "Email and password"
// @Success      200  {object} Response{data=AuthData}
// @Failure      401  {object} Response
// @Router       /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in entity.LoginInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, token, err := h.userUseCase.Login(r.Context(), in)
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	respondWithData(w, http.StatusOK, "Login successful", AuthData{User: user, Token: token})
}

// Profile godoc
// @Summary      Current user
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object} Response{data=AuthData}
// @Failure      401  {object} Response
// @Router       /auth/profile [get]
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, err := h.userUseCase.Profile(r.Context(), UserID(r.Context()))
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	respondWithData(w, http.StatusOK, "", AuthData{User: user})
}

// UpdateProfile godoc
// @Summary      Update the current user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        user body     entity.ProfileInput true "Fields to change"
// @Success      200  {object} Response{data=AuthData}
// @Failure      400  {object} Response
// @Failure      409  {object} Response
// @Router       /auth/profile [put]
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in entity.ProfileInput
	if err := decodeJSON(r, &in); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload")
		return
	}

	user, err := h.userUseCase.UpdateProfile(r.Context(), UserID(r.Context()), in)
	if err != nil {
		respondWithUseCaseError(w, r, err, "")
		return
	}

	respondWithData(w, http.StatusOK, "Profile updated successfully", AuthData{User: user})
}
