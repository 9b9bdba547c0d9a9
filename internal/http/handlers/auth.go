package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ocula-lovable/creative-forge/internal/domain"
	"github.com/ocula-lovable/creative-forge/internal/middleware"
)

const tokenTTL = 24 * time.Hour

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token   string         `json:"token"`
	Account accountPayload `json:"account"`
}

// Register creates an account seeded with the signup credit grant and returns
// a bearer token.
func (a *App) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 3 {
		a.error(w, http.StatusBadRequest, "bad_request", "username must be at least 3 characters")
		return
	}
	if len(req.Password) < 8 {
		a.error(w, http.StatusBadRequest, "bad_request", "password must be at least 8 characters")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to hash password")
		return
	}

	account := &domain.Account{
		ID:           uuid.NewString(),
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: string(hash),
		Credits:      a.Config.SignupCredits,
		Tier:         domain.AccountTierStarter,
	}
	if err := a.Accounts.Create(r.Context(), account); err != nil {
		if errors.Is(err, domain.ErrDuplicateUsername) {
			a.error(w, http.StatusConflict, "conflict", "username already taken")
			return
		}
		a.Logger.Error().Err(err).Msg("register: create account")
		a.error(w, http.StatusInternalServerError, "internal", "failed to create account")
		return
	}

	token, err := a.issueToken(account)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}
	a.json(w, http.StatusCreated, authResponse{Token: token, Account: toAccountPayload(*account)})
}

// Login verifies credentials and returns a bearer token.
func (a *App) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid payload")
		return
	}

	account, err := a.Accounts.GetByUsername(r.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}
	if bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)) != nil {
		a.error(w, http.StatusUnauthorized, "unauthorized", "invalid credentials")
		return
	}

	token, err := a.issueToken(account)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to issue token")
		return
	}
	a.json(w, http.StatusOK, authResponse{Token: token, Account: toAccountPayload(*account)})
}

func (a *App) issueToken(account *domain.Account) (string, error) {
	return middleware.SignJWT(a.Config.JWTSecret, middleware.TokenClaims{
		Sub:    account.ID,
		Tier:   string(account.Tier),
		Exp:    time.Now().Add(tokenTTL).Unix(),
		Issuer: "creative-forge",
	})
}
