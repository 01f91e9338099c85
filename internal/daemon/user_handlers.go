package daemon

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/avlowe/minute/internal/api"
	"github.com/avlowe/minute/internal/logging"
	"github.com/avlowe/minute/internal/store"
)

type createUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authTokenRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// handleUsers creates an account or lists all accounts. Passwords are
// bcrypt-hashed before they touch the database.
func (s *apiServer) handleUsers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req createUserRequest
		if !s.decodeBody(w, r, &req) {
			return
		}
		email := strings.ToLower(strings.TrimSpace(req.Email))
		if email == "" || !strings.Contains(email, "@") {
			s.writeError(w, http.StatusBadRequest, "a valid email is required")
			return
		}
		if req.Password == "" {
			s.writeError(w, http.StatusBadRequest, "password is required")
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			s.writeError(w, http.StatusInternalServerError, "hash password")
			return
		}
		user, err := s.daemon.store.CreateUser(r.Context(), email, string(hash))
		if err != nil {
			if errors.Is(err, store.ErrEmailTaken) {
				s.writeError(w, http.StatusConflict, "User already exists")
				return
			}
			s.writeServiceError(w, err)
			return
		}
		s.log().Info("user created", logging.Int64("user_id", user.ID))
		s.writeJSON(w, http.StatusCreated, api.FromUser(user))
	case http.MethodGet:
		users, err := s.daemon.store.ListUsers(r.Context())
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, api.UserList{Users: api.FromUsers(users)})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleUser routes /api/users/{id}.
func (s *apiServer) handleUser(w http.ResponseWriter, r *http.Request) {
	idPart := strings.TrimPrefix(r.URL.Path, "/api/users/")
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		s.writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	switch r.Method {
	case http.MethodGet:
		user, err := s.daemon.store.GetUser(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if user == nil {
			s.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.writeJSON(w, http.StatusOK, api.FromUser(user))
	case http.MethodDelete:
		removed, err := s.daemon.store.RemoveUser(r.Context(), id)
		if err != nil {
			s.writeServiceError(w, err)
			return
		}
		if !removed {
			s.writeError(w, http.StatusNotFound, "User not found")
			return
		}
		s.log().Info("user removed", logging.Int64("user_id", id))
		s.writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully"})
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// handleAuthToken exchanges account credentials for a session JWT. The
// endpoint is unauthenticated; failures never reveal whether the email
// or the password was wrong.
func (s *apiServer) handleAuthToken(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	secret := s.daemon.cfg.Auth.JWTSecret
	if secret == "" {
		s.writeError(w, http.StatusServiceUnavailable, "token issuance is not configured")
		return
	}

	var req authTokenRequest
	if !s.decodeBody(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || req.Password == "" {
		s.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := s.daemon.store.GetUserByEmail(r.Context(), email)
	if err != nil {
		s.writeServiceError(w, err)
		return
	}
	if user == nil || bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	ttl := time.Duration(s.daemon.cfg.Auth.TokenExpiryMinutes) * time.Minute
	token, err := issueSessionToken(secret, user.ID, ttl)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, "issue session token")
		return
	}
	s.log().Info("session token issued", logging.Int64("user_id", user.ID))
	s.writeJSON(w, http.StatusOK, api.AuthToken{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(ttl.Seconds()),
	})
}
