package web

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/vbonduro/wastecapture/internal/auth"
	"github.com/vbonduro/wastecapture/internal/domain"
)

const sessionCookie = "wastecapture_session"

type ctxKey int

const (
	operatorKey ctxKey = iota
	tokenKey
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token    string          `json:"token"`
	Operator domain.Operator `json:"operator"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	op, token, err := s.sessions.Login(req.Username, req.Password)
	if errors.Is(err, auth.ErrMissingCredentials) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to sign in")
		s.logger.Error("login failed", "error", err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteStrictMode,
	})
	s.logger.Info("operator signed in", "operator", op.Name)
	writeJSON(w, http.StatusOK, loginResponse{Token: token, Operator: op})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r.Context())
	s.sessions.Logout(token)
	s.dropWorkflow(token)
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1})
	w.WriteHeader(http.StatusNoContent)
}

// requireOperator resolves the session token from the cookie or a bearer
// Authorization header.
func (s *Server) requireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r)
		if token == "" {
			if c, err := r.Cookie(sessionCookie); err == nil {
				token = c.Value
			}
		}
		op, ok := s.sessions.Lookup(token)
		if !ok {
			writeError(w, http.StatusUnauthorized, "sign in required")
			return
		}
		ctx := context.WithValue(r.Context(), operatorKey, op)
		ctx = context.WithValue(ctx, tokenKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	return ""
}

func operatorFrom(ctx context.Context) domain.Operator {
	op, _ := ctx.Value(operatorKey).(domain.Operator)
	return op
}

func tokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}
