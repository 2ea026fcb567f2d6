package apitest

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/recipebook/internal/client/models"
)

type claims struct {
	jwt.RegisteredClaims
	UserID string `json:"uid"`
}

type ctxKey struct{}

type principal struct {
	userID string
	token  string
}

// AddUser creates a verified account and returns it.
func (s *Server) AddUser(username, email, password string) models.User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	u := models.User{
		ID:            s.nextID("u"),
		Username:      username,
		Email:         email,
		EmailVerified: true,
	}
	s.accounts[u.ID] = &account{user: u, passwordHash: hash}
	s.byEmail[strings.ToLower(email)] = u.ID
	return u
}

// User returns the server's copy of an account.
func (s *Server) User(id string) (models.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, found := s.accounts[id]
	if !found {
		return models.User{}, false
	}
	return a.user.Clone(), true
}

// TokenFor mints a bearer token for userID valid for ttl. A negative ttl
// yields an expired token.
func (s *Server) TokenFor(userID string, ttl time.Duration) string {
	tok, err := s.mint(userID, ttl)
	if err != nil {
		panic(err)
	}
	return tok
}

// EmailToken returns the pending email verification token of userID.
func (s *Server) EmailToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tokenOf(s.emailTokens, userID)
}

// ResetToken returns the pending password reset token of userID.
func (s *Server) ResetToken(userID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tokenOf(s.resetTokens, userID)
}

func tokenOf(m map[string]string, userID string) string {
	for tok, id := range m {
		if id == userID {
			return tok
		}
	}
	return ""
}

func (s *Server) mint(userID string, ttl time.Duration) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID: userID,
	})
	return tok.SignedString(s.secret)
}

func (s *Server) parse(token string) (string, error) {
	c := &claims{}
	parsed, err := jwt.ParseWithClaims(token, c, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !parsed.Valid {
		return "", errors.New("invalid token")
	}
	return c.UserID, nil
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			fail(w, http.StatusUnauthorized, 401, "Authentication required")
			return
		}

		userID, err := s.parse(token)
		if err != nil {
			fail(w, http.StatusUnauthorized, 401, "Invalid or expired token")
			return
		}

		s.mu.Lock()
		_, exists := s.accounts[userID]
		revoked := s.revoked[token]
		s.mu.Unlock()
		if !exists || revoked {
			fail(w, http.StatusUnauthorized, 401, "Invalid or expired token")
			return
		}

		ctx := context.WithValue(r.Context(), ctxKey{}, principal{userID: userID, token: token})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func principalFrom(r *http.Request) principal {
	p, _ := r.Context().Value(ctxKey{}).(principal)
	return p
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in models.Credentials
	if !decode(w, r, &in) {
		return
	}

	fields := map[string]string{}
	if in.Email == "" {
		fields["email"] = "Email is required"
	}
	if in.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		invalid(w, fields)
		return
	}

	s.mu.Lock()
	a := s.accounts[s.byEmail[strings.ToLower(in.Email)]]
	s.mu.Unlock()

	if a == nil || bcrypt.CompareHashAndPassword(a.passwordHash, []byte(in.Password)) != nil {
		fail(w, http.StatusBadRequest, "invalid_credentials", "Invalid email or password")
		return
	}

	token, err := s.mint(a.user.ID, tokenTTL)
	if err != nil {
		fail(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	ok(w, http.StatusOK, models.AuthResult{User: a.user.Clone(), Token: token})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in models.RegisterRequest
	if !decode(w, r, &in) {
		return
	}

	fields := map[string]string{}
	if in.Username == "" {
		fields["username"] = "Username is required"
	}
	if !strings.Contains(in.Email, "@") {
		fields["email"] = "Email is invalid"
	}
	if len(in.Password) < 6 {
		fields["password"] = "Password must be at least 6 characters"
	}

	s.mu.Lock()
	if _, taken := s.byEmail[strings.ToLower(in.Email)]; taken {
		fields["email"] = "Email is already registered"
	}
	s.mu.Unlock()

	if len(fields) > 0 {
		invalid(w, fields)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		fail(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	s.mu.Lock()
	u := models.User{
		ID:        s.nextID("u"),
		Username:  in.Username,
		Email:     in.Email,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	}
	s.accounts[u.ID] = &account{user: u, passwordHash: hash}
	s.byEmail[strings.ToLower(in.Email)] = u.ID
	s.emailTokens[uuid.NewString()] = u.ID
	s.mu.Unlock()

	writeEnvelope(w, http.StatusCreated, envelope{
		Success: true,
		Data:    u,
		Message: "Registration successful. Please check your email to verify your account.",
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	s.mu.Lock()
	s.revoked[p.token] = true
	s.mu.Unlock()
	okMessage(w, "Logged out")
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	p := principalFrom(r)
	s.mu.Lock()
	u := s.accounts[p.userID].user.Clone()
	s.mu.Unlock()
	ok(w, http.StatusOK, models.AuthResult{User: u, Token: p.token})
}

func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	if id, found := s.byEmail[strings.ToLower(in.Email)]; found {
		s.resetTokens[uuid.NewString()] = id
	}
	s.mu.Unlock()

	// same answer for unknown addresses
	okMessage(w, "If that email is registered, a reset link has been sent.")
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var in models.ResetPasswordRequest
	if !decode(w, r, &in) {
		return
	}
	if len(in.Password) < 6 {
		invalid(w, map[string]string{"password": "Password must be at least 6 characters"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.MinCost)
	if err != nil {
		fail(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, found := s.resetTokens[in.Token]
	if !found {
		fail(w, http.StatusBadRequest, "invalid_token", "Reset link is invalid or has expired")
		return
	}
	delete(s.resetTokens, in.Token)
	s.accounts[id].passwordHash = hash
	okMessage(w, "Password has been reset")
}

func (s *Server) handleVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Token string `json:"token"`
	}
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, found := s.emailTokens[in.Token]
	if !found {
		fail(w, http.StatusBadRequest, "invalid_token", "Verification link is invalid or has expired")
		return
	}
	delete(s.emailTokens, in.Token)
	s.accounts[id].user.EmailVerified = true
	okMessage(w, "Email verified")
}

func (s *Server) handleResendVerification(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Email string `json:"email"`
	}
	if !decode(w, r, &in) {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	id, found := s.byEmail[strings.ToLower(in.Email)]
	if !found {
		fail(w, http.StatusNotFound, "not_found", "No account with that email")
		return
	}
	if s.accounts[id].user.EmailVerified {
		fail(w, http.StatusBadRequest, "already_verified", "Email is already verified")
		return
	}
	s.emailTokens[uuid.NewString()] = id
	okMessage(w, "Verification email sent")
}

func (s *Server) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch models.UserPatch
	if !decode(w, r, &patch) {
		return
	}
	// favorites and verification are not writable through the profile
	patch.Favorites = nil
	patch.EmailVerified = nil

	p := principalFrom(r)
	s.mu.Lock()
	a := s.accounts[p.userID]
	a.user = patch.Apply(a.user)
	u := a.user.Clone()
	s.mu.Unlock()

	ok(w, http.StatusOK, u)
}

func (s *Server) nextID(prefix string) string {
	s.seq++
	return prefix + strconv.Itoa(s.seq)
}
