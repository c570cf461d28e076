// Package auth issues and verifies the HS256 session tokens that identify
// collection owners, and runs the GitHub sign-in flow that mints them.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"gamedex/config"
	"gamedex/core"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	stateCookie   = "oauthstate"
	githubUserURL = "https://api.github.com/user"
)

// AppClaims represents the custom claims for the JWT. Access tokens minted by
// other issuers sharing the secret only need sub (and optionally email).
type AppClaims struct {
	jwt.RegisteredClaims
	Login     string `json:"login,omitempty"`
	Email     string `json:"email,omitempty"`
	AvatarURL string `json:"avatarUrl,omitempty"`
	Name      string `json:"name,omitempty"`
}

// Service verifies bearer tokens and serves the sign-in routes.
type Service struct {
	github  *oauth2.Config
	secret  []byte
	ttl     time.Duration
	now     func() time.Time
	userURL string
}

// NewService builds the auth service. GitHub sign-in is disabled when its
// client credentials are missing; token verification still works.
func NewService(cfg config.AuthConfig) *Service {
	s := &Service{
		secret:  []byte(cfg.JWTSecret),
		ttl:     cfg.TokenTTL,
		now:     time.Now,
		userURL: githubUserURL,
	}
	if s.ttl <= 0 {
		s.ttl = 7 * 24 * time.Hour
	}

	if cfg.GitHubClientID != "" && cfg.GitHubClientSecret != "" {
		logrus.Info("Initializing GitHub authentication provider.")
		s.github = &oauth2.Config{
			ClientID:     cfg.GitHubClientID,
			ClientSecret: cfg.GitHubClientSecret,
			RedirectURL:  cfg.GitHubRedirectURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		}
	} else {
		logrus.Warn("No authentication provider configured.")
	}
	if len(s.secret) == 0 {
		logrus.Warn("JWT_SECRET is not set. Authentication will not work.")
	}
	return s
}

// IssueToken signs a session token for user.
func (s *Service) IssueToken(user *core.User) (string, error) {
	if len(s.secret) == 0 {
		return "", fmt.Errorf("%w: signing secret not configured", core.ErrUnauthorized)
	}
	now := s.now()
	claims := AppClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Login:     user.Login,
		Email:     user.Email,
		AvatarURL: user.AvatarURL,
		Name:      user.Name,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// GetUser resolves the identity behind a bearer token. Every failure wraps
// core.ErrUnauthorized.
func (s *Service) GetUser(ctx context.Context, tokenString string) (*core.User, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: empty token", core.ErrUnauthorized)
	}
	if len(s.secret) == 0 {
		return nil, fmt.Errorf("%w: signing secret not configured", core.ErrUnauthorized)
	}

	token, err := jwt.ParseWithClaims(tokenString, &AppClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrUnauthorized, err)
	}

	claims, ok := token.Claims.(*AppClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("%w: invalid token", core.ErrUnauthorized)
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: token has no subject", core.ErrUnauthorized)
	}

	user := &core.User{
		ID:        claims.Subject,
		Login:     claims.Login,
		Email:     claims.Email,
		AvatarURL: claims.AvatarURL,
		Name:      claims.Name,
	}
	if user.Login == "" && user.Email != "" {
		user.Login = user.Email
	}
	return user, nil
}

func generateStateOauthCookie(w http.ResponseWriter, r *http.Request, now time.Time) (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Path:     "/",
		Expires:  now.Add(10 * time.Minute),
		HttpOnly: true,
		Secure:   r.Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	})
	return state, nil
}

// HandleLogin redirects to GitHub's consent page.
func (s *Service) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		http.Error(w, "Authentication not configured", http.StatusInternalServerError)
		return
	}
	state, err := generateStateOauthCookie(w, r, s.now())
	if err != nil {
		http.Error(w, "Failed to generate state for login", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, s.github.AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// HandleCallback exchanges the authorization code, looks up the GitHub
// account and redirects to "/?token=<jwt>".
func (s *Service) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if s.github == nil {
		http.Error(w, "Authentication not configured", http.StatusInternalServerError)
		return
	}

	cookie, err := r.Cookie(stateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != r.FormValue("state") {
		logrus.Warn("OAuth state mismatch")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	user, err := s.fetchGitHubUser(r.Context(), r.FormValue("code"))
	if err != nil {
		logrus.WithError(err).Error("GitHub sign-in failed")
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	jwtToken, err := s.IssueToken(user)
	if err != nil {
		logrus.Errorf("failed to create JWT: %s", err.Error())
		http.Redirect(w, r, "/", http.StatusTemporaryRedirect)
		return
	}

	logrus.WithField("user_id", user.ID).Info("User signed in")
	http.Redirect(w, r, "/?token="+url.QueryEscape(jwtToken), http.StatusTemporaryRedirect)
}

func (s *Service) fetchGitHubUser(ctx context.Context, code string) (*core.User, error) {
	if code == "" {
		return nil, errors.New("no code in callback")
	}
	token, err := s.github.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange token: %w", err)
	}

	resp, err := s.github.Client(ctx, token).Get(s.userURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get user from github: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("github user lookup returned %d", resp.StatusCode)
	}

	var githubUser struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
		Name      string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&githubUser); err != nil {
		return nil, fmt.Errorf("failed to unmarshal github user: %w", err)
	}
	if githubUser.ID == 0 {
		return nil, errors.New("github user has no id")
	}

	return &core.User{
		ID:        fmt.Sprintf("github:%d", githubUser.ID),
		Login:     githubUser.Login,
		Email:     githubUser.Email,
		AvatarURL: githubUser.AvatarURL,
		Name:      githubUser.Name,
	}, nil
}
