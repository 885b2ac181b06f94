package auth

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/tigercode/backend/internal/models"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

type googleUserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

func (h *Handler) googleOAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.cfg.GoogleClientID,
		ClientSecret: h.cfg.GoogleClientSecret,
		RedirectURL:  h.cfg.GoogleCallbackURL,
		Scopes:       []string{"openid", "profile", "email"},
		Endpoint:     google.Endpoint,
	}
}

// GoogleStart redirects the browser to the Google consent screen, with a
// state token pinned in a short-lived cookie.
func (h *Handler) GoogleStart(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.GoogleOAuthEnabled() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Google login is not configured"})
		return
	}

	state := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     "oauth_state",
		Value:    state,
		Path:     "/",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.googleOAuthConfig().AuthCodeURL(state), http.StatusFound)
}

// GoogleCallback exchanges the authorization code, resolves the user
// (matching google id first, then linking by email, else registering),
// and redirects back to the frontend with a bearer token.
func (h *Handler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.GoogleOAuthEnabled() {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Google login is not configured"})
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value == "" || stateCookie.Value != r.URL.Query().Get("state") {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Invalid OAuth state"})
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: "Missing authorization code"})
		return
	}

	conf := h.googleOAuthConfig()
	token, err := conf.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("[auth] OAuth code exchange failed: %v", err)
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "OAuth exchange failed"})
		return
	}

	info, err := fetchGoogleUserInfo(conf, r, token)
	if err != nil {
		log.Printf("[auth] OAuth userinfo fetch failed: %v", err)
		writeJSON(w, http.StatusUnauthorized, models.ErrorResponse{Error: "Failed to fetch user info"})
		return
	}

	user, err := h.findOrCreateGoogleUser(info)
	if err != nil {
		log.Printf("[auth] OAuth user resolution failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to sign in"})
		return
	}

	if err := h.progress.TouchLastActive(user.ID); err != nil {
		log.Printf("[auth] touch last active for user %d: %v", user.ID, err)
	}

	jwtToken, err := GenerateToken([]byte(h.cfg.JWTSecret), *user)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, models.ErrorResponse{Error: "Failed to generate token"})
		return
	}

	redirect := fmt.Sprintf("%s/auth-callback?token=%s", h.cfg.FrontendURL, url.QueryEscape(jwtToken))
	http.Redirect(w, r, redirect, http.StatusFound)
}

func fetchGoogleUserInfo(conf *oauth2.Config, r *http.Request, token *oauth2.Token) (*googleUserInfo, error) {
	client := conf.Client(r.Context(), token)
	resp, err := client.Get(googleUserInfoURL)
	if err != nil {
		return nil, fmt.Errorf("userinfo request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo: %w", err)
	}
	if info.ID == "" {
		return nil, fmt.Errorf("userinfo missing subject id")
	}
	return &info, nil
}

// findOrCreateGoogleUser resolves a Google identity to a local user:
// existing google id wins, then an account with the same email is linked,
// otherwise a new user (with no password) is registered.
func (h *Handler) findOrCreateGoogleUser(info *googleUserInfo) (*models.User, error) {
	var user models.User

	err := h.db.QueryRow(
		`SELECT id, email, name, COALESCE(profile_picture, ''), role, created_at, updated_at
		 FROM users WHERE google_id = $1`,
		info.ID,
	).Scan(&user.ID, &user.Email, &user.Name, &user.ProfilePicture,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err == nil {
		return &user, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("find by google id: %w", err)
	}

	if info.Email != "" {
		err = h.db.QueryRow(
			`UPDATE users SET google_id = $1,
			        profile_picture = COALESCE(NULLIF($2, ''), profile_picture),
			        updated_at = NOW()
			 WHERE email = $3
			 RETURNING id, email, name, COALESCE(profile_picture, ''), role, created_at, updated_at`,
			info.ID, info.Picture, info.Email,
		).Scan(&user.ID, &user.Email, &user.Name, &user.ProfilePicture,
			&user.Role, &user.CreatedAt, &user.UpdatedAt)
		if err == nil {
			return &user, nil
		}
		if err != sql.ErrNoRows {
			return nil, fmt.Errorf("link by email: %w", err)
		}
	}

	name := info.Name
	if name == "" {
		name = info.Email
	}
	err = h.db.QueryRow(
		`INSERT INTO users (email, name, google_id, profile_picture, role, created_at, updated_at)
		 VALUES ($1, $2, $3, NULLIF($4, ''), $5, NOW(), NOW())
		 RETURNING id, email, name, COALESCE(profile_picture, ''), role, created_at, updated_at`,
		info.Email, name, info.ID, info.Picture, models.RoleUser,
	).Scan(&user.ID, &user.Email, &user.Name, &user.ProfilePicture,
		&user.Role, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("create google user: %w", err)
	}

	if err := h.progress.EnsureRecord(user.ID); err != nil {
		log.Printf("[auth] create progress record for user %d: %v", user.ID, err)
	}

	return &user, nil
}
