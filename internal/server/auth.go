package server

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/SietraX/saved/internal/logging"
)

const (
	authCookie  = "auth_token"
	stateCookie = "oauthstate"
	userInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// TokenClaims is what a session token carries. AccessToken is the user's
// platform token so proxy routes can act on their behalf.
type TokenClaims struct {
	UserID      string `json:"uid"`
	Email       string `json:"email,omitempty"`
	AccessToken string `json:"pat,omitempty"`
	jwt.RegisteredClaims
}

type ctxClaimsKey struct{}

func claimsFrom(ctx context.Context) *TokenClaims {
	c, _ := ctx.Value(ctxClaimsKey{}).(*TokenClaims)
	return c
}

func accessTokenFrom(ctx context.Context) string {
	if c := claimsFrom(ctx); c != nil {
		return c.AccessToken
	}
	return ""
}

type Auth struct {
	secret      []byte
	ttl         time.Duration
	oauth       *oauth2.Config
	frontendURL string
	userInfoURL string
	secure      bool
}

func NewAuth(secret []byte, ttl time.Duration, clientID, clientSecret, redirectURL, frontendURL string) *Auth {
	return &Auth{
		secret: secret,
		ttl:    ttl,
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/youtube.readonly",
			},
			Endpoint: google.Endpoint,
		},
		frontendURL: frontendURL,
		userInfoURL: userInfoURL,
		secure:      strings.HasPrefix(frontendURL, "https://"),
	}
}

// Issue signs a session token for the user.
func (a *Auth) Issue(userID, email, accessToken string) (string, error) {
	now := time.Now()
	claims := &TokenClaims{
		UserID:      userID,
		Email:       email,
		AccessToken: accessToken,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Auth) parse(raw string) (*TokenClaims, error) {
	claims := &TokenClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.UserID == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Middleware accepts a bearer token or the session cookie, and exposes the
// user id to handlers through X-User-Id.
func (a *Auth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := ""
		if h := r.Header.Get("Authorization"); h != "" {
			parts := strings.SplitN(h, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				writeError(w, http.StatusUnauthorized, "invalid Authorization header")
				return
			}
			raw = parts[1]
		} else if c, err := r.Cookie(authCookie); err == nil {
			raw = c.Value
		}
		if raw == "" {
			writeError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}

		claims, err := a.parse(raw)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid token")
			return
		}

		r.Header.Set("X-User-Id", claims.UserID)
		ctx := context.WithValue(r.Context(), ctxClaimsKey{}, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (a *Auth) handleLogin(w http.ResponseWriter, r *http.Request) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	state := base64.URLEncoding.EncodeToString(b)
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookie,
		Value:    state,
		Expires:  time.Now().Add(20 * time.Minute),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	url := a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

type googleUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

func (a *Auth) handleCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logging.Logger

	st, err := r.Cookie(stateCookie)
	if err != nil || r.FormValue("state") != st.Value {
		writeError(w, http.StatusBadRequest, "invalid oauth state")
		return
	}

	tok, err := a.oauth.Exchange(ctx, r.FormValue("code"))
	if err != nil {
		log.Error().Err(err).Msg("auth: code exchange failed")
		writeError(w, http.StatusUnauthorized, "code exchange failed")
		return
	}

	user, err := a.fetchUser(ctx, tok)
	if err != nil {
		log.Error().Err(err).Msg("auth: user info failed")
		writeError(w, http.StatusBadGateway, "failed getting user info")
		return
	}

	signed, err := a.Issue(user.ID, user.Email, tok.AccessToken)
	if err != nil {
		log.Error().Err(err).Msg("auth: sign token failed")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    signed,
		Expires:  time.Now().Add(a.ttl),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info().Str("user_id", user.ID).Msg("auth: login")
	http.Redirect(w, r, a.frontendURL, http.StatusTemporaryRedirect)
}

func (a *Auth) fetchUser(ctx context.Context, tok *oauth2.Token) (googleUser, error) {
	resp, err := a.oauth.Client(ctx, tok).Get(a.userInfoURL)
	if err != nil {
		return googleUser{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return googleUser{}, fmt.Errorf("userinfo status %d", resp.StatusCode)
	}

	var u googleUser
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return googleUser{}, err
	}
	if u.ID == "" {
		return googleUser{}, errors.New("userinfo without id")
	}
	return u, nil
}

func (a *Auth) handleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// CORS allows the browser frontend at allowedOrigin to call the API with
// credentials.
func CORS(allowedOrigin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
			w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
			w.Header().Set("Access-Control-Allow-Methods", "GET,POST,PATCH,DELETE,OPTIONS")
			w.Header().Set("Access-Control-Allow-Credentials", "true")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
