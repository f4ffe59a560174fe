package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

// AuthHandler exchanges the shared API key for a short-lived bearer token.
type AuthHandler struct {
	apiKeyHash    string
	jwtSecret     string
	tokenDuration time.Duration
}

// NewAuthHandler creates a new AuthHandler. apiKeyHash is the bcrypt hash of
// the accepted key; when it is empty no token is ever issued.
func NewAuthHandler(apiKeyHash, jwtSecret string, tokenDuration time.Duration) *AuthHandler {
	return &AuthHandler{apiKeyHash: apiKeyHash, jwtSecret: jwtSecret, tokenDuration: tokenDuration}
}

type tokenRequest struct {
	Client string `json:"client"`
	APIKey string `json:"api_key"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (h *AuthHandler) Token(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Client == "" || req.APIKey == "" {
		http.Error(w, "Missing fields", http.StatusBadRequest)
		return
	}

	if h.apiKeyHash == "" || bcrypt.CompareHashAndPassword([]byte(h.apiKeyHash), []byte(req.APIKey)) != nil {
		http.Error(w, "Credentials not found", http.StatusUnauthorized)
		return
	}

	// Issue JWT
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": req.Client,
		"exp": time.Now().Add(h.tokenDuration).Unix(),
	})
	tokenStr, err := token.SignedString([]byte(h.jwtSecret))
	if err != nil {
		http.Error(w, "Error signing token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(authResponse{Token: tokenStr})
}

func (h *AuthHandler) Signout(w http.ResponseWriter, r *http.Request) {
	// For stateless JWT, signout is client-side (just delete token)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, `{"message":"signed out"}`)
}
