package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	matchTokenExpiry = 24 * time.Hour
	adminUser        = "admin"
	adminRateWindow  = 60 * time.Second
	maxAdminAttempts = 10
)

// Auth issues match tokens and checks the admin password
type Auth struct {
	jwtSecret []byte
	adminHash []byte

	// Rate limiting for admin attempts (IP -> attempts)
	rateMu  sync.Mutex
	rateMap map[string]*rateEntry
}

type rateEntry struct {
	Count   int
	ResetAt time.Time
}

// NewAuth creates a new Auth handler. An empty secret falls back to one stored
// in db, or a fresh random one. An empty adminHash disables admin actions.
func NewAuth(secret string, adminHash string, db *DB) *Auth {
	key := []byte(secret)
	if secret == "" {
		key = loadOrCreateSecret(db)
	}
	return &Auth{
		jwtSecret: key,
		adminHash: []byte(adminHash),
		rateMap:   make(map[string]*rateEntry),
	}
}

// loadOrCreateSecret loads the JWT secret from the database, or generates
// and persists a new one if none exists.
func loadOrCreateSecret(db *DB) []byte {
	if db != nil {
		if h := db.GetSetting("jwt_secret"); h != "" {
			if b, err := hex.DecodeString(h); err == nil && len(b) == 32 {
				return b
			}
		}
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate JWT secret: " + err.Error())
	}
	if db != nil {
		if err := db.SetSetting("jwt_secret", hex.EncodeToString(secret)); err != nil {
			log.Printf("warning: could not persist JWT secret: %v", err)
		}
	}
	return secret
}

// IssueMatchToken signs a token addressing matchID
func (a *Auth) IssueMatchToken(matchID string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"mid": matchID,
		"exp": now.Add(matchTokenExpiry).Unix(),
		"iat": now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(a.jwtSecret)
}

// ValidateMatchToken returns the match ID carried by a token
func (a *Auth) ValidateMatchToken(tokenStr string) (string, error) {
	token, err := jwt.Parse(tokenStr, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return a.jwtSecret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", ErrInvalidToken
	}
	mid, ok := claims["mid"].(string)
	if !ok || mid == "" {
		return "", ErrInvalidToken
	}
	return mid, nil
}

// AdminEnabled reports whether an admin password hash is configured
func (a *Auth) AdminEnabled() bool {
	return len(a.adminHash) > 0
}

// CheckAdmin validates basic-auth credentials against the admin hash
func (a *Auth) CheckAdmin(r *http.Request) bool {
	if !a.AdminEnabled() {
		return false
	}
	if !a.checkRate(clientIP(r)) {
		return false
	}
	user, pass, ok := r.BasicAuth()
	if !ok || user != adminUser {
		return false
	}
	return bcrypt.CompareHashAndPassword(a.adminHash, []byte(pass)) == nil
}

// HashPassword returns a bcrypt hash suitable for HORDE_ADMIN_HASH
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func (a *Auth) checkRate(ip string) bool {
	a.rateMu.Lock()
	defer a.rateMu.Unlock()

	now := time.Now()
	entry, ok := a.rateMap[ip]
	if !ok || now.After(entry.ResetAt) {
		a.rateMap[ip] = &rateEntry{Count: 1, ResetAt: now.Add(adminRateWindow)}
		return true
	}
	entry.Count++
	return entry.Count <= maxAdminAttempts
}

// bearerToken extracts a match token from the Authorization header or ?token=
func bearerToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if tok, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(tok)
		}
	}
	return r.URL.Query().Get("token")
}
