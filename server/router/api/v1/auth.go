package v1

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	apperrors "github.com/hrygo/followup/server/internal/errors"
	"github.com/hrygo/followup/server/internal/observability"
)

const (
	// UserIDHeader identifies the caller when no JWT secret is configured.
	UserIDHeader = "X-User-ID"

	userIDKey = "user_id"
	issuer    = "followup"
)

// Claims are the JWT claims accepted by the API.
type Claims struct {
	UserID int32 `json:"uid"`
	jwt.RegisteredClaims
}

// IssueToken signs an HS256 token for userID valid for ttl.
func IssueToken(secret string, userID int32, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", fmt.Errorf("jwt secret is empty")
	}
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(int(userID)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parseToken(secret, token string) (int32, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(issuer))
	if err != nil {
		return 0, err
	}
	if claims.UserID <= 0 {
		return 0, fmt.Errorf("token carries no user")
	}
	return claims.UserID, nil
}

// authenticate resolves the caller from a bearer token when a secret is configured,
// otherwise from the X-User-ID header set by an upstream identity layer.
func (s *APIV1Service) authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := s.resolveUser(c)
		if err != nil {
			return err
		}
		c.Set(userIDKey, userID)

		req := c.Request()
		if rc, ok := observability.FromContext(req.Context()); ok {
			c.SetRequest(req.WithContext(observability.WithRunContext(req.Context(), rc.ForUser(userID))))
		}
		return next(c)
	}
}

func (s *APIV1Service) resolveUser(c echo.Context) (int32, error) {
	if s.Profile != nil && s.Profile.JWTSecret != "" {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return 0, apperrors.Unauthorized("bearer token required")
		}
		userID, err := parseToken(s.Profile.JWTSecret, token)
		if err != nil {
			return 0, apperrors.Wrap(err, apperrors.ErrCodeUnauthorized, "invalid token")
		}
		return userID, nil
	}

	raw := c.Request().Header.Get(UserIDHeader)
	if raw == "" {
		return 0, apperrors.Unauthorized(UserIDHeader + " header required")
	}
	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.Unauthorized("invalid " + UserIDHeader + " header")
	}
	return int32(id), nil
}

func currentUser(c echo.Context) int32 {
	id, _ := c.Get(userIDKey).(int32)
	return id
}

func rateLimitKey(c echo.Context) string {
	if id := currentUser(c); id != 0 {
		return "user:" + strconv.Itoa(int(id))
	}
	return ""
}
