package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/makeasinger/fabricator/pkg/response"
)

const tokenIssuer = "fabricator"

type AuthMiddleware struct {
	jwtSecret  string
	expiration time.Duration
}

// OperatorClaims identify the operator calling the API and the account whose
// chains they manage.
type OperatorClaims struct {
	UserID    string `json:"userId"`
	AccountID string `json:"accountId,omitempty"`
	jwt.RegisteredClaims
}

func NewAuthMiddleware(jwtSecret string, expiration time.Duration) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret, expiration: expiration}
}

// Authenticate validates the bearer token. Browsers cannot set headers on a
// websocket upgrade, so a token query parameter is accepted as well.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenString, ok := bearerToken(c)
		if !ok {
			return response.Unauthorized(c, "Missing or malformed authorization")
		}

		token, err := jwt.ParseWithClaims(tokenString, &OperatorClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(m.jwtSecret), nil
		}, jwt.WithIssuer(tokenIssuer))
		if err != nil {
			return response.Unauthorized(c, "Invalid or expired token")
		}

		claims, ok := token.Claims.(*OperatorClaims)
		if !ok || !token.Valid || claims.UserID == "" {
			return response.Unauthorized(c, "Invalid token claims")
		}

		c.Locals("userId", claims.UserID)
		c.Locals("accountId", claims.AccountID)
		return c.Next()
	}
}

func bearerToken(c *fiber.Ctx) (string, bool) {
	if header := c.Get("Authorization"); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || parts[1] == "" {
			return "", false
		}
		return parts[1], true
	}
	if token := c.Query("token"); token != "" {
		return token, true
	}
	return "", false
}

// GetUserID extracts user ID from context
func GetUserID(c *fiber.Ctx) string {
	if userID, ok := c.Locals("userId").(string); ok {
		return userID
	}
	return ""
}

func GetAccountID(c *fiber.Ctx) string {
	if accountID, ok := c.Locals("accountId").(string); ok {
		return accountID
	}
	return ""
}

// GenerateToken signs an operator token valid for the configured expiration.
func (m *AuthMiddleware) GenerateToken(userID, accountID string) (string, error) {
	now := time.Now()
	claims := OperatorClaims{
		UserID:    userID,
		AccountID: accountID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expiration)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}
