package middleware

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"

	"rebazar/internal/domain/entity"
	"rebazar/internal/domain/repository"
)

// PrincipalKey is the echo context key holding the resolved Principal.
const PrincipalKey = "principal"

type tokenClaims struct {
	Role     string `json:"role"`
	UserID   string `json:"userId,omitempty"`
	VendorID string `json:"vendorId,omitempty"`
	AdminID  string `json:"adminId,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	userRepo   repository.UserRepository
	vendorRepo repository.VendorRepository
	jwtSecret  []byte
}

func NewAuthMiddleware(userRepo repository.UserRepository, vendorRepo repository.VendorRepository, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo:   userRepo,
		vendorRepo: vendorRepo,
		jwtSecret:  []byte(jwtSecret),
	}
}

// Authenticate resolves the bearer token to exactly one Principal and stores
// it in the request context. User tokens must reference an existing user;
// vendor tokens an approved vendor.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		claims := &tokenClaims{}
		token, err := jwt.ParseWithClaims(parts[1], claims, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return m.jwtSecret, nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		switch claims.Role {
		case "user":
			user, err := m.userRepo.GetByID(c.Request().Context(), claims.UserID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "User not found")
			}
			c.Set(PrincipalKey, entity.Principal{Kind: entity.PrincipalUser, ID: user.ID})

		case "vendor":
			vendor, err := m.vendorRepo.GetByID(c.Request().Context(), claims.VendorID)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "Vendor not found")
			}
			if vendor.Status != entity.VendorStatusApproved {
				return echo.NewHTTPError(http.StatusForbidden, "Vendor not approved")
			}
			c.Set(PrincipalKey, entity.Principal{Kind: entity.PrincipalVendor, ID: vendor.ID})

		case "admin":
			c.Set(PrincipalKey, entity.Principal{Kind: entity.PrincipalAdmin, ID: claims.AdminID})

		default:
			return echo.NewHTTPError(http.StatusForbidden, "Invalid token role")
		}

		return next(c)
	}
}

// RequireUser runs after Authenticate and rejects non-user principals.
func (m *AuthMiddleware) RequireUser(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireKind(next, entity.PrincipalUser)
}

// RequireVendor runs after Authenticate and rejects non-vendor principals.
func (m *AuthMiddleware) RequireVendor(next echo.HandlerFunc) echo.HandlerFunc {
	return m.requireKind(next, entity.PrincipalVendor)
}

func (m *AuthMiddleware) requireKind(next echo.HandlerFunc, kind entity.PrincipalKind) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := c.Get(PrincipalKey).(entity.Principal)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		if principal.Kind != kind {
			return echo.NewHTTPError(http.StatusForbidden, string(kind)+" authentication required")
		}
		return next(c)
	}
}

// RequireModerator admits vendor and admin principals only.
func (m *AuthMiddleware) RequireModerator(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		principal, ok := c.Get(PrincipalKey).(entity.Principal)
		if !ok {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}
		if principal.Kind != entity.PrincipalVendor && principal.Kind != entity.PrincipalAdmin {
			return echo.NewHTTPError(http.StatusForbidden, "Moderator privileges required")
		}
		return next(c)
	}
}
