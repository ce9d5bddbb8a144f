package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/SAP-F-2025/quiz-service/internal/config"
	"github.com/SAP-F-2025/quiz-service/internal/utils"
	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/gin-gonic/gin"
)

const userIDKey = "user_id"

// TokenParser verifies an admin bearer token and returns the user name.
type TokenParser interface {
	ParseAdmin(token string) (string, error)
}

type casdoorParser struct {
	client *casdoorsdk.Client
}

// NewCasdoorParser verifies tokens issued by the configured Casdoor application.
func NewCasdoorParser(cfg config.CasdoorConfig) TokenParser {
	return &casdoorParser{
		client: casdoorsdk.NewClient(
			cfg.Endpoint,
			cfg.ClientID,
			cfg.ClientSecret,
			cfg.Certificate,
			cfg.OrganizationName,
			cfg.ApplicationName,
		),
	}
}

func (p *casdoorParser) ParseAdmin(token string) (string, error) {
	claims, err := p.client.ParseJwtToken(token)
	if err != nil {
		return "", err
	}
	if !claims.IsAdmin {
		return "", errNotAdmin
	}
	return claims.Name, nil
}

type authError string

func (e authError) Error() string { return string(e) }

const errNotAdmin = authError("user is not an administrator")

// AdminAuth guards admin routes. A configured token parser takes precedence;
// otherwise HTTP basic auth with the admin credentials is used. With neither
// configured every admin request is refused.
func AdminAuth(parser TokenParser, admin config.AdminConfig, logger utils.Logger) gin.HandlerFunc {
	if parser != nil {
		return bearerAuth(parser, logger)
	}
	if admin.Password == "" {
		logger.Warn("Admin routes are disabled: no ADMIN_PASSWORD or Casdoor configuration")
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, ErrorResponse{
				Message: "Admin access is not configured",
			})
		}
	}

	basic := gin.BasicAuth(gin.Accounts{admin.Username: admin.Password})
	return func(c *gin.Context) {
		basic(c)
		if c.IsAborted() {
			return
		}
		c.Set(userIDKey, c.GetString(gin.AuthUserKey))
		c.Next()
	}
}

func bearerAuth(parser TokenParser, logger utils.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || strings.TrimSpace(token) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{
				Message: "Authorization token is required",
			})
			return
		}

		user, err := parser.ParseAdmin(strings.TrimSpace(token))
		if err != nil {
			logger.Warn("Rejected admin token", "error", err, "path", c.Request.URL.Path)
			status := http.StatusUnauthorized
			if errors.Is(err, errNotAdmin) {
				status = http.StatusForbidden
			}
			c.AbortWithStatusJSON(status, ErrorResponse{
				Message: "Access denied",
				Details: err.Error(),
			})
			return
		}

		c.Set(userIDKey, user)
		c.Next()
	}
}
