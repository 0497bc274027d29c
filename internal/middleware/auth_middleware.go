package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"swiftresponse/internal/models"
	"swiftresponse/internal/utils"
	"swiftresponse/pkg/logger"
)

const (
	ContextUserID   = "user_id"
	ContextUserType = "user_type"
	ContextPhone    = "phone"
)

// AuthRequired validates the bearer token and stores the caller on the
// context. Browsers cannot set headers on a websocket upgrade, so the token
// may also come from the token query parameter.
func AuthRequired(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, "UNAUTHORIZED", "Bearer token required")
			c.Abort()
			return
		}

		claims, err := utils.ValidateToken(tokenString, secret)
		if err != nil {
			utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid or expired token")
			c.Abort()
			return
		}
		if claims.Kind == utils.TokenKindRefresh || claims.UserID == "" || !models.UserType(claims.UserType).IsValid() {
			utils.ErrorResponse(c, http.StatusUnauthorized, "INVALID_TOKEN", "Invalid token claims")
			c.Abort()
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserType, claims.UserType)
		c.Set(ContextPhone, claims.Phone)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), claims.UserID))

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// RoleRequired ensures the authenticated caller has one of roles.
func RoleRequired(roles ...models.UserType) gin.HandlerFunc {
	return func(c *gin.Context) {
		userType := models.UserType(c.GetString(ContextUserType))
		if userType == "" {
			utils.UnauthorizedResponse(c)
			c.Abort()
			return
		}
		for _, role := range roles {
			if role == userType {
				c.Next()
				return
			}
		}
		utils.ForbiddenResponse(c)
		c.Abort()
	}
}

func PatientRequired() gin.HandlerFunc {
	return RoleRequired(models.UserTypePatient)
}

func HospitalRequired() gin.HandlerFunc {
	return RoleRequired(models.UserTypeHospital)
}

func DriverRequired() gin.HandlerFunc {
	return RoleRequired(models.UserTypeDriver)
}

// CurrentUser returns the caller stored by AuthRequired.
func CurrentUser(c *gin.Context) (string, models.UserType) {
	return c.GetString(ContextUserID), models.UserType(c.GetString(ContextUserType))
}
