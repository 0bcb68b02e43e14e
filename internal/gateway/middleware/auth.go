package middleware

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"sirius-system/internal/utils"
)

// JWTAuth verifies the bearer token and the X-Empresa-Id tenant header.
// A missing or invalid token is "not authenticated": the client is expected
// to send the operator back to login.
func JWTAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Authentication required",
			})
			return
		}

		claims, err := utils.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"success": false,
				"message": "Invalid or expired token",
			})
			return
		}

		companyID, err := strconv.ParseInt(c.GetHeader("X-Empresa-Id"), 10, 64)
		if err != nil || companyID <= 0 {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"success": false,
				"message": "X-Empresa-Id header required",
			})
			return
		}

		c.Set("user_id", claims.UserId)
		c.Set("username", claims.Username)
		c.Set("company_id", companyID)
		c.Next()
	}
}

// CompanyID reads the tenant set by JWTAuth.
func CompanyID(c *gin.Context) int64 {
	return c.GetInt64("company_id")
}
