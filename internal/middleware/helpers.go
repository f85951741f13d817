// internal/middleware/helpers.go
package middleware

import (
	"slices"

	"paywall-service/internal/pkg/jwt"

	"github.com/gin-gonic/gin"
)

// MustGetUserID gets the user ID from context or panics. Only use it behind Auth().
func MustGetUserID(c *gin.Context) int64 {
	id, exists := GetUserID(c)
	if !exists {
		panic("user_id not found in context")
	}
	return id
}

// GetRoles gets user roles from context
func GetRoles(c *gin.Context) []string {
	roles, exists := c.Get(ctxRoles)
	if !exists {
		return []string{}
	}

	rolesList, ok := roles.([]string)
	if !ok {
		return []string{}
	}
	return rolesList
}

// IsAuthenticated checks if request is authenticated
func IsAuthenticated(c *gin.Context) bool {
	_, exists := c.Get(ctxUserID)
	return exists
}

func IsAdmin(c *gin.Context) bool {
	roles := GetRoles(c)
	return slices.Contains(roles, jwt.RoleAdmin) || slices.Contains(roles, jwt.RoleSuperAdmin)
}
