package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/siakad-dev/pengajuan-sa-api/internal/middleware"
	"github.com/siakad-dev/pengajuan-sa-api/internal/models"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}
