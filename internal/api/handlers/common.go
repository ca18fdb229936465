package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoohealth/internal/api/middleware"
	"github.com/yoockh/yoohealth/internal/auth"
	"github.com/yoockh/yoohealth/internal/utils"
)

type APIError struct {
	Code    utils.Code `json:"code"`
	Message string     `json:"message"`
}

func writeError(c *gin.Context, err error) {
	status := utils.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, APIError{
		Code:    utils.CodeOf(err),
		Message: utils.SafeMessage(err),
	})
}

func requireUserID(c *gin.Context) (string, bool) {
	if s := c.GetString(middleware.CtxUserID); s != "" {
		return s, true
	}

	writeError(c, utils.E(utils.CodeUnauthorized, "Auth", "unauthorized", nil))
	return "", false
}

// optionalUserID is empty for anonymous callers.
func optionalUserID(c *gin.Context) string {
	return c.GetString(middleware.CtxUserID)
}

func claimsFrom(c *gin.Context) *auth.Claims {
	v, _ := c.Get(middleware.CtxClaims)
	claims, _ := v.(*auth.Claims)
	return claims
}
