package handler

import (
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/busbuddy-api/internal/middleware"
	"github.com/noah-isme/busbuddy-api/internal/models"
	appErrors "github.com/noah-isme/busbuddy-api/pkg/errors"
	"github.com/noah-isme/busbuddy-api/pkg/response"
	"github.com/noah-isme/busbuddy-api/pkg/timewindow"
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

func actorID(c *gin.Context) string {
	if claims := claimsFromContext(c); claims != nil {
		return claims.UserID
	}
	return ""
}

func parseIDParam(c *gin.Context, name string) (int64, error) {
	raw := c.Param(name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer")
	}
	return id, nil
}

func parseDateQuery(c *gin.Context, name string) (*timewindow.Date, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return nil, nil
	}
	date, err := timewindow.ParseDate(raw)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, name+" must be YYYY-MM-DD")
	}
	return &date, nil
}

// respondError renders err, attaching the colliding bookings of a schedule conflict.
func respondError(c *gin.Context, err error) {
	var conflict *models.ScheduleConflictError
	if errors.As(err, &conflict) {
		response.ErrorWithDetails(c, err, conflict)
		return
	}
	response.Error(c, err)
}
