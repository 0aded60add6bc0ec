package v1

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rindwa/rindwa_api/internal/apperr"
	"github.com/sirupsen/logrus"
)

var kindStatus = map[apperr.Kind]int{
	apperr.KindUnauthenticated:   http.StatusUnauthorized,
	apperr.KindForbidden:         http.StatusForbidden,
	apperr.KindNotFound:          http.StatusNotFound,
	apperr.KindInvalidTransition: http.StatusConflict,
	apperr.KindDuplicateAction:   http.StatusConflict,
	apperr.KindValidation:        http.StatusBadRequest,
	apperr.KindInternal:          http.StatusInternalServerError,
}

// respondError пишет ответ по виду ошибки. Детали внутренних ошибок остаются в логе.
func respondError(c *gin.Context, log *logrus.Entry, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		log.WithError(err).Error("Request failed")
	} else {
		log.WithError(err).Warn("Request rejected")
	}
	c.AbortWithStatusJSON(kindStatus[kind], ErrorResponse{
		Error: apperr.MessageOf(err),
		Kind:  kind.String(),
	})
}

func respondBadRequest(c *gin.Context, log *logrus.Entry, err error, message string) {
	log.WithError(err).Warn("Invalid request")
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{
		Error: message,
		Kind:  apperr.KindValidation.String(),
	})
}
