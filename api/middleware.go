package api

import (
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const (
	authorizationHeaderKey  = "authorization"
	authorizationTypeBearer = "bearer"
	timestampLayout         = "2006-01-02 15:04:05"
)

// Authentication is the gin middleware guarding the /v1 routes. API keys are
// prefix.secret; the prefix locates the record and bcrypt checks the full
// key against the stored hash.
func (server *Server) Authentication(c *gin.Context) {
	authorizationHeader := c.GetHeader(authorizationHeaderKey)

	if len(authorizationHeader) == 0 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("authorization header is not provided")))
		return
	}

	fields := strings.Fields(authorizationHeader)
	if len(fields) < 2 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("invalid authorization header format")))
		return
	}

	authorizationType := strings.ToLower(fields[0])
	if authorizationType != authorizationTypeBearer {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(fmt.Errorf("unsupported authorization type: %s", authorizationType)))
		return
	}

	apiKey := fields[1]

	prefix := strings.Split(apiKey, ".")[0]
	if len(prefix) != 8 {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("please input a valid API key")))
		return
	}

	user, err := server.store.GetUser(c, prefix)
	if err != nil {
		if err == sql.ErrNoRows {
			c.AbortWithStatusJSON(http.StatusNotFound, errorResponse(err))
			return
		}

		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	expired, _ := time.Parse(timestampLayout, user.ExpiredAt)
	now, _ := time.Parse(timestampLayout, time.Now().Format(timestampLayout))
	if now.After(expired) {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("api key is expired")))
		return
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.Token), []byte(apiKey))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse(errors.New("please input a valid API key")))
		return
	}

	c.Next()
}
