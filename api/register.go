package api

import (
	"fmt"
	"net/http"
	"time"

	db "github.com/banachtech/capvol/db/sqlc"
	"github.com/banachtech/capvol/util"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

type registerRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// register issues a new API key. The plain key is returned exactly once;
// only the bcrypt hash is stored.
func (server *Server) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse(err))
		return
	}

	prefix, secret, err := util.GenerateToken()
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}
	apiKey := fmt.Sprintf("%s.%s", prefix, secret)
	hashed, err := bcrypt.GenerateFromPassword([]byte(apiKey), 14)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	now := time.Now()
	exp := now.AddDate(0, 6, 0)
	user, err := server.store.CreateUser(c, db.CreateUserParams{
		EmailAddress: req.Email,
		Prefix:       prefix,
		Token:        string(hashed),
		GeneratedAt:  now.Format(timestampLayout),
		ExpiredAt:    exp.Format(timestampLayout),
	})
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"email":      user.EmailAddress,
		"api_key":    apiKey,
		"expired_at": user.ExpiredAt,
	})
}
