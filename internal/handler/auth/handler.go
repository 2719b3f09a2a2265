package auth

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/leukemia-dashboard/internal/handler"
	"github.com/jwalitptl/leukemia-dashboard/internal/middleware"
	"github.com/jwalitptl/leukemia-dashboard/internal/model"
	"github.com/jwalitptl/leukemia-dashboard/internal/repository"
	"github.com/jwalitptl/leukemia-dashboard/pkg/auth"
	"github.com/jwalitptl/leukemia-dashboard/pkg/security"
	"github.com/jwalitptl/leukemia-dashboard/pkg/validator"
)

type Handler struct {
	accounts  repository.AccountRepository
	tokens    auth.TokenService
	hasher    security.PasswordHasher
	validator validator.Validator
	authMW    *middleware.AuthMiddleware
}

func NewHandler(
	accounts repository.AccountRepository,
	tokens auth.TokenService,
	hasher security.PasswordHasher,
	v validator.Validator,
	authMW *middleware.AuthMiddleware,
) *Handler {
	return &Handler{
		accounts:  accounts,
		tokens:    tokens,
		hasher:    hasher,
		validator: v,
		authMW:    authMW,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/register/", h.Register)

	auth := r.Group("/auth")
	{
		auth.POST("/token/login/", h.Login)
		auth.POST("/users/", h.Register)
		auth.GET("/users/me/", h.authMW.Authenticate(), h.Me)
	}
}

type registerBody struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Name     string `json:"name"`
	Username string `json:"username"`
}

// Register creates an account. Both the custom register/ view ({email,
// password, name}) and djoser's auth/users/ ({email, username, password})
// land here.
func (h *Handler) Register(c *gin.Context) {
	var req registerBody
	if !handler.Bind(c, h.validator, &req) {
		return
	}

	hashed, err := h.hasher.Hash(req.Password)
	if stderrors.Is(err, security.ErrPasswordTooShort) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
			"password": []string{"This password is too short. It must contain at least 8 characters."},
		})
		return
	}
	if err != nil {
		_ = c.Error(err)
		return
	}

	username := req.Username
	if username == "" {
		username = req.Name
	}
	if username == "" {
		username = strings.SplitN(req.Email, "@", 2)[0]
	}

	account := &model.Account{
		Identity: model.Identity{
			Email:    req.Email,
			Username: username,
		},
		Name:         req.Name,
		PasswordHash: hashed,
	}
	if err := h.accounts.CreateAccount(c.Request.Context(), account); err != nil {
		if stderrors.Is(err, repository.ErrConflict) {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"email": []string{"user with this email already exists."},
			})
			return
		}
		_ = c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":       account.ID,
		"email":    account.Email,
		"username": account.Username,
	})
}

func (h *Handler) Login(c *gin.Context) {
	var req model.LoginRequest
	if !handler.Bind(c, h.validator, &req) {
		return
	}

	rejected := gin.H{"non_field_errors": []string{"Unable to log in with provided credentials."}}

	account, err := h.accounts.GetAccountByEmail(c.Request.Context(), req.Email)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, rejected)
		return
	}
	if err := h.hasher.Compare(account.PasswordHash, req.Password); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, rejected)
		return
	}

	token, err := h.tokens.Issue(account.ID, account.Email)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, model.TokenResponse{AuthToken: token})
}

func (h *Handler) Me(c *gin.Context) {
	account, err := h.accounts.GetAccount(c.Request.Context(), middleware.AccountID(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, account.Identity)
}
