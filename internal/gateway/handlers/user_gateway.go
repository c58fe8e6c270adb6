package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	userhandler "gastro-system/internal/services/user/handler"
)

type UserHTTPHandler struct {
	users *userhandler.UserHandler
}

func NewUserHTTPHandler(users *userhandler.UserHandler) *UserHTTPHandler {
	return &UserHTTPHandler{users: users}
}

func (s *UserHTTPHandler) Register(c *gin.Context) {
	var req userhandler.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	user, err := s.users.Register(c.Request.Context(), req)
	if err != nil {
		failErr(c, err)
		return
	}
	created(c, user)
}

func (s *UserHTTPHandler) Login(c *gin.Context) {
	var req userhandler.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	result, err := s.users.Login(c.Request.Context(), req)
	if err != nil {
		// Always 401 here so login failures never leak which part was wrong.
		fail(c, http.StatusUnauthorized, err.Error())
		return
	}
	success(c, result)
}

func (s *UserHTTPHandler) GetUser(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	user, err := s.users.GetUser(c.Request.Context(), id)
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, user)
}

func (s *UserHTTPHandler) ListUsers(c *gin.Context) {
	users, err := s.users.ListUsers(c.Request.Context())
	if err != nil {
		failErr(c, err)
		return
	}
	success(c, users)
}
