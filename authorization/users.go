package authorization

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// CreateUserRequest captures the payload for creating an administrative user.
type CreateUserRequest struct {
	Email       string  `json:"email" binding:"required,email"`
	Password    string  `json:"password" binding:"required"`
	FullName    *string `json:"full_name"`
	IsSuperuser bool    `json:"is_superuser"`
}

// UpdateUserRequest captures the fields of a partial user update. Absent
// fields are left untouched.
type UpdateUserRequest struct {
	Email    *string `json:"email" binding:"omitempty,email"`
	FullName *string `json:"full_name"`
	IsActive *bool   `json:"is_active"`
	Password *string `json:"password"`
}

func (m *Module) registerUserRoutes(router *gin.Engine) {
	guard := m.Guard()

	usersGroup := router.Group("/users")
	usersGroup.Use(guard.RequireAuthenticated())

	usersGroup.GET("/", guard.RequireSuperuser(), m.handleListUsers)
	usersGroup.POST("/", guard.RequireSuperuser(), m.handleCreateUser)
	usersGroup.GET("/:id", m.handleGetUser)
	usersGroup.PATCH("/:id", guard.RequireSuperuser(), m.handleUpdateUser)
	usersGroup.DELETE("/:id", guard.RequireSuperuser(), m.handleDeleteUser)
}

func (m *Module) handleListUsers(c *gin.Context) {
	skip, _ := strconv.Atoi(c.DefaultQuery("skip", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	users, err := m.users.List(c.Request.Context(), skip, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list users"})
		return
	}
	c.JSON(http.StatusOK, users)
}

func (m *Module) handleCreateUser(c *gin.Context) {
	var req CreateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	hash, err := HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	var fullName *string
	if req.FullName != nil {
		if trimmed := strings.TrimSpace(*req.FullName); trimmed != "" {
			fullName = &trimmed
		}
	}

	user := &User{
		Email:          req.Email,
		HashedPassword: hash,
		FullName:       fullName,
		IsActive:       true,
		IsSuperuser:    req.IsSuperuser,
	}
	if err := m.users.Create(c.Request.Context(), user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	c.JSON(http.StatusCreated, user)
}

func (m *Module) handleGetUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	user, err := m.users.FindByID(c.Request.Context(), uint(id))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load user"})
		return
	}
	c.JSON(http.StatusOK, user)
}

func (m *Module) handleUpdateUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	var req UpdateUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request payload"})
		return
	}

	params := UpdateUserParams{
		Email:    req.Email,
		FullName: req.FullName,
		IsActive: req.IsActive,
	}
	if req.Password != nil && strings.TrimSpace(*req.Password) != "" {
		hash, err := HashPassword(*req.Password)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
			return
		}
		params.PasswordHash = &hash
	}

	user, err := m.users.Update(c.Request.Context(), uint(id), params)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidEmail):
			c.JSON(http.StatusBadRequest, gin.H{"error": ErrInvalidEmail.Error()})
		case errors.Is(err, gorm.ErrDuplicatedKey):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Email already registered"})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update user"})
		}
		return
	}
	c.JSON(http.StatusOK, user)
}

func (m *Module) handleDeleteUser(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if err := m.users.Delete(c.Request.Context(), uint(id)); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete user"})
		return
	}
	c.Status(http.StatusNoContent)
}
