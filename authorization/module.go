package authorization

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	jwt "github.com/appleboy/gin-jwt/v2"
	"github.com/gin-gonic/gin"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	identityKey     = "sub"
	defaultTokenTTL = 30 * time.Minute
	defaultLocalDSN = "./local.db"
)

// ErrInvalidEmail rejects a partial update that would blank the email column.
var ErrInvalidEmail = errors.New("authorization: email cannot be empty")

// Module wires together the JWT middleware and the local identity store.
type Module struct {
	db            *gorm.DB
	users         *UserStore
	jwtMiddleware *jwt.GinJWTMiddleware
}

// RegisterRoutes bootstraps the identity store and mounts the /auth and /users
// endpoints.
func RegisterRoutes(router *gin.Engine) (*Module, error) {
	dsn := strings.TrimSpace(os.Getenv("LOCAL_DB_URL"))
	if dsn == "" {
		dsn = defaultLocalDSN
	}

	driver := strings.TrimSpace(os.Getenv("LOCAL_DB_DRIVER"))
	if driver == "" {
		driver = inferDriverFromDSN(dsn)
	}

	db, err := openDatabase(driver, dsn)
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&User{}); err != nil {
		return nil, fmt.Errorf("authorization: migrate models: %w", err)
	}

	userStore := &UserStore{db: db}

	if err := bootstrapSuperuserFromEnv(userStore); err != nil {
		return nil, err
	}

	middleware, err := buildJWTMiddleware(userStore)
	if err != nil {
		return nil, err
	}

	authGroup := router.Group("/auth")
	authGroup.POST("/login", middleware.LoginHandler)

	secured := authGroup.Group("")
	secured.Use(middleware.MiddlewareFunc())
	secured.POST("/logout", func(c *gin.Context) {
		// Stateless JWT logout: the client discards the token.
		c.Status(http.StatusNoContent)
	})
	secured.GET("/me", func(c *gin.Context) {
		user := CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}
		c.JSON(http.StatusOK, user)
	})

	m := &Module{db: db, users: userStore, jwtMiddleware: middleware}
	m.registerUserRoutes(router)

	return m, nil
}

// Users exposes the identity store for other modules.
func (m *Module) Users() *UserStore {
	if m == nil {
		return nil
	}
	return m.users
}

func openDatabase(driver, dsn string) (*gorm.DB, error) {
	cfg := &gorm.Config{
		NowFunc:        func() time.Time { return time.Now().UTC() },
		TranslateError: true,
	}
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pg":
		return gorm.Open(postgres.Open(dsn), cfg)
	case "mysql":
		return gorm.Open(mysql.Open(dsn), cfg)
	case "sqlite", "sqlite3":
		return gorm.Open(sqlite.Open(strings.TrimPrefix(dsn, "sqlite://")), cfg)
	default:
		return nil, fmt.Errorf("authorization: unsupported database driver %q", driver)
	}
}

func inferDriverFromDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "mysql://"), strings.Contains(lower, "@tcp("):
		return "mysql"
	default:
		// The local identity store defaults to a SQLite file.
		return "sqlite"
	}
}

func buildJWTMiddleware(users *UserStore) (*jwt.GinJWTMiddleware, error) {
	secret := strings.TrimSpace(os.Getenv("SECRET_KEY"))
	if secret == "" {
		return nil, errors.New("authorization: SECRET_KEY environment variable is required")
	}

	algorithm := strings.TrimSpace(os.Getenv("JWT_ALGORITHM"))
	if algorithm == "" {
		algorithm = "HS256"
	}

	timeout := defaultTokenTTL
	if raw := strings.TrimSpace(os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES")); raw != "" {
		minutes, err := strconv.Atoi(raw)
		if err != nil || minutes <= 0 {
			return nil, fmt.Errorf("authorization: invalid ACCESS_TOKEN_EXPIRE_MINUTES %q", raw)
		}
		timeout = time.Duration(minutes) * time.Minute
	}

	return jwt.New(&jwt.GinJWTMiddleware{
		Realm:            "overview",
		SigningAlgorithm: algorithm,
		Key:              []byte(secret),
		Timeout:          timeout,
		IdentityKey:      identityKey,
		PayloadFunc: func(data interface{}) jwt.MapClaims {
			if user, ok := data.(*User); ok {
				return jwt.MapClaims{identityKey: user.Email}
			}
			return jwt.MapClaims{}
		},
		IdentityHandler: func(c *gin.Context) interface{} {
			claims := jwt.ExtractClaims(c)
			email, _ := claims[identityKey].(string)
			return email
		},
		Authenticator: func(c *gin.Context) (interface{}, error) {
			var req LoginRequest
			if err := c.ShouldBindJSON(&req); err != nil {
				return nil, jwt.ErrMissingLoginValues
			}

			user, err := users.FindByEmail(c.Request.Context(), req.Email)
			if err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return nil, jwt.ErrFailedAuthentication
				}
				return nil, fmt.Errorf("authorization: authenticate user: %w", err)
			}

			if !VerifyPassword(req.Password, user.HashedPassword) {
				return nil, jwt.ErrFailedAuthentication
			}

			return user, nil
		},
		Authorizator: func(data interface{}, c *gin.Context) bool {
			email, ok := data.(string)
			if !ok || email == "" {
				return false
			}

			user, err := users.FindByEmail(c.Request.Context(), email)
			if err != nil || !user.IsActive {
				return false
			}

			c.Set(userContextKey, user)
			return true
		},
		Unauthorized: func(c *gin.Context, code int, message string) {
			c.JSON(code, gin.H{"error": message})
		},
		HTTPStatusMessageFunc: func(e error, c *gin.Context) string {
			switch {
			case errors.Is(e, jwt.ErrFailedAuthentication):
				return "Invalid email or password"
			case errors.Is(e, jwt.ErrMissingLoginValues):
				return "email and password are required"
			default:
				return "Invalid or expired token"
			}
		},
		LoginResponse: func(c *gin.Context, code int, token string, expire time.Time) {
			c.JSON(code, gin.H{
				"access_token": token,
				"token_type":   "bearer",
				"expire":       expire,
			})
		},
		TokenLookup:   "header: Authorization",
		TokenHeadName: "Bearer",
		TimeFunc:      time.Now,
	})
}

// LoginRequest represents the expected payload for the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}
