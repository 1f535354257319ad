package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"cdp-analytics/config"
	"cdp-analytics/models"
	"cdp-analytics/utils"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	RoleAdmin   = "admin"
	RoleAnalyst = "analyst"
)

var errOperatorExists = errors.New("operator already registered")

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Name     string `json:"name" binding:"required"`
	Password string `json:"password" binding:"required,min=8"`
}

type LoginInput struct {
	Identifier string `json:"identifier" binding:"required"` // Can be email or phone
	Password   string `json:"password" binding:"required"`
}

// AuthController registers and authenticates dashboard operators.
type AuthController struct {
	db  *gorm.DB
	jwt config.JWTConfig
}

func NewAuthController(db *gorm.DB, jwt config.JWTConfig) *AuthController {
	return &AuthController{db: db, jwt: jwt}
}

func userPayload(u models.User) gin.H {
	return gin.H{
		"id":    u.ID,
		"email": u.Email,
		"name":  u.Name,
		"phone": u.Phone,
		"role":  u.Role,
	}
}

func (ac *AuthController) issueToken(c *gin.Context, u models.User) (string, bool) {
	token, err := utils.GenerateToken(u.ID.String(), u.Role, ac.jwt.Secret, ac.jwt.ExpiryHours)
	if err != nil {
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return "", false
	}

	expiryHours := ac.jwt.ExpiryHours
	if expiryHours <= 0 {
		expiryHours = 24
	}
	c.SetCookie("token", token, expiryHours*3600, "/", "", true, true)
	return token, true
}

// Register creates an operator. The first operator becomes admin, everyone
// after that starts as analyst.
func (ac *AuthController) Register(c *gin.Context) {
	var input RegisterInput

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if input.Phone != "" && !utils.ValidatePhone(input.Phone) {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid phone number format")
		return
	}

	newUser := models.User{
		Email:    strings.ToLower(input.Email),
		Phone:    utils.CleanPhone(input.Phone),
		Name:     input.Name,
		Password: input.Password, // Will be hashed in BeforeCreate hook
		Role:     RoleAnalyst,
		IsActive: true,
	}

	err := ac.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		// serializes registrations so only one can see an empty table
		if err := tx.Exec("LOCK TABLE users IN SHARE ROW EXCLUSIVE MODE").Error; err != nil {
			return err
		}

		// Check if email or phone already exists
		var existing int64
		query := tx.Model(&models.User{}).Where("email = ?", newUser.Email)
		if newUser.Phone != "" {
			query = query.Or("phone = ?", newUser.Phone)
		}
		if err := query.Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return errOperatorExists
		}

		var operators int64
		if err := tx.Model(&models.User{}).Count(&operators).Error; err != nil {
			return err
		}
		if operators == 0 {
			newUser.Role = RoleAdmin
		}
		return tx.Create(&newUser).Error
	})
	if err != nil {
		if errors.Is(err, errOperatorExists) {
			utils.RespondWithError(c, http.StatusConflict, "Email or phone already registered")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Failed to create user")
		}
		return
	}

	token, ok := ac.issueToken(c, newUser)
	if !ok {
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    userPayload(newUser),
	})
}

func (ac *AuthController) Login(c *gin.Context) {
	var input LoginInput

	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}

	identifier := strings.TrimSpace(input.Identifier)
	db := ac.db.WithContext(c.Request.Context())

	var user models.User
	result := db.Where("email = ? OR phone = ?", strings.ToLower(identifier), utils.CleanPhone(identifier)).First(&user)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		} else {
			utils.RespondWithError(c, http.StatusInternalServerError, "Database error")
		}
		return
	}

	if !user.IsActive || !utils.CheckPasswordHash(input.Password, user.Password) {
		utils.RespondWithError(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, ok := ac.issueToken(c, user)
	if !ok {
		return
	}

	now := time.Now()
	db.Model(&user).Update("last_login", &now)

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userPayload(user),
	})
}

func (ac *AuthController) Me(c *gin.Context) {
	userID, exists := c.Get("userId")
	if !exists {
		utils.RespondWithError(c, http.StatusInternalServerError, "User ID not found in context")
		return
	}

	var user models.User
	if err := ac.db.WithContext(c.Request.Context()).First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondWithError(c, http.StatusUnauthorized, "User not found")
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userPayload(user)})
}
