package controllers

import (
	"errors"

	"qbank/config"
	"qbank/middleware"
	"qbank/models"
	"qbank/utils"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/gofiber/fiber/v2"
)

type AuthController struct {
	DB  *gorm.DB
	Cfg *config.Config
}

func NewAuthController(db *gorm.DB, cfg *config.Config) *AuthController {
	return &AuthController{DB: db, Cfg: cfg}
}

func safeUser(user *models.User) fiber.Map {
	return fiber.Map{
		"id":       user.ID,
		"username": user.Username,
		"email":    user.Email,
		"role":     user.Role,
	}
}

// Register creates a student account. Elevated roles are only assignable
// by an administrator through CreateUser.
func (ac *AuthController) Register(c *fiber.Ctx) error {
	type RegisterInput struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	var input RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Username == "" || input.Email == "" || input.Password == "" {
		return utils.BadRequest(c, "Username, email and password are required")
	}
	if input.Role != "" && input.Role != models.RoleStudent {
		return utils.Forbidden(c, "Self-registration is limited to student accounts")
	}

	var existing models.User
	err := ac.DB.Where("username = ? OR email = ?", input.Username, input.Email).First(&existing).Error
	if err == nil {
		return utils.Conflict(c, "Username or email already taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.InternalServerError(c, "Could not query database")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not create user")
	}

	token, err := utils.GenerateJWTToken(&user, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Created(c, fiber.Map{
		"token": token,
		"user":  safeUser(&user),
	})
}

// Login authenticates by username or email.
func (ac *AuthController) Login(c *fiber.Ctx) error {
	type LoginInput struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	var input LoginInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}

	var user models.User
	if err := ac.DB.Where("username = ? OR email = ?", input.Username, input.Username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.Unauthorized(c, "Invalid credentials")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return utils.Unauthorized(c, "Invalid credentials")
	}

	token, err := utils.GenerateJWTToken(&user, ac.Cfg)
	if err != nil {
		return utils.InternalServerError(c, "Could not generate token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"token": token,
		"user":  safeUser(&user),
	})
}

// Me echoes the authenticated identity from the token.
func (ac *AuthController) Me(c *fiber.Ctx) error {
	claims := middleware.Claims(c)

	var user models.User
	if err := ac.DB.First(&user, claims.UserID).Error; err != nil {
		return utils.NotFound(c, "User not found")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": safeUser(&user)})
}

// ListUsers returns all accounts, admin only.
func (ac *AuthController) ListUsers(c *fiber.Ctx) error {
	var users []models.User
	if err := ac.DB.Order("id").Find(&users).Error; err != nil {
		return utils.InternalServerError(c, "Could not query database")
	}

	views := make([]fiber.Map, 0, len(users))
	for i := range users {
		views = append(views, safeUser(&users[i]))
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"users": views,
		"total": len(views),
	})
}

// CreateUser lets an administrator create student or teacher accounts.
// A missing or too-short password falls back to the default one.
func (ac *AuthController) CreateUser(c *fiber.Ctx) error {
	type CreateInput struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}

	var input CreateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if input.Username == "" || input.Email == "" {
		return utils.BadRequest(c, "Username and email are required")
	}
	if input.Role == "" {
		input.Role = models.RoleStudent
	}
	if input.Role != models.RoleStudent && input.Role != models.RoleTeacher {
		return utils.BadRequest(c, "Role must be student or teacher")
	}
	if len(input.Password) < 6 {
		input.Password = "123456"
	}

	var existing models.User
	err := ac.DB.Where("username = ? OR email = ?", input.Username, input.Email).First(&existing).Error
	if err == nil {
		return utils.Conflict(c, "Username or email already taken")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return utils.InternalServerError(c, "Could not query database")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}

	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         input.Role,
	}
	if err := ac.DB.Create(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not create user")
	}
	return utils.Created(c, fiber.Map{"user": safeUser(&user)})
}

// ResetPassword sets a user's password, admin only.
func (ac *AuthController) ResetPassword(c *fiber.Ctx) error {
	id, err := c.ParamsInt("id")
	if err != nil {
		return utils.BadRequest(c, "Invalid user id")
	}

	type ResetInput struct {
		Password string `json:"password"`
	}
	var input ResetInput
	if err := c.BodyParser(&input); err != nil {
		return utils.BadRequest(c, "Cannot parse JSON")
	}
	if len(input.Password) < 6 {
		input.Password = "123456"
	}

	var user models.User
	if err := ac.DB.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NotFound(c, "User not found")
		}
		return utils.InternalServerError(c, "Could not query database")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.InternalServerError(c, "Could not hash password")
	}
	user.PasswordHash = string(hash)
	if err := ac.DB.Save(&user).Error; err != nil {
		return utils.InternalServerError(c, "Could not update user")
	}
	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": safeUser(&user)})
}
