package routes

import (
	"qbank/config"
	"qbank/controllers"
	"qbank/exam"
	"qbank/middleware"
	"qbank/models"
	"qbank/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRoutes(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	// Health
	app.Get("/api/health", func(c *fiber.Ctx) error {
		return utils.Success(c, fiber.StatusOK, fiber.Map{"status": "ok"})
	})

	// Middleware
	authMiddleware := middleware.AuthMiddleware(cfg)
	staffOnly := middleware.RequireRole(models.RoleTeacher, models.RoleAdmin)
	adminOnly := middleware.RequireRole(models.RoleAdmin)

	// Auth routes
	authController := controllers.NewAuthController(db, cfg)
	auth := app.Group("/api/auth")
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Get("/me", authMiddleware, authController.Me)
	auth.Get("/users", authMiddleware, adminOnly, authController.ListUsers)
	auth.Post("/users", authMiddleware, adminOnly, authController.CreateUser)
	auth.Post("/users/:id/reset-password", authMiddleware, adminOnly, authController.ResetPassword)

	// Question bank routes; static paths registered before /:id
	topicsController := controllers.NewTopicsController(db, cfg)
	questionsController := controllers.NewQuestionsController(db, cfg)
	questions := app.Group("/api/questions", authMiddleware)
	questions.Get("/topics", topicsController.List)
	questions.Post("/topics", staffOnly, topicsController.Create)
	questions.Delete("/topics/:id", staffOnly, topicsController.Delete)
	questions.Get("/stats", topicsController.Stats)
	questions.Get("/", questionsController.List)
	questions.Post("/", staffOnly, questionsController.Create)
	questions.Get("/:id", questionsController.Get)
	questions.Put("/:id", staffOnly, questionsController.Update)
	questions.Delete("/:id", staffOnly, questionsController.Delete)

	// Exam routes
	svc := exam.NewService(exam.NewGormStore(db), nil)
	examsController := controllers.NewExamsController(db, cfg, svc)
	exams := app.Group("/api/exams", authMiddleware)
	exams.Get("/history", examsController.History)
	exams.Get("/submission/:submissionId/question/:order", examsController.SubmissionQuestion)
	exams.Post("/submission/:submissionId/answer", examsController.SubmitAnswer)
	exams.Get("/submission/:submissionId/result", examsController.Result)
	exams.Get("/", examsController.List)
	exams.Post("/", staffOnly, examsController.Create)
	exams.Get("/:id", examsController.Get)
	exams.Put("/:id", staffOnly, examsController.Update)
	exams.Delete("/:id", staffOnly, examsController.Delete)
	exams.Post("/:id/publish", staffOnly, examsController.Publish)
	exams.Post("/:id/unpublish", staffOnly, examsController.Unpublish)
	exams.Get("/:id/preview", staffOnly, examsController.Preview)
	exams.Post("/:id/start", examsController.Start)

	// Practice routes
	practiceController := controllers.NewPracticeController(db, cfg, nil)
	practice := app.Group("/api/practice", authMiddleware)
	practice.Post("/start", practiceController.Start)
	practice.Get("/question/:sessionId", practiceController.Question)
	practice.Post("/submit", practiceController.Submit)
	practice.Get("/session/:id", practiceController.Session)
	practice.Get("/result/:sessionId", practiceController.Result)
	practice.Get("/history", practiceController.History)

	// User routes: wrongbook and profile
	usersController := controllers.NewUsersController(db, cfg)
	users := app.Group("/api/users", authMiddleware)
	users.Get("/wrongbook", usersController.Wrongbook)
	users.Post("/wrongbook/:questionId", usersController.RecordWrong)
	users.Put("/wrongbook/:questionId/master", usersController.MarkMastered)
	users.Get("/profile", usersController.Profile)
}
