package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/bakehouse/internal/config"
	"github.com/example/bakehouse/internal/handlers"
	"github.com/example/bakehouse/internal/middleware"
	"github.com/example/bakehouse/internal/services"
)

// Services is everything the HTTP layer calls into.
type Services struct {
	Auth    *services.AuthService
	Catalog *services.CatalogService
	Carts   *services.CartService
	Orders  *services.OrderService
	Users   *services.UserService
	Reviews *services.ReviewService
	Home    *services.HomeService
	Stats   *services.StatsService
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, svc Services, cfg *config.Config) {
	authHandler := handlers.NewAuthHandler(svc.Auth, cfg)
	resetHandler := handlers.NewPasswordResetHandler(svc.Auth)
	catalogHandler := handlers.NewCatalogHandler(svc.Catalog)
	productHandler := handlers.NewProductHandler(svc.Catalog)
	cartHandler := handlers.NewCartHandler(svc.Carts)
	orderHandler := handlers.NewOrderHandler(svc.Orders)
	profileHandler := handlers.NewProfileHandler(svc.Users)
	reviewHandler := handlers.NewReviewHandler(svc.Reviews)
	homeHandler := handlers.NewHomeHandler(svc.Home)
	adminHandler := handlers.NewAdminHandler(svc.Stats, svc.Orders, svc.Users)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	api := app.Group("/api")

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/otp/send", authHandler.SendOTP)
	auth.Post("/otp/verify", authHandler.VerifyOTP)
	auth.Post("/signup", authHandler.Signup)
	auth.Post("/login", authHandler.Login)
	auth.Post("/social", authHandler.Social)
	auth.Post("/password/forgot", resetHandler.ForgotPassword)
	auth.Post("/password/reset", resetHandler.ResetPassword)
	auth.Get("/session", authHandler.Session)
	auth.Post("/logout", authHandler.Logout)

	api.Post("/admin/auth/otp/send", authHandler.AdminSendOTP)
	api.Post("/admin/auth/otp/verify", authHandler.AdminVerifyOTP)

	// Storefront
	api.Get("/categories", catalogHandler.ListCategories)
	api.Get("/categories/:id", catalogHandler.GetCategory)
	api.Get("/products", productHandler.ListProducts)
	api.Get("/products/:id", productHandler.GetProduct)
	api.Get("/home", homeHandler.GetHome)
	api.Get("/reviews", reviewHandler.ListApproved)
	api.Post("/reviews", reviewHandler.SubmitReview)

	// Protected routes
	protected := api.Group("", middleware.RequireAuth())

	protected.Get("/cart", cartHandler.GetCart)
	protected.Post("/cart", cartHandler.MutateCart)
	protected.Delete("/cart", cartHandler.ClearCart)
	protected.Delete("/cart/items/:productId", cartHandler.RemoveItem)

	protected.Post("/orders", orderHandler.CreateOrder)
	protected.Get("/orders", orderHandler.ListOrders)
	protected.Get("/orders/:id", orderHandler.GetOrder)
	protected.Post("/orders/:id/cancel", orderHandler.CancelOrder)

	protected.Get("/user/profile", profileHandler.GetProfile)
	protected.Put("/user/profile", profileHandler.UpdateProfile)
	protected.Put("/user/password", profileHandler.ChangePassword)

	// Admin routes
	admin := api.Group("/admin", middleware.RequireAdmin(svc.Users))

	admin.Get("/stats", adminHandler.DashboardStats)
	admin.Get("/orders/recent", adminHandler.RecentOrders)
	admin.Get("/orders", adminHandler.ListAllOrders)
	admin.Get("/orders/:id", adminHandler.GetOrder)
	admin.Patch("/orders/:id/status", adminHandler.UpdateOrderStatus)
	admin.Patch("/orders/:id/payment", adminHandler.SetPaymentVerified)

	admin.Get("/users", adminHandler.ListAllUsers)
	admin.Get("/users/:id", adminHandler.GetUser)
	admin.Patch("/users/:id/role", adminHandler.SetUserRole)

	admin.Post("/categories", catalogHandler.CreateCategory)
	admin.Put("/categories/:id", catalogHandler.UpdateCategory)
	admin.Delete("/categories/:id", catalogHandler.DeleteCategory)

	admin.Post("/products", productHandler.CreateProduct)
	admin.Put("/products/:id", productHandler.UpdateProduct)
	admin.Delete("/products/:id", productHandler.DeleteProduct)

	admin.Get("/reviews", reviewHandler.ListAll)
	admin.Patch("/reviews/:id/approval", reviewHandler.SetApproval)
	admin.Delete("/reviews/:id", reviewHandler.DeleteReview)

	admin.Put("/home", homeHandler.UpdateHome)
}
