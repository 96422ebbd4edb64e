package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/streadway/amqp"
	"github.com/spf13/viper"

	"tienda/internal/database"
	"tienda/internal/handlers"
	"tienda/internal/middleware"
	"tienda/internal/repositories"
	"tienda/internal/services"
	"tienda/internal/store"
	"tienda/pkg/rabbitmq"
)

func main() {
	// --- Configuration ---
	viper.SetDefault("APP_PORT", ":8080")
	viper.SetDefault("DATABASE_DSN", "")
	viper.SetDefault("JWT_SECRET", "change_me_in_production")
	viper.SetDefault("AUTH_BCRYPT", false)
	viper.SetDefault("RABBITMQ_URL", "")
	viper.AutomaticEnv()

	appPort := viper.GetString("APP_PORT")
	databaseDSN := viper.GetString("DATABASE_DSN")
	jwtSecret := viper.GetString("JWT_SECRET")
	rabbitMQURL := viper.GetString("RABBITMQ_URL")

	// --- Initialize RabbitMQ client (optional) ---
	// Without a broker URL the service runs with event publication off.
	var mqClient *rabbitmq.Client
	if rabbitMQURL != "" {
		var err error
		mqClient, err = rabbitmq.NewClient(rabbitmq.Config{URL: rabbitMQURL})
		if err != nil {
			log.Fatalf("Failed to initialize RabbitMQ client: %v", err)
		}
		defer mqClient.Close()
	} else {
		log.Println("RABBITMQ_URL not set, account events disabled")
	}

	// --- Initialize repositories ---
	// Without a DSN everything is held in memory, which is enough for the
	// demo deployment.
	var (
		userRepo    repositories.UserRepository
		productRepo repositories.ProductRepository
	)
	if databaseDSN != "" {
		db, err := database.Open(databaseDSN)
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		if err := database.Migrate(db); err != nil {
			log.Fatalf("Failed to migrate database: %v", err)
		}
		userRepo = repositories.NewGORMUserRepository(db)
		productRepo = repositories.NewGORMProductRepository(db)
	} else {
		log.Println("DATABASE_DSN not set, using in-memory repositories")
		userRepo = repositories.NewMemoryUserRepository()
		productRepo = repositories.NewMemoryProductRepository()
	}

	if err := database.SeedProducts(productRepo); err != nil {
		log.Fatalf("Failed to seed products: %v", err)
	}

	// --- Initialize stores ---
	var creds store.CredentialScheme = store.PlainCredentials{}
	if viper.GetBool("AUTH_BCRYPT") {
		creds = store.BcryptCredentials{}
	}
	sessions := store.NewSessionStore(userRepo, creds)
	if err := sessions.SeedAdmin(); err != nil {
		log.Fatalf("Failed to seed admin account: %v", err)
	}
	carts := store.NewCartRegistry()

	// --- Initialize services and handlers ---
	authService := services.NewAuthService(sessions, jwtSecret, mqClient)

	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)
	productHandler := handlers.NewProductHandler(productRepo)
	cartHandler := handlers.NewCartHandler(carts, productRepo)

	// --- Initialize Fiber app ---
	app := fiber.New()
	app.Use(logger.New())

	apiV1 := app.Group("/api/v1")

	// Public routes
	authHandler.RegisterRoutes(apiV1)

	// Routes behind a valid token
	protected := apiV1.Group("", middleware.AuthRequired(authService))
	authHandler.RegisterProtectedRoutes(protected)
	productHandler.RegisterRoutes(protected)
	cartHandler.RegisterRoutes(protected)

	// Administrative routes
	admin := protected.Group("", middleware.AdminRequired())
	userHandler.RegisterRoutes(admin)

	// --- Health check endpoint ---
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	// --- Start account event consumer ---
	if mqClient != nil {
		log.Println("Starting RabbitMQ consumer for account events...")
		messageHandler := func(msg amqp.Delivery) error {
			log.Printf("Received account event (tag: %d): %s", msg.DeliveryTag, string(msg.Body))
			return nil
		}
		if consumerErr := mqClient.ConsumeAccountEvents(messageHandler); consumerErr != nil {
			log.Printf("Failed to start RabbitMQ consumer: %v", consumerErr)
		}
	}

	// --- Start HTTP server ---
	log.Printf("Starting server on port %s", appPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := app.Listen(appPort); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Printf("Error during Fiber shutdown: %v", err)
	}

	log.Println("Server gracefully stopped")
}
