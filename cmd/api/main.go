package main

import (
	"context"
	"os"

	"cloud.google.com/go/firestore"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"rebazar/internal/adapter/api"
	"rebazar/internal/adapter/api/handler"
	apimiddleware "rebazar/internal/adapter/api/middleware"
	"rebazar/internal/adapter/api/router"
	"rebazar/internal/adapter/repository"
	"rebazar/internal/usecase"
	"rebazar/pkg/config"
	"rebazar/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	// Falls back to application default credentials when unset.
	var opts []option.ClientOption
	if credentials := os.Getenv("FIRESTORE_CREDENTIALS_FILE"); credentials != "" {
		opts = append(opts, option.WithCredentialsFile(credentials))
	}

	firestoreClient, err := firestore.NewClient(ctx, cfg.FirestoreProject, opts...)
	if err != nil {
		logger.Fatal("Failed to create Firestore client: %v", err)
	}
	defer firestoreClient.Close()

	chatRepo := repository.NewFirestoreChatRepository(firestoreClient)
	userRepo := repository.NewFirestoreUserRepository(firestoreClient)
	vendorRepo := repository.NewFirestoreVendorRepository(firestoreClient)
	productRepo := repository.NewFirestoreProductRepository(firestoreClient)

	chatUseCase := usecase.NewChatUseCase(chatRepo, userRepo, vendorRepo, productRepo)

	e := echo.New()
	e.HideBanner = true

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	authMiddleware := apimiddleware.NewAuthMiddleware(userRepo, vendorRepo, cfg.JWTSecret)

	chatHandler := handler.NewChatHandler(chatUseCase)
	healthHandler := handler.NewHealthHandler()

	router.Setup(e, chatHandler, healthHandler, authMiddleware)

	logger.Info("Starting server on port %s...", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		logger.Fatal("Server stopped: %v", err)
	}
}
