package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.mongodb.org/mongo-driver/mongo"
	mongooptions "go.mongodb.org/mongo-driver/mongo/options"
	"google.golang.org/api/option"

	"reviewshop/internal/adapter/api"
	"reviewshop/internal/adapter/api/handler"
	apimiddleware "reviewshop/internal/adapter/api/middleware"
	"reviewshop/internal/adapter/api/router"
	adapterrepo "reviewshop/internal/adapter/repository"
	"reviewshop/internal/domain/repository"
	"reviewshop/internal/infrastructure/challenge"
	"reviewshop/internal/infrastructure/firebase"
	"reviewshop/internal/usecase"
	"reviewshop/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()

	var opt option.ClientOption

	// Service account from environment variable (production) or file
	// path (local development).
	serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON")
	if serviceAccountJSON != "" {
		opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
	} else {
		serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
		if serviceAccountPath == "" {
			serviceAccountPath = "./service-account.json"
		}

		if _, err := os.Stat(serviceAccountPath); os.IsNotExist(err) {
			log.Fatalf("Service account file does not exist: %s", serviceAccountPath)
		}

		log.Printf("Using Firebase service account from file: %s", serviceAccountPath)
		opt = option.WithCredentialsFile(serviceAccountPath)
	}

	firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase: %v", err)
	}

	authClient, err := firebaseApp.Auth(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize Firebase Auth: %v", err)
	}

	var reviewRepo repository.ReviewRepository

	switch cfg.StoreDriver {
	case "firestore":
		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		reviewRepo = adapterrepo.NewFirestoreReviewRepository(firestoreClient)
	case "mongo":
		mongoClient, err := mongo.Connect(ctx, mongooptions.Client().ApplyURI(cfg.MongoURI))
		if err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer mongoClient.Disconnect(ctx)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := mongoClient.Ping(pingCtx, nil); err != nil {
			log.Fatalf("Failed to ping MongoDB: %v", err)
		}

		reviewRepo = adapterrepo.NewMongoReviewRepository(mongoClient.Database(cfg.MongoDatabase))
	case "memory":
		reviewRepo = adapterrepo.NewMemoryReviewRepository()
	default:
		log.Fatalf("Unknown store driver: %s", cfg.StoreDriver)
	}

	tracker := challenge.NewTracker()

	observationDelay := time.Duration(0)
	if cfg.ObservationDelay {
		observationDelay = cfg.ObservationDelayDuration
	}

	reviewUseCase := usecase.NewReviewUseCase(reviewRepo, tracker, observationDelay)

	handler.Setup(reviewUseCase, tracker)
	handler.SetupHealthHandler()

	e := echo.New()

	e.Use(echomiddleware.Logger())
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	e.Validator = api.NewValidator()

	resolver := firebase.NewFirebaseIdentityResolver(authClient)
	identityMiddleware := apimiddleware.NewIdentityMiddleware(resolver)
	rateLimiter := apimiddleware.NewRateLimiter(30, time.Minute)

	router.Setup(e, identityMiddleware, rateLimiter)

	e.Logger.Fatal(e.Start(":" + cfg.ServerPort))
}
