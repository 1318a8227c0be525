// cmd/api/main.go
package main

import (
	"context"
	"log"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	"github.com/chipapapo/library-service/internal/auth"
	"github.com/chipapapo/library-service/internal/borrowing"
	"github.com/chipapapo/library-service/internal/catalog"
	"github.com/chipapapo/library-service/internal/postgres"
	"github.com/chipapapo/library-service/internal/user"
)

func main() {
	ctx := context.Background()

	if endpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"); endpoint != "" {
		shutdown, err := initTracing(ctx, endpoint)
		if err != nil {
			log.Fatalf("Failed to set up tracing: %v", err)
		}
		defer shutdown(ctx)
	}

	secret := []byte(getEnv("TOKEN_SECRET", "dev_secret_change_in_prod"))

	var (
		bookRepo      catalog.Repository
		userRepo      user.Repository
		borrowingRepo borrowing.Repository
	)

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		db, err := postgres.Connect(ctx, dbURL)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		if err := postgres.EnsureSchema(ctx, db); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}

		bookRepo = catalog.NewPostgresRepository(db)
		userRepo = user.NewPostgresRepository(db)
		borrowingRepo = borrowing.NewPostgresRepository(db)
	} else {
		log.Printf("DATABASE_URL not set, using in-memory storage")
		bookRepo = catalog.NewMemoryRepository()
		userRepo = user.NewMemoryRepository()
		borrowingRepo = borrowing.NewMemoryRepository(bookRepo, userRepo)
	}

	userHandler := user.NewHandler(user.NewService(userRepo, secret))
	catalogHandler := catalog.NewHandler(catalog.NewService(bookRepo))
	borrowingHandler := borrowing.NewHandler(borrowing.NewService(borrowingRepo, bookRepo, userRepo))

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	router.Post("/users", userHandler.HandleRegister)
	router.Post("/users/token", userHandler.HandleLogin)

	router.Group(func(r chi.Router) {
		r.Use(auth.Middleware(secret))
		r.Mount("/books", catalogHandler.Routes())
		r.Mount("/borrowings", borrowingHandler.Routes())
	})

	port := getEnv("PORT", "8080")
	log.Printf("Library service listening on port %s", port)
	log.Fatal(http.ListenAndServe(":"+port, router))
}

func initTracing(ctx context.Context, endpoint string) (func(context.Context) error, error) {
	exporter, err := otlptracehttp.New(ctx, otlptracehttp.WithEndpoint(endpoint), otlptracehttp.WithInsecure())
	if err != nil {
		return nil, err
	}

	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName("library-service")),
	)
	if err != nil {
		return nil, err
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(provider)

	return provider.Shutdown, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
