package main

import (
	"context"
	"encoding/base64"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	firebase "firebase.google.com/go/v4"
	clerk "github.com/clerk/clerk-sdk-go/v2"
	gorilllaHandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"google.golang.org/api/option"

	"declutterAPI/handlers"
	"declutterAPI/internal/docstore"
	"declutterAPI/internal/notification"
	"declutterAPI/internal/progress"
	"declutterAPI/internal/ratelimit"
	"declutterAPI/middleware"
	"declutterAPI/services"
	"declutterAPI/utils"

	_ "net/http/pprof"
)

const serviceAccountFile = "./serviceAccountKey.json"

var (
	store             docstore.Store
	registry          *progress.Registry
	syncService       *services.SyncService
	progressService   *services.ProgressService
	activityService   *services.ActivityService
	challengeService  *services.ChallengeService
	sessionService    *services.SessionService
	sharedRoomService *services.SharedRoomService
	analysisService   *services.AnalysisService
	alertDispatcher   *services.AlertDispatcher
)

// firebaseOption resolves credentials the same way the push sink does:
// base64 env var first, local key file second.
func firebaseOption() (option.ClientOption, bool) {
	if encoded := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			log.Printf("Warning: could not decode FIREBASE_SERVICE_ACCOUNT_JSON: %v", err)
			return nil, false
		}
		return option.WithCredentialsJSON(decoded), true
	}
	if _, err := os.Stat(serviceAccountFile); err == nil {
		return option.WithCredentialsFile(serviceAccountFile), true
	}
	return nil, false
}

func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	clerkSecretKey := os.Getenv("CLERK_SECRET_KEY")
	if clerkSecretKey == "" {
		log.Fatal("CLERK_SECRET_KEY environment variable is not set")
	}
	clerk.SetKey(clerkSecretKey)
	log.Println("Clerk initialized successfully")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The document store is optional: without credentials the API still
	// serves the local progress store, it just never syncs.
	store = docstore.Disabled{}
	if opt, ok := firebaseOption(); ok {
		app, err := firebase.NewApp(ctx, nil, opt)
		if err != nil {
			log.Printf("Warning: could not initialize firebase app, running without cloud sync: %v", err)
		} else if client, err := app.Firestore(ctx); err != nil {
			log.Printf("Warning: could not connect to the document store, running without cloud sync: %v", err)
		} else {
			store = docstore.NewFirestore(client)
			log.Println("Document store connected")
		}
	} else {
		log.Println("No firebase credentials found, running without cloud sync")
	}

	registry = progress.NewRegistry()
	alertDispatcher = services.NewAlertDispatcher(store)
	syncService = services.NewSyncService(store, registry)
	activityService = services.NewActivityService(store)
	progressService = services.NewProgressService(syncService, activityService, alertDispatcher)
	challengeService = services.NewChallengeService(store, alertDispatcher)
	sessionService = services.NewSessionService(store, alertDispatcher)
	sharedRoomService = services.NewSharedRoomService(store)

	if sink, err := notification.NewFCMSink(serviceAccountFile); err != nil {
		log.Printf("Warning: Could not initialize FCM: %v", err)
	} else {
		alertDispatcher.SetSink(sink)
		log.Println("FCM Push Provider initialized successfully")
	}

	// AI analysis is also optional and shares one process-wide quota window.
	var analyzer services.RoomAnalyzer
	if apiKey := utils.LoadAPIKey("GEMINI_API_KEY"); apiKey != "" {
		g, err := services.NewGeminiAnalyzer(ctx, apiKey)
		if err != nil {
			log.Printf("Warning: Could not initialize Gemini: %v", err)
		} else {
			analyzer = g
			log.Printf("Gemini analyzer initialized with key %s", utils.MaskKey(apiKey))
		}
	}
	analysisLimiter := ratelimit.NewFixedWindow(10, time.Minute)
	analysisService = services.NewAnalysisService(analyzer, analysisLimiter, syncService, activityService)

	middleware.InitPrometheus()
}

func main() {
	defer alertDispatcher.Stop()

	progressHandler := handlers.NewProgressHandler(progressService, syncService)
	challengeHandler := handlers.NewChallengeHandler(challengeService)
	sessionHandler := handlers.NewSessionHandler(sessionService)
	sharedRoomHandler := handlers.NewSharedRoomHandler(sharedRoomService)
	activityHandler := handlers.NewActivityHandler(activityService)
	analysisHandler := handlers.NewAnalysisHandler(analysisService)

	r := mux.NewRouter()

	r.Handle("/api/v1/progress/ws", middleware.WebSocketAuthMiddleware(http.HandlerFunc(progressHandler.StreamSnapshots)))

	standardRouter := r.PathPrefix("/").Subrouter()

	go middleware.CleanupVisitors()

	standardRouter.Use(middleware.RateLimitMiddleware)
	standardRouter.Use(middleware.MonitorMiddleware)

	standardRouter.Handle("/metrics", middleware.BasicAuthMiddleware(promhttp.Handler()))
	standardRouter.PathPrefix("/debug/pprof/").Handler(middleware.PprofSecurityMiddleware(http.DefaultServeMux))

	standardRouter.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy", "service": "declutter-api"}`))
	}).Methods("GET")

	// -------------------------------------------------------------------------
	// API V1 SUBROUTER
	// -------------------------------------------------------------------------
	api := standardRouter.PathPrefix("/api/v1").Subrouter()

	// -------------------------------------------------------------------------
	// PROTECTED ROUTES (REQUIRE AUTH HEADER)
	// -------------------------------------------------------------------------
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.ClerkAuthMiddleware)

	protected.HandleFunc("/progress", progressHandler.GetSnapshot).Methods("GET")
	protected.HandleFunc("/sync/load", progressHandler.LoadAllData).Methods("POST")
	protected.HandleFunc("/sync/save", progressHandler.SyncAllData).Methods("POST")
	protected.HandleFunc("/device-token", progressHandler.RegisterDevice).Methods("PUT")

	protected.HandleFunc("/rooms", progressHandler.CreateRoom).Methods("POST")
	protected.HandleFunc("/rooms/{roomId}", progressHandler.UpdateRoom).Methods("PUT")
	protected.HandleFunc("/rooms/{roomId}", progressHandler.DeleteRoom).Methods("DELETE")
	protected.HandleFunc("/rooms/{roomId}/tasks/{taskId}/complete", progressHandler.CompleteTask).Methods("POST")
	protected.HandleFunc("/rooms/{roomId}/analyze", analysisHandler.AnalyzeRoom).Methods("POST")
	protected.HandleFunc("/rooms/{roomId}/analyze-progress", analysisHandler.AnalyzeProgress).Methods("POST")

	protected.HandleFunc("/challenges", challengeHandler.CreateChallenge).Methods("POST")
	protected.HandleFunc("/challenges", challengeHandler.ListChallenges).Methods("GET")
	protected.HandleFunc("/challenges/resolve", challengeHandler.ResolveInviteCode).Methods("GET")
	protected.HandleFunc("/challenges/join", challengeHandler.JoinChallenge).Methods("POST")
	protected.HandleFunc("/challenges/{challengeId}", challengeHandler.GetChallenge).Methods("GET")
	protected.HandleFunc("/challenges/{challengeId}/progress", challengeHandler.UpdateProgress).Methods("PUT")

	protected.HandleFunc("/sessions", sessionHandler.CreateSession).Methods("POST")
	protected.HandleFunc("/sessions/resolve", sessionHandler.ResolveInviteCode).Methods("GET")
	protected.HandleFunc("/sessions/join", sessionHandler.JoinSession).Methods("POST")
	protected.HandleFunc("/sessions/{sessionId}", sessionHandler.GetSession).Methods("GET")
	protected.HandleFunc("/sessions/{sessionId}/leave", sessionHandler.LeaveSession).Methods("POST")
	protected.HandleFunc("/sessions/{sessionId}/end", sessionHandler.EndSession).Methods("POST")

	protected.HandleFunc("/shared-rooms", sharedRoomHandler.ShareRoom).Methods("POST")
	protected.HandleFunc("/shared-rooms", sharedRoomHandler.ListShares).Methods("GET")
	protected.HandleFunc("/shared-rooms/join", sharedRoomHandler.JoinSharedRoom).Methods("POST")
	protected.HandleFunc("/shared-rooms/{shareId}", sharedRoomHandler.Revoke).Methods("DELETE")

	protected.HandleFunc("/activity/weekly", activityHandler.GetWeeklyActivity).Methods("GET")

	// CORS configuration
	corsHandler := gorilllaHandlers.CORS(
		gorilllaHandlers.AllowedOrigins([]string{"*"}),
		gorilllaHandlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		gorilllaHandlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Pprof-Secret"}),
		gorilllaHandlers.ExposedHeaders([]string{"Content-Length"}),
		gorilllaHandlers.AllowCredentials(),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "3333"
	}
	port = ":" + port

	server := http.Server{
		Addr:         port,
		Handler:      corsHandler(r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Starting server on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Error starting server:", err)
		}
	}()

	// Graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt)

	sig := <-sigChan
	log.Println("Got signal:", sig)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	log.Println("Server shutdown complete")
}
