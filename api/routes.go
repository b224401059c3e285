package api

import (
	"github.com/garnizeh/pqrs/internal/config"
	"github.com/garnizeh/pqrs/internal/records"
	"github.com/garnizeh/pqrs/internal/schemas"
	"github.com/garnizeh/pqrs/pkg/repository"
	"github.com/gorilla/mux"
)

// ReceiverPath is where the receiving endpoint is mounted.
const ReceiverPath = "/api/pqrs/sync"

// Deps are the services the router dispatches to. Receipts and Validator
// are optional; without Receipts the receiving endpoint is not mounted.
type Deps struct {
	DB        Pinger
	Agents    repository.AgentRepo
	Records   *records.Service
	Engine    Drainer
	Queue     repository.SyncQueue
	Monitor   ConnectivitySetter
	Receipts  repository.ReceiptRepo
	Validator PayloadValidator
}

func SetupRoutes(cfg *config.Config, version, buildTime string, deps Deps) *mux.Router {
	r := mux.NewRouter()

	// Middleware chain
	r.Use(LoggingMiddleware)
	r.Use(CORSMiddleware)
	r.Use(RecoveryMiddleware)

	// Create handlers
	systemHandler := &SystemHandler{DB: deps.DB, Remote: deps.Monitor}
	authHandler := NewAuthHandler(deps.Agents, cfg.JWTSecret, cfg.TokenDuration)
	recordsHandler := NewRecordsHandler(deps.Records)
	syncHandler := NewSyncHandler(deps.Engine, deps.Queue, deps.Monitor)

	// Open endpoints
	r.HandleFunc("/version", systemHandler.VersionHandler(version, buildTime)).Methods("GET")
	r.HandleFunc("/health", systemHandler.HealthHandler).Methods("GET")
	r.HandleFunc("/v1/auth/signup", authHandler.Signup).Methods("POST")
	r.HandleFunc("/v1/auth/signin", authHandler.Signin).Methods("POST")

	// Receiving endpoint, authenticated by sync token
	if deps.Receipts != nil {
		receiver := NewReceiverHandler(deps.Receipts, deps.Validator, schemas.CurrentVersion, cfg.Sync.Secret)
		r.HandleFunc(ReceiverPath, receiver.Receive).Methods("POST")
		r.HandleFunc(ReceiverPath, receiver.Status).Methods("GET")
		r.HandleFunc(ReceiverPath, receiver.Head).Methods("HEAD")
	}

	// API v1 Protected routes
	apiV1 := r.PathPrefix("/v1").Subrouter()
	apiV1.Use(JWTAuthMiddlewareWithSecret(cfg.JWTSecret))

	// Auth endpoints
	authV1 := apiV1.PathPrefix("/auth").Subrouter()
	authV1.HandleFunc("/signout", authHandler.Signout).Methods("POST")

	// Records endpoints
	apiV1.HandleFunc("/records", recordsHandler.CreateRecord).Methods("POST")
	apiV1.HandleFunc("/records", recordsHandler.ListRecords).Methods("GET")
	apiV1.HandleFunc("/records/{id}", recordsHandler.GetRecord).Methods("GET")
	apiV1.HandleFunc("/records/{id}", recordsHandler.UpdateRecord).Methods("PUT")
	apiV1.HandleFunc("/records/{id}", recordsHandler.DeleteRecord).Methods("DELETE")
	apiV1.HandleFunc("/records/{id}/sync", recordsHandler.SubmitRecord).Methods("POST")

	// Sync endpoints
	apiV1.HandleFunc("/sync", syncHandler.SyncNow).Methods("POST")
	apiV1.HandleFunc("/sync/queue", syncHandler.ListQueue).Methods("GET")
	apiV1.HandleFunc("/sync/connectivity", syncHandler.SetConnectivity).Methods("PUT")

	apiV1.HandleFunc("/severity", PreviewSeverity).Methods("POST")

	return r
}
