package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/forgo/haven/api/internal/cache"
	"github.com/forgo/haven/api/internal/catalog"
	"github.com/forgo/haven/api/internal/config"
	"github.com/forgo/haven/api/internal/database"
	"github.com/forgo/haven/api/internal/handler"
	"github.com/forgo/haven/api/internal/jobs"
	"github.com/forgo/haven/api/internal/mailer"
	"github.com/forgo/haven/api/internal/middleware"
	"github.com/forgo/haven/api/internal/model"
	"github.com/forgo/haven/api/internal/payment"
	"github.com/forgo/haven/api/internal/repository"
	"github.com/forgo/haven/api/internal/service"
	"github.com/forgo/haven/api/internal/storage"
	"github.com/forgo/haven/api/pkg/jwt"
)

func main() {
	// Initialize structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx := context.Background()

	// Database
	db := database.NewSurrealDB(database.Config{
		Host:      cfg.Database.Host,
		Port:      cfg.Database.Port,
		User:      cfg.Database.User,
		Password:  cfg.Database.Password,
		Namespace: cfg.Database.Namespace,
		Database:  cfg.Database.Database,
	})
	if err := db.Connect(ctx); err != nil {
		slog.Error("failed to connect to database", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(ctx, db); err != nil {
		slog.Error("failed to apply schema", slog.String("error", err.Error()))
		os.Exit(1)
	}
	slog.Info("connected to database",
		slog.String("host", cfg.Database.Host),
		slog.String("database", cfg.Database.Database),
	)

	// Redis backs rate limiting, idempotency, sponsor counters and search
	redisClient, err := cache.Connect(ctx, cfg.Redis.URL)
	if err != nil {
		slog.Error("failed to connect to redis", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer func() { _ = redisClient.Close() }()

	rateLimiter := cache.NewRateLimiter(redisClient, cfg.Server.RateLimit, time.Minute)
	idempotencyStore := cache.NewIdempotencyStore(redisClient, 24*time.Hour)
	sponsorCounters := cache.NewSponsorCounters(redisClient)
	searchCache := cache.NewJSONCache(redisClient, "search:")

	// Object storage
	files, err := storage.New(ctx, storage.Config{
		Bucket:        cfg.Storage.Bucket,
		Region:        cfg.Storage.Region,
		Endpoint:      cfg.Storage.Endpoint,
		PublicBaseURL: cfg.Storage.PublicBaseURL,
		AccessKey:     cfg.Storage.AccessKey,
		SecretKey:     cfg.Storage.SecretKey,
		PresignTTL:    cfg.Storage.PresignTTL,
	})
	if err != nil {
		slog.Error("failed to initialize storage", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Mail
	var mail mailer.Sender = mailer.LogSender{}
	if cfg.Mail.Enabled {
		ses, err := mailer.NewSES(ctx, mailer.Config{
			Region:    cfg.Mail.Region,
			From:      cfg.Mail.FromAddress,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
		})
		if err != nil {
			slog.Error("failed to initialize mailer", slog.String("error", err.Error()))
			os.Exit(1)
		}
		mail = ses
	} else {
		slog.Warn("mail disabled, messages will be logged")
	}

	// Payments
	var gateway payment.Gateway = payment.Unconfigured{}
	if cfg.Payments.SecretKey != "" {
		gateway = payment.NewStripe(cfg.Payments.SecretKey, cfg.Payments.WebhookSecret)
	} else {
		slog.Warn("payments not configured, checkout is unavailable")
	}
	successURL, cancelURL := cfg.CheckoutURLs()
	checkout := service.Checkout{
		Gateway:    gateway,
		SuccessURL: successURL,
		CancelURL:  cancelURL,
		Currency:   cfg.Payments.Currency,
	}

	jwtService, err := jwt.NewService(jwt.Config{
		PrivateKeyPath: cfg.JWT.PrivateKeyPath,
		PublicKeyPath:  cfg.JWT.PublicKeyPath,
		Issuer:         cfg.JWT.Issuer,
		ExpirationMins: cfg.JWT.ExpirationMins,
	})
	if err != nil {
		slog.Error("failed to initialize JWT service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	tokenRepo := repository.NewTokenRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	memorialRepo := repository.NewMemorialRepository(db)
	meetupRepo := repository.NewMeetupRepository(db)
	forumRepo := repository.NewForumRepository(db)
	messagingRepo := repository.NewMessagingRepository(db)
	storeRepo := repository.NewStoreRepository(db)
	sponsorRepo := repository.NewSponsorRepository(db)
	applicationRepo := repository.NewApplicationRepository(db)
	moderationRepo := repository.NewModerationRepository(db)
	suggestionRepo := repository.NewSuggestionRepository(db)
	statsRepo := repository.NewStatsRepository(db)

	// Catalog: sponsor tiers and seed products
	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		slog.Error("failed to load catalog", slog.String("error", err.Error()))
		os.Exit(1)
	}
	seed := make([]*model.Product, 0, len(cat.Products))
	for _, p := range cat.Products {
		seed = append(seed, p.SeedProduct(cfg.Payments.Currency))
	}
	if _, err := service.SeedProducts(ctx, storeRepo, seed); err != nil {
		slog.Error("failed to seed products", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eventHub := service.NewEventHub(30 * time.Second)
	defer eventHub.Close()

	// Initialize services
	tokenService := service.NewTokenService(service.TokenServiceConfig{
		JWTService: jwtService,
		TokenRepo:  tokenRepo,
	})
	authService := service.NewAuthService(service.AuthServiceConfig{
		UserRepo:     userRepo,
		ProfileRepo:  profileRepo,
		TokenService: tokenService,
		Mailer:       mail,
		VerifyURL:    cfg.Server.PublicURL + "/verify-email",
	})
	profileService := service.NewProfileService(service.ProfileServiceConfig{
		ProfileRepo: profileRepo,
		Files:       files,
	})
	memorialService := service.NewMemorialService(service.MemorialServiceConfig{
		MemorialRepo: memorialRepo,
		Profiles:     profileRepo,
		Files:        files,
	})
	meetupService := service.NewMeetupService(service.MeetupServiceConfig{
		MeetupRepo: meetupRepo,
		Profiles:   profileRepo,
		Events:     eventHub,
	})
	forumService := service.NewForumService(service.ForumServiceConfig{
		ForumRepo: forumRepo,
		Profiles:  profileRepo,
	})
	messagingService := service.NewMessagingService(service.MessagingServiceConfig{
		MessagingRepo: messagingRepo,
		Users:         userRepo,
		Profiles:      profileRepo,
		Events:        eventHub,
	})
	storeService := service.NewStoreService(service.StoreServiceConfig{
		StoreRepo:       storeRepo,
		Memorials:       memorialRepo,
		Users:           userRepo,
		Files:           files,
		Mailer:          mail,
		Checkout:        checkout,
		PortalReturnURL: cfg.Payments.BillingPortalReturnURL,
	})
	sponsorService := service.NewSponsorService(service.SponsorServiceConfig{
		SponsorRepo: sponsorRepo,
		Tiers:       cat,
		Counters:    sponsorCounters,
		ProfileRepo: profileRepo,
		Users:       userRepo,
		Checkout:    checkout,
	})
	applicationService := service.NewApplicationService(service.ApplicationServiceConfig{
		AppRepo:      applicationRepo,
		ProfileRepo:  profileRepo,
		Users:        userRepo,
		Files:        files,
		Mailer:       mail,
		Checkout:     checkout,
		OrganizerFee: cfg.Payments.OrganizerFeeCents,
	})
	webhookService := service.NewWebhookService(service.WebhookServiceConfig{
		Gateway: gateway,
		Ledger:  storeRepo,
		Handlers: map[string]service.CheckoutHandler{
			payment.KindStoreOrder:           storeService,
			payment.KindSponsor:              sponsorService,
			payment.KindOrganizerApplication: applicationService,
		},
	})
	moderationService := service.NewModerationService(moderationRepo)
	suggestionService := service.NewSuggestionService(suggestionRepo, profileRepo)
	searchService := service.NewSearchService(service.SearchServiceConfig{
		Memorials: memorialRepo,
		Meetups:   meetupRepo,
		Topics:    forumRepo,
		Profiles:  profileRepo,
		Cache:     searchCache,
	})
	adminService := service.NewAdminService(statsRepo, userRepo, profileRepo)

	// Background jobs
	now := time.Now
	backgroundJobs := jobs.Group{
		jobs.NewPeriodic("sponsor-counter-flush", cfg.Jobs.SponsorFlushInterval,
			jobs.FlushSponsorCounters(sponsorCounters, sponsorRepo)),
		jobs.NewPeriodic("sponsor-expiry", cfg.Jobs.SponsorExpiryInterval,
			jobs.ExpireSponsors(sponsorRepo, now)),
		jobs.NewPeriodic("stale-checkouts", cfg.Jobs.CheckoutCleanupEvery,
			jobs.CancelStaleCheckouts(storeRepo, cfg.Jobs.StaleCheckoutAfter, now)),
		jobs.NewPeriodic("meetup-completion", 15*time.Minute,
			jobs.CompleteMeetups(meetupRepo, now)),
		jobs.NewPeriodic("token-purge", 6*time.Hour,
			jobs.PurgeTokens(tokenService)),
	}
	backgroundJobs.Start()
	defer backgroundJobs.Stop()

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(db)
	authHandler := handler.NewAuthHandler(authService)
	profileHandler := handler.NewProfileHandler(profileService, memorialService)
	memorialHandler := handler.NewMemorialHandler(memorialService)
	meetupHandler := handler.NewMeetupHandler(meetupService)
	forumHandler := handler.NewForumHandler(forumService)
	messagingHandler := handler.NewMessagingHandler(messagingService)
	eventsHandler := handler.NewEventsHandler(eventHub)
	storeHandler := handler.NewStoreHandler(storeService, webhookService)
	sponsorHandler := handler.NewSponsorHandler(sponsorService)
	applicationHandler := handler.NewApplicationHandler(applicationService)
	moderationHandler := handler.NewModerationHandler(moderationService)
	suggestionHandler := handler.NewSuggestionHandler(suggestionService)
	searchHandler := handler.NewSearchHandler(searchService)
	adminHandler := handler.NewAdminHandler(adminService)

	mux := http.NewServeMux()

	authMiddleware := middleware.Auth(tokenService)
	optionalAuth := middleware.OptionalAuth(tokenService)
	auth := func(h http.HandlerFunc) http.Handler { return authMiddleware(h) }
	public := func(h http.HandlerFunc) http.Handler { return optionalAuth(h) }
	moderator := func(h http.HandlerFunc) http.Handler { return authMiddleware(middleware.RequireModerator(h)) }
	admin := func(h http.HandlerFunc) http.Handler { return authMiddleware(middleware.RequireAdmin(h)) }

	mux.HandleFunc("GET /health", healthHandler.Health)

	// Auth
	mux.HandleFunc("POST /api/auth/register", authHandler.Register)
	mux.HandleFunc("POST /api/auth/login", authHandler.Login)
	mux.HandleFunc("POST /api/auth/refresh", authHandler.Refresh)
	mux.Handle("POST /api/auth/logout", auth(authHandler.Logout))
	mux.Handle("GET /api/auth/me", auth(authHandler.Me))
	mux.Handle("POST /api/auth/verify-email/request", auth(authHandler.RequestVerification))
	mux.HandleFunc("POST /api/auth/verify-email/confirm", authHandler.ConfirmVerification)

	// Profiles
	mux.Handle("GET /api/profile", auth(profileHandler.Get))
	mux.Handle("PATCH /api/profile", auth(profileHandler.Update))
	mux.Handle("POST /api/profile/avatar-upload", auth(profileHandler.AvatarUpload))
	mux.Handle("GET /api/profile/memorials", auth(profileHandler.Memorials))
	mux.Handle("GET /api/profiles/{username}", public(profileHandler.GetByUsername))

	// Memorials
	mux.Handle("POST /api/memorials", auth(memorialHandler.Create))
	mux.Handle("GET /api/memorials", public(memorialHandler.List))
	mux.Handle("GET /api/memorials/{id}", public(memorialHandler.Get))
	mux.Handle("PATCH /api/memorials/{id}", auth(memorialHandler.Update))
	mux.Handle("DELETE /api/memorials/{id}", auth(memorialHandler.Delete))
	mux.Handle("POST /api/memorials/{id}/photo-upload", auth(memorialHandler.PhotoUpload))
	mux.Handle("GET /api/memorials/{id}/gifts", public(memorialHandler.Gifts))

	// Meetups and RSVPs
	mux.Handle("POST /api/meetups", auth(meetupHandler.Create))
	mux.Handle("GET /api/meetups", public(meetupHandler.List))
	mux.Handle("POST /api/meetups/rsvp", auth(meetupHandler.RSVP))
	mux.Handle("GET /api/meetups/{id}", public(meetupHandler.Get))
	mux.Handle("PATCH /api/meetups/{id}", auth(meetupHandler.Update))
	mux.Handle("POST /api/meetups/{id}/cancel", auth(meetupHandler.Cancel))
	mux.Handle("GET /api/meetups/{id}/attendees", auth(meetupHandler.Attendees))
	mux.Handle("DELETE /api/meetups/{id}/rsvp", auth(meetupHandler.CancelRSVP))

	// Forums
	mux.Handle("GET /api/forums/categories", public(forumHandler.ListCategories))
	mux.Handle("POST /api/forums/categories", admin(forumHandler.CreateCategory))
	mux.Handle("GET /api/forums/categories/{slug}/topics", public(forumHandler.ListTopics))
	mux.Handle("POST /api/forums/topics", auth(forumHandler.CreateTopic))
	mux.Handle("GET /api/forums/topics/{id}", public(forumHandler.GetTopic))
	mux.Handle("POST /api/forums/topics/{id}/posts", auth(forumHandler.CreatePost))
	mux.Handle("POST /api/forums/topics/{id}/pin", moderator(forumHandler.Pin))
	mux.Handle("POST /api/forums/topics/{id}/lock", moderator(forumHandler.Lock))
	mux.Handle("PATCH /api/forums/posts/{id}", auth(forumHandler.EditPost))
	mux.Handle("DELETE /api/forums/posts/{id}", auth(forumHandler.DeletePost))

	// Messaging and events
	mux.Handle("POST /api/conversations", auth(messagingHandler.Start))
	mux.Handle("GET /api/conversations", auth(messagingHandler.List))
	mux.Handle("GET /api/conversations/{id}/messages", auth(messagingHandler.Messages))
	mux.Handle("POST /api/conversations/{id}/messages", auth(messagingHandler.Send))
	mux.Handle("POST /api/conversations/{id}/read", auth(messagingHandler.MarkRead))
	mux.Handle("GET /api/events/stream", auth(eventsHandler.Stream))

	// Store, checkout and billing
	mux.Handle("GET /api/store/products", public(storeHandler.ListProducts))
	mux.Handle("GET /api/store/products/{id}", public(storeHandler.GetProduct))
	mux.Handle("POST /api/store/products", admin(storeHandler.CreateProduct))
	mux.Handle("PATCH /api/store/products/{id}", admin(storeHandler.UpdateProduct))
	mux.Handle("GET /api/admin/store/products", admin(storeHandler.ListAllProducts))
	mux.Handle("POST /api/checkout/create-session", auth(storeHandler.CreateCheckout))
	mux.HandleFunc("POST /api/checkout/webhook", storeHandler.Webhook)
	mux.Handle("GET /api/store/orders", auth(storeHandler.ListOrders))
	mux.Handle("GET /api/store/orders/{id}", auth(storeHandler.GetOrder))
	mux.Handle("GET /api/store/orders/{id}/download/{productId}", auth(storeHandler.Download))
	mux.Handle("POST /api/billing/portal", auth(storeHandler.BillingPortal))

	// Sponsors
	mux.HandleFunc("GET /api/sponsors/tiers", sponsorHandler.Tiers)
	mux.HandleFunc("GET /api/sponsors/placements", sponsorHandler.Placements)
	mux.Handle("POST /api/sponsors", auth(sponsorHandler.Apply))
	mux.Handle("GET /api/sponsors/mine", auth(sponsorHandler.ListOwn))
	mux.HandleFunc("POST /api/sponsors/{id}/impression", sponsorHandler.Impression)
	mux.HandleFunc("POST /api/sponsors/{id}/click", sponsorHandler.Click)
	mux.Handle("GET /api/admin/sponsors", admin(sponsorHandler.List))
	mux.Handle("POST /api/admin/sponsors/{id}/status", admin(sponsorHandler.SetStatus))

	// Applications
	mux.Handle("GET /api/applications", auth(applicationHandler.ListOwn))
	mux.Handle("POST /api/applications/organizer", auth(applicationHandler.ApplyOrganizer))
	mux.Handle("POST /api/applications/background-check/upload-url", auth(applicationHandler.DocumentUploadURL))
	mux.Handle("POST /api/applications/background-check", auth(applicationHandler.SubmitBackgroundCheck))
	mux.Handle("GET /api/admin/applications", admin(applicationHandler.ListForReview))
	mux.Handle("POST /api/admin/applications/organizer/{id}/approve", admin(applicationHandler.ApproveOrganizer))
	mux.Handle("POST /api/admin/applications/organizer/{id}/reject", admin(applicationHandler.RejectOrganizer))
	mux.Handle("POST /api/admin/applications/background-check/{id}/approve", admin(applicationHandler.ApproveBackgroundCheck))
	mux.Handle("POST /api/admin/applications/background-check/{id}/reject", admin(applicationHandler.RejectBackgroundCheck))
	mux.Handle("GET /api/admin/applications/background-check/{id}/document", admin(applicationHandler.DocumentLink))

	// Reports and suggestions
	mux.Handle("POST /api/reports", auth(moderationHandler.CreateReport))
	mux.Handle("GET /api/admin/reports", moderator(moderationHandler.ListReports))
	mux.Handle("POST /api/admin/reports/{id}/resolve", moderator(moderationHandler.ResolveReport))
	mux.Handle("GET /api/suggestions", public(suggestionHandler.List))
	mux.Handle("POST /api/suggestions", auth(suggestionHandler.Create))
	mux.Handle("POST /api/suggestions/{id}/vote", auth(suggestionHandler.Vote))
	mux.Handle("DELETE /api/suggestions/{id}/vote", auth(suggestionHandler.Unvote))
	mux.Handle("POST /api/admin/suggestions/{id}/status", admin(suggestionHandler.SetStatus))

	// Search and admin
	mux.HandleFunc("GET /api/search", searchHandler.Search)
	mux.Handle("GET /api/admin/stats", admin(adminHandler.Stats))
	mux.Handle("GET /api/admin/users", admin(adminHandler.ListUsers))
	mux.Handle("PATCH /api/admin/users/{id}/verification", admin(adminHandler.SetVerification))
	mux.Handle("PATCH /api/admin/users/{id}/role", admin(adminHandler.SetRole))

	// Apply global middleware
	wrapped := middleware.Chain(
		mux,
		middleware.RequestID,
		middleware.Logger,
		middleware.Recovery,
		middleware.CORS(cfg.Server.AllowedOrigins),
		middleware.RateLimit(rateLimiter),
		middleware.Idempotency(idempotencyStore),
		middleware.Compress,
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      wrapped,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		slog.Info("starting server",
			slog.String("port", cfg.Server.Port),
			slog.String("env", cfg.Server.Env),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", slog.String("error", err.Error()))
	}

	slog.Info("server exited")
}
