package api

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"

	"github.com/vietanh2810/raffle-api/docs"
	v1 "github.com/vietanh2810/raffle-api/internal/api/handler/v1"
	"github.com/vietanh2810/raffle-api/internal/api/middleware"
	"github.com/vietanh2810/raffle-api/internal/cache"
	"github.com/vietanh2810/raffle-api/internal/config"
	"github.com/vietanh2810/raffle-api/internal/repository"
	"github.com/vietanh2810/raffle-api/internal/repository/dao"
	"github.com/vietanh2810/raffle-api/internal/service"
)

type Server struct {
	Config *config.AppConfig
	Router *gin.Engine

	// Exposed so the cron sweeper can drive the same service instances the
	// HTTP handlers use.
	Lifecycle *service.LifecycleService
	Payout    *service.PayoutService
}

func NewServer(conf *config.AppConfig, db *gorm.DB, verifier service.PaymentVerifier, sender service.PrizeSender, store cache.Cache) *Server {
	gin.SetMode(conf.Gin.Mode)
	engine := gin.New()

	s := &Server{
		Config: conf,
		Router: engine,
	}

	s.MountMiddlewares()

	raffleRepo := repository.NewRaffleRepository(dao.NewRaffleDAO(db))
	quizRepo := repository.NewQuizRepository(dao.NewQuizDAO(db))

	quizSvc := service.NewQuizService(quizRepo, raffleRepo, store, conf.Raffle.QuestionTTL)
	ticketSvc := service.NewTicketService(raffleRepo, quizRepo, verifier)
	s.Lifecycle = service.NewLifecycleService(raffleRepo, quizRepo, store, conf.Raffle.WeekDuration, conf.Raffle.StatsTTL)
	s.Payout = service.NewPayoutService(raffleRepo, sender)

	quizHandler := v1.NewQuizHandler(quizSvc)
	ticketHandler := v1.NewTicketHandler(ticketSvc)
	raffleHandler := v1.NewRaffleHandler(s.Lifecycle)
	adminHandler := v1.NewAdminHandler(s.Lifecycle, s.Payout, quizSvc)
	s.MountHandlers(quizHandler, ticketHandler, raffleHandler, adminHandler)

	return s
}

func (s *Server) MountMiddlewares() {
	// Logger and Recovery are needed unless we use gin.Default().
	s.Router.Use(gin.Logger())
	s.Router.Use(gin.Recovery())
	s.Router.Use(requestid.New())
	s.Router.Use(middleware.ConfigCORS(s.Config.API.AllowedCORSDomains))
}

func (s *Server) MountHandlers(quizHandler *v1.QuizHandler, ticketHandler *v1.TicketHandler, raffleHandler *v1.RaffleHandler, adminHandler *v1.AdminHandler) {
	const basePath = "/api/v1"

	public := s.Router.Group(basePath)
	{
		public.GET("/quiz/current", quizHandler.HandleGetCurrentQuestion)
		public.POST("/quiz/submit", quizHandler.HandleSubmitAnswer)
		public.POST("/tickets/mint", ticketHandler.HandleMintTicket)
		public.GET("/users/:address", quizHandler.HandleGetUserWeek)
		public.GET("/raffles/current", raffleHandler.HandleGetCurrentRaffle)
		public.GET("/raffles/:week/winner", raffleHandler.HandleGetWinner)
	}

	admin := s.Router.Group(basePath+"/admin", middleware.NewAuthenticator(s.Config.API.JWTSigningKey).VerifyJWT())
	{
		admin.POST("/raffles/process", adminHandler.HandleProcessRaffles)
		admin.POST("/raffles/:week/select-winner", adminHandler.HandleSelectWinner)
		admin.GET("/stats", adminHandler.HandleGetStats)
		admin.POST("/questions", adminHandler.HandleCreateQuestion)
		admin.POST("/winners/:week/distribute", adminHandler.HandleDistributePrize)
	}

	s.Router.GET("/", v1.HandleHealthcheck)

	// Setup Swagger UI.
	docs.SwaggerInfo.Host = s.Config.API.BaseURL
	docs.SwaggerInfo.BasePath = basePath
	docs.SwaggerInfo.Title = "Raffle API"
	docs.SwaggerInfo.Description = "Weekly quiz-gated raffle engine."
	docs.SwaggerInfo.Version = "1.0"
	s.Router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))
}
