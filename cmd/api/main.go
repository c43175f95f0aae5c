package main

import (
	_ "bakerycrm/api/swagger" // swagger docs
	"bakerycrm/internal/config"
	"bakerycrm/internal/database"
	"bakerycrm/internal/handler"
	"bakerycrm/internal/repository"
	"bakerycrm/internal/service"
	"bakerycrm/internal/websocket"
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title           Bakery CRM API
// @version         1.0
// @description     Customers, products, orders and AFIP invoicing for a bakery, with an order/invoice Kanban workflow.
// @host            localhost:8080
// @BasePath        /
func main() {
	cfg := config.Load()

	db, err := database.NewConnection(cfg)
	if err != nil {
		log.Fatalf("Database connection failed: %v", err)
	}
	log.Printf("Connected to %s successfully.", cfg.DBDriver)

	// Live board hub
	wsHub := websocket.NewHub()
	go wsHub.Run()

	// Set up dependencies (Repository -> Service -> Handler)
	txManager := repository.NewTransactionManager(db)
	customerRepo := repository.NewCustomerRepository(db)
	productRepo := repository.NewProductRepository(db)
	orderRepo := repository.NewOrderRepository(db)
	invoiceRepo := repository.NewInvoiceRepository(db)
	assocRepo := repository.NewAssociationRepository(db)
	sequenceRepo := repository.NewSequenceRepository(db)
	movementRepo := repository.NewStockMovementRepository(db)
	auditRepo := repository.NewAuditRepository(db)
	statsRepo := repository.NewStatisticsRepository(db)
	revenueRepo := repository.NewRevenueRepository(db)

	auditService := service.NewAuditService(auditRepo)
	ledger := service.NewStockLedger(productRepo, movementRepo)
	customerService := service.NewCustomerService(customerRepo, auditService, txManager)
	productService := service.NewProductService(productRepo, ledger, auditService, txManager, wsHub)
	orderService := service.NewOrderService(orderRepo, customerRepo, productRepo, invoiceRepo, assocRepo,
		ledger, customerService, auditService, txManager, wsHub)
	associationService := service.NewAssociationService(orderRepo, invoiceRepo, assocRepo, ledger, auditService, txManager, wsHub)
	invoiceService := service.NewInvoiceService(invoiceRepo, sequenceRepo, customerRepo, orderRepo, assocRepo,
		ledger, service.NewMockIssuer(cfg.CAEValidDays), auditService, txManager, wsHub,
		service.InvoiceConfig{PointOfSale: cfg.PointOfSale, BusinessCUIT: cfg.BusinessCUIT})
	statisticsService := service.NewStatisticsService(statsRepo, productRepo)
	revenueService := service.NewRevenueService(revenueRepo)

	// Set up Gin Router
	router := gin.Default()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.CORSOrigins
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Accept"}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	router.Use(cors.New(corsConfig))

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/ws", func(c *gin.Context) {
		websocket.ServeWs(wsHub, c)
	})

	// API Routing
	api := router.Group("")
	handler.NewHealthHandler(db).RegisterRoutes(api)
	handler.NewCustomerHandler(customerService, orderService).RegisterRoutes(api)
	handler.NewProductHandler(productService).RegisterRoutes(api)
	handler.NewOrderHandler(orderService, associationService).RegisterRoutes(api)
	handler.NewInvoiceHandler(invoiceService).RegisterRoutes(api)
	handler.NewAuditHandler(auditService).RegisterRoutes(api)
	handler.NewStatisticsHandler(statisticsService, revenueService).RegisterRoutes(api)

	log.Printf("Server listening on :%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
