package main

import (
	"log"
	"net/http"
	"os"

	"gostay/config"
	"gostay/constants"
	"gostay/controllers"
	"gostay/jobs"
	"gostay/models"
	"gostay/routes"
	"gostay/services"
	"gostay/services/logger"
	"gostay/services/payment"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func migrateTables() {
	if err := config.DB.AutoMigrate(
		&models.User{}, &models.Hotel{}, &models.Room{},
		&models.Booking{}, &models.Payment{}, &models.Voucher{},
		&models.Invoice{}, &models.Notification{},
	); err != nil {
		log.Fatalf("Failed to migrate tables: %v", err)
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: không load được file .env, sử dụng biến môi trường có sẵn: %v", err)
	}

	router, m, c, err := config.InitApp()
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	migrateTables()

	lg := logger.NewDefaultLogger(logger.InfoLevel)

	notificationService := services.NewNotificationService(config.DB, m, lg)
	emailService := services.NewEmailService()

	ledger := payment.NewLedger(config.DB)
	bookingCache := services.NewBookingCache(config.RedisClient)
	reconciler := payment.NewReconciler(config.DB, ledger, notificationService, emailService, bookingCache, lg)

	zalopay := payment.NewZaloPayService(payment.ZaloPayOptions{
		DB:         config.DB,
		Ledger:     ledger,
		Reconciler: reconciler,
		Logger:     lg,
		Config: payment.ZaloPayConfig{
			AppID:       config.GetEnv("ZALOPAY_APP_ID"),
			Key1:        config.GetEnv("ZALOPAY_KEY1"),
			Key2:        config.GetEnv("ZALOPAY_KEY2"),
			Endpoint:    config.GetEnvDefault("ZALOPAY_ENDPOINT", "https://sb-openapi.zalopay.vn/v2"),
			CallbackURL: config.GetEnv("SERVER_URL") + "/api/v1/payment/zalopay/callback",
			RedirectURL: config.GetEnv("SERVER_URL") + "/api/v1/payment/zalopay/return",
			SuccessPage: config.GetEnv("CLIENT_URL") + "/payment/success",
			FailPage:    config.GetEnv("CLIENT_URL") + "/payment/fail",
		},
	})

	vnpay := payment.NewVNPayService(payment.VNPayOptions{
		DB:         config.DB,
		Ledger:     ledger,
		Reconciler: reconciler,
		Logger:     lg,
		Config: payment.VNPayConfig{
			TmnCode:     config.GetEnv("VNPAY_TMN_CODE"),
			HashSecret:  config.GetEnv("VNPAY_HASH_SECRET"),
			PayURL:      config.GetEnvDefault("VNPAY_PAY_URL", "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html"),
			APIURL:      config.GetEnvDefault("VNPAY_API_URL", "https://sandbox.vnpayment.vn/merchant_webapi/api/transaction"),
			ReturnURL:   config.GetEnv("SERVER_URL") + "/api/v1/payment/vnpay/return",
			SuccessPage: config.GetEnv("CLIENT_URL") + "/payment/success",
			FailPage:    config.GetEnv("CLIENT_URL") + "/payment/fail",
		},
	})

	roomService := services.NewRoomService(config.DB)
	voucherService := services.NewVoucherService(config.DB)
	bookingService := services.NewBookingService(services.BookingOptions{
		DB:       config.DB,
		Rooms:    roomService,
		Vouchers: voucherService,
		Gateways: map[int]payment.Gateway{
			constants.PaymentMethodZaloPay: zalopay,
			constants.PaymentMethodVNPay:   vnpay,
		},
		Notifier: notificationService,
		Mailer:   emailService,
		Logger:   lg,
	})

	if err := jobs.InitCronJobs(c, config.RedisClient, bookingService); err != nil {
		log.Fatalf("Failed to initialize cron jobs: %v", err)
	}

	config.InitWebSocket(router, m)

	routes.SetupRoutes(router, routes.Controllers{
		Bookings:      controllers.NewBookingController(bookingService, config.RedisClient),
		Payments:      controllers.NewPaymentController(config.DB, bookingService, zalopay, vnpay),
		Vouchers:      controllers.NewVoucherController(voucherService),
		Rooms:         controllers.NewRoomController(config.DB, roomService),
		Notifications: controllers.NewNotificationController(notificationService),
	})

	router.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8083"
	}

	log.Println("Server starting on port " + port + "...")
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
