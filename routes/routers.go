package routes

import (
	"gostay/controllers"
	middlewares "gostay/middleware"

	"github.com/gin-gonic/gin"
)

type Controllers struct {
	Bookings      *controllers.BookingController
	Payments      *controllers.PaymentController
	Vouchers      *controllers.VoucherController
	Rooms         *controllers.RoomController
	Notifications *controllers.NotificationController
}

func SetupRoutes(router *gin.Engine, ctl Controllers) {
	v1 := router.Group("/api/v1")

	// Phòng: kiểm tra trống và tìm phòng trống, công khai
	v1.GET("/rooms/available", ctl.Rooms.SearchAvailableRooms)
	v1.GET("/rooms/:id/availability", ctl.Rooms.CheckAvailability)

	// Booking: khách vãng lai cũng đặt được, token chỉ để gắn đơn vào tài khoản
	v1.POST("/bookings", middlewares.OptionalAuth(), ctl.Bookings.CreateBooking)
	v1.GET("/bookings", middlewares.AuthMiddleware(), ctl.Bookings.GetBookings)
	v1.GET("/bookings/:id", middlewares.AuthMiddleware(), ctl.Bookings.GetBookingDetail)
	v1.DELETE("/bookings/:id", middlewares.AuthMiddleware(), ctl.Bookings.CancelBooking)
	v1.PUT("/bookings/:id/status", middlewares.AuthMiddleware(1, 2), ctl.Bookings.UpdateBookingStatus)
	v1.GET("/bookings/:id/payments", middlewares.AuthMiddleware(), ctl.Payments.GetPaymentsByBooking)

	// Thanh toán: callback/return do cổng gọi, tự xác thực bằng chữ ký
	v1.POST("/payment/zalopay/callback", ctl.Payments.ZaloPayCallback)
	v1.GET("/payment/zalopay/return", ctl.Payments.ZaloPayReturn)
	v1.GET("/payment/vnpay/ipn", ctl.Payments.VNPayIPN)
	v1.GET("/payment/vnpay/return", ctl.Payments.VNPayReturn)
	v1.POST("/payment/retry", middlewares.AuthMiddleware(), ctl.Payments.RetryPayment)

	// Voucher
	v1.POST("/vouchers/validate", ctl.Vouchers.ValidateVoucher)
	v1.GET("/vouchers", middlewares.AuthMiddleware(1, 2), ctl.Vouchers.GetVouchers)
	v1.POST("/vouchers", middlewares.AuthMiddleware(1, 2), ctl.Vouchers.CreateVoucher)

	// Thông báo
	v1.GET("/notifications", middlewares.AuthMiddleware(), ctl.Notifications.GetNotifications)
	v1.PUT("/notifications/:id/read", middlewares.AuthMiddleware(), ctl.Notifications.MarkNotificationRead)
}
