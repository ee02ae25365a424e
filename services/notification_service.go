package services

import (
	"encoding/json"
	"fmt"

	"gostay/models"
	"gostay/services/logger"

	"github.com/olahol/melody"
	"gorm.io/gorm"
)

// NotificationService lưu thông báo vào DB và đẩy realtime qua websocket.
// Thỏa cả payment.Notifier lẫn BookingNotifier; mọi lỗi ở đây chỉ log,
// không bao giờ chặn luồng đặt phòng/thanh toán.
type NotificationService struct {
	db     *gorm.DB
	ws     *melody.Melody
	logger logger.Logger
}

func NewNotificationService(db *gorm.DB, ws *melody.Melody, lg logger.Logger) *NotificationService {
	return &NotificationService{db: db, ws: ws, logger: lg}
}

func (s *NotificationService) push(userID *uint, bookingID uint, notifType, message string) {
	notification := models.Notification{
		UserID:    userID,
		BookingID: &bookingID,
		Type:      notifType,
		Message:   message,
	}
	if err := s.db.Create(&notification).Error; err != nil {
		s.logger.Error("Không lưu được thông báo %s cho booking %d: %v", notifType, bookingID, err)
	}

	if s.ws == nil {
		return
	}
	payload, err := json.Marshal(notification)
	if err != nil {
		return
	}
	if err := s.ws.Broadcast(payload); err != nil {
		s.logger.Error("Không đẩy được thông báo realtime: %v", err)
	}
}

func (s *NotificationService) BookingCreated(booking *models.Booking) {
	s.push(booking.UserID, booking.ID,
		"booking_created",
		fmt.Sprintf("Đơn đặt phòng #%d đã được tạo, vui lòng thanh toán trong 15 phút", booking.ID))
}

func (s *NotificationService) PaymentConfirmed(booking *models.Booking) {
	s.push(booking.UserID, booking.ID,
		"payment_confirmed",
		fmt.Sprintf("Đơn đặt phòng #%d đã thanh toán thành công", booking.ID))
}

func (s *NotificationService) BookingCancelled(booking *models.Booking) {
	s.push(booking.UserID, booking.ID,
		"booking_cancelled",
		fmt.Sprintf("Đơn đặt phòng #%d đã bị hủy", booking.ID))
}

func (s *NotificationService) RefundIssued(booking *models.Booking, amount float64) {
	s.push(booking.UserID, booking.ID,
		"refund_issued",
		fmt.Sprintf("Đơn đặt phòng #%d đã được hoàn %.0f VND", booking.ID, amount))
}

// GetNotificationsByUser liệt kê thông báo của người dùng, mới nhất trước
func (s *NotificationService) GetNotificationsByUser(userID uint, limit int) ([]models.Notification, error) {
	if limit <= 0 {
		limit = 20
	}
	var notifications []models.Notification
	err := s.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).
		Find(&notifications).Error
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// MarkAsRead đánh dấu thông báo đã đọc
func (s *NotificationService) MarkAsRead(notificationID, userID uint) error {
	return s.db.Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", notificationID, userID).
		Update("is_read", true).Error
}
