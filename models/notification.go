package models

import "time"

type Notification struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	UserID    *uint     `json:"userId" gorm:"index"`
	BookingID *uint     `json:"bookingId"`
	Type      string    `json:"type" gorm:"size:40"` // booking_created, payment_confirmed, booking_cancelled, refund_issued
	Message   string    `json:"message"`
	IsRead    bool      `json:"isRead" gorm:"default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}
