package models

import (
	"math"
	"time"

	"gostay/constants"
)

type Booking struct {
	ID      uint  `json:"id" gorm:"primaryKey"`
	UserID  *uint `json:"userId"`
	User    *User `json:"user" gorm:"foreignKey:UserID"`
	RoomID  uint  `json:"roomId" gorm:"index"`
	Room    Room  `json:"room" gorm:"foreignKey:RoomID"`
	HotelID uint  `json:"hotelId"`
	Hotel   Hotel `json:"hotel" gorm:"foreignKey:HotelID"`

	CheckIn  time.Time `json:"checkIn" gorm:"index"`
	CheckOut time.Time `json:"checkOut" gorm:"index"`

	VoucherID      *uint    `json:"voucherId"`
	Voucher        *Voucher `json:"voucher" gorm:"foreignKey:VoucherID"`
	OriginalPrice  float64  `json:"originalPrice"`
	DiscountAmount float64  `json:"discountAmount"`
	FinalPrice     float64  `json:"finalPrice"`

	Status        int `json:"status" gorm:"default:0;index"`
	PaymentStatus int `json:"paymentStatus" gorm:"default:0"`
	PaymentMethod int `json:"paymentMethod"`

	// Thông tin liên hệ (bắt buộc)
	ContactName  string `json:"contactName"`
	ContactEmail string `json:"contactEmail"`
	ContactPhone string `json:"contactPhone"`

	// Thông tin khách lưu trú khi đặt hộ (bookingFor = "other")
	BookingFor string `json:"bookingFor" gorm:"default:self"`
	GuestName  string `json:"guestName,omitempty"`
	GuestPhone string `json:"guestPhone,omitempty"`
	GuestEmail string `json:"guestEmail,omitempty"`

	// Yêu cầu đặc biệt
	EarlyCheckIn       bool   `json:"earlyCheckIn"`
	LateCheckOut       bool   `json:"lateCheckOut"`
	AdditionalRequests string `json:"additionalRequests,omitempty"`

	CancelledAt        *time.Time `json:"cancelledAt,omitempty"`
	CancellationReason string     `json:"cancellationReason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// Nights tính số đêm, làm tròn lên theo khoảng 24h
func (b *Booking) Nights() int {
	return int(math.Ceil(b.CheckOut.Sub(b.CheckIn).Hours() / 24))
}

// IsActive booking đang giữ phòng (pending hoặc confirmed)
func (b *Booking) IsActive() bool {
	return b.Status == constants.BookingStatusPending || b.Status == constants.BookingStatusConfirmed
}

// IsCancellable chỉ pending/confirmed mới được hủy
func (b *Booking) IsCancellable() bool {
	return b.IsActive()
}
