package dto

import "time"

// ContactInfo thông tin người liên hệ của đơn đặt phòng
type ContactInfo struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// GuestInfo thông tin khách lưu trú khi đặt hộ
type GuestInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email,omitempty"`
}

// SpecialRequests yêu cầu đặc biệt kèm theo đơn
type SpecialRequests struct {
	EarlyCheckIn       bool   `json:"earlyCheckIn"`
	LateCheckOut       bool   `json:"lateCheckOut"`
	AdditionalRequests string `json:"additionalRequests,omitempty"`
}

type CreateBookingRequest struct {
	RoomID          uint             `json:"roomId"`
	CheckInDate     string           `json:"checkInDate"`  // 02/01/2006
	CheckOutDate    string           `json:"checkOutDate"` // 02/01/2006
	VoucherCode     string           `json:"voucherCode,omitempty"`
	PaymentMethod   int              `json:"paymentMethod"`
	ContactInfo     ContactInfo      `json:"contactInfo"`
	BookingFor      string           `json:"bookingFor,omitempty"` // self | other
	GuestInfo       *GuestInfo       `json:"guestInfo,omitempty"`
	SpecialRequests *SpecialRequests `json:"specialRequests,omitempty"`
}

type CancelBookingRequest struct {
	Reason string `json:"reason,omitempty"`
}

type UpdateBookingStatusRequest struct {
	Status int `json:"status"`
}

type BookingRoomResponse struct {
	ID       uint   `json:"id"`
	HotelID  uint   `json:"hotelId"`
	RoomName string `json:"roomName"`
	Price    int    `json:"price"`
}

type BookingResponse struct {
	ID                 uint                `json:"id"`
	Room               BookingRoomResponse `json:"room"`
	CheckIn            time.Time           `json:"checkIn"`
	CheckOut           time.Time           `json:"checkOut"`
	Nights             int                 `json:"nights"`
	OriginalPrice      float64             `json:"originalPrice"`
	DiscountAmount     float64             `json:"discountAmount"`
	FinalPrice         float64             `json:"finalPrice"`
	Status             int                 `json:"status"`
	PaymentStatus      int                 `json:"paymentStatus"`
	PaymentMethod      int                 `json:"paymentMethod"`
	ContactInfo        ContactInfo         `json:"contactInfo"`
	BookingFor         string              `json:"bookingFor"`
	GuestInfo          *GuestInfo          `json:"guestInfo,omitempty"`
	CancelledAt        *time.Time          `json:"cancelledAt,omitempty"`
	CancellationReason string              `json:"cancellationReason,omitempty"`
	CreatedAt          time.Time           `json:"createdAt"`
	PayURL             string              `json:"payUrl,omitempty"`
}
