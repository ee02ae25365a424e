package models

import "time"

// Payment là bản ghi ledger, mỗi lượt thanh toán một dòng, không bao giờ xóa.
// TransactionID do adapter sinh, duy nhất, không tái sử dụng.
type Payment struct {
	ID            uint    `json:"id" gorm:"primaryKey"`
	BookingID     uint    `json:"bookingId" gorm:"index"`
	Booking       Booking `json:"booking" gorm:"foreignKey:BookingID"`
	TransactionID string  `json:"transactionId" gorm:"unique;size:64"`
	Amount        float64 `json:"amount"`
	PaymentMethod int     `json:"paymentMethod"`
	Status        int     `json:"status" gorm:"default:0;index"`

	// Mã đối soát phía cổng thanh toán (zp_trans_id / vnp_TransactionNo)
	GatewayTransID string `json:"gatewayTransId,omitempty" gorm:"size:64"`

	RefundTransactionID string     `json:"refundTransactionId,omitempty" gorm:"size:64"`
	RefundAmount        float64    `json:"refundAmount"`
	RefundedAt          *time.Time `json:"refundedAt,omitempty"`
	RefundFailReason    string     `json:"refundFailReason,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}
