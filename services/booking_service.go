package services

import (
	"fmt"
	"time"

	"gostay/constants"
	"gostay/dto"
	apperrors "gostay/errors"
	"gostay/models"
	"gostay/services/logger"
	"gostay/services/payment"
	"gostay/validator"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingNotifier bắn thông báo trong ứng dụng cho các sự kiện booking
type BookingNotifier interface {
	BookingCreated(booking *models.Booking)
	BookingCancelled(booking *models.Booking)
}

// BookingMailer gửi email xác nhận đặt phòng
type BookingMailer interface {
	SendBookingEmail(booking *models.Booking) error
}

// BookingService điều phối toàn bộ vòng đời đặt phòng: tạo giữ chỗ,
// phát lệnh thanh toán, hủy/hoàn tiền và dọn booking quá hạn thanh toán.
type BookingService struct {
	db       *gorm.DB
	rooms    *RoomService
	vouchers *VoucherService
	gateways map[int]payment.Gateway
	notifier BookingNotifier
	mailer   BookingMailer
	logger   logger.Logger
}

type BookingOptions struct {
	DB       *gorm.DB
	Rooms    *RoomService
	Vouchers *VoucherService
	Gateways map[int]payment.Gateway
	Notifier BookingNotifier
	Mailer   BookingMailer
	Logger   logger.Logger
}

func NewBookingService(opts BookingOptions) *BookingService {
	return &BookingService{
		db:       opts.DB,
		rooms:    opts.Rooms,
		vouchers: opts.Vouchers,
		gateways: opts.Gateways,
		notifier: opts.Notifier,
		mailer:   opts.Mailer,
		logger:   opts.Logger,
	}
}

// CreateBooking tạo booking mới ở trạng thái pending rồi phát lệnh tạo
// thanh toán. Kiểm tra phòng trống và ghi booking nằm trong cùng một
// transaction, khóa dòng phòng trên Postgres để hai request tranh nhau
// cùng khoảng ngày không thể cùng qua bước kiểm tra.
//
// Lỗi từ cổng thanh toán KHÔNG hủy booking: đơn đã giữ chỗ, khách
// thanh toán lại qua RetryPayment.
func (s *BookingService) CreateBooking(userID *uint, req *dto.CreateBookingRequest) (*models.Booking, string, error) {
	if err := validator.ValidateCreateBooking(req); err != nil {
		return nil, "", err
	}

	checkInRaw, err := time.ParseInLocation("02/01/2006", req.CheckInDate, hcmLocation)
	if err != nil {
		return nil, "", apperrors.NewAppError(apperrors.ErrCodeInvalidFormat, "Định dạng ngày nhận phòng không hợp lệ", err)
	}
	checkOutRaw, err := time.ParseInLocation("02/01/2006", req.CheckOutDate, hcmLocation)
	if err != nil {
		return nil, "", apperrors.NewAppError(apperrors.ErrCodeInvalidFormat, "Định dạng ngày trả phòng không hợp lệ", err)
	}

	now := time.Now().In(hcmLocation)
	if err := validator.ValidateBookingDates(checkInRaw, checkOutRaw, now); err != nil {
		return nil, "", err
	}

	checkIn := NormalizeCheckIn(checkInRaw)
	checkOut := NormalizeCheckOut(checkOutRaw)

	var booking *models.Booking
	err = s.db.Transaction(func(tx *gorm.DB) error {
		roomQuery := tx
		// SQLite khóa cả file khi ghi nên chỉ cần FOR UPDATE trên Postgres
		if tx.Dialector.Name() == "postgres" {
			roomQuery = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var room models.Room
		if err := roomQuery.First(&room, req.RoomID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return apperrors.ErrRoomNotFound
			}
			return err
		}

		available, err := s.rooms.isRoomAvailableTx(tx, req.RoomID, checkIn, checkOut)
		if err != nil {
			return err
		}
		if !available {
			return apperrors.ErrRoomNotAvailable
		}

		b := models.Booking{
			UserID:        userID,
			RoomID:        room.RoomId,
			HotelID:       room.HotelID,
			CheckIn:       checkIn,
			CheckOut:      checkOut,
			Status:        constants.BookingStatusPending,
			PaymentStatus: constants.PayStatusUnpaid,
			PaymentMethod: req.PaymentMethod,
			ContactName:   req.ContactInfo.Name,
			ContactEmail:  req.ContactInfo.Email,
			ContactPhone:  req.ContactInfo.Phone,
			BookingFor:    req.BookingFor,
		}
		if b.BookingFor == "" {
			b.BookingFor = "self"
		}
		if req.GuestInfo != nil {
			b.GuestName = req.GuestInfo.Name
			b.GuestPhone = req.GuestInfo.Phone
			b.GuestEmail = req.GuestInfo.Email
		}
		if req.SpecialRequests != nil {
			b.EarlyCheckIn = req.SpecialRequests.EarlyCheckIn
			b.LateCheckOut = req.SpecialRequests.LateCheckOut
			b.AdditionalRequests = req.SpecialRequests.AdditionalRequests
		}

		b.OriginalPrice = float64(b.Nights() * room.Price)
		b.FinalPrice = b.OriginalPrice

		if req.VoucherCode != "" {
			result, err := s.vouchers.ValidateVoucherTx(tx, req.VoucherCode, b.OriginalPrice, now)
			if err != nil {
				return err
			}
			if !result.Success {
				return apperrors.NewAppError(result.ErrorCode, result.Message, nil)
			}
			if err := s.vouchers.ApplyVoucher(tx, result.Voucher); err != nil {
				return err
			}
			b.VoucherID = &result.Voucher.ID
			b.DiscountAmount = result.DiscountAmount
			b.FinalPrice = b.OriginalPrice - result.DiscountAmount
		}

		if err := tx.Create(&b).Error; err != nil {
			return err
		}
		b.Room = room
		booking = &b
		return nil
	})
	if err != nil {
		return nil, "", err
	}

	if s.notifier != nil {
		s.notifier.BookingCreated(booking)
	}
	if s.mailer != nil {
		if err := s.mailer.SendBookingEmail(booking); err != nil {
			s.logger.Error("Gửi email đặt phòng cho booking %d không thành công: %v", booking.ID, err)
		}
	}

	gateway, ok := s.gateways[req.PaymentMethod]
	if !ok {
		// Phương thức chưa nối cổng (thẻ tín dụng, PayPal): booking vẫn
		// được giữ chỗ, thanh toán xử lý ngoài luồng
		return booking, "", nil
	}

	created, err := gateway.CreatePaymentURL(booking)
	if err != nil {
		s.logger.Error("Tạo thanh toán cho booking %d thất bại: %v", booking.ID, err)
		return booking, "", fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	return booking, created.PayURL, nil
}

// RetryPayment tạo lại lượt thanh toán cho booking còn pending chưa trả tiền.
// Cho phép đổi phương thức thanh toán giữa các lần thử.
func (s *BookingService) RetryPayment(bookingID uint, userID *uint, isAdmin bool, method int) (*models.Booking, string, error) {
	booking, err := s.GetBookingByID(bookingID)
	if err != nil {
		return nil, "", err
	}
	if !isAdmin && !sameUser(booking.UserID, userID) {
		return nil, "", apperrors.ErrForbidden
	}
	if booking.Status != constants.BookingStatusPending || booking.PaymentStatus == constants.PayStatusPaid {
		return nil, "", apperrors.ErrNotCancellable
	}

	gateway, ok := s.gateways[method]
	if !ok {
		return nil, "", apperrors.NewAppError(apperrors.ErrCodeValidation, "Phương thức thanh toán không hỗ trợ thanh toán lại", nil)
	}

	if booking.PaymentMethod != method {
		if err := s.db.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Update("payment_method", method).Error; err != nil {
			return nil, "", err
		}
		booking.PaymentMethod = method
	}

	created, err := gateway.CreatePaymentURL(booking)
	if err != nil {
		return booking, "", fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	return booking, created.PayURL, nil
}

// CancelResult kết quả hủy booking
type CancelResult struct {
	Booking   *models.Booking
	Refunding bool    // hoàn tiền đang chờ cổng xác nhận
	Refunded  float64 // số tiền hoàn khi hoàn xong đồng bộ
}

// RefundPercent tỷ lệ hoàn tiền theo khoảng cách tới giờ nhận phòng
func RefundPercent(checkIn, now time.Time) int {
	until := checkIn.Sub(now)
	switch {
	case until >= constants.RefundFullBefore:
		return constants.RefundFullPercent
	case until >= constants.RefundHighBefore:
		return constants.RefundHighPercent
	case until >= constants.RefundHalfBefore:
		return constants.RefundHalfPercent
	default:
		return 0
	}
}

// CancelBooking hủy booking theo yêu cầu của khách. Trong vòng 24h trước
// giờ nhận phòng thì không hủy được nữa (đúng mốc 24h cũng bị chặn).
// Booking đã trả tiền phải hoàn tiền qua cổng: chỉ khi cổng xác nhận
// hoàn xong booking mới chuyển cancelled; booking chưa trả tiền hủy ngay.
func (s *BookingService) CancelBooking(bookingID uint, userID *uint, isAdmin bool, now time.Time) (*CancelResult, error) {
	booking, err := s.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}
	if !isAdmin && !sameUser(booking.UserID, userID) {
		return nil, apperrors.ErrForbidden
	}
	if !booking.IsCancellable() {
		return nil, apperrors.ErrNotCancellable
	}
	if booking.CheckIn.Sub(now) <= constants.CancellationLockout {
		return nil, apperrors.ErrCancellationLock
	}

	if booking.PaymentStatus == constants.PayStatusPaid {
		gateway, ok := s.gateways[booking.PaymentMethod]
		if !ok {
			return nil, apperrors.ErrNotRefundable
		}

		percent := RefundPercent(booking.CheckIn, now)
		refundAmount := booking.FinalPrice * float64(percent) / 100

		outcome, err := gateway.RefundPayment(booking, percent)
		if err != nil {
			return nil, err
		}
		switch outcome {
		case RefundOutcomeDone:
			refreshed, err := s.GetBookingByID(bookingID)
			if err != nil {
				return nil, err
			}
			return &CancelResult{Booking: refreshed, Refunded: refundAmount}, nil
		case RefundOutcomeProcessing:
			return &CancelResult{Booking: booking, Refunding: true}, nil
		default:
			return nil, apperrors.ErrRefundFailed
		}
	}

	// Chưa trả tiền: hủy trực tiếp, lượt thanh toán pending (nếu có) bị hủy theo
	cancelledAt := now
	result := s.db.Model(&models.Booking{}).
		Where("id = ? AND status IN ?", booking.ID,
			[]int{constants.BookingStatusPending, constants.BookingStatusConfirmed}).
		Updates(map[string]interface{}{
			"status":              constants.BookingStatusCancelled,
			"cancelled_at":        &cancelledAt,
			"cancellation_reason": constants.CancelReasonUserRequested,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, apperrors.ErrNotCancellable
	}

	if err := s.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", booking.ID, constants.PaymentStatusPending).
		Update("status", constants.PaymentStatusCancelled).Error; err != nil {
		s.logger.Error("Không hủy được lượt thanh toán pending của booking %d: %v", booking.ID, err)
	}

	booking.Status = constants.BookingStatusCancelled
	booking.CancelledAt = &cancelledAt
	booking.CancellationReason = constants.CancelReasonUserRequested

	if s.notifier != nil {
		s.notifier.BookingCancelled(booking)
	}
	return &CancelResult{Booking: booking}, nil
}

// UpdateBookingStatus cho quản trị/đối tác chuyển trạng thái trực tiếp
// theo máy trạng thái của booking (xem models.GetBookingState).
func (s *BookingService) UpdateBookingStatus(bookingID uint, newStatus int) (*models.Booking, error) {
	booking, err := s.GetBookingByID(bookingID)
	if err != nil {
		return nil, err
	}

	state := models.GetBookingState(booking.Status)
	switch newStatus {
	case constants.BookingStatusConfirmed:
		err = state.Confirm(booking)
	case constants.BookingStatusCompleted:
		err = state.Complete(booking)
	case constants.BookingStatusCancelled:
		err = state.Cancel(booking)
	default:
		return nil, apperrors.NewAppError(apperrors.ErrCodeValidation, "Trạng thái không hợp lệ", nil)
	}
	if err != nil {
		return nil, apperrors.NewAppError(apperrors.ErrCodeValidation, err.Error(), err)
	}

	updates := map[string]interface{}{"status": booking.Status}
	if newStatus == constants.BookingStatusCancelled {
		now := time.Now()
		booking.CancelledAt = &now
		updates["cancelled_at"] = &now
	}
	if err := s.db.Model(&models.Booking{}).Where("id = ?", booking.ID).Updates(updates).Error; err != nil {
		return nil, err
	}

	// Booking kết thúc (hủy hoặc hoàn tất) thì trả phòng về trạng thái trống
	if newStatus == constants.BookingStatusCancelled || newStatus == constants.BookingStatusCompleted {
		if err := s.db.Model(&models.Room{}).Where("room_id = ?", booking.RoomID).
			Update("status", constants.RoomStatusAvailable).Error; err != nil {
			return nil, err
		}
	}
	return booking, nil
}

// ExpireStaleBookings hủy các booking pending chưa trả tiền quá hạn
// thanh toán. Điều kiện trạng thái nằm ngay trong câu UPDATE nên chạy
// đua với callback thanh toán thì chỉ một bên thắng trên từng booking.
func (s *BookingService) ExpireStaleBookings(now time.Time) (int64, error) {
	deadline := now.Add(-constants.PaymentWindow)

	var stale []models.Booking
	if err := s.db.
		Where("status = ? AND payment_status IN ? AND created_at < ?",
			constants.BookingStatusPending,
			[]int{constants.PayStatusUnpaid, constants.PayStatusFailed},
			deadline).
		Find(&stale).Error; err != nil {
		return 0, err
	}

	var expired int64
	for i := range stale {
		b := &stale[i]
		result := s.db.Model(&models.Booking{}).
			Where("id = ? AND status = ? AND payment_status IN ?",
				b.ID, constants.BookingStatusPending,
				[]int{constants.PayStatusUnpaid, constants.PayStatusFailed}).
			Updates(map[string]interface{}{
				"status":              constants.BookingStatusCancelled,
				"cancelled_at":        &now,
				"cancellation_reason": constants.CancelReasonPaymentExpired,
			})
		if result.Error != nil {
			s.logger.Error("Không hủy được booking quá hạn %d: %v", b.ID, result.Error)
			continue
		}
		if result.RowsAffected == 0 {
			continue
		}

		if err := s.db.Model(&models.Payment{}).
			Where("booking_id = ? AND status = ?", b.ID, constants.PaymentStatusPending).
			Update("status", constants.PaymentStatusCancelled).Error; err != nil {
			s.logger.Error("Không hủy được lượt thanh toán của booking quá hạn %d: %v", b.ID, err)
		}

		expired++
		if s.notifier != nil {
			b.Status = constants.BookingStatusCancelled
			b.CancelledAt = &now
			b.CancellationReason = constants.CancelReasonPaymentExpired
			s.notifier.BookingCancelled(b)
		}
	}

	return expired, nil
}

// GetBookingByID lấy booking kèm phòng
func (s *BookingService) GetBookingByID(bookingID uint) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.Preload("Room").First(&booking, bookingID).Error
	if err == gorm.ErrRecordNotFound {
		return nil, apperrors.ErrBookingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

// GetBookingsByUser liệt kê booking của một người dùng, mới nhất trước
func (s *BookingService) GetBookingsByUser(userID uint, page, limit int) ([]models.Booking, int64, error) {
	if page < 0 {
		page = 0
	}
	if limit <= 0 {
		limit = 10
	}

	var total int64
	if err := s.db.Model(&models.Booking{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []models.Booking
	err := s.db.Preload("Room").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Offset(page * limit).Limit(limit).
		Find(&bookings).Error
	if err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// RefundOutcome aliases giúp caller trong package này không phải import payment
const (
	RefundOutcomeDone       = payment.RefundDone
	RefundOutcomeProcessing = payment.RefundProcessing
)

func sameUser(owner, caller *uint) bool {
	return owner != nil && caller != nil && *owner == *caller
}

// ToBookingResponse chuyển model sang DTO trả cho client
func ToBookingResponse(b *models.Booking, payURL string) *dto.BookingResponse {
	resp := &dto.BookingResponse{
		ID: b.ID,
		Room: dto.BookingRoomResponse{
			ID:       b.Room.RoomId,
			HotelID:  b.Room.HotelID,
			RoomName: b.Room.RoomName,
			Price:    b.Room.Price,
		},
		CheckIn:        b.CheckIn.In(hcmLocation),
		CheckOut:       b.CheckOut.In(hcmLocation),
		Nights:         b.Nights(),
		OriginalPrice:  b.OriginalPrice,
		DiscountAmount: b.DiscountAmount,
		FinalPrice:     b.FinalPrice,
		Status:         b.Status,
		PaymentStatus:  b.PaymentStatus,
		PaymentMethod:  b.PaymentMethod,
		ContactInfo: dto.ContactInfo{
			Name:  b.ContactName,
			Email: b.ContactEmail,
			Phone: b.ContactPhone,
		},
		BookingFor:         b.BookingFor,
		CancelledAt:        b.CancelledAt,
		CancellationReason: b.CancellationReason,
		CreatedAt:          b.CreatedAt,
		PayURL:             payURL,
	}
	if b.BookingFor == "other" {
		resp.GuestInfo = &dto.GuestInfo{Name: b.GuestName, Phone: b.GuestPhone, Email: b.GuestEmail}
	}
	return resp
}
