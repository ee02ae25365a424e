package services

import (
	"errors"
	"testing"
	"time"

	"gostay/constants"
	"gostay/dto"
	apperrors "gostay/errors"
	"gostay/models"
	"gostay/services/logger"
	"gostay/services/payment"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeGateway struct {
	db            *gorm.DB
	method        int
	payURL        string
	createErr     error
	refundOutcome payment.RefundOutcome
	refundErr     error
	createCalls   int
	refundPercents []int
}

func (g *fakeGateway) Method() int { return g.method }

func (g *fakeGateway) CreatePaymentURL(booking *models.Booking) (*payment.CreateResult, error) {
	g.createCalls++
	if g.createErr != nil {
		return nil, g.createErr
	}
	return &payment.CreateResult{PayURL: g.payURL, TransactionID: "tx-fake"}, nil
}

func (g *fakeGateway) RefundPayment(booking *models.Booking, percent int) (payment.RefundOutcome, error) {
	g.refundPercents = append(g.refundPercents, percent)
	if g.refundErr != nil {
		return payment.RefundFailed, g.refundErr
	}
	if g.refundOutcome == payment.RefundDone {
		// Cổng hoàn xong thì booking đã được đối soát sang cancelled
		now := time.Now()
		g.db.Model(&models.Booking{}).Where("id = ?", booking.ID).
			Updates(map[string]interface{}{
				"status":              constants.BookingStatusCancelled,
				"cancelled_at":        &now,
				"cancellation_reason": constants.CancelReasonUserRequested,
			})
	}
	return g.refundOutcome, nil
}

func (g *fakeGateway) VerifyTransaction(transactionID string) (*payment.TransactionStatus, error) {
	return &payment.TransactionStatus{Success: true}, nil
}

type fakeBookingNotifier struct {
	created   int
	cancelled int
}

func (n *fakeBookingNotifier) BookingCreated(*models.Booking)   { n.created++ }
func (n *fakeBookingNotifier) BookingCancelled(*models.Booking) { n.cancelled++ }

type fakeBookingMailer struct {
	sent int
}

func (m *fakeBookingMailer) SendBookingEmail(*models.Booking) error {
	m.sent++
	return nil
}

type bookingTestEnv struct {
	db       *gorm.DB
	svc      *BookingService
	gateway  *fakeGateway
	notifier *fakeBookingNotifier
	mailer   *fakeBookingMailer
	room     *models.Room
}

func newBookingTestEnv(t *testing.T) *bookingTestEnv {
	t.Helper()
	db := newTestDB(t)
	gateway := &fakeGateway{db: db, method: constants.PaymentMethodZaloPay, payURL: "https://pay.example/order"}
	notifier := &fakeBookingNotifier{}
	mailer := &fakeBookingMailer{}

	svc := NewBookingService(BookingOptions{
		DB:       db,
		Rooms:    NewRoomService(db),
		Vouchers: NewVoucherService(db),
		Gateways: map[int]payment.Gateway{constants.PaymentMethodZaloPay: gateway},
		Notifier: notifier,
		Mailer:   mailer,
		Logger:   logger.NewDefaultLogger(logger.ErrorLevel),
	})

	return &bookingTestEnv{
		db: db, svc: svc, gateway: gateway, notifier: notifier, mailer: mailer,
		room: seedRoom(t, db, 500000),
	}
}

func createRequest(roomID uint, checkIn, checkOut time.Time) *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{
		RoomID:        roomID,
		CheckInDate:   checkIn.Format("02/01/2006"),
		CheckOutDate:  checkOut.Format("02/01/2006"),
		PaymentMethod: constants.PaymentMethodZaloPay,
		ContactInfo: dto.ContactInfo{
			Name: "Nguyễn Văn A", Email: "a@example.com", Phone: "0912345678",
		},
	}
}

func TestCreateBookingHappyPath(t *testing.T) {
	env := newBookingTestEnv(t)

	booking, payURL, err := env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(10), day(13)))
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/order", payURL)

	// 3 đêm x 500.000
	assert.Equal(t, 3, booking.Nights())
	assert.Equal(t, float64(1500000), booking.OriginalPrice)
	assert.Equal(t, float64(1500000), booking.FinalPrice)
	assert.Equal(t, constants.BookingStatusPending, booking.Status)
	assert.Equal(t, constants.PayStatusUnpaid, booking.PaymentStatus)
	assert.Equal(t, "self", booking.BookingFor)

	// Giờ nhận/trả phòng được chuẩn hóa
	assert.Equal(t, constants.CheckInHour, booking.CheckIn.In(hcmLocation).Hour())
	assert.Equal(t, constants.CheckOutHour, booking.CheckOut.In(hcmLocation).Hour())

	assert.Equal(t, 1, env.notifier.created)
	assert.Equal(t, 1, env.mailer.sent)
	assert.Equal(t, 1, env.gateway.createCalls)
}

func TestCreateBookingWithVoucher(t *testing.T) {
	env := newBookingTestEnv(t)
	seedVoucher(t, env.db, models.Voucher{
		Code: "GIAM10", Discount: 10, DiscountType: constants.DiscountTypePercentage,
		UsageLimit: intPtr(1),
	})

	req := createRequest(env.room.RoomId, day(10), day(13))
	req.VoucherCode = "giam10"

	booking, _, err := env.svc.CreateBooking(nil, req)
	require.NoError(t, err)
	assert.Equal(t, float64(150000), booking.DiscountAmount)
	assert.Equal(t, float64(1350000), booking.FinalPrice)
	require.NotNil(t, booking.VoucherID)

	// Lượt dùng bị tiêu thụ ngay trong transaction tạo booking
	var voucher models.Voucher
	require.NoError(t, env.db.Where("code = ?", "GIAM10").First(&voucher).Error)
	assert.Equal(t, 1, voucher.UsageCount)
	assert.Equal(t, constants.VoucherStatusInactive, voucher.Status)

	// Voucher hết lượt: đơn sau bị từ chối
	req2 := createRequest(env.room.RoomId, day(20), day(22))
	req2.VoucherCode = "GIAM10"
	_, _, err = env.svc.CreateBooking(nil, req2)
	require.Error(t, err)
	appErr := apperrors.GetAppError(err)
	require.NotNil(t, appErr)
	assert.Equal(t, apperrors.ErrCodeVoucherUsageExceeded, appErr.Code)
}

func TestCreateBookingRejectsOverlap(t *testing.T) {
	env := newBookingTestEnv(t)

	_, _, err := env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(10), day(13)))
	require.NoError(t, err)

	_, _, err = env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(12), day(15)))
	assert.ErrorIs(t, err, apperrors.ErrRoomNotAvailable)

	// Nối đuôi thì vẫn đặt được
	_, _, err = env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(13), day(15)))
	assert.NoError(t, err)
}

func TestCreateBookingInvalidDates(t *testing.T) {
	env := newBookingTestEnv(t)

	// Ngày trong quá khứ
	_, _, err := env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(-2), day(3)))
	require.Error(t, err)

	// checkOut không sau checkIn
	_, _, err = env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(10), day(10)))
	require.Error(t, err)
}

func TestCreateBookingGatewayFailureKeepsBooking(t *testing.T) {
	env := newBookingTestEnv(t)
	env.gateway.createErr = errors.New("gateway down")

	booking, payURL, err := env.svc.CreateBooking(nil, createRequest(env.room.RoomId, day(10), day(13)))
	assert.ErrorIs(t, err, apperrors.ErrGateway)
	assert.Empty(t, payURL)
	require.NotNil(t, booking)

	// Booking vẫn được giữ chỗ để thanh toán lại
	var saved models.Booking
	require.NoError(t, env.db.First(&saved, booking.ID).Error)
	assert.Equal(t, constants.BookingStatusPending, saved.Status)
	assert.Equal(t, constants.PayStatusUnpaid, saved.PaymentStatus)
}

func TestCancelBookingLockoutBoundary(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()
	userID := uint(7)

	// Đúng mốc 24h trước giờ nhận phòng: bị chặn
	atBoundary := models.Booking{
		UserID: &userID, RoomID: env.room.RoomId,
		CheckIn: now.Add(24 * time.Hour), CheckOut: now.Add(48 * time.Hour),
		Status: constants.BookingStatusPending,
	}
	require.NoError(t, env.db.Create(&atBoundary).Error)

	_, err := env.svc.CancelBooking(atBoundary.ID, &userID, false, now)
	assert.ErrorIs(t, err, apperrors.ErrCancellationLock)

	// Quá mốc 1 giây: hủy được
	pastBoundary := models.Booking{
		UserID: &userID, RoomID: env.room.RoomId,
		CheckIn: now.Add(24*time.Hour + time.Second), CheckOut: now.Add(48 * time.Hour),
		Status: constants.BookingStatusPending,
	}
	require.NoError(t, env.db.Create(&pastBoundary).Error)

	result, err := env.svc.CancelBooking(pastBoundary.ID, &userID, false, now)
	require.NoError(t, err)
	assert.Equal(t, constants.BookingStatusCancelled, result.Booking.Status)
	assert.Equal(t, constants.CancelReasonUserRequested, result.Booking.CancellationReason)
	assert.Equal(t, 1, env.notifier.cancelled)
}

func TestCancelBookingAuthorization(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()
	owner := uint(7)
	stranger := uint(8)

	booking := models.Booking{
		UserID: &owner, RoomID: env.room.RoomId,
		CheckIn: now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
		Status: constants.BookingStatusPending,
	}
	require.NoError(t, env.db.Create(&booking).Error)

	_, err := env.svc.CancelBooking(booking.ID, &stranger, false, now)
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	// Quản trị hủy được đơn của người khác
	_, err = env.svc.CancelBooking(booking.ID, &stranger, true, now)
	assert.NoError(t, err)
}

func TestCancelPaidBookingRefundsByTier(t *testing.T) {
	cases := []struct {
		name          string
		untilCheckIn  time.Duration
		expectPercent int
	}{
		{"truoc 72h hoan 100%", 80 * time.Hour, 100},
		{"truoc 48h hoan 70%", 60 * time.Hour, 70},
		{"truoc 24h hoan 50%", 30 * time.Hour, 50},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newBookingTestEnv(t)
			env.gateway.refundOutcome = payment.RefundDone
			now := time.Now()
			userID := uint(7)

			booking := models.Booking{
				UserID: &userID, RoomID: env.room.RoomId,
				CheckIn: now.Add(tc.untilCheckIn), CheckOut: now.Add(tc.untilCheckIn + 24*time.Hour),
				Status: constants.BookingStatusConfirmed, PaymentStatus: constants.PayStatusPaid,
				PaymentMethod: constants.PaymentMethodZaloPay,
				FinalPrice:    1000000,
			}
			require.NoError(t, env.db.Create(&booking).Error)

			result, err := env.svc.CancelBooking(booking.ID, &userID, false, now)
			require.NoError(t, err)
			require.Equal(t, []int{tc.expectPercent}, env.gateway.refundPercents)
			assert.Equal(t, float64(10000*tc.expectPercent), result.Refunded)
			assert.Equal(t, constants.BookingStatusCancelled, result.Booking.Status)
		})
	}
}

func TestCancelPaidBookingRefundFailure(t *testing.T) {
	env := newBookingTestEnv(t)
	env.gateway.refundOutcome = payment.RefundFailed
	now := time.Now()
	userID := uint(7)

	booking := models.Booking{
		UserID: &userID, RoomID: env.room.RoomId,
		CheckIn: now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
		Status: constants.BookingStatusConfirmed, PaymentStatus: constants.PayStatusPaid,
		PaymentMethod: constants.PaymentMethodZaloPay,
		FinalPrice:    1000000,
	}
	require.NoError(t, env.db.Create(&booking).Error)

	_, err := env.svc.CancelBooking(booking.ID, &userID, false, now)
	assert.ErrorIs(t, err, apperrors.ErrRefundFailed)

	// Hoàn tiền hỏng thì booking giữ nguyên
	var saved models.Booking
	require.NoError(t, env.db.First(&saved, booking.ID).Error)
	assert.Equal(t, constants.BookingStatusConfirmed, saved.Status)
}

func TestRefundPercentTiers(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 100, RefundPercent(now.Add(72*time.Hour), now))
	assert.Equal(t, 100, RefundPercent(now.Add(100*time.Hour), now))
	assert.Equal(t, 70, RefundPercent(now.Add(71*time.Hour), now))
	assert.Equal(t, 70, RefundPercent(now.Add(48*time.Hour), now))
	assert.Equal(t, 50, RefundPercent(now.Add(47*time.Hour), now))
	assert.Equal(t, 50, RefundPercent(now.Add(24*time.Hour), now))
	assert.Equal(t, 0, RefundPercent(now.Add(23*time.Hour), now))
}

func TestExpireStaleBookings(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()

	stale := models.Booking{
		RoomID: env.room.RoomId, Status: constants.BookingStatusPending,
		PaymentStatus: constants.PayStatusUnpaid,
		CheckIn:       now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
	}
	require.NoError(t, env.db.Create(&stale).Error)
	// Đơn quá hạn 20 phút
	require.NoError(t, env.db.Model(&stale).Update("created_at", now.Add(-20*time.Minute)).Error)

	fresh := models.Booking{
		RoomID: env.room.RoomId, Status: constants.BookingStatusPending,
		PaymentStatus: constants.PayStatusUnpaid,
		CheckIn:       now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
	}
	require.NoError(t, env.db.Create(&fresh).Error)

	paid := models.Booking{
		RoomID: env.room.RoomId, Status: constants.BookingStatusConfirmed,
		PaymentStatus: constants.PayStatusPaid,
		CheckIn:       now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
	}
	require.NoError(t, env.db.Create(&paid).Error)
	require.NoError(t, env.db.Model(&paid).Update("created_at", now.Add(-20*time.Minute)).Error)

	// Lượt thanh toán pending của đơn quá hạn cũng phải bị hủy
	pendingPayment := models.Payment{BookingID: stale.ID, TransactionID: "tx-stale",
		Amount: 1000000, Status: constants.PaymentStatusPending}
	require.NoError(t, env.db.Create(&pendingPayment).Error)

	expired, err := env.svc.ExpireStaleBookings(now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), expired)

	var savedStale, savedFresh, savedPaid models.Booking
	require.NoError(t, env.db.First(&savedStale, stale.ID).Error)
	require.NoError(t, env.db.First(&savedFresh, fresh.ID).Error)
	require.NoError(t, env.db.First(&savedPaid, paid.ID).Error)

	assert.Equal(t, constants.BookingStatusCancelled, savedStale.Status)
	assert.Equal(t, constants.CancelReasonPaymentExpired, savedStale.CancellationReason)
	assert.Equal(t, constants.BookingStatusPending, savedFresh.Status)
	assert.Equal(t, constants.BookingStatusConfirmed, savedPaid.Status)

	var savedPayment models.Payment
	require.NoError(t, env.db.First(&savedPayment, pendingPayment.ID).Error)
	assert.Equal(t, constants.PaymentStatusCancelled, savedPayment.Status)

	// Quét lại không hủy thêm gì
	expired, err = env.svc.ExpireStaleBookings(now)
	require.NoError(t, err)
	assert.Equal(t, int64(0), expired)

	// Phòng được nhả lại cho khách khác
	available, err := NewRoomService(env.db).IsRoomAvailable(env.room.RoomId, savedFresh.CheckIn, savedFresh.CheckOut)
	require.NoError(t, err)
	assert.False(t, available) // fresh vẫn giữ phòng
}

func TestUpdateBookingStatusStateMachine(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()

	booking := models.Booking{
		RoomID: env.room.RoomId, Status: constants.BookingStatusPending,
		CheckIn: now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
	}
	require.NoError(t, env.db.Create(&booking).Error)

	// pending không complete thẳng được
	_, err := env.svc.UpdateBookingStatus(booking.ID, constants.BookingStatusCompleted)
	require.Error(t, err)

	updated, err := env.svc.UpdateBookingStatus(booking.ID, constants.BookingStatusConfirmed)
	require.NoError(t, err)
	assert.Equal(t, constants.BookingStatusConfirmed, updated.Status)

	updated, err = env.svc.UpdateBookingStatus(booking.ID, constants.BookingStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, constants.BookingStatusCompleted, updated.Status)

	// completed không hủy được
	_, err = env.svc.UpdateBookingStatus(booking.ID, constants.BookingStatusCancelled)
	require.Error(t, err)
}

func TestUpdateBookingStatusReleasesRoom(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()

	booking := models.Booking{
		RoomID: env.room.RoomId, Status: constants.BookingStatusConfirmed,
		CheckIn: now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
	}
	require.NoError(t, env.db.Create(&booking).Error)
	require.NoError(t, env.db.Model(&models.Room{}).Where("room_id = ?", env.room.RoomId).
		Update("status", constants.RoomStatusOccupied).Error)

	_, err := env.svc.UpdateBookingStatus(booking.ID, constants.BookingStatusCancelled)
	require.NoError(t, err)

	// Quản trị hủy đơn thì phòng phải quay về trạng thái trống
	var room models.Room
	require.NoError(t, env.db.Where("room_id = ?", env.room.RoomId).First(&room).Error)
	assert.Equal(t, constants.RoomStatusAvailable, room.Status)
}

func TestUpdateBookingStatusCompletedReleasesRoom(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()

	booking := models.Booking{
		RoomID: env.room.RoomId, Status: constants.BookingStatusConfirmed,
		CheckIn: now.Add(-48 * time.Hour), CheckOut: now.Add(-24 * time.Hour),
	}
	require.NoError(t, env.db.Create(&booking).Error)
	require.NoError(t, env.db.Model(&models.Room{}).Where("room_id = ?", env.room.RoomId).
		Update("status", constants.RoomStatusOccupied).Error)

	_, err := env.svc.UpdateBookingStatus(booking.ID, constants.BookingStatusCompleted)
	require.NoError(t, err)

	var room models.Room
	require.NoError(t, env.db.Where("room_id = ?", env.room.RoomId).First(&room).Error)
	assert.Equal(t, constants.RoomStatusAvailable, room.Status)
}

func TestRetryPaymentOnlyForPendingUnpaid(t *testing.T) {
	env := newBookingTestEnv(t)
	now := time.Now()
	userID := uint(7)

	booking := models.Booking{
		UserID: &userID, RoomID: env.room.RoomId,
		Status: constants.BookingStatusPending, PaymentStatus: constants.PayStatusFailed,
		PaymentMethod: constants.PaymentMethodZaloPay,
		CheckIn:       now.Add(72 * time.Hour), CheckOut: now.Add(96 * time.Hour),
		FinalPrice:    1000000,
	}
	require.NoError(t, env.db.Create(&booking).Error)

	_, payURL, err := env.svc.RetryPayment(booking.ID, &userID, false, constants.PaymentMethodZaloPay)
	require.NoError(t, err)
	assert.Equal(t, "https://pay.example/order", payURL)

	// Đơn đã trả tiền thì không retry được
	require.NoError(t, env.db.Model(&models.Booking{}).Where("id = ?", booking.ID).
		Update("payment_status", constants.PayStatusPaid).Error)
	_, _, err = env.svc.RetryPayment(booking.ID, &userID, false, constants.PaymentMethodZaloPay)
	assert.Error(t, err)
}
