package payment

import (
	"fmt"
	"testing"

	"gostay/constants"
	apperrors "gostay/errors"
	"gostay/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newPaymentTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:gostay_payment_test_%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open sqlite db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{}, &models.Hotel{}, &models.Room{},
		&models.Booking{}, &models.Payment{}, &models.Voucher{},
		&models.Invoice{}, &models.Notification{},
	); err != nil {
		t.Fatalf("failed to migrate db: %v", err)
	}
	return db
}

func seedPendingBooking(t *testing.T, db *gorm.DB, price float64) *models.Booking {
	t.Helper()
	room := models.Room{RoomName: "Phòng 101", Price: int(price), Status: constants.RoomStatusAvailable}
	require.NoError(t, db.Create(&room).Error)
	owner := uint(7)
	booking := models.Booking{
		UserID:       &owner,
		RoomID:       room.RoomId,
		Status:       constants.BookingStatusPending,
		FinalPrice:   price,
		ContactName:  "Nguyễn Văn A",
		ContactEmail: "a@example.com",
		ContactPhone: "0912345678",
	}
	require.NoError(t, db.Create(&booking).Error)
	return &booking
}

func TestNewAttemptSupersedesOldAttempts(t *testing.T) {
	db := newPaymentTestDB(t)
	ledger := NewLedger(db)
	booking := seedPendingBooking(t, db, 1000000)

	first, err := ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "tx-1")
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentStatusPending, first.Status)

	second, err := ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodVNPay, "tx-2")
	require.NoError(t, err)

	// Lượt cũ bị thay thế, chỉ lượt mới còn pending
	var old models.Payment
	require.NoError(t, db.First(&old, first.ID).Error)
	assert.Equal(t, constants.PaymentStatusCancelled, old.Status)

	var pendingCount int64
	require.NoError(t, db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", booking.ID, constants.PaymentStatusPending).
		Count(&pendingCount).Error)
	assert.Equal(t, int64(1), pendingCount)
	assert.Equal(t, "tx-2", second.TransactionID)
}

func TestNewAttemptDoesNotTouchCompleted(t *testing.T) {
	db := newPaymentTestDB(t)
	ledger := NewLedger(db)
	booking := seedPendingBooking(t, db, 1000000)

	first, err := ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "tx-1")
	require.NoError(t, err)
	swapped, err := ledger.Transition(first.ID, constants.PaymentStatusPending, constants.PaymentStatusCompleted, nil)
	require.NoError(t, err)
	require.True(t, swapped)

	_, err = ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "tx-2")
	require.NoError(t, err)

	var completed models.Payment
	require.NoError(t, db.First(&completed, first.ID).Error)
	assert.Equal(t, constants.PaymentStatusCompleted, completed.Status)
}

func TestTransitionIsConditional(t *testing.T) {
	db := newPaymentTestDB(t)
	ledger := NewLedger(db)
	booking := seedPendingBooking(t, db, 1000000)

	payment, err := ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "tx-1")
	require.NoError(t, err)

	swapped, err := ledger.Transition(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusCompleted,
		map[string]interface{}{"gateway_trans_id": "zp-123"})
	require.NoError(t, err)
	assert.True(t, swapped)

	// Lần hai cùng phép chuyển: thua CAS, không ghi đè gì
	swapped, err = ledger.Transition(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, nil)
	require.NoError(t, err)
	assert.False(t, swapped)

	var saved models.Payment
	require.NoError(t, db.First(&saved, payment.ID).Error)
	assert.Equal(t, constants.PaymentStatusCompleted, saved.Status)
	assert.Equal(t, "zp-123", saved.GatewayTransID)
}

func TestPatchGatewayTransIDOnlyFillsEmpty(t *testing.T) {
	db := newPaymentTestDB(t)
	ledger := NewLedger(db)
	booking := seedPendingBooking(t, db, 1000000)

	payment, err := ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "tx-1")
	require.NoError(t, err)

	require.NoError(t, ledger.PatchGatewayTransID(payment.ID, "zp-111"))
	require.NoError(t, ledger.PatchGatewayTransID(payment.ID, "zp-222"))

	var saved models.Payment
	require.NoError(t, db.First(&saved, payment.ID).Error)
	assert.Equal(t, "zp-111", saved.GatewayTransID)
}

func TestFindByTransactionID(t *testing.T) {
	db := newPaymentTestDB(t)
	ledger := NewLedger(db)
	booking := seedPendingBooking(t, db, 1000000)

	_, err := ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "tx-1")
	require.NoError(t, err)

	found, err := ledger.FindByTransactionID("tx-1")
	require.NoError(t, err)
	assert.Equal(t, booking.ID, found.BookingID)

	_, err = ledger.FindByTransactionID("tx-missing")
	assert.ErrorIs(t, err, apperrors.ErrPaymentNotFound)
}
