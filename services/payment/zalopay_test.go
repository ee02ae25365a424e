package payment

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"gostay/constants"
	"gostay/models"
	"gostay/services/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey1 = "key1-test"
	testKey2 = "key2-test"
)

type zaloPayTestEnv struct {
	*reconcileTestEnv
	svc *ZaloPayService
}

func newZaloPayTestEnv(t *testing.T, endpoint string) *zaloPayTestEnv {
	t.Helper()
	base := newReconcileTestEnv(t)
	svc := NewZaloPayService(ZaloPayOptions{
		DB:         base.db,
		Ledger:     base.ledger,
		Reconciler: base.reconciler,
		Logger:     logger.NewDefaultLogger(logger.ErrorLevel),
		Config: ZaloPayConfig{
			AppID:       "2553",
			Key1:        testKey1,
			Key2:        testKey2,
			Endpoint:    endpoint,
			CallbackURL: "https://api.example/payment/zalopay/callback",
			RedirectURL: "https://api.example/payment/zalopay/return",
			SuccessPage: "https://app.example/payment/success",
			FailPage:    "https://app.example/payment/fail",
		},
	})
	svc.recheckDelay = 10 * time.Millisecond
	return &zaloPayTestEnv{reconcileTestEnv: base, svc: svc}
}

func signedCallbackBody(t *testing.T, appTransID string, zpTransID int64) []byte {
	t.Helper()
	data, err := json.Marshal(map[string]interface{}{
		"app_trans_id": appTransID,
		"zp_trans_id":  zpTransID,
		"amount":       1000000,
	})
	require.NoError(t, err)

	body, err := json.Marshal(map[string]interface{}{
		"data": string(data),
		"mac":  hmacSHA256(testKey2, string(data)),
		"type": 1,
	})
	require.NoError(t, err)
	return body
}

func TestZaloPayCallbackRejectsBadMac(t *testing.T) {
	env := newZaloPayTestEnv(t, "http://unused")

	data := `{"app_trans_id":"tx-1"}`
	body, _ := json.Marshal(map[string]interface{}{
		"data": data,
		"mac":  "deadbeef",
		"type": 1,
	})

	ack := env.svc.HandleCallback(body)
	assert.Equal(t, -1, ack.ReturnCode)

	// Không có gì bị ghi nhận
	assert.Equal(t, 0, env.notifier.paymentConfirmed)
}

func TestZaloPayCallbackUnknownTransaction(t *testing.T) {
	env := newZaloPayTestEnv(t, "http://unused")

	ack := env.svc.HandleCallback(signedCallbackBody(t, "tx-unknown", 111))
	assert.Equal(t, 0, ack.ReturnCode)
}

func TestZaloPayCallbackConfirmsPayment(t *testing.T) {
	env := newZaloPayTestEnv(t, "http://unused")
	booking := seedPendingBooking(t, env.db, 1000000)
	_, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)

	ack := env.svc.HandleCallback(signedCallbackBody(t, "260828_abc123", 240828000001))
	assert.Equal(t, 1, ack.ReturnCode)

	var savedBooking models.Booking
	require.NoError(t, env.db.First(&savedBooking, booking.ID).Error)
	assert.Equal(t, constants.BookingStatusConfirmed, savedBooking.Status)
	assert.Equal(t, constants.PayStatusPaid, savedBooking.PaymentStatus)

	payment, err := env.ledger.FindByTransactionID("260828_abc123")
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "240828000001", payment.GatewayTransID)
}

func TestZaloPayCallbackRetryIsIdempotent(t *testing.T) {
	env := newZaloPayTestEnv(t, "http://unused")
	booking := seedPendingBooking(t, env.db, 1000000)
	_, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)

	body := signedCallbackBody(t, "260828_abc123", 240828000001)
	for i := 0; i < 3; i++ {
		ack := env.svc.HandleCallback(body)
		assert.Equal(t, 1, ack.ReturnCode)
	}

	// Email/thông báo chỉ đi một lần dù cổng gửi lại callback
	assert.Equal(t, 1, env.notifier.paymentConfirmed)
	assert.Equal(t, 1, env.mailer.invoices)
}

func zaloPayRedirectQuery(appTransID, status string) url.Values {
	q := url.Values{}
	q.Set("appid", "2553")
	q.Set("apptransid", appTransID)
	q.Set("pmcid", "38")
	q.Set("bankcode", "")
	q.Set("amount", "1000000")
	q.Set("discountamount", "0")
	q.Set("status", status)

	checksumData := strings.Join([]string{
		q.Get("appid"), q.Get("apptransid"), q.Get("pmcid"),
		q.Get("bankcode"), q.Get("amount"), q.Get("discountamount"), q.Get("status"),
	}, "|")
	q.Set("checksum", hmacSHA256(testKey2, checksumData))
	return q
}

func TestZaloPayRedirectRejectsBadChecksum(t *testing.T) {
	env := newZaloPayTestEnv(t, "http://unused")

	q := zaloPayRedirectQuery("tx-1", "1")
	q.Set("checksum", "deadbeef")

	target := env.svc.HandleRedirect(q)
	assert.Contains(t, target, env.svc.cfg.FailPage)
}

func TestZaloPayRedirectFailedStatus(t *testing.T) {
	env := newZaloPayTestEnv(t, "http://unused")
	booking := seedPendingBooking(t, env.db, 1000000)
	_, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)

	target := env.svc.HandleRedirect(zaloPayRedirectQuery("260828_abc123", "-49"))
	assert.Contains(t, target, env.svc.cfg.FailPage)

	payment, err := env.ledger.FindByTransactionID("260828_abc123")
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentStatusFailed, payment.Status)

	var savedBooking models.Booking
	require.NoError(t, env.db.First(&savedBooking, booking.ID).Error)
	assert.Equal(t, constants.BookingStatusPending, savedBooking.Status)
	assert.Equal(t, constants.PayStatusFailed, savedBooking.PaymentStatus)
}

func TestZaloPayRedirectSuccessVerifiesWithGateway(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/query", r.URL.Path)
		fmt.Fprint(w, `{"return_code":1,"zp_trans_id":240828000001,"amount":1000000}`)
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)
	_, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)

	target := env.svc.HandleRedirect(zaloPayRedirectQuery("260828_abc123", "1"))
	assert.Contains(t, target, env.svc.cfg.SuccessPage)
	assert.Contains(t, target, fmt.Sprintf("bookingId=%d", booking.ID))

	payment, err := env.ledger.FindByTransactionID("260828_abc123")
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentStatusCompleted, payment.Status)
	assert.Equal(t, "240828000001", payment.GatewayTransID)
}

func TestZaloPayRedirectAfterCallbackDoesNotRenotify(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"return_code":1,"zp_trans_id":240828000001,"amount":1000000}`)
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)
	_, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)

	env.svc.HandleCallback(signedCallbackBody(t, "260828_abc123", 240828000001))
	target := env.svc.HandleRedirect(zaloPayRedirectQuery("260828_abc123", "1"))

	assert.Contains(t, target, env.svc.cfg.SuccessPage)
	assert.Equal(t, 1, env.notifier.paymentConfirmed)
	assert.Equal(t, 1, env.mailer.invoices)
}

func TestZaloPayCreatePaymentURL(t *testing.T) {
	var gotMac, gotAppTransID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/create", r.URL.Path)
		require.NoError(t, r.ParseForm())
		gotMac = r.FormValue("mac")
		gotAppTransID = r.FormValue("app_trans_id")

		// Xác thực lại mac như phía ZaloPay
		macData := strings.Join([]string{
			r.FormValue("app_id"), r.FormValue("app_trans_id"), r.FormValue("app_user"),
			r.FormValue("amount"), r.FormValue("app_time"), r.FormValue("embed_data"), r.FormValue("item"),
		}, "|")
		require.Equal(t, hmacSHA256(testKey1, macData), gotMac)

		fmt.Fprint(w, `{"return_code":1,"return_message":"success","order_url":"https://sb.zalopay.vn/order/xyz"}`)
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)

	result, err := env.svc.CreatePaymentURL(booking)
	require.NoError(t, err)
	assert.Equal(t, "https://sb.zalopay.vn/order/xyz", result.PayURL)
	assert.Equal(t, gotAppTransID, result.TransactionID)

	payment, err := env.ledger.FindByTransactionID(result.TransactionID)
	require.NoError(t, err)
	assert.Equal(t, constants.PaymentStatusPending, payment.Status)
	assert.Equal(t, booking.FinalPrice, payment.Amount)
}

func TestZaloPayCreatePaymentURLGatewayReject(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"return_code":2,"return_message":"app_id invalid"}`)
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)

	_, err := env.svc.CreatePaymentURL(booking)
	require.Error(t, err)

	// Lượt thanh toán bị đánh dấu thất bại, không kẹt ở pending
	var count int64
	require.NoError(t, env.db.Model(&models.Payment{}).
		Where("booking_id = ? AND status = ?", booking.ID, constants.PaymentStatusPending).
		Count(&count).Error)
	assert.Equal(t, int64(0), count)
}

func TestZaloPayRefundSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/refund", r.URL.Path)
		require.NoError(t, r.ParseForm())

		macData := strings.Join([]string{
			r.FormValue("app_id"), r.FormValue("zp_trans_id"), r.FormValue("amount"),
			r.FormValue("description"), r.FormValue("timestamp"),
		}, "|")
		require.Equal(t, hmacSHA256(testKey1, macData), r.FormValue("mac"))
		require.Equal(t, "700000", r.FormValue("amount"))

		fmt.Fprint(w, `{"return_code":1,"return_message":"success","refund_id":1}`)
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)
	payment, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)
	require.NoError(t, env.reconciler.ApplySuccess(payment, "240828000001"))

	outcome, err := env.svc.RefundPayment(booking, 70)
	require.NoError(t, err)
	assert.Equal(t, RefundDone, outcome)

	var savedPayment models.Payment
	require.NoError(t, env.db.First(&savedPayment, payment.ID).Error)
	assert.Equal(t, constants.PaymentStatusRefunded, savedPayment.Status)
	assert.Equal(t, float64(700000), savedPayment.RefundAmount)

	var savedBooking models.Booking
	require.NoError(t, env.db.First(&savedBooking, booking.ID).Error)
	assert.Equal(t, constants.BookingStatusCancelled, savedBooking.Status)
}

func TestZaloPayRefundRejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"return_code":2,"return_message":"refund not allowed"}`)
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)
	payment, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)
	require.NoError(t, env.reconciler.ApplySuccess(payment, "240828000001"))

	outcome, err := env.svc.RefundPayment(booking, 100)
	require.NoError(t, err)
	assert.Equal(t, RefundFailed, outcome)

	var savedPayment models.Payment
	require.NoError(t, env.db.First(&savedPayment, payment.ID).Error)
	assert.Equal(t, constants.PaymentStatusRefundFailed, savedPayment.Status)
	assert.Equal(t, "refund not allowed", savedPayment.RefundFailReason)

	// Booking vẫn confirmed để xử lý tay
	var savedBooking models.Booking
	require.NoError(t, env.db.First(&savedBooking, booking.ID).Error)
	assert.Equal(t, constants.BookingStatusConfirmed, savedBooking.Status)
}

func TestZaloPayRefundProcessingThenSettled(t *testing.T) {
	queryCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refund":
			fmt.Fprint(w, `{"return_code":3,"return_message":"processing"}`)
		case "/query_refund":
			queryCount++
			fmt.Fprint(w, `{"return_code":1,"return_message":"success"}`)
		}
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)
	payment, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)
	require.NoError(t, env.reconciler.ApplySuccess(payment, "240828000001"))

	outcome, err := env.svc.RefundPayment(booking, 100)
	require.NoError(t, err)
	assert.Equal(t, RefundProcessing, outcome)

	var savedPayment models.Payment
	require.NoError(t, env.db.First(&savedPayment, payment.ID).Error)
	assert.Equal(t, constants.PaymentStatusRefunding, savedPayment.Status)

	// Đợi lượt kiểm tra lại chốt kết quả
	require.Eventually(t, func() bool {
		var p models.Payment
		if err := env.db.First(&p, payment.ID).Error; err != nil {
			return false
		}
		return p.Status == constants.PaymentStatusRefunded
	}, 2*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, queryCount, 1)
}

func TestZaloPayRefundRecheckRetriesOnBadResponse(t *testing.T) {
	queryCount := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/refund":
			fmt.Fprint(w, `{"return_code":3,"return_message":"processing"}`)
		case "/query_refund":
			queryCount++
			if queryCount == 1 {
				// Phản hồi hỏng không được làm payment kẹt ở refunding
				fmt.Fprint(w, `<html>bad gateway</html>`)
				return
			}
			fmt.Fprint(w, `{"return_code":1,"return_message":"success"}`)
		}
	}))
	defer server.Close()

	env := newZaloPayTestEnv(t, server.URL)
	booking := seedPendingBooking(t, env.db, 1000000)
	payment, err := env.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, "260828_abc123")
	require.NoError(t, err)
	require.NoError(t, env.reconciler.ApplySuccess(payment, "240828000001"))

	outcome, err := env.svc.RefundPayment(booking, 100)
	require.NoError(t, err)
	assert.Equal(t, RefundProcessing, outcome)

	require.Eventually(t, func() bool {
		var p models.Payment
		if err := env.db.First(&p, payment.ID).Error; err != nil {
			return false
		}
		return p.Status == constants.PaymentStatusRefunded
	}, 2*time.Second, 20*time.Millisecond)
	assert.GreaterOrEqual(t, queryCount, 2)
}
