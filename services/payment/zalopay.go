package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gostay/constants"
	apperrors "gostay/errors"
	"gostay/models"
	"gostay/services/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ZaloPayConfig cấu hình kết nối ZaloPay.
// Key1 ký request gửi đi, Key2 xác thực callback/redirect từ ZaloPay.
type ZaloPayConfig struct {
	AppID       string
	Key1        string
	Key2        string
	Endpoint    string // https://sb-openapi.zalopay.vn/v2
	CallbackURL string // server nhận callback: /api/v1/payment/zalopay/callback
	RedirectURL string // server nhận redirect: /api/v1/payment/zalopay/return
	SuccessPage string // trang client khi thanh toán thành công
	FailPage    string // trang client khi thanh toán thất bại
}

type ZaloPayService struct {
	db           *gorm.DB
	ledger       *Ledger
	reconciler   *Reconciler
	cfg          ZaloPayConfig
	client       *http.Client
	logger       logger.Logger
	recheckDelay time.Duration
}

type ZaloPayOptions struct {
	DB         *gorm.DB
	Ledger     *Ledger
	Reconciler *Reconciler
	Config     ZaloPayConfig
	Logger     logger.Logger
}

func NewZaloPayService(opts ZaloPayOptions) *ZaloPayService {
	return &ZaloPayService{
		db:           opts.DB,
		ledger:       opts.Ledger,
		reconciler:   opts.Reconciler,
		cfg:          opts.Config,
		client:       &http.Client{Timeout: constants.GatewayHTTPTimeout},
		logger:       opts.Logger,
		recheckDelay: constants.RefundRecheckDelay,
	}
}

func (s *ZaloPayService) Method() int {
	return constants.PaymentMethodZaloPay
}

func hmacSHA256(key, data string) string {
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// newAppTransID sinh app_trans_id dạng yymmdd_xxxxxxxx theo yêu cầu ZaloPay
func (s *ZaloPayService) newAppTransID(now time.Time) string {
	return fmt.Sprintf("%s_%s", now.Format("060102"), strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

type zaloPayEmbedData struct {
	BookingID   uint   `json:"bookingid"`
	RedirectURL string `json:"redirecturl"`
}

// CreatePaymentURL tạo đơn trên ZaloPay và trả về order_url.
// Lượt pending/failed cũ của booking bị thay thế trước khi tạo lượt mới.
func (s *ZaloPayService) CreatePaymentURL(booking *models.Booking) (*CreateResult, error) {
	now := time.Now()
	appTransID := s.newAppTransID(now)

	payment, err := s.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodZaloPay, appTransID)
	if err != nil {
		return nil, err
	}

	embed, _ := json.Marshal(zaloPayEmbedData{
		BookingID:   booking.ID,
		RedirectURL: s.cfg.RedirectURL,
	})

	amount := strconv.FormatInt(int64(booking.FinalPrice), 10)
	appTime := strconv.FormatInt(now.UnixMilli(), 10)
	appUser := booking.ContactEmail
	item := "[]"

	// mac = HMAC(key1, appid|app_trans_id|appuser|amount|apptime|embed_data|item)
	macData := strings.Join([]string{
		s.cfg.AppID, appTransID, appUser, amount, appTime, string(embed), item,
	}, "|")

	form := url.Values{}
	form.Set("app_id", s.cfg.AppID)
	form.Set("app_user", appUser)
	form.Set("app_time", appTime)
	form.Set("amount", amount)
	form.Set("app_trans_id", appTransID)
	form.Set("embed_data", string(embed))
	form.Set("item", item)
	form.Set("description", fmt.Sprintf("Thanh toán đơn đặt phòng #%d", booking.ID))
	form.Set("bank_code", "")
	form.Set("callback_url", s.cfg.CallbackURL)
	form.Set("mac", hmacSHA256(s.cfg.Key1, macData))

	resp, err := s.client.PostForm(s.cfg.Endpoint+"/create", form)
	if err != nil {
		s.markCreateFailed(payment)
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var created struct {
		ReturnCode    int    `json:"return_code"`
		ReturnMessage string `json:"return_message"`
		OrderURL      string `json:"order_url"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		s.markCreateFailed(payment)
		return nil, fmt.Errorf("%w: phản hồi create không hợp lệ", apperrors.ErrGateway)
	}
	if created.ReturnCode != 1 {
		s.markCreateFailed(payment)
		return nil, fmt.Errorf("%w: %s", apperrors.ErrGateway, created.ReturnMessage)
	}

	return &CreateResult{PayURL: created.OrderURL, TransactionID: appTransID}, nil
}

func (s *ZaloPayService) markCreateFailed(payment *models.Payment) {
	if _, err := s.ledger.Transition(payment.ID, constants.PaymentStatusPending, constants.PaymentStatusFailed, nil); err != nil {
		s.logger.Error("Không đánh dấu được payment %d thất bại: %v", payment.ID, err)
	}
}

// CallbackAck là envelope trả lời callback theo quy ước ZaloPay
type CallbackAck struct {
	ReturnCode    int    `json:"return_code"`
	ReturnMessage string `json:"return_message"`
}

// HandleCallback xử lý callback server-to-server {data, mac, type}.
// ZaloPay chỉ callback khi thanh toán thành công; gọi lặp lại bao nhiêu
// lần cũng chỉ ghi nhận một lần nhờ Transition có điều kiện.
func (s *ZaloPayService) HandleCallback(raw []byte) CallbackAck {
	var envelope struct {
		Data string `json:"data"`
		Mac  string `json:"mac"`
		Type int    `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return CallbackAck{ReturnCode: 0, ReturnMessage: "invalid payload"}
	}

	if hmacSHA256(s.cfg.Key2, envelope.Data) != envelope.Mac {
		s.logger.Error("Callback ZaloPay sai mac, bỏ qua")
		return CallbackAck{ReturnCode: -1, ReturnMessage: "mac not equal"}
	}

	var data struct {
		AppTransID string `json:"app_trans_id"`
		ZpTransID  int64  `json:"zp_trans_id"`
		Amount     int64  `json:"amount"`
		EmbedData  string `json:"embed_data"`
	}
	if err := json.Unmarshal([]byte(envelope.Data), &data); err != nil || data.AppTransID == "" {
		return CallbackAck{ReturnCode: 0, ReturnMessage: "invalid data"}
	}

	payment, err := s.ledger.FindByTransactionID(data.AppTransID)
	if err != nil {
		s.logger.Error("Callback ZaloPay cho giao dịch lạ %s: %v", data.AppTransID, err)
		return CallbackAck{ReturnCode: 0, ReturnMessage: "transaction not found"}
	}

	if err := s.reconciler.ApplySuccess(payment, strconv.FormatInt(data.ZpTransID, 10)); err != nil {
		s.logger.Error("Đối soát callback ZaloPay %s lỗi: %v", data.AppTransID, err)
		return CallbackAck{ReturnCode: 0, ReturnMessage: "internal error"}
	}

	return CallbackAck{ReturnCode: 1, ReturnMessage: "success"}
}

// HandleRedirect xử lý trình duyệt quay về từ ZaloPay, trả về URL trang
// client cần chuyển tới. Thực hiện cùng phép đối soát với callback vì
// không chắc callback đã tới; mọi lỗi đều đưa về trang thất bại chung.
func (s *ZaloPayService) HandleRedirect(query url.Values) string {
	checksumData := strings.Join([]string{
		query.Get("appid"),
		query.Get("apptransid"),
		query.Get("pmcid"),
		query.Get("bankcode"),
		query.Get("amount"),
		query.Get("discountamount"),
		query.Get("status"),
	}, "|")
	if hmacSHA256(s.cfg.Key2, checksumData) != query.Get("checksum") {
		s.logger.Error("Redirect ZaloPay sai checksum")
		return s.cfg.FailPage + "?reason=invalid_checksum"
	}

	appTransID := query.Get("apptransid")
	payment, err := s.ledger.FindByTransactionID(appTransID)
	if err != nil {
		return s.cfg.FailPage + "?reason=transaction_not_found"
	}

	if query.Get("status") != "1" {
		if err := s.reconciler.ApplyFailure(payment); err != nil {
			s.logger.Error("Đối soát redirect thất bại %s lỗi: %v", appTransID, err)
		}
		return s.cfg.FailPage + "?reason=payment_failed"
	}

	// Truy vấn chủ động trạng thái phía ZaloPay trước khi xác nhận,
	// redirect của trình duyệt không phải nguồn tin cậy duy nhất
	gatewayTransID := ""
	if status, err := s.VerifyTransaction(appTransID); err == nil {
		if !status.Success && !status.Processing {
			if err := s.reconciler.ApplyFailure(payment); err != nil {
				s.logger.Error("Đối soát redirect %s lỗi: %v", appTransID, err)
			}
			return s.cfg.FailPage + "?reason=payment_failed"
		}
		gatewayTransID = status.GatewayTransID
	} else {
		s.logger.Error("Truy vấn trạng thái ZaloPay %s lỗi: %v", appTransID, err)
	}

	if err := s.reconciler.ApplySuccess(payment, gatewayTransID); err != nil {
		s.logger.Error("Đối soát redirect ZaloPay %s lỗi: %v", appTransID, err)
		return s.cfg.FailPage + "?reason=internal_error"
	}

	return fmt.Sprintf("%s?bookingId=%d", s.cfg.SuccessPage, payment.BookingID)
}

// VerifyTransaction truy vấn /query để lấy trạng thái thật của giao dịch
func (s *ZaloPayService) VerifyTransaction(transactionID string) (*TransactionStatus, error) {
	macData := strings.Join([]string{s.cfg.AppID, transactionID, s.cfg.Key1}, "|")

	form := url.Values{}
	form.Set("app_id", s.cfg.AppID)
	form.Set("app_trans_id", transactionID)
	form.Set("mac", hmacSHA256(s.cfg.Key1, macData))

	resp, err := s.client.PostForm(s.cfg.Endpoint+"/query", form)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var queried struct {
		ReturnCode int   `json:"return_code"` // 1: thành công, 2: thất bại, 3: đang xử lý
		ZpTransID  int64 `json:"zp_trans_id"`
		Amount     int64 `json:"amount"`
	}
	if err := json.Unmarshal(body, &queried); err != nil {
		return nil, fmt.Errorf("%w: phản hồi query không hợp lệ", apperrors.ErrGateway)
	}

	return &TransactionStatus{
		Success:        queried.ReturnCode == 1,
		Processing:     queried.ReturnCode == 3,
		GatewayTransID: strconv.FormatInt(queried.ZpTransID, 10),
		Amount:         float64(queried.Amount),
	}, nil
}

// RefundPayment hoàn tiền theo phần trăm chính sách hủy.
// Thành công đồng bộ: payment refunded + booking cancelled ngay tại đây;
// thất bại: refund_failed, booking giữ nguyên; ZaloPay trả "đang xử lý"
// thì chuyển refunding và hẹn giờ kiểm tra lại.
func (s *ZaloPayService) RefundPayment(booking *models.Booking, percent int) (RefundOutcome, error) {
	payment, err := s.ledger.CompletedForBooking(booking.ID)
	if err != nil {
		return RefundFailed, apperrors.ErrNotRefundable
	}

	// Thiếu mã giao dịch phía cổng thì phải truy vấn lấy trước
	if payment.GatewayTransID == "" || payment.GatewayTransID == "0" {
		status, err := s.VerifyTransaction(payment.TransactionID)
		if err != nil {
			return RefundFailed, err
		}
		payment.GatewayTransID = status.GatewayTransID
		if err := s.ledger.PatchGatewayTransID(payment.ID, status.GatewayTransID); err != nil {
			return RefundFailed, err
		}
	}

	refundAmount := payment.Amount * float64(percent) / 100
	now := time.Now()
	mRefundID := fmt.Sprintf("%s_%s_%s", now.Format("060102"), s.cfg.AppID,
		strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
	timestamp := strconv.FormatInt(now.UnixMilli(), 10)
	amount := strconv.FormatInt(int64(refundAmount), 10)
	description := fmt.Sprintf("Hoàn tiền đơn đặt phòng #%d", booking.ID)

	// mac = HMAC(key1, appid|zptransid|amount|description|timestamp)
	macData := strings.Join([]string{s.cfg.AppID, payment.GatewayTransID, amount, description, timestamp}, "|")

	form := url.Values{}
	form.Set("app_id", s.cfg.AppID)
	form.Set("m_refund_id", mRefundID)
	form.Set("zp_trans_id", payment.GatewayTransID)
	form.Set("amount", amount)
	form.Set("timestamp", timestamp)
	form.Set("description", description)
	form.Set("mac", hmacSHA256(s.cfg.Key1, macData))

	resp, err := s.client.PostForm(s.cfg.Endpoint+"/refund", form)
	if err != nil {
		if ferr := s.reconciler.FinishRefundFailure(payment, constants.PaymentStatusCompleted, err.Error()); ferr != nil {
			s.logger.Error("Không ghi được refund_failed cho payment %d: %v", payment.ID, ferr)
		}
		return RefundFailed, fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var refunded struct {
		ReturnCode    int    `json:"return_code"` // 1: thành công, 2: thất bại, 3: đang xử lý
		ReturnMessage string `json:"return_message"`
		RefundID      int64  `json:"refund_id"`
	}
	if err := json.Unmarshal(body, &refunded); err != nil {
		if ferr := s.reconciler.FinishRefundFailure(payment, constants.PaymentStatusCompleted, "phản hồi refund không hợp lệ"); ferr != nil {
			s.logger.Error("Không ghi được refund_failed cho payment %d: %v", payment.ID, ferr)
		}
		return RefundFailed, fmt.Errorf("%w: phản hồi refund không hợp lệ", apperrors.ErrGateway)
	}

	switch refunded.ReturnCode {
	case 1:
		if err := s.reconciler.FinishRefundSuccess(payment, constants.PaymentStatusCompleted, mRefundID, refundAmount); err != nil {
			return RefundFailed, err
		}
		return RefundDone, nil
	case 3:
		if _, err := s.ledger.Transition(payment.ID, constants.PaymentStatusCompleted, constants.PaymentStatusRefunding,
			map[string]interface{}{"refund_transaction_id": mRefundID, "refund_amount": refundAmount}); err != nil {
			return RefundFailed, err
		}
		s.scheduleRefundRecheck(payment.ID, mRefundID, refundAmount)
		return RefundProcessing, nil
	default:
		if err := s.reconciler.FinishRefundFailure(payment, constants.PaymentStatusCompleted, refunded.ReturnMessage); err != nil {
			return RefundFailed, err
		}
		return RefundFailed, nil
	}
}

// scheduleRefundRecheck hẹn giờ hỏi lại /query_refund, không chặn request gốc
func (s *ZaloPayService) scheduleRefundRecheck(paymentID uint, mRefundID string, refundAmount float64) {
	time.AfterFunc(s.recheckDelay, func() {
		s.recheckRefund(paymentID, mRefundID, refundAmount)
	})
}

func (s *ZaloPayService) recheckRefund(paymentID uint, mRefundID string, refundAmount float64) {
	timestamp := strconv.FormatInt(time.Now().UnixMilli(), 10)
	macData := strings.Join([]string{s.cfg.AppID, mRefundID, timestamp}, "|")

	form := url.Values{}
	form.Set("app_id", s.cfg.AppID)
	form.Set("m_refund_id", mRefundID)
	form.Set("timestamp", timestamp)
	form.Set("mac", hmacSHA256(s.cfg.Key1, macData))

	resp, err := s.client.PostForm(s.cfg.Endpoint+"/query_refund", form)
	if err != nil {
		s.logger.Error("Truy vấn trạng thái hoàn tiền %s lỗi: %v", mRefundID, err)
		s.scheduleRefundRecheck(paymentID, mRefundID, refundAmount)
		return
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	var queried struct {
		ReturnCode    int    `json:"return_code"`
		ReturnMessage string `json:"return_message"`
	}
	if err := json.Unmarshal(body, &queried); err != nil {
		// Phản hồi hỏng cũng coi như chưa hỏi được, hẹn lại để payment
		// không kẹt mãi ở refunding
		s.logger.Error("Phản hồi query_refund không hợp lệ cho %s", mRefundID)
		s.scheduleRefundRecheck(paymentID, mRefundID, refundAmount)
		return
	}

	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		s.logger.Error("Không tìm thấy payment %d khi kiểm tra hoàn tiền: %v", paymentID, err)
		return
	}

	switch queried.ReturnCode {
	case 1:
		if err := s.reconciler.FinishRefundSuccess(&payment, constants.PaymentStatusRefunding, mRefundID, refundAmount); err != nil {
			s.logger.Error("Chốt hoàn tiền %s lỗi: %v", mRefundID, err)
		}
	case 3:
		s.scheduleRefundRecheck(paymentID, mRefundID, refundAmount)
	default:
		if err := s.reconciler.FinishRefundFailure(&payment, constants.PaymentStatusRefunding, queried.ReturnMessage); err != nil {
			s.logger.Error("Ghi refund_failed cho %s lỗi: %v", mRefundID, err)
		}
	}
}
