package payment

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
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

// VNPayConfig cấu hình kết nối VNPay
type VNPayConfig struct {
	TmnCode     string
	HashSecret  string
	PayURL      string // https://sandbox.vnpayment.vn/paymentv2/vpcpay.html
	APIURL      string // https://sandbox.vnpayment.vn/merchant_webapi/api/transaction
	ReturnURL   string // server nhận redirect: /api/v1/payment/vnpay/return
	SuccessPage string
	FailPage    string
}

type VNPayService struct {
	db         *gorm.DB
	ledger     *Ledger
	reconciler *Reconciler
	cfg        VNPayConfig
	client     *http.Client
	logger     logger.Logger
}

type VNPayOptions struct {
	DB         *gorm.DB
	Ledger     *Ledger
	Reconciler *Reconciler
	Config     VNPayConfig
	Logger     logger.Logger
}

func NewVNPayService(opts VNPayOptions) *VNPayService {
	return &VNPayService{
		db:         opts.DB,
		ledger:     opts.Ledger,
		reconciler: opts.Reconciler,
		cfg:        opts.Config,
		client:     &http.Client{Timeout: constants.GatewayHTTPTimeout},
		logger:     opts.Logger,
	}
}

func (s *VNPayService) Method() int {
	return constants.PaymentMethodVNPay
}

func hmacSHA512(key, data string) string {
	mac := hmac.New(sha512.New, []byte(key))
	mac.Write([]byte(data))
	return hex.EncodeToString(mac.Sum(nil))
}

// signedQuery sắp xếp tham số theo tên, escape từng giá trị rồi ký
// HMAC-SHA512 trên chuỗi đã escape — đúng thứ tự VNPay dùng để đối chiếu
func (s *VNPayService) signedQuery(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		if params[k] != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(params[k]))
	}
	query := b.String()
	return query + "&vnp_SecureHash=" + hmacSHA512(s.cfg.HashSecret, query)
}

// verifySignature kiểm tra vnp_SecureHash trên toàn bộ tham số còn lại
func (s *VNPayService) verifySignature(query url.Values) bool {
	received := query.Get("vnp_SecureHash")
	if received == "" {
		return false
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(url.QueryEscape(k))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(query.Get(k)))
	}
	return hmac.Equal([]byte(hmacSHA512(s.cfg.HashSecret, b.String())), []byte(received))
}

// CreatePaymentURL dựng URL thanh toán ký sẵn, không cần gọi VNPay trước.
// vnp_TxnRef là mã giao dịch nội bộ, VNPay trả lại nguyên vẹn khi IPN/redirect.
func (s *VNPayService) CreatePaymentURL(booking *models.Booking) (*CreateResult, error) {
	now := time.Now().In(hcmLoc())
	txnRef := fmt.Sprintf("%s%s", now.Format("060102"), strings.ReplaceAll(uuid.NewString(), "-", "")[:12])

	if _, err := s.ledger.NewAttempt(booking.ID, booking.FinalPrice, constants.PaymentMethodVNPay, txnRef); err != nil {
		return nil, err
	}

	params := map[string]string{
		"vnp_Version":    "2.1.0",
		"vnp_Command":    "pay",
		"vnp_TmnCode":    s.cfg.TmnCode,
		"vnp_Amount":     strconv.FormatInt(int64(booking.FinalPrice)*100, 10),
		"vnp_CurrCode":   "VND",
		"vnp_TxnRef":     txnRef,
		"vnp_OrderInfo":  fmt.Sprintf("Thanh toan don dat phong %d", booking.ID),
		"vnp_OrderType":  "other",
		"vnp_Locale":     "vn",
		"vnp_ReturnUrl":  s.cfg.ReturnURL,
		"vnp_IpAddr":     "127.0.0.1",
		"vnp_CreateDate": now.Format("20060102150405"),
		"vnp_ExpireDate": now.Add(constants.PaymentWindow).Format("20060102150405"),
	}

	return &CreateResult{
		PayURL:        s.cfg.PayURL + "?" + s.signedQuery(params),
		TransactionID: txnRef,
	}, nil
}

// IPNAck là envelope trả lời IPN theo quy ước VNPay
type IPNAck struct {
	RspCode string `json:"RspCode"`
	Message string `json:"Message"`
}

// HandleIPN xử lý thông báo server-to-server của VNPay.
// Trả đúng RspCode để VNPay ngừng gửi lại: "00" đã ghi nhận, "02" đã
// xử lý trước đó, còn lại là lỗi dữ liệu.
func (s *VNPayService) HandleIPN(query url.Values) IPNAck {
	if !s.verifySignature(query) {
		s.logger.Error("IPN VNPay sai chữ ký, bỏ qua")
		return IPNAck{RspCode: "97", Message: "Invalid signature"}
	}

	txnRef := query.Get("vnp_TxnRef")
	payment, err := s.ledger.FindByTransactionID(txnRef)
	if err != nil {
		return IPNAck{RspCode: "01", Message: "Order not found"}
	}

	amount, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil || float64(amount) != payment.Amount*100 {
		return IPNAck{RspCode: "04", Message: "Invalid amount"}
	}

	if payment.Status != constants.PaymentStatusPending {
		return IPNAck{RspCode: "02", Message: "Order already confirmed"}
	}

	if query.Get("vnp_ResponseCode") == "00" {
		if err := s.reconciler.ApplySuccess(payment, query.Get("vnp_TransactionNo")); err != nil {
			s.logger.Error("Đối soát IPN VNPay %s lỗi: %v", txnRef, err)
			return IPNAck{RspCode: "99", Message: "Unknown error"}
		}
	} else {
		if err := s.reconciler.ApplyFailure(payment); err != nil {
			s.logger.Error("Đối soát IPN thất bại %s lỗi: %v", txnRef, err)
			return IPNAck{RspCode: "99", Message: "Unknown error"}
		}
	}

	return IPNAck{RspCode: "00", Message: "Confirm Success"}
}

// HandleRedirect xử lý trình duyệt quay về từ VNPay, trả về URL trang
// client. Thực hiện cùng phép đối soát với IPN vì hai đường có thể đến
// theo thứ tự bất kỳ; bên đến sau thành no-op.
func (s *VNPayService) HandleRedirect(query url.Values) string {
	if !s.verifySignature(query) {
		s.logger.Error("Redirect VNPay sai chữ ký")
		return s.cfg.FailPage + "?reason=invalid_signature"
	}

	txnRef := query.Get("vnp_TxnRef")
	payment, err := s.ledger.FindByTransactionID(txnRef)
	if err != nil {
		return s.cfg.FailPage + "?reason=transaction_not_found"
	}

	if query.Get("vnp_ResponseCode") != "00" {
		if err := s.reconciler.ApplyFailure(payment); err != nil {
			s.logger.Error("Đối soát redirect thất bại %s lỗi: %v", txnRef, err)
		}
		return s.cfg.FailPage + "?reason=payment_failed"
	}

	if err := s.reconciler.ApplySuccess(payment, query.Get("vnp_TransactionNo")); err != nil {
		s.logger.Error("Đối soát redirect VNPay %s lỗi: %v", txnRef, err)
		return s.cfg.FailPage + "?reason=internal_error"
	}

	return fmt.Sprintf("%s?bookingId=%d", s.cfg.SuccessPage, payment.BookingID)
}

func (s *VNPayService) postJSON(payload interface{}, out interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	resp, err := s.client.Post(s.cfg.APIURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: phản hồi không hợp lệ", apperrors.ErrGateway)
	}
	return nil
}

// VerifyTransaction truy vấn querydr để lấy trạng thái thật của giao dịch
func (s *VNPayService) VerifyTransaction(transactionID string) (*TransactionStatus, error) {
	payment, err := s.ledger.FindByTransactionID(transactionID)
	if err != nil {
		return nil, err
	}

	now := time.Now().In(hcmLoc())
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	createDate := now.Format("20060102150405")
	orderInfo := fmt.Sprintf("Truy van giao dich %s", transactionID)

	// hash = HMAC(secret, requestId|version|command|tmnCode|txnRef|transDate|createDate|ipAddr|orderInfo)
	hashData := strings.Join([]string{
		requestID, "2.1.0", "querydr", s.cfg.TmnCode, transactionID,
		payment.CreatedAt.In(hcmLoc()).Format("20060102150405"), createDate, "127.0.0.1", orderInfo,
	}, "|")

	payload := map[string]string{
		"vnp_RequestId":       requestID,
		"vnp_Version":         "2.1.0",
		"vnp_Command":         "querydr",
		"vnp_TmnCode":         s.cfg.TmnCode,
		"vnp_TxnRef":          transactionID,
		"vnp_OrderInfo":       orderInfo,
		"vnp_TransactionDate": payment.CreatedAt.In(hcmLoc()).Format("20060102150405"),
		"vnp_CreateDate":      createDate,
		"vnp_IpAddr":          "127.0.0.1",
		"vnp_SecureHash":      hmacSHA512(s.cfg.HashSecret, hashData),
	}

	var queried struct {
		ResponseCode      string `json:"vnp_ResponseCode"`
		TransactionStatus string `json:"vnp_TransactionStatus"`
		TransactionNo     string `json:"vnp_TransactionNo"`
		Amount            string `json:"vnp_Amount"`
	}
	if err := s.postJSON(payload, &queried); err != nil {
		return nil, err
	}

	amount, _ := strconv.ParseFloat(queried.Amount, 64)
	return &TransactionStatus{
		Success:        queried.ResponseCode == "00" && queried.TransactionStatus == "00",
		Processing:     queried.TransactionStatus == "01",
		GatewayTransID: queried.TransactionNo,
		Amount:         amount / 100,
	}, nil
}

// RefundPayment hoàn tiền qua API refund của VNPay. VNPay trả kết quả
// đồng bộ nên không có nhánh "đang xử lý" như ZaloPay.
func (s *VNPayService) RefundPayment(booking *models.Booking, percent int) (RefundOutcome, error) {
	payment, err := s.ledger.CompletedForBooking(booking.ID)
	if err != nil {
		return RefundFailed, apperrors.ErrNotRefundable
	}

	refundAmount := payment.Amount * float64(percent) / 100
	transType := "02" // hoàn một phần
	if percent >= 100 {
		transType = "03" // hoàn toàn phần
	}

	now := time.Now().In(hcmLoc())
	requestID := strings.ReplaceAll(uuid.NewString(), "-", "")[:16]
	createDate := now.Format("20060102150405")
	transDate := payment.CreatedAt.In(hcmLoc()).Format("20060102150405")
	amount := strconv.FormatInt(int64(refundAmount)*100, 10)
	orderInfo := fmt.Sprintf("Hoan tien don dat phong %d", booking.ID)
	createBy := "system"

	hashData := strings.Join([]string{
		requestID, "2.1.0", "refund", s.cfg.TmnCode, transType, payment.TransactionID,
		amount, payment.GatewayTransID, transDate, createBy, createDate, "127.0.0.1", orderInfo,
	}, "|")

	payload := map[string]string{
		"vnp_RequestId":       requestID,
		"vnp_Version":         "2.1.0",
		"vnp_Command":         "refund",
		"vnp_TmnCode":         s.cfg.TmnCode,
		"vnp_TransactionType": transType,
		"vnp_TxnRef":          payment.TransactionID,
		"vnp_Amount":          amount,
		"vnp_TransactionNo":   payment.GatewayTransID,
		"vnp_TransactionDate": transDate,
		"vnp_CreateBy":        createBy,
		"vnp_CreateDate":      createDate,
		"vnp_IpAddr":          "127.0.0.1",
		"vnp_OrderInfo":       orderInfo,
		"vnp_SecureHash":      hmacSHA512(s.cfg.HashSecret, hashData),
	}

	var refunded struct {
		ResponseCode  string `json:"vnp_ResponseCode"`
		Message       string `json:"vnp_Message"`
		TransactionNo string `json:"vnp_TransactionNo"`
	}
	if err := s.postJSON(payload, &refunded); err != nil {
		if ferr := s.reconciler.FinishRefundFailure(payment, constants.PaymentStatusCompleted, err.Error()); ferr != nil {
			s.logger.Error("Không ghi được refund_failed cho payment %d: %v", payment.ID, ferr)
		}
		return RefundFailed, err
	}

	if refunded.ResponseCode != "00" {
		if err := s.reconciler.FinishRefundFailure(payment, constants.PaymentStatusCompleted, refunded.Message); err != nil {
			return RefundFailed, err
		}
		return RefundFailed, nil
	}

	if err := s.reconciler.FinishRefundSuccess(payment, constants.PaymentStatusCompleted, refunded.TransactionNo, refundAmount); err != nil {
		return RefundFailed, err
	}
	return RefundDone, nil
}

func hcmLoc() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}
