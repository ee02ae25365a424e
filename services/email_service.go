package services

import (
	"fmt"
	"net/smtp"

	"gostay/config"
	"gostay/models"
)

// EmailService gửi email giao dịch cho khách qua SMTP.
// Thỏa cả payment.Mailer lẫn BookingMailer.
type EmailService struct {
	from     string
	password string
	host     string
	port     string
}

func NewEmailService() *EmailService {
	return &EmailService{
		from:     config.GetEnv("SMTP_FROM"),
		password: config.GetEnv("SMTP_PASSWORD"),
		host:     config.GetEnvDefault("SMTP_HOST", "smtp.gmail.com"),
		port:     config.GetEnvDefault("SMTP_PORT", "587"),
	}
}

func (s *EmailService) send(to, subject, body string) error {
	msg := []byte("MIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n" +
		"Subject: " + subject + "\n\n" + body)
	auth := smtp.PlainAuth("", s.from, s.password, s.host)
	return smtp.SendMail(s.host+":"+s.port, auth, s.from, []string{to}, msg)
}

// SendBookingEmail gửi email xác nhận đã giữ chỗ, nhắc hạn thanh toán
func (s *EmailService) SendBookingEmail(booking *models.Booking) error {
	body := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head><meta charset="UTF-8"><title>Xác nhận đặt phòng</title></head>
		<body>
			<p>Xin chào %s,</p>
			<p>Đơn đặt phòng <strong>#%d</strong> của bạn đã được tạo thành công.</p>
			<p>Phòng: <strong>%s</strong></p>
			<p>Nhận phòng: %s (từ 14:00) — Trả phòng: %s (trước 12:00)</p>
			<p>Tổng tiền: <strong>%.0f VND</strong></p>
			<p>Vui lòng hoàn tất thanh toán trong vòng 15 phút để giữ phòng.</p>
			<p>Xin cám ơn,<br>Đội ngũ GoStay</p>
		</body>
		</html>
	`, booking.ContactName, booking.ID, booking.Room.RoomName,
		booking.CheckIn.In(hcmLocation).Format("02/01/2006"),
		booking.CheckOut.In(hcmLocation).Format("02/01/2006"),
		booking.FinalPrice)

	return s.send(booking.ContactEmail, "Xác nhận đặt phòng GoStay", body)
}

// SendInvoiceEmail gửi hóa đơn sau khi thanh toán thành công
func (s *EmailService) SendInvoiceEmail(booking *models.Booking, payment *models.Payment) error {
	body := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head><meta charset="UTF-8"><title>Hóa đơn thanh toán</title></head>
		<body>
			<p>Xin chào %s,</p>
			<p>Đơn đặt phòng <strong>#%d</strong> đã được thanh toán thành công.</p>
			<p>Mã giao dịch: <strong>%s</strong></p>
			<p>Số tiền: <strong>%.0f VND</strong></p>
			<p>Phòng: %s — Nhận phòng: %s</p>
			<p>Chúc bạn có kỳ nghỉ vui vẻ!</p>
			<p>Xin cám ơn,<br>Đội ngũ GoStay</p>
		</body>
		</html>
	`, booking.ContactName, booking.ID, payment.TransactionID, payment.Amount,
		booking.Room.RoomName, booking.CheckIn.In(hcmLocation).Format("02/01/2006"))

	return s.send(booking.ContactEmail, "Hóa đơn thanh toán GoStay", body)
}

// SendRefundEmail gửi thông báo hoàn tiền sau khi hủy đơn đã thanh toán
func (s *EmailService) SendRefundEmail(booking *models.Booking, amount float64) error {
	body := fmt.Sprintf(`
		<!DOCTYPE html>
		<html>
		<head><meta charset="UTF-8"><title>Thông báo hoàn tiền</title></head>
		<body>
			<p>Xin chào %s,</p>
			<p>Đơn đặt phòng <strong>#%d</strong> của bạn đã được hủy.</p>
			<p>Số tiền hoàn lại: <strong>%.0f VND</strong></p>
			<p>Tiền hoàn sẽ về tài khoản của bạn trong 3-5 ngày làm việc tùy ngân hàng.</p>
			<p>Xin cám ơn,<br>Đội ngũ GoStay</p>
		</body>
		</html>
	`, booking.ContactName, booking.ID, amount)

	return s.send(booking.ContactEmail, "Thông báo hoàn tiền GoStay", body)
}
