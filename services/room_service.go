package services

import (
	"time"

	"gostay/constants"
	"gostay/models"

	"gorm.io/gorm"
)

// hcmLocation múi giờ hiển thị/chuẩn hóa giờ nhận trả phòng
var hcmLocation = func() *time.Location {
	loc, err := time.LoadLocation("Asia/Ho_Chi_Minh")
	if err != nil {
		return time.FixedZone("ICT", 7*3600)
	}
	return loc
}()

// NormalizeCheckIn đưa ngày nhận phòng về 14:00 giờ địa phương, lưu UTC
func NormalizeCheckIn(t time.Time) time.Time {
	local := t.In(hcmLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), constants.CheckInHour, 0, 0, 0, hcmLocation).UTC()
}

// NormalizeCheckOut đưa ngày trả phòng về 12:00 giờ địa phương, lưu UTC
func NormalizeCheckOut(t time.Time) time.Time {
	local := t.In(hcmLocation)
	return time.Date(local.Year(), local.Month(), local.Day(), constants.CheckOutHour, 0, 0, 0, hcmLocation).UTC()
}

// RoomService kiểm tra phòng trống dựa trên các booking đang giữ phòng
type RoomService struct {
	db *gorm.DB
}

func NewRoomService(db *gorm.DB) *RoomService {
	return &RoomService{db: db}
}

// IsRoomAvailable kiểm tra phòng có trống trong khoảng [checkIn, checkOut) không.
// Booking đã hủy không bao giờ chặn phòng; hai khoảng chạm nhau đúng tại mốc
// trả/nhận phòng (checkOut == checkIn của đơn khác) không tính là trùng.
func (s *RoomService) IsRoomAvailable(roomID uint, checkIn, checkOut time.Time) (bool, error) {
	return s.isRoomAvailableTx(s.db, roomID, checkIn, checkOut)
}

func (s *RoomService) isRoomAvailableTx(tx *gorm.DB, roomID uint, checkIn, checkOut time.Time) (bool, error) {
	// Chuẩn hóa lại phòng trường hợp caller truyền mốc giờ tùy ý
	checkIn = NormalizeCheckIn(checkIn)
	checkOut = NormalizeCheckOut(checkOut)

	var count int64
	err := tx.Model(&models.Booking{}).
		Where("room_id = ? AND status IN ? AND check_in < ? AND check_out > ?",
			roomID,
			[]int{constants.BookingStatusPending, constants.BookingStatusConfirmed},
			checkOut, checkIn).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count == 0, nil
}

// GetBookedRoomIDs trả về tập ID các phòng đã có booking đang giữ phòng
// trùng với khoảng ngày, dùng cho tìm kiếm phòng trống toàn hệ thống.
func (s *RoomService) GetBookedRoomIDs(checkIn, checkOut time.Time) ([]uint, error) {
	checkIn = NormalizeCheckIn(checkIn)
	checkOut = NormalizeCheckOut(checkOut)

	var roomIDs []uint
	err := s.db.Model(&models.Booking{}).
		Distinct("room_id").
		Where("status IN ? AND check_in < ? AND check_out > ?",
			[]int{constants.BookingStatusPending, constants.BookingStatusConfirmed},
			checkOut, checkIn).
		Pluck("room_id", &roomIDs).Error
	if err != nil {
		return nil, err
	}
	return roomIDs, nil
}

// GetRoomByID lấy phòng theo ID
func (s *RoomService) GetRoomByID(roomID uint) (*models.Room, error) {
	var room models.Room
	if err := s.db.First(&room, roomID).Error; err != nil {
		return nil, err
	}
	return &room, nil
}
