package controllers

import (
	"strconv"
	"time"

	"gostay/models"
	"gostay/response"
	"gostay/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type RoomController struct {
	db    *gorm.DB
	rooms *services.RoomService
}

func NewRoomController(db *gorm.DB, rooms *services.RoomService) *RoomController {
	return &RoomController{db: db, rooms: rooms}
}

func parseDateRange(c *gin.Context) (time.Time, time.Time, bool) {
	checkIn, err := time.Parse("02/01/2006", c.Query("checkIn"))
	if err != nil {
		response.BadRequest(c, "Định dạng ngày nhận phòng không hợp lệ")
		return time.Time{}, time.Time{}, false
	}
	checkOut, err := time.Parse("02/01/2006", c.Query("checkOut"))
	if err != nil {
		response.BadRequest(c, "Định dạng ngày trả phòng không hợp lệ")
		return time.Time{}, time.Time{}, false
	}
	if !checkOut.After(checkIn) {
		response.BadRequest(c, "Ngày trả phòng phải sau ngày nhận phòng")
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}

// CheckAvailability kiểm tra một phòng có trống trong khoảng ngày không
func (ctl *RoomController) CheckAvailability(c *gin.Context) {
	roomID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "ID không hợp lệ")
		return
	}

	checkIn, checkOut, ok := parseDateRange(c)
	if !ok {
		return
	}

	if _, err := ctl.rooms.GetRoomByID(uint(roomID)); err != nil {
		response.NotFound(c)
		return
	}

	available, err := ctl.rooms.IsRoomAvailable(uint(roomID), checkIn, checkOut)
	if err != nil {
		response.ServerError(c)
		return
	}
	response.Success(c, gin.H{"roomId": roomID, "available": available})
}

// SearchAvailableRooms liệt kê các phòng còn trống trong khoảng ngày
func (ctl *RoomController) SearchAvailableRooms(c *gin.Context) {
	checkIn, checkOut, ok := parseDateRange(c)
	if !ok {
		return
	}

	bookedIDs, err := ctl.rooms.GetBookedRoomIDs(checkIn, checkOut)
	if err != nil {
		response.ServerError(c)
		return
	}

	query := ctl.db.Where("status = ?", 1)
	if hotelID := c.Query("hotelId"); hotelID != "" {
		query = query.Where("hotel_id = ?", hotelID)
	}
	if len(bookedIDs) > 0 {
		query = query.Where("room_id NOT IN ?", bookedIDs)
	}

	var rooms []models.Room
	if err := query.Find(&rooms).Error; err != nil {
		response.ServerError(c)
		return
	}
	response.Success(c, rooms)
}
