package controllers

import (
	"context"
	"errors"
	"strconv"
	"time"

	apperrors "gostay/errors"
	"gostay/dto"
	"gostay/models"
	"gostay/response"
	"gostay/services"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
)

type BookingController struct {
	bookings *services.BookingService
	rdb      *goredis.Client
}

func NewBookingController(bookings *services.BookingService, rdb *goredis.Client) *BookingController {
	return &BookingController{bookings: bookings, rdb: rdb}
}

// currentUser đọc thông tin user do AuthMiddleware/OptionalAuth đặt vào context
func currentUser(c *gin.Context) (*uint, int) {
	role := -1
	if v, ok := c.Get("userRole"); ok {
		role = v.(int)
	}
	if v, ok := c.Get("userID"); ok {
		id := v.(uint)
		return &id, role
	}
	return nil, role
}

func isAdminRole(role int) bool {
	return role == 1 || role == 2
}

func (ctl *BookingController) invalidateUserCache(userID *uint) {
	if ctl.rdb == nil || userID == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = services.DeleteFromRedis(ctx, ctl.rdb, services.UserBookingsCacheKey(*userID))
}

// CreateBooking tạo đơn đặt phòng mới và trả về link thanh toán.
// Cho phép khách vãng lai đặt phòng chỉ với thông tin liên hệ.
func (ctl *BookingController) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Dữ liệu không hợp lệ")
		return
	}

	userID, _ := currentUser(c)
	booking, payURL, err := ctl.bookings.CreateBooking(userID, &req)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrRoomNotFound):
			response.NotFound(c)
		case errors.Is(err, apperrors.ErrRoomNotAvailable):
			response.Conflict(c, "Phòng đã có người đặt trong khoảng ngày này")
		case errors.Is(err, apperrors.ErrGateway):
			// Booking đã giữ chỗ, chỉ bước tạo thanh toán hỏng
			ctl.invalidateUserCache(userID)
			response.ServerErrorWithData(c, "Đặt phòng thành công nhưng chưa tạo được thanh toán, vui lòng thử thanh toán lại",
				services.ToBookingResponse(booking, ""))
		default:
			if appErr := apperrors.GetAppError(err); appErr != nil {
				response.BadRequest(c, appErr.Message)
				return
			}
			response.ServerError(c)
		}
		return
	}

	ctl.invalidateUserCache(userID)
	response.Success(c, services.ToBookingResponse(booking, payURL))
}

// GetBookings liệt kê đơn đặt phòng của user hiện tại, có cache redis
func (ctl *BookingController) GetBookings(c *gin.Context) {
	userID, _ := currentUser(c)
	if userID == nil {
		response.Unauthorized(c)
		return
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "0"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))

	// Chỉ cache trang đầu, các trang sau đọc thẳng DB
	cacheable := page == 0 && limit == 10
	cacheKey := services.UserBookingsCacheKey(*userID)

	if cacheable && ctl.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		var cached struct {
			Bookings []models.Booking `json:"bookings"`
			Total    int64            `json:"total"`
		}
		if err := services.GetFromRedis(ctx, ctl.rdb, cacheKey, &cached); err == nil && len(cached.Bookings) > 0 {
			response.SuccessWithPagination(c, toBookingResponses(cached.Bookings), page, limit, int(cached.Total))
			return
		}
	}

	bookings, total, err := ctl.bookings.GetBookingsByUser(*userID, page, limit)
	if err != nil {
		response.ServerError(c)
		return
	}

	if cacheable && ctl.rdb != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = services.SetToRedis(ctx, ctl.rdb, cacheKey, gin.H{"bookings": bookings, "total": total}, 5*time.Minute)
	}

	response.SuccessWithPagination(c, toBookingResponses(bookings), page, limit, int(total))
}

func toBookingResponses(bookings []models.Booking) []*dto.BookingResponse {
	out := make([]*dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		out = append(out, services.ToBookingResponse(&bookings[i], ""))
	}
	return out
}

// GetBookingDetail xem chi tiết một đơn; chỉ chủ đơn hoặc quản trị
func (ctl *BookingController) GetBookingDetail(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "ID không hợp lệ")
		return
	}

	booking, err := ctl.bookings.GetBookingByID(uint(bookingID))
	if err != nil {
		response.NotFound(c)
		return
	}

	userID, role := currentUser(c)
	if !isAdminRole(role) {
		if booking.UserID == nil || userID == nil || *booking.UserID != *userID {
			response.Forbidden(c)
			return
		}
	}

	response.Success(c, services.ToBookingResponse(booking, ""))
}

// CancelBooking hủy đơn theo yêu cầu của khách
func (ctl *BookingController) CancelBooking(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "ID không hợp lệ")
		return
	}

	userID, role := currentUser(c)
	result, err := ctl.bookings.CancelBooking(uint(bookingID), userID, isAdminRole(role), time.Now())
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBookingNotFound):
			response.NotFound(c)
		case errors.Is(err, apperrors.ErrForbidden):
			response.Forbidden(c)
		case errors.Is(err, apperrors.ErrNotCancellable):
			response.Conflict(c, "Đơn này không thể hủy ở trạng thái hiện tại")
		case errors.Is(err, apperrors.ErrCancellationLock):
			response.Conflict(c, "Đã quá hạn hủy phòng (trong vòng 24 giờ trước giờ nhận phòng)")
		case errors.Is(err, apperrors.ErrNotRefundable), errors.Is(err, apperrors.ErrRefundFailed):
			response.Conflict(c, "Hoàn tiền không thành công, vui lòng liên hệ hỗ trợ")
		default:
			response.ServerError(c)
		}
		return
	}

	ctl.invalidateUserCache(userID)
	response.Success(c, gin.H{
		"booking":   services.ToBookingResponse(result.Booking, ""),
		"refunding": result.Refunding,
		"refunded":  result.Refunded,
	})
}

// UpdateBookingStatus cho quản trị chuyển trạng thái đơn trực tiếp
func (ctl *BookingController) UpdateBookingStatus(c *gin.Context) {
	bookingID, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "ID không hợp lệ")
		return
	}

	var req dto.UpdateBookingStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Dữ liệu không hợp lệ")
		return
	}

	booking, err := ctl.bookings.UpdateBookingStatus(uint(bookingID), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, apperrors.ErrBookingNotFound):
			response.NotFound(c)
		default:
			if appErr := apperrors.GetAppError(err); appErr != nil {
				response.Conflict(c, appErr.Message)
				return
			}
			response.ServerError(c)
		}
		return
	}

	ctl.invalidateUserCache(booking.UserID)
	response.Success(c, services.ToBookingResponse(booking, ""))
}
