package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// UserBookingsCacheKey khóa cache danh sách booking của một user,
// dùng chung cho controller (ghi/xóa) và reconciler (xóa khi callback về)
func UserBookingsCacheKey(userID uint) string {
	return fmt.Sprintf("bookings:user:%d", userID)
}

// BookingCache xóa cache danh sách booking khi trạng thái booking đổi
// ngoài luồng request (callback cổng thanh toán, chốt hoàn tiền)
type BookingCache struct {
	rdb *redis.Client
}

func NewBookingCache(rdb *redis.Client) *BookingCache {
	return &BookingCache{rdb: rdb}
}

func (c *BookingCache) InvalidateUserBookings(userID uint) {
	if c.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = DeleteFromRedis(ctx, c.rdb, UserBookingsCacheKey(userID))
}

// Hàm lấy data từ Redis
func GetFromRedis(ctx context.Context, rdb *redis.Client, key string, target interface{}) error {
	cachedData, err := rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil
	}
	if err != nil {
		return err
	}

	// Parse JSON thành object
	if err := json.Unmarshal([]byte(cachedData), target); err != nil {
		return err
	}
	return nil
}

// Hàm lưu dữ liệu vào Redis
func SetToRedis(ctx context.Context, rdb *redis.Client, key string, value interface{}, ttl time.Duration) error {
	dataJSON, err := json.Marshal(value)
	if err != nil {
		return err
	}

	if err := rdb.Set(ctx, key, dataJSON, ttl).Err(); err != nil {
		return err
	}
	return nil
}

// Hàm xóa cache Redis
func DeleteFromRedis(ctx context.Context, rdb *redis.Client, key string) error {
	if err := rdb.Del(ctx, key).Err(); err != nil {
		return err
	}
	return nil
}

// AcquireLock chiếm khóa phân tán bằng SETNX, dùng cho cron janitor
// chạy nhiều instance. Trả về true nếu chiếm được khóa.
func AcquireLock(ctx context.Context, rdb *redis.Client, key string, ttl time.Duration) (bool, error) {
	return rdb.SetNX(ctx, key, time.Now().Unix(), ttl).Result()
}

// ReleaseLock nhả khóa phân tán
func ReleaseLock(ctx context.Context, rdb *redis.Client, key string) error {
	return rdb.Del(ctx, key).Err()
}
