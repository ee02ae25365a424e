package jobs

import (
	"context"
	"log"
	"sync/atomic"
	"time"

	"gostay/constants"
	"gostay/services"

	goredis "github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
)

// BookingExpirer hủy các booking quá hạn thanh toán
type BookingExpirer interface {
	ExpireStaleBookings(now time.Time) (int64, error)
}

var janitorRunning int32

// InitCronJobs khởi tạo các cron jobs.
// Janitor quét booking quá hạn mỗi 10 phút; khóa redis SETNX đảm bảo
// nhiều instance chỉ có một bên quét, cờ cục bộ chặn lượt trước chạy lâu
// chưa xong thì lượt sau bỏ qua.
func InitCronJobs(c *cron.Cron, rdb *goredis.Client, expirer BookingExpirer) error {
	_, err := c.AddFunc(constants.JanitorInterval, func() {
		if !atomic.CompareAndSwapInt32(&janitorRunning, 0, 1) {
			log.Println("Janitor lượt trước chưa xong, bỏ qua lượt này")
			return
		}
		defer atomic.StoreInt32(&janitorRunning, 0)

		ctx, cancel := context.WithTimeout(context.Background(), constants.JanitorLockDuration)
		defer cancel()

		if rdb != nil {
			acquired, err := services.AcquireLock(ctx, rdb, constants.JanitorLockKey, constants.JanitorLockDuration)
			if err != nil {
				log.Printf("Không chiếm được khóa janitor: %v", err)
				return
			}
			if !acquired {
				return
			}
			defer func() {
				if err := services.ReleaseLock(context.Background(), rdb, constants.JanitorLockKey); err != nil {
					log.Printf("Không nhả được khóa janitor: %v", err)
				}
			}()
		}

		now := time.Now()
		expired, err := expirer.ExpireStaleBookings(now)
		if err != nil {
			log.Printf("Quét booking quá hạn thanh toán lỗi: %v", err)
			return
		}
		if expired > 0 {
			log.Printf("Đã hủy %d booking quá hạn thanh toán lúc %v", expired, now)
		}
	})
	if err != nil {
		return err
	}

	c.Start()
	log.Println("Cron jobs initialized successfully")
	return nil
}
