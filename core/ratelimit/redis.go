package ratelimit

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/YingqiDuan/trading-telegram-bot/core/redis"
	"github.com/YingqiDuan/trading-telegram-bot/utils/logger"
)

// RedisLimiter is a fixed-window counter per (user, category): INCR the key,
// set the expiry on the first hit, deny once the count passes the limit. The
// INCR makes check-and-record atomic across bot instances.
type RedisLimiter struct {
	global     Limit
	categories map[string]Limit
}

func NewRedisLimiter(global Limit, categories map[string]Limit) *RedisLimiter {
	return &RedisLimiter{global: global, categories: categories}
}

func (l *RedisLimiter) Check(userID, category string) error {
	var catKey string
	if limit, ok := l.categories[category]; ok && category != "" {
		catKey = fmt.Sprintf("tgbot:rate:%s:%s", userID, category)
		if err := l.checkKey(catKey, category, limit); err != nil {
			return err
		}
	}

	err := l.checkKey(fmt.Sprintf("tgbot:rate:%s:global", userID), CategoryGlobal, l.global)
	if err != nil && catKey != "" {
		// the request never ran, give the category slot back
		l.refund(catKey)
	}
	return err
}

func (l *RedisLimiter) checkKey(key, category string, limit Limit) error {
	ctx := context.Background()

	count, err := redis.GetRedisInst().Incr(ctx, key).Result()
	if err != nil {
		// fail open: a broken redis must not take the bot down with it
		logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": err}).Error("rate limit incr failed")
		return nil
	}

	if count == 1 {
		if err := redis.GetRedisInst().Expire(ctx, key, limit.Window).Err(); err != nil {
			logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": err}).Error("rate limit expire failed")
		}
	}

	if count > int64(limit.MaxCalls) {
		wait, err := redis.GetRedisInst().TTL(ctx, key).Result()
		if err != nil || wait <= 0 {
			wait = limit.Window
		}
		return &DeniedError{Category: category, RetryAfter: wait}
	}
	return nil
}

func (l *RedisLimiter) refund(key string) {
	if err := redis.GetRedisInst().Decr(context.Background(), key).Err(); err != nil {
		logger.Logrus.WithFields(logrus.Fields{"Key": key, "ErrMsg": err}).Error("rate limit refund failed")
	}
}
