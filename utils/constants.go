// File: utils/constants.go
package utils

import "time"

// SessionKeyPrefix is the prefix used for Redis session record keys.
const SessionKeyPrefix = "session:"

// NoticeKeyPrefix is the prefix for one-shot notices shown on the next response.
const NoticeKeyPrefix = "notice:"

// SessionRefreshWindow is how long a record outlives its identity token so a
// refresh can still find the refresh token.
const SessionRefreshWindow = 30 * 24 * time.Hour

// NoticeTTL bounds how long an undelivered notice is kept.
const NoticeTTL = 10 * time.Minute
