package config

import "time"

const (
	DefaultMongoURI          = "mongodb://localhost:27017"
	DefaultMongoDatabaseName = "studentnest"
	DefaultMongoConnTimeout  = 10 * time.Second

	DefaultPort = "8080"

	DefaultRateLimitRequests = 30
	DefaultRateLimitWindow   = 1 * time.Minute

	DefaultRequestTimeout = 30 * time.Second
	DefaultIdempotencyTTL = 24 * time.Hour
	DefaultMaxRequestSize = 1 * 1024 * 1024 // 1MB

	DefaultReadTimeout     = 15 * time.Second
	DefaultWriteTimeout    = 15 * time.Second
	DefaultIdleTimeout     = 60 * time.Second
	DefaultShutdownTimeout = 30 * time.Second

	DefaultBookingEventsTopic   = "studentnest.booking.events"
	DefaultRoomShareEventsTopic = "studentnest.roomshare.events"
	DefaultEventsDLQTopic       = "studentnest.events.dlq"
	DefaultNotifierGroupID      = "studentnest-notifier"

	DefaultMinShareParticipants = 2
	DefaultMaxShareParticipants = 6
	DefaultMaxExtensionMonths   = 12
	DefaultMaxDurationMonths    = 24

	DefaultPaginationLimit = 50
)
