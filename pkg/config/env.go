package config

const (
	EnvMongoURI          = "MONGO_URI"
	EnvMongoDatabaseName = "MONGO_DATABASE_NAME"
	EnvMongoConnTimeout  = "MONGO_CONN_TIMEOUT"

	EnvPort     = "PORT"
	EnvLogLevel = "LOG_LEVEL"

	EnvJWTSecret      = "JWT_SECRET"
	EnvInviteTokenKey = "INVITE_TOKEN_KEY"

	EnvRateLimitRequests = "RATE_LIMIT_REQUESTS"
	EnvRateLimitWindow   = "RATE_LIMIT_WINDOW"

	EnvRequestTimeout = "REQUEST_TIMEOUT"
	EnvIdempotencyTTL = "IDEMPOTENCY_TTL"
	EnvMaxRequestSize = "MAX_REQUEST_SIZE"

	EnvReadTimeout     = "READ_TIMEOUT"
	EnvWriteTimeout    = "WRITE_TIMEOUT"
	EnvIdleTimeout     = "IDLE_TIMEOUT"
	EnvShutdownTimeout = "SHUTDOWN_TIMEOUT"

	EnvBookingEventsTopic   = "BOOKING_EVENTS_TOPIC"
	EnvRoomShareEventsTopic = "ROOMSHARE_EVENTS_TOPIC"
	EnvEventsDLQTopic       = "EVENTS_DLQ_TOPIC"
	EnvNotifierGroupID      = "NOTIFIER_GROUP_ID"

	EnvMinShareParticipants = "MIN_SHARE_PARTICIPANTS"
	EnvMaxShareParticipants = "MAX_SHARE_PARTICIPANTS"
	EnvMaxExtensionMonths   = "MAX_EXTENSION_MONTHS"
	EnvMaxDurationMonths    = "MAX_DURATION_MONTHS"
)
