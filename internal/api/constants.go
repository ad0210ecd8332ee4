package api

// API limits and constants.
const (
	// MaxUploadSize is the maximum allowed size for image uploads (10 MB).
	MaxUploadSize = 10 << 20
)

// CacheOneDayPrivate is the Cache-Control value for served recipe images.
const CacheOneDayPrivate = "private, max-age=86400"
