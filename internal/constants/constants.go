package constants

// Item validation limits
const (
	// MaxNameLength is the maximum number of characters in an item name
	MaxNameLength = 100

	// MaxCategoryLength is the maximum number of characters in an item category
	MaxCategoryLength = 50

	// MaxPrice is the highest price an item may be created with
	MaxPrice = 1_000_000

	// PriceDecimals is the number of decimal places prices are rounded to
	PriceDecimals = 2
)

// Cache constants
const (
	// DefaultStatsCacheTTLSeconds is the default TTL for the stats cache (5 minutes)
	DefaultStatsCacheTTLSeconds = 300
)

// Server constants
const (
	// DefaultPort is the port the API listens on when none is configured
	DefaultPort = 3001

	// MaxRequestBodyBytes limits POST/PUT/PATCH request bodies
	MaxRequestBodyBytes = 1 << 20 // 1 MB

	// ShutdownTimeoutSeconds is how long outstanding requests get to finish on shutdown
	ShutdownTimeoutSeconds = 30
)

// Rate limiting constants
const (
	// DefaultRequestsPerSecond is the default rate limit for API endpoints
	DefaultRequestsPerSecond = 10

	// DefaultBurstSize is the default burst size for rate limiting
	DefaultBurstSize = 20

	// RateLimiterCleanupIntervalMinutes is how often idle per-IP limiters are dropped
	RateLimiterCleanupIntervalMinutes = 60
)

// Store backends
const (
	// BackendJSON stores items in a flat JSON document
	BackendJSON = "json"

	// BackendSQLite stores items in a SQLite table
	BackendSQLite = "sqlite"
)
