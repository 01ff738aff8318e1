// internal/app/system/limits/limits.go
package limits

// Request body size limits for various features.
// These limits help prevent memory exhaustion from oversized requests.
const (
	// MaxJSONBodySize caps JSON request bodies.
	MaxJSONBodySize = 1 << 20 // 1 MB

	// DefaultMaxUploadSize caps a material file; overridable via max_upload_mb.
	DefaultMaxUploadSize = 20 << 20 // 20 MiB

	// MaxMessageImageSize caps an image attached to a message.
	MaxMessageImageSize = 5 << 20 // 5 MiB

	// MultipartMemory is how much of a multipart body is held in memory
	// before spilling to temp files.
	MultipartMemory = 8 << 20 // 8 MiB
)
