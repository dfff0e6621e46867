package unzip

import "github.com/meigma/unzip/internal/ziptype"

// Sentinel errors re-exported from internal/ziptype.
var (
	// ErrPasswordRequired is returned when an encrypted entry is read without a password.
	ErrPasswordRequired = ziptype.ErrPasswordRequired

	// ErrInvalidPassword is returned when the password does not decrypt an entry.
	ErrInvalidPassword = ziptype.ErrInvalidPassword

	// ErrChecksum is returned when decoded content does not match its CRC-32.
	ErrChecksum = ziptype.ErrChecksum

	// ErrUnsupportedMethod is returned for compression methods that cannot be decoded.
	ErrUnsupportedMethod = ziptype.ErrUnsupportedMethod

	// ErrUnsupportedEncryption is returned for encryption schemes that cannot be decoded.
	ErrUnsupportedEncryption = ziptype.ErrUnsupportedEncryption

	// ErrInsecurePath describes an entry name that would escape the output
	// directory. Such entries are dropped from the plan and logged with it.
	ErrInsecurePath = ziptype.ErrInsecurePath

	// ErrConflictingOptions is returned when mutually exclusive options are combined.
	ErrConflictingOptions = ziptype.ErrConflictingOptions

	// ErrIntegrity is returned by [Test] when at least one entry fails.
	ErrIntegrity = ziptype.ErrIntegrity

	// ErrSizeOverflow is returned when a size value does not fit the target type.
	ErrSizeOverflow = ziptype.ErrSizeOverflow
)

// IsPasswordError reports whether err would go away with a (different)
// password.
func IsPasswordError(err error) bool {
	return ziptype.IsPasswordError(err)
}
