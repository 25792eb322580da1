package avatars

import (
	"bytes"
	"image"

	// gif is registered so unsupported formats are told apart from
	// corrupt files in the error message.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	"github.com/dmitrijs2005/fastkeeper/internal/server/models"
)

// MaxAvatarSize is the upload limit in bytes.
const MaxAvatarSize = 2 * 1024 * 1024

// Validate checks the size bound and that data decodes as JPEG or PNG, and
// returns the file extension to store the avatar under. Failures are
// models.ValidationErrors on the avatar field.
func Validate(data []byte) (string, error) {
	if len(data) > MaxAvatarSize {
		return "", models.ValidationErrors{{Field: "avatar", Message: "Avatar file size must be ≤2MB."}}
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", models.ValidationErrors{{Field: "avatar", Message: "Invalid image file."}}
	}

	switch format {
	case "jpeg":
		return ".jpg", nil
	case "png":
		return ".png", nil
	default:
		return "", models.ValidationErrors{{Field: "avatar", Message: "Avatar must be a JPEG or PNG file."}}
	}
}
