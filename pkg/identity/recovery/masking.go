package recovery

import (
	"strings"

	idTypes "github.com/julb/iam-backend/pkg/identity/types"
)

const maskFiller = "**********"

// MaskMail keeps the first and last character of the local part and replaces the rest
// with a fixed width filler so the mask does not leak the address length.
func MaskMail(address string) string {
	at := strings.LastIndex(address, "@")
	if at < 1 {
		return maskFiller
	}
	local := address[:at]
	domain := address[at:]
	return local[:1] + maskFiller + local[len(local)-1:] + domain
}

// MaskPhone keeps the leading four and trailing two characters with a fixed width
// filler in between.
func MaskPhone(number string) string {
	if len(number) < 7 {
		return maskFiller
	}
	return number[:4] + maskFiller + number[len(number)-2:]
}

// MaskAddress applies the proper masking for the device type.
func MaskAddress(deviceType string, address string) string {
	if deviceType == idTypes.RECOVERY_DEVICE_TYPE_PHONE {
		return MaskPhone(address)
	}
	return MaskMail(address)
}
