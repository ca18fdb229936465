package audio

import (
	"errors"

	"github.com/yoockh/yoohealth/internal/utils"
)

var (
	ErrPermissionDenied  = errors.New("microphone permission denied")
	ErrDeviceNotFound    = errors.New("no capture device found")
	ErrUnsupportedFormat = errors.New("no supported audio format")
	ErrNotRecording      = errors.New("not recording")
	ErrCapture           = errors.New("audio capture failed")
	ErrRead              = errors.New("audio read failed")
	ErrAlreadyStarted    = errors.New("recording session already started")
	ErrTooLarge          = errors.New("recording exceeds the size limit")
)

// classifyAcquire maps a device acquisition failure onto the capture error
// taxonomy.
func classifyAcquire(op string, err error) error {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return utils.E(utils.CodeForbidden, op, "microphone permission denied", err)
	case errors.Is(err, ErrDeviceNotFound):
		return utils.E(utils.CodeNotFound, op, "no microphone found", err)
	default:
		return utils.E(utils.CodeInternal, op, "could not access microphone", errors.Join(ErrCapture, err))
	}
}

// Notice returns an actionable, user-facing message for a capture or
// conversion failure.
func Notice(err error) string {
	switch {
	case errors.Is(err, ErrPermissionDenied):
		return "Microphone access was denied. Please allow microphone permissions and try again."
	case errors.Is(err, ErrDeviceNotFound):
		return "No microphone was found. Please connect a microphone and try again."
	case errors.Is(err, ErrUnsupportedFormat):
		return "Your browser does not support audio recording in a compatible format. Please try a different browser."
	case errors.Is(err, ErrNotRecording):
		return "No recording is in progress."
	case errors.Is(err, ErrAlreadyStarted):
		return "A recording is already in progress."
	case errors.Is(err, ErrTooLarge):
		return "Your recording is too long. Please keep voice messages shorter and try again."
	case errors.Is(err, ErrRead):
		return "We couldn't process the recorded audio. Please try recording again."
	default:
		return "Something went wrong while recording. Please try again."
	}
}
