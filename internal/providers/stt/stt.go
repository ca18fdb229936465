package stt

import "context"

// Provider turns recorded audio into text. Implementations may return a
// classified *utils.AppError; unclassified errors are treated as the service
// being unavailable.
type Provider interface {
	Transcribe(ctx context.Context, audio []byte, mimeType, language string) (text string, confidence float64, err error)
	Name() string
	Close() error
}
