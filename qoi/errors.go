package qoi

import "errors"

// Header errors are distinct from body errors so callers can tell
// malformed framing from a malformed opcode stream.
var (
	ErrTooSmall          = errors.New("qoi: data shorter than the 14-byte header")
	ErrMissingSignature  = errors.New("qoi: missing 'qoif' signature")
	ErrZeroDimension     = errors.New("qoi: width and height must be nonzero")
	ErrInvalidChannel    = errors.New("qoi: channels must be 3 or 4")
	ErrInvalidColorspace = errors.New("qoi: colorspace must be 0 or 1")
)

var (
	ErrImageTooLarge    = errors.New("qoi: image exceeds the pixel limit")
	ErrEmptyPixelBuffer = errors.New("qoi: empty pixel buffer")
	ErrZeroPixelCount   = errors.New("qoi: zero pixel count")
	ErrPixelBufferSize  = errors.New("qoi: pixel buffer length does not match the header")

	// ErrInvalidEncoding is reserved for a tag byte the decoder cannot
	// dispatch. The six opcodes cover every byte value, so it is not
	// reachable today, but it stays declared for callers that match on
	// it.
	ErrInvalidEncoding = errors.New("qoi: invalid encoding")

	// ErrWriteFailed wraps errors from the output sink of a streaming
	// encode.
	ErrWriteFailed = errors.New("qoi: write to sink failed")
)
