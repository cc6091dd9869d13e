package vbz

import "errors"

// ErrInvalidArgument is returned for malformed inputs, such as a negative
// sample count or an output buffer of the wrong length.
var ErrInvalidArgument = errors.New("vbz: invalid argument")

// ErrCorrupt is returned when a packed stream-vbyte buffer does not agree
// with the requested sample count: either the key stream or the data
// stream would be over-read, or bytes are left over. Decompressing a
// buffer that was not produced by a matching encoder is a failure, never
// undefined behavior.
var ErrCorrupt = errors.New("vbz: corrupt stream-vbyte payload")
