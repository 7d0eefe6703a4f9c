package hll

import "errors"

var (
	errPrecisionRange = errors.New("hll: precision must be in [4,16]")
	errAlreadyDense   = errors.New("hll: sketch is already dense")
	errHeaderMismatch = errors.New("hll: deserialization header mismatch")
	errLengthMismatch = errors.New("hll: deserialization length mismatch")
)
