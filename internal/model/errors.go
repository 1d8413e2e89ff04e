package model

import "errors"

var (
	// ErrExtractionMiss means no analyzable artifact exists in the post
	ErrExtractionMiss = errors.New("couldn't find analyzable content (text, image, or video) in this post")

	// ErrResolutionExhausted means every resolver tier failed; callers degrade
	// to URL-only analysis instead of failing
	ErrResolutionExhausted = errors.New("all resolution strategies failed")

	// ErrUnsupportedKind is returned for content kinds no pipeline handles
	ErrUnsupportedKind = errors.New("unsupported content kind")

	// ErrKindMismatch means a declared binary kind disagrees with the inline
	// payload's media type
	ErrKindMismatch = errors.New("declared type does not match the payload media type")
)
