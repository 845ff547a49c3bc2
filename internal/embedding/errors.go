package embedding

import "errors"

var (
	// ErrEmptyText is returned when there is nothing to embed.
	ErrEmptyText = errors.New("empty text")

	// ErrUnexpectedStatus is returned when the server answers with a non-2xx status.
	ErrUnexpectedStatus = errors.New("unexpected status code")

	// ErrEmptyEmbedding is returned when the server answers without a vector.
	ErrEmptyEmbedding = errors.New("server returned an empty embedding")

	// ErrUnknownProvider is returned by New for an unsupported provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)
