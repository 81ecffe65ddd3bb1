package snapshot

import "github.com/vinicius-lino-figueiredo/docq/domain"

// WithCorruptAlertThreshold sets the share of unreadable lines above which
// an import fails. Defaults to 0.1.
func WithCorruptAlertThreshold(c float64) Option {
	return func(s *Snapshot) {
		s.corruptAlertThreshold = c
	}
}

// WithSerializer sets the serializer for converting documents to lines.
func WithSerializer(ser domain.Serializer) Option {
	return func(s *Snapshot) {
		s.serializer = ser
	}
}

// WithDeserializer sets the deserializer for converting lines to documents.
func WithDeserializer(d domain.Deserializer) Option {
	return func(s *Snapshot) {
		s.deserializer = d
	}
}

// WithDecoder sets the decoder used by the default deserializer.
func WithDecoder(d domain.Decoder) Option {
	return func(s *Snapshot) {
		s.decoder = d
	}
}

// WithDocumentFactory sets the factory used to build documents.
func WithDocumentFactory(d domain.DocumentFactory) Option {
	return func(s *Snapshot) {
		s.documentFactory = d
	}
}

// WithComparer sets the comparer used to deduplicate ids.
func WithComparer(c domain.Comparer) Option {
	return func(s *Snapshot) {
		s.comparer = c
	}
}

// WithHasher sets the hasher used to deduplicate ids.
func WithHasher(h domain.Hasher) Option {
	return func(s *Snapshot) {
		s.hasher = h
	}
}

// Option configures a [Snapshot].
type Option func(*Snapshot)
