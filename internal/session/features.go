package session

import (
	"keyprint/internal/features"
	"keyprint/internal/model"
)

// Features returns the current FeatureSet snapshot for the session. The
// speed window runs from the first press to completion, or to now while
// the session is still active. With fewer than two presses recorded the
// snapshot is all zeros.
func (s *Session) Features() model.FeatureSet {
	return features.Extract(s.events, len(s.typed), float64(s.ElapsedMs()))
}
