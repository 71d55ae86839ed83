// Package alignment estimates and applies the similarity transform that brings a predicted
// trajectory onto its ground truth.
package alignment

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/samber/lo"

	"github.com/isae-vo/trajeval/utils"
)

// ErrDegenerateAlignment is returned when the point configuration does not determine a transform:
// too few points, coincident or collinear points, or zero predicted motion.
var ErrDegenerateAlignment = errors.New("degenerate alignment")

// Mode selects how the predicted trajectory is aligned before metrics are computed.
type Mode string

const (
	// ModeNone applies nothing beyond first-frame normalization.
	ModeNone Mode = "none"
	// ModeScale fits a single scale factor to the translations.
	ModeScale Mode = "scale"
	// ModeScale7DOF fits a similarity transform but applies only its scale.
	ModeScale7DOF Mode = "scale_7dof"
	// Mode7DOF fits and applies a similarity transform.
	Mode7DOF Mode = "7dof"
	// Mode6DOF fits and applies a rigid transform.
	Mode6DOF Mode = "6dof"
)

// Modes lists every supported mode.
var Modes = []Mode{ModeNone, ModeScale, ModeScale7DOF, Mode7DOF, Mode6DOF}

// ParseMode converts a configuration string to a Mode. The empty string means ModeNone.
func ParseMode(s string) (Mode, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ModeNone, nil
	}
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", utils.NewUnexpectedValueError("alignment", s, lo.ToAnySlice(Modes)...)
}

func (m Mode) String() string {
	return string(m)
}

// withScale reports whether the Umeyama solve for this mode estimates scale.
func (m Mode) withScale() bool {
	return m != Mode6DOF
}

// appliesRigid reports whether the rigid part of the fitted transform is applied to the poses.
func (m Mode) appliesRigid() bool {
	return m == Mode7DOF || m == Mode6DOF
}
