package render

import (
	"log/slog"

	videocfg "github.com/goliatone/go-videoconfig"
)

// stereoscopyCondition is evaluated with expr against the capability
// binding; the stereo mode is switched off when it holds.
const stereoscopyCondition = `!caps.stereoscopy && options.Enhancements.StereoMode != 0`

// Rules returns the capability rule table in evaluation order.
func Rules() []videocfg.ValidationRule {
	return []videocfg.ValidationRule{
		videocfg.ClampIndex(KeyAdapter, func(c videocfg.CapabilityDescriptor) int { return len(c.Adapters) }),
		videocfg.ClampIndex(KeyMSAA, func(c videocfg.CapabilityDescriptor) int { return len(c.AAModes) }),
		videocfg.ClampRange(KeyMaxAnisotropy, 0, func(c videocfg.CapabilityDescriptor) int { return c.MaxAnisotropy }),
		videocfg.StereoModeRule(KeyStereoMode, StereoOff,
			videocfg.StereoForce{Display: videocfg.DisplayRift, Mode: StereoOculus},
			videocfg.StereoForce{Display: videocfg.DisplayVR920, Mode: StereoVR920},
		),
		videocfg.MustExprRule("require-stereoscopy", stereoscopyCondition, KeyStereoMode, StereoOff),
	}
}

// Validator returns a validator running Rules. A nil logger disables
// adjustment logging.
func Validator(logger *slog.Logger) *videocfg.Validator {
	validator := videocfg.NewValidator(Rules()...)
	if logger != nil {
		validator = validator.WithLogger(logger)
	}
	return validator
}

// PublishRules returns the rules applied to every published snapshot: the
// external frame buffer is unavailable on a head-mounted display and when
// the host disables the alternate frame buffer mode.
func PublishRules() []videocfg.PublishRule {
	return []videocfg.PublishRule{
		videocfg.ForceValue("hmd-disables-xfb", KeyUseXFB, false, func(env videocfg.PublishEnv) bool {
			return env.Capabilities.Display.HeadMounted()
		}),
		videocfg.ForceValue("alt-fb-disables-xfb", KeyUseXFB, false, func(env videocfg.PublishEnv) bool {
			return env.AlternateFrameBufferDisabled
		}),
	}
}

// NewManager builds a videocfg.Manager over Schema with the render rule
// tables installed. opts are applied after the defaults, so callers may
// replace the validator.
func NewManager(opts ...videocfg.ManagerOption) (*videocfg.Manager, error) {
	defaults := []videocfg.ManagerOption{
		videocfg.WithValidator(Validator(nil)),
		videocfg.WithPublishRules(PublishRules()...),
	}
	return videocfg.New(Schema(), append(defaults, opts...)...)
}
