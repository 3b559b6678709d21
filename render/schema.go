// Package render registers the video backend's render settings with
// videocfg: the option table, the capability rules and the publish rules
// of a stereoscopic rendering pipeline.
package render

import (
	videocfg "github.com/goliatone/go-videoconfig"
)

// Option keys.
const (
	KeyVSync   = "Hardware.VSync"
	KeyAdapter = "Hardware.Adapter"

	KeyWidescreenHack       = "Settings.wideScreenHack"
	KeyAspectRatio          = "Settings.AspectRatio"
	KeyCrop                 = "Settings.Crop"
	KeyUseXFB               = "Settings.UseXFB"
	KeyUseRealXFB           = "Settings.UseRealXFB"
	KeySafeTextureCache     = "Settings.SafeTextureCacheColorSamples"
	KeyShowFPS              = "Settings.ShowFPS"
	KeyHiresTextures        = "Settings.HiresTextures"
	KeyPixelLighting        = "Settings.EnablePixelLighting"
	KeyFastDepthCalc        = "Settings.FastDepthCalc"
	KeyMSAA                 = "Settings.MSAA"
	KeyEFBScale             = "Settings.EFBScale"
	KeyDstAlphaPass         = "Settings.DstAlphaPass"
	KeyWireframe            = "Settings.Wireframe"
	KeyDisableFog           = "Settings.DisableFog"
	KeyShaderDebugging      = "Settings.EnableShaderDebugging"
	KeyBorderlessFullscreen = "Settings.BorderlessFullscreen"
	KeyForceFiltering       = "Enhancements.ForceFiltering"
	KeyMaxAnisotropy        = "Enhancements.MaxAnisotropy"
	KeyPostProcessingShader = "Enhancements.PostProcessingShader"
	KeyStereoMode           = "Enhancements.StereoMode"
	KeyStereoSeparation     = "Enhancements.StereoSeparation"
	KeyStereoConvergence    = "Enhancements.StereoConvergence"
	KeyStereoSwapEyes       = "Enhancements.StereoSwapEyes"
	KeyStereoMonoEFBDepth   = "Stereoscopy.StereoMonoEFBDepth"
	KeyStereoSeparationPct  = "Stereoscopy.StereoSeparationPercent"
	KeyStereoConvergencePct = "Stereoscopy.StereoConvergencePercent"
	KeyEFBAccessEnable      = "Hacks.EFBAccessEnable"
	KeyEFBCopyEnable        = "Hacks.EFBCopyEnable"
	KeyEFBToTextureEnable   = "Hacks.EFBToTextureEnable"
	KeyEFBScaledCopy        = "Hacks.EFBScaledCopy"
	KeyEFBCopyCacheEnable   = "Hacks.EFBCopyCacheEnable"
	KeyEFBFormatChanges     = "Hacks.EFBEmulateFormatChanges"
	KeyProjectionHack       = "Video.ProjectionHack"
	KeyPerfQueriesEnable    = "Video.PerfQueriesEnable"

	KeyUnitsPerMetre   = "VR.UnitsPerMetre"
	KeyHudThickness    = "VR.HudThickness"
	KeyHudDistance     = "VR.HudDistance"
	KeyHud3DCloser     = "VR.Hud3DCloser"
	KeyCameraForward   = "VR.CameraForward"
	KeyCameraPitch     = "VR.CameraPitch"
	KeyAimDistance     = "VR.AimDistance"
	KeyScreenHeight    = "VR.ScreenHeight"
	KeyScreenThickness = "VR.ScreenThickness"
	KeyScreenDistance  = "VR.ScreenDistance"
	KeyScreenRight     = "VR.ScreenRight"
	KeyScreenUp        = "VR.ScreenUp"
	KeyScreenPitch     = "VR.ScreenPitch"
	KeyTelescopeMaxFOV = "VR.TelescopeMaxFOV"
	KeyDisable3D       = "VR.Disable3D"
	KeyHudFullscreen   = "VR.HudFullscreen"
	KeyHudOnTop        = "VR.HudOnTop"
	KeyTelescopeEye    = "VR.TelescopeEye"
	KeyMetroidPrime    = "VR.MetroidPrime"
)

// Stereo modes.
const (
	StereoOff = iota
	StereoSideBySide
	StereoTopAndBottom
	StereoAnaglyph
	Stereo3DVision
	StereoOculus
	StereoVR920
)

// Internal resolution scales. EFBScaleForceIntegral is only meaningful in a
// title layer: it rounds the current scale down to an integral multiple.
const (
	EFBScaleForceIntegral = -1
	EFBScaleAuto          = iota - 1
	EFBScaleAutoIntegral
	EFBScale1x
	EFBScale1_5x
	EFBScale2x
	EFBScale2_5x
	EFBScale3x
	EFBScale4x
)

// EFBScaleAbsent marks an EFBScale entry that carries no override.
const EFBScaleAbsent = -9000

// VR tuning defaults, in metres and degrees.
const (
	DefaultUnitsPerMetre   = 1.0
	DefaultHudDistance     = 1.5
	DefaultHudThickness    = 0.5
	DefaultHud3DCloser     = 0.5
	DefaultCameraForward   = 0.0
	DefaultCameraPitch     = 0.0
	DefaultAimDistance     = 7.0
	DefaultScreenHeight    = 2.0
	DefaultScreenDistance  = 1.5
	DefaultScreenThickness = 0.5
	DefaultScreenRight     = 0.0
	DefaultScreenUp        = 0.0
	DefaultScreenPitch     = 0.0
)

var (
	stereoModes  = []string{"Off", "SideBySide", "TopAndBottom", "Anaglyph", "3DVision", "Oculus", "VR920"}
	efbScales    = []string{"Auto", "AutoIntegral", "1x", "1.5x", "2x", "2.5x", "3x", "4x"}
	aspectRatios = []string{"Auto", "ForceAnalog16_9", "ForceAnalog4_3", "Stretch"}
)

// ForceIntegral resolves an EFBScale override. EFBScaleForceIntegral rounds
// the current scale down to the nearest integral multiple; any other value
// replaces it.
func ForceIntegral(current, override any) any {
	if override != EFBScaleForceIntegral {
		return override
	}
	switch current {
	case EFBScaleAuto:
		return EFBScaleAutoIntegral
	case EFBScale1_5x:
		return EFBScale1x
	case EFBScale2_5x:
		return EFBScale2x
	default:
		return current
	}
}

// Schema returns a fresh registry of every render option. Each option also
// accepts its per-title spelling ("Video_Settings.MSAA" for
// "Settings.MSAA").
func Schema() *videocfg.Schema {
	options := []videocfg.Option{
		boolean(KeyVSync, false),
		integer(KeyAdapter, 0),

		boolean(KeyWidescreenHack, false),
		enum(KeyAspectRatio, 0, aspectRatios),
		boolean(KeyCrop, false),
		boolean(KeyUseXFB, false),
		boolean(KeyUseRealXFB, false),
		integer(KeySafeTextureCache, 128),
		boolean(KeyShowFPS, false),
		boolean(KeyHiresTextures, false),
		boolean(KeyPixelLighting, false),
		boolean(KeyFastDepthCalc, true),
		integer(KeyMSAA, 0),
		{
			Key:      KeyEFBScale,
			Kind:     videocfg.KindEnum,
			Default:  EFBScale1x,
			Values:   efbScales,
			Sentinel: EFBScaleAbsent,
			Resolve:  ForceIntegral,
		},
		boolean(KeyDstAlphaPass, false),
		{Key: KeyWireframe, Kind: videocfg.KindBool, Default: false, Aliases: []string{"Settings.WireFrame"}},
		boolean(KeyDisableFog, false),
		{
			Key:     KeyShaderDebugging,
			Kind:    videocfg.KindBool,
			Default: false,
			Warning: "Warning: Shader Debugging is enabled, performance will suffer heavily",
		},
		boolean(KeyBorderlessFullscreen, false),

		boolean(KeyForceFiltering, false),
		{Key: KeyMaxAnisotropy, Kind: videocfg.KindInt, Default: 0, Description: "x in 1 << x"},
		{Key: KeyPostProcessingShader, Kind: videocfg.KindString, Default: ""},
		enum(KeyStereoMode, StereoOff, stereoModes),
		integer(KeyStereoSeparation, 20),
		integer(KeyStereoConvergence, 20),
		boolean(KeyStereoSwapEyes, false),

		boolean(KeyStereoMonoEFBDepth, false),
		integer(KeyStereoSeparationPct, 100),
		integer(KeyStereoConvergencePct, 100),

		boolean(KeyEFBAccessEnable, true),
		boolean(KeyEFBCopyEnable, true),
		boolean(KeyEFBToTextureEnable, true),
		boolean(KeyEFBScaledCopy, true),
		boolean(KeyEFBCopyCacheEnable, false),
		boolean(KeyEFBFormatChanges, false),

		integer(KeyProjectionHack, 0),
		boolean(KeyPerfQueriesEnable, false),

		tuning(KeyUnitsPerMetre, DefaultUnitsPerMetre),
		tuning(KeyHudThickness, DefaultHudThickness),
		tuning(KeyHudDistance, DefaultHudDistance),
		tuning(KeyHud3DCloser, DefaultHud3DCloser),
		tuning(KeyCameraForward, DefaultCameraForward),
		tuning(KeyCameraPitch, DefaultCameraPitch),
		tuning(KeyAimDistance, DefaultAimDistance),
		tuning(KeyScreenHeight, DefaultScreenHeight),
		tuning(KeyScreenThickness, DefaultScreenThickness),
		tuning(KeyScreenDistance, DefaultScreenDistance),
		tuning(KeyScreenRight, DefaultScreenRight),
		tuning(KeyScreenUp, DefaultScreenUp),
		tuning(KeyScreenPitch, DefaultScreenPitch),
		{Key: KeyTelescopeMaxFOV, Kind: videocfg.KindFloat, Default: 0.0, Tracked: true, Aliases: []string{"VR.TelescopeFOV"}},
		{Key: KeyDisable3D, Kind: videocfg.KindBool, Default: false, Tracked: true, TitleScoped: true},
		{Key: KeyHudFullscreen, Kind: videocfg.KindBool, Default: false, Tracked: true, TitleScoped: true},
		{Key: KeyHudOnTop, Kind: videocfg.KindBool, Default: false, Tracked: true, TitleScoped: true},
		{Key: KeyTelescopeEye, Kind: videocfg.KindInt, Default: 0, Tracked: true},
		{Key: KeyMetroidPrime, Kind: videocfg.KindInt, Default: 0, Tracked: true},
	}

	for i := range options {
		if section := options[i].Section(); section != "VR" && section != "Video" {
			options[i].Aliases = append(options[i].Aliases, "Video_"+section+"."+options[i].Name())
		}
	}
	return videocfg.MustSchema(options...)
}

func boolean(key string, def bool) videocfg.Option {
	return videocfg.Option{Key: key, Kind: videocfg.KindBool, Default: def}
}

func integer(key string, def int) videocfg.Option {
	return videocfg.Option{Key: key, Kind: videocfg.KindInt, Default: def}
}

func enum(key string, def int, values []string) videocfg.Option {
	return videocfg.Option{Key: key, Kind: videocfg.KindEnum, Default: def, Values: values}
}

// tuning registers a per-title VR float that is reset before each title.
func tuning(key string, def float64) videocfg.Option {
	return videocfg.Option{Key: key, Kind: videocfg.KindFloat, Default: def, Tracked: true, TitleScoped: true}
}
