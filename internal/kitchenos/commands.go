package kitchenos

import "fmt"

// Capability and setting reference IDs for the Instant Brands family,
// captured from the vendor app's traffic.
const (
	CapabilityPressureCook = "kitchenos:InstantBrands:PressureCook"
	CapabilityKeepWarm     = "kitchenos:InstantBrands:KeepWarm"

	settingPressure    = "kitchenos:InstantBrands:PressureSetting"
	settingTime        = "kitchenos:InstantBrands:TimeSetting"
	settingVenting     = "kitchenos:InstantBrands:VentingSetting"
	settingVentingTime = "kitchenos:InstantBrands:VentingTimeSetting"
	settingNutriBoost  = "kitchenos:InstantBrands:NutriBoostSetting"
	settingTemperature = "kitchenos:InstantBrands:TemperatureSetting"

	unitSecond  = "cckg:Second"
	unitCelsius = "cckg:Celsius"
)

// PressureLevel selects the target cooking pressure.
type PressureLevel string

// Pressure levels accepted by the appliance.
const (
	PressureLow  PressureLevel = "Low"
	PressureHigh PressureLevel = "High"
	PressureMax  PressureLevel = "Max"
)

// referenceValueID maps a pressure level to its vendor reference ID.
func (p PressureLevel) referenceValueID() (string, error) {
	switch p {
	case PressureLow:
		return "kitchenos:InstantBrands:PressureLow", nil
	case PressureHigh:
		return "kitchenos:InstantBrands:PressureHigh", nil
	case PressureMax:
		return "kitchenos:InstantBrands:PressureMax", nil
	}
	return "", fmt.Errorf("%w: unknown pressure level %q", ErrInvalidCommand, string(p))
}

// VentingMode selects how pressure is released after cooking.
type VentingMode string

// Venting modes accepted by the appliance. Pulse and NaturalQuick accept
// an additional venting time.
const (
	VentingNatural      VentingMode = "Natural"
	VentingPulse        VentingMode = "Pulse"
	VentingQuick        VentingMode = "Quick"
	VentingNaturalQuick VentingMode = "NaturalQuick"
)

// referenceValueID maps a venting mode to its vendor reference ID.
func (v VentingMode) referenceValueID() (string, error) {
	switch v {
	case VentingNatural:
		return "kitchenos:InstantBrands:VentingNatural", nil
	case VentingPulse:
		return "kitchenos:InstantBrands:VentingPulse", nil
	case VentingQuick:
		return "kitchenos:InstantBrands:VentingQuick", nil
	case VentingNaturalQuick:
		return "kitchenos:InstantBrands:VentingNaturalQuick", nil
	}
	return "", fmt.Errorf("%w: unknown venting mode %q", ErrInvalidCommand, string(v))
}

// TemperaturePreset selects a named keep-warm temperature.
type TemperaturePreset string

// Keep-warm temperature presets.
const (
	TemperaturePresetLow  TemperaturePreset = "Low"
	TemperaturePresetHigh TemperaturePreset = "High"
)

// referenceValueID maps a temperature preset to its vendor reference ID.
func (t TemperaturePreset) referenceValueID() (string, error) {
	switch t {
	case TemperaturePresetLow:
		return "kitchenos:InstantBrands:TemperatureLow", nil
	case TemperaturePresetHigh:
		return "kitchenos:InstantBrands:TemperatureHigh", nil
	}
	return "", fmt.Errorf("%w: unknown temperature preset %q", ErrInvalidCommand, string(t))
}

// Validation ranges, matching the vendor app's limits.
const (
	minCookTimeSeconds = 1
	maxCookTimeSeconds = 5 * 60 * 60

	minVentTimeSeconds = 1
	maxVentTimeSeconds = 60 * 60

	minKeepWarmSeconds = 1
	maxKeepWarmSeconds = 24 * 60 * 60

	minTempCelsius = 25
	maxTempCelsius = 95
)

// nominalSetting builds a setting whose value is a vendor reference ID.
func nominalSetting(settingID, valueID string) Setting {
	return Setting{
		ReferenceSettingID: settingID,
		Value: SettingValue{
			Type:             "nominal",
			ReferenceValueID: &valueID,
		},
	}
}

// numericSetting builds a setting with a unit-qualified numeric value.
func numericSetting(settingID string, value int, unitID string) Setting {
	return Setting{
		ReferenceSettingID: settingID,
		Value: SettingValue{
			Type:            "numeric",
			Value:           value,
			ReferenceUnitID: &unitID,
		},
	}
}

// booleanSetting builds a boolean setting. False is serialised explicitly.
func booleanSetting(settingID string, value bool) Setting {
	return Setting{
		ReferenceSettingID: settingID,
		Value: SettingValue{
			Type:  "boolean",
			Value: value,
		},
	}
}

// PressureCookStart holds the parameters for starting a pressure cook.
type PressureCookStart struct {
	// Pressure is required.
	Pressure PressureLevel

	// CookTimeSeconds is required, 1 second to 5 hours.
	CookTimeSeconds int

	// Venting defaults to Natural when empty.
	Venting VentingMode

	// VentTimeSeconds is optional (0 omits it); only meaningful for
	// Pulse and NaturalQuick venting.
	VentTimeSeconds int

	// NutriBoost enables the nutri-boost cycle.
	NutriBoost bool
}

// PressureCookStartCapability builds the capability document for starting
// a pressure cook. Start commands always carry the full setting list.
func PressureCookStartCapability(p PressureCookStart) (*CapabilityDocument, error) {
	pressureID, err := p.Pressure.referenceValueID()
	if err != nil {
		return nil, err
	}

	if p.CookTimeSeconds < minCookTimeSeconds || p.CookTimeSeconds > maxCookTimeSeconds {
		return nil, fmt.Errorf("%w: cook time %ds out of range [%d, %d]",
			ErrInvalidCommand, p.CookTimeSeconds, minCookTimeSeconds, maxCookTimeSeconds)
	}

	venting := p.Venting
	if venting == "" {
		venting = VentingNatural
	}
	ventingID, err := venting.referenceValueID()
	if err != nil {
		return nil, err
	}

	settings := []Setting{
		nominalSetting(settingPressure, pressureID),
		numericSetting(settingTime, p.CookTimeSeconds, unitSecond),
		nominalSetting(settingVenting, ventingID),
		booleanSetting(settingNutriBoost, p.NutriBoost),
	}

	if p.VentTimeSeconds != 0 {
		if p.VentTimeSeconds < minVentTimeSeconds || p.VentTimeSeconds > maxVentTimeSeconds {
			return nil, fmt.Errorf("%w: vent time %ds out of range [%d, %d]",
				ErrInvalidCommand, p.VentTimeSeconds, minVentTimeSeconds, maxVentTimeSeconds)
		}
		settings = append(settings, numericSetting(settingVentingTime, p.VentTimeSeconds, unitSecond))
	}

	return &CapabilityDocument{
		ReferenceCapabilityID: CapabilityPressureCook,
		Settings:              settings,
	}, nil
}

// PressureCookUpdate holds the parameters for adjusting a running pressure
// cook. Nil fields are left unchanged on the appliance.
type PressureCookUpdate struct {
	Pressure        *PressureLevel
	CookTimeSeconds *int
	Venting         *VentingMode
	VentTimeSeconds *int
	NutriBoost      *bool
}

// PressureCookUpdateCapability builds the capability document for updating
// a running pressure cook. At least one field must be set.
func PressureCookUpdateCapability(p PressureCookUpdate) (*CapabilityDocument, error) {
	var settings []Setting

	if p.Pressure != nil {
		pressureID, err := p.Pressure.referenceValueID()
		if err != nil {
			return nil, err
		}
		settings = append(settings, nominalSetting(settingPressure, pressureID))
	}

	if p.CookTimeSeconds != nil {
		if *p.CookTimeSeconds < minCookTimeSeconds || *p.CookTimeSeconds > maxCookTimeSeconds {
			return nil, fmt.Errorf("%w: cook time %ds out of range [%d, %d]",
				ErrInvalidCommand, *p.CookTimeSeconds, minCookTimeSeconds, maxCookTimeSeconds)
		}
		settings = append(settings, numericSetting(settingTime, *p.CookTimeSeconds, unitSecond))
	}

	if p.Venting != nil {
		ventingID, err := p.Venting.referenceValueID()
		if err != nil {
			return nil, err
		}
		settings = append(settings, nominalSetting(settingVenting, ventingID))
	}

	if p.VentTimeSeconds != nil {
		if *p.VentTimeSeconds < minVentTimeSeconds || *p.VentTimeSeconds > maxVentTimeSeconds {
			return nil, fmt.Errorf("%w: vent time %ds out of range [%d, %d]",
				ErrInvalidCommand, *p.VentTimeSeconds, minVentTimeSeconds, maxVentTimeSeconds)
		}
		settings = append(settings, numericSetting(settingVentingTime, *p.VentTimeSeconds, unitSecond))
	}

	if p.NutriBoost != nil {
		settings = append(settings, booleanSetting(settingNutriBoost, *p.NutriBoost))
	}

	if len(settings) == 0 {
		return nil, fmt.Errorf("%w: pressure cook update requires at least one setting", ErrInvalidCommand)
	}

	return &CapabilityDocument{
		ReferenceCapabilityID: CapabilityPressureCook,
		Settings:              settings,
	}, nil
}

// KeepWarmStart holds the parameters for starting keep-warm.
// Exactly one of TempCelsius and Preset must be set.
type KeepWarmStart struct {
	// TempCelsius is the target temperature, 25 to 95. Zero means unset.
	TempCelsius int

	// Preset is a named temperature level, used when TempCelsius is zero.
	Preset TemperaturePreset

	// DurationSeconds is required, 1 second to 24 hours.
	DurationSeconds int
}

// KeepWarmStartCapability builds the capability document for starting
// keep-warm.
func KeepWarmStartCapability(p KeepWarmStart) (*CapabilityDocument, error) {
	tempSetting, err := keepWarmTemperatureSetting(p.TempCelsius, p.Preset)
	if err != nil {
		return nil, err
	}
	if tempSetting == nil {
		return nil, fmt.Errorf("%w: keep warm requires a temperature or preset", ErrInvalidCommand)
	}

	if p.DurationSeconds < minKeepWarmSeconds || p.DurationSeconds > maxKeepWarmSeconds {
		return nil, fmt.Errorf("%w: duration %ds out of range [%d, %d]",
			ErrInvalidCommand, p.DurationSeconds, minKeepWarmSeconds, maxKeepWarmSeconds)
	}

	return &CapabilityDocument{
		ReferenceCapabilityID: CapabilityKeepWarm,
		Settings: []Setting{
			*tempSetting,
			numericSetting(settingTime, p.DurationSeconds, unitSecond),
		},
	}, nil
}

// KeepWarmUpdate holds the parameters for adjusting a running keep-warm.
// Nil or zero fields are left unchanged on the appliance.
type KeepWarmUpdate struct {
	TempCelsius     int
	Preset          TemperaturePreset
	DurationSeconds *int
}

// KeepWarmUpdateCapability builds the capability document for updating a
// running keep-warm. At least one field must be set.
func KeepWarmUpdateCapability(p KeepWarmUpdate) (*CapabilityDocument, error) {
	var settings []Setting

	tempSetting, err := keepWarmTemperatureSetting(p.TempCelsius, p.Preset)
	if err != nil {
		return nil, err
	}
	if tempSetting != nil {
		settings = append(settings, *tempSetting)
	}

	if p.DurationSeconds != nil {
		if *p.DurationSeconds < minKeepWarmSeconds || *p.DurationSeconds > maxKeepWarmSeconds {
			return nil, fmt.Errorf("%w: duration %ds out of range [%d, %d]",
				ErrInvalidCommand, *p.DurationSeconds, minKeepWarmSeconds, maxKeepWarmSeconds)
		}
		settings = append(settings, numericSetting(settingTime, *p.DurationSeconds, unitSecond))
	}

	if len(settings) == 0 {
		return nil, fmt.Errorf("%w: keep warm update requires at least one of temperature, preset, duration", ErrInvalidCommand)
	}

	return &CapabilityDocument{
		ReferenceCapabilityID: CapabilityKeepWarm,
		Settings:              settings,
	}, nil
}

// keepWarmTemperatureSetting builds the temperature setting from either a
// Celsius value or a preset. Returns (nil, nil) when neither is provided.
// A Celsius value and a preset together are rejected.
func keepWarmTemperatureSetting(tempCelsius int, preset TemperaturePreset) (*Setting, error) {
	if tempCelsius != 0 && preset != "" {
		return nil, fmt.Errorf("%w: provide either a temperature or a preset, not both", ErrInvalidCommand)
	}

	if tempCelsius != 0 {
		if tempCelsius < minTempCelsius || tempCelsius > maxTempCelsius {
			return nil, fmt.Errorf("%w: temperature %d°C out of range [%d, %d]",
				ErrInvalidCommand, tempCelsius, minTempCelsius, maxTempCelsius)
		}
		s := numericSetting(settingTemperature, tempCelsius, unitCelsius)
		return &s, nil
	}

	if preset != "" {
		presetID, err := preset.referenceValueID()
		if err != nil {
			return nil, err
		}
		s := nominalSetting(settingTemperature, presetID)
		return &s, nil
	}

	return nil, nil
}
