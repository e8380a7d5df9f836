package psu

import (
	"context"
	"math"

	"periph.io/x/conn/v3/physic"
)

// Telemetry is a snapshot of the monitored quantities.
type Telemetry struct {
	Vout         physic.ElectricPotential
	Vin          physic.ElectricPotential
	Iin          physic.ElectricCurrent
	Iout         physic.ElectricCurrent
	Pin          physic.Power
	Pout         physic.Power
	Temperature1 physic.Temperature
	Temperature2 physic.Temperature
}

// MarshalYAML renders each quantity with its unit.
func (t Telemetry) MarshalYAML() (interface{}, error) {
	return map[string]string{
		"vout":         t.Vout.String(),
		"vin":          t.Vin.String(),
		"iin":          t.Iin.String(),
		"iout":         t.Iout.String(),
		"pin":          t.Pin.String(),
		"pout":         t.Pout.String(),
		"temperature1": t.Temperature1.String(),
		"temperature2": t.Temperature2.String(),
	}, nil
}

func volts(v float64) physic.ElectricPotential {
	return physic.ElectricPotential(math.Round(v * float64(physic.Volt)))
}

func amperes(v float64) physic.ElectricCurrent {
	return physic.ElectricCurrent(math.Round(v * float64(physic.Ampere)))
}

func watts(v float64) physic.Power {
	return physic.Power(math.Round(v * float64(physic.Watt)))
}

func celsius(v float64) physic.Temperature {
	return physic.ZeroCelsius + physic.Temperature(math.Round(v*float64(physic.Kelvin)))
}

// Sense reads all telemetry registers. The first failing read aborts.
func (p *PSU) Sense(ctx context.Context) (Telemetry, error) {
	var t Telemetry
	v, err := p.ReadVout(ctx)
	if err != nil {
		return Telemetry{}, err
	}
	t.Vout = volts(v)
	if v, err = p.ReadVin(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Vin = volts(v)
	if v, err = p.ReadIin(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Iin = amperes(v)
	if v, err = p.ReadIout(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Iout = amperes(v)
	if v, err = p.ReadPin(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Pin = watts(v)
	if v, err = p.ReadPout(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Pout = watts(v)
	if v, err = p.ReadTemperature1(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Temperature1 = celsius(v)
	if v, err = p.ReadTemperature2(ctx); err != nil {
		return Telemetry{}, err
	}
	t.Temperature2 = celsius(v)
	return t, nil
}

// Info holds the manufacturer identification strings.
type Info struct {
	ID       string `yaml:"mfr_id"`
	Model    string `yaml:"mfr_model"`
	Revision string `yaml:"mfr_revision"`
	Serial   string `yaml:"mfr_serial"`
}

func (p *PSU) Info(ctx context.Context) (Info, error) {
	var info Info
	var err error
	if info.ID, err = p.MfrID(ctx); err != nil {
		return Info{}, err
	}
	if info.Model, err = p.MfrModel(ctx); err != nil {
		return Info{}, err
	}
	if info.Revision, err = p.MfrRevision(ctx); err != nil {
		return Info{}, err
	}
	if info.Serial, err = p.MfrSerial(ctx); err != nil {
		return Info{}, err
	}
	return info, nil
}
