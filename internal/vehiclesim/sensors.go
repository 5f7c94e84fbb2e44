package vehiclesim

import (
	"math/rand/v2"
	"sync"

	"github.com/autopeer-io/fleetpulse/internal/fleethub/core/model"
)

// Sensors produces one heartbeat sample per call.
type Sensors interface {
	Read() model.HeartbeatData
}

// mockSensors drifts temperature, voltage and battery around plausible values
// and advances a monotonic usage counter.
type mockSensors struct {
	mu        sync.Mutex
	rnd       *rand.Rand
	usage     float64
	usageStep float64
	battery   float64
}

// NewSensors returns simulated sensors. seed makes the readings reproducible.
func NewSensors(usageStep float64, seed uint64) Sensors {
	return &mockSensors{
		rnd:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		usageStep: usageStep,
		battery:   100,
	}
}

func (s *mockSensors) Read() model.HeartbeatData {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.usage += s.usageStep
	s.battery -= s.rnd.Float64() * 0.2
	if s.battery < 5 {
		s.battery = 100
	}

	usage := s.usage
	voltage := 48 + s.rnd.Float64()*4
	battery := s.battery
	session := s.usageStep

	return model.HeartbeatData{
		Mode:           1,
		Temp:           25 + s.rnd.IntN(15),
		Voltage:        &voltage,
		Battery:        &battery,
		TotalUsageTime: &usage,
		SessionUsage:   &session,
	}
}
