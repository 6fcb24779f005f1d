package sync

//go:generate mockgen -destination=mock_sync.go -package=sync github.com/faceterm/fleetsync/pkg/sync Clock,Ticker,DeviceClient,CycleRunner

import (
	"context"
	"time"

	"github.com/faceterm/fleetsync/pkg/models"
	"github.com/faceterm/fleetsync/pkg/terminal"
)

// Clock abstracts time-related operations.
type Clock interface {
	Now() time.Time
	Ticker(d time.Duration) Ticker
}

// Ticker abstracts the ticker behavior.
type Ticker interface {
	Chan() <-chan time.Time
	Stop()
}

// DeviceClient is the wire client used to reach one device.
type DeviceClient interface {
	Probe(ctx context.Context, device *models.Device) models.DeviceStatus
	FetchEvents(ctx context.Context, device *models.Device) terminal.FetchResult
}

// CycleRunner runs one fleet synchronization cycle.
type CycleRunner interface {
	RunCycle(ctx context.Context) (models.CycleSummary, error)
}
