package accessory

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/brutella/hap"
	"github.com/brutella/hap/accessory"
)

// ServerOptions holds pairing server configuration.
type ServerOptions struct {
	// Pin is the 8-digit setup code controllers enter when pairing.
	Pin string

	// StorageDir is where pairings and keys persist. Losing it unpairs
	// every controller.
	StorageDir string

	// Fans are the accessories to publish behind the bridge accessory.
	Fans []*Fan

	// Logger is optional structured logging.
	Logger Logger
}

// Server publishes the fans over the pairing protocol.
type Server struct {
	srv    *hap.Server
	logger Logger
}

// NewServer creates the pairing server. Fans are published in serial
// order so accessory IDs stay stable across restarts regardless of the
// order the cloud enumerated them in.
//
// Returns:
//   - *Server: Server ready for Run
//   - error: ErrStorageRequired or ErrNoAccessories, or a setup failure
func NewServer(opts ServerOptions) (*Server, error) {
	if opts.StorageDir == "" {
		return nil, ErrStorageRequired
	}
	if len(opts.Fans) == 0 {
		return nil, ErrNoAccessories
	}

	fans := make([]*Fan, len(opts.Fans))
	copy(fans, opts.Fans)
	sort.Slice(fans, func(i, j int) bool {
		return fans[i].Serial() < fans[j].Serial()
	})

	bridge := accessory.NewBridge(accessory.Info{
		Name:     "FanBridge",
		Firmware: firmwareRevision,
	})

	accessories := make([]*accessory.A, len(fans))
	for i, f := range fans {
		accessories[i] = f.A
	}

	srv, err := hap.NewServer(hap.NewFsStore(opts.StorageDir), bridge.A, accessories...)
	if err != nil {
		return nil, fmt.Errorf("accessory: create server: %w", err)
	}
	srv.Pin = opts.Pin

	return &Server{srv: srv, logger: opts.Logger}, nil
}

// Run serves pairing traffic until the context is cancelled. Cancellation
// is the normal shutdown path and returns nil.
func (s *Server) Run(ctx context.Context) error {
	err := s.srv.ListenAndServe(ctx)
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("accessory: serve: %w", err)
	}
	return nil
}
