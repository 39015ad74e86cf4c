package cmd

import (
	"log/slog"

	"github.com/dvmsuite/clinicflow/pkg/actions/httprequest"
	logaction "github.com/dvmsuite/clinicflow/pkg/actions/log"
	"github.com/dvmsuite/clinicflow/pkg/registry"
)

func registerNativeActions(reg *registry.Registry) {
	reg.RegisterAction(httprequest.NewActionFactory())
	reg.RegisterAction(logaction.NewActionFactory())
}

// NewRegistry creates an action registry with the native executors
// registered.
func NewRegistry(log *slog.Logger) *registry.Registry {
	reg := registry.NewRegistry(log)

	registerNativeActions(reg)

	return reg
}
