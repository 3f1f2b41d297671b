// Package device is the conductor's device layer: the catalog of known
// devices, their live state, and the actuation path that turns provider
// commands into state changes.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────────┐
//	│                            device.Service                          │
//	│                                                                    │
//	│  ┌──────────────┐    ┌──────────────┐    ┌──────────────────────┐  │
//	│  │   Registry   │    │  StateStore  │    │      Transport       │  │
//	│  │ (registry.go)│    │(state_store) │    │    (transport.go)    │  │
//	│  │              │    │              │    │                      │  │
//	│  │ • catalog    │    │ • live state │    │ • SimulatedTransport │  │
//	│  │ • name lookup│    │ • per-device │    │ • MQTTTransport      │  │
//	│  │ • cache      │    │   write lock │    │ • ScriptedTransport  │  │
//	│  └──────┬───────┘    └──────────────┘    └──────────────────────┘  │
//	└─────────│──────────────────────────────────────────────────────────┘
//	          ▼
//	┌──────────────────────┐
//	│   SQLite database    │
//	│ devices, history     │
//	└──────────────────────┘
//
// # Semantic and provider names
//
// Plans speak in semantic parameters ("brightness", "locked"). Each Device
// carries a Commands map from those names to the provider's data-point
// identifiers ("bright_value", "lock_motor_state"), and its State is keyed by
// the provider identifiers. Specialists translate before calling
// SendCommands.
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db.DB)
//	registry := device.NewRegistry(repo)
//	if err := registry.RefreshCache(ctx); err != nil {
//	    return err
//	}
//	if _, err := registry.Seed(ctx, device.DefaultCatalog()); err != nil {
//	    return err
//	}
//
//	svc, err := device.NewService(ctx, registry, device.NewStateStore(),
//	    device.NewSimulatedTransport(device.SimulationOptions{FailureRate: 0.05}))
//	res, err := svc.SendCommands(ctx, "light-living", []device.Command{
//	    {Name: "bright_value", Value: 30},
//	})
//
// # Thread Safety
//
// Registry, StateStore and Service are safe for concurrent use. Commands to
// the same device are serialised by the StateStore's per-device lock.
package device
