package main

import (
	"bokat-client/cmd/bokat-cli/commands"
	"bokat-client/lib/serviceutil"
	"bokat-client/lib/telemetry"
)

func main() {
	ctx := serviceutil.SignalContext()
	telemetry.SetupFromEnv(ctx, "bokat-cli")
	telemetry.InitSlog(true)
	telemetry.InstrumentPerfStats(ctx)
	commands.ExecuteContext(ctx)
}
