package main

import (
	"context"
	"ltbxd-scraper/cmd/ltbxd/commands"
	"ltbxd-scraper/lib/util/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
