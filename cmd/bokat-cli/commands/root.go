package commands

import (
	"context"
	"fmt"
	"os"

	"bokat-client/lib/configutil"
	"bokat-client/lib/restyutil"
	"bokat-client/lib/scrapers/bokat"
	"bokat-client/lib/serviceutil"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

type Config struct {
	Username string `json:"username"`
	Password string `json:"password"`
	// defaults to the public site when empty
	BaseUrl string `json:"baseUrl"`
}

var debugHttp *bool
var outputJson *bool

var rootCmd = &cobra.Command{
	Use:   "bokat-cli",
	Short: "bokat-cli lists activities, shows rosters and submits replies on bokat.se.",
}

func init() {
	debugHttp = rootCmd.PersistentFlags().Bool(
		"debug-http", false, "Dump all http traffic to .dev/resty/bokat-cli.")
	outputJson = rootCmd.PersistentFlags().Bool(
		"json", false, "Print results as json instead of tables.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func createClient(ctx context.Context) *bokat.Client {
	cfg, err := configutil.ReadConfig[Config]("bokat.json5")
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}

	client, err := bokat.NewClient(ctx, bokat.ClientOptions{
		BaseUrl: cfg.BaseUrl,
		Credentials: bokat.Credentials{
			Username: cfg.Username,
			Password: cfg.Password,
		},
	})
	if err != nil {
		serviceutil.Fatal("failed to initialize client", err)
	}
	if *debugHttp {
		out := restyutil.NewFilesystemOutput(".dev/resty/bokat-cli")
		restyutil.DumpTraffic(client.Http, out)
		restyutil.DumpTraffic(client.HttpNoRedirect, out)
	}
	return client
}

func newTable() table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	return t
}

// resolveActivity matches a positional argument against the listing,
// by event id first and then by exact name.
func resolveActivity(ctx context.Context, client *bokat.Client, arg string) (bokat.Activity, error) {
	activities, err := client.ListActivities(ctx)
	if err != nil {
		return bokat.Activity{}, err
	}
	for _, a := range activities {
		if a.EventId == arg {
			return a, nil
		}
	}
	for _, a := range activities {
		if a.Name == arg {
			return a, nil
		}
	}
	return bokat.Activity{}, fmt.Errorf("no activity matching %q, run 'bokat-cli list' to see what exists", arg)
}
