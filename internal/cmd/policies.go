package cmd

import (
	"io"

	"github.com/MrEthical07/waitgate"
	"github.com/MrEthical07/waitgate/internal/config"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Print the effective limiter policies",
	Long:  `Print every limiter policy and content counter with its window, limit and Redis namespace.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		// Clients connect lazily; building the gate touches no server.
		client, err := newRedisClient(cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()

		cfg.Audit.Sink = config.AuditSinkNone
		gate, err := newGate(cfg, client, zap.NewNop())
		if err != nil {
			return err
		}
		defer gate.Close()

		renderPolicies(cmd.OutOrStdout(), gate.Policies())
		return nil
	},
}

func renderPolicies(w io.Writer, policies []waitgate.PolicyInfo) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"Policy", "Window", "Limit", "Namespace"})
	for _, p := range policies {
		t.AppendRow(table.Row{p.Name, p.Window.String(), p.Limit, p.Namespace})
	}
	t.Render()
}
