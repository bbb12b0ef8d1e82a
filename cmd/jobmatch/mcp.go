package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/MereWhiplash/jobmatch/internal/client"
	"github.com/MereWhiplash/jobmatch/internal/service"
	"github.com/MereWhiplash/jobmatch/internal/shim"
	"github.com/MereWhiplash/jobmatch/internal/tools"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve the jm_* tools over MCP stdio",
	Long: "Serve the jm_* tools over MCP stdio. With --api-url (or JOBMATCH_API_URL) the tools\n" +
		"proxy to a running jobmatch API instead of opening storage locally.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		apiURL, _ := cmd.Flags().GetString("api-url")
		if apiURL == "" {
			apiURL = os.Getenv("JOBMATCH_API_URL")
		}
		return runMCP(cmd.Context(), apiURL)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("api-url", "", "proxy tools to this jobmatch API")
}

func runMCP(ctx context.Context, apiURL string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(ctxOrBackground(ctx), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := mcp.NewServer(&mcp.Implementation{
		Name:    app,
		Version: version,
	}, nil)

	if apiURL != "" {
		log.Info("proxying tools", zap.String("api_url", apiURL))
		shim.Register(server, shim.NewHandler(client.New(apiURL)))
	} else {
		svc, err := service.Build(ctx, cfg, service.Deps{}, log)
		if err != nil {
			return err
		}
		defer svc.Close()
		tools.Register(server, svc)
	}

	log.Info("starting MCP server on stdio")
	return server.Run(ctx, &mcp.StdioTransport{})
}
