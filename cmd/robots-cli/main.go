// robots — инструмент командной строки для установки роботов на портал
// и проверки их обработчиков.
//
// Использование:
//
//	robots [--manifest FILE] [--domain D --token T] [--api-url URL] [--json] <command> [flags]
//
// Команды:
//
//	robot    Установка и удаление роботов
//	invoke   Вызов обработчика робота
//	journal  Журнал вызовов
//	events   События о завершённых вызовах
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/shaiso/b24robots/internal/bitrix"
	"github.com/shaiso/b24robots/internal/cli"
	"github.com/shaiso/b24robots/internal/config"
	"github.com/shaiso/b24robots/internal/domain"
	"github.com/shaiso/b24robots/internal/telemetry"
)

// version задаётся через ldflags при сборке.
var version = "dev"

func main() {
	var (
		manifestPath string
		portalDomain string
		accessToken  string
		apiURL       string
		jsonOutput   bool
	)

	rootCmd := &cobra.Command{
		Use:           "robots",
		Short:         "Business-process robots CLI",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&manifestPath, "manifest", "robots.yaml", "Robot manifest file")
	flags.StringVar(&portalDomain, "domain", os.Getenv("B24_DOMAIN"), "Portal domain")
	flags.StringVar(&accessToken, "token", os.Getenv("B24_ACCESS_TOKEN"), "Portal access token")
	flags.StringVar(&apiURL, "api-url", "http://localhost:8080", "robots-api URL")
	flags.BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	logger := telemetry.NewLogger(os.Stderr, telemetry.LogLevel(), "text")

	auth := func() (cli.InvokeAuth, error) {
		if portalDomain == "" || accessToken == "" {
			return cli.InvokeAuth{}, cli.ErrMissingAuth
		}
		return cli.InvokeAuth{AccessToken: accessToken, Domain: portalDomain}, nil
	}

	env := &cli.Env{
		Manifest: func() (*cli.Manifest, error) { return cli.LoadManifest(manifestPath) },
		Portal: func() (*cli.Portal, error) {
			a, err := auth()
			if err != nil {
				return nil, err
			}
			platform, err := config.LoadPlatform()
			if err != nil {
				return nil, err
			}
			client := bitrix.NewClient(bitrix.Config{
				CallTimeout: platform.CallTimeout,
				RateLimit:   platform.RateLimit,
				RateBurst:   platform.RateBurst,
				InsecureTLS: platform.InsecureTLS,
			})
			return cli.NewPortal(client.Session(domain.Auth{AccessToken: a.AccessToken, Domain: a.Domain})), nil
		},
		Auth:    auth,
		Invoker: func() *cli.Invoker { return cli.NewInvoker(apiURL) },
		Output:  func() *cli.Output { return cli.NewOutput(jsonOutput) },
		Logger:  logger,
	}

	rootCmd.AddCommand(
		cli.NewRobotCmd(env),
		cli.NewInvokeCmd(env),
		cli.NewJournalCmd(env),
		cli.NewEventsCmd(env),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancel()
		os.Exit(1)
	}
}
