package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// NewInvokeCmd создаёт команду вызова робота на robots-api так, как это
// делает бизнес-процесс портала.
func NewInvokeCmd(env *Env) *cobra.Command {
	var props []string
	var eventToken string

	cmd := &cobra.Command{
		Use:   "invoke CODE",
		Short: "Invoke a robot handler with the given properties",
		Example: `  robots invoke task_result --prop task_id=42
  robots invoke task_files_attach --prop task_id=42 --prop entity_type=deal \
      --prop entity_id=7 --prop field_code=UF_CRM_FILES`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := env.Manifest()
			if err != nil {
				return err
			}
			r, ok := m.Robot(args[0])
			if !ok {
				return fmt.Errorf("robot %q not found in manifest", args[0])
			}

			properties, err := parseProps(props)
			if err != nil {
				return err
			}
			auth, err := env.Auth()
			if err != nil {
				return err
			}
			out := env.Output()

			result, err := env.Invoker().Invoke(cmd.Context(), r.Path, InvokeRequest{
				Auth:       auth,
				Properties: properties,
				EventToken: eventToken,
				Code:       r.Code,
			})
			if err != nil {
				return err
			}

			out.JSON(result.Body)
			if result.StatusCode >= 400 {
				return fmt.Errorf("robot %s: HTTP %d", r.Code, result.StatusCode)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&props, "prop", nil, "Robot property KEY=VALUE (repeatable)")
	cmd.Flags().StringVar(&eventToken, "event-token", "", "Business-process event token for the callback")

	return cmd
}

// parseProps разбирает KEY=VALUE.
func parseProps(pairs []string) (map[string]string, error) {
	props := make(map[string]string, len(pairs))
	for _, p := range pairs {
		key, value, ok := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid property %q: expected KEY=VALUE", p)
		}
		props[key] = value
	}
	return props, nil
}
